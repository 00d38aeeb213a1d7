package prompt

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simulationVars() map[string]any {
	return map[string]any{
		"context":          "Linea 1\nLinea 2\nLinea 3",
		"subject":          "penal",
		"level":            "intermedio",
		"jurisdiction":     "",
		"objective":        "practicar objeciones y contrainterrogatorio",
		"duration_minutes": 90,
		"constraints":      []string{},
	}
}

func TestRegistry_FormatSimulation(t *testing.T) {
	r := NewRegistry()

	msgs, err := r.Format(context.Background(), PromptSimulationV1, simulationVars())
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "```json")
	assert.Equal(t, schema.User, msgs[1].Role)

	user := msgs[1].Content
	assert.Contains(t, user, "Genera una simulación de juicio")
	assert.Contains(t, user, "Linea 1\nLinea 2\nLinea 3")
	assert.Contains(t, user, "- Materia: penal")
	assert.Contains(t, user, "- Duración estimada: 90 minutos")
	assert.NotContains(t, user, "Jurisdicción")
	assert.NotContains(t, user, "Restricciones")
}

func TestRegistry_FormatSimulationOptionalFields(t *testing.T) {
	vars := simulationVars()
	vars["jurisdiction"] = "Chile"
	vars["constraints"] = []string{"Sin menores de edad", "Solo dos testigos"}

	msgs, err := NewRegistry().Format(context.Background(), PromptSimulationV1, vars)
	require.NoError(t, err)

	user := msgs[1].Content
	assert.Contains(t, user, "- Jurisdicción: Chile")
	assert.Contains(t, user, "Restricciones adicionales:\n- Sin menores de edad\n- Solo dos testigos")
}

func TestRegistry_FormatIsDeterministic(t *testing.T) {
	r := NewRegistry()
	a, err := r.Format(context.Background(), PromptSimulationV1, simulationVars())
	require.NoError(t, err)
	b, err := NewRegistry().Format(context.Background(), PromptSimulationV1, simulationVars())
	require.NoError(t, err)

	assert.Equal(t, a[0].Content, b[0].Content)
	assert.Equal(t, a[1].Content, b[1].Content)
}

func TestRegistry_FormatSteps(t *testing.T) {
	msgs, err := NewRegistry().Format(context.Background(), PromptStepsV1, map[string]any{
		"prompt":      "Simulate a contract dispute",
		"max_steps":   3,
		"temperature": "",
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Content, "\"\"\"\nSimulate a contract dispute\n\"\"\"")
	assert.Contains(t, msgs[1].Content, "como máximo 3 pasos")
	assert.NotContains(t, msgs[1].Content, "Temperatura")
}

func TestRegistry_MissingVariable(t *testing.T) {
	_, err := NewRegistry().Format(context.Background(), PromptStepsV1, map[string]any{"prompt": "x"})
	assert.Error(t, err)
}

func TestRegistry_UnknownPrompt(t *testing.T) {
	_, err := NewRegistry().ChatTemplate(PromptID("nope"))
	assert.Error(t, err)
}

func TestRegistry_CachesTemplates(t *testing.T) {
	r := NewRegistry()
	first, err := r.ChatTemplate(PromptStepsV1)
	require.NoError(t, err)
	second, err := r.ChatTemplate(PromptStepsV1)
	require.NoError(t, err)
	assert.Same(t, first, second)
}
