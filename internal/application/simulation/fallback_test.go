package simulation

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexsim-api/internal/domain/entity"
)

func TestFallbackMarkdown(t *testing.T) {
	in := sampleInput()
	md := FallbackMarkdown(in)

	assert.True(t, strings.HasPrefix(md, "# Simulación de respaldo LexSim\n"))
	assert.Contains(t, md, "- **Jurisdicción:** Jurisdicción genérica\n")
	assert.Contains(t, md, "- **Materia:** penal\n")
	assert.Contains(t, md, "- **Duración estimada:** 90 minutos\n")
	assert.Contains(t, md, "### Contexto sintetizado\n"+validContext+"\n")
	assert.Equal(t, md, FallbackMarkdown(in))
}

func TestFallbackMarkdown_LongContextIsTruncated(t *testing.T) {
	in := sampleInput()
	in.Context = strings.Repeat("palabra  \n", 100)
	in.Jurisdiction = "Chile"

	md := FallbackMarkdown(in)
	assert.Contains(t, md, "- **Jurisdicción:** Chile\n")
	assert.NotContains(t, md, "  ")
	assert.Contains(t, md, strings.TrimSpace(strings.Repeat("palabra ", 35)))
}

func TestFallbackDocument_DeterministicAndValid(t *testing.T) {
	in := sampleInput()
	in.Subject = entity.SubjectAdministrativo

	doc := FallbackDocument(in)
	assert.Equal(t, doc, FallbackDocument(in))

	v := validator.New(validator.WithRequiredStructEnabled())
	require.NoError(t, v.Struct(doc))

	assert.Equal(t, "Simulación de contingencia: Administrativo", doc.Meta.Titulo)
	assert.Equal(t, "Jurisdicción genérica", doc.Meta.Jurisdiccion)
	require.Len(t, doc.Cronologia, 3)
	assert.Equal(t, "2035-01-01 09:00", doc.Cronologia[0].T)
	assert.Equal(t, "2035-01-01 09:30", doc.Cronologia[1].T)
	assert.Equal(t, "2035-01-01 10:30", doc.Cronologia[2].T)
	require.Len(t, doc.Pruebas.DigitalFisica, 1)
	assert.Len(t, doc.Pruebas.DigitalFisica[0].Hash, 16)

	other := in
	other.Context = "Otro contexto distinto. Con más hechos. Y testigos."
	assert.NotEqual(t, doc.Pruebas.DigitalFisica[0].Hash, FallbackDocument(other).Pruebas.DigitalFisica[0].Hash)
}

func TestApplyFallback(t *testing.T) {
	in := sampleInput()

	t.Run("missing json", func(t *testing.T) {
		got := applyFallback(ParsedSimulation{Markdown: "# Caso", Warnings: []string{WarningJSONMissing}}, in)
		assert.Equal(t, "# Caso", got.Markdown)
		require.NotNil(t, got.JSON)
		assert.Contains(t, got.JSON, "meta")
		assert.Equal(t, []string{WarningFallbackJSON}, got.Warnings)
	})

	t.Run("invalid json keeps detection warning", func(t *testing.T) {
		got := applyFallback(ParsedSimulation{Markdown: "# Caso", Warnings: []string{WarningJSONInvalid}}, in)
		assert.Equal(t, []string{WarningJSONInvalid, WarningFallbackJSON}, got.Warnings)
	})

	t.Run("empty markdown", func(t *testing.T) {
		got := applyFallback(ParsedSimulation{JSON: map[string]any{"meta": map[string]any{}}, Warnings: []string{}}, in)
		assert.Equal(t, FallbackMarkdown(in), got.Markdown)
		assert.Equal(t, []string{WarningFallbackMarkdown}, got.Warnings)
	})

	t.Run("complete output untouched", func(t *testing.T) {
		p := ParsedSimulation{Markdown: "# Caso", JSON: map[string]any{"meta": "x"}, Warnings: []string{}}
		assert.Equal(t, p, applyFallback(p, in))
	})
}
