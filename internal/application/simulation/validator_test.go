package simulation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexsim-api/internal/config"
	"lexsim-api/internal/domain/entity"
	apperrors "lexsim-api/pkg/errors"
)

const validContext = "Un estudiante fue acusado de hurto en la biblioteca. Las cámaras muestran una figura borrosa. Un testigo afirma haberlo visto."

func testSimulationConfig() config.SimulationConfig {
	return config.SimulationConfig{
		Validation: config.ValidationConfig{
			MinContextChars:    10,
			MaxContextLines:    10,
			MinInformativeRows: 3,
			MinSentences:       3,
			MaxConstraints:     10,
			MaxConstraintChars: 300,
			MaxSteps:           20,
		},
		Defaults: config.DefaultsConfig{
			Subject:         "penal",
			Level:           "intermedio",
			Objective:       "practicar objeciones y contrainterrogatorio",
			DurationMinutes: 90,
			MaxSteps:        5,
		},
	}
}

func ptr[T any](v T) *T { return &v }

func requireInvalid(t *testing.T, err error, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
	assert.Equal(t, msg, apperrors.AsAppError(err).Message)
}

func TestValidateSimulation_Context(t *testing.T) {
	v := NewValidator(testSimulationConfig())

	tests := []struct {
		name    string
		context string
		wantMsg string
	}{
		{"empty", "   \n\t ", "El contexto es obligatorio."},
		{"too short", "  robo  ", "El contexto debe tener al menos 10 caracteres."},
		{"too many lines", strings.Repeat("Una línea del caso\n", 11), "El contexto no debe exceder 10 líneas."},
		{"not informative", "Un caso sin mucha información relevante", "El contexto debe contener al menos 3 líneas o 3 oraciones."},
		{"two sentences", "Hubo un robo. Nadie vio nada.", "El contexto debe contener al menos 3 líneas o 3 oraciones."},
		{"punctuation only segments", "Hubo un robo... ¿? Nadie vio nada!!", "El contexto debe contener al menos 3 líneas o 3 oraciones."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateSimulation(SimulationDraft{Context: tt.context})
			requireInvalid(t, err, tt.wantMsg)
		})
	}
}

func TestValidateSimulation_InformativeByLinesOrSentences(t *testing.T) {
	v := NewValidator(testSimulationConfig())

	_, err := v.ValidateSimulation(SimulationDraft{Context: "Primera línea\nSegunda línea\nTercera línea"})
	assert.NoError(t, err)

	_, err = v.ValidateSimulation(SimulationDraft{Context: "Hubo un robo. Nadie vio nada; la policía llegó tarde."})
	assert.NoError(t, err)

	_, err = v.ValidateSimulation(SimulationDraft{Context: strings.Repeat("Línea informativa.\n", 10)})
	assert.NoError(t, err)
}

func TestValidateSimulation_DefaultsAndTrim(t *testing.T) {
	v := NewValidator(testSimulationConfig())

	in, err := v.ValidateSimulation(SimulationDraft{
		Context:     "  " + validContext + "  \n",
		Constraints: []string{"  sin nombres reales ", "", "   ", "máximo tres testigos"},
	})
	require.NoError(t, err)

	assert.Equal(t, validContext, in.Context)
	assert.Equal(t, entity.SubjectPenal, in.Subject)
	assert.Equal(t, entity.LevelIntermedio, in.Level)
	assert.Equal(t, "", in.Jurisdiction)
	assert.Equal(t, "practicar objeciones y contrainterrogatorio", in.Objective)
	assert.Equal(t, 90, in.DurationMinutes)
	assert.Equal(t, []string{"sin nombres reales", "máximo tres testigos"}, in.Constraints)
}

func TestValidateSimulation_ExplicitFields(t *testing.T) {
	v := NewValidator(testSimulationConfig())

	in, err := v.ValidateSimulation(SimulationDraft{
		Context:         validContext,
		Subject:         "Laboral",
		Level:           "avanzado",
		Jurisdiction:    ptr(" México "),
		Objective:       ptr("   "),
		DurationMinutes: ptr(45),
	})
	require.NoError(t, err)

	assert.Equal(t, entity.SubjectLaboral, in.Subject)
	assert.Equal(t, entity.LevelAvanzado, in.Level)
	assert.Equal(t, "México", in.Jurisdiction)
	assert.Equal(t, "practicar objeciones y contrainterrogatorio", in.Objective)
	assert.Equal(t, 45, in.DurationMinutes)
	assert.NotNil(t, in.Constraints)
}

func TestValidateSimulation_Rules(t *testing.T) {
	v := NewValidator(testSimulationConfig())

	tests := []struct {
		name    string
		draft   SimulationDraft
		wantMsg string
	}{
		{
			"unknown subject",
			SimulationDraft{Context: validContext, Subject: "mercantil"},
			"La materia debe ser una de: penal, civil, laboral, administrativo, otro.",
		},
		{
			"unknown level",
			SimulationDraft{Context: validContext, Level: "experto"},
			"El nivel debe ser uno de: basico, intermedio, avanzado.",
		},
		{
			"duration too short",
			SimulationDraft{Context: validContext, DurationMinutes: ptr(29)},
			"La duración debe estar entre 30 y 480 minutos.",
		},
		{
			"duration too long",
			SimulationDraft{Context: validContext, DurationMinutes: ptr(481)},
			"La duración debe estar entre 30 y 480 minutos.",
		},
		{
			"constraint too long",
			SimulationDraft{Context: validContext, Constraints: []string{strings.Repeat("á", 301)}},
			"Cada restricción debe tener como máximo 300 caracteres.",
		},
		{
			"too many constraints",
			SimulationDraft{Context: validContext, Constraints: strings.Split("a,b,c,d,e,f,g,h,i,j,k", ",")},
			"Se permiten como máximo 10 restricciones.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateSimulation(tt.draft)
			requireInvalid(t, err, tt.wantMsg)
		})
	}
}

func TestValidateSimulation_DurationBounds(t *testing.T) {
	v := NewValidator(testSimulationConfig())

	for _, d := range []int{30, 480} {
		in, err := v.ValidateSimulation(SimulationDraft{Context: validContext, DurationMinutes: ptr(d)})
		require.NoError(t, err)
		assert.Equal(t, d, in.DurationMinutes)
	}
}

func TestValidateSteps(t *testing.T) {
	v := NewValidator(testSimulationConfig())

	in, err := v.ValidateSteps(StepsDraft{Prompt: "  Simulate a contract dispute "})
	require.NoError(t, err)
	assert.Equal(t, "Simulate a contract dispute", in.Prompt)
	assert.Equal(t, 5, in.MaxSteps)
	assert.Nil(t, in.Temperature)

	in, err = v.ValidateSteps(StepsDraft{Prompt: "p", Temperature: ptr(0.0), MaxSteps: ptr(20)})
	require.NoError(t, err)
	assert.Equal(t, 20, in.MaxSteps)
	require.NotNil(t, in.Temperature)
	assert.Equal(t, 0.0, *in.Temperature)

	tests := []struct {
		name    string
		draft   StepsDraft
		wantMsg string
	}{
		{"blank prompt", StepsDraft{Prompt: " \n "}, "El prompt es obligatorio."},
		{"temperature high", StepsDraft{Prompt: "p", Temperature: ptr(1.5)}, "La temperatura debe estar entre 0 y 1."},
		{"temperature negative", StepsDraft{Prompt: "p", Temperature: ptr(-0.1)}, "La temperatura debe estar entre 0 y 1."},
		{"zero steps", StepsDraft{Prompt: "p", MaxSteps: ptr(0)}, "max_steps debe estar entre 1 y 20."},
		{"too many steps", StepsDraft{Prompt: "p", MaxSteps: ptr(21)}, "max_steps debe estar entre 1 y 20."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateSteps(tt.draft)
			requireInvalid(t, err, tt.wantMsg)
		})
	}
}

func TestSentenceCount(t *testing.T) {
	assert.Equal(t, 0, SentenceCount(""))
	assert.Equal(t, 1, SentenceCount("Sin puntuación final"))
	assert.Equal(t, 3, SentenceCount("Uno. Dos! Tres?"))
	assert.Equal(t, 2, SentenceCount("Primero; segundo…"))
	assert.Equal(t, 1, SentenceCount("... !!! ¿¿ 2024"))
}

func TestNonEmptyLines(t *testing.T) {
	assert.Equal(t, 0, NonEmptyLines("  \n\t\n"))
	assert.Equal(t, 2, NonEmptyLines("a\n\n  b  \n"))
	assert.Equal(t, 3, NonEmptyLines("a\r\nb\rc"))
	assert.Equal(t, 2, NonEmptyLines("a\r\r\nb\r"))
}

func TestValidateSimulation_CarriageReturnLines(t *testing.T) {
	v := NewValidator(testSimulationConfig())

	_, err := v.ValidateSimulation(SimulationDraft{Context: strings.Repeat("Una línea del caso\r", 13)})
	requireInvalid(t, err, "El contexto no debe exceder 10 líneas.")

	in, err := v.ValidateSimulation(SimulationDraft{Context: "Primera línea\r\nSegunda línea\rTercera línea"})
	require.NoError(t, err)
	assert.Equal(t, "Primera línea\nSegunda línea\nTercera línea", in.Context)
}
