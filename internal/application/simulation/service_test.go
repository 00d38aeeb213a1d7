package simulation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexsim-api/internal/config"
	"lexsim-api/internal/domain/service"
	"lexsim-api/internal/workflow/chain"
	workflowport "lexsim-api/internal/workflow/port"
	workflowprompt "lexsim-api/internal/workflow/prompt"
	apperrors "lexsim-api/pkg/errors"
)

// scriptedGenerator 依次把预置输出交给 Accept，模拟网关的回退循环
type scriptedGenerator struct {
	outputs []string
	calls   int
	last    *chain.GenerateInput
}

func (g *scriptedGenerator) Invoke(_ context.Context, in *chain.GenerateInput) (*workflowport.Completion, error) {
	g.calls++
	g.last = in
	var lastErr error = errors.New("no outputs")
	for i, out := range g.outputs {
		if in.Accept != nil {
			if err := in.Accept(out); err != nil {
				lastErr = err
				continue
			}
		}
		return &workflowport.Completion{Content: out, Provider: "test", Model: "m", Attempts: i + 1}, nil
	}
	return nil, lastErr
}

type fakeLimiter struct {
	allow func(ctx context.Context, key string) (service.RateLimitDecision, error)
	keys  []string
}

func (l *fakeLimiter) Allow(ctx context.Context, key string) (service.RateLimitDecision, error) {
	l.keys = append(l.keys, key)
	return l.allow(ctx, key)
}

func allowAll() *fakeLimiter {
	return &fakeLimiter{allow: func(context.Context, string) (service.RateLimitDecision, error) {
		return service.RateLimitDecision{Allowed: true, Limit: 30, Remaining: 29}, nil
	}}
}

func newTestService(gen Generator, limiter service.RateLimiter, fallback bool) *Service {
	cfg := &config.Config{Simulation: testSimulationConfig()}
	cfg.Security.RateLimit.Backend = config.RateLimitBackendMemory
	cfg.Features.FallbackContent.Enabled = fallback
	return NewService(cfg, gen, limiter)
}

func TestSimulate_Success(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{"# Simulación LexSim\n\nAudiencia.\n\n```json\n" + sampleDocumentJSON(t) + "\n```"}}
	limiter := allowAll()
	svc := newTestService(gen, limiter, false)

	res, err := svc.Simulate(context.Background(), "10.0.0.1", SimulationDraft{Context: validContext, Jurisdiction: ptr("Perú")})
	require.NoError(t, err)

	assert.Equal(t, "# Simulación LexSim\n\nAudiencia.", res.Markdown)
	assert.NotNil(t, res.JSON)
	assert.Empty(t, res.Warnings)
	assert.NotNil(t, res.Warnings)

	assert.Equal(t, []string{"10.0.0.1"}, limiter.keys)
	require.NotNil(t, gen.last)
	assert.Equal(t, workflowprompt.PromptSimulationV1, gen.last.PromptID)
	assert.Equal(t, "simulation", gen.last.Workflow)
	assert.Equal(t, validContext, gen.last.Vars["context"])
	assert.Equal(t, "Perú", gen.last.Vars["jurisdiction"])
	assert.False(t, gen.last.Options.JSONMode)
}

func TestSimulate_ValidationErrorSkipsLimiterAndModel(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{"# x"}}
	limiter := allowAll()
	svc := newTestService(gen, limiter, false)

	_, err := svc.Simulate(context.Background(), "ip", SimulationDraft{Context: "corto"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
	assert.Empty(t, limiter.keys)
	assert.Zero(t, gen.calls)
}

func TestSimulate_RateLimited(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{"# x"}}
	limiter := &fakeLimiter{allow: func(context.Context, string) (service.RateLimitDecision, error) {
		return service.RateLimitDecision{Allowed: false, Limit: 30, RetryAfter: 1200 * time.Millisecond}, nil
	}}
	svc := newTestService(gen, limiter, false)

	_, err := svc.Simulate(context.Background(), "ip", SimulationDraft{Context: validContext})
	require.Error(t, err)

	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeTooManyRequests, appErr.Code)
	assert.Equal(t, 429, appErr.HTTPStatus)
	assert.Equal(t, "Límite de peticiones excedido. Intente nuevamente más tarde.", appErr.Message)
	assert.Equal(t, 2, appErr.RetryAfter)
	assert.Zero(t, gen.calls)
}

func TestSimulate_LimiterErrorFailsOpen(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{"# Caso"}}
	limiter := &fakeLimiter{allow: func(context.Context, string) (service.RateLimitDecision, error) {
		return service.RateLimitDecision{}, errors.New("redis down")
	}}
	svc := newTestService(gen, limiter, false)

	res, err := svc.Simulate(context.Background(), "ip", SimulationDraft{Context: validContext})
	require.NoError(t, err)
	assert.Equal(t, []string{WarningJSONMissing}, res.Warnings)
	assert.Nil(t, res.JSON)
}

func TestSimulate_NilLimiter(t *testing.T) {
	svc := newTestService(&scriptedGenerator{outputs: []string{"# Caso"}}, nil, false)

	_, err := svc.Simulate(context.Background(), "ip", SimulationDraft{Context: validContext})
	assert.NoError(t, err)
}

func TestSimulate_EmptyMarkdownAdvancesToNextOutput(t *testing.T) {
	jsonOnly := "```json\n" + sampleDocumentJSON(t) + "\n```"
	gen := &scriptedGenerator{outputs: []string{"", jsonOnly, "# Segundo intento"}}
	svc := newTestService(gen, allowAll(), false)

	res, err := svc.Simulate(context.Background(), "ip", SimulationDraft{Context: validContext})
	require.NoError(t, err)
	assert.Equal(t, "# Segundo intento", res.Markdown)
	assert.Equal(t, []string{WarningJSONMissing}, res.Warnings)
}

func TestSimulate_ProviderFailure(t *testing.T) {
	jsonOnly := "```json\n" + sampleDocumentJSON(t) + "\n```"
	svc := newTestService(&scriptedGenerator{outputs: []string{jsonOnly}}, allowAll(), false)

	_, err := svc.Simulate(context.Background(), "ip", SimulationDraft{Context: validContext})
	require.Error(t, err)

	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeLLMProviderError, appErr.Code)
	assert.Equal(t, 502, appErr.HTTPStatus)
	assert.Equal(t, "Error al generar la simulación. Intente nuevamente más tarde.", appErr.Message)
	assert.ErrorIs(t, err, errEmptyMarkdown)
}

func TestSimulate_FallbackContent(t *testing.T) {
	jsonOnly := "```json\n" + sampleDocumentJSON(t) + "\n```"

	t.Run("empty markdown replaced", func(t *testing.T) {
		svc := newTestService(&scriptedGenerator{outputs: []string{jsonOnly}}, allowAll(), true)

		res, err := svc.Simulate(context.Background(), "ip", SimulationDraft{Context: validContext})
		require.NoError(t, err)
		assert.Contains(t, res.Markdown, "# Simulación de respaldo LexSim")
		assert.NotNil(t, res.JSON)
		assert.Equal(t, []string{WarningFallbackMarkdown}, res.Warnings)
	})

	t.Run("missing json replaced", func(t *testing.T) {
		svc := newTestService(&scriptedGenerator{outputs: []string{"# Caso"}}, allowAll(), true)

		res, err := svc.Simulate(context.Background(), "ip", SimulationDraft{Context: validContext})
		require.NoError(t, err)
		assert.Equal(t, "# Caso", res.Markdown)
		require.NotNil(t, res.JSON)
		assert.Contains(t, res.JSON, "glosario")
		assert.Equal(t, []string{WarningFallbackJSON}, res.Warnings)
	})

	t.Run("provider failure is still an error", func(t *testing.T) {
		svc := newTestService(&scriptedGenerator{}, allowAll(), true)

		_, err := svc.Simulate(context.Background(), "ip", SimulationDraft{Context: validContext})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeLLMProviderError))
	})
}

func TestSteps_Success(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{
		"sin json",
		"```json\n{\"steps\": [\"Uno\", \"Dos\", \"Tres\", \"Cuatro\"], \"summary\": \"Resumen\", \"metadata\": {\"model\": \"x\"}}\n```",
	}}
	svc := newTestService(gen, allowAll(), false)

	res, err := svc.Steps(context.Background(), "ip", StepsDraft{
		Prompt:      "Simulate a contract dispute",
		Temperature: ptr(0.25),
		MaxSteps:    ptr(3),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Uno", "Dos", "Tres"}, res.Steps)
	assert.Equal(t, "Resumen", res.Summary)
	assert.Equal(t, map[string]string{"model": "x"}, res.Metadata)

	require.NotNil(t, gen.last)
	assert.Equal(t, workflowprompt.PromptStepsV1, gen.last.PromptID)
	assert.True(t, gen.last.Options.JSONMode)
	require.NotNil(t, gen.last.Options.Temperature)
	assert.InDelta(t, 0.25, *gen.last.Options.Temperature, 1e-6)
	assert.Equal(t, 3, gen.last.Vars["max_steps"])
}

func TestSteps_Errors(t *testing.T) {
	svc := newTestService(&scriptedGenerator{outputs: []string{`{"steps": []}`}}, allowAll(), true)

	_, err := svc.Steps(context.Background(), "ip", StepsDraft{Prompt: "   "})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))

	_, err = svc.Steps(context.Background(), "ip", StepsDraft{Prompt: "Simulate"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeLLMProviderError))
	assert.ErrorIs(t, err, errNoSteps)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(300*time.Millisecond))
	assert.Equal(t, 60, retryAfterSeconds(time.Minute))
	assert.Equal(t, 61, retryAfterSeconds(time.Minute+time.Millisecond))
}
