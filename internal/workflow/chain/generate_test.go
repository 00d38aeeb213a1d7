package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexsim-api/internal/domain/entity"
	llmctx "lexsim-api/internal/domain/service"
	workflowport "lexsim-api/internal/workflow/port"
	workflowprompt "lexsim-api/internal/workflow/prompt"
)

type fakeGateway struct {
	complete func(ctx context.Context, msgs []*schema.Message, opts workflowport.CallOptions, accept workflowport.AcceptFunc) (*workflowport.Completion, error)
}

func (f *fakeGateway) Complete(ctx context.Context, msgs []*schema.Message, opts workflowport.CallOptions, accept workflowport.AcceptFunc) (*workflowport.Completion, error) {
	return f.complete(ctx, msgs, opts, accept)
}

func TestGenerateChain_Invoke(t *testing.T) {
	var gotMsgs []*schema.Message
	var gotWorkflow string
	gw := &fakeGateway{complete: func(ctx context.Context, msgs []*schema.Message, opts workflowport.CallOptions, accept workflowport.AcceptFunc) (*workflowport.Completion, error) {
		gotMsgs = msgs
		gotWorkflow = llmctx.WorkflowFromContext(ctx)
		assert.True(t, opts.JSONMode)
		if accept == nil {
			return nil, errors.New("accept not propagated")
		}
		return &workflowport.Completion{Content: "ok", Model: "m", Attempts: 1}, accept("ok")
	}}
	c := NewGenerateChain(gw, nil)

	temp := 0.4
	out, err := c.Invoke(context.Background(), &GenerateInput{
		Workflow: "steps",
		PromptID: workflowprompt.PromptStepsV1,
		Vars:     StepsVars(entity.StepsInput{Prompt: "Simulate a contract dispute", MaxSteps: 3, Temperature: &temp}),
		Options:  workflowport.CallOptions{JSONMode: true},
		Accept:   func(string) error { return nil },
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Content)
	assert.Equal(t, "steps", gotWorkflow)
	require.Len(t, gotMsgs, 2)
	assert.Contains(t, gotMsgs[1].Content, "Simulate a contract dispute")
	assert.Contains(t, gotMsgs[1].Content, "Temperatura sugerida: 0.4")
}

func TestGenerateChain_GatewayError(t *testing.T) {
	boom := errors.New("boom")
	gw := &fakeGateway{complete: func(context.Context, []*schema.Message, workflowport.CallOptions, workflowport.AcceptFunc) (*workflowport.Completion, error) {
		return nil, boom
	}}
	c := NewGenerateChain(gw, workflowprompt.NewRegistry())

	_, err := c.Invoke(context.Background(), &GenerateInput{
		PromptID: workflowprompt.PromptSimulationV1,
		Vars:     SimulationVars(entity.SimulationInput{Context: "x", Subject: entity.SubjectCivil, Level: entity.LevelBasico}),
	})
	assert.ErrorIs(t, err, boom)
}

func TestGenerateChain_TemplateErrorSkipsGateway(t *testing.T) {
	called := false
	gw := &fakeGateway{complete: func(context.Context, []*schema.Message, workflowport.CallOptions, workflowport.AcceptFunc) (*workflowport.Completion, error) {
		called = true
		return &workflowport.Completion{}, nil
	}}

	_, err := NewGenerateChain(gw, nil).Invoke(context.Background(), &GenerateInput{
		PromptID: workflowprompt.PromptStepsV1,
		Vars:     map[string]any{},
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestGenerateChain_Unconfigured(t *testing.T) {
	_, err := NewGenerateChain(nil, nil).Invoke(context.Background(), &GenerateInput{})
	assert.Error(t, err)
}

func TestSimulationVars_NilConstraints(t *testing.T) {
	vars := SimulationVars(entity.SimulationInput{DurationMinutes: 60})
	assert.Equal(t, []string{}, vars["constraints"])
	assert.Equal(t, 60, vars["duration_minutes"])
}
