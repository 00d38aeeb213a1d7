package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexsim-api/internal/config"
	wfnode "lexsim-api/internal/workflow/node"
	workflowport "lexsim-api/internal/workflow/port"
)

// fakeChatModel 以函数字段模拟 ChatModel，按调用的模型名分派
type fakeChatModel struct {
	mu       sync.Mutex
	calls    []string
	generate func(ctx context.Context, modelName string) (*schema.Message, error)
}

func (f *fakeChatModel) Generate(ctx context.Context, _ []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	o := model.GetCommonOptions(&model.Options{}, opts...)
	name := ""
	if o.Model != nil {
		name = *o.Model
	}
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	return f.generate(ctx, name)
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

type fakeFactory struct {
	models map[string]model.BaseChatModel
}

func (f *fakeFactory) Get(_ context.Context, name string) (model.BaseChatModel, error) {
	m, ok := f.models[name]
	if !ok {
		return nil, errors.New("unknown provider " + name)
	}
	return m, nil
}

func testLLMConfig(fallback ...string) *config.Config {
	return &config.Config{LLM: config.LLMConfig{
		DefaultProvider: "openrouter",
		Providers: map[string]config.ProviderConfig{
			"openrouter": {Type: config.ProviderTypeOpenAI, Model: "primary/model"},
			"local":      {Type: config.ProviderTypeMock, Model: "local-default", Timeout: 5 * time.Second},
		},
		FallbackChain:  fallback,
		AttemptTimeout: time.Second,
	}}
}

func TestBuildTargets(t *testing.T) {
	cfg := testLLMConfig("fallback/a", "vendor/model:free", "local:tiny", "local:", "fallback/a", "primary/model")

	targets := BuildTargets(&cfg.LLM)

	got := make([]string, 0, len(targets))
	for _, tg := range targets {
		got = append(got, tg.String())
	}
	assert.Equal(t, []string{
		"openrouter/primary/model",
		"openrouter/fallback/a",
		"openrouter/vendor/model:free",
		"local/tiny",
		"local/local-default",
	}, got)
	assert.Equal(t, time.Second, targets[0].Timeout)
	assert.Equal(t, 5*time.Second, targets[3].Timeout)
}

func TestBuildTargets_DefaultTimeout(t *testing.T) {
	cfg := testLLMConfig()
	cfg.LLM.AttemptTimeout = 0

	targets := BuildTargets(&cfg.LLM)
	require.Len(t, targets, 1)
	assert.Equal(t, defaultAttemptTimeout, targets[0].Timeout)
}

func TestGateway_FallsBackAfterPrimaryFailure(t *testing.T) {
	fake := &fakeChatModel{generate: func(_ context.Context, name string) (*schema.Message, error) {
		if name == "primary/model" {
			return nil, errors.New("status 503")
		}
		return schema.AssistantMessage("respuesta de "+name, nil), nil
	}}
	gw := NewGateway(testLLMConfig("fallback/a"), &fakeFactory{models: map[string]model.BaseChatModel{"openrouter": fake}})

	out, err := gw.Complete(context.Background(), nil, workflowport.CallOptions{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "respuesta de fallback/a", out.Content)
	assert.Equal(t, "fallback/a", out.Model)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, []string{"primary/model", "fallback/a"}, fake.calls)
}

func TestGateway_AcceptRejectionAdvances(t *testing.T) {
	fake := &fakeChatModel{generate: func(_ context.Context, name string) (*schema.Message, error) {
		return schema.AssistantMessage(name, nil), nil
	}}
	gw := NewGateway(testLLMConfig("fallback/a"), &fakeFactory{models: map[string]model.BaseChatModel{"openrouter": fake}})

	out, err := gw.Complete(context.Background(), nil, workflowport.CallOptions{}, func(content string) error {
		if content == "primary/model" {
			return errors.New("sin markdown")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback/a", out.Model)
}

func TestGateway_EmptyContentIsFailure(t *testing.T) {
	fake := &fakeChatModel{generate: func(context.Context, string) (*schema.Message, error) {
		return schema.AssistantMessage("   ", nil), nil
	}}
	gw := NewGateway(testLLMConfig(), &fakeFactory{models: map[string]model.BaseChatModel{"openrouter": fake}})

	_, err := gw.Complete(context.Background(), nil, workflowport.CallOptions{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllAttemptsFailed)
	assert.ErrorIs(t, err, wfnode.ErrOutputRejected)
}

func TestGateway_AllFail(t *testing.T) {
	fake := &fakeChatModel{generate: func(context.Context, string) (*schema.Message, error) {
		return nil, errors.New("boom")
	}}
	gw := NewGateway(testLLMConfig("fallback/a", "fallback/b"), &fakeFactory{models: map[string]model.BaseChatModel{"openrouter": fake}})

	_, err := gw.Complete(context.Background(), nil, workflowport.CallOptions{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllAttemptsFailed)
	assert.Len(t, fake.calls, 3)
}

func TestGateway_AttemptTimeout(t *testing.T) {
	cfg := testLLMConfig("fallback/a")
	cfg.LLM.AttemptTimeout = 20 * time.Millisecond

	fake := &fakeChatModel{generate: func(ctx context.Context, name string) (*schema.Message, error) {
		if name == "primary/model" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return schema.AssistantMessage("ok", nil), nil
	}}
	gw := NewGateway(cfg, &fakeFactory{models: map[string]model.BaseChatModel{"openrouter": fake}})

	out, err := gw.Complete(context.Background(), nil, workflowport.CallOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Content)
	assert.Equal(t, 2, out.Attempts)
}

func TestGateway_StopsWhenParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &fakeChatModel{generate: func(context.Context, string) (*schema.Message, error) {
		cancel()
		return nil, errors.New("boom")
	}}
	gw := NewGateway(testLLMConfig("fallback/a", "fallback/b"), &fakeFactory{models: map[string]model.BaseChatModel{"openrouter": fake}})

	_, err := gw.Complete(ctx, nil, workflowport.CallOptions{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, fake.calls, 1)
}

func TestGateway_JSONModeRetriesWithoutResponseFormat(t *testing.T) {
	var withFormat, withoutFormat int
	fake := &fakeChatModel{}
	fake.generate = func(context.Context, string) (*schema.Message, error) {
		if len(fake.calls)%2 == 1 {
			withFormat++
			return nil, errors.New("unknown parameter: response_format")
		}
		withoutFormat++
		return schema.AssistantMessage(`{"steps":["a"]}`, nil), nil
	}
	gw := NewGateway(testLLMConfig(), &fakeFactory{models: map[string]model.BaseChatModel{"openrouter": fake}})

	out, err := gw.Complete(context.Background(), nil, workflowport.CallOptions{JSONMode: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 1, withFormat)
	assert.Equal(t, 1, withoutFormat)
}

func TestFirstSuccess_NoTargets(t *testing.T) {
	_, n, err := firstSuccess(context.Background(), 0,
		func(int) time.Duration { return time.Second },
		func(context.Context, int) (int, error) { return 1, nil },
	)
	assert.Error(t, err)
	assert.Equal(t, 0, n)
}
