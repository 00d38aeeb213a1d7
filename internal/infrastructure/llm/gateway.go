package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"lexsim-api/internal/config"
	llmctx "lexsim-api/internal/domain/service"
	wfnode "lexsim-api/internal/workflow/node"
	workflowport "lexsim-api/internal/workflow/port"
	"lexsim-api/pkg/logger"
	"lexsim-api/pkg/metrics"
	"lexsim-api/pkg/tracer"
)

const defaultAttemptTimeout = 60 * time.Second

// ErrAllAttemptsFailed 主模型与全部回退模型均未给出可用输出
var ErrAllAttemptsFailed = errors.New("all llm attempts failed")

// Target 一次尝试使用的提供商与模型
type Target struct {
	Provider string
	Model    string
	Type     string
	Timeout  time.Duration
}

func (t Target) String() string {
	return t.Provider + "/" + t.Model
}

// Gateway 按顺序尝试主模型与回退模型，实现 workflowport.CompletionGateway
type Gateway struct {
	factory workflowport.ChatModelFactory
	targets []Target
}

var _ workflowport.CompletionGateway = (*Gateway)(nil)

// NewGateway 根据 LLM 配置构建尝试列表
func NewGateway(cfg *config.Config, factory workflowport.ChatModelFactory) *Gateway {
	return &Gateway{
		factory: factory,
		targets: BuildTargets(&cfg.LLM),
	}
}

// Targets 返回尝试顺序的副本
func (g *Gateway) Targets() []Target {
	return append([]Target(nil), g.targets...)
}

// BuildTargets 生成尝试列表：默认提供商的主模型在前，随后是 fallback_chain。
// 元素形如 "provider:model" 且 provider 已配置时指向该提供商，否则视为默认提供商的模型名
// （OpenRouter 的模型 ID 本身可能带冒号，例如 "vendor/model:free"）。重复项只保留第一次出现。
func BuildTargets(cfg *config.LLMConfig) []Target {
	newTarget := func(provider, modelName string) Target {
		p := cfg.Providers[provider]
		if modelName == "" {
			modelName = p.Model
		}
		timeout := p.Timeout
		if timeout <= 0 {
			timeout = cfg.AttemptTimeout
		}
		if timeout <= 0 {
			timeout = defaultAttemptTimeout
		}
		return Target{Provider: provider, Model: modelName, Type: p.Type, Timeout: timeout}
	}

	primary := cfg.DefaultProvider
	targets := []Target{newTarget(primary, "")}
	seen := map[string]bool{targets[0].String(): true}

	for _, entry := range cfg.FallbackChain {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		provider, modelName := primary, entry
		if i := strings.Index(entry, ":"); i > 0 {
			if _, ok := cfg.Providers[entry[:i]]; ok {
				provider, modelName = entry[:i], strings.TrimSpace(entry[i+1:])
			}
		}
		t := newTarget(provider, modelName)
		if seen[t.String()] {
			continue
		}
		seen[t.String()] = true
		targets = append(targets, t)
	}
	return targets
}

// Complete 逐个尝试直到某个模型的输出被 accept 接受
func (g *Gateway) Complete(ctx context.Context, msgs []*schema.Message, opts workflowport.CallOptions, accept workflowport.AcceptFunc) (*workflowport.Completion, error) {
	if g == nil || g.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}

	ctx, span := tracer.Start(ctx, "llm.gateway.complete")
	defer span.End()

	result, attempts, err := firstSuccess(ctx, len(g.targets),
		func(i int) time.Duration { return g.targets[i].Timeout },
		func(actx context.Context, i int) (*workflowport.Completion, error) {
			return g.attempt(actx, i, msgs, opts, accept)
		},
	)
	span.SetAttributes(attribute.Int("llm.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "all attempts failed")
		return nil, fmt.Errorf("%w after %d attempt(s): %w", ErrAllAttemptsFailed, attempts, err)
	}
	result.Attempts = attempts
	return result, nil
}

func (g *Gateway) attempt(ctx context.Context, i int, msgs []*schema.Message, opts workflowport.CallOptions, accept workflowport.AcceptFunc) (*workflowport.Completion, error) {
	t := g.targets[i]
	ctx = llmctx.WithProvider(ctx, t.Provider)
	ctx = llmctx.WithModel(ctx, t.Model)
	ctx = llmctx.WithAttempt(ctx, i+1)

	out, err := g.generate(ctx, t, msgs, opts)
	if err == nil {
		err = checkOutput(out, accept)
	}

	outcome := wfnode.AttemptOutcome(err)
	metrics.LLMAttemptTotal.WithLabelValues(t.Provider, t.Model, outcome).Inc()
	if err != nil {
		logger.Warn(ctx, "llm attempt failed",
			"provider", t.Provider,
			"model", t.Model,
			"attempt", i+1,
			"outcome", outcome,
			"error", err.Error(),
		)
		return nil, fmt.Errorf("%s: %w", t, err)
	}

	c := &workflowport.Completion{
		Content:  out.Content,
		Provider: t.Provider,
		Model:    t.Model,
	}
	if out.ResponseMeta != nil {
		c.Usage = out.ResponseMeta.Usage
	}
	return c, nil
}

func (g *Gateway) generate(ctx context.Context, t Target, msgs []*schema.Message, opts workflowport.CallOptions) (*schema.Message, error) {
	chatModel, err := g.factory.Get(ctx, t.Provider)
	if err != nil {
		return nil, err
	}

	jsonMode := opts.JSONMode && t.Type != config.ProviderTypeMock
	out, err := chatModel.Generate(ctx, msgs, buildModelOptions(t, opts, jsonMode)...)
	if err != nil && jsonMode && wfnode.IsResponseFormatUnsupportedError(err) {
		logger.Warn(ctx, "llm response_format not supported, fallback to prompt-only",
			"provider", t.Provider,
			"model", t.Model,
			"error", err.Error(),
		)
		out, err = chatModel.Generate(ctx, msgs, buildModelOptions(t, opts, false)...)
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%w: empty llm response", wfnode.ErrOutputRejected)
	}
	return out, nil
}

func checkOutput(out *schema.Message, accept workflowport.AcceptFunc) error {
	if strings.TrimSpace(out.Content) == "" {
		return fmt.Errorf("%w: empty content", wfnode.ErrOutputRejected)
	}
	if accept == nil {
		return nil
	}
	if err := accept(out.Content); err != nil {
		return fmt.Errorf("%w: %w", wfnode.ErrOutputRejected, err)
	}
	return nil
}

func buildModelOptions(t Target, opts workflowport.CallOptions, jsonMode bool) []model.Option {
	out := make([]model.Option, 0, 4)
	if t.Model != "" {
		out = append(out, model.WithModel(t.Model))
	}
	if opts.Temperature != nil {
		out = append(out, model.WithTemperature(*opts.Temperature))
	}
	if opts.MaxTokens != nil {
		out = append(out, model.WithMaxTokens(*opts.MaxTokens))
	}
	if jsonMode {
		out = append(out, openai.WithExtraFields(map[string]any{
			"response_format": map[string]any{"type": "json_object"},
		}))
	}
	return out
}

// firstSuccess 依次执行 n 次尝试，每次使用独立的超时；返回第一个成功结果与已用尝试次数。
// 父 context 结束后不再发起新的尝试。
func firstSuccess[T any](ctx context.Context, n int, timeoutOf func(i int) time.Duration, attempt func(ctx context.Context, i int) (T, error)) (T, int, error) {
	var zero T
	var errs []error
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			return zero, i, errors.Join(errs...)
		}
		actx, cancel := context.WithTimeout(ctx, timeoutOf(i))
		v, err := attempt(actx, i)
		cancel()
		if err == nil {
			return v, i + 1, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no llm targets configured"))
	}
	return zero, n, errors.Join(errs...)
}
