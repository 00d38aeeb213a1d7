package simulation

import (
	"context"
	"errors"
	"math"
	"time"

	"lexsim-api/internal/config"
	"lexsim-api/internal/domain/entity"
	"lexsim-api/internal/domain/service"
	"lexsim-api/internal/workflow/chain"
	workflowport "lexsim-api/internal/workflow/port"
	workflowprompt "lexsim-api/internal/workflow/prompt"
	apperrors "lexsim-api/pkg/errors"
	"lexsim-api/pkg/logger"
	"lexsim-api/pkg/metrics"
	"lexsim-api/pkg/tracer"
)

// 返回给用户的错误文本
const (
	msgRateLimited   = "Límite de peticiones excedido. Intente nuevamente más tarde."
	msgProviderError = "Error al generar la simulación. Intente nuevamente más tarde."
)

// 指标中的结果标签
const (
	statusSuccess       = "success"
	statusInvalid       = "invalid"
	statusRateLimited   = "rate_limited"
	statusProviderError = "provider_error"
)

// Generator 渲染模板并调用模型；由 chain.GenerateChain 实现
type Generator interface {
	Invoke(ctx context.Context, in *chain.GenerateInput) (*workflowport.Completion, error)
}

// Service 模拟请求的完整流程：校验 -> 限流 -> 生成 -> 解析
type Service struct {
	validator *Validator
	parser    *Parser
	generator Generator
	// limiter 为 nil 表示关闭限流
	limiter         service.RateLimiter
	limiterBackend  string
	fallbackEnabled bool
}

// NewService 创建模拟服务
func NewService(cfg *config.Config, generator Generator, limiter service.RateLimiter) *Service {
	return &Service{
		validator:       NewValidator(cfg.Simulation),
		parser:          NewParser(),
		generator:       generator,
		limiter:         limiter,
		limiterBackend:  cfg.Security.RateLimit.Backend,
		fallbackEnabled: cfg.Features.FallbackContent.Enabled,
	}
}

// Validator 返回服务使用的校验器
func (s *Service) Validator() *Validator {
	return s.validator
}

// Simulate 处理规范形态请求；JSON 缺失或无效只产生警告，模型全部失败时返回 502 错误
func (s *Service) Simulate(ctx context.Context, clientKey string, d SimulationDraft) (res *entity.SimulationResult, err error) {
	ctx, span := tracer.Start(ctx, "simulation.Simulate")
	defer span.End()
	defer s.observe(ctx, entity.ModeSimulation, time.Now(), &err)

	in, err := s.validator.ValidateSimulation(d)
	if err != nil {
		return nil, err
	}
	if err = s.checkRate(ctx, clientKey); err != nil {
		return nil, err
	}

	var parsed ParsedSimulation
	_, err = s.generator.Invoke(ctx, &chain.GenerateInput{
		Workflow: string(entity.ModeSimulation),
		PromptID: workflowprompt.PromptSimulationV1,
		Vars:     chain.SimulationVars(in),
		Accept: func(content string) error {
			parsed = s.parser.ParseSimulation(content)
			if parsed.Markdown == "" && !s.fallbackEnabled {
				return errEmptyMarkdown
			}
			return nil
		},
	})
	if err != nil {
		logger.Error(ctx, "simulation generation failed", err)
		return nil, apperrors.Provider(err, msgProviderError)
	}

	if parsed.DecodeErr != nil {
		logger.Warn(ctx, "model returned invalid json block", "error", parsed.DecodeErr.Error())
	}
	if s.fallbackEnabled {
		parsed = applyFallback(parsed, in)
		if hasWarning(parsed.Warnings, WarningFallbackJSON, WarningFallbackMarkdown) {
			logger.Warn(ctx, "incomplete model output, fallback content applied")
		}
	}
	countWarnings(parsed.Warnings)

	return &entity.SimulationResult{
		Markdown: parsed.Markdown,
		JSON:     parsed.JSON,
		Warnings: parsed.Warnings,
	}, nil
}

// Steps 处理兼容形态请求；不使用兜底内容
func (s *Service) Steps(ctx context.Context, clientKey string, d StepsDraft) (res *entity.StepsResult, err error) {
	ctx, span := tracer.Start(ctx, "simulation.Steps")
	defer span.End()
	defer s.observe(ctx, entity.ModeSteps, time.Now(), &err)

	in, err := s.validator.ValidateSteps(d)
	if err != nil {
		return nil, err
	}
	if err = s.checkRate(ctx, clientKey); err != nil {
		return nil, err
	}

	opts := workflowport.CallOptions{JSONMode: true}
	if in.Temperature != nil {
		t := float32(*in.Temperature)
		opts.Temperature = &t
	}

	var result entity.StepsResult
	_, err = s.generator.Invoke(ctx, &chain.GenerateInput{
		Workflow: string(entity.ModeSteps),
		PromptID: workflowprompt.PromptStepsV1,
		Vars:     chain.StepsVars(in),
		Options:  opts,
		Accept: func(content string) error {
			r, perr := s.parser.ParseSteps(content, in.MaxSteps)
			if perr != nil {
				return perr
			}
			result = r
			return nil
		},
	})
	if err != nil {
		logger.Error(ctx, "steps generation failed", err)
		return nil, apperrors.Provider(err, msgProviderError)
	}
	return &result, nil
}

// checkRate 每个通过校验的请求计数一次；限流器自身出错时放行
func (s *Service) checkRate(ctx context.Context, clientKey string) error {
	if s.limiter == nil {
		return nil
	}
	decision, err := s.limiter.Allow(ctx, clientKey)
	if err != nil {
		metrics.RateLimitDecisions.WithLabelValues(s.limiterBackend, "error").Inc()
		logger.Warn(ctx, "rate limiter unavailable, allowing request", "error", err.Error())
		return nil
	}
	if decision.Allowed {
		metrics.RateLimitDecisions.WithLabelValues(s.limiterBackend, "allowed").Inc()
		return nil
	}

	metrics.RateLimitDecisions.WithLabelValues(s.limiterBackend, "rejected").Inc()
	logger.Warn(ctx, "rate limit exceeded", "client", clientKey, "retry_after", decision.RetryAfter.String())
	return apperrors.RateLimited(msgRateLimited, retryAfterSeconds(decision.RetryAfter))
}

func (s *Service) observe(ctx context.Context, mode entity.Mode, start time.Time, errp *error) {
	elapsed := time.Since(start)
	status := statusOf(*errp)
	metrics.SimulationTotal.WithLabelValues(string(mode), status).Inc()
	metrics.SimulationDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	logger.Info(ctx, "simulation processed",
		"mode", string(mode),
		"status", status,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

func statusOf(err error) string {
	if err == nil {
		return statusSuccess
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.CodeInvalidParam:
			return statusInvalid
		case apperrors.CodeTooManyRequests:
			return statusRateLimited
		}
	}
	return statusProviderError
}

func countWarnings(warnings []string) {
	for _, w := range warnings {
		switch w {
		case WarningJSONMissing:
			metrics.ParseWarningsTotal.WithLabelValues("json_missing").Inc()
		case WarningJSONInvalid:
			metrics.ParseWarningsTotal.WithLabelValues("json_invalid").Inc()
		case WarningFallbackJSON, WarningFallbackMarkdown:
			metrics.ParseWarningsTotal.WithLabelValues("fallback").Inc()
		}
	}
}

func hasWarning(warnings []string, targets ...string) bool {
	for _, w := range warnings {
		for _, t := range targets {
			if w == t {
				return true
			}
		}
	}
	return false
}

// retryAfterSeconds 向上取整，至少 1 秒
func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
