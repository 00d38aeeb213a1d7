package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyWorkflow llmCtxKey = "llm_workflow"
	llmCtxKeyProvider llmCtxKey = "llm_provider"
	llmCtxKeyModel    llmCtxKey = "llm_model"
	llmCtxKeyAttempt  llmCtxKey = "llm_attempt"
)

const unknownLabel = "unknown"

func withString(ctx context.Context, key llmCtxKey, value string) context.Context {
	if ctx == nil {
		return nil
	}
	v := strings.TrimSpace(value)
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func stringFrom(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return unknownLabel
	}
	s, ok := ctx.Value(key).(string)
	if !ok || s == "" {
		return unknownLabel
	}
	return s
}

func WithWorkflow(ctx context.Context, workflow string) context.Context {
	return withString(ctx, llmCtxKeyWorkflow, workflow)
}

func WithProvider(ctx context.Context, provider string) context.Context {
	return withString(ctx, llmCtxKeyProvider, provider)
}

func WithModel(ctx context.Context, model string) context.Context {
	return withString(ctx, llmCtxKeyModel, model)
}

// WithAttempt 记录当前是第几次尝试（从 1 开始）
func WithAttempt(ctx context.Context, attempt int) context.Context {
	if ctx == nil || attempt <= 0 {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyAttempt, attempt)
}

func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	return WithProvider(WithWorkflow(ctx, workflow), provider)
}

func WorkflowFromContext(ctx context.Context) string {
	return stringFrom(ctx, llmCtxKeyWorkflow)
}

func ProviderFromContext(ctx context.Context) string {
	return stringFrom(ctx, llmCtxKeyProvider)
}

func ModelFromContext(ctx context.Context) string {
	return stringFrom(ctx, llmCtxKeyModel)
}

// AttemptFromContext 未设置时返回 0
func AttemptFromContext(ctx context.Context) int {
	if ctx == nil {
		return 0
	}
	n, _ := ctx.Value(llmCtxKeyAttempt).(int)
	return n
}
