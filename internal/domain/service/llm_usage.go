package service

import "context"

// LLMUsageInput 一次 LLM 调用的可观测数据，由 eino 回调在模型调用结束时产生。
type LLMUsageInput struct {
	Workflow string
	Provider string
	Model    string
	Attempt  int

	PromptTokens     int
	CompletionTokens int
	DurationMs       int
	Err              error
}

// LLMUsageRecorder 记录 LLM 使用量。实现应为 best-effort，不阻塞主流程。
type LLMUsageRecorder interface {
	Record(ctx context.Context, in LLMUsageInput)
}
