package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLLMContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", WorkflowFromContext(ctx))
	assert.Equal(t, "unknown", ProviderFromContext(ctx))
	assert.Equal(t, 0, AttemptFromContext(ctx))

	ctx = WithWorkflowProvider(ctx, " simulation ", "openrouter")
	ctx = WithModel(ctx, "openrouter/auto")
	ctx = WithAttempt(ctx, 2)

	assert.Equal(t, "simulation", WorkflowFromContext(ctx))
	assert.Equal(t, "openrouter", ProviderFromContext(ctx))
	assert.Equal(t, "openrouter/auto", ModelFromContext(ctx))
	assert.Equal(t, 2, AttemptFromContext(ctx))

	// 空值不覆盖已有值
	assert.Equal(t, "openrouter", ProviderFromContext(WithProvider(ctx, "  ")))
}
