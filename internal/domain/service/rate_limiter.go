package service

import (
	"context"
	"time"
)

// RateLimitDecision 一次限流判定的结果
type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter 被拒绝时建议的等待时间
	RetryAfter time.Duration
}

// RateLimiter 按 key（客户端 IP）计数的限流器。
// Allow 每调用一次即计数一次；返回 error 表示后端故障，调用方决定是否放行。
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateLimitDecision, error)
}
