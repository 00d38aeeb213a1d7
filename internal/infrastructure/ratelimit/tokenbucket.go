package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"lexsim-api/internal/domain/service"
)

// TokenBucketLimiter 每个 key 一个令牌桶：容量为 limit，每个窗口补满 limit 个令牌
type TokenBucketLimiter struct {
	limit int
	every rate.Limit
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucketEntry
}

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var _ service.RateLimiter = (*TokenBucketLimiter)(nil)

// NewTokenBucketLimiter 创建令牌桶限流器
func NewTokenBucketLimiter(limit int, window time.Duration) *TokenBucketLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &TokenBucketLimiter{
		limit:   limit,
		every:   rate.Every(window / time.Duration(limit)),
		now:     time.Now,
		buckets: make(map[string]*bucketEntry),
	}
}

// Allow 消耗一个令牌
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (service.RateLimitDecision, error) {
	now := l.now()

	l.mu.Lock()
	e, ok := l.buckets[key]
	if !ok {
		e = &bucketEntry{limiter: rate.NewLimiter(l.every, l.limit)}
		l.buckets[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	r := e.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		if delay < time.Second {
			delay = time.Second
		}
		return service.RateLimitDecision{Allowed: false, Limit: l.limit, RetryAfter: delay}, nil
	}
	remaining := int(e.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return service.RateLimitDecision{Allowed: true, Limit: l.limit, Remaining: remaining}, nil
}

// Sweep 删除超过 idle 未使用的令牌桶
func (l *TokenBucketLimiter) Sweep(idle time.Duration) int {
	cutoff := l.now().Add(-idle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.buckets {
		if e.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// RunJanitor 周期性清理空闲令牌桶，直到 ctx 结束
func (l *TokenBucketLimiter) RunJanitor(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(idle)
		}
	}
}
