// Package ratelimit 提供进程内限流器实现
package ratelimit

import (
	"context"
	"sync"
	"time"

	"lexsim-api/internal/domain/service"
)

// MemoryLimiter 进程内滑动窗口限流器：每个 key 保存窗口内的请求时间戳
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string][]time.Time
}

var _ service.RateLimiter = (*MemoryLimiter)(nil)

// MemoryOption MemoryLimiter 的可选配置
type MemoryOption func(*MemoryLimiter)

// WithClock 替换时钟，便于测试
func WithClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) { l.now = now }
}

// NewMemoryLimiter 创建滑动窗口限流器
func NewMemoryLimiter(limit int, window time.Duration, opts ...MemoryOption) *MemoryLimiter {
	if limit <= 0 {
		limit = 1
	}
	l := &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow 在窗口内请求数未达上限时记录本次请求并放行
func (l *MemoryLimiter) Allow(_ context.Context, key string) (service.RateLimitDecision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket := prune(l.buckets[key], now.Add(-l.window))
	if len(bucket) >= l.limit {
		l.buckets[key] = bucket
		retry := bucket[0].Add(l.window).Sub(now)
		if retry < time.Second {
			retry = time.Second
		}
		return service.RateLimitDecision{Allowed: false, Limit: l.limit, RetryAfter: retry}, nil
	}

	bucket = append(bucket, now)
	l.buckets[key] = bucket
	return service.RateLimitDecision{Allowed: true, Limit: l.limit, Remaining: l.limit - len(bucket)}, nil
}

// Sweep 删除窗口内没有请求的 key，返回删除数量
func (l *MemoryLimiter) Sweep() int {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, bucket := range l.buckets {
		bucket = prune(bucket, cutoff)
		if len(bucket) == 0 {
			delete(l.buckets, key)
			removed++
			continue
		}
		l.buckets[key] = bucket
	}
	return removed
}

// Len 当前跟踪的 key 数量
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RunJanitor 周期性执行 Sweep，直到 ctx 结束
func (l *MemoryLimiter) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = l.window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// prune 丢弃早于等于 cutoff 的时间戳；bucket 按时间递增
func prune(bucket []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(bucket) && !bucket[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return bucket
	}
	return append(bucket[:0], bucket[i:]...)
}
