package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"lexsim-api/internal/domain/service"
)

// allowScript 在一次 EVALSHA 中完成清理过期成员、计数、按需写入与过期时间设置，
// 并发请求不会同时看到未满的计数。
// KEYS[1] 集合 key；ARGV: now(ms) window(ms) limit member
// 返回 {allowed, count, retry_ms}
var allowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
if count < limit then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window * 2)
	return {1, count + 1, 0}
end

local retry = 0
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if #oldest == 2 then
	retry = tonumber(oldest[2]) + window - now
end
return {0, count, retry}
`)

// RateLimiter 基于有序集合的滑动窗口限流器，适合多实例共享配额
type RateLimiter struct {
	client *Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

var _ service.RateLimiter = (*RateLimiter)(nil)

// NewRateLimiter 创建限流器
func NewRateLimiter(client *Client, limit int, window time.Duration, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: prefix,
		now:    time.Now,
	}
}

// Allow 检查是否允许请求（滑动窗口算法）；达到上限的请求不计入窗口
func (l *RateLimiter) Allow(ctx context.Context, key string) (service.RateLimitDecision, error) {
	key = l.prefix + key
	ctx, span := tracer.Start(ctx, "ratelimit.Allow")
	span.SetAttributes(
		attribute.String("ratelimit.key", key),
		attribute.Int("ratelimit.limit", l.limit),
		attribute.Int64("ratelimit.window_ms", l.window.Milliseconds()),
	)
	defer span.End()

	now := l.now().UnixMilli()
	// member 加随机后缀避免同一毫秒内的请求互相覆盖
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()

	res, err := allowScript.Run(ctx, l.client.rdb, []string{key},
		now, l.window.Milliseconds(), l.limit, member).Int64Slice()
	if err != nil {
		span.RecordError(err)
		return service.RateLimitDecision{}, err
	}
	if len(res) != 3 {
		err := fmt.Errorf("ratelimit script: unexpected reply %v", res)
		span.RecordError(err)
		return service.RateLimitDecision{}, err
	}

	allowed, count := res[0] == 1, res[1]
	span.SetAttributes(
		attribute.Int64("ratelimit.current_count", count),
		attribute.Bool("ratelimit.allowed", allowed),
	)

	if !allowed {
		retry := time.Duration(res[2]) * time.Millisecond
		if retry < time.Second {
			retry = time.Second
		}
		return service.RateLimitDecision{Allowed: false, Limit: l.limit, RetryAfter: retry}, nil
	}
	return service.RateLimitDecision{Allowed: true, Limit: l.limit, Remaining: l.limit - int(count)}, nil
}

// Reset 重置限流计数
func (l *RateLimiter) Reset(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "ratelimit.Reset")
	span.SetAttributes(attribute.String("ratelimit.key", l.prefix+key))
	defer span.End()

	return l.client.rdb.Del(ctx, l.prefix+key).Err()
}
