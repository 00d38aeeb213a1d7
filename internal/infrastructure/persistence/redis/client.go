// Package redis 提供基于 Redis 的共享限流存储
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"lexsim-api/internal/config"
)

var tracer = otel.Tracer("lexsim-api/redis")

// Client 多个 API 实例共享的限流计数存储
type Client struct {
	rdb  *redis.Client
	addr string
}

// NewClient 按配置建立连接，ctx 控制首次 PING 的等待时间
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr(), err)
	}
	return Wrap(rdb), nil
}

// Wrap 包装已建立的 go-redis 客户端（测试中使用）
func Wrap(rdb *redis.Client) *Client {
	return &Client{rdb: rdb, addr: rdb.Options().Addr}
}

// Addr 连接地址
func (c *Client) Addr() string {
	return c.addr
}

// Close 关闭连接池
func (c *Client) Close() error {
	return c.rdb.Close()
}

// HealthCheck 供 /ready 使用
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "redis.HealthCheck")
	defer span.End()
	span.SetAttributes(attribute.String("net.peer.name", c.addr))

	pong, err := c.rdb.Ping(ctx).Result()
	if err == nil && pong != "PONG" {
		err = fmt.Errorf("unexpected ping reply %q", pong)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ping failed")
		return fmt.Errorf("redis %s unhealthy: %w", c.addr, err)
	}
	return nil
}
