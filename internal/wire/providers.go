// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"

	"github.com/google/wire"

	"lexsim-api/internal/application/simulation"
	"lexsim-api/internal/config"
	"lexsim-api/internal/domain/service"
	"lexsim-api/internal/infrastructure/llm"
	"lexsim-api/internal/infrastructure/persistence/redis"
	"lexsim-api/internal/infrastructure/ratelimit"
	"lexsim-api/internal/interfaces/http/handler"
	"lexsim-api/internal/interfaces/http/router"
	"lexsim-api/internal/workflow/chain"
	workflowport "lexsim-api/internal/workflow/port"
	workflowprompt "lexsim-api/internal/workflow/prompt"
	"lexsim-api/pkg/logger"
)

// App 进程内的全部长生命周期组件
type App struct {
	Router       *router.Router
	RateLimiting *RateLimiting
}

// RateLimiting 限流器及其后台清理任务
type RateLimiting struct {
	// Limiter 为 nil 表示关闭限流
	Limiter service.RateLimiter
	// Janitor 为 nil 表示后端无需清理（redis 依赖 key 过期）
	Janitor func(ctx context.Context)
}

// Run 阻塞运行清理任务，直到 ctx 结束
func (r *RateLimiting) Run(ctx context.Context) {
	if r == nil || r.Janitor == nil {
		return
	}
	r.Janitor(ctx)
}

// LLMSet 模型调用链路提供者集合
var LLMSet = wire.NewSet(
	llm.NewEinoFactory,
	wire.Bind(new(workflowport.ChatModelFactory), new(*llm.EinoFactory)),
	llm.NewGateway,
	wire.Bind(new(workflowport.CompletionGateway), new(*llm.Gateway)),
	workflowprompt.NewRegistry,
	chain.NewGenerateChain,
	wire.Bind(new(simulation.Generator), new(*chain.GenerateChain)),
)

// RateLimitSet 限流提供者集合
var RateLimitSet = wire.NewSet(
	ProvideRedisClientOptional,
	ProvideRateLimiting,
	ProvideRateLimiter,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	simulation.NewService,
	wire.Bind(new(handler.SimulationService), new(*simulation.Service)),
	handler.NewSimulateHandler,
	handler.NewHealthHandler,
	handler.NewUsageHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// ProvideRedisClientOptional 仅在 redis 限流后端启用时建立连接
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	rl := cfg.Security.RateLimit
	if !rl.Enabled || rl.Backend != config.RateLimitBackendRedis {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(ctx, &cfg.Cache.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis for rate limiting: %w", err)
	}
	logger.Info(ctx, "redis connected", "addr", client.Addr())
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRateLimiting 按配置的后端构造限流器
func ProvideRateLimiting(cfg *config.Config, redisClient *redis.Client) (*RateLimiting, error) {
	rl := cfg.Security.RateLimit
	if !rl.Enabled {
		return &RateLimiting{}, nil
	}

	switch rl.Backend {
	case config.RateLimitBackendMemory:
		l := ratelimit.NewMemoryLimiter(rl.RequestsPerMinute, rl.Window)
		return &RateLimiting{
			Limiter: l,
			Janitor: func(ctx context.Context) { l.RunJanitor(ctx, rl.JanitorInterval) },
		}, nil
	case config.RateLimitBackendTokenBucket:
		l := ratelimit.NewTokenBucketLimiter(rl.RequestsPerMinute, rl.Window)
		return &RateLimiting{
			Limiter: l,
			Janitor: func(ctx context.Context) { l.RunJanitor(ctx, rl.JanitorInterval, rl.Window) },
		}, nil
	case config.RateLimitBackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis rate limit backend requires a redis client")
		}
		return &RateLimiting{
			Limiter: redis.NewRateLimiter(redisClient, rl.RequestsPerMinute, rl.Window, rl.KeyPrefix),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend %q", rl.Backend)
	}
}

// ProvideRateLimiter 取出限流器；关闭限流时返回 nil 接口
func ProvideRateLimiter(rl *RateLimiting) service.RateLimiter {
	if rl == nil || rl.Limiter == nil {
		return nil
	}
	return rl.Limiter
}
