package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lexsim-api/internal/config"
	"lexsim-api/internal/infrastructure/persistence/redis"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	cfg *config.Config
	// redis 仅在限流后端为 redis 时注入
	redis *redis.Client
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(cfg *config.Config, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		cfg:   cfg,
		redis: redisClient,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Description 进程存活即返回 ok
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}

// Ready 就绪检查接口
// @Summary 就绪检查
// @Description 检查模型提供商配置，以及 redis 限流后端的连通性
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{
		"llm":   h.checkProvider(),
		"redis": h.checkRedis(ctx),
	}

	ready := true
	for _, chk := range checks {
		if chk.Status != "ok" && chk.Status != "disabled" {
			ready = false
		}
	}

	resp := readinessResponse{
		Status: "ok",
		Checks: checks,
	}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// checkProvider 默认提供商必须存在；openai 类型还需要 API Key
func (h *HealthHandler) checkProvider() *readinessCheck {
	if h == nil || h.cfg == nil {
		return &readinessCheck{Status: "missing", Error: "config not loaded"}
	}
	p, ok := h.cfg.LLM.Providers[h.cfg.LLM.DefaultProvider]
	if !ok {
		return &readinessCheck{Status: "missing", Error: "default provider not configured"}
	}
	if p.Type == config.ProviderTypeMock {
		return &readinessCheck{Status: "ok"}
	}
	if p.APIKey == "" {
		return &readinessCheck{Status: "missing", Error: "api key not configured"}
	}
	return &readinessCheck{Status: "ok"}
}

func (h *HealthHandler) checkRedis(ctx context.Context) *readinessCheck {
	if h == nil || h.cfg == nil || !h.cfg.Security.RateLimit.Enabled ||
		h.cfg.Security.RateLimit.Backend != config.RateLimitBackendRedis {
		return &readinessCheck{Status: "disabled"}
	}
	if h.redis == nil {
		return &readinessCheck{Status: "missing", Error: "redis client not configured"}
	}

	start := time.Now()
	err := h.redis.HealthCheck(ctx)
	chk := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		chk.Status = "error"
		chk.Error = err.Error()
	}
	return chk
}

// Live 存活检查接口
// @Summary 存活检查
// @Description 检查服务是否存活
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}
