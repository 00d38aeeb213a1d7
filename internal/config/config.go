// Package config 提供配置加载和管理功能
package config

import (
	"log/slog"
	"net"
	"strconv"
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Simulation    SimulationConfig    `yaml:"simulation" mapstructure:"simulation"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
	Features      FeaturesConfig      `yaml:"features" mapstructure:"features"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	// MaxBodyBytes 请求体大小上限
	MaxBodyBytes int64 `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	// TrustedProxies 为空时不信任任何代理头，ClientIP 取 RemoteAddr
	TrustedProxies []string `yaml:"trusted_proxies" mapstructure:"trusted_proxies"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// Addr host:port 形式的连接地址
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	// FallbackChain 回退模型列表，元素为 "model" 或 "provider:model"
	FallbackChain []string `yaml:"fallback_chain" mapstructure:"fallback_chain"`
	// AttemptTimeout 单次尝试超时，provider 未配置 timeout 时生效
	AttemptTimeout time.Duration `yaml:"attempt_timeout" mapstructure:"attempt_timeout"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	// Type 客户端实现：openai（兼容 OpenAI 协议，默认）或 mock（离线确定性输出）
	Type        string        `yaml:"type" mapstructure:"type"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Referer/Title 为 OpenRouter 推荐的来源标识头
	Referer string `yaml:"referer" mapstructure:"referer"`
	Title   string `yaml:"title" mapstructure:"title"`
}

// LogValue 实现 slog.LogValuer，日志中不输出 API Key
func (p ProviderConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", p.Type),
		slog.String("base_url", p.BaseURL),
		slog.String("model", p.Model),
		slog.Bool("api_key_set", p.APIKey != ""),
		slog.Duration("timeout", p.Timeout),
	)
}

// SimulationConfig 模拟生成配置
type SimulationConfig struct {
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Defaults   DefaultsConfig   `yaml:"defaults" mapstructure:"defaults"`
}

// ValidationConfig 输入校验阈值
type ValidationConfig struct {
	MinContextChars    int `yaml:"min_context_chars" mapstructure:"min_context_chars"`
	MaxContextLines    int `yaml:"max_context_lines" mapstructure:"max_context_lines"`
	MinInformativeRows int `yaml:"min_informative_lines" mapstructure:"min_informative_lines"`
	MinSentences       int `yaml:"min_sentences" mapstructure:"min_sentences"`
	MaxConstraints     int `yaml:"max_constraints" mapstructure:"max_constraints"`
	MaxConstraintChars int `yaml:"max_constraint_chars" mapstructure:"max_constraint_chars"`
	MaxSteps           int `yaml:"max_steps" mapstructure:"max_steps"`
}

// DefaultsConfig 可选字段默认值
type DefaultsConfig struct {
	Subject         string `yaml:"subject" mapstructure:"subject"`
	Level           string `yaml:"level" mapstructure:"level"`
	Objective       string `yaml:"objective" mapstructure:"objective"`
	DurationMinutes int    `yaml:"duration_minutes" mapstructure:"duration_minutes"`
	MaxSteps        int    `yaml:"max_steps" mapstructure:"max_steps"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// 提供商类型
const (
	ProviderTypeOpenAI = "openai"
	ProviderTypeMock   = "mock"
)

// 限流后端
const (
	RateLimitBackendMemory      = "memory"
	RateLimitBackendRedis       = "redis"
	RateLimitBackendTokenBucket = "token_bucket"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend           string        `yaml:"backend" mapstructure:"backend"`
	RequestsPerMinute int           `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Window            time.Duration `yaml:"window" mapstructure:"window"`
	// JanitorInterval 内存后端清理空闲 key 的周期
	JanitorInterval time.Duration `yaml:"janitor_interval" mapstructure:"janitor_interval"`
	KeyPrefix       string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// FeaturesConfig 功能开关配置
type FeaturesConfig struct {
	FallbackContent FallbackContentFeature `yaml:"fallback_content" mapstructure:"fallback_content"`
	WebUI           WebUIFeature           `yaml:"web_ui" mapstructure:"web_ui"`
}

// FallbackContentFeature 模型输出不完整时使用确定性的兜底内容
type FallbackContentFeature struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// WebUIFeature 内嵌网页开关
type WebUIFeature struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}
