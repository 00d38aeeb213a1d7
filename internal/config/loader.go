// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// envConfigDir 指定配置目录的环境变量
const envConfigDir = "LEXSIM_CONFIG_DIR"

// envBindings 显式绑定的环境变量（键名与 AutomaticEnv 推导的名字不同）
var envBindings = map[string][]string{
	"llm.providers.openrouter.api_key":        {"OPENROUTER_API_KEY"},
	"llm.providers.openrouter.base_url":       {"LLM_BASE_URL"},
	"llm.providers.openrouter.model":          {"LLM_MODEL"},
	"llm.providers.openrouter.type":           {"LLM_PROVIDER_TYPE"},
	"llm.fallback_chain":                      {"LLM_FALLBACK_MODELS"},
	"security.cors.allowed_origins":           {"CORS_ALLOWED_ORIGINS"},
	"security.rate_limit.requests_per_minute": {"RATE_LIMIT_PER_MINUTE"},
	"security.rate_limit.backend":             {"RATE_LIMIT_BACKEND"},
	"cache.redis.host":                        {"REDIS_HOST"},
	"observability.logging.level":             {"LOG_LEVEL"},
	"app.env":                                 {"APP_ENV"},
}

var placeholderRe = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load 加载配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func Load() (*Config, error) {
	dir := os.Getenv(envConfigDir)
	if dir == "" {
		dir = "configs"
	}
	return LoadFrom(dir)
}

// LoadFrom 从指定目录加载配置，目录下的文件均可缺省
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 加载默认配置
	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml"), true); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	// 设置默认值 (兜底)
	setDefaults(v)

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// 执行环境变量替换
	expanded := expandEnv(string(content))

	// 加载到 viper
	reader := strings.NewReader(expanded)
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		// 手动标记已加载文件，防止后续 ReadInConfig 报错
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
// 未设置且无默认值的变量替换为空串，避免占位符原样进入配置（例如 API Key）
func expandEnv(s string) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		submatch := placeholderRe.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		return ""
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// normalize 清理逗号分隔环境变量带来的空白项
func (c *Config) normalize() {
	c.LLM.FallbackChain = compact(c.LLM.FallbackChain)
	c.Security.CORS.AllowedOrigins = compact(c.Security.CORS.AllowedOrigins)
	c.Security.RateLimit.Backend = strings.ToLower(strings.TrimSpace(c.Security.RateLimit.Backend))
	for name, p := range c.LLM.Providers {
		p.Type = strings.ToLower(strings.TrimSpace(p.Type))
		if p.Type == "" {
			p.Type = ProviderTypeOpenAI
		}
		c.LLM.Providers[name] = p
	}
}

// Validate 校验配置的基本一致性
func (c *Config) Validate() error {
	rl := c.Security.RateLimit
	switch rl.Backend {
	case RateLimitBackendMemory, RateLimitBackendRedis, RateLimitBackendTokenBucket:
	default:
		return fmt.Errorf("unsupported rate limit backend %q", rl.Backend)
	}
	if rl.Enabled && rl.RequestsPerMinute <= 0 {
		return fmt.Errorf("security.rate_limit.requests_per_minute must be positive, got %d", rl.RequestsPerMinute)
	}
	if rl.Window <= 0 {
		return fmt.Errorf("security.rate_limit.window must be positive")
	}
	if c.LLM.DefaultProvider == "" {
		return fmt.Errorf("llm.default_provider is required")
	}
	if _, ok := c.LLM.Providers[c.LLM.DefaultProvider]; !ok {
		return fmt.Errorf("llm.default_provider %q is not configured", c.LLM.DefaultProvider)
	}
	for name, p := range c.LLM.Providers {
		switch p.Type {
		case ProviderTypeOpenAI, ProviderTypeMock:
		default:
			return fmt.Errorf("llm.providers.%s.type %q is not supported", name, p.Type)
		}
	}
	return nil
}

// compact 去除空白元素并修剪首尾空格
func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "lexsim-api")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8000)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "180s")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.shutdown_timeout", "10s")
	v.SetDefault("server.http.max_body_bytes", 64*1024)

	// Redis 默认值
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 20)
	v.SetDefault("cache.redis.min_idle_conns", 2)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")

	// LLM 默认值
	v.SetDefault("llm.default_provider", "openrouter")
	v.SetDefault("llm.providers.openrouter.type", ProviderTypeOpenAI)
	v.SetDefault("llm.providers.openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.providers.openrouter.model", "openrouter/auto")
	v.SetDefault("llm.providers.openrouter.max_tokens", 4096)
	v.SetDefault("llm.providers.openrouter.temperature", 0.7)
	v.SetDefault("llm.providers.openrouter.title", "LexSim")
	v.SetDefault("llm.fallback_chain", []string{})
	v.SetDefault("llm.attempt_timeout", "60s")

	// 模拟生成默认值
	v.SetDefault("simulation.validation.min_context_chars", 10)
	v.SetDefault("simulation.validation.max_context_lines", 10)
	v.SetDefault("simulation.validation.min_informative_lines", 3)
	v.SetDefault("simulation.validation.min_sentences", 3)
	v.SetDefault("simulation.validation.max_constraints", 10)
	v.SetDefault("simulation.validation.max_constraint_chars", 300)
	v.SetDefault("simulation.validation.max_steps", 20)
	v.SetDefault("simulation.defaults.subject", "penal")
	v.SetDefault("simulation.defaults.level", "intermedio")
	v.SetDefault("simulation.defaults.objective", "practicar objeciones y contrainterrogatorio")
	v.SetDefault("simulation.defaults.duration_minutes", 90)
	v.SetDefault("simulation.defaults.max_steps", 5)

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.backend", RateLimitBackendMemory)
	v.SetDefault("security.rate_limit.requests_per_minute", 30)
	v.SetDefault("security.rate_limit.window", "60s")
	v.SetDefault("security.rate_limit.janitor_interval", "5m")
	v.SetDefault("security.rate_limit.key_prefix", "lexsim:ratelimit:")
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"})

	// 功能开关默认值
	v.SetDefault("features.fallback_content.enabled", false)
	v.SetDefault("features.web_ui.enabled", true)
}
