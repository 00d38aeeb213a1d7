package llm

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"lexsim-api/internal/config"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// EinoFactory 管理多个 Eino ChatModel 客户端实例
type EinoFactory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定名称的 ChatModel，如果未指定则返回默认客户端
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = f.config.DefaultProvider
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}

	chatModel, err := newChatModel(ctx, providerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	f.models[name] = chatModel
	return chatModel, nil
}

func newChatModel(ctx context.Context, p config.ProviderConfig) (model.BaseChatModel, error) {
	switch p.Type {
	case config.ProviderTypeMock:
		return NewMockChatModel(p.Model), nil
	case config.ProviderTypeOpenAI, "":
	default:
		return nil, fmt.Errorf("unsupported provider type %q", p.Type)
	}
	if p.APIKey == "" {
		return nil, fmt.Errorf("api key is not configured")
	}

	cfg := &openai.ChatModelConfig{
		APIKey:      p.APIKey,
		BaseURL:     p.BaseURL,
		Model:       p.Model,
		Temperature: ptrFloat32(float32(p.Temperature)),
		HTTPClient: &http.Client{
			Timeout:   p.Timeout,
			Transport: newHeaderTransport(http.DefaultTransport, p),
		},
	}
	if p.MaxTokens > 0 {
		cfg.MaxTokens = &p.MaxTokens
	}
	return openai.NewChatModel(ctx, cfg)
}

// headerTransport 为每个请求附加提供商要求的来源标识头
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func newHeaderTransport(base http.RoundTripper, p config.ProviderConfig) http.RoundTripper {
	headers := make(map[string]string, 2)
	if p.Referer != "" {
		headers["HTTP-Referer"] = p.Referer
	}
	if p.Title != "" {
		headers["X-Title"] = p.Title
	}
	if len(headers) == 0 {
		return base
	}
	return &headerTransport{base: base, headers: headers}
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		r.Header.Set(k, v)
	}
	return t.base.RoundTrip(r)
}

func ptrFloat32(f float32) *float32 {
	return &f
}
