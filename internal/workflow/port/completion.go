package port

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatModelFactory 按提供商名获取 ChatModel；name 为空时返回默认提供商。
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// CallOptions 单次生成的可选参数，未设置时使用提供商配置
type CallOptions struct {
	Temperature *float32
	MaxTokens   *int
	// JSONMode 请求 response_format=json_object；提供商不支持时自动退回纯提示词
	JSONMode bool
}

// AcceptFunc 校验模型输出；返回错误时该次尝试视为失败，网关继续下一个模型。
type AcceptFunc func(content string) error

// Completion 网关成功返回的结果
type Completion struct {
	Content  string
	Provider string
	Model    string
	// Attempts 含成功那次在内的尝试次数
	Attempts int
	Usage    *schema.TokenUsage
}

// CompletionGateway 按主模型、回退模型的顺序逐个尝试，直到有输出被接受。
type CompletionGateway interface {
	Complete(ctx context.Context, msgs []*schema.Message, opts CallOptions, accept AcceptFunc) (*Completion, error)
}
