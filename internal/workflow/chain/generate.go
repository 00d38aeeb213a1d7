package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	llmctx "lexsim-api/internal/domain/service"
	workflowport "lexsim-api/internal/workflow/port"
	workflowprompt "lexsim-api/internal/workflow/prompt"
)

// GenerateInput 一次生成所需的全部输入
type GenerateInput struct {
	// Workflow 用作日志与指标标签，例如 "simulation"、"steps"
	Workflow string
	PromptID workflowprompt.PromptID
	Vars     map[string]any
	Options  workflowport.CallOptions
	Accept   workflowport.AcceptFunc
}

// GenerateChain 模板渲染 + 带回退的模型调用
type GenerateChain struct {
	gateway  workflowport.CompletionGateway
	registry *workflowprompt.Registry

	chainOnce sync.Once
	chain     compose.Runnable[*GenerateInput, *workflowport.Completion]
	chainErr  error
}

func NewGenerateChain(gateway workflowport.CompletionGateway, registry *workflowprompt.Registry) *GenerateChain {
	if registry == nil {
		registry = workflowprompt.NewRegistry()
	}
	return &GenerateChain{gateway: gateway, registry: registry}
}

func (c *GenerateChain) Invoke(ctx context.Context, in *GenerateInput) (*workflowport.Completion, error) {
	if c == nil || c.gateway == nil {
		return nil, fmt.Errorf("llm gateway not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	chain, err := c.getChain()
	if err != nil {
		return nil, err
	}
	return chain.Invoke(llmctx.WithWorkflow(ctx, in.Workflow), in)
}

// Messages 只渲染模板，不调用模型
func (c *GenerateChain) Messages(ctx context.Context, in *GenerateInput) ([]*schema.Message, error) {
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	return c.registry.Format(ctx, in.PromptID, in.Vars)
}

type generateChainState struct {
	In       *GenerateInput
	Messages []*schema.Message
	Out      *workflowport.Completion
}

func (c *GenerateChain) getChain() (compose.Runnable[*GenerateInput, *workflowport.Completion], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *GenerateChain) buildChain(ctx context.Context) (compose.Runnable[*GenerateInput, *workflowport.Completion], error) {
	chain := compose.NewChain[*GenerateInput, *workflowport.Completion]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *GenerateInput) (*generateChainState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			return &generateChainState{In: in}, nil
		}),
		compose.WithNodeName("generate.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *generateChainState) (*generateChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			msgs, err := c.Messages(ctx, st.In)
			if err != nil {
				return nil, err
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName("generate.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *generateChainState) (*generateChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			out, err := c.gateway.Complete(ctx, st.Messages, st.In.Options, st.In.Accept)
			if err != nil {
				return nil, err
			}
			st.Out = out
			return st, nil
		}),
		compose.WithNodeName("generate.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *generateChainState) (*workflowport.Completion, error) {
			if st == nil || st.Out == nil {
				return nil, fmt.Errorf("state is nil")
			}
			return st.Out, nil
		}),
		compose.WithNodeName("generate.finalize"),
	)

	return chain.Compile(ctx)
}
