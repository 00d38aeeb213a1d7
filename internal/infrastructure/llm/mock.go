package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

var (
	scenarioRe = regexp.MustCompile(`(?s)"""\s*(.*?)\s*"""`)
	maxStepsRe = regexp.MustCompile(`como máximo (\d+) pasos`)
	contextRe  = regexp.MustCompile(`(?s)Contexto del caso:\s*(.*?)\n\n`)
)

const mockDefaultSteps = 5

// MockChatModel 离线的确定性 ChatModel，用于本地开发与演示。
// 步骤请求按场景中的单词生成步骤；模拟请求只返回 Markdown。
type MockChatModel struct {
	model string
}

// NewMockChatModel 创建 MockChatModel
func NewMockChatModel(modelName string) *MockChatModel {
	if modelName == "" {
		modelName = "lexsim-mock"
	}
	return &MockChatModel{model: modelName}
}

func (m *MockChatModel) GetType() string { return "Mock" }

func (m *MockChatModel) IsCallbacksEnabled() bool { return true }

func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	modelName := m.model
	common := model.GetCommonOptions(&model.Options{Model: &modelName}, opts...)
	if common.Model != nil && *common.Model != "" {
		modelName = *common.Model
	}
	conf := &model.Config{Model: modelName}

	ctx = callbacks.EnsureRunInfo(ctx, m.GetType(), components.ComponentOfChatModel)
	ctx = callbacks.OnStart(ctx, &model.CallbackInput{Messages: input, Config: conf})

	if err := ctx.Err(); err != nil {
		callbacks.OnError(ctx, err)
		return nil, err
	}

	prompt := lastUserContent(input)
	var content string
	if scenario := scenarioRe.FindStringSubmatch(prompt); scenario != nil {
		limit := mockDefaultSteps
		if mm := maxStepsRe.FindStringSubmatch(prompt); mm != nil {
			limit, _ = strconv.Atoi(mm[1])
		}
		content = mockSteps(scenario[1], limit, modelName)
	} else {
		content = mockMarkdown(prompt)
	}

	usage := &schema.TokenUsage{
		PromptTokens:     len(strings.Fields(prompt)),
		CompletionTokens: len(strings.Fields(content)),
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens

	msg := &schema.Message{
		Role:         schema.Assistant,
		Content:      content,
		ResponseMeta: &schema.ResponseMeta{FinishReason: "stop", Usage: usage},
	}
	callbacks.OnEnd(ctx, &model.CallbackOutput{
		Message: msg,
		Config:  conf,
		TokenUsage: &model.TokenUsage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		},
	})
	return msg, nil
}

func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i] != nil && msgs[i].Role == schema.User {
			return msgs[i].Content
		}
	}
	return ""
}

func mockSteps(scenario string, limit int, modelName string) string {
	var words []string
	for _, w := range strings.Fields(scenario) {
		w = strings.Trim(w, ",.;:!")
		if w != "" {
			words = append(words, w)
		}
	}
	if limit <= 0 {
		limit = 1
	}

	steps := []string{"No meaningful content supplied."}
	if len(words) > 0 {
		steps = steps[:0]
		for i, w := range words {
			if i == limit {
				break
			}
			steps = append(steps, fmt.Sprintf("Step %d: %s", i+1, capitalize(w)))
		}
	}

	body, _ := json.Marshal(map[string]any{
		"steps":   steps,
		"summary": fmt.Sprintf("Simulation using model %s produced %d step(s).", modelName, len(steps)),
		"metadata": map[string]string{
			"model":       modelName,
			"token_count": strconv.Itoa(len(strings.Fields(scenario))),
			"step_count":  strconv.Itoa(len(steps)),
		},
	})
	return "```json\n" + string(body) + "\n```"
}

func mockMarkdown(prompt string) string {
	ctxText := "Sin contexto."
	if mm := contextRe.FindStringSubmatch(prompt); mm != nil {
		ctxText = strings.Join(strings.Fields(mm[1]), " ")
	}
	return "# Simulación LexSim\n\n" +
		"_Respuesta generada por el modelo de demostración sin conexión._\n\n" +
		"## Resumen del caso\n\n" + ctxText + "\n\n" +
		"## Desarrollo sugerido\n\n" +
		"1. Apertura de la fiscalía y de la defensa.\n" +
		"2. Interrogatorio directo y contrainterrogatorio del testigo principal.\n" +
		"3. Objeciones típicas y resolución del juez.\n" +
		"4. Alegatos de cierre y deliberación.\n"
}

func capitalize(w string) string {
	r := []rune(strings.ToLower(w))
	if len(r) == 0 {
		return w
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
