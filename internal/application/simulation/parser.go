package simulation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"lexsim-api/internal/domain/entity"
	wfnode "lexsim-api/internal/workflow/node"
)

// 返回给用户的警告文本
const (
	WarningJSONMissing      = "No se detectó un bloque JSON válido en la respuesta del modelo."
	WarningJSONInvalid      = "No se pudo validar el bloque JSON generado. Se entrega solo el Markdown."
	WarningFallbackMarkdown = "Se generó contenido en Markdown de respaldo porque el modelo no lo proporcionó."
	WarningFallbackJSON     = "Se generó un bloque JSON de respaldo porque el modelo no entregó uno válido."
)

var (
	errEmptyMarkdown = errors.New("model output has no markdown section")
	errNoSteps       = errors.New("model output has no steps")
)

// ParsedSimulation 模型输出拆分后的结果
type ParsedSimulation struct {
	Markdown string
	JSON     map[string]any
	Warnings []string
	// DecodeErr JSON 块存在但无法通过解析或结构校验时的最后一个错误
	DecodeErr error
}

// Parser 把模型原始输出拆分为 Markdown 与结构化 JSON
type Parser struct {
	validate *validator.Validate
}

// NewParser 创建解析器
func NewParser() *Parser {
	return &Parser{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// ParseSimulation 定位 JSON 块并依次尝试修复解析；JSON 缺失或无效只产生警告。
// Markdown 为去掉 JSON 块后的剩余文本。
func (p *Parser) ParseSimulation(raw string) ParsedSimulation {
	out := ParsedSimulation{Warnings: []string{}}

	block, ok := wfnode.FindJSONBlock(raw)
	if !ok {
		out.Markdown = strings.TrimSpace(raw)
		out.Warnings = append(out.Warnings, WarningJSONMissing)
		return out
	}

	out.Markdown = wfnode.StripBlock(raw, block)
	err := wfnode.DecodeWithRepair(block.Text, func(b []byte) error {
		doc, err := p.decodeDocument(b)
		if err != nil {
			return err
		}
		out.JSON = doc
		return nil
	})
	if err != nil {
		out.DecodeErr = err
		out.Warnings = append(out.Warnings, WarningJSONInvalid)
	}
	return out
}

// decodeDocument 先按 SimulationDocument 校验结构，再以通用 map 保留模型给出的全部字段
func (p *Parser) decodeDocument(b []byte) (map[string]any, error) {
	var doc entity.SimulationDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	if err := p.validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("simulation json schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

type stepsPayload struct {
	Steps    []any          `json:"steps"`
	Summary  any            `json:"summary"`
	Metadata map[string]any `json:"metadata"`
}

// ParseSteps 解析兼容形态输出；步骤为空视为不可用输出，多于 maxSteps 时截断
func (p *Parser) ParseSteps(raw string, maxSteps int) (entity.StepsResult, error) {
	block, ok := wfnode.FindJSONBlock(raw)
	if !ok {
		return entity.StepsResult{}, errNoSteps
	}

	var payload stepsPayload
	err := wfnode.DecodeWithRepair(block.Text, func(b []byte) error {
		payload = stepsPayload{}
		return json.Unmarshal(b, &payload)
	})
	if err != nil {
		return entity.StepsResult{}, fmt.Errorf("decode steps: %w", err)
	}

	steps := make([]string, 0, len(payload.Steps))
	for _, s := range payload.Steps {
		if text := strings.TrimSpace(stringify(s)); text != "" {
			steps = append(steps, text)
		}
	}
	if len(steps) == 0 {
		return entity.StepsResult{}, errNoSteps
	}
	if maxSteps > 0 && len(steps) > maxSteps {
		steps = steps[:maxSteps]
	}

	summary := strings.TrimSpace(stringify(payload.Summary))
	if summary == "" {
		summary = fmt.Sprintf("La simulación produjo %d paso(s).", len(steps))
	}

	metadata := make(map[string]string, len(payload.Metadata))
	for k, v := range payload.Metadata {
		metadata[k] = stringify(v)
	}
	return entity.StepsResult{Steps: steps, Summary: summary, Metadata: metadata}, nil
}

// stringify 把任意 JSON 值转为字符串；字符串原样返回，null 为空串
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(x); err != nil {
			return fmt.Sprint(x)
		}
		return strings.TrimSpace(buf.String())
	}
}
