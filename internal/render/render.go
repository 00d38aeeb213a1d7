// Package render 把 /api/simulate 的响应体转换为可展示、可下载的形式。
// 全部为纯函数，不发起网络请求；浏览器端 app.js 实现同一约定。
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Shape 响应形态
type Shape string

const (
	ShapeSimulation Shape = "simulation"
	ShapeSteps      Shape = "steps"
)

const noJSONBody = "Sin bloque JSON."

// ErrEmptyBody 响应体为空
var ErrEmptyBody = errors.New("empty response body")

// Result 解码后的响应；两种形态的字段都可能出现
type Result struct {
	Markdown *string         `json:"markdown,omitempty"`
	JSON     json.RawMessage `json:"json,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`

	Steps    []string       `json:"steps,omitempty"`
	Summary  *string        `json:"summary,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	// raw 原始响应体，下载 JSON 时按原样还原
	raw []byte
}

// Decode 解析服务端返回的响应体
func Decode(body []byte) (*Result, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	var r Result
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	r.raw = append([]byte(nil), body...)
	return &r, nil
}

// Shape 有 steps 或 summary 时为兼容形态
func (r *Result) Shape() Shape {
	if r.Steps != nil || r.Summary != nil {
		return ShapeSteps
	}
	return ShapeSimulation
}

// HasJSON 是否带有非 null 的结构化块
func (r *Result) HasJSON() bool {
	trimmed := bytes.TrimSpace(r.JSON)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Pane 一个展示面板
type Pane struct {
	Title string
	Body  string
	// Markdown 为 true 时 Body 按 Markdown 渲染，否则按预格式文本
	Markdown bool
}

// View 渲染树：警告列表 + 两个面板
type View struct {
	Shape    Shape
	Warnings []string
	Panes    []Pane
}

// Build 根据响应形态构造渲染树
func Build(r *Result) View {
	if r.Shape() == ShapeSteps {
		return View{
			Shape:    ShapeSteps,
			Warnings: []string{},
			Panes: []Pane{
				{Title: "Pasos", Body: strings.TrimSpace(numbered(r.Steps) + "\n\n" + deref(r.Summary))},
				{Title: "Metadatos", Body: indentAny(r.Metadata, "{}")},
			},
		}
	}

	jsonBody := noJSONBody
	if r.HasJSON() {
		jsonBody = indentRaw(r.JSON)
	}
	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return View{
		Shape:    ShapeSimulation,
		Warnings: warnings,
		Panes: []Pane{
			{Title: "Markdown", Body: deref(r.Markdown), Markdown: true},
			{Title: "JSON", Body: jsonBody},
		},
	}
}

func numbered(steps []string) string {
	lines := make([]string, len(steps))
	for i, s := range steps {
		lines[i] = fmt.Sprintf("%d. %s", i+1, s)
	}
	return strings.Join(lines, "\n")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func indentRaw(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func indentAny(v map[string]any, empty string) string {
	if len(v) == 0 {
		return empty
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return empty
	}
	return string(b)
}
