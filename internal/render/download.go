package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Format 下载文件格式
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat 解析命令行传入的格式名
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown download format %q", s)
	}
}

// Filename 默认文件名
func (f Format) Filename() string {
	switch f {
	case FormatMarkdown:
		return "simulacion.md"
	case FormatHTML:
		return "simulacion.html"
	default:
		return "simulacion.json"
	}
}

// ContentType 对应的 MIME 类型
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json"
	}
}

// Download 在客户端还原下载文件，不需要再次请求服务端。
// JSON 为原始响应体缩进后的结果，压缩后与服务端字节一致。
func Download(r *Result, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		raw := r.raw
		if raw == nil {
			b, err := json.Marshal(r)
			if err != nil {
				return nil, fmt.Errorf("encode result: %w", err)
			}
			raw = b
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return nil, fmt.Errorf("indent result: %w", err)
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	case FormatMarkdown:
		return []byte(MarkdownOf(r)), nil
	case FormatHTML:
		var buf bytes.Buffer
		if err := HTML(&buf, Build(r)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown download format %q", f)
	}
}

// MarkdownOf 规范形态直接返回 markdown；兼容形态拼出编号步骤与摘要
func MarkdownOf(r *Result) string {
	if r.Markdown != nil {
		return *r.Markdown
	}
	return "# Simulación LexSim\n\n" + numbered(r.Steps) + "\n\n" + deref(r.Summary) + "\n"
}
