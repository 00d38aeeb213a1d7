package render

import (
	"io"
	"strings"
)

// Text 以终端友好的纯文本输出渲染树
func Text(w io.Writer, v View) error {
	var b strings.Builder
	if len(v.Warnings) > 0 {
		b.WriteString("Advertencias:\n")
		for _, warn := range v.Warnings {
			b.WriteString("  - " + warn + "\n")
		}
		b.WriteString("\n")
	}
	for i, p := range v.Panes {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("== " + p.Title + " ==\n")
		b.WriteString(strings.TrimRight(p.Body, "\n"))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
