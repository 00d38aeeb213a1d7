package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
{{- if .Warnings}}
<ul class="warnings">
{{- range .Warnings}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
{{- range .Panes}}
<section>
<h2>{{.Title}}</h2>
{{- if .HTML}}
<div class="markdown">{{.HTML}}</div>
{{- else}}
<pre>{{.Text}}</pre>
{{- end}}
</section>
{{- end}}
</body>
</html>
`))

type htmlPane struct {
	Title string
	HTML  template.HTML
	Text  string
}

type htmlPage struct {
	Title    string
	Warnings []string
	Panes    []htmlPane
}

// HTML 渲染为独立的 HTML 页面；Markdown 面板经 goldmark 转换，原始 HTML 不会透传
func HTML(w io.Writer, v View) error {
	page := htmlPage{Title: "Simulación LexSim", Warnings: v.Warnings}
	for _, p := range v.Panes {
		hp := htmlPane{Title: p.Title}
		if p.Markdown {
			var buf bytes.Buffer
			if err := goldmark.Convert([]byte(p.Body), &buf); err != nil {
				return fmt.Errorf("convert markdown: %w", err)
			}
			hp.HTML = template.HTML(buf.String())
		} else {
			hp.Text = p.Body
		}
		page.Panes = append(page.Panes, hp)
	}
	return pageTmpl.Execute(w, page)
}
