package report

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

// HTMLRenderer writes the review report as a standalone HTML page.
type HTMLRenderer struct{}

func (r *HTMLRenderer) Format() string { return FormatHTML }

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"severity": func(n int) string { return strings.Repeat("⚠️", n) },
	"add":      func(a, b int) int { return a + b },
}).Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>Relatório de Revisão — {{.Document.Filename}}</title>
<style>
body { font-family: sans-serif; margin: 2em auto; max-width: 60em; color: #222; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
th, td { border: 1px solid #ccc; padding: 0.4em 0.6em; text-align: left; }
th { background: #f0f0f0; }
code { background: #f6f6f6; padding: 0 0.2em; }
.meta { color: #666; }
.footer { margin-top: 2em; color: #888; font-size: 0.85em; border-top: 1px solid #ddd; padding-top: 1em; }
</style>
</head>
<body>
<h1>Relatório de Revisão — {{.Document.Filename}}</h1>
<p class="meta">Data: {{.Date}}{{if .Document.Model.Provider}} · IA: {{.Document.Model.Provider}} ({{.Document.Model.Model}}){{end}}</p>

<h2>Resumo</h2>
<table>
<tr><th>Métrica</th><th>Valor</th></tr>
<tr><td>Seções analisadas</td><td>{{len .Document.Sections}}</td></tr>
<tr><td>Total de erros</td><td>{{.TotalFindings}}</td></tr>
<tr><td>Status</td><td>{{.Document.Status}}</td></tr>
<tr><td>Requisições à IA</td><td>{{.Metrics.Requests}}</td></tr>
<tr><td>Tokens (entrada/saída)</td><td>{{.Metrics.TokensIn}} / {{.Metrics.TokensOut}}</td></tr>
</table>

<h2>Detalhes por Seção</h2>
{{range .Sections}}
<h3>{{.Title}}</h3>
<p>Páginas {{.PageStart}}–{{.PageEnd}} · Status: {{.Status}} · Iterações: {{.Iterations}}</p>
{{if .Findings}}
<table>
<tr><th>#</th><th>Tipo</th><th>Severidade</th><th>Original</th><th>Justificativa</th><th>Correção</th></tr>
{{range $i, $f := .Findings}}
<tr><td>{{add $i 1}}</td><td>{{$f.Category}}</td><td>{{severity $f.Severity}}</td><td><code>{{$f.Snippet}}</code></td><td>{{$f.Description}}</td><td><code>{{$f.Suggestion}}</code></td></tr>
{{end}}
</table>
{{else}}
<p><em>Nenhum erro encontrado.</em></p>
{{end}}
{{end}}

{{if .Consistency}}
<h2>Consistência entre Seções</h2>
{{if .Consistency.Inconsistencies}}
<table>
<tr><th>Seção 1</th><th>Seção 2</th><th>Severidade</th><th>Descrição</th><th>Sugestão</th></tr>
{{range .Consistency.Inconsistencies}}
<tr><td>{{.Section1}}</td><td>{{.Section2}}</td><td>{{severity .Severity}}</td><td>{{.Description}}</td><td>{{.Suggestion}}</td></tr>
{{end}}
</table>
{{else}}
<p><em>Nenhuma inconsistência encontrada.</em></p>
{{end}}
{{if .Consistency.Summary}}<p>{{.Consistency.Summary}}</p>{{end}}
{{end}}

{{if .Document.Synthesis}}
<h2>Síntese</h2>
<p>{{.Document.Synthesis}}</p>
{{end}}

<div class="footer">Relatório gerado automaticamente pelo Sistema de Revisão de Textos Estruturados.</div>
</body>
</html>
`))

// htmlSection flattens a section for the template.
type htmlSection struct {
	Title      string
	PageStart  int
	PageEnd    int
	Status     string
	Iterations int
	Findings   []htmlFinding
}

type htmlFinding struct {
	Category    string
	Severity    int
	Snippet     string
	Description string
	Suggestion  string
}

func (r *HTMLRenderer) Render(data Data) (*Report, error) {
	doc := data.Document
	if doc == nil {
		return nil, fmt.Errorf("document is required")
	}
	when := data.GeneratedAt
	if when.IsZero() {
		when = time.Now()
	}

	sections := make([]htmlSection, 0, len(doc.Sections))
	for _, sec := range doc.Sections {
		hs := htmlSection{
			Title:      sec.Title,
			PageStart:  sec.PageStart,
			PageEnd:    sec.PageEnd,
			Status:     string(sec.Status),
			Iterations: sec.Iterations(),
		}
		for _, f := range sec.AllFindings() {
			hs.Findings = append(hs.Findings, htmlFinding{
				Category:    string(f.Category),
				Severity:    f.Severity,
				Snippet:     f.Snippet,
				Description: f.Description,
				Suggestion:  f.Suggestion,
			})
		}
		sections = append(sections, hs)
	}

	var b strings.Builder
	err := htmlTemplate.Execute(&b, map[string]any{
		"Document":      doc,
		"Sections":      sections,
		"Consistency":   data.Consistency,
		"Metrics":       data.Metrics,
		"TotalFindings": doc.TotalFindings(),
		"Date":          when.Format("02/01/2006 15:04"),
	})
	if err != nil {
		return nil, fmt.Errorf("render html report: %w", err)
	}

	return &Report{Format: FormatHTML, Content: b.String(), Stem: stem(doc.Filename)}, nil
}
