// Package report renders revision results into Markdown and HTML documents
// and saves them locally or to Cloud Storage.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/demusis/rev-textos/internal/gateway"
	"github.com/demusis/rev-textos/internal/models"
	"github.com/demusis/rev-textos/internal/parser"
)

const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// Data is everything a renderer needs.
type Data struct {
	Document    *models.Document
	Consistency *parser.ConsistencyReport
	Metrics     gateway.Metrics
	GeneratedAt time.Time
}

// Report is a rendered document ready to be saved.
type Report struct {
	Format  string
	Content string
	// Stem names the output file, derived from the source filename.
	Stem string
}

// Renderer produces one output format.
type Renderer interface {
	Format() string
	Render(data Data) (*Report, error)
}

// ByFormat returns the renderer for a format name.
func ByFormat(format string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatMarkdown, "md":
		return &MarkdownRenderer{}, nil
	case FormatHTML:
		return &HTMLRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown report format %q", format)
}

// MarkdownRenderer writes the review report as Markdown.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Format() string { return FormatMarkdown }

func (r *MarkdownRenderer) Render(data Data) (*Report, error) {
	doc := data.Document
	if doc == nil {
		return nil, fmt.Errorf("document is required")
	}
	when := data.GeneratedAt
	if when.IsZero() {
		when = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Relatório de Revisão — %s\n\n", doc.Filename)
	fmt.Fprintf(&b, "**Data**: %s\n\n", when.Format("02/01/2006 15:04"))
	if doc.Model.Provider != "" {
		fmt.Fprintf(&b, "**IA**: %s (%s)\n\n", doc.Model.Provider, doc.Model.Model)
	}

	b.WriteString("## Resumo\n\n")
	b.WriteString("| Métrica | Valor |\n|---------|-------|\n")
	fmt.Fprintf(&b, "| Seções analisadas | %d |\n", len(doc.Sections))
	fmt.Fprintf(&b, "| Total de erros | %d |\n", doc.TotalFindings())
	fmt.Fprintf(&b, "| Status | %s |\n", doc.Status)
	fmt.Fprintf(&b, "| Progresso | %.0f%% |\n", doc.Progress())
	fmt.Fprintf(&b, "| Requisições à IA | %d |\n", data.Metrics.Requests)
	fmt.Fprintf(&b, "| Tokens (entrada/saída) | %d / %d |\n\n",
		data.Metrics.TokensIn, data.Metrics.TokensOut)

	b.WriteString("## Detalhes por Seção\n\n")
	for _, sec := range doc.Sections {
		fmt.Fprintf(&b, "### %s\n\n", sec.Title)
		fmt.Fprintf(&b, "- **Páginas**: %d–%d\n", sec.PageStart, sec.PageEnd)
		fmt.Fprintf(&b, "- **Status**: %s\n", sec.Status)
		fmt.Fprintf(&b, "- **Iterações**: %d\n\n", sec.Iterations())

		findings := sec.AllFindings()
		if len(findings) == 0 {
			b.WriteString("*Nenhum erro encontrado.*\n\n")
			continue
		}
		b.WriteString("#### Erros Encontrados\n\n")
		b.WriteString("| # | Tipo | Severidade | Original | Justificativa | Correção |\n")
		b.WriteString("|---|------|------------|----------|---------------|----------|\n")
		for i, f := range findings {
			fmt.Fprintf(&b, "| %d | %s | %s | `%s` | %s | `%s` |\n",
				i+1, f.Category, strings.Repeat("⚠️", f.Severity),
				mdCell(f.Snippet), mdCell(f.Description), mdCell(f.Suggestion))
		}
		b.WriteString("\n")
	}

	if data.Consistency != nil {
		b.WriteString("## Consistência entre Seções\n\n")
		if len(data.Consistency.Inconsistencies) == 0 {
			b.WriteString("*Nenhuma inconsistência encontrada.*\n\n")
		} else {
			b.WriteString("| Seção 1 | Seção 2 | Severidade | Descrição | Sugestão |\n")
			b.WriteString("|---------|---------|------------|-----------|----------|\n")
			for _, inc := range data.Consistency.Inconsistencies {
				fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
					mdCell(inc.Section1), mdCell(inc.Section2),
					strings.Repeat("⚠️", inc.Severity),
					mdCell(inc.Description), mdCell(inc.Suggestion))
			}
			b.WriteString("\n")
		}
		if data.Consistency.Summary != "" {
			fmt.Fprintf(&b, "%s\n\n", data.Consistency.Summary)
		}
	}

	if doc.Synthesis != "" {
		b.WriteString("## Síntese\n\n")
		fmt.Fprintf(&b, "%s\n\n", doc.Synthesis)
	}

	b.WriteString("---\n\n")
	b.WriteString("*Relatório gerado automaticamente pelo Sistema de Revisão de Textos Estruturados.*\n")

	return &Report{
		Format:  FormatMarkdown,
		Content: b.String(),
		Stem:    stem(doc.Filename),
	}, nil
}

// mdCell flattens a value into a single Markdown table cell.
func mdCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.Join(strings.Fields(s), " ")
}

func stem(filename string) string {
	if i := strings.LastIndex(filename, "."); i > 0 {
		return filename[:i]
	}
	return filename
}
