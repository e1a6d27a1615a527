package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidate_rejectsBadInputs(t *testing.T) {
	x := NewFileExtractor(nil)
	tests := []struct {
		name string
		path string
	}{
		{"missing_file", filepath.Join(t.TempDir(), "nao-existe.md")},
		{"empty_file", writeFile(t, "vazio.md", "")},
		{"unsupported_extension", writeFile(t, "laudo.docx", "conteúdo")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := x.Validate(tt.path)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Validate(%s) = %v, want *ValidationError", tt.path, err)
			}
		})
	}
}

func TestValidate_acceptsTextFormats(t *testing.T) {
	x := NewFileExtractor(nil)
	for _, name := range []string{"laudo.md", "laudo.tex", "laudo.txt", "laudo.markdown"} {
		if err := x.Validate(writeFile(t, name, "# Conteúdo\ntexto")); err != nil {
			t.Errorf("Validate(%s): %v", name, err)
		}
	}
}

func TestExtractText_readsAndTrims(t *testing.T) {
	x := NewFileExtractor(nil)
	path := writeFile(t, "laudo.md", "\n\n# Título\ncorpo do texto\n\n")

	got, err := x.ExtractText(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "# Título\ncorpo do texto" {
		t.Errorf("text = %q", got)
	}
}

func TestExtractText_pdfDirectsToConversion(t *testing.T) {
	x := NewFileExtractor(nil)
	_, err := x.ExtractText(writeFile(t, "laudo.pdf", "%PDF-1.4"))
	var xerr *ExtractionError
	if !errors.As(err, &xerr) {
		t.Fatalf("error = %v, want *ExtractionError", err)
	}
	if !strings.Contains(xerr.Reason, "Markdown") {
		t.Errorf("reason %q does not direct user to convert", xerr.Reason)
	}
}

func TestExtractMetadata_estimatesTextPages(t *testing.T) {
	x := NewFileExtractor(nil)
	path := writeFile(t, "laudo.txt", strings.Repeat("a", charsPerPage*2+10))

	meta, err := x.ExtractMetadata(path)
	if err != nil {
		t.Fatal(err)
	}
	if meta.PageCount != 3 {
		t.Errorf("pageCount = %d, want 3", meta.PageCount)
	}
	if meta.SizeBytes != int64(charsPerPage*2+10) {
		t.Errorf("sizeBytes = %d", meta.SizeBytes)
	}
}

func TestDetectSections_numberedHeadings(t *testing.T) {
	x := NewFileExtractor(nil)
	text := "1. HISTÓRICO\nNarrativa dos fatos.\n1.1 Objetivo\nDescrever o exame.\n2. EXAMES\nResultados obtidos."

	sections := x.DetectSections(text, 10)
	if len(sections) != 3 {
		t.Fatalf("sections = %d, want 3: %+v", len(sections), sections)
	}
	if sections[0].Title != "1. HISTÓRICO" {
		t.Errorf("title = %q", sections[0].Title)
	}
	if sections[0].Level != 1 || sections[1].Level != 2 {
		t.Errorf("levels = %d, %d, want 1, 2", sections[0].Level, sections[1].Level)
	}
	if sections[1].Content != "Descrever o exame." {
		t.Errorf("content = %q", sections[1].Content)
	}
}

func TestDetectSections_romanFallback(t *testing.T) {
	x := NewFileExtractor(nil)
	text := "I - Preâmbulo\nTexto inicial.\nII - Conclusão\nTexto final."

	sections := x.DetectSections(text, 0)
	if len(sections) != 2 {
		t.Fatalf("sections = %d, want 2: %+v", len(sections), sections)
	}
	if sections[1].Title != "II Conclusão" {
		t.Errorf("title = %q", sections[1].Title)
	}
}

func TestDetectSections_markdownFallback(t *testing.T) {
	x := NewFileExtractor(nil)
	text := "# Resumo\nVisão geral.\n## Detalhes\nAprofundamento."

	sections := x.DetectSections(text, 1)
	if len(sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(sections))
	}
	if sections[0].Title != "Resumo" || sections[0].Level != 1 {
		t.Errorf("first = %+v", sections[0])
	}
	if sections[1].Title != "Detalhes" || sections[1].Level != 2 {
		t.Errorf("second = %+v", sections[1])
	}
}

func TestDetectSections_noHeadingsYieldsWholeDocument(t *testing.T) {
	x := NewFileExtractor(nil)
	sections := x.DetectSections("texto corrido sem qualquer estrutura de títulos", 4)
	if len(sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(sections))
	}
	if sections[0].Title != "DOCUMENTO COMPLETO" {
		t.Errorf("title = %q", sections[0].Title)
	}
	if sections[0].PageEnd != 4 {
		t.Errorf("pageEnd = %d, want 4", sections[0].PageEnd)
	}
}

func TestDetectSections_pageEstimates(t *testing.T) {
	x := NewFileExtractor(nil)
	filler := strings.Repeat("x", charsPerPage)
	text := "1. PRIMEIRA\n" + filler + "\n2. SEGUNDA\nfinal."

	sections := x.DetectSections(text, 2)
	if len(sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(sections))
	}
	if sections[0].PageStart != 1 {
		t.Errorf("first pageStart = %d, want 1", sections[0].PageStart)
	}
	if sections[1].PageStart != 2 {
		t.Errorf("second pageStart = %d, want 2", sections[1].PageStart)
	}
	if sections[1].PageEnd != 2 {
		t.Errorf("second pageEnd = %d, want clamped to 2", sections[1].PageEnd)
	}
}
