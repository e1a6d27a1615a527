// Package extract loads source documents, validates them and detects the
// section structure the revision pipeline works on. Markdown, LaTeX and
// plain text are read natively; PDFs are validated and measured but must be
// converted to a text format before revision.
package extract

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// charsPerPage is the page-count estimate for text formats without real
// pagination.
const charsPerPage = 3000

// maxFileSize caps the accepted input size.
const maxFileSize = 20 << 20

// ValidationError reports a file rejected before any processing started.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid document %s: %s", e.Path, e.Reason)
}

// ExtractionError reports a failure to obtain text or metadata from an
// otherwise valid file.
type ExtractionError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed for %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed for %s: %s", e.Path, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Metadata describes the loaded file.
type Metadata struct {
	PageCount int
	SizeBytes int64
}

// DetectedSection is a structural fragment found in the document text.
type DetectedSection struct {
	Title     string
	Content   string
	PageStart int
	PageEnd   int
	Level     int
}

// Extractor is the document-loading contract the pipeline consumes.
type Extractor interface {
	Validate(path string) error
	ExtractText(path string) (string, error)
	ExtractMetadata(path string) (*Metadata, error)
	DetectSections(text string, pageCount int) []DetectedSection
}

// Section heading patterns, tried in order: numbered technical headings
// (1. TÍTULO, 2.3 Subtítulo), roman numerals (II - Título) and Markdown
// headings.
var (
	patternNumbered = regexp.MustCompile(`(?m)^(\d+(?:\.\d+)*\.?)[ \t]+([A-ZÁÀÂÃÉÊÍÓÔÕÚÇ].*)`)
	patternRoman    = regexp.MustCompile(`(?m)^([IVX]{1,4})\s*[-–.]\s*(.+)`)
	patternMarkdown = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+(.+)`)
)

var supportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".tex":      true,
	".txt":      true,
	".pdf":      true,
}

// FileExtractor implements Extractor over the local filesystem.
type FileExtractor struct {
	logger *slog.Logger
}

func NewFileExtractor(logger *slog.Logger) *FileExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileExtractor{logger: logger}
}

// Validate checks existence, size and format. PDFs additionally go through a
// structural validation in relaxed mode, which accepts the slightly
// out-of-spec files scanners tend to produce.
func (x *FileExtractor) Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &ValidationError{Path: path, Reason: "file not found"}
	}
	if info.IsDir() {
		return &ValidationError{Path: path, Reason: "path is a directory"}
	}
	if info.Size() == 0 {
		return &ValidationError{Path: path, Reason: "file is empty"}
	}
	if info.Size() > maxFileSize {
		return &ValidationError{Path: path,
			Reason: fmt.Sprintf("file exceeds %d MB", maxFileSize>>20)}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return &ValidationError{Path: path,
			Reason: fmt.Sprintf("unsupported extension %q", ext)}
	}

	if ext == ".pdf" {
		cfg := model.NewDefaultConfiguration()
		cfg.ValidationMode = model.ValidationRelaxed
		if err := api.ValidateFile(path, cfg); err != nil {
			return &ValidationError{Path: path,
				Reason: fmt.Sprintf("broken PDF structure: %v", err)}
		}
	}
	x.logger.Debug("document validated", "path", path, "sizeBytes", info.Size())
	return nil
}

// ExtractText reads the document content. PDF text extraction is not
// performed here; callers are told to convert the file first.
func (x *FileExtractor) ExtractText(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		return "", &ExtractionError{Path: path,
			Reason: "PDF text extraction is not supported, convert the file to Markdown first"}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Reason: "read failed", Err: err}
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", &ExtractionError{Path: path, Reason: "file contains no text"}
	}
	x.logger.Info("text extracted", "path", path, "chars", len(text))
	return text, nil
}

// ExtractMetadata returns size and page count. PDFs report their real page
// count; text formats estimate one page per 3000 characters.
func (x *FileExtractor) ExtractMetadata(path string) (*Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Reason: "stat failed", Err: err}
	}
	meta := &Metadata{SizeBytes: info.Size()}

	if strings.ToLower(filepath.Ext(path)) == ".pdf" {
		pages, err := api.PageCountFile(path)
		if err != nil {
			return nil, &ExtractionError{Path: path, Reason: "page count failed", Err: err}
		}
		meta.PageCount = pages
		return meta, nil
	}

	meta.PageCount = int(info.Size())/charsPerPage + 1
	return meta, nil
}

// DetectSections splits text on heading patterns. When no heading matches,
// the whole document becomes a single level-1 section.
func (x *FileExtractor) DetectSections(text string, pageCount int) []DetectedSection {
	matches := patternNumbered.FindAllStringSubmatchIndex(text, -1)
	markdown := false
	if len(matches) == 0 {
		matches = patternRoman.FindAllStringSubmatchIndex(text, -1)
	}
	if len(matches) == 0 {
		matches = patternMarkdown.FindAllStringSubmatchIndex(text, -1)
		markdown = len(matches) > 0
	}

	if len(matches) == 0 {
		x.logger.Info("no section headings found, using whole document")
		return []DetectedSection{{
			Title:     "DOCUMENTO COMPLETO",
			Content:   text,
			PageStart: 1,
			PageEnd:   max(1, pageCount),
			Level:     1,
		}}
	}

	var sections []DetectedSection
	for i, m := range matches {
		marker := strings.TrimSpace(text[m[2]:m[3]])
		heading := strings.TrimSpace(text[m[4]:m[5]])

		var title string
		var level int
		if markdown {
			title = heading
			level = len(marker)
		} else {
			title = marker + " " + heading
			level = strings.Count(strings.TrimSuffix(marker, "."), ".") + 1
		}

		start := m[1]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		content := strings.TrimSpace(text[start:end])
		if content == "" {
			continue
		}

		pageStart := max(1, m[0]/charsPerPage+1)
		pageEnd := max(pageStart, end/charsPerPage+1)
		if pageCount > 0 && pageEnd > pageCount {
			pageEnd = max(pageStart, pageCount)
		}

		sections = append(sections, DetectedSection{
			Title:     title,
			Content:   content,
			PageStart: pageStart,
			PageEnd:   pageEnd,
			Level:     level,
		})
	}

	if len(sections) == 0 {
		return []DetectedSection{{
			Title:     "DOCUMENTO COMPLETO",
			Content:   text,
			PageStart: 1,
			PageEnd:   max(1, pageCount),
			Level:     1,
		}}
	}
	x.logger.Info("sections detected", "count", len(sections), "markdown", markdown)
	return sections
}
