// Package parser extracts structured findings from freeform model output.
//
// Responses arrive as JSON wrapped in anything from clean code fences to
// chatty prose, and are sometimes truncated mid-payload. The functions here
// do a best-effort extraction and surface a typed ParseError instead of
// swallowing malformed responses.
package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/demusis/rev-textos/internal/models"
)

// ParseError reports an unparseable model response, carrying a short
// diagnostic snippet of what was received.
type ParseError struct {
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid model response (likely truncated JSON): %v | snippet: %q", e.Err, e.Snippet)
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(raw string, err error) *ParseError {
	snippet := raw
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return &ParseError{Snippet: snippet, Err: err}
}

// Parsed is the structured outcome of a review response.
type Parsed struct {
	Findings    []models.Finding
	Corrections []models.Correction
	RevisedText string
}

// reviewPayload mirrors the JSON contract the review prompts ask for.
type reviewPayload struct {
	Errors []struct {
		Snippet       string  `json:"trecho_original"`
		Suggestion    string  `json:"sugestao_correcao"`
		Kind          string  `json:"tipo"`
		Justification string  `json:"justificativa"`
		Description   string  `json:"descricao"`
		Severity      int     `json:"severidade"`
		Confidence    float64 `json:"confianca"`
	} `json:"erros"`
	RevisedText string `json:"texto_revisado"`
}

// ExtractJSON locates the JSON payload inside a freeform response. Markdown
// code fences are stripped when present; otherwise the span between the first
// "{" and the last "}" is taken, which tolerates prose before and after.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		return strings.TrimSpace(s)
	}
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+len("```"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		return strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// ParseReview turns a review response into findings, corrections and the
// revised text. fallbackText is used when the response omits texto_revisado.
func ParseReview(raw, agent, fallbackText string) (*Parsed, error) {
	var payload reviewPayload
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &payload); err != nil {
		return nil, newParseError(raw, err)
	}

	out := &Parsed{RevisedText: payload.RevisedText}
	if out.RevisedText == "" {
		out.RevisedText = fallbackText
	}

	for _, e := range payload.Errors {
		confidence := e.Confidence
		if confidence <= 0 {
			confidence = 1
		} else if confidence > 1 {
			confidence = 1
		}
		out.Findings = append(out.Findings, models.Finding{
			Category:    MapCategory(e.Kind),
			Description: describeFinding(e.Justification, e.Description, e.Kind),
			Snippet:     e.Snippet,
			Suggestion:  e.Suggestion,
			Severity:    clampSeverity(e.Severity),
			Confidence:  confidence,
			Agent:       agent,
			Acceptance:  models.AcceptancePending,
		})
		out.Corrections = append(out.Corrections, models.Correction{
			Original:      e.Snippet,
			Corrected:     e.Suggestion,
			Justification: e.Justification,
			Agent:         agent,
		})
	}
	return out, nil
}

// categoryTable maps the free-form kind strings the prompts elicit onto the
// closed category set. Lookup is case-insensitive; unknown kinds map to Other.
var categoryTable = map[string]models.Category{
	"gramatical":    models.CategoryGrammatical,
	"ortografico":   models.CategoryGrammatical,
	"concordancia":  models.CategoryGrammatical,
	"tecnico":       models.CategoryTechnical,
	"terminologia":  models.CategoryTechnical,
	"fundamentacao": models.CategoryTechnical,
	"juridico":      models.CategoryTechnical,
	"inconsistencia": models.CategoryConsistency,
	"consistencia":   models.CategoryConsistency,
	"estrutural":     models.CategoryFormatting,
	"formatacao":     models.CategoryFormatting,
	"coesao":         models.CategoryLogical,
	"clareza":        models.CategoryLogical,
	"logico":         models.CategoryLogical,
	"referencia":     models.CategoryReference,
	"numerico":       models.CategoryNumeric,
	"omissao":        models.CategoryOmission,
}

// MapCategory resolves a free-form category string to the closed enum.
func MapCategory(kind string) models.Category {
	if c, ok := categoryTable[strings.ToLower(strings.TrimSpace(kind))]; ok {
		return c
	}
	return models.CategoryOther
}

// describeFinding resolves the description through the fallback chain:
// justification, then description, then the raw kind, then a placeholder.
func describeFinding(justification, description, kind string) string {
	switch {
	case justification != "":
		return justification
	case description != "":
		return description
	case kind != "":
		return kind
	default:
		return "problema não descrito"
	}
}

func clampSeverity(s int) int {
	if s < 1 {
		return 1
	}
	if s > 5 {
		return 5
	}
	return s
}
