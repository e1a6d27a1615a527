// Package agents implements the AI agents of the revision workflow. Each
// agent renders a prompt, calls the gateway and interprets the response in
// its own way: reviewers produce structured revisions, the validator judges
// corrections, the consistency checker compares sections.
package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/demusis/rev-textos/internal/gateway"
	"github.com/demusis/rev-textos/internal/models"
	"github.com/demusis/rev-textos/internal/parser"
)

// Task carries the per-call inputs an agent may need. Reviewers read
// InputText; the validator reads OriginalText, RevisedText and Findings.
type Task struct {
	InputText    string
	OriginalText string
	RevisedText  string
	Findings     []models.Finding
}

// Agent is one step of the revision workflow.
type Agent interface {
	Name() string
	Description() string
	Process(ctx context.Context, section *models.Section, task Task) (*models.Revision, error)
}

// ResponseError reports a model response the agent could not interpret,
// typically truncated or non-JSON output. The caller decides whether the
// iteration is retried or spent.
type ResponseError struct {
	Agent string
	Err   error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("agent %s: unusable model response: %v", e.Agent, e.Err)
}

func (e *ResponseError) Unwrap() error { return e.Err }

const (
	temperatureValidation  = 0.2
	temperatureConsistency = 0.2
	temperatureSynthesis   = 0.5

	// Section content sent to the consistency checker is capped so a long
	// document still fits a single prompt.
	consistencyContentLimit = 5000
)

// Reviewer revises section text for one phase (grammar, technical or
// structural) and parses the structured response into a Revision.
type Reviewer struct {
	gw          gateway.Gateway
	phase       Phase
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// NewReviewer creates a reviewer for the given phase. Temperature and
// maxTokens zero-values fall back to the gateway defaults.
func NewReviewer(gw gateway.Gateway, phase Phase, temperature float64, maxTokens int, logger *slog.Logger) *Reviewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reviewer{gw: gw, phase: phase, temperature: temperature, maxTokens: maxTokens, logger: logger}
}

func (r *Reviewer) Name() string { return "revisor_" + string(r.phase) }

func (r *Reviewer) Description() string {
	return fmt.Sprintf("agente de revisão (%s)", r.phase)
}

// Process reviews task.InputText (the section's original content when empty)
// and returns a Revision holding the findings, corrections and revised text.
// When the response cannot be parsed, the exact cached entry is dropped so a
// retry reaches the provider again, and a ResponseError is returned.
func (r *Reviewer) Process(ctx context.Context, section *models.Section, task Task) (*models.Revision, error) {
	input := task.InputText
	if input == "" {
		input = section.OriginalContent
	}

	log := r.logger.With("agent", r.Name(), "section", section.Title)
	log.Info("review phase started", "phase", r.phase, "inputChars", len(input))

	req := gateway.Request{
		Prompt:      buildPrompt(r.phase.template(), "texto", input),
		Temperature: r.temperature,
		MaxTokens:   r.maxTokens,
		Origin:      r.Name(),
	}
	raw, err := r.gw.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", r.Name(), err)
	}

	revision := models.NewRevision(0, input, r.Name())
	parsed, err := parser.ParseReview(raw, r.Name(), input)
	if err != nil {
		var perr *parser.ParseError
		if errors.As(err, &perr) {
			log.Error("response parse failed, dropping cached entry", "error", err)
			r.gw.Invalidate(req)
		}
		return nil, &ResponseError{Agent: r.Name(), Err: err}
	}

	for _, f := range parsed.Findings {
		revision.AddFinding(f)
	}
	for _, c := range parsed.Corrections {
		revision.AddCorrection(c)
	}
	revision.OutputText = parsed.RevisedText
	revision.Finalize()

	log.Info("review phase finished", "phase", r.phase, "findings", revision.FindingCount())
	return revision, nil
}

// Synthesize renders an executive summary over the aggregated run data.
func (r *Reviewer) Synthesize(ctx context.Context, data any) (string, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("agent %s: encode synthesis context: %w", r.Name(), err)
	}
	r.logger.Info("synthesis started", "agent", r.Name(), "contextBytes", len(encoded))
	text, err := r.gw.Generate(ctx, gateway.Request{
		Prompt:      buildPrompt(promptSynthesis, "dados", string(encoded)),
		Temperature: temperatureSynthesis,
		Origin:      r.Name() + "_sintese",
	})
	if err != nil {
		return "", fmt.Errorf("agent %s: synthesis: %w", r.Name(), err)
	}
	return text, nil
}

// Validator judges whether the corrections applied to a section improved it.
// Its output is the model's raw verdict.
type Validator struct {
	gw     gateway.Gateway
	logger *slog.Logger
}

func NewValidator(gw gateway.Gateway, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{gw: gw, logger: logger}
}

func (v *Validator) Name() string        { return "validador" }
func (v *Validator) Description() string { return "agente validador de correções" }

// correctionSummary is the slice of each finding the validation prompt sees.
type correctionSummary struct {
	Snippet    string `json:"trecho"`
	Suggestion string `json:"sugestao"`
}

// Validate compares task.OriginalText with task.RevisedText under the
// applied findings and returns the raw verdict. The verdict is not a
// revision; callers keep it out of the section's revision history.
func (v *Validator) Validate(ctx context.Context, section *models.Section, task Task) (string, error) {
	corrections := make([]correctionSummary, 0, len(task.Findings))
	for _, f := range task.Findings {
		corrections = append(corrections, correctionSummary{Snippet: f.Snippet, Suggestion: f.Suggestion})
	}
	encoded, err := json.Marshal(corrections)
	if err != nil {
		return "", fmt.Errorf("agent %s: encode corrections: %w", v.Name(), err)
	}

	log := v.logger.With("agent", v.Name(), "section", section.Title)
	log.Info("validation started", "findings", len(task.Findings))

	verdict, err := v.gw.Generate(ctx, gateway.Request{
		Prompt: buildPrompt(promptValidation,
			"texto_original", task.OriginalText,
			"texto_revisado", task.RevisedText,
			"correcoes", string(encoded)),
		Temperature: temperatureValidation,
		Origin:      v.Name(),
	})
	if err != nil {
		return "", fmt.Errorf("agent %s: %w", v.Name(), err)
	}

	log.Info("validation finished", "verdictChars", len(verdict))
	return verdict, nil
}

// ConsistencyChecker looks for contradictions across sections after their
// individual revision has finished.
type ConsistencyChecker struct {
	gw     gateway.Gateway
	logger *slog.Logger
}

func NewConsistencyChecker(gw gateway.Gateway, logger *slog.Logger) *ConsistencyChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsistencyChecker{gw: gw, logger: logger}
}

func (c *ConsistencyChecker) Name() string        { return "consistencia" }
func (c *ConsistencyChecker) Description() string { return "agente de verificação de consistência" }

// Process is a no-op for the consistency checker; it operates on the whole
// document through Check.
func (c *ConsistencyChecker) Process(ctx context.Context, section *models.Section, task Task) (*models.Revision, error) {
	revision := models.NewRevision(0, section.OriginalContent, c.Name())
	revision.Finalize()
	return revision, nil
}

// truncateRunes caps s at limit bytes without splitting a UTF-8 sequence.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// sectionSummary is what the consistency prompt sees of each section.
type sectionSummary struct {
	Title    string `json:"titulo"`
	Content  string `json:"conteudo"`
	Findings int    `json:"total_erros"`
}

// Check analyzes the revised sections for cross-section contradictions. A
// response that fails to parse is not an error: the raw text becomes the
// report summary and no inconsistencies are recorded.
func (c *ConsistencyChecker) Check(ctx context.Context, sections []*models.Section) (*parser.ConsistencyReport, error) {
	summaries := make([]sectionSummary, 0, len(sections))
	for _, s := range sections {
		content := truncateRunes(s.CurrentText(), consistencyContentLimit)
		summaries = append(summaries, sectionSummary{
			Title:    s.Title,
			Content:  content,
			Findings: len(s.AllFindings()),
		})
	}
	encoded, err := json.Marshal(summaries)
	if err != nil {
		return nil, fmt.Errorf("agent %s: encode sections: %w", c.Name(), err)
	}

	c.logger.Info("consistency check started", "agent", c.Name(), "sections", len(sections))
	raw, err := c.gw.Generate(ctx, gateway.Request{
		Prompt:      buildPrompt(promptConsistency, "secoes", string(encoded)),
		Temperature: temperatureConsistency,
		Origin:      c.Name(),
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", c.Name(), err)
	}

	report, err := parser.ParseConsistency(raw)
	if err != nil {
		c.logger.Warn("consistency response not structured, keeping raw text", "error", err)
		return &parser.ConsistencyReport{Consistent: true, Summary: raw}, nil
	}
	c.logger.Info("consistency check finished",
		"inconsistencies", len(report.Inconsistencies), "consistent", report.Consistent)
	return report, nil
}
