// Package pipeline sequences the full revision run: load, extraction,
// review phases, validation, consistency, synthesis, reports and
// persistence. A run never returns an error; every failure is folded into
// the Result.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/demusis/rev-textos/internal/agents"
	"github.com/demusis/rev-textos/internal/config"
	"github.com/demusis/rev-textos/internal/extract"
	"github.com/demusis/rev-textos/internal/gateway"
	"github.com/demusis/rev-textos/internal/models"
	"github.com/demusis/rev-textos/internal/parser"
	"github.com/demusis/rev-textos/internal/report"
	"github.com/demusis/rev-textos/internal/review"
	"github.com/demusis/rev-textos/internal/store"
)

// Stage progress boundaries. Monotonic; 100 only on success.
const (
	pctLoad        = 5
	pctExtraction  = 15
	pctPhases      = 55
	pctValidation  = 70
	pctConsistency = 78
	pctSynthesis   = 85
	pctReports     = 100
)

// ProgressSink receives stage progress events during a run.
type ProgressSink interface {
	Notify(event models.ProgressEvent)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(event models.ProgressEvent)

func (f ProgressFunc) Notify(event models.ProgressEvent) { f(event) }

// Result is the outcome of one pipeline run.
type Result struct {
	Document *models.Document
	// Reports maps output format to the saved report path.
	Reports map[string]string
	Metrics map[string]any
	Success bool
	Message string
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	cfg       *config.Config
	gw        gateway.Gateway
	extractor extract.Extractor
	store     store.Store
	sink      ProgressSink
	logger    *slog.Logger
}

// New creates an orchestrator. store and sink may be nil.
func New(cfg *config.Config, gw gateway.Gateway, extractor extract.Extractor, st store.Store, sink ProgressSink, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, gw: gw, extractor: extractor, store: st, sink: sink, logger: logger}
}

// Run processes the document at path and renders the requested report
// formats. It always returns a Result; failures and cancellation yield
// Success=false, and only a successful run is persisted.
func (o *Orchestrator) Run(ctx context.Context, path string, formats []string) *Result {
	runID := uuid.NewString()
	log := o.logger.With("runId", runID, "path", path)
	log.Info("pipeline run started", "provider", o.cfg.Provider, "mock", o.cfg.Mock)

	var doc *models.Document
	fail := func(message string, err error) *Result {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			message = "cancelled"
			log.Warn("pipeline run cancelled")
		} else {
			log.Error("pipeline run failed", "stage", message, "error", err)
			message = fmt.Sprintf("%s: %v", message, err)
		}
		if doc != nil {
			if message == "cancelled" {
				doc.UpdateStatus(models.StatusCancelled)
			} else {
				doc.UpdateStatus(models.StatusFailed)
			}
		}
		return &Result{Document: doc, Success: false, Message: message, Metrics: o.metrics(doc)}
	}

	// Load and validate.
	o.notify("load", 0, "carregando documento")
	if err := ctx.Err(); err != nil {
		return fail("load", err)
	}
	var err error
	doc, err = o.load(path)
	if err != nil {
		return fail("load", err)
	}
	doc.UpdateStatus(models.StatusProcessing)
	o.notify("load", pctLoad, "documento validado")

	// Extraction and section detection.
	if err := ctx.Err(); err != nil {
		return fail("extraction", err)
	}
	if err := o.extract(doc); err != nil {
		return fail("extraction", err)
	}
	o.notify("extraction", pctExtraction,
		fmt.Sprintf("%d seção(ões) detectada(s)", len(doc.Sections)))

	// Review phases.
	phases, err := o.phases()
	if err != nil {
		return fail("review", err)
	}
	for i, phase := range phases {
		if err := ctx.Err(); err != nil {
			return fail("review", err)
		}
		from := pctExtraction + (pctPhases-pctExtraction)*i/len(phases)
		to := pctExtraction + (pctPhases-pctExtraction)*(i+1)/len(phases)
		if err := o.runPhase(ctx, doc, phase, from, to); err != nil {
			return fail(fmt.Sprintf("review phase %s", phase), err)
		}
	}
	o.notify("review", pctPhases, "fases de revisão concluídas")

	// Validation.
	if err := ctx.Err(); err != nil {
		return fail("validation", err)
	}
	if err := o.validate(ctx, doc); err != nil {
		return fail("validation", err)
	}
	o.notify("validation", pctValidation, "correções validadas")

	// Consistency.
	if err := ctx.Err(); err != nil {
		return fail("consistency", err)
	}
	consistency, err := o.consistency(ctx, doc)
	if err != nil {
		return fail("consistency", err)
	}
	o.notify("consistency", pctConsistency, "consistência verificada")

	// Synthesis.
	if err := ctx.Err(); err != nil {
		return fail("synthesis", err)
	}
	if err := o.synthesize(ctx, doc, phases[0]); err != nil {
		return fail("synthesis", err)
	}
	o.notify("synthesis", pctSynthesis, "síntese gerada")

	// Reports.
	if err := ctx.Err(); err != nil {
		return fail("reports", err)
	}
	reports, err := o.renderReports(ctx, doc, consistency, formats)
	if err != nil {
		return fail("reports", err)
	}

	// Persist only a fully successful run.
	doc.UpdateStatus(models.StatusCompleted)
	if o.store != nil {
		if err := o.store.Save(ctx, doc); err != nil {
			return fail("persist", err)
		}
	}

	o.notify("reports", pctReports, "revisão concluída")
	log.Info("pipeline run finished",
		"sections", len(doc.Sections), "findings", doc.TotalFindings())

	return &Result{
		Document: doc,
		Reports:  reports,
		Metrics:  o.metrics(doc),
		Success:  true,
		Message:  "revisão concluída",
	}
}

func (o *Orchestrator) notify(stage string, percent int, message string) {
	if o.sink != nil {
		o.sink.Notify(models.ProgressEvent{Stage: stage, Percent: percent, Message: message})
	}
}

func (o *Orchestrator) load(path string) (*models.Document, error) {
	if err := o.extractor.Validate(path); err != nil {
		return nil, err
	}
	meta, err := o.extractor.ExtractMetadata(path)
	if err != nil {
		return nil, err
	}
	hash, err := fileHash(path)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate file hash: %w", err)
	}
	doc := models.NewDocument(path, filepath.Base(path), hash, meta.SizeBytes, meta.PageCount)
	doc.Model = o.gw.ModelInfo()
	return doc, nil
}

func (o *Orchestrator) extract(doc *models.Document) error {
	text, err := o.extractor.ExtractText(doc.Path)
	if err != nil {
		return err
	}

	var detected []extract.DetectedSection
	if o.cfg.ProcessingMode == "full_text" {
		detected = []extract.DetectedSection{{
			Title:     "DOCUMENTO COMPLETO",
			Content:   text,
			PageStart: 1,
			PageEnd:   max(1, doc.PageCount),
			Level:     1,
		}}
	} else {
		detected = o.extractor.DetectSections(text, doc.PageCount)
	}

	seen := make(map[string]int, len(detected))
	for _, d := range detected {
		title := d.Title
		seen[title]++
		if n := seen[title]; n > 1 {
			title = fmt.Sprintf("%s (%d)", d.Title, n)
		}
		sec, err := models.NewSection(title, d.Content, d.PageStart, d.PageEnd, d.Level)
		if err != nil {
			return fmt.Errorf("detected section rejected: %w", err)
		}
		if err := doc.AddSection(sec); err != nil {
			return err
		}
	}
	doc.AddHistory(fmt.Sprintf("extracted %d sections", len(doc.Sections)))
	return nil
}

func (o *Orchestrator) phases() ([]agents.Phase, error) {
	if len(o.cfg.Phases) == 0 {
		return nil, fmt.Errorf("at least one review phase is required")
	}
	out := make([]agents.Phase, 0, len(o.cfg.Phases))
	for _, name := range o.cfg.Phases {
		p, err := agents.ParsePhase(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// runPhase revises every section with one reviewer. Sections run
// sequentially unless workers allows more; the phase is a barrier either
// way.
func (o *Orchestrator) runPhase(ctx context.Context, doc *models.Document, phase agents.Phase, pctFrom, pctTo int) error {
	reviewer := agents.NewReviewer(o.gw, phase, o.cfg.Temperature, o.cfg.MaxTokens, o.logger)
	loop := review.NewLoop(reviewer, o.logger)
	total := len(doc.Sections)

	var mu sync.Mutex
	completed := 0
	// The sink is notified under the mutex so events stay ordered and
	// sinks need no locking of their own.
	progress := func(title string) {
		mu.Lock()
		defer mu.Unlock()
		completed++
		pct := pctFrom + (pctTo-pctFrom)*completed/total
		o.notify("review", pct, fmt.Sprintf("[%s] %s", phase, title))
	}

	if o.cfg.Workers <= 1 {
		for _, sec := range doc.Sections {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := loop.Revise(ctx, sec, o.cfg.MaxIterations, o.cfg.ConvergenceThreshold)
			if err != nil {
				return err
			}
			if !res.Converged {
				doc.AddHistory(fmt.Sprintf("phase %s: section %q did not converge", phase, sec.Title))
			}
			progress(sec.Title)
		}
		return nil
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(o.cfg.Workers)
	for _, sec := range doc.Sections {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := loop.Revise(gctx, sec, o.cfg.MaxIterations, o.cfg.ConvergenceThreshold)
			if err != nil {
				return err
			}
			if !res.Converged {
				mu.Lock()
				doc.AddHistory(fmt.Sprintf("phase %s: section %q did not converge", phase, sec.Title))
				mu.Unlock()
			}
			progress(sec.Title)
			return nil
		})
	}
	return eg.Wait()
}

func (o *Orchestrator) validate(ctx context.Context, doc *models.Document) error {
	validator := agents.NewValidator(o.gw, o.logger)
	for i, sec := range doc.Sections {
		if err := ctx.Err(); err != nil {
			return err
		}
		verdict, err := validator.Validate(ctx, sec, agents.Task{
			OriginalText: sec.OriginalContent,
			RevisedText:  sec.CurrentText(),
			Findings:     sec.AllFindings(),
		})
		if err != nil {
			return err
		}
		sec.Validation = verdict

		pct := pctPhases + (pctValidation-pctPhases)*(i+1)/len(doc.Sections)
		o.notify("validation", pct, sec.Title)
	}
	return nil
}

func (o *Orchestrator) consistency(ctx context.Context, doc *models.Document) (*parser.ConsistencyReport, error) {
	if len(doc.Sections) < 2 {
		o.logger.Info("single section, skipping consistency pass")
		return nil, nil
	}
	checker := agents.NewConsistencyChecker(o.gw, o.logger)
	rep, err := checker.Check(ctx, doc.Sections)
	if err != nil {
		return nil, err
	}
	doc.Consistency = rep.Summary
	doc.AddHistory(fmt.Sprintf("consistency: %d inconsistency(ies)", len(rep.Inconsistencies)))
	return rep, nil
}

func (o *Orchestrator) synthesize(ctx context.Context, doc *models.Document, phase agents.Phase) error {
	reviewer := agents.NewReviewer(o.gw, phase, o.cfg.Temperature, o.cfg.MaxTokens, o.logger)
	summary := map[string]any{
		"arquivo":        doc.Filename,
		"secoes":         len(doc.Sections),
		"total_erros":    doc.TotalFindings(),
		"erros_por_tipo": o.findingsByCategory(doc),
		"consistencia":   doc.Consistency,
		"status":         doc.Status,
	}
	text, err := reviewer.Synthesize(ctx, summary)
	if err != nil {
		return err
	}
	doc.Synthesis = text
	return nil
}

func (o *Orchestrator) renderReports(ctx context.Context, doc *models.Document, consistency *parser.ConsistencyReport, formats []string) (map[string]string, error) {
	if len(formats) == 0 {
		formats = []string{report.FormatMarkdown}
	}
	data := report.Data{
		Document:    doc,
		Consistency: consistency,
		Metrics:     o.gw.Metrics(),
	}

	paths := make(map[string]string, len(formats))
	for i, format := range formats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		renderer, err := report.ByFormat(format)
		if err != nil {
			return nil, err
		}
		rep, err := renderer.Render(data)
		if err != nil {
			return nil, err
		}
		path, err := report.Save(ctx, rep, o.cfg.OutputDir, o.logger)
		if err != nil {
			return nil, err
		}
		paths[renderer.Format()] = path

		pct := pctSynthesis + (pctReports-pctSynthesis)*(i+1)/len(formats)
		o.notify("reports", pct, path)
	}
	return paths, nil
}

func (o *Orchestrator) findingsByCategory(doc *models.Document) map[string]int {
	counts := make(map[string]int)
	for _, sec := range doc.Sections {
		for cat, n := range sec.FindingsByCategory() {
			counts[string(cat)] += n
		}
	}
	return counts
}

func (o *Orchestrator) metrics(doc *models.Document) map[string]any {
	m := map[string]any{"gateway": o.gw.Metrics()}
	if doc != nil {
		m["sections"] = len(doc.Sections)
		m["totalFindings"] = doc.TotalFindings()
		m["findingsByCategory"] = o.findingsByCategory(doc)
		m["progress"] = doc.Progress()
		m["status"] = string(doc.Status)
	}
	return m
}

func fileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
