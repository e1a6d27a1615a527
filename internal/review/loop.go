// Package review drives the iterative revision of a single section until
// the finding count converges or the iteration budget runs out.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/demusis/rev-textos/internal/agents"
	"github.com/demusis/rev-textos/internal/models"
)

const (
	DefaultMaxIterations = 5
	DefaultThreshold     = 0.95
)

// Result summarizes one section's revision.
type Result struct {
	FinalText          string
	Iterations         int
	Converged          bool
	FindingsByCategory map[models.Category]int
}

// Loop runs one agent repeatedly over a section.
type Loop struct {
	agent  agents.Agent
	logger *slog.Logger
}

func NewLoop(agent agents.Agent, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{agent: agent, logger: logger}
}

// Revise iterates the agent over the section. An unusable model response
// spends its iteration without advancing the text or the error baseline.
// Exhausting the budget without convergence is reported, not failed. Gateway
// failures and cancellation abort the loop.
func (l *Loop) Revise(ctx context.Context, section *models.Section, maxIterations int, threshold float64) (*Result, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}

	log := l.logger.With("agent", l.agent.Name(), "section", section.Title)
	log.Info("section revision started", "maxIterations", maxIterations, "threshold", threshold)
	section.Status = models.StatusRevising

	currentText := section.OriginalContent
	previousErrors := 0
	hasConverged := false
	iterations := 0

	for i := 1; i <= maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		iterations = i

		revision, err := l.agent.Process(ctx, section, agents.Task{InputText: currentText})
		if err != nil {
			var rerr *agents.ResponseError
			if errors.As(err, &rerr) {
				log.Warn("iteration spent on unusable response", "iteration", i, "error", err)
				continue
			}
			return nil, fmt.Errorf("section %q iteration %d: %w", section.Title, i, err)
		}

		revision.Iteration = i
		revision.InputText = currentText

		currentErrors := revision.FindingCount()
		log.Info("iteration finished",
			"iteration", i, "findings", currentErrors, "previous", previousErrors)

		hasConverged = converged(previousErrors, currentErrors, threshold)
		if hasConverged {
			revision.Converged = true
			section.AddRevision(revision)
			log.Info("convergence reached", "iterations", i)
			break
		}
		section.AddRevision(revision)

		if revision.OutputText != "" {
			currentText = revision.OutputText
		}
		previousErrors = currentErrors
	}

	if !hasConverged {
		log.Warn("iteration budget exhausted without convergence", "iterations", iterations)
	}
	section.Status = models.StatusCompleted

	return &Result{
		FinalText:          section.CurrentText(),
		Iterations:         iterations,
		Converged:          hasConverged,
		FindingsByCategory: section.FindingsByCategory(),
	}, nil
}

// converged decides whether the finding counts of two consecutive iterations
// indicate the text has stabilized. Zero findings always converge; a first
// appearance of findings never does; otherwise the proportional reduction
// must have fallen below the threshold's complement.
func converged(previous, current int, threshold float64) bool {
	if current == 0 {
		return true
	}
	if previous == 0 {
		return false
	}
	reduction := 1.0 - float64(current)/float64(previous)
	return reduction < (1.0 - threshold)
}
