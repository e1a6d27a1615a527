package models

import "time"

// Revision records one iteration of an agent over a section: what went in,
// what came out, and every finding and correction the agent reported.
// Once Finalize is called the timestamps are fixed.
type Revision struct {
	Iteration   int          `json:"iteration" firestore:"iteration"`
	InputText   string       `json:"inputText" firestore:"inputText"`
	OutputText  string       `json:"outputText" firestore:"outputText"`
	Findings    []Finding    `json:"findings" firestore:"findings"`
	Corrections []Correction `json:"corrections" firestore:"corrections"`
	Agent       string       `json:"agent" firestore:"agent"`
	Converged   bool         `json:"converged" firestore:"converged"`
	TokensIn    int          `json:"tokensIn" firestore:"tokensIn"`
	TokensOut   int          `json:"tokensOut" firestore:"tokensOut"`
	Elapsed     float64      `json:"elapsedSeconds" firestore:"elapsedSeconds"`
	StartedAt   time.Time    `json:"startedAt" firestore:"startedAt"`
	FinishedAt  time.Time    `json:"finishedAt,omitempty" firestore:"finishedAt,omitempty"`
}

// NewRevision starts a revision for the given iteration and input text.
func NewRevision(iteration int, inputText, agent string) *Revision {
	return &Revision{
		Iteration: iteration,
		InputText: inputText,
		Agent:     agent,
		StartedAt: time.Now(),
	}
}

// AddFinding appends a finding reported in this revision.
func (r *Revision) AddFinding(f Finding) {
	r.Findings = append(r.Findings, f)
}

// AddCorrection appends a proposed correction.
func (r *Revision) AddCorrection(c Correction) {
	r.Corrections = append(r.Corrections, c)
}

// Finalize stamps the finish time and wall-clock duration.
func (r *Revision) Finalize() {
	r.FinishedAt = time.Now()
	r.Elapsed = r.FinishedAt.Sub(r.StartedAt).Seconds()
}

// FindingCount returns the number of findings in this revision.
func (r *Revision) FindingCount() int { return len(r.Findings) }

// TotalTokens returns input plus output tokens consumed by this revision.
func (r *Revision) TotalTokens() int { return r.TokensIn + r.TokensOut }

// Finalized reports whether Finalize has been called.
func (r *Revision) Finalized() bool { return !r.FinishedAt.IsZero() }
