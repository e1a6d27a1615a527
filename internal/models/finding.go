package models

import (
	"strings"
	"time"
)

// Category classifies a finding reported by a revision agent.
type Category string

const (
	CategoryGrammatical Category = "grammatical"
	CategoryTechnical   Category = "technical"
	CategoryLegal       Category = "legal"
	CategoryFormatting  Category = "formatting"
	CategoryConsistency Category = "consistency"
	CategoryReference   Category = "reference"
	CategoryNumeric     Category = "numeric"
	CategoryLogical     Category = "logical"
	CategoryOmission    Category = "omission"
	CategoryOther       Category = "other"
)

// Acceptance is the reviewer's verdict on a finding. Findings start pending;
// a human reviewer flips them outside this pipeline.
type Acceptance string

const (
	AcceptancePending  Acceptance = "pending"
	AcceptanceAccepted Acceptance = "accepted"
	AcceptanceRejected Acceptance = "rejected"
)

// Finding is a single problem an agent reported in a section, with the
// offending snippet and a suggested fix.
type Finding struct {
	Category    Category   `json:"category" firestore:"category"`
	Description string     `json:"description" firestore:"description"`
	Snippet     string     `json:"snippet" firestore:"snippet"`
	Suggestion  string     `json:"suggestion" firestore:"suggestion"`
	Severity    int        `json:"severity" firestore:"severity"`
	Confidence  float64    `json:"confidence" firestore:"confidence"`
	Agent       string     `json:"agent" firestore:"agent"`
	Acceptance  Acceptance `json:"acceptance" firestore:"acceptance"`
	DetectedAt  time.Time  `json:"detectedAt" firestore:"detectedAt"`
}

// DedupKey identifies a finding across revisions. Two findings with the same
// category and whitespace-collapsed snippet count as one.
func (f Finding) DedupKey() string {
	return string(f.Category) + "|" + strings.Join(strings.Fields(f.Snippet), " ")
}

// Correction is a proposed text change paired with a finding at creation
// time. Applied tracks whether it was folded into the revised text.
type Correction struct {
	Original      string `json:"original" firestore:"original"`
	Corrected     string `json:"corrected" firestore:"corrected"`
	Justification string `json:"justification" firestore:"justification"`
	Agent         string `json:"agent" firestore:"agent"`
	Applied       bool   `json:"applied" firestore:"applied"`
}
