package models

import (
	"fmt"
	"strings"
	"time"
)

// Section is an independently revisable fragment of the source document,
// carrying its original content and the full revision history.
type Section struct {
	Title           string      `json:"title" firestore:"title"`
	OriginalContent string      `json:"originalContent" firestore:"originalContent"`
	PageStart       int         `json:"pageStart" firestore:"pageStart"`
	PageEnd         int         `json:"pageEnd" firestore:"pageEnd"`
	Level           int         `json:"level" firestore:"level"`
	Revisions       []*Revision `json:"revisions" firestore:"revisions"`
	// Validation holds the validator's verdict. It lives outside the
	// revision history so CurrentText keeps returning reviewer output.
	Validation string    `json:"validation,omitempty" firestore:"validation,omitempty"`
	Status     Status    `json:"status" firestore:"status"`
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"`
}

// NewSection validates and creates a section.
func NewSection(title, content string, pageStart, pageEnd, level int) (*Section, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("section title cannot be empty")
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("section %q: content cannot be empty", title)
	}
	if pageStart < 1 {
		return nil, fmt.Errorf("section %q: start page must be >= 1, got %d", title, pageStart)
	}
	if pageEnd < pageStart {
		return nil, fmt.Errorf("section %q: end page %d before start page %d", title, pageEnd, pageStart)
	}
	if level < 1 {
		return nil, fmt.Errorf("section %q: level must be >= 1, got %d", title, level)
	}
	return &Section{
		Title:           title,
		OriginalContent: content,
		PageStart:       pageStart,
		PageEnd:         pageEnd,
		Level:           level,
		Status:          StatusPending,
		CreatedAt:       time.Now(),
	}, nil
}

// AddRevision appends a revision to the history. A converged revision marks
// the section completed.
func (s *Section) AddRevision(r *Revision) {
	if r == nil {
		return
	}
	s.Revisions = append(s.Revisions, r)
	if r.Converged {
		s.Status = StatusCompleted
	}
}

// LastRevision returns the most recent revision, or nil.
func (s *Section) LastRevision() *Revision {
	if len(s.Revisions) == 0 {
		return nil
	}
	return s.Revisions[len(s.Revisions)-1]
}

// CurrentText returns the latest non-empty output text, falling back to the
// original content when the section was never revised.
func (s *Section) CurrentText() string {
	for i := len(s.Revisions) - 1; i >= 0; i-- {
		if s.Revisions[i].OutputText != "" {
			return s.Revisions[i].OutputText
		}
	}
	return s.OriginalContent
}

// AllFindings returns the distinct findings across every revision, keyed by
// (category, whitespace-collapsed snippet). The first occurrence wins, which
// keeps persistent problems from being counted once per iteration.
func (s *Section) AllFindings() []Finding {
	seen := make(map[string]struct{})
	var out []Finding
	for _, rev := range s.Revisions {
		for _, f := range rev.Findings {
			key := f.DedupKey()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// FindingsByCategory counts the deduplicated findings per category.
func (s *Section) FindingsByCategory() map[Category]int {
	counts := make(map[Category]int)
	for _, f := range s.AllFindings() {
		counts[f.Category]++
	}
	return counts
}

// Iterations is the number of recorded revisions.
func (s *Section) Iterations() int { return len(s.Revisions) }

// PageCount is the number of pages the section spans.
func (s *Section) PageCount() int { return s.PageEnd - s.PageStart + 1 }

// WordCount is an approximate word count of the original content.
func (s *Section) WordCount() int { return len(strings.Fields(s.OriginalContent)) }
