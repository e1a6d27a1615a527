package models

import (
	"fmt"
	"time"
)

// HistoryEntry records one lifecycle event on a document.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
	Event     string    `json:"event" firestore:"event"`
	From      string    `json:"from,omitempty" firestore:"from,omitempty"`
	To        string    `json:"to,omitempty" firestore:"to,omitempty"`
}

// ModelInfo identifies the provider and model that revised a document.
type ModelInfo struct {
	Provider string `json:"provider" firestore:"provider"`
	Model    string `json:"model" firestore:"model"`
}

// Document is the aggregate root: the source file, its sections and the
// accumulated processing history. It is created at load time, mutated by the
// pipeline and persisted once completed.
type Document struct {
	Path        string         `json:"path" firestore:"path"`
	Filename    string         `json:"filename" firestore:"filename"`
	FileHash    string         `json:"fileHash" firestore:"fileHash"`
	SizeBytes   int64          `json:"sizeBytes" firestore:"sizeBytes"`
	PageCount   int            `json:"pageCount" firestore:"pageCount"`
	Status      Status         `json:"status" firestore:"status"`
	Sections    []*Section     `json:"sections" firestore:"sections"`
	History     []HistoryEntry `json:"history" firestore:"history"`
	Model       ModelInfo      `json:"model" firestore:"model"`
	Synthesis   string         `json:"synthesis,omitempty" firestore:"synthesis,omitempty"`
	Consistency string         `json:"consistency,omitempty" firestore:"consistency,omitempty"`
	LoadedAt    time.Time      `json:"loadedAt" firestore:"loadedAt"`

	titles map[string]struct{}
}

// NewDocument creates a pending document for the given source file.
func NewDocument(path, filename, fileHash string, sizeBytes int64, pageCount int) *Document {
	return &Document{
		Path:      path,
		Filename:  filename,
		FileHash:  fileHash,
		SizeBytes: sizeBytes,
		PageCount: pageCount,
		Status:    StatusPending,
		LoadedAt:  time.Now(),
		titles:    make(map[string]struct{}),
	}
}

// AddSection appends a section, rejecting duplicate titles.
func (d *Document) AddSection(s *Section) error {
	if s == nil {
		return fmt.Errorf("section cannot be nil")
	}
	if d.titles == nil {
		d.titles = make(map[string]struct{}, len(d.Sections))
		for _, existing := range d.Sections {
			d.titles[existing.Title] = struct{}{}
		}
	}
	if _, ok := d.titles[s.Title]; ok {
		return fmt.Errorf("duplicate section title: %q", s.Title)
	}
	d.titles[s.Title] = struct{}{}
	d.Sections = append(d.Sections, s)
	return nil
}

// SectionByTitle returns the section with the given title, or nil.
func (d *Document) SectionByTitle(title string) *Section {
	for _, s := range d.Sections {
		if s.Title == title {
			return s
		}
	}
	return nil
}

// UpdateStatus moves the document to a new status and records the transition.
func (d *Document) UpdateStatus(status Status) {
	prev := d.Status
	d.Status = status
	d.History = append(d.History, HistoryEntry{
		Timestamp: time.Now(),
		Event:     "status_change",
		From:      string(prev),
		To:        string(status),
	})
}

// AddHistory appends a free-form event to the document history.
func (d *Document) AddHistory(event string) {
	d.History = append(d.History, HistoryEntry{Timestamp: time.Now(), Event: event})
}

// TotalFindings sums the deduplicated findings over all sections.
func (d *Document) TotalFindings() int {
	total := 0
	for _, s := range d.Sections {
		total += len(s.AllFindings())
	}
	return total
}

// Progress is the fraction of completed sections, as a percentage.
func (d *Document) Progress() float64 {
	if len(d.Sections) == 0 {
		return 0
	}
	done := 0
	for _, s := range d.Sections {
		if s.Status == StatusCompleted {
			done++
		}
	}
	return float64(done) / float64(len(d.Sections)) * 100
}
