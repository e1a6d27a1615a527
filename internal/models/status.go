package models

// Status tracks the lifecycle of a document or section, from load to
// completion. Transitions only move forward except for an explicit cancel.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusRevising   Status = "revising"
	StatusValidating Status = "validating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Active reports whether the status indicates work in progress.
func (s Status) Active() bool {
	switch s {
	case StatusProcessing, StatusRevising, StatusValidating:
		return true
	}
	return false
}

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
