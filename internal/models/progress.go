package models

// ProgressEvent is an ephemeral notification emitted while the pipeline runs.
// Percent is monotonically non-decreasing within a run and reaches 100 only
// on success.
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}
