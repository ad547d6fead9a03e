package batch

import (
	"time"

	"vidbatch/internal/encoding"
)

// Phase is the lifecycle of a batch run.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
	PhaseCancelled Phase = "cancelled"
)

// State is a point-in-time copy of the controller's progress.
type State struct {
	BatchID         string          `json:"batch_id,omitempty"`
	Phase           Phase           `json:"phase"`
	Target          encoding.Target `json:"target"`
	Total           int             `json:"total"`
	Completed       int             `json:"completed"`
	Failed          int             `json:"failed"`
	CurrentFile     string          `json:"current_file,omitempty"`
	CurrentFileID   string          `json:"current_file_id,omitempty"`
	ProgressPercent float64         `json:"progress_percent"`
	Running         bool            `json:"running"`
	CancelRequested bool            `json:"cancel_requested"`
	StartedAt       time.Time       `json:"started_at,omitzero"`
	FinishedAt      time.Time       `json:"finished_at,omitzero"`
}

// Attempted is the number of files already handed to the encoder and
// finished, successfully or not.
func (s State) Attempted() int {
	return s.Completed + s.Failed
}

// Remaining counts files not yet attempted.
func (s State) Remaining() int {
	if left := s.Total - s.Attempted(); left > 0 {
		return left
	}
	return 0
}

func runningProgress(attempted, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(attempted) * 100 / float64(total)
}

func finalProgress(completed int) float64 {
	if completed >= 1 {
		return 100
	}
	return 0
}
