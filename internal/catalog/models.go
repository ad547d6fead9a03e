package catalog

import (
	"fmt"
	"math"
	"time"
)

// Status represents the lifecycle of a discovered source file.
type Status string

const (
	StatusDiscovered  Status = "discovered"
	StatusProbing     Status = "probing"
	StatusReady       Status = "ready"
	StatusProbeFailed Status = "probe_failed"
	StatusError       Status = "error"
)

// UnknownDuration is the duration label shown when metadata could not be read.
const UnknownDuration = "unknown"

// statusRank orders statuses; transitions must strictly increase the rank.
// Ready and ProbeFailed share a rank so neither can replace the other.
var statusRank = map[Status]int{
	StatusDiscovered:  0,
	StatusProbing:     1,
	StatusReady:       2,
	StatusProbeFailed: 2,
	StatusError:       3,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanAdvanceTo reports whether a file in status s may move to next.
func (s Status) CanAdvanceTo(next Status) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// SourceFile is one discovered video and its probed metadata.
type SourceFile struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Path            string    `json:"path"`
	SizeBytes       int64     `json:"size_bytes"`
	DurationSeconds float64   `json:"duration_seconds"`
	Duration        string    `json:"duration"`
	FPS             float64   `json:"fps"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	Status          Status    `json:"status"`
	Error           string    `json:"error,omitempty"`
	DiscoveredAt    time.Time `json:"discovered_at"`
}

// Resolution renders the probed frame size, or an empty string when unknown.
func (f SourceFile) Resolution() string {
	if f.Width <= 0 || f.Height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", f.Width, f.Height)
}

// FormatDuration renders seconds as HH:MM:SS from the truncated integer
// second count. Negative, NaN and infinite inputs yield UnknownDuration.
func FormatDuration(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return UnknownDuration
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
