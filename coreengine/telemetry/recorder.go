// Package telemetry holds the engine's shared execution history: per-attempt
// records, rolling memory snapshots, failure recurrence counts, and advisory
// recommendations. Every store is safe for concurrent use; requests may be
// fanned out by an outer worker pool.
package telemetry

import (
	"sync"
	"time"
)

// Status is the outcome of a single attempt.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusException Status = "exception"
)

// StatusFromString converts a string to Status, defaulting to error.
func StatusFromString(s string) Status {
	switch s {
	case "success":
		return StatusSuccess
	case "error":
		return StatusError
	case "exception":
		return StatusException
	default:
		return StatusError
	}
}

// Record is one attempt's outcome metrics.
type Record struct {
	Timestamp   time.Time `json:"timestamp"`
	Tool        string    `json:"tool"`
	Attempt     int       `json:"attempt"`
	DurationMS  int       `json:"duration_ms"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	PayloadSize int       `json:"payload_size"`
}

// Recorder is an append-only, capped ring buffer of attempt records.
type Recorder struct {
	mu      sync.Mutex
	records []Record
	cap     int
}

// NewRecorder creates a Recorder. A non-positive capacity selects 200.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = 200
	}
	return &Recorder{cap: capacity}
}

// Append adds a record, evicting the oldest when the buffer is full.
func (r *Recorder) Append(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, rec)
	if len(r.records) > r.cap {
		r.records = r.records[len(r.records)-r.cap:]
	}
}

// Recent returns up to n most recent records, oldest first.
func (r *Recorder) Recent(n int) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || n > len(r.records) {
		n = len(r.records)
	}
	out := make([]Record, n)
	copy(out, r.records[len(r.records)-n:])
	return out
}

// Len returns the number of buffered records.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Summary aggregates a slice of records for a response envelope.
type Summary struct {
	Attempts        int `json:"attempts"`
	TotalDurationMS int `json:"total_duration_ms"`
	ErrorCount      int `json:"error_count"`
}

// Summarize aggregates records, typically one request's attempts.
func Summarize(records []Record) Summary {
	s := Summary{Attempts: len(records)}
	for _, rec := range records {
		s.TotalDurationMS += rec.DurationMS
		if rec.Status != StatusSuccess {
			s.ErrorCount++
		}
	}
	return s
}

// ToMap converts the summary to a map for JSON envelopes.
func (s Summary) ToMap() map[string]any {
	return map[string]any{
		"attempts":          s.Attempts,
		"total_duration_ms": s.TotalDurationMS,
		"error_count":       s.ErrorCount,
	}
}
