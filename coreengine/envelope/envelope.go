// Package envelope provides the per-request ExecutionEnvelope and the
// response maps returned at the engine boundary.
//
// Responses are plain map[string]any: the engine's callers speak JSON-shaped
// maps, and every terminal response carries the error (if any), the contract
// that governed the run, and a telemetry summary.
package envelope

import (
	"time"

	"github.com/google/uuid"
)

// ResponseStatus is the terminal status of one execution request.
type ResponseStatus string

const (
	// StatusSuccess indicates the tool ran and its validators passed.
	StatusSuccess ResponseStatus = "success"
	// StatusError indicates attempts exhausted, a guardrail breach, or a
	// terminal exception with no patch proposal.
	StatusError ResponseStatus = "error"
	// StatusValidationError indicates the payload failed contract validation
	// before any attempt ran.
	StatusValidationError ResponseStatus = "validation_error"
	// StatusPendingApproval indicates the run failed and a patch proposal
	// was queued for review.
	StatusPendingApproval ResponseStatus = "pending_approval"
)

// BreachReason names the guardrail that ended the attempt loop early.
type BreachReason string

const (
	// BreachNone means no guardrail fired.
	BreachNone BreachReason = ""
	// BreachPayloadSize means the serialized payload exceeded max_payload_chars.
	BreachPayloadSize BreachReason = "max_payload_chars_exceeded"
	// BreachDuration means elapsed wall-clock time exceeded max_duration_seconds.
	BreachDuration BreachReason = "max_duration_seconds_exceeded"
)

// ExecutionEnvelope is the per-request carrier threaded through the engine.
// One envelope per Execute call; never shared across requests.
type ExecutionEnvelope struct {
	EnvelopeID  string         `json:"envelope_id"`
	UserRequest string         `json:"user_request"`
	Tool        string         `json:"tool"`
	Params      map[string]any `json:"params"`
	Complexity  string         `json:"complexity,omitempty"`

	Attempts     int            `json:"attempts"`
	Status       ResponseStatus `json:"status"`
	BreachReason BreachReason   `json:"breach_reason,omitempty"`
	Error        string         `json:"error,omitempty"`

	ReceivedAt  time.Time  `json:"received_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewExecutionEnvelope creates an envelope for one request.
func NewExecutionEnvelope(userRequest, tool string, params map[string]any) *ExecutionEnvelope {
	if params == nil {
		params = map[string]any{}
	}
	return &ExecutionEnvelope{
		EnvelopeID:  "env_" + uuid.New().String()[:16],
		UserRequest: userRequest,
		Tool:        tool,
		Params:      params,
		ReceivedAt:  time.Now().UTC(),
		Metadata:    map[string]any{},
	}
}

// RecordAttempt increments the attempt counter and returns the new index.
func (e *ExecutionEnvelope) RecordAttempt() int {
	e.Attempts++
	return e.Attempts
}

// Complete stamps the terminal status and completion time. Calling it twice
// keeps the first completion time.
func (e *ExecutionEnvelope) Complete(status ResponseStatus) {
	e.Status = status
	if e.CompletedAt == nil {
		now := time.Now().UTC()
		e.CompletedAt = &now
	}
}

// DurationMS is the wall-clock time from receipt to completion, or to now
// for an in-flight envelope.
func (e *ExecutionEnvelope) DurationMS() int {
	end := time.Now().UTC()
	if e.CompletedAt != nil {
		end = *e.CompletedAt
	}
	return int(end.Sub(e.ReceivedAt).Milliseconds())
}
