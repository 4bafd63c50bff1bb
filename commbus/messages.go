// Package commbus provides CommBus Message Definitions.
//
// This module defines the message types published by the execution engine.
//
// Categories:
//   - EVENT: Fire-and-forget, fan-out to subscribers
//   - QUERY: Request-response, single handler
//   - COMMAND: Fire-and-forget, single handler
package commbus

// =============================================================================
// MESSAGE CATEGORIES
// =============================================================================

// MessageCategory represents message routing categories.
type MessageCategory string

const (
	// MessageCategoryEvent represents fire-and-forget, fan-out to all subscribers.
	MessageCategoryEvent MessageCategory = "event"
	// MessageCategoryQuery represents request-response, single handler.
	MessageCategoryQuery MessageCategory = "query"
	// MessageCategoryCommand represents fire-and-forget, single handler.
	MessageCategoryCommand MessageCategory = "command"
)

// =============================================================================
// EXECUTION LIFECYCLE EVENTS
// =============================================================================

// ExecutionStarted is emitted when the engine accepts a request.
// Subscribers: metrics, trace logging.
type ExecutionStarted struct {
	EnvelopeID  string         `json:"envelope_id"`
	Tool        string         `json:"tool"`
	UserRequest string         `json:"user_request"`
	Params      map[string]any `json:"params,omitempty"`
}

// Category implements the Message interface.
func (m *ExecutionStarted) Category() string { return string(MessageCategoryEvent) }

// ExecutionCompleted is emitted when the engine returns a terminal response.
// Subscribers: metrics, trace logging.
type ExecutionCompleted struct {
	EnvelopeID string  `json:"envelope_id"`
	Tool       string  `json:"tool"`
	Status     string  `json:"status"` // "success", "error", "validation_error", "pending_approval"
	Attempts   int     `json:"attempts"`
	DurationMS int     `json:"duration_ms"`
	Error      *string `json:"error,omitempty"`
}

// Category implements the Message interface.
func (m *ExecutionCompleted) Category() string { return string(MessageCategoryEvent) }

// ToolAttemptCompleted is emitted after every attempt, regardless of outcome.
type ToolAttemptCompleted struct {
	EnvelopeID  string  `json:"envelope_id"`
	Tool        string  `json:"tool"`
	Attempt     int     `json:"attempt"`
	Status      string  `json:"status"` // "success", "error", "exception"
	DurationMS  int     `json:"duration_ms"`
	PayloadSize int     `json:"payload_size"`
	Error       *string `json:"error,omitempty"`
}

// Category implements the Message interface.
func (m *ToolAttemptCompleted) Category() string { return string(MessageCategoryEvent) }

// GuardrailBreached is emitted when a guardrail ends the attempt loop early.
type GuardrailBreached struct {
	EnvelopeID string `json:"envelope_id"`
	Tool       string `json:"tool"`
	Reason     string `json:"reason"` // "max_payload_chars_exceeded", "max_duration_seconds_exceeded"
	Attempt    int    `json:"attempt"`
}

// Category implements the Message interface.
func (m *GuardrailBreached) Category() string { return string(MessageCategoryEvent) }

// =============================================================================
// FAILURE LEARNING EVENTS
// =============================================================================

// FailureAnalyzed is emitted when the failure analyzer produces a diagnosis.
type FailureAnalyzed struct {
	EnvelopeID string `json:"envelope_id"`
	Tool       string `json:"tool"`
	RootCause  string `json:"root_cause"`
	FixType    string `json:"fix_type"` // "code", "config", "documentation", "unknown"
	Recurrence int    `json:"recurrence"`
}

// Category implements the Message interface.
func (m *FailureAnalyzed) Category() string { return string(MessageCategoryEvent) }

// ProposalRegistered is emitted when a patch proposal enters the registry.
type ProposalRegistered struct {
	EnvelopeID string   `json:"envelope_id"`
	ProposalID string   `json:"proposal_id"`
	Tool       string   `json:"tool"`
	Summary    string   `json:"summary"`
	Confidence float64  `json:"confidence"`
	RiskLevel  string   `json:"risk_level"`
	Files      []string `json:"files,omitempty"`
}

// Category implements the Message interface.
func (m *ProposalRegistered) Category() string { return string(MessageCategoryEvent) }

// FixApplied is emitted when the auto-fix gate applies a proposal.
type FixApplied struct {
	ProposalID string `json:"proposal_id"`
	Tool       string `json:"tool"`
	Auto       bool   `json:"auto"`
	BackupDir  string `json:"backup_dir,omitempty"`
}

// Category implements the Message interface.
func (m *FixApplied) Category() string { return string(MessageCategoryEvent) }

// =============================================================================
// QUERIES
// =============================================================================

// GetProposalStatus queries the current status of a registered proposal.
type GetProposalStatus struct {
	ProposalID string `json:"proposal_id"`
}

// Category implements the Message interface.
func (m *GetProposalStatus) Category() string { return string(MessageCategoryQuery) }

// IsQuery implements the Query interface.
func (m *GetProposalStatus) IsQuery() {}

// ProposalStatusResponse is the response for GetProposalStatus.
type ProposalStatusResponse struct {
	Found  bool   `json:"found"`
	Status string `json:"status,omitempty"`
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// TypedMessage is an optional interface for messages that can provide their
// own type name. Useful for dynamically-typed messages.
type TypedMessage interface {
	Message
	MessageType() string
}

// GetMessageType returns the type name of a message for routing.
func GetMessageType(msg Message) string {
	// First check if the message can provide its own type
	if typed, ok := msg.(TypedMessage); ok {
		return typed.MessageType()
	}

	// Otherwise use the static type switch
	switch msg.(type) {
	case *ExecutionStarted:
		return "ExecutionStarted"
	case *ExecutionCompleted:
		return "ExecutionCompleted"
	case *ToolAttemptCompleted:
		return "ToolAttemptCompleted"
	case *GuardrailBreached:
		return "GuardrailBreached"
	case *FailureAnalyzed:
		return "FailureAnalyzed"
	case *ProposalRegistered:
		return "ProposalRegistered"
	case *FixApplied:
		return "FixApplied"
	case *GetProposalStatus:
		return "GetProposalStatus"
	default:
		return "Unknown"
	}
}
