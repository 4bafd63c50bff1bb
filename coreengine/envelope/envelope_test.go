package envelope

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jeeves-cluster-organization/selfheal/coreengine/contract"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/proposals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExecutionEnvelope(t *testing.T) {
	env := NewExecutionEnvelope("export the report", "csv_export", map[string]any{"path": "out.csv"})

	assert.True(t, strings.HasPrefix(env.EnvelopeID, "env_"))
	assert.Equal(t, "csv_export", env.Tool)
	assert.Equal(t, 0, env.Attempts)
	assert.Nil(t, env.CompletedAt)
	assert.NotNil(t, env.Metadata)
}

func TestNewExecutionEnvelope_NilParams(t *testing.T) {
	env := NewExecutionEnvelope("req", "tool", nil)
	assert.NotNil(t, env.Params)
}

func TestEnvelope_RecordAttemptAndComplete(t *testing.T) {
	env := NewExecutionEnvelope("req", "tool", nil)

	assert.Equal(t, 1, env.RecordAttempt())
	assert.Equal(t, 2, env.RecordAttempt())

	env.Complete(StatusSuccess)
	require.NotNil(t, env.CompletedAt)
	first := *env.CompletedAt

	// Second completion keeps the original timestamp.
	time.Sleep(5 * time.Millisecond)
	env.Complete(StatusError)
	assert.Equal(t, first, *env.CompletedAt)
	assert.Equal(t, StatusError, env.Status)
	assert.GreaterOrEqual(t, env.DurationMS(), 0)
}

// =============================================================================
// RESPONSE BUILDER TESTS
// =============================================================================

func testContract() *contract.ExecutionContract {
	return contract.Fallback("csv_export", map[string]any{"path": "out.csv"})
}

func TestSuccessResponse(t *testing.T) {
	resp := SuccessResponse(map[string]any{"x": 1}, testContract(), map[string]any{"attempts": 1}, 1)

	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, map[string]any{"x": 1}, resp["result"])
	assert.Equal(t, 1, resp["attempts"])
	assert.NotNil(t, resp["contract"])
	assert.NotNil(t, resp["telemetry_summary"])
}

func TestValidationErrorResponse(t *testing.T) {
	resp := ValidationErrorResponse([]string{"path", "format"}, testContract())

	assert.Equal(t, "validation_error", resp["status"])
	assert.Equal(t, 0, resp["attempts"])
	assert.Contains(t, resp["error"], "path, format")
	assert.Equal(t, []string{"path", "format"}, resp["missing_fields"])
}

func TestErrorResponse(t *testing.T) {
	resp := ErrorResponse("boom", BreachNone, testContract(), map[string]any{"attempts": 3}, 3)

	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, "boom", resp["error"])
	assert.Equal(t, 3, resp["attempts"])
	_, hasBreach := resp["breach_reason"]
	assert.False(t, hasBreach)
}

func TestErrorResponse_WithBreachReason(t *testing.T) {
	resp := ErrorResponse("payload too large", BreachPayloadSize, testContract(), nil, 1)
	assert.Equal(t, "max_payload_chars_exceeded", resp["breach_reason"])
}

func TestPendingApprovalResponse(t *testing.T) {
	p := &proposals.Proposal{
		ID:         "abc-123",
		Summary:    "add missing import",
		TestPlan:   "run the exporter",
		Confidence: 0.7,
		RiskLevel:  proposals.RiskLow,
		Files: []proposals.FileChange{
			{Path: "exporter.py", Operation: proposals.OpReplace, Search: "a", Replace: "b"},
		},
	}

	resp := PendingApprovalResponse(p, "boom", BreachDuration, testContract(), map[string]any{"attempts": 3}, 3)

	assert.Equal(t, "pending_approval", resp["status"])
	assert.Equal(t, "boom", resp["error"])
	assert.Equal(t, "max_duration_seconds_exceeded", resp["breach_reason"])

	prop, ok := resp["proposal"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "abc-123", prop["id"])
	assert.Equal(t, "add missing import", prop["summary"])
	assert.Equal(t, []string{"exporter.py"}, prop["files"])
	assert.Equal(t, "run the exporter", prop["test_plan"])
}

func TestResponsesSerializeToJSON(t *testing.T) {
	responses := []map[string]any{
		SuccessResponse(map[string]any{"x": 1}, testContract(), map[string]any{}, 1),
		ValidationErrorResponse([]string{"path"}, testContract()),
		ErrorResponse("boom", BreachPayloadSize, testContract(), map[string]any{}, 2),
	}
	for _, resp := range responses {
		_, err := json.Marshal(resp)
		assert.NoError(t, err)
	}
}
