package envelope

import (
	"fmt"
	"strings"

	"github.com/jeeves-cluster-organization/selfheal/coreengine/contract"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/proposals"
)

// =============================================================================
// RESPONSE BUILDERS
// =============================================================================

// SuccessResponse builds the terminal response for a validated success.
func SuccessResponse(result map[string]any, c *contract.ExecutionContract, telemetrySummary map[string]any, attempts int) map[string]any {
	return map[string]any{
		"status":            string(StatusSuccess),
		"result":            result,
		"contract":          c,
		"telemetry_summary": telemetrySummary,
		"attempts":          attempts,
	}
}

// ValidationErrorResponse builds the response for a payload that failed
// contract validation. No attempt ran, so attempts is always zero.
func ValidationErrorResponse(missing []string, c *contract.ExecutionContract) map[string]any {
	return map[string]any{
		"status":         string(StatusValidationError),
		"error":          fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")),
		"missing_fields": missing,
		"contract":       c,
		"attempts":       0,
	}
}

// ErrorResponse builds the terminal failure response when no patch proposal
// could be produced. A non-empty reason records the guardrail that fired.
func ErrorResponse(errText string, reason BreachReason, c *contract.ExecutionContract, telemetrySummary map[string]any, attempts int) map[string]any {
	resp := map[string]any{
		"status":            string(StatusError),
		"error":             errText,
		"contract":          c,
		"telemetry_summary": telemetrySummary,
		"attempts":          attempts,
	}
	if reason != BreachNone {
		resp["breach_reason"] = string(reason)
	}
	return resp
}

// PendingApprovalResponse builds the terminal failure response when a patch
// proposal was registered and queued for human review.
func PendingApprovalResponse(p *proposals.Proposal, errText string, reason BreachReason, c *contract.ExecutionContract, telemetrySummary map[string]any, attempts int) map[string]any {
	resp := ErrorResponse(errText, reason, c, telemetrySummary, attempts)
	resp["status"] = string(StatusPendingApproval)
	resp["proposal"] = map[string]any{
		"id":         p.ID,
		"summary":    p.Summary,
		"files":      p.Plan().Paths(),
		"test_plan":  p.TestPlan,
		"confidence": p.Confidence,
		"risk_level": string(p.RiskLevel),
		"status":     string(p.Status),
	}
	return resp
}
