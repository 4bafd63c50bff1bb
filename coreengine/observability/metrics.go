package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// EXECUTION METRICS
// =============================================================================

var (
	executionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "selfheal_executions_total",
			Help: "Total number of execution requests",
		},
		[]string{"tool", "status"}, // status: success, error, validation_error, pending_approval
	)

	executionDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "selfheal_execution_duration_seconds",
			Help:    "End-to-end execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 240},
		},
		[]string{"tool"},
	)

	attemptsPerExecution = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "selfheal_attempts_per_execution",
			Help:    "Number of tool attempts per execution request",
			Buckets: []float64{1, 2, 3, 4, 5, 10},
		},
		[]string{"tool"},
	)
)

// =============================================================================
// GUARDRAIL METRICS
// =============================================================================

var (
	guardrailBreachesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "selfheal_guardrail_breaches_total",
			Help: "Total number of guardrail breaches",
		},
		[]string{"tool", "reason"}, // reason: max_payload_chars_exceeded, max_duration_seconds_exceeded
	)
)

// =============================================================================
// ORACLE METRICS
// =============================================================================

var (
	oracleCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "selfheal_oracle_calls_total",
			Help: "Total number of oracle calls",
		},
		[]string{"call", "status"}, // call: build_contract, analyze_failure, propose_patch; status: success, error
	)

	oracleDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "selfheal_oracle_duration_seconds",
			Help:    "Oracle call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"call"},
	)
)

// =============================================================================
// PROPOSAL METRICS
// =============================================================================

var (
	proposalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "selfheal_proposals_total",
			Help: "Total number of registered patch proposals",
		},
		[]string{"risk_level", "status"}, // status: pending, auto_applied, applied
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// RecordExecution records execution metrics.
// This should be called after an execution request completes.
func RecordExecution(tool string, status string, attempts int, durationMS int) {
	executionsTotal.WithLabelValues(tool, status).Inc()
	executionDurationSeconds.WithLabelValues(tool).Observe(float64(durationMS) / 1000.0)
	attemptsPerExecution.WithLabelValues(tool).Observe(float64(attempts))
}

// RecordGuardrailBreach records a guardrail breach.
func RecordGuardrailBreach(tool string, reason string) {
	guardrailBreachesTotal.WithLabelValues(tool, reason).Inc()
}

// RecordOracleCall records oracle call metrics.
// This should be called after the oracle responds (or fails).
func RecordOracleCall(call string, status string, durationMS int) {
	oracleCallsTotal.WithLabelValues(call, status).Inc()
	oracleDurationSeconds.WithLabelValues(call).Observe(float64(durationMS) / 1000.0)
}

// RecordProposal records a proposal registration or status change.
func RecordProposal(riskLevel string, status string) {
	proposalsTotal.WithLabelValues(riskLevel, status).Inc()
}
