// Package executor implements the self-healing execution engine.
//
// One Execute call drives the full state machine: negotiate a contract,
// validate the payload, run the guarded attempt loop with ground-truth
// validation, and on terminal failure turn the failure context into a scored
// patch proposal routed through the auto-fix gate.
//
// Execute is safe for concurrent callers. Per-request state lives on the
// stack; the shared stores (telemetry ring, failure history, memory window,
// recommendation list) are mutex-guarded internally.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jeeves-cluster-organization/selfheal/commbus"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/analysis"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/autofix"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/config"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/contract"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/envelope"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/observability"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/proposals"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/telemetry"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/typeutil"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/validators"
)

var tracer = otel.Tracer("selfheal/executor")

// ToolCallback is the port through which the engine invokes tools.
// The returned map carries {"status": "success"|"error", "result"?, "error"?};
// a non-nil error (or a panic inside Execute) counts as an exception.
type ToolCallback interface {
	Execute(ctx context.Context, toolName string, payload map[string]any) (map[string]any, error)
}

// Logger is the interface for logging.
type Logger interface {
	Info(msg string, fields ...any)
	Debug(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// Request is one execution request.
type Request struct {
	UserRequest string
	Tool        string
	Params      map[string]any

	// Complexity is the upstream complexity classification
	// (simple, moderate, complex, very_complex). Optional.
	Complexity string
}

// Deps are the collaborators injected into the Engine.
type Deps struct {
	Builder    *contract.Builder
	Analyzer   *analysis.Analyzer
	Proposer   *proposals.Proposer
	Scorer     *proposals.Scorer
	Gate       *autofix.Gate
	Registry   proposals.Registry
	Validators *validators.Registry
	Callback   ToolCallback

	ConfigProvider config.ConfigProvider
	Logger         Logger

	// Shared stores. Nil values get fresh defaults.
	Recorder        *telemetry.Recorder
	Memory          *telemetry.MemoryStore
	Recommendations *telemetry.RecommendationStore

	// Bus is optional; a nil bus disables event publishing.
	Bus commbus.CommBus
}

// Engine is the self-healing execution engine.
type Engine struct {
	deps Deps
}

// NewEngine creates an Engine. Nil shared stores are replaced with defaults
// sized from the engine config.
func NewEngine(deps Deps) *Engine {
	cfg := deps.ConfigProvider.GetEngineConfig()
	if deps.Recorder == nil {
		deps.Recorder = telemetry.NewRecorder(cfg.TelemetryBufferSize)
	}
	if deps.Memory == nil {
		deps.Memory = telemetry.NewMemoryStore(cfg.MemoryWindowSize)
	}
	if deps.Recommendations == nil {
		deps.Recommendations = telemetry.NewRecommendationStore(0)
	}
	return &Engine{deps: deps}
}

// Recommendations lists the advisory suggestions accumulated so far.
func (e *Engine) Recommendations() []telemetry.Recommendation {
	return e.deps.Recommendations.List()
}

// Telemetry returns the most recent attempt records, newest last.
// n <= 0 returns everything the ring still holds.
func (e *Engine) Telemetry(n int) []telemetry.Record {
	return e.deps.Recorder.Recent(n)
}

// Execute runs one request end to end and returns the terminal response.
// Expected operational outcomes (tool errors, validator issues, guardrail
// breaches) become structured responses; only attempt-level panics are
// caught, and those become "exception" telemetry rather than escaping.
func (e *Engine) Execute(ctx context.Context, req Request) map[string]any {
	ctx, span := tracer.Start(ctx, "engine.execute")
	defer span.End()
	span.SetAttributes(attribute.String("tool", req.Tool))

	env := envelope.NewExecutionEnvelope(req.UserRequest, req.Tool, req.Params)
	env.Complexity = req.Complexity

	e.deps.Logger.Info("execution_started",
		"envelope_id", env.EnvelopeID,
		"tool", req.Tool,
	)
	e.publish(ctx, &commbus.ExecutionStarted{
		EnvelopeID:  env.EnvelopeID,
		Tool:        req.Tool,
		UserRequest: req.UserRequest,
		Params:      req.Params,
	})

	cfg := e.deps.ConfigProvider.GetEngineConfig()

	// BUILD_CONTRACT: never fails, falls back deterministically.
	c := e.deps.Builder.Build(ctx, contract.BuildRequest{
		UserRequest:  req.UserRequest,
		Tool:         req.Tool,
		Params:       req.Params,
		Complexity:   req.Complexity,
		RecentMemory: e.deps.Memory.RecentForTool(req.Tool, 5),
	})
	guard := contract.Derive(c, contract.DefaultGuardrails(cfg))

	// VALIDATE_PAYLOAD: zero attempts and no patch on a gap.
	payload := c.FinalPayload(req.Params)
	if missing := c.MissingRequiredFields(payload); len(missing) > 0 {
		env.Complete(envelope.StatusValidationError)
		e.deps.Logger.Warn("payload_validation_failed",
			"envelope_id", env.EnvelopeID,
			"tool", req.Tool,
			"missing_fields", strings.Join(missing, ", "),
		)
		e.finish(ctx, env, "")
		return envelope.ValidationErrorResponse(missing, c)
	}

	run := e.runAttempts(ctx, env, guard, payload)

	if run.success {
		return e.finalizeSuccess(ctx, env, c, guard, run)
	}
	return e.finalizeFailure(ctx, env, c, run, payload)
}

// attemptRun is the outcome of the attempt loop.
type attemptRun struct {
	success  bool
	result   map[string]any
	lastErr  string
	breach   envelope.BreachReason
	analysis map[string]any
	records  []telemetry.Record
}

// =============================================================================
// ATTEMPT LOOP
// =============================================================================

func (e *Engine) runAttempts(ctx context.Context, env *envelope.ExecutionEnvelope, guard contract.Guardrails, payload map[string]any) *attemptRun {
	run := &attemptRun{}

	payloadBytes, _ := json.Marshal(payload)
	payloadSize := len(payloadBytes)
	loopStart := time.Now()

	for attempt := 1; attempt <= guard.MaxAttempts; attempt++ {
		env.RecordAttempt()
		lastAttempt := attempt == guard.MaxAttempts

		attemptStart := time.Now()
		status, result, errText := e.invoke(ctx, env.Tool, payload)
		durationMS := int(time.Since(attemptStart).Milliseconds())

		// Telemetry is recorded for every attempt, whatever the outcome.
		rec := telemetry.Record{
			Timestamp:   time.Now().UTC(),
			Tool:        env.Tool,
			Attempt:     attempt,
			DurationMS:  durationMS,
			Status:      status,
			Error:       errText,
			PayloadSize: payloadSize,
		}
		e.deps.Recorder.Append(rec)
		run.records = append(run.records, rec)
		e.publish(ctx, &commbus.ToolAttemptCompleted{
			EnvelopeID:  env.EnvelopeID,
			Tool:        env.Tool,
			Attempt:     attempt,
			Status:      string(status),
			DurationMS:  durationMS,
			PayloadSize: payloadSize,
			Error:       optional(errText),
		})

		// Payload-size guardrail ends the loop regardless of outcome or
		// remaining attempts.
		if payloadSize > guard.MaxPayloadChars {
			run.lastErr = fmt.Sprintf("payload size %d exceeds guardrail %d", payloadSize, guard.MaxPayloadChars)
			run.breach = envelope.BreachPayloadSize
			e.breached(ctx, env, run.breach, attempt)
			return run
		}

		switch status {
		case telemetry.StatusSuccess:
			issues := e.deps.Validators.Validate(env.Tool, result)
			if len(issues) == 0 {
				run.success = true
				run.result = result
				return run
			}
			// Validator issues fail this attempt like a tool error.
			run.lastErr = "validator issues: " + strings.Join(issues, "; ")
			e.analyzeFailure(ctx, env, run, lastAttempt, payload)

		case telemetry.StatusException:
			// Exceptions retry without diagnosis; a last-attempt exception
			// is terminal and skips the alternative-approach advisory.
			run.lastErr = errText

		default:
			run.lastErr = errText
			e.analyzeFailure(ctx, env, run, lastAttempt, payload)
		}

		if time.Since(loopStart) > guard.MaxDuration() {
			run.breach = envelope.BreachDuration
			e.breached(ctx, env, run.breach, attempt)
			return run
		}
	}

	return run
}

// invoke runs one tool callback, normalizing the three outcomes. A panic or
// a transport error counts as an exception.
func (e *Engine) invoke(ctx context.Context, tool string, payload map[string]any) (status telemetry.Status, result map[string]any, errText string) {
	defer func() {
		if r := recover(); r != nil {
			status = telemetry.StatusException
			result = nil
			errText = fmt.Sprintf("%v", r)
		}
	}()

	res, err := e.deps.Callback.Execute(ctx, tool, payload)
	if err != nil {
		return telemetry.StatusException, nil, err.Error()
	}

	status = telemetry.StatusFromString(typeutil.SafeStringDefault(res["status"], "error"))
	if status == telemetry.StatusSuccess {
		return status, typeutil.SafeMapStringAnyDefault(res["result"], map[string]any{}), ""
	}
	errText = typeutil.SafeStringDefault(res["error"], "tool returned non-success status")
	return telemetry.StatusError, nil, errText
}

// analyzeFailure runs the non-blocking diagnosis for a failed attempt and,
// on the final attempt, asks for an alternative-approach suggestion.
func (e *Engine) analyzeFailure(ctx context.Context, env *envelope.ExecutionEnvelope, run *attemptRun, lastAttempt bool, payload map[string]any) {
	execContext := map[string]any{
		"user_request": env.UserRequest,
		"payload":      payload,
		"attempt":      env.Attempts,
	}

	result := e.deps.Analyzer.Analyze(ctx, env.Tool, run.lastErr, execContext)
	run.analysis = result.ToMap()
	e.publish(ctx, &commbus.FailureAnalyzed{
		EnvelopeID: env.EnvelopeID,
		Tool:       env.Tool,
		RootCause:  result.RootCause,
		FixType:    string(result.FixType),
		Recurrence: result.Recurrence,
	})

	// A config-class failure with attempts remaining retries immediately.
	if result.FixType == analysis.FixTypeConfig && !lastAttempt {
		e.deps.Logger.Debug("config_fix_retry",
			"envelope_id", env.EnvelopeID,
			"tool", env.Tool,
		)
		return
	}

	if lastAttempt {
		if alt := e.deps.Analyzer.SuggestAlternative(ctx, env.Tool, run.lastErr, execContext); alt != "" {
			e.deps.Recommendations.Append(telemetry.Recommendation{
				Timestamp: time.Now().UTC(),
				Tool:      env.Tool,
				Kind:      telemetry.RecommendationAlternative,
				Text:      alt,
			})
		}
	}
}

func (e *Engine) breached(ctx context.Context, env *envelope.ExecutionEnvelope, reason envelope.BreachReason, attempt int) {
	env.BreachReason = reason
	e.deps.Logger.Warn("guardrail_breached",
		"envelope_id", env.EnvelopeID,
		"tool", env.Tool,
		"reason", string(reason),
		"attempt", attempt,
	)
	observability.RecordGuardrailBreach(env.Tool, string(reason))
	e.publish(ctx, &commbus.GuardrailBreached{
		EnvelopeID: env.EnvelopeID,
		Tool:       env.Tool,
		Reason:     string(reason),
		Attempt:    attempt,
	})
}

// =============================================================================
// FINALIZATION
// =============================================================================

func (e *Engine) finalizeSuccess(ctx context.Context, env *envelope.ExecutionEnvelope, c *contract.ExecutionContract, guard contract.Guardrails, run *attemptRun) map[string]any {
	env.Complete(envelope.StatusSuccess)
	durationMS := env.DurationMS()

	resultJSON, _ := json.Marshal(run.result)
	e.deps.Memory.Append(telemetry.MemorySnapshot{
		Timestamp:  time.Now().UTC(),
		Request:    env.UserRequest,
		Tool:       env.Tool,
		Status:     telemetry.StatusSuccess,
		Result:     string(resultJSON),
		Intent:     c.Intent,
		Attempts:   env.Attempts,
		DurationMS: durationMS,
	})

	// Proactive enhancement advisory: near the duration ceiling, or flagged
	// complex by upstream analysis.
	slow := float64(durationMS) > 0.8*float64(guard.MaxDurationSeconds)*1000
	flagged := env.Complexity == "complex" || env.Complexity == "very_complex"
	if slow || flagged {
		if idea := e.deps.Analyzer.SuggestEnhancement(ctx, env.Tool, c.Intent, durationMS); idea != "" {
			e.deps.Recommendations.Append(telemetry.Recommendation{
				Timestamp: time.Now().UTC(),
				Tool:      env.Tool,
				Kind:      telemetry.RecommendationEnhancement,
				Text:      idea,
			})
		}
	}

	e.finish(ctx, env, "")
	summary := telemetry.Summarize(run.records).ToMap()
	return envelope.SuccessResponse(run.result, c, summary, env.Attempts)
}

func (e *Engine) finalizeFailure(ctx context.Context, env *envelope.ExecutionEnvelope, c *contract.ExecutionContract, run *attemptRun, payload map[string]any) map[string]any {
	env.Error = run.lastErr

	e.deps.Memory.Append(telemetry.MemorySnapshot{
		Timestamp:  time.Now().UTC(),
		Request:    env.UserRequest,
		Tool:       env.Tool,
		Status:     telemetry.StatusError,
		Intent:     c.Intent,
		Attempts:   env.Attempts,
		DurationMS: env.DurationMS(),
		Notes:      run.lastErr,
	})

	summary := telemetry.Summarize(run.records).ToMap()

	// Best-effort patch proposal from the failure context.
	plan := e.deps.Proposer.Propose(ctx, proposals.ProposeRequest{
		Trigger:     "execution_failure",
		UserRequest: env.UserRequest,
		Tool:        env.Tool,
		Error:       run.lastErr,
		Analysis:    run.analysis,
		Context: map[string]any{
			"payload":  payload,
			"attempts": env.Attempts,
		},
	})
	if plan == nil {
		env.Complete(envelope.StatusError)
		e.finish(ctx, env, run.lastErr)
		return envelope.ErrorResponse(run.lastErr, run.breach, c, summary, env.Attempts)
	}

	registered, err := e.deps.Registry.RegisterProposal(ctx, &proposals.Proposal{
		Trigger:     "execution_failure",
		UserRequest: env.UserRequest,
		Analysis:    run.analysis,
		Summary:     plan.Summary,
		Reason:      plan.Reason,
		Files:       plan.Files,
		TestPlan:    plan.TestPlan,
		Metadata:    map[string]any{"envelope_id": env.EnvelopeID, "tool": env.Tool},
		Confidence:  e.deps.Scorer.Confidence(run.lastErr, plan.Summary, env.Attempts),
		RiskLevel:   e.deps.Scorer.Risk(plan),
	})
	if err != nil {
		e.deps.Logger.Error("proposal_registration_failed",
			"envelope_id", env.EnvelopeID,
			"error", err.Error(),
		)
		env.Complete(envelope.StatusError)
		e.finish(ctx, env, run.lastErr)
		return envelope.ErrorResponse(run.lastErr, run.breach, c, summary, env.Attempts)
	}

	observability.RecordProposal(string(registered.RiskLevel), string(registered.Status))
	e.publish(ctx, &commbus.ProposalRegistered{
		EnvelopeID: env.EnvelopeID,
		ProposalID: registered.ID,
		Tool:       env.Tool,
		Summary:    registered.Summary,
		Confidence: registered.Confidence,
		RiskLevel:  string(registered.RiskLevel),
		Files:      registered.Plan().Paths(),
	})

	applied := e.deps.Gate.ApplyFix(ctx, registered, run.lastErr, false)
	if applied.Outcome == autofix.OutcomeApplied {
		registered = applied.Proposal
		observability.RecordProposal(string(registered.RiskLevel), string(registered.Status))
		e.publish(ctx, &commbus.FixApplied{
			ProposalID: registered.ID,
			Tool:       env.Tool,
			Auto:       registered.Status == proposals.StatusAutoApplied,
			BackupDir:  applied.BackupDir,
		})
	} else if applied.Outcome == autofix.OutcomeError {
		e.deps.Logger.Error("auto_fix_failed",
			"envelope_id", env.EnvelopeID,
			"proposal_id", registered.ID,
			"error", applied.Error,
			"backup_dir", applied.BackupDir,
		)
	}

	env.Complete(envelope.StatusPendingApproval)
	e.finish(ctx, env, run.lastErr)
	return envelope.PendingApprovalResponse(registered, run.lastErr, run.breach, c, summary, env.Attempts)
}

// finish emits the terminal log line, metrics, and completion event.
func (e *Engine) finish(ctx context.Context, env *envelope.ExecutionEnvelope, errText string) {
	durationMS := env.DurationMS()
	e.deps.Logger.Info("execution_completed",
		"envelope_id", env.EnvelopeID,
		"tool", env.Tool,
		"status", string(env.Status),
		"attempts", env.Attempts,
		"duration_ms", durationMS,
	)
	observability.RecordExecution(env.Tool, string(env.Status), env.Attempts, durationMS)
	e.publish(ctx, &commbus.ExecutionCompleted{
		EnvelopeID: env.EnvelopeID,
		Tool:       env.Tool,
		Status:     string(env.Status),
		Attempts:   env.Attempts,
		DurationMS: durationMS,
		Error:      optional(errText),
	})
}

func (e *Engine) publish(ctx context.Context, event commbus.Message) {
	if e.deps.Bus == nil {
		return
	}
	_ = e.deps.Bus.Publish(ctx, event)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
