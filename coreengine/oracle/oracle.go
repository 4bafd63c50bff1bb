// Package oracle wraps the planning LLM boundary. The engine never talks to
// a model directly; it asks the Planner for a validated JSON object and the
// Planner absorbs every transport, parse, and schema failure into a fallback.
package oracle

import (
	"context"
	"time"

	"github.com/jeeves-cluster-organization/selfheal/coreengine/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Oracle is the interface for the planning model transport.
type Oracle interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Logger is the interface for logging.
type Logger interface {
	Info(msg string, fields ...any)
	Debug(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

var tracer = otel.Tracer("selfheal/oracle")

// DefaultTimeout bounds a single oracle call when no override is configured.
// Oracle latency is outside the duration guardrail, so each call carries its
// own deadline.
const DefaultTimeout = 60 * time.Second

// Planner issues oracle calls with a shared ask, validate, fallback
// discipline. Every call site (contract building, failure analysis, patch
// proposal, advisory suggestions) goes through AskJSON.
type Planner struct {
	oracle  Oracle
	logger  Logger
	timeout time.Duration
}

// NewPlanner creates a Planner. A non-positive timeout selects
// DefaultTimeout.
func NewPlanner(o Oracle, logger Logger, timeout time.Duration) *Planner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Planner{oracle: o, logger: logger, timeout: timeout}
}

// AskJSON invokes the oracle and returns a parsed, validated JSON object.
// On any failure (transport error, timeout, unparseable response, validate
// rejection) it logs, calls fallback, and returns its result. A nil fallback
// yields nil; AskJSON itself never returns an error.
func (p *Planner) AskJSON(
	ctx context.Context,
	callName string,
	prompt string,
	validate func(map[string]any) error,
	fallback func() map[string]any,
) map[string]any {
	ctx, span := tracer.Start(ctx, "oracle.ask",
		trace.WithAttributes(attribute.String("selfheal.oracle.call", callName)),
	)
	defer span.End()

	start := time.Now()
	status := "error"
	defer func() {
		observability.RecordOracleCall(callName, status, int(time.Since(start).Milliseconds()))
	}()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	content, err := p.oracle.Invoke(ctx, prompt)
	if err != nil {
		return p.recover(span, callName, "oracle_call_failed", err, fallback)
	}

	parsed, err := ParseJSONObject(content)
	if err != nil {
		return p.recover(span, callName, "oracle_response_unparseable", err, fallback)
	}

	if validate != nil {
		if err := validate(parsed); err != nil {
			return p.recover(span, callName, "oracle_response_rejected", err, fallback)
		}
	}

	status = "success"
	span.SetStatus(codes.Ok, "success")
	p.logger.Debug("oracle_call_completed", "call", callName)
	return parsed
}

// AskText invokes the oracle for free-form advisory text. Returns "" on any
// failure; advisory calls are never allowed to fail the request.
func (p *Planner) AskText(ctx context.Context, callName string, prompt string) string {
	ctx, span := tracer.Start(ctx, "oracle.ask_text",
		trace.WithAttributes(attribute.String("selfheal.oracle.call", callName)),
	)
	defer span.End()

	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	content, err := p.oracle.Invoke(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Warn("oracle_call_failed", "call", callName, "error", err.Error())
		observability.RecordOracleCall(callName, "error", int(time.Since(start).Milliseconds()))
		return ""
	}

	span.SetStatus(codes.Ok, "success")
	observability.RecordOracleCall(callName, "success", int(time.Since(start).Milliseconds()))
	return content
}

func (p *Planner) recover(
	span trace.Span,
	callName, event string,
	err error,
	fallback func() map[string]any,
) map[string]any {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.logger.Warn(event, "call", callName, "error", err.Error())
	if fallback == nil {
		return nil
	}
	return fallback()
}
