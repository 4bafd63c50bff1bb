// Package analysis classifies tool failures. Analysis is strictly advisory:
// it informs retry decisions and patch proposals but can never fail or block
// the request that triggered it.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeeves-cluster-organization/selfheal/coreengine/oracle"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/telemetry"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/typeutil"
)

// FixType classifies the kind of change a failure calls for.
type FixType string

const (
	FixTypeCode          FixType = "code"
	FixTypeConfig        FixType = "config"
	FixTypeDocumentation FixType = "documentation"
	FixTypeUnknown       FixType = "unknown"
)

// FixTypeFromString converts a string to FixType, defaulting to unknown.
func FixTypeFromString(s string) FixType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "code":
		return FixTypeCode
	case "config":
		return FixTypeConfig
	case "documentation":
		return FixTypeDocumentation
	default:
		return FixTypeUnknown
	}
}

// FailureAnalysis is the classified root cause of one failure.
// Ephemeral per failure; only the recurrence count persists across requests.
type FailureAnalysis struct {
	RootCause    string  `json:"root_cause"`
	FixType      FixType `json:"fix_type"`
	SuggestedFix string  `json:"suggested_fix"`
	Prevention   string  `json:"prevention"`
	Recurrence   int     `json:"recurrence"`

	// Stub marks a deterministic fallback produced when the oracle was
	// unavailable or unusable.
	Stub bool `json:"stub,omitempty"`
}

// ToMap converts the analysis for proposal records and prompt context.
func (a FailureAnalysis) ToMap() map[string]any {
	return map[string]any{
		"root_cause":    a.RootCause,
		"fix_type":      string(a.FixType),
		"suggested_fix": a.SuggestedFix,
		"prevention":    a.Prevention,
		"recurrence":    a.Recurrence,
	}
}

// Logger is the interface for logging.
type Logger interface {
	Info(msg string, fields ...any)
	Debug(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// Analyzer classifies failures via the oracle and tracks recurrence.
type Analyzer struct {
	planner *oracle.Planner
	history *telemetry.FailureHistory
	logger  Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(planner *oracle.Planner, history *telemetry.FailureHistory, logger Logger) *Analyzer {
	return &Analyzer{planner: planner, history: history, logger: logger}
}

// Analyze records the failure and asks the oracle for a classification.
// Degrades to a deterministic stub on any oracle failure; never raises.
func (a *Analyzer) Analyze(ctx context.Context, tool, errText string, execContext map[string]any) FailureAnalysis {
	recurrence := a.history.RecordFailure(tool, errText)

	parsed := a.planner.AskJSON(ctx, "analyze_failure", a.buildPrompt(tool, errText, recurrence, execContext), validateAnalysis, nil)
	if parsed == nil {
		a.logger.Debug("failure_analysis_stubbed", "tool", tool, "recurrence", recurrence)
		return stubAnalysis(errText, recurrence)
	}

	result := FailureAnalysis{
		RootCause:    typeutil.SafeStringDefault(parsed["root_cause"], errText),
		FixType:      FixTypeFromString(typeutil.SafeStringDefault(parsed["fix_type"], "unknown")),
		SuggestedFix: typeutil.SafeStringDefault(parsed["suggested_fix"], ""),
		Prevention:   typeutil.SafeStringDefault(parsed["prevention"], ""),
		Recurrence:   recurrence,
	}

	a.logger.Debug("failure_analyzed",
		"tool", tool,
		"fix_type", string(result.FixType),
		"recurrence", recurrence,
	)
	return result
}

// SuggestAlternative asks the oracle for an alternative approach after a
// final non-exception failure. Advisory text only; "" on any failure.
func (a *Analyzer) SuggestAlternative(ctx context.Context, tool, errText string, execContext map[string]any) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The tool %q failed after all retries with error: %s\n", tool, errText)
	if len(execContext) > 0 {
		if ctxJSON, err := json.Marshal(execContext); err == nil {
			fmt.Fprintf(&sb, "Execution context: %s\n", ctxJSON)
		}
	}
	sb.WriteString("Suggest one concrete alternative approach to achieve the same goal. Answer in plain text, two sentences at most.")

	return strings.TrimSpace(a.planner.AskText(ctx, "suggest_alternative", sb.String()))
}

// SuggestEnhancement asks the oracle for a future improvement after a slow or
// complex success. Advisory text only; "" on any failure.
func (a *Analyzer) SuggestEnhancement(ctx context.Context, tool, intent string, durationMS int) string {
	prompt := fmt.Sprintf(
		"The tool %q completed %q successfully but took %d ms and was flagged as heavyweight. "+
			"Suggest one future enhancement that would make this kind of request faster or more robust. "+
			"Answer in plain text, two sentences at most.",
		tool, intent, durationMS,
	)
	return strings.TrimSpace(a.planner.AskText(ctx, "suggest_enhancement", prompt))
}

func (a *Analyzer) buildPrompt(tool, errText string, recurrence int, execContext map[string]any) string {
	var sb strings.Builder

	sb.WriteString("Analyze a tool execution failure.\n\n")
	fmt.Fprintf(&sb, "Tool: %s\n", tool)
	fmt.Fprintf(&sb, "Error: %s\n", errText)
	if recurrence > 1 {
		fmt.Fprintf(&sb, "This exact failure has now occurred %d times.\n", recurrence)
	}
	if len(execContext) > 0 {
		if ctxJSON, err := json.Marshal(execContext); err == nil {
			fmt.Fprintf(&sb, "Execution context: %s\n", ctxJSON)
		}
	}

	sb.WriteString(`
Respond with a single JSON object:
{
  "root_cause": "<what actually went wrong>",
  "fix_type": "code" | "config" | "documentation" | "unknown",
  "suggested_fix": "<the concrete change that would fix it>",
  "prevention": "<how to avoid this class of failure>"
}`)

	return sb.String()
}

func validateAnalysis(m map[string]any) error {
	if _, ok := typeutil.SafeString(m["root_cause"]); !ok {
		return fmt.Errorf("analysis missing string field: root_cause")
	}
	return nil
}

func stubAnalysis(errText string, recurrence int) FailureAnalysis {
	return FailureAnalysis{
		RootCause:    errText,
		FixType:      FixTypeUnknown,
		SuggestedFix: "manual investigation required",
		Prevention:   "add a ground-truth validator for this tool",
		Recurrence:   recurrence,
		Stub:         true,
	}
}
