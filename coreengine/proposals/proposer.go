package proposals

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeeves-cluster-organization/selfheal/coreengine/oracle"
)

// Logger is the interface for logging.
type Logger interface {
	Info(msg string, fields ...any)
	Debug(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// ProposeRequest carries the failure context for patch generation.
type ProposeRequest struct {
	Trigger     string
	UserRequest string
	Tool        string
	Error       string

	// Analysis is the failure analysis snapshot, if one was produced.
	Analysis map[string]any

	// Context is any extra execution context worth showing the oracle.
	Context map[string]any
}

// Proposer asks the oracle to turn a failure into a PatchPlan.
// Proposal generation is strictly best-effort: any failure yields nil and is
// never fatal to the original request.
type Proposer struct {
	planner *oracle.Planner
	logger  Logger
}

// NewProposer creates a Proposer.
func NewProposer(planner *oracle.Planner, logger Logger) *Proposer {
	return &Proposer{planner: planner, logger: logger}
}

// Propose generates a patch plan for the failure, or nil.
func (p *Proposer) Propose(ctx context.Context, req ProposeRequest) *PatchPlan {
	parsed := p.planner.AskJSON(ctx, "propose_patch", p.buildPrompt(req), nil, nil)
	if parsed == nil {
		return nil
	}

	plan, err := PlanFromMap(parsed)
	if err != nil {
		p.logger.Warn("patch_plan_rejected", "tool", req.Tool, "error", err.Error())
		return nil
	}

	p.logger.Info("patch_plan_generated",
		"tool", req.Tool,
		"files", len(plan.Files),
		"summary", plan.Summary,
	)
	return plan
}

const planSchema = `{
  "summary": "<one line describing the fix>",
  "reason": "<why this fixes the failure>",
  "files": [
    {
      "path": "<file path>",
      "operation": "replace" | "create" | "append",
      "description": "<what this change does>",
      "search": "<exact text to find, replace only>",
      "replace": "<replacement text, replace only>",
      "content": "<full content, create/append only>"
    }
  ],
  "test_plan": "<how to verify the fix>"
}`

func (p *Proposer) buildPrompt(req ProposeRequest) string {
	var sb strings.Builder

	sb.WriteString("A tool execution failed terminally. Propose a file-level code patch.\n\n")
	fmt.Fprintf(&sb, "Trigger: %s\n", req.Trigger)
	fmt.Fprintf(&sb, "User request: %s\n", req.UserRequest)
	fmt.Fprintf(&sb, "Tool: %s\n", req.Tool)
	fmt.Fprintf(&sb, "Error: %s\n", req.Error)

	if len(req.Analysis) > 0 {
		if aJSON, err := json.Marshal(req.Analysis); err == nil {
			fmt.Fprintf(&sb, "Failure analysis: %s\n", aJSON)
		}
	}
	if len(req.Context) > 0 {
		if cJSON, err := json.Marshal(req.Context); err == nil {
			fmt.Fprintf(&sb, "Execution context: %s\n", cJSON)
		}
	}

	sb.WriteString("\nRespond with a single JSON object of this exact shape:\n")
	sb.WriteString(planSchema)
	sb.WriteString("\nKeep the change minimal. Only include files that must change.")

	return sb.String()
}
