package contract

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

// BuildRequest carries everything the builder hands to the oracle.
type BuildRequest struct {
	UserRequest string
	Tool        string
	Params      map[string]any

	// Complexity is the upstream complexity classification
	// (simple, moderate, complex, very_complex). Optional.
	Complexity string

	// RecentMemory holds advisory snapshots of recent executions of the
	// same tool. Never authoritative.
	RecentMemory []map[string]any
}

// Builder negotiates an ExecutionContract with the planning oracle.
// Build never fails: any oracle or schema problem yields the deterministic
// fallback contract.
type Builder struct {
	planner *oracle.Planner
	logger  Logger
}

// NewBuilder creates a Builder.
func NewBuilder(planner *oracle.Planner, logger Logger) *Builder {
	return &Builder{planner: planner, logger: logger}
}

// Build produces the contract for one request.
func (b *Builder) Build(ctx context.Context, req BuildRequest) *ExecutionContract {
	prompt := b.buildPrompt(req)

	parsed := b.planner.AskJSON(ctx, "build_contract", prompt, ValidateSchema, nil)
	if parsed == nil {
		b.logger.Warn("contract_fallback_used", "tool", req.Tool)
		return Fallback(req.Tool, req.Params)
	}

	c := FromMap(parsed)
	b.logger.Debug("contract_built",
		"tool", c.Tool,
		"required_fields", len(c.RequiredFields()),
		"success_criteria", len(c.SuccessCriteria),
	)
	return c
}

const contractSchema = `{
  "tool": "<tool name>",
  "intent": "<one sentence describing what this invocation achieves>",
  "inputs": {
    "required": ["<field name>", ...],
    "optional": ["<field name>", ...],
    "final_payload": {"<field>": <value>, ...}
  },
  "preconditions": ["<condition>", ...],
  "success_criteria": ["<observable criterion>", ...],
  "post_validations": ["<check to run on the result>", ...],
  "fallback_plan": ["<step if this fails>", ...],
  "execution_constraints": {"max_attempts": <int>, "max_duration_seconds": <int>}
}`

func (b *Builder) buildPrompt(req BuildRequest) string {
	var sb strings.Builder

	sb.WriteString("Build an execution contract for a tool invocation.\n\n")
	fmt.Fprintf(&sb, "User request: %s\n", req.UserRequest)
	fmt.Fprintf(&sb, "Tool: %s\n", req.Tool)

	paramsJSON, err := json.Marshal(req.Params)
	if err != nil {
		paramsJSON = []byte("{}")
	}
	fmt.Fprintf(&sb, "Provided parameters: %s\n", paramsJSON)

	if req.Complexity != "" {
		fmt.Fprintf(&sb, "Request complexity: %s\n", req.Complexity)
	}

	if len(req.RecentMemory) > 0 {
		sb.WriteString("\nRecent executions of this tool (advisory only):\n")
		for _, snap := range req.RecentMemory {
			if line, err := json.Marshal(snap); err == nil {
				fmt.Fprintf(&sb, "- %s\n", line)
			}
		}
	}

	sb.WriteString("\nRespond with a single JSON object of this exact shape:\n")
	sb.WriteString(contractSchema)
	sb.WriteString("\nDo not add fields. Use the provided parameter values where they answer a required input.")

	return sb.String()
}
