// Package contract defines the execution contract negotiated for each tool
// invocation: what the tool needs, how success is judged, and the limits the
// retry loop must honor.
package contract

import (
	"fmt"
	"sort"

	"github.com/jeeves-cluster-organization/selfheal/coreengine/typeutil"
)

// ContractInputs describes the payload the contract expects.
// Required entries may be plain strings or {"name": ...} objects as produced
// by the oracle; RequiredFields normalizes both forms.
type ContractInputs struct {
	Required     []any          `json:"required"`
	Optional     []any          `json:"optional"`
	FinalPayload map[string]any `json:"final_payload"`
}

// ExecutionContract is the structured plan for one tool invocation.
// Built once per request and never mutated afterwards.
type ExecutionContract struct {
	Tool                 string         `json:"tool"`
	Intent               string         `json:"intent"`
	Inputs               ContractInputs `json:"inputs"`
	Preconditions        []string       `json:"preconditions"`
	SuccessCriteria      []string       `json:"success_criteria"`
	PostValidations      []string       `json:"post_validations"`
	FallbackPlan         []string       `json:"fallback_plan"`
	ExecutionConstraints map[string]any `json:"execution_constraints"`

	// IsFallback marks a deterministic fallback contract produced when the
	// oracle response was unusable.
	IsFallback bool `json:"is_fallback,omitempty"`
}

// RequiredFields normalizes Inputs.Required into a flat list of field names.
// String entries are taken as-is; {"name": ...} objects contribute their
// name. Empty entries are dropped.
func (c *ExecutionContract) RequiredFields() []string {
	fields := make([]string, 0, len(c.Inputs.Required))
	for _, entry := range c.Inputs.Required {
		switch v := entry.(type) {
		case string:
			if v != "" {
				fields = append(fields, v)
			}
		case map[string]any:
			if name, ok := typeutil.SafeString(v["name"]); ok && name != "" {
				fields = append(fields, name)
			}
		}
	}
	return fields
}

// FinalPayload merges the contract's final_payload over the original params.
// Caller-supplied values win: a contract value only fills a key the caller
// left absent, nil, or empty.
func (c *ExecutionContract) FinalPayload(originalParams map[string]any) map[string]any {
	payload := make(map[string]any, len(originalParams)+len(c.Inputs.FinalPayload))
	for k, v := range originalParams {
		payload[k] = v
	}
	for k, v := range c.Inputs.FinalPayload {
		if isMissing(v) {
			continue
		}
		if isMissing(payload[k]) {
			payload[k] = v
		}
	}
	return payload
}

// MissingRequiredFields returns the required fields that do not resolve to a
// present value in payload. Empty result means the payload is valid.
func (c *ExecutionContract) MissingRequiredFields(payload map[string]any) []string {
	var missing []string
	for _, field := range c.RequiredFields() {
		if isMissing(payload[field]) {
			missing = append(missing, field)
		}
	}
	return missing
}

// isMissing reports whether a payload value counts as absent: nil or an
// empty string.
func isMissing(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && s == "" {
		return true
	}
	return false
}

// FromMap builds an ExecutionContract from a decoded oracle response.
// Assumes the map already passed ValidateSchema.
func FromMap(m map[string]any) *ExecutionContract {
	c := &ExecutionContract{
		Tool:   typeutil.SafeStringDefault(m["tool"], ""),
		Intent: typeutil.SafeStringDefault(m["intent"], ""),
	}

	inputs := typeutil.SafeMapStringAnyDefault(m["inputs"], map[string]any{})
	if required, ok := inputs["required"].([]any); ok {
		c.Inputs.Required = required
	}
	if optional, ok := inputs["optional"].([]any); ok {
		c.Inputs.Optional = optional
	}
	c.Inputs.FinalPayload = typeutil.SafeMapStringAnyDefault(inputs["final_payload"], map[string]any{})

	c.Preconditions = typeutil.SafeStringSliceDefault(m["preconditions"], nil)
	c.SuccessCriteria = typeutil.SafeStringSliceDefault(m["success_criteria"], nil)
	c.PostValidations = typeutil.SafeStringSliceDefault(m["post_validations"], nil)
	c.FallbackPlan = typeutil.SafeStringSliceDefault(m["fallback_plan"], nil)
	c.ExecutionConstraints = typeutil.SafeMapStringAnyDefault(m["execution_constraints"], nil)

	return c
}

// ValidateSchema checks a decoded oracle response for the contract shape:
// tool, intent, inputs (object), success_criteria (list) must be present
// with the right types.
func ValidateSchema(m map[string]any) error {
	if _, ok := typeutil.SafeString(m["tool"]); !ok {
		return fmt.Errorf("contract missing string field: tool")
	}
	if _, ok := typeutil.SafeString(m["intent"]); !ok {
		return fmt.Errorf("contract missing string field: intent")
	}
	if _, ok := typeutil.SafeMapStringAny(m["inputs"]); !ok {
		return fmt.Errorf("contract missing object field: inputs")
	}
	switch m["success_criteria"].(type) {
	case []any, []string:
	default:
		return fmt.Errorf("contract missing list field: success_criteria")
	}
	return nil
}

// Fallback builds the deterministic minimal contract used when the oracle
// response is missing, malformed, or fails schema checks. Every provided
// param key becomes required, the final payload stays empty so the caller's
// params pass through unchanged.
func Fallback(tool string, params map[string]any) *ExecutionContract {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	required := make([]any, 0, len(keys))
	for _, k := range keys {
		required = append(required, k)
	}

	return &ExecutionContract{
		Tool:   tool,
		Intent: fmt.Sprintf("Execute %s", tool),
		Inputs: ContractInputs{
			Required:     required,
			FinalPayload: map[string]any{},
		},
		SuccessCriteria: []string{
			"tool executes without error",
			"result payload is non-empty",
		},
		IsFallback: true,
	}
}
