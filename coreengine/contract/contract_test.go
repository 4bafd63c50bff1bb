package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// REQUIRED FIELDS TESTS
// =============================================================================

func TestRequiredFields_Normalization(t *testing.T) {
	c := &ExecutionContract{
		Inputs: ContractInputs{
			Required: []any{
				"account_id",
				map[string]any{"name": "region", "type": "string"},
				"",
				map[string]any{"type": "string"}, // no name, dropped
				42,                               // unusable, dropped
			},
		},
	}

	assert.Equal(t, []string{"account_id", "region"}, c.RequiredFields())
}

func TestRequiredFields_Empty(t *testing.T) {
	c := &ExecutionContract{}
	assert.Empty(t, c.RequiredFields())
}

// =============================================================================
// FINAL PAYLOAD TESTS
// =============================================================================

func TestFinalPayload_CallerValuesWin(t *testing.T) {
	c := &ExecutionContract{
		Inputs: ContractInputs{
			FinalPayload: map[string]any{
				"region": "us-west-2",
				"format": "csv",
			},
		},
	}

	payload := c.FinalPayload(map[string]any{
		"region": "eu-central-1",
	})

	assert.Equal(t, "eu-central-1", payload["region"])
	assert.Equal(t, "csv", payload["format"])
}

func TestFinalPayload_ContractFillsGaps(t *testing.T) {
	c := &ExecutionContract{
		Inputs: ContractInputs{
			FinalPayload: map[string]any{
				"region": "us-west-2",
			},
		},
	}

	// Empty string and nil both count as gaps to fill.
	payload := c.FinalPayload(map[string]any{"region": ""})
	assert.Equal(t, "us-west-2", payload["region"])

	payload = c.FinalPayload(map[string]any{"region": nil})
	assert.Equal(t, "us-west-2", payload["region"])
}

func TestFinalPayload_MissingContractValuesIgnored(t *testing.T) {
	c := &ExecutionContract{
		Inputs: ContractInputs{
			FinalPayload: map[string]any{
				"region": nil,
				"format": "",
			},
		},
	}

	payload := c.FinalPayload(map[string]any{"account": "a1"})
	assert.Equal(t, map[string]any{"account": "a1"}, payload)
}

func TestFinalPayload_DoesNotMutateInputs(t *testing.T) {
	original := map[string]any{"a": 1}
	c := &ExecutionContract{
		Inputs: ContractInputs{FinalPayload: map[string]any{"b": 2}},
	}

	_ = c.FinalPayload(original)
	assert.Equal(t, map[string]any{"a": 1}, original)
}

// =============================================================================
// MISSING REQUIRED FIELDS TESTS
// =============================================================================

func TestMissingRequiredFields(t *testing.T) {
	c := &ExecutionContract{
		Inputs: ContractInputs{
			Required: []any{"account_id", "region", "format"},
		},
	}

	missing := c.MissingRequiredFields(map[string]any{
		"account_id": "a1",
		"region":     "",
		// format absent
	})

	assert.Equal(t, []string{"region", "format"}, missing)

	missing = c.MissingRequiredFields(map[string]any{
		"account_id": "a1",
		"region":     "us-west-2",
		"format":     "csv",
	})
	assert.Empty(t, missing)
}

// =============================================================================
// SCHEMA VALIDATION TESTS
// =============================================================================

func TestValidateSchema(t *testing.T) {
	valid := map[string]any{
		"tool":             "export",
		"intent":           "export data",
		"inputs":           map[string]any{},
		"success_criteria": []any{"done"},
	}
	require.NoError(t, ValidateSchema(valid))

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing tool", func(m map[string]any) { delete(m, "tool") }},
		{"missing intent", func(m map[string]any) { delete(m, "intent") }},
		{"missing inputs", func(m map[string]any) { delete(m, "inputs") }},
		{"inputs not object", func(m map[string]any) { m["inputs"] = "nope" }},
		{"missing success_criteria", func(m map[string]any) { delete(m, "success_criteria") }},
		{"success_criteria not list", func(m map[string]any) { m["success_criteria"] = "done" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := map[string]any{}
			for k, v := range valid {
				m[k] = v
			}
			tt.mutate(m)
			assert.Error(t, ValidateSchema(m))
		})
	}
}

// =============================================================================
// FROM MAP TESTS
// =============================================================================

func TestFromMap(t *testing.T) {
	c := FromMap(map[string]any{
		"tool":   "export",
		"intent": "export account data",
		"inputs": map[string]any{
			"required":      []any{"account_id"},
			"final_payload": map[string]any{"format": "csv"},
		},
		"success_criteria":      []any{"file produced"},
		"preconditions":         []any{"account exists"},
		"execution_constraints": map[string]any{"max_attempts": float64(2)},
	})

	assert.Equal(t, "export", c.Tool)
	assert.Equal(t, "export account data", c.Intent)
	assert.Equal(t, []string{"account_id"}, c.RequiredFields())
	assert.Equal(t, []string{"file produced"}, c.SuccessCriteria)
	assert.Equal(t, []string{"account exists"}, c.Preconditions)
	assert.Equal(t, float64(2), c.ExecutionConstraints["max_attempts"])
	assert.False(t, c.IsFallback)
}

// =============================================================================
// FALLBACK CONTRACT TESTS
// =============================================================================

func TestFallback_RequiredFieldsEqualParamKeys(t *testing.T) {
	params := map[string]any{"b": 2, "a": 1, "c": 3}
	c := Fallback("export", params)

	assert.True(t, c.IsFallback)
	assert.Equal(t, []string{"a", "b", "c"}, c.RequiredFields())
	assert.Len(t, c.SuccessCriteria, 2)
}

func TestFallback_FinalPayloadReturnsParamsUnchanged(t *testing.T) {
	params := map[string]any{"a": 1, "b": "x"}
	c := Fallback("export", params)

	assert.Equal(t, params, c.FinalPayload(params))
}

func TestFallback_EmptyParams(t *testing.T) {
	c := Fallback("export", nil)
	assert.Empty(t, c.RequiredFields())
	assert.Empty(t, c.MissingRequiredFields(map[string]any{}))
}
