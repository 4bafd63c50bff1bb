package contract

import (
	"context"
	"errors"
	"testing"

	"github.com/jeeves-cluster-organization/selfheal/coreengine/oracle"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuilder(mock *testutil.MockOracle) (*Builder, *testutil.MockLogger) {
	logger := testutil.NewMockLogger()
	return NewBuilder(oracle.NewPlanner(mock, logger, 0), logger), logger
}

func TestBuilder_Build_WellFormedResponse(t *testing.T) {
	mock := testutil.NewMockOracle()
	mock.DefaultResponse = "```json\n" + `{
		"tool": "export",
		"intent": "export account data",
		"inputs": {
			"required": ["account_id"],
			"final_payload": {"format": "csv"}
		},
		"success_criteria": ["file produced"]
	}` + "\n```"

	b, _ := newBuilder(mock)
	c := b.Build(context.Background(), BuildRequest{
		UserRequest: "export my account",
		Tool:        "export",
		Params:      map[string]any{"account_id": "a1"},
	})

	require.NotNil(t, c)
	assert.False(t, c.IsFallback)
	assert.Equal(t, "export", c.Tool)
	assert.Equal(t, []string{"account_id"}, c.RequiredFields())

	payload := c.FinalPayload(map[string]any{"account_id": "a1"})
	assert.Equal(t, "csv", payload["format"])
}

func TestBuilder_Build_FallbackOnOracleError(t *testing.T) {
	mock := testutil.NewMockOracle().WithError(errors.New("down"))
	b, logger := newBuilder(mock)

	params := map[string]any{"account_id": "a1"}
	c := b.Build(context.Background(), BuildRequest{Tool: "export", Params: params})

	require.NotNil(t, c)
	assert.True(t, c.IsFallback)
	assert.Equal(t, []string{"account_id"}, c.RequiredFields())
	assert.True(t, logger.HasLog("warn", "contract_fallback_used"))
}

func TestBuilder_Build_FallbackOnSchemaViolation(t *testing.T) {
	mock := testutil.NewMockOracle()
	mock.DefaultResponse = `{"tool": "export"}`

	b, _ := newBuilder(mock)
	c := b.Build(context.Background(), BuildRequest{Tool: "export", Params: map[string]any{"x": 1}})

	require.NotNil(t, c)
	assert.True(t, c.IsFallback)
}

func TestBuilder_Build_FallbackOnGarbage(t *testing.T) {
	mock := testutil.NewMockOracle()
	mock.DefaultResponse = "I'm sorry, I can't produce that."

	b, _ := newBuilder(mock)
	c := b.Build(context.Background(), BuildRequest{Tool: "export", Params: nil})

	require.NotNil(t, c)
	assert.True(t, c.IsFallback)
}

func TestBuilder_PromptIncludesContext(t *testing.T) {
	mock := testutil.NewMockOracle().WithError(errors.New("skip"))
	b, _ := newBuilder(mock)

	b.Build(context.Background(), BuildRequest{
		UserRequest: "export everything",
		Tool:        "export",
		Params:      map[string]any{"account_id": "a1"},
		Complexity:  "complex",
		RecentMemory: []map[string]any{
			{"tool": "export", "status": "success"},
		},
	})

	prompt := mock.LastPrompt()
	assert.Contains(t, prompt, "export everything")
	assert.Contains(t, prompt, "complex")
	assert.Contains(t, prompt, "account_id")
	assert.Contains(t, prompt, "Recent executions")
}
