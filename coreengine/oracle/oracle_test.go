package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jeeves-cluster-organization/selfheal/coreengine/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// JSON EXTRACTION TESTS
// =============================================================================

func TestExtractJSONBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "json fenced block",
			input: "Here you go:\n```json\n{\"a\": 1}\n```\nDone.",
			want:  `{"a": 1}`,
		},
		{
			name:  "plain fenced block",
			input: "```\n{\"b\": 2}\n```",
			want:  `{"b": 2}`,
		},
		{
			name:  "json fence preferred over plain fence",
			input: "```\nnot it\n```\n```json\n{\"c\": 3}\n```",
			want:  `{"c": 3}`,
		},
		{
			name:  "raw text trimmed",
			input: "  {\"d\": 4}  ",
			want:  `{"d": 4}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSONBlock(tt.input))
		})
	}
}

func TestParseJSONObject(t *testing.T) {
	t.Run("strict parse", func(t *testing.T) {
		m, err := ParseJSONObject(`{"tool": "export", "intent": "export data"}`)
		require.NoError(t, err)
		assert.Equal(t, "export", m["tool"])
	})

	t.Run("fenced response", func(t *testing.T) {
		m, err := ParseJSONObject("```json\n{\"tool\": \"export\"}\n```")
		require.NoError(t, err)
		assert.Equal(t, "export", m["tool"])
	})

	t.Run("object embedded in prose", func(t *testing.T) {
		m, err := ParseJSONObject(`Sure! The contract is {"tool": "export", "inputs": {}} as requested.`)
		require.NoError(t, err)
		assert.Equal(t, "export", m["tool"])
	})

	t.Run("nested braces", func(t *testing.T) {
		m, err := ParseJSONObject(`prefix {"a": {"b": {"c": 1}}} suffix`)
		require.NoError(t, err)
		assert.NotNil(t, m["a"])
	})

	t.Run("unparseable", func(t *testing.T) {
		_, err := ParseJSONObject("this is not json at all")
		assert.Error(t, err)
	})

	t.Run("skips broken object then finds valid one", func(t *testing.T) {
		m, err := ParseJSONObject(`{broken} then {"ok": true}`)
		require.NoError(t, err)
		assert.Equal(t, true, m["ok"])
	})
}

// =============================================================================
// PLANNER TESTS
// =============================================================================

func TestPlanner_AskJSON_Success(t *testing.T) {
	mock := testutil.NewMockOracle().WithResponse("contract", "```json\n{\"tool\": \"export\"}\n```")
	p := NewPlanner(mock, testutil.NewMockLogger(), 0)

	result := p.AskJSON(context.Background(), "build_contract", "build a contract", nil, nil)

	require.NotNil(t, result)
	assert.Equal(t, "export", result["tool"])
}

func TestPlanner_AskJSON_FallbackOnTransportError(t *testing.T) {
	mock := testutil.NewMockOracle().WithError(errors.New("connection refused"))
	logger := testutil.NewMockLogger()
	p := NewPlanner(mock, logger, 0)

	result := p.AskJSON(context.Background(), "build_contract", "prompt", nil, func() map[string]any {
		return map[string]any{"fallback": true}
	})

	require.NotNil(t, result)
	assert.Equal(t, true, result["fallback"])
	assert.True(t, logger.HasLog("warn", "oracle_call_failed"))
}

func TestPlanner_AskJSON_FallbackOnUnparseable(t *testing.T) {
	mock := testutil.NewMockOracle()
	mock.DefaultResponse = "sorry, I cannot help with that"
	p := NewPlanner(mock, testutil.NewMockLogger(), 0)

	result := p.AskJSON(context.Background(), "analyze_failure", "prompt", nil, func() map[string]any {
		return map[string]any{"root_cause": "unknown"}
	})

	require.NotNil(t, result)
	assert.Equal(t, "unknown", result["root_cause"])
}

func TestPlanner_AskJSON_FallbackOnValidateRejection(t *testing.T) {
	mock := testutil.NewMockOracle()
	mock.DefaultResponse = `{"wrong_shape": true}`
	p := NewPlanner(mock, testutil.NewMockLogger(), 0)

	validate := func(m map[string]any) error {
		if _, ok := m["tool"]; !ok {
			return errors.New("missing tool")
		}
		return nil
	}

	result := p.AskJSON(context.Background(), "build_contract", "prompt", validate, func() map[string]any {
		return map[string]any{"tool": "fallback"}
	})

	require.NotNil(t, result)
	assert.Equal(t, "fallback", result["tool"])
}

func TestPlanner_AskJSON_NilFallbackYieldsNil(t *testing.T) {
	mock := testutil.NewMockOracle().WithError(errors.New("down"))
	p := NewPlanner(mock, testutil.NewMockLogger(), 0)

	result := p.AskJSON(context.Background(), "propose_patch", "prompt", nil, nil)
	assert.Nil(t, result)
}

func TestPlanner_AskJSON_TimeoutHonored(t *testing.T) {
	mock := testutil.NewMockOracle().WithDelay(200 * time.Millisecond)
	p := NewPlanner(mock, testutil.NewMockLogger(), 10*time.Millisecond)

	start := time.Now()
	result := p.AskJSON(context.Background(), "build_contract", "prompt", nil, func() map[string]any {
		return map[string]any{"fallback": true}
	})

	assert.Less(t, time.Since(start), 150*time.Millisecond)
	require.NotNil(t, result)
	assert.Equal(t, true, result["fallback"])
}

func TestPlanner_AskText(t *testing.T) {
	mock := testutil.NewMockOracle()
	mock.DefaultResponse = "try batching the export instead"
	p := NewPlanner(mock, testutil.NewMockLogger(), 0)

	text := p.AskText(context.Background(), "suggest_alternative", "prompt")
	assert.Equal(t, "try batching the export instead", text)
}

func TestPlanner_AskText_EmptyOnError(t *testing.T) {
	mock := testutil.NewMockOracle().WithError(errors.New("down"))
	p := NewPlanner(mock, testutil.NewMockLogger(), 0)

	assert.Equal(t, "", p.AskText(context.Background(), "suggest_alternative", "prompt"))
}
