package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_NoValidatorMeansNoIssues(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Validate("export", map[string]any{"rows": 0}))
	assert.False(t, r.Has("export"))
}

func TestRegistry_ValidatorReportsIssues(t *testing.T) {
	r := NewRegistry()
	r.Register("export", func(result map[string]any) []string {
		if rows, ok := result["rows"].(int); ok && rows == 0 {
			return []string{"export produced zero rows"}
		}
		return nil
	})

	require.True(t, r.Has("export"))

	issues := r.Validate("export", map[string]any{"rows": 0})
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "zero rows")

	assert.Empty(t, r.Validate("export", map[string]any{"rows": 10}))
}

func TestRegistry_NilResultSkipsValidation(t *testing.T) {
	r := NewRegistry()
	r.Register("export", func(result map[string]any) []string {
		return []string{"should not run"}
	})

	assert.Nil(t, r.Validate("export", nil))
}

func TestRegistry_PanicBecomesIssue(t *testing.T) {
	r := NewRegistry()
	r.Register("export", func(result map[string]any) []string {
		panic("bad assertion")
	})

	issues := r.Validate("export", map[string]any{})
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "panicked")
	assert.Contains(t, issues[0], "bad assertion")
}

func TestRegistry_DeterministicAcrossRuns(t *testing.T) {
	r := NewRegistry()
	r.Register("export", func(result map[string]any) []string {
		return []string{"always fails"}
	})

	for i := 0; i < 5; i++ {
		issues := r.Validate("export", map[string]any{"ok": true})
		require.Len(t, issues, 1)
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	r.Register("export", func(result map[string]any) []string { return []string{"x"} })
	r.Unregister("export")

	assert.False(t, r.Has("export"))
	assert.Nil(t, r.Validate("export", map[string]any{}))
}
