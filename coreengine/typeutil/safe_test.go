package typeutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// MAP[STRING]ANY TESTS
// =============================================================================

func TestSafeMapStringAny(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		wantMap  map[string]any
		wantBool bool
	}{
		{
			name:     "valid map",
			input:    map[string]any{"key": "value"},
			wantMap:  map[string]any{"key": "value"},
			wantBool: true,
		},
		{
			name:     "nil value",
			input:    nil,
			wantMap:  nil,
			wantBool: false,
		},
		{
			name:     "wrong type string",
			input:    "not a map",
			wantMap:  nil,
			wantBool: false,
		},
		{
			name:     "empty map",
			input:    map[string]any{},
			wantMap:  map[string]any{},
			wantBool: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SafeMapStringAny(tt.input)
			assert.Equal(t, tt.wantBool, ok)
			assert.Equal(t, tt.wantMap, got)
		})
	}
}

func TestSafeMapStringAnyDefault(t *testing.T) {
	defaultVal := map[string]any{"default": true}

	result := SafeMapStringAnyDefault(map[string]any{"key": "value"}, defaultVal)
	assert.Equal(t, "value", result["key"])

	result = SafeMapStringAnyDefault("not a map", defaultVal)
	assert.Equal(t, defaultVal, result)

	result = SafeMapStringAnyDefault(nil, defaultVal)
	assert.Equal(t, defaultVal, result)
}

// =============================================================================
// SCALAR TESTS
// =============================================================================

func TestSafeString(t *testing.T) {
	tests := []struct {
		name       string
		input      any
		wantString string
		wantBool   bool
	}{
		{name: "valid string", input: "hello", wantString: "hello", wantBool: true},
		{name: "empty string", input: "", wantString: "", wantBool: true},
		{name: "nil value", input: nil, wantString: "", wantBool: false},
		{name: "wrong type int", input: 42, wantString: "", wantBool: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SafeString(tt.input)
			assert.Equal(t, tt.wantBool, ok)
			assert.Equal(t, tt.wantString, got)
		})
	}
}

func TestSafeStringDefault(t *testing.T) {
	assert.Equal(t, "hello", SafeStringDefault("hello", "default"))
	assert.Equal(t, "default", SafeStringDefault(nil, "default"))
	assert.Equal(t, "default", SafeStringDefault(42, "default"))
}

func TestSafeInt(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		wantInt  int
		wantBool bool
	}{
		{name: "int value", input: 42, wantInt: 42, wantBool: true},
		{name: "int64 value", input: int64(100), wantInt: 100, wantBool: true},
		{name: "float64 value from JSON", input: float64(123), wantInt: 123, wantBool: true},
		{name: "nil value", input: nil, wantInt: 0, wantBool: false},
		{name: "string value", input: "42", wantInt: 0, wantBool: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SafeInt(tt.input)
			assert.Equal(t, tt.wantBool, ok)
			assert.Equal(t, tt.wantInt, got)
		})
	}
}

func TestSafeIntDefault(t *testing.T) {
	assert.Equal(t, 42, SafeIntDefault(42, 0))
	assert.Equal(t, 99, SafeIntDefault(nil, 99))
	assert.Equal(t, 99, SafeIntDefault("not int", 99))
}

func TestSafeFloat64(t *testing.T) {
	tests := []struct {
		name      string
		input     any
		wantFloat float64
		wantBool  bool
	}{
		{name: "float64 value", input: 3.14, wantFloat: 3.14, wantBool: true},
		{name: "int value", input: 42, wantFloat: 42.0, wantBool: true},
		{name: "nil value", input: nil, wantFloat: 0, wantBool: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SafeFloat64(tt.input)
			assert.Equal(t, tt.wantBool, ok)
			assert.Equal(t, tt.wantFloat, got)
		})
	}
}

func TestSafeBool(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		wantBool bool
		wantOk   bool
	}{
		{name: "true value", input: true, wantBool: true, wantOk: true},
		{name: "false value", input: false, wantBool: false, wantOk: true},
		{name: "nil value", input: nil, wantBool: false, wantOk: false},
		{name: "string value", input: "true", wantBool: false, wantOk: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SafeBool(tt.input)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.wantBool, got)
		})
	}
}

func TestSafeBoolDefault(t *testing.T) {
	assert.True(t, SafeBoolDefault(true, false))
	assert.False(t, SafeBoolDefault(false, true))
	assert.True(t, SafeBoolDefault(nil, true))
	assert.False(t, SafeBoolDefault("not bool", false))
}

// =============================================================================
// STRING SLICE TESTS
// =============================================================================

func TestSafeStringSlice(t *testing.T) {
	tests := []struct {
		name      string
		input     any
		wantSlice []string
		wantBool  bool
	}{
		{
			name:      "direct string slice",
			input:     []string{"a", "b", "c"},
			wantSlice: []string{"a", "b", "c"},
			wantBool:  true,
		},
		{
			name:      "any slice with strings",
			input:     []any{"a", "b", "c"},
			wantSlice: []string{"a", "b", "c"},
			wantBool:  true,
		},
		{
			name:      "any slice with mixed types",
			input:     []any{"a", 1, "c"},
			wantSlice: nil,
			wantBool:  false,
		},
		{
			name:      "nil value",
			input:     nil,
			wantSlice: nil,
			wantBool:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SafeStringSlice(tt.input)
			assert.Equal(t, tt.wantBool, ok)
			assert.Equal(t, tt.wantSlice, got)
		})
	}
}

// =============================================================================
// MERGE / TRUNCATE TESTS
// =============================================================================

func TestMergeMaps(t *testing.T) {
	base := map[string]any{"a": 1, "b": 2}
	overlay := map[string]any{"b": 20, "c": 3}

	merged := MergeMaps(base, overlay)
	assert.Equal(t, map[string]any{"a": 1, "b": 20, "c": 3}, merged)

	// Inputs are untouched.
	assert.Equal(t, 2, base["b"])
	assert.Equal(t, 2, len(overlay))
}

func TestMergeMaps_NilInputs(t *testing.T) {
	assert.Equal(t, map[string]any{}, MergeMaps(nil, nil))
	assert.Equal(t, map[string]any{"x": 1}, MergeMaps(nil, map[string]any{"x": 1}))
	assert.Equal(t, map[string]any{"x": 1}, MergeMaps(map[string]any{"x": 1}, nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "unchanged", Truncate("unchanged", 0))

	long := strings.Repeat("x", 1000)
	got := Truncate(long, 600)
	assert.Len(t, got, 603)
	assert.True(t, strings.HasSuffix(got, "..."))
}
