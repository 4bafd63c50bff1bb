// Package testutil provides shared test utilities and mocks.
//
// All mocks in this package are designed for testing the coreengine
// components in isolation without external dependencies. Nothing here
// imports other coreengine packages, so every package's tests can use it.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// MOCK ORACLE
// =============================================================================

// MockOracle implements the planning oracle port for testing.
// Configure responses by prompt substring or use DefaultResponse.
type MockOracle struct {
	// Responses maps prompt substrings to responses.
	// First matching substring wins.
	Responses map[string]string

	// DefaultResponse is returned when no substring matches.
	DefaultResponse string

	// Delay simulates oracle latency.
	Delay time.Duration

	// Error causes Invoke to return this error.
	Error error

	// CallCount tracks the number of Invoke calls.
	CallCount int

	// Prompts records every prompt for assertion.
	Prompts []string

	// InvokeFunc allows custom logic. If set, it is called instead of
	// using Responses.
	InvokeFunc func(context.Context, string) (string, error)

	mu sync.Mutex
}

// NewMockOracle creates a MockOracle with an empty JSON object default.
func NewMockOracle() *MockOracle {
	return &MockOracle{
		Responses:       make(map[string]string),
		DefaultResponse: `{}`,
	}
}

// Invoke implements the oracle port.
func (m *MockOracle) Invoke(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.CallCount++
	m.Prompts = append(m.Prompts, prompt)
	customFunc := m.InvokeFunc
	m.mu.Unlock()

	if customFunc != nil {
		return customFunc(ctx, prompt)
	}

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if m.Error != nil {
		return "", m.Error
	}

	for marker, response := range m.Responses {
		if strings.Contains(prompt, marker) {
			return response, nil
		}
	}

	return m.DefaultResponse, nil
}

// WithResponse adds a substring-keyed response.
func (m *MockOracle) WithResponse(marker, response string) *MockOracle {
	m.Responses[marker] = response
	return m
}

// WithError configures the mock to return an error.
func (m *MockOracle) WithError(err error) *MockOracle {
	m.Error = err
	return m
}

// WithDelay adds latency simulation.
func (m *MockOracle) WithDelay(d time.Duration) *MockOracle {
	m.Delay = d
	return m
}

// GetCallCount returns the number of calls (thread-safe).
func (m *MockOracle) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// LastPrompt returns the most recent prompt, or "" if none.
func (m *MockOracle) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return ""
	}
	return m.Prompts[len(m.Prompts)-1]
}

// Reset clears call history.
func (m *MockOracle) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount = 0
	m.Prompts = nil
}

// =============================================================================
// MOCK TOOL CALLBACK
// =============================================================================

// Outcome scripts one tool invocation.
type Outcome struct {
	Result map[string]any
	Err    error
}

// MockToolCallback implements the tool callback port for testing.
// Script entries are consumed in order; once exhausted (or when empty),
// per-tool Results/Errors apply, then a default success.
type MockToolCallback struct {
	// Script holds per-call outcomes consumed front to back.
	Script []Outcome

	// Results maps tool names to their results.
	Results map[string]map[string]any

	// Errors maps tool names to errors they should return.
	Errors map[string]error

	// Delay simulates tool execution latency.
	Delay time.Duration

	// CallCount tracks the number of Execute calls.
	CallCount int

	// Calls records all calls for assertion.
	Calls []ToolCall

	mu sync.Mutex
}

// ToolCall records a single tool execution for assertion.
type ToolCall struct {
	ToolName string
	Payload  map[string]any
}

// NewMockToolCallback creates a MockToolCallback with sensible defaults.
func NewMockToolCallback() *MockToolCallback {
	return &MockToolCallback{
		Results: make(map[string]map[string]any),
		Errors:  make(map[string]error),
	}
}

// Execute implements the tool callback port.
func (m *MockToolCallback) Execute(ctx context.Context, toolName string, payload map[string]any) (map[string]any, error) {
	m.mu.Lock()
	m.CallCount++
	m.Calls = append(m.Calls, ToolCall{ToolName: toolName, Payload: payload})
	var scripted *Outcome
	if len(m.Script) > 0 {
		next := m.Script[0]
		m.Script = m.Script[1:]
		scripted = &next
	}
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if scripted != nil {
		return scripted.Result, scripted.Err
	}

	if err, exists := m.Errors[toolName]; exists {
		return nil, err
	}
	if result, exists := m.Results[toolName]; exists {
		return result, nil
	}

	return map[string]any{
		"status": "success",
		"result": map[string]any{"tool": toolName},
	}, nil
}

// WithScript appends scripted outcomes consumed one per call.
func (m *MockToolCallback) WithScript(outcomes ...Outcome) *MockToolCallback {
	m.Script = append(m.Script, outcomes...)
	return m
}

// WithResult adds a per-tool result.
func (m *MockToolCallback) WithResult(toolName string, result map[string]any) *MockToolCallback {
	m.Results[toolName] = result
	return m
}

// WithError configures a tool to return an error.
func (m *MockToolCallback) WithError(toolName string, err error) *MockToolCallback {
	m.Errors[toolName] = err
	return m
}

// GetCallCount returns the number of calls (thread-safe).
func (m *MockToolCallback) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// Reset clears call history.
func (m *MockToolCallback) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount = 0
	m.Calls = nil
}

// =============================================================================
// MOCK LOGGER
// =============================================================================

// MockLogger captures structured log entries for assertion.
type MockLogger struct {
	// Logs captures all log entries.
	Logs []LogEntry

	mu sync.Mutex
}

// LogEntry represents a captured log entry.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// NewMockLogger creates a MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{
		Logs: make([]LogEntry, 0),
	}
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) {
	m.log("debug", msg, keysAndValues...)
}

func (m *MockLogger) Info(msg string, keysAndValues ...any) {
	m.log("info", msg, keysAndValues...)
}

func (m *MockLogger) Warn(msg string, keysAndValues ...any) {
	m.log("warn", msg, keysAndValues...)
}

func (m *MockLogger) Error(msg string, keysAndValues ...any) {
	m.log("error", msg, keysAndValues...)
}

func (m *MockLogger) log(level, msg string, keysAndValues ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fields := make(map[string]any)
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}

	m.Logs = append(m.Logs, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  fields,
	})
}

// GetLogs returns captured logs (thread-safe).
func (m *MockLogger) GetLogs() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]LogEntry, len(m.Logs))
	copy(copied, m.Logs)
	return copied
}

// HasLog checks if a log message exists at the given level.
func (m *MockLogger) HasLog(level, message string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, entry := range m.Logs {
		if entry.Level == level && entry.Message == message {
			return true
		}
	}
	return false
}

// Clear removes all captured logs.
func (m *MockLogger) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = nil
}
