// Package tools provides the in-process tool registry backing the engine's
// tool callback port.
package tools

import (
	"context"
	"fmt"
	"sync"
)

// ToolHandler is a function that executes a tool. It returns the tool's
// result payload; a non-nil error is treated as an exception by the engine.
type ToolHandler func(ctx context.Context, payload map[string]any) (map[string]any, error)

// ToolDefinition defines a tool's metadata and handler.
type ToolDefinition struct {
	Name        string
	Description string
	Handler     ToolHandler
}

// ToolExecutor executes tools by name. Execute normalizes every outcome into
// the callback envelope {"status", "result"?, "error"?} the engine consumes;
// handlers that already return such an envelope pass through untouched.
type ToolExecutor struct {
	tools map[string]*ToolDefinition
	mu    sync.RWMutex
}

// NewToolExecutor creates a new ToolExecutor.
func NewToolExecutor() *ToolExecutor {
	return &ToolExecutor{
		tools: make(map[string]*ToolDefinition),
	}
}

// Register registers a tool.
func (e *ToolExecutor) Register(def *ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool handler is required for '%s'", def.Name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.tools[def.Name] = def
	return nil
}

// Execute runs a tool by name. An unknown tool is an operational error, not
// an exception: the engine should retry or heal, not crash.
func (e *ToolExecutor) Execute(ctx context.Context, toolName string, payload map[string]any) (map[string]any, error) {
	e.mu.RLock()
	def, exists := e.tools[toolName]
	e.mu.RUnlock()

	if !exists {
		return map[string]any{
			"status": "error",
			"error":  fmt.Sprintf("tool not found: %s", toolName),
		}, nil
	}

	result, err := def.Handler(ctx, payload)
	if err != nil {
		return nil, err
	}
	if _, shaped := result["status"]; shaped {
		return result, nil
	}
	return map[string]any{
		"status": "success",
		"result": result,
	}, nil
}

// Has checks if a tool is registered.
func (e *ToolExecutor) Has(toolName string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, exists := e.tools[toolName]
	return exists
}

// List returns all registered tool names.
func (e *ToolExecutor) List() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.tools))
	for name := range e.tools {
		names = append(names, name)
	}
	return names
}

// GetDefinition gets a tool definition by name.
func (e *ToolExecutor) GetDefinition(toolName string) *ToolDefinition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tools[toolName]
}
