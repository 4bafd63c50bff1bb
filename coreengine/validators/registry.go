// Package validators provides per-tool ground-truth checks. A tool callback
// reporting "success" is taken at face value unless a validator registered
// for that tool finds issues with the result payload.
package validators

import (
	"fmt"
	"sync"
)

// Validator inspects a successful result payload and returns a list of
// issues. An empty list means the result passes.
type Validator func(result map[string]any) []string

// Registry maps tool names to their ground-truth validators.
// Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]Validator
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]Validator)}
}

// Register sets the validator for a tool, replacing any existing one.
func (r *Registry) Register(toolName string, v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[toolName] = v
}

// Unregister removes a tool's validator.
func (r *Registry) Unregister(toolName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.validators, toolName)
}

// Has reports whether a validator is registered for the tool.
func (r *Registry) Has(toolName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.validators[toolName]
	return ok
}

// Validate runs the tool's validator against a result payload. No registered
// validator, or a nil result, yields no issues. A panicking validator never
// crashes the engine; the panic becomes a single issue string.
func (r *Registry) Validate(toolName string, result map[string]any) (issues []string) {
	r.mu.RLock()
	v, ok := r.validators[toolName]
	r.mu.RUnlock()

	if !ok || v == nil || result == nil {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			issues = []string{fmt.Sprintf("validator for %s panicked: %v", toolName, rec)}
		}
	}()

	return v(result)
}
