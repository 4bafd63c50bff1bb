// Package autofix decides whether a scored proposal may be applied without
// human review, and performs the gated application with pre-mutation backups.
package autofix

import (
	"sync"
	"time"
)

// ErrorSolution is a remembered fix for an error pattern.
type ErrorSolution struct {
	Solution    string         `json:"solution"`
	SuccessRate float64        `json:"success_rate"`
	Meta        map[string]any `json:"meta,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// KnowledgeStore remembers which fixes worked for which error patterns.
type KnowledgeStore interface {
	// FindErrorSolution returns the remembered solution for an error
	// pattern, or nil.
	FindErrorSolution(pattern string) *ErrorSolution

	// AddErrorSolution records a successful fix. Re-recording an existing
	// pattern boosts its success rate.
	AddErrorSolution(pattern, solution string, meta map[string]any)
}

// Success rates start modest and climb with repeated confirmations; the
// proven-fix fast path needs more than one success to unlock.
const (
	initialSuccessRate = 0.5
	successRateBoost   = 0.25
	maxSuccessRate     = 0.99
)

// InMemoryKnowledgeStore is a mutex-guarded in-process KnowledgeStore.
type InMemoryKnowledgeStore struct {
	mu        sync.Mutex
	solutions map[string]*ErrorSolution
}

var _ KnowledgeStore = (*InMemoryKnowledgeStore)(nil)

// NewInMemoryKnowledgeStore creates an empty store.
func NewInMemoryKnowledgeStore() *InMemoryKnowledgeStore {
	return &InMemoryKnowledgeStore{solutions: make(map[string]*ErrorSolution)}
}

// FindErrorSolution implements KnowledgeStore.
func (s *InMemoryKnowledgeStore) FindErrorSolution(pattern string) *ErrorSolution {
	s.mu.Lock()
	defer s.mu.Unlock()

	sol, ok := s.solutions[pattern]
	if !ok {
		return nil
	}
	out := *sol
	return &out
}

// AddErrorSolution implements KnowledgeStore.
func (s *InMemoryKnowledgeStore) AddErrorSolution(pattern, solution string, meta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.solutions[pattern]; ok {
		existing.SuccessRate += successRateBoost
		if existing.SuccessRate > maxSuccessRate {
			existing.SuccessRate = maxSuccessRate
		}
		existing.Solution = solution
		existing.UpdatedAt = time.Now().UTC()
		return
	}

	s.solutions[pattern] = &ErrorSolution{
		Solution:    solution,
		SuccessRate: initialSuccessRate,
		Meta:        meta,
		UpdatedAt:   time.Now().UTC(),
	}
}
