package telemetry

import (
	"sync"
	"time"
)

// FailureHistory counts identical (tool, error) failures so the analyzer can
// report recurrence.
type FailureHistory struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewFailureHistory creates an empty FailureHistory.
func NewFailureHistory() *FailureHistory {
	return &FailureHistory{counts: make(map[string]int)}
}

// RecordFailure increments the count for (tool, error) and returns the new
// total, including this occurrence.
func (h *FailureHistory) RecordFailure(tool, errText string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := tool + "|" + errText
	h.counts[key]++
	return h.counts[key]
}

// RecurrenceCount returns how often (tool, error) has been recorded.
func (h *FailureHistory) RecurrenceCount(tool, errText string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[tool+"|"+errText]
}

// Recommendation is an advisory suggestion produced opportunistically during
// finalization. Stored for later review, never applied automatically.
type Recommendation struct {
	Timestamp time.Time `json:"timestamp"`
	Tool      string    `json:"tool"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
}

// Recommendation kinds.
const (
	RecommendationAlternative = "alternative_approach"
	RecommendationEnhancement = "future_enhancement"
)

// RecommendationStore is a bounded list of advisory recommendations.
type RecommendationStore struct {
	mu    sync.Mutex
	items []Recommendation
	cap   int
}

// NewRecommendationStore creates a store. A non-positive capacity selects 100.
func NewRecommendationStore(capacity int) *RecommendationStore {
	if capacity <= 0 {
		capacity = 100
	}
	return &RecommendationStore{cap: capacity}
}

// Append stores a recommendation, evicting the oldest past capacity.
func (s *RecommendationStore) Append(rec Recommendation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, rec)
	if len(s.items) > s.cap {
		s.items = s.items[len(s.items)-s.cap:]
	}
}

// List returns a copy of all stored recommendations, oldest first.
func (s *RecommendationStore) List() []Recommendation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Recommendation, len(s.items))
	copy(out, s.items)
	return out
}
