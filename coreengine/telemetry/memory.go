package telemetry

import (
	"sync"
	"time"

	"github.com/jeeves-cluster-organization/selfheal/coreengine/typeutil"
)

// resultPreviewLimit bounds the stored result text; snapshots are advisory
// context, not an archive.
const resultPreviewLimit = 600

// MemorySnapshot captures one finished execution for future contract
// building. Advisory only, never authoritative.
type MemorySnapshot struct {
	Timestamp  time.Time `json:"timestamp"`
	Request    string    `json:"request"`
	Tool       string    `json:"tool"`
	Status     Status    `json:"status"`
	Result     string    `json:"result,omitempty"`
	Intent     string    `json:"intent,omitempty"`
	Attempts   int       `json:"attempts"`
	DurationMS int       `json:"duration_ms"`
	Notes      string    `json:"notes,omitempty"`
}

// ToMap converts the snapshot for oracle prompt context.
func (s MemorySnapshot) ToMap() map[string]any {
	return map[string]any{
		"timestamp":   s.Timestamp.UTC().Format(time.RFC3339),
		"request":     s.Request,
		"tool":        s.Tool,
		"status":      string(s.Status),
		"result":      s.Result,
		"intent":      s.Intent,
		"attempts":    s.Attempts,
		"duration_ms": s.DurationMS,
		"notes":       s.Notes,
	}
}

// MemoryStore is a rolling window of MemorySnapshots.
type MemoryStore struct {
	mu        sync.Mutex
	snapshots []MemorySnapshot
	window    int
}

// NewMemoryStore creates a MemoryStore. A non-positive window selects 50.
func NewMemoryStore(window int) *MemoryStore {
	if window <= 0 {
		window = 50
	}
	return &MemoryStore{window: window}
}

// Append stores a snapshot, truncating its result preview and evicting the
// oldest entries past the window.
func (m *MemoryStore) Append(snap MemorySnapshot) {
	snap.Result = typeutil.Truncate(snap.Result, resultPreviewLimit)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots = append(m.snapshots, snap)
	if len(m.snapshots) > m.window {
		m.snapshots = m.snapshots[len(m.snapshots)-m.window:]
	}
}

// RecentForTool returns up to n most recent snapshots for a tool, newest
// first, as maps ready for prompt context.
func (m *MemoryStore) RecentForTool(tool string, n int) []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []map[string]any
	for i := len(m.snapshots) - 1; i >= 0 && len(out) < n; i-- {
		if m.snapshots[i].Tool == tool {
			out = append(out, m.snapshots[i].ToMap())
		}
	}
	return out
}

// Len returns the number of stored snapshots.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots)
}
