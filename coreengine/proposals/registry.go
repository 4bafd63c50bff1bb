package proposals

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ProposalStatus is the lifecycle state of an enhancement proposal.
type ProposalStatus string

const (
	StatusPending     ProposalStatus = "pending"
	StatusAutoApplied ProposalStatus = "auto_applied"
	StatusApplied     ProposalStatus = "applied"
	StatusRejected    ProposalStatus = "rejected"
)

// Proposal is a registered enhancement proposal: a scored patch plan plus
// the failure context it came from.
type Proposal struct {
	ID          string         `json:"id"`
	Trigger     string         `json:"trigger"`
	UserRequest string         `json:"user_request"`
	Analysis    map[string]any `json:"analysis,omitempty"`
	Summary     string         `json:"summary"`
	Reason      string         `json:"reason"`
	Files       []FileChange   `json:"files"`
	TestPlan    string         `json:"test_plan"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Confidence  float64        `json:"confidence"`
	RiskLevel   RiskLevel      `json:"risk_level"`
	Status      ProposalStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	AppliedAt   *time.Time     `json:"applied_at,omitempty"`
}

// Plan reconstructs the patch plan held by the proposal.
func (p *Proposal) Plan() *PatchPlan {
	return &PatchPlan{
		Summary:  p.Summary,
		Reason:   p.Reason,
		Files:    p.Files,
		TestPlan: p.TestPlan,
	}
}

// Registry is the proposal persistence and patch application port.
// Implementations are the sole mutators of source files.
type Registry interface {
	// RegisterProposal stores the proposal, assigning ID, pending status,
	// and creation time.
	RegisterProposal(ctx context.Context, p *Proposal) (*Proposal, error)

	// GetProposal returns the proposal, or nil when unknown.
	GetProposal(ctx context.Context, id string) (*Proposal, error)

	// ListEnhancements returns proposals, filtered by status when the
	// filter is non-empty.
	ListEnhancements(ctx context.Context, filter ProposalStatus) ([]*Proposal, error)

	// ApplyProposal applies every file change transactionally. On success
	// the status becomes auto_applied (when auto is set) or applied; on
	// failure the proposal stays pending and the error is returned.
	ApplyProposal(ctx context.Context, id string, auto bool) (*Proposal, error)
}

// FileRegistry is an in-process Registry that applies patches to files under
// a root directory. Each proposal is dry-validated first (a replace's search
// text must match exactly once) and applied all-or-nothing: on a mid-plan
// failure every file already written is rolled back.
type FileRegistry struct {
	root   string
	logger Logger

	mu        sync.Mutex
	proposals map[string]*Proposal
	order     []string
}

var _ Registry = (*FileRegistry)(nil)

// NewFileRegistry creates a FileRegistry rooted at dir.
func NewFileRegistry(dir string, logger Logger) *FileRegistry {
	return &FileRegistry{
		root:      dir,
		logger:    logger,
		proposals: make(map[string]*Proposal),
	}
}

// RegisterProposal implements Registry.
func (r *FileRegistry) RegisterProposal(ctx context.Context, p *Proposal) (*Proposal, error) {
	if err := p.Plan().Validate(); err != nil {
		return nil, fmt.Errorf("register proposal: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = uuid.NewString()
	p.Status = StatusPending
	p.CreatedAt = time.Now().UTC()

	r.proposals[p.ID] = p
	r.order = append(r.order, p.ID)

	r.logger.Info("proposal_registered",
		"proposal_id", p.ID,
		"trigger", p.Trigger,
		"files", len(p.Files),
		"risk_level", string(p.RiskLevel),
	)
	return p, nil
}

// GetProposal implements Registry.
func (r *FileRegistry) GetProposal(ctx context.Context, id string) (*Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.proposals[id], nil
}

// ListEnhancements implements Registry.
func (r *FileRegistry) ListEnhancements(ctx context.Context, filter ProposalStatus) ([]*Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Proposal
	for _, id := range r.order {
		p := r.proposals[id]
		if filter == "" || p.Status == filter {
			out = append(out, p)
		}
	}
	return out, nil
}

// ApplyProposal implements Registry.
func (r *FileRegistry) ApplyProposal(ctx context.Context, id string, auto bool) (*Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.proposals[id]
	if !ok {
		return nil, fmt.Errorf("unknown proposal: %s", id)
	}
	if p.Status != StatusPending {
		return nil, fmt.Errorf("proposal %s is %s, not pending", id, p.Status)
	}

	if err := r.applyAll(p.Files); err != nil {
		r.logger.Error("proposal_apply_failed", "proposal_id", id, "error", err.Error())
		return nil, err
	}

	now := time.Now().UTC()
	p.AppliedAt = &now
	if auto {
		p.Status = StatusAutoApplied
	} else {
		p.Status = StatusApplied
	}

	r.logger.Info("proposal_applied", "proposal_id", id, "status", string(p.Status))
	return p, nil
}

// applyAll dry-validates every change, then writes them, rolling back all
// written files when any write fails.
func (r *FileRegistry) applyAll(changes []FileChange) error {
	contents := make(map[string][]byte)
	exists := make(map[string]bool)

	for i, fc := range changes {
		path := r.resolve(fc.Path)
		if _, seen := contents[path]; !seen {
			data, err := os.ReadFile(path)
			switch {
			case err == nil:
				contents[path] = data
				exists[path] = true
			case os.IsNotExist(err):
				contents[path] = nil
				exists[path] = false
			default:
				return fmt.Errorf("read %s: %w", fc.Path, err)
			}
		}

		next, err := applyChange(contents[path], exists[path], fc)
		if err != nil {
			return fmt.Errorf("change %d: %w", i, err)
		}
		contents[path] = next
		exists[path] = true
	}

	// All changes validated in memory; now write, with rollback on failure.
	originals := make(map[string][]byte)
	existed := make(map[string]bool)
	var written []string

	rollback := func() {
		for i := len(written) - 1; i >= 0; i-- {
			path := written[i]
			if existed[path] {
				_ = os.WriteFile(path, originals[path], 0o644)
			} else {
				_ = os.Remove(path)
			}
		}
	}

	for path, data := range contents {
		orig, err := os.ReadFile(path)
		if err == nil {
			originals[path] = orig
			existed[path] = true
		} else if os.IsNotExist(err) {
			existed[path] = false
		} else {
			rollback()
			return fmt.Errorf("read %s: %w", path, err)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			rollback()
			return fmt.Errorf("mkdir for %s: %w", path, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			rollback()
			return fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}

	return nil
}

// applyChange computes the new content for one change against the current
// in-memory content.
func applyChange(current []byte, fileExists bool, fc FileChange) ([]byte, error) {
	switch fc.Operation {
	case OpReplace:
		if !fileExists {
			return nil, fmt.Errorf("replace target %s does not exist", fc.Path)
		}
		text := string(current)
		count := strings.Count(text, fc.Search)
		if count == 0 {
			return nil, fmt.Errorf("search text not found in %s", fc.Path)
		}
		if count > 1 {
			return nil, fmt.Errorf("search text matches %d times in %s, expected exactly one", count, fc.Path)
		}
		return []byte(strings.Replace(text, fc.Search, fc.Replace, 1)), nil

	case OpCreate:
		if fileExists {
			return nil, fmt.Errorf("create target %s already exists", fc.Path)
		}
		return []byte(fc.Content), nil

	case OpAppend:
		return append(append([]byte{}, current...), []byte(fc.Content)...), nil

	default:
		return nil, fmt.Errorf("unknown operation %q", string(fc.Operation))
	}
}

func (r *FileRegistry) resolve(path string) string {
	if filepath.IsAbs(path) || r.root == "" {
		return path
	}
	return filepath.Join(r.root, path)
}
