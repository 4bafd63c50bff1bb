package autofix

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeeves-cluster-organization/selfheal/coreengine/config"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/proposals"
)

// provenFixThreshold is the success rate above which a remembered fix
// bypasses the confidence/risk check.
const provenFixThreshold = 0.9

// Logger is the interface for logging.
type Logger interface {
	Info(msg string, fields ...any)
	Debug(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// ApplyOutcome reports what ApplyFix did.
type ApplyOutcome string

const (
	OutcomeQueued  ApplyOutcome = "queued"
	OutcomeApplied ApplyOutcome = "applied"
	OutcomeError   ApplyOutcome = "error"
)

// ApplyResult is the outcome of one ApplyFix call.
type ApplyResult struct {
	Outcome  ApplyOutcome        `json:"outcome"`
	Proposal *proposals.Proposal `json:"proposal,omitempty"`

	// BackupDir is where pre-mutation copies were placed. Populated even
	// on failure; no automatic restore is performed.
	BackupDir string `json:"backup_dir,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Gate is the auto-fix policy. It never mutates files itself; the registry
// does, after the gate backs up every referenced file.
type Gate struct {
	configProvider config.ConfigProvider
	registry       proposals.Registry
	knowledge      KnowledgeStore
	logger         Logger

	// sourceRoot resolves relative proposal paths, matching the registry's
	// resolution.
	sourceRoot string
}

// NewGate creates a Gate.
func NewGate(
	configProvider config.ConfigProvider,
	registry proposals.Registry,
	knowledge KnowledgeStore,
	sourceRoot string,
	logger Logger,
) *Gate {
	return &Gate{
		configProvider: configProvider,
		registry:       registry,
		knowledge:      knowledge,
		sourceRoot:     sourceRoot,
		logger:         logger,
	}
}

// ShouldAutoApply decides whether the proposal may be applied without human
// review. Auto-fix disabled means never. Otherwise high confidence plus low
// risk approves, as does a proven fix for the same error pattern.
func (g *Gate) ShouldAutoApply(p *proposals.Proposal, errText string) bool {
	cfg := g.configProvider.GetEngineConfig()
	if !cfg.AutoFixEnabled {
		return false
	}

	if p.Confidence >= cfg.AutoFixConfidenceThreshold && p.RiskLevel == proposals.RiskLow {
		return true
	}

	if errText != "" && g.knowledge != nil {
		if sol := g.knowledge.FindErrorSolution(errText); sol != nil && sol.SuccessRate > provenFixThreshold {
			g.logger.Info("proven_fix_matched",
				"proposal_id", p.ID,
				"success_rate", sol.SuccessRate,
			)
			return true
		}
	}

	return false
}

// ApplyFix applies a proposal through the registry. Without approval or
// force it queues and touches nothing. Otherwise it backs up every
// referenced file first, then delegates the mutation; on success it boosts
// the knowledge store for the error pattern. On registry failure the error
// and the backup location are reported; files are left as the registry left
// them.
func (g *Gate) ApplyFix(ctx context.Context, p *proposals.Proposal, errText string, force bool) ApplyResult {
	approved := g.ShouldAutoApply(p, errText)
	if !approved && !force {
		g.logger.Info("fix_queued_for_review",
			"proposal_id", p.ID,
			"confidence", p.Confidence,
			"risk_level", string(p.RiskLevel),
		)
		return ApplyResult{Outcome: OutcomeQueued, Proposal: p}
	}

	backupDir, err := g.backupFiles(p)
	if err != nil {
		return ApplyResult{
			Outcome:  OutcomeError,
			Proposal: p,
			Error:    fmt.Sprintf("backup failed: %v", err),
		}
	}

	applied, err := g.registry.ApplyProposal(ctx, p.ID, !force)
	if err != nil {
		return ApplyResult{
			Outcome:   OutcomeError,
			Proposal:  p,
			BackupDir: backupDir,
			Error:     err.Error(),
		}
	}

	if errText != "" && g.knowledge != nil {
		g.knowledge.AddErrorSolution(errText, applied.Summary, map[string]any{
			"proposal_id": applied.ID,
		})
	}

	g.logger.Info("fix_applied",
		"proposal_id", applied.ID,
		"status", string(applied.Status),
		"backup_dir", backupDir,
	)
	return ApplyResult{Outcome: OutcomeApplied, Proposal: applied, BackupDir: backupDir}
}

// backupFiles copies every existing referenced file into a timestamped
// directory under the configured backup root. Files the proposal would
// create are skipped.
func (g *Gate) backupFiles(p *proposals.Proposal) (string, error) {
	cfg := g.configProvider.GetEngineConfig()
	backupDir := filepath.Join(cfg.BackupDir,
		fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405"), p.ID))

	var copied bool
	for _, path := range p.Plan().Paths() {
		src := path
		if !filepath.IsAbs(src) && g.sourceRoot != "" {
			src = filepath.Join(g.sourceRoot, src)
		}

		data, err := os.ReadFile(src)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return backupDir, err
		}

		dst := filepath.Join(backupDir, filepath.Base(path))
		if !copied {
			if err := os.MkdirAll(backupDir, 0o755); err != nil {
				return backupDir, err
			}
			copied = true
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return backupDir, err
		}
	}

	return backupDir, nil
}
