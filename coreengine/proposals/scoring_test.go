package proposals

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newScorer() *Scorer {
	return NewScorer([]string{"main", "config", "settings", "auth", "security"})
}

// =============================================================================
// CONFIDENCE TESTS
// =============================================================================

func TestConfidence_Base(t *testing.T) {
	s := newScorer()
	assert.InDelta(t, 0.5, s.Confidence("something odd happened", "rework the flow", 0), 1e-9)
}

func TestConfidence_ErrorMarkerBoost(t *testing.T) {
	s := newScorer()
	base := s.Confidence("weird failure", "rework", 0)

	for _, errText := range []string{
		"ImportError: no module named csv",
		"AttributeError: 'NoneType'",
		"TypeError: unsupported operand",
		"KeyError: 'account'",
		"missing argument: region",
	} {
		boosted := s.Confidence(errText, "rework", 0)
		assert.InDelta(t, base+0.2, boosted, 1e-9, "error %q", errText)
	}

	// Multiple markers boost once.
	assert.InDelta(t, base+0.2, s.Confidence("missing import", "rework", 0), 1e-9)
}

func TestConfidence_SummaryMarkerBoost(t *testing.T) {
	s := newScorer()
	base := s.Confidence("weird failure", "rework", 0)

	for _, summary := range []string{
		"Add import for csv module",
		"fix typo in field name",
		"update parameter default",
		"add missing return value",
	} {
		assert.InDelta(t, base+0.3, s.Confidence("weird failure", summary, 0), 1e-9, "summary %q", summary)
	}
}

func TestConfidence_PriorAttemptsBoost(t *testing.T) {
	s := newScorer()
	assert.InDelta(t, 0.5, s.Confidence("weird", "rework", 2), 1e-9)
	assert.InDelta(t, 0.6, s.Confidence("weird", "rework", 3), 1e-9)
	assert.InDelta(t, 0.6, s.Confidence("weird", "rework", 10), 1e-9)
}

func TestConfidence_ClippedToOne(t *testing.T) {
	s := newScorer()
	// 0.5 + 0.2 + 0.3 + 0.1 would be 1.1 without the clip.
	c := s.Confidence("ImportError: missing module", "add import of csv", 5)
	assert.InDelta(t, 1.0, c, 1e-9)
}

func TestConfidence_MonotonicUnderEachRule(t *testing.T) {
	s := newScorer()
	plain := s.Confidence("odd", "rework", 0)

	assert.GreaterOrEqual(t, s.Confidence("keyerror", "rework", 0), plain)
	assert.GreaterOrEqual(t, s.Confidence("odd", "fix typo", 0), plain)
	assert.GreaterOrEqual(t, s.Confidence("odd", "rework", 4), plain)
}

// =============================================================================
// RISK TESTS
// =============================================================================

func replacePlan(paths ...string) *PatchPlan {
	p := &PatchPlan{Summary: "fix"}
	for _, path := range paths {
		p.Files = append(p.Files, FileChange{
			Path: path, Operation: OpReplace, Search: "old text here", Replace: "new",
		})
	}
	return p
}

func TestRisk_MoreThanThreeFilesIsHigh(t *testing.T) {
	s := newScorer()

	// Precedence: 4 files is high even when every operation is a create.
	p := &PatchPlan{}
	for _, path := range []string{"a.go", "b.go", "c.go", "d.go"} {
		p.Files = append(p.Files, FileChange{Path: path, Operation: OpCreate, Content: "x"})
	}
	assert.Equal(t, RiskHigh, s.Risk(p))
}

func TestRisk_AllCreatesIsLow(t *testing.T) {
	s := newScorer()
	p := &PatchPlan{Files: []FileChange{
		{Path: "new_helper.go", Operation: OpCreate, Content: "x"},
		{Path: "new_helper_test.go", Operation: OpCreate, Content: "y"},
	}}
	assert.Equal(t, RiskLow, s.Risk(p))
}

func TestRisk_CriticalPathIsHigh(t *testing.T) {
	s := newScorer()
	assert.Equal(t, RiskHigh, s.Risk(replacePlan("cmd/main.go")))
	assert.Equal(t, RiskHigh, s.Risk(replacePlan("app/settings.py")))
}

func TestRisk_ShortImportReplaceIsLow(t *testing.T) {
	s := newScorer()
	p := &PatchPlan{Files: []FileChange{
		{Path: "exporter.py", Operation: OpReplace, Search: "import os", Replace: "import os\nimport csv"},
	}}
	assert.Equal(t, RiskLow, s.Risk(p))
}

func TestRisk_LongImportReplaceIsNotLow(t *testing.T) {
	s := newScorer()
	long := "import os\n" + strings.Repeat("x", 120)
	p := &PatchPlan{Files: []FileChange{
		{Path: "exporter.py", Operation: OpReplace, Search: long, Replace: "x"},
	}}
	assert.Equal(t, RiskMedium, s.Risk(p))
}

func TestRisk_DefaultIsMedium(t *testing.T) {
	s := newScorer()
	assert.Equal(t, RiskMedium, s.Risk(replacePlan("exporter.py")))
}

func TestRisk_CriticalBeatsImportRule(t *testing.T) {
	s := newScorer()
	p := &PatchPlan{Files: []FileChange{
		{Path: "config.py", Operation: OpReplace, Search: "import os", Replace: "import os, csv"},
	}}
	assert.Equal(t, RiskHigh, s.Risk(p))
}
