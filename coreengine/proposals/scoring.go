package proposals

import (
	"strings"
)

// RiskLevel classifies how dangerous auto-applying a plan would be.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// errMarkers in the failure's error text suggest a mechanical, well-understood
// failure class.
var errMarkers = []string{"import", "attribute", "typeerror", "keyerror", "missing"}

// summaryMarkers in the plan summary suggest a trivial fix.
var summaryMarkers = []string{"add import", "fix typo", "update parameter", "add missing"}

// Scorer computes auto-apply confidence and risk for patch plans.
type Scorer struct {
	// criticalMarkers are path fragments that mark a file as critical.
	criticalMarkers []string
}

// NewScorer creates a Scorer with the given critical path fragments.
func NewScorer(criticalMarkers []string) *Scorer {
	return &Scorer{criticalMarkers: criticalMarkers}
}

// Confidence scores how safe the plan looks, in [0,1]. Base 0.5; boosted for
// well-understood error classes, trivial-fix summaries, and persistent
// failures (3 or more prior attempts).
func (s *Scorer) Confidence(errText, planSummary string, priorAttempts int) float64 {
	confidence := 0.5

	lowerErr := strings.ToLower(errText)
	for _, marker := range errMarkers {
		if strings.Contains(lowerErr, marker) {
			confidence += 0.2
			break
		}
	}

	lowerSummary := strings.ToLower(planSummary)
	for _, marker := range summaryMarkers {
		if strings.Contains(lowerSummary, marker) {
			confidence += 0.3
			break
		}
	}

	if priorAttempts >= 3 {
		confidence += 0.1
	}

	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence
}

// Risk classifies the plan. Rules are checked in order, first match wins:
//  1. more than 3 files touched: high
//  2. every operation is a create: low
//  3. any touched path is critical: high
//  4. any replace whose search contains "import" and is under 100 chars: low
//  5. otherwise: medium
func (s *Scorer) Risk(plan *PatchPlan) RiskLevel {
	if len(plan.Paths()) > 3 {
		return RiskHigh
	}

	allCreates := true
	for _, fc := range plan.Files {
		if fc.Operation != OpCreate {
			allCreates = false
			break
		}
	}
	if allCreates && len(plan.Files) > 0 {
		return RiskLow
	}

	for _, path := range plan.Paths() {
		if s.isCritical(path) {
			return RiskHigh
		}
	}

	for _, fc := range plan.Files {
		if fc.Operation == OpReplace &&
			strings.Contains(strings.ToLower(fc.Search), "import") &&
			len(fc.Search) < 100 {
			return RiskLow
		}
	}

	return RiskMedium
}

func (s *Scorer) isCritical(path string) bool {
	lower := strings.ToLower(path)
	for _, marker := range s.criticalMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
