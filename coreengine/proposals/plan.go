// Package proposals turns terminal failures into structured, file-level
// patch proposals: the plan schema, the oracle-backed proposer, the
// confidence/risk scorer, and the registry that persists and applies
// proposals.
package proposals

import (
	"fmt"

	"github.com/jeeves-cluster-organization/selfheal/coreengine/typeutil"
)

// Operation is a file-level patch operation.
type Operation string

const (
	OpReplace Operation = "replace"
	OpCreate  Operation = "create"
	OpAppend  Operation = "append"
)

// OperationFromString converts a string to Operation; "" marks invalid.
func OperationFromString(s string) Operation {
	switch s {
	case "replace":
		return OpReplace
	case "create":
		return OpCreate
	case "append":
		return OpAppend
	default:
		return ""
	}
}

// FileChange is one file operation in a patch plan. The JSON shape is a
// compatibility contract with external proposal stores; field names must not
// change.
type FileChange struct {
	Path        string    `json:"path"`
	Operation   Operation `json:"operation"`
	Description string    `json:"description,omitempty"`

	// replace payload
	Search  string `json:"search,omitempty"`
	Replace string `json:"replace,omitempty"`

	// create/append payload
	Content string `json:"content,omitempty"`
}

// Validate checks the operation payload invariant: replace requires both
// search and replace, create and append require content.
func (fc *FileChange) Validate() error {
	if fc.Path == "" {
		return fmt.Errorf("file change missing path")
	}
	switch fc.Operation {
	case OpReplace:
		if fc.Search == "" || fc.Replace == "" {
			return fmt.Errorf("replace operation on %s requires search and replace", fc.Path)
		}
	case OpCreate, OpAppend:
		if fc.Content == "" {
			return fmt.Errorf("%s operation on %s requires content", fc.Operation, fc.Path)
		}
	default:
		return fmt.Errorf("unknown operation %q on %s", string(fc.Operation), fc.Path)
	}
	return nil
}

// PatchPlan is a structured, file-level code change.
type PatchPlan struct {
	Summary  string       `json:"summary"`
	Reason   string       `json:"reason"`
	Files    []FileChange `json:"files"`
	TestPlan string       `json:"test_plan"`
}

// Validate checks the plan has at least one valid file change.
func (p *PatchPlan) Validate() error {
	if len(p.Files) == 0 {
		return fmt.Errorf("patch plan has no file changes")
	}
	for i := range p.Files {
		if err := p.Files[i].Validate(); err != nil {
			return fmt.Errorf("file %d: %w", i, err)
		}
	}
	return nil
}

// Paths returns the distinct file paths the plan touches, in order of first
// appearance.
func (p *PatchPlan) Paths() []string {
	seen := make(map[string]bool, len(p.Files))
	var paths []string
	for _, fc := range p.Files {
		if !seen[fc.Path] {
			seen[fc.Path] = true
			paths = append(paths, fc.Path)
		}
	}
	return paths
}

// PlanFromMap decodes a patch plan from an oracle response. Returns an error
// when the shape or the operation payload invariant is violated.
func PlanFromMap(m map[string]any) (*PatchPlan, error) {
	plan := &PatchPlan{
		Summary:  typeutil.SafeStringDefault(m["summary"], ""),
		Reason:   typeutil.SafeStringDefault(m["reason"], ""),
		TestPlan: typeutil.SafeStringDefault(m["test_plan"], ""),
	}

	files, ok := m["files"].([]any)
	if !ok {
		return nil, fmt.Errorf("patch plan missing files list")
	}
	for _, entry := range files {
		fm, ok := typeutil.SafeMapStringAny(entry)
		if !ok {
			return nil, fmt.Errorf("patch plan file entry is not an object")
		}
		plan.Files = append(plan.Files, FileChange{
			Path:        typeutil.SafeStringDefault(fm["path"], ""),
			Operation:   OperationFromString(typeutil.SafeStringDefault(fm["operation"], "")),
			Description: typeutil.SafeStringDefault(fm["description"], ""),
			Search:      typeutil.SafeStringDefault(fm["search"], ""),
			Replace:     typeutil.SafeStringDefault(fm["replace"], ""),
			Content:     typeutil.SafeStringDefault(fm["content"], ""),
		})
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}
