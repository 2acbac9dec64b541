package diag

import (
	"texify/internal/source"
)

// FixApplicability describes how confident a fix is.
type FixApplicability uint8

const (
	FixApplicabilityAlwaysSafe FixApplicability = iota
	FixApplicabilitySafeWithHeuristics
	FixApplicabilityManualReview
)

func (a FixApplicability) String() string {
	switch a {
	case FixApplicabilityAlwaysSafe:
		return "always-safe"
	case FixApplicabilitySafeWithHeuristics:
		return "safe-with-heuristics"
	case FixApplicabilityManualReview:
		return "manual-review"
	}
	return "unknown"
}

// TextEdit replaces the bytes covered by Span with NewText. OldText, when
// set, guards the edit: it is only applied if the current text matches.
type TextEdit struct {
	Span    source.Span
	NewText string
	OldText string
}

// Fix is one user-invokable corrective action. Edits are ordered by
// ascending Span.Start and never overlap.
type Fix struct {
	ID            string
	Title         string
	Edits         []TextEdit
	Groups        []string
	Applicability FixApplicability
}

type Diagnostic struct {
	Rule     string
	Severity Severity
	Message  string
	Primary  source.Span
	// WholeFile marks diagnostics attached to the entire buffer rather
	// than to a single match.
	WholeFile bool
	Fixes     []Fix
}

// HasFix reports whether d carries at least one fix with edits.
func (d *Diagnostic) HasFix() bool {
	for i := range d.Fixes {
		if len(d.Fixes[i].Edits) > 0 {
			return true
		}
	}
	return false
}
