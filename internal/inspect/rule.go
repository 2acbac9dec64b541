package inspect

import (
	"errors"

	"github.com/coregx/coregex"

	"texify/internal/diag"
	"texify/internal/latex"
	"texify/internal/source"
)

// Rule is the immutable description of one pattern inspection. Only ID,
// Name and Pattern are required; every unset hook falls back to the
// default documented on the field. A Rule holds no per-run state and may be
// shared between goroutines.
type Rule struct {
	ID       string
	Name     string
	Group    string
	Pattern  *coregex.Regex
	Severity diag.Severity
	// MathMode selects matches inside math (true) or outside math (false).
	MathMode bool

	// Message describes a match. Defaults to Name.
	Message func(m Match) string
	// Replacement computes the text that replaces ReplacementRange.
	// Defaults to the empty string.
	Replacement func(m Match, file *source.File) string
	// Groups returns the regex groups a fix needs. Defaults to none.
	Groups func(m Match) []string
	// HighlightRange defaults to the whole match.
	HighlightRange func(m Match) Range
	// ReplacementRange defaults to the whole match.
	ReplacementRange func(m Match) Range
	// FixName defaults to Name.
	FixName func(m Match) string
	// CancelIf drops a match before any context check. Defaults to never.
	CancelIf func(m Match, file *source.File) bool
	// Context is an extra structural predicate evaluated on the element at
	// the match start, after the math mode check. Defaults to always.
	Context ContextFunc

	// BatchMessage is the message of the single whole-buffer diagnostic.
	BatchMessage string
	// BatchFixName titles the whole-buffer fix.
	BatchFixName string
	// Applicability is copied onto every fix the rule produces.
	Applicability diag.FixApplicability
}

// ContextFunc inspects the syntax around a match. element is the innermost
// node at the match start.
type ContextFunc func(m Match, tree *latex.Tree, element latex.Node) bool

var (
	errNoID      = errors.New("rule has no id")
	errNoPattern = errors.New("rule has no pattern")
)

// Validate checks the required fields.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return errNoID
	}
	if r.Pattern == nil {
		return errNoPattern
	}
	return nil
}

func (r *Rule) message(m Match) string {
	if r.Message != nil {
		return r.Message(m)
	}
	return r.Name
}

func (r *Rule) replacement(m Match, file *source.File) string {
	if r.Replacement != nil {
		return r.Replacement(m, file)
	}
	return ""
}

func (r *Rule) groups(m Match) []string {
	if r.Groups != nil {
		return r.Groups(m)
	}
	return nil
}

func (r *Rule) highlightRange(m Match) Range {
	if r.HighlightRange != nil {
		return r.HighlightRange(m)
	}
	return m.Range()
}

func (r *Rule) replacementRange(m Match) Range {
	if r.ReplacementRange != nil {
		return r.ReplacementRange(m)
	}
	return m.Range()
}

func (r *Rule) fixName(m Match) string {
	if r.FixName != nil {
		return r.FixName(m)
	}
	return r.Name
}

func (r *Rule) cancelled(m Match, file *source.File) bool {
	return r.CancelIf != nil && r.CancelIf(m, file)
}

func (r *Rule) batchMessage() string {
	if r.BatchMessage != "" {
		return r.BatchMessage
	}
	return r.Name
}

func (r *Rule) batchFixName() string {
	if r.BatchFixName != "" {
		return r.BatchFixName
	}
	return "Fix all '" + r.Name + "' problems in file"
}
