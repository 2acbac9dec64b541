package rules

import (
	"strings"

	"github.com/coregx/coregex"

	"texify/internal/config"
	"texify/internal/diag"
	"texify/internal/inspect"
	"texify/internal/latex"
	"texify/internal/source"
)

var (
	referencePattern = coregex.MustCompile(`(?P<space>[ \t]+)\\(?P<cmd>ref|cref|Cref|eqref|autoref|pageref|cite)\b`)
	spacedArgument   = coregex.MustCompile(`\{(?P<key>[^{}\n]*\s[^{}\n]*)\}`)
)

// NonBreakingReference asks for ~ between a word and the reference after it.
func NonBreakingReference() *inspect.Rule {
	return &inspect.Rule{
		ID:       "nbsp-ref",
		Name:     "Non-breaking space before reference",
		Group:    GroupLaTeX,
		Pattern:  referencePattern,
		Severity: diag.SevWeakWarning,
		Message: func(m inspect.Match) string {
			return `Reference \` + m.NamedGroup("cmd") + ` should be preceded by a non-breaking space (~)`
		},
		Groups:           func(m inspect.Match) []string { return []string{m.NamedGroup("cmd")} },
		ReplacementRange: func(m inspect.Match) inspect.Range { return m.GroupRange(1) },
		Replacement:      func(inspect.Match, *source.File) string { return "~" },
		FixName:          func(inspect.Match) string { return "Insert non-breaking space" },
		// Indentation at the start of a line is not a word space.
		CancelIf: func(m inspect.Match, _ *source.File) bool {
			before := m.Buffer()[:m.Start()]
			if i := strings.LastIndexByte(before, '\n'); i >= 0 {
				before = before[i+1:]
			}
			return isBlank(before)
		},
		BatchMessage: "References without non-breaking spaces in file",
		BatchFixName: "Insert all non-breaking spaces",
	}
}

// LabelSpaces flags whitespace inside the label argument of a labeling
// command.
func LabelSpaces(labeling []config.LabelingCommand) *inspect.Rule {
	if len(labeling) == 0 {
		labeling = config.DefaultLabeling()
	}
	positions := make(map[string]int, len(labeling))
	names := make([]string, 0, len(labeling))
	for _, l := range labeling {
		positions[l.CommandName()] = l.Position - 1
		names = append(names, l.CommandName())
	}
	return &inspect.Rule{
		ID:       "label-spaces",
		Name:     "Whitespace in label",
		Group:    GroupLaTeX,
		Pattern:  spacedArgument,
		Severity: diag.SevWarning,
		Context: inspect.All(
			inspect.InCommandArgument(names...),
			func(m inspect.Match, tree *latex.Tree, _ latex.Node) bool {
				cmd, idx, _ := tree.CommandArgument(m.Start())
				return positions[cmd.Name] == idx
			},
		),
		Message: func(m inspect.Match) string {
			return "Label '" + m.NamedGroup("key") + "' contains whitespace"
		},
		Groups:           func(m inspect.Match) []string { return []string{m.NamedGroup("key")} },
		HighlightRange:   func(m inspect.Match) inspect.Range { return m.GroupRange(1) },
		ReplacementRange: func(m inspect.Match) inspect.Range { return m.GroupRange(1) },
		Replacement: func(m inspect.Match, _ *source.File) string {
			return strings.Join(strings.Fields(m.NamedGroup("key")), "-")
		},
		FixName:       func(inspect.Match) string { return "Replace whitespace with hyphens" },
		BatchMessage:  "Labels containing whitespace in file",
		Applicability: diag.FixApplicabilityManualReview,
	}
}
