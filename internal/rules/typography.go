package rules

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/coregex"

	"texify/internal/config"
	"texify/internal/diag"
	"texify/internal/inspect"
	"texify/internal/latex"
	"texify/internal/source"
)

var (
	ellipsisPattern     = coregex.MustCompile(`\.\.\.`)
	abbreviationPattern = coregex.MustCompile(`\b(?P<abbr>e\.g|i\.e|cf|vs|etc)\.(?P<space>\s)`)
	quotesPattern       = coregex.MustCompile(`"(?P<body>[^"\n]*)"`)
	displayDollar       = coregex.MustCompile(`\$\$(?P<body>[^$]*)\$\$`)
)

// controlWord returns cmd followed by {} when the next character would
// otherwise be swallowed into the command name or as the space after it.
func controlWord(cmd string, m inspect.Match, keepSpace bool) string {
	r, _ := utf8.DecodeRuneInString(m.After(utf8.UTFMax))
	if unicode.IsLetter(r) || (keepSpace && r == ' ') {
		return cmd + "{}"
	}
	return cmd
}

// partOfLongerRun cancels ellipsis matches that are part of four or more
// dots.
func partOfLongerRun(m inspect.Match, _ *source.File) bool {
	return m.Before(1) == "." || m.After(1) == "."
}

func Ellipsis() *inspect.Rule {
	return &inspect.Rule{
		ID:       "ellipsis",
		Name:     `Ellipsis with ... instead of \ldots`,
		Group:    GroupLaTeX,
		Pattern:  ellipsisPattern,
		Severity: diag.SevWeakWarning,
		Message: func(inspect.Match) string {
			return `Ellipsis with ... instead of \ldots`
		},
		Replacement: func(m inspect.Match, _ *source.File) string {
			return controlWord(`\ldots`, m, true)
		},
		FixName:      func(inspect.Match) string { return `Convert to \ldots` },
		CancelIf:     partOfLongerRun,
		BatchMessage: `Ellipses with ... instead of \ldots in file`,
		BatchFixName: `Convert all ellipses to \ldots`,
	}
}

func MathEllipsis() *inspect.Rule {
	return &inspect.Rule{
		ID:       "math-ellipsis",
		Name:     `Ellipsis with ... instead of \dots in math`,
		Group:    GroupLaTeX,
		Pattern:  ellipsisPattern,
		Severity: diag.SevWeakWarning,
		MathMode: true,
		Message: func(inspect.Match) string {
			return `Ellipsis with ... instead of \dots`
		},
		Replacement: func(m inspect.Match, _ *source.File) string {
			return controlWord(`\dots`, m, false)
		},
		FixName:      func(inspect.Match) string { return `Convert to \dots` },
		CancelIf:     partOfLongerRun,
		BatchMessage: `Ellipses with ... in math in file`,
	}
}

// AbbreviationSpace flags an inter-sentence space after an abbreviation.
// TeX would stretch it as the end of a sentence.
func AbbreviationSpace() *inspect.Rule {
	return &inspect.Rule{
		ID:       "abbreviation-space",
		Name:     "Abbreviation followed by an inter-sentence space",
		Group:    GroupLaTeX,
		Pattern:  abbreviationPattern,
		Severity: diag.SevWeakWarning,
		Message: func(m inspect.Match) string {
			return "Abbreviation '" + m.NamedGroup("abbr") + ".' should be followed by a normal space"
		},
		Groups:           func(m inspect.Match) []string { return []string{m.NamedGroup("abbr")} },
		ReplacementRange: func(m inspect.Match) inspect.Range { return m.GroupRange(2) },
		HighlightRange: func(m inspect.Match) inspect.Range {
			return inspect.Range{Start: m.Start(), End: m.GroupRange(2).Start}
		},
		Replacement: func(inspect.Match, *source.File) string { return `\ ` },
		FixName:     func(inspect.Match) string { return `Insert normal space (\ )` },
		CancelIf: func(m inspect.Match, _ *source.File) bool {
			if m.Group(2) == "\n" {
				return true
			}
			// "etc." ending a sentence.
			if m.NamedGroup("abbr") == "etc" {
				r, _ := utf8.DecodeRuneInString(m.After(utf8.UTFMax))
				return unicode.IsUpper(r)
			}
			return false
		},
		BatchMessage: "Abbreviations followed by inter-sentence spaces in file",
	}
}

// Quotes rewrites straight double quotes into TeX quotes.
func Quotes(mode config.QuoteReplacement) *inspect.Rule {
	open, closing := "``", "''"
	if mode == config.QuoteCommands {
		open, closing = `\textquotedblleft{}`, `\textquotedblright{}`
	}
	return &inspect.Rule{
		ID:       "quotes",
		Name:     "Straight double quotes",
		Group:    GroupLaTeX,
		Pattern:  quotesPattern,
		Severity: diag.SevWeakWarning,
		Message: func(inspect.Match) string {
			return `Straight quotes "..." are typeset as two closing quotes`
		},
		Groups: func(m inspect.Match) []string { return []string{m.NamedGroup("body")} },
		Replacement: func(m inspect.Match, _ *source.File) string {
			return open + m.NamedGroup("body") + closing
		},
		FixName: func(inspect.Match) string { return "Replace with " + open + "..." + closing },
		// A quote right after a backslash is an escape such as \" (umlaut).
		CancelIf: func(m inspect.Match, _ *source.File) bool {
			return m.Before(1) == `\`
		},
		BatchMessage: "Straight double quotes in file",
		BatchFixName: "Replace all straight double quotes",
	}
}

// DisplayDollar flags plain TeX $$...$$ display math.
func DisplayDollar() *inspect.Rule {
	return &inspect.Rule{
		ID:       "display-dollar",
		Name:     `Display math with $$ instead of \[`,
		Group:    GroupLaTeX,
		Pattern:  displayDollar,
		Severity: diag.SevWarning,
		MathMode: true,
		Context:  inspect.InElement(latex.KindDisplayMath),
		Message: func(inspect.Match) string {
			return `Use \[...\] instead of $$...$$`
		},
		Groups: func(m inspect.Match) []string { return []string{m.NamedGroup("body")} },
		Replacement: func(m inspect.Match, _ *source.File) string {
			return `\[` + m.NamedGroup("body") + `\]`
		},
		HighlightRange: func(m inspect.Match) inspect.Range {
			return inspect.Range{Start: m.Start(), End: m.Start() + 2}
		},
		FixName:       func(inspect.Match) string { return `Replace with \[...\]` },
		BatchMessage:  `Display math with $$ in file`,
		Applicability: diag.FixApplicabilitySafeWithHeuristics,
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
