package rules

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/coregx/coregex"

	"texify/internal/diag"
	"texify/internal/inspect"
	"texify/internal/latex"
	"texify/internal/packages"
	"texify/internal/source"
)

var (
	defPattern  = coregex.MustCompile(`\\def\s*(?P<name>\\[a-zA-Z@]+)\s*\{`)
	overPattern = coregex.MustCompile(`\{(?P<num>[^{}]*)\\over\b(?P<den>[^{}]*)\}`)
)

// Def discourages \def in documents. Package and class files define
// macros with \def by convention and are left alone.
func Def() *inspect.Rule {
	return &inspect.Rule{
		ID:       "def",
		Name:     `Use of \def`,
		Group:    GroupLaTeX,
		Pattern:  defPattern,
		Severity: diag.SevWarning,
		Message: func(m inspect.Match) string {
			return `\def` + m.NamedGroup("name") + ` silently overwrites existing macros, use \newcommand`
		},
		Groups: func(m inspect.Match) []string { return []string{m.NamedGroup("name")} },
		HighlightRange: func(m inspect.Match) inspect.Range {
			return inspect.Range{Start: m.Start(), End: m.Start() + len(`\def`)}
		},
		ReplacementRange: func(m inspect.Match) inspect.Range {
			return inspect.Range{Start: m.Start(), End: m.GroupRange(1).End}
		},
		Replacement: func(m inspect.Match, _ *source.File) string {
			return `\newcommand{` + m.NamedGroup("name") + `}`
		},
		FixName: func(inspect.Match) string { return `Convert to \newcommand` },
		CancelIf: func(_ inspect.Match, file *source.File) bool {
			switch filepath.Ext(file.Path) {
			case ".sty", ".cls":
				return true
			}
			return false
		},
		BatchMessage:  `Uses of \def in file`,
		Applicability: diag.FixApplicabilityManualReview,
	}
}

// Over replaces the plain TeX {a \over b} with \frac{a}{b}.
func Over() *inspect.Rule {
	return &inspect.Rule{
		ID:       "over",
		Name:     `Use of \over`,
		Group:    GroupLaTeX,
		Pattern:  overPattern,
		Severity: diag.SevWeakWarning,
		MathMode: true,
		// Only a plain group; a command argument cannot take two.
		Context: func(_ inspect.Match, _ *latex.Tree, el latex.Node) bool {
			return el.Kind == latex.KindGroup
		},
		Message: func(inspect.Match) string { return `\over is discouraged, use \frac` },
		Groups: func(m inspect.Match) []string {
			return []string{m.NamedGroup("num"), m.NamedGroup("den")}
		},
		Replacement: func(m inspect.Match, _ *source.File) string {
			return `\frac{` + strings.TrimSpace(m.NamedGroup("num")) + `}{` + strings.TrimSpace(m.NamedGroup("den")) + `}`
		},
		FixName:      func(inspect.Match) string { return `Convert to \frac` },
		BatchMessage: `Uses of \over in file`,
	}
}

// MissingPackage flags commands whose package is not included and offers
// to insert the \usepackage. Rules only see one math mode, so text and math
// uses are covered by two instances.
func MissingPackage(deps *packages.Registry, math bool) *inspect.Rule {
	cmds := deps.Commands()
	quoted := make([]string, len(cmds))
	for i, c := range cmds {
		quoted[i] = coregex.QuoteMeta(c)
	}
	pattern := coregex.MustCompile(`\\(?P<cmd>` + strings.Join(quoted, "|") + `)\b`)
	handler := packages.IncludeHandler{Registry: deps}

	id := "missing-package"
	if math {
		id = "missing-package-math"
	}
	pkgOf := func(m inspect.Match) packages.Package {
		p, _ := deps.Dependency(m.NamedGroup("cmd"))
		return p
	}
	return &inspect.Rule{
		ID:       id,
		Name:     "Command requires a package that is not included",
		Group:    GroupLaTeX,
		Pattern:  pattern,
		Severity: diag.SevWarning,
		MathMode: math,
		Context: func(_ inspect.Match, _ *latex.Tree, el latex.Node) bool {
			return el.Kind == latex.KindCommand
		},
		Message: func(m inspect.Match) string {
			return fmt.Sprintf(`\%s requires package %s`, m.NamedGroup("cmd"), pkgOf(m).Name)
		},
		Groups: func(m inspect.Match) []string { return []string{pkgOf(m).String()} },
		CancelIf: func(m inspect.Match, _ *source.File) bool {
			_, _, ok := handler.Insertion(m.Tree(), m.NamedGroup("cmd"))
			return !ok
		},
		ReplacementRange: func(m inspect.Match) inspect.Range {
			off, _, _ := handler.Insertion(m.Tree(), m.NamedGroup("cmd"))
			return inspect.Range{Start: off, End: off}
		},
		Replacement: func(m inspect.Match, _ *source.File) string {
			_, text, _ := handler.Insertion(m.Tree(), m.NamedGroup("cmd"))
			return text
		},
		FixName: func(m inspect.Match) string {
			return "Include package " + pkgOf(m).Name
		},
		BatchMessage: "Commands used without their packages in file",
		BatchFixName: "Include all missing packages",
	}
}
