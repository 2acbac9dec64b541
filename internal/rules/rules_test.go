package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"texify/internal/config"
	"texify/internal/diag"
	"texify/internal/inspect"
	"texify/internal/latex"
	"texify/internal/packages"
	"texify/internal/source"
)

func inspectText(t *testing.T, rule *inspect.Rule, path, src string) []diag.Diagnostic {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual(path, []byte(src)))
	return inspect.Inspect(file, latex.Parse(file.Content), rule, inspect.PerMatch)
}

// fixAll applies the whole-buffer fix and returns the new text.
func fixAll(t *testing.T, rule *inspect.Rule, src string) string {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("main.tex", []byte(src)))
	ds := inspect.Inspect(file, latex.Parse(file.Content), rule, inspect.WholeBuffer)
	if len(ds) == 0 {
		return src
	}
	require.Len(t, ds, 1)
	buf := source.BufferFromFile(file)
	require.NoError(t, inspect.ApplyFix(buf, ds[0].Fixes[0]))
	return buf.Text()
}

func TestEllipsis(t *testing.T) {
	src := "Wait... then.... $a...b$ % so...\n"
	ds := inspectText(t, Ellipsis(), "main.tex", src)
	require.Len(t, ds, 1)
	assert.Equal(t, `Ellipsis with ... instead of \ldots`, ds[0].Message)
	assert.Equal(t, "Wait\\ldots{} then.... $a...b$ % so...\n", fixAll(t, Ellipsis(), src))
	assert.Equal(t, "Wait... then.... $a\\dots{}b$ % so...\n", fixAll(t, MathEllipsis(), src))
	assert.Equal(t, `end\ldots`, fixAll(t, Ellipsis(), `end...`))
}

func TestMathEllipsis(t *testing.T) {
	got := fixAll(t, MathEllipsis(), `x... \[a_1,...,a_n\]`)
	assert.Equal(t, `x... \[a_1,\dots,a_n\]`, got)
}

func TestNonBreakingReference(t *testing.T) {
	src := "See Figure \\ref{fig} and\n  \\cite{k} or Eq.\t\\eqref{e}."
	ds := inspectText(t, NonBreakingReference(), "main.tex", src)
	require.Len(t, ds, 2)
	assert.Equal(t, []string{"ref"}, ds[0].Fixes[0].Groups)
	assert.Contains(t, ds[1].Message, `\eqref`)
	assert.Equal(t, "See Figure~\\ref{fig} and\n  \\cite{k} or Eq.~\\eqref{e}.", fixAll(t, NonBreakingReference(), src))
}

func TestAbbreviationSpace(t *testing.T) {
	src := "Fruit, e.g. apples, i.e.\nnot pears, etc. Then etc. more."
	ds := inspectText(t, AbbreviationSpace(), "main.tex", src)
	require.Len(t, ds, 2)
	assert.Equal(t, "Abbreviation 'e.g.' should be followed by a normal space", ds[0].Message)
	assert.Equal(t, "Fruit, e.g.\\ apples, i.e.\nnot pears, etc. Then etc.\\ more.", fixAll(t, AbbreviationSpace(), src))
}

func TestQuotes(t *testing.T) {
	src := `He said "hi" and \"a "ok`
	lig := fixAll(t, Quotes(config.QuoteLigatures), `He said "hi" there`)
	assert.Equal(t, "He said ``hi'' there", lig)

	cmd := fixAll(t, Quotes(config.QuoteCommands), `say "x"`)
	assert.Equal(t, `say \textquotedblleft{}x\textquotedblright{}`, cmd)

	ds := inspectText(t, Quotes(config.QuoteLigatures), "main.tex", src)
	require.Len(t, ds, 1, "escaped quote must not open a pair")
	assert.Equal(t, strings.Index(src, `"hi"`), int(ds[0].Primary.Start))
}

func TestDisplayDollar(t *testing.T) {
	src := "Text $$x^2$$ and $y$."
	ds := inspectText(t, DisplayDollar(), "main.tex", src)
	require.Len(t, ds, 1)
	assert.Equal(t, []string{"x^2"}, ds[0].Fixes[0].Groups)
	assert.Equal(t, uint32(2), ds[0].Primary.Len())
	assert.Equal(t, `Text \[x^2\] and $y$.`, fixAll(t, DisplayDollar(), src))
}

func TestDef(t *testing.T) {
	src := "\\def\\foo{bar}\n\\def\\baz#1{#1}\n"
	ds := inspectText(t, Def(), "main.tex", src)
	require.Len(t, ds, 1)
	assert.Equal(t, diag.FixApplicabilityManualReview, ds[0].Fixes[0].Applicability)
	assert.Equal(t, "\\newcommand{\\foo}{bar}\n\\def\\baz#1{#1}\n", fixAll(t, Def(), src))

	assert.Empty(t, inspectText(t, Def(), "mypkg.sty", src), "package files may use \\def")
}

func TestLabelSpaces(t *testing.T) {
	labeling := []config.LabelingCommand{
		{Name: `\label`, Position: 1},
		{Name: `\mylabel`, Position: 2},
	}
	src := `\label{fig one} \emph{two words} \mylabel{a b}{c d} \label{ok}`
	ds := inspectText(t, LabelSpaces(labeling), "main.tex", src)
	require.Len(t, ds, 2)
	assert.Equal(t, "Label 'fig one' contains whitespace", ds[0].Message)
	assert.Equal(t, "Label 'c d' contains whitespace", ds[1].Message)
	assert.Equal(t, `\label{fig-one} \emph{two words} \mylabel{a b}{c-d} \label{ok}`, fixAll(t, LabelSpaces(labeling), src))
}

func TestOver(t *testing.T) {
	src := `$ {a+1 \over b} $ and \sqrt{x \over y} {p \over q}`
	assert.Equal(t, `$ \frac{a+1}{b} $ and \sqrt{x \over y} {p \over q}`, fixAll(t, Over(), src))
}

func TestMissingPackage(t *testing.T) {
	src := "\\documentclass{article}\n\\usepackage{amsmath}\n\\begin{document}\n" +
		"\\includegraphics{a} \\includegraphics{b} \\url{x} $\\mathbb{R}$ \\verb|\\toprule|\n\\end{document}\n"
	deps := packages.NewRegistry()

	text := MissingPackage(deps, false)
	ds := inspectText(t, text, "main.tex", src)
	require.Len(t, ds, 3)
	assert.Equal(t, `\includegraphics requires package graphicx`, ds[0].Message)
	assert.Equal(t, "Include package url", ds[2].Fixes[0].Title)

	got := fixAll(t, text, src)
	assert.Contains(t, got, "\\usepackage{amsmath}\n\\usepackage{graphicx}\n\\usepackage{url}\n\\begin{document}")
	assert.Empty(t, inspectText(t, text, "main.tex", got), "fixed document is clean")

	math := MissingPackage(deps, true)
	ds = inspectText(t, math, "main.tex", src)
	require.Len(t, ds, 1)
	assert.Contains(t, ds[0].Message, "amssymb")
}

func TestBuiltinRegistry(t *testing.T) {
	cfg := config.Default()
	reg, err := Builtin(cfg)
	require.NoError(t, err)

	_, ok := reg.Lookup("quotes")
	assert.False(t, ok, "quotes rule needs quote_replacement")

	cfg.Editor.QuoteReplacement = config.QuoteLigatures
	cfg.Inspect.Disabled = []string{"def"}
	cfg.Inspect.Severity = map[string]string{"ellipsis": "error"}
	reg, err = Builtin(cfg)
	require.NoError(t, err)
	require.NoError(t, reg.CheckConfig(cfg))

	enabled := reg.Enabled(cfg)
	ids := make([]string, 0, len(enabled))
	for _, r := range enabled {
		ids = append(ids, r.ID)
		if r.ID == "ellipsis" {
			assert.Equal(t, diag.SevError, r.Severity)
		}
	}
	assert.NotContains(t, ids, "def")
	assert.Contains(t, ids, "quotes")

	orig, _ := reg.Lookup("ellipsis")
	assert.Equal(t, diag.SevWeakWarning, orig.Severity, "registered rule must not change")

	cfg.Inspect.Enabled = []string{"nope"}
	assert.ErrorContains(t, reg.CheckConfig(cfg), "nope")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Ellipsis()))
	assert.Error(t, reg.Register(Ellipsis()))
	assert.Error(t, reg.Register(&inspect.Rule{ID: "x"}))
	assert.Equal(t, 1, reg.Len())
}
