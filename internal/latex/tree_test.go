package latex

import (
	"strings"
	"testing"
)

func TestCommentRegion(t *testing.T) {
	src := "a % $x$\nb"
	tree := Parse([]byte(src))

	if !tree.InComment(strings.Index(src, "$")) {
		t.Fatal("expected offset inside comment")
	}
	if tree.InMath(strings.Index(src, "x")) {
		t.Error("math delimiters inside comments must not open math")
	}
	if tree.InComment(strings.Index(src, "b")) {
		t.Error("comment must end at newline")
	}
}

func TestInlineMath(t *testing.T) {
	src := `x $a \text{b} c$ y \(d\) z`
	tree := Parse([]byte(src))

	tests := []struct {
		at   string
		math bool
	}{
		{"x", false},
		{"a", true},
		{"b", false},
		{"c", true},
		{"y", false},
		{"d", true},
		{"z", false},
	}
	for _, tt := range tests {
		off := strings.Index(src, tt.at)
		if got := tree.InMath(off); got != tt.math {
			t.Errorf("InMath(%q at %d) = %v, want %v", tt.at, off, got, tt.math)
		}
	}
}

func TestAdjacentInlineMath(t *testing.T) {
	src := "$a$$b$ then $$c$$ text"
	tree := Parse([]byte(src))

	for _, at := range []string{"a", "b", "c"} {
		if !tree.InMath(strings.Index(src, at)) {
			t.Errorf("expected %q in math", at)
		}
	}
	for _, at := range []string{"then", "text"} {
		if tree.InMath(strings.Index(src, at)) {
			t.Errorf("expected %q outside math", at)
		}
	}
	if tree.HasAncestor(strings.Index(src, "b"), KindDisplayMath) {
		t.Error("$$ between inline formulas must not open display math")
	}
	if !tree.HasAncestor(strings.Index(src, "c"), KindDisplayMath) {
		t.Error("expected display math around c")
	}
}

func TestDisplayMathAndEnvironments(t *testing.T) {
	src := "$$p$$ q \\[r\\] s \\begin{align*}u\\end{align*} v \\begin{itemize}w\\end{itemize}"
	tree := Parse([]byte(src))

	for _, at := range []string{"p", "r", "u"} {
		if !tree.InMath(strings.Index(src, at)) {
			t.Errorf("expected %q in math", at)
		}
	}
	for _, at := range []string{"q", "s", "v", "w"} {
		if tree.InMath(strings.Index(src, at)) {
			t.Errorf("expected %q outside math", at)
		}
	}
	if !tree.HasAncestor(strings.Index(src, "w"), KindEnvironment) {
		t.Error("expected itemize environment ancestor")
	}
}

func TestVerbatimRegions(t *testing.T) {
	src := "\\verb|$x$| $y$ \\begin{verbatim}$z$\\end{verbatim}"
	tree := Parse([]byte(src))
	verbatim := func(at string) bool {
		n, ok := tree.ElementAt(strings.Index(src, at))
		return ok && n.Kind == KindVerbatim
	}

	if !verbatim("x") {
		t.Error("expected \\verb content to be verbatim")
	}
	if !tree.InMath(strings.Index(src, "y")) {
		t.Error("math after \\verb must still be detected")
	}
	if !verbatim("z") || tree.InMath(strings.Index(src, "z")) {
		t.Error("verbatim environment content must be verbatim and not math")
	}
}

func TestCommentEnvironment(t *testing.T) {
	src := "\\begin{comment}hidden\\end{comment} shown"
	tree := Parse([]byte(src))
	if !tree.InComment(strings.Index(src, "hidden")) {
		t.Error("comment environment must be a comment")
	}
	if tree.InComment(strings.Index(src, "shown")) {
		t.Error("text after comment environment is not a comment")
	}
}

func TestCommandArgument(t *testing.T) {
	src := `\section[short]{Long title} \label{sec:a b}`
	tree := Parse([]byte(src))

	cmd, idx, ok := tree.CommandArgument(strings.Index(src, " b"))
	if !ok || cmd.Name != "label" || idx != 0 {
		t.Fatalf("expected label argument 0, got %q %d %v", cmd.Name, idx, ok)
	}
	cmd, _, ok = tree.CommandArgument(strings.Index(src, "Long"))
	if !ok || cmd.Name != "section" {
		t.Fatalf("expected section argument, got %q %v", cmd.Name, ok)
	}
	if _, _, ok := tree.CommandArgument(strings.Index(src, "short")); ok {
		t.Error("optional arguments are not required arguments")
	}
	if got, _ := tree.ParamText(cmd, 0); got != "Long title" {
		t.Errorf("unexpected param text %q", got)
	}
}

func TestElementAtBounds(t *testing.T) {
	tree := Parse([]byte("ab"))
	if _, ok := tree.ElementAt(2); ok {
		t.Error("end of input must not be addressable")
	}
	if _, ok := Parse(nil).ElementAt(0); ok {
		t.Error("empty document must not be addressable")
	}
	n, ok := tree.ElementAt(1)
	if !ok || n.Kind != KindDocument {
		t.Errorf("expected document node, got %v %v", n.Kind, ok)
	}
}

func TestUnbalancedInputIsClosed(t *testing.T) {
	tree := Parse([]byte(`\textbf{open $math`))
	for _, n := range tree.Nodes() {
		if n.End < n.Start {
			t.Fatalf("node %v left open", n)
		}
	}
}

func TestIncludesAndInsertPoint(t *testing.T) {
	src := "\\documentclass{article}\n" +
		"\\usepackage[utf8]{inputenc}\n" +
		"\\usepackage{amsmath, amssymb}\n" +
		"% \\usepackage{ignored}\n" +
		"\\begin{document}\nbody\n\\end{document}\n"
	tree := Parse([]byte(src))

	got := tree.Includes()
	want := []string{"inputenc", "amsmath", "amssymb"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Includes() = %v, want %v", got, want)
	}
	got[0] = "changed"
	if !tree.HasInclude("inputenc") || tree.HasInclude("changed") || tree.HasInclude("ignored") {
		t.Error("HasInclude must see the parsed packages only")
	}

	point := tree.PreambleInsertPoint()
	if want := strings.Index(src, "amssymb}") + len("amssymb}"); point != want {
		t.Errorf("insert point = %d, want %d", point, want)
	}

	bare := Parse([]byte("\\documentclass{book}\n\\begin{document}\\end{document}"))
	if p := bare.PreambleInsertPoint(); p != len(`\documentclass{book}`) {
		t.Errorf("expected insert after documentclass, got %d", p)
	}
}
