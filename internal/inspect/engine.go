package inspect

import (
	"sort"

	"texify/internal/diag"
	"texify/internal/fix"
	"texify/internal/latex"
	"texify/internal/source"
)

// Mode selects how accepted matches are packaged into diagnostics.
type Mode uint8

const (
	// PerMatch reports one diagnostic with a single-edit fix per match.
	PerMatch Mode = iota
	// WholeBuffer reports one diagnostic for the file whose fix carries
	// every edit.
	WholeBuffer
)

func (m Mode) String() string {
	switch m {
	case PerMatch:
		return "per-match"
	case WholeBuffer:
		return "whole-buffer"
	}
	return "unknown"
}

// Finding is an accepted match together with everything its rule computed
// for it.
type Finding struct {
	Match       Match
	Highlight   Range
	Replace     Range
	Message     string
	Replacement string
	Groups      []string
	FixName     string
}

// Accepted returns the matches of rule in file that survive every filter,
// in ascending start order.
func Accepted(file *source.File, tree *latex.Tree, rule *Rule) []Match {
	findings := Scan(file, tree, rule)
	out := make([]Match, len(findings))
	for i := range findings {
		out[i] = findings[i].Match
	}
	return out
}

// Scan runs the rule over the file. Matches are leftmost and
// non-overlapping. A match is dropped when CancelIf fires, when there is
// no element at its start, when it starts inside a comment or verbatim
// text, when its math mode differs from the rule's, or when the rule's
// Context predicate rejects it.
func Scan(file *source.File, tree *latex.Tree, rule *Rule) []Finding {
	if rule.Pattern == nil {
		return nil
	}
	text := file.Text()
	names := rule.Pattern.SubexpNames()
	var out []Finding
	for _, idx := range rule.Pattern.FindAllStringSubmatchIndex(text, -1) {
		m := newMatch(text, idx, names, tree)
		if rule.cancelled(m, file) {
			continue
		}
		element, ok := tree.ElementAt(m.Start())
		if !ok {
			continue
		}
		if !accepts(rule, m, tree, element) {
			continue
		}
		out = append(out, Finding{
			Match:       m,
			Highlight:   within(rule.highlightRange(m), m, len(text)),
			Replace:     within(rule.replacementRange(m), m, len(text)),
			Message:     rule.message(m),
			Replacement: rule.replacement(m, file),
			Groups:      rule.groups(m),
			FixName:     rule.fixName(m),
		})
	}
	return out
}

func accepts(rule *Rule, m Match, tree *latex.Tree, element latex.Node) bool {
	if element.Kind == latex.KindComment || element.Kind == latex.KindVerbatim {
		return false
	}
	if tree.InMath(m.Start()) != rule.MathMode {
		return false
	}
	return rule.Context == nil || rule.Context(m, tree, element)
}

// Inspect scans the file and packages the accepted matches according to
// mode. WholeBuffer yields no diagnostic when nothing is accepted.
func Inspect(file *source.File, tree *latex.Tree, rule *Rule, mode Mode) []diag.Diagnostic {
	findings := Scan(file, tree, rule)
	if len(findings) == 0 {
		return nil
	}
	if mode == WholeBuffer {
		return []diag.Diagnostic{wholeBuffer(file, rule, findings)}
	}
	out := make([]diag.Diagnostic, 0, len(findings))
	for i := range findings {
		out = append(out, perMatch(file, rule, &findings[i]))
	}
	return out
}

// Run inspects the file with every rule and hands the diagnostics to r.
func Run(file *source.File, tree *latex.Tree, rules []*Rule, mode Mode, r diag.Reporter) int {
	n := 0
	for _, rule := range rules {
		for _, d := range Inspect(file, tree, rule, mode) {
			r.Report(d)
			n++
		}
	}
	return n
}

func perMatch(file *source.File, rule *Rule, f *Finding) diag.Diagnostic {
	d := diag.New(rule.Severity, rule.ID, span(file, f.Highlight), f.Message)
	e := edit(file, f)
	return d.WithFix(fix.ReplaceSpan(f.FixName, e.Span, e.NewText, e.OldText,
		fix.WithID(rule.ID),
		fix.WithGroups(f.Groups...),
		fix.WithApplicability(rule.Applicability),
	))
}

func wholeBuffer(file *source.File, rule *Rule, findings []Finding) diag.Diagnostic {
	sorted := make([]*Finding, len(findings))
	for i := range findings {
		sorted[i] = &findings[i]
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Replace.Start < sorted[j].Replace.Start
	})

	edits := make([]diag.TextEdit, 0, len(sorted))
	var groups []string
	last := -1
	var prev *Finding
	for _, f := range sorted {
		// Identical edits collapse into one.
		if prev != nil && prev.Replace == f.Replace && prev.Replacement == f.Replacement {
			continue
		}
		// Replacement ranges may reach outside their match; keep the
		// first of two colliding edits.
		if f.Replace.Start < last {
			continue
		}
		prev = f
		edits = append(edits, edit(file, f))
		groups = append(groups, f.Groups...)
		last = f.Replace.End
	}

	primary := source.Span{File: file.ID, Start: 0, End: source.Offset(file.Len())}
	d := diag.New(rule.Severity, rule.ID, primary, rule.batchMessage())
	d.WholeFile = true
	return d.WithFix(fix.Batch(rule.batchFixName(), edits,
		fix.WithID(rule.ID),
		fix.WithGroups(groups...),
		fix.WithApplicability(rule.Applicability),
	))
}

func edit(file *source.File, f *Finding) diag.TextEdit {
	return diag.TextEdit{
		Span:    span(file, f.Replace),
		NewText: f.Replacement,
		OldText: textIn(f.Match.Buffer(), f.Replace),
	}
}

// within falls back to the match range when a hook returns a range outside
// the buffer, an unmatched group for instance.
func within(r Range, m Match, size int) Range {
	if !r.Valid() || r.End > size {
		return m.Range()
	}
	return r
}

func textIn(text string, r Range) string {
	if !r.Valid() || r.End > len(text) {
		return ""
	}
	return text[r.Start:r.End]
}

func span(file *source.File, r Range) source.Span {
	return source.Span{File: file.ID, Start: source.Offset(r.Start), End: source.Offset(r.End)}
}
