package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"texify/internal/diag"
	"texify/internal/source"
)

const tabWidth = 4

type palette struct {
	path    *color.Color
	info    *color.Color
	weak    *color.Color
	warning *color.Color
	err     *color.Color
	rule    *color.Color
	gutter  *color.Color
	caret   *color.Color
	fix     *color.Color
	removed *color.Color
	added   *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		path:    color.New(color.Bold),
		info:    color.New(color.FgCyan, color.Bold),
		weak:    color.New(color.FgHiBlack, color.Bold),
		warning: color.New(color.FgYellow, color.Bold),
		err:     color.New(color.FgRed, color.Bold),
		rule:    color.New(color.FgMagenta),
		gutter:  color.New(color.FgBlue),
		caret:   color.New(color.FgGreen, color.Bold),
		fix:     color.New(color.FgCyan),
		removed: color.New(color.FgRed),
		added:   color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.path, p.info, p.weak, p.warning, p.err, p.rule, p.gutter, p.caret, p.fix, p.removed, p.added} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warning
	case diag.SevWeakWarning:
		return p.weak
	default:
		return p.info
	}
}

// Pretty writes diagnostics in a human-readable form:
//
//	path:line:col: SEVERITY rule: message
//	  12 | Some text...
//	     |          ^^^
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil {
		return
	}
	p := newPalette(opts.Color)
	for i := range bag.Items() {
		prettyOne(w, &bag.Items()[i], fs, opts, p)
	}
}

func prettyOne(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette) {
	f := fs.Get(d.Primary.File)
	path := formatPath(f, fs, opts.PathMode)
	sev := p.severity(d.Severity)

	if d.WholeFile || f == nil {
		fmt.Fprintf(w, "%s: %s %s: %s\n", p.path.Sprint(path), sev.Sprint(d.Severity.String()), p.rule.Sprint(d.Rule), d.Message)
	} else {
		start, end := fs.Resolve(d.Primary)
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			p.path.Sprintf("%s:%d:%d", path, start.Line, start.Col),
			sev.Sprint(d.Severity.String()), p.rule.Sprint(d.Rule), d.Message)
		writeSnippet(w, f, start, end, opts, p)
	}

	if !opts.ShowFixes {
		return
	}
	for i := range d.Fixes {
		writeFix(w, fs, &d.Fixes[i], opts, p)
	}
}

func writeSnippet(w io.Writer, f *source.File, start, end source.LineCol, opts PrettyOpts, p palette) {
	first := start.Line
	last := start.Line
	if ctx := uint32(max(opts.Context, 0)); ctx > 0 {
		if first > ctx {
			first -= ctx
		} else {
			first = 1
		}
		last += ctx
	}
	lineCount := uint32(len(f.LineIdx) + 1)
	last = min(last, lineCount)
	gutterWidth := len(strconv.FormatUint(uint64(last), 10))

	for ln := first; ln <= last; ln++ {
		line := expandTabs(f.GetLine(ln))
		if opts.Width > 0 {
			line = runewidth.Truncate(line, int(opts.Width), "…")
		}
		fmt.Fprintf(w, "%s %s\n", p.gutter.Sprintf("%*d |", gutterWidth, ln), line)
		if ln != start.Line {
			continue
		}
		raw := f.GetLine(ln)
		col, width := caretPosition(raw, start, end)
		if opts.Width > 0 && col >= int(opts.Width) {
			continue
		}
		fmt.Fprintf(w, "%s %s%s\n",
			p.gutter.Sprintf("%*s |", gutterWidth, ""),
			strings.Repeat(" ", col),
			p.caret.Sprint(strings.Repeat("^", width)))
	}
}

// caretPosition returns the display column and width of the underline for a
// span that starts on raw. Spans running past the line end are clipped.
func caretPosition(raw string, start, end source.LineCol) (int, int) {
	from := min(int(start.Col)-1, len(raw))
	to := len(raw)
	if end.Line == start.Line {
		to = min(int(end.Col)-1, len(raw))
	}
	to = max(to, from)
	col := runewidth.StringWidth(expandTabs(raw[:from]))
	width := runewidth.StringWidth(expandTabs(raw[:to])) - col
	return col, max(width, 1)
}

func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var sb strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			pad := tabWidth - col%tabWidth
			sb.WriteString(strings.Repeat(" ", pad))
			col += pad
			continue
		}
		sb.WriteRune(r)
		col += runewidth.RuneWidth(r)
	}
	return sb.String()
}

func writeFix(w io.Writer, fs *source.FileSet, fix *diag.Fix, opts PrettyOpts, p palette) {
	if len(fix.Edits) == 0 {
		return
	}
	label := fix.Title
	if len(fix.Edits) > 1 {
		label = fmt.Sprintf("%s (%d edits)", fix.Title, len(fix.Edits))
	}
	fmt.Fprintf(w, "  %s %s [%s]\n", p.fix.Sprint("fix:"), label, fix.Applicability)
	if !opts.ShowPreview {
		return
	}
	for _, edit := range fix.Edits {
		preview, err := previewEdit(fs, edit)
		if err != nil {
			continue
		}
		for _, line := range preview.before {
			fmt.Fprintf(w, "    %s\n", p.removed.Sprint("- "+expandTabs(line)))
		}
		for _, line := range preview.after {
			fmt.Fprintf(w, "    %s\n", p.added.Sprint("+ "+expandTabs(line)))
		}
	}
}

// Short writes one line per diagnostic, suitable for editors and grep.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, mode PathMode) {
	if bag == nil {
		return
	}
	for _, d := range bag.Items() {
		f := fs.Get(d.Primary.File)
		path := formatPath(f, fs, mode)
		if d.WholeFile || f == nil {
			fmt.Fprintf(w, "%s: %s [%s] %s\n", path, strings.ToLower(d.Severity.String()), d.Rule, d.Message)
			continue
		}
		start, _ := fs.Resolve(d.Primary)
		fmt.Fprintf(w, "%s:%d:%d: %s [%s] %s\n", path, start.Line, start.Col, strings.ToLower(d.Severity.String()), d.Rule, d.Message)
	}
}
