package diagfmt

import (
	"cmp"
	"encoding/json"
	"io"
	"slices"

	"texify/internal/diag"
	"texify/internal/source"
)

// LocationJSON is a file position in JSON output.
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

// FixEditJSON is one edit of a fix.
type FixEditJSON struct {
	Location    LocationJSON `json:"location"`
	NewText     string       `json:"new_text"`
	OldText     string       `json:"old_text,omitempty"`
	BeforeLines []string     `json:"before_lines,omitempty"`
	AfterLines  []string     `json:"after_lines,omitempty"`
}

type FixJSON struct {
	ID            string        `json:"id,omitempty"`
	Title         string        `json:"title"`
	Applicability string        `json:"applicability"`
	Groups        []string      `json:"groups,omitempty"`
	Edits         []FixEditJSON `json:"edits,omitempty"`
}

type DiagnosticJSON struct {
	Severity  string       `json:"severity"`
	Rule      string       `json:"rule"`
	Message   string       `json:"message"`
	WholeFile bool         `json:"whole_file,omitempty"`
	Location  LocationJSON `json:"location"`
	Fixes     []FixJSON    `json:"fixes,omitempty"`
}

// DiagnosticsOutput is the root object of JSON output.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

func makeLocation(span source.Span, fs *source.FileSet, pathMode PathMode, includePositions bool) LocationJSON {
	loc := LocationJSON{
		File:      formatPath(fs.Get(span.File), fs, pathMode),
		StartByte: span.Start,
		EndByte:   span.End,
	}
	if includePositions {
		startPos, endPos := fs.Resolve(span)
		loc.StartLine = startPos.Line
		loc.StartCol = startPos.Col
		loc.EndLine = endPos.Line
		loc.EndCol = endPos.Col
	}

	return loc
}

// BuildDiagnosticsOutput builds the JSON structure without serializing it.
func BuildDiagnosticsOutput(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) (DiagnosticsOutput, error) {
	items := bag.Items()
	if opts.Max > 0 && opts.Max < len(items) {
		items = items[:opts.Max]
	}

	out := DiagnosticsOutput{Diagnostics: make([]DiagnosticJSON, 0, len(items))}
	for _, d := range items {
		entry := DiagnosticJSON{
			Severity:  d.Severity.String(),
			Rule:      d.Rule,
			Message:   d.Message,
			WholeFile: d.WholeFile,
			Location:  makeLocation(d.Primary, fs, opts.PathMode, opts.IncludePositions),
		}
		if opts.IncludeFixes {
			entry.Fixes = fixesJSON(d.Fixes, fs, opts)
		}
		out.Diagnostics = append(out.Diagnostics, entry)
	}
	out.Count = len(out.Diagnostics)
	return out, nil
}

// fixesJSON lists the safest fixes first, then orders by title and ID.
func fixesJSON(fixes []diag.Fix, fs *source.FileSet, opts JSONOpts) []FixJSON {
	if len(fixes) == 0 {
		return nil
	}
	sorted := slices.Clone(fixes)
	slices.SortStableFunc(sorted, func(a, b diag.Fix) int {
		return cmp.Or(
			cmp.Compare(a.Applicability, b.Applicability),
			cmp.Compare(a.Title, b.Title),
			cmp.Compare(a.ID, b.ID),
		)
	})

	out := make([]FixJSON, 0, len(sorted))
	for _, f := range sorted {
		entry := FixJSON{
			ID:            f.ID,
			Title:         f.Title,
			Applicability: f.Applicability.String(),
			Groups:        slices.Clone(f.Groups),
		}
		for _, edit := range f.Edits {
			entry.Edits = append(entry.Edits, editJSON(edit, fs, opts))
		}
		out = append(out, entry)
	}
	return out
}

func editJSON(edit diag.TextEdit, fs *source.FileSet, opts JSONOpts) FixEditJSON {
	entry := FixEditJSON{
		Location: makeLocation(edit.Span, fs, opts.PathMode, opts.IncludePositions),
		NewText:  edit.NewText,
		OldText:  edit.OldText,
	}
	if !opts.IncludePreviews {
		return entry
	}
	// a stale or out-of-range edit still renders, only without a preview
	if p, err := previewEdit(fs, edit); err == nil {
		entry.BeforeLines = p.before
		entry.AfterLines = p.after
	}
	return entry
}

// JSON writes diagnostics as an indented JSON document.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	output, err := BuildDiagnosticsOutput(bag, fs, opts)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
