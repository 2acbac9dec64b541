package inspect

import (
	"errors"
	"fmt"
	"sort"

	"texify/internal/diag"
	"texify/internal/source"
)

var (
	// ErrOverlap reports edit ranges that are unordered or overlap.
	ErrOverlap = source.ErrOverlap
	// ErrStale reports an edit whose guard text no longer matches the buffer.
	ErrStale = errors.New("buffer changed since the fix was computed")
)

// ApplyFixes replaces every range with the replacement at the same index.
// Ranges are given in the coordinates of the unmodified buffer and must be
// ascending and non-overlapping; they are applied left to right, each one
// shifted by the total length change of the edits before it.
//
// Mismatched slice lengths are a programming error and panic before the
// buffer is touched. Invalid ranges return an error, also without
// modifying the buffer.
func ApplyFixes(buf *source.Buffer, ranges []Range, replacements []string) error {
	if len(ranges) != len(replacements) {
		panic(fmt.Sprintf("inspect: %d ranges but %d replacements", len(ranges), len(replacements)))
	}
	edits := make([]source.Edit, len(ranges))
	for i, r := range ranges {
		edits[i] = source.Edit{Start: r.Start, End: r.End, Text: replacements[i]}
	}
	return buf.ApplyEdits(edits)
}

// ApplyFix applies the edits of fix to buf. Edits carrying OldText are
// checked against the buffer first; any mismatch aborts the whole fix.
func ApplyFix(buf *source.Buffer, fix diag.Fix) error {
	edits := make([]diag.TextEdit, len(fix.Edits))
	copy(edits, fix.Edits)
	sort.SliceStable(edits, func(i, j int) bool {
		return edits[i].Span.Start < edits[j].Span.Start
	})

	ranges := make([]Range, len(edits))
	replacements := make([]string, len(edits))
	for i, e := range edits {
		r := Range{Start: int(e.Span.Start), End: int(e.Span.End)}
		if e.OldText != "" {
			cur, err := buf.Slice(r.Start, r.End)
			if err != nil {
				return fmt.Errorf("fix %q: %w", fix.Title, err)
			}
			if cur != e.OldText {
				return fmt.Errorf("fix %q at %d: %w", fix.Title, r.Start, ErrStale)
			}
		}
		ranges[i] = r
		replacements[i] = e.NewText
	}
	return ApplyFixes(buf, ranges, replacements)
}
