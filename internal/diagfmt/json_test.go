package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"texify/internal/diag"
	"texify/internal/fix"
	"texify/internal/source"
)

func TestJSONBasic(t *testing.T) {
	fs, bag, _ := singleDiag(t, "test.tex", "first\nWait... here\n", 10, 13)

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, PathMode: PathModeBasename}))

	var out DiagnosticsOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out), buf.String())
	require.Equal(t, 1, out.Count)
	require.Len(t, out.Diagnostics, 1)

	d := out.Diagnostics[0]
	assert.Equal(t, "WEAK_WARNING", d.Severity)
	assert.Equal(t, "ellipsis", d.Rule)
	assert.False(t, d.WholeFile)
	assert.Equal(t, LocationJSON{
		File:      "test.tex",
		StartByte: 10,
		EndByte:   13,
		StartLine: 2,
		StartCol:  5,
		EndLine:   2,
		EndCol:    8,
	}, d.Location)
	assert.Empty(t, d.Fixes)
}

func TestJSONWithoutPositions(t *testing.T) {
	fs, bag, _ := singleDiag(t, "test.tex", "Wait... here\n", 4, 7)

	out, err := BuildDiagnosticsOutput(bag, fs, JSONOpts{PathMode: PathModeBasename})
	require.NoError(t, err)
	loc := out.Diagnostics[0].Location
	assert.Zero(t, loc.StartLine)
	assert.Zero(t, loc.StartCol)

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, bag, fs, JSONOpts{PathMode: PathModeBasename}))
	assert.NotContains(t, buf.String(), "start_line")
}

func TestJSONMaxTruncatesOutput(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("many.tex", []byte("a... b... c... d...\n"))
	bag := diag.NewBag(0)
	for _, off := range []uint32{1, 6, 11, 16} {
		bag.Add(diag.New(diag.SevWeakWarning, "ellipsis", source.Span{File: id, Start: off, End: off + 3}, "ellipsis"))
	}

	out, err := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, 4, bag.Len())
}

func TestJSONFixesAndPreviews(t *testing.T) {
	fs := source.NewFileSet()
	content := "a... b... c\n"
	id := fs.AddVirtual("doc.tex", []byte(content))

	d := diag.New(diag.SevWeakWarning, "ellipsis", source.Span{File: id, Start: 0, End: uint32(len(content))}, "Ellipsis problems in file")
	d.WholeFile = true
	d = d.WithFix(fix.Batch("Fix all 'Ellipsis' problems in file", []diag.TextEdit{
		{Span: source.Span{File: id, Start: 1, End: 4}, NewText: "\\ldots{}", OldText: "..."},
		{Span: source.Span{File: id, Start: 6, End: 9}, NewText: "\\ldots{}", OldText: "..."},
	}, fix.WithID("ellipsis"), fix.WithGroups("0")))
	bag := diag.NewBag(1)
	bag.Add(d)

	out, err := BuildDiagnosticsOutput(bag, fs, JSONOpts{PathMode: PathModeBasename, IncludeFixes: true, IncludePreviews: true})
	require.NoError(t, err)
	require.Len(t, out.Diagnostics, 1)

	got := out.Diagnostics[0]
	assert.True(t, got.WholeFile)
	require.Len(t, got.Fixes, 1)
	f := got.Fixes[0]
	assert.Equal(t, "ellipsis", f.ID)
	assert.Equal(t, "always-safe", f.Applicability)
	assert.Equal(t, []string{"0"}, f.Groups)
	require.Len(t, f.Edits, 2)
	assert.Equal(t, uint32(1), f.Edits[0].Location.StartByte)
	assert.Equal(t, "...", f.Edits[0].OldText)
	assert.Equal(t, []string{"a... b... c"}, f.Edits[0].BeforeLines)
	assert.Equal(t, []string{"a\\ldots{} b... c"}, f.Edits[0].AfterLines)
}

func TestJSONFixOrdering(t *testing.T) {
	fs, bag, id := singleDiag(t, "test.tex", "Wait... here\n", 4, 7)
	span := source.Span{File: id, Start: 4, End: 7}
	d := bag.Items()[0].
		WithFix(fix.ReplaceSpan("manual", span, "x", "", fix.WithApplicability(diag.FixApplicabilityManualReview))).
		WithFix(fix.ReplaceSpan("safe", span, "\\ldots{}", ""))
	bag = diag.NewBag(1)
	bag.Add(d)

	out, err := BuildDiagnosticsOutput(bag, fs, JSONOpts{IncludeFixes: true})
	require.NoError(t, err)
	fixes := out.Diagnostics[0].Fixes
	require.Len(t, fixes, 2)
	assert.Equal(t, "safe", fixes[0].Title)
	assert.Equal(t, "manual", fixes[1].Title)
}

func TestJSONEmptyBag(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, diag.NewBag(0), source.NewFileSet(), JSONOpts{}))
	assert.JSONEq(t, `{"diagnostics":[],"count":0}`, buf.String())
}
