package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"texify/internal/diag"
	"texify/internal/source"
)

func TestBuildSarif(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/work")
	id := fs.AddVirtual("/work/main.tex", []byte("Wait... here\n"))
	bag := diag.NewBag(4)
	bag.Add(diag.New(diag.SevWeakWarning, "ellipsis", source.Span{File: id, Start: 4, End: 7}, "Ellipsis with ... instead of \\ldots"))
	whole := diag.New(diag.SevError, "missing-package", source.Span{File: id, Start: 0, End: 13}, "Missing packages")
	whole.WholeFile = true
	bag.Add(whole)

	report, err := BuildSarif(bag, fs, SarifRunMeta{
		ToolVersion: "1.2.3",
		Rules: []RuleMeta{
			{ID: "ellipsis", Name: "Ellipsis", Description: "Use \\ldots", Severity: "weak"},
			{ID: "over", Name: "Over", Severity: "warning"},
		},
	})
	require.NoError(t, err)
	require.Len(t, report.Runs, 1)

	run := report.Runs[0]
	assert.Equal(t, "texify", run.Tool.Driver.Name)
	require.NotNil(t, run.Tool.Driver.Version)
	assert.Equal(t, "1.2.3", *run.Tool.Driver.Version)

	ids := make([]string, 0, len(run.Tool.Driver.Rules))
	for _, r := range run.Tool.Driver.Rules {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"ellipsis", "over", "missing-package"}, ids)

	require.Len(t, run.Results, 2)
	first := run.Results[0]
	require.NotNil(t, first.RuleID)
	assert.Equal(t, "ellipsis", *first.RuleID)
	require.NotNil(t, first.Level)
	assert.Equal(t, "note", *first.Level)
	region := first.Locations[0].PhysicalLocation.Region
	require.NotNil(t, region.StartLine)
	assert.Equal(t, 1, *region.StartLine)
	require.NotNil(t, region.StartColumn)
	assert.Equal(t, 5, *region.StartColumn)
	assert.Equal(t, "main.tex", *first.Locations[0].PhysicalLocation.ArtifactLocation.URI)

	second := run.Results[1]
	assert.Equal(t, "error", *second.Level)
	assert.Nil(t, second.Locations[0].PhysicalLocation.Region.StartColumn)
}

func TestSarifWritesValidJSON(t *testing.T) {
	fs, bag, _ := singleDiag(t, "test.tex", "Wait... here\n", 4, 7)

	var buf bytes.Buffer
	require.NoError(t, Sarif(&buf, bag, fs, SarifRunMeta{}))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "2.1.0", doc["version"])
	assert.Len(t, doc["runs"], 1)
}
