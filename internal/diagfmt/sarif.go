package diagfmt

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"texify/internal/diag"
	"texify/internal/source"
)

const defaultInformationURI = "https://github.com/texify/texify"

func sarifLevel(sev diag.Severity) string {
	switch sev {
	case diag.SevError:
		return "error"
	case diag.SevWarning:
		return "warning"
	default:
		return "note"
	}
}

// BuildSarif converts diagnostics into a SARIF 2.1.0 report with one run.
func BuildSarif(bag *diag.Bag, fs *source.FileSet, meta SarifRunMeta) (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	name := meta.ToolName
	if name == "" {
		name = "texify"
	}
	uri := meta.InformationURI
	if uri == "" {
		uri = defaultInformationURI
	}
	run := sarif.NewRunWithInformationURI(name, uri)
	if meta.ToolVersion != "" {
		version := meta.ToolVersion
		run.Tool.Driver.Version = &version
	}

	for _, r := range meta.Rules {
		desc := r.Description
		if desc == "" {
			desc = r.Name
		}
		level := "note"
		if sev, err := diag.ParseSeverity(r.Severity); err == nil {
			level = sarifLevel(sev)
		}
		run.AddRule(r.ID).
			WithDescription(desc).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: level})
	}

	if bag != nil {
		for _, d := range bag.Items() {
			// AddRule returns the existing descriptor for known IDs.
			run.AddRule(d.Rule)
			result := sarif.NewRuleResult(d.Rule).
				WithMessage(sarif.NewTextMessage(d.Message)).
				WithLevel(sarifLevel(d.Severity)).
				WithLocations([]*sarif.Location{sarifLocation(&d, fs)})
			run.AddResult(result)
		}
	}

	report.AddRun(run)
	return report, nil
}

func sarifLocation(d *diag.Diagnostic, fs *source.FileSet) *sarif.Location {
	f := fs.Get(d.Primary.File)
	uri := "<unknown>"
	if f != nil {
		uri = filepath.ToSlash(f.FormatPath("relative", fs.BaseDir()))
	}
	region := sarif.NewRegion()
	if d.WholeFile || f == nil {
		region = region.WithStartLine(1)
	} else {
		start, end := fs.Resolve(d.Primary)
		region = region.
			WithStartLine(int(start.Line)).
			WithStartColumn(int(start.Col)).
			WithEndLine(int(end.Line)).
			WithEndColumn(int(end.Col))
	}
	return sarif.NewLocation().WithPhysicalLocation(
		sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewArtifactLocation().WithUri(uri)).
			WithRegion(region),
	)
}

// Sarif writes diagnostics as an indented SARIF 2.1.0 document.
func Sarif(w io.Writer, bag *diag.Bag, fs *source.FileSet, meta SarifRunMeta) error {
	report, err := BuildSarif(bag, fs, meta)
	if err != nil {
		return err
	}
	return report.PrettyWrite(w)
}
