package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"texify/internal/diag"
)

func TestDefaults(t *testing.T) {
	cfg, err := Parse("")
	require.NoError(t, err)

	assert.Equal(t, ModePerMatch, cfg.Inspect.Mode)
	assert.True(t, cfg.Inspect.Cache)
	assert.Equal(t, QuoteOff, cfg.Editor.QuoteReplacement)
	assert.Equal(t, "pdflatex", cfg.Editor.CompilerCompatibility)
	assert.Equal(t, DefaultLabeling(), cfg.Labeling)
	assert.Equal(t, "warn", cfg.Logger.Level)
}

func TestParseFull(t *testing.T) {
	cfg, err := Parse(`
[inspect]
disabled = ["def"]
mode = "whole-buffer"
jobs = 4
encoding = "latin1"
cache = false

[inspect.severity]
ellipsis = "warning"

[editor]
quote_replacement = "commands"
compiler_compatibility = "lualatex"
automatic_item_in_itemize = false

[[labeling]]
name = '\label'
position = 1

[[labeling]]
name = '\customlabel'
position = 2
labels_previous_command = true

[packages]
SI = "siunitx[per-mode=symbol]"

[logger]
level = "debug"
json = true
`)
	require.NoError(t, err)

	assert.Equal(t, []string{"def"}, cfg.Inspect.Disabled)
	assert.Equal(t, ModeWholeBuffer, cfg.Inspect.Mode)
	assert.Equal(t, 4, cfg.Inspect.Jobs)
	assert.Equal(t, "latin1", cfg.Inspect.Encoding)
	assert.False(t, cfg.Inspect.Cache)
	assert.Equal(t, QuoteCommands, cfg.Editor.QuoteReplacement)
	assert.Equal(t, "lualatex", cfg.Editor.CompilerCompatibility)
	assert.False(t, cfg.Editor.AutomaticItemInItemize)
	assert.True(t, cfg.Editor.AutomaticUpDownBracket, "unset keys keep their defaults")
	assert.Equal(t, []LabelingCommand{
		{Name: `\label`, Position: 1},
		{Name: `\customlabel`, Position: 2, LabelsPreviousCommand: true},
	}, cfg.Labeling)
	assert.Equal(t, "siunitx[per-mode=symbol]", cfg.Packages["SI"])
	assert.True(t, cfg.Logger.JSONFormat)

	sev, ok := cfg.SeverityFor("ellipsis")
	require.True(t, ok)
	assert.Equal(t, diag.SevWarning, sev)
	_, ok = cfg.SeverityFor("quotes")
	assert.False(t, ok)
}

func TestLabelingStringForm(t *testing.T) {
	cfg, err := Parse(`labeling = ['\label;1;false', '\newlabel;2;true']`)
	require.NoError(t, err)
	require.Len(t, cfg.Labeling, 2)
	assert.Equal(t, LabelingCommand{Name: `\newlabel`, Position: 2, LabelsPreviousCommand: true}, cfg.Labeling[1])
}

func TestParseLabelingCommand(t *testing.T) {
	tests := []struct {
		in      string
		want    LabelingCommand
		wantErr bool
	}{
		{in: `\label;1;false`, want: LabelingCommand{Name: `\label`, Position: 1}},
		{in: `\customlabel;3;true`, want: LabelingCommand{Name: `\customlabel`, Position: 3, LabelsPreviousCommand: true}},
		{in: `\x;2;yes`, want: LabelingCommand{Name: `\x`, Position: 2}},
		{in: `\label;1`, wantErr: true},
		{in: `\label;one;false`, wantErr: true},
		{in: `a;1;true;extra`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLabelingCommand(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()), "String must round-trip")
		})
	}
}

func mustParse(t *testing.T, s string) LabelingCommand {
	t.Helper()
	c, err := ParseLabelingCommand(s)
	require.NoError(t, err)
	return c
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":      "[inspect]\nfoo = 1\n",
		"bad mode":         "[inspect]\nmode = \"sometimes\"\n",
		"negative jobs":    "[inspect]\njobs = -1\n",
		"bad encoding":     "[inspect]\nencoding = \"ebcdic\"\n",
		"bad severity":     "[inspect.severity]\nellipsis = \"loud\"\n",
		"bad quotes":       "[editor]\nquote_replacement = \"curly\"\n",
		"bad compiler":     "[editor]\ncompiler_compatibility = \"troff\"\n",
		"bad position":     "[[labeling]]\nname = '\\label'\nposition = 0\n",
		"labeling key":     "[[labeling]]\nname = '\\label'\ncolour = 'red'\n",
		"labeling no name": "[[labeling]]\nposition = 1\n",
		"invalid toml":     "[inspect\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(data)
			assert.Error(t, err)
		})
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "chapters", "one")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	path := filepath.Join(root, FileName)
	require.NoError(t, os.WriteFile(path, []byte("[inspect]\njobs = 2\n"), 0o600))

	found, err := Find(nested)
	require.NoError(t, err)
	assert.Equal(t, path, found)

	texFile := filepath.Join(nested, "main.tex")
	require.NoError(t, os.WriteFile(texFile, []byte("x"), 0o600))
	found, err = Find(texFile)
	require.NoError(t, err)
	assert.Equal(t, path, found)

	cfg, err := Discover(nested)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Inspect.Jobs)
	assert.Equal(t, path, cfg.Path)
}

func TestDiscoverWithoutFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Find(dir)
	if !errors.Is(err, ErrNotFound) {
		// A texify.toml above the temp dir would make this test meaningless.
		t.Skipf("found a config above %s: %v", dir, err)
	}
	cfg, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestRuleEnabled(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.RuleEnabled("ellipsis"))

	cfg.Inspect.Enabled = []string{"ellipsis", "def"}
	cfg.Inspect.Disabled = []string{"def"}
	assert.True(t, cfg.RuleEnabled("ellipsis"))
	assert.False(t, cfg.RuleEnabled("def"))
	assert.False(t, cfg.RuleEnabled("quotes"))
}

func TestHashTracksInspectionSettings(t *testing.T) {
	a, b := Default(), Default()
	assert.Equal(t, a.Hash(), b.Hash())

	b.Logger.Level = "trace"
	assert.Equal(t, a.Hash(), b.Hash(), "logger settings do not affect output")

	b.Editor.QuoteReplacement = QuoteLigatures
	assert.NotEqual(t, a.Hash(), b.Hash())
}
