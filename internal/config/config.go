package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"texify/internal/diag"
	"texify/internal/source"
)

// FileName is the name of the configuration file searched for upward from
// the inspected path.
const FileName = "texify.toml"

// ErrNotFound is returned by Find when no texify.toml exists above the
// start directory.
var ErrNotFound = errors.New("no " + FileName + " found")

// Config is the decoded texify.toml.
type Config struct {
	// Path is the file the configuration was loaded from, empty for defaults.
	Path string `toml:"-"`

	Inspect  InspectConfig     `toml:"inspect"`
	Editor   EditorConfig      `toml:"editor"`
	Labeling []LabelingCommand `toml:"labeling"`
	// Packages maps a command name to the package providing it, written
	// as "name" or "name[opt,opt]".
	Packages map[string]string `toml:"packages"`
	Logger   LoggerConfig      `toml:"logger"`
}

type InspectConfig struct {
	Enabled  []string          `toml:"enabled"`
	Disabled []string          `toml:"disabled"`
	Severity map[string]string `toml:"severity"`
	// Mode is "per-match" or "whole-buffer".
	Mode           string `toml:"mode"`
	Jobs           int    `toml:"jobs"`
	MaxDiagnostics int    `toml:"max_diagnostics"`
	Encoding       string `toml:"encoding"`
	Cache          bool   `toml:"cache"`
}

// EditorConfig carries the editor behaviour settings. Only
// QuoteReplacement and CompilerCompatibility affect inspections; the
// automatic_* toggles are kept so one file can serve editor integrations.
type EditorConfig struct {
	QuoteReplacement                QuoteReplacement `toml:"quote_replacement"`
	CompilerCompatibility           string           `toml:"compiler_compatibility"`
	AutomaticSoftWraps              bool             `toml:"automatic_soft_wraps"`
	AutomaticSecondInlineMathSymbol bool             `toml:"automatic_second_inline_math_symbol"`
	AutomaticUpDownBracket          bool             `toml:"automatic_up_down_bracket"`
	AutomaticItemInItemize          bool             `toml:"automatic_item_in_itemize"`
}

type LoggerConfig struct {
	Level           string `toml:"level"`
	JSONFormat      bool   `toml:"json"`
	IncludeLocation bool   `toml:"include_location"`
}

const (
	ModePerMatch    = "per-match"
	ModeWholeBuffer = "whole-buffer"
)

var compilers = []string{"pdflatex", "lualatex", "xelatex", "latexmk"}

// Default returns the configuration used when no texify.toml exists.
func Default() *Config {
	return &Config{
		Inspect: InspectConfig{
			Mode:     ModePerMatch,
			Encoding: source.EncodingUTF8,
			Cache:    true,
		},
		Editor: EditorConfig{
			CompilerCompatibility:           "pdflatex",
			AutomaticSecondInlineMathSymbol: true,
			AutomaticUpDownBracket:          true,
			AutomaticItemInItemize:          true,
		},
		Labeling: DefaultLabeling(),
		Logger:   LoggerConfig{Level: "warn"},
	}
}

// Find walks up from startDir to locate texify.toml.
func Find(startDir string) (string, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve start directory: %w", err)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", ErrNotFound
}

// Discover loads the texify.toml governing startDir, falling back to
// Default when there is none.
func Discover(startDir string) (*Config, error) {
	path, err := Find(startDir)
	if errors.Is(err, ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Load decodes and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes TOML text. Keys absent from the text keep their defaults.
func Parse(data string) (*Config, error) {
	var raw Config
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := checkUndecoded(meta); err != nil {
		return nil, err
	}
	cfg := merge(Default(), &raw, meta)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func checkUndecoded(meta toml.MetaData) error {
	var unknown []string
	for _, key := range meta.Undecoded() {
		// Labeling entries validate their own keys.
		if len(key) > 0 && key[0] == "labeling" {
			continue
		}
		unknown = append(unknown, key.String())
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown keys: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func merge(cfg, raw *Config, meta toml.MetaData) *Config {
	set := func(key ...string) bool { return meta.IsDefined(key...) }

	if set("inspect", "enabled") {
		cfg.Inspect.Enabled = raw.Inspect.Enabled
	}
	if set("inspect", "disabled") {
		cfg.Inspect.Disabled = raw.Inspect.Disabled
	}
	if set("inspect", "severity") {
		cfg.Inspect.Severity = raw.Inspect.Severity
	}
	if set("inspect", "mode") {
		cfg.Inspect.Mode = raw.Inspect.Mode
	}
	if set("inspect", "jobs") {
		cfg.Inspect.Jobs = raw.Inspect.Jobs
	}
	if set("inspect", "max_diagnostics") {
		cfg.Inspect.MaxDiagnostics = raw.Inspect.MaxDiagnostics
	}
	if set("inspect", "encoding") {
		cfg.Inspect.Encoding = raw.Inspect.Encoding
	}
	if set("inspect", "cache") {
		cfg.Inspect.Cache = raw.Inspect.Cache
	}

	if set("editor", "quote_replacement") {
		cfg.Editor.QuoteReplacement = raw.Editor.QuoteReplacement
	}
	if set("editor", "compiler_compatibility") {
		cfg.Editor.CompilerCompatibility = raw.Editor.CompilerCompatibility
	}
	if set("editor", "automatic_soft_wraps") {
		cfg.Editor.AutomaticSoftWraps = raw.Editor.AutomaticSoftWraps
	}
	if set("editor", "automatic_second_inline_math_symbol") {
		cfg.Editor.AutomaticSecondInlineMathSymbol = raw.Editor.AutomaticSecondInlineMathSymbol
	}
	if set("editor", "automatic_up_down_bracket") {
		cfg.Editor.AutomaticUpDownBracket = raw.Editor.AutomaticUpDownBracket
	}
	if set("editor", "automatic_item_in_itemize") {
		cfg.Editor.AutomaticItemInItemize = raw.Editor.AutomaticItemInItemize
	}

	if set("labeling") {
		cfg.Labeling = raw.Labeling
	}
	if set("packages") {
		cfg.Packages = raw.Packages
	}

	if set("logger", "level") {
		cfg.Logger.Level = raw.Logger.Level
	}
	if set("logger", "json") {
		cfg.Logger.JSONFormat = raw.Logger.JSONFormat
	}
	if set("logger", "include_location") {
		cfg.Logger.IncludeLocation = raw.Logger.IncludeLocation
	}
	return cfg
}

// Validate checks values that decode fine but make no sense.
func (c *Config) Validate() error {
	var errs []error
	switch c.Inspect.Mode {
	case ModePerMatch, ModeWholeBuffer:
	default:
		errs = append(errs, fmt.Errorf("[inspect].mode must be %s or %s, got %q", ModePerMatch, ModeWholeBuffer, c.Inspect.Mode))
	}
	if c.Inspect.Jobs < 0 {
		errs = append(errs, fmt.Errorf("[inspect].jobs must not be negative"))
	}
	if c.Inspect.MaxDiagnostics < 0 {
		errs = append(errs, fmt.Errorf("[inspect].max_diagnostics must not be negative"))
	}
	if !source.ValidEncoding(c.Inspect.Encoding) {
		errs = append(errs, fmt.Errorf("[inspect].encoding: unsupported encoding %q", c.Inspect.Encoding))
	}
	for id, sev := range c.Inspect.Severity {
		if _, err := diag.ParseSeverity(sev); err != nil {
			errs = append(errs, fmt.Errorf("[inspect.severity].%s: %w", id, err))
		}
	}
	if !validCompiler(c.Editor.CompilerCompatibility) {
		errs = append(errs, fmt.Errorf("[editor].compiler_compatibility must be one of %s, got %q",
			strings.Join(compilers, ", "), c.Editor.CompilerCompatibility))
	}
	for _, l := range c.Labeling {
		if err := l.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func validCompiler(name string) bool {
	for _, c := range compilers {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// Hash fingerprints every setting that changes inspection output. It keys
// the diagnostics cache.
func (c *Config) Hash() string {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(struct {
		Inspect  InspectConfig     `toml:"inspect"`
		Editor   EditorConfig      `toml:"editor"`
		Labeling []LabelingCommand `toml:"labeling"`
		Packages map[string]string `toml:"packages"`
	}{c.Inspect, c.Editor, c.Labeling, c.Packages}); err != nil {
		// Every field is encodable; reaching this is a bug.
		panic(fmt.Errorf("config: hash encode: %w", err))
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// RuleEnabled applies the enabled and disabled lists. An empty enabled list
// enables every rule; disabled always wins.
func (c *Config) RuleEnabled(id string) bool {
	for _, d := range c.Inspect.Disabled {
		if d == id {
			return false
		}
	}
	if len(c.Inspect.Enabled) == 0 {
		return true
	}
	for _, e := range c.Inspect.Enabled {
		if e == id {
			return true
		}
	}
	return false
}

// SeverityFor returns the configured severity override for a rule.
func (c *Config) SeverityFor(id string) (diag.Severity, bool) {
	s, ok := c.Inspect.Severity[id]
	if !ok {
		return 0, false
	}
	sev, err := diag.ParseSeverity(s)
	if err != nil {
		return 0, false
	}
	return sev, true
}
