// Package logging builds the hclog loggers handed to the driver, the fix
// engine and the cache.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"texify/internal/config"
)

// EnvLevel overrides the configured log level.
const EnvLevel = "TEXIFY_LOG_LEVEL"

// New creates a logger named name. The level comes from TEXIFY_LOG_LEVEL,
// then from override (the --log-level flag), then from the configuration.
func New(cfg *config.Config, name, override string) hclog.Logger {
	return NewWithOutput(cfg, name, override, os.Stderr)
}

// NewWithOutput is New writing to w.
func NewWithOutput(cfg *config.Config, name, override string, w io.Writer) hclog.Logger {
	if cfg == nil {
		cfg = config.Default()
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:            name,
		Level:           determineLevel(cfg, override),
		Output:          w,
		JSONFormat:      cfg.Logger.JSONFormat,
		IncludeLocation: cfg.Logger.IncludeLocation,
		DisableTime:     true,
	})
}

// Discard returns a logger that drops everything.
func Discard() hclog.Logger {
	return hclog.NewNullLogger()
}

func determineLevel(cfg *config.Config, override string) hclog.Level {
	if env := os.Getenv(EnvLevel); env != "" {
		return parseLevel(env)
	}
	if override != "" {
		return parseLevel(override)
	}
	return parseLevel(cfg.Logger.Level)
}

func parseLevel(s string) hclog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "INFO":
		return hclog.Info
	case "WARN", "WARNING", "":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	case "OFF":
		return hclog.Off
	default:
		return hclog.Warn
	}
}

// ValidLevel reports whether s names a level.
func ValidLevel(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE", "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "OFF", "":
		return true
	}
	return false
}
