package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"texify/internal/config"
	"texify/internal/driver"
	"texify/internal/logging"
)

// session carries what every inspecting command resolves from the
// persistent flags and texify.toml.
type session struct {
	cfg     *config.Config
	log     hclog.Logger
	cache   *driver.DiskCache
	quiet   bool
	timings bool
	max     int
}

// newSession loads the configuration for target. An explicit --config wins
// over the texify.toml found above target.
func newSession(cmd *cobra.Command, target string, withCache bool) (*session, error) {
	configPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	logLevel, err := cmd.Root().PersistentFlags().GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	if logLevel != "" && !logging.ValidLevel(logLevel) {
		return nil, fmt.Errorf("invalid log level %q", logLevel)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.Discover(configStartDir(target))
	}
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:     cfg,
		log:     logging.NewWithOutput(cfg, "texify", logLevel, cmd.ErrOrStderr()),
		quiet:   quiet,
		timings: timings,
		max:     maxDiagnostics,
	}
	if cfg.Path != "" {
		s.log.Debug("loaded configuration", "path", cfg.Path)
	}
	if withCache && cfg.Inspect.Cache {
		cache, err := driver.OpenDiskCache("texify", s.log)
		if err != nil {
			s.log.Warn("disk cache unavailable", "error", err)
		} else {
			s.cache = cache
		}
	}
	return s, nil
}

// configStartDir is the directory texify.toml discovery starts from.
func configStartDir(target string) string {
	if target == "" || target == "-" {
		return "."
	}
	info, err := os.Stat(target)
	if err == nil && info.IsDir() {
		return target
	}
	return filepath.Dir(target)
}

func (s *session) options() driver.Options {
	return driver.Options{
		Config:         s.cfg,
		MaxDiagnostics: s.max,
		Cache:          s.cache,
		Logger:         s.log,
		Timings:        s.timings,
	}
}
