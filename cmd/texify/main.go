package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"texify/internal/version"
)

// exitCodeError ends the process with code without printing anything more.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "texify",
		Short:         "Pattern inspections for LaTeX sources",
		Long:          `texify finds common LaTeX mistakes with regex-driven inspections and fixes them in place`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newFixCmd())
	rootCmd.AddCommand(newIncludeCmd())
	rootCmd.AddCommand(newRulesCmd())
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newVersionCmd())

	flags := rootCmd.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-diagnostics", 0, "maximum number of diagnostics per file (0 = from config, unlimited by default)")
	flags.String("config", "", "path to texify.toml (default: search upward from the target)")
	flags.String("log-level", "", "log level (trace|debug|info|warn|error|off)")
	flags.String("cpu-profile", "", "write a CPU profile to file")
	flags.String("mem-profile", "", "write a heap profile to file")
	flags.String("runtime-trace", "", "write a runtime trace to file")
	return rootCmd
}

// main builds the command tree and executes it. Errors are printed to
// stderr; the process exits with 1 unless a command asked for another code.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exitErr exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, "texify:", err)
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
