package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"fortio.org/safecast"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"texify/internal/config"
	"texify/internal/diag"
	"texify/internal/diagfmt"
	"texify/internal/driver"
	"texify/internal/inspect"
	"texify/internal/observ"
	"texify/internal/rules"
	"texify/internal/source"
	"texify/internal/version"
)

func newInspectCmd() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect [flags] [file.tex|directory|-]",
		Short: "Report LaTeX inspections",
		Long: `Inspect runs every enabled rule over a file, every *.tex, *.sty and *.cls
file below a directory, or stdin when the argument is "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInspect,
	}
	flags := inspectCmd.Flags()
	flags.String("format", "pretty", "output format (pretty|short|json|sarif)")
	flags.String("mode", "", "fix granularity (per-match|whole-buffer, default from config)")
	flags.Int("jobs", 0, "max parallel files (0=auto)")
	flags.Bool("fixes", true, "show suggested fixes")
	flags.Bool("preview", false, "show a before/after preview of each fix")
	flags.Int("context", 0, "lines of context around each diagnostic")
	flags.String("path-mode", "auto", "path display (auto|absolute|relative|basename)")
	flags.Bool("no-cache", false, "disable the on-disk result cache")
	flags.String("ui", "auto", "progress view for directories (auto|on|off)")
	flags.String("min-severity", "info", "hide diagnostics below this severity (info|weak|warning|error)")
	flags.String("fail-on", "error", "exit with status 1 at or above this severity (info|weak|warning|error|none)")
	return inspectCmd
}

// inspectRun is the merged outcome of one inspect or fix invocation.
type inspectRun struct {
	fileSet  *source.FileSet
	bag      *diag.Bag
	timer    *observ.Timer
	failures []error
}

func runInspect(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) == 1 {
		target = args[0]
	}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	switch format {
	case "pretty", "short", "json", "sarif":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	showFixes, err := cmd.Flags().GetBool("fixes")
	if err != nil {
		return fmt.Errorf("failed to get fixes flag: %w", err)
	}
	showPreview, err := cmd.Flags().GetBool("preview")
	if err != nil {
		return fmt.Errorf("failed to get preview flag: %w", err)
	}
	contextLines, err := cmd.Flags().GetInt("context")
	if err != nil {
		return fmt.Errorf("failed to get context flag: %w", err)
	}
	contextLines8, err := safecast.Conv[int8](contextLines)
	if err != nil || contextLines8 < 0 {
		return fmt.Errorf("invalid --context value %d", contextLines)
	}
	pathModeFlag, err := cmd.Flags().GetString("path-mode")
	if err != nil {
		return fmt.Errorf("failed to get path-mode flag: %w", err)
	}
	pathMode, err := diagfmt.ParsePathMode(pathModeFlag)
	if err != nil {
		return err
	}
	failOnFlag, err := cmd.Flags().GetString("fail-on")
	if err != nil {
		return fmt.Errorf("failed to get fail-on flag: %w", err)
	}
	failOn, failEnabled, err := parseFailOn(failOnFlag)
	if err != nil {
		return err
	}

	minSeverityFlag, err := cmd.Flags().GetString("min-severity")
	if err != nil {
		return fmt.Errorf("failed to get min-severity flag: %w", err)
	}
	minSeverity, err := diag.ParseSeverity(minSeverityFlag)
	if err != nil {
		return fmt.Errorf("invalid --min-severity value: %w", err)
	}

	cleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	sess, run, err := collect(cmd, target)
	if err != nil {
		return err
	}
	if minSeverity > diag.SevInfo {
		run.bag.Filter(func(d diag.Diagnostic) bool { return d.Severity >= minSeverity })
	}

	out := cmd.OutOrStdout()
	switch format {
	case "pretty":
		colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
		if err != nil {
			return fmt.Errorf("failed to get color flag: %w", err)
		}
		colored, err := useColor(colorFlag, os.Stdout)
		if err != nil {
			return err
		}
		diagfmt.Pretty(out, run.bag, run.fileSet, diagfmt.PrettyOpts{
			Color:       colored,
			Context:     contextLines8,
			PathMode:    pathMode,
			Width:       terminalWidth(),
			ShowFixes:   showFixes,
			ShowPreview: showPreview,
		})
		if !sess.quiet {
			writeSummary(out, run)
		}
	case "short":
		diagfmt.Short(out, run.bag, run.fileSet, pathMode)
	case "json":
		err = diagfmt.JSON(out, run.bag, run.fileSet, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeFixes:     showFixes,
			IncludePreviews:  showPreview,
		})
		if err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	case "sarif":
		meta, err := sarifMeta(sess.cfg)
		if err != nil {
			return err
		}
		if err := diagfmt.Sarif(out, run.bag, run.fileSet, meta); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	}

	if sess.timings && run.timer != nil {
		fmt.Fprint(cmd.ErrOrStderr(), run.timer.Summary())
	}
	for _, failure := range run.failures {
		fmt.Fprintln(cmd.ErrOrStderr(), "texify:", failure)
	}
	if len(run.failures) > 0 {
		return exitCodeError{code: 2}
	}
	if failEnabled && run.bag.HasAtLeast(failOn) {
		return exitCodeError{code: 1}
	}
	return nil
}

// collect inspects target with the inspect-related flags of cmd and merges
// every per-file result.
func collect(cmd *cobra.Command, target string) (*session, *inspectRun, error) {
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	modeFlag, err := cmd.Flags().GetString("mode")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get mode flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return nil, nil, err
	}

	sess, err := newSession(cmd, target, !noCache)
	if err != nil {
		return nil, nil, err
	}
	opts := sess.options()
	opts.Jobs = jobs
	if modeFlag != "" {
		if modeFlag != config.ModePerMatch && modeFlag != config.ModeWholeBuffer {
			return nil, nil, fmt.Errorf("invalid --mode value %q (expected %s|%s)", modeFlag, config.ModePerMatch, config.ModeWholeBuffer)
		}
		m := driver.ModeFromConfig(modeFlag)
		opts.Mode = &m
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		fileSet *source.FileSet
		results []driver.Result
	)
	switch {
	case target == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, nil, fmt.Errorf("read stdin: %w", err)
		}
		fileSet = source.NewFileSet()
		res, err := driver.InspectSource(ctx, fileSet, "<stdin>", data, opts)
		if err != nil {
			return nil, nil, err
		}
		results = []driver.Result{res}
	default:
		info, err := os.Stat(target)
		switch {
		case err != nil:
			// reported like any other file that fails to load
			fileSet = source.NewFileSet()
			results = []driver.Result{{Path: target, Err: fmt.Errorf("load %s: %w", target, err)}}
		case info.IsDir():
			fileSet, results, err = inspectDir(ctx, target, opts, mode, sess)
			if err != nil {
				return nil, nil, err
			}
		default:
			fileSet = source.NewFileSet()
			res, err := driver.InspectFile(ctx, fileSet, target, opts)
			if err != nil && res.Err == nil {
				return nil, nil, err
			}
			results = []driver.Result{res}
		}
	}

	run := &inspectRun{fileSet: fileSet, bag: diag.NewBag(0)}
	if sess.timings {
		run.timer = observ.NewTimer()
	}
	cached := 0
	for _, res := range results {
		if res.Err != nil {
			run.failures = append(run.failures, res.Err)
			continue
		}
		run.bag.Merge(res.Bag)
		if res.Cached {
			cached++
		}
		if run.timer != nil {
			run.timer.Merge(res.Timer)
		}
	}
	run.bag.Sort()
	sess.log.Debug("inspection finished", "files", len(results), "cached", cached, "diagnostics", run.bag.Len(), "mode", modeName(opts.Mode, sess.cfg))
	return sess, run, nil
}

func inspectDir(ctx context.Context, dir string, opts driver.Options, mode uiMode, sess *session) (*source.FileSet, []driver.Result, error) {
	if sess.quiet || !shouldUseTUI(mode) {
		return driver.InspectDir(ctx, dir, opts)
	}
	files, err := driver.ListFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return driver.InspectDir(ctx, dir, opts)
	}
	return inspectDirWithUI(ctx, "inspecting "+dir, dir, files, opts)
}

func modeName(mode *inspect.Mode, cfg *config.Config) string {
	if mode != nil {
		return mode.String()
	}
	return driver.ModeFromConfig(cfg.Inspect.Mode).String()
}

// parseFailOn maps the --fail-on flag to a severity threshold; "none"
// disables the check.
func parseFailOn(value string) (diag.Severity, bool, error) {
	if strings.EqualFold(strings.TrimSpace(value), "none") {
		return diag.SevInfo, false, nil
	}
	sev, err := diag.ParseSeverity(value)
	if err != nil {
		return diag.SevInfo, false, fmt.Errorf("invalid --fail-on value: %w", err)
	}
	return sev, true, nil
}

// terminalWidth caps pretty source lines at the width of stdout, or leaves
// them whole when stdout is not a terminal.
func terminalWidth() uint8 {
	if !isTerminal(os.Stdout) {
		return 0
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 8 {
		return 0
	}
	// the gutter takes a few cells
	w, err := safecast.Conv[uint8](min(width-8, 255))
	if err != nil {
		return 0
	}
	return w
}

func writeSummary(w io.Writer, run *inspectRun) {
	counts := make(map[diag.Severity]int)
	for _, d := range run.bag.Items() {
		counts[d.Severity]++
	}
	if run.bag.Len() == 0 {
		fmt.Fprintln(w, "No problems found.")
		return
	}
	parts := make([]string, 0, 4)
	for _, sev := range []diag.Severity{diag.SevError, diag.SevWarning, diag.SevWeakWarning, diag.SevInfo} {
		if n := counts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(sev.String())))
		}
	}
	fmt.Fprintf(w, "%d problems (%s)\n", run.bag.Len(), strings.Join(parts, ", "))
}

func sarifMeta(cfg *config.Config) (diagfmt.SarifRunMeta, error) {
	reg, err := rules.Builtin(cfg)
	if err != nil {
		return diagfmt.SarifRunMeta{}, err
	}
	meta := diagfmt.SarifRunMeta{
		ToolName:    "texify",
		ToolVersion: version.Version,
	}
	for _, rule := range reg.Enabled(cfg) {
		meta.Rules = append(meta.Rules, diagfmt.RuleMeta{
			ID:          rule.ID,
			Name:        rule.Name,
			Description: rule.Name,
			Severity:    rule.Severity.String(),
		})
	}
	return meta, nil
}
