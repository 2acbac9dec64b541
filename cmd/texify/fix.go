package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"texify/internal/fix"
	"texify/internal/rules"
)

func newFixCmd() *cobra.Command {
	fixCmd := &cobra.Command{
		Use:   "fix [flags] <file.tex|directory>",
		Short: "Apply available fixes to a source file or directory",
		Long:  "Run inspections, surface available fixes, and apply them according to the chosen strategy.",
		Args:  cobra.ExactArgs(1),
		RunE:  runFix,
	}
	flags := fixCmd.Flags()
	flags.Bool("all", false, "apply all safe fixes")
	flags.Bool("once", false, "apply the first available fix (default)")
	flags.String("id", "", "apply fix with a specific identifier")
	flags.String("rule", "", "apply every fix produced by one rule")
	flags.Bool("unsafe", false, "also apply fixes that rely on heuristics")
	flags.Bool("dry-run", false, "print the changes instead of writing them")
	flags.String("mode", "", "fix granularity (per-match|whole-buffer, default from config)")
	flags.Int("jobs", 0, "max parallel files (0=auto)")
	flags.Bool("no-cache", false, "disable the on-disk result cache")
	flags.String("ui", "off", "progress view for directories (auto|on|off)")
	return fixCmd
}

func runFix(cmd *cobra.Command, args []string) error {
	targetPath := args[0]
	if targetPath == "-" {
		return fmt.Errorf("fix: stdin cannot be rewritten, use inspect instead")
	}
	applyAll, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	applyOnceFlag, err := cmd.Flags().GetBool("once")
	if err != nil {
		return err
	}
	targetID, err := cmd.Flags().GetString("id")
	if err != nil {
		return err
	}
	targetRule, err := cmd.Flags().GetString("rule")
	if err != nil {
		return err
	}
	unsafe, err := cmd.Flags().GetBool("unsafe")
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}

	selectors := 0
	for _, set := range []bool{applyAll, applyOnceFlag, targetID != "", targetRule != ""} {
		if set {
			selectors++
		}
	}
	if selectors > 1 {
		return fmt.Errorf("--all, --once, --id and --rule are mutually exclusive")
	}

	mode := fix.ApplyModeOnce
	target := ""
	switch {
	case targetID != "":
		mode, target = fix.ApplyModeID, targetID
	case targetRule != "":
		mode, target = fix.ApplyModeRule, targetRule
	case applyAll:
		mode = fix.ApplyModeAll
	}

	info, err := os.Stat(targetPath)
	if err != nil {
		return fmt.Errorf("fix: %w", err)
	}
	// fix ids carry a file offset, so they only make sense for one file
	if info.IsDir() && targetID != "" {
		return fmt.Errorf("fix: id can only be used with a single file")
	}

	cleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	sess, run, err := collect(cmd, targetPath)
	if err != nil {
		return fmt.Errorf("fix: inspect failed: %w", err)
	}
	if !info.IsDir() && len(run.failures) > 0 {
		for _, failure := range run.failures {
			fmt.Fprintln(cmd.ErrOrStderr(), "texify:", failure)
		}
		return exitCodeError{code: 2}
	}
	for _, failure := range run.failures {
		sess.log.Warn("file skipped", "error", failure)
	}
	if targetRule != "" {
		reg, err := rules.Builtin(sess.cfg)
		if err != nil {
			return err
		}
		if _, ok := reg.Lookup(targetRule); !ok {
			return fmt.Errorf("fix: unknown rule %q", targetRule)
		}
	}

	res, applyErr := fix.Apply(run.fileSet, run.bag.Items(), fix.ApplyOptions{
		Mode:     mode,
		TargetID: target,
		Unsafe:   unsafe,
		DryRun:   dryRun,
		Logger:   sess.log,
	})

	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	colored, err := useColor(colorFlag, os.Stdout)
	if err != nil {
		return err
	}
	return handleApplyResult(cmd.OutOrStdout(), res, applyErr, dryRun, colored)
}

func handleApplyResult(w io.Writer, res *fix.ApplyResult, applyErr error, dryRun, colored bool) error {
	if res == nil {
		return applyErr
	}
	var printErr error
	if len(res.Applied) > 0 {
		verb := "Applied"
		if dryRun {
			verb = "Would apply"
		}
		_, printErr = fmt.Fprintf(w, "%s %d fix(es):\n", verb, len(res.Applied))
		if printErr != nil {
			return printErr
		}
		for _, item := range res.Applied {
			location := item.PrimaryPath
			if location == "" {
				location = "(unknown location)"
			}
			_, printErr = fmt.Fprintf(
				w,
				"  %s [%s] - %s (%d edits, %s)\n",
				item.Title,
				item.ID,
				location,
				item.EditCount,
				item.Applicability.String(),
			)
			if printErr != nil {
				return printErr
			}
		}
	}
	if len(res.FileChanges) > 0 {
		header := "Updated files:"
		if dryRun {
			header = "Changes (dry run):"
		}
		_, printErr = fmt.Fprintln(w, header)
		if printErr != nil {
			return printErr
		}
		for _, change := range res.FileChanges {
			_, printErr = fmt.Fprintf(w, "  %s (%d edits)\n", change.Path, change.EditCount)
			if printErr != nil {
				return printErr
			}
			if dryRun {
				if printErr = writeChange(w, change, colored); printErr != nil {
					return printErr
				}
			}
		}
	}
	if len(res.Skipped) > 0 {
		_, printErr = fmt.Fprintln(w, "Skipped fixes:")
		if printErr != nil {
			return printErr
		}
		for _, skip := range res.Skipped {
			id := skip.ID
			if id == "" {
				id = "(unnamed)"
			}
			if skip.Title != "" {
				_, printErr = fmt.Fprintf(w, "  %s [%s]: %s\n", skip.Title, id, skip.Reason)
			} else {
				_, printErr = fmt.Fprintf(w, "  [%s]: %s\n", id, skip.Reason)
			}
			if printErr != nil {
				return printErr
			}
		}
	}
	if applyErr != nil {
		if errors.Is(applyErr, fix.ErrNoFixes) && len(res.Applied) == 0 {
			_, printErr = fmt.Fprintln(w, "No applicable fixes found.")
			return printErr
		}
		return applyErr
	}
	if len(res.Applied) == 0 {
		_, printErr = fmt.Fprintln(w, "No fixes applied.")
		return printErr
	}
	return nil
}

// writeChange prints the lines between the common prefix and suffix of a
// file change as a single hunk.
func writeChange(w io.Writer, change fix.FileChange, colored bool) error {
	before := strings.Split(change.Before, "\n")
	after := strings.Split(change.After, "\n")

	prefix := 0
	for prefix < len(before) && prefix < len(after) && before[prefix] == after[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(before)-prefix && suffix < len(after)-prefix &&
		before[len(before)-1-suffix] == after[len(after)-1-suffix] {
		suffix++
	}

	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)
	if colored {
		removed.EnableColor()
		added.EnableColor()
	} else {
		removed.DisableColor()
		added.DisableColor()
	}

	if _, err := fmt.Fprintf(w, "    @@ line %d @@\n", prefix+1); err != nil {
		return err
	}
	for _, line := range before[prefix : len(before)-suffix] {
		if _, err := removed.Fprintf(w, "    - %s\n", line); err != nil {
			return err
		}
	}
	for _, line := range after[prefix : len(after)-suffix] {
		if _, err := added.Fprintf(w, "    + %s\n", line); err != nil {
			return err
		}
	}
	return nil
}
