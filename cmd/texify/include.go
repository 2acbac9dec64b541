package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"texify/internal/fix"
	"texify/internal/latex"
	"texify/internal/packages"
	"texify/internal/source"
)

func newIncludeCmd() *cobra.Command {
	includeCmd := &cobra.Command{
		Use:   "include [flags] <file.tex> <command>...",
		Short: "Add the \\usepackage lines the given commands depend on",
		Long: `Include looks up the package each command comes from and inserts the
matching \usepackage into the preamble unless the document already loads it.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runInclude,
	}
	includeCmd.Flags().Bool("dry-run", false, "print the result instead of writing it")
	return includeCmd
}

func runInclude(cmd *cobra.Command, args []string) error {
	path, commands := args[0], args[1:]
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	sess, err := newSession(cmd, path, false)
	if err != nil {
		return err
	}
	deps := packages.NewRegistry()
	if err := deps.Merge(sess.cfg.Packages); err != nil {
		return err
	}

	fileSet := source.NewFileSet()
	id, err := fileSet.LoadEncoded(path, sess.cfg.Inspect.Encoding)
	if err != nil {
		return fmt.Errorf("include: %w", err)
	}
	file := fileSet.Get(id)
	buf := source.BufferFromFile(file)
	handler := packages.IncludeHandler{Registry: deps}

	var added []string
	for _, name := range commands {
		name = strings.TrimPrefix(name, `\`)
		// every insertion moves the preamble end, so parse again
		changed, err := handler.Handle(buf, latex.Parse(buf.Bytes()), name)
		if err != nil {
			return fmt.Errorf("include %s: %w", name, err)
		}
		if changed {
			pkg, _ := deps.Dependency(name)
			added = append(added, pkg.Usepackage())
			sess.log.Debug("added package", "command", name, "package", pkg.Name)
		} else if _, known := deps.Dependency(name); !known {
			sess.log.Warn("no package known for command", "command", name)
		}
	}

	out := cmd.OutOrStdout()
	if dryRun {
		fmt.Fprint(out, buf.Text())
		return nil
	}
	if len(added) == 0 {
		if !sess.quiet {
			fmt.Fprintln(out, "Nothing to include.")
		}
		return nil
	}
	if err := fix.WriteFile(file, buf.Bytes()); err != nil {
		return err
	}
	if !sess.quiet {
		for _, line := range added {
			fmt.Fprintf(out, "%s: added %s\n", file.Path, line)
		}
	}
	return nil
}
