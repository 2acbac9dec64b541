package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"texify/internal/config"
	"texify/internal/rules"
)

type ruleRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Severity string `json:"severity"`
	Math     bool   `json:"math"`
	Enabled  bool   `json:"enabled"`
}

func newRulesCmd() *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules [directory]",
		Short: "List the built-in inspections and whether they are enabled",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRules,
	}
	rulesCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	return rulesCmd
}

func runRules(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) == 1 {
		target = args[0]
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	sess, err := newSession(cmd, target, false)
	if err != nil {
		return err
	}
	rows, err := ruleRows(sess.cfg)
	if err != nil {
		return err
	}
	if err := rulesCheck(sess.cfg); err != nil {
		sess.log.Warn("configuration names unknown rules", "error", err)
	}

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "pretty":
		colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
		if err != nil {
			return err
		}
		colored, err := useColor(colorFlag, os.Stdout)
		if err != nil {
			return err
		}
		return renderRules(cmd.OutOrStdout(), rows, colored)
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}

// ruleRows lists every built-in rule with its effective severity.
func ruleRows(cfg *config.Config) ([]ruleRow, error) {
	reg, err := rules.Builtin(cfg)
	if err != nil {
		return nil, err
	}
	enabled := make(map[string]string)
	for _, rule := range reg.Enabled(cfg) {
		enabled[rule.ID] = rule.Severity.String()
	}
	all := reg.All()
	rows := make([]ruleRow, 0, len(all))
	for _, rule := range all {
		row := ruleRow{
			ID:       rule.ID,
			Name:     rule.Name,
			Severity: rule.Severity.String(),
			Math:     rule.MathMode,
		}
		if sev, ok := enabled[rule.ID]; ok {
			row.Enabled = true
			row.Severity = sev
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func rulesCheck(cfg *config.Config) error {
	reg, err := rules.Builtin(cfg)
	if err != nil {
		return err
	}
	return reg.CheckConfig(cfg)
}

func renderRules(w io.Writer, rows []ruleRow, colored bool) error {
	on := color.New(color.FgGreen)
	off := color.New(color.Faint)
	if colored {
		on.EnableColor()
		off.EnableColor()
	} else {
		on.DisableColor()
		off.DisableColor()
	}

	idWidth, sevWidth := len("ID"), len("SEVERITY")
	for _, row := range rows {
		idWidth = max(idWidth, runewidth.StringWidth(row.ID))
		sevWidth = max(sevWidth, runewidth.StringWidth(row.Severity))
	}

	if _, err := fmt.Fprintf(w, "%s  %s  %-4s  %-3s  %s\n",
		runewidth.FillRight("ID", idWidth), runewidth.FillRight("SEVERITY", sevWidth), "MATH", "ON", "NAME"); err != nil {
		return err
	}
	for _, row := range rows {
		math, state, paint := "", "off", off
		if row.Math {
			math = "yes"
		}
		if row.Enabled {
			state, paint = "on", on
		}
		line := fmt.Sprintf("%s  %s  %-4s  %-3s  %s",
			runewidth.FillRight(row.ID, idWidth), runewidth.FillRight(row.Severity, sevWidth), math, state, row.Name)
		if _, err := paint.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
