// Package rules holds the built-in LaTeX pattern inspections and the
// registry that selects them according to texify.toml.
package rules

import (
	"fmt"
	"slices"
	"strings"

	"texify/internal/config"
	"texify/internal/inspect"
	"texify/internal/packages"
)

// GroupLaTeX is the inspection group of every built-in rule.
const GroupLaTeX = "latex"

// Registry is an ordered set of rules addressed by ID.
type Registry struct {
	rules []*inspect.Rule
	byID  map[string]*inspect.Rule
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*inspect.Rule)}
}

// Register adds rule. IDs must be unique.
func (r *Registry) Register(rule *inspect.Rule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("register %q: %w", rule.Name, err)
	}
	if _, dup := r.byID[rule.ID]; dup {
		return fmt.Errorf("register %q: duplicate rule id", rule.ID)
	}
	r.rules = append(r.rules, rule)
	r.byID[rule.ID] = rule
	return nil
}

func (r *Registry) Lookup(id string) (*inspect.Rule, bool) {
	rule, ok := r.byID[id]
	return rule, ok
}

// All returns every rule in registration order.
func (r *Registry) All() []*inspect.Rule {
	return slices.Clone(r.rules)
}

func (r *Registry) Len() int {
	return len(r.rules)
}

// Enabled returns the rules cfg enables, with severity overrides applied to
// copies so the registered rules stay untouched.
func (r *Registry) Enabled(cfg *config.Config) []*inspect.Rule {
	out := make([]*inspect.Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		if !cfg.RuleEnabled(rule.ID) {
			continue
		}
		if sev, ok := cfg.SeverityFor(rule.ID); ok && sev != rule.Severity {
			cp := *rule
			cp.Severity = sev
			rule = &cp
		}
		out = append(out, rule)
	}
	return out
}

// CheckConfig reports rule IDs named in cfg that no rule carries.
func (r *Registry) CheckConfig(cfg *config.Config) error {
	var unknown []string
	check := func(id string) {
		if _, ok := r.byID[id]; !ok && !slices.Contains(unknown, id) {
			unknown = append(unknown, id)
		}
	}
	for _, id := range cfg.Inspect.Enabled {
		check(id)
	}
	for _, id := range cfg.Inspect.Disabled {
		check(id)
	}
	for id := range cfg.Inspect.Severity {
		check(id)
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	return fmt.Errorf("unknown rules in config: %s", strings.Join(unknown, ", "))
}

// Builtin returns a registry holding every built-in rule configured by cfg.
func Builtin(cfg *config.Config) (*Registry, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	deps := packages.NewRegistry()
	if err := deps.Merge(cfg.Packages); err != nil {
		return nil, err
	}

	all := []*inspect.Rule{
		Ellipsis(),
		MathEllipsis(),
		NonBreakingReference(),
		AbbreviationSpace(),
		DisplayDollar(),
		Def(),
		LabelSpaces(cfg.Labeling),
		Over(),
		MissingPackage(deps, false),
		MissingPackage(deps, true),
	}
	if cfg.Editor.QuoteReplacement != config.QuoteOff {
		all = append(all, Quotes(cfg.Editor.QuoteReplacement))
	}

	reg := NewRegistry()
	for _, rule := range all {
		if err := reg.Register(rule); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
