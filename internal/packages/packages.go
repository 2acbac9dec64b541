// Package packages knows which LaTeX package provides a command and how to
// include a missing package in the preamble.
package packages

import (
	"fmt"
	"slices"
	"strings"
)

// Package is a LaTeX package together with the options it is loaded with.
type Package struct {
	Name    string
	Options []string
}

// Default is the sentinel for commands that need no package.
var Default = Package{}

func (p Package) IsDefault() bool {
	return p.Name == ""
}

// String renders "name" or "name[opt,opt]", the form accepted by Parse.
func (p Package) String() string {
	if len(p.Options) == 0 {
		return p.Name
	}
	return p.Name + "[" + strings.Join(p.Options, ",") + "]"
}

// Usepackage returns the \usepackage command loading p.
func (p Package) Usepackage() string {
	if len(p.Options) == 0 {
		return `\usepackage{` + p.Name + `}`
	}
	return `\usepackage[` + strings.Join(p.Options, ",") + `]{` + p.Name + `}`
}

// Parse reads "name" or "name[opt,opt]".
func Parse(s string) (Package, error) {
	s = strings.TrimSpace(s)
	name, rest, hasOpts := strings.Cut(s, "[")
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, "{}\\ ,]") {
		return Package{}, fmt.Errorf("invalid package %q", s)
	}
	p := Package{Name: name}
	if !hasOpts {
		return p, nil
	}
	opts, ok := strings.CutSuffix(rest, "]")
	if !ok {
		return Package{}, fmt.Errorf("invalid package %q: unterminated options", s)
	}
	for _, o := range strings.Split(opts, ",") {
		if o = strings.TrimSpace(o); o != "" {
			p.Options = append(p.Options, o)
		}
	}
	return p, nil
}

// Registry maps command names, without the backslash, to packages.
type Registry struct {
	deps map[string]Package
}

var defaults = map[string]string{
	"SI":              "siunitx",
	"si":              "siunitx",
	"num":             "siunitx",
	"includegraphics": "graphicx",
	"url":             "url",
	"href":            "hyperref",
	"mathbb":          "amssymb",
	"mathfrak":        "amssymb",
	"text":            "amsmath",
	"eqref":           "amsmath",
	"cref":            "cleveref",
	"Cref":            "cleveref",
	"toprule":         "booktabs",
	"midrule":         "booktabs",
	"bottomrule":      "booktabs",
	"textcolor":       "xcolor",
	"todo":            "todonotes",
}

// NewRegistry returns a registry holding the built-in table.
func NewRegistry() *Registry {
	r := &Registry{deps: make(map[string]Package, len(defaults))}
	for cmd, pkg := range defaults {
		r.deps[cmd] = Package{Name: pkg}
	}
	return r
}

// Merge adds or overrides entries. Keys may carry a leading backslash.
func (r *Registry) Merge(entries map[string]string) error {
	for cmd, spec := range entries {
		name := strings.TrimPrefix(strings.TrimSpace(cmd), `\`)
		if name == "" {
			return fmt.Errorf("[packages]: empty command name")
		}
		p, err := Parse(spec)
		if err != nil {
			return fmt.Errorf("[packages].%s: %w", cmd, err)
		}
		r.deps[name] = p
	}
	return nil
}

// Dependency returns the package providing command. ok is false for
// commands that need no package.
func (r *Registry) Dependency(command string) (Package, bool) {
	p, ok := r.deps[strings.TrimPrefix(command, `\`)]
	if !ok || p.IsDefault() {
		return Default, false
	}
	return p, true
}

// Commands returns every registered command in sorted order.
func (r *Registry) Commands() []string {
	out := make([]string, 0, len(r.deps))
	for cmd := range r.deps {
		out = append(out, cmd)
	}
	slices.Sort(out)
	return out
}
