package latex

import (
	"slices"
	"strings"
	"sync"

	"github.com/coregx/coregex"
)

// Tree answers context questions about offsets of one document.
// A Tree is immutable and safe for concurrent readers.
type Tree struct {
	src   []byte
	nodes []Node

	// preamble facts, computed on first use
	preamble sync.Once
	includes []string
	insertAt int
}

// Nodes returns every region in creation order; nodes[0] is the document.
func (t *Tree) Nodes() []Node {
	return t.nodes
}

// Len returns the length of the parsed content.
func (t *Tree) Len() int {
	return len(t.src)
}

// Node returns the node with the given ID.
func (t *Tree) Node(id int) (Node, bool) {
	if id < 0 || id >= len(t.nodes) {
		return Node{}, false
	}
	return t.nodes[id], true
}

// Parent returns the enclosing node of n.
func (t *Tree) Parent(n Node) (Node, bool) {
	return t.Node(n.Parent)
}

// ElementAt returns the innermost node containing off. It reports false
// when off does not address any content (empty document, end of input).
func (t *Tree) ElementAt(off int) (Node, bool) {
	if off < 0 || off >= len(t.src) {
		return Node{}, false
	}
	best := 0
	// Children are created after their parents, so the last containing
	// node is the innermost one.
	for i := 1; i < len(t.nodes); i++ {
		if t.nodes[i].Start > off {
			break
		}
		if t.nodes[i].Contains(off) {
			best = i
		}
	}
	return t.nodes[best], true
}

// Ancestors returns the chain of nodes containing off, innermost first.
func (t *Tree) Ancestors(off int) []Node {
	n, ok := t.ElementAt(off)
	if !ok {
		return nil
	}
	out := []Node{n}
	for n.Parent >= 0 {
		n = t.nodes[n.Parent]
		out = append(out, n)
	}
	return out
}

// HasAncestor reports whether off lies inside a node of the given kind.
func (t *Tree) HasAncestor(off int, kind Kind) bool {
	for _, n := range t.Ancestors(off) {
		if n.Kind == kind {
			return true
		}
	}
	return false
}

// InComment reports whether off is inside a comment.
func (t *Tree) InComment(off int) bool {
	n, ok := t.ElementAt(off)
	return ok && n.Kind == KindComment
}

// InMath reports whether off is typeset in math mode. Arguments of text
// commands such as \text inside math are not math.
func (t *Tree) InMath(off int) bool {
	for _, n := range t.Ancestors(off) {
		if n.Kind == KindRequiredParam && textCommands[t.nodes[n.Parent].Name] {
			return false
		}
		if n.Kind.IsMath() {
			return true
		}
	}
	return false
}

// CommandArgument returns the command whose required argument encloses
// off, together with the argument index.
func (t *Tree) CommandArgument(off int) (Node, int, bool) {
	for _, n := range t.Ancestors(off) {
		if n.Kind != KindRequiredParam {
			continue
		}
		parent := t.nodes[n.Parent]
		if parent.Kind == KindCommand {
			return parent, n.Index, true
		}
	}
	return Node{}, 0, false
}

// Text returns the source text of n.
func (t *Tree) Text(n Node) string {
	if n.Start < 0 || n.End > len(t.src) || n.Start > n.End {
		return ""
	}
	return string(t.src[n.Start:n.End])
}

// Children returns the direct children of n.
func (t *Tree) Children(n Node) []Node {
	var out []Node
	for i := n.ID + 1; i < len(t.nodes); i++ {
		if t.nodes[i].Start >= n.End && n.End >= 0 {
			break
		}
		if t.nodes[i].Parent == n.ID {
			out = append(out, t.nodes[i])
		}
	}
	return out
}

// Param returns the index-th required parameter of a command.
func (t *Tree) Param(cmd Node, index int) (Node, bool) {
	for _, c := range t.Children(cmd) {
		if c.Kind == KindRequiredParam && c.Index == index {
			return c, true
		}
	}
	return Node{}, false
}

// ParamText returns the content between the braces of a required parameter.
func (t *Tree) ParamText(cmd Node, index int) (string, bool) {
	p, ok := t.Param(cmd, index)
	if !ok {
		return "", false
	}
	text := t.Text(p)
	if len(text) < 2 || text[len(text)-1] != '}' {
		return "", false
	}
	return text[1 : len(text)-1], true
}

// Commands returns every command node with the given name.
func (t *Tree) Commands(name string) []Node {
	var out []Node
	for _, n := range t.nodes {
		if n.Kind == KindCommand && n.Name == name {
			out = append(out, n)
		}
	}
	return out
}

var inlineComment = coregex.MustCompile(`%[^\n]*`)

// Includes returns the packages loaded with \usepackage or \RequirePackage,
// in document order.
func (t *Tree) Includes() []string {
	t.scanPreamble()
	return slices.Clone(t.includes)
}

// HasInclude reports whether pkg is loaded anywhere in the document.
func (t *Tree) HasInclude(pkg string) bool {
	t.scanPreamble()
	return slices.Contains(t.includes, pkg)
}

func (t *Tree) scanPreamble() {
	t.preamble.Do(func() {
		t.includes = t.scanIncludes()
		t.insertAt = t.scanInsertPoint()
	})
}

func (t *Tree) scanIncludes() []string {
	var out []string
	for _, n := range t.nodes {
		if n.Kind != KindCommand || (n.Name != "usepackage" && n.Name != "RequirePackage") {
			continue
		}
		if t.InComment(n.Start) {
			continue
		}
		arg, ok := t.ParamText(n, 0)
		if !ok {
			continue
		}
		arg = inlineComment.ReplaceAllString(arg, "")
		for _, name := range strings.Split(arg, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

// PreambleInsertPoint returns the offset at which a new \usepackage line
// belongs: after the last package inclusion of the preamble, otherwise after
// \documentclass, otherwise the start of the file.
func (t *Tree) PreambleInsertPoint() int {
	t.scanPreamble()
	return t.insertAt
}

func (t *Tree) scanInsertPoint() int {
	limit := len(t.src)
	for _, n := range t.nodes {
		if n.Kind == KindEnvironment && n.Name == "document" {
			limit = n.Start
			break
		}
	}
	point := -1
	for _, n := range t.nodes {
		if n.Kind != KindCommand || n.Start >= limit {
			continue
		}
		switch n.Name {
		case "usepackage", "RequirePackage":
			point = n.End
		case "documentclass":
			if point < 0 {
				point = n.End
			}
		}
	}
	if point < 0 {
		return 0
	}
	return point
}
