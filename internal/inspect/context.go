package inspect

import (
	"slices"

	"texify/internal/latex"
)

// InElement accepts matches whose start lies inside a node of the given
// kind, at any depth.
func InElement(kind latex.Kind) ContextFunc {
	return func(m Match, tree *latex.Tree, _ latex.Node) bool {
		return tree.HasAncestor(m.Start(), kind)
	}
}

// InCommandArgument accepts matches whose start lies inside a required
// argument of one of the named commands. Names omit the backslash.
func InCommandArgument(names ...string) ContextFunc {
	return func(m Match, tree *latex.Tree, _ latex.Node) bool {
		cmd, _, ok := tree.CommandArgument(m.Start())
		return ok && slices.Contains(names, cmd.Name)
	}
}

// All accepts a match when every predicate accepts it.
func All(preds ...ContextFunc) ContextFunc {
	return func(m Match, tree *latex.Tree, el latex.Node) bool {
		for _, p := range preds {
			if !p(m, tree, el) {
				return false
			}
		}
		return true
	}
}
