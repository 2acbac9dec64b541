package packages

import (
	"texify/internal/latex"
	"texify/internal/source"
)

// IncludeHandler inserts the \usepackage a command depends on when the
// document does not load it yet.
type IncludeHandler struct {
	Registry *Registry
}

// Insertion computes where and what to insert for command. ok is false
// when the command needs no package or the package is already included.
func (h IncludeHandler) Insertion(tree *latex.Tree, command string) (off int, text string, ok bool) {
	pkg, ok := h.Registry.Dependency(command)
	if !ok || tree.HasInclude(pkg.Name) {
		return 0, "", false
	}
	off = tree.PreambleInsertPoint()
	if off == 0 {
		return 0, pkg.Usepackage() + "\n", true
	}
	return off, "\n" + pkg.Usepackage(), true
}

// Handle applies the insertion to buf. It reports whether buf changed.
func (h IncludeHandler) Handle(buf *source.Buffer, tree *latex.Tree, command string) (bool, error) {
	off, text, ok := h.Insertion(tree, command)
	if !ok {
		return false, nil
	}
	if err := buf.Insert(off, text); err != nil {
		return false, err
	}
	return true, nil
}
