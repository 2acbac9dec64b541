package inspect

import "texify/internal/latex"

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int {
	return r.End - r.Start
}

// Valid reports whether the range is well formed.
func (r Range) Valid() bool {
	return r.Start >= 0 && r.End >= r.Start
}

// Match is one regular expression match inside a buffer.
type Match struct {
	text  string
	idx   []int
	names []string
	tree  *latex.Tree
}

func newMatch(text string, idx []int, names []string, tree *latex.Tree) Match {
	return Match{text: text, idx: idx, names: names, tree: tree}
}

// Tree returns the syntax tree of the buffer the match was found in.
func (m Match) Tree() *latex.Tree { return m.tree }

// Start returns the offset of the first byte of the match.
func (m Match) Start() int { return m.idx[0] }

// End returns the offset just after the match.
func (m Match) End() int { return m.idx[1] }

// Range returns the full match range.
func (m Match) Range() Range { return Range{Start: m.idx[0], End: m.idx[1]} }

// Text returns the matched text.
func (m Match) Text() string { return m.text[m.idx[0]:m.idx[1]] }

// Buffer returns the full text the match was found in.
func (m Match) Buffer() string { return m.text }

// NumGroups returns the number of groups including the whole match.
func (m Match) NumGroups() int { return len(m.idx) / 2 }

// GroupRange returns the range of group i. Unmatched or unknown groups
// yield Range{-1, -1}.
func (m Match) GroupRange(i int) Range {
	if i < 0 || 2*i+1 >= len(m.idx) || m.idx[2*i] < 0 {
		return Range{Start: -1, End: -1}
	}
	return Range{Start: m.idx[2*i], End: m.idx[2*i+1]}
}

// Group returns the text of group i, empty when it did not participate.
func (m Match) Group(i int) string {
	r := m.GroupRange(i)
	if !r.Valid() {
		return ""
	}
	return m.text[r.Start:r.End]
}

// NamedGroup returns the text of the group declared as (?P<name>...).
func (m Match) NamedGroup(name string) string {
	for i, n := range m.names {
		if n == name && name != "" {
			return m.Group(i)
		}
	}
	return ""
}

// After returns up to n bytes following the match.
func (m Match) After(n int) string {
	end := min(m.End()+n, len(m.text))
	return m.text[m.End():end]
}

// Before returns up to n bytes preceding the match.
func (m Match) Before(n int) string {
	start := max(m.Start()-n, 0)
	return m.text[start:m.Start()]
}
