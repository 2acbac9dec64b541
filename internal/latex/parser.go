package latex

import "bytes"

type parser struct {
	src   []byte
	off   int
	nodes []Node
	stack []int
}

// Parse scans content once and returns its region tree. Parse never fails:
// unbalanced delimiters are closed at the end of the input.
func Parse(content []byte) *Tree {
	p := &parser{
		src:   content,
		nodes: make([]Node, 0, 64),
		stack: make([]int, 0, 16),
	}
	p.nodes = append(p.nodes, Node{ID: 0, Kind: KindDocument, Start: 0, End: -1, Parent: -1})
	p.stack = append(p.stack, 0)
	p.run()
	for len(p.stack) > 0 {
		p.closeTop(len(p.src))
	}
	return &Tree{src: content, nodes: p.nodes}
}

func (p *parser) top() *Node {
	return &p.nodes[p.stack[len(p.stack)-1]]
}

func (p *parser) open(kind Kind, name string, start int) int {
	parent := p.stack[len(p.stack)-1]
	idx := len(p.nodes)
	n := Node{ID: idx, Kind: kind, Name: name, Start: start, End: -1, Parent: parent}
	switch kind {
	case KindRequiredParam:
		n.Index = p.nodes[parent].reqParams
		p.nodes[parent].reqParams++
	case KindOptionalParam:
		n.Index = p.nodes[parent].optParams
		p.nodes[parent].optParams++
	}
	p.nodes = append(p.nodes, n)
	p.stack = append(p.stack, idx)
	return idx
}

func (p *parser) leaf(kind Kind, name string, start, end int) {
	parent := p.stack[len(p.stack)-1]
	p.nodes = append(p.nodes, Node{ID: len(p.nodes), Kind: kind, Name: name, Start: start, End: end, Parent: parent})
}

func (p *parser) closeTop(end int) {
	idx := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	p.nodes[idx].End = end
}

// closeUntil pops every node above and including the innermost open node
// matching pred. The document node is never closed here.
func (p *parser) closeUntil(pred func(*Node) bool, end int) bool {
	for i := len(p.stack) - 1; i > 0; i-- {
		if pred(&p.nodes[p.stack[i]]) {
			for len(p.stack) > i {
				p.closeTop(end)
			}
			return true
		}
	}
	return false
}

func (p *parser) run() {
	for p.off < len(p.src) {
		c := p.src[p.off]

		if p.top().Kind == KindCommand {
			switch c {
			case '{':
				p.open(KindRequiredParam, "", p.off)
				p.off++
				continue
			case '[':
				p.open(KindOptionalParam, "", p.off)
				p.off++
				continue
			default:
				p.closeTop(p.off)
			}
		}

		switch c {
		case '%':
			end := p.lineEnd(p.off)
			p.leaf(KindComment, "", p.off, end)
			p.off = end
		case '\\':
			p.command()
		case '$':
			p.dollar()
		case '{':
			p.open(KindGroup, "", p.off)
			p.off++
		case '}':
			end := p.off + 1
			p.closeUntil(func(n *Node) bool {
				return n.Kind == KindRequiredParam || n.Kind == KindGroup
			}, end)
			p.off = end
		case ']':
			if p.top().Kind == KindOptionalParam {
				p.closeTop(p.off + 1)
			}
			p.off++
		default:
			p.off++
		}
	}
}

func (p *parser) lineEnd(from int) int {
	if i := bytes.IndexByte(p.src[from:], '\n'); i >= 0 {
		return from + i
	}
	return len(p.src)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '@'
}

func (p *parser) command() {
	start := p.off
	p.off++
	if p.off >= len(p.src) {
		p.leaf(KindCommand, "", start, p.off)
		return
	}
	var name string
	if isLetter(p.src[p.off]) {
		from := p.off
		for p.off < len(p.src) && isLetter(p.src[p.off]) {
			p.off++
		}
		if p.off < len(p.src) && p.src[p.off] == '*' {
			p.off++
		}
		name = string(p.src[from:p.off])
	} else {
		name = string(p.src[p.off])
		p.off++
	}

	switch name {
	case "(":
		p.open(KindInlineMath, `\(`, start)
	case ")":
		p.closeUntil(func(n *Node) bool { return n.Kind == KindInlineMath && n.Name == `\(` }, p.off)
	case "[":
		p.open(KindDisplayMath, `\[`, start)
	case "]":
		p.closeUntil(func(n *Node) bool { return n.Kind == KindDisplayMath && n.Name == `\[` }, p.off)
	case "begin":
		p.begin(start)
	case "end":
		p.end(start)
	case "verb", "verb*":
		p.verb(start, name)
	default:
		if len(name) == 1 && !isLetter(name[0]) {
			p.leaf(KindCommand, name, start, p.off)
			return
		}
		p.open(KindCommand, name, start)
	}
}

// envName reads "{name}" at the cursor. It returns the name and the offset
// just after the closing brace.
func (p *parser) envName() (string, int, bool) {
	if p.off >= len(p.src) || p.src[p.off] != '{' {
		return "", 0, false
	}
	closeIdx := bytes.IndexByte(p.src[p.off:], '}')
	if closeIdx < 0 {
		return "", 0, false
	}
	name := string(bytes.TrimSpace(p.src[p.off+1 : p.off+closeIdx]))
	return name, p.off + closeIdx + 1, true
}

func (p *parser) begin(start int) {
	name, after, ok := p.envName()
	if !ok {
		p.open(KindCommand, "begin", start)
		return
	}
	if verbatimEnvironments[name] || name == "comment" {
		endTag := []byte(`\end{` + name + `}`)
		end := len(p.src)
		if i := bytes.Index(p.src[after:], endTag); i >= 0 {
			end = after + i + len(endTag)
		}
		kind := KindVerbatim
		if name == "comment" {
			kind = KindComment
		}
		p.leaf(kind, name, start, end)
		p.off = end
		return
	}
	kind := KindEnvironment
	if mathEnvironments[name] {
		kind = KindMathEnvironment
	}
	p.open(kind, name, start)
	p.off = after
}

func (p *parser) end(start int) {
	name, after, ok := p.envName()
	if !ok {
		p.open(KindCommand, "end", start)
		return
	}
	p.closeUntil(func(n *Node) bool {
		return (n.Kind == KindEnvironment || n.Kind == KindMathEnvironment) && n.Name == name
	}, after)
	p.off = after
}

func (p *parser) verb(start int, name string) {
	if p.off >= len(p.src) {
		p.leaf(KindCommand, name, start, p.off)
		return
	}
	delim := p.src[p.off]
	end := p.lineEnd(p.off + 1)
	if i := bytes.IndexByte(p.src[p.off+1:end], delim); i >= 0 {
		end = p.off + 1 + i + 1
	}
	p.leaf(KindVerbatim, name, start, end)
	p.off = end
}

func (p *parser) dollar() {
	start := p.off
	name := "$"
	// Inside inline math the first $ of $$ closes it and the second opens
	// a new region: $a$$b$ is two inline formulas.
	if p.off+1 < len(p.src) && p.src[p.off+1] == '$' && !p.closesMath("$") {
		name = "$$"
	}
	p.off += len(name)

	if p.closesMath(name) {
		p.closeUntil(func(n *Node) bool { return n.Kind.IsMath() && n.Name == name }, p.off)
		return
	}
	kind := KindInlineMath
	if name == "$$" {
		kind = KindDisplayMath
	}
	p.open(kind, name, start)
}

// closesMath reports whether the innermost math region, not crossing a
// text-mode argument, was opened by delim.
func (p *parser) closesMath(delim string) bool {
	for i := len(p.stack) - 1; i > 0; i-- {
		n := &p.nodes[p.stack[i]]
		if n.Kind == KindRequiredParam && textCommands[p.nodes[n.Parent].Name] {
			return false
		}
		if n.Kind.IsMath() {
			return n.Name == delim
		}
	}
	return false
}
