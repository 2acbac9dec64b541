package latex

// Kind classifies a syntax region.
type Kind uint8

const (
	KindDocument Kind = iota
	KindComment
	KindCommand
	KindRequiredParam
	KindOptionalParam
	KindGroup
	KindEnvironment
	KindInlineMath
	KindDisplayMath
	KindMathEnvironment
	KindVerbatim
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindComment:
		return "comment"
	case KindCommand:
		return "command"
	case KindRequiredParam:
		return "required-param"
	case KindOptionalParam:
		return "optional-param"
	case KindGroup:
		return "group"
	case KindEnvironment:
		return "environment"
	case KindInlineMath:
		return "inline-math"
	case KindDisplayMath:
		return "display-math"
	case KindMathEnvironment:
		return "math-environment"
	case KindVerbatim:
		return "verbatim"
	}
	return "unknown"
}

// IsMath reports whether the kind opens a math context.
func (k Kind) IsMath() bool {
	return k == KindInlineMath || k == KindDisplayMath || k == KindMathEnvironment
}

// Node is one region of the document. Regions nest properly: a node is
// contained in its parent. Offsets are byte offsets, End is exclusive.
type Node struct {
	ID     int
	Kind   Kind
	Name   string // command or environment name, math delimiter
	Start  int
	End    int
	Parent int // -1 for the document node
	// Index is the position of a parameter among the parameters of the
	// same kind of its command.
	Index int

	reqParams int
	optParams int
}

// Contains reports whether off lies inside the node.
func (n Node) Contains(off int) bool {
	return n.Start <= off && off < n.End
}

var mathEnvironments = map[string]bool{
	"equation": true, "equation*": true,
	"align": true, "align*": true,
	"alignat": true, "alignat*": true,
	"flalign": true, "flalign*": true,
	"gather": true, "gather*": true,
	"multline": true, "multline*": true,
	"eqnarray": true, "eqnarray*": true,
	"math": true, "displaymath": true,
}

var verbatimEnvironments = map[string]bool{
	"verbatim": true, "verbatim*": true,
	"Verbatim": true, "lstlisting": true,
	"minted": true,
}

// textCommands switch back to text mode inside math.
var textCommands = map[string]bool{
	"text": true, "textrm": true, "textbf": true, "textit": true,
	"textsf": true, "texttt": true, "textnormal": true, "textup": true,
	"mbox": true, "hbox": true, "intertext": true, "shortintertext": true,
}

// IsMathEnvironment reports whether name is an environment typeset in math mode.
func IsMathEnvironment(name string) bool {
	return mathEnvironments[name]
}
