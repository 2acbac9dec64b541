// Package latex builds a light region tree over LaTeX source and answers
// the context questions inspections ask about an offset: is it inside a
// comment, inside math, inside verbatim text, or inside the argument of a
// particular command.
//
// The scanner is deliberately forgiving. It understands comments, command
// arguments, groups, environments, the $, $$, \( \) and \[ \] math
// delimiters, math environments and verbatim material; everything else is
// plain text. Unbalanced input never fails, open regions are closed at the
// end of the document.
package latex
