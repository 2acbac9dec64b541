// Package inspect is the pattern inspection engine. A Rule pairs a regular
// expression with hooks that filter matches by syntactic context and
// compute messages and replacements; Inspect turns the accepted matches into
// diagnostics, either one per match or one for the whole buffer, and
// ApplyFixes writes replacements back with displacement bookkeeping.
package inspect
