// Package diag defines the diagnostic model shared by inspections, the fix
// engine and the output formatters.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Rule – identifier of the inspection that produced it.
//   - Severity – Info, WeakWarning, Warning or Error.
//   - Message – short, human oriented text.
//   - Primary – the source.Span that is highlighted.
//   - WholeFile – set when the diagnostic belongs to the entire buffer
//     (batch "fix all in file" results).
//   - Fixes – corrective actions.
//
// # Fixes
//
// A Fix is a titled list of TextEdits. Edits inside one fix are ascending
// and non-overlapping so that they can be applied left to right with
// displacement bookkeeping. OldText acts as an optional guard the fix
// engine uses to validate the context before applying an edit.
//
// # Emitting diagnostics
//
// Producers report through a Reporter. BagReporter aggregates into a Bag,
// which supports limits, sorting, deduplication and filtering.
//
// Package diag performs no IO and no formatting; rendering lives in
// internal/diagfmt and application of fixes in internal/fix.
package diag
