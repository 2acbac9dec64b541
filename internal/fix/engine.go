package fix

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/hashicorp/go-hclog"

	"texify/internal/diag"
	"texify/internal/source"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// ApplyMode determines selection strategy for fixes.
type ApplyMode uint8

const (
	ApplyModeOnce ApplyMode = iota
	ApplyModeAll
	// ApplyModeID applies the single fix whose ID equals TargetID.
	ApplyModeID
	// ApplyModeRule applies every fix produced by the rule TargetID.
	ApplyModeRule
)

// ApplyOptions configures how fixes are selected.
type ApplyOptions struct {
	Mode     ApplyMode
	TargetID string
	// Unsafe lets ApplyModeAll and ApplyModeRule also take fixes marked
	// safe-with-heuristics.
	Unsafe bool
	// DryRun computes the new contents without writing them.
	DryRun bool
	Logger hclog.Logger
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	ID            string
	Title         string
	Rule          string
	Message       string
	Applicability diag.FixApplicability
	PrimaryPath   string
	EditCount     int
}

// SkippedFix captures a skipped or failed fix with a reason.
type SkippedFix struct {
	ID     string
	Title  string
	Reason string
}

// FileChange summarises modifications performed on a file.
type FileChange struct {
	Path      string
	EditCount int
	// Before and After hold the normalized text around the change.
	Before string
	After  string
}

// ApplyResult aggregates applied fixes, skipped ones, and file changes.
type ApplyResult struct {
	Applied     []AppliedFix
	Skipped     []SkippedFix
	FileChanges []FileChange
}

type candidate struct {
	diag  diag.Diagnostic
	fix   diag.Fix
	order int
}

// Apply collects fixes from diagnostics, selects a subset according to opts, and applies them.
func Apply(fs *source.FileSet, diagnostics []diag.Diagnostic, opts ApplyOptions) (*ApplyResult, error) {
	result := &ApplyResult{
		Applied:     make([]AppliedFix, 0),
		Skipped:     make([]SkippedFix, 0),
		FileChanges: make([]FileChange, 0),
	}
	if fs == nil {
		return result, fmt.Errorf("fix: FileSet is nil")
	}
	log := opts.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}

	candidates, buildSkips := gatherCandidates(diagnostics)
	result.Skipped = append(result.Skipped, buildSkips...)

	if len(candidates) == 0 {
		return result, ErrNoFixes
	}

	sortCandidates(candidates)

	selected, selectionSkips := selectCandidates(candidates, opts)
	result.Skipped = append(result.Skipped, selectionSkips...)
	log.Debug("selected fixes", "candidates", len(candidates), "selected", len(selected))

	if len(selected) == 0 {
		return result, ErrNoFixes
	}

	applied, skippedDuringApply, changes, err := applyCandidates(fs, selected, opts.DryRun, log)
	result.Applied = append(result.Applied, applied...)
	result.Skipped = append(result.Skipped, skippedDuringApply...)
	result.FileChanges = append(result.FileChanges, changes...)

	if err != nil {
		return result, err
	}
	if len(result.Applied) == 0 {
		return result, ErrNoFixes
	}
	return result, nil
}

// gatherCandidates builds a list of candidate fixes from diagnostics and reports any skips encountered.
//
// Fix IDs produced by inspections name the rule, so every candidate gets a
// unique ID of the form rule@file:start[/index]. Fixes without edits are
// skipped. Each candidate gets a monotonically increasing order value that
// keeps later stable sorting deterministic.
func gatherCandidates(diagnostics []diag.Diagnostic) ([]candidate, []SkippedFix) {
	cands := make([]candidate, 0)
	skips := make([]SkippedFix, 0)
	seen := make(map[string]struct{})

	order := 0
	for _, d := range diagnostics {
		for idx, f := range d.Fixes {
			id := fmt.Sprintf("%s@%d:%d", d.Rule, d.Primary.File, d.Primary.Start)
			if idx > 0 {
				id = fmt.Sprintf("%s/%d", id, idx)
			}
			if len(f.Edits) == 0 {
				skips = append(skips, SkippedFix{
					ID:     id,
					Title:  f.Title,
					Reason: "fix has no edits",
				})
				continue
			}
			if _, dup := seen[id]; dup {
				skips = append(skips, SkippedFix{
					ID:     id,
					Title:  f.Title,
					Reason: "duplicate fix id",
				})
				continue
			}
			seen[id] = struct{}{}
			f.ID = id
			cands = append(cands, candidate{
				diag:  d,
				fix:   f,
				order: order,
			})
			order++
		}
	}
	return cands, skips
}

// sortCandidates orders candidates by file, primary span and discovery
// order, with rule, fix ID and title as tie breakers.
func sortCandidates(candidates []candidate) {
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		pa, pb := a.diag.Primary, b.diag.Primary
		return cmp.Or(
			cmp.Compare(pa.File, pb.File),
			cmp.Compare(pa.Start, pb.Start),
			cmp.Compare(pa.End, pb.End),
			cmp.Compare(a.order, b.order),
			cmp.Compare(a.diag.Rule, b.diag.Rule),
			cmp.Compare(a.fix.ID, b.fix.ID),
			cmp.Compare(a.fix.Title, b.fix.Title),
		)
	})
}

func allowed(app diag.FixApplicability, unsafe bool) bool {
	switch app {
	case diag.FixApplicabilityAlwaysSafe:
		return true
	case diag.FixApplicabilitySafeWithHeuristics:
		return unsafe
	}
	return false
}

func selectCandidates(candidates []candidate, opts ApplyOptions) ([]candidate, []SkippedFix) {
	switch opts.Mode {
	case ApplyModeID:
		for _, cand := range candidates {
			if cand.fix.ID == opts.TargetID {
				return []candidate{cand}, nil
			}
		}
		return nil, []SkippedFix{{
			ID:     opts.TargetID,
			Reason: "fix id not found",
		}}
	case ApplyModeAll, ApplyModeRule:
		selected := make([]candidate, 0, len(candidates))
		skipped := make([]SkippedFix, 0)
		for _, cand := range candidates {
			if opts.Mode == ApplyModeRule && cand.diag.Rule != opts.TargetID {
				continue
			}
			if allowed(cand.fix.Applicability, opts.Unsafe) {
				selected = append(selected, cand)
				continue
			}
			skipped = append(skipped, SkippedFix{
				ID:     cand.fix.ID,
				Title:  cand.fix.Title,
				Reason: fmt.Sprintf("applicability is %s", cand.fix.Applicability.String()),
			})
		}
		if opts.Mode == ApplyModeRule && len(selected) == 0 && len(skipped) == 0 {
			skipped = append(skipped, SkippedFix{
				ID:     opts.TargetID,
				Reason: "no fixes for rule",
			})
		}
		return selected, skipped
	case ApplyModeOnce:
		var fallback *candidate
		for i := range candidates {
			cand := candidates[i]
			if cand.fix.Applicability == diag.FixApplicabilityAlwaysSafe {
				return []candidate{cand}, nil
			}
			if fallback == nil {
				tmp := cand
				fallback = &tmp
			}
		}
		if fallback != nil {
			return []candidate{*fallback}, nil
		}
		return nil, nil
	default:
		return nil, nil
	}
}

// fileState is the accumulated rewrite of one file.
type fileState struct {
	buf *source.Buffer
	// applied holds every accepted edit in original coordinates, sorted by start.
	applied []diag.TextEdit
	edits   int
}

// applier applies candidates one by one. A fix either lands completely or
// leaves every file untouched.
type applier struct {
	fs     *source.FileSet
	dryRun bool
	log    hclog.Logger
	files  map[source.FileID]*fileState
	order  []source.FileID
}

func applyCandidates(fs *source.FileSet, selected []candidate, dryRun bool, log hclog.Logger) ([]AppliedFix, []SkippedFix, []FileChange, error) {
	a := &applier{fs: fs, dryRun: dryRun, log: log, files: make(map[source.FileID]*fileState)}
	applied := make([]AppliedFix, 0, len(selected))
	skipped := make([]SkippedFix, 0)

	for _, cand := range selected {
		count, reason := a.apply(cand.fix)
		if reason != "" {
			log.Debug("skipping fix", "id", cand.fix.ID, "reason", reason)
			skipped = append(skipped, SkippedFix{ID: cand.fix.ID, Title: cand.fix.Title, Reason: reason})
			continue
		}
		applied = append(applied, AppliedFix{
			ID:            cand.fix.ID,
			Title:         cand.fix.Title,
			Rule:          cand.diag.Rule,
			Message:       cand.diag.Message,
			Applicability: cand.fix.Applicability,
			PrimaryPath:   formatFilePath(fs, cand.diag.Primary.File),
			EditCount:     count,
		})
	}
	if len(applied) == 0 {
		return applied, skipped, nil, nil
	}
	changes, err := a.flush()
	return applied, skipped, changes, err
}

// apply stages every edit of f and commits them only when all files accept
// them. It returns the number of edits made or the reason the fix was skipped.
func (a *applier) apply(f diag.Fix) (int, string) {
	staged := make(map[source.FileID]*fileState)
	total := 0
	for fileID, edits := range groupEditsByFile(f.Edits) {
		next, reason := a.stage(fileID, edits)
		if reason != "" {
			return 0, reason
		}
		staged[fileID] = next
		total += next.edits - a.state(fileID).edits
	}
	for fileID, next := range staged {
		if _, known := a.files[fileID]; !known {
			a.order = append(a.order, fileID)
		}
		a.files[fileID] = next
	}
	return total, ""
}

func (a *applier) state(fileID source.FileID) *fileState {
	if st, ok := a.files[fileID]; ok {
		return st
	}
	return &fileState{}
}

// stage applies edits to a copy of the file's current buffer.
func (a *applier) stage(fileID source.FileID, edits []diag.TextEdit) (*fileState, string) {
	file := a.fs.Get(fileID)
	if file == nil {
		return nil, "target file is unknown"
	}
	if file.Flags&source.FileVirtual != 0 && !a.dryRun {
		return nil, "target file is virtual"
	}

	prev := a.state(fileID)
	edits = dropRepeated(prev.applied, edits)
	if len(edits) == 0 {
		return nil, "edits already applied"
	}
	if conflictsWithExisting(prev.applied, edits) {
		return nil, fmt.Sprintf("conflicts with previously applied edits in %s", file.FormatPath("auto", a.fs.BaseDir()))
	}

	base := prev.buf
	if base == nil {
		base = source.BufferFromFile(file)
	}
	next := &fileState{
		buf:     source.NewBuffer(base.Bytes()),
		applied: slices.Clone(prev.applied),
		edits:   prev.edits + len(edits),
	}

	slices.SortStableFunc(edits, func(x, y diag.TextEdit) int {
		return cmp.Or(cmp.Compare(x.Span.Start, y.Span.Start), cmp.Compare(x.Span.End, y.Span.End))
	})
	// Earlier fixes sit wholly before or after each edit, so one shift maps
	// the whole span into the current buffer.
	current := make([]source.Edit, len(edits))
	for i, edit := range edits {
		shift := cumulativeDelta(prev.applied, int(edit.Span.Start))
		current[i] = source.Edit{Start: int(edit.Span.Start) + shift, End: int(edit.Span.End) + shift, Text: edit.NewText}
		if edit.OldText == "" {
			continue
		}
		text, err := next.buf.Slice(current[i].Start, current[i].End)
		if err != nil {
			return nil, "edit span out of range"
		}
		if text != edit.OldText {
			return nil, "existing text does not match expected content"
		}
	}
	if err := next.buf.ApplyEdits(current); err != nil {
		if errors.Is(err, source.ErrOverlap) {
			return nil, "edits of the fix overlap"
		}
		return nil, "edit span out of range"
	}
	for _, edit := range edits {
		next.applied = insertEditSorted(next.applied, edit)
	}
	return next, ""
}

// flush writes every touched file unless running dry and reports the changes
// sorted by path.
func (a *applier) flush() ([]FileChange, error) {
	changes := make([]FileChange, 0, len(a.order))
	for _, fileID := range a.order {
		st := a.files[fileID]
		file := a.fs.Get(fileID)
		if !a.dryRun {
			if err := WriteFile(file, st.buf.Bytes()); err != nil {
				return changes, err
			}
			a.log.Info("rewrote file", "path", file.Path, "edits", st.edits)
		}
		changes = append(changes, FileChange{
			Path:      file.FormatPath("relative", a.fs.BaseDir()),
			EditCount: st.edits,
			Before:    file.Text(),
			After:     st.buf.Text(),
		})
	}
	slices.SortStableFunc(changes, func(x, y FileChange) int { return cmp.Compare(x.Path, y.Path) })
	return changes, nil
}

// WriteFile stores content in the on-disk form of file, keeping its mode.
func WriteFile(file *source.File, content []byte) error {
	raw, err := file.Restore(content)
	if err != nil {
		return fmt.Errorf("write %s: %w", file.Path, err)
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(file.Path); err == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(file.Path, raw, mode); err != nil {
		return fmt.Errorf("write %s: %w", file.Path, err)
	}
	return nil
}

// dropRepeated removes edits identical to one already applied, such as
// the same \usepackage insertion offered by several diagnostics.
func dropRepeated(existing, edits []diag.TextEdit) []diag.TextEdit {
	out := edits[:0]
	for _, e := range edits {
		repeated := false
		for _, prev := range existing {
			if prev == e {
				repeated = true
				break
			}
		}
		if !repeated {
			out = append(out, e)
		}
	}
	return out
}

func conflictsWithExisting(existing []diag.TextEdit, edits []diag.TextEdit) bool {
	for _, prev := range existing {
		for _, cand := range edits {
			if spansConflict(prev, cand) {
				return true
			}
		}
	}
	return false
}

// spansConflict reports whether two text edits' spans overlap.
// Spans are treated as half-open intervals [Start, End). Two zero-length edits
// (Start == End) never conflict. A zero-length edit conflicts with a non-zero
// span if its position is within that span (Start <= pos < End). For two
// non-zero spans, any overlap yields a conflict.
func spansConflict(a, b diag.TextEdit) bool {
	aStart, aEnd := a.Span.Start, a.Span.End
	bStart, bEnd := b.Span.Start, b.Span.End

	if aStart == aEnd && bStart == bEnd {
		return false
	}
	if aStart == aEnd {
		return bStart <= aStart && aStart < bEnd
	}
	if bStart == bEnd {
		return aStart <= bStart && bStart < aEnd
	}
	return aStart < bEnd && bStart < aEnd
}

func groupEditsByFile(edits []diag.TextEdit) map[source.FileID][]diag.TextEdit {
	buckets := make(map[source.FileID][]diag.TextEdit)
	for _, edit := range edits {
		buckets[edit.Span.File] = append(buckets[edit.Span.File], edit)
	}
	return buckets
}

// cumulativeDelta sums the length changes of applied edits that end at or
// before pos. edits must be sorted by start.
func cumulativeDelta(edits []diag.TextEdit, pos int) int {
	delta := 0
	for _, e := range edits {
		eStart := int(e.Span.Start)
		if eStart > pos {
			break
		}
		eEnd := int(e.Span.End)
		length := eEnd - eStart
		change := len(e.NewText) - length
		if eEnd <= pos {
			delta += change
		}
	}
	return delta
}

func insertEditSorted(edits []diag.TextEdit, edit diag.TextEdit) []diag.TextEdit {
	idx, _ := slices.BinarySearchFunc(edits, edit, func(e, target diag.TextEdit) int {
		return cmp.Or(cmp.Compare(e.Span.Start, target.Span.Start), cmp.Compare(e.Span.End, target.Span.End))
	})
	return slices.Insert(edits, idx, edit)
}

func formatFilePath(fs *source.FileSet, fileID source.FileID) string {
	if fs == nil {
		return ""
	}
	file := fs.Get(fileID)
	if file == nil {
		return ""
	}
	return file.FormatPath("auto", fs.BaseDir())
}
