package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"texify/internal/config"
	"texify/internal/diag"
	"texify/internal/inspect"
	"texify/internal/source"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func rulesOf(bag *diag.Bag) []string {
	var out []string
	for _, d := range bag.Items() {
		out = append(out, d.Rule)
	}
	return out
}

func hasRule(bag *diag.Bag, rule string) bool {
	for _, d := range bag.Items() {
		if d.Rule == rule {
			return true
		}
	}
	return false
}

func summarize(bag *diag.Bag) []string {
	var out []string
	for _, d := range bag.Items() {
		out = append(out, fmt.Sprintf("%s %s %s %s whole=%v", d.Rule, d.Severity, d.Primary, d.Message, d.WholeFile))
		for _, f := range d.Fixes {
			out = append(out, fmt.Sprintf("  fix %q %s %v", f.Title, f.Applicability, f.Groups))
			for _, e := range f.Edits {
				out = append(out, fmt.Sprintf("    %s %q %q", e.Span, e.OldText, e.NewText))
			}
		}
	}
	return out
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *recordingSink) count(status Status) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.File != "" && e.Status == status {
			n++
		}
	}
	return n
}

func TestInspectSource(t *testing.T) {
	fs := source.NewFileSet()
	res, err := InspectSource(context.Background(), fs, "doc.tex", []byte("Wait... here\n% skip... this\n"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Bag.Len() != 1 {
		t.Fatalf("expected 1 diagnostic, got %v", rulesOf(res.Bag))
	}
	d := res.Bag.Items()[0]
	if d.Rule != "ellipsis" || d.Primary.Start != 4 || d.Primary.End != 7 {
		t.Errorf("unexpected diagnostic %+v", d)
	}
	if !d.HasFix() {
		t.Error("expected a fix")
	}
	if res.Cached {
		t.Error("no cache configured, result must not be cached")
	}
}

func TestInspectSourceWholeBuffer(t *testing.T) {
	mode := inspect.WholeBuffer
	fs := source.NewFileSet()
	res, err := InspectSource(context.Background(), fs, "doc.tex", []byte("a... b... c...\n"), Options{Mode: &mode})
	if err != nil {
		t.Fatal(err)
	}
	if res.Bag.Len() != 1 {
		t.Fatalf("expected 1 diagnostic, got %v", rulesOf(res.Bag))
	}
	d := res.Bag.Items()[0]
	if !d.WholeFile {
		t.Error("expected a whole-file diagnostic")
	}
	if len(d.Fixes) != 1 || len(d.Fixes[0].Edits) != 3 {
		t.Errorf("expected one fix with 3 edits, got %+v", d.Fixes)
	}
}

func TestInspectRespectsConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Inspect.Disabled = []string{"ellipsis"}
	cfg.Inspect.Severity = map[string]string{"over": "error"}

	fs := source.NewFileSet()
	res, err := InspectSource(context.Background(), fs, "doc.tex", []byte("Wait... $ {a \\over b} $\n"), Options{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	if hasRule(res.Bag, "ellipsis") {
		t.Error("disabled rule reported")
	}
	if !hasRule(res.Bag, "over") {
		t.Fatalf("expected over diagnostic, got %v", rulesOf(res.Bag))
	}
	if !res.Bag.HasErrors() {
		t.Error("severity override not applied")
	}
}

func TestInspectMaxDiagnostics(t *testing.T) {
	fs := source.NewFileSet()
	res, err := InspectSource(context.Background(), fs, "doc.tex", []byte("a... b... c... d...\n"), Options{MaxDiagnostics: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.Bag.Len() != 2 {
		t.Errorf("expected bag capped at 2, got %d", res.Bag.Len())
	}
}

func TestInspectFileMissing(t *testing.T) {
	fs := source.NewFileSet()
	res, err := InspectFile(context.Background(), fs, filepath.Join(t.TempDir(), "absent.tex"), Options{})
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if res.Err == nil {
		t.Error("expected Result.Err to be set")
	}
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.tex", "")
	writeFile(t, dir, "chapters/intro.TEX", "")
	writeFile(t, dir, "style/thesis.sty", "")
	writeFile(t, dir, "style/thesis.cls", "")
	writeFile(t, dir, "refs.bib", "")
	writeFile(t, dir, "notes.txt", "")
	writeFile(t, dir, ".git/hidden.tex", "")

	files, err := ListFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "chapters/intro.TEX"),
		filepath.Join(dir, "main.tex"),
		filepath.Join(dir, "style/thesis.cls"),
		filepath.Join(dir, "style/thesis.sty"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("ListFiles = %v\nwant %v", files, want)
	}
}

func TestInspectDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.tex", "Wait... here\n")
	writeFile(t, dir, "b.tex", "Clean text.\n")
	writeFile(t, dir, "sub/c.sty", "\\def\\foo{bar}\n")

	sink := &recordingSink{}
	fs, results, err := InspectDir(context.Background(), dir, Options{Jobs: 2, Progress: sink})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if fs.Len() != 3 {
		t.Errorf("expected 3 files loaded, got %d", fs.Len())
	}

	if filepath.Base(results[0].Path) != "a.tex" || !hasRule(results[0].Bag, "ellipsis") {
		t.Errorf("a.tex: %s %v", results[0].Path, rulesOf(results[0].Bag))
	}
	if results[1].Bag.Len() != 0 {
		t.Errorf("b.tex should be clean, got %v", rulesOf(results[1].Bag))
	}
	// \def is allowed in package files
	if hasRule(results[2].Bag, "def") {
		t.Errorf("def reported in .sty file")
	}

	if got := sink.count(StatusDone); got != 3 {
		t.Errorf("expected 3 done events, got %d", got)
	}
	if got := sink.count(StatusQueued); got != 3 {
		t.Errorf("expected 3 queued events, got %d", got)
	}

	if n := len(Diagnostics(results)); n != 1 {
		t.Errorf("expected 1 diagnostic overall, got %d", n)
	}
}

func TestInspectDirLoadErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.tex", "Wait... here\n")

	cfg := config.Default()
	cfg.Inspect.Encoding = "no-such-encoding"

	sink := &recordingSink{}
	_, results, err := InspectDir(context.Background(), dir, Options{Config: cfg, Progress: sink})
	if err != nil {
		t.Fatalf("load errors must not abort the run: %v", err)
	}
	if len(results) != 1 || results[0].Err == nil {
		t.Fatalf("expected a load error, got %+v", results)
	}
	if sink.count(StatusError) != 1 {
		t.Error("expected an error event")
	}
}

func TestInspectDirCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.tex", "Wait... here\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := InspectDir(ctx, dir, Options{}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestInspectDirEmpty(t *testing.T) {
	fs, results, err := InspectDir(context.Background(), t.TempDir(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if fs == nil || len(results) != 0 {
		t.Errorf("expected empty run, got %d results", len(results))
	}
}

func TestInspectUsesCache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.tex", "Wait... here and e.g. there\n")
	cache, err := NewDiskCache(filepath.Join(dir, "cache"), nil)
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Cache: cache, Timings: true}

	first, err := InspectFile(context.Background(), source.NewFileSet(), path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached {
		t.Fatal("first run cannot be cached")
	}
	if first.Timer == nil {
		t.Error("expected a timer with Timings set")
	}

	second, err := InspectFile(context.Background(), source.NewFileSet(), path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached {
		t.Fatal("second run should be served from cache")
	}
	if a, b := summarize(first.Bag), summarize(second.Bag); !reflect.DeepEqual(a, b) {
		t.Errorf("cached diagnostics differ:\n%v\n%v", a, b)
	}

	// a different configuration must miss
	cfg := config.Default()
	cfg.Inspect.Disabled = []string{"abbreviation-space"}
	third, err := InspectFile(context.Background(), source.NewFileSet(), path, Options{Cache: cache, Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	if third.Cached {
		t.Error("config change must invalidate the cache")
	}
	if hasRule(third.Bag, "abbreviation-space") {
		t.Error("disabled rule served")
	}
}

func TestInspectCacheSeparatesExtensions(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "a.tex", "\\def\\foo{x}\n")
	pkg := writeFile(t, dir, "b.sty", "\\def\\foo{x}\n")
	cache, err := NewDiskCache(filepath.Join(dir, "cache"), nil)
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Cache: cache}

	warm, err := InspectFile(context.Background(), source.NewFileSet(), doc, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !hasRule(warm.Bag, "def") {
		t.Fatalf("expected def in a.tex, got %v", rulesOf(warm.Bag))
	}

	res, err := InspectFile(context.Background(), source.NewFileSet(), pkg, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Cached {
		t.Error("b.sty served from the a.tex entry")
	}
	if hasRule(res.Bag, "def") {
		t.Errorf("def reported in .sty file: %v", rulesOf(res.Bag))
	}
}

func TestInspectCacheDisabledByConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.tex", "Wait... here\n")
	cache, err := NewDiskCache(filepath.Join(dir, "cache"), nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Inspect.Cache = false

	for range 2 {
		res, err := InspectFile(context.Background(), source.NewFileSet(), path, Options{Cache: cache, Config: cfg})
		if err != nil {
			t.Fatal(err)
		}
		if res.Cached {
			t.Fatal("cache used although disabled")
		}
	}
}

func TestModeFromConfig(t *testing.T) {
	if ModeFromConfig(config.ModeWholeBuffer) != inspect.WholeBuffer {
		t.Error("whole-buffer not mapped")
	}
	if ModeFromConfig(config.ModePerMatch) != inspect.PerMatch || ModeFromConfig("") != inspect.PerMatch {
		t.Error("per-match not the default")
	}
}
