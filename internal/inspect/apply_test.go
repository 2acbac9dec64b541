package inspect

import (
	"errors"
	"testing"

	"texify/internal/diag"
	"texify/internal/source"
)

func TestApplyFixesDisplacement(t *testing.T) {
	buf := source.NewBuffer([]byte("ab cdefg"))
	err := ApplyFixes(buf, []Range{{0, 2}, {5, 6}}, []string{"X", "YZ"})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := buf.Text(), "X cdYZfg"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestApplyFixesGrowingEdits(t *testing.T) {
	buf := source.NewBuffer([]byte("a.b.c"))
	err := ApplyFixes(buf, []Range{{1, 2}, {3, 4}}, []string{"...", "---"})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := buf.Text(), "a...b---c"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestApplyFixesEmpty(t *testing.T) {
	buf := source.NewBuffer([]byte("same"))
	if err := ApplyFixes(buf, nil, nil); err != nil {
		t.Fatal(err)
	}
	if buf.Text() != "same" {
		t.Fatalf("buffer changed: %q", buf.Text())
	}
}

func TestApplyFixesLengthMismatchPanics(t *testing.T) {
	buf := source.NewBuffer([]byte("abc"))
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
		if buf.Text() != "abc" {
			t.Fatalf("buffer modified before panic: %q", buf.Text())
		}
	}()
	_ = ApplyFixes(buf, []Range{{0, 1}, {1, 2}}, []string{"x"})
}

func TestApplyFixesRejectsBadRanges(t *testing.T) {
	tests := []struct {
		name   string
		ranges []Range
		want   error
	}{
		{"overlap", []Range{{0, 3}, {2, 4}}, ErrOverlap},
		{"descending", []Range{{4, 5}, {0, 1}}, ErrOverlap},
		{"out of bounds", []Range{{0, 1}, {5, 9}}, source.ErrRange},
		{"inverted", []Range{{3, 1}}, source.ErrRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := source.NewBuffer([]byte("abcdef"))
			repl := make([]string, len(tt.ranges))
			err := ApplyFixes(buf, tt.ranges, repl)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if buf.Text() != "abcdef" {
				t.Fatalf("buffer partially modified: %q", buf.Text())
			}
		})
	}
}

func TestApplyFixSortsEdits(t *testing.T) {
	buf := source.NewBuffer([]byte("ab cdefg"))
	fix := diag.Fix{
		Title: "unsorted",
		Edits: []diag.TextEdit{
			{Span: source.Span{Start: 5, End: 6}, NewText: "YZ", OldText: "e"},
			{Span: source.Span{Start: 0, End: 2}, NewText: "X", OldText: "ab"},
		},
	}
	if err := ApplyFix(buf, fix); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.Text(), "X cdYZfg"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestApplyFixStaleGuard(t *testing.T) {
	buf := source.NewBuffer([]byte("hello world"))
	fix := diag.Fix{
		Title: "stale",
		Edits: []diag.TextEdit{
			{Span: source.Span{Start: 0, End: 5}, NewText: "HELLO", OldText: "hello"},
			{Span: source.Span{Start: 6, End: 11}, NewText: "there", OldText: "earth"},
		},
	}
	if err := ApplyFix(buf, fix); !errors.Is(err, ErrStale) {
		t.Fatalf("err = %v, want ErrStale", err)
	}
	if buf.Text() != "hello world" {
		t.Fatalf("buffer modified: %q", buf.Text())
	}
}
