package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	tm.Add("parse", 2*time.Millisecond, "")
	tm.Add("inspect", 3*time.Millisecond, "10 rules")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(r.Phases))
	}
	if r.TotalMS != 5 {
		t.Errorf("TotalMS = %v, want 5", r.TotalMS)
	}
	if r.Phases[1].Note != "10 rules" {
		t.Errorf("note = %q", r.Phases[1].Note)
	}
}

func TestTimerBeginEnd(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("parse")
	tm.End(idx, "done")
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 1 || r.Phases[0].Note != "done" {
		t.Fatalf("unexpected report %+v", r)
	}
	if r.Phases[0].DurationMS < 0 {
		t.Errorf("negative duration %v", r.Phases[0].DurationMS)
	}
}

func TestTimerMerge(t *testing.T) {
	total := NewTimer()
	a := NewTimer()
	a.Add("parse", time.Millisecond, "")
	a.Add("inspect", 2*time.Millisecond, "")
	b := NewTimer()
	b.Add("parse", 3*time.Millisecond, "")
	b.Add("cache", time.Millisecond, "")

	total.Merge(a)
	total.Merge(b)
	total.Merge(nil)

	r := total.Report()
	got := make([]string, 0, len(r.Phases))
	for _, p := range r.Phases {
		got = append(got, p.Name)
	}
	if strings.Join(got, ",") != "parse,inspect,cache" {
		t.Errorf("phase order = %v", got)
	}
	if r.Phases[0].DurationMS != 4 {
		t.Errorf("parse = %v ms, want 4", r.Phases[0].DurationMS)
	}
	if r.TotalMS != 7 {
		t.Errorf("total = %v ms, want 7", r.TotalMS)
	}
}

func TestSummary(t *testing.T) {
	tm := NewTimer()
	tm.Add("inspect", time.Millisecond, "cached")
	s := tm.Summary()
	if !strings.HasPrefix(s, "timings:\n") || !strings.Contains(s, "(cached)") || !strings.Contains(s, "total") {
		t.Errorf("unexpected summary:\n%s", s)
	}
}
