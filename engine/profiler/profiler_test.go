package profiler

import (
	"strings"
	"testing"
	"time"
)

func TestTickRespectsInterval(t *testing.T) {
	p := NewProfiler()
	if p.Tick() {
		t.Fatal("first tick within the interval should not log")
	}

	p.updateInterval = 0
	if !p.Tick() {
		t.Fatal("tick past the interval should log")
	}
	if p.frameCount != 0 {
		t.Fatalf("frame count not reset: %d", p.frameCount)
	}
}

func TestObserveAccumulatesAndResets(t *testing.T) {
	p := NewProfiler()
	p.updateInterval = 0

	p.Observe("graph", 2*time.Millisecond)
	p.Observe("graph", 4*time.Millisecond)
	p.Observe("extract", time.Millisecond)
	p.frameCount = 2 // two frames pending before the summary tick

	summary := p.phaseSummary()
	if !strings.Contains(summary, "extract: 500µs") {
		t.Fatalf("summary missing extract average: %q", summary)
	}
	if !strings.Contains(summary, "graph: 3ms") {
		t.Fatalf("summary missing graph average: %q", summary)
	}
	if strings.Index(summary, "extract") > strings.Index(summary, "graph") {
		t.Fatalf("phases not sorted by name: %q", summary)
	}

	p.Tick()
	if len(p.phaseTotals) != 0 {
		t.Fatalf("phase totals not cleared after summary: %v", p.phaseTotals)
	}
}

func TestPhaseSummaryEmptyWithoutObservations(t *testing.T) {
	p := NewProfiler()
	p.frameCount = 5
	if got := p.phaseSummary(); got != "" {
		t.Fatalf("expected empty summary, got %q", got)
	}
}
