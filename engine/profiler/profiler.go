// Package profiler tracks frame rate, per-phase CPU timings, and memory
// statistics for the render loop. The GPU side is intentionally not measured
// here; wgpu timestamp queries are a separate concern.
package profiler

import (
	"log"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Profiler accumulates frame timing and phase durations, logging a summary at
// a fixed interval. All methods must be called from the render goroutine.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	phaseTotals map[string]time.Duration
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		phaseTotals:    map[string]time.Duration{},
	}
}

// Observe records the CPU time spent in a named phase of the current frame
// (scene extraction, graph execution, present). Durations accumulate until
// the next summary log, which reports the per-frame average of each phase.
//
// Parameters:
//   - phase: the phase name
//   - d: the duration spent in the phase this frame
func (p *Profiler) Observe(phase string, d time.Duration) {
	p.phaseTotals[phase] += d
}

// Tick should be called once per frame after all Observe calls. Logs a
// summary when the update interval has elapsed: FPS, per-phase averages,
// heap usage, allocation rate, and GC pause statistics.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	// Alloc: Bytes of allocated heap objects (live memory)
	// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
	// Sys: Total bytes of memory obtained from the OS (actual process footprint)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// GC pause stats (last pause and max pause since the previous summary)
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	log.Printf("[profiler] FPS: %.2f |%s Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		fps, p.phaseSummary(), allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	for phase := range p.phaseTotals {
		delete(p.phaseTotals, phase)
	}
	return true
}

// phaseSummary formats the per-frame average of each observed phase, sorted
// by name so the log layout is stable across summaries.
func (p *Profiler) phaseSummary() string {
	if len(p.phaseTotals) == 0 || p.frameCount == 0 {
		return ""
	}
	names := make([]string, 0, len(p.phaseTotals))
	for name := range p.phaseTotals {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		avg := p.phaseTotals[name] / time.Duration(p.frameCount)
		b.WriteString(" ")
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(avg.Round(time.Microsecond).String())
		b.WriteString(" |")
	}
	return b.String()
}
