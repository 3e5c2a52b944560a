package light

import (
	"math"
	"math/rand"
	"testing"
)

func almostEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestLuminanceWeights(t *testing.T) {
	if !almostEqual(Luminance([3]float32{1, 1, 1}), 1) {
		t.Errorf("Luminance(white) = %v, want 1", Luminance([3]float32{1, 1, 1}))
	}
	if Luminance([3]float32{0, 0, 0}) != 0 {
		t.Error("Luminance(black) != 0")
	}
	// Green dominates the perceptual weighting.
	if Luminance([3]float32{0, 1, 0}) <= Luminance([3]float32{1, 0, 0}) {
		t.Error("green should carry more luminance than red")
	}
}

func TestUpdateFirstCandidateAlwaysKept(t *testing.T) {
	var r Reservoir
	s := Sample{Radiance: [3]float32{1, 2, 3}}
	r.Update(s, 0.7, 0.999)
	if r.Sample.Radiance != s.Radiance {
		t.Error("first candidate with positive weight must be kept")
	}
	if r.Count != 1 || !almostEqual(r.WSum, 0.7) {
		t.Errorf("Count = %v, WSum = %v, want 1, 0.7", r.Count, r.WSum)
	}
}

func TestUpdateZeroWeightCandidateNeverKept(t *testing.T) {
	var r Reservoir
	kept := Sample{Radiance: [3]float32{1, 0, 0}}
	r.Update(kept, 1, 0)
	r.Update(Sample{Radiance: [3]float32{0, 1, 0}}, 0, 0)
	if r.Sample.Radiance != kept.Radiance {
		t.Error("zero-weight candidate replaced the kept sample")
	}
	if r.Count != 2 {
		t.Errorf("Count = %v, want 2 (zero-weight candidates still count)", r.Count)
	}
}

func TestMergeAgainstEmptyHistoryKeepsCandidate(t *testing.T) {
	var candidate Reservoir
	s := Sample{Radiance: [3]float32{2, 2, 2}}
	candidate.Update(s, 0.5, 0)

	var history Reservoir // zero value: fresh texture contents
	wsum, count := candidate.WSum, candidate.Count
	candidate.Merge(&history, Luminance(history.Sample.Radiance), 0.5)

	if candidate.Sample.Radiance != s.Radiance {
		t.Error("empty history replaced the candidate sample")
	}
	if !almostEqual(candidate.WSum, wsum) {
		t.Errorf("WSum changed from %v to %v on empty merge", wsum, candidate.WSum)
	}
	if candidate.Count != count {
		t.Errorf("Count changed from %v to %v on empty merge", count, candidate.Count)
	}
}

func TestMergeAccumulatesCounts(t *testing.T) {
	var a, b Reservoir
	a.Update(Sample{Radiance: [3]float32{1, 1, 1}}, 1, 0)
	for i := 0; i < 5; i++ {
		b.Update(Sample{Radiance: [3]float32{2, 2, 2}}, 1, 0)
	}
	b.Finalize(Luminance(b.Sample.Radiance))

	a.Merge(&b, Luminance(b.Sample.Radiance), 0)
	if a.Count != 6 {
		t.Errorf("merged Count = %v, want 6", a.Count)
	}
}

func TestClampHistoryPreservesExpectedContribution(t *testing.T) {
	r := Reservoir{Count: 100, WSum: 50}
	wPerCount := r.WSum / r.Count
	r.ClampHistory(20)
	if r.Count != 20 {
		t.Fatalf("Count = %v, want 20", r.Count)
	}
	if !almostEqual(r.WSum/r.Count, wPerCount) {
		t.Errorf("WSum/Count changed from %v to %v", wPerCount, r.WSum/r.Count)
	}

	// Below the cap nothing changes.
	r2 := Reservoir{Count: 5, WSum: 3}
	r2.ClampHistory(20)
	if r2.Count != 5 || r2.WSum != 3 {
		t.Error("clamp modified a reservoir under the cap")
	}
}

func TestFinalizeZeroTargetDensity(t *testing.T) {
	r := Reservoir{Count: 4, WSum: 2, W: 99}
	r.Finalize(0)
	if r.W != 0 {
		t.Errorf("W = %v after zero pHat finalize, want 0", r.W)
	}

	var empty Reservoir
	empty.Finalize(1)
	if empty.W != 0 {
		t.Errorf("W = %v for empty reservoir, want 0", empty.W)
	}
}

func TestFinalizeComputesUnbiasedWeight(t *testing.T) {
	r := Reservoir{
		Sample: Sample{Radiance: [3]float32{1, 1, 1}},
		Count:  8,
		WSum:   4,
	}
	r.Finalize(Luminance(r.Sample.Radiance))
	if !almostEqual(r.W, 4.0/8.0) {
		t.Errorf("W = %v, want 0.5", r.W)
	}
}

func TestTemporalMergeZeroHistoryIsIdentityUpToFinalize(t *testing.T) {
	var candidate Reservoir
	candidate.Update(Sample{Radiance: [3]float32{1, 1, 1}}, 0.8, 0)

	merged := TemporalMerge(candidate, Reservoir{}, 1, 0.3)

	if merged.Sample.Radiance != candidate.Sample.Radiance {
		t.Error("zero history changed the winning sample")
	}
	want := candidate.WSum / (candidate.Count * Luminance(candidate.Sample.Radiance))
	if !almostEqual(merged.W, want) {
		t.Errorf("merged W = %v, want %v", merged.W, want)
	}
}

func TestTemporalMergeClampsHistoryConfidence(t *testing.T) {
	var candidate Reservoir
	candidate.Update(Sample{Radiance: [3]float32{1, 1, 1}}, 1, 0)

	history := Reservoir{
		Sample: Sample{Radiance: [3]float32{1, 1, 1}},
		Count:  1000,
		WSum:   500,
		W:      0.5,
	}

	merged := TemporalMerge(candidate, history, 1, 0.5)
	wantCount := 1 + MaxHistoryFactor*1
	if merged.Count != wantCount {
		t.Errorf("merged Count = %v, want %v (history clamped)", merged.Count, wantCount)
	}
}

func TestTemporalMergeConvergesTowardTarget(t *testing.T) {
	// Stream frames of candidates whose weights follow the target function;
	// the reservoir's W must stay near 1/pHat of the kept sample, which keeps
	// the estimator unbiased. This mirrors how the shader accumulates frames.
	rng := rand.New(rand.NewSource(1))
	var history Reservoir
	const candidatesPerFrame = 4

	for f := 0; f < 200; f++ {
		var candidate Reservoir
		for c := 0; c < candidatesPerFrame; c++ {
			radiance := float32(0.5 + rng.Float64())
			s := Sample{Radiance: [3]float32{radiance, radiance, radiance}}
			candidate.Update(s, Luminance(s.Radiance), rng.Float32())
		}
		candidate.Finalize(Luminance(candidate.Sample.Radiance))
		history = TemporalMerge(candidate, history, candidatesPerFrame, rng.Float32())
	}

	if history.Count != (1+MaxHistoryFactor)*candidatesPerFrame {
		t.Errorf("steady-state Count = %v, want %v", history.Count, (1+MaxHistoryFactor)*candidatesPerFrame)
	}
	if history.W <= 0 {
		t.Fatalf("W = %v after convergence, want > 0", history.W)
	}
	// For pHat-proportional candidate weights, W approaches 1/pHat(kept) so
	// W * pHat should hover around 1.
	product := history.W * Luminance(history.Sample.Radiance)
	if product < 0.5 || product > 2 {
		t.Errorf("W * pHat = %v, want near 1", product)
	}
}
