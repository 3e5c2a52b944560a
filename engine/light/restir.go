package light

// CPU reference for the reservoir resampling math the lighting shader runs
// per pixel. The WGSL implementation in assets/shaders/light.wgsl mirrors
// these functions one to one; behavioral changes must land in both.

// MaxHistoryFactor caps the history reservoir's confidence at this multiple
// of the per-frame candidate count. Lower values converge slower but drop
// stale samples faster after lighting or geometry changes.
const MaxHistoryFactor float32 = 4.0

// MaxReprojectionDistance is the world-space distance within which a
// reprojected previous-frame surface point is accepted as the same surface.
const MaxReprojectionDistance float32 = 0.1

// MinReprojectionNormalDot is the minimum dot product between current and
// reprojected normals for history to be accepted.
const MinReprojectionNormalDot float32 = 0.9

// Sample is one candidate light sample: its radiance estimate, the random
// numbers that produced it, and the surface/light points it connects.
type Sample struct {
	Radiance        [3]float32
	Random          [4]float32
	VisiblePosition [3]float32
	VisibleNormal   [3]float32
	SamplePosition  [3]float32
	SampleNormal    [3]float32
}

// Reservoir is a weighted streaming reservoir over light samples.
//
// Count is the number of candidates the reservoir has absorbed (M), WSum the
// running sum of candidate weights, and W the unbiased contribution weight
// recomputed by Finalize. A zero-valued Reservoir is the valid "no sample
// yet" state.
type Reservoir struct {
	Sample Sample
	Count  float32
	WSum   float32
	W      float32
}

// Luminance returns the perceptual luminance of an RGB radiance value, used
// as the resampling target function p-hat.
//
// Parameters:
//   - rgb: linear RGB radiance
//
// Returns:
//   - float32: the luminance
func Luminance(rgb [3]float32) float32 {
	return 0.2126*rgb[0] + 0.7152*rgb[1] + 0.0722*rgb[2]
}

// Update streams one candidate into the reservoir with the given resampling
// weight. The candidate replaces the kept sample with probability w / WSum.
//
// Parameters:
//   - s: the candidate sample
//   - w: the candidate's resampling weight (>= 0)
//   - rand: a uniform random number in [0, 1)
func (r *Reservoir) Update(s Sample, w float32, rand float32) {
	r.WSum += w
	r.Count += 1
	if r.WSum > 0 && rand < w/r.WSum {
		r.Sample = s
	}
}

// Merge folds another reservoir into this one. The other reservoir's sample
// enters with weight pHat * other.W * other.Count, and the merged Count is
// the sum of both counts.
//
// Merging a zero-weight reservoir (W == 0, Count == 0) leaves WSum and Count
// unchanged, so a candidate merged against empty history keeps its weight
// exactly.
//
// Parameters:
//   - other: the reservoir to merge in
//   - pHat: the target density of other's sample at this pixel
//   - rand: a uniform random number in [0, 1)
func (r *Reservoir) Merge(other *Reservoir, pHat float32, rand float32) {
	count := r.Count
	r.Update(other.Sample, pHat*other.W*other.Count, rand)
	r.Count = count + other.Count
}

// ClampHistory caps the reservoir's confidence at maxCount, scaling WSum down
// proportionally so the kept sample's expected contribution is unchanged.
//
// Parameters:
//   - maxCount: the maximum allowed Count
func (r *Reservoir) ClampHistory(maxCount float32) {
	if r.Count > maxCount {
		r.WSum *= maxCount / r.Count
		r.Count = maxCount
	}
}

// Finalize recomputes the unbiased contribution weight W from the current
// WSum and Count. A zero target density or empty reservoir yields W = 0.
//
// Parameters:
//   - pHat: the target density of the kept sample at this pixel
func (r *Reservoir) Finalize(pHat float32) {
	denom := r.Count * pHat
	if denom > 0 {
		r.W = r.WSum / denom
	} else {
		r.W = 0
	}
}

// TemporalMerge runs the full per-pixel temporal resampling step: the history
// reservoir is confidence-clamped to MaxHistoryFactor times the candidate
// count, merged into the candidate reservoir, and the result finalized
// against the winning sample's luminance.
//
// Parameters:
//   - candidate: the reservoir holding this frame's candidates
//   - history: the reprojected previous-frame reservoir (zero value if
//     reprojection failed or a resize dropped history)
//   - candidateCount: how many candidates this frame streamed per pixel
//   - rand: a uniform random number in [0, 1)
//
// Returns:
//   - Reservoir: the merged, finalized reservoir to write this frame
func TemporalMerge(candidate, history Reservoir, candidateCount float32, rand float32) Reservoir {
	history.ClampHistory(MaxHistoryFactor * candidateCount)

	merged := candidate
	merged.Merge(&history, Luminance(history.Sample.Radiance), rand)
	merged.Finalize(Luminance(merged.Sample.Radiance))
	return merged
}
