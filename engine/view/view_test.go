package view

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func vecAlmostEqual(a, b mgl32.Vec3, eps float32) bool {
	return a.Sub(b).Len() <= eps
}

func TestOrbitPreservesRadius(t *testing.T) {
	v := NewView(
		WithPosition(mgl32.Vec3{0, 0, 5}),
		WithTarget(mgl32.Vec3{0, 0, 0}),
	)

	v.Orbit(0.7, 0.3)

	radius := v.Position().Sub(v.Target()).Len()
	if diff := float64(radius - 5); math.Abs(diff) > 1e-4 {
		t.Fatalf("orbit changed radius: got %v, want 5", radius)
	}
}

func TestOrbitFullYawReturnsToStart(t *testing.T) {
	start := mgl32.Vec3{3, 1, 4}
	v := NewView(WithPosition(start), WithTarget(mgl32.Vec3{0, 0, 0}))

	for i := 0; i < 4; i++ {
		v.Orbit(float32(math.Pi/2), 0)
	}

	if !vecAlmostEqual(v.Position(), start, 1e-3) {
		t.Fatalf("full yaw rotation ended at %v, want %v", v.Position(), start)
	}
}

func TestOrbitClampsPitchAtPoles(t *testing.T) {
	v := NewView(
		WithPosition(mgl32.Vec3{0, 0, 5}),
		WithTarget(mgl32.Vec3{0, 0, 0}),
	)

	// A huge pitch sweep must stop short of the pole.
	v.Orbit(0, 100)

	offset := v.Position().Sub(v.Target())
	pitch := math.Asin(float64(offset.Y() / offset.Len()))
	if pitch > 1.55+1e-4 {
		t.Fatalf("pitch %v exceeds clamp", pitch)
	}
	// The view basis must still be well defined: looking along up would
	// make LookAtV degenerate.
	forward := v.Target().Sub(v.Position()).Normalize()
	if math.Abs(float64(forward.Dot(mgl32.Vec3{0, 1, 0}))) > 0.9999 {
		t.Fatal("camera pitched onto the up axis")
	}
}

func TestZoomNeverCrossesTarget(t *testing.T) {
	v := NewView(
		WithPosition(mgl32.Vec3{0, 0, 2}),
		WithTarget(mgl32.Vec3{0, 0, 0}),
	)

	v.Zoom(100)

	offset := v.Position().Sub(v.Target())
	if offset.Len() < 0.1-1e-5 {
		t.Fatalf("zoom moved camera inside minimum radius: %v", offset.Len())
	}
	// Still on the same side of the target.
	if offset.Z() <= 0 {
		t.Fatalf("zoom crossed the target: offset %v", offset)
	}
}

func TestZoomMovesAlongViewDirection(t *testing.T) {
	v := NewView(
		WithPosition(mgl32.Vec3{0, 0, 5}),
		WithTarget(mgl32.Vec3{0, 0, 0}),
	)

	v.Zoom(2)
	if !vecAlmostEqual(v.Position(), mgl32.Vec3{0, 0, 3}, 1e-5) {
		t.Fatalf("zoom in: got %v, want (0,0,3)", v.Position())
	}

	v.Zoom(-1)
	if !vecAlmostEqual(v.Position(), mgl32.Vec3{0, 0, 4}, 1e-5) {
		t.Fatalf("zoom out: got %v, want (0,0,4)", v.Position())
	}
}

func TestGpuPreviousViewFallsBackBeforeAdvance(t *testing.T) {
	v := NewView()

	prev := v.GpuPreviousView()
	cur := v.GpuView()

	if prev.ViewProj != cur.ViewProj {
		t.Fatal("previous view should equal current view before the first Advance")
	}
}

func TestAdvanceSnapshotsMatrices(t *testing.T) {
	v := NewView(
		WithPosition(mgl32.Vec3{0, 0, 5}),
		WithTarget(mgl32.Vec3{0, 0, 0}),
	)

	snapshot := v.ProjectionMatrix().Mul4(v.ViewMatrix())
	v.Advance()
	v.SetPosition(mgl32.Vec3{4, 2, 1})

	prev := v.GpuPreviousView()
	if prev.ViewProj != snapshot {
		t.Fatal("previous view-projection does not match the Advance snapshot")
	}
	if prev.ViewProj == v.GpuView().ViewProj {
		t.Fatal("previous view-projection should differ after moving the camera")
	}
}

func TestGpuViewMarshalLayout(t *testing.T) {
	v := NewView(WithPosition(mgl32.Vec3{1, 2, 3}))
	g := v.GpuView()

	data := g.Marshal()
	if len(data) != g.Size() {
		t.Fatalf("marshal produced %d bytes, want %d", len(data), g.Size())
	}
	if g.Size() != 416 {
		t.Fatalf("Size = %d, want 416", g.Size())
	}

	// World position sits right after the six matrices.
	off := 6 * 64
	got := mgl32.Vec3{
		math.Float32frombits(leU32(data[off : off+4])),
		math.Float32frombits(leU32(data[off+4 : off+8])),
		math.Float32frombits(leU32(data[off+8 : off+12])),
	}
	if got != (mgl32.Vec3{1, 2, 3}) {
		t.Fatalf("world position in buffer = %v", got)
	}
}

func TestResizeIgnoresDegenerateDimensions(t *testing.T) {
	v := NewView()
	before := v.ProjectionMatrix()

	v.Resize(0, 720)
	v.Resize(640, -1)

	if v.ProjectionMatrix() != before {
		t.Fatal("degenerate resize changed the projection")
	}

	v.Resize(640, 480)
	if v.ProjectionMatrix() == before {
		t.Fatal("valid resize did not change the projection")
	}
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
