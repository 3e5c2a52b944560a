package common

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestHalfFloatKnownValues(t *testing.T) {
	cases := []struct {
		value float32
		bits  uint16
	}{
		{0, 0x0000},
		{1, 0x3c00},
		{0.5, 0x3800},
		{-2, 0xc000},
		{65504, 0x7bff},                     // largest finite half
		{float32(math.Pow(2, -24)), 0x0001}, // smallest subnormal half
	}

	for _, c := range cases {
		if got := Float16bits(c.value); got != c.bits {
			t.Errorf("Float16bits(%v) = %#04x, want %#04x", c.value, got, c.bits)
		}
		if got := Float16frombits(c.bits); got != c.value {
			t.Errorf("Float16frombits(%#04x) = %v, want %v", c.bits, got, c.value)
		}
	}
}

func TestHalfFloatOverflowBecomesInf(t *testing.T) {
	bits := Float16bits(1e6)
	if bits != 0x7c00 {
		t.Fatalf("Float16bits(1e6) = %#04x, want +Inf pattern 0x7c00", bits)
	}
	if v := Float16frombits(bits); !math.IsInf(float64(v), 1) {
		t.Fatalf("Float16frombits(0x7c00) = %v, want +Inf", v)
	}
}

func TestHalfFloatRoundTripsAcrossRange(t *testing.T) {
	// Every finite half value must survive bits -> float32 -> bits exactly.
	for bits := uint32(0); bits <= 0xffff; bits++ {
		b := uint16(bits)
		if b&0x7c00 == 0x7c00 && b&0x3ff != 0 {
			continue // NaN payloads are not preserved bit-exactly
		}
		f := Float16frombits(b)
		if got := Float16bits(f); got != b {
			t.Fatalf("round trip of %#04x via %v gave %#04x", b, f, got)
		}
	}
}

func TestHaltonBase2(t *testing.T) {
	want := []float32{0, 0.5, 0.25, 0.75, 0.125, 0.625, 0.375, 0.875}
	for i, w := range want {
		if got := Halton(2, uint32(i)); got != w {
			t.Errorf("Halton(2, %d) = %v, want %v", i, got, w)
		}
	}
}

func TestHaltonStaysInUnitInterval(t *testing.T) {
	for _, base := range []uint32{2, 3} {
		for i := uint32(0); i < 1000; i++ {
			v := Halton(base, i)
			if v < 0 || v >= 1 {
				t.Fatalf("Halton(%d, %d) = %v, want [0, 1)", base, i, v)
			}
		}
	}
}

func TestPerspectiveInfiniteReverseDepthRange(t *testing.T) {
	proj := PerspectiveInfiniteReverse(mgl32.DegToRad(60), 16.0/9.0, 0.1)

	// A point on the near plane projects to depth 1.
	nearClip := proj.Mul4x1(mgl32.Vec4{0, 0, -0.1, 1})
	if d := nearClip.Z() / nearClip.W(); math.Abs(float64(d-1)) > 1e-5 {
		t.Errorf("near plane depth = %v, want 1", d)
	}

	// A very distant point projects to depth approaching 0.
	farClip := proj.Mul4x1(mgl32.Vec4{0, 0, -1e7, 1})
	if d := farClip.Z() / farClip.W(); d < 0 || d > 1e-5 {
		t.Errorf("distant depth = %v, want ~0", d)
	}
}

func TestOrthographicZODepthRange(t *testing.T) {
	proj := OrthographicZO(-10, 10, -10, 10, 1, 100)

	near := proj.Mul4x1(mgl32.Vec4{0, 0, -1, 1})
	if d := near.Z() / near.W(); math.Abs(float64(d)) > 1e-6 {
		t.Errorf("near plane depth = %v, want 0", d)
	}

	far := proj.Mul4x1(mgl32.Vec4{0, 0, -100, 1})
	if d := far.Z() / far.W(); math.Abs(float64(d-1)) > 1e-6 {
		t.Errorf("far plane depth = %v, want 1", d)
	}

	corner := proj.Mul4x1(mgl32.Vec4{10, 10, -50, 1})
	if x := corner.X() / corner.W(); math.Abs(float64(x-1)) > 1e-6 {
		t.Errorf("right edge x = %v, want 1", x)
	}
}

func TestTransformAABBTranslation(t *testing.T) {
	min, max := TransformAABB([3]float32{-1, -1, -1}, [3]float32{1, 1, 1}, mgl32.Translate3D(5, 0, -3))
	wantMin := [3]float32{4, -1, -4}
	wantMax := [3]float32{6, 1, -2}
	if min != wantMin || max != wantMax {
		t.Errorf("translated box = (%v, %v), want (%v, %v)", min, max, wantMin, wantMax)
	}
}

func TestTransformAABBRotationGrowsBox(t *testing.T) {
	// A unit box rotated 45 degrees around Y must grow to sqrt(2) in X and Z.
	rot := mgl32.HomogRotate3DY(mgl32.DegToRad(45))
	min, max := TransformAABB([3]float32{-1, -1, -1}, [3]float32{1, 1, 1}, rot)

	want := float32(math.Sqrt2)
	for _, axis := range []int{0, 2} {
		if math.Abs(float64(max[axis]-want)) > 1e-5 || math.Abs(float64(min[axis]+want)) > 1e-5 {
			t.Errorf("axis %d extent = [%v, %v], want [-%v, %v]", axis, min[axis], max[axis], want, want)
		}
	}
	if min[1] != -1 || max[1] != 1 {
		t.Errorf("y extent changed under y rotation: [%v, %v]", min[1], max[1])
	}
}

func TestFrustumSphereCulling(t *testing.T) {
	proj := PerspectiveInfiniteReverse(mgl32.DegToRad(90), 1, 0.1)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	f := ExtractFrustum(proj.Mul4(view))

	if !f.IntersectsSphere([3]float32{0, 0, -5}, 1) {
		t.Error("sphere in front of the camera should be visible")
	}
	if f.IntersectsSphere([3]float32{0, 0, 5}, 1) {
		t.Error("sphere behind the camera should be culled")
	}
	if f.IntersectsSphere([3]float32{-100, 0, -5}, 1) {
		t.Error("sphere far off to the left should be culled")
	}
	// Far plane is infinite with a reversed projection.
	if !f.IntersectsSphere([3]float32{0, 0, -1e6}, 1) {
		t.Error("distant sphere should pass the infinite far plane")
	}
}

func TestFrustumAABBCulling(t *testing.T) {
	proj := PerspectiveInfiniteReverse(mgl32.DegToRad(90), 1, 0.1)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	f := ExtractFrustum(proj.Mul4(view))

	if !f.IntersectsAABB([3]float32{-1, -1, -6}, [3]float32{1, 1, -4}) {
		t.Error("box in front of the camera should be visible")
	}
	if f.IntersectsAABB([3]float32{-1, -1, 4}, [3]float32{1, 1, 6}) {
		t.Error("box behind the camera should be culled")
	}
	// A box straddling the left plane is partially visible.
	if !f.IntersectsAABB([3]float32{-10, -1, -6}, [3]float32{0, 1, -4}) {
		t.Error("box straddling the frustum edge should be visible")
	}
}

func TestSliceToBytes(t *testing.T) {
	data := []uint32{0x04030201, 0x08070605}
	b := SliceToBytes(data)
	if len(b) != 8 {
		t.Fatalf("len = %d, want 8", len(b))
	}
	for i := 0; i < 8; i++ {
		if b[i] != byte(i+1) {
			t.Errorf("byte %d = %#02x, want %#02x", i, b[i], i+1)
		}
	}
	if SliceToBytes([]uint32(nil)) != nil {
		t.Error("empty slice should convert to nil")
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce(0, 0, 7, 3); got != 7 {
		t.Errorf("Coalesce = %d, want 7", got)
	}
	if got := Coalesce(0, 0); got != 0 {
		t.Errorf("all-zero Coalesce = %d, want 0", got)
	}
	if got := Coalesce("", "linear"); got != "linear" {
		t.Errorf("Coalesce = %q, want %q", got, "linear")
	}
}

func TestAlignUp(t *testing.T) {
	cases := []struct{ value, alignment, want uint64 }{
		{0, 256, 0},
		{1, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{5120, 256, 5120},
	}
	for _, tc := range cases {
		if got := AlignUp(tc.value, tc.alignment); got != tc.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tc.value, tc.alignment, got, tc.want)
		}
	}
}
