package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

func TestSetDirectionNormalizes(t *testing.T) {
	l := NewDirectionalLight()

	l.SetDirection(mgl32.Vec3{0, -10, 0})
	if got := l.Direction(); got != (mgl32.Vec3{0, -1, 0}) {
		t.Fatalf("Direction = %v, want (0,-1,0)", got)
	}

	// A zero vector would produce NaNs; it must be ignored.
	l.SetDirection(mgl32.Vec3{})
	if got := l.Direction(); got != (mgl32.Vec3{0, -1, 0}) {
		t.Fatalf("zero direction overwrote the previous one: %v", got)
	}
}

func TestShadowViewProjectionCentersFocus(t *testing.T) {
	l := NewDirectionalLight(WithDirection(mgl32.Vec3{-1, -2, -0.5}))
	focus := mgl32.Vec3{3, 0.5, -2}

	clip := l.ShadowViewProjection(focus).Mul4x1(focus.Vec4(1))

	// The focus point projects onto the frustum center axis.
	if math.Abs(float64(clip.X())) > 1e-4 || math.Abs(float64(clip.Y())) > 1e-4 {
		t.Fatalf("focus off center: clip = %v", clip)
	}
	if clip.Z() < 0 || clip.Z() > 1 {
		t.Fatalf("focus outside depth range: z = %v", clip.Z())
	}
}

func TestShadowViewProjectionDepthOrder(t *testing.T) {
	l := NewDirectionalLight(WithDirection(mgl32.Vec3{0, -1, -1}))
	focus := mgl32.Vec3{0, 0, 0}
	vp := l.ShadowViewProjection(focus)

	toLight := l.Direction().Mul(-1)
	near := vp.Mul4x1(focus.Add(toLight.Mul(2)).Vec4(1))
	far := vp.Mul4x1(focus.Sub(toLight.Mul(2)).Vec4(1))

	// Orthographic zero-to-one depth: closer to the light means smaller z.
	if near.Z() >= far.Z() {
		t.Fatalf("depth order inverted: near %v, far %v", near.Z(), far.Z())
	}
}

func TestShadowViewProjectionVerticalLight(t *testing.T) {
	l := NewDirectionalLight(WithDirection(mgl32.Vec3{0, -1, 0}))

	vp := l.ShadowViewProjection(mgl32.Vec3{1, 0, 1})
	for i := 0; i < 16; i++ {
		if math.IsNaN(float64(vp[i])) {
			t.Fatalf("straight-down light produced NaN matrix: %v", vp)
		}
	}
}

func TestUniformPremultipliesIlluminance(t *testing.T) {
	l := NewDirectionalLight(
		WithDirection(mgl32.Vec3{0, -1, 0}),
		WithColor(mgl32.Vec3{1, 0.5, 0.25}),
		WithIlluminance(4),
	)

	u := l.Uniform(mgl32.Vec3{})

	if u.Color != (mgl32.Vec4{4, 2, 1, 1}) {
		t.Fatalf("Color = %v, want (4,2,1,1)", u.Color)
	}
	if u.DirectionToLight != (mgl32.Vec3{0, 1, 0}) {
		t.Fatalf("DirectionToLight = %v, want (0,1,0)", u.DirectionToLight)
	}
}

func TestGpuDirectionalLightMarshalLayout(t *testing.T) {
	g := GpuDirectionalLight{
		ViewProjection:   mgl32.Ident4(),
		Color:            mgl32.Vec4{1, 2, 3, 1},
		DirectionToLight: mgl32.Vec3{0, 1, 0},
		ShadowDepthBias:  0.005,
		ShadowNormalBias: 0.6,
	}

	data := g.Marshal()
	if len(data) != g.Size() {
		t.Fatalf("marshal produced %d bytes, want %d", len(data), g.Size())
	}

	readF32 := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
	}
	if readF32(0) != 1 || readF32(4) != 0 {
		t.Fatal("matrix not at offset 0")
	}
	if readF32(64) != 1 || readF32(68) != 2 || readF32(72) != 3 {
		t.Fatal("color not at offset 64")
	}
	if readF32(84) != 1 {
		t.Fatal("direction not at offset 80")
	}
	if readF32(92) != 0.005 || readF32(96) != 0.6 {
		t.Fatal("shadow biases not at offsets 92 and 96")
	}
}

func TestReservoirTargetsUsageAndLabels(t *testing.T) {
	targets := ReservoirTargets(0, 1280, 720)
	if len(targets) != 7 {
		t.Fatalf("got %d targets, want 7", len(targets))
	}

	seen := map[string]bool{}
	for _, desc := range targets {
		if seen[desc.Label] {
			t.Errorf("duplicate label %q", desc.Label)
		}
		seen[desc.Label] = true
		if desc.Width != 1280 || desc.Height != 720 {
			t.Errorf("%s: size %dx%d, want 1280x720", desc.Label, desc.Width, desc.Height)
		}
		if desc.Usage&wgpu.TextureUsageStorageBinding == 0 || desc.Usage&wgpu.TextureUsageTextureBinding == 0 {
			t.Errorf("%s: usage %v lacks storage or texture binding", desc.Label, desc.Usage)
		}
	}

	// The capture path copies the radiance texture into a readback buffer.
	for _, index := range []int{0, 1} {
		for _, desc := range ReservoirTargets(index, 16, 16) {
			wantCopy := desc.Label == RadianceLabel(index)
			hasCopy := desc.Usage&wgpu.TextureUsageCopySrc != 0
			if hasCopy != wantCopy {
				t.Errorf("%s: copy-src usage = %v, want %v", desc.Label, hasCopy, wantCopy)
			}
		}
	}
}

func TestReservoirTargetsDistinctAcrossSets(t *testing.T) {
	seen := map[string]bool{}
	for _, index := range []int{0, 1} {
		for _, desc := range ReservoirTargets(index, 8, 8) {
			if seen[desc.Label] {
				t.Fatalf("label %q shared between ping-pong sets", desc.Label)
			}
			seen[desc.Label] = true
		}
	}
}
