package light

import (
	"github.com/Gaeric/hikari-go/common"
	"github.com/go-gl/mathgl/mgl32"
)

// directionalLight is the implementation of the DirectionalLight interface.
type directionalLight struct {
	direction   mgl32.Vec3
	color       mgl32.Vec3
	illuminance float32

	shadowHalfExtent      float32
	shadowNear            float32
	shadowFar             float32
	shadowBias            float32
	shadowNormalBiasScale float32
}

// DirectionalLight is the single distant light the lighting pass samples. It
// owns the orthographic shadow projection used for the depth-only shadow pass
// whose map provides the visibility term of candidate samples.
type DirectionalLight interface {
	// Direction returns the normalized direction the light travels.
	//
	// Returns:
	//   - mgl32.Vec3: the light direction
	Direction() mgl32.Vec3

	// SetDirection sets the direction the light travels and normalizes it.
	//
	// Parameters:
	//   - direction: the new light direction
	SetDirection(direction mgl32.Vec3)

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - mgl32.Vec3: the color
	Color() mgl32.Vec3

	// SetColor sets the RGB color of the light.
	//
	// Parameters:
	//   - color: the new color
	SetColor(color mgl32.Vec3)

	// Illuminance returns the scalar intensity multiplier.
	//
	// Returns:
	//   - float32: the illuminance
	Illuminance() float32

	// SetIlluminance sets the scalar intensity multiplier.
	//
	// Parameters:
	//   - illuminance: the new illuminance
	SetIlluminance(illuminance float32)

	// ShadowViewProjection returns the orthographic view-projection matrix for
	// the shadow pass, centered on the given focus point.
	//
	// Parameters:
	//   - focus: the world-space point the shadow frustum centers on
	//
	// Returns:
	//   - mgl32.Mat4: the shadow view-projection matrix
	ShadowViewProjection(focus mgl32.Vec3) mgl32.Mat4

	// Uniform builds the GPU light uniform for the given shadow focus point.
	//
	// Parameters:
	//   - focus: the world-space point the shadow frustum centers on
	//
	// Returns:
	//   - GpuDirectionalLight: the light uniform
	Uniform(focus mgl32.Vec3) GpuDirectionalLight
}

var _ DirectionalLight = &directionalLight{}

// NewDirectionalLight creates a DirectionalLight with the specified options
// applied over defaults (white light angled down the -Y/-Z diagonal).
//
// Parameters:
//   - options: functional options to configure the light
//
// Returns:
//   - DirectionalLight: the configured light
func NewDirectionalLight(options ...DirectionalLightBuilderOption) DirectionalLight {
	l := &directionalLight{
		direction:             mgl32.Vec3{-1, -1, -1}.Normalize(),
		color:                 mgl32.Vec3{1, 1, 1},
		illuminance:           1,
		shadowHalfExtent:      DefaultShadowHalfExtent,
		shadowNear:            DefaultShadowNear,
		shadowFar:             DefaultShadowFar,
		shadowBias:            DefaultShadowBias,
		shadowNormalBiasScale: DefaultShadowNormalBiasScale,
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *directionalLight) Direction() mgl32.Vec3 {
	return l.direction
}

func (l *directionalLight) SetDirection(direction mgl32.Vec3) {
	if direction.Len() > 0 {
		l.direction = direction.Normalize()
	}
}

func (l *directionalLight) Color() mgl32.Vec3 {
	return l.color
}

func (l *directionalLight) SetColor(color mgl32.Vec3) {
	l.color = color
}

func (l *directionalLight) Illuminance() float32 {
	return l.illuminance
}

func (l *directionalLight) SetIlluminance(illuminance float32) {
	l.illuminance = illuminance
}

func (l *directionalLight) ShadowViewProjection(focus mgl32.Vec3) mgl32.Mat4 {
	// Place the shadow camera behind the focus point along the light direction,
	// halfway through the depth range so geometry on both sides is captured.
	distance := (l.shadowNear + l.shadowFar) * 0.5
	eye := focus.Sub(l.direction.Mul(distance))

	up := mgl32.Vec3{0, 1, 0}
	// Degenerate when the light is parallel to +Y.
	if abs32(l.direction.Dot(up)) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
	}

	view := mgl32.LookAtV(eye, focus, up)
	proj := common.OrthographicZO(
		-l.shadowHalfExtent, l.shadowHalfExtent,
		-l.shadowHalfExtent, l.shadowHalfExtent,
		l.shadowNear, l.shadowFar,
	)
	return proj.Mul4(view)
}

func (l *directionalLight) Uniform(focus mgl32.Vec3) GpuDirectionalLight {
	return GpuDirectionalLight{
		ViewProjection:   l.ShadowViewProjection(focus),
		Color:            mgl32.Vec4{l.color.X() * l.illuminance, l.color.Y() * l.illuminance, l.color.Z() * l.illuminance, 1},
		DirectionToLight: l.direction.Mul(-1),
		ShadowDepthBias:  l.shadowBias,
		ShadowNormalBias: l.shadowNormalBiasScale,
	}
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
