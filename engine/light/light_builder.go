package light

import "github.com/go-gl/mathgl/mgl32"

// DirectionalLightBuilderOption is a functional option for configuring a
// directional light.
type DirectionalLightBuilderOption func(*directionalLight)

// WithDirection sets the direction the light travels (normalized on apply).
//
// Parameters:
//   - direction: the light direction
//
// Returns:
//   - DirectionalLightBuilderOption: option function to apply
func WithDirection(direction mgl32.Vec3) DirectionalLightBuilderOption {
	return func(l *directionalLight) {
		if direction.Len() > 0 {
			l.direction = direction.Normalize()
		}
	}
}

// WithColor sets the RGB color of the light.
//
// Parameters:
//   - color: the light color
//
// Returns:
//   - DirectionalLightBuilderOption: option function to apply
func WithColor(color mgl32.Vec3) DirectionalLightBuilderOption {
	return func(l *directionalLight) {
		l.color = color
	}
}

// WithIlluminance sets the scalar intensity multiplier.
//
// Parameters:
//   - illuminance: the intensity value
//
// Returns:
//   - DirectionalLightBuilderOption: option function to apply
func WithIlluminance(illuminance float32) DirectionalLightBuilderOption {
	return func(l *directionalLight) {
		l.illuminance = illuminance
	}
}

// WithShadowHalfExtent sets the orthographic half-extent of the shadow frustum.
//
// Parameters:
//   - halfExtent: half-extent in world units
//
// Returns:
//   - DirectionalLightBuilderOption: option function to apply
func WithShadowHalfExtent(halfExtent float32) DirectionalLightBuilderOption {
	return func(l *directionalLight) {
		l.shadowHalfExtent = halfExtent
	}
}

// WithShadowRange sets the near and far planes of the shadow projection.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - DirectionalLightBuilderOption: option function to apply
func WithShadowRange(near, far float32) DirectionalLightBuilderOption {
	return func(l *directionalLight) {
		l.shadowNear = near
		l.shadowFar = far
	}
}

// WithShadowBias sets the constant depth bias and the normal-offset bias scale
// used by shadow comparisons.
//
// Parameters:
//   - depthBias: constant depth bias
//   - normalBiasScale: normal-offset bias multiplier
//
// Returns:
//   - DirectionalLightBuilderOption: option function to apply
func WithShadowBias(depthBias, normalBiasScale float32) DirectionalLightBuilderOption {
	return func(l *directionalLight) {
		l.shadowBias = depthBias
		l.shadowNormalBiasScale = normalBiasScale
	}
}
