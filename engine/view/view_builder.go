package view

import "github.com/go-gl/mathgl/mgl32"

// ViewBuilderOption is a functional option for configuring a view.
type ViewBuilderOption func(*view)

// WithPosition sets the camera world position.
//
// Parameters:
//   - position: the camera position
//
// Returns:
//   - ViewBuilderOption: option function to apply
func WithPosition(position mgl32.Vec3) ViewBuilderOption {
	return func(v *view) {
		v.position = position
	}
}

// WithTarget sets the point the camera looks at.
//
// Parameters:
//   - target: the look-at target
//
// Returns:
//   - ViewBuilderOption: option function to apply
func WithTarget(target mgl32.Vec3) ViewBuilderOption {
	return func(v *view) {
		v.target = target
	}
}

// WithFovY sets the vertical field of view.
//
// Parameters:
//   - fovY: vertical field of view in radians
//
// Returns:
//   - ViewBuilderOption: option function to apply
func WithFovY(fovY float32) ViewBuilderOption {
	return func(v *view) {
		v.fovY = fovY
	}
}

// WithNear sets the near plane distance for the reversed-Z projection.
//
// Parameters:
//   - near: near plane distance in world units
//
// Returns:
//   - ViewBuilderOption: option function to apply
func WithNear(near float32) ViewBuilderOption {
	return func(v *view) {
		v.near = near
	}
}

// WithViewport sets the initial viewport dimensions.
//
// Parameters:
//   - width: viewport width in pixels
//   - height: viewport height in pixels
//
// Returns:
//   - ViewBuilderOption: option function to apply
func WithViewport(width, height int) ViewBuilderOption {
	return func(v *view) {
		if width > 0 && height > 0 {
			v.width = width
			v.height = height
		}
	}
}
