package camera

import "github.com/Gaeric/hikari-go/engine/window"

// ControllerBuilderOption is a function that modifies controller settings
// during construction.
type ControllerBuilderOption func(*controller)

// WithMouseSensitivity sets the orbit rotation per pixel of mouse drag, in
// radians.
//
// Parameters:
//   - sensitivity: radians per pixel
//
// Returns:
//   - ControllerBuilderOption: the option
func WithMouseSensitivity(sensitivity float32) ControllerBuilderOption {
	return func(c *controller) {
		c.mouseSensitivity = sensitivity
	}
}

// WithZoomSpeed sets the camera travel per scroll step.
//
// Parameters:
//   - speed: world units per scroll step
//
// Returns:
//   - ControllerBuilderOption: the option
func WithZoomSpeed(speed float32) ControllerBuilderOption {
	return func(c *controller) {
		c.zoomSpeed = speed
	}
}

// WithPanSpeed sets the pan distance per pixel of mouse drag, as a fraction of
// the orbit radius.
//
// Parameters:
//   - speed: radius fraction per pixel
//
// Returns:
//   - ControllerBuilderOption: the option
func WithPanSpeed(speed float32) ControllerBuilderOption {
	return func(c *controller) {
		c.panSpeed = speed
	}
}

// WithOrbitButton sets the mouse button that rotates the camera while held.
//
// Parameters:
//   - button: the orbit button
//
// Returns:
//   - ControllerBuilderOption: the option
func WithOrbitButton(button window.MouseButton) ControllerBuilderOption {
	return func(c *controller) {
		c.orbitButton = button
	}
}

// WithPanButton sets the mouse button that pans the camera while held.
//
// Parameters:
//   - button: the pan button
//
// Returns:
//   - ControllerBuilderOption: the option
func WithPanButton(button window.MouseButton) ControllerBuilderOption {
	return func(c *controller) {
		c.panButton = button
	}
}
