// Package camera provides input-driven camera control on top of the view
// package. Controllers buffer raw window input and apply it to a view once per
// frame, so input callbacks on the platform thread never race the render loop.
package camera

import (
	"sync"

	"github.com/Gaeric/hikari-go/engine/view"
	"github.com/Gaeric/hikari-go/engine/window"
	"github.com/go-gl/mathgl/mgl32"
)

// controller is the implementation of the Controller interface.
type controller struct {
	mu sync.Mutex

	mouseSensitivity float32
	zoomSpeed        float32
	panSpeed         float32
	orbitButton      window.MouseButton
	panButton        window.MouseButton

	orbiting bool
	panning  bool
	lastX    float64
	lastY    float64

	pendingYaw   float32
	pendingPitch float32
	pendingZoom  float32
	pendingPanX  float32
	pendingPanY  float32
}

// Controller turns window input into orbit camera movement: drag the orbit
// button to rotate around the target, drag the pan button to translate the
// target in the view plane, scroll to zoom.
//
// Input callbacks accumulate deltas; Apply consumes them. Call Apply from the
// goroutine that owns the view, once per frame.
type Controller interface {
	// Attach registers the controller's input callbacks on a window. Any
	// callbacks previously registered for the same events are replaced.
	//
	// Parameters:
	//   - win: the window to receive input from
	Attach(win window.Window)

	// Apply drains the accumulated input deltas into the view. Safe to call
	// every frame; it is a no-op when no input arrived since the last call.
	//
	// Parameters:
	//   - v: the view to move
	Apply(v view.View)
}

var _ Controller = &controller{}

// NewController creates a Controller with the specified options applied over
// defaults (left button orbits, right button pans).
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - Controller: the configured controller
func NewController(options ...ControllerBuilderOption) Controller {
	c := &controller{
		mouseSensitivity: 0.005,
		zoomSpeed:        0.5,
		panSpeed:         0.002,
		orbitButton:      window.MouseButtonLeft,
		panButton:        window.MouseButtonRight,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *controller) Attach(win window.Window) {
	win.SetMouseButtonCallback(func(button window.MouseButton, pressed bool, x, y float64) {
		c.mu.Lock()
		defer c.mu.Unlock()
		switch button {
		case c.orbitButton:
			c.orbiting = pressed
		case c.panButton:
			c.panning = pressed
		}
		c.lastX, c.lastY = x, y
	})

	win.SetMouseMoveCallback(func(x, y float64) {
		c.mu.Lock()
		defer c.mu.Unlock()
		dx := float32(x - c.lastX)
		dy := float32(y - c.lastY)
		c.lastX, c.lastY = x, y

		if c.orbiting {
			c.pendingYaw -= dx * c.mouseSensitivity
			c.pendingPitch -= dy * c.mouseSensitivity
		}
		if c.panning {
			c.pendingPanX -= dx * c.panSpeed
			c.pendingPanY += dy * c.panSpeed
		}
	})

	win.SetScrollCallback(func(delta float32) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.pendingZoom += delta * c.zoomSpeed
	})
}

func (c *controller) Apply(v view.View) {
	c.mu.Lock()
	yaw, pitch := c.pendingYaw, c.pendingPitch
	zoom := c.pendingZoom
	panX, panY := c.pendingPanX, c.pendingPanY
	c.pendingYaw, c.pendingPitch, c.pendingZoom = 0, 0, 0
	c.pendingPanX, c.pendingPanY = 0, 0
	c.mu.Unlock()

	if yaw != 0 || pitch != 0 {
		v.Orbit(yaw, pitch)
	}
	if zoom != 0 {
		v.Zoom(zoom)
	}
	if panX != 0 || panY != 0 {
		pan(v, panX, panY)
	}
}

// pan translates the camera and target together along the view-plane axes.
// Pan distance scales with the orbit radius so screen-space feel stays
// constant as the camera zooms.
func pan(v view.View, dx, dy float32) {
	position := v.Position()
	target := v.Target()
	offset := target.Sub(position)
	radius := offset.Len()
	if radius == 0 {
		return
	}

	forward := offset.Mul(1 / radius)
	worldUp := mgl32.Vec3{0, 1, 0}
	right := forward.Cross(worldUp)
	if right.Len() < 1e-6 {
		return
	}
	right = right.Normalize()
	up := right.Cross(forward)

	shift := right.Mul(dx * radius).Add(up.Mul(dy * radius))
	v.SetPosition(position.Add(shift))
	v.SetTarget(target.Add(shift))
}
