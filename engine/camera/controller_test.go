package camera

import (
	"math"
	"testing"

	"github.com/Gaeric/hikari-go/engine/view"
	"github.com/Gaeric/hikari-go/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// fakeWindow captures the callbacks a controller registers so tests can drive
// input events directly.
type fakeWindow struct {
	onScroll      func(delta float32)
	onMouseButton func(button window.MouseButton, pressed bool, x, y float64)
	onMouseMove   func(x, y float64)
}

var _ window.Window = &fakeWindow{}

func (w *fakeWindow) SetUpdateCallback(func())                   {}
func (w *fakeWindow) SetResizeCallback(func(int, int))           {}
func (w *fakeWindow) SetKeyDownCallback(func(uint32))            {}
func (w *fakeWindow) SetScrollCallback(cb func(float32))         { w.onScroll = cb }
func (w *fakeWindow) SetMouseMoveCallback(cb func(x, y float64)) { w.onMouseMove = cb }
func (w *fakeWindow) SetMouseButtonCallback(cb func(button window.MouseButton, pressed bool, x, y float64)) {
	w.onMouseButton = cb
}
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (w *fakeWindow) IsRunning() bool                            { return false }
func (w *fakeWindow) Close() error                               { return nil }
func (w *fakeWindow) ProcessMessages()                           {}
func (w *fakeWindow) Width() int                                 { return 1280 }
func (w *fakeWindow) Height() int                                { return 720 }

func newTestRig(options ...ControllerBuilderOption) (*fakeWindow, Controller, view.View) {
	win := &fakeWindow{}
	c := NewController(options...)
	c.Attach(win)
	v := view.NewView(
		view.WithPosition(mgl32.Vec3{0, 0, 5}),
		view.WithTarget(mgl32.Vec3{0, 0, 0}),
	)
	return win, c, v
}

func TestApplyWithoutInputIsNoOp(t *testing.T) {
	_, c, v := newTestRig()
	before := v.Position()

	c.Apply(v)

	if v.Position() != before {
		t.Fatalf("position changed with no input: %v", v.Position())
	}
}

func TestOrbitDragRotatesAroundTarget(t *testing.T) {
	win, c, v := newTestRig()
	start := v.Position()

	win.onMouseButton(window.MouseButtonLeft, true, 100, 100)
	win.onMouseMove(140, 100)
	win.onMouseButton(window.MouseButtonLeft, false, 140, 100)
	c.Apply(v)

	if v.Position() == start {
		t.Fatal("orbit drag did not move the camera")
	}
	radius := v.Position().Sub(v.Target()).Len()
	if math.Abs(float64(radius-5)) > 1e-4 {
		t.Fatalf("orbit changed radius: %v", radius)
	}
	if v.Target() != (mgl32.Vec3{0, 0, 0}) {
		t.Fatalf("orbit moved the target: %v", v.Target())
	}
}

func TestMouseMoveWithoutButtonAccumulatesNothing(t *testing.T) {
	win, c, v := newTestRig()
	start := v.Position()

	win.onMouseMove(300, 300)
	win.onMouseMove(500, 500)
	c.Apply(v)

	if v.Position() != start {
		t.Fatalf("hover moved the camera: %v", v.Position())
	}
}

func TestScrollZoomsTowardTarget(t *testing.T) {
	win, c, v := newTestRig()

	win.onScroll(2)
	c.Apply(v)

	radius := v.Position().Sub(v.Target()).Len()
	if radius >= 5 {
		t.Fatalf("scroll up did not zoom in: radius %v", radius)
	}
}

func TestApplyDrainsPendingInput(t *testing.T) {
	win, c, v := newTestRig()

	win.onScroll(2)
	c.Apply(v)
	afterFirst := v.Position()

	// Second apply must not consume the same scroll again.
	c.Apply(v)
	if v.Position() != afterFirst {
		t.Fatalf("second Apply re-consumed input: %v vs %v", v.Position(), afterFirst)
	}
}

func TestPanDragShiftsPositionAndTargetEqually(t *testing.T) {
	win, c, v := newTestRig()
	startPos := v.Position()
	startTarget := v.Target()

	win.onMouseButton(window.MouseButtonRight, true, 200, 200)
	win.onMouseMove(260, 230)
	c.Apply(v)

	posShift := v.Position().Sub(startPos)
	targetShift := v.Target().Sub(startTarget)
	if posShift.Len() == 0 {
		t.Fatal("pan drag did not move the camera")
	}
	if posShift.Sub(targetShift).Len() > 1e-5 {
		t.Fatalf("pan shifted position and target differently: %v vs %v", posShift, targetShift)
	}
	// Pan keeps the view direction: radius unchanged.
	radius := v.Position().Sub(v.Target()).Len()
	if math.Abs(float64(radius-5)) > 1e-4 {
		t.Fatalf("pan changed radius: %v", radius)
	}
}

func TestReleasedButtonStopsAccumulating(t *testing.T) {
	win, c, v := newTestRig()

	win.onMouseButton(window.MouseButtonLeft, true, 0, 0)
	win.onMouseButton(window.MouseButtonLeft, false, 0, 0)
	win.onMouseMove(80, 0)
	c.Apply(v)

	if v.Position() != (mgl32.Vec3{0, 0, 5}) {
		t.Fatalf("movement after release moved the camera: %v", v.Position())
	}
}

func TestCustomButtonBindings(t *testing.T) {
	win, c, v := newTestRig(
		WithOrbitButton(window.MouseButtonMiddle),
		WithMouseSensitivity(0.01),
	)

	win.onMouseButton(window.MouseButtonLeft, true, 0, 0)
	win.onMouseMove(50, 0)
	c.Apply(v)
	if v.Position() != (mgl32.Vec3{0, 0, 5}) {
		t.Fatal("default orbit button should be unbound after rebinding")
	}

	win.onMouseButton(window.MouseButtonLeft, false, 50, 0)
	win.onMouseButton(window.MouseButtonMiddle, true, 50, 0)
	win.onMouseMove(100, 0)
	c.Apply(v)
	if v.Position() == (mgl32.Vec3{0, 0, 5}) {
		t.Fatal("rebound orbit button did not move the camera")
	}
}
