package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// MouseButton identifies a mouse button in button callbacks.
type MouseButton uint8

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

// Window provides platform windowing and the input events the engine consumes.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	// The reported dimensions are in pixels, which on high-DPI displays differ
	// from the window size reported by the platform.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the GLFW key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetMouseButtonCallback sets the callback for mouse button press and release.
	//
	// Parameters:
	//   - callback: function receiving the button, pressed state, and cursor position
	SetMouseButtonCallback(callback func(button MouseButton, pressed bool, x, y float64))

	// SetMouseMoveCallback sets the callback for cursor movement within the window.
	//
	// Parameters:
	//   - callback: function receiving the cursor position
	SetMouseMoveCallback(callback func(x, y float64))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if the window was never initialized
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls the update callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the GLFW implementation of the Window interface.
type engineWindow struct {
	title     string
	width     int
	height    int
	resizable bool

	window  *glfw.Window
	running bool

	onUpdate      func()
	onResize      func(width, height int)
	onScroll      func(delta float32)
	onKeyDown     func(keyCode uint32)
	onMouseButton func(button MouseButton, pressed bool, x, y float64)
	onMouseMove   func(x, y float64)
}

var _ Window = &engineWindow{}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order. The GLFW window is
// created eagerly; a failure here is unrecoverable and panics.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the configured, visible window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title:     "hikari",
		width:     1280,
		height:    720,
		resizable: true,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := w.init(); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

// init creates the GLFW window and registers input callbacks.
// GLFW requires that it is initialized and used from a single OS thread.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw
func (w *engineWindow) init() error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %v", err)
	}

	// WebGPU provides its own graphics API, so disable OpenGL context creation.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	if !w.resizable {
		glfw.WindowHint(glfw.Resizable, glfw.False)
	}

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create GLFW window: %v", err)
	}
	w.window = win
	w.running = true

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.running = false
			win.SetShouldClose(true)
			return
		}
		if action == glfw.Press && w.onKeyDown != nil {
			w.onKeyDown(uint32(key))
		}
	})

	win.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		if w.onScroll != nil {
			w.onScroll(float32(yoff))
		}
	})

	win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if w.onMouseButton == nil {
			return
		}
		var b MouseButton
		switch button {
		case glfw.MouseButtonLeft:
			b = MouseButtonLeft
		case glfw.MouseButtonRight:
			b = MouseButtonRight
		case glfw.MouseButtonMiddle:
			b = MouseButtonMiddle
		default:
			return
		}
		x, y := win.GetCursorPos()
		w.onMouseButton(b, action == glfw.Press, x, y)
	})

	win.SetCursorPosCallback(func(_ *glfw.Window, xpos, ypos float64) {
		if w.onMouseMove != nil {
			w.onMouseMove(xpos, ypos)
		}
	})

	// Track the framebuffer size rather than the window size. The renderer
	// configures its surface in pixels, and on high-DPI displays the two differ.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width = width
		w.height = height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})

	fbWidth, fbHeight := win.GetFramebufferSize()
	w.width = fbWidth
	w.height = fbHeight

	return nil
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetMouseButtonCallback(callback func(button MouseButton, pressed bool, x, y float64)) {
	w.onMouseButton = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y float64)) {
	w.onMouseMove = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(w.window)
}

func (w *engineWindow) IsRunning() bool {
	return w.window != nil && w.running && !w.window.ShouldClose()
}

func (w *engineWindow) Close() error {
	if w.window == nil {
		return fmt.Errorf("window is not initialized")
	}
	w.running = false
	w.window.SetShouldClose(true)
	w.window.Destroy()
	glfw.Terminate()
	return nil
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		glfw.PollEvents()
		if !w.IsRunning() {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
