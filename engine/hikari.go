package engine

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gaeric/hikari-go/common"
	"github.com/Gaeric/hikari-go/engine/camera"
	"github.com/Gaeric/hikari-go/engine/frame"
	"github.com/Gaeric/hikari-go/engine/graph"
	"github.com/Gaeric/hikari-go/engine/light"
	"github.com/Gaeric/hikari-go/engine/material"
	"github.com/Gaeric/hikari-go/engine/mesh"
	"github.com/Gaeric/hikari-go/engine/noise"
	"github.com/Gaeric/hikari-go/engine/overlay"
	"github.com/Gaeric/hikari-go/engine/prepass"
	"github.com/Gaeric/hikari-go/engine/profiler"
	"github.com/Gaeric/hikari-go/engine/renderer"
	"github.com/Gaeric/hikari-go/engine/view"
	"github.com/Gaeric/hikari-go/engine/window"
	"github.com/HugoSmits86/nativewebp"
)

// captureRequest asks the render goroutine to read back the last completed
// radiance estimate and encode it to disk.
type captureRequest struct {
	path  string
	reply chan error
}

// engine implements the Engine interface.
// Coordinates the tick, render, and window threads around the render graph.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window     window.Window
	renderer   renderer.Renderer
	view       view.View
	controller camera.Controller // nil unless orbit controls are enabled
	frame      frame.Frame
	meshes     mesh.Storage
	materials  material.Storage
	light      light.DirectionalLight
	graph      graph.Graph
	lightNode  light.Node

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate atomic.Int64 // tick interval in nanoseconds, read across goroutines
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	pendingResize    resizeLatch   // resize events latched for the render goroutine

	captureChannel chan captureRequest

	// Builder staging, consumed by NewEngine.
	windowOptions     []window.WindowBuilderOption
	rendererOptions   []renderer.RendererBuilderOption
	viewOptions       []view.ViewBuilderOption
	lightOptions      []light.DirectionalLightBuilderOption
	orbitControls     bool
	controllerOptions []camera.ControllerBuilderOption
	noiseFolder       string
	maxInstances      int
}

// Engine is the main entry point for the renderer.
// It orchestrates the tick loop, the render graph, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the underlying renderer.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// View returns the camera the render graph draws from.
	//
	// Returns:
	//   - view.View: the view instance
	View() view.View

	// Light returns the directional light.
	//
	// Returns:
	//   - light.DirectionalLight: the light instance
	Light() light.DirectionalLight

	// Meshes returns the mesh storage scenes register geometry with.
	//
	// Returns:
	//   - mesh.Storage: the mesh storage
	Meshes() mesh.Storage

	// Materials returns the material storage scenes register materials with.
	//
	// Returns:
	//   - material.Storage: the material storage
	Materials() material.Storage

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for input processing, camera movement, and scene updates.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// CaptureRadiance reads back the most recently completed radiance
	// estimate and writes it to disk as a tone mapped WebP image. Blocks
	// until the render goroutine services the request, so it must not be
	// called from the tick or render callbacks.
	//
	// Parameters:
	//   - path: the output file path
	//
	// Returns:
	//   - error: an error if the readback or encode fails
	CaptureRadiance(path string) error

	// Run starts the main engine loop (blocks until window closes).
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates the window, renderer, storages, and render graph, wiring
// the geometry prepass, shadow pass, lighting pass, and overlay into their
// execution order. The noise bank loads in the background; the lighting pass
// skips itself until the upload lands.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if any pipeline or graph construction fails
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		captureChannel:  make(chan captureRequest, 1),
		profiler:        profiler.NewProfiler(),
		noiseFolder:     noise.DefaultFolder,
	}
	e.engineTickRate.Store(int64(time.Second / 60))

	for _, opt := range options {
		opt(e)
	}

	e.window = window.NewWindow(e.windowOptions...)
	e.renderer = renderer.NewRenderer(e.window, renderer.BackendTypeWGPU, e.rendererOptions...)
	e.view = view.NewView(append(e.viewOptions, view.WithViewport(e.window.Width(), e.window.Height()))...)
	e.frame = frame.NewFrame()
	e.meshes = mesh.NewStorage()
	e.materials = material.NewStorage()
	if e.light == nil {
		e.light = light.NewDirectionalLight(e.lightOptions...)
	}

	buffers := mesh.NewBufferCache(e.renderer, e.meshes)

	prepassNode, err := prepass.NewNode(e.renderer, e.meshes, buffers, e.maxInstances)
	if err != nil {
		return nil, err
	}
	shadowNode, err := light.NewShadowNode(e.renderer, e.light, e.meshes, buffers, e.maxInstances)
	if err != nil {
		return nil, err
	}
	lightNode, err := light.NewNode(e.renderer, e.light, e.meshes, e.materials)
	if err != nil {
		return nil, err
	}
	overlayNode, err := overlay.NewNode(e.renderer)
	if err != nil {
		return nil, err
	}
	e.lightNode = lightNode

	g := graph.NewGraph()
	for _, n := range []graph.Node{prepassNode, shadowNode, lightNode, overlayNode} {
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, edge := range [][2]string{
		{prepass.NodeName, light.NodeName},
		{light.ShadowNodeName, light.NodeName},
		{light.NodeName, overlay.NodeName},
	} {
		if err := g.AddEdge(edge[0], edge[1]); err != nil {
			return nil, err
		}
	}
	if err := g.Compile(); err != nil {
		return nil, err
	}
	e.graph = g

	if e.orbitControls {
		e.controller = camera.NewController(e.controllerOptions...)
		e.controller.Attach(e.window)
	}

	// The callback fires on the window thread while the render goroutine owns
	// the view and surface, so the resize is latched and applied at frame start.
	e.window.SetResizeCallback(func(width, height int) {
		e.pendingResize.Store(width, height)
	})

	// Noise decoding takes a moment; load off-thread and let the lighting
	// pass skip until the bank arrives.
	go func() {
		bank, err := noise.LoadBank(e.noiseFolder)
		if err != nil {
			log.Printf("engine: %v; lighting stays disabled", err)
			return
		}
		if err := e.lightNode.SetNoiseBank(bank); err != nil {
			log.Printf("engine: %v; lighting stays disabled", err)
		}
	}()

	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) View() view.View {
	return e.view
}

func (e *engine) Light() light.DirectionalLight {
	return e.light
}

func (e *engine) Meshes() mesh.Storage {
	return e.meshes
}

func (e *engine) Materials() material.Storage {
	return e.materials
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	rate := time.Duration(float64(time.Second) / fps)
	select {
	case e.tickRateChannel <- rate:
	default:
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) CaptureRadiance(path string) error {
	req := captureRequest{path: path, reply: make(chan error, 1)}
	select {
	case e.captureChannel <- req:
	case <-e.quitChannel:
		return fmt.Errorf("engine is shutting down")
	}
	select {
	case err := <-req.reply:
		return err
	case <-e.quitChannel:
		return fmt.Errorf("engine is shutting down")
	}
}

func (e *engine) Run() {
	e.handle()
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
	e.window.Close()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the tick and render goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.running = true
	e.wg.Add(2)
	go e.handleTick()
	go e.handleRender()
}

// handleTick runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic
// rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleTick() {
	defer e.wg.Done()

	ticker := time.NewTicker(time.Duration(e.engineTickRate.Load()))
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate.Store(int64(newRate))
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own
// goroutine: extract pending scene changes, execute the graph inside one
// frame encoder, present, then advance the temporal state so the next frame
// reprojects against this one.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			if width, height, ok := e.pendingResize.Take(); ok {
				e.renderer.Resize(width, height)
				e.view.Resize(width, height)
			}

			if e.controller != nil {
				e.controller.Apply(e.view)
			}

			extractStart := time.Now()
			if e.meshes.State() == mesh.AssetStateDirty {
				if err := e.meshes.Extract(); err != nil {
					log.Printf("engine: mesh extraction failed: %v", err)
				}
			}
			if e.materials.State() == mesh.AssetStateDirty {
				e.materials.Extract()
			}
			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Observe("extract", time.Since(extractStart))
			}

			if err := e.renderer.BeginFrame(); err != nil {
				// Surface loss during resize or minimize; retry next frame.
				log.Printf("engine: %v", err)
				time.Sleep(time.Duration(e.engineTickRate.Load()))
				continue
			}
			graphStart := time.Now()
			if err := e.graph.Execute(graph.FrameContext{View: e.view, Frame: e.frame}); err != nil {
				log.Printf("engine: %v", err)
			}
			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Observe("graph", time.Since(graphStart))
			}
			e.renderer.EndFrame()
			e.renderer.Present()

			e.frame.Advance()
			e.view.Advance()

			select {
			case req := <-e.captureChannel:
				req.reply <- e.captureRadiance(req.path)
			default:
			}

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// captureRadiance reads back the radiance texture the lighting pass wrote
// last frame, applies the same Reinhard mapping the overlay uses, and encodes
// the result as WebP.
func (e *engine) captureRadiance(path string) error {
	label := light.RadianceLabel(e.frame.PreviousReservoirIndex())
	data, desc, err := e.renderer.ReadTexture(label)
	if err != nil {
		return fmt.Errorf("failed to read radiance texture: %w", err)
	}

	img := decodeRadiance(data, int(desc.Width), int(desc.Height))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create capture file: %w", err)
	}
	defer f.Close()

	if err := nativewebp.Encode(f, img, nil); err != nil {
		return fmt.Errorf("failed to encode capture: %w", err)
	}
	return nil
}

// decodeRadiance converts tightly packed rgba16float texels to a tone mapped
// 8-bit image. The alpha channel carries luminance on the GPU side and is
// discarded here.
func decodeRadiance(data []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			offset := (y*width + x) * 8
			var rgb [3]float32
			for c := 0; c < 3; c++ {
				bits := uint16(data[offset+c*2]) | uint16(data[offset+c*2+1])<<8
				v := common.Float16frombits(bits)
				rgb[c] = v / (v + 1)
			}
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(rgb[0]*255 + 0.5),
				G: uint8(rgb[1]*255 + 0.5),
				B: uint8(rgb[2]*255 + 0.5),
				A: 255,
			})
		}
	}
	return img
}
