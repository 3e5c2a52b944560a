package engine

import (
	"time"

	"github.com/Gaeric/hikari-go/engine/camera"
	"github.com/Gaeric/hikari-go/engine/light"
	"github.com/Gaeric/hikari-go/engine/renderer"
	"github.com/Gaeric/hikari-go/engine/view"
	"github.com/Gaeric/hikari-go/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for game logic updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate.Store(int64(float64(time.Second) / fps))
	}
}

// WithWindowOptions forwards options to the window the engine creates.
//
// Parameters:
//   - options: window configuration options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindowOptions(options ...window.WindowBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.windowOptions = append(e.windowOptions, options...)
	}
}

// WithRendererOptions forwards options to the renderer the engine creates.
//
// Parameters:
//   - options: renderer configuration options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRendererOptions(options ...renderer.RendererBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.rendererOptions = append(e.rendererOptions, options...)
	}
}

// WithViewOptions forwards options to the view the engine creates.
//
// Parameters:
//   - options: view configuration options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithViewOptions(options ...view.ViewBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.viewOptions = append(e.viewOptions, options...)
	}
}

// WithLightOptions forwards options to the directional light the engine
// creates. Ignored when WithLight provides a light instance.
//
// Parameters:
//   - options: light configuration options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLightOptions(options ...light.DirectionalLightBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.lightOptions = append(e.lightOptions, options...)
	}
}

// WithLight sets a pre-configured directional light rather than allowing the
// engine to create one internally.
//
// Parameters:
//   - l: a pre-configured light instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLight(l light.DirectionalLight) EngineBuilderOption {
	return func(e *engine) {
		e.light = l
	}
}

// WithNoiseFolder sets the folder the blue noise bank loads from.
//
// Parameters:
//   - folder: the image folder (default noise.DefaultFolder)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithNoiseFolder(folder string) EngineBuilderOption {
	return func(e *engine) {
		e.noiseFolder = folder
	}
}

// WithMaxInstances bounds the per-frame instance uniform buffers of the
// raster passes.
//
// Parameters:
//   - maxInstances: instance capacity (0 = the prepass default)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMaxInstances(maxInstances int) EngineBuilderOption {
	return func(e *engine) {
		e.maxInstances = maxInstances
	}
}

// WithOrbitControls enables mouse orbit camera controls: drag to rotate
// around the view target, scroll to zoom, right-drag to pan.
//
// Parameters:
//   - options: controller options (sensitivity, buttons)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithOrbitControls(options ...camera.ControllerBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.orbitControls = true
		e.controllerOptions = options
	}
}
