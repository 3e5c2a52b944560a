package renderer

import (
	"github.com/Gaeric/hikari-go/engine/renderer/pipeline"
)

// RendererBuilderOption defines a function that modifies the renderer configuration during construction.
type RendererBuilderOption func(*renderer)

// WithPipeline adds a Pipeline to the renderer's cache with the given key.
//
// Parameters:
//   - key: the unique identifier for the Pipeline to add to the cache
//   - p: the Pipeline to add to the cache
//
// Returns:
//   - RendererBuilderOption: a function that adds the Pipeline to the renderer's cache
func WithPipeline(key string, p pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.pipelineCache[key] = p
	}
}

// WithPipelines sets the renderer's pipeline cache to the given map of Pipelines.
//
// Parameters:
//   - pipelines: a map of pipeline keys to their corresponding Pipeline objects
//
// Returns:
//   - RendererBuilderOption: a function that sets the renderer's pipeline cache
func WithPipelines(pipelines map[string]pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.pipelineCache = pipelines
	}
}

// WithPresentMode sets the presentation mode used when configuring the surface.
//
// Parameters:
//   - mode: the PresentMode to use (PresentModeVSync or PresentModeUncapped)
//
// Returns:
//   - RendererBuilderOption: a function that sets the present mode on the renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithForceSoftwareRenderer forces adapter selection to a software fallback
// implementation. Useful for headless capture on machines without a GPU.
//
// Parameters:
//   - force: whether to force the software fallback adapter
//
// Returns:
//   - RendererBuilderOption: a function that sets the fallback adapter flag on the renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
