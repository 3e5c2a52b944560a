package pipeline

import (
	"github.com/Gaeric/hikari-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option applied to a pipeline during construction via NewPipeline.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex shader for this pipeline.
//
// Parameters:
//   - s: the vertex shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex shader for this pipeline
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = s
	}
}

// WithFragmentShader sets the fragment shader for this pipeline.
//
// Parameters:
//   - s: the fragment shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment shader for this pipeline
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = s
	}
}

// WithComputeShader sets the compute shader for this pipeline.
//
// Parameters:
//   - s: the compute shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the compute shader for this pipeline
func WithComputeShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.computeShader = s
	}
}

// WithBindGroupLayouts declares the bind group layout descriptors for this pipeline
// in group index order. The renderer creates the GPU layouts and pipeline layout
// from these during registration.
//
// Parameters:
//   - descriptors: the bind group layout descriptors, one per group index
//
// Returns:
//   - PipelineBuilderOption: a function that sets the bind group layouts for this pipeline
func WithBindGroupLayouts(descriptors ...wgpu.BindGroupLayoutDescriptor) PipelineBuilderOption {
	return func(p *pipeline) {
		p.bindGroupLayoutDescriptors = descriptors
	}
}

// WithColorTargets sets the color attachment descriptions for this pipeline in
// attachment order. Geometry passes writing multiple render targets list one
// ColorTarget per attachment.
//
// Parameters:
//   - targets: the color targets for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color targets for this pipeline
func WithColorTargets(targets ...ColorTarget) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colorTargets = targets
	}
}

// WithVertexLayouts sets the vertex buffer layouts consumed by the vertex stage.
//
// Parameters:
//   - layouts: the vertex buffer layouts for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex layouts for this pipeline
func WithVertexLayouts(layouts ...wgpu.VertexBufferLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexLayouts = layouts
	}
}

// WithDepthFormat enables a depth attachment with the given format and comparison
// function. Use wgpu.CompareFunctionGreaterEqual with the renderer's reversed depth
// convention.
//
// Parameters:
//   - format: the depth attachment format (e.g., wgpu.TextureFormatDepth32Float)
//   - compare: the depth comparison function
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth attachment for this pipeline
func WithDepthFormat(format wgpu.TextureFormat, compare wgpu.CompareFunction) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthFormat = format
		p.depthCompare = compare
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth write enabled state for this pipeline
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithDepthBias sets the depth bias parameters for this pipeline.
//
// Parameters:
//   - bias: the constant depth bias to apply
//   - slopeScale: the slope scale depth bias to apply
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth bias parameters for this pipeline
func WithDepthBias(bias int32, slopeScale float32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthBias = bias
		p.depthBiasSlope = slopeScale
	}
}

// WithCullMode sets the cull mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode to use for this pipeline (e.g., wgpu.CullModeNone, wgpu.CullModeFront, wgpu.CullModeBack)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets the primitive topology for this pipeline.
//
// Parameters:
//   - topology: the primitive topology to use for this pipeline (e.g., wgpu.PrimitiveTopologyTriangleStrip)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the primitive topology for this pipeline
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace sets the front face winding order for this pipeline.
//
// Parameters:
//   - frontFace: the front face to use for this pipeline (e.g., wgpu.FrontFaceCCW, wgpu.FrontFaceCW)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}
