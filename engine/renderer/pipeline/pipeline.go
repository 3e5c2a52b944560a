package pipeline

import (
	"github.com/Gaeric/hikari-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

// ColorTarget describes one color attachment written by a render pipeline.
// A nil Blend disables blending for the target.
type ColorTarget struct {
	Format    wgpu.TextureFormat
	Blend     *wgpu.BlendState
	WriteMask wgpu.ColorWriteMask
}

// pipeline is the implementation of the Pipeline interface.
// It holds the underlying WebGPU pipeline objects and related data for both render and compute pipelines.
type pipeline struct {
	// pipelineType indicates the type of pipeline this is; compute or render
	pipelineType PipelineType
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string

	// the following shader references are required to be set before registering the
	// pipeline with the renderer: vertex+fragment for render, compute for compute.

	vertexShader, fragmentShader, computeShader shader.Shader

	// bindGroupLayoutDescriptors declare the bind group interface of the pipeline in
	// group index order. The renderer creates the GPU layouts and pipeline layout from these.
	bindGroupLayoutDescriptors []wgpu.BindGroupLayoutDescriptor

	// renderPipeline is the render pipeline if this is a render pipeline, nil otherwise
	renderPipeline *wgpu.RenderPipeline
	// computePipeline is the compute pipeline if this is a compute pipeline, nil otherwise
	computePipeline *wgpu.ComputePipeline

	// The following properties configure render pipeline creation and can be set with
	// the builder options. Compute pipelines keep the defaults but do not use them.

	colorTargets      []ColorTarget
	vertexLayouts     []wgpu.VertexBufferLayout
	depthFormat       wgpu.TextureFormat
	depthCompare      wgpu.CompareFunction
	depthWriteEnabled bool
	depthBias         int32
	depthBiasSlope    float32
	cullMode          wgpu.CullMode
	topology          wgpu.PrimitiveTopology
	frontFace         wgpu.FrontFace
}

// Pipeline defines the interface for a GPU pipeline, encapsulating either a render pipeline
// (vertex + fragment shaders) or a compute pipeline (compute shader). It holds all configuration
// state required for pipeline creation including color target, depth, cull, and topology settings.
type Pipeline interface {
	// Type returns the type of the pipeline
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader associated with the specified type if it exists, nil otherwise.
	//
	// Parameters:
	//   - shaderType: the type of shader to retrieve (vertex, fragment, or compute)
	//
	// Returns:
	//   - shader.Shader: the shader associated with the specified type, or nil if not set
	Shader(shaderType shader.ShaderType) shader.Shader

	// BindGroupLayoutDescriptors returns the bind group layout descriptors declared for
	// this pipeline, in group index order.
	//
	// Returns:
	//   - []wgpu.BindGroupLayoutDescriptor: the declared bind group layouts
	BindGroupLayoutDescriptors() []wgpu.BindGroupLayoutDescriptor

	// Pipeline returns the underlying pipeline object, either *wgpu.RenderPipeline or *wgpu.ComputePipeline
	// Note: The caller is responsible for type asserting the returned value as either pipeline type.
	//
	// Returns:
	//   - any: the underlying pipeline object.
	Pipeline() any

	// ColorTargets returns the color attachment descriptions for this pipeline in
	// attachment order. Empty for depth-only and compute pipelines.
	//
	// Returns:
	//   - []ColorTarget: the color targets for this pipeline
	ColorTargets() []ColorTarget

	// VertexLayouts returns the vertex buffer layouts consumed by the vertex stage.
	// Empty for pipelines that generate geometry from the vertex index alone.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the vertex buffer layouts for this pipeline
	VertexLayouts() []wgpu.VertexBufferLayout

	// DepthFormat returns the depth attachment format, or wgpu.TextureFormatUndefined
	// when the pipeline has no depth attachment.
	//
	// Returns:
	//   - wgpu.TextureFormat: the depth attachment format
	DepthFormat() wgpu.TextureFormat

	// DepthCompare returns the depth comparison function for this pipeline.
	// The renderer uses reversed depth throughout, so the default is wgpu.CompareFunctionGreaterEqual.
	//
	// Returns:
	//   - wgpu.CompareFunction: the depth comparison function
	DepthCompare() wgpu.CompareFunction

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth writing is enabled, false otherwise
	DepthWriteEnabled() bool

	// DepthBias returns the constant depth bias and slope scale configured for this pipeline.
	//
	// Returns:
	//   - int32: the constant depth bias
	//   - float32: the slope scale depth bias
	DepthBias() (int32, float32)

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode for this pipeline (e.g., wgpu.CullModeNone, wgpu.CullModeBack)
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the primitive topology for this pipeline
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	//
	// Returns:
	//   - wgpu.FrontFace: the front face winding order for this pipeline
	FrontFace() wgpu.FrontFace

	// SetRenderPipeline sets the render pipeline
	//
	// Parameters:
	//   - p: the WebGPU render pipeline to set
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// SetComputePipeline sets the compute pipeline
	//
	// Parameters:
	//   - p: the WebGPU compute pipeline to set
	SetComputePipeline(p *wgpu.ComputePipeline)
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline interface. A PipelineType must be specified and provided upon creation.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: the type of pipeline to create (render or compute)
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified type and configuration
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		pipelineType:      pipelineType,
		depthFormat:       wgpu.TextureFormatUndefined,
		depthCompare:      wgpu.CompareFunctionGreaterEqual,
		depthWriteEnabled: true,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Pipeline() any {
	switch p.pipelineType {
	case PipelineTypeRender:
		return p.renderPipeline
	case PipelineTypeCompute:
		return p.computePipeline
	default:
		return nil
	}
}

func (p *pipeline) BindGroupLayoutDescriptors() []wgpu.BindGroupLayoutDescriptor {
	return p.bindGroupLayoutDescriptors
}

func (p *pipeline) ColorTargets() []ColorTarget {
	return p.colorTargets
}

func (p *pipeline) VertexLayouts() []wgpu.VertexBufferLayout {
	return p.vertexLayouts
}

func (p *pipeline) DepthFormat() wgpu.TextureFormat {
	return p.depthFormat
}

func (p *pipeline) DepthCompare() wgpu.CompareFunction {
	return p.depthCompare
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthBias() (int32, float32) {
	return p.depthBias, p.depthBiasSlope
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	case shader.ShaderTypeCompute:
		return p.computeShader
	default:
		return nil
	}
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.computePipeline = cp
}
