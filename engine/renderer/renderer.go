package renderer

import (
	"fmt"
	"sync"

	"github.com/Gaeric/hikari-go/common"
	"github.com/Gaeric/hikari-go/engine/renderer/bind_group_provider"
	"github.com/Gaeric/hikari-go/engine/renderer/pipeline"
	"github.com/Gaeric/hikari-go/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
}

// Renderer defines the interface for the rendering system.
//
// This is a high-level API designed to simplify rendering tasks into a streamlined and idiomatic flow.
// The Renderer manages a cache of pipelines and the long-lived pass textures, and implements a
// backend which allows for multiple backend API implementations to exist.
type Renderer interface {
	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves the entire cache of Pipelines.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines registers one or more pipelines by creating the corresponding GPU
	// pipeline objects (render or compute) via the backend, then caching them by PipelineKey.
	// Pipelines whose keys are already registered are skipped to avoid duplicate GPU resource creation.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// SetPipeline adds or updates a Pipeline in the cache with the given key.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to add or update in the cache
	//   - p: the Pipeline to add or update in the cache
	SetPipeline(key string, p pipeline.Pipeline)

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SurfaceFormat returns the configured swapchain texture format.
	//
	// Returns:
	//   - wgpu.TextureFormat: the swapchain format
	SurfaceFormat() wgpu.TextureFormat

	// SurfaceSize returns the configured surface dimensions in pixels.
	//
	// Returns:
	//   - int: the surface width
	//   - int: the surface height
	SurfaceSize() (int, int)

	// EnsureTexture returns the cached texture view for the descriptor's label,
	// allocating or reallocating when the descriptor changed. The bool return
	// reports a fresh allocation, which invalidates any temporal history that
	// lived in the previous texture.
	//
	// Parameters:
	//   - desc: the requested texture descriptor
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view
	//   - bool: true if the texture was (re)allocated this call
	//   - error: an error if allocation fails
	EnsureTexture(desc TextureDesc) (*wgpu.TextureView, bool, error)

	// CachedTextureView returns the view for a previously ensured texture label,
	// or nil if the label is unknown.
	//
	// Parameters:
	//   - label: the texture label
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	CachedTextureView(label string) *wgpu.TextureView

	// CreateMeshBuffers creates GPU vertex and index buffers from raw byte data.
	//
	// Parameters:
	//   - label: a debug label for the buffers
	//   - vertexData: the raw vertex data bytes to upload to the GPU
	//   - indexData: the raw index data bytes to upload to the GPU
	//
	// Returns:
	//   - *wgpu.Buffer: the vertex buffer, or nil if vertexData is empty
	//   - *wgpu.Buffer: the index buffer, or nil if indexData is empty
	//   - error: an error if buffer creation fails
	CreateMeshBuffers(label string, vertexData, indexData []byte) (*wgpu.Buffer, *wgpu.Buffer, error)

	// CreateStorageBuffer creates a GPU buffer with the given usage and uploads the initial data.
	//
	// Parameters:
	//   - label: a debug label for the buffer
	//   - data: the initial contents
	//   - usage: the buffer usage flags
	//
	// Returns:
	//   - *wgpu.Buffer: the created buffer
	//   - error: an error if buffer creation fails
	CreateStorageBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error)

	// InitBindGroup creates GPU buffers and a bind group from the provider's layout entries.
	// Textures and samplers must be initialized via InitTextureView and InitSampler first.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to initialize
	//   - bufferUsageOverrides: extra buffer usage flags keyed by binding index (nil safe)
	//   - bufferSizeOverrides: custom buffer sizes keyed by binding index (nil safe)
	//
	// Returns:
	//   - error: an error if bind group creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// InitTextureView creates a GPU texture from staging data and stores the resulting texture view
	// on the given BindGroupProvider at the specified binding index. Must be called before InitBindGroup
	// for any sampled texture bindings.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created texture view on
	//   - bindingKey: the binding index for this texture
	//   - stagingData: the pixel data and dimensions for the texture
	//
	// Returns:
	//   - error: an error if texture creation fails
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error

	// InitSampler creates a GPU sampler from staging data and stores it on the given
	// BindGroupProvider at the specified binding index.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created sampler on
	//   - bindingKey: the binding index for this sampler
	//   - stagingData: the sampler configuration
	//
	// Returns:
	//   - error: an error if sampler creation fails
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.SamplerStagingData) error

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the next swapchain texture and creates the frame's command encoder.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// SurfaceView returns the swapchain texture view acquired by BeginFrame, or nil outside a frame.
	//
	// Returns:
	//   - *wgpu.TextureView: the swapchain view or nil
	SurfaceView() *wgpu.TextureView

	// BeginRenderPass starts a render pass with the given attachments on the frame encoder.
	//
	// Parameters:
	//   - config: the pass label and attachments
	//
	// Returns:
	//   - error: an error if no frame is open or a pass is already open
	BeginRenderPass(config RenderPassConfig) error

	// DrawCall encodes a single indexed draw command within the current render pass.
	//
	// Parameters:
	//   - p: the cached Pipeline containing the render pipeline to use
	//   - draw: the vertex/index buffers and draw parameters
	//   - bindGroups: BindGroupProviders whose BindGroups are set by slice index
	//   - dynamicOffsets: per-group dynamic offsets, indexed like bindGroups (nil safe)
	DrawCall(p pipeline.Pipeline, draw Draw, bindGroups []bind_group_provider.BindGroupProvider, dynamicOffsets [][]uint32)

	// EndRenderPass ends the render pass started by BeginRenderPass.
	EndRenderPass()

	// DispatchCompute encodes a compute pass on the frame encoder.
	//
	// Parameters:
	//   - p: the cached Pipeline containing the compute pipeline to use
	//   - bindGroups: BindGroupProviders whose BindGroups are set by slice index
	//   - workGroupCount: the number of workgroups to dispatch in x, y, z
	DispatchCompute(p pipeline.Pipeline, bindGroups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32)

	// EndFrame finishes the frame encoder and submits the command buffer to the GPU.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	Present()

	// ReadTexture copies a cached texture to the CPU and returns its tightly packed texel data.
	//
	// Parameters:
	//   - label: the cached texture label to read
	//
	// Returns:
	//   - []byte: the tightly packed texel data
	//   - TextureDesc: the descriptor the texture was allocated with
	//   - error: an error if the label is unknown or the copy fails
	ReadTexture(label string) ([]byte, TextureDesc, error)

	// Device returns the underlying GPU device.
	//
	// Returns:
	//   - *wgpu.Device: the device
	Device() *wgpu.Device

	// Release releases long-lived renderer resources. Called on shutdown.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer for the given window with all specified options applied.
// The GPU instance, adapter, device, and surface are created eagerly; a failure at this
// stage is unrecoverable and panics.
//
// Parameters:
//   - win: the window providing the surface descriptor
//   - backendType: the GPU backend to use (BackendTypeWGPU)
//   - opts: a variadic list of RendererBuilderOption functions to configure the renderer
//
// Returns:
//   - Renderer: a new Renderer instance with the provided configuration
func NewRenderer(win window.Window, backendType RendererBackendType, opts ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
	}
	for _, opt := range opts {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		r.backend = newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter)
	default:
		panic(fmt.Sprintf("unsupported renderer backend type: %d", backendType))
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	r.backend.ConfigureSurface(win.Width(), win.Height())

	return r
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	for _, p := range pipelines {
		r.mu.Lock()
		_, exists := r.pipelineCache[p.PipelineKey()]
		r.mu.Unlock()
		if exists {
			continue
		}

		var err error
		switch p.Type() {
		case pipeline.PipelineTypeRender:
			err = r.backend.RegisterRenderPipeline(p)
		case pipeline.PipelineTypeCompute:
			err = r.backend.RegisterComputePipeline(p)
		default:
			err = fmt.Errorf("unknown pipeline type %d", p.Type())
		}
		if err != nil {
			return fmt.Errorf("failed to register pipeline %q: %w", p.PipelineKey(), err)
		}

		r.mu.Lock()
		r.pipelineCache[p.PipelineKey()] = p
		r.mu.Unlock()
	}
	return nil
}

func (r *renderer) SetPipeline(key string, p pipeline.Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipelineCache[key] = p
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SurfaceFormat() wgpu.TextureFormat {
	return r.backend.SurfaceFormat()
}

func (r *renderer) SurfaceSize() (int, int) {
	return r.backend.SurfaceSize()
}

func (r *renderer) EnsureTexture(desc TextureDesc) (*wgpu.TextureView, bool, error) {
	return r.backend.EnsureTexture(desc)
}

func (r *renderer) CachedTextureView(label string) *wgpu.TextureView {
	return r.backend.CachedTextureView(label)
}

func (r *renderer) CreateMeshBuffers(label string, vertexData, indexData []byte) (*wgpu.Buffer, *wgpu.Buffer, error) {
	return r.backend.CreateMeshBuffers(label, vertexData, indexData)
}

func (r *renderer) CreateStorageBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	return r.backend.CreateStorageBuffer(label, data, usage)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	return r.backend.InitBindGroup(provider, bufferUsageOverrides, bufferSizeOverrides)
}

func (r *renderer) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	return r.backend.InitTextureView(provider, bindingKey, stagingData)
}

func (r *renderer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.SamplerStagingData) error {
	return r.backend.InitSampler(provider, bindingKey, stagingData)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.backend.WriteBuffers(writes)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) SurfaceView() *wgpu.TextureView {
	return r.backend.SurfaceView()
}

func (r *renderer) BeginRenderPass(config RenderPassConfig) error {
	return r.backend.BeginRenderPass(config)
}

func (r *renderer) DrawCall(p pipeline.Pipeline, draw Draw, bindGroups []bind_group_provider.BindGroupProvider, dynamicOffsets [][]uint32) {
	r.backend.DrawCall(p, draw, bindGroups, dynamicOffsets)
}

func (r *renderer) EndRenderPass() {
	r.backend.EndRenderPass()
}

func (r *renderer) DispatchCompute(p pipeline.Pipeline, bindGroups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) {
	r.backend.DispatchCompute(p, bindGroups, workGroupCount)
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) ReadTexture(label string) ([]byte, TextureDesc, error) {
	return r.backend.ReadTexture(label)
}

func (r *renderer) Device() *wgpu.Device {
	return r.backend.Device()
}

func (r *renderer) Release() {
	r.backend.ReleaseResources()
}
