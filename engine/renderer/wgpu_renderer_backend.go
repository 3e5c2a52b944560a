package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Gaeric/hikari-go/common"
	"github.com/Gaeric/hikari-go/engine/renderer/bind_group_provider"
	"github.com/Gaeric/hikari-go/engine/renderer/pipeline"
	"github.com/Gaeric/hikari-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	presentMode   wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)
	width, height int

	// textures owns the long-lived pass resources: G-buffer targets, reservoir
	// ping-pong textures, the radiance output. Keyed by label, reallocated on resize.
	textures *textureCache

	// Frame state for batching all pass encodings into a single GPU submission.
	frameEncoder *wgpu.CommandEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	activePass   *wgpu.RenderPassEncoder
}

type wgpuRendererBackend interface {
	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Instance() *wgpu.Instance
	Adapter() *wgpu.Adapter
	Surface() *wgpu.Surface
	SetDevice(device *wgpu.Device)
	SetQueue(queue *wgpu.Queue)
	SetInstance(instance *wgpu.Instance)
	SetAdapter(adapter *wgpu.Adapter)
	SetSurface(surface *wgpu.Surface)

	// ConfigureSurface is a wrapper for boilerplate logic required when calling ConfigureSurface on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// SurfaceFormat returns the configured swapchain texture format. Only valid
	// after the first ConfigureSurface call.
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

	// RegisterRenderPipeline is a high-level function that creates a render pipeline based on the provided pipeline.
	// It handles creating the shader modules, bind group layouts, pipeline layout, and render
	// pipeline based on the pipeline's declared configuration.
	//
	// Parameters:
	//   - p: the pipeline object containing the shaders and configuration for the pipeline
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// RegisterComputePipeline is a high-level function that creates a compute pipeline based on the provided pipeline.
	// It handles creating the shader module, bind group layouts, and compute pipeline based on
	// the pipeline's declared configuration.
	//
	// Parameters:
	//   - p: the pipeline object containing the shader and configuration for the pipeline
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterComputePipeline(p pipeline.Pipeline) error

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

	// CreateStorageBuffer creates a GPU buffer with the given usage and uploads
	// the initial data. Used for the flattened mesh, BVH, and material tables.
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

	// InitBindGroup creates GPU buffers and a bind group based on a BindGroupProvider's layout entries.
	// Texture and sampler bindings must already be staged on the provider; buffer bindings without a
	// staged buffer are created sized by MinBindingSize unless overridden.
	//
	// Parameters:
	//   - provider: the BindGroupProvider describing the layout entries and storage for the bind group
	//   - bufferUsageOverrides: a map of binding indices to extra buffer usage flags (nil safe)
	//   - bufferSizeOverrides: a map of binding indices to buffer sizes (nil safe)
	//
	// Returns:
	//   - error: an error if the bind group could not be initialized, otherwise nil
	InitBindGroup(provider bind_group_provider.BindGroupProvider, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// InitTextureView creates a GPU texture (2D or 2D array) and texture view from the provided
	// staging data, and stores the view on the given BindGroupProvider as an owned view.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created texture view on
	//   - bindingKey: the integer key identifying the bind group layout entry for this texture
	//   - stagingData: the TextureStagingData containing the raw texture data and metadata for creating the texture
	//
	// Returns:
	//   - error: an error if the texture view could not be created or initialized, otherwise nil
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error

	// InitSampler creates a GPU sampler based on the provided staging data, and stores it on the given BindGroupProvider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created sampler on
	//   - bindingKey: the integer key identifying the bind group layout entry for this sampler
	//   - samplerStagingData: the SamplerStagingData containing the configuration for creating the sampler
	//
	// Returns:
	//   - error: an error if the sampler could not be created or initialized, otherwise nil
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	// Each BufferWrite targets a specific buffer on a BindGroupProvider at a given binding and offset.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the next swapchain texture and creates the frame's command encoder.
	// Pass encodings (BeginRenderPass/DispatchCompute) happen between BeginFrame and EndFrame.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// SurfaceView returns the swapchain texture view acquired by BeginFrame, or nil
	// outside a frame. The final pass of the frame renders into this view.
	//
	// Returns:
	//   - *wgpu.TextureView: the swapchain view or nil
	SurfaceView() *wgpu.TextureView

	// BeginRenderPass starts a render pass with the given attachments on the frame encoder.
	// Must be paired with EndRenderPass. Only one render pass can be open at a time.
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
	//   - p: the cached Pipeline containing the compute pipeline to use for dispatching
	//   - bindGroups: BindGroupProviders whose BindGroups are set by slice index
	//   - workGroupCount: the number of workgroups to dispatch in the x, y, and z dimensions
	DispatchCompute(p pipeline.Pipeline, bindGroups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32)

	// EndFrame finishes the frame encoder and submits the command buffer to the GPU.
	// Does not present the surface — call Present() after EndFrame to display the frame.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	// Must be called once per frame after EndFrame.
	Present()

	// ReadTexture copies a cached texture to a mappable buffer, blocks until the
	// copy completes, and returns the raw texel bytes in row-major order with row
	// padding removed. Only valid outside an open frame.
	//
	// Parameters:
	//   - label: the cached texture label to read
	//
	// Returns:
	//   - []byte: the tightly packed texel data
	//   - TextureDesc: the descriptor the texture was allocated with
	//   - error: an error if the label is unknown or the copy fails
	ReadTexture(label string) ([]byte, TextureDesc, error)

	// ReleaseResources releases the texture cache. Called on shutdown.
	ReleaseResources()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
	}
	w.SetSurface(w.instance.CreateSurface(surfaceDescriptor))

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.SetAdapter(a)

	// Start from the WebGPU spec default limits and raise MaxBindGroups to 8 so
	// the direct light compute shader's 6 bind groups (0-5) are allowed, and
	// raise the storage buffer bound for large flattened scene tables.
	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 8
	limits.MaxStorageBuffersPerShaderStage = 8
	// The lighting pass writes seven reservoir storage textures per dispatch.
	limits.MaxStorageTexturesPerShaderStage = 8

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		panic(err)
	}
	w.SetDevice(d)
	w.SetQueue(d.GetQueue())

	w.textures = newTextureCache(w.createTexture)

	return w
}

// createTexture is the device-backed allocator handed to the texture cache.
func (b *wgpuRendererBackendImpl) createTexture(desc TextureDesc) (*wgpu.Texture, *wgpu.TextureView, error) {
	layers := desc.Layers
	if layers == 0 {
		layers = 1
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: layers,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create texture %q: %w", desc.Label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("failed to create texture view %q: %w", desc.Label, err)
	}
	return tex, view, nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]
	b.width = width
	b.height = height

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surfaceFormat == nil {
		return wgpu.TextureFormatUndefined
	}
	return *b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) SurfaceSize() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

func (b *wgpuRendererBackendImpl) EnsureTexture(desc TextureDesc) (*wgpu.TextureView, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.textures.Ensure(desc)
}

func (b *wgpuRendererBackendImpl) CachedTextureView(label string) *wgpu.TextureView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.textures.View(label)
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if p.Shader(shader.ShaderTypeVertex) == nil {
		return errors.New("a vertex shader must be set to create a render pipeline")
	}

	vertexShader := p.Shader(shader.ShaderTypeVertex)
	// A nil fragment shader is valid: depth-only pipelines (shadow pass) have
	// no color targets and no fragment stage.
	fragmentShader := p.Shader(shader.ShaderTypeFragment)

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return err
	}
	var fs *wgpu.ShaderModule
	if fragmentShader != nil {
		if fragmentShader.Key() == vertexShader.Key() {
			// Vertex and fragment entry points sharing one source compile once.
			fs = vs
		} else {
			fs, err = b.device.CreateShaderModule(fragmentShader.Module())
			if err != nil {
				return err
			}
		}
	}

	pipelineLayout, err := b.createPipelineLayout(p)
	if err != nil {
		return err
	}

	targets := make([]wgpu.ColorTargetState, 0, len(p.ColorTargets()))
	for _, t := range p.ColorTargets() {
		mask := t.WriteMask
		if mask == 0 {
			mask = wgpu.ColorWriteMaskAll
		}
		targets = append(targets, wgpu.ColorTargetState{
			Format:    t.Format,
			Blend:     t.Blend,
			WriteMask: mask,
		})
	}

	bias, slope := p.DepthBias()
	var depthStencil *wgpu.DepthStencilState
	if p.DepthFormat() != wgpu.TextureFormatUndefined {
		depthStencil = &wgpu.DepthStencilState{
			Format:              p.DepthFormat(),
			DepthWriteEnabled:   p.DepthWriteEnabled(),
			DepthCompare:        p.DepthCompare(),
			DepthBias:           bias,
			DepthBiasSlopeScale: slope,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	var fragmentState *wgpu.FragmentState
	if fragmentShader != nil {
		fragmentState = &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    targets,
		}
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    p.VertexLayouts(),
		},
		Fragment: fragmentState,
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		return err
	}

	p.SetRenderPipeline(created)

	return nil
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	if p.Shader(shader.ShaderTypeCompute) == nil {
		return errors.New("compute shader must be set to create a compute pipeline")
	}

	computeShader := p.Shader(shader.ShaderTypeCompute)
	s, err := b.device.CreateShaderModule(computeShader.Module())
	if err != nil {
		return err
	}

	layout, err := b.createPipelineLayout(p)
	if err != nil {
		return err
	}

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     s,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return err
	}

	p.SetComputePipeline(created)

	return nil
}

// createPipelineLayout creates the GPU bind group layouts declared on the
// pipeline, in group index order, and combines them into a pipeline layout.
func (b *wgpuRendererBackendImpl) createPipelineLayout(p pipeline.Pipeline) (*wgpu.PipelineLayout, error) {
	descriptors := p.BindGroupLayoutDescriptors()
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, len(descriptors))
	for g := range descriptors {
		layout, err := b.device.CreateBindGroupLayout(&descriptors[g])
		if err != nil {
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		bindGroupLayouts[g] = layout
	}

	return b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
}

func (b *wgpuRendererBackendImpl) CreateMeshBuffers(label string, vertexData, indexData []byte) (*wgpu.Buffer, *wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var vb, ib *wgpu.Buffer
	if len(vertexData) > 0 {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label + " Vertex Buffer",
			Size:  uint64(len(vertexData)),
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, nil, err
		}
		b.queue.WriteBuffer(buf, 0, vertexData)
		vb = buf
	}

	if len(indexData) > 0 {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label + " Index Buffer",
			Size:  uint64(len(indexData)),
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			if vb != nil {
				vb.Release()
			}
			return nil, nil, err
		}
		b.queue.WriteBuffer(buf, 0, indexData)
		ib = buf
	}

	return vb, ib, nil
}

func (b *wgpuRendererBackendImpl) CreateStorageBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, err
	}
	b.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := provider.LayoutEntries()
	if len(entries) == 0 {
		return nil
	}

	layout := provider.BindGroupLayout()
	if layout == nil {
		var err error
		layout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   provider.Label() + " Layout",
			Entries: entries,
		})
		if err != nil {
			return err
		}
		provider.SetBindGroupLayout(layout)
	}

	bindGroupEntries := make([]wgpu.BindGroupEntry, len(entries))
	for i, entry := range entries {
		binding := int(entry.Binding)

		isTexture := entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined ||
			entry.StorageTexture.Format != wgpu.TextureFormatUndefined
		isSampler := entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined

		switch {
		case isTexture:
			tv := provider.TextureView(binding)
			if tv == nil {
				return fmt.Errorf("texture binding %d has no texture view staged on %q", binding, provider.Label())
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding:     entry.Binding,
				TextureView: tv,
			}
		case isSampler:
			samp := provider.Sampler(binding)
			if samp == nil {
				return fmt.Errorf("sampler binding %d has no sampler staged on %q", binding, provider.Label())
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Sampler: samp,
			}
		default:
			// Buffer binding — create if not already present
			var usage wgpu.BufferUsage
			switch entry.Buffer.Type {
			case wgpu.BufferBindingTypeUniform:
				usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
			case wgpu.BufferBindingTypeStorage:
				usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
			case wgpu.BufferBindingTypeReadOnlyStorage:
				usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
			}
			if overrideUsage, ok := bufferUsageOverrides[binding]; ok {
				usage |= overrideUsage
			}

			buf := provider.Buffer(binding)
			if buf == nil {
				bufSize := entry.Buffer.MinBindingSize
				if overrideSize, ok := bufferSizeOverrides[binding]; ok {
					bufSize = overrideSize
				}
				created, bufErr := b.device.CreateBuffer(&wgpu.BufferDescriptor{
					Label: provider.Label() + " Buffer",
					Size:  bufSize,
					Usage: usage,
				})
				if bufErr != nil {
					return bufErr
				}
				buf = created
				provider.SetBuffer(binding, buf)
			}
			// Dynamic-offset bindings expose one element per draw; the rest of
			// the buffer is addressed through the offset.
			size := uint64(wgpu.WholeSize)
			if entry.Buffer.HasDynamicOffset {
				size = entry.Buffer.MinBindingSize
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  buf,
				Offset:  0,
				Size:    size,
			}
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: bindGroupEntries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)

	return nil
}

func (b *wgpuRendererBackendImpl) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	layers := stagingData.Layers
	if layers == 0 {
		layers = 1
	}
	format := wgpu.TextureFormatRGBA8Unorm
	if stagingData.SRGB {
		format = wgpu.TextureFormatRGBA8UnormSrgb
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     provider.Label() + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              stagingData.Width,
			Height:             stagingData.Height,
			DepthOrArrayLayers: layers,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		stagingData.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  stagingData.Width * 4,
			RowsPerImage: stagingData.Height,
		},
		&wgpu.Extent3D{
			Width:              stagingData.Width,
			Height:             stagingData.Height,
			DepthOrArrayLayers: layers,
		},
	)

	var viewDesc *wgpu.TextureViewDescriptor
	if layers > 1 || stagingData.ArrayView {
		viewDesc = &wgpu.TextureViewDescriptor{
			Label:           provider.Label() + " Texture View",
			Format:          format,
			Dimension:       wgpu.TextureViewDimension2DArray,
			MipLevelCount:   1,
			ArrayLayerCount: layers,
		}
	}
	view, err := tex.CreateView(viewDesc)
	if err != nil {
		tex.Release()
		return err
	}
	provider.SetTextureView(bindingKey, view, true)

	return nil
}

func (b *wgpuRendererBackendImpl) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         provider.Label() + " Sampler",
		AddressModeU:  common.Coalesce(samplerStagingData.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(samplerStagingData.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(samplerStagingData.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(samplerStagingData.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(samplerStagingData.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(samplerStagingData.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(samplerStagingData.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(samplerStagingData.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(samplerStagingData.MaxAnisotropy, 1),
		Compare:       samplerStagingData.Compare,
	})
	if err != nil {
		return err
	}
	provider.SetSampler(bindingKey, samp)

	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Defensive: if a previous frame's surface texture is still held, avoid
	// attempting to acquire another one. This prevents wgpu-native validation
	// errors like "Surface image is already acquired" when frames overlap.
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.frameEncoder = encoder
	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

func (b *wgpuRendererBackendImpl) SurfaceView() *wgpu.TextureView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frameView
}

func (b *wgpuRendererBackendImpl) BeginRenderPass(config RenderPassConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return errors.New("no frame open — call BeginFrame first")
	}
	if b.activePass != nil {
		return fmt.Errorf("render pass already open when beginning %q", config.Label)
	}

	colorAttachments := make([]wgpu.RenderPassColorAttachment, 0, len(config.ColorAttachments))
	for _, ca := range config.ColorAttachments {
		loadOp := wgpu.LoadOpClear
		if ca.Load {
			loadOp = wgpu.LoadOpLoad
		}
		colorAttachments = append(colorAttachments, wgpu.RenderPassColorAttachment{
			View:       ca.View,
			LoadOp:     loadOp,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: ca.ClearValue,
		})
	}

	var depthAttachment *wgpu.RenderPassDepthStencilAttachment
	if config.Depth != nil {
		loadOp := wgpu.LoadOpClear
		if config.Depth.Load {
			loadOp = wgpu.LoadOpLoad
		}
		storeOp := wgpu.StoreOpStore
		if config.Depth.Discard {
			storeOp = wgpu.StoreOpDiscard
		}
		depthAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            config.Depth.View,
			DepthLoadOp:     loadOp,
			DepthStoreOp:    storeOp,
			DepthClearValue: config.Depth.ClearValue,
		}
	}

	b.activePass = b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:                  config.Label,
		ColorAttachments:       colorAttachments,
		DepthStencilAttachment: depthAttachment,
	})
	return nil
}

func (b *wgpuRendererBackendImpl) DrawCall(
	p pipeline.Pipeline,
	draw Draw,
	bindGroups []bind_group_provider.BindGroupProvider,
	dynamicOffsets [][]uint32,
) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.activePass == nil {
		return
	}

	renderPipeline := p.Pipeline().(*wgpu.RenderPipeline)
	b.activePass.SetPipeline(renderPipeline)

	for i, bg := range bindGroups {
		var offsets []uint32
		if i < len(dynamicOffsets) {
			offsets = dynamicOffsets[i]
		}
		b.activePass.SetBindGroup(uint32(i), bg.BindGroup(), offsets)
	}

	if draw.VertexBuffer != nil {
		b.activePass.SetVertexBuffer(0, draw.VertexBuffer, 0, wgpu.WholeSize)
	}
	if draw.IndexBuffer != nil {
		b.activePass.SetIndexBuffer(draw.IndexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		b.activePass.DrawIndexed(draw.IndexCount, draw.InstanceCount, draw.FirstIndex, draw.BaseVertex, 0)
	} else {
		b.activePass.Draw(draw.IndexCount, draw.InstanceCount, draw.FirstIndex, 0)
	}
}

func (b *wgpuRendererBackendImpl) EndRenderPass() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.activePass == nil {
		return
	}
	b.activePass.End()
	b.activePass = nil
}

func (b *wgpuRendererBackendImpl) DispatchCompute(
	p pipeline.Pipeline,
	bindGroups []bind_group_provider.BindGroupProvider,
	workGroupCount [3]uint32,
) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return
	}

	computePipeline := p.Pipeline().(*wgpu.ComputePipeline)

	pass := b.frameEncoder.BeginComputePass(nil)
	pass.SetPipeline(computePipeline)
	for i, bg := range bindGroups {
		pass.SetBindGroup(uint32(i), bg.BindGroup(), nil)
	}
	pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	pass.End()
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return
	}
	if b.activePass != nil {
		b.activePass.End()
		b.activePass = nil
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.frameSurface = nil
		b.frameView = nil
		return
	}

	b.queue.Submit(commandBuffer)

	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	// If no frame surface is held, nothing to present.
	if b.frameSurface == nil {
		return
	}

	// Present the acquired surface image and release local references.
	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackendImpl) ReadTexture(label string) ([]byte, TextureDesc, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder != nil {
		return nil, TextureDesc{}, errors.New("cannot read textures while a frame is open")
	}

	tex := b.textures.Texture(label)
	desc, ok := b.textures.Desc(label)
	if tex == nil || !ok {
		return nil, TextureDesc{}, fmt.Errorf("unknown cached texture %q", label)
	}

	bytesPerPixel := texelSize(desc.Format)
	if bytesPerPixel == 0 {
		return nil, TextureDesc{}, fmt.Errorf("unsupported readback format for %q", label)
	}

	// Buffer copies require BytesPerRow aligned to 256.
	unpadded := desc.Width * bytesPerPixel
	padded := uint32(common.AlignUp(uint64(unpadded), 256))
	size := uint64(padded) * uint64(desc.Height)

	readback, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Readback",
		Size:  size,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, TextureDesc{}, err
	}
	defer readback.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, TextureDesc{}, err
	}
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture: tex,
			Aspect:  wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: readback,
			Layout: wgpu.TextureDataLayout{
				BytesPerRow:  padded,
				RowsPerImage: desc.Height,
			},
		},
		&wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
	)
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return nil, TextureDesc{}, err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()

	var mapErr error
	done := false
	err = readback.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("buffer map failed with status %v", status)
		}
		done = true
	})
	if err != nil {
		return nil, TextureDesc{}, err
	}
	for !done {
		b.device.Poll(true, nil)
	}
	if mapErr != nil {
		return nil, TextureDesc{}, mapErr
	}
	defer readback.Unmap()

	mapped := readback.GetMappedRange(0, uint(size))
	out := make([]byte, uint64(unpadded)*uint64(desc.Height))
	for row := uint32(0); row < desc.Height; row++ {
		copy(out[row*unpadded:(row+1)*unpadded], mapped[row*padded:row*padded+unpadded])
	}

	return out, desc, nil
}

// texelSize returns bytes per texel for formats the readback path supports.
func texelSize(format wgpu.TextureFormat) uint32 {
	switch format {
	case wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8UnormSrgb, wgpu.TextureFormatRGBA8Snorm:
		return 4
	case wgpu.TextureFormatRGBA16Float:
		return 8
	case wgpu.TextureFormatRGBA32Float:
		return 16
	default:
		return 0
	}
}

func (b *wgpuRendererBackendImpl) ReleaseResources() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.textures.ReleaseAll()
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Instance() *wgpu.Instance {
	return b.instance
}

func (b *wgpuRendererBackendImpl) Adapter() *wgpu.Adapter {
	return b.adapter
}

func (b *wgpuRendererBackendImpl) Surface() *wgpu.Surface {
	return b.surface
}

func (b *wgpuRendererBackendImpl) SetDevice(device *wgpu.Device) {
	b.device = device
}

func (b *wgpuRendererBackendImpl) SetQueue(queue *wgpu.Queue) {
	b.queue = queue
}

func (b *wgpuRendererBackendImpl) SetInstance(instance *wgpu.Instance) {
	b.instance = instance
}

func (b *wgpuRendererBackendImpl) SetAdapter(adapter *wgpu.Adapter) {
	b.adapter = adapter
}

func (b *wgpuRendererBackendImpl) SetSurface(surface *wgpu.Surface) {
	b.surface = surface
}
