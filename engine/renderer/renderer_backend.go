package renderer

import "github.com/cogentcore/webgpu/wgpu"

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// Draw describes a single indexed draw sourced from explicit GPU buffers.
type Draw struct {
	VertexBuffer *wgpu.Buffer
	IndexBuffer  *wgpu.Buffer
	// IndexCount is the index count for indexed draws; when IndexBuffer is
	// nil it is the vertex count instead (FirstIndex then means first vertex).
	IndexCount    uint32
	FirstIndex    uint32
	BaseVertex    int32
	InstanceCount uint32
}

// ColorAttachment configures one color target of a render pass. Load keeps the
// existing contents instead of clearing to ClearValue.
type ColorAttachment struct {
	View       *wgpu.TextureView
	Load       bool
	ClearValue wgpu.Color
}

// DepthAttachment configures the depth target of a render pass. The renderer
// uses reversed depth, so the conventional clear value is 0. Discard drops the
// depth contents after the pass for targets nothing samples later.
type DepthAttachment struct {
	View       *wgpu.TextureView
	Load       bool
	ClearValue float32
	Discard    bool
}

// RenderPassConfig describes a render pass for BeginRenderPass: its color
// attachments in order and an optional depth attachment.
type RenderPassConfig struct {
	Label            string
	ColorAttachments []ColorAttachment
	Depth            *DepthAttachment
}

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}
