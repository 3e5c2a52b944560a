// Package prepass implements the geometry prepass: opaque instances are
// rasterized into the G-buffer MRT set (world position, world normal, packed
// instance/material indices, motion vector + UV, reversed-Z depth) that the
// lighting pass reconstructs surfaces from.
package prepass

import (
	"fmt"
	"log"

	"github.com/Gaeric/hikari-go/assets/shaders"
	"github.com/Gaeric/hikari-go/common"
	"github.com/Gaeric/hikari-go/engine/graph"
	"github.com/Gaeric/hikari-go/engine/mesh"
	"github.com/Gaeric/hikari-go/engine/renderer"
	"github.com/Gaeric/hikari-go/engine/renderer/bind_group_provider"
	"github.com/Gaeric/hikari-go/engine/renderer/pipeline"
	"github.com/Gaeric/hikari-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// NodeName is the prepass's render graph node name.
const NodeName = "prepass"

// PipelineKey identifies the prepass render pipeline in the renderer cache.
const PipelineKey = "prepass"

// G-buffer texture cache labels. The lighting pass binds these by label.
const (
	PositionLabel         = "prepass_position"
	NormalLabel           = "prepass_normal"
	InstanceMaterialLabel = "prepass_instance_material"
	VelocityUVLabel       = "prepass_velocity_uv"
	DepthLabel            = "prepass_depth"
)

// DefaultMaxInstances bounds the per-frame dynamic-offset uniform buffer.
const DefaultMaxInstances = 256

// node is the implementation of the prepass graph node.
type node struct {
	r       renderer.Renderer
	storage mesh.Storage
	buffers mesh.BufferCache

	viewProvider     bind_group_provider.BindGroupProvider
	instanceProvider bind_group_provider.BindGroupProvider

	maxInstances int
}

var _ graph.Node = &node{}

// NewNode creates the prepass node: compiles the prepass shader, registers the
// MRT render pipeline, and allocates the view and per-instance uniform buffers.
//
// Parameters:
//   - r: the renderer
//   - storage: the mesh storage instances reference
//   - buffers: the shared raster buffer cache
//   - maxInstances: dynamic-offset uniform capacity (0 = DefaultMaxInstances)
//
// Returns:
//   - graph.Node: the prepass node
//   - error: an error if pipeline or bind group creation fails
func NewNode(r renderer.Renderer, storage mesh.Storage, buffers mesh.BufferCache, maxInstances int) (graph.Node, error) {
	if maxInstances <= 0 {
		maxInstances = DefaultMaxInstances
	}

	vs := shader.NewShader(PipelineKey, shader.ShaderTypeVertex, shaders.PrepassSource)
	fs := shader.NewShader(PipelineKey, shader.ShaderTypeFragment, shaders.PrepassSource)

	viewProvider := bind_group_provider.NewBindGroupProvider("prepass view",
		bind_group_provider.WithLayoutEntries(
			wgpu.BindGroupLayoutEntry{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: 416,
				},
			},
			wgpu.BindGroupLayoutEntry{
				Binding:    1,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: 128,
				},
			},
		),
	)

	instanceProvider := bind_group_provider.NewBindGroupProvider("prepass instance",
		bind_group_provider.WithLayoutEntries(
			wgpu.BindGroupLayoutEntry{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   mesh.InstanceUniformSize,
				},
			},
		),
	)

	p := pipeline.NewPipeline(PipelineKey, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithBindGroupLayouts(
			wgpu.BindGroupLayoutDescriptor{Label: "prepass view layout", Entries: viewProvider.LayoutEntries()},
			wgpu.BindGroupLayoutDescriptor{Label: "prepass instance layout", Entries: instanceProvider.LayoutEntries()},
		),
		pipeline.WithVertexLayouts(mesh.VertexLayout()),
		pipeline.WithColorTargets(
			pipeline.ColorTarget{Format: wgpu.TextureFormatRGBA32Float},
			pipeline.ColorTarget{Format: wgpu.TextureFormatRGBA8Snorm},
			pipeline.ColorTarget{Format: wgpu.TextureFormatRG16Uint},
			pipeline.ColorTarget{Format: wgpu.TextureFormat(wgpu.NativeTextureFormatRgba16Snorm)},
		),
		pipeline.WithDepthFormat(wgpu.TextureFormatDepth32Float, wgpu.CompareFunctionGreaterEqual),
	)
	if err := r.RegisterPipelines(p); err != nil {
		return nil, fmt.Errorf("failed to register prepass pipeline: %w", err)
	}

	if err := r.InitBindGroup(viewProvider, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to init prepass view bind group: %w", err)
	}
	if err := r.InitBindGroup(instanceProvider, nil, map[int]uint64{
		0: uint64(mesh.InstanceUniformStride * maxInstances),
	}); err != nil {
		return nil, fmt.Errorf("failed to init prepass instance bind group: %w", err)
	}

	return &node{
		r:                r,
		storage:          storage,
		buffers:          buffers,
		viewProvider:     viewProvider,
		instanceProvider: instanceProvider,
		maxInstances:     maxInstances,
	}, nil
}

// Targets returns the G-buffer texture descriptors for the given surface size.
//
// Parameters:
//   - width: surface width in pixels
//   - height: surface height in pixels
//
// Returns:
//   - []renderer.TextureDesc: the five G-buffer descriptors
func Targets(width, height int) []renderer.TextureDesc {
	usage := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	w, h := uint32(width), uint32(height)
	return []renderer.TextureDesc{
		{Label: PositionLabel, Width: w, Height: h, Layers: 1, Format: wgpu.TextureFormatRGBA32Float, Usage: usage},
		{Label: NormalLabel, Width: w, Height: h, Layers: 1, Format: wgpu.TextureFormatRGBA8Snorm, Usage: usage},
		{Label: InstanceMaterialLabel, Width: w, Height: h, Layers: 1, Format: wgpu.TextureFormatRG16Uint, Usage: usage},
		{Label: VelocityUVLabel, Width: w, Height: h, Layers: 1, Format: wgpu.TextureFormat(wgpu.NativeTextureFormatRgba16Snorm), Usage: usage},
		{Label: DepthLabel, Width: w, Height: h, Layers: 1, Format: wgpu.TextureFormatDepth32Float, Usage: usage},
	}
}

func (n *node) Name() string {
	return NodeName
}

func (n *node) Run(ctx graph.FrameContext) error {
	width, height := n.r.SurfaceSize()

	views := make([]*wgpu.TextureView, 0, 5)
	for _, desc := range Targets(width, height) {
		view, _, err := n.r.EnsureTexture(desc)
		if err != nil {
			return fmt.Errorf("failed to ensure G-buffer target %q: %w", desc.Label, err)
		}
		views = append(views, view)
	}

	gpuView := ctx.View.GpuView()
	gpuPrevious := ctx.View.GpuPreviousView()
	writes := []bind_group_provider.BufferWrite{
		{Provider: n.viewProvider, Binding: 0, Data: gpuView.Marshal()},
		{Provider: n.viewProvider, Binding: 1, Data: gpuPrevious.Marshal()},
	}

	// Cull against the current view frustum and stage per-instance uniforms.
	frustum := common.ExtractFrustum(gpuView.ViewProj)
	type drawCall struct {
		buffers *mesh.Buffers
		offset  uint32
	}
	var draws []drawCall

	for _, inst := range n.storage.Instances() {
		if len(draws) >= n.maxInstances {
			log.Printf("prepass: instance budget %d exceeded, dropping remaining instances", n.maxInstances)
			break
		}

		m := n.storage.Mesh(inst.Mesh)
		if m == nil {
			log.Printf("prepass: instance references unknown mesh id %d, skipping", inst.Mesh)
			continue
		}
		localMin, localMax := m.Bounds()
		min, max := common.TransformAABB(localMin, localMax, inst.Transform)
		if !frustum.IntersectsAABB(min, max) {
			continue
		}

		buffers, err := n.buffers.Ensure(inst.Mesh)
		if err != nil {
			log.Printf("prepass: %v, skipping instance", err)
			continue
		}

		uniform := mesh.GpuInstanceUniform{
			Transform:         inst.Transform,
			PreviousTransform: inst.PreviousTransform,
			InstanceIndex:     uint32(len(draws)),
			MaterialIndex:     inst.MaterialIndex,
		}
		offset := uint32(len(draws) * mesh.InstanceUniformStride)
		writes = append(writes, bind_group_provider.BufferWrite{
			Provider: n.instanceProvider,
			Binding:  0,
			Offset:   uint64(offset),
			Data:     uniform.Marshal(),
		})
		draws = append(draws, drawCall{buffers: buffers, offset: offset})
	}

	n.r.WriteBuffers(writes)

	err := n.r.BeginRenderPass(renderer.RenderPassConfig{
		Label: "prepass",
		ColorAttachments: []renderer.ColorAttachment{
			{View: views[0]},
			{View: views[1]},
			{View: views[2]},
			{View: views[3]},
		},
		Depth: &renderer.DepthAttachment{View: views[4], ClearValue: 0.0},
	})
	if err != nil {
		return fmt.Errorf("failed to begin prepass: %w", err)
	}

	p := n.r.Pipeline(PipelineKey)
	for _, d := range draws {
		n.r.DrawCall(p,
			renderer.Draw{
				VertexBuffer:  d.buffers.Vertex,
				IndexBuffer:   d.buffers.Index,
				IndexCount:    d.buffers.IndexCount,
				InstanceCount: 1,
			},
			[]bind_group_provider.BindGroupProvider{n.viewProvider, n.instanceProvider},
			[][]uint32{nil, {d.offset}},
		)
	}

	n.r.EndRenderPass()
	return nil
}
