package light

import (
	"fmt"
	"log"

	"github.com/Gaeric/hikari-go/assets/shaders"
	"github.com/Gaeric/hikari-go/engine/graph"
	"github.com/Gaeric/hikari-go/engine/mesh"
	"github.com/Gaeric/hikari-go/engine/renderer"
	"github.com/Gaeric/hikari-go/engine/renderer/bind_group_provider"
	"github.com/Gaeric/hikari-go/engine/renderer/pipeline"
	"github.com/Gaeric/hikari-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ShadowNodeName is the shadow pass's render graph node name.
const ShadowNodeName = "shadow"

// ShadowPipelineKey identifies the depth-only shadow pipeline in the renderer cache.
const ShadowPipelineKey = "shadow"

// ShadowMapLabel is the texture cache label the lighting pass binds the shadow map by.
const ShadowMapLabel = "shadow_map"

// shadowNode rasterizes every mesh instance into the directional light's
// shadow map with a vertex-only pipeline.
type shadowNode struct {
	r       renderer.Renderer
	light   DirectionalLight
	storage mesh.Storage
	buffers mesh.BufferCache

	lightProvider    bind_group_provider.BindGroupProvider
	instanceProvider bind_group_provider.BindGroupProvider

	maxInstances int
}

var _ graph.Node = &shadowNode{}

// NewShadowNode creates the shadow pass node: compiles the depth-only shadow
// shader, registers a render pipeline with no fragment stage, and allocates
// the light and per-instance uniform buffers.
//
// Parameters:
//   - r: the renderer
//   - light: the directional light casting the shadow
//   - storage: the mesh storage instances reference
//   - buffers: the shared raster buffer cache
//   - maxInstances: dynamic-offset uniform capacity (0 = a default of 256)
//
// Returns:
//   - graph.Node: the shadow pass node
//   - error: an error if pipeline or bind group creation fails
func NewShadowNode(r renderer.Renderer, light DirectionalLight, storage mesh.Storage, buffers mesh.BufferCache, maxInstances int) (graph.Node, error) {
	if maxInstances <= 0 {
		maxInstances = 256
	}

	vs := shader.NewShader(ShadowPipelineKey, shader.ShaderTypeVertex, shaders.ShadowSource)

	lightProvider := bind_group_provider.NewBindGroupProvider("shadow light",
		bind_group_provider.WithLayoutEntries(
			wgpu.BindGroupLayoutEntry{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uint64((&GpuDirectionalLight{}).Size()),
				},
			},
		),
	)

	instanceProvider := bind_group_provider.NewBindGroupProvider("shadow instance",
		bind_group_provider.WithLayoutEntries(
			wgpu.BindGroupLayoutEntry{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   mesh.InstanceUniformSize,
				},
			},
		),
	)

	// Orthographic depth here runs [0, 1] near to far, so closer fragments
	// win with LessEqual and the map clears to the far plane.
	p := pipeline.NewPipeline(ShadowPipelineKey, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithBindGroupLayouts(
			wgpu.BindGroupLayoutDescriptor{Label: "shadow light layout", Entries: lightProvider.LayoutEntries()},
			wgpu.BindGroupLayoutDescriptor{Label: "shadow instance layout", Entries: instanceProvider.LayoutEntries()},
		),
		pipeline.WithVertexLayouts(mesh.VertexLayout()),
		pipeline.WithDepthFormat(wgpu.TextureFormatDepth32Float, wgpu.CompareFunctionLessEqual),
		pipeline.WithDepthBias(2, 2.0),
		pipeline.WithCullMode(wgpu.CullModeFront),
	)
	if err := r.RegisterPipelines(p); err != nil {
		return nil, fmt.Errorf("failed to register shadow pipeline: %w", err)
	}

	if err := r.InitBindGroup(lightProvider, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to init shadow light bind group: %w", err)
	}
	if err := r.InitBindGroup(instanceProvider, nil, map[int]uint64{
		0: uint64(mesh.InstanceUniformStride * maxInstances),
	}); err != nil {
		return nil, fmt.Errorf("failed to init shadow instance bind group: %w", err)
	}

	return &shadowNode{
		r:                r,
		light:            light,
		storage:          storage,
		buffers:          buffers,
		lightProvider:    lightProvider,
		instanceProvider: instanceProvider,
		maxInstances:     maxInstances,
	}, nil
}

// ShadowMapDesc returns the shadow map texture descriptor.
//
// Returns:
//   - renderer.TextureDesc: the depth texture descriptor for the shadow map
func ShadowMapDesc() renderer.TextureDesc {
	return renderer.TextureDesc{
		Label:  ShadowMapLabel,
		Width:  ShadowMapResolution,
		Height: ShadowMapResolution,
		Layers: 1,
		Format: wgpu.TextureFormatDepth32Float,
		Usage:  wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	}
}

func (n *shadowNode) Name() string {
	return ShadowNodeName
}

func (n *shadowNode) Run(ctx graph.FrameContext) error {
	depthView, _, err := n.r.EnsureTexture(ShadowMapDesc())
	if err != nil {
		return fmt.Errorf("failed to ensure shadow map: %w", err)
	}

	uniform := n.light.Uniform(ctx.View.Target())
	writes := []bind_group_provider.BufferWrite{
		{Provider: n.lightProvider, Binding: 0, Data: uniform.Marshal()},
	}

	// The shadow frustum covers the whole focus region, so every instance
	// draws; only the uniform budget bounds the pass.
	type drawCall struct {
		buffers *mesh.Buffers
		offset  uint32
	}
	var draws []drawCall

	for _, inst := range n.storage.Instances() {
		if len(draws) >= n.maxInstances {
			log.Printf("shadow: instance budget %d exceeded, dropping remaining instances", n.maxInstances)
			break
		}

		buffers, err := n.buffers.Ensure(inst.Mesh)
		if err != nil {
			log.Printf("shadow: %v, skipping instance", err)
			continue
		}

		instUniform := mesh.GpuInstanceUniform{
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
			Data:     instUniform.Marshal(),
		})
		draws = append(draws, drawCall{buffers: buffers, offset: offset})
	}

	n.r.WriteBuffers(writes)

	err = n.r.BeginRenderPass(renderer.RenderPassConfig{
		Label: "shadow",
		Depth: &renderer.DepthAttachment{View: depthView, ClearValue: 1.0},
	})
	if err != nil {
		return fmt.Errorf("failed to begin shadow pass: %w", err)
	}

	p := n.r.Pipeline(ShadowPipelineKey)
	for _, d := range draws {
		n.r.DrawCall(p,
			renderer.Draw{
				VertexBuffer:  d.buffers.Vertex,
				IndexBuffer:   d.buffers.Index,
				IndexCount:    d.buffers.IndexCount,
				InstanceCount: 1,
			},
			[]bind_group_provider.BindGroupProvider{n.lightProvider, n.instanceProvider},
			[][]uint32{nil, {d.offset}},
		)
	}

	n.r.EndRenderPass()
	return nil
}
