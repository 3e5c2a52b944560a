// Package overlay implements the final presentation pass: a full-screen
// triangle strip that tone maps the lighting pass's radiance estimate and
// alpha-blends it onto the surface.
package overlay

import (
	"fmt"
	"log"

	"github.com/Gaeric/hikari-go/assets/shaders"
	"github.com/Gaeric/hikari-go/common"
	"github.com/Gaeric/hikari-go/engine/graph"
	"github.com/Gaeric/hikari-go/engine/light"
	"github.com/Gaeric/hikari-go/engine/renderer"
	"github.com/Gaeric/hikari-go/engine/renderer/bind_group_provider"
	"github.com/Gaeric/hikari-go/engine/renderer/pipeline"
	"github.com/Gaeric/hikari-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// NodeName is the overlay pass's render graph node name.
const NodeName = "overlay"

// PipelineKey identifies the overlay render pipeline in the renderer cache.
const PipelineKey = "overlay"

// node is the implementation of the overlay graph node. It keeps one bind
// group per reservoir set since the radiance texture ping-pongs every frame.
type node struct {
	r renderer.Renderer

	providers [2]bind_group_provider.BindGroupProvider
	views     [2]*wgpu.TextureView
}

var _ graph.Node = &node{}

// NewNode creates the overlay node: compiles the full-screen overlay shader
// and registers the alpha-blended render pipeline against the surface format.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - graph.Node: the overlay node
//   - error: an error if pipeline or sampler creation fails
func NewNode(r renderer.Renderer) (graph.Node, error) {
	vs := shader.NewShader(PipelineKey, shader.ShaderTypeVertex, shaders.OverlaySource)
	fs := shader.NewShader(PipelineKey, shader.ShaderTypeFragment, shaders.OverlaySource)

	var providers [2]bind_group_provider.BindGroupProvider
	for i := range providers {
		providers[i] = bind_group_provider.NewBindGroupProvider(
			fmt.Sprintf("overlay radiance %d", i),
			bind_group_provider.WithLayoutEntries(
				wgpu.BindGroupLayoutEntry{
					Binding:    0,
					Visibility: wgpu.ShaderStageFragment,
					Texture: wgpu.TextureBindingLayout{
						SampleType:    wgpu.TextureSampleTypeFloat,
						ViewDimension: wgpu.TextureViewDimension2D,
					},
				},
				wgpu.BindGroupLayoutEntry{
					Binding:    1,
					Visibility: wgpu.ShaderStageFragment,
					Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
				},
			),
		)
		if err := r.InitSampler(providers[i], 1, common.SamplerStagingData{
			AddressModeU: wgpu.AddressModeClampToEdge,
			AddressModeV: wgpu.AddressModeClampToEdge,
		}); err != nil {
			return nil, fmt.Errorf("failed to init overlay sampler: %w", err)
		}
	}

	p := pipeline.NewPipeline(PipelineKey, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithBindGroupLayouts(
			wgpu.BindGroupLayoutDescriptor{Label: "overlay layout", Entries: providers[0].LayoutEntries()},
		),
		pipeline.WithTopology(wgpu.PrimitiveTopologyTriangleStrip),
		pipeline.WithColorTargets(pipeline.ColorTarget{
			Format: r.SurfaceFormat(),
			Blend: &wgpu.BlendState{
				Color: wgpu.BlendComponent{
					SrcFactor: wgpu.BlendFactorSrcAlpha,
					DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
					Operation: wgpu.BlendOperationAdd,
				},
				Alpha: wgpu.BlendComponent{
					SrcFactor: wgpu.BlendFactorOne,
					DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
					Operation: wgpu.BlendOperationAdd,
				},
			},
		}),
	)
	if err := r.RegisterPipelines(p); err != nil {
		return nil, fmt.Errorf("failed to register overlay pipeline: %w", err)
	}

	return &node{r: r, providers: providers}, nil
}

func (n *node) Name() string {
	return NodeName
}

func (n *node) Run(ctx graph.FrameContext) error {
	current := ctx.Frame.CurrentReservoirIndex()

	view := n.r.CachedTextureView(light.RadianceLabel(current))
	if view == nil {
		log.Printf("overlay: radiance texture not rendered yet, skipping")
		return nil
	}
	if view != n.views[current] {
		n.views[current] = view
		n.providers[current].SetTextureView(0, view, false)
		if err := n.r.InitBindGroup(n.providers[current], nil, nil); err != nil {
			return fmt.Errorf("failed to init overlay bind group: %w", err)
		}
	}

	surface := n.r.SurfaceView()
	if surface == nil {
		return fmt.Errorf("no surface view, frame not begun")
	}

	err := n.r.BeginRenderPass(renderer.RenderPassConfig{
		Label: "overlay",
		ColorAttachments: []renderer.ColorAttachment{
			{View: surface, ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to begin overlay pass: %w", err)
	}

	n.r.DrawCall(n.r.Pipeline(PipelineKey),
		renderer.Draw{IndexCount: 4, InstanceCount: 1},
		[]bind_group_provider.BindGroupProvider{n.providers[current]},
		nil,
	)

	n.r.EndRenderPass()
	return nil
}
