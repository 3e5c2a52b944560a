package light

import (
	"fmt"
	"log"

	"github.com/Gaeric/hikari-go/assets/shaders"
	"github.com/Gaeric/hikari-go/common"
	"github.com/Gaeric/hikari-go/engine/frame"
	"github.com/Gaeric/hikari-go/engine/graph"
	"github.com/Gaeric/hikari-go/engine/material"
	"github.com/Gaeric/hikari-go/engine/mesh"
	"github.com/Gaeric/hikari-go/engine/prepass"
	"github.com/Gaeric/hikari-go/engine/renderer"
	"github.com/Gaeric/hikari-go/engine/renderer/bind_group_provider"
	"github.com/Gaeric/hikari-go/engine/renderer/pipeline"
	"github.com/Gaeric/hikari-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// NodeName is the lighting pass's render graph node name.
const NodeName = "light"

// PipelineKey identifies the lighting compute pipeline in the renderer cache.
const PipelineKey = "light"

// workgroupSize matches the @workgroup_size attribute of the lighting shader.
const workgroupSize = 8

// reservoirTextureCount is the number of textures in one reservoir set.
const reservoirTextureCount = 7

// RadianceLabel returns the texture cache label of the shaded radiance output
// for a reservoir set. The overlay pass binds the current frame's set.
//
// Parameters:
//   - index: the reservoir set index, 0 or 1
//
// Returns:
//   - string: the texture cache label
func RadianceLabel(index int) string {
	return fmt.Sprintf("light_radiance_%d", index)
}

// ReservoirTargets returns the texture descriptors for one of the two
// ping-pong reservoir sets. The order matches the lighting shader's sampled
// and storage bindings: packed reservoir, radiance, random, visible position,
// visible normal, sample position, sample normal.
//
// Parameters:
//   - index: the reservoir set index, 0 or 1
//   - width: surface width in pixels
//   - height: surface height in pixels
//
// Returns:
//   - []renderer.TextureDesc: the seven reservoir texture descriptors
func ReservoirTargets(index, width, height int) []renderer.TextureDesc {
	usage := wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding
	// Radiance is the only reservoir texture the capture path copies out.
	radianceUsage := usage | wgpu.TextureUsageCopySrc
	w, h := uint32(width), uint32(height)
	label := func(name string) string { return fmt.Sprintf("light_%s_%d", name, index) }
	return []renderer.TextureDesc{
		{Label: label("reservoir"), Width: w, Height: h, Layers: 1, Format: wgpu.TextureFormatRGBA16Float, Usage: usage},
		{Label: RadianceLabel(index), Width: w, Height: h, Layers: 1, Format: wgpu.TextureFormatRGBA16Float, Usage: radianceUsage},
		{Label: label("random"), Width: w, Height: h, Layers: 1, Format: wgpu.TextureFormatRGBA16Float, Usage: usage},
		{Label: label("visible_position"), Width: w, Height: h, Layers: 1, Format: wgpu.TextureFormatRGBA32Float, Usage: usage},
		{Label: label("visible_normal"), Width: w, Height: h, Layers: 1, Format: wgpu.TextureFormatRGBA8Snorm, Usage: usage},
		{Label: label("sample_position"), Width: w, Height: h, Layers: 1, Format: wgpu.TextureFormatRGBA32Float, Usage: usage},
		{Label: label("sample_normal"), Width: w, Height: h, Layers: 1, Format: wgpu.TextureFormatRGBA8Snorm, Usage: usage},
	}
}

// Node is the lighting compute graph node. Beyond the graph contract it
// accepts the blue noise bank upload the shader needs before it can run.
type Node interface {
	graph.Node

	// SetNoiseBank uploads the blue noise texture array the lighting shader
	// draws random numbers from. The node skips dispatching until this is set.
	//
	// Parameters:
	//   - bank: the stacked noise layers, from noise.LoadBank
	//
	// Returns:
	//   - error: an error if the texture upload fails
	SetNoiseBank(bank common.TextureStagingData) error
}

// node is the implementation of the lighting compute graph node. It owns the
// six bind groups the lighting shader declares and rebuilds each one lazily
// when the resources behind it change: G-buffer views on resize, geometry
// buffers on scene extraction, reservoir sets on reallocation.
type node struct {
	r         renderer.Renderer
	light     DirectionalLight
	meshes    mesh.Storage
	materials material.Storage

	uniforms  bind_group_provider.BindGroupProvider
	gbuffer   bind_group_provider.BindGroupProvider
	geometry  bind_group_provider.BindGroupProvider
	textures  bind_group_provider.BindGroupProvider
	frameData bind_group_provider.BindGroupProvider
	render    [2]bind_group_provider.BindGroupProvider

	gbufferViews   [5]*wgpu.TextureView
	shadowView     *wgpu.TextureView
	reservoirViews [2][reservoirTextureCount]*wgpu.TextureView

	instanceCapacity int
	frameDirty       bool
	renderDirty      bool
	skipLogged       bool
}

var _ Node = &node{}

// gbufferLabels lists the prepass targets in shader binding order.
var gbufferLabels = [5]string{
	prepass.PositionLabel,
	prepass.NormalLabel,
	prepass.InstanceMaterialLabel,
	prepass.VelocityUVLabel,
	prepass.DepthLabel,
}

// reservoirStorageFormats lists the storage binding formats in set order.
var reservoirStorageFormats = [reservoirTextureCount]wgpu.TextureFormat{
	wgpu.TextureFormatRGBA16Float,
	wgpu.TextureFormatRGBA16Float,
	wgpu.TextureFormatRGBA16Float,
	wgpu.TextureFormatRGBA32Float,
	wgpu.TextureFormatRGBA8Snorm,
	wgpu.TextureFormatRGBA32Float,
	wgpu.TextureFormatRGBA8Snorm,
}

// NewNode creates the lighting compute node: compiles the lighting shader,
// registers the compute pipeline against the six bind group layouts, and
// allocates the uniform buffers and samplers that never change. Texture and
// geometry bind groups are built on the first frame their resources exist.
//
// Parameters:
//   - r: the renderer
//   - light: the directional light
//   - meshes: the mesh storage the scene extracts into
//   - materials: the material storage the scene extracts into
//
// Returns:
//   - Node: the lighting node
//   - error: an error if pipeline or resource creation fails
func NewNode(r renderer.Renderer, light DirectionalLight, meshes mesh.Storage, materials material.Storage) (Node, error) {
	cs := shader.NewShader(PipelineKey, shader.ShaderTypeCompute, shaders.LightSource)

	uniforms := bind_group_provider.NewBindGroupProvider("light uniforms",
		bind_group_provider.WithLayoutEntries(
			uniformEntry(0, 416),
			uniformEntry(1, 128),
			uniformEntry(2, uint64((&GpuDirectionalLight{}).Size())),
		),
	)

	gbuffer := bind_group_provider.NewBindGroupProvider("light gbuffer",
		bind_group_provider.WithLayoutEntries(
			textureEntry(0, wgpu.TextureSampleTypeUnfilterableFloat),
			textureEntry(1, wgpu.TextureSampleTypeUnfilterableFloat),
			textureEntry(2, wgpu.TextureSampleTypeUint),
			textureEntry(3, wgpu.TextureSampleTypeUnfilterableFloat),
			textureEntry(4, wgpu.TextureSampleTypeDepth),
		),
	)

	geometry := bind_group_provider.NewBindGroupProvider("light geometry",
		bind_group_provider.WithLayoutEntries(
			storageBufferEntry(0, uint64((&mesh.GpuVertex{}).Size())),
			storageBufferEntry(1, uint64((&mesh.GpuPrimitive{}).Size())),
			storageBufferEntry(2, uint64((&mesh.GpuNode{}).Size())),
			storageBufferEntry(3, uint64((&mesh.GpuInstance{}).Size())),
			storageBufferEntry(4, uint64((&material.GpuStandardMaterial{}).Size())),
		),
	)

	textures := bind_group_provider.NewBindGroupProvider("light material textures",
		bind_group_provider.WithLayoutEntries(
			wgpu.BindGroupLayoutEntry{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2DArray,
				},
			},
			wgpu.BindGroupLayoutEntry{
				Binding:    1,
				Visibility: wgpu.ShaderStageCompute,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
		),
	)

	frameData := bind_group_provider.NewBindGroupProvider("light frame",
		bind_group_provider.WithLayoutEntries(
			uniformEntry(0, uint64((&frame.GpuFrame{}).Size())),
			wgpu.BindGroupLayoutEntry{
				Binding:    1,
				Visibility: wgpu.ShaderStageCompute,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2DArray,
				},
			},
			textureEntry(2, wgpu.TextureSampleTypeDepth),
			wgpu.BindGroupLayoutEntry{
				Binding:    3,
				Visibility: wgpu.ShaderStageCompute,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison},
			},
		),
	)

	var render [2]bind_group_provider.BindGroupProvider
	for i := range render {
		entries := make([]wgpu.BindGroupLayoutEntry, 0, 2*reservoirTextureCount)
		for b := 0; b < reservoirTextureCount; b++ {
			entries = append(entries, textureEntry(uint32(b), wgpu.TextureSampleTypeUnfilterableFloat))
		}
		for b := 0; b < reservoirTextureCount; b++ {
			entries = append(entries, wgpu.BindGroupLayoutEntry{
				Binding:    uint32(reservoirTextureCount + b),
				Visibility: wgpu.ShaderStageCompute,
				StorageTexture: wgpu.StorageTextureBindingLayout{
					Access:        wgpu.StorageTextureAccessWriteOnly,
					Format:        reservoirStorageFormats[b],
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			})
		}
		render[i] = bind_group_provider.NewBindGroupProvider(
			fmt.Sprintf("light render %d", i),
			bind_group_provider.WithLayoutEntries(entries...),
		)
	}

	p := pipeline.NewPipeline(PipelineKey, pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(cs),
		pipeline.WithBindGroupLayouts(
			wgpu.BindGroupLayoutDescriptor{Label: "light uniforms layout", Entries: uniforms.LayoutEntries()},
			wgpu.BindGroupLayoutDescriptor{Label: "light gbuffer layout", Entries: gbuffer.LayoutEntries()},
			wgpu.BindGroupLayoutDescriptor{Label: "light geometry layout", Entries: geometry.LayoutEntries()},
			wgpu.BindGroupLayoutDescriptor{Label: "light material textures layout", Entries: textures.LayoutEntries()},
			wgpu.BindGroupLayoutDescriptor{Label: "light frame layout", Entries: frameData.LayoutEntries()},
			wgpu.BindGroupLayoutDescriptor{Label: "light render layout", Entries: render[0].LayoutEntries()},
		),
	)
	if err := r.RegisterPipelines(p); err != nil {
		return nil, fmt.Errorf("failed to register lighting pipeline: %w", err)
	}

	if err := r.InitBindGroup(uniforms, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to init lighting uniform bind group: %w", err)
	}
	if err := r.InitSampler(textures, 1, common.SamplerStagingData{}); err != nil {
		return nil, fmt.Errorf("failed to init material sampler: %w", err)
	}
	if err := r.InitSampler(frameData, 3, common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		Compare:      wgpu.CompareFunctionLessEqual,
	}); err != nil {
		return nil, fmt.Errorf("failed to init shadow comparison sampler: %w", err)
	}

	return &node{
		r:         r,
		light:     light,
		meshes:    meshes,
		materials: materials,
		uniforms:  uniforms,
		gbuffer:   gbuffer,
		geometry:  geometry,
		textures:  textures,
		frameData: frameData,
		render:    render,
	}, nil
}

func uniformEntry(binding uint32, size uint64) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		Buffer: wgpu.BufferBindingLayout{
			Type:           wgpu.BufferBindingTypeUniform,
			MinBindingSize: size,
		},
	}
}

func storageBufferEntry(binding uint32, elementSize uint64) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		Buffer: wgpu.BufferBindingLayout{
			Type:           wgpu.BufferBindingTypeReadOnlyStorage,
			MinBindingSize: elementSize,
		},
	}
}

func textureEntry(binding uint32, sampleType wgpu.TextureSampleType) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		Texture: wgpu.TextureBindingLayout{
			SampleType:    sampleType,
			ViewDimension: wgpu.TextureViewDimension2D,
		},
	}
}

func (n *node) SetNoiseBank(bank common.TextureStagingData) error {
	if err := n.r.InitTextureView(n.frameData, 1, bank); err != nil {
		return fmt.Errorf("failed to upload noise bank: %w", err)
	}
	n.frameDirty = true
	return nil
}

func (n *node) Name() string {
	return NodeName
}

func (n *node) Run(ctx graph.FrameContext) error {
	width, height := n.r.SurfaceSize()

	// Reservoir sets reallocate on resize; fresh textures are zero filled,
	// which reads back as an empty reservoir, so history resets for free.
	for set := 0; set < 2; set++ {
		for i, desc := range ReservoirTargets(set, width, height) {
			view, realloc, err := n.r.EnsureTexture(desc)
			if err != nil {
				return fmt.Errorf("failed to ensure reservoir target %q: %w", desc.Label, err)
			}
			if realloc || n.reservoirViews[set][i] != view {
				n.renderDirty = true
			}
			n.reservoirViews[set][i] = view
		}
	}

	if !n.resourcesReady() {
		return nil
	}

	if err := n.syncGeometry(); err != nil {
		return err
	}
	if err := n.syncMaterials(); err != nil {
		return err
	}
	if !n.geometryReady() {
		n.skip("geometry buffers not uploaded yet")
		return nil
	}

	if err := n.rebuildBindGroups(); err != nil {
		return err
	}

	gpuView := ctx.View.GpuView()
	gpuPrevious := ctx.View.GpuPreviousView()
	lightUniform := n.light.Uniform(ctx.View.Target())
	frameUniform := ctx.Frame.Uniform()
	n.r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: n.uniforms, Binding: 0, Data: gpuView.Marshal()},
		{Provider: n.uniforms, Binding: 1, Data: gpuPrevious.Marshal()},
		{Provider: n.uniforms, Binding: 2, Data: lightUniform.Marshal()},
		{Provider: n.frameData, Binding: 0, Data: frameUniform.Marshal()},
	})

	n.skipLogged = false

	current := ctx.Frame.CurrentReservoirIndex()
	groups := []bind_group_provider.BindGroupProvider{
		n.uniforms,
		n.gbuffer,
		n.geometry,
		n.textures,
		n.frameData,
		n.render[current],
	}
	n.r.DispatchCompute(n.r.Pipeline(PipelineKey), groups, [3]uint32{
		(uint32(width) + workgroupSize - 1) / workgroupSize,
		(uint32(height) + workgroupSize - 1) / workgroupSize,
		1,
	})
	return nil
}

// resourcesReady checks the upstream views the lighting pass samples and
// stages any that changed. Returns false, skipping the dispatch, while the
// G-buffer, shadow map, or noise bank does not exist yet.
func (n *node) resourcesReady() bool {
	for i, label := range gbufferLabels {
		view := n.r.CachedTextureView(label)
		if view == nil {
			n.skip("G-buffer not rendered yet")
			return false
		}
		if view != n.gbufferViews[i] {
			n.gbufferViews[i] = view
			n.gbuffer.SetTextureView(i, view, false)
			n.gbuffer.SetBindGroup(nil)
		}
	}

	shadow := n.r.CachedTextureView(ShadowMapLabel)
	if shadow == nil {
		n.skip("shadow map not rendered yet")
		return false
	}
	if shadow != n.shadowView {
		n.shadowView = shadow
		n.frameData.SetTextureView(2, shadow, false)
		n.frameDirty = true
	}

	if n.frameData.TextureView(1) == nil {
		n.skip("noise bank not loaded yet")
		return false
	}
	return true
}

// syncGeometry rewrites the scene geometry storage buffers after a mesh
// extraction. The vertex, primitive, and BVH buffers only change on
// extraction; the instance buffer rewrites every frame since transforms move.
func (n *node) syncGeometry() error {
	if n.meshes.State() == mesh.AssetStateUpdated {
		for binding, upload := range map[int]struct {
			label string
			data  []byte
		}{
			0: {"light vertices", n.meshes.VertexBytes()},
			1: {"light primitives", n.meshes.PrimitiveBytes()},
			2: {"light bvh nodes", n.meshes.NodeBytes()},
		} {
			if len(upload.data) == 0 {
				continue
			}
			buf, err := n.r.CreateStorageBuffer(upload.label, upload.data, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
			if err != nil {
				return fmt.Errorf("failed to create %s buffer: %w", upload.label, err)
			}
			n.geometry.SetBuffer(binding, buf)
		}
		n.geometry.SetBindGroup(nil)
		n.meshes.MarkClean()
	}

	instanceData := n.meshes.InstanceBytes()
	if len(instanceData) == 0 {
		return nil
	}
	if n.geometry.Buffer(3) == nil || len(instanceData) > n.instanceCapacity {
		buf, err := n.r.CreateStorageBuffer("light instances", instanceData, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
		if err != nil {
			return fmt.Errorf("failed to create instance buffer: %w", err)
		}
		n.geometry.SetBuffer(3, buf)
		n.geometry.SetBindGroup(nil)
		n.instanceCapacity = len(instanceData)
		return nil
	}
	n.r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: n.geometry, Binding: 3, Data: instanceData},
	})
	return nil
}

// syncMaterials rewrites the material table buffer and texture array after a
// material extraction.
func (n *node) syncMaterials() error {
	if n.materials.State() != mesh.AssetStateUpdated {
		return nil
	}

	table := n.materials.TableBytes()
	if len(table) > 0 {
		buf, err := n.r.CreateStorageBuffer("light materials", table, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
		if err != nil {
			return fmt.Errorf("failed to create material buffer: %w", err)
		}
		n.geometry.SetBuffer(4, buf)
		n.geometry.SetBindGroup(nil)
	}

	array, err := material.BuildTextureArray(n.materials.Textures(), 0)
	if err != nil {
		return err
	}
	if err := n.r.InitTextureView(n.textures, 0, array); err != nil {
		return fmt.Errorf("failed to upload material texture array: %w", err)
	}
	if err := n.r.InitBindGroup(n.textures, nil, nil); err != nil {
		return fmt.Errorf("failed to init material texture bind group: %w", err)
	}

	n.materials.MarkClean()
	return nil
}

// geometryReady reports whether every storage buffer the shader reads exists.
func (n *node) geometryReady() bool {
	for binding := 0; binding < 5; binding++ {
		if n.geometry.Buffer(binding) == nil {
			return false
		}
	}
	return n.textures.BindGroup() != nil
}

// rebuildBindGroups recreates any bind group whose staged resources changed
// since the last dispatch.
func (n *node) rebuildBindGroups() error {
	if n.gbuffer.BindGroup() == nil {
		if err := n.r.InitBindGroup(n.gbuffer, nil, nil); err != nil {
			return fmt.Errorf("failed to init gbuffer bind group: %w", err)
		}
	}
	if n.geometry.BindGroup() == nil {
		if err := n.r.InitBindGroup(n.geometry, nil, nil); err != nil {
			return fmt.Errorf("failed to init geometry bind group: %w", err)
		}
	}
	if n.frameDirty || n.frameData.BindGroup() == nil {
		if err := n.r.InitBindGroup(n.frameData, nil, nil); err != nil {
			return fmt.Errorf("failed to init frame bind group: %w", err)
		}
		n.frameDirty = false
	}
	if n.renderDirty || n.render[0].BindGroup() == nil {
		for current := 0; current < 2; current++ {
			previous := 1 - current
			for b := 0; b < reservoirTextureCount; b++ {
				n.render[current].SetTextureView(b, n.reservoirViews[previous][b], false)
				n.render[current].SetTextureView(reservoirTextureCount+b, n.reservoirViews[current][b], false)
			}
			if err := n.r.InitBindGroup(n.render[current], nil, nil); err != nil {
				return fmt.Errorf("failed to init render bind group %d: %w", current, err)
			}
		}
		n.renderDirty = false
	}
	return nil
}

// skip logs once per stall reason transition so a waiting resource does not
// flood the log at frame rate.
func (n *node) skip(reason string) {
	if n.skipLogged {
		return
	}
	log.Printf("light: skipping dispatch, %s", reason)
	n.skipLogged = true
}
