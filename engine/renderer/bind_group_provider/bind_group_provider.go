package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset. Dynamic-offset uniform rings write the
// same binding at multiple offsets within one frame.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// layoutEntries declare the binding interface of this provider. The renderer
	// creates the GPU bind group layout from these during InitBindGroup.
	layoutEntries []wgpu.BindGroupLayoutEntry

	// The following fields are GPU allocated resources and must be released when no
	// longer needed. They are populated by the Renderer during initialization, not by
	// user-creation.

	// bindGroup is the GPU bind group created for this provider, or nil if not initialized with the Renderer.
	bindGroup *wgpu.BindGroup
	// bindGroupLayout is the GPU bind group layout created for this provider, or nil if not initialized with the Renderer.
	bindGroupLayout *wgpu.BindGroupLayout
	// buffers holds the GPU buffers created for this provider, keyed by binding index.
	buffers map[int]*wgpu.Buffer
	// textureViews holds the GPU texture views created for this provider, keyed by binding index.
	textureViews map[int]*wgpu.TextureView
	// samplers holds the GPU samplers created for this provider, keyed by binding index.
	samplers map[int]*wgpu.Sampler

	// ownedViews marks texture view bindings whose underlying texture belongs to this
	// provider and must be released with it. Views borrowed from the frame resource
	// cache are not marked and survive Release.
	ownedViews map[int]bool
}

// BindGroupProvider defines the interface for components that require GPU bind group
// resources. Pass nodes and scene resources hold a BindGroupProvider describing their
// GPU binding requirements. The Renderer then uses this provider to initialize and
// update GPU resources.
//
// Usage pattern:
//  1. A pass creates a BindGroupProvider with layout entries and a debug label
//  2. The pass stages buffers, texture views, or samplers on it
//  3. Renderer.InitBindGroup(provider) creates the GPU layout and bind group
//  4. Renderer.WriteBuffers uploads per-frame data into the provider's buffers
//  5. The pass binds the provider's BindGroup during encoding
type BindGroupProvider interface {
	// Release releases the GPU resources held by this provider: all buffers, owned
	// texture views, samplers, and the bind group and layout. Borrowed texture views
	// (set with owned=false) are left alone since their texture has another owner.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// LayoutEntries returns the declared binding interface for this provider.
	//
	// Returns:
	//   - []wgpu.BindGroupLayoutEntry: the layout entries in declaration order
	LayoutEntries() []wgpu.BindGroupLayoutEntry

	// BindGroup returns the created bind group for shader binding.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the created bind group layout for this provider.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the GPU buffer for a specific binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// Buffers returns a map of all buffers associated with this provider, keyed by binding index.
	//
	// Returns:
	//   - map[int]*wgpu.Buffer: a map of buffers keyed by binding index
	Buffers() map[int]*wgpu.Buffer

	// TextureView returns the GPU texture view for a specific binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding int) *wgpu.TextureView

	// TextureViews returns a map of all texture views associated with this provider, keyed by binding index.
	//
	// Returns:
	//   - map[int]*wgpu.TextureView: a map of texture views keyed by binding index
	TextureViews() map[int]*wgpu.TextureView

	// Sampler returns the GPU sampler for a specific binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// Samplers returns a map of all samplers associated with this provider, keyed by binding index.
	//
	// Returns:
	//   - map[int]*wgpu.Sampler: a map of samplers keyed by binding index
	Samplers() map[int]*wgpu.Sampler

	// SetBindGroup sets the bind group after GPU initialization.
	// Called by Renderer.InitBindGroup().
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout sets the bind group layout after GPU initialization.
	// Called by Renderer.InitBindGroup().
	//
	// Parameters:
	//   - bgl: the created bind group layout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer sets a GPU buffer for a specific binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer to associate with this binding
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetTextureView stores a GPU texture view for a specific binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the texture view to store
	//   - owned: true if the view's texture belongs to this provider and Release should free it
	SetTextureView(binding int, tv *wgpu.TextureView, owned bool)

	// SetSampler stores a GPU sampler for a specific binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler to store
	SetSampler(binding int, s *wgpu.Sampler)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: a debug label for this provider
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
		ownedViews:   make(map[int]bool),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) LayoutEntries() []wgpu.BindGroupLayoutEntry {
	return p.layoutEntries
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]*wgpu.Buffer {
	return p.buffers
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) TextureViews() map[int]*wgpu.TextureView {
	return p.textureViews
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) Samplers() map[int]*wgpu.Sampler {
	return p.samplers
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	if p.bindGroup != nil {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView, owned bool) {
	p.textureViews[binding] = tv
	p.ownedViews[binding] = owned
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) Release() {
	for i, tv := range p.textureViews {
		if tv != nil && p.ownedViews[i] {
			tv.Release()
		}
		delete(p.textureViews, i)
		delete(p.ownedViews, i)
	}
	for i, s := range p.samplers {
		if s != nil {
			s.Release()
		}
		delete(p.samplers, i)
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}

	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
}
