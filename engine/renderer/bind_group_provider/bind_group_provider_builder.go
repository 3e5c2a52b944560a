package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithLayoutEntries declares the binding interface for this provider. The renderer
// creates the GPU bind group layout from these entries during InitBindGroup.
//
// Parameters:
//   - entries: the layout entries in declaration order
//
// Returns:
//   - BindGroupProviderOption: a function that sets the layout entries for this provider
func WithLayoutEntries(entries ...wgpu.BindGroupLayoutEntry) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.layoutEntries = entries
	}
}

// WithBindGroupLayout sets a pre-created bind group layout for this provider, used when
// several providers share one layout owned by a pipeline.
//
// Parameters:
//   - bgl: the bind group layout to use for this provider
//
// Returns:
//   - BindGroupProviderOption: a function that sets the bind group layout for this provider
func WithBindGroupLayout(bgl *wgpu.BindGroupLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroupLayout = bgl
	}
}

// WithBuffer sets a buffer for a specific binding index.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified binding
func WithBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}
