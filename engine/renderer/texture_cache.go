package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// TextureDesc describes a cached render resource texture. Label doubles as the
// cache key, so every pass texture needs a unique label.
type TextureDesc struct {
	Label  string
	Width  uint32
	Height uint32
	Layers uint32
	Format wgpu.TextureFormat
	Usage  wgpu.TextureUsage
}

// cachedTexture pairs a live GPU texture with the descriptor it was created from.
type cachedTexture struct {
	desc    TextureDesc
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

// textureCreateFunc allocates a texture and its default view for a descriptor.
// The backend supplies a device-backed implementation; tests inject a fake.
type textureCreateFunc func(desc TextureDesc) (*wgpu.Texture, *wgpu.TextureView, error)

// textureCache owns the long-lived pass textures (G-buffer targets, reservoir
// ping-pong buffers, radiance output). Textures are keyed by label and reused
// across frames as long as their descriptor matches; a size or format change
// releases the old allocation and creates a fresh one.
type textureCache struct {
	entries map[string]*cachedTexture
	create  textureCreateFunc
}

func newTextureCache(create textureCreateFunc) *textureCache {
	return &textureCache{
		entries: make(map[string]*cachedTexture),
		create:  create,
	}
}

// descriptorChanged reports whether a cached texture no longer satisfies the
// requested descriptor and must be reallocated.
func descriptorChanged(have, want TextureDesc) bool {
	return have.Width != want.Width ||
		have.Height != want.Height ||
		have.Layers != want.Layers ||
		have.Format != want.Format ||
		have.Usage != want.Usage
}

// Ensure returns the view for the descriptor's label, allocating or
// reallocating the texture when the descriptor does not match the cached one.
// The second return reports whether a new allocation happened, which callers
// use to invalidate temporal history that lived in the old texture.
//
// Parameters:
//   - desc: the requested texture descriptor
//
// Returns:
//   - *wgpu.TextureView: the texture view for the descriptor
//   - bool: true if the texture was (re)allocated this call
//   - error: an error if allocation fails
func (c *textureCache) Ensure(desc TextureDesc) (*wgpu.TextureView, bool, error) {
	if entry, ok := c.entries[desc.Label]; ok {
		if !descriptorChanged(entry.desc, desc) {
			return entry.view, false, nil
		}
		c.release(entry)
		delete(c.entries, desc.Label)
	}

	tex, view, err := c.create(desc)
	if err != nil {
		return nil, false, err
	}
	c.entries[desc.Label] = &cachedTexture{desc: desc, texture: tex, view: view}
	return view, true, nil
}

// View returns the cached view for a label, or nil if the label has never been
// ensured.
func (c *textureCache) View(label string) *wgpu.TextureView {
	if entry, ok := c.entries[label]; ok {
		return entry.view
	}
	return nil
}

// Texture returns the cached texture for a label, or nil. Used by readback
// paths that need the texture itself as a copy source.
func (c *textureCache) Texture(label string) *wgpu.Texture {
	if entry, ok := c.entries[label]; ok {
		return entry.texture
	}
	return nil
}

// Desc returns the descriptor a label was last allocated with.
func (c *textureCache) Desc(label string) (TextureDesc, bool) {
	if entry, ok := c.entries[label]; ok {
		return entry.desc, true
	}
	return TextureDesc{}, false
}

func (c *textureCache) release(entry *cachedTexture) {
	if entry.view != nil {
		entry.view.Release()
	}
	if entry.texture != nil {
		entry.texture.Release()
	}
}

// ReleaseAll releases every cached texture. Called on renderer shutdown.
func (c *textureCache) ReleaseAll() {
	for label, entry := range c.entries {
		c.release(entry)
		delete(c.entries, label)
	}
}
