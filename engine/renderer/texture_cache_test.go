package renderer

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

// countingCreate records every allocation the cache asks for. It hands back
// nil GPU handles, which the cache's release path treats as already released.
type countingCreate struct {
	calls []TextureDesc
	err   error
}

func (c *countingCreate) create(desc TextureDesc) (*wgpu.Texture, *wgpu.TextureView, error) {
	if c.err != nil {
		return nil, nil, c.err
	}
	c.calls = append(c.calls, desc)
	return nil, nil, nil
}

func gbufferDesc(width, height uint32) TextureDesc {
	return TextureDesc{
		Label:  "prepass_position",
		Width:  width,
		Height: height,
		Layers: 1,
		Format: wgpu.TextureFormatRGBA32Float,
		Usage:  wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	}
}

func TestEnsureReusesUnchangedDescriptor(t *testing.T) {
	fake := &countingCreate{}
	cache := newTextureCache(fake.create)
	desc := gbufferDesc(1280, 720)

	if _, realloc, err := cache.Ensure(desc); err != nil || !realloc {
		t.Fatalf("first Ensure: realloc=%v err=%v, want allocation", realloc, err)
	}
	for i := 0; i < 3; i++ {
		if _, realloc, err := cache.Ensure(desc); err != nil || realloc {
			t.Fatalf("repeat Ensure %d: realloc=%v err=%v, want cached", i, realloc, err)
		}
	}
	if len(fake.calls) != 1 {
		t.Fatalf("created %d textures for one descriptor, want 1", len(fake.calls))
	}
}

func TestEnsureReallocatesOnSizeChange(t *testing.T) {
	fake := &countingCreate{}
	cache := newTextureCache(fake.create)

	if _, _, err := cache.Ensure(gbufferDesc(1280, 720)); err != nil {
		t.Fatalf("first Ensure: %v", err)
	}
	resized := gbufferDesc(1920, 1080)
	_, realloc, err := cache.Ensure(resized)
	if err != nil {
		t.Fatalf("resized Ensure: %v", err)
	}
	if !realloc {
		t.Fatal("size change did not report a reallocation")
	}
	if len(fake.calls) != 2 {
		t.Fatalf("created %d textures across a resize, want 2", len(fake.calls))
	}

	// The old entry is gone; the cache now answers with the new descriptor.
	got, ok := cache.Desc(resized.Label)
	if !ok || got.Width != 1920 || got.Height != 1080 {
		t.Fatalf("Desc after resize = %+v (%v), want 1920x1080", got, ok)
	}

	// Settling back on the new size reuses the reallocated texture.
	if _, realloc, _ := cache.Ensure(resized); realloc {
		t.Fatal("unchanged post-resize Ensure reallocated")
	}
}

func TestEnsureReallocatesOnFormatOrUsageChange(t *testing.T) {
	fake := &countingCreate{}
	cache := newTextureCache(fake.create)
	desc := gbufferDesc(64, 64)

	if _, _, err := cache.Ensure(desc); err != nil {
		t.Fatalf("first Ensure: %v", err)
	}

	reformatted := desc
	reformatted.Format = wgpu.TextureFormatRGBA16Float
	if _, realloc, _ := cache.Ensure(reformatted); !realloc {
		t.Fatal("format change did not reallocate")
	}

	rebound := reformatted
	rebound.Usage |= wgpu.TextureUsageCopySrc
	if _, realloc, _ := cache.Ensure(rebound); !realloc {
		t.Fatal("usage change did not reallocate")
	}
	if len(fake.calls) != 3 {
		t.Fatalf("created %d textures, want 3", len(fake.calls))
	}
}

func TestEnsurePropagatesCreateError(t *testing.T) {
	wantErr := errors.New("device lost")
	fake := &countingCreate{err: wantErr}
	cache := newTextureCache(fake.create)

	_, realloc, err := cache.Ensure(gbufferDesc(32, 32))
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if realloc {
		t.Fatal("failed allocation reported as realloc")
	}
	if _, ok := cache.Desc("prepass_position"); ok {
		t.Fatal("failed allocation left a cache entry")
	}
}

func TestLookupsOnUnknownLabel(t *testing.T) {
	cache := newTextureCache((&countingCreate{}).create)

	if cache.View("missing") != nil {
		t.Fatal("View on unknown label should be nil")
	}
	if cache.Texture("missing") != nil {
		t.Fatal("Texture on unknown label should be nil")
	}
	if _, ok := cache.Desc("missing"); ok {
		t.Fatal("Desc on unknown label should report absence")
	}
}

func TestReleaseAllEmptiesCache(t *testing.T) {
	fake := &countingCreate{}
	cache := newTextureCache(fake.create)
	desc := gbufferDesc(16, 16)

	if _, _, err := cache.Ensure(desc); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	cache.ReleaseAll()

	if _, ok := cache.Desc(desc.Label); ok {
		t.Fatal("entry survived ReleaseAll")
	}
	// The next Ensure allocates from scratch.
	if _, realloc, _ := cache.Ensure(desc); !realloc {
		t.Fatal("Ensure after ReleaseAll did not allocate")
	}
	if len(fake.calls) != 2 {
		t.Fatalf("created %d textures, want 2", len(fake.calls))
	}
}
