// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ftrvxmtrx/tga"
)

// TextureStagingData holds RGBA pixel data for a texture binding pending GPU upload.
// This is primarily used in the BindGroupProvider to stage texture data before creating the GPU texture and bind group.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Width uint32
	// Height is the height of the texture in pixels. This is required to correctly create the GPU texture and interpret the pixel data.
	Height uint32
	// Layers is the number of array layers the pixel data covers. Zero or one
	// creates a plain 2D texture; anything higher creates a 2D array texture
	// with Pixels holding the layers back to back.
	Layers uint32
	// SRGB selects an sRGB texture format instead of the default UNORM format.
	SRGB bool
	// ArrayView forces a 2D array texture view even when Layers is zero or
	// one, for shaders that declare texture_2d_array bindings.
	ArrayView bool
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// This is primarily used in the BindGroupProvider to stage sampler data before creating the GPU sampler and bind group.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// Compare specifies the comparison function for comparison samplers, used in shadow mapping and similar techniques.
	Compare wgpu.CompareFunction
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering, which can improve texture quality at oblique viewing angles.
	MaxAnisotropy uint16
}

// ImportedTexture represents image data referenced by a material or loaded
// from disk. Either Data holds raw encoded bytes or Path points at a file.
type ImportedTexture struct {
	// Name is an identifier for this texture (e.g., "base_color", "emissive").
	Name string

	// Path is the file path for on-disk textures (empty when Data is set).
	Path string

	// Data contains raw encoded image bytes (PNG/JPEG/TGA).
	Data []byte

	// Width is the texture width in pixels (populated after Decode).
	Width int

	// Height is the texture height in pixels (populated after Decode).
	Height int

	// SRGB marks the pixel data as sRGB encoded color rather than linear data.
	SRGB bool

	// SamplerData holds GPU sampler parameters for this texture. When non-nil,
	// these values override the default linear/repeat settings used during
	// material GPU initialization.
	SamplerData *SamplerStagingData
}

// pngMagic and jpegMagic identify the two formats that carry magic bytes.
// image.Decode's registry cannot be used here: TGA has no magic, so its
// decoder registers a catch-all entry that shadows the PNG and JPEG sniffers.
var (
	pngMagic  = []byte("\x89PNG\r\n\x1a\n")
	jpegMagic = []byte{0xff, 0xd8, 0xff}
)

// decodeImage decodes encoded image bytes, picking the decoder from the
// leading bytes. forceTGA short-circuits the sniff for sources whose name or
// path already identifies the format.
func decodeImage(data []byte, forceTGA bool) (image.Image, error) {
	switch {
	case forceTGA:
		return tga.Decode(bytes.NewReader(data))
	case bytes.HasPrefix(data, pngMagic):
		return png.Decode(bytes.NewReader(data))
	case bytes.HasPrefix(data, jpegMagic):
		return jpeg.Decode(bytes.NewReader(data))
	default:
		return tga.Decode(bytes.NewReader(data))
	}
}

// Decode decodes the texture to raw RGBA pixel data.
// Uses either raw Data bytes or loads from Path on disk.
// Supports PNG and JPEG selected by their magic bytes and TGA as the
// magic-less fallback, forced for .tga names and paths.
//
// Returns:
//   - []byte: raw RGBA pixel data (4 bytes per pixel, row-major order)
//   - uint32: texture width in pixels
//   - uint32: texture height in pixels
//   - error: error if decoding fails
func (t *ImportedTexture) Decode() ([]byte, uint32, uint32, error) {
	if t == nil {
		return nil, 0, 0, fmt.Errorf("texture is nil")
	}

	var img image.Image
	var err error

	switch {
	case len(t.Data) > 0:
		img, err = decodeImage(t.Data, strings.EqualFold(filepath.Ext(t.Name), ".tga"))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("failed to decode embedded image: %w", err)
		}
	case t.Path != "":
		data, fileErr := os.ReadFile(t.Path)
		if fileErr != nil {
			return nil, 0, 0, fmt.Errorf("failed to open texture file %s: %w", t.Path, fileErr)
		}
		img, err = decodeImage(data, strings.EqualFold(filepath.Ext(t.Path), ".tga"))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("failed to decode texture file %s: %w", t.Path, err)
		}
	default:
		return nil, 0, 0, fmt.Errorf("texture has neither data nor path")
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	t.Width = width
	t.Height = height

	return rgba.Pix, uint32(width), uint32(height), nil
}
