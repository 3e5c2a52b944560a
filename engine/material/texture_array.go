package material

import (
	"fmt"
	"image"

	"github.com/Gaeric/hikari-go/common"
	"golang.org/x/image/draw"
)

// DefaultTextureArraySize is the edge length every material texture is
// resampled to so the deduped textures can share one texture array.
const DefaultTextureArraySize uint32 = 512

// BuildTextureArray decodes the deduped material textures and resamples each
// one to a uniform square so they stack into a single 2D array texture. With
// no textures it returns a one-layer 1x1 white texture so the binding stays
// valid.
//
// Parameters:
//   - textures: the deduped texture list from Storage.Textures
//   - size: the edge length to resample to (0 = DefaultTextureArraySize)
//
// Returns:
//   - common.TextureStagingData: the stacked layer data, ready for upload
//   - error: an error if any texture fails to decode
func BuildTextureArray(textures []*common.ImportedTexture, size uint32) (common.TextureStagingData, error) {
	if size == 0 {
		size = DefaultTextureArraySize
	}

	if len(textures) == 0 {
		return common.TextureStagingData{
			Pixels:    []byte{0xff, 0xff, 0xff, 0xff},
			Width:     1,
			Height:    1,
			Layers:    1,
			ArrayView: true,
		}, nil
	}

	layerBytes := int(size) * int(size) * 4
	pixels := make([]byte, 0, layerBytes*len(textures))
	for _, tex := range textures {
		raw, width, height, err := tex.Decode()
		if err != nil {
			return common.TextureStagingData{}, fmt.Errorf("failed to decode material texture %q: %w", tex.Name, err)
		}

		src := &image.RGBA{
			Pix:    raw,
			Stride: int(width) * 4,
			Rect:   image.Rect(0, 0, int(width), int(height)),
		}
		dst := image.NewRGBA(image.Rect(0, 0, int(size), int(size)))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		pixels = append(pixels, dst.Pix...)
	}

	return common.TextureStagingData{
		Pixels:    pixels,
		Width:     size,
		Height:    size,
		Layers:    uint32(len(textures)),
		ArrayView: true,
	}, nil
}
