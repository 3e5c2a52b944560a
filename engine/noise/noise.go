// Package noise loads the blue noise texture bank the lighting pass draws
// per-pixel random numbers from. The bank is a folder of 64 tiling RGBA
// images, one per frame in the 64-frame noise cycle, stacked into a single
// 2D array texture.
package noise

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Gaeric/hikari-go/common"
	"golang.org/x/image/draw"
)

// BankSize is the number of layers in the noise bank, matching the frame
// number modulus the lighting shader selects layers with.
const BankSize = 64

// DefaultFolder is the conventional location of the noise images relative to
// the working directory.
const DefaultFolder = "textures/blue_noise"

// filePattern names the bank images; %d runs 0 through BankSize-1.
const filePattern = "LDR_RGBA_%d.png"

// LoadBank reads the 64 noise images from a folder, resamples any stragglers
// to the first image's dimensions, and stacks them into one staging upload.
// Decoding fans out on a worker pool since the images are independent.
//
// Parameters:
//   - folder: the image folder ("" = DefaultFolder)
//
// Returns:
//   - common.TextureStagingData: the 64-layer stacked pixel data
//   - error: an error if any image is missing or fails to decode
func LoadBank(folder string) (common.TextureStagingData, error) {
	if folder == "" {
		folder = DefaultFolder
	}

	type layer struct {
		pixels []byte
		width  uint32
		height uint32
		err    error
	}
	layers := make([]layer, BankSize)

	// Workers idle-exit after the timeout, so a one-shot pool needs no
	// explicit shutdown.
	pool := worker.NewDynamicWorkerPool(max(runtime.NumCPU()-1, 1), 256, 1*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < BankSize; i++ {
		wg.Add(1)
		iCap := i
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				path := filepath.Join(folder, fmt.Sprintf(filePattern, iCap))
				data, err := os.ReadFile(path)
				if err != nil {
					layers[iCap].err = err
					return nil, nil
				}
				tex := &common.ImportedTexture{Name: path, Path: path, Data: data}
				pixels, width, height, err := tex.Decode()
				if err != nil {
					layers[iCap].err = fmt.Errorf("failed to decode %s: %w", path, err)
					return nil, nil
				}
				layers[iCap] = layer{pixels: pixels, width: width, height: height}
				return nil, nil
			},
		})
	}
	wg.Wait()

	for i := range layers {
		if layers[i].err != nil {
			return common.TextureStagingData{}, fmt.Errorf("failed to load noise bank: %w", layers[i].err)
		}
	}

	// All layers of an array texture share one extent. Noise banks normally
	// ship uniform, so nearest-neighbor resampling only runs on mismatches,
	// where it preserves the noise distribution better than filtering.
	width, height := layers[0].width, layers[0].height
	pixels := make([]byte, 0, int(width)*int(height)*4*BankSize)
	for i := range layers {
		if layers[i].width == width && layers[i].height == height {
			pixels = append(pixels, layers[i].pixels...)
			continue
		}
		src := &image.RGBA{
			Pix:    layers[i].pixels,
			Stride: int(layers[i].width) * 4,
			Rect:   image.Rect(0, 0, int(layers[i].width), int(layers[i].height)),
		}
		dst := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		pixels = append(pixels, dst.Pix...)
	}

	return common.TextureStagingData{
		Pixels: pixels,
		Width:  width,
		Height: height,
		Layers: BankSize,
	}, nil
}
