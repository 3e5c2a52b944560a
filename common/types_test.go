package common

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ftrvxmtrx/tga"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{G: 255, A: 255})
	img.SetNRGBA(0, 1, color.NRGBA{B: 255, A: 255})
	img.SetNRGBA(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	return img
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeEmbeddedPNG(t *testing.T) {
	tex := ImportedTexture{Name: "base_color", Data: encodePNG(t)}

	pixels, width, height, err := tex.Decode()
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if width != 2 || height != 2 {
		t.Fatalf("decoded size = %dx%d, want 2x2", width, height)
	}
	if len(pixels) != 16 {
		t.Fatalf("pixel buffer length = %d, want 16", len(pixels))
	}
	if pixels[0] != 255 || pixels[1] != 0 || pixels[2] != 0 || pixels[3] != 255 {
		t.Fatalf("top-left pixel = %v, want opaque red", pixels[0:4])
	}
	if tex.Width != 2 || tex.Height != 2 {
		t.Fatalf("texture dimensions not populated: %dx%d", tex.Width, tex.Height)
	}
}

func TestDecodeEmbeddedJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(), nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	tex := ImportedTexture{Name: "photo", Data: buf.Bytes()}

	_, width, height, err := tex.Decode()
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if width != 2 || height != 2 {
		t.Fatalf("decoded size = %dx%d, want 2x2", width, height)
	}
}

func TestDecodeEmbeddedTGA(t *testing.T) {
	var buf bytes.Buffer
	if err := tga.Encode(&buf, testImage()); err != nil {
		t.Fatalf("failed to encode tga: %v", err)
	}

	// Forced by the name extension.
	named := ImportedTexture{Name: "normal_map.tga", Data: buf.Bytes()}
	_, width, height, err := named.Decode()
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if width != 2 || height != 2 {
		t.Fatalf("decoded size = %dx%d, want 2x2", width, height)
	}

	// Magic-less fallback when the name carries no extension.
	anonymous := ImportedTexture{Name: "normal_map", Data: buf.Bytes()}
	if _, _, _, err := anonymous.Decode(); err != nil {
		t.Fatalf("fallback decode returned error: %v", err)
	}
}

func TestDecodePNGFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texture.png")
	if err := os.WriteFile(path, encodePNG(t), 0o644); err != nil {
		t.Fatalf("failed to write texture file: %v", err)
	}
	tex := ImportedTexture{Name: "base_color", Path: path}

	pixels, width, height, err := tex.Decode()
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if width != 2 || height != 2 || len(pixels) != 16 {
		t.Fatalf("decoded %dx%d with %d bytes, want 2x2 with 16", width, height, len(pixels))
	}
}

func TestDecodeErrors(t *testing.T) {
	var nilTex *ImportedTexture
	if _, _, _, err := nilTex.Decode(); err == nil {
		t.Error("expected error for nil texture")
	}

	empty := ImportedTexture{Name: "empty"}
	if _, _, _, err := empty.Decode(); err == nil {
		t.Error("expected error for texture with neither data nor path")
	}

	garbage := ImportedTexture{Name: "garbage", Data: []byte("not an image at all")}
	if _, _, _, err := garbage.Decode(); err == nil {
		t.Error("expected error for undecodable bytes")
	}
}
