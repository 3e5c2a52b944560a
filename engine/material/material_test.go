package material

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/Gaeric/hikari-go/common"
	"github.com/Gaeric/hikari-go/engine/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

// encodePNG returns the PNG bytes of a solid-color image.
func encodePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDedupesTexturesByName(t *testing.T) {
	shared := &common.ImportedTexture{Name: "shared", Data: encodePNG(t, 2, 2, color.RGBA{255, 0, 0, 255})}
	unique := &common.ImportedTexture{Name: "unique", Data: encodePNG(t, 2, 2, color.RGBA{0, 255, 0, 255})}

	s := NewStorage()
	s.Add(StandardMaterial{Name: "a", BaseColorTexture: shared})
	s.Add(StandardMaterial{Name: "b", BaseColorTexture: shared, NormalMapTexture: unique})
	s.Extract()

	textures := s.Textures()
	if len(textures) != 2 {
		t.Fatalf("deduped texture count = %d, want 2", len(textures))
	}
	if textures[0].Name != "shared" || textures[1].Name != "unique" {
		t.Fatalf("texture order = %q, %q; first occurrence must win the index", textures[0].Name, textures[1].Name)
	}

	// Both materials must reference layer 0 for the shared texture.
	table := s.TableBytes()
	var g GpuStandardMaterial
	if len(table) != 2*g.Size() {
		t.Fatalf("table = %d bytes, want %d", len(table), 2*g.Size())
	}
	first := binary.LittleEndian.Uint32(table[44:48])
	second := binary.LittleEndian.Uint32(table[g.Size()+44 : g.Size()+48])
	if first != 0 || second != 0 {
		t.Errorf("base color indices = %d, %d, want 0, 0", first, second)
	}
}

func TestExtractUsesSentinelForMissingTextures(t *testing.T) {
	s := NewStorage()
	s.Add(StandardMaterial{Name: "flat", BaseColor: mgl32.Vec4{1, 0, 0, 1}})
	s.Extract()

	table := s.TableBytes()
	for _, offset := range []int{44, 48, 52, 56} {
		if got := binary.LittleEndian.Uint32(table[offset : offset+4]); got != NoTexture {
			t.Errorf("texture index at offset %d = %#x, want NoTexture", offset, got)
		}
	}
	if len(s.Textures()) != 0 {
		t.Errorf("texture list = %d entries, want 0", len(s.Textures()))
	}
}

func TestStorageStateTransitions(t *testing.T) {
	s := NewStorage()
	if s.State() != mesh.AssetStateClean {
		t.Fatalf("initial state = %v, want Clean", s.State())
	}
	idx := s.Add(StandardMaterial{Name: "m"})
	if idx != 0 {
		t.Fatalf("first material index = %d, want 0", idx)
	}
	if s.State() != mesh.AssetStateDirty {
		t.Fatalf("state after Add = %v, want Dirty", s.State())
	}
	s.Extract()
	if s.State() != mesh.AssetStateUpdated {
		t.Fatalf("state after Extract = %v, want Updated", s.State())
	}
	s.MarkClean()
	if s.State() != mesh.AssetStateClean {
		t.Fatalf("state after MarkClean = %v, want Clean", s.State())
	}

	// Extract on a clean storage is a no-op.
	s.Extract()
	if s.State() != mesh.AssetStateClean {
		t.Fatal("Extract on clean storage changed the state")
	}
}

func TestMaterialLookup(t *testing.T) {
	s := NewStorage()
	idx := s.Add(StandardMaterial{Name: "wood", Metallic: 0.1})
	m, err := s.Material(idx)
	if err != nil {
		t.Fatalf("Material(%d): %v", idx, err)
	}
	if m.Name != "wood" || m.Metallic != 0.1 {
		t.Errorf("Material(%d) = %+v", idx, m)
	}
	if _, err := s.Material(5); err == nil {
		t.Error("out-of-range index accepted")
	}
	if s.Count() != 1 {
		t.Errorf("Count = %d, want 1", s.Count())
	}
}

func TestBuildTextureArrayEmptyFallback(t *testing.T) {
	staging, err := BuildTextureArray(nil, 0)
	if err != nil {
		t.Fatalf("BuildTextureArray(nil): %v", err)
	}
	if staging.Width != 1 || staging.Height != 1 || staging.Layers != 1 {
		t.Fatalf("fallback dims = %dx%dx%d, want 1x1x1", staging.Width, staging.Height, staging.Layers)
	}
	if !staging.ArrayView {
		t.Error("fallback must still request an array view")
	}
	if len(staging.Pixels) != 4 || staging.Pixels[0] != 0xff {
		t.Errorf("fallback pixel = %v, want opaque white", staging.Pixels)
	}
}

func TestBuildTextureArrayResamplesToUniformSize(t *testing.T) {
	textures := []*common.ImportedTexture{
		{Name: "small-red", Data: encodePNG(t, 2, 2, color.RGBA{255, 0, 0, 255})},
		{Name: "large-blue", Data: encodePNG(t, 16, 8, color.RGBA{0, 0, 255, 255})},
	}

	staging, err := BuildTextureArray(textures, 4)
	if err != nil {
		t.Fatalf("BuildTextureArray: %v", err)
	}
	if staging.Width != 4 || staging.Height != 4 || staging.Layers != 2 {
		t.Fatalf("dims = %dx%dx%d, want 4x4x2", staging.Width, staging.Height, staging.Layers)
	}
	layerBytes := 4 * 4 * 4
	if len(staging.Pixels) != 2*layerBytes {
		t.Fatalf("pixel bytes = %d, want %d", len(staging.Pixels), 2*layerBytes)
	}
	// Layer 0 stays red, layer 1 stays blue after resampling solid colors.
	if staging.Pixels[0] != 255 || staging.Pixels[2] != 0 {
		t.Errorf("layer 0 first texel = %v, want red", staging.Pixels[0:4])
	}
	if staging.Pixels[layerBytes] != 0 || staging.Pixels[layerBytes+2] != 255 {
		t.Errorf("layer 1 first texel = %v, want blue", staging.Pixels[layerBytes:layerBytes+4])
	}
}

func TestBuildTextureArrayDecodeFailure(t *testing.T) {
	bad := []*common.ImportedTexture{{Name: "corrupt", Data: []byte("not an image")}}
	if _, err := BuildTextureArray(bad, 4); err == nil {
		t.Fatal("corrupt texture data did not fail the build")
	}
}

func TestGpuStandardMaterialMarshalLayout(t *testing.T) {
	g := GpuStandardMaterial{
		BaseColor:        mgl32.Vec4{0.1, 0.2, 0.3, 1},
		Emissive:         mgl32.Vec4{2, 0, 0, 1},
		Metallic:         0.5,
		BaseColorTexture: 3,
		EmissiveTexture:  NoTexture,
	}
	data := g.Marshal()
	if len(data) != g.Size() {
		t.Fatalf("marshaled size = %d, want %d", len(data), g.Size())
	}
	if got := binary.LittleEndian.Uint32(data[44:48]); got != 3 {
		t.Errorf("base color texture index = %d, want 3", got)
	}
	if got := binary.LittleEndian.Uint32(data[48:52]); got != NoTexture {
		t.Errorf("emissive texture index = %#x, want sentinel", got)
	}
}
