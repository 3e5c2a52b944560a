package material

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// GpuStandardMaterial is the storage-buffer layout of a material. Matches the
// WGSL Material struct: two vec4 factors, three f32 parameters, and four
// texture indices with NoTexture as the absent sentinel. Size: 64 bytes.
type GpuStandardMaterial struct {
	BaseColor                mgl32.Vec4
	Emissive                 mgl32.Vec4
	PerceptualRoughness      float32
	Metallic                 float32
	Reflectance              float32
	BaseColorTexture         uint32
	EmissiveTexture          uint32
	MetallicRoughnessTexture uint32
	NormalMapTexture         uint32
}

// Size returns the byte size of the marshaled struct.
//
// Returns:
//   - int: the size of the struct in bytes
func (g *GpuStandardMaterial) Size() int {
	return 64
}

// Marshal serializes the material into GPU storage layout.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (g *GpuStandardMaterial) Marshal() []byte {
	buf := make([]byte, 64)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(g.BaseColor[i]))
		binary.LittleEndian.PutUint32(buf[16+i*4:16+i*4+4], math.Float32bits(g.Emissive[i]))
	}
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(g.PerceptualRoughness))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(g.Metallic))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(g.Reflectance))
	binary.LittleEndian.PutUint32(buf[44:48], g.BaseColorTexture)
	binary.LittleEndian.PutUint32(buf[48:52], g.EmissiveTexture)
	binary.LittleEndian.PutUint32(buf[52:56], g.MetallicRoughnessTexture)
	binary.LittleEndian.PutUint32(buf[56:60], g.NormalMapTexture)
	return buf
}
