package light

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// GpuDirectionalLight is the GPU-aligned representation of the directional
// light. Matches the WGSL DirectionalLight struct layout exactly.
// Size: 112 bytes.
type GpuDirectionalLight struct {
	ViewProjection   mgl32.Mat4 // offset  0: shadow view-projection matrix (64 bytes)
	Color            mgl32.Vec4 // offset 64: RGB color pre-multiplied by illuminance (16 bytes)
	DirectionToLight mgl32.Vec3 // offset 80: normalized direction from surface toward the light (12 bytes)
	ShadowDepthBias  float32    // offset 92: constant depth bias for shadow comparisons
	ShadowNormalBias float32    // offset 96: normal-offset bias multiplier
}

// Size returns the byte size of the marshaled struct.
//
// Returns:
//   - int: the struct size in bytes (112)
func (g *GpuDirectionalLight) Size() int {
	return 112
}

// Marshal serializes the light into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 112-byte buffer ready for GPU upload
func (g *GpuDirectionalLight) Marshal() []byte {
	buf := make([]byte, 112)
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(g.ViewProjection[i]))
	}
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[64+i*4:64+i*4+4], math.Float32bits(g.Color[i]))
	}
	binary.LittleEndian.PutUint32(buf[80:84], math.Float32bits(g.DirectionToLight[0]))
	binary.LittleEndian.PutUint32(buf[84:88], math.Float32bits(g.DirectionToLight[1]))
	binary.LittleEndian.PutUint32(buf[88:92], math.Float32bits(g.DirectionToLight[2]))
	binary.LittleEndian.PutUint32(buf[92:96], math.Float32bits(g.ShadowDepthBias))
	binary.LittleEndian.PutUint32(buf[96:100], math.Float32bits(g.ShadowNormalBias))
	return buf
}
