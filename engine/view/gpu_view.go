package view

import (
	"bytes"
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
)

// GpuView is the per-view uniform consumed by the prepass and lighting
// shaders. Field order and padding match the WGSL View struct exactly
// (matrices are column-major, world position packs with width/height into
// the trailing 16-byte slots).
type GpuView struct {
	ViewProj          mgl32.Mat4
	InverseViewProj   mgl32.Mat4
	View              mgl32.Mat4
	InverseView       mgl32.Mat4
	Projection        mgl32.Mat4
	InverseProjection mgl32.Mat4
	WorldPosition     mgl32.Vec3
	Width             float32
	Height            float32
	_                 [3]float32
}

// Size returns the byte size of the marshaled uniform.
//
// Returns:
//   - int: size in bytes
func (g *GpuView) Size() int {
	return 6*64 + 16 + 16
}

// Marshal serializes the uniform to little-endian bytes in GPU layout.
//
// Returns:
//   - []byte: the serialized uniform
func (g *GpuView) Marshal() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, g.Size()))
	_ = binary.Write(buf, binary.LittleEndian, g)
	return buf.Bytes()
}

// GpuPreviousView is the previous-frame view uniform used by the lighting
// pass to reproject the current pixel into last frame's reservoir textures.
type GpuPreviousView struct {
	ViewProj        mgl32.Mat4
	InverseViewProj mgl32.Mat4
}

// Size returns the byte size of the marshaled uniform.
//
// Returns:
//   - int: size in bytes
func (g *GpuPreviousView) Size() int {
	return 2 * 64
}

// Marshal serializes the uniform to little-endian bytes in GPU layout.
//
// Returns:
//   - []byte: the serialized uniform
func (g *GpuPreviousView) Marshal() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, g.Size()))
	_ = binary.Write(buf, binary.LittleEndian, g)
	return buf.Bytes()
}
