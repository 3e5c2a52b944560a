package mesh

import (
	"encoding/binary"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
)

// VertexStride is the byte stride of the raster vertex buffer layout.
const VertexStride = 32

// VertexLayout returns the wgpu vertex buffer layout matching Vertex:
// position at location 0, normal at 1, uv at 2, tightly packed.
//
// Returns:
//   - wgpu.VertexBufferLayout: the layout
func VertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: VertexStride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
		},
	}
}

// RasterBytes serializes the mesh into the tightly packed vertex and index
// buffer contents the prepass draws from.
//
// Parameters:
//   - m: the mesh to serialize
//
// Returns:
//   - []byte: vertex buffer contents (VertexStride bytes per vertex)
//   - []byte: index buffer contents (uint32 little endian)
func RasterBytes(m *Mesh) ([]byte, []byte) {
	vertexData := make([]byte, 0, len(m.Vertices)*VertexStride)
	for _, v := range m.Vertices {
		var buf [VertexStride]byte
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v.Position[0]))
		binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v.Position[1]))
		binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(v.Position[2]))
		binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(v.Normal[0]))
		binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(v.Normal[1]))
		binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(v.Normal[2]))
		binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(v.UV[0]))
		binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(v.UV[1]))
		vertexData = append(vertexData, buf[:]...)
	}

	indexData := make([]byte, len(m.Indices)*4)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint32(indexData[i*4:i*4+4], idx)
	}
	return vertexData, indexData
}
