package mesh

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// LeafSentinel marks a BVH node as a leaf in the flattened node buffer. A
// leaf's PrimitiveIndex is valid and traversal continues at ExitIndex.
const LeafSentinel = ^uint32(0)

// GpuVertex is the storage-buffer layout of a vertex for ray queries.
// Matches the WGSL Vertex struct: vec3 position, vec3 normal, vec2 uv with
// 16-byte member alignment. Size: 48 bytes.
type GpuVertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
}

// Size returns the byte size of the marshaled struct.
//
// Returns:
//   - int: the size of the struct in bytes
func (g *GpuVertex) Size() int {
	return 48
}

// Marshal serializes the vertex into GPU storage layout with WGSL vec3 padding.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func (g *GpuVertex) Marshal() []byte {
	buf := make([]byte, 48)
	putVec3(buf[0:], g.Position)
	putVec3(buf[16:], g.Normal)
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(g.UV[0]))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(g.UV[1]))
	return buf
}

// GpuPrimitive is one triangle in the global primitive buffer: three indices
// into the global vertex buffer. Size: 16 bytes.
type GpuPrimitive struct {
	Indices [3]uint32
}

// Size returns the byte size of the marshaled struct.
//
// Returns:
//   - int: the size of the struct in bytes
func (g *GpuPrimitive) Size() int {
	return 16
}

// Marshal serializes the primitive into GPU storage layout.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (g *GpuPrimitive) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], g.Indices[0])
	binary.LittleEndian.PutUint32(buf[4:8], g.Indices[1])
	binary.LittleEndian.PutUint32(buf[8:12], g.Indices[2])
	return buf
}

// GpuNode is one flattened BVH node. Traversal: on hit enter EntryIndex, on
// miss jump to ExitIndex; EntryIndex == LeafSentinel means test the primitive
// at PrimitiveIndex and continue at ExitIndex. Size: 48 bytes.
type GpuNode struct {
	Min            [3]float32
	EntryIndex     uint32
	Max            [3]float32
	ExitIndex      uint32
	PrimitiveIndex uint32
}

// Size returns the byte size of the marshaled struct.
//
// Returns:
//   - int: the size of the struct in bytes
func (g *GpuNode) Size() int {
	return 48
}

// Marshal serializes the node into GPU storage layout.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func (g *GpuNode) Marshal() []byte {
	buf := make([]byte, 48)
	putVec3(buf[0:], g.Min)
	binary.LittleEndian.PutUint32(buf[12:16], g.EntryIndex)
	putVec3(buf[16:], g.Max)
	binary.LittleEndian.PutUint32(buf[28:32], g.ExitIndex)
	binary.LittleEndian.PutUint32(buf[32:36], g.PrimitiveIndex)
	return buf
}

// GpuMeshSlice locates one mesh's data inside the global vertex, primitive,
// and BVH node buffers. Size: 24 bytes.
type GpuMeshSlice struct {
	VertexOffset    uint32
	VertexCount     uint32
	PrimitiveOffset uint32
	PrimitiveCount  uint32
	NodeOffset      uint32
	NodeCount       uint32
}

// Size returns the byte size of the marshaled struct.
//
// Returns:
//   - int: the size of the struct in bytes
func (g *GpuMeshSlice) Size() int {
	return 24
}

// Marshal serializes the slice into GPU storage layout.
//
// Returns:
//   - []byte: 24-byte buffer ready for GPU upload
func (g *GpuMeshSlice) Marshal() []byte {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint32(buf[0:4], g.VertexOffset)
	binary.LittleEndian.PutUint32(buf[4:8], g.VertexCount)
	binary.LittleEndian.PutUint32(buf[8:12], g.PrimitiveOffset)
	binary.LittleEndian.PutUint32(buf[12:16], g.PrimitiveCount)
	binary.LittleEndian.PutUint32(buf[16:20], g.NodeOffset)
	binary.LittleEndian.PutUint32(buf[20:24], g.NodeCount)
	return buf
}

// GpuInstance is one entry in the global instance table the lighting shader
// indexes with the G-buffer instance index. Carries world bounds, transforms
// (including the inverse, since WGSL cannot invert matrices when casting
// shadow rays into object space), the mesh slice, and the material index.
// Size: 256 bytes.
type GpuInstance struct {
	Min                   [3]float32
	Max                   [3]float32
	Transform             mgl32.Mat4
	InverseTransform      mgl32.Mat4
	InverseTransposeModel mgl32.Mat4
	Slice                 GpuMeshSlice
	MaterialIndex         uint32
}

// Size returns the byte size of the marshaled struct.
//
// Returns:
//   - int: the size of the struct in bytes
func (g *GpuInstance) Size() int {
	return 256
}

// Marshal serializes the instance into GPU storage layout.
//
// Returns:
//   - []byte: 256-byte buffer ready for GPU upload
func (g *GpuInstance) Marshal() []byte {
	buf := make([]byte, 256)
	putVec3(buf[0:], g.Min)
	putVec3(buf[16:], g.Max)
	putMat4(buf[32:], g.Transform)
	putMat4(buf[96:], g.InverseTransform)
	putMat4(buf[160:], g.InverseTransposeModel)
	copy(buf[224:248], g.Slice.Marshal())
	binary.LittleEndian.PutUint32(buf[248:252], g.MaterialIndex)
	return buf
}

// InstanceUniformSize is the bound byte size of GpuInstanceUniform.
const InstanceUniformSize = 144

// InstanceUniformStride is the aligned stride between per-instance uniforms
// in the dynamic-offset buffer (WebGPU's minimum uniform offset alignment).
const InstanceUniformStride = 256

// GpuInstanceUniform is the per-instance dynamic-offset uniform the raster
// passes read: current and previous model transforms plus the indices that
// land in the G-buffer. Size: 144 bytes.
type GpuInstanceUniform struct {
	Transform         mgl32.Mat4
	PreviousTransform mgl32.Mat4
	InstanceIndex     uint32
	MaterialIndex     uint32
}

// Size returns the byte size of the marshaled struct.
//
// Returns:
//   - int: the size of the struct in bytes
func (g *GpuInstanceUniform) Size() int {
	return InstanceUniformSize
}

// Marshal serializes the uniform into GPU layout.
//
// Returns:
//   - []byte: 144-byte buffer ready for GPU upload
func (g *GpuInstanceUniform) Marshal() []byte {
	buf := make([]byte, InstanceUniformSize)
	putMat4(buf[0:], g.Transform)
	putMat4(buf[64:], g.PreviousTransform)
	binary.LittleEndian.PutUint32(buf[128:132], g.InstanceIndex)
	binary.LittleEndian.PutUint32(buf[132:136], g.MaterialIndex)
	return buf
}

func putVec3(buf []byte, v [3]float32) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(v[2]))
}

func putMat4(buf []byte, m mgl32.Mat4) {
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(m[i]))
	}
}
