package frame

import (
	"bytes"
	"encoding/binary"
)

// KernelSize is the number of taps in the 5x5 filter kernel carried by the
// frame uniform.
const KernelSize = 25

// GpuFrame is the per-frame uniform consumed by the lighting shader. Layout
// matches the WGSL Frame struct: a u32 frame number padded to 16 bytes,
// followed by 25 vec3 kernel entries (offset.x, offset.y, weight) at the
// 16-byte array stride WGSL gives vec3 elements.
type GpuFrame struct {
	Number uint32
	_      [3]uint32
	Kernel [KernelSize][4]float32
}

// NewGpuFrame builds the frame uniform for the given frame number. The kernel
// table is constant; only the number changes between frames.
//
// Parameters:
//   - number: the frame number
//
// Returns:
//   - GpuFrame: the frame uniform
func NewGpuFrame(number uint32) GpuFrame {
	return GpuFrame{
		Number: number,
		Kernel: kernel,
	}
}

// Size returns the byte size of the marshaled uniform.
//
// Returns:
//   - int: size in bytes
func (g *GpuFrame) Size() int {
	return 16 + KernelSize*16
}

// Marshal serializes the uniform to little-endian bytes in GPU layout.
//
// Returns:
//   - []byte: the serialized uniform
func (g *GpuFrame) Marshal() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, g.Size()))
	_ = binary.Write(buf, binary.LittleEndian, g)
	return buf.Bytes()
}

// kernel is the 5x5 binomial filter table, the outer product of
// [1 4 6 4 1] / 16 with itself. Each entry is (offset.x, offset.y, weight).
var kernel = buildKernel()

func buildKernel() [KernelSize][4]float32 {
	row := [5]float32{1.0 / 16.0, 4.0 / 16.0, 6.0 / 16.0, 4.0 / 16.0, 1.0 / 16.0}

	var k [KernelSize][4]float32
	i := 0
	for y := -2; y <= 2; y++ {
		for x := -2; x <= 2; x++ {
			k[i] = [4]float32{
				float32(x),
				float32(y),
				row[x+2] * row[y+2],
				0,
			}
			i++
		}
	}
	return k
}
