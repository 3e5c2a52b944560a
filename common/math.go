package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}

// PerspectiveInfiniteReverse builds a perspective projection matrix with an
// infinite far plane and reversed depth, mapping the near plane to depth 1 and
// infinity to depth 0. Reversed depth spreads floating point precision evenly
// across the view range and is the convention used by every depth attachment
// in this renderer (clear value 0, compare GreaterEqual).
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//
// Returns:
//   - mgl32.Mat4: the projection matrix (column-major, WebGPU clip space [0, 1])
func PerspectiveInfiniteReverse(fovY, aspect, near float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))

	var m mgl32.Mat4
	m[0] = f / aspect
	m[5] = f
	m[11] = -1.0
	m[14] = near
	return m
}

// OrthographicZO builds an orthographic projection matrix mapping the view
// volume to WebGPU clip space: x, y to [-1, 1] and depth to [0, 1] (near
// plane at 0, far plane at 1). mgl32.Ortho targets OpenGL's [-1, 1] depth
// range and cannot be used with wgpu depth attachments directly.
//
// Parameters:
//   - left, right: x extent of the view volume
//   - bottom, top: y extent of the view volume
//   - near, far: z extent of the view volume (distances along -Z)
//
// Returns:
//   - mgl32.Mat4: the projection matrix (column-major)
func OrthographicZO(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	var m mgl32.Mat4
	m[0] = 2.0 / (right - left)
	m[5] = 2.0 / (top - bottom)
	m[10] = 1.0 / (near - far)
	m[12] = -(right + left) / (right - left)
	m[13] = -(top + bottom) / (top - bottom)
	m[14] = near / (near - far)
	m[15] = 1.0
	return m
}

// Halton returns the index-th element of the Halton low discrepancy sequence
// for the given base. Index 0 yields 0. Used to derive per-frame sampling
// offsets that cover the unit interval more evenly than uniform randoms.
//
// Parameters:
//   - base: the sequence base (a small prime, e.g. 2 or 3)
//   - index: the element index (0-based)
//
// Returns:
//   - float32: the sequence value in [0, 1)
func Halton(base uint32, index uint32) float32 {
	var result float64
	f := 1.0
	for index > 0 {
		f /= float64(base)
		result += f * float64(index%base)
		index /= base
	}
	return float32(result)
}
