package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustum extracts frustum planes from a combined view-projection
// matrix using the Gribb/Hartmann method.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// With a reversed infinite projection the far plane degenerates to a zero
// normal; normalizePlane leaves it untouched and DistanceTo then reports 0 for
// every point, which keeps the far test permanently passing. That matches the
// intent of an infinite far plane.
//
// Parameters:
//   - viewProj: the combined View * Projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustum(viewProj mgl32.Mat4) Frustum {
	var f Frustum

	// For column-major matrix M, element M[row][col] is at index col*4 + row.
	row := func(r int) [4]float32 {
		return [4]float32{viewProj[r], viewProj[4+r], viewProj[8+r], viewProj[12+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	set := func(index int, a, b [4]float32, sign float32) {
		f.Planes[index].Normal[0] = a[0] + sign*b[0]
		f.Planes[index].Normal[1] = a[1] + sign*b[1]
		f.Planes[index].Normal[2] = a[2] + sign*b[2]
		f.Planes[index].Distance = a[3] + sign*b[3]
	}

	set(FrustumLeft, r3, r0, 1)
	set(FrustumRight, r3, r0, -1)
	set(FrustumBottom, r3, r1, 1)
	set(FrustumTop, r3, r1, -1)
	set(FrustumNear, r3, r2, 1)
	set(FrustumFar, r3, r2, -1)

	for i := range f.Planes {
		f.normalizePlane(i)
	}

	return f
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := float32(math.Sqrt(float64(
		p.Normal[0]*p.Normal[0] +
			p.Normal[1]*p.Normal[1] +
			p.Normal[2]*p.Normal[2],
	)))

	if length > 0 {
		invLen := 1.0 / length
		p.Normal[0] *= invLen
		p.Normal[1] *= invLen
		p.Normal[2] *= invLen
		p.Distance *= invLen
	}
}

// TransformAABB returns the axis-aligned bounding box of a local-space box
// under the given transform, grown from the eight transformed corners.
//
// Parameters:
//   - min: minimum corner of the box in local space
//   - max: maximum corner of the box in local space
//   - transform: the local-to-world matrix
//
// Returns:
//   - [3]float32: minimum corner in world space
//   - [3]float32: maximum corner in world space
func TransformAABB(min, max [3]float32, transform mgl32.Mat4) ([3]float32, [3]float32) {
	const inf = float32(3.4e38)
	outMin := [3]float32{inf, inf, inf}
	outMax := [3]float32{-inf, -inf, -inf}

	for i := 0; i < 8; i++ {
		corner := mgl32.Vec4{min[0], min[1], min[2], 1}
		if i&1 != 0 {
			corner[0] = max[0]
		}
		if i&2 != 0 {
			corner[1] = max[1]
		}
		if i&4 != 0 {
			corner[2] = max[2]
		}
		world := transform.Mul4x1(corner)
		for axis := 0; axis < 3; axis++ {
			if world[axis] < outMin[axis] {
				outMin[axis] = world[axis]
			}
			if world[axis] > outMax[axis] {
				outMax[axis] = world[axis]
			}
		}
	}
	return outMin, outMax
}

// DistanceTo returns the signed distance from the plane to a point.
// Positive values are on the inside half-space of the frustum.
func (p *Plane) DistanceTo(point [3]float32) float32 {
	return p.Normal[0]*point[0] + p.Normal[1]*point[1] + p.Normal[2]*point[2] + p.Distance
}

// IntersectsSphere reports whether a bounding sphere touches or lies inside
// the frustum. A sphere is rejected as soon as it is fully behind any plane.
//
// Parameters:
//   - center: sphere center in world space
//   - radius: sphere radius
//
// Returns:
//   - bool: true if the sphere is at least partially inside the frustum
func (f *Frustum) IntersectsSphere(center [3]float32, radius float32) bool {
	for i := range f.Planes {
		if f.Planes[i].DistanceTo(center) < -radius {
			return false
		}
	}
	return true
}

// IntersectsAABB reports whether an axis-aligned bounding box touches or lies
// inside the frustum. Tests the box corner furthest along each plane normal.
//
// Parameters:
//   - min: minimum corner of the box in world space
//   - max: maximum corner of the box in world space
//
// Returns:
//   - bool: true if the box is at least partially inside the frustum
func (f *Frustum) IntersectsAABB(min, max [3]float32) bool {
	for i := range f.Planes {
		p := &f.Planes[i]
		var corner [3]float32
		for axis := 0; axis < 3; axis++ {
			if p.Normal[axis] >= 0 {
				corner[axis] = max[axis]
			} else {
				corner[axis] = min[axis]
			}
		}
		if p.DistanceTo(corner) < 0 {
			return false
		}
	}
	return true
}
