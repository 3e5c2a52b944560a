package mesh

import "sort"

// aabb is a CPU-side axis-aligned bounding box used during BVH construction.
type aabb struct {
	min [3]float32
	max [3]float32
}

func emptyAABB() aabb {
	const inf = float32(3.4e38)
	return aabb{
		min: [3]float32{inf, inf, inf},
		max: [3]float32{-inf, -inf, -inf},
	}
}

func (a *aabb) grow(p [3]float32) {
	for i := 0; i < 3; i++ {
		if p[i] < a.min[i] {
			a.min[i] = p[i]
		}
		if p[i] > a.max[i] {
			a.max[i] = p[i]
		}
	}
}

func (a *aabb) merge(b aabb) {
	a.grow(b.min)
	a.grow(b.max)
}

func (a *aabb) centroid() [3]float32 {
	return [3]float32{
		(a.min[0] + a.max[0]) * 0.5,
		(a.min[1] + a.max[1]) * 0.5,
		(a.min[2] + a.max[2]) * 0.5,
	}
}

// longestAxis returns the axis (0, 1, or 2) with the largest extent.
func (a *aabb) longestAxis() int {
	axis := 0
	best := a.max[0] - a.min[0]
	for i := 1; i < 3; i++ {
		if ext := a.max[i] - a.min[i]; ext > best {
			best = ext
			axis = i
		}
	}
	return axis
}

// bvhPrimitive pairs a primitive index with its bounds and centroid during
// construction. The primitive index is relative to the mesh.
type bvhPrimitive struct {
	index    uint32
	bounds   aabb
	centroid [3]float32
}

// BuildBVH builds a bounding volume hierarchy over the mesh's triangles by
// recursive median split on the longest centroid extent, then flattens it
// depth first into the entry/exit index form the lighting shader traverses
// without recursion.
//
// Parameters:
//   - m: the mesh to build over; must be validated
//
// Returns:
//   - []GpuNode: the flattened node buffer (empty for an empty mesh)
func BuildBVH(m *Mesh) []GpuNode {
	primCount := len(m.Indices) / 3
	if primCount == 0 {
		return nil
	}

	prims := make([]bvhPrimitive, primCount)
	for i := 0; i < primCount; i++ {
		b := emptyAABB()
		for j := 0; j < 3; j++ {
			b.grow(m.Vertices[m.Indices[i*3+j]].Position)
		}
		prims[i] = bvhPrimitive{
			index:    uint32(i),
			bounds:   b,
			centroid: b.centroid(),
		}
	}

	nodes := make([]GpuNode, 0, 2*primCount-1)
	return flattenBVH(prims, nodes)
}

// flattenBVH emits the subtree over prims into nodes depth first and returns
// the grown slice. Internal nodes enter their left child at EntryIndex and
// skip the whole subtree at ExitIndex on a miss.
func flattenBVH(prims []bvhPrimitive, nodes []GpuNode) []GpuNode {
	bounds := emptyAABB()
	centroids := emptyAABB()
	for i := range prims {
		bounds.merge(prims[i].bounds)
		centroids.grow(prims[i].centroid)
	}

	idx := len(nodes)
	nodes = append(nodes, GpuNode{Min: bounds.min, Max: bounds.max})

	if len(prims) == 1 {
		nodes[idx].EntryIndex = LeafSentinel
		nodes[idx].PrimitiveIndex = prims[0].index
		nodes[idx].ExitIndex = uint32(len(nodes))
		return nodes
	}

	axis := centroids.longestAxis()
	sort.Slice(prims, func(a, b int) bool {
		return prims[a].centroid[axis] < prims[b].centroid[axis]
	})
	mid := len(prims) / 2

	nodes[idx].EntryIndex = uint32(idx + 1)
	nodes = flattenBVH(prims[:mid], nodes)
	nodes = flattenBVH(prims[mid:], nodes)
	nodes[idx].ExitIndex = uint32(len(nodes))
	return nodes
}
