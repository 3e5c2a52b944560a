package mesh

import (
	"errors"
	"fmt"
)

// AssetState is the tri-state change signal that gates GPU rewrites of the
// flattened mesh buffers.
type AssetState int

const (
	// AssetStateClean means the GPU copy matches the CPU data.
	AssetStateClean AssetState = iota
	// AssetStateDirty means CPU data changed and extraction has not run yet.
	AssetStateDirty
	// AssetStateUpdated means extraction ran and the GPU buffers need a rewrite.
	AssetStateUpdated
)

// Vertex is a single mesh vertex with the attribute set the prepass requires.
// This is the raster vertex buffer layout: 32 bytes, tightly packed.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
}

// Mesh is a CPU-side triangle mesh asset. Indices form triangles in groups of
// three.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
}

// ErrIncompleteMesh reports a mesh missing the attributes or index data the
// pipeline requires. Such meshes are skipped, never rendered partially.
var ErrIncompleteMesh = errors.New("mesh is missing required attributes")

// Validate checks that the mesh has vertices and a whole number of triangles
// with in-range indices.
//
// Returns:
//   - error: ErrIncompleteMesh (wrapped with detail) if the mesh is unusable
func (m *Mesh) Validate() error {
	if len(m.Vertices) == 0 {
		return fmt.Errorf("%w: %q has no vertices", ErrIncompleteMesh, m.Name)
	}
	if len(m.Indices) == 0 || len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: %q has %d indices (want a positive multiple of 3)", ErrIncompleteMesh, m.Name, len(m.Indices))
	}
	for _, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return fmt.Errorf("%w: %q index %d out of range (%d vertices)", ErrIncompleteMesh, m.Name, idx, len(m.Vertices))
		}
	}
	return nil
}

// Bounds returns the axis-aligned bounding box of the mesh vertices.
//
// Returns:
//   - [3]float32: minimum corner
//   - [3]float32: maximum corner
func (m *Mesh) Bounds() ([3]float32, [3]float32) {
	if len(m.Vertices) == 0 {
		return [3]float32{}, [3]float32{}
	}
	min := m.Vertices[0].Position
	max := m.Vertices[0].Position
	for _, v := range m.Vertices[1:] {
		for i := 0; i < 3; i++ {
			if v.Position[i] < min[i] {
				min[i] = v.Position[i]
			}
			if v.Position[i] > max[i] {
				max[i] = v.Position[i]
			}
		}
	}
	return min, max
}
