package mesh

import "math"

// NewCube builds an axis-aligned cube centered at the origin with flat-shaded
// faces (24 vertices, 12 triangles).
//
// Parameters:
//   - size: edge length
//
// Returns:
//   - *Mesh: the cube mesh
func NewCube(size float32) *Mesh {
	h := size * 0.5

	// Per-face vertices so normals stay flat across each face.
	faces := [6]struct {
		normal [3]float32
		// corner order: (-u,-v), (+u,-v), (+u,+v), (-u,+v) in face tangent space
		corners [4][3]float32
	}{
		{[3]float32{0, 0, 1}, [4][3]float32{{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{h, -h, -h}, {-h, -h, -h}, {-h, h, -h}, {h, h, -h}}},
		{[3]float32{1, 0, 0}, [4][3]float32{{h, -h, h}, {h, -h, -h}, {h, h, -h}, {h, h, h}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-h, -h, -h}, {-h, -h, h}, {-h, h, h}, {-h, h, -h}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-h, h, h}, {h, h, h}, {h, h, -h}, {-h, h, -h}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-h, -h, -h}, {h, -h, -h}, {h, -h, h}, {-h, -h, h}}},
	}
	uvs := [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

	m := &Mesh{Name: "cube"}
	for _, f := range faces {
		base := uint32(len(m.Vertices))
		for i := 0; i < 4; i++ {
			m.Vertices = append(m.Vertices, Vertex{
				Position: f.corners[i],
				Normal:   f.normal,
				UV:       uvs[i],
			})
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

// NewPlane builds a flat square in the XZ plane centered at the origin,
// facing +Y.
//
// Parameters:
//   - size: edge length
//
// Returns:
//   - *Mesh: the plane mesh
func NewPlane(size float32) *Mesh {
	h := size * 0.5
	return &Mesh{
		Name: "plane",
		Vertices: []Vertex{
			{Position: [3]float32{-h, 0, h}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{0, 1}},
			{Position: [3]float32{h, 0, h}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{1, 1}},
			{Position: [3]float32{h, 0, -h}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{1, 0}},
			{Position: [3]float32{-h, 0, -h}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{0, 0}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

// NewUVSphere builds a longitude/latitude sphere centered at the origin with
// smooth normals.
//
// Parameters:
//   - radius: sphere radius
//   - sectors: longitudinal segment count (minimum 3)
//   - stacks: latitudinal segment count (minimum 2)
//
// Returns:
//   - *Mesh: the sphere mesh
func NewUVSphere(radius float32, sectors, stacks int) *Mesh {
	if sectors < 3 {
		sectors = 3
	}
	if stacks < 2 {
		stacks = 2
	}

	m := &Mesh{Name: "uv_sphere"}
	for i := 0; i <= stacks; i++ {
		phi := math.Pi/2 - math.Pi*float64(i)/float64(stacks)
		y := float32(math.Sin(phi))
		r := float32(math.Cos(phi))
		for j := 0; j <= sectors; j++ {
			theta := 2 * math.Pi * float64(j) / float64(sectors)
			x := r * float32(math.Cos(theta))
			z := r * float32(math.Sin(theta))
			m.Vertices = append(m.Vertices, Vertex{
				Position: [3]float32{radius * x, radius * y, radius * z},
				Normal:   [3]float32{x, y, z},
				UV:       [2]float32{float32(j) / float32(sectors), float32(i) / float32(stacks)},
			})
		}
	}

	stride := uint32(sectors + 1)
	for i := 0; i < stacks; i++ {
		for j := 0; j < sectors; j++ {
			a := uint32(i)*stride + uint32(j)
			b := a + stride
			if i != 0 {
				m.Indices = append(m.Indices, a, b, a+1)
			}
			if i != stacks-1 {
				m.Indices = append(m.Indices, a+1, b, b+1)
			}
		}
	}
	return m
}
