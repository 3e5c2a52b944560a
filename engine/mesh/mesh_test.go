package mesh

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestValidateRejectsBrokenMeshes(t *testing.T) {
	cases := []struct {
		name string
		m    Mesh
	}{
		{"no vertices", Mesh{Name: "empty"}},
		{"no indices", Mesh{Name: "points", Vertices: []Vertex{{}}}},
		{"partial triangle", Mesh{Name: "partial", Vertices: []Vertex{{}, {}}, Indices: []uint32{0, 1}}},
		{"index out of range", Mesh{Name: "oob", Vertices: []Vertex{{}, {}, {}}, Indices: []uint32{0, 1, 3}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := c.m.Validate(); !errors.Is(err, ErrIncompleteMesh) {
				t.Errorf("Validate() = %v, want ErrIncompleteMesh", err)
			}
		})
	}
}

func TestShapesValidate(t *testing.T) {
	for _, m := range []*Mesh{NewCube(1), NewPlane(10), NewUVSphere(1, 16, 8)} {
		if err := m.Validate(); err != nil {
			t.Errorf("%q: %v", m.Name, err)
		}
	}
}

func TestCubeBounds(t *testing.T) {
	min, max := NewCube(2).Bounds()
	if min != [3]float32{-1, -1, -1} || max != [3]float32{1, 1, 1} {
		t.Errorf("cube bounds = (%v, %v), want unit extents", min, max)
	}
}

func TestBuildBVHCoversAllPrimitives(t *testing.T) {
	m := NewUVSphere(1, 12, 6)
	nodes := BuildBVH(m)
	primCount := len(m.Indices) / 3

	seen := make(map[uint32]bool)
	leaves := 0
	for i, n := range nodes {
		if n.EntryIndex == LeafSentinel {
			leaves++
			if int(n.PrimitiveIndex) >= primCount {
				t.Fatalf("node %d references primitive %d of %d", i, n.PrimitiveIndex, primCount)
			}
			if seen[n.PrimitiveIndex] {
				t.Fatalf("primitive %d appears in two leaves", n.PrimitiveIndex)
			}
			seen[n.PrimitiveIndex] = true
		}
	}
	if leaves != primCount {
		t.Fatalf("%d leaves for %d primitives", leaves, primCount)
	}
	if len(nodes) != 2*primCount-1 {
		t.Fatalf("node count = %d, want %d for a binary tree", len(nodes), 2*primCount-1)
	}
}

func TestBuildBVHTraversalIndices(t *testing.T) {
	m := NewCube(1)
	nodes := BuildBVH(m)

	// Walking the entry/exit chain from the root must visit every node once
	// and terminate exactly at the end of the buffer.
	visited := 0
	i := uint32(0)
	for int(i) < len(nodes) {
		visited++
		n := nodes[i]
		if n.EntryIndex == LeafSentinel {
			i = n.ExitIndex
		} else {
			if n.EntryIndex != i+1 {
				t.Fatalf("node %d: entry = %d, want %d (depth-first layout)", i, n.EntryIndex, i+1)
			}
			if n.ExitIndex <= i || int(n.ExitIndex) > len(nodes) {
				t.Fatalf("node %d: exit = %d out of range", i, n.ExitIndex)
			}
			i = n.EntryIndex
		}
	}
	if visited != len(nodes) {
		t.Fatalf("hit-path traversal visited %d of %d nodes", visited, len(nodes))
	}
}

func TestBuildBVHChildBoundsNested(t *testing.T) {
	m := NewPlane(10)
	nodes := BuildBVH(m)
	root := nodes[0]
	for i, n := range nodes {
		for axis := 0; axis < 3; axis++ {
			if n.Min[axis] < root.Min[axis] || n.Max[axis] > root.Max[axis] {
				t.Fatalf("node %d bounds (%v, %v) escape root (%v, %v)", i, n.Min, n.Max, root.Min, root.Max)
			}
		}
	}
}

func TestStorageExtractBuildsContiguousSlices(t *testing.T) {
	s := NewStorage()
	cube, err := s.Add(NewCube(1))
	if err != nil {
		t.Fatalf("Add cube: %v", err)
	}
	plane, err := s.Add(NewPlane(4))
	if err != nil {
		t.Fatalf("Add plane: %v", err)
	}

	if s.State() != AssetStateDirty {
		t.Fatalf("state after Add = %v, want Dirty", s.State())
	}
	if err := s.Extract(); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if s.State() != AssetStateUpdated {
		t.Fatalf("state after Extract = %v, want Updated", s.State())
	}

	cubeSlice, err := s.Slice(cube)
	if err != nil {
		t.Fatalf("Slice(cube): %v", err)
	}
	planeSlice, err := s.Slice(plane)
	if err != nil {
		t.Fatalf("Slice(plane): %v", err)
	}

	if cubeSlice.VertexOffset != 0 {
		t.Errorf("first mesh vertex offset = %d, want 0", cubeSlice.VertexOffset)
	}
	if planeSlice.VertexOffset != cubeSlice.VertexCount {
		t.Errorf("second mesh vertex offset = %d, want %d", planeSlice.VertexOffset, cubeSlice.VertexCount)
	}
	if planeSlice.PrimitiveOffset != cubeSlice.PrimitiveCount {
		t.Errorf("second mesh primitive offset = %d, want %d", planeSlice.PrimitiveOffset, cubeSlice.PrimitiveCount)
	}

	var g GpuVertex
	wantVertexBytes := int(cubeSlice.VertexCount+planeSlice.VertexCount) * g.Size()
	if len(s.VertexBytes()) != wantVertexBytes {
		t.Errorf("vertex buffer = %d bytes, want %d", len(s.VertexBytes()), wantVertexBytes)
	}

	s.MarkClean()
	if s.State() != AssetStateClean {
		t.Fatalf("state after MarkClean = %v, want Clean", s.State())
	}
}

func TestStorageRejectsInvalidMesh(t *testing.T) {
	s := NewStorage()
	if _, err := s.Add(&Mesh{Name: "broken"}); !errors.Is(err, ErrIncompleteMesh) {
		t.Fatalf("Add(broken) = %v, want ErrIncompleteMesh", err)
	}
	if s.State() != AssetStateClean {
		t.Fatal("rejected mesh dirtied the storage")
	}
}

func TestInstanceBytesSkipsUnknownMesh(t *testing.T) {
	s := NewStorage()
	cube, err := s.Add(NewCube(1))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Extract(); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	identity := mgl32.Ident4()
	s.SetInstances([]Instance{
		{Mesh: cube, Transform: identity, PreviousTransform: identity},
		{Mesh: MeshID(99), Transform: identity, PreviousTransform: identity},
	})

	var g GpuInstance
	data := s.InstanceBytes()
	if len(data) != g.Size() {
		t.Fatalf("instance buffer = %d bytes, want %d (unknown mesh skipped)", len(data), g.Size())
	}
}

func TestGpuTypeSizes(t *testing.T) {
	// The WGSL side binds these with MinBindingSize equal to the element size;
	// any drift breaks bind group creation at runtime.
	var v GpuVertex
	var p GpuPrimitive
	var n GpuNode
	var i GpuInstance
	for _, c := range []struct {
		name string
		got  int
		want int
	}{
		{"GpuVertex", len(v.Marshal()), 48},
		{"GpuPrimitive", len(p.Marshal()), 16},
		{"GpuNode", len(n.Marshal()), 48},
		{"GpuInstance", len(i.Marshal()), 256},
	} {
		if c.got != c.want {
			t.Errorf("%s marshals to %d bytes, want %d", c.name, c.got, c.want)
		}
	}
}
