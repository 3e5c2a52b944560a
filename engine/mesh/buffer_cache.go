package mesh

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// BufferCreator is the slice of the renderer the buffer cache needs.
type BufferCreator interface {
	CreateMeshBuffers(label string, vertexData, indexData []byte) (*wgpu.Buffer, *wgpu.Buffer, error)
}

// Buffers is one mesh's raster geometry on the GPU.
type Buffers struct {
	Vertex     *wgpu.Buffer
	Index      *wgpu.Buffer
	IndexCount uint32
}

// bufferCache is the implementation of the BufferCache interface.
type bufferCache struct {
	creator BufferCreator
	storage Storage
	entries map[MeshID]*Buffers
}

// BufferCache lazily creates and reuses per-mesh vertex/index buffers for the
// raster passes. The prepass and shadow pass share one cache so each mesh is
// uploaded once.
type BufferCache interface {
	// Ensure returns the GPU buffers for a mesh, creating them on first use.
	//
	// Parameters:
	//   - id: the mesh id
	//
	// Returns:
	//   - *Buffers: the mesh's GPU buffers
	//   - error: an error if the id is unknown or buffer creation fails
	Ensure(id MeshID) (*Buffers, error)

	// Release frees every cached buffer.
	Release()
}

var _ BufferCache = &bufferCache{}

// NewBufferCache creates a BufferCache over the given storage.
//
// Parameters:
//   - creator: the renderer's buffer creation surface
//   - storage: the mesh storage meshes are registered with
//
// Returns:
//   - BufferCache: the cache
func NewBufferCache(creator BufferCreator, storage Storage) BufferCache {
	return &bufferCache{
		creator: creator,
		storage: storage,
		entries: make(map[MeshID]*Buffers),
	}
}

func (c *bufferCache) Ensure(id MeshID) (*Buffers, error) {
	if entry, ok := c.entries[id]; ok {
		return entry, nil
	}

	m := c.storage.Mesh(id)
	if m == nil {
		return nil, fmt.Errorf("unknown mesh id %d", id)
	}

	vertexData, indexData := RasterBytes(m)
	vb, ib, err := c.creator.CreateMeshBuffers(m.Name, vertexData, indexData)
	if err != nil {
		return nil, fmt.Errorf("failed to create buffers for mesh %q: %w", m.Name, err)
	}

	entry := &Buffers{
		Vertex:     vb,
		Index:      ib,
		IndexCount: uint32(len(m.Indices)),
	}
	c.entries[id] = entry
	return entry, nil
}

func (c *bufferCache) Release() {
	for _, entry := range c.entries {
		if entry.Vertex != nil {
			entry.Vertex.Release()
		}
		if entry.Index != nil {
			entry.Index.Release()
		}
	}
	c.entries = make(map[MeshID]*Buffers)
}
