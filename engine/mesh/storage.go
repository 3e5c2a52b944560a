package mesh

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Gaeric/hikari-go/common"
	"github.com/go-gl/mathgl/mgl32"
)

// MeshID identifies a mesh registered with a Storage.
type MeshID int

// Instance places a registered mesh in the world with a material. Transforms
// are full world matrices; PreviousTransform feeds the prepass motion vectors.
type Instance struct {
	Mesh              MeshID
	MaterialIndex     uint32
	Transform         mgl32.Mat4
	PreviousTransform mgl32.Mat4
}

// extracted is the per-mesh output of the parallel extraction phase.
type extracted struct {
	vertices   []GpuVertex
	primitives []GpuPrimitive
	nodes      []GpuNode
}

// storage is the implementation of the Storage interface.
type storage struct {
	mu *sync.Mutex

	meshes    []*Mesh
	extracted []extracted
	slices    []GpuMeshSlice
	state     AssetState

	instances []Instance

	pool        worker.DynamicWorkerPool
	poolWorkers int

	vertexBytes    []byte
	primitiveBytes []byte
	nodeBytes      []byte
}

// Storage flattens registered meshes into the global GPU storage buffers the
// lighting shader ray-queries: one vertex buffer, one primitive buffer, one
// BVH node buffer, plus per-mesh slices and a per-frame instance table.
//
// Registration marks the storage Dirty. Extract runs the per-mesh flatten and
// BVH build on a worker pool and moves the state to Updated; the GPU layer
// rewrites its buffers on Updated and acknowledges with MarkClean.
type Storage interface {
	// Add registers a mesh. Invalid meshes are rejected and logged, never
	// partially uploaded.
	//
	// Parameters:
	//   - m: the mesh to register
	//
	// Returns:
	//   - MeshID: the id to reference the mesh by
	//   - error: ErrIncompleteMesh (wrapped) if the mesh fails validation
	Add(m *Mesh) (MeshID, error)

	// State returns the current asset state.
	//
	// Returns:
	//   - AssetState: Clean, Dirty, or Updated
	State() AssetState

	// Extract flattens all registered meshes. Per-mesh work (GPU vertex
	// conversion, primitive table, BVH build) fans out on the worker pool;
	// the global concatenation and slice table build run on the caller.
	// No-op unless the state is Dirty. Moves the state to Updated.
	//
	// Returns:
	//   - error: an error if any mesh fails extraction
	Extract() error

	// MarkClean acknowledges that the GPU buffers match the extracted data.
	// Call after uploading the buffers returned by the byte accessors.
	MarkClean()

	// Slice returns the mesh's location in the global buffers. Valid only
	// after Extract.
	//
	// Parameters:
	//   - id: the mesh id
	//
	// Returns:
	//   - GpuMeshSlice: the slice
	//   - error: an error if the id is unknown
	Slice(id MeshID) (GpuMeshSlice, error)

	// Mesh returns the registered mesh for an id, or nil if unknown.
	//
	// Parameters:
	//   - id: the mesh id
	//
	// Returns:
	//   - *Mesh: the mesh or nil
	Mesh(id MeshID) *Mesh

	// VertexBytes returns the marshaled global vertex buffer. Valid only after Extract.
	//
	// Returns:
	//   - []byte: the vertex buffer contents
	VertexBytes() []byte

	// PrimitiveBytes returns the marshaled global primitive buffer. Valid only after Extract.
	//
	// Returns:
	//   - []byte: the primitive buffer contents
	PrimitiveBytes() []byte

	// NodeBytes returns the marshaled global BVH node buffer. Valid only after Extract.
	//
	// Returns:
	//   - []byte: the node buffer contents
	NodeBytes() []byte

	// SetInstances replaces the instance list for the coming frame.
	//
	// Parameters:
	//   - instances: the world instances to render
	SetInstances(instances []Instance)

	// Instances returns the current instance list.
	//
	// Returns:
	//   - []Instance: the instances
	Instances() []Instance

	// InstanceBytes marshals the instance table for GPU upload, resolving each
	// instance's mesh slice and world-space bounds. Instances referencing
	// unknown meshes are skipped with a logged error.
	//
	// Returns:
	//   - []byte: the instance table contents
	InstanceBytes() []byte
}

var _ Storage = &storage{}

// NewStorage creates a Storage with the specified options applied.
//
// Parameters:
//   - options: functional options to configure the storage
//
// Returns:
//   - Storage: the configured storage
func NewStorage(options ...StorageBuilderOption) Storage {
	s := &storage{
		mu:          &sync.Mutex{},
		state:       AssetStateClean,
		poolWorkers: max(runtime.NumCPU()-1, 1),
	}
	for _, option := range options {
		option(s)
	}
	// Queue size of 256 accommodates typical mesh counts with headroom.
	s.pool = worker.NewDynamicWorkerPool(s.poolWorkers, 256, 1*time.Second)
	return s
}

func (s *storage) Add(m *Mesh) (MeshID, error) {
	if err := m.Validate(); err != nil {
		log.Printf("mesh storage: skipping %q: %v", m.Name, err)
		return -1, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.meshes = append(s.meshes, m)
	s.state = AssetStateDirty
	return MeshID(len(s.meshes) - 1), nil
}

func (s *storage) State() AssetState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *storage) Extract() error {
	s.mu.Lock()
	if s.state != AssetStateDirty {
		s.mu.Unlock()
		return nil
	}
	meshes := s.meshes
	s.mu.Unlock()

	results := make([]extracted, len(meshes))

	// Per-mesh flatten and BVH build are independent; fan them out and use a
	// WaitGroup barrier since pool.Wait() blocks until workers idle-exit.
	var wg sync.WaitGroup
	for i, m := range meshes {
		wg.Add(1)
		iCap, mCap := i, m
		s.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				results[iCap] = extractMesh(mCap)
				return nil, nil
			},
		})
	}
	wg.Wait()

	// Concatenate into the global buffers and record per-mesh slices.
	slices := make([]GpuMeshSlice, len(results))
	var vertexBytes, primitiveBytes, nodeBytes []byte
	var vertexOffset, primitiveOffset, nodeOffset uint32
	for i, ex := range results {
		slices[i] = GpuMeshSlice{
			VertexOffset:    vertexOffset,
			VertexCount:     uint32(len(ex.vertices)),
			PrimitiveOffset: primitiveOffset,
			PrimitiveCount:  uint32(len(ex.primitives)),
			NodeOffset:      nodeOffset,
			NodeCount:       uint32(len(ex.nodes)),
		}
		for j := range ex.vertices {
			vertexBytes = append(vertexBytes, ex.vertices[j].Marshal()...)
		}
		for j := range ex.primitives {
			primitiveBytes = append(primitiveBytes, ex.primitives[j].Marshal()...)
		}
		for j := range ex.nodes {
			nodeBytes = append(nodeBytes, ex.nodes[j].Marshal()...)
		}
		vertexOffset += uint32(len(ex.vertices))
		primitiveOffset += uint32(len(ex.primitives))
		nodeOffset += uint32(len(ex.nodes))
	}

	s.mu.Lock()
	s.extracted = results
	s.slices = slices
	s.vertexBytes = vertexBytes
	s.primitiveBytes = primitiveBytes
	s.nodeBytes = nodeBytes
	s.state = AssetStateUpdated
	s.mu.Unlock()
	return nil
}

// extractMesh converts one mesh into its GPU form: storage-layout vertices,
// the primitive index table, and the flattened BVH.
func extractMesh(m *Mesh) extracted {
	vertices := make([]GpuVertex, len(m.Vertices))
	for i, v := range m.Vertices {
		vertices[i] = GpuVertex{Position: v.Position, Normal: v.Normal, UV: v.UV}
	}

	primitives := make([]GpuPrimitive, len(m.Indices)/3)
	for i := range primitives {
		primitives[i] = GpuPrimitive{
			Indices: [3]uint32{m.Indices[i*3], m.Indices[i*3+1], m.Indices[i*3+2]},
		}
	}

	return extracted{
		vertices:   vertices,
		primitives: primitives,
		nodes:      BuildBVH(m),
	}
}

func (s *storage) MarkClean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == AssetStateUpdated {
		s.state = AssetStateClean
	}
}

func (s *storage) Slice(id MeshID) (GpuMeshSlice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(id) < 0 || int(id) >= len(s.slices) {
		return GpuMeshSlice{}, fmt.Errorf("unknown mesh id %d", id)
	}
	return s.slices[id], nil
}

func (s *storage) Mesh(id MeshID) *Mesh {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(id) < 0 || int(id) >= len(s.meshes) {
		return nil
	}
	return s.meshes[id]
}

func (s *storage) VertexBytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vertexBytes
}

func (s *storage) PrimitiveBytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.primitiveBytes
}

func (s *storage) NodeBytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodeBytes
}

func (s *storage) SetInstances(instances []Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances = instances
}

func (s *storage) Instances() []Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instances
}

func (s *storage) InstanceBytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []byte
	for _, inst := range s.instances {
		if int(inst.Mesh) < 0 || int(inst.Mesh) >= len(s.slices) {
			log.Printf("mesh storage: instance references unknown mesh id %d, skipping", inst.Mesh)
			continue
		}
		m := s.meshes[inst.Mesh]
		min, max := transformedBounds(m, inst.Transform)
		inverse := inst.Transform.Inv()
		g := GpuInstance{
			Min:                   min,
			Max:                   max,
			Transform:             inst.Transform,
			InverseTransform:      inverse,
			InverseTransposeModel: inverse.Transpose(),
			Slice:                 s.slices[inst.Mesh],
			MaterialIndex:         inst.MaterialIndex,
		}
		out = append(out, g.Marshal()...)
	}
	return out
}

// transformedBounds returns the world-space AABB of the mesh's local bounds
// under the given transform.
func transformedBounds(m *Mesh, transform mgl32.Mat4) ([3]float32, [3]float32) {
	localMin, localMax := m.Bounds()
	return common.TransformAABB(localMin, localMax, transform)
}
