package material

import (
	"fmt"
	"sync"

	"github.com/Gaeric/hikari-go/common"
	"github.com/Gaeric/hikari-go/engine/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

// NoTexture is the sentinel texture index meaning "no texture bound"; shaders
// fall back to the material's factor values.
const NoTexture = ^uint32(0)

// StandardMaterial is a CPU-side physically based material. Texture fields are
// optional; nil means the corresponding factor is used on its own.
type StandardMaterial struct {
	Name string

	BaseColor        mgl32.Vec4
	BaseColorTexture *common.ImportedTexture

	Emissive        mgl32.Vec4
	EmissiveTexture *common.ImportedTexture

	PerceptualRoughness      float32
	Metallic                 float32
	Reflectance              float32
	MetallicRoughnessTexture *common.ImportedTexture

	NormalMapTexture *common.ImportedTexture
}

// storage is the implementation of the Storage interface.
type storage struct {
	mu *sync.Mutex

	materials []StandardMaterial
	state     mesh.AssetState

	tableBytes []byte
	textures   []*common.ImportedTexture
}

// Storage flattens registered materials into the single storage buffer the
// lighting shader indexes by material index, and dedupes their textures into
// the list bound as a texture array.
//
// Registration marks the storage Dirty; Extract rebuilds the table and moves
// the state to Updated; the GPU layer acknowledges uploads with MarkClean.
type Storage interface {
	// Add registers a material.
	//
	// Parameters:
	//   - m: the material to register
	//
	// Returns:
	//   - uint32: the material index used by instances and the G-buffer
	Add(m StandardMaterial) uint32

	// State returns the current asset state.
	//
	// Returns:
	//   - mesh.AssetState: Clean, Dirty, or Updated
	State() mesh.AssetState

	// Extract rebuilds the material table and deduped texture list. No-op
	// unless the state is Dirty. Moves the state to Updated.
	Extract()

	// MarkClean acknowledges that the GPU buffer matches the extracted table.
	MarkClean()

	// Material returns the registered material at an index.
	//
	// Parameters:
	//   - index: the material index
	//
	// Returns:
	//   - StandardMaterial: the material
	//   - error: an error if the index is out of range
	Material(index uint32) (StandardMaterial, error)

	// Count returns the number of registered materials.
	//
	// Returns:
	//   - int: the material count
	Count() int

	// TableBytes returns the marshaled material table. Valid only after Extract.
	//
	// Returns:
	//   - []byte: the table contents
	TableBytes() []byte

	// Textures returns the deduped texture list in texture-index order. Valid
	// only after Extract.
	//
	// Returns:
	//   - []*common.ImportedTexture: the textures
	Textures() []*common.ImportedTexture
}

var _ Storage = &storage{}

// NewStorage creates an empty material Storage.
//
// Returns:
//   - Storage: the storage
func NewStorage() Storage {
	return &storage{
		mu:    &sync.Mutex{},
		state: mesh.AssetStateClean,
	}
}

func (s *storage) Add(m StandardMaterial) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materials = append(s.materials, m)
	s.state = mesh.AssetStateDirty
	return uint32(len(s.materials) - 1)
}

func (s *storage) State() mesh.AssetState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *storage) Extract() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != mesh.AssetStateDirty {
		return
	}

	// Dedupe textures by name, first occurrence wins the index.
	indexByName := make(map[string]uint32)
	var textures []*common.ImportedTexture
	textureIndex := func(t *common.ImportedTexture) uint32 {
		if t == nil {
			return NoTexture
		}
		if idx, ok := indexByName[t.Name]; ok {
			return idx
		}
		idx := uint32(len(textures))
		textures = append(textures, t)
		indexByName[t.Name] = idx
		return idx
	}

	var table []byte
	for i := range s.materials {
		m := &s.materials[i]
		g := GpuStandardMaterial{
			BaseColor:                m.BaseColor,
			Emissive:                 m.Emissive,
			PerceptualRoughness:      m.PerceptualRoughness,
			Metallic:                 m.Metallic,
			Reflectance:              m.Reflectance,
			BaseColorTexture:         textureIndex(m.BaseColorTexture),
			EmissiveTexture:          textureIndex(m.EmissiveTexture),
			MetallicRoughnessTexture: textureIndex(m.MetallicRoughnessTexture),
			NormalMapTexture:         textureIndex(m.NormalMapTexture),
		}
		table = append(table, g.Marshal()...)
	}

	s.tableBytes = table
	s.textures = textures
	s.state = mesh.AssetStateUpdated
}

func (s *storage) MarkClean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == mesh.AssetStateUpdated {
		s.state = mesh.AssetStateClean
	}
}

func (s *storage) Material(index uint32) (StandardMaterial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(index) >= len(s.materials) {
		return StandardMaterial{}, fmt.Errorf("unknown material index %d", index)
	}
	return s.materials[index], nil
}

func (s *storage) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.materials)
}

func (s *storage) TableBytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tableBytes
}

func (s *storage) Textures() []*common.ImportedTexture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textures
}
