package loader

import (
	"fmt"
	"math"

	"github.com/Gaeric/hikari-go/engine/mesh"
)

// extractedPrimitive pairs one engine mesh with the glTF material index the
// primitive referenced (-1 when the primitive has no material).
type extractedPrimitive struct {
	Mesh          *mesh.Mesh
	MaterialIndex int
}

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
}

// gltfMeshExtractor defines the interface for extracting mesh data from a parsed glTF document.
// It converts raw glTF accessor data into engine-ready mesh.Mesh values.
type gltfMeshExtractor interface {
	// ExtractMesh extracts a single mesh by index.
	// Returns one primitive entry per glTF primitive (glTF meshes can have multiple primitives).
	//
	// Parameters:
	//   - meshIndex: the index of the mesh to extract
	//
	// Returns:
	//   - []extractedPrimitive: one entry per primitive
	//   - error: error if extraction fails
	ExtractMesh(meshIndex int) ([]extractedPrimitive, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(parser gltfParser) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) ([]extractedPrimitive, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", meshIndex)
	}

	m := &doc.Meshes[meshIndex]
	var result []extractedPrimitive

	for primIdx := range m.Primitives {
		prim := &m.Primitives[primIdx]
		extracted, err := e.extractPrimitive(prim, m.Name, primIdx)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIdx, err)
		}
		result = append(result, *extracted)
	}

	return result, nil
}

// extractPrimitive extracts a single primitive as an engine mesh.
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive, meshName string, primIndex int) (*extractedPrimitive, error) {
	// Check for triangle mode (default is TRIANGLES)
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return nil, fmt.Errorf("unsupported primitive mode: %d (only triangles supported)", *prim.Mode)
	}

	// Extract positions (required)
	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}

	positions, err := e.parser.ReadVec3Accessor(posAccessor)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}

	// Initialize vertices with positions
	vertexCount := len(positions)
	vertices := make([]mesh.Vertex, vertexCount)
	for i, pos := range positions {
		vertices[i].Position = pos
	}

	// Extract normals (optional, generated from geometry if absent)
	hasNormals := false
	if normalAccessor, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := e.parser.ReadVec3Accessor(normalAccessor)
		if err != nil {
			return nil, fmt.Errorf("failed to read normals: %w", err)
		}
		for i := range normals {
			if i < vertexCount {
				vertices[i].Normal = normals[i]
			}
		}
		hasNormals = true
	}

	// Extract texture coordinates (optional)
	if texCoordAccessor, ok := prim.Attributes["TEXCOORD_0"]; ok {
		texCoords, err := e.parser.ReadVec2Accessor(texCoordAccessor)
		if err != nil {
			return nil, fmt.Errorf("failed to read texcoords: %w", err)
		}
		for i := range texCoords {
			if i < vertexCount {
				vertices[i].UV = texCoords[i]
			}
		}
	}

	// Extract indices
	var indices []uint32
	if prim.Indices != nil {
		indices, err = e.parser.ReadIndicesAccessor(*prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		// Generate sequential indices if none provided
		indices = make([]uint32, vertexCount)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	// Generate smooth vertex normals from triangle geometry when the glTF
	// file omits the NORMAL attribute.
	if !hasNormals && len(indices) >= 3 {
		generateNormals(vertices, indices)
	}

	// Build mesh name
	name := meshName
	if name == "" {
		name = fmt.Sprintf("mesh_%d", primIndex)
	}
	if primIndex > 0 {
		name = fmt.Sprintf("%s_prim%d", name, primIndex)
	}

	materialIndex := -1
	if prim.Material != nil {
		materialIndex = *prim.Material
	}

	return &extractedPrimitive{
		Mesh: &mesh.Mesh{
			Name:     name,
			Vertices: vertices,
			Indices:  indices,
		},
		MaterialIndex: materialIndex,
	}, nil
}

// generateNormals computes smooth per-vertex normals as the area-weighted
// average of incident face normals.
func generateNormals(vertices []mesh.Vertex, indices []uint32) {
	n := len(vertices)
	accum := make([][3]float32, n)

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if int(i0) >= n || int(i1) >= n || int(i2) >= n {
			continue
		}

		p0, p1, p2 := vertices[i0].Position, vertices[i1].Position, vertices[i2].Position

		edge1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		edge2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}

		// Cross product: face normal (length proportional to triangle area)
		faceNormal := [3]float32{
			edge1[1]*edge2[2] - edge1[2]*edge2[1],
			edge1[2]*edge2[0] - edge1[0]*edge2[2],
			edge1[0]*edge2[1] - edge1[1]*edge2[0],
		}

		for _, idx := range []uint32{i0, i1, i2} {
			accum[idx][0] += faceNormal[0]
			accum[idx][1] += faceNormal[1]
			accum[idx][2] += faceNormal[2]
		}
	}

	// Normalize accumulated normals
	for i := range n {
		length := float32(math.Sqrt(float64(accum[i][0]*accum[i][0] + accum[i][1]*accum[i][1] + accum[i][2]*accum[i][2])))
		if length < 1e-6 {
			// Degenerate: default to up vector
			vertices[i].Normal = [3]float32{0, 1, 0}
			continue
		}
		invLen := 1.0 / length
		vertices[i].Normal = [3]float32{
			accum[i][0] * invLen,
			accum[i][1] * invLen,
			accum[i][2] * invLen,
		}
	}
}
