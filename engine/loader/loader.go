// Package loader imports static glTF 2.0 scenes (.gltf and .glb) into the
// engine's mesh and material storages. Skinning, animation, and morph targets
// are not imported; nodes carrying them load as static geometry.
package loader

import (
	"fmt"
	"io"
	"log"

	"github.com/Gaeric/hikari-go/engine/material"
	"github.com/Gaeric/hikari-go/engine/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

// loaderImpl is the implementation of the Loader interface.
type loaderImpl struct {
	meshes    mesh.Storage
	materials material.Storage

	// defaultMaterial caches the index of the fallback material registered for
	// primitives that reference no glTF material. -1 until first needed.
	defaultMaterial int64
}

// Loader imports glTF scene files, registering their geometry and materials
// with the engine storages and returning world-placed instances ready to hand
// to the render path.
type Loader interface {
	// Load imports a glTF or GLB file from disk. The format is detected from
	// the file extension and magic bytes.
	//
	// Parameters:
	//   - path: path to the .gltf or .glb file
	//
	// Returns:
	//   - []mesh.Instance: one instance per rendered primitive, with world
	//     transforms composed from the scene's node hierarchy
	//   - error: error if loading fails
	Load(path string) ([]mesh.Instance, error)

	// LoadReader imports a glTF document from a reader. External buffer and
	// image URIs resolve relative to the process working directory, so this
	// suits self-contained GLB data and data-URI documents.
	//
	// Parameters:
	//   - r: reader containing glTF JSON or GLB data
	//   - isGLB: true if the data is in GLB format
	//
	// Returns:
	//   - []mesh.Instance: one instance per rendered primitive
	//   - error: error if loading fails
	LoadReader(r io.Reader, isGLB bool) ([]mesh.Instance, error)
}

var _ Loader = &loaderImpl{}

// NewLoader creates a Loader that registers imported assets with the given
// storages.
//
// Parameters:
//   - meshes: the mesh storage to register geometry with
//   - materials: the material storage to register materials with
//
// Returns:
//   - Loader: the loader
func NewLoader(meshes mesh.Storage, materials material.Storage) Loader {
	return &loaderImpl{
		meshes:          meshes,
		materials:       materials,
		defaultMaterial: -1,
	}
}

func (l *loaderImpl) Load(path string) ([]mesh.Instance, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", path, err)
	}
	return l.buildScene(parser)
}

func (l *loaderImpl) LoadReader(r io.Reader, isGLB bool) ([]mesh.Instance, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return l.buildScene(parser)
}

// registeredPrimitive is one primitive after registration with the storages.
type registeredPrimitive struct {
	id            mesh.MeshID
	materialIndex uint32
}

// buildScene registers all meshes and materials from the parsed document and
// traverses the default scene's node hierarchy into instances.
func (l *loaderImpl) buildScene(parser gltfParser) ([]mesh.Instance, error) {
	doc := parser.Document()

	// Materials first so primitives can map their glTF material index to the
	// engine index.
	materialIndices, err := l.registerMaterials(parser)
	if err != nil {
		return nil, err
	}

	// Register every primitive of every mesh. Primitives with unsupported
	// topology are skipped with a log rather than failing the whole import.
	meshExtractor := newGLTFMeshExtractor(parser)
	registered := make([][]registeredPrimitive, len(doc.Meshes))
	for i := range doc.Meshes {
		prims, err := meshExtractor.ExtractMesh(i)
		if err != nil {
			log.Printf("loader: skipping mesh %d: %v", i, err)
			continue
		}
		for _, prim := range prims {
			id, err := l.meshes.Add(prim.Mesh)
			if err != nil {
				log.Printf("loader: skipping primitive %q: %v", prim.Mesh.Name, err)
				continue
			}
			matIdx, err := l.resolveMaterialIndex(prim.MaterialIndex, materialIndices)
			if err != nil {
				return nil, err
			}
			registered[i] = append(registered[i], registeredPrimitive{id: id, materialIndex: matIdx})
		}
	}

	// Traverse the scene hierarchy composing world transforms.
	var instances []mesh.Instance
	identity := mgl32.Ident4()
	for _, rootIdx := range sceneRoots(doc) {
		if err := l.traverseNode(doc, rootIdx, identity, registered, &instances); err != nil {
			return nil, err
		}
	}

	return instances, nil
}

// registerMaterials extracts and registers all document materials, returning
// the engine material index per glTF material index.
func (l *loaderImpl) registerMaterials(parser gltfParser) ([]uint32, error) {
	extractor := newGLTFMaterialExtractor(parser)
	materials, err := extractor.ExtractAllMaterials()
	if err != nil {
		return nil, err
	}

	indices := make([]uint32, len(materials))
	for i, m := range materials {
		indices[i] = l.materials.Add(m)
	}
	return indices, nil
}

// resolveMaterialIndex maps a primitive's glTF material index to an engine
// index, registering the glTF default material on first use.
func (l *loaderImpl) resolveMaterialIndex(gltfIndex int, indices []uint32) (uint32, error) {
	if gltfIndex >= 0 {
		if gltfIndex >= len(indices) {
			return 0, fmt.Errorf("primitive references material %d of %d", gltfIndex, len(indices))
		}
		return indices[gltfIndex], nil
	}

	if l.defaultMaterial < 0 {
		l.defaultMaterial = int64(l.materials.Add(material.StandardMaterial{
			Name:                "gltf_default",
			BaseColor:           mgl32.Vec4{1, 1, 1, 1},
			Metallic:            1.0,
			PerceptualRoughness: 1.0,
			Reflectance:         0.5,
		}))
	}
	return uint32(l.defaultMaterial), nil
}

// sceneRoots returns the root node indices of the document's default scene.
// Documents with no scenes fall back to treating every node as a root, which
// matches how viewers handle authoring-tool exports that omit the scene list.
func sceneRoots(doc *gltfDocument) []int {
	if len(doc.Scenes) > 0 {
		sceneIdx := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			sceneIdx = *doc.Scene
		}
		return doc.Scenes[sceneIdx].Nodes
	}

	roots := make([]int, len(doc.Nodes))
	for i := range doc.Nodes {
		roots[i] = i
	}
	return roots
}

// traverseNode composes the node's local transform onto the parent transform
// and emits instances for the node's mesh primitives before recursing into
// children.
func (l *loaderImpl) traverseNode(doc *gltfDocument, nodeIdx int, parent mgl32.Mat4, registered [][]registeredPrimitive, out *[]mesh.Instance) error {
	if nodeIdx < 0 || nodeIdx >= len(doc.Nodes) {
		return fmt.Errorf("node index %d out of range", nodeIdx)
	}

	node := &doc.Nodes[nodeIdx]
	world := parent.Mul4(nodeLocalTransform(node))

	if node.Mesh != nil {
		meshIdx := *node.Mesh
		if meshIdx < 0 || meshIdx >= len(registered) {
			return fmt.Errorf("node %q references mesh %d of %d", node.Name, meshIdx, len(registered))
		}
		for _, prim := range registered[meshIdx] {
			*out = append(*out, mesh.Instance{
				Mesh:              prim.id,
				MaterialIndex:     prim.materialIndex,
				Transform:         world,
				PreviousTransform: world,
			})
		}
	}

	for _, child := range node.Children {
		if err := l.traverseNode(doc, child, world, registered, out); err != nil {
			return err
		}
	}
	return nil
}

// nodeLocalTransform returns the node's local transform: the explicit matrix
// when present, otherwise the composed translation * rotation * scale.
func nodeLocalTransform(node *gltfNode) mgl32.Mat4 {
	if node.Matrix != nil {
		// glTF matrices are column-major, matching mgl32's layout.
		return mgl32.Mat4(*node.Matrix)
	}

	m := mgl32.Ident4()
	if node.Translation != nil {
		t := *node.Translation
		m = m.Mul4(mgl32.Translate3D(t[0], t[1], t[2]))
	}
	if node.Rotation != nil {
		r := *node.Rotation
		q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
		m = m.Mul4(q.Normalize().Mat4())
	}
	if node.Scale != nil {
		s := *node.Scale
		m = m.Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
	}
	return m
}
