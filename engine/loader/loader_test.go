package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/Gaeric/hikari-go/engine/material"
	"github.com/Gaeric/hikari-go/engine/mesh"
)

// buildTriangleBuffer packs three vec3 positions followed by three uint16
// indices, the buffer layout the test documents reference.
func buildTriangleBuffer() []byte {
	var buf bytes.Buffer
	positions := [][3]float32{
		{0, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
	}
	for _, p := range positions {
		binary.Write(&buf, binary.LittleEndian, p)
	}
	binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, 2})
	// Pad to 4-byte alignment for the GLB chunk.
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// triangleGLTF returns a minimal valid document with one triangle, its buffer
// embedded as a base64 data URI.
func triangleGLTF() string {
	bin := buildTriangleBuffer()
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin)
	return fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"scene": 0,
		"scenes": [{"nodes": [0]}],
		"nodes": [{"mesh": 0, "translation": [2, 0, 0]}],
		"meshes": [{"name": "tri", "primitives": [{"attributes": {"POSITION": 0}, "indices": 1}]}],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
		],
		"bufferViews": [
			{"buffer": 0, "byteOffset": 0, "byteLength": 36},
			{"buffer": 0, "byteOffset": 36, "byteLength": 6}
		],
		"buffers": [{"byteLength": %d, "uri": %q}]
	}`, len(bin), uri)
}

// buildGLB wraps a JSON document and binary chunk into GLB container bytes.
func buildGLB(t *testing.T, jsonDoc string, bin []byte) []byte {
	t.Helper()
	jsonBytes := []byte(jsonDoc)
	for len(jsonBytes)%4 != 0 {
		jsonBytes = append(jsonBytes, ' ')
	}

	var buf bytes.Buffer
	total := 12 + 8 + len(jsonBytes)
	if bin != nil {
		total += 8 + len(bin)
	}
	binary.Write(&buf, binary.LittleEndian, gltfGLBHeader{
		Magic:   gltfGLBMagic,
		Version: gltfGLBVersion,
		Length:  uint32(total),
	})
	binary.Write(&buf, binary.LittleEndian, gltfGLBChunkHeader{
		ChunkLength: uint32(len(jsonBytes)),
		ChunkType:   gltfGLBChunkJSON,
	})
	buf.Write(jsonBytes)
	if bin != nil {
		binary.Write(&buf, binary.LittleEndian, gltfGLBChunkHeader{
			ChunkLength: uint32(len(bin)),
			ChunkType:   gltfGLBChunkBIN,
		})
		buf.Write(bin)
	}
	return buf.Bytes()
}

func TestParseRejectsWrongVersion(t *testing.T) {
	p := newGLTFParser()
	err := p.ParseReader(strings.NewReader(`{"asset": {"version": "1.0"}}`), false)
	if err == nil {
		t.Fatal("glTF 1.0 document accepted")
	}
}

func TestParseDataURIBuffer(t *testing.T) {
	p := newGLTFParser()
	if err := p.ParseReader(strings.NewReader(triangleGLTF()), false); err != nil {
		t.Fatalf("ParseReader: %v", err)
	}

	doc := p.Document()
	if len(doc.Buffers) != 1 || len(doc.Buffers[0].Data) == 0 {
		t.Fatal("data URI buffer was not decoded")
	}

	positions, err := p.ReadVec3Accessor(0)
	if err != nil {
		t.Fatalf("ReadVec3Accessor: %v", err)
	}
	if len(positions) != 3 {
		t.Fatalf("position count = %d, want 3", len(positions))
	}
	if positions[1] != [3]float32{1, 0, 0} {
		t.Errorf("positions[1] = %v, want (1, 0, 0)", positions[1])
	}

	indices, err := p.ReadIndicesAccessor(1)
	if err != nil {
		t.Fatalf("ReadIndicesAccessor: %v", err)
	}
	want := []uint32{0, 1, 2}
	for i := range want {
		if indices[i] != want[i] {
			t.Fatalf("indices = %v, want %v", indices, want)
		}
	}
}

func TestParseGLBBinaryChunk(t *testing.T) {
	bin := buildTriangleBuffer()
	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "indices": 1}]}],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
		],
		"bufferViews": [
			{"buffer": 0, "byteOffset": 0, "byteLength": 36},
			{"buffer": 0, "byteOffset": 36, "byteLength": 6}
		],
		"buffers": [{"byteLength": %d}]
	}`, len(bin))

	p := newGLTFParser()
	if err := p.ParseReader(bytes.NewReader(buildGLB(t, doc, bin)), true); err != nil {
		t.Fatalf("ParseReader(GLB): %v", err)
	}
	positions, err := p.ReadVec3Accessor(0)
	if err != nil {
		t.Fatalf("ReadVec3Accessor: %v", err)
	}
	if positions[2] != [3]float32{0, 1, 0} {
		t.Errorf("positions[2] = %v, want (0, 1, 0)", positions[2])
	}
}

func TestParseGLBRejectsBadMagic(t *testing.T) {
	data := buildGLB(t, `{"asset": {"version": "2.0"}}`, nil)
	data[0] = 'X'
	p := newGLTFParser()
	if err := p.ParseReader(bytes.NewReader(data), true); err == nil {
		t.Fatal("GLB with wrong magic accepted")
	}
}

func TestReadAccessorDataInterleavedStride(t *testing.T) {
	// Two vec3 positions interleaved with vec2 uvs: stride 20, uvs at offset 12.
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, [3]float32{1, 2, 3})
	binary.Write(&buf, binary.LittleEndian, [2]float32{0.25, 0.5})
	binary.Write(&buf, binary.LittleEndian, [3]float32{4, 5, 6})
	binary.Write(&buf, binary.LittleEndian, [2]float32{0.75, 1})
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"accessors": [
			{"bufferView": 0, "byteOffset": 0, "componentType": 5126, "count": 2, "type": "VEC3"},
			{"bufferView": 0, "byteOffset": 12, "componentType": 5126, "count": 2, "type": "VEC2"}
		],
		"bufferViews": [{"buffer": 0, "byteOffset": 0, "byteLength": 40, "byteStride": 20}],
		"buffers": [{"byteLength": 40, "uri": %q}]
	}`, uri)

	p := newGLTFParser()
	if err := p.ParseReader(strings.NewReader(doc), false); err != nil {
		t.Fatalf("ParseReader: %v", err)
	}

	positions, err := p.ReadVec3Accessor(0)
	if err != nil {
		t.Fatalf("ReadVec3Accessor: %v", err)
	}
	if positions[1] != [3]float32{4, 5, 6} {
		t.Errorf("positions[1] = %v, want (4, 5, 6)", positions[1])
	}

	uvs, err := p.ReadVec2Accessor(1)
	if err != nil {
		t.Fatalf("ReadVec2Accessor: %v", err)
	}
	if uvs[0] != [2]float32{0.25, 0.5} || uvs[1] != [2]float32{0.75, 1} {
		t.Errorf("uvs = %v, want interleaved values", uvs)
	}
}

func TestMeshExtractorGeneratesNormals(t *testing.T) {
	p := newGLTFParser()
	if err := p.ParseReader(strings.NewReader(triangleGLTF()), false); err != nil {
		t.Fatalf("ParseReader: %v", err)
	}

	prims, err := newGLTFMeshExtractor(p).ExtractMesh(0)
	if err != nil {
		t.Fatalf("ExtractMesh: %v", err)
	}
	if len(prims) != 1 {
		t.Fatalf("primitive count = %d, want 1", len(prims))
	}

	m := prims[0].Mesh
	if err := m.Validate(); err != nil {
		t.Fatalf("extracted mesh invalid: %v", err)
	}
	// Counter-clockwise triangle in the XY plane faces +Z.
	for i, v := range m.Vertices {
		if math.Abs(float64(v.Normal[2]-1)) > 1e-5 {
			t.Errorf("vertex %d normal = %v, want (0, 0, 1)", i, v.Normal)
		}
	}
	if prims[0].MaterialIndex != -1 {
		t.Errorf("material index = %d, want -1 for no material", prims[0].MaterialIndex)
	}
}

func TestLoaderBuildsInstancesWithNodeTransform(t *testing.T) {
	meshes := mesh.NewStorage()
	materials := material.NewStorage()
	l := NewLoader(meshes, materials)

	instances, err := l.LoadReader(strings.NewReader(triangleGLTF()), false)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	if len(instances) != 1 {
		t.Fatalf("instance count = %d, want 1", len(instances))
	}

	inst := instances[0]
	// Node translation [2, 0, 0] lands in the transform's fourth column.
	if inst.Transform.Col(3).X() != 2 {
		t.Errorf("transform translation x = %v, want 2", inst.Transform.Col(3).X())
	}
	if inst.PreviousTransform != inst.Transform {
		t.Error("previous transform must start equal to the current transform")
	}

	// The document has no materials, so the loader registers its default.
	if materials.Count() != 1 {
		t.Fatalf("material count = %d, want 1 (the default)", materials.Count())
	}
	m, err := materials.Material(inst.MaterialIndex)
	if err != nil {
		t.Fatalf("Material(%d): %v", inst.MaterialIndex, err)
	}
	if m.Name != "gltf_default" {
		t.Errorf("material name = %q, want the registered default", m.Name)
	}

	if got := meshes.Mesh(inst.Mesh); got == nil || got.Name != "tri" {
		t.Errorf("registered mesh = %+v, want the triangle", got)
	}
}

func TestLoaderExtractsMaterialFactors(t *testing.T) {
	bin := buildTriangleBuffer()
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin)
	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"scenes": [{"nodes": [0]}],
		"nodes": [{"mesh": 0}],
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "indices": 1, "material": 0}]}],
		"materials": [{
			"name": "gold",
			"pbrMetallicRoughness": {
				"baseColorFactor": [1, 0.8, 0.3, 1],
				"metallicFactor": 1,
				"roughnessFactor": 0.2
			},
			"emissiveFactor": [0.5, 0, 0]
		}],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
		],
		"bufferViews": [
			{"buffer": 0, "byteOffset": 0, "byteLength": 36},
			{"buffer": 0, "byteOffset": 36, "byteLength": 6}
		],
		"buffers": [{"byteLength": %d, "uri": %q}]
	}`, len(bin), uri)

	meshes := mesh.NewStorage()
	materials := material.NewStorage()
	instances, err := NewLoader(meshes, materials).LoadReader(strings.NewReader(doc), false)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	if len(instances) != 1 {
		t.Fatalf("instance count = %d, want 1", len(instances))
	}

	m, err := materials.Material(instances[0].MaterialIndex)
	if err != nil {
		t.Fatalf("Material: %v", err)
	}
	if m.Name != "gold" {
		t.Errorf("name = %q, want gold", m.Name)
	}
	if m.BaseColor.Y() != 0.8 || m.PerceptualRoughness != 0.2 || m.Metallic != 1 {
		t.Errorf("factors = %+v", m)
	}
	if m.Emissive.X() != 0.5 {
		t.Errorf("emissive = %v, want x = 0.5", m.Emissive)
	}
}

func TestNodeLocalTransformTRSOrder(t *testing.T) {
	node := &gltfNode{
		Translation: &[3]float32{1, 2, 3},
		Scale:       &[3]float32{2, 2, 2},
	}
	m := nodeLocalTransform(node)

	// Scale applies before translation: local (1, 0, 0) -> (3, 2, 3).
	p := m.Mul4x1([4]float32{1, 0, 0, 1})
	if p.X() != 3 || p.Y() != 2 || p.Z() != 3 {
		t.Errorf("transformed point = %v, want (3, 2, 3)", p)
	}
}

func TestNodeLocalTransformExplicitMatrix(t *testing.T) {
	matrix := [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		7, 8, 9, 1,
	}
	node := &gltfNode{Matrix: &matrix}
	m := nodeLocalTransform(node)
	if m.Col(3).X() != 7 || m.Col(3).Y() != 8 || m.Col(3).Z() != 9 {
		t.Errorf("matrix column 3 = %v, want (7, 8, 9, 1)", m.Col(3))
	}
}
