package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Gaeric/hikari-go/common"
	"github.com/Gaeric/hikari-go/engine/material"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// glTF sampler filter constants
const (
	gltfFilterNearest              = 9728
	gltfFilterLinear               = 9729
	gltfFilterNearestMipmapNearest = 9984
	gltfFilterLinearMipmapNearest  = 9985
	gltfFilterNearestMipmapLinear  = 9986
	gltfFilterLinearMipmapLinear   = 9987
)

// glTF sampler wrap constants
const (
	gltfWrapClampToEdge    = 33071
	gltfWrapMirroredRepeat = 33648
	gltfWrapRepeat         = 10497
)

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	parser gltfParser
}

// gltfMaterialExtractor defines the interface for extracting material and texture data
// from a parsed glTF document into engine-ready StandardMaterial values.
type gltfMaterialExtractor interface {
	// ExtractMaterial extracts a single material by index, including loading any referenced texture data.
	//
	// Parameters:
	//   - materialIndex: the index of the material in the document
	//
	// Returns:
	//   - material.StandardMaterial: the extracted material with any embedded texture data loaded
	//   - error: error if extraction fails
	ExtractMaterial(materialIndex int) (material.StandardMaterial, error)

	// ExtractAllMaterials extracts all materials from the document.
	//
	// Returns:
	//   - []material.StandardMaterial: all extracted materials in document order
	//   - error: error if extraction fails
	ExtractAllMaterials() ([]material.StandardMaterial, error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a new material extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(parser gltfParser) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{parser: parser}
}

func (e *gltfMaterialExtractorImpl) ExtractMaterial(materialIndex int) (material.StandardMaterial, error) {
	doc := e.parser.Document()
	if doc == nil {
		return material.StandardMaterial{}, fmt.Errorf("no document loaded")
	}
	if materialIndex < 0 || materialIndex >= len(doc.Materials) {
		return material.StandardMaterial{}, fmt.Errorf("material index %d out of range", materialIndex)
	}

	mat := &doc.Materials[materialIndex]

	// glTF spec defaults: white base color, fully metallic, fully rough.
	result := material.StandardMaterial{
		Name:                mat.Name,
		BaseColor:           mgl32.Vec4{1, 1, 1, 1},
		Metallic:            1.0,
		PerceptualRoughness: 1.0,
		Reflectance:         0.5,
	}

	if mat.PbrMetallicRoughness != nil {
		pbr := mat.PbrMetallicRoughness

		if pbr.BaseColorFactor != nil {
			result.BaseColor = mgl32.Vec4(*pbr.BaseColorFactor)
		}
		if pbr.MetallicFactor != nil {
			result.Metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			result.PerceptualRoughness = *pbr.RoughnessFactor
		}

		if pbr.BaseColorTexture != nil {
			tex, err := e.loadTexture(pbr.BaseColorTexture.Index, true)
			if err != nil {
				return material.StandardMaterial{}, fmt.Errorf("material %q: base color texture: %w", mat.Name, err)
			}
			result.BaseColorTexture = tex
		}

		if pbr.MetallicRoughnessTexture != nil {
			tex, err := e.loadTexture(pbr.MetallicRoughnessTexture.Index, false)
			if err != nil {
				return material.StandardMaterial{}, fmt.Errorf("material %q: metallic-roughness texture: %w", mat.Name, err)
			}
			result.MetallicRoughnessTexture = tex
		}
	}

	if mat.NormalTexture != nil {
		tex, err := e.loadTexture(mat.NormalTexture.Index, false)
		if err != nil {
			return material.StandardMaterial{}, fmt.Errorf("material %q: normal texture: %w", mat.Name, err)
		}
		result.NormalMapTexture = tex
	}

	// Emissive surfaces double as light sources for the sampled secondary
	// candidates, so the factor and texture both matter.
	if mat.EmissiveFactor != nil {
		f := *mat.EmissiveFactor
		result.Emissive = mgl32.Vec4{f[0], f[1], f[2], 1}
	}
	if mat.EmissiveTexture != nil {
		tex, err := e.loadTexture(mat.EmissiveTexture.Index, true)
		if err != nil {
			return material.StandardMaterial{}, fmt.Errorf("material %q: emissive texture: %w", mat.Name, err)
		}
		result.EmissiveTexture = tex
		if mat.EmissiveFactor == nil {
			// A texture with no factor means the factor defaults to black in
			// glTF, which would mask the texture entirely. Treat the texture
			// as authoritative instead.
			result.Emissive = mgl32.Vec4{1, 1, 1, 1}
		}
	}

	return result, nil
}

func (e *gltfMaterialExtractorImpl) ExtractAllMaterials() ([]material.StandardMaterial, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	materials := make([]material.StandardMaterial, len(doc.Materials))
	for i := range doc.Materials {
		mat, err := e.ExtractMaterial(i)
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
		materials[i] = mat
	}

	return materials, nil
}

// loadTexture resolves a glTF texture index into an ImportedTexture with loaded
// image data or a resolved file path. The Name field is derived from the image
// source so the material storage dedupes shared images into one array layer.
func (e *gltfMaterialExtractorImpl) loadTexture(textureIndex int, srgb bool) (*common.ImportedTexture, error) {
	doc := e.parser.Document()
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return nil, fmt.Errorf("texture index %d out of range", textureIndex)
	}

	tex := &doc.Textures[textureIndex]
	if tex.Source == nil {
		return nil, nil
	}

	// Resolve glTF sampler parameters if this texture references one.
	var samplerData *common.SamplerStagingData
	if tex.Sampler != nil {
		samplerIdx := *tex.Sampler
		if samplerIdx >= 0 && samplerIdx < len(doc.Samplers) {
			samplerData = gltfSamplerToStagingData(&doc.Samplers[samplerIdx])
		}
	}

	imageIndex := *tex.Source
	if imageIndex < 0 || imageIndex >= len(doc.Images) {
		return nil, fmt.Errorf("image index %d out of range", imageIndex)
	}

	img := &doc.Images[imageIndex]

	result := &common.ImportedTexture{
		Name:        fmt.Sprintf("%s#image%d", e.parser.BaseDir(), imageIndex),
		SRGB:        srgb,
		SamplerData: samplerData,
	}
	if img.Name != "" {
		result.Name = fmt.Sprintf("%s#%s", e.parser.BaseDir(), img.Name)
	}

	// Case 1: Image embedded in a buffer view (common in GLB)
	if img.BufferView != nil {
		data, err := e.parser.ReadBufferViewRaw(*img.BufferView)
		if err != nil {
			return nil, fmt.Errorf("failed to read image buffer view: %w", err)
		}
		result.Data = data
		return result, nil
	}

	// Case 2: Data URI (base64 encoded inline)
	if strings.HasPrefix(img.URI, "data:") {
		data, err := e.parser.ResolveURI(img.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data URI: %w", err)
		}
		result.Data = data
		return result, nil
	}

	// Case 3: External file reference, decoded lazily from disk
	if img.URI != "" {
		result.Path = filepath.Join(e.parser.BaseDir(), img.URI)
		result.Name = result.Path
		return result, nil
	}

	return nil, nil
}

// gltfSamplerToStagingData converts a glTF sampler definition into engine-ready SamplerStagingData.
// Any unset fields in the glTF sampler fall back to the glTF spec defaults (linear filtering, repeat wrapping).
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
//
// Parameters:
//   - s: the glTF sampler to convert
//
// Returns:
//   - *common.SamplerStagingData: the converted sampler staging data
func gltfSamplerToStagingData(s *gltfSampler) *common.SamplerStagingData {
	result := &common.SamplerStagingData{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}

	if s.MagFilter != nil {
		switch *s.MagFilter {
		case gltfFilterNearest:
			result.MagFilter = wgpu.FilterModeNearest
		case gltfFilterLinear:
			result.MagFilter = wgpu.FilterModeLinear
		}
	}

	if s.MinFilter != nil {
		switch *s.MinFilter {
		case gltfFilterNearest, gltfFilterNearestMipmapNearest, gltfFilterNearestMipmapLinear:
			result.MinFilter = wgpu.FilterModeNearest
		case gltfFilterLinear, gltfFilterLinearMipmapNearest, gltfFilterLinearMipmapLinear:
			result.MinFilter = wgpu.FilterModeLinear
		}
		// Also set the mipmap filter based on the minification filter variant
		switch *s.MinFilter {
		case gltfFilterNearestMipmapNearest, gltfFilterLinearMipmapNearest:
			result.MipmapFilter = wgpu.MipmapFilterModeNearest
		case gltfFilterNearestMipmapLinear, gltfFilterLinearMipmapLinear:
			result.MipmapFilter = wgpu.MipmapFilterModeLinear
		case gltfFilterNearest, gltfFilterLinear:
			// Non-mipmapped filters: set mipmap to nearest as a conservative default
			result.MipmapFilter = wgpu.MipmapFilterModeNearest
		}
	}

	if s.WrapS != nil {
		result.AddressModeU = gltfWrapToAddressMode(*s.WrapS)
	}
	if s.WrapT != nil {
		result.AddressModeV = gltfWrapToAddressMode(*s.WrapT)
	}

	return result
}

// gltfWrapToAddressMode converts a glTF wrap mode constant to a wgpu AddressMode.
//
// Parameters:
//   - wrap: the glTF wrap mode constant
//
// Returns:
//   - wgpu.AddressMode: the corresponding wgpu address mode
func gltfWrapToAddressMode(wrap int) wgpu.AddressMode {
	switch wrap {
	case gltfWrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case gltfWrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	case gltfWrapRepeat:
		return wgpu.AddressModeRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}
