package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies whether a shader is a render shader or a compute shader.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// shader is the implementation of the Shader interface.
// It holds all of the persistent shader data required for pipeline creation.
type shader struct {
	key           string
	source        string
	shaderType    ShaderType
	workGroupSize [3]uint32
	entryPoint    string
	module        *wgpu.ShaderModuleDescriptor
}

// Shader defines the interface for a loaded and pre-processed WGSL shader. It exposes
// the shader's unique key, source code, entry point, and workgroup size needed for
// pipeline creation.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the WGSL shader source code after pre-processing, with all
	// #import directives expanded.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// EntryPoint returns the entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vertex", "direct_lit")
	EntryPoint() string

	// WorkgroupSize returns the workgroup size dimensions for compute shaders.
	// Returns [1, 1, 1] as the default when @workgroup_size is not specified and
	// [0, 0, 0] for non-compute shaders.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Module returns the wgpu.ShaderModuleDescriptor for this shader, built during NewShader.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// ShaderType returns the type of the shader (vertex, fragment, or compute).
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex, ShaderTypeFragment, or ShaderTypeCompute
	ShaderType() ShaderType
}

var _ Shader = &shader{}

// NewShader creates a new Shader instance from embedded WGSL source. The source is
// pre-processed to expand #import directives against the registered import library,
// then the entry point (and workgroup size for compute shaders) is parsed out.
//
// Shader sources ship embedded in their owning pass packages via go:embed, so a
// failure here is a programming error and panics rather than returning an error.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - shaderType: the type of shader (vertex, fragment or compute)
//   - source: the raw WGSL source code, possibly containing #import directives
//
// Returns:
//   - Shader: a new Shader instance with the provided configuration
func NewShader(key string, shaderType ShaderType, source string) Shader {
	if source == "" {
		panic(fmt.Sprintf("shader: %s must have non-empty source", key))
	}
	s := &shader{
		key:        key,
		shaderType: shaderType,
	}
	s.parseSource(source)
	return s
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

// parseSource expands imports, builds the shader module descriptor, and parses
// the entry point name. Compute shaders additionally get their workgroup size parsed.
func (s *shader) parseSource(raw string) {
	source, err := Process(raw)
	if err != nil {
		panic(fmt.Sprintf("shader: failed to pre-process shader source %q: %v", s.key, err))
	}
	s.source = source
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
	s.entryPoint = parseEntryPoint(s.source, s.shaderType)
	if s.entryPoint == "" {
		panic(fmt.Sprintf("shader: %s has no entry point for its shader type", s.key))
	}
	if s.shaderType == ShaderTypeCompute {
		s.workGroupSize = parseWorkgroupSize(s.source)
	}
}
