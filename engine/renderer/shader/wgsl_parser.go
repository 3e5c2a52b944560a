// wgsl_parser.go extracts the small amount of pipeline metadata the renderer
// needs directly from WGSL source: entry point names per shader stage and the
// @workgroup_size of compute shaders. Bind group layouts are declared
// explicitly in Go by the pass packages, so no layout parsing happens here.
package shader

import (
	"regexp"
	"strconv"
)

var (
	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// computeEntryRegex matches @compute functions and captures the entry point name
	computeEntryRegex = regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`)

	// workgroupSizeRegex captures 1-3 integer dimensions from @workgroup_size(x[, y[, z]])
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// lineCommentRegex matches // comments to end of line
	lineCommentRegex = regexp.MustCompile(`//[^\n]*`)

	// blockCommentRegex matches /* ... */ comments, non-greedy across lines
	blockCommentRegex = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// stripComments removes line and block comments so commented-out entry points
// and attributes are not matched.
func stripComments(source string) string {
	source = blockCommentRegex.ReplaceAllString(source, "")
	return lineCommentRegex.ReplaceAllString(source, "")
}

// parseEntryPoint extracts the entry point function name for the given shader type
// from WGSL source. Returns an empty string if no matching entry point annotation is found.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - shaderType: the shader type to search for (ShaderTypeVertex, ShaderTypeFragment, or ShaderTypeCompute)
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func parseEntryPoint(source string, shaderType ShaderType) string {
	cleaned := stripComments(source)

	var re *regexp.Regexp
	switch shaderType {
	case ShaderTypeVertex:
		re = vertexEntryRegex
	case ShaderTypeFragment:
		re = fragmentEntryRegex
	case ShaderTypeCompute:
		re = computeEntryRegex
	default:
		return ""
	}

	if match := re.FindStringSubmatch(cleaned); match != nil {
		return match[1]
	}
	return ""
}

// parseWorkgroupSize extracts the @workgroup_size dimensions from compute shader
// source. Missing dimensions default to 1.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - [3]uint32: the workgroup size as [x, y, z]
func parseWorkgroupSize(source string) [3]uint32 {
	cleaned := stripComments(source)
	result := [3]uint32{1, 1, 1}

	match := workgroupSizeRegex.FindStringSubmatch(cleaned)
	if match == nil {
		return result
	}

	for i := 0; i < 3; i++ {
		if match[i+1] != "" {
			if v, err := strconv.ParseUint(match[i+1], 10, 32); err == nil {
				result[i] = uint32(v)
			}
		}
	}

	return result
}
