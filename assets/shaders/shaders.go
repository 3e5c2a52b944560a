// Package shaders embeds the WGSL sources for every pass and registers the
// shared type modules with the shader preprocessor's import library.
package shaders

import (
	_ "embed"

	"github.com/Gaeric/hikari-go/engine/renderer/shader"
)

// PrepassSource is the G-buffer prepass shader (vertex + fragment).
//
//go:embed prepass.wgsl
var PrepassSource string

// ShadowSource is the depth-only shadow pass shader (vertex only).
//
//go:embed shadow.wgsl
var ShadowSource string

// LightSource is the reservoir lighting pass shader (compute).
//
//go:embed light.wgsl
var LightSource string

// OverlaySource is the full-screen overlay shader (vertex + fragment).
//
//go:embed overlay.wgsl
var OverlaySource string

//go:embed types.wgsl
var typesSource string

//go:embed mesh_material_types.wgsl
var meshMaterialTypesSource string

//go:embed reservoir_types.wgsl
var reservoirTypesSource string

//go:embed utils.wgsl
var utilsSource string

func init() {
	shader.RegisterImport("hikari::types", typesSource)
	shader.RegisterImport("hikari::mesh_material_types", meshMaterialTypesSource)
	shader.RegisterImport("hikari::reservoir_types", reservoirTypesSource)
	shader.RegisterImport("hikari::utils", utilsSource)
}
