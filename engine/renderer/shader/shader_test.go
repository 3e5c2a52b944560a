package shader

import (
	"strings"
	"testing"
)

// Test imports use their own module path prefix so they never collide with the
// snippets pass packages register at init time.
func init() {
	RegisterImport("shadertest::constants", "const PI: f32 = 3.14159;")
	RegisterImport("shadertest::helpers", "#import shadertest::constants\nfn tau() -> f32 { return PI * 2.0; }")
	RegisterImport("shadertest::sampling", "#import shadertest::constants\nfn pdf() -> f32 { return 1.0 / PI; }")
}

func TestProcessExpandsImport(t *testing.T) {
	source := "#import shadertest::constants\nfn main() -> f32 { return PI; }"

	processed, err := Process(source)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if !strings.Contains(processed, "const PI: f32 = 3.14159;") {
		t.Fatalf("expected expanded snippet in output, got:\n%s", processed)
	}
	if strings.Contains(processed, "#import") {
		t.Fatalf("directive survived expansion:\n%s", processed)
	}
}

func TestProcessDeduplicatesSharedImports(t *testing.T) {
	// helpers and sampling both import constants; the snippet must appear once.
	source := "#import shadertest::helpers\n#import shadertest::sampling\n"

	processed, err := Process(source)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if got := strings.Count(processed, "const PI: f32 = 3.14159;"); got != 1 {
		t.Fatalf("shared import expanded %d times, want 1:\n%s", got, processed)
	}
	if !strings.Contains(processed, "fn tau()") || !strings.Contains(processed, "fn pdf()") {
		t.Fatalf("missing snippet bodies:\n%s", processed)
	}
}

func TestProcessRepeatedImportExpandsOnce(t *testing.T) {
	source := "#import shadertest::constants\n#import shadertest::constants\n"

	processed, err := Process(source)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if got := strings.Count(processed, "const PI"); got != 1 {
		t.Fatalf("repeated import expanded %d times, want 1", got)
	}
}

func TestProcessUnknownImportFails(t *testing.T) {
	_, err := Process("#import shadertest::missing\n")
	if err == nil {
		t.Fatal("expected error for unknown import")
	}
	if !strings.Contains(err.Error(), "shadertest::missing") {
		t.Fatalf("error should name the import, got: %v", err)
	}
}

func TestProcessEmptyModulePathFails(t *testing.T) {
	cases := []string{
		"fn f() {}\n#import   \n",
		"fn f() {}\n#import\n",
		"fn f() {}\n#import\t\n",
	}
	for _, source := range cases {
		_, err := Process(source)
		if err == nil {
			t.Fatalf("expected error for empty module path in %q", source)
		}
		if !strings.Contains(err.Error(), "line 2") {
			t.Fatalf("error should report line number, got: %v", err)
		}
	}
}

func TestProcessLeavesPlainSourceUntouched(t *testing.T) {
	source := "fn vertex() -> f32 {\n\treturn 1.0;\n}"
	processed, err := Process(source)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if processed != source {
		t.Fatalf("source without directives changed:\n%s", processed)
	}
}

func TestParseEntryPointPerStage(t *testing.T) {
	source := `
@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }

@fragment
fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }

@compute @workgroup_size(8, 8)
fn direct_lit() {}
`
	cases := []struct {
		shaderType ShaderType
		want       string
	}{
		{ShaderTypeVertex, "vs_main"},
		{ShaderTypeFragment, "fs_main"},
		{ShaderTypeCompute, "direct_lit"},
	}
	for _, tc := range cases {
		if got := parseEntryPoint(source, tc.shaderType); got != tc.want {
			t.Errorf("parseEntryPoint(%v) = %q, want %q", tc.shaderType, got, tc.want)
		}
	}
}

func TestParseEntryPointIgnoresComments(t *testing.T) {
	source := `
// @vertex
// fn old_vertex() {}
/*
@compute @workgroup_size(4)
fn disabled() {}
*/
@vertex
fn active() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }
`
	if got := parseEntryPoint(source, ShaderTypeVertex); got != "active" {
		t.Fatalf("parseEntryPoint = %q, want %q", got, "active")
	}
	if got := parseEntryPoint(source, ShaderTypeCompute); got != "" {
		t.Fatalf("commented-out compute entry point matched: %q", got)
	}
}

func TestParseEntryPointMissingStage(t *testing.T) {
	source := "@vertex\nfn vs() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }"
	if got := parseEntryPoint(source, ShaderTypeFragment); got != "" {
		t.Fatalf("expected empty entry point for missing stage, got %q", got)
	}
}

func TestParseWorkgroupSize(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   [3]uint32
	}{
		{"full", "@compute @workgroup_size(8, 8, 2)\nfn f() {}", [3]uint32{8, 8, 2}},
		{"two dimensions", "@compute @workgroup_size(16, 4)\nfn f() {}", [3]uint32{16, 4, 1}},
		{"one dimension", "@compute @workgroup_size(64)\nfn f() {}", [3]uint32{64, 1, 1}},
		{"absent", "@compute\nfn f() {}", [3]uint32{1, 1, 1}},
		{"commented out", "// @workgroup_size(32)\n@compute @workgroup_size(8)\nfn f() {}", [3]uint32{8, 1, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseWorkgroupSize(tc.source); got != tc.want {
				t.Fatalf("parseWorkgroupSize = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNewShaderParsesComputeMetadata(t *testing.T) {
	s := NewShader("test_compute", ShaderTypeCompute, "@compute @workgroup_size(8, 8)\nfn direct_lit() {}")

	if s.Key() != "test_compute" {
		t.Fatalf("Key = %q", s.Key())
	}
	if s.EntryPoint() != "direct_lit" {
		t.Fatalf("EntryPoint = %q, want %q", s.EntryPoint(), "direct_lit")
	}
	if s.WorkgroupSize() != [3]uint32{8, 8, 1} {
		t.Fatalf("WorkgroupSize = %v", s.WorkgroupSize())
	}
	if s.Module() == nil || s.Module().Label != "test_compute" {
		t.Fatal("module descriptor missing or mislabeled")
	}
}
