// pre_processor.go implements the WGSL shader pre-processor. It scans shader
// source code for #import directives and replaces them with WGSL snippets from
// a process-wide import library. Packages that own shared WGSL declarations
// (mesh and material types, view uniforms, deferred G-buffer bindings) register
// their snippets under a module path name at init time, and pass shaders pull
// them in with lines like:
//
//	#import hikari::mesh_material_types
//
// Each import is expanded at most once per shader, so two snippets may import
// the same dependency without producing duplicate declarations.
package shader

import (
	"fmt"
	"strings"
	"sync"
)

var (
	importMu      sync.RWMutex
	importLibrary = map[string]string{}
)

// RegisterImport adds a WGSL snippet to the import library under the given
// module path name. Registering the same name twice panics since it would make
// shader output depend on package init order.
//
// Parameters:
//   - name: the module path used in #import directives (e.g. "hikari::view_types")
//   - source: the WGSL snippet to expand in place of the directive
func RegisterImport(name, source string) {
	importMu.Lock()
	defer importMu.Unlock()
	if _, ok := importLibrary[name]; ok {
		panic(fmt.Sprintf("shader: import %q registered twice", name))
	}
	importLibrary[name] = source
}

// Process expands all #import directives in the source against the import
// library. Imports are resolved recursively and deduplicated, so each snippet
// appears exactly once in the output no matter how many paths import it.
//
// Parameters:
//   - source: the raw WGSL shader source code
//
// Returns:
//   - string: the processed WGSL shader source code with imports expanded
//   - error: an error if a directive references an unknown import
func Process(source string) (string, error) {
	importMu.RLock()
	defer importMu.RUnlock()

	seen := make(map[string]bool)
	return expand(source, seen)
}

func expand(source string, seen map[string]bool) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(trimmed, "#import")
		// Require a word boundary so identifiers that merely start with
		// "#import" pass through as source text.
		if !ok || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
			out = append(out, line)
			continue
		}
		name := strings.TrimSpace(rest)
		if name == "" {
			return "", fmt.Errorf("line %d: #import with no module path", i+1)
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		snippet, found := importLibrary[name]
		if !found {
			return "", fmt.Errorf("line %d: unknown import %q", i+1, name)
		}
		expanded, err := expand(snippet, seen)
		if err != nil {
			return "", fmt.Errorf("import %q: %w", name, err)
		}
		out = append(out, expanded)
	}
	return strings.Join(out, "\n"), nil
}
