package chunker

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
)

// LanguageSpec binds a tree-sitter grammar to the file extensions it covers
// and the root-level node types that become standalone chunks.
type LanguageSpec struct {
	Language   *sitter.Language
	Extensions []string

	// Definitions maps a syntax node type to the chunk type emitted for it.
	// Only direct children of the root node are consulted; nested definitions
	// stay inside their enclosing chunk.
	Definitions map[string]ChunkType
}

// Registry maps language names and file extensions to language specs.
type Registry struct {
	mu    sync.RWMutex
	langs map[string]*LanguageSpec
}

// NewRegistry returns a registry preloaded with the supported languages.
//
// The python profile covers .py files. The typescript profile uses the TSX
// grammar, which parses plain JavaScript, JSX, TypeScript and TSX alike.
func NewRegistry() *Registry {
	r := &Registry{langs: make(map[string]*LanguageSpec)}

	r.Register("python", &LanguageSpec{
		Language:   python.GetLanguage(),
		Extensions: []string{".py"},
		Definitions: map[string]ChunkType{
			"function_definition": ChunkFunction,
			"class_definition":    ChunkClass,
		},
	})
	r.Register("typescript", &LanguageSpec{
		Language:   tsx.GetLanguage(),
		Extensions: []string{".js", ".jsx", ".ts", ".tsx"},
		Definitions: map[string]ChunkType{
			"function_declaration": ChunkFunction,
			"class_declaration":    ChunkClass,
		},
	})

	return r
}

// Register adds a language spec under the given name.
func (r *Registry) Register(name string, spec *LanguageSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.langs[name] = spec
}

// Lookup returns the spec registered under the given language name.
func (r *Registry) Lookup(language string) (*LanguageSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.langs[language]
	return spec, ok
}

// Supported reports whether a language name is registered.
func (r *Registry) Supported(language string) bool {
	_, ok := r.Lookup(language)
	return ok
}

// Matches reports whether the file path carries one of the spec's extensions.
func (s *LanguageSpec) Matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range s.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
