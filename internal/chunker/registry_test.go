package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryPreloadedLanguages(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.Supported("python"))
	assert.True(t, r.Supported("typescript"))
	assert.False(t, r.Supported("rust"))
}

func TestSpecMatchesExtensions(t *testing.T) {
	r := NewRegistry()

	py, ok := r.Lookup("python")
	require.True(t, ok)
	assert.True(t, py.Matches("src/app.py"))
	assert.True(t, py.Matches("SRC/APP.PY"))
	assert.False(t, py.Matches("src/app.pyc"))
	assert.False(t, py.Matches("src/app.ts"))

	ts, ok := r.Lookup("typescript")
	require.True(t, ok)
	for _, path := range []string{"a.js", "a.jsx", "a.ts", "a.tsx"} {
		assert.True(t, ts.Matches(path), path)
	}
	assert.False(t, ts.Matches("a.json"))
}

func TestRegisterCustomLanguage(t *testing.T) {
	r := NewRegistry()
	r.Register("go", &LanguageSpec{Extensions: []string{".go"}})

	spec, ok := r.Lookup("go")
	require.True(t, ok)
	assert.True(t, spec.Matches("main.go"))
}
