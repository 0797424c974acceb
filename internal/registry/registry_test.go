package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndGet(t *testing.T) {
	r := New("", nil)

	ok := r.Register("repo", Config{Path: "/srv/repo", Language: "python"})
	require.True(t, ok)

	cfg, found := r.Get("repo")
	require.True(t, found)
	assert.Equal(t, "/srv/repo", cfg.Path)
	assert.Equal(t, "python", cfg.Language)
}

func TestRegisterDuplicate(t *testing.T) {
	r := New("", nil)

	require.True(t, r.Register("repo", Config{Path: "/a"}))
	assert.False(t, r.Register("repo", Config{Path: "/b"}))

	// The original config wins.
	cfg, _ := r.Get("repo")
	assert.Equal(t, "/a", cfg.Path)
}

func TestDeregister(t *testing.T) {
	r := New("", nil)
	r.Register("repo", Config{Path: "/a"})

	cfg, ok := r.Deregister("repo")
	require.True(t, ok)
	assert.Equal(t, "/a", cfg.Path)

	_, found := r.Get("repo")
	assert.False(t, found)

	_, ok = r.Deregister("repo")
	assert.False(t, ok)
}

func TestListSorted(t *testing.T) {
	r := New("", nil)
	r.Register("zulu", Config{})
	r.Register("alpha", Config{})
	r.Register("mike", Config{})

	assert.Equal(t, []string{"alpha", "mike", "zulu"}, r.List())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "repositories.json")

	r := New(path, nil)
	r.Register("backend", Config{Path: "/srv/backend", Language: "python"})
	r.Register("frontend", Config{Path: "/srv/frontend", Language: "typescript"})
	require.NoError(t, r.Save())

	loaded := New(path, nil)
	require.NoError(t, loaded.Load())

	assert.Equal(t, []string{"backend", "frontend"}, loaded.List())
	cfg, ok := loaded.Get("frontend")
	require.True(t, ok)
	assert.Equal(t, "typescript", cfg.Language)
}

func TestLoadMissingFile(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "absent.json"), nil)
	require.NoError(t, r.Load())
	assert.Empty(t, r.List())
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repositories.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	r := New(path, nil)
	require.Error(t, r.Load())
}

func TestSaveWithoutPathIsNoop(t *testing.T) {
	r := New("", nil)
	r.Register("repo", Config{})
	require.NoError(t, r.Save())
}
