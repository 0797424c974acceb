package walker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rationalhq/ragd/internal/chunker"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestWalker(t *testing.T) *Walker {
	t.Helper()
	return New(chunker.New(chunker.NewRegistry(), nil), nil)
}

func filePaths(chunks []chunker.CodeChunk) map[string]bool {
	paths := make(map[string]bool)
	for _, c := range chunks {
		paths[filepath.Base(c.FilePath)] = true
	}
	return paths
}

func TestWalkChunksEligibleFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def f():\n    pass\n")
	writeFile(t, root, "pkg/b.py", "class C:\n    pass\n")
	writeFile(t, root, "README.md", "# docs\n")

	w := newTestWalker(t)
	chunks, summary, err := w.Walk(context.Background(), root, "python")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 0, summary.Skipped)

	paths := filePaths(chunks)
	assert.True(t, paths["a.py"])
	assert.True(t, paths["b.py"])
	assert.False(t, paths["README.md"])

	// 2 file chunks + 1 function + 1 class.
	assert.Len(t, chunks, 4)
}

func TestWalkSkipsVendoredAndVCSDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "x = 1\n")
	writeFile(t, root, "node_modules/dep/index.py", "y = 2\n")
	writeFile(t, root, ".git/hooks/hook.py", "z = 3\n")

	w := newTestWalker(t)
	chunks, summary, err := w.Walk(context.Background(), root, "python")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	paths := filePaths(chunks)
	assert.True(t, paths["a.py"])
	assert.False(t, paths["index.py"])
	assert.False(t, paths["hook.py"])
}

func TestWalkHonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated.py\nbuild/\n")
	writeFile(t, root, "kept.py", "a = 1\n")
	writeFile(t, root, "generated.py", "b = 2\n")
	writeFile(t, root, "build/out.py", "c = 3\n")

	w := newTestWalker(t)
	chunks, summary, err := w.Walk(context.Background(), root, "python")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	// generated.py plus build/out.py: ignored-directory contents count too.
	assert.Equal(t, 2, summary.SkipReasons["ignored"])

	paths := filePaths(chunks)
	assert.True(t, paths["kept.py"])
	assert.False(t, paths["generated.py"])
	assert.False(t, paths["out.py"])
}

func TestWalkCountsEligibleFilesInIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "dist/\n")
	writeFile(t, root, "main.py", "a = 1\n")
	writeFile(t, root, "dist/gen1.py", "b = 2\n")
	writeFile(t, root, "dist/sub/gen2.py", "c = 3\n")
	writeFile(t, root, "dist/readme.txt", "docs\n")

	w := newTestWalker(t)
	chunks, summary, err := w.Walk(context.Background(), root, "python")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	// Only language-eligible files count as skips; readme.txt is filtered by
	// extension before ignore rules apply.
	assert.Equal(t, 2, summary.SkipReasons["ignored"])

	paths := filePaths(chunks)
	assert.True(t, paths["main.py"])
	assert.False(t, paths["gen1.py"])
	assert.False(t, paths["gen2.py"])
}

func TestWalkUnsupportedLanguage(t *testing.T) {
	w := newTestWalker(t)
	_, _, err := w.Walk(context.Background(), t.TempDir(), "cobol")

	var unsupported *UnsupportedLanguageError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "cobol", unsupported.Language)
}

func TestWalkEmptyRepository(t *testing.T) {
	w := newTestWalker(t)
	chunks, summary, err := w.Walk(context.Background(), t.TempDir(), "python")
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Equal(t, 0, summary.Processed)
}

func TestWalkTypeScriptExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.ts", "function f() {}\n")
	writeFile(t, root, "view.tsx", "function g() {}\n")
	writeFile(t, root, "legacy.js", "function h() {}\n")
	writeFile(t, root, "script.py", "def p():\n    pass\n")

	w := newTestWalker(t)
	_, summary, err := w.Walk(context.Background(), root, "typescript")
	require.NoError(t, err)

	// The python file is filtered by extension, not counted as a skip.
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 0, summary.Skipped)
}
