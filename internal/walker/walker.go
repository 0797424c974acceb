// Package walker enumerates the eligible files of a repository and chunks
// them. Every walk is a full recursive traversal; there is no incremental
// tracking between runs.
package walker

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rationalhq/ragd/internal/chunker"
)

// skipDirs are always excluded, regardless of ignore rules. They hold
// dependency trees or VCS metadata, never indexable source.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
}

// Summary reports the per-file outcome of one walk so callers can assert on
// skip counts instead of log output.
type Summary struct {
	Processed   int
	Skipped     int
	SkipReasons map[string]int
}

func (s *Summary) skip(reason string) {
	s.Skipped++
	if s.SkipReasons == nil {
		s.SkipReasons = make(map[string]int)
	}
	s.SkipReasons[reason]++
}

// Walker walks repository trees and aggregates chunks.
type Walker struct {
	chunker     *chunker.Chunker
	logger      *zap.Logger
	concurrency int
}

// New creates a walker. Chunking runs on a bounded worker pool so CPU-bound
// parsing does not stall concurrent request handling.
func New(c *chunker.Chunker, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{
		chunker:     c,
		logger:      logger,
		concurrency: runtime.NumCPU(),
	}
}

// Walk traverses repoPath, applies ignore rules and the language's extension
// filter, and chunks every eligible file. Per-file decode and parse failures
// are counted in the summary and logged, never surfaced; eligible files
// excluded by ignore rules are counted as "ignored" skips even when their
// whole directory is ignored. Chunks keep directory-traversal order; that
// order is not guaranteed stable across filesystems.
func (w *Walker) Walk(ctx context.Context, repoPath, language string) ([]chunker.CodeChunk, *Summary, error) {
	spec, ok := w.chunker.Registry().Lookup(language)
	if !ok {
		return nil, nil, &UnsupportedLanguageError{Language: language}
	}

	absRoot, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, nil, err
	}

	matcher := loadGitignore(absRoot)

	summary := &Summary{}
	var mu sync.Mutex

	var files []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			// Gitignored directories are descended, not pruned, so that every
			// eligible file under them lands in the skip summary.
			return nil
		}
		if !spec.Matches(path) {
			return nil
		}
		if matcher != nil && matcher.Match(relSegments(absRoot, path), false) {
			summary.skip("ignored")
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// Chunk files concurrently but keep traversal order in the result.
	results := make([][]chunker.CodeChunk, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for i, path := range files {
		g.Go(func() error {
			raw, err := os.ReadFile(path)
			if err != nil {
				w.logger.Warn("reading file failed", zap.String("path", path), zap.Error(err))
				mu.Lock()
				summary.skip("read_error")
				mu.Unlock()
				return nil
			}
			chunks, err := w.chunker.Chunk(gctx, path, raw, language)
			if err != nil {
				w.logger.Warn("chunking file failed", zap.String("path", path), zap.Error(err))
				mu.Lock()
				summary.skip("chunk_error")
				mu.Unlock()
				return nil
			}
			mu.Lock()
			summary.Processed++
			mu.Unlock()
			results[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var all []chunker.CodeChunk
	for _, chunks := range results {
		all = append(all, chunks...)
	}
	return all, summary, nil
}

// UnsupportedLanguageError is returned when no grammar is registered for the
// requested language.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return "unsupported language " + e.Language
}

// loadGitignore compiles the repository root's .gitignore into a matcher.
// Returns nil when the file is absent or unreadable.
func loadGitignore(root string) gitignore.Matcher {
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	if len(patterns) == 0 {
		return nil
	}
	return gitignore.NewMatcher(patterns)
}

func relSegments(root, path string) []string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}
