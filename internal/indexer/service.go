// Package indexer orchestrates the add/reindex/remove lifecycle of managed
// repositories: walk, embed, upsert, with compensating rollback on failure.
package indexer

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rationalhq/ragd/internal/chunker"
	"github.com/rationalhq/ragd/internal/qdrant"
	"github.com/rationalhq/ragd/internal/registry"
	"github.com/rationalhq/ragd/internal/walker"
)

// VectorSize is the fixed dimensionality of every collection.
const VectorSize = 1536

// Embedder turns chunk contents into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Walker produces the chunk sequence for one repository.
type Walker interface {
	Walk(ctx context.Context, repoPath, language string) ([]chunker.CodeChunk, *walker.Summary, error)
}

// Service implements the per-repository lifecycle state machine.
//
// The registry and the vector database are kept in lock-step: a repository
// config exists iff its collection exists. Add and Remove may break that
// invariant transiently and restore it via compensating actions on failure.
type Service struct {
	registry *registry.Registry
	store    qdrant.Client
	embedder Embedder
	walker   Walker
	logger   *zap.Logger

	// repoLocks serializes clear+upsert per repository so overlapping
	// reindex triggers cannot interleave on the same collection.
	mu        sync.Mutex
	repoLocks map[string]*sync.Mutex
}

// New creates the indexing orchestrator.
func New(reg *registry.Registry, store qdrant.Client, embedder Embedder, w Walker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry:  reg,
		store:     store,
		embedder:  embedder,
		walker:    w,
		logger:    logger,
		repoLocks: make(map[string]*sync.Mutex),
	}
}

// Add registers a repository, creates its collection and runs the initial
// index. On any failure after the first completed step, compensating actions
// restore the exact pre-call state. The config reaches durable storage only
// on full success.
func (s *Service) Add(ctx context.Context, name, path, language string) (err error) {
	start := time.Now()
	defer func() { observeRun("add", time.Since(start).Seconds(), err) }()

	info, statErr := os.Stat(path)
	if statErr != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}

	cfg := registry.Config{Path: path, Language: language}
	if !s.registry.Register(name, cfg) {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}

	undo := newUndoStack(s.logger)
	undo.push("deregister config", func() error {
		s.registry.Deregister(name)
		return nil
	})

	if createErr := s.store.CreateCollection(ctx, name, VectorSize); createErr != nil {
		undo.run()
		return fmt.Errorf("%w: creating collection %s: %v", ErrStorage, name, createErr)
	}
	undo.push("delete collection", func() error {
		return s.store.DeleteCollection(context.WithoutCancel(ctx), name)
	})

	if indexErr := s.runIndex(ctx, name, cfg); indexErr != nil {
		undo.run()
		return fmt.Errorf("%w: %v", ErrIndexing, indexErr)
	}
	undo.discard()

	s.registry.SaveOrLog()
	s.logger.Info("repository added", zap.String("repo", name), zap.String("path", path), zap.String("language", language))
	return nil
}

// Reindex clears the repository's collection and rebuilds it from a fresh
// walk. Reindex is idempotent in content; concurrent calls for the same name
// are serialized on a per-repository lock. Readers get no isolation: a
// search issued mid-reindex may observe a partially repopulated collection.
func (s *Service) Reindex(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { observeRun("reindex", time.Since(start).Seconds(), err) }()

	cfg, ok := s.registry.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	lock := s.repoLock(name)
	lock.Lock()
	defer lock.Unlock()

	if clearErr := s.store.ClearCollection(ctx, name); clearErr != nil {
		return fmt.Errorf("%w: clearing collection %s: %v", ErrIndexing, name, clearErr)
	}
	if indexErr := s.runIndex(ctx, name, cfg); indexErr != nil {
		return fmt.Errorf("%w: %v", ErrIndexing, indexErr)
	}

	s.logger.Info("repository reindexed", zap.String("repo", name))
	return nil
}

// Remove deletes the config first, then the collection. If collection
// deletion fails the config is restored best-effort and the repository stays
// registered with a dangling collection; callers retry Remove to converge.
func (s *Service) Remove(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { observeRun("remove", time.Since(start).Seconds(), err) }()

	cfg, ok := s.registry.Deregister(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if delErr := s.store.DeleteCollection(ctx, name); delErr != nil {
		s.registry.Register(name, cfg)
		return fmt.Errorf("%w: deleting collection %s: %v", ErrStorage, name, delErr)
	}

	s.registry.SaveOrLog()
	s.logger.Info("repository removed", zap.String("repo", name))
	return nil
}

// List returns the registered repository names.
func (s *Service) List() []string {
	return s.registry.List()
}

// ReconcileReport lists registry/collection divergence found by Reconcile.
type ReconcileReport struct {
	// Missing are registered repositories with no backing collection.
	Missing []string

	// Orphaned are collections with no registered repository.
	Orphaned []string
}

// Reconcile compares the registry against the live collection set at startup.
// A registered repository must have a collection and vice versa; divergence is
// reported and logged, never repaired automatically, since either side may be
// the durable record an operator wants to keep.
func (s *Service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}

	for _, name := range s.registry.List() {
		exists, err := s.store.CollectionExists(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("%w: checking collection %s: %v", ErrStorage, name, err)
		}
		if !exists {
			s.logger.Warn("registered repository has no collection", zap.String("repo", name))
			report.Missing = append(report.Missing, name)
		}
	}

	collections, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing collections: %v", ErrStorage, err)
	}
	for _, name := range collections {
		if _, ok := s.registry.Get(name); !ok {
			s.logger.Warn("collection has no registered repository", zap.String("collection", name))
			report.Orphaned = append(report.Orphaned, name)
		}
	}

	return report, nil
}

// runIndex walks the repository, embeds the chunk contents and upserts the
// resulting points. Blank chunks are dropped before embedding so chunks and
// vectors stay index-aligned.
func (s *Service) runIndex(ctx context.Context, name string, cfg registry.Config) error {
	chunks, summary, err := s.walker.Walk(ctx, cfg.Path, cfg.Language)
	if err != nil {
		return fmt.Errorf("walking %s: %w", cfg.Path, err)
	}
	s.logger.Info("repository walked",
		zap.String("repo", name),
		zap.Int("chunks", len(chunks)),
		zap.Int("files_processed", summary.Processed),
		zap.Int("files_skipped", summary.Skipped),
	)

	embeddable := chunks[:0:0]
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		embeddable = append(embeddable, c)
		texts = append(texts, c.Content)
	}
	if len(embeddable) == 0 {
		return nil
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(texts), err)
	}
	if len(vectors) != len(embeddable) {
		return fmt.Errorf("embedding service returned %d vectors for %d chunks", len(vectors), len(embeddable))
	}

	points := make([]*qdrant.Point, len(embeddable))
	for i, c := range embeddable {
		points[i] = &qdrant.Point{
			ID:     uint64(i),
			Vector: vectors[i],
			Payload: map[string]interface{}{
				"content":      c.Content,
				"chunk_type":   string(c.ChunkType),
				"file_path":    c.FilePath,
				"start_byte":   int64(c.StartByte),
				"end_byte":     int64(c.EndByte),
				"start_line":   int64(c.StartPos.Line),
				"start_column": int64(c.StartPos.Column),
				"end_line":     int64(c.EndPos.Line),
				"end_column":   int64(c.EndPos.Column),
			},
		}
	}

	if err := s.store.UpsertBatch(ctx, name, points); err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	chunksIndexedTotal.Add(float64(len(points)))
	return nil
}

func (s *Service) repoLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.repoLocks[name]
	if !ok {
		lock = &sync.Mutex{}
		s.repoLocks[name] = lock
	}
	return lock
}
