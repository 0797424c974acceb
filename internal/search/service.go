// Package search translates free-text queries into similarity searches
// against one repository's collection.
package search

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/rationalhq/ragd/internal/qdrant"
	"github.com/rationalhq/ragd/internal/registry"
)

// TopK is the number of hits returned per query.
const TopK = 5

var (
	// ErrInvalidCollection is returned for unregistered repository names.
	ErrInvalidCollection = errors.New("invalid collection name")

	// ErrEmptyQuery is returned for blank query text.
	ErrEmptyQuery = errors.New("query text is empty")
)

// QueryEmbedder embeds a single query text.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Result is one search hit mapped from the stored chunk payload.
type Result struct {
	FilePath   string  `json:"file_path"`
	Code       string  `json:"code"`
	ChunkType  string  `json:"chunk_type"`
	Similarity float32 `json:"similarity"`
}

// Service answers similarity queries. It reads the registry and the store
// directly, bypassing the indexing orchestrator.
type Service struct {
	registry *registry.Registry
	store    qdrant.Client
	embedder QueryEmbedder
	logger   *zap.Logger
}

// New creates a query service.
func New(reg *registry.Registry, store qdrant.Client, embedder QueryEmbedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{registry: reg, store: store, embedder: embedder, logger: logger}
}

// Search embeds the query text and returns the top hits from the named
// repository's collection. The registry is checked before any embedding
// call. Hits whose stored file path does not lie under the repository root
// are dropped; they would indicate cross-collection leakage.
func (s *Service) Search(ctx context.Context, text, repoName string) ([]Result, error) {
	cfg, ok := s.registry.Get(repoName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCollection, repoName)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}

	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := s.store.Search(ctx, repoName, vector, TopK)
	if err != nil {
		return nil, fmt.Errorf("searching collection %s: %w", repoName, err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		filePath, _ := hit.Payload["file_path"].(string)
		if !pathWithin(cfg.Path, filePath) {
			s.logger.Warn("dropping hit outside repository root",
				zap.String("repo", repoName),
				zap.String("file_path", filePath),
			)
			continue
		}
		code, _ := hit.Payload["content"].(string)
		chunkType, _ := hit.Payload["chunk_type"].(string)
		results = append(results, Result{
			FilePath:   filePath,
			Code:       code,
			ChunkType:  chunkType,
			Similarity: hit.Score,
		})
	}
	return results, nil
}

// pathWithin reports whether path lies under root.
func pathWithin(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
