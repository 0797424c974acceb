// Package qdrant wraps the Qdrant vector database with collection-per-repository
// semantics.
package qdrant

import (
	"context"
)

// Client is the store boundary consumed by the indexing pipeline. One
// collection holds one repository's chunk vectors.
type Client interface {
	// Collection operations
	CreateCollection(ctx context.Context, name string, vectorSize uint64) error
	DeleteCollection(ctx context.Context, name string) error
	// ClearCollection deletes every point but keeps the collection.
	ClearCollection(ctx context.Context, name string) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)

	// Point operations. UpsertBatch splits points into bounded sub-batches;
	// the first failing sub-batch aborts the rest.
	UpsertBatch(ctx context.Context, collection string, points []*Point) error
	Search(ctx context.Context, collection string, vector []float32, limit uint64) ([]*ScoredPoint, error)

	// Health
	Health(ctx context.Context) error

	// Close closes the client connection
	Close() error
}

// Point is a vector point with an integer id and a chunk payload.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload map[string]interface{}
}

// ScoredPoint is a search hit with its similarity score.
type ScoredPoint struct {
	Point
	Score float32
}
