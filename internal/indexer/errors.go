package indexer

import "errors"

var (
	// ErrAlreadyExists is returned by Add when the repository name is taken.
	ErrAlreadyExists = errors.New("repository already exists")

	// ErrNotFound is returned by Reindex and Remove for unknown names.
	ErrNotFound = errors.New("repository not found")

	// ErrInvalidPath is returned by Add when the path is not a directory.
	ErrInvalidPath = errors.New("repository path does not exist")

	// ErrStorage indicates a vector database operation failed.
	ErrStorage = errors.New("vector storage operation failed")

	// ErrIndexing indicates the walk/chunk/embed/upsert pipeline failed.
	ErrIndexing = errors.New("indexing failed")
)
