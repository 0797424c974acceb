// Package chunker splits source files into semantically meaningful code
// chunks using tree-sitter grammars.
package chunker

import (
	"context"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// ChunkType labels the granularity of a code chunk.
type ChunkType string

const (
	ChunkFile     ChunkType = "file"
	ChunkFunction ChunkType = "function"
	ChunkClass    ChunkType = "class"
)

// Position is a zero-based (line, column) pair matching tree-sitter node
// boundaries.
type Position struct {
	Line   uint32
	Column uint32
}

// CodeChunk is an immutable extraction from one source file. For every file
// exactly one ChunkFile chunk spans the whole decoded content; function and
// class chunks are non-overlapping sub-ranges covering the root node's direct
// children.
type CodeChunk struct {
	Content   string
	ChunkType ChunkType
	StartByte uint32
	EndByte   uint32
	StartPos  Position
	EndPos    Position
	FilePath  string
}

// Chunker parses source files and extracts code chunks.
type Chunker struct {
	registry *Registry
	logger   *zap.Logger
}

// New creates a chunker backed by the given language registry.
func New(registry *Registry, logger *zap.Logger) *Chunker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chunker{registry: registry, logger: logger}
}

// Registry returns the chunker's language registry.
func (c *Chunker) Registry() *Registry { return c.registry }

// Chunk parses raw file bytes with the grammar for the given language and
// returns the extracted chunks. Undecodable content yields an error; callers
// treat that as a per-file skip, never as a fatal condition.
func (c *Chunker) Chunk(ctx context.Context, filePath string, raw []byte, language string) ([]CodeChunk, error) {
	spec, ok := c.registry.Lookup(language)
	if !ok {
		return nil, fmt.Errorf("unsupported language %q", language)
	}

	src, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filePath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	chunks := []CodeChunk{{
		Content:   string(src),
		ChunkType: ChunkFile,
		StartByte: 0,
		EndByte:   uint32(len(src)),
		StartPos:  Position{Line: root.StartPoint().Row, Column: root.StartPoint().Column},
		EndPos:    Position{Line: root.EndPoint().Row, Column: root.EndPoint().Column},
		FilePath:  filePath,
	}}

	// Only direct children of the root are chunked. Nested definitions stay
	// inside their enclosing chunk.
	for i := 0; i < int(root.ChildCount()); i++ {
		node := root.Child(i)
		chunkType, ok := spec.Definitions[node.Type()]
		if !ok {
			continue
		}
		chunks = append(chunks, CodeChunk{
			Content:   string(src[node.StartByte():node.EndByte()]),
			ChunkType: chunkType,
			StartByte: node.StartByte(),
			EndByte:   node.EndByte(),
			StartPos:  Position{Line: node.StartPoint().Row, Column: node.StartPoint().Column},
			EndPos:    Position{Line: node.EndPoint().Row, Column: node.EndPoint().Column},
			FilePath:  filePath,
		})
	}

	return chunks, nil
}

// decode returns the file content as UTF-8 bytes. Valid UTF-8 passes through
// untouched; anything else is re-decoded from Latin-1 to tolerate
// legacy-encoded files.
func decode(raw []byte) ([]byte, error) {
	if utf8.Valid(raw) {
		return raw, nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("content is neither UTF-8 nor Latin-1: %w", err)
	}
	return decoded, nil
}
