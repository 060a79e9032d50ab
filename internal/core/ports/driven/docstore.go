package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// DocumentStore owns documents, their chunks and their vector index.
// Documents are immutable after ingestion; they disappear only through
// Delete or process exit.
type DocumentStore interface {
	// SaveDocument stores a document with its chunks and built index.
	// Chunks must be in position order and match the index size.
	SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk, index VectorIndex) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound for unknown ids.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetIndex returns the vector index for a document.
	// Returns domain.ErrNotFound for unknown ids.
	GetIndex(ctx context.Context, documentID string) (VectorIndex, error)

	// ChunksByPositions maps chunk positions to chunk texts, preserving
	// the order of positions. Unknown document ids and out-of-range
	// positions yield an empty result, not an error, so retrieval stays
	// tolerant of stale ids.
	ChunksByPositions(ctx context.Context, documentID string, positions []int) ([]string, error)

	// DeleteDocument removes a document and its chunks and index.
	// Removing an unknown id is not an error.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns all stored documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)
}
