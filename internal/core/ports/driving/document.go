package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// IngestService manages the document lifecycle.
type IngestService interface {
	// Ingest segments the text, embeds all chunks in one batch, builds
	// the vector index and stores the document under a fresh id.
	// Returns domain.ErrEmptyDocument when segmentation produces zero
	// chunks; nothing is stored in that case.
	Ingest(ctx context.Context, filename, text string) (*IngestResult, error)

	// IngestUpload extracts text from raw bytes via a normaliser and
	// then ingests it.
	IngestUpload(ctx context.Context, raw *domain.RawUpload) (*IngestResult, error)

	// Delete removes a document. Unknown ids are a no-op.
	Delete(ctx context.Context, documentID string) error

	// List returns all ingested documents.
	List(ctx context.Context) ([]domain.Document, error)
}

// IngestResult describes a successful ingestion.
type IngestResult struct {
	// DocumentID is the fresh id assigned to the document.
	DocumentID string

	// Filename is the original upload filename.
	Filename string

	// ChunkCount is the number of chunks produced.
	ChunkCount int
}
