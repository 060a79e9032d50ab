package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Normaliser extracts plain text from raw uploaded bytes.
// Each normaliser handles specific MIME types. Text extraction is an
// external collaborator from the core's point of view: extraction
// failures are reported to the caller as ingestion failures, never
// retried (the failure is deterministic).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Normalise extracts plain text from the upload. It may return
	// partial or empty text on malformed input.
	Normalise(ctx context.Context, raw *domain.RawUpload) (string, error)
}

// PostProcessor transforms extracted document text into chunks.
type PostProcessor interface {
	// Name returns the processor name.
	Name() string

	// Process splits text into chunks in position order. Empty or
	// whitespace-only text produces no chunks.
	Process(ctx context.Context, documentID, text string) ([]domain.Chunk, error)
}
