package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService turns extracted document text into a stored, searchable
// document: segment, embed all chunks in one batch, build the index,
// store under a fresh id.
type IngestService struct {
	docStore   driven.DocumentStore
	embedder   driven.EmbeddingService
	builder    driven.VectorIndexBuilder
	processor  driven.PostProcessor
	normaliser driven.Normaliser
}

// NewIngestService creates a new ingest service.
// The normaliser is only needed for IngestUpload and may be nil when
// callers always supply extracted text themselves.
func NewIngestService(
	docStore driven.DocumentStore,
	embedder driven.EmbeddingService,
	builder driven.VectorIndexBuilder,
	processor driven.PostProcessor,
	normaliser driven.Normaliser,
) *IngestService {
	return &IngestService{
		docStore:   docStore,
		embedder:   embedder,
		builder:    builder,
		processor:  processor,
		normaliser: normaliser,
	}
}

// Ingest stores a document built from already extracted text.
func (s *IngestService) Ingest(ctx context.Context, filename, text string) (*driving.IngestResult, error) {
	logger.Section("Document Ingestion")
	logger.Debug("Filename: %q, %d characters", filename, len(text))

	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	documentID := uuid.New().String()

	chunks, err := s.processor.Process(ctx, documentID, text)
	if err != nil {
		return nil, fmt.Errorf("segment text: %w", err)
	}
	if len(chunks) == 0 {
		logger.Debug("No chunks produced, rejecting document")
		return nil, domain.ErrEmptyDocument
	}
	logger.Debug("Produced %d chunks", len(chunks))

	// One embedding call for the whole document.
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailure, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbeddingFailure, len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	logger.Debug("Embedded %d chunks with model %s", len(chunks), s.embedder.ModelName())

	index, err := s.builder.Build(ctx, vectors)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	doc := &domain.Document{
		ID:         documentID,
		Filename:   filename,
		ChunkCount: len(chunks),
		CreatedAt:  time.Now(),
	}
	if err := s.docStore.SaveDocument(ctx, doc, chunks, index); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	logger.Info("Ingested %q as %s (%d chunks)", filename, documentID, len(chunks))
	return &driving.IngestResult{
		DocumentID: documentID,
		Filename:   filename,
		ChunkCount: len(chunks),
	}, nil
}

// IngestUpload extracts text from raw bytes and ingests it.
func (s *IngestService) IngestUpload(ctx context.Context, raw *domain.RawUpload) (*driving.IngestResult, error) {
	if s.normaliser == nil {
		return nil, fmt.Errorf("ingest upload: no normaliser configured")
	}
	text, err := s.normaliser.Normalise(ctx, raw)
	if err != nil {
		// Extraction failures are deterministic; report, never retry.
		return nil, fmt.Errorf("extract text: %w", err)
	}
	return s.Ingest(ctx, raw.Filename, text)
}

// Delete removes a document. Unknown ids are a no-op.
func (s *IngestService) Delete(ctx context.Context, documentID string) error {
	return s.docStore.DeleteDocument(ctx, documentID)
}

// List returns all ingested documents.
func (s *IngestService) List(ctx context.Context) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx)
}
