package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// entry bundles everything the store owns for one document.
type entry struct {
	doc    domain.Document
	chunks []domain.Chunk
	index  driven.VectorIndex
}

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		entries: make(map[string]*entry),
	}
}

// SaveDocument stores a document with its chunks and built index.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document, chunks []domain.Chunk, index driven.VectorIndex) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[doc.ID] = &entry{
		doc:    *doc,
		chunks: append([]domain.Chunk(nil), chunks...),
		index:  index,
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := e.doc
	return &doc, nil
}

// GetIndex returns the vector index for a document.
func (s *DocumentStore) GetIndex(_ context.Context, documentID string) (driven.VectorIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e.index, nil
}

// ChunksByPositions maps chunk positions to chunk texts.
// Unknown ids and out-of-range positions yield an empty result.
func (s *DocumentStore) ChunksByPositions(_ context.Context, documentID string, positions []int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[documentID]
	if !ok {
		return nil, nil
	}
	texts := make([]string, 0, len(positions))
	for _, pos := range positions {
		if pos < 0 || pos >= len(e.chunks) {
			continue
		}
		texts = append(texts, e.chunks[pos].Content)
	}
	return texts, nil
}

// DeleteDocument removes a document and its chunks and index.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// ListDocuments returns all stored documents.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.entries))
	for _, e := range s.entries {
		docs = append(docs, e.doc)
	}
	return docs, nil
}
