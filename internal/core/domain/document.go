package domain

import "time"

// Document represents an ingested document.
// It is the canonical representation after text extraction.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Filename is the original upload filename.
	Filename string

	// ChunkCount is the number of chunks produced at ingestion.
	ChunkCount int

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time
}

// Chunk is a contiguous, bounded-length segment of a document's text.
// It is the unit of retrieval: queries select chunks, never whole documents.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk. Never empty.
	Content string

	// Position is the 0-based ordinal position within the document.
	// Chunk order matches original text order.
	Position int

	// Embedding is the vector representation for semantic retrieval.
	// Dimension is constant across all chunks of a document.
	Embedding []float32
}

// RetrievedChunk is a chunk selected by nearest-neighbour search.
type RetrievedChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Distance is the squared Euclidean distance to the query embedding.
	// Smaller is more relevant.
	Distance float32
}
