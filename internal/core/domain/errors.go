package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyDocument indicates ingestion input produced zero chunks.
	// No document is created when this is returned.
	ErrEmptyDocument = errors.New("document has no extractable text")

	// ErrEmbeddingFailure indicates the embedding service could not
	// produce vectors. During ingestion this aborts the ingest; during
	// retrieval the chat turn degrades to no context instead.
	ErrEmbeddingFailure = errors.New("embedding failed")

	// ErrGenerationFailure indicates the LLM could not produce a reply.
	// The turn's user message is preserved but no assistant message is
	// appended; the error is never embedded as if it were a reply.
	ErrGenerationFailure = errors.New("generation failed")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Document ingestion and retrieval are disabled without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
