// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore: Document, chunk and vector index ownership
//   - ConversationStore: Chat history ownership
//   - VectorIndexBuilder: Builds a nearest-neighbour index at ingestion
//   - EmbeddingService: Generates vector embeddings
//   - LLMService: Produces chat replies
//   - Normaliser: Extracts plain text from uploaded bytes
//   - PostProcessor: Splits extracted text into chunks
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
