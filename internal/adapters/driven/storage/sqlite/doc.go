// Package sqlite provides a persistent implementation of the storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation. It implements both the
// DocumentStore and ConversationStore interfaces through a single database
// connection.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Vector Indexes
//
// Chunk embeddings are persisted as little-endian float32 blobs. The vector
// index itself is not persisted: it is rebuilt from the stored embeddings the
// first time a document is queried after startup, then cached for the process
// lifetime. Rebuilding a flat index is a single linear pass, so this costs no
// more than reading the chunks does.
//
// # Data Location
//
// By default, the database is stored at ~/.docchat/data/docchat.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode, plus an in-process cache lock for indexes.
package sqlite
