package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Store implements both storage interfaces.
var (
	_ driven.DocumentStore     = (*Store)(nil)
	_ driven.ConversationStore = (*Store)(nil)
)

// timeFormat is how timestamps are stored in the database.
const timeFormat = time.RFC3339Nano

// Store is a SQLite-backed implementation of the DocumentStore and
// ConversationStore ports.
type Store struct {
	db      *sql.DB
	path    string
	builder driven.VectorIndexBuilder

	// mu guards the rebuilt-index cache.
	mu      sync.Mutex
	indexes map[string]driven.VectorIndex
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.docchat/data/docchat.db.
// The builder is used to rebuild vector indexes from persisted embeddings.
func NewStore(dataDir string, builder driven.VectorIndexBuilder) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docchat", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "docchat.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:      db,
		path:    dbPath,
		builder: builder,
		indexes: make(map[string]driven.VectorIndex),
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies any pending .up.sql migrations in version order.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// SaveDocument stores a document with its chunks. The built index is
// kept in the in-process cache; embeddings are persisted so the index
// can be rebuilt after a restart.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk, index driven.VectorIndex) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO documents (id, filename, chunk_count, created_at) VALUES (?, ?, ?, ?)",
		doc.ID, doc.Filename, doc.ChunkCount, doc.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	for _, chunk := range chunks {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO chunks (id, document_id, position, content, embedding) VALUES (?, ?, ?, ?, ?)",
			chunk.ID, doc.ID, chunk.Position, chunk.Content, float32SliceToBytes(chunk.Embedding),
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", chunk.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if index != nil {
		s.mu.Lock()
		s.indexes[doc.ID] = index
		s.mu.Unlock()
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, filename, chunk_count, created_at FROM documents WHERE id = ?", id,
	).Scan(&doc.ID, &doc.Filename, &doc.ChunkCount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}
	doc.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	return &doc, nil
}

// GetIndex returns the vector index for a document, rebuilding it from
// the persisted embeddings when it is not cached.
func (s *Store) GetIndex(ctx context.Context, documentID string) (driven.VectorIndex, error) {
	s.mu.Lock()
	if ix, ok := s.indexes[documentID]; ok {
		s.mu.Unlock()
		return ix, nil
	}
	s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT embedding FROM chunks WHERE document_id = ? ORDER BY position", documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	var vectors [][]float32
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		vectors = append(vectors, bytesToFloat32Slice(blob))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	if len(vectors) == 0 {
		return nil, domain.ErrNotFound
	}

	ix, err := s.builder.Build(ctx, vectors)
	if err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}

	s.mu.Lock()
	s.indexes[documentID] = ix
	s.mu.Unlock()
	return ix, nil
}

// ChunksByPositions maps chunk positions to chunk texts, preserving the
// order of positions. Unknown ids and positions yield an empty result.
func (s *Store) ChunksByPositions(ctx context.Context, documentID string, positions []int) ([]string, error) {
	if len(positions) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT position, content FROM chunks WHERE document_id = ?", documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	byPosition := make(map[int]string)
	for rows.Next() {
		var pos int
		var content string
		if err := rows.Scan(&pos, &content); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		byPosition[pos] = content
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	texts := make([]string, 0, len(positions))
	for _, pos := range positions {
		if content, ok := byPosition[pos]; ok {
			texts = append(texts, content)
		}
	}
	return texts, nil
}

// DeleteDocument removes a document; chunks cascade.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	s.mu.Lock()
	delete(s.indexes, id)
	s.mu.Unlock()
	return nil
}

// ListDocuments returns all stored documents.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, filename, chunk_count, created_at FROM documents ORDER BY created_at",
	)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		var createdAt string
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.ChunkCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ==================== Conversation Store ====================

// Ensure returns the id of an existing conversation, creating a new one
// when id is empty or unknown.
func (s *Store) Ensure(ctx context.Context, id string) (string, error) {
	if id != "" {
		var exists int
		err := s.db.QueryRowContext(ctx,
			"SELECT 1 FROM conversations WHERE id = ?", id,
		).Scan(&exists)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("query conversation: %w", err)
		}
	}
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().Format(timeFormat)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO conversations (id, created_at, updated_at) VALUES (?, ?, ?)",
		id, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	return id, nil
}

// Append adds a message, creating the conversation first when needed.
func (s *Store) Append(ctx context.Context, id string, role domain.Role, content string) (string, error) {
	if !role.Valid() {
		return "", domain.ErrInvalidInput
	}
	id, err := s.Ensure(ctx, id)
	if err != nil {
		return "", err
	}
	now := time.Now().Format(timeFormat)
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO messages (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)",
		id, string(role), content, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"UPDATE conversations SET updated_at = ? WHERE id = ?", now, id,
	); err != nil {
		return "", fmt.Errorf("touch conversation: %w", err)
	}
	return id, nil
}

// Recent returns the last n messages in chronological order.
func (s *Store) Recent(ctx context.Context, id string, n int) ([]domain.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content, created_at FROM messages WHERE conversation_id = ? ORDER BY seq DESC LIMIT ?",
		id, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		var role, createdAt string
		if err := rows.Scan(&role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = domain.Role(role)
		m.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// The query walks newest-first; flip back to chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Reset removes a single conversation; messages cascade.
func (s *Store) Reset(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// ResetAll removes every conversation.
func (s *Store) ResetAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM conversations"); err != nil {
		return fmt.Errorf("delete conversations: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
