package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore is an in-memory implementation of driven.ConversationStore.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*domain.Conversation
}

// NewConversationStore creates a new in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*domain.Conversation),
	}
}

// Ensure returns the id of an existing conversation, creating a new one
// when id is empty or unknown.
func (s *ConversationStore) Ensure(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(id), nil
}

// ensureLocked implements get-or-create. Callers must hold s.mu.
func (s *ConversationStore) ensureLocked(id string) string {
	if id != "" {
		if _, ok := s.conversations[id]; ok {
			return id
		}
	}
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now()
	s.conversations[id] = &domain.Conversation{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id
}

// Append adds a message to the conversation, creating it first when
// needed, and returns the (possibly new) conversation id.
func (s *ConversationStore) Append(_ context.Context, id string, role domain.Role, content string) (string, error) {
	if !role.Valid() {
		return "", domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id = s.ensureLocked(id)
	conv := s.conversations[id]
	now := time.Now()
	conv.Messages = append(conv.Messages, domain.Message{
		Role:      role,
		Content:   content,
		CreatedAt: now,
	})
	conv.UpdatedAt = now
	return id, nil
}

// Recent returns the last n messages in chronological order.
func (s *ConversationStore) Recent(_ context.Context, id string, n int) ([]domain.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	start := len(conv.Messages) - n
	if start < 0 {
		start = 0
	}
	return append([]domain.Message(nil), conv.Messages[start:]...), nil
}

// Reset removes a single conversation. Unknown ids are a no-op.
func (s *ConversationStore) Reset(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	return nil
}

// ResetAll removes every conversation.
func (s *ConversationStore) ResetAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = make(map[string]*domain.Conversation)
	return nil
}
