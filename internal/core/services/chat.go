package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// DefaultTopK is the number of chunks retrieved when the caller does
// not ask for a specific amount.
const DefaultTopK = 4

// HistoryWindow is the number of most recent messages included in a
// generation prompt (roughly the last four exchanges).
const HistoryWindow = 8

// Generation parameters for the reply.
const (
	replyMaxTokens   = 700
	replyTemperature = 0.2
)

// personaPrompt is the fixed assistant persona sent as the first
// system message of every prompt.
const personaPrompt = "You are a helpful assistant."

// contextHeader delimits retrieved document material inside the prompt
// so the model can tell context apart from conversation.
const contextHeader = "---- DOCUMENT CONTEXT ----"

// ChatService assembles bounded prompts from retrieved chunks and
// recent history, and runs chat turns against the LLM.
type ChatService struct {
	docStore  driven.DocumentStore
	convStore driven.ConversationStore
	embedder  driven.EmbeddingService
	llm       driven.LLMService

	// mu guards turnLocks. Each conversation id gets its own mutex so
	// turns for the same id serialize while unrelated conversations
	// proceed in parallel.
	mu        sync.Mutex
	turnLocks map[string]*sync.Mutex
}

// NewChatService creates a new chat service.
// The embedder is optional: without it, document retrieval is disabled
// and every turn runs with history only.
func NewChatService(
	docStore driven.DocumentStore,
	convStore driven.ConversationStore,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
) *ChatService {
	return &ChatService{
		docStore:  docStore,
		convStore: convStore,
		embedder:  embedder,
		llm:       llm,
		turnLocks: make(map[string]*sync.Mutex),
	}
}

// Turn runs one chat turn: append the user message, retrieve context,
// generate, append the reply.
//
// Turns for the same conversation id are applied atomically and in
// submission order. On generation failure the user message stays in the
// history and the error is returned; no synthetic reply is appended.
func (s *ChatService) Turn(ctx context.Context, req driving.TurnRequest) (*driving.TurnResult, error) {
	logger.Section("Chat Turn")

	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	// Resolve the conversation id first so the whole turn can run under
	// its lock, including the user-message append.
	conversationID, err := s.convStore.Ensure(ctx, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}
	logger.Debug("Conversation: %s", conversationID)

	lock := s.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.convStore.Append(ctx, conversationID, domain.RoleUser, req.Message); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}

	retrieved := s.retrieve(ctx, req.DocumentID, req.Message, req.TopK)

	prompt, err := s.assemblePrompt(ctx, conversationID, retrieved)
	if err != nil {
		return nil, fmt.Errorf("assemble prompt: %w", err)
	}
	logger.Debug("Prompt: %d messages, %d context chunks", len(prompt), len(retrieved))

	reply, err := s.llm.Chat(ctx, prompt, driven.ChatOptions{
		MaxTokens:   replyMaxTokens,
		Temperature: replyTemperature,
	})
	if err != nil {
		// The user message stays appended so the history is truthful.
		logger.Warn("Generation failed: %v", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailure, err)
	}

	if _, err := s.convStore.Append(ctx, conversationID, domain.RoleAssistant, reply); err != nil {
		return nil, fmt.Errorf("append reply: %w", err)
	}

	return &driving.TurnResult{
		ConversationID: conversationID,
		Reply:          reply,
	}, nil
}

// Reset clears one conversation, or all of them when id is empty.
func (s *ChatService) Reset(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		logger.Info("Resetting all conversations")
		return s.convStore.ResetAll(ctx)
	}
	logger.Info("Resetting conversation %s", conversationID)
	return s.convStore.Reset(ctx, conversationID)
}

// retrieve returns the chunks nearest to the query, most relevant
// first. Retrieval is best-effort: unknown documents, a missing
// embedder and embedding failures all degrade to no context rather
// than failing the turn.
func (s *ChatService) retrieve(ctx context.Context, documentID, query string, k int) []domain.RetrievedChunk {
	if documentID == "" {
		return nil
	}
	if s.embedder == nil {
		logger.Debug("No embedder configured, skipping retrieval")
		return nil
	}
	if k <= 0 {
		k = DefaultTopK
	}

	index, err := s.docStore.GetIndex(ctx, documentID)
	if err != nil {
		logger.Debug("No index for document %s: %v", documentID, err)
		return nil
	}

	// The query is a single-item batch against the same model that
	// embedded the document's chunks.
	vectors, err := s.embedder.EmbedBatch(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		logger.Warn("Query embedding failed, continuing without context: %v", err)
		return nil
	}

	hits, err := index.Search(ctx, vectors[0], k)
	if err != nil {
		logger.Warn("Vector search failed, continuing without context: %v", err)
		return nil
	}

	positions := make([]int, len(hits))
	for i, h := range hits {
		positions[i] = h.Position
	}

	texts, err := s.docStore.ChunksByPositions(ctx, documentID, positions)
	if err != nil {
		logger.Warn("Chunk lookup failed, continuing without context: %v", err)
		return nil
	}
	if len(texts) != len(hits) {
		logger.Warn("Chunk lookup returned %d texts for %d hits, continuing without context", len(texts), len(hits))
		return nil
	}

	retrieved := make([]domain.RetrievedChunk, len(hits))
	for i, h := range hits {
		retrieved[i] = domain.RetrievedChunk{
			Chunk: domain.Chunk{
				DocumentID: documentID,
				Content:    texts[i],
				Position:   h.Position,
			},
			Distance: h.Distance,
		}
	}
	logger.Debug("Retrieved %d chunks for document %s", len(retrieved), documentID)
	return retrieved
}

// assemblePrompt builds the bounded generation prompt: persona, then
// retrieved context when present, then the recent history window in
// chronological order.
func (s *ChatService) assemblePrompt(ctx context.Context, conversationID string, retrieved []domain.RetrievedChunk) ([]driven.ChatMessage, error) {
	prompt := []driven.ChatMessage{
		{Role: domain.RoleSystem, Content: personaPrompt},
	}

	if len(retrieved) > 0 {
		var b strings.Builder
		b.WriteString(contextHeader)
		for _, rc := range retrieved {
			b.WriteString("\n\n")
			b.WriteString(rc.Chunk.Content)
		}
		prompt = append(prompt, driven.ChatMessage{
			Role:    domain.RoleSystem,
			Content: b.String(),
		})
	}

	history, err := s.convStore.Recent(ctx, conversationID, HistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	for _, m := range history {
		prompt = append(prompt, driven.ChatMessage{Role: m.Role, Content: m.Content})
	}

	return prompt, nil
}

// lockFor returns the turn mutex for a conversation id, creating it on
// first use. Locks are never freed; they are tiny and bounded by the
// number of live conversations.
func (s *ChatService) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.turnLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.turnLocks[id] = lock
	}
	return lock
}
