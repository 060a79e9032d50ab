package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// --- Mock implementations ---

// mockLLM implements driven.LLMService and records every prompt it sees.
type mockLLM struct {
	mu      sync.Mutex
	prompts [][]driven.ChatMessage
	reply   string
	err     error
	delay   time.Duration
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, append([]driven.ChatMessage(nil), messages...))
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) lastPrompt() []driven.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return nil
	}
	return m.prompts[len(m.prompts)-1]
}

// --- Test fixtures ---

type chatFixture struct {
	svc       *ChatService
	docStore  *memory.DocumentStore
	convStore *memory.ConversationStore
	embedder  *mockEmbedder
	llm       *mockLLM
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	f := &chatFixture{
		docStore:  memory.NewDocumentStore(),
		convStore: memory.NewConversationStore(),
		embedder:  newMockEmbedder(2),
		llm:       &mockLLM{reply: "generated reply"},
	}
	f.svc = NewChatService(f.docStore, f.convStore, f.embedder, f.llm)
	return f
}

// storeDocument saves a document whose chunk embeddings are chosen so
// that retrieval order is predictable.
func (f *chatFixture) storeDocument(t *testing.T, id string, contents []string, vectors [][]float32) {
	t.Helper()
	chunks := make([]domain.Chunk, len(contents))
	for i, c := range contents {
		chunks[i] = domain.Chunk{
			ID:         fmt.Sprintf("%s-%d", id, i),
			DocumentID: id,
			Content:    c,
			Position:   i,
			Embedding:  vectors[i],
		}
	}
	index, err := flat.NewBuilder().Build(context.Background(), vectors)
	require.NoError(t, err)
	doc := &domain.Document{ID: id, Filename: id + ".txt", ChunkCount: len(chunks)}
	require.NoError(t, f.docStore.SaveDocument(context.Background(), doc, chunks, index))
}

// --- Tests ---

func TestChatService_Turn_FreshConversation(t *testing.T) {
	f := newChatFixture(t)

	res, err := f.svc.Turn(context.Background(), driving.TurnRequest{Message: "hello"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.ConversationID)
	assert.Equal(t, "generated reply", res.Reply)

	// One user message and one assistant message, in order.
	msgs, err := f.convStore.Recent(context.Background(), res.ConversationID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "generated reply", msgs[1].Content)

	// Prompt is persona plus the user message, no context block.
	prompt := f.llm.lastPrompt()
	require.Len(t, prompt, 2)
	assert.Equal(t, domain.RoleSystem, prompt[0].Role)
	assert.Equal(t, personaPrompt, prompt[0].Content)
	assert.Equal(t, domain.RoleUser, prompt[1].Role)
}

func TestChatService_Turn_ContinuesConversation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	first, err := f.svc.Turn(ctx, driving.TurnRequest{Message: "first question"})
	require.NoError(t, err)

	second, err := f.svc.Turn(ctx, driving.TurnRequest{
		ConversationID: first.ConversationID,
		Message:        "second question",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	// The second prompt carries both prior turns plus the new message.
	prompt := f.llm.lastPrompt()
	require.Len(t, prompt, 4) // persona + user, assistant, user
	assert.Equal(t, "first question", prompt[1].Content)
	assert.Equal(t, "generated reply", prompt[2].Content)
	assert.Equal(t, domain.RoleAssistant, prompt[2].Role)
	assert.Equal(t, "second question", prompt[3].Content)

	msgs, err := f.convStore.Recent(ctx, first.ConversationID, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestChatService_Turn_HistoryWindow(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	id := ""
	for i := 0; i < 6; i++ {
		res, err := f.svc.Turn(ctx, driving.TurnRequest{
			ConversationID: id,
			Message:        fmt.Sprintf("question %d", i),
		})
		require.NoError(t, err)
		id = res.ConversationID
	}

	// 6 turns = 12 messages of history, but the prompt only carries the
	// last HistoryWindow of them (the new user message included).
	prompt := f.llm.lastPrompt()
	require.Len(t, prompt, 1+HistoryWindow)
	assert.Equal(t, domain.RoleSystem, prompt[0].Role)
	last := prompt[len(prompt)-1]
	assert.Equal(t, "question 5", last.Content)
}

func TestChatService_Turn_WithDocumentContext(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	f.storeDocument(t, "doc-1",
		[]string{"far chunk", "near chunk", "middle chunk"},
		[][]float32{{10, 0}, {1, 0}, {5, 0}},
	)
	f.embedder.vectors["where is it"] = []float32{0, 0}

	res, err := f.svc.Turn(ctx, driving.TurnRequest{
		Message:    "where is it",
		DocumentID: "doc-1",
	})
	require.NoError(t, err)
	require.NotNil(t, res)

	prompt := f.llm.lastPrompt()
	require.Len(t, prompt, 3) // persona + context + user message
	contextMsg := prompt[1]
	assert.Equal(t, domain.RoleSystem, contextMsg.Role)
	assert.True(t, strings.HasPrefix(contextMsg.Content, contextHeader))

	// Chunks appear most relevant first.
	near := strings.Index(contextMsg.Content, "near chunk")
	middle := strings.Index(contextMsg.Content, "middle chunk")
	far := strings.Index(contextMsg.Content, "far chunk")
	assert.True(t, near < middle && middle < far,
		"context chunks must be ordered by ascending distance: %q", contextMsg.Content)
}

func TestChatService_Turn_TopK(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	contents := make([]string, 6)
	vectors := make([][]float32, 6)
	for i := range contents {
		contents[i] = fmt.Sprintf("chunk %d", i)
		vectors[i] = []float32{float32(i), 0}
	}
	f.storeDocument(t, "doc-1", contents, vectors)
	f.embedder.vectors["q"] = []float32{0, 0}

	_, err := f.svc.Turn(ctx, driving.TurnRequest{Message: "q", DocumentID: "doc-1", TopK: 2})
	require.NoError(t, err)

	contextMsg := f.llm.lastPrompt()[1]
	assert.Contains(t, contextMsg.Content, "chunk 0")
	assert.Contains(t, contextMsg.Content, "chunk 1")
	assert.NotContains(t, contextMsg.Content, "chunk 2")
}

func TestChatService_Retrieve_ChunkMetadata(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	f.storeDocument(t, "doc-1",
		[]string{"far chunk", "near chunk", "middle chunk"},
		[][]float32{{10, 0}, {1, 0}, {5, 0}},
	)
	f.embedder.vectors["where is it"] = []float32{0, 0}

	retrieved := f.svc.retrieve(ctx, "doc-1", "where is it", 3)
	require.Len(t, retrieved, 3)

	// Each result carries its source position, text and distance,
	// ordered by ascending distance.
	assert.Equal(t, "near chunk", retrieved[0].Chunk.Content)
	assert.Equal(t, 1, retrieved[0].Chunk.Position)
	assert.Equal(t, "middle chunk", retrieved[1].Chunk.Content)
	assert.Equal(t, "far chunk", retrieved[2].Chunk.Content)
	for i, rc := range retrieved {
		assert.Equal(t, "doc-1", rc.Chunk.DocumentID)
		if i > 0 {
			assert.LessOrEqual(t, retrieved[i-1].Distance, rc.Distance)
		}
	}
}

func TestChatService_Turn_UnknownDocument(t *testing.T) {
	f := newChatFixture(t)

	res, err := f.svc.Turn(context.Background(), driving.TurnRequest{
		Message:    "hello",
		DocumentID: "no-such-document",
	})
	require.NoError(t, err, "unknown documents are not an error")
	assert.Equal(t, "generated reply", res.Reply)

	// No context system message was added.
	prompt := f.llm.lastPrompt()
	require.Len(t, prompt, 2)
	assert.NotContains(t, prompt[0].Content, contextHeader)
}

func TestChatService_Turn_EmbedderFailureDegrades(t *testing.T) {
	f := newChatFixture(t)
	f.storeDocument(t, "doc-1", []string{"chunk"}, [][]float32{{1, 0}})
	f.embedder.err = errors.New("embedding service down")

	res, err := f.svc.Turn(context.Background(), driving.TurnRequest{
		Message:    "hello",
		DocumentID: "doc-1",
	})
	require.NoError(t, err, "retrieval is best-effort")
	assert.Equal(t, "generated reply", res.Reply)
	assert.Len(t, f.llm.lastPrompt(), 2, "no context block on embedding failure")
}

func TestChatService_Turn_GeneratorFailure(t *testing.T) {
	f := newChatFixture(t)
	f.llm.err = errors.New("model overloaded")

	_, err := f.svc.Turn(context.Background(), driving.TurnRequest{
		ConversationID: "conv-1",
		Message:        "hello",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationFailure)

	// The user message is preserved; no synthetic reply is appended.
	msgs, err2 := f.convStore.Recent(context.Background(), "conv-1", 10)
	require.NoError(t, err2)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestChatService_Turn_EmptyMessage(t *testing.T) {
	f := newChatFixture(t)

	for _, msg := range []string{"", "   "} {
		_, err := f.svc.Turn(context.Background(), driving.TurnRequest{Message: msg})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestChatService_Turn_NoLLM(t *testing.T) {
	f := newChatFixture(t)
	svc := NewChatService(f.docStore, f.convStore, f.embedder, nil)

	_, err := svc.Turn(context.Background(), driving.TurnRequest{Message: "hello"})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestChatService_Turn_SerializesSameConversation(t *testing.T) {
	f := newChatFixture(t)
	f.llm.delay = 5 * time.Millisecond
	ctx := context.Background()

	id, err := f.convStore.Ensure(ctx, "")
	require.NoError(t, err)

	const turns = 8
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = f.svc.Turn(ctx, driving.TurnRequest{
				ConversationID: id,
				Message:        fmt.Sprintf("msg %d", n),
			})
		}(i)
	}
	wg.Wait()

	// Each turn appends exactly one user and one assistant message, and
	// turns never interleave: history strictly alternates.
	msgs, err := f.convStore.Recent(ctx, id, 100)
	require.NoError(t, err)
	require.Len(t, msgs, 2*turns)
	for i, m := range msgs {
		if i%2 == 0 {
			assert.Equal(t, domain.RoleUser, m.Role, "message %d", i)
		} else {
			assert.Equal(t, domain.RoleAssistant, m.Role, "message %d", i)
		}
	}
}

func TestChatService_Reset(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	a, err := f.svc.Turn(ctx, driving.TurnRequest{Message: "in a"})
	require.NoError(t, err)
	b, err := f.svc.Turn(ctx, driving.TurnRequest{Message: "in b"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Reset(ctx, a.ConversationID))

	msgs, err := f.convStore.Recent(ctx, a.ConversationID, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = f.convStore.Recent(ctx, b.ConversationID, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 2, "other conversations survive a single reset")

	require.NoError(t, f.svc.Reset(ctx, ""))
	msgs, err = f.convStore.Recent(ctx, b.ConversationID, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs, "empty id resets everything")
}
