package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// --- Mock implementations ---

type mockIngest struct {
	result     *driving.IngestResult
	err        error
	docs       []domain.Document
	deletedID  string
	lastRaw    *domain.RawUpload
	lastText   string
	lastName   string
	uploadUsed bool
}

func (m *mockIngest) Ingest(_ context.Context, filename, text string) (*driving.IngestResult, error) {
	m.lastName, m.lastText = filename, text
	return m.result, m.err
}

func (m *mockIngest) IngestUpload(_ context.Context, raw *domain.RawUpload) (*driving.IngestResult, error) {
	m.uploadUsed = true
	m.lastRaw = raw
	return m.result, m.err
}

func (m *mockIngest) Delete(_ context.Context, documentID string) error {
	m.deletedID = documentID
	return m.err
}

func (m *mockIngest) List(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

type mockChat struct {
	result  *driving.TurnResult
	err     error
	lastReq driving.TurnRequest
	resetID string
	resets  int
}

func (m *mockChat) Turn(_ context.Context, req driving.TurnRequest) (*driving.TurnResult, error) {
	m.lastReq = req
	return m.result, m.err
}

func (m *mockChat) Reset(_ context.Context, conversationID string) error {
	m.resetID = conversationID
	m.resets++
	return m.err
}

func newTestServer(ingest driving.IngestService, chat driving.ChatService) *Server {
	return NewServer(ingest, chat)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&mockIngest{}, &mockChat{})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUploadDocument_JSON(t *testing.T) {
	ingest := &mockIngest{result: &driving.IngestResult{
		DocumentID: "doc-1",
		Filename:   "notes.txt",
		ChunkCount: 3,
	}}
	srv := newTestServer(ingest, &mockChat{})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/documents", uploadRequest{
		Filename: "notes.txt",
		Text:     "some document text",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "doc-1", resp.DocumentID)
	assert.Equal(t, "notes.txt", resp.Filename)
	assert.Equal(t, 3, resp.ChunkCount)
	assert.Equal(t, "some document text", ingest.lastText)
}

func TestUploadDocument_Multipart(t *testing.T) {
	ingest := &mockIngest{result: &driving.IngestResult{
		DocumentID: "doc-2",
		Filename:   "report.txt",
		ChunkCount: 1,
	}}
	srv := newTestServer(ingest, &mockChat{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "report.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("uploaded content"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, ingest.uploadUsed)
	require.NotNil(t, ingest.lastRaw)
	assert.Equal(t, "report.txt", ingest.lastRaw.Filename)
	assert.Equal(t, []byte("uploaded content"), ingest.lastRaw.Data)
}

func TestUploadDocument_EmptyDocument(t *testing.T) {
	ingest := &mockIngest{err: fmt.Errorf("ingest: %w", domain.ErrEmptyDocument)}
	srv := newTestServer(ingest, &mockChat{})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/documents", uploadRequest{
		Filename: "empty.txt",
		Text:     "   ",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadDocument_EmbedderFailure(t *testing.T) {
	ingest := &mockIngest{err: fmt.Errorf("%w: connection refused", domain.ErrEmbeddingFailure)}
	srv := newTestServer(ingest, &mockChat{})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/documents", uploadRequest{
		Filename: "notes.txt",
		Text:     "text",
	})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestListDocuments(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ingest := &mockIngest{docs: []domain.Document{
		{ID: "doc-1", Filename: "a.txt", ChunkCount: 2, CreatedAt: created},
	}}
	srv := newTestServer(ingest, &mockChat{})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/documents", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"doc-1"`)
	assert.Contains(t, rec.Body.String(), "2025-06-01T12:00:00Z")
}

func TestDeleteDocument(t *testing.T) {
	ingest := &mockIngest{}
	srv := newTestServer(ingest, &mockChat{})

	rec := doJSON(t, srv.Handler(), http.MethodDelete, "/api/documents/doc-9", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "doc-9", ingest.deletedID)
}

func TestChat(t *testing.T) {
	chat := &mockChat{result: &driving.TurnResult{
		ConversationID: "conv-1",
		Reply:          "hello there",
	}}
	srv := newTestServer(&mockIngest{}, chat)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", chatRequest{
		Message:    "hi",
		DocumentID: "doc-1",
		TopK:       2,
	})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "conv-1", resp.ConversationID)
	assert.Equal(t, "hello there", resp.Reply)
	assert.Equal(t, "doc-1", chat.lastReq.DocumentID)
	assert.Equal(t, 2, chat.lastReq.TopK)
}

func TestChat_EmptyMessage(t *testing.T) {
	chat := &mockChat{err: fmt.Errorf("%w: message must not be empty", domain.ErrInvalidInput)}
	srv := newTestServer(&mockIngest{}, chat)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", chatRequest{Message: ""})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_GenerationFailure(t *testing.T) {
	chat := &mockChat{err: fmt.Errorf("%w: model timeout", domain.ErrGenerationFailure)}
	srv := newTestServer(&mockIngest{}, chat)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", chatRequest{Message: "hi"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "model timeout")
}

func TestReset_SingleConversation(t *testing.T) {
	chat := &mockChat{}
	srv := newTestServer(&mockIngest{}, chat)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/reset", resetRequest{ConversationID: "conv-1"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "conv-1", chat.resetID)
}

func TestReset_ChunkedBody(t *testing.T) {
	chat := &mockChat{}
	srv := newTestServer(&mockIngest{}, chat)

	// Wrapping the reader hides its length, so the request goes out
	// with ContentLength -1 the way a chunked upload does.
	body := io.NopCloser(strings.NewReader(`{"conversation_id":"conv-42"}`))
	req := httptest.NewRequest(http.MethodPost, "/api/reset", body)
	req.Header.Set("Content-Type", "application/json")
	req.TransferEncoding = []string{"chunked"}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "conv-42", chat.resetID)
}

func TestReset_InvalidBody(t *testing.T) {
	chat := &mockChat{}
	srv := newTestServer(&mockIngest{}, chat)

	req := httptest.NewRequest(http.MethodPost, "/api/reset", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, chat.resets)
}

func TestReset_All(t *testing.T) {
	chat := &mockChat{}
	srv := newTestServer(&mockIngest{}, chat)

	req := httptest.NewRequest(http.MethodPost, "/api/reset", strings.NewReader(""))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, chat.resets)
	assert.Empty(t, chat.resetID)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(&mockIngest{}, &mockChat{})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
