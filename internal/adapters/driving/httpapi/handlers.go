package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// uploadRequest is the JSON body for document ingestion.
type uploadRequest struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// uploadResponse confirms a successful ingestion.
type uploadResponse struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// chatRequest is the body for a chat turn.
type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	DocumentID     string `json:"document_id"`
	TopK           int    `json:"top_k"`
}

// chatResponse carries the generated reply.
type chatResponse struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
}

// resetRequest selects which conversation to clear.
type resetRequest struct {
	ConversationID string `json:"conversation_id"`
}

// documentInfo is the list representation of a stored document.
type documentInfo struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  string `json:"created_at"`
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleUploadDocument ingests a document from either a multipart file
// upload or a JSON body with inline text.
func (s *Server) handleUploadDocument(c *gin.Context) {
	var result *driving.IngestResult
	var err error

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		result, err = s.ingestMultipart(c)
	} else {
		var req uploadRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
		result, err = s.ingest.Ingest(c.Request.Context(), req.Filename, req.Text)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, uploadResponse{
		DocumentID: result.DocumentID,
		Filename:   result.Filename,
		ChunkCount: result.ChunkCount,
	})
}

func (s *Server) ingestMultipart(c *gin.Context) (*driving.IngestResult, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	if header.Size > maxUploadBytes {
		return nil, domain.ErrInvalidInput
	}

	file, err := header.Open()
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "text/plain"
	}

	return s.ingest.IngestUpload(c.Request.Context(), &domain.RawUpload{
		Filename: header.Filename,
		MIMEType: mimeType,
		Data:     data,
	})
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.ingest.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	infos := make([]documentInfo, 0, len(docs))
	for _, doc := range docs {
		infos = append(infos, documentInfo{
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			ChunkCount: doc.ChunkCount,
			CreatedAt:  doc.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	c.JSON(http.StatusOK, gin.H{"documents": infos})
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	if err := s.ingest.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := s.chat.Turn(c.Request.Context(), driving.TurnRequest{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		DocumentID:     req.DocumentID,
		TopK:           req.TopK,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		ConversationID: result.ConversationID,
		Reply:          result.Reply,
	})
}

func (s *Server) handleReset(c *gin.Context) {
	// An absent body means "reset everything". ContentLength is -1 for
	// chunked requests, so detect "no body" by the decoder hitting EOF
	// rather than by length.
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := s.chat.Reset(c.Request.Context(), req.ConversationID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// writeError maps domain errors to HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrEmptyDocument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrGenerationFailure),
		errors.Is(err, domain.ErrEmbeddingFailure),
		errors.Is(err, domain.ErrLLMUnavailable),
		errors.Is(err, domain.ErrEmbeddingUnavailable):
		status = http.StatusBadGateway
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}
