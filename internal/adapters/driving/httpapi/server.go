package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Default server configuration values.
const (
	DefaultAddr            = ":8000"
	DefaultShutdownTimeout = 10 * time.Second
	maxUploadBytes         = 32 << 20 // 32 MiB
)

// Server serves the document chat HTTP API.
type Server struct {
	ingest driving.IngestService
	chat   driving.ChatService
	engine *gin.Engine
	http   *http.Server
}

// Option configures the server.
type Option func(*Server)

// WithAddr sets the listen address (default :8000).
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.http.Addr = addr
	}
}

// NewServer creates a server wired to the given services.
func NewServer(ingest driving.IngestService, chat driving.ChatService, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogging(), cors())

	s := &Server{
		ingest: ingest,
		chat:   chat,
		engine: engine,
		http: &http.Server{
			Addr:    DefaultAddr,
			Handler: engine,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealthz)

	api := s.engine.Group("/api")
	api.POST("/documents", s.handleUploadDocument)
	api.GET("/documents", s.handleListDocuments)
	api.DELETE("/documents/:id", s.handleDeleteDocument)
	api.POST("/chat", s.handleChat)
	api.POST("/reset", s.handleReset)
}

// Handler returns the underlying HTTP handler. Useful for testing.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
