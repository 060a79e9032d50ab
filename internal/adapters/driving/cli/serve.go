package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	ollamaembed "github.com/custodia-labs/docchat/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/docchat/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docchat/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/docchat/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/docchat/internal/config"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/services"
	"github.com/custodia-labs/docchat/internal/logger"
	"github.com/custodia-labs/docchat/internal/normalisers/plaintext"
	"github.com/custodia-labs/docchat/internal/postprocessors/chunker"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default :8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagAddr != "" {
		cfg.Server.Addr = flagAddr
	}

	builder := flat.NewBuilder()

	var docStore driven.DocumentStore
	var convStore driven.ConversationStore
	switch cfg.Storage.Backend {
	case config.StorageSQLite:
		store, err := sqlite.NewStore(cfg.Storage.DataDir, builder)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		defer store.Close()
		docStore, convStore = store, store
	default:
		docStore = memory.NewDocumentStore()
		convStore = memory.NewConversationStore()
	}

	embedder, llm, err := buildModelClients(cfg)
	if err != nil {
		return err
	}
	defer embedder.Close()
	defer llm.Close()

	ingest := services.NewIngestService(docStore, embedder, builder, chunker.New(), plaintext.New())
	chat := services.NewChatService(docStore, convStore, embedder, llm)

	server := httpapi.NewServer(ingest, chat, httpapi.WithAddr(cfg.Server.Addr))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("storage backend: %s, model provider: %s", cfg.Storage.Backend, cfg.Models.Provider)
	return server.Run(ctx)
}

// buildModelClients constructs the embedding and chat clients from the
// configuration. The ollama provider runs both models against a local
// server and needs no API key; openai serves both from the OpenAI API.
func buildModelClients(cfg *config.Config) (driven.EmbeddingService, driven.LLMService, error) {
	if cfg.Models.Provider == config.ProviderOllama {
		embedder := ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: cfg.Models.OllamaURL,
			Model:   cfg.Models.EmbeddingModel,
		})
		llm := ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: cfg.Models.OllamaURL,
			Model:   cfg.Models.ChatModel,
		})
		return embedder, llm, nil
	}

	if cfg.Models.OpenAIAPIKey == "" {
		return nil, nil, fmt.Errorf("OPENAI_API_KEY is required when the model provider is openai")
	}

	embedder, err := openai.NewEmbeddingService(openai.Config{
		APIKey:            cfg.Models.OpenAIAPIKey,
		BaseURL:           cfg.Models.OpenAIBaseURL,
		Model:             cfg.Models.EmbeddingModel,
		RequestsPerSecond: cfg.Models.RequestsPerSecond,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create embedding client: %w", err)
	}

	llm, err := openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:            cfg.Models.OpenAIAPIKey,
		BaseURL:           cfg.Models.OpenAIBaseURL,
		Model:             cfg.Models.ChatModel,
		RequestsPerSecond: cfg.Models.RequestsPerSecond,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create chat client: %w", err)
	}
	return embedder, llm, nil
}
