package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/config"
)

func TestBuildModelClients_OllamaNeedsNoAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.Models.Provider = config.ProviderOllama

	embedder, llm, err := buildModelClients(cfg)
	require.NoError(t, err)
	require.NotNil(t, embedder)
	require.NotNil(t, llm)

	assert.Equal(t, "nomic-embed-text", embedder.ModelName())
	assert.Equal(t, "llama3.2", llm.ModelName())
}

func TestBuildModelClients_OpenAIRequiresAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.Models.OpenAIAPIKey = ""

	_, _, err := buildModelClients(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY is required when the model provider is openai")
}

func TestBuildModelClients_OpenAI(t *testing.T) {
	cfg := config.Default()
	cfg.Models.OpenAIAPIKey = "sk-test"
	cfg.Models.ChatModel = "gpt-4o"

	embedder, llm, err := buildModelClients(cfg)
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-3-small", embedder.ModelName())
	assert.Equal(t, "gpt-4o", llm.ModelName())
}
