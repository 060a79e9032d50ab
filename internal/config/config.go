// Package config loads service configuration from a TOML file with
// environment variable overrides. The file is optional; every setting
// has a usable default except the OpenAI API key.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Storage backend names.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// LLM provider names.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config holds the full service configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Models  ModelsConfig  `toml:"models"`
	Storage StorageConfig `toml:"storage"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address (default :8000).
	Addr string `toml:"addr"`
}

// ModelsConfig configures the embedding and chat model clients.
type ModelsConfig struct {
	// Provider selects the chat model backend: openai or ollama.
	Provider string `toml:"provider"`

	// OpenAIAPIKey authenticates against the OpenAI API.
	OpenAIAPIKey string `toml:"openai_api_key"`

	// OpenAIBaseURL overrides the OpenAI API base URL.
	OpenAIBaseURL string `toml:"openai_base_url"`

	// ChatModel is the chat completion model name.
	ChatModel string `toml:"chat_model"`

	// EmbeddingModel is the embedding model name.
	EmbeddingModel string `toml:"embedding_model"`

	// OllamaURL is the Ollama server URL when provider is ollama.
	OllamaURL string `toml:"ollama_url"`

	// RequestsPerSecond throttles upstream API calls. Zero disables.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// StorageConfig configures document and conversation persistence.
type StorageConfig struct {
	// Backend selects the store: memory or sqlite.
	Backend string `toml:"backend"`

	// DataDir is the sqlite data directory (default ~/.docchat/data).
	DataDir string `toml:"data_dir"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8000",
		},
		Models: ModelsConfig{
			Provider: ProviderOpenAI,
		},
		Storage: StorageConfig{
			Backend: StorageMemory,
		},
	}
}

// DefaultPath returns the default config file location,
// ~/.docchat/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".docchat", "config.toml"), nil
}

// Load reads configuration from the given TOML file and applies
// environment overrides. A missing file is not an error; defaults and
// the environment still apply. An empty path uses DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Fall through to env overrides.
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "DOCCHAT_ADDR")
	setString(&c.Models.Provider, "DOCCHAT_LLM_PROVIDER")
	setString(&c.Models.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.Models.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&c.Models.ChatModel, "OPENAI_CHAT_MODEL")
	setString(&c.Models.EmbeddingModel, "OPENAI_EMBEDDING_MODEL")
	setString(&c.Models.OllamaURL, "OLLAMA_URL")
	setString(&c.Storage.Backend, "DOCCHAT_STORAGE")
	setString(&c.Storage.DataDir, "DOCCHAT_DATA_DIR")

	if v := os.Getenv("DOCCHAT_REQUESTS_PER_SECOND"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			c.Models.RequestsPerSecond = rps
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// validate rejects configurations the server cannot start with.
func (c *Config) validate() error {
	switch c.Storage.Backend {
	case StorageMemory, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Models.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown model provider %q", c.Models.Provider)
	}
	return nil
}
