package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// NewChatClient creates a chat client for the configured provider.
// Returns ChatClient interface to enable dependency injection of mocks.
func NewChatClient(cfg *Config, logger *zap.Logger) (ChatClient, error) {
	switch cfg.Provider {
	case "", "openai":
		client, err := NewClient(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		return client, nil
	case "anthropic":
		client, err := NewAnthropicClient(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// NewEmbedder creates an embedding client. Embeddings always go through the
// OpenAI-compatible surface regardless of the chat provider.
func NewEmbedder(cfg *Config, logger *zap.Logger) (Embedder, error) {
	client, err := NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	return client, nil
}
