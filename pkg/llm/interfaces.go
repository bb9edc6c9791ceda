// Package llm provides chat and embedding clients for OpenAI-compatible and
// Anthropic endpoints.
package llm

import (
	"context"
)

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	Name      string
	Arguments string // raw JSON object
}

// ToolCallResult is the outcome of a chat completion that offered tools.
type ToolCallResult struct {
	Content   string
	ToolCalls []ToolCall
}

// ChatClient defines the interface for chat operations.
// Use this interface for dependency injection to enable mocking in tests.
type ChatClient interface {
	// GenerateResponse generates a plain chat completion response.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// GenerateWithTools generates a completion with tool definitions offered
	// to the model. The result carries any tool calls the model made.
	GenerateWithTools(ctx context.Context, prompt string, systemMessage string, tools []ToolDefinition, temperature float64) (*ToolCallResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Embedder defines the interface for embedding operations.
type Embedder interface {
	// CreateEmbeddings generates embeddings for multiple inputs.
	CreateEmbeddings(ctx context.Context, inputs []string, model string) ([][]float32, error)
}

// Ensure implementations satisfy the interfaces at compile time.
var (
	_ ChatClient = (*Client)(nil)
	_ ChatClient = (*AnthropicClient)(nil)
	_ Embedder   = (*Client)(nil)
)
