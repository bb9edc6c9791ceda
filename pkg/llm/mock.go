package llm

import (
	"context"
)

// MockChatClient is a configurable mock for testing chat functionality.
// Set the function fields to control behavior in tests.
type MockChatClient struct {
	// GenerateResponseFunc is called when GenerateResponse is invoked.
	// If nil, returns empty string and nil error.
	GenerateResponseFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// GenerateWithToolsFunc is called when GenerateWithTools is invoked.
	// If nil, returns an empty result and nil error.
	GenerateWithToolsFunc func(ctx context.Context, prompt string, systemMessage string, tools []ToolDefinition, temperature float64) (*ToolCallResult, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Endpoint is returned by GetEndpoint. Defaults to "http://mock-endpoint".
	Endpoint string

	// Call tracking for verification
	GenerateResponseCalls  int
	GenerateWithToolsCalls int
}

// NewMockChatClient creates a new mock with sensible defaults.
func NewMockChatClient() *MockChatClient {
	return &MockChatClient{
		Model:    "mock-model",
		Endpoint: "http://mock-endpoint",
	}
}

// GenerateResponse implements ChatClient.
func (m *MockChatClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error) {
	m.GenerateResponseCalls++
	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
	}
	return "", nil
}

// GenerateWithTools implements ChatClient.
func (m *MockChatClient) GenerateWithTools(ctx context.Context, prompt string, systemMessage string, tools []ToolDefinition, temperature float64) (*ToolCallResult, error) {
	m.GenerateWithToolsCalls++
	if m.GenerateWithToolsFunc != nil {
		return m.GenerateWithToolsFunc(ctx, prompt, systemMessage, tools, temperature)
	}
	return &ToolCallResult{}, nil
}

// GetModel implements ChatClient.
func (m *MockChatClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// GetEndpoint implements ChatClient.
func (m *MockChatClient) GetEndpoint() string {
	if m.Endpoint == "" {
		return "http://mock-endpoint"
	}
	return m.Endpoint
}

// Reset clears call tracking counters.
func (m *MockChatClient) Reset() {
	m.GenerateResponseCalls = 0
	m.GenerateWithToolsCalls = 0
}

// Ensure MockChatClient implements ChatClient at compile time.
var _ ChatClient = (*MockChatClient)(nil)

// MockEmbedder is a configurable mock for testing embedding functionality.
type MockEmbedder struct {
	// CreateEmbeddingsFunc is called when CreateEmbeddings is invoked.
	// If nil, returns nil slice and nil error.
	CreateEmbeddingsFunc func(ctx context.Context, inputs []string, model string) ([][]float32, error)

	// Call tracking
	CreateEmbeddingsCalls int
}

// NewMockEmbedder creates a new mock embedder.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// CreateEmbeddings implements Embedder.
func (m *MockEmbedder) CreateEmbeddings(ctx context.Context, inputs []string, model string) ([][]float32, error) {
	m.CreateEmbeddingsCalls++
	if m.CreateEmbeddingsFunc != nil {
		return m.CreateEmbeddingsFunc(ctx, inputs, model)
	}
	return nil, nil
}

// Reset clears call tracking.
func (m *MockEmbedder) Reset() {
	m.CreateEmbeddingsCalls = 0
}

// Ensure MockEmbedder implements Embedder at compile time.
var _ Embedder = (*MockEmbedder)(nil)
