// Package llm provides chat-completion and embedding clients for the
// language model collaborator.
package llm

import "context"

// ChatClient is the chat-completion interface consumed by the generation
// engine. Use this interface for dependency injection to enable mocking
// in tests.
type ChatClient interface {
	// GenerateResponse sends a system instruction plus user message and
	// returns the model's raw text output.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Embedder produces embedding vectors for retrieval queries.
type Embedder interface {
	// CreateEmbedding generates an embedding vector for the input text.
	CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error)
}

// Ensure implementations satisfy the interfaces at compile time.
var (
	_ ChatClient = (*Client)(nil)
	_ Embedder   = (*Client)(nil)
	_ ChatClient = (*AnthropicClient)(nil)
)
