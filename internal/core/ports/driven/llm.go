package driven

import (
	"context"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

// LLMService is a chat-style language model.
//
// Implementations include:
//   - Ollama (llama3, mistral)
//   - OpenAI and compatible servers (gpt-4o-mini)
type LLMService interface {
	// Chat sends the messages and returns the assistant reply.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping makes a lightweight request to confirm the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens limits the reply length. Zero leaves it to the model.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// Answerer produces an answer to a question from retrieved context and the
// prior conversation. It is the only component that talks to the model on
// behalf of a conversation.
type Answerer interface {
	Answer(ctx context.Context, question string, history domain.History, chunks []domain.RetrievedChunk) (string, error)
}
