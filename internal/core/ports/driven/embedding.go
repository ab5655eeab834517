package driven

import "context"

// EmbeddingService turns text into vectors.
// One service is keyed by one model identifier; every index built with it
// has Dimensions()-sized vectors, and queries against that index must be
// embedded by the same model.
//
// Implementations include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI and compatible servers (text-embedding-3-small)
//   - The built-in hashing embedder (hash-384), which needs no network
type EmbeddingService interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for texts, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector size produced by the model.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Ping makes a lightweight request to confirm the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
