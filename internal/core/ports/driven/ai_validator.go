package driven

import "github.com/custodia-labs/ragify/internal/core/domain"

// AIConfigValidator checks AI provider settings by contacting the provider.
type AIConfigValidator interface {
	// ValidateEmbedding builds the embedding service and pings it.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM builds the language model and pings it.
	// Returns nil if no model is configured.
	ValidateLLM(config *domain.LLMSettings) error
}
