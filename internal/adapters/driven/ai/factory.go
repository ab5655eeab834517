// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"fmt"

	localembed "github.com/custodia-labs/ragify/internal/adapters/driven/embedding/local"
	ollamaembed "github.com/custodia-labs/ragify/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/ragify/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/ragify/internal/adapters/driven/llm"
	ollamallm "github.com/custodia-labs/ragify/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/ragify/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

// fixHint is appended to configuration errors shown to the user.
const fixHint = "Run 'ragify settings set' to fix"

// Services bundles the AI capabilities built from settings.
type Services struct {
	Embedding driven.EmbeddingService

	// LLM and Answerer are nil when no language model is configured.
	// Knowledge can still be built; only asking fails.
	LLM      driven.LLMService
	Answerer driven.Answerer
}

// Close releases all resources held by the services.
func (s *Services) Close() {
	if s.Embedding != nil {
		s.Embedding.Close()
	}
	if s.LLM != nil {
		s.LLM.Close()
	}
}

// NewServices builds the embedding service and, if configured, the language
// model and its answerer. Nothing is pinged; providers are contacted lazily.
func NewServices(settings *domain.AppSettings, prompts driven.PromptStore) (*Services, error) {
	embedding, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	if embedding == nil {
		return nil, fmt.Errorf("%w: embedding provider %q is not configured. %s",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider, fixHint)
	}

	svc := &Services{Embedding: embedding}

	model, err := CreateLLMService(&settings.LLM)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	if model != nil {
		svc.LLM = model
		svc.Answerer = llm.NewAnswerer(model, prompts,
			llm.WithLanguage(settings.Answer.Language),
			llm.WithTemperature(settings.Answer.Temperature),
		)
	}
	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderLocal:
		return createLocalEmbedding(settings)

	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

func createLocalEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	model := settings.Model
	if model == "" {
		model = domain.DefaultEmbeddingModels()[domain.AIProviderLocal]
	}
	svc, err := localembed.NewEmbeddingService(model)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Dimensions:        domain.EmbeddingDimensions()[settings.Model],
		RequestsPerSecond: settings.RequestsPerSecond,
	})
}

func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:            settings.APIKey,
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Dimensions:        domain.EmbeddingDimensions()[settings.Model],
		RequestsPerSecond: settings.RequestsPerSecond,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
