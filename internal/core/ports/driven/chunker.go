package driven

import (
	"context"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

// Chunker splits extracted text into overlapping chunks.
type Chunker interface {
	// Name returns the chunker name for logging and configuration.
	Name() string

	// Chunk splits text. Empty or whitespace-only text yields no chunks.
	Chunk(ctx context.Context, text string) ([]domain.Chunk, error)
}
