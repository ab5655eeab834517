package driven

import (
	"context"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

// Extractor pulls plain text out of one file format.
type Extractor interface {
	// Name identifies the extractor in logs.
	Name() string

	// Extensions returns the lower-case extensions (without dot) handled.
	Extensions() []string

	// Extract returns the file's text.
	Extract(ctx context.Context, blob domain.DocumentBlob) (string, error)
}

// ExtractorRegistry dispatches blobs to extractors by extension.
type ExtractorRegistry interface {
	// Register adds an extractor, replacing any previous one for the same extensions.
	Register(extractor Extractor)

	// Extract concatenates the text of all blobs in input order.
	// Unsupported files contribute an inline marker and failed files
	// contribute nothing; neither aborts the batch. The only error
	// returned is a cancelled context.
	Extract(ctx context.Context, blobs []domain.DocumentBlob) (string, []domain.FileReport, error)

	// SupportedExtensions returns all registered extensions, sorted.
	SupportedExtensions() []string
}
