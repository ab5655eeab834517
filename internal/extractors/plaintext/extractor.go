// Package plaintext extracts UTF-8 text and Markdown files verbatim.
package plaintext

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain text documents.
type Extractor struct {
	extensions []string
}

// New creates a plain text extractor for txt and md files.
// Additional extensions may be passed to treat other text formats the same way.
func New(extra ...string) *Extractor {
	exts := []string{"txt", "md"}
	for _, e := range extra {
		exts = append(exts, domain.NormaliseExtension(e))
	}
	return &Extractor{extensions: exts}
}

// Name returns the extractor name.
func (e *Extractor) Name() string { return "plaintext" }

// Extensions returns the extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	out := make([]string, len(e.extensions))
	copy(out, e.extensions)
	return out
}

// Extract returns the content unchanged followed by a newline.
// Content that is not valid UTF-8 is rejected.
func (e *Extractor) Extract(_ context.Context, blob domain.DocumentBlob) (string, error) {
	if !utf8.Valid(blob.Content) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrExtractionFailed, blob.Name)
	}
	return string(blob.Content) + "\n", nil
}
