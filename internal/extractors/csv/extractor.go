// Package csv extracts rows from comma-separated files.
package csv

import (
	"bytes"
	"context"
	enccsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// FieldSeparator joins the fields of one row.
const FieldSeparator = " | "

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor handles CSV files.
type Extractor struct{}

// New creates a new CSV extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string { return "csv" }

// Extensions returns the extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{"csv"}
}

// Extract emits one line per record with fields joined by FieldSeparator.
// Rows may have differing field counts and bare quotes are tolerated.
func (e *Extractor) Extract(_ context.Context, blob domain.DocumentBlob) (string, error) {
	r := enccsv.NewReader(bytes.NewReader(bytes.TrimPrefix(blob.Content, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var sb strings.Builder
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
		}
		sb.WriteString(strings.Join(record, FieldSeparator))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
