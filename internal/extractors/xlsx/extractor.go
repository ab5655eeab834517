// Package xlsx extracts cell text from Excel workbooks.
package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles XLSX workbooks.
type Extractor struct{}

// New creates a new XLSX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string { return "xlsx" }

// Extensions returns the extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{"xlsx"}
}

// Extract walks every sheet in workbook order and emits one line per row.
// Cells are joined by a single space; rows are padded to the sheet's
// widest row so empty cells keep their place.
func (e *Extractor) Extract(ctx context.Context, blob domain.DocumentBlob) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(blob.Content))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("%w: sheet %q: %w", domain.ErrExtractionFailed, sheet, err)
		}

		width := 0
		for _, row := range rows {
			width = max(width, len(row))
		}

		for _, row := range rows {
			cells := make([]string, width)
			copy(cells, row)
			sb.WriteString(strings.Join(cells, " "))
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}
