package extractors

import (
	"github.com/custodia-labs/ragify/internal/extractors/csv"
	"github.com/custodia-labs/ragify/internal/extractors/docx"
	"github.com/custodia-labs/ragify/internal/extractors/eml"
	"github.com/custodia-labs/ragify/internal/extractors/html"
	"github.com/custodia-labs/ragify/internal/extractors/pdf"
	"github.com/custodia-labs/ragify/internal/extractors/plaintext"
	"github.com/custodia-labs/ragify/internal/extractors/xlsx"
)

// DefaultRegistry returns a registry with every built-in extractor:
// pdf, docx, xlsx, csv, html, eml, txt and md.
func DefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry(opts...)
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(xlsx.New())
	r.Register(csv.New())
	r.Register(html.New())
	r.Register(eml.New())
	r.Register(plaintext.New())
	return r
}
