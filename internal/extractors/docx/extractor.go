// Package docx extracts paragraph text from Word documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

const documentPart = "word/document.xml"

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string { return "docx" }

// Extensions returns the extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{"docx"}
}

// Extract returns the text of every body paragraph, each followed by a newline.
// Paragraphs nested in tables are not part of the body and are skipped.
func (e *Extractor) Extract(_ context.Context, blob domain.DocumentBlob) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(blob.Content), int64(len(blob.Content)))
	if err != nil {
		return "", fmt.Errorf("%w: not a docx archive: %w", domain.ErrExtractionFailed, err)
	}

	for _, file := range reader.File {
		if file.Name != documentPart {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
		}
		defer rc.Close()

		paragraphs, err := bodyParagraphs(rc)
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
		}

		var sb strings.Builder
		for _, p := range paragraphs {
			sb.WriteString(p)
			sb.WriteString("\n")
		}
		return sb.String(), nil
	}
	return "", fmt.Errorf("%w: missing %s", domain.ErrExtractionFailed, documentPart)
}

// bodyParagraphs walks document.xml and returns the text of each <w:p>
// that is a direct child of <w:body>. Runs inside hyperlinks and other
// inline containers are included in document order.
func bodyParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		stack      []string
		current    *strings.Builder
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return paragraphs, nil
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if name == "p" && len(stack) > 0 && stack[len(stack)-1] == "body" {
				current = &strings.Builder{}
			}
			if current != nil {
				switch name {
				case "t":
					inText = true
				case "tab":
					current.WriteString("\t")
				case "br", "cr":
					current.WriteString("\n")
				}
			}
			stack = append(stack, name)

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if current != nil && len(stack) > 0 && stack[len(stack)-1] == "body" {
					paragraphs = append(paragraphs, current.String())
					current = nil
				}
			}

		case xml.CharData:
			if current != nil && inText {
				current.Write(t)
			}
		}
	}
}
