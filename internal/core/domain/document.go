package domain

import (
	"path/filepath"
	"strings"
)

// DocumentBlob is an uploaded file before extraction.
// The caller owns Content for the duration of extraction.
type DocumentBlob struct {
	// Name is the original filename, including extension.
	Name string

	// Content is the raw file bytes.
	Content []byte
}

// Extension returns the lower-cased extension without the leading dot.
func (b DocumentBlob) Extension() string {
	return NormaliseExtension(filepath.Ext(b.Name))
}

// NormaliseExtension lower-cases ext and strips a leading dot.
func NormaliseExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// Chunk is a bounded-length segment of extracted text.
// Chunks are the unit of embedding and retrieval.
type Chunk struct {
	// ID is deterministic for a given text and chunker configuration.
	ID string

	// Content is the chunk text.
	Content string

	// Position is the ordinal position within the extracted text.
	Position int

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]string
}

// ChunkContents returns the text of each chunk in order.
func ChunkContents(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	return texts
}

// ExtractStatus is the per-file outcome of extraction.
type ExtractStatus string

// Extraction outcomes.
const (
	ExtractOK          ExtractStatus = "ok"
	ExtractEmpty       ExtractStatus = "empty"
	ExtractUnsupported ExtractStatus = "unsupported"
	ExtractFailed      ExtractStatus = "failed"
)

// FileReport describes what extraction produced for one file.
type FileReport struct {
	// Name is the file name as uploaded.
	Name string

	// Status is the extraction outcome.
	Status ExtractStatus

	// Chars is the number of characters contributed to the normalised text.
	Chars int

	// Err holds the failure reason when Status is ExtractFailed.
	Err string
}
