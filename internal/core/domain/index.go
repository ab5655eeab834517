package domain

// IndexEntry is one (chunk text, embedding) pair held by a vector index.
type IndexEntry struct {
	// Content is the chunk text.
	Content string

	// Metadata is carried alongside the vector in the side table.
	Metadata map[string]string

	// Vector is the chunk embedding.
	Vector []float32
}

// RetrievedChunk is a similarity search hit.
type RetrievedChunk struct {
	// Content is the matched chunk text.
	Content string

	// Score is the cosine similarity, higher is more relevant.
	Score float64

	// Metadata is the entry's side-table metadata.
	Metadata map[string]string
}
