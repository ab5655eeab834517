package driven

import (
	"context"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

// VectorIndex is an in-memory similarity index over embedded chunks.
// An index is not safe for concurrent mutation; callers that share one
// across goroutines Clone it before adding.
type VectorIndex interface {
	// Add appends entries. Every vector must have Dimensions() elements.
	Add(ctx context.Context, entries []domain.IndexEntry) error

	// Search returns up to k entries most similar to query, highest first.
	Search(ctx context.Context, query []float32, k int) ([]domain.RetrievedChunk, error)

	// Entries returns a copy of all entries in insertion order.
	Entries() []domain.IndexEntry

	// Len returns the number of entries.
	Len() int

	// Dimensions returns the vector size.
	Dimensions() int

	// Clone returns an independent copy.
	Clone() VectorIndex

	// Close releases resources.
	Close() error
}

// VectorIndexFactory creates an empty index for vectors of the given size.
type VectorIndexFactory func(dimensions int) VectorIndex

// IndexSnapshot is the persisted form of a vector index.
type IndexSnapshot struct {
	// Model is the embedding model that produced the vectors.
	Model string

	// Dimensions is the vector size.
	Dimensions int

	// Entries holds the vectors and the side table in position order.
	Entries []domain.IndexEntry
}

// IndexStore persists snapshots at a path.
//
// A persisted index is two artifacts: the vector data and the side table.
// Save must leave either the old or the new pair readable, never a mix.
type IndexStore interface {
	// Load reads the snapshot at path.
	// Returns domain.ErrIndexNotFound if nothing is persisted there and
	// domain.ErrIndexCorrupt if the artifacts cannot be decoded.
	Load(ctx context.Context, path string) (*IndexSnapshot, error)

	// Save writes the snapshot to path, replacing any existing one.
	Save(ctx context.Context, path string, snapshot IndexSnapshot) error

	// Delete removes both artifacts. Deleting a missing index is not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether an index is persisted at path.
	Exists(ctx context.Context, path string) (bool, error)
}
