// Package flat provides a brute-force cosine similarity index.
//
// Every search scores every entry. Indexes in this application hold the
// chunks of one user's uploads, so a linear scan stays fast and the result
// is exact and deterministic.
package flat

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*Index)(nil)

// Index stores entries with their vector norms precomputed.
type Index struct {
	dimensions int
	entries    []domain.IndexEntry
	norms      []float64
}

// New creates an empty index for vectors of the given size.
func New(dimensions int) *Index {
	return &Index{dimensions: dimensions}
}

// Factory adapts New to driven.VectorIndexFactory.
func Factory(dimensions int) driven.VectorIndex {
	return New(dimensions)
}

// Add appends entries after checking their dimensions.
// Nothing is added if any entry is invalid.
func (ix *Index) Add(_ context.Context, entries []domain.IndexEntry) error {
	for i, e := range entries {
		if len(e.Vector) != ix.dimensions {
			return fmt.Errorf("%w: entry %d has %d dimensions, index has %d",
				domain.ErrInvalidInput, i, len(e.Vector), ix.dimensions)
		}
	}
	for _, e := range entries {
		ix.entries = append(ix.entries, copyEntry(e))
		ix.norms = append(ix.norms, norm(e.Vector))
	}
	return nil
}

// Search returns up to k entries ranked by cosine similarity, highest first.
// Equal scores keep insertion order.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]domain.RetrievedChunk, error) {
	if len(query) != ix.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrInvalidInput, len(query), ix.dimensions)
	}
	if k <= 0 || len(ix.entries) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qn := norm(query)
	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(ix.entries))
	for i, e := range ix.entries {
		scores[i] = scored{idx: i, score: cosine(query, qn, e.Vector, ix.norms[i])}
	}
	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].score > scores[b].score
	})

	k = min(k, len(scores))
	out := make([]domain.RetrievedChunk, k)
	for i := range k {
		e := ix.entries[scores[i].idx]
		out[i] = domain.RetrievedChunk{
			Content:  e.Content,
			Score:    scores[i].score,
			Metadata: copyMetadata(e.Metadata),
		}
	}
	return out, nil
}

// Entries returns a copy of all entries in insertion order.
func (ix *Index) Entries() []domain.IndexEntry {
	out := make([]domain.IndexEntry, len(ix.entries))
	for i, e := range ix.entries {
		out[i] = copyEntry(e)
	}
	return out
}

// Len returns the number of entries.
func (ix *Index) Len() int { return len(ix.entries) }

// Dimensions returns the vector size.
func (ix *Index) Dimensions() int { return ix.dimensions }

// Clone returns an independent copy.
func (ix *Index) Clone() driven.VectorIndex {
	c := &Index{
		dimensions: ix.dimensions,
		entries:    ix.Entries(),
		norms:      make([]float64, len(ix.norms)),
	}
	copy(c.norms, ix.norms)
	return c
}

// Close releases the entries.
func (ix *Index) Close() error {
	ix.entries = nil
	ix.norms = nil
	return nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 when either vector is all zeros.
func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}

func copyEntry(e domain.IndexEntry) domain.IndexEntry {
	v := make([]float32, len(e.Vector))
	copy(v, e.Vector)
	return domain.IndexEntry{
		Content:  e.Content,
		Metadata: copyMetadata(e.Metadata),
		Vector:   v,
	}
}

func copyMetadata(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
