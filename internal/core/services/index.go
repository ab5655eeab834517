package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
	"github.com/custodia-labs/ragify/internal/logger"
)

// DefaultEmbedBatchSize is how many chunks are sent per EmbedBatch call.
const DefaultEmbedBatchSize = 32

var indexLog = logger.With("index")

// IndexService embeds chunks into vector indexes and moves them to and
// from durable storage. It keeps no state between calls.
type IndexService struct {
	embedder  driven.EmbeddingService
	store     driven.IndexStore
	newIndex  driven.VectorIndexFactory
	batchSize int
}

// NewIndexService creates an index service.
func NewIndexService(
	embedder driven.EmbeddingService,
	store driven.IndexStore,
	factory driven.VectorIndexFactory,
) *IndexService {
	return &IndexService{
		embedder:  embedder,
		store:     store,
		newIndex:  factory,
		batchSize: DefaultEmbedBatchSize,
	}
}

// SetBatchSize overrides the embedding batch size. Values below one are ignored.
func (s *IndexService) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// Build embeds chunks into a new index.
func (s *IndexService) Build(ctx context.Context, chunks []domain.Chunk) (driven.VectorIndex, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("build index: %w", domain.ErrEmptyInput)
	}
	entries, err := s.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	idx := s.newIndex(len(entries[0].Vector))
	if err := idx.Add(ctx, entries); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	indexLog.Debug("built index: %d entries, %d dimensions", idx.Len(), idx.Dimensions())
	return idx, nil
}

// Merge returns a copy of idx with the chunks added. Only the new chunks
// are embedded and idx itself is not modified. A nil idx builds a new index.
func (s *IndexService) Merge(
	ctx context.Context, idx driven.VectorIndex, chunks []domain.Chunk,
) (driven.VectorIndex, error) {
	if idx == nil {
		return s.Build(ctx, chunks)
	}
	if len(chunks) == 0 {
		return idx.Clone(), nil
	}
	entries, err := s.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	merged := idx.Clone()
	if err := merged.Add(ctx, entries); err != nil {
		return nil, fmt.Errorf("merge index: %w", err)
	}
	indexLog.Debug("merged %d entries, index now %d", len(entries), merged.Len())
	return merged, nil
}

// Load reads the index persisted at path.
// An index built by a different embedding model is reported as corrupt,
// since its vectors cannot be compared with new queries.
func (s *IndexService) Load(ctx context.Context, path string) (driven.VectorIndex, error) {
	snap, err := s.store.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	if s.embedder != nil && snap.Model != "" && snap.Model != s.embedder.ModelName() {
		return nil, fmt.Errorf("%w: index at %s was built with %s, configured model is %s",
			domain.ErrIndexCorrupt, path, snap.Model, s.embedder.ModelName())
	}

	idx := s.newIndex(snap.Dimensions)
	if err := idx.Add(ctx, snap.Entries); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}
	indexLog.Debug("loaded index from %s: %d entries", path, idx.Len())
	return idx, nil
}

// Persist writes idx to path, replacing what was there.
func (s *IndexService) Persist(ctx context.Context, idx driven.VectorIndex, path string) error {
	if idx == nil {
		return fmt.Errorf("persist index: %w", domain.ErrInvalidInput)
	}
	snap := driven.IndexSnapshot{
		Model:      s.modelName(),
		Dimensions: idx.Dimensions(),
		Entries:    idx.Entries(),
	}
	if err := s.store.Save(ctx, path, snap); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	indexLog.Debug("persisted %d entries to %s", len(snap.Entries), path)
	return nil
}

// Retrieve returns up to k chunks most similar to query, highest first.
func (s *IndexService) Retrieve(
	ctx context.Context, idx driven.VectorIndex, query string, k int,
) ([]domain.RetrievedChunk, error) {
	if idx == nil {
		return nil, domain.ErrNoKnowledge
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, embeddingError(err)
	}
	return idx.Search(ctx, vec, k)
}

// Destroy deletes the index persisted at path.
func (s *IndexService) Destroy(ctx context.Context, path string) error {
	if err := s.store.Delete(ctx, path); err != nil {
		return fmt.Errorf("destroy index: %w", err)
	}
	indexLog.Debug("destroyed index at %s", path)
	return nil
}

// Exists reports whether an index is persisted at path.
func (s *IndexService) Exists(ctx context.Context, path string) (bool, error) {
	return s.store.Exists(ctx, path)
}

func (s *IndexService) modelName() string {
	if s.embedder == nil {
		return ""
	}
	return s.embedder.ModelName()
}

// embed turns chunks into index entries in batches, preserving order.
func (s *IndexService) embed(ctx context.Context, chunks []domain.Chunk) ([]domain.IndexEntry, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	entries := make([]domain.IndexEntry, 0, len(chunks))
	for start := 0; start < len(chunks); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+s.batchSize, len(chunks))
		batch := chunks[start:end]

		vectors, err := s.embedder.EmbedBatch(ctx, domain.ChunkContents(batch))
		if err != nil {
			return nil, embeddingError(err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: got %d vectors for %d chunks",
				domain.ErrEmbeddingUnavailable, len(vectors), len(batch))
		}
		for i, c := range batch {
			entries = append(entries, domain.IndexEntry{
				Content:  c.Content,
				Metadata: chunkMetadata(c),
				Vector:   vectors[i],
			})
		}
	}
	return entries, nil
}

func chunkMetadata(c domain.Chunk) map[string]string {
	md := make(map[string]string, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		md[k] = v
	}
	if c.ID != "" {
		md["chunk_id"] = c.ID
	}
	return md
}

// embeddingError keeps cancellation distinguishable from a failing model.
func embeddingError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, domain.ErrEmbeddingUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
}
