package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore keeps persisted index snapshots in a map keyed by path.
type IndexStore struct {
	mu        sync.RWMutex
	snapshots map[string]driven.IndexSnapshot
	saves     int
}

// NewIndexStore creates an empty index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{
		snapshots: make(map[string]driven.IndexSnapshot),
	}
}

// Load returns a copy of the snapshot at path.
func (s *IndexStore) Load(ctx context.Context, path string) (*driven.IndexSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrIndexNotFound)
	}
	out := copySnapshot(snap)
	return &out, nil
}

// Save replaces the snapshot at path.
func (s *IndexStore) Save(ctx context.Context, path string, snap driven.IndexSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, e := range snap.Entries {
		if len(e.Vector) != snap.Dimensions {
			return fmt.Errorf("%w: entry has %d dimensions, snapshot has %d",
				domain.ErrInvalidInput, len(e.Vector), snap.Dimensions)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[path] = copySnapshot(snap)
	s.saves++
	return nil
}

// Delete removes the snapshot at path.
func (s *IndexStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, path)
	return nil
}

// Exists reports whether a snapshot is stored at path.
func (s *IndexStore) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.snapshots[path]
	return ok, nil
}

// Saves returns how many snapshots have been written.
func (s *IndexStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func copySnapshot(snap driven.IndexSnapshot) driven.IndexSnapshot {
	out := driven.IndexSnapshot{
		Model:      snap.Model,
		Dimensions: snap.Dimensions,
		Entries:    make([]domain.IndexEntry, len(snap.Entries)),
	}
	for i, e := range snap.Entries {
		out.Entries[i] = domain.IndexEntry{
			Content:  e.Content,
			Metadata: maps.Clone(e.Metadata),
			Vector:   append([]float32(nil), e.Vector...),
		}
	}
	return out
}
