package indexfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

func testSnapshot() driven.IndexSnapshot {
	return driven.IndexSnapshot{
		Model:      "hash-3",
		Dimensions: 3,
		Entries: []domain.IndexEntry{
			{Content: "The sky is blue.", Vector: []float32{0.1, 0.2, 0.3}, Metadata: map[string]string{"file": "a.txt"}},
			{Content: "Grass is green.", Vector: []float32{-1, 0, 1.5}},
		},
	}
}

func newTestStore() *Store {
	return New(WithRetry(2, time.Millisecond))
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "user_1")
	s := newTestStore()

	require.NoError(t, s.Save(ctx, dir, testSnapshot()))

	got, err := s.Load(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, testSnapshot(), *got)

	assert.FileExists(t, filepath.Join(dir, VectorFile))
	assert.FileExists(t, filepath.Join(dir, MetaFile))
}

func TestStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newTestStore()

	require.NoError(t, s.Save(ctx, dir, testSnapshot()))

	next := testSnapshot()
	next.Entries = next.Entries[:1]
	require.NoError(t, s.Save(ctx, dir, next))

	got, err := s.Load(ctx, dir)
	require.NoError(t, err)
	assert.Len(t, got.Entries, 1)

	// No temp files are left behind.
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestStore_LoadNotFound(t *testing.T) {
	_, err := newTestStore().Load(context.Background(), filepath.Join(t.TempDir(), "missing"))

	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
	assert.NotErrorIs(t, err, domain.ErrIndexCorrupt)
}

func TestStore_LoadCorrupt(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, dir string)
	}{
		{"lone vector file", func(t *testing.T, dir string) {
			require.NoError(t, os.Remove(filepath.Join(dir, MetaFile)))
		}},
		{"lone side table", func(t *testing.T, dir string) {
			require.NoError(t, os.Remove(filepath.Join(dir, VectorFile)))
		}},
		{"truncated vectors", func(t *testing.T, dir string) {
			p := filepath.Join(dir, VectorFile)
			data, err := os.ReadFile(p)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(p, data[:len(data)-6], 0600))
		}},
		{"flipped vector byte", func(t *testing.T, dir string) {
			p := filepath.Join(dir, VectorFile)
			data, err := os.ReadFile(p)
			require.NoError(t, err)
			data[headerSize+1] ^= 0xFF
			require.NoError(t, os.WriteFile(p, data, 0600))
		}},
		{"garbage side table", func(t *testing.T, dir string) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, MetaFile), []byte("{not json"), 0600))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			s := newTestStore()
			require.NoError(t, s.Save(ctx, dir, testSnapshot()))

			tt.mutate(t, dir)

			_, err := s.Load(ctx, dir)
			assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
		})
	}
}

func TestStore_LoadGenerationMismatch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	oldDir, newDir := t.TempDir(), t.TempDir()

	require.NoError(t, s.Save(ctx, oldDir, testSnapshot()))
	require.NoError(t, s.Save(ctx, newDir, testSnapshot()))

	// Pair the new vectors with the old side table, as a reader would see
	// between the two renames of a save.
	oldMeta, err := os.ReadFile(filepath.Join(oldDir, MetaFile))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(newDir, MetaFile), oldMeta, 0600))

	_, err = s.Load(ctx, newDir)
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	assert.ErrorIs(t, err, errGenerationMismatch)
}

func TestStore_SaveCancelledKeepsPreviousIndex(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore()
	require.NoError(t, s.Save(context.Background(), dir, testSnapshot()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	next := testSnapshot()
	next.Entries = next.Entries[:1]

	err := s.Save(ctx, dir, next)
	assert.ErrorIs(t, err, context.Canceled)

	got, err := s.Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, got.Entries, 2)
}

func TestStore_SaveRejectsBadSnapshot(t *testing.T) {
	s := newTestStore()

	err := s.Save(context.Background(), t.TempDir(), driven.IndexSnapshot{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	bad := testSnapshot()
	bad.Entries[1].Vector = []float32{1}
	err = s.Save(context.Background(), t.TempDir(), bad)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_DeleteAndExists(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "user_7")
	s := newTestStore()

	exists, err := s.Exists(ctx, dir)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Save(ctx, dir, testSnapshot()))
	exists, err = s.Exists(ctx, dir)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, dir))
	assert.NoFileExists(t, filepath.Join(dir, VectorFile))
	assert.NoFileExists(t, filepath.Join(dir, MetaFile))

	exists, err = s.Exists(ctx, dir)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.Load(ctx, dir)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)

	// Deleting again is not an error.
	assert.NoError(t, s.Delete(ctx, dir))
}

func TestEncodeVectors_RejectsWrongLength(t *testing.T) {
	_, err := encodeVectors([16]byte{}, 2, [][]float32{{1, 2}, {3}})
	assert.Error(t, err)
}
