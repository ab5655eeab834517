package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

func TestStore_PutGetDelete(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	ctx := context.Background()

	path, err := store.Put(ctx, 7, "report.pdf", []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "files", "user_7"), filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "_report.pdf"))

	data, err := store.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), data)

	require.NoError(t, store.Delete(ctx, path))
	_, err = store.Get(ctx, path)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting again is fine.
	assert.NoError(t, store.Delete(ctx, path))
}

func TestStore_Put_SameNameTwice(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	first, err := store.Put(ctx, 1, "a.txt", []byte("one"))
	require.NoError(t, err)
	second, err := store.Put(ctx, 1, "a.txt", []byte("two"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	data, err := store.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestStore_Put_StripsDirectories(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	path, err := store.Put(context.Background(), 1, "../../etc/passwd", []byte("x"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "files", "user_1"), filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "_passwd"))
}

func TestStore_Put_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	_, err := store.Put(context.Background(), 1, "a.txt", []byte("x"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "files", "user_1"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.HasPrefix(entries[0].Name(), ".upload-"))
}

func TestStore_Put_InvalidName(t *testing.T) {
	store := NewStore(t.TempDir())

	for _, name := range []string{"", ".", ".."} {
		_, err := store.Put(context.Background(), 1, name, []byte("x"))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, name)
	}
}

func TestStore_CancelledContext(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Put(ctx, 1, "a.txt", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
