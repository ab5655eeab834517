package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

func startWatcher(t *testing.T, dir string) (*dirWatcher, domain.Scope, *syncBuffer) {
	t.Helper()
	setupTestServices(t)
	user, err := userService.Lookup(context.Background(), testUser)
	require.NoError(t, err)
	scope := domain.DurableScope(user.ID)

	out := &syncBuffer{}
	w, err := newDirWatcher(knowledgeService, scope, dir, 20*time.Millisecond, out)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		w.Close() //nolint:errcheck
	})
	return w, scope, out
}

// storedNames is safe to call from Eventually conditions.
func storedNames(scope domain.Scope) []string {
	files, err := knowledgeService.ListFiles(context.Background(), scope)
	if err != nil {
		return nil
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}

func TestDirWatcher_CreateModifyDelete(t *testing.T) {
	dir := t.TempDir()
	_, scope, out := startWatcher(t, dir)
	path := filepath.Join(dir, "notes.txt")

	require.NoError(t, os.WriteFile(path, []byte("Owls hunt at night."), 0o600))
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"notes.txt"}, storedNames(scope))
	}, 3*time.Second, 20*time.Millisecond)

	files, err := knowledgeService.ListFiles(context.Background(), scope)
	require.NoError(t, err)
	firstRef := files[0].Ref

	require.NoError(t, os.WriteFile(path, []byte("Owls hunt at night and sleep by day."), 0o600))
	require.Eventually(t, func() bool {
		files, err := knowledgeService.ListFiles(context.Background(), scope)
		return err == nil && len(files) == 1 && files[0].Ref != firstRef
	}, 3*time.Second, 20*time.Millisecond, "changed file replaces its previous version")

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		return len(storedNames(scope)) == 0
	}, 3*time.Second, 20*time.Millisecond)

	assert.Contains(t, out.String(), "Processed notes.txt")
	assert.Contains(t, out.String(), "Removed notes.txt")
}

func TestDirWatcher_IgnoresHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	_, scope, _ := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.txt"), []byte("secret"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "visible.txt"), []byte("Public words."), 0o600))

	require.Eventually(t, func() bool {
		return len(storedNames(scope)) == 1
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"visible.txt"}, storedNames(scope))
}

func TestDirWatcher_Scan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "Alpha text.")
	writeFile(t, dir, "b.txt", "Beta text.")
	writeFile(t, dir, ".skip", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))

	w, scope, _ := startWatcher(t, dir)

	require.NoError(t, w.Scan(context.Background()))
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, storedNames(scope))

	require.NoError(t, w.Scan(context.Background()))
	assert.Len(t, storedNames(scope), 2, "stored files are not processed twice")
}

func TestDirWatcher_DeleteKeepsSeparatelyStoredFile(t *testing.T) {
	dir := t.TempDir()
	_, scope, out := startWatcher(t, dir)
	ctx := context.Background()

	uploaded, err := knowledgeService.ProcessFiles(ctx, scope, []domain.DocumentBlob{
		{Name: "notes.txt", Content: []byte("Whales sing to each other.")},
	})
	require.NoError(t, err)
	require.Equal(t, 1, uploaded.Entries)
	files, err := knowledgeService.ListFiles(ctx, scope)
	require.NoError(t, err)
	require.Len(t, files, 1)
	uploadRef := files[0].Ref

	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Owls hunt at night."), 0o600))
	require.Eventually(t, func() bool {
		return len(storedNames(scope)) == 2
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Removed notes.txt")
	}, 3*time.Second, 20*time.Millisecond)

	files, err = knowledgeService.ListFiles(ctx, scope)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, uploadRef, files[0].Ref)

	answer, err := knowledgeService.Ask(ctx, scope, "What do whales do?")
	require.NoError(t, err)
	assert.Contains(t, answer.Answer, "Whales sing")
}

func TestDirWatcher_ScanDoesNotClaimSameNamedUpload(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "Owls hunt at night.")
	w, scope, _ := startWatcher(t, dir)
	ctx := context.Background()

	_, err := knowledgeService.ProcessFiles(ctx, scope, []domain.DocumentBlob{
		{Name: "notes.txt", Content: []byte("Whales sing to each other.")},
	})
	require.NoError(t, err)

	require.NoError(t, w.Scan(ctx))

	assert.Equal(t, []string{"notes.txt", "notes.txt"}, storedNames(scope))
}

func TestDirWatcher_RestartPicksUpOfflineChanges(t *testing.T) {
	setupTestServices(t)
	ctx := context.Background()
	user, err := userService.Lookup(ctx, testUser)
	require.NoError(t, err)
	scope := domain.DurableScope(user.ID)

	dir := t.TempDir()
	writeFile(t, dir, "keep.txt", "Rivers flow into the sea.")
	writeFile(t, dir, "edit.txt", "Short.")
	writeFile(t, dir, "gone.txt", "Deserts are dry.")

	scan := func() {
		t.Helper()
		w, err := newDirWatcher(knowledgeService, scope, dir, time.Millisecond, &syncBuffer{})
		require.NoError(t, err)
		defer w.Close() //nolint:errcheck
		require.NoError(t, w.Scan(ctx))
	}

	scan()
	require.ElementsMatch(t, []string{"keep.txt", "edit.txt", "gone.txt"}, storedNames(scope))
	assert.FileExists(t, filepath.Join(dir, WatchStateFile))
	before, err := knowledgeService.ListFiles(ctx, scope)
	require.NoError(t, err)
	refs := make(map[string]string)
	for _, f := range before {
		refs[f.Name] = f.Ref
	}

	writeFile(t, dir, "edit.txt", "Much longer than it was before.")
	require.NoError(t, os.Remove(filepath.Join(dir, "gone.txt")))
	scan()

	after, err := knowledgeService.ListFiles(ctx, scope)
	require.NoError(t, err)
	require.Len(t, after, 2)
	got := make(map[string]string)
	for _, f := range after {
		got[f.Name] = f.Ref
	}
	assert.Equal(t, refs["keep.txt"], got["keep.txt"], "unchanged file is not processed again")
	assert.NotEqual(t, refs["edit.txt"], got["edit.txt"], "edited file is replaced")
	assert.NotContains(t, got, "gone.txt")
}

func TestWatchState_RoundTripPerScope(t *testing.T) {
	path := filepath.Join(t.TempDir(), WatchStateFile)
	st := &watchState{}
	st.setOwned("user:1", map[string]watchedFile{"a.txt": {Refs: []string{"3"}, Size: 5, ModTime: 42}})
	st.setOwned("user:2", map[string]watchedFile{"a.txt": {Refs: []string{"9"}}})
	st.setOwned("user:1", map[string]watchedFile{"b.txt": {Refs: []string{"4", "6"}}})
	require.NoError(t, st.save(path))

	loaded, err := loadWatchState(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]watchedFile{
		"b.txt": {Scope: "user:1", Name: "b.txt", Refs: []string{"4", "6"}},
	}, loaded.owned("user:1"))
	assert.Equal(t, []string{"9"}, loaded.owned("user:2")["a.txt"].Refs)

	missing, err := loadWatchState(filepath.Join(t.TempDir(), WatchStateFile))
	require.NoError(t, err)
	assert.Empty(t, missing.owned("user:1"))
}

func TestNewDirWatcher_NotADirectory(t *testing.T) {
	path := writeFile(t, t.TempDir(), "file.txt", "x")

	_, err := newDirWatcher(nil, domain.DurableScope(1), path, 0, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a directory")
}

func TestIgnored(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"report.pdf", false},
		{".DS_Store", true},
		{"~$budget.xlsx", true},
		{"notes.txt~", true},
		{".notes.txt.swp", true},
		{"upload.tmp", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ignored(tt.name))
		})
	}
}
