package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

func TestProcessAskFilesHistory_Flow(t *testing.T) {
	setupTestServices(t)
	dir := t.TempDir()
	sky := writeFile(t, dir, "sky.txt", "The sky is blue.")
	grass := writeFile(t, dir, "grass.txt", "Grass is green.")

	out, err := execute(t, "", "--user", testUser, "process", sky, grass)
	require.NoError(t, err)
	assert.Contains(t, out, "sky.txt")
	assert.Contains(t, out, "Processed 2 file(s)")

	out, err = execute(t, "", "--user", testUser, "ask", "--sources", "What", "color", "is", "the", "sky?")
	require.NoError(t, err)
	assert.Contains(t, out, "From the documents:")
	assert.Contains(t, out, "Sources:")

	out, err = execute(t, "", "--user", testUser, "files")
	require.NoError(t, err)
	assert.Contains(t, out, "sky.txt")
	assert.Contains(t, out, "grass.txt")
	assert.Contains(t, out, "db")

	out, err = execute(t, "", "--user", testUser, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "Q: What color is the sky?")
	assert.Contains(t, out, "A: From the documents:")
}

func TestFilesRemove(t *testing.T) {
	setupTestServices(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "only.txt", "A lone file about volcanoes.")

	_, err := execute(t, "", "--user", testUser, "process", path)
	require.NoError(t, err)

	user, err := userService.Lookup(context.Background(), testUser)
	require.NoError(t, err)
	files, err := knowledgeService.ListFiles(context.Background(), domain.DurableScope(user.ID))
	require.NoError(t, err)
	require.Len(t, files, 1)

	out, err := execute(t, "", "--user", testUser, "files", "rm", files[0].Ref)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed only.txt. No files left")

	_, err = execute(t, "", "--user", testUser, "ask", "volcanoes?")
	assert.ErrorIs(t, err, domain.ErrNoKnowledge)
}

func TestProcess_Errors(t *testing.T) {
	setupTestServices(t)
	dir := t.TempDir()

	t.Run("no text", func(t *testing.T) {
		path := writeFile(t, dir, "blank.txt", "   \n\n")

		out, err := execute(t, "", "--user", testUser, "process", path)

		assert.ErrorIs(t, err, domain.ErrEmptyInput)
		assert.Contains(t, out, "blank.txt")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "", "--user", testUser, "process", dir+"/missing.txt")
		assert.Error(t, err)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := execute(t, "", "--user", testUser, "process", dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is a directory")
	})

	t.Run("no args", func(t *testing.T) {
		_, err := execute(t, "", "--user", testUser, "process")
		assert.Error(t, err)
	})
}

func TestProcess_Rebuild(t *testing.T) {
	setupTestServices(t)
	dir := t.TempDir()
	sky := writeFile(t, dir, "sky.txt", "The sky is blue.")
	grass := writeFile(t, dir, "grass.txt", "Grass is green.")

	t.Run("nothing stored", func(t *testing.T) {
		_, err := execute(t, "", "--user", testUser, "process", "--rebuild")
		assert.ErrorIs(t, err, domain.ErrNoKnowledge)
	})

	_, err := execute(t, "", "--user", testUser, "process", sky)
	require.NoError(t, err)

	t.Run("stored files only", func(t *testing.T) {
		out, err := execute(t, "", "--user", testUser, "process", "--rebuild")

		require.NoError(t, err)
		assert.Contains(t, out, "sky.txt")
		assert.Contains(t, out, "Rebuilt knowledge from 1 stored file(s): 1 entries")
		assert.NotContains(t, out, "Processed")
	})

	t.Run("then new files", func(t *testing.T) {
		out, err := execute(t, "", "--user", testUser, "process", "--rebuild", grass)

		require.NoError(t, err)
		assert.Contains(t, out, "Rebuilt knowledge from 1 stored file(s)")
		assert.Contains(t, out, "Processed 1 file(s)")
	})

	out, err := execute(t, "", "--user", testUser, "files")
	require.NoError(t, err)
	assert.Contains(t, out, "sky.txt")
	assert.Contains(t, out, "grass.txt")
}

func TestReadBlobs(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Report.PDF", "%PDF-fake")

	blobs, err := readBlobs([]string{path})

	require.NoError(t, err)
	require.Len(t, blobs, 1)
	assert.Equal(t, "Report.PDF", blobs[0].Name)
	assert.Equal(t, "pdf", blobs[0].Extension())
	assert.Equal(t, []byte("%PDF-fake"), blobs[0].Content)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 10))
	assert.Equal(t, "héllo...", snippet("héllo world", 5))
}
