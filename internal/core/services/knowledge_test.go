package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

func TestKnowledgeService_SkyAndGrass(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultChunking())
	scope := domain.DurableScope(1)

	result, err := env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{
		txt("colors.txt", "The sky is blue.\nGrass is green."),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Chunks)
	assert.Equal(t, 1, result.Entries)
	require.Len(t, result.Files, 1)
	assert.Equal(t, domain.ExtractOK, result.Files[0].Status)

	answer, err := env.knowledge.Ask(ctx, scope, "What color is the sky?")
	require.NoError(t, err)

	chunks := env.answerer.lastChunks()
	require.Len(t, chunks, 1)
	assert.Equal(t, "The sky is blue.\nGrass is green.", chunks[0].Content)
	assert.Contains(t, answer.Answer, "The sky is blue.")
	require.Len(t, answer.History, 1)
	assert.Equal(t, "What color is the sky?", answer.History[0].Question)
}

func TestKnowledgeService_ProcessFiles_TwoSequentialCalls(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, lineChunking())
	scope := domain.DurableScope(1)

	_, err := env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{txt("rivers.txt", "Rivers flow into the ocean")})
	require.NoError(t, err)
	result, err := env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{txt("peaks.txt", "Mountains have snowy peaks")})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Entries)

	snap, err := env.indexStore.Load(ctx, env.manager.IndexPath(scope))
	require.NoError(t, err)
	assert.Len(t, snap.Entries, 2)

	_, err = env.knowledge.Ask(ctx, scope, "rivers ocean")
	require.NoError(t, err)
	assert.Equal(t, "Rivers flow into the ocean", env.answerer.lastChunks()[0].Content)

	_, err = env.knowledge.Ask(ctx, scope, "mountains peaks")
	require.NoError(t, err)
	assert.Equal(t, "Mountains have snowy peaks", env.answerer.lastChunks()[0].Content)

	files, err := env.knowledge.ListFiles(ctx, scope)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "rivers.txt", files[0].Name)
	assert.Equal(t, domain.FileSourceDB, files[0].Source)
}

func TestKnowledgeService_ProcessFiles_NoText(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultChunking())
	scope := domain.DurableScope(1)

	result, err := env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{txt("blank.txt", "   \n\n")})

	assert.ErrorIs(t, err, domain.ErrEmptyInput)
	require.NotNil(t, result)
	assert.Len(t, result.Files, 1)
	files, err := env.knowledge.ListFiles(ctx, scope)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Zero(t, env.indexStore.Saves())
}

func TestKnowledgeService_ProcessFiles_NoFiles(t *testing.T) {
	env := newTestEnv(t, defaultChunking())

	_, err := env.knowledge.ProcessFiles(context.Background(), domain.DurableScope(1), nil)

	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestKnowledgeService_ProcessFiles_UnsupportedFileIsKept(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultChunking())
	scope := domain.DurableScope(1)

	result, err := env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{
		txt("notes.txt", "Bees make honey."),
		{Name: "photo.png", Content: []byte{0x89, 'P', 'N', 'G'}},
	})

	require.NoError(t, err)
	require.Len(t, result.Files, 2)
	assert.Equal(t, domain.ExtractUnsupported, result.Files[1].Status)
	files, err := env.knowledge.ListFiles(ctx, scope)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestKnowledgeService_ProcessFiles_IndexFailureLeavesNoRecords(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultChunking())
	env.index.embedder = failingEmbedder{env.embedder}
	scope := domain.DurableScope(1)

	_, err := env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{txt("a.txt", "alpha")})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	files, err := env.knowledge.ListFiles(ctx, scope)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestKnowledgeService_ProcessFiles_ConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultChunking())
	scope := domain.DurableScope(1)
	_, err := env.lock.Acquire(ctx, scope.Key(), time.Minute)
	require.NoError(t, err)

	_, err = env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{txt("a.txt", "alpha")})

	assert.ErrorIs(t, err, domain.ErrConcurrentWrite)
	files, err := env.knowledge.ListFiles(ctx, scope)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestKnowledgeService_RemoveFile_OnlyFile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultChunking())
	scope := domain.DurableScope(1)
	_, err := env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{txt("only.txt", "Lonely content")})
	require.NoError(t, err)
	files, err := env.knowledge.ListFiles(ctx, scope)
	require.NoError(t, err)
	require.Len(t, files, 1)

	result, err := env.knowledge.RemoveFile(ctx, scope, files[0].Ref)

	require.NoError(t, err)
	assert.Equal(t, "only.txt", result.Removed)
	assert.Zero(t, result.Remaining)
	assert.Zero(t, result.Entries)

	_, err = env.index.Load(ctx, env.manager.IndexPath(scope))
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
	ok, err := env.index.Exists(ctx, env.manager.IndexPath(scope))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = env.knowledge.Open(ctx, scope)
	assert.ErrorIs(t, err, domain.ErrNoKnowledge)
}

func TestKnowledgeService_RemoveFile_OneOfThree(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, lineChunking())
	scope := domain.DurableScope(1)
	for _, b := range []domain.DocumentBlob{
		txt("a.txt", "Apples grow on orchard trees"),
		txt("b.txt", "Bananas ripen in the tropics"),
		txt("c.txt", "Cherries are small and red"),
	} {
		_, err := env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{b})
		require.NoError(t, err)
	}
	files, err := env.knowledge.ListFiles(ctx, scope)
	require.NoError(t, err)
	require.Len(t, files, 3)

	result, err := env.knowledge.RemoveFile(ctx, scope, files[1].Ref)
	require.NoError(t, err)
	assert.Equal(t, "b.txt", result.Removed)
	assert.Equal(t, 2, result.Remaining)
	assert.Equal(t, 2, result.Entries)

	idx, err := env.manager.GetVectorstore(ctx, nil, scope, nil)
	require.NoError(t, err)
	got := contents(idx)
	assert.ElementsMatch(t, []string{"Apples grow on orchard trees", "Cherries are small and red"}, got)
	assert.NotContains(t, got, "Bananas ripen in the tropics")

	files, err = env.knowledge.ListFiles(ctx, scope)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestKnowledgeService_RemoveFile_KeepsDurableHistory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultChunking())
	scope := domain.DurableScope(1)
	_, err := env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{txt("a.txt", "alpha")})
	require.NoError(t, err)
	_, err = env.knowledge.Ask(ctx, scope, "alpha?")
	require.NoError(t, err)
	files, err := env.knowledge.ListFiles(ctx, scope)
	require.NoError(t, err)

	_, err = env.knowledge.RemoveFile(ctx, scope, files[0].Ref)
	require.NoError(t, err)

	history, err := env.knowledge.History(ctx, scope)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestKnowledgeService_RemoveFile_BadRefs(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultChunking())

	_, err := env.knowledge.RemoveFile(ctx, domain.DurableScope(1), "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.knowledge.RemoveFile(ctx, domain.DurableScope(1), "42")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.knowledge.RemoveFile(ctx, domain.SessionScope("s"), "missing.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestKnowledgeService_RemoveFile_OtherUsersFile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultChunking())
	_, err := env.knowledge.ProcessFiles(ctx, domain.DurableScope(1), []domain.DocumentBlob{txt("a.txt", "alpha")})
	require.NoError(t, err)
	files, err := env.knowledge.ListFiles(ctx, domain.DurableScope(1))
	require.NoError(t, err)

	_, err = env.knowledge.RemoveFile(ctx, domain.DurableScope(2), files[0].Ref)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestKnowledgeService_RemoveFile_RebuildFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, lineChunking())
	scope := domain.DurableScope(1)
	_, err := env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{
		txt("a.txt", "Apples grow on orchard trees"),
		txt("b.txt", "Bananas ripen in the tropics"),
	})
	require.NoError(t, err)
	files, err := env.knowledge.ListFiles(ctx, scope)
	require.NoError(t, err)

	env.index.embedder = failingEmbedder{env.embedder}
	_, err = env.knowledge.RemoveFile(ctx, scope, files[0].Ref)

	assert.ErrorIs(t, err, domain.ErrRebuildFailed)
	assert.Equal(t, "Failed to rebuild knowledge.", domain.UserMessage(err))
	after, err := env.knowledge.ListFiles(ctx, scope)
	require.NoError(t, err)
	assert.Len(t, after, 2)
	snap, err := env.indexStore.Load(ctx, env.manager.IndexPath(scope))
	require.NoError(t, err)
	assert.Len(t, snap.Entries, 2)
}

func TestKnowledgeService_Open_Durable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultChunking())
	scope := domain.DurableScope(1)
	_, err := env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{txt("a.txt", "alpha")})
	require.NoError(t, err)
	_, err = env.knowledge.Ask(ctx, scope, "first?")
	require.NoError(t, err)
	_, err = env.knowledge.Ask(ctx, scope, "second?")
	require.NoError(t, err)

	k, err := env.knowledge.Open(ctx, scope)

	require.NoError(t, err)
	assert.Equal(t, 1, k.Entries)
	assert.Len(t, k.Files, 1)
	require.Len(t, k.History, 2)
	assert.Equal(t, "first?", k.History[0].Question)
	assert.Equal(t, "second?", k.History[1].Question)

	msgs, err := env.records.LoadChatHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Equal(t, msgs[0].TurnID, msgs[1].TurnID)
}

func TestKnowledgeService_Ask_ConcurrentTurnsStayPaired(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultChunking())
	scope := domain.DurableScope(1)
	_, err := env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{txt("a.txt", "alpha")})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.knowledge.Ask(ctx, scope, "question "+strconv.Itoa(i))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	history, err := env.knowledge.History(ctx, scope)
	require.NoError(t, err)
	require.Len(t, history, 8)
	seen := make(map[string]bool)
	for _, turn := range history {
		seen[turn.Question] = true
		assert.Contains(t, turn.Answer, "alpha")
	}
	assert.Len(t, seen, 8)
}

func TestKnowledgeService_Open_Empty(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultChunking())

	_, err := env.knowledge.Open(ctx, domain.DurableScope(1))
	assert.ErrorIs(t, err, domain.ErrNoKnowledge)

	_, err = env.knowledge.Open(ctx, domain.SessionScope("s1"))
	assert.ErrorIs(t, err, domain.ErrNoKnowledge)

	_, err = env.knowledge.Ask(ctx, domain.DurableScope(1), "anyone?")
	assert.ErrorIs(t, err, domain.ErrNoKnowledge)
}

func TestKnowledgeService_Ask_FailureKeepsHistory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultChunking())
	durable := domain.DurableScope(1)
	session := domain.SessionScope("s1")
	for _, scope := range []domain.Scope{durable, session} {
		_, err := env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{txt("a.txt", "alpha")})
		require.NoError(t, err)
		_, err = env.knowledge.Ask(ctx, scope, "works?")
		require.NoError(t, err)
	}

	env.answerer.err = errors.New("model overloaded")
	for _, scope := range []domain.Scope{durable, session} {
		_, err := env.knowledge.Ask(ctx, scope, "fails?")
		assert.ErrorIs(t, err, domain.ErrAnswerFailed)

		history, err := env.knowledge.History(ctx, scope)
		require.NoError(t, err)
		assert.Len(t, history, 1, "scope %s", scope)
	}
}

func TestKnowledgeService_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, lineChunking())
	scope := domain.SessionScope("s1")

	_, err := env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{txt("a.txt", "Apples grow on orchard trees")})
	require.NoError(t, err)
	result, err := env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{txt("b.txt", "Bananas ripen in the tropics")})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Entries)
	assert.Zero(t, env.indexStore.Saves(), "sessions never persist")

	files, err := env.knowledge.ListFiles(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, []domain.FileInfo{
		{Ref: "a.txt", Name: "a.txt", Source: domain.FileSourceSession},
		{Ref: "b.txt", Name: "b.txt", Source: domain.FileSourceSession},
	}, files)

	ask, err := env.knowledge.Ask(ctx, scope, "bananas tropics")
	require.NoError(t, err)
	assert.Equal(t, "Bananas ripen in the tropics", ask.Sources[0].Content)

	removed, err := env.knowledge.RemoveFile(ctx, scope, "b.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, removed.Remaining)
	assert.Equal(t, 1, removed.Entries)
	k, err := env.knowledge.Open(ctx, scope)
	require.NoError(t, err)
	assert.Len(t, k.History, 1, "history survives while files remain")

	removed, err = env.knowledge.RemoveFile(ctx, scope, "a.txt")
	require.NoError(t, err)
	assert.Zero(t, removed.Remaining)
	_, err = env.knowledge.Open(ctx, scope)
	assert.ErrorIs(t, err, domain.ErrNoKnowledge)
	history, err := env.knowledge.History(ctx, scope)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestKnowledgeService_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultChunking())

	_, err := env.knowledge.ProcessFiles(ctx, domain.SessionScope("s1"), []domain.DocumentBlob{txt("a.txt", "alpha")})
	require.NoError(t, err)

	_, err = env.knowledge.Open(ctx, domain.SessionScope("s2"))
	assert.ErrorIs(t, err, domain.ErrNoKnowledge)
	_, err = env.knowledge.Open(ctx, domain.DurableScope(1))
	assert.ErrorIs(t, err, domain.ErrNoKnowledge)
}

func TestKnowledgeService_ResetSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultChunking())
	scope := domain.SessionScope("s1")
	_, err := env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{txt("a.txt", "alpha")})
	require.NoError(t, err)

	require.NoError(t, env.knowledge.ResetSession(ctx, "s1"))

	_, err = env.knowledge.Open(ctx, scope)
	assert.ErrorIs(t, err, domain.ErrNoKnowledge)
	assert.Zero(t, env.sessions.Len())
}

func TestKnowledgeService_InvalidScope(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultChunking())

	_, err := env.knowledge.ProcessFiles(ctx, domain.DurableScope(0), []domain.DocumentBlob{txt("a.txt", "alpha")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.knowledge.Ask(ctx, domain.SessionScope(""), "q")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestKnowledgeService_ListFiles_RefsAreRecordIDs(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, defaultChunking())
	scope := domain.DurableScope(1)
	_, err := env.knowledge.ProcessFiles(ctx, scope, []domain.DocumentBlob{txt("a.txt", "alpha")})
	require.NoError(t, err)

	files, err := env.knowledge.ListFiles(ctx, scope)
	require.NoError(t, err)
	require.Len(t, files, 1)

	id, err := strconv.ParseInt(files[0].Ref, 10, 64)
	require.NoError(t, err)
	rec, err := env.records.GetUserFile(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", rec.Filename)

	content, err := env.blobs.Get(ctx, rec.StoragePath)
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(content))
}
