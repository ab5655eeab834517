package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragify/internal/adapters/driven/embedding/local"
	locallock "github.com/custodia-labs/ragify/internal/adapters/driven/lock/local"
	"github.com/custodia-labs/ragify/internal/adapters/driven/storage/blob"
	"github.com/custodia-labs/ragify/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragify/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
	"github.com/custodia-labs/ragify/internal/extractors"
	"github.com/custodia-labs/ragify/internal/postprocessors"
)

// --- Mock implementations ---

// fakeAnswerer echoes the first retrieved chunk and records its inputs.
type fakeAnswerer struct {
	mu        sync.Mutex
	err       error
	questions []string
	histories []domain.History
	chunks    [][]domain.RetrievedChunk
}

func (f *fakeAnswerer) Answer(
	_ context.Context, question string, history domain.History, chunks []domain.RetrievedChunk,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, question)
	f.histories = append(f.histories, history)
	f.chunks = append(f.chunks, chunks)
	if f.err != nil {
		return "", f.err
	}
	if len(chunks) == 0 {
		return "I don't know.", nil
	}
	return "From the documents: " + chunks[0].Content, nil
}

func (f *fakeAnswerer) lastChunks() []domain.RetrievedChunk {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.chunks) == 0 {
		return nil
	}
	return f.chunks[len(f.chunks)-1]
}

// failingEmbedder fails every call.
type failingEmbedder struct {
	*local.EmbeddingService
}

func (f failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("connection refused")
}

func (f failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("connection refused")
}

// recordRejecter fails to record files with one name.
type recordRejecter struct {
	*memory.RecordStore
	name string
}

func (r recordRejecter) AddUserFileRecord(
	ctx context.Context, userID int64, filename, storagePath string,
) (*domain.FileRecord, error) {
	if filename == r.name {
		return nil, errors.New("disk I/O error")
	}
	return r.RecordStore.AddUserFileRecord(ctx, userID, filename, storagePath)
}

// --- Test environment ---

type testEnv struct {
	embedder   *local.EmbeddingService
	indexStore *memory.IndexStore
	records    *memory.RecordStore
	blobs      *blob.Store
	sessions   *memory.SessionStore
	lock       *locallock.Lock
	answerer   *fakeAnswerer

	index        *IndexService
	manager      *KnowledgeManager
	conversation *ConversationService
	knowledge    *KnowledgeService
}

func newTestEnv(t *testing.T, chunking domain.ChunkerSettings) *testEnv {
	t.Helper()

	embedder, err := local.NewEmbeddingService("hash-256")
	require.NoError(t, err)
	chunker, err := postprocessors.FromSettings(chunking)
	require.NoError(t, err)

	dir := t.TempDir()
	env := &testEnv{
		embedder:   embedder,
		indexStore: memory.NewIndexStore(),
		records:    memory.NewRecordStore(dir),
		blobs:      blob.NewStore(dir),
		sessions:   memory.NewSessionStore(),
		lock:       locallock.NewLock(),
		answerer:   &fakeAnswerer{},
	}
	env.index = NewIndexService(embedder, env.indexStore, flat.Factory)
	env.manager = NewKnowledgeManager(env.index, env.records, env.lock,
		WithLockTiming(time.Minute, 100*time.Millisecond))
	env.conversation = NewConversationService(env.index, env.answerer, DefaultTopK)
	env.knowledge = NewKnowledgeService(
		extractors.DefaultRegistry(),
		chunker,
		env.manager,
		env.conversation,
		env.records,
		env.blobs,
		env.sessions,
	)
	return env
}

func defaultChunking() domain.ChunkerSettings {
	return domain.DefaultAppSettings().Chunker
}

// lineChunking puts each line of 16 to 30 characters in its own chunk.
func lineChunking() domain.ChunkerSettings {
	return domain.ChunkerSettings{Size: 30, Overlap: 0}
}

func txt(name, content string) domain.DocumentBlob {
	return domain.DocumentBlob{Name: name, Content: []byte(content)}
}

func chunksOf(texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, c := range texts {
		chunks[i] = domain.Chunk{Content: c, Position: i}
	}
	return chunks
}

func contents(idx driven.VectorIndex) []string {
	if idx == nil {
		return nil
	}
	var out []string
	for _, e := range idx.Entries() {
		out = append(out, e.Content)
	}
	return out
}
