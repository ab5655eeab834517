package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-labs/ragify/internal/adapters/driven/auth"
	"github.com/custodia-labs/ragify/internal/adapters/driven/embedding/local"
	locallock "github.com/custodia-labs/ragify/internal/adapters/driven/lock/local"
	"github.com/custodia-labs/ragify/internal/adapters/driven/storage/blob"
	"github.com/custodia-labs/ragify/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragify/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driving"
	"github.com/custodia-labs/ragify/internal/core/services"
	"github.com/custodia-labs/ragify/internal/extractors"
	"github.com/custodia-labs/ragify/internal/postprocessors"
)

const (
	testUser     = "alice"
	testPassword = "s3cret"
)

// echoAnswerer answers with the best matching chunk.
type echoAnswerer struct{}

func (echoAnswerer) Answer(
	_ context.Context, _ string, _ domain.History, chunks []domain.RetrievedChunk,
) (string, error) {
	if len(chunks) == 0 {
		return "I don't know.", nil
	}
	return "From the documents: " + chunks[0].Content, nil
}

// stubKnowledge satisfies the port for tests that never call it.
type stubKnowledge struct {
	driving.KnowledgeService
}

type testServices struct {
	sessions *memory.SessionStore
	settings *services.SettingsService
}

// setupTestServices wires real services over in-memory stores, registers
// testUser and supplies its password through the environment.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()
	ctx := context.Background()

	embedder, err := local.NewEmbeddingService("hash-256")
	require.NoError(t, err)
	chunker, err := postprocessors.FromSettings(domain.DefaultAppSettings().Chunker)
	require.NoError(t, err)

	dir := t.TempDir()
	records := memory.NewRecordStore(dir)
	sessions := memory.NewSessionStore()
	index := services.NewIndexService(embedder, memory.NewIndexStore(), flat.Factory)
	manager := services.NewKnowledgeManager(index, records, locallock.NewLock())
	knowledge := services.NewKnowledgeService(
		extractors.DefaultRegistry(),
		chunker,
		manager,
		services.NewConversationService(index, echoAnswerer{}, services.DefaultTopK),
		records,
		blob.NewStore(dir),
		sessions,
	)
	users := services.NewUserService(records, auth.NewHasherWithCost(bcrypt.MinCost))
	settings := services.NewSettingsService(memory.NewConfigStore(), nil)

	_, err = users.Register(ctx, testUser, testPassword)
	require.NoError(t, err)
	t.Setenv(PasswordEnv, testPassword)

	SetServices(&Services{Knowledge: knowledge, Users: users, Settings: settings})
	t.Cleanup(func() {
		SetServices(nil)
		resetFlags()
	})
	return &testServices{sessions: sessions, settings: settings}
}

func resetFlags() {
	verboseFlag = false
	dataDirFlag = ""
	userFlag = ""
	askShowSources = false
	processRebuild = false
	watchScan = true
	watchDebounce = DefaultWatchDebounce
}

// execute runs the root command with args and stdin, returning everything written.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags()
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// syncBuffer is safe for the concurrent writes of a running watcher.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
