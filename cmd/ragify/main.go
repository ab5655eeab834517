// Command ragify builds knowledge from documents and answers questions from it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/ragify/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragify/internal/adapters/driven/auth"
	"github.com/custodia-labs/ragify/internal/adapters/driven/config/file"
	locallock "github.com/custodia-labs/ragify/internal/adapters/driven/lock/local"
	redislock "github.com/custodia-labs/ragify/internal/adapters/driven/lock/redis"
	"github.com/custodia-labs/ragify/internal/adapters/driven/storage/blob"
	"github.com/custodia-labs/ragify/internal/adapters/driven/storage/indexfile"
	"github.com/custodia-labs/ragify/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragify/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragify/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/ragify/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
	"github.com/custodia-labs/ragify/internal/core/services"
	"github.com/custodia-labs/ragify/internal/extractors"
	"github.com/custodia-labs/ragify/internal/logger"
	"github.com/custodia-labs/ragify/internal/postprocessors"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetBuilder(build)
	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// build wires stores, providers and services. A provider that cannot be
// created leaves knowledge unavailable but keeps settings and users usable,
// so the configuration can be fixed from the CLI.
func build(_ context.Context, dataDir string) (*cli.Services, error) {
	configDir, err := file.DefaultDir()
	if err != nil {
		return nil, fmt.Errorf("locating config directory: %w", err)
	}
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	if dataDir == "" {
		dataDir = filepath.Join(configDir, "data")
	}
	records, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening records: %w", err)
	}
	logger.Debug("data directory %s", dataDir)

	svc := &cli.Services{
		Users:    services.NewUserService(records, auth.NewHasher()),
		Settings: settingsService,
		Close:    records.Close,
	}

	knowledge, closeKnowledge, err := buildKnowledge(settingsService, settings, configDir, dataDir, records)
	if err != nil {
		logger.Warn("%v", err)
		svc.Unavailable = err
		return svc, nil
	}
	svc.Knowledge = knowledge
	svc.Close = func() error {
		return errors.Join(closeKnowledge(), records.Close())
	}
	return svc, nil
}

func buildKnowledge(
	settingsService *services.SettingsService,
	settings *domain.AppSettings,
	configDir, dataDir string,
	records driven.RecordStore,
) (*services.KnowledgeService, func() error, error) {
	if err := settingsService.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w; fix with 'ragify settings'", err)
	}

	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		return nil, nil, err
	}
	aiServices, err := ai.NewServices(settings, prompts)
	if err != nil {
		return nil, nil, err
	}

	chunker, err := postprocessors.FromSettings(settings.Chunker)
	if err != nil {
		aiServices.Close()
		return nil, nil, err
	}

	var (
		lock      driven.DistributedLock
		closeLock = func() error { return nil }
	)
	switch settings.Lock.Backend {
	case domain.LockBackendRedis:
		redis := redislock.Dial(settings.Lock.RedisAddr)
		lock, closeLock = redis, redis.Close
		logger.Debug("using redis lock at %s", settings.Lock.RedisAddr)
	default:
		lock = locallock.NewLock()
	}

	index := services.NewIndexService(aiServices.Embedding, indexfile.New(), flat.Factory)
	manager := services.NewKnowledgeManager(index, records, lock,
		services.WithLockTiming(settings.Lock.TTL, settings.Lock.Wait))
	conversation := services.NewConversationService(index, aiServices.Answerer, settings.Retrieval.TopK)

	knowledge := services.NewKnowledgeService(
		extractors.DefaultRegistry(),
		chunker,
		manager,
		conversation,
		records,
		blob.NewStore(dataDir),
		memory.NewSessionStore(),
	)

	closeAll := func() error {
		aiServices.Close()
		return closeLock()
	}
	return knowledge, closeAll, nil
}
