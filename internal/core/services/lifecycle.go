package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
	"github.com/custodia-labs/ragify/internal/logger"
)

var lifecycleLog = logger.With("lifecycle")

// KnowledgeManager decides, per scope, whether an index is built, merged,
// loaded or left alone, and serialises durable writes with a named lock.
type KnowledgeManager struct {
	index   *IndexService
	records driven.RecordStore
	lock    driven.DistributedLock

	lockTTL  time.Duration
	lockWait time.Duration
	lockPoll time.Duration
}

// ManagerOption configures a KnowledgeManager.
type ManagerOption func(*KnowledgeManager)

// WithLockTiming sets how long a held lock lives without renewal and how
// long a writer waits for a busy lock before giving up.
func WithLockTiming(ttl, wait time.Duration) ManagerOption {
	return func(m *KnowledgeManager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
		if wait >= 0 {
			m.lockWait = wait
		}
	}
}

// NewKnowledgeManager creates a manager. The lock may be nil, in which case
// durable writes are not serialised.
func NewKnowledgeManager(
	index *IndexService,
	records driven.RecordStore,
	lock driven.DistributedLock,
	opts ...ManagerOption,
) *KnowledgeManager {
	defaults := domain.DefaultAppSettings().Lock
	m := &KnowledgeManager{
		index:    index,
		records:  records,
		lock:     lock,
		lockTTL:  defaults.TTL,
		lockWait: defaults.Wait,
		lockPoll: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Index returns the underlying index service.
func (m *KnowledgeManager) Index() *IndexService {
	return m.index
}

// IndexPath returns where a durable scope persists its index.
// Session scopes have no path.
func (m *KnowledgeManager) IndexPath(scope domain.Scope) string {
	if !scope.IsDurable() {
		return ""
	}
	return m.records.GetUserIndexPath(scope.UserID())
}

// GetVectorstore returns the index a scope should use after adding chunks.
//
//   - chunks, durable, persisted index: load it, merge, persist
//   - chunks, no persisted index: build, persist if durable
//   - chunks, session with an in-memory index: merge into a copy
//   - no chunks, durable, persisted index: load it
//   - no chunks, session with an in-memory index: return it unchanged
//   - otherwise: nil, nil
//
// Nothing is persisted unless every earlier step succeeded.
func (m *KnowledgeManager) GetVectorstore(
	ctx context.Context, chunks []domain.Chunk, scope domain.Scope, existing driven.VectorIndex,
) (driven.VectorIndex, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	persisted := false
	path := m.IndexPath(scope)
	if scope.IsDurable() {
		ok, err := m.index.Exists(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("check index for %s: %w", scope, err)
		}
		persisted = ok
	}

	switch {
	case len(chunks) > 0 && persisted:
		lifecycleLog.Debug("%s: merging %d chunks into persisted index", scope, len(chunks))
		current, err := m.index.Load(ctx, path)
		if err != nil {
			return nil, err
		}
		merged, err := m.index.Merge(ctx, current, chunks)
		if err != nil {
			return nil, err
		}
		if err := m.index.Persist(ctx, merged, path); err != nil {
			return nil, err
		}
		return merged, nil

	case len(chunks) > 0 && !scope.IsDurable() && existing != nil:
		lifecycleLog.Debug("%s: merging %d chunks into session index", scope, len(chunks))
		return m.index.Merge(ctx, existing, chunks)

	case len(chunks) > 0:
		lifecycleLog.Debug("%s: building index from %d chunks", scope, len(chunks))
		built, err := m.index.Build(ctx, chunks)
		if err != nil {
			return nil, err
		}
		if scope.IsDurable() {
			if err := m.index.Persist(ctx, built, path); err != nil {
				return nil, err
			}
		}
		return built, nil

	case persisted:
		return m.index.Load(ctx, path)

	case !scope.IsDurable() && existing != nil:
		return existing, nil
	}

	return nil, nil
}

// Rebuild replaces a scope's index with one built from chunks alone.
// No chunks destroys the index instead. The previous index is left intact
// if building or persisting fails.
func (m *KnowledgeManager) Rebuild(
	ctx context.Context, scope domain.Scope, chunks []domain.Chunk,
) (driven.VectorIndex, error) {
	if len(chunks) == 0 {
		return nil, m.Destroy(ctx, scope)
	}
	built, err := m.index.Build(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRebuildFailed, err)
	}
	if scope.IsDurable() {
		if err := m.index.Persist(ctx, built, m.IndexPath(scope)); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrRebuildFailed, err)
		}
	}
	lifecycleLog.Debug("%s: rebuilt index with %d entries", scope, built.Len())
	return built, nil
}

// Destroy deletes a durable scope's persisted index. Session indexes live
// only in the session store, so there is nothing to delete here.
func (m *KnowledgeManager) Destroy(ctx context.Context, scope domain.Scope) error {
	if !scope.IsDurable() {
		return nil
	}
	return m.index.Destroy(ctx, m.IndexPath(scope))
}

// Load returns a durable scope's persisted index, or nil if there is none.
func (m *KnowledgeManager) Load(ctx context.Context, scope domain.Scope) (driven.VectorIndex, error) {
	return m.GetVectorstore(ctx, nil, scope, nil)
}

// WithLock runs fn while holding the scope's write lock. Session scopes
// run fn directly. Returns domain.ErrConcurrentWrite if the lock stays
// busy for longer than the configured wait.
func (m *KnowledgeManager) WithLock(ctx context.Context, scope domain.Scope, fn func(context.Context) error) error {
	if m.lock == nil || !scope.IsDurable() {
		return fn(ctx)
	}
	name := scope.Key()

	if err := m.acquire(ctx, name); err != nil {
		return err
	}
	defer func() {
		if err := m.lock.Release(context.WithoutCancel(ctx), name); err != nil {
			lifecycleLog.Warn("release lock %s: %v", name, err)
		}
	}()

	stop := make(chan struct{})
	done := make(chan struct{})
	go m.keepAlive(ctx, name, stop, done)
	defer func() {
		close(stop)
		<-done
	}()

	return fn(ctx)
}

func (m *KnowledgeManager) acquire(ctx context.Context, name string) error {
	deadline := time.Now().Add(m.lockWait)
	for {
		ok, err := m.lock.Acquire(ctx, name, m.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire lock %s: %w", name, err)
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %s is being updated", domain.ErrConcurrentWrite, name)
		}

		timer := time.NewTimer(min(m.lockPoll, time.Until(deadline)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// keepAlive extends the lock until stop is closed, so long rebuilds are
// not overtaken by another writer.
func (m *KnowledgeManager) keepAlive(ctx context.Context, name string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(max(m.lockTTL/3, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.lock.Extend(ctx, name, m.lockTTL); err != nil {
				lifecycleLog.Warn("extend lock %s: %v", name, err)
			}
		}
	}
}
