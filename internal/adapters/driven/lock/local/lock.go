// Package local provides an in-process named lock with expiry.
package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// Lock serialises writers within one process. Expiry mirrors the Redis
// backend so both behave the same when a holder never releases.
type Lock struct {
	mu      sync.Mutex
	held    map[string]time.Time
	nowFunc func() time.Time
}

// NewLock creates an empty lock table.
func NewLock() *Lock {
	return &Lock{
		held:    make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

// Acquire takes the named lock if it is free or expired.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	if exp, ok := l.held[name]; ok && now.Before(exp) {
		return false, nil
	}
	l.held[name] = now.Add(ttl)
	return true, nil
}

// Release frees the named lock.
func (l *Lock) Release(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	return nil
}

// Extend pushes out the expiry of a held lock.
func (l *Lock) Extend(_ context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	exp, ok := l.held[name]
	if !ok || !now.Before(exp) {
		return fmt.Errorf("lock %s not held", name)
	}
	l.held[name] = now.Add(ttl)
	return nil
}

// Ping always succeeds.
func (l *Lock) Ping(_ context.Context) error {
	return nil
}
