package driven

import (
	"context"
	"time"
)

// DistributedLock provides named locks with expiry.
// Index writes for one user take the lock named by the user's scope key.
type DistributedLock interface {
	// Acquire tries to take the lock once. Returns false if another owner holds it.
	// The lock expires after ttl so a crashed writer cannot hold it forever.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives up the lock. Safe to call when not held.
	Release(ctx context.Context, name string) error

	// Extend pushes out the expiry of a lock this owner holds.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks the lock backend is healthy.
	Ping(ctx context.Context) error
}
