package driven

import (
	"context"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

// SessionState is everything an ephemeral session knows.
type SessionState struct {
	// Files are the uploaded blobs, in upload order.
	Files []domain.DocumentBlob

	// Index is the session's vector index, nil until files are processed.
	Index VectorIndex

	// History is the session's conversation.
	History domain.History
}

// SessionStore keeps session state in process memory.
type SessionStore interface {
	// Get returns the state for a session. Unknown sessions have empty state.
	Get(ctx context.Context, sessionID string) (SessionState, error)

	// Update applies fn to the session state under the session's lock.
	// The state is stored only if fn returns nil.
	Update(ctx context.Context, sessionID string, fn func(*SessionState) error) error

	// Delete drops all state for a session.
	Delete(ctx context.Context, sessionID string) error
}
