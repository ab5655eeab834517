package domain

import (
	"fmt"
	"strconv"
)

// ScopeKind distinguishes durable per-user knowledge from ephemeral session knowledge.
type ScopeKind string

// Scope kinds.
const (
	// ScopeDurable persists the index on disk and mirrors history to the record store.
	ScopeDurable ScopeKind = "durable"

	// ScopeSession keeps the index and history in process memory only.
	ScopeSession ScopeKind = "session"
)

// Scope is the identity boundary under which one knowledge base and one
// conversation history exist. A scope is fixed at creation; moving knowledge
// to another scope means building a new index there.
type Scope struct {
	kind      ScopeKind
	userID    int64
	sessionID string
}

// DurableScope returns the durable scope for a user.
func DurableScope(userID int64) Scope {
	return Scope{kind: ScopeDurable, userID: userID}
}

// SessionScope returns the ephemeral scope for an interactive session.
func SessionScope(sessionID string) Scope {
	return Scope{kind: ScopeSession, sessionID: sessionID}
}

// Kind returns the scope kind.
func (s Scope) Kind() ScopeKind {
	return s.kind
}

// IsDurable returns true for per-user scopes.
func (s Scope) IsDurable() bool {
	return s.kind == ScopeDurable
}

// UserID returns the owning user for durable scopes, zero otherwise.
func (s Scope) UserID() int64 {
	return s.userID
}

// SessionID returns the session identifier for session scopes.
func (s Scope) SessionID() string {
	return s.sessionID
}

// Key returns a stable string identifying the scope, used for lock names.
func (s Scope) Key() string {
	if s.kind == ScopeDurable {
		return "user:" + strconv.FormatInt(s.userID, 10)
	}
	return "session:" + s.sessionID
}

// Validate checks the scope was built by one of the constructors.
func (s Scope) Validate() error {
	switch s.kind {
	case ScopeDurable:
		if s.userID <= 0 {
			return fmt.Errorf("%w: durable scope needs a user id", ErrInvalidInput)
		}
	case ScopeSession:
		if s.sessionID == "" {
			return fmt.Errorf("%w: session scope needs a session id", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown scope", ErrInvalidInput)
	}
	return nil
}

// String returns a human-readable description.
func (s Scope) String() string {
	return s.Key()
}
