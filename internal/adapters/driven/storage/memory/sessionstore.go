package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

type session struct {
	mu    sync.Mutex
	state driven.SessionState
}

// SessionStore keeps per-session files, index and history in memory.
// Updates to one session are serialised; different sessions proceed in parallel.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
	}
}

func (s *SessionStore) lookup(id string, create bool) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok && create {
		sess = &session{}
		s.sessions[id] = sess
	}
	return sess
}

// Get returns a copy of the session state. Unknown sessions are empty.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (driven.SessionState, error) {
	if err := ctx.Err(); err != nil {
		return driven.SessionState{}, err
	}

	sess := s.lookup(sessionID, false)
	if sess == nil {
		return driven.SessionState{}, nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return copyState(sess.state), nil
}

// Update applies fn to a copy of the state and keeps the copy only if fn succeeds.
func (s *SessionStore) Update(ctx context.Context, sessionID string, fn func(*driven.SessionState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sess := s.lookup(sessionID, true)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	next := copyState(sess.state)
	if err := fn(&next); err != nil {
		return err
	}
	sess.state = next
	return nil
}

// Delete drops all state for a session.
func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// copyState copies the slices so callers cannot alias stored state.
// The index is shared; writers replace it rather than mutate it.
func copyState(st driven.SessionState) driven.SessionState {
	out := driven.SessionState{Index: st.Index}
	if st.Files != nil {
		out.Files = append(make([]domain.DocumentBlob, 0, len(st.Files)), st.Files...)
	}
	if st.History != nil {
		out.History = append(make(domain.History, 0, len(st.History)), st.History...)
	}
	return out
}
