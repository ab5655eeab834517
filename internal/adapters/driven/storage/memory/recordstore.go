package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// RecordStore is an in-memory implementation of driven.RecordStore.
type RecordStore struct {
	mu       sync.RWMutex
	dataDir  string
	nextID   int64
	users    map[string]domain.User
	files    []domain.FileRecord
	messages map[int64][]domain.Message
}

// NewRecordStore creates an empty record store. Index paths are derived
// from dataDir exactly as the SQLite store derives them.
func NewRecordStore(dataDir string) *RecordStore {
	return &RecordStore{
		dataDir:  dataDir,
		users:    make(map[string]domain.User),
		messages: make(map[int64][]domain.Message),
	}
}

func (s *RecordStore) id() int64 {
	s.nextID++
	return s.nextID
}

// GetUser retrieves a user by username.
func (s *RecordStore) GetUser(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &user, nil
}

// AddUser creates a user.
func (s *RecordStore) AddUser(_ context.Context, username, passwordHash string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; exists {
		return nil, fmt.Errorf("user %q: %w", username, domain.ErrAlreadyExists)
	}
	user := domain.User{
		ID:           s.id(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[username] = user
	return &user, nil
}

// GetUserIndexPath returns <dataDir>/indexes/user_<id>.
func (s *RecordStore) GetUserIndexPath(userID int64) string {
	return filepath.Join(s.dataDir, "indexes", "user_"+strconv.FormatInt(userID, 10))
}

// LoadChatHistory returns a copy of the user's messages.
func (s *RecordStore) LoadChatHistory(_ context.Context, userID int64) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Message(nil), s.messages[userID]...), nil
}

// SaveChatMessage appends the question and answer of a turn under a
// shared turn id.
func (s *RecordStore) SaveChatMessage(_ context.Context, userID int64, turn domain.Turn) error {
	at := turn.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	turnID := s.id()
	s.messages[userID] = append(s.messages[userID],
		domain.Message{Role: domain.RoleUser, Content: turn.Question, At: at, TurnID: turnID},
		domain.Message{Role: domain.RoleAssistant, Content: turn.Answer, At: at, TurnID: turnID},
	)
	return nil
}

// GetUserFiles returns the user's file records, oldest first.
func (s *RecordStore) GetUserFiles(_ context.Context, userID int64) ([]domain.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.FileRecord
	for _, f := range s.files {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

// GetUserFile returns one of the user's file records.
func (s *RecordStore) GetUserFile(_ context.Context, userID, fileID int64) (*domain.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.files {
		if f.ID == fileID && f.UserID == userID {
			return &f, nil
		}
	}
	return nil, domain.ErrNotFound
}

// AddUserFileRecord records a retained file.
func (s *RecordStore) AddUserFileRecord(
	_ context.Context,
	userID int64,
	filename, storagePath string,
) (*domain.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := domain.FileRecord{
		ID:          s.id(),
		UserID:      userID,
		Filename:    filename,
		StoragePath: storagePath,
		CreatedAt:   time.Now().UTC(),
	}
	s.files = append(s.files, rec)
	return &rec, nil
}

// DeleteUserFile removes one of the user's file records.
func (s *RecordStore) DeleteUserFile(_ context.Context, userID, fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.files {
		if f.ID == fileID && f.UserID == userID {
			s.files = append(s.files[:i], s.files[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// Close is a no-op.
func (s *RecordStore) Close() error {
	return nil
}
