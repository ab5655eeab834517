package driven

import (
	"context"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

// RecordStore holds users, their file records and their chat history.
// It owns the schema; the core only reads the fields it is given.
type RecordStore interface {
	// GetUser retrieves a user by username. Returns domain.ErrNotFound if missing.
	GetUser(ctx context.Context, username string) (*domain.User, error)

	// AddUser creates a user. Returns domain.ErrAlreadyExists on a duplicate username.
	AddUser(ctx context.Context, username, passwordHash string) (*domain.User, error)

	// GetUserIndexPath returns where the user's index is persisted.
	// The result is deterministic for a user id.
	GetUserIndexPath(userID int64) string

	// LoadChatHistory returns the user's messages, oldest first.
	LoadChatHistory(ctx context.Context, userID int64) ([]domain.Message, error)

	// SaveChatMessage appends both sides of a turn to the user's history.
	// The question and answer are written together under one turn id;
	// either both rows are stored or neither is.
	SaveChatMessage(ctx context.Context, userID int64, turn domain.Turn) error

	// GetUserFiles returns the user's file records, oldest first.
	GetUserFiles(ctx context.Context, userID int64) ([]domain.FileRecord, error)

	// GetUserFile returns one record. Returns domain.ErrNotFound if it does
	// not exist or belongs to another user.
	GetUserFile(ctx context.Context, userID, fileID int64) (*domain.FileRecord, error)

	// AddUserFileRecord records a retained file.
	AddUserFileRecord(ctx context.Context, userID int64, filename, storagePath string) (*domain.FileRecord, error)

	// DeleteUserFile removes a record. Returns domain.ErrNotFound if missing.
	DeleteUserFile(ctx context.Context, userID, fileID int64) error

	// Close releases resources.
	Close() error
}

// BlobStore retains uploaded file content for durable scopes.
type BlobStore interface {
	// Put stores content and returns its storage path.
	Put(ctx context.Context, userID int64, name string, content []byte) (string, error)

	// Get reads content previously stored. Returns domain.ErrNotFound if missing.
	Get(ctx context.Context, storagePath string) ([]byte, error)

	// Delete removes content. Deleting a missing blob is not an error.
	Delete(ctx context.Context, storagePath string) error
}

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Compare returns domain.ErrInvalidCredentials on mismatch.
	Compare(hash, password string) error
}
