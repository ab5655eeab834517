package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragify/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RecordStore = (*Store)(nil)

// DBFile is the database file name inside the data directory.
const DBFile = "ragify.db"

// Store is the SQLite-based record store.
type Store struct {
	db      *sql.DB
	path    string
	dataDir string
}

// DefaultDataDir returns ~/.ragify/data.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".ragify", "data"), nil
}

// NewStore opens (creating if needed) the store in dataDir.
// If dataDir is empty, defaults to ~/.ragify/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		dataDir = dir
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFile)

	// WAL lets the CLI and a running MCP server share the file.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:      db,
		path:    dbPath,
		dataDir: dataDir,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DataDir returns the directory holding the database and user indexes.
func (s *Store) DataDir() string {
	return s.dataDir
}

// migrate runs all pending up migrations, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Users ====================

// GetUser retrieves a user by username.
func (s *Store) GetUser(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users WHERE username = ?
	`, username)

	var user domain.User
	var createdAt sql.NullTime
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	if createdAt.Valid {
		user.CreatedAt = createdAt.Time
	}

	return &user, nil
}

// AddUser creates a user. Usernames are unique.
func (s *Store) AddUser(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(username) DO NOTHING
	`, username, passwordHash, now)
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("user %q: %w", username, domain.ErrAlreadyExists)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading user id: %w", err)
	}

	return &domain.User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}, nil
}

// GetUserIndexPath returns <dataDir>/indexes/user_<id>.
func (s *Store) GetUserIndexPath(userID int64) string {
	return filepath.Join(s.dataDir, "indexes", "user_"+strconv.FormatInt(userID, 10))
}

// ==================== Chat History ====================

// LoadChatHistory returns the user's messages in insertion order.
func (s *Store) LoadChatHistory(ctx context.Context, userID int64) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at, turn_id
		FROM chat_messages WHERE user_id = ?
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying chat messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message //nolint:prealloc // size unknown from query
	for rows.Next() {
		var msg domain.Message
		var role string
		var createdAt sql.NullTime
		if err := rows.Scan(&role, &msg.Content, &createdAt, &msg.TurnID); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		msg.Role = domain.Role(role)
		if createdAt.Valid {
			msg.At = createdAt.Time
		}
		msgs = append(msgs, msg)
	}

	return msgs, rows.Err()
}

// SaveChatMessage stores the question and answer of a turn in one
// transaction. Both rows carry the question row's id as their turn id.
func (s *Store) SaveChatMessage(ctx context.Context, userID int64, turn domain.Turn) error {
	at := turn.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving chat turn: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
		INSERT INTO chat_messages (user_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
	`, userID, string(domain.RoleUser), turn.Question, at)
	if err != nil {
		return fmt.Errorf("saving question: %w", err)
	}
	turnID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading question id: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE chat_messages SET turn_id = ? WHERE id = ?`, turnID, turnID,
	); err != nil {
		return fmt.Errorf("tagging question: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_messages (user_id, role, content, created_at, turn_id)
		VALUES (?, ?, ?, ?, ?)
	`, userID, string(domain.RoleAssistant), turn.Answer, at, turnID); err != nil {
		return fmt.Errorf("saving answer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving chat turn: %w", err)
	}
	return nil
}

// ==================== Files ====================

// GetUserFiles returns the user's file records, oldest first.
func (s *Store) GetUserFiles(ctx context.Context, userID int64) ([]domain.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, filename, storage_path, created_at
		FROM user_files WHERE user_id = ?
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user files: %w", err)
	}
	defer rows.Close()

	var files []domain.FileRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanFileRecord(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *rec)
	}

	return files, rows.Err()
}

// GetUserFile returns one of the user's file records.
func (s *Store) GetUserFile(ctx context.Context, userID, fileID int64) (*domain.FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, filename, storage_path, created_at
		FROM user_files WHERE id = ? AND user_id = ?
	`, fileID, userID)

	rec, err := scanFileRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

// AddUserFileRecord records a retained file.
func (s *Store) AddUserFileRecord(
	ctx context.Context,
	userID int64,
	filename, storagePath string,
) (*domain.FileRecord, error) {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO user_files (user_id, filename, storage_path, created_at)
		VALUES (?, ?, ?, ?)
	`, userID, filename, storagePath, now)
	if err != nil {
		return nil, fmt.Errorf("inserting file record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading file record id: %w", err)
	}

	return &domain.FileRecord{
		ID:          id,
		UserID:      userID,
		Filename:    filename,
		StoragePath: storagePath,
		CreatedAt:   now,
	}, nil
}

// DeleteUserFile removes one of the user's file records.
func (s *Store) DeleteUserFile(ctx context.Context, userID, fileID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM user_files WHERE id = ? AND user_id = ?", fileID, userID)
	if err != nil {
		return fmt.Errorf("deleting file record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting file record: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFileRecord(row scanner) (*domain.FileRecord, error) {
	var rec domain.FileRecord
	var createdAt sql.NullTime
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Filename, &rec.StoragePath, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning file record: %w", err)
	}
	if createdAt.Valid {
		rec.CreatedAt = createdAt.Time
	}
	return &rec, nil
}
