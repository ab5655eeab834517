package domain

import "time"

// User is an account owning a durable scope.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// FileRecord references an uploaded file retained for a durable scope.
// The record store owns the schema; the core only reads these fields.
type FileRecord struct {
	ID          int64
	UserID      int64
	Filename    string
	StoragePath string
	CreatedAt   time.Time
}

// FileSource says where a listed file is retained.
type FileSource string

// File sources.
const (
	FileSourceDB      FileSource = "db"
	FileSourceSession FileSource = "session"
)

// FileInfo is a scope-agnostic view of a retained file.
type FileInfo struct {
	// Ref identifies the file for removal: the record id for durable
	// scopes, the file name for session scopes.
	Ref    string
	Name   string
	Source FileSource
}
