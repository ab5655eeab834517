// Package blob retains uploaded file content on the local filesystem so a
// durable knowledge base can be rebuilt after a file is removed.
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.BlobStore = (*Store)(nil)

// Store writes blobs under <root>/files/user_<id>/<uuid>_<name>.
type Store struct {
	root string
}

// NewStore creates a blob store rooted at dataDir.
func NewStore(dataDir string) *Store {
	return &Store{root: filepath.Join(dataDir, "files")}
}

// Root returns the directory holding every user's blobs.
func (s *Store) Root() string {
	return s.root
}

// Put writes content atomically and returns its storage path.
func (s *Store) Put(ctx context.Context, userID int64, name string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	base := sanitise(name)
	if base == "" {
		return "", fmt.Errorf("%w: empty file name", domain.ErrInvalidInput)
	}

	dir := filepath.Join(s.root, "user_"+strconv.FormatInt(userID, 10))
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("creating blob directory: %w", err)
	}

	path := filepath.Join(dir, uuid.NewString()+"_"+base)

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp blob: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("syncing blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing blob: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("renaming blob: %w", err)
	}

	return path, nil
}

// Get reads a stored blob.
func (s *Store) Get(ctx context.Context, storagePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(storagePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", storagePath, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading blob: %w", err)
	}
	return data, nil
}

// Delete removes a stored blob. A missing blob is not an error.
func (s *Store) Delete(_ context.Context, storagePath string) error {
	err := os.Remove(storagePath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}

// sanitise keeps only the final path element and drops separators.
func sanitise(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
