package indexfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
	"github.com/custodia-labs/ragify/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

const (
	defaultRetries    = 5
	defaultRetryDelay = 20 * time.Millisecond
)

var log = logger.With("indexfile")

// Store reads and writes indexes on the local filesystem.
type Store struct {
	retries    int
	retryDelay time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithRetry sets how often Load retries after seeing a half-finished save.
func WithRetry(retries int, delay time.Duration) Option {
	return func(s *Store) {
		if retries >= 0 {
			s.retries = retries
		}
		if delay > 0 {
			s.retryDelay = delay
		}
	}
}

// New creates a filesystem index store.
func New(opts ...Option) *Store {
	s := &Store{
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads both artifacts under dir.
func (s *Store) Load(ctx context.Context, dir string) (*driven.IndexSnapshot, error) {
	for attempt := 0; ; attempt++ {
		snap, err := s.load(dir)
		if !errors.Is(err, errGenerationMismatch) || attempt >= s.retries {
			if errors.Is(err, errGenerationMismatch) {
				return nil, fmt.Errorf("%w: %s: %w", domain.ErrIndexCorrupt, dir, err)
			}
			return snap, err
		}

		log.Debug("%s: save in progress, retrying load", dir)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
}

func (s *Store) load(dir string) (*driven.IndexSnapshot, error) {
	vecData, vecErr := os.ReadFile(filepath.Join(dir, VectorFile))
	metaData, metaErr := os.ReadFile(filepath.Join(dir, MetaFile))

	if errors.Is(vecErr, fs.ErrNotExist) && errors.Is(metaErr, fs.ErrNotExist) {
		return nil, domain.ErrIndexNotFound
	}
	if vecErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexCorrupt, vecErr)
	}
	if metaErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexCorrupt, metaErr)
	}

	var meta metaFile
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, fmt.Errorf("%w: side table: %w", domain.ErrIndexCorrupt, err)
	}
	if meta.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported side table version %d", domain.ErrIndexCorrupt, meta.Version)
	}

	h, vectors, err := decodeVectors(vecData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexCorrupt, err)
	}

	if uuid.UUID(h.Generation).String() != meta.Generation {
		return nil, errGenerationMismatch
	}
	if int(h.Dimensions) != meta.Dimensions || len(vectors) != len(meta.Entries) {
		return nil, fmt.Errorf("%w: side table has %d entries of %d dimensions, vectors have %d of %d",
			domain.ErrIndexCorrupt, len(meta.Entries), meta.Dimensions, len(vectors), h.Dimensions)
	}

	entries := make([]domain.IndexEntry, len(vectors))
	for i := range vectors {
		entries[i] = domain.IndexEntry{
			Content:  meta.Entries[i].Content,
			Metadata: meta.Entries[i].Metadata,
			Vector:   vectors[i],
		}
	}

	return &driven.IndexSnapshot{
		Model:      meta.Model,
		Dimensions: meta.Dimensions,
		Entries:    entries,
	}, nil
}

// Save writes both artifacts under dir, replacing any existing pair.
func (s *Store) Save(ctx context.Context, dir string, snap driven.IndexSnapshot) error {
	if snap.Dimensions <= 0 {
		return fmt.Errorf("%w: snapshot has no dimensions", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	gen := uuid.New()

	vectors := make([][]float32, len(snap.Entries))
	meta := metaFile{
		Version:    formatVersion,
		Generation: gen.String(),
		Model:      snap.Model,
		Dimensions: snap.Dimensions,
		Entries:    make([]metaEntry, len(snap.Entries)),
	}
	for i, e := range snap.Entries {
		vectors[i] = e.Vector
		meta.Entries[i] = metaEntry{Content: e.Content, Metadata: e.Metadata}
	}

	vecData, err := encodeVectors(gen, snap.Dimensions, vectors)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding side table: %w", err)
	}

	vecTmp, err := writeTemp(dir, VectorFile, vecData)
	if err != nil {
		return err
	}
	metaTmp, err := writeTemp(dir, MetaFile, metaData)
	if err != nil {
		_ = os.Remove(vecTmp)
		return err
	}

	// Last chance to abandon the save without touching the live pair.
	if err := ctx.Err(); err != nil {
		_ = os.Remove(vecTmp)
		_ = os.Remove(metaTmp)
		return err
	}

	if err := os.Rename(vecTmp, filepath.Join(dir, VectorFile)); err != nil {
		_ = os.Remove(vecTmp)
		_ = os.Remove(metaTmp)
		return fmt.Errorf("installing %s: %w", VectorFile, err)
	}
	if err := os.Rename(metaTmp, filepath.Join(dir, MetaFile)); err != nil {
		_ = os.Remove(metaTmp)
		return fmt.Errorf("installing %s: %w", MetaFile, err)
	}
	syncDir(dir)

	log.Debug("%s: saved %d entries (generation %s)", dir, len(snap.Entries), gen)
	return nil
}

// Delete removes both artifacts and the directory if it is left empty.
func (s *Store) Delete(_ context.Context, dir string) error {
	for _, name := range []string{VectorFile, MetaFile} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", name, err)
		}
	}
	// Fails harmlessly if other files remain.
	_ = os.Remove(dir)
	return nil
}

// Exists reports whether either artifact is present under dir.
// A lone artifact counts, so Load reports it as corrupt rather than absent.
func (s *Store) Exists(_ context.Context, dir string) (bool, error) {
	for _, name := range []string{VectorFile, MetaFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
	}
	return false, nil
}

// writeTemp writes data to a synced temporary file next to its final name.
func writeTemp(dir, name string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp %s: %w", name, err)
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("syncing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Chmod(tmp, 0600); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

// syncDir flushes the directory entry so renames survive a crash.
// Not every platform supports syncing a directory; failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
