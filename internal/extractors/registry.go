package extractors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
	"github.com/custodia-labs/ragify/internal/logger"
)

// Verify interface compliance
var _ driven.ExtractorRegistry = (*Registry)(nil)

// DefaultConcurrency bounds how many files are extracted at once.
const DefaultConcurrency = 4

var log = logger.With("extract")

// Registry implements ExtractorRegistry with extension-based dispatch.
type Registry struct {
	mu          sync.RWMutex
	byExt       map[string]driven.Extractor
	concurrency int
}

// Option configures a Registry.
type Option func(*Registry)

// WithConcurrency sets how many files are extracted in parallel.
func WithConcurrency(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byExt:       make(map[string]driven.Extractor),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an extractor for each of its extensions.
// A later registration for the same extension wins.
func (r *Registry) Register(extractor driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range extractor.Extensions() {
		r.byExt[domain.NormaliseExtension(ext)] = extractor
	}
}

// Get returns the extractor for an extension, or nil.
func (r *Registry) Get(ext string) driven.Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byExt[domain.NormaliseExtension(ext)]
}

// SupportedExtensions returns all registered extensions, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// UnsupportedMarker is the text emitted in place of a file no extractor handles.
func UnsupportedMarker(name string) string {
	return fmt.Sprintf("\n[Unsupported file format: %s]\n", name)
}

// Extract runs every blob through its extractor and concatenates the text
// in input order. Files are extracted in parallel.
func (r *Registry) Extract(ctx context.Context, blobs []domain.DocumentBlob) (string, []domain.FileReport, error) {
	texts := make([]string, len(blobs))
	reports := make([]domain.FileReport, len(blobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := range blobs {
		// Stop scheduling once cancelled; Wait below reports it.
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			texts[i], reports[i] = r.extractOne(gctx, blobs[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", nil, err
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	for _, t := range texts {
		sb.WriteString(t)
	}

	log.Info("extracted %d characters from %d files", sb.Len(), len(blobs))
	return sb.String(), reports, nil
}

func (r *Registry) extractOne(ctx context.Context, blob domain.DocumentBlob) (string, domain.FileReport) {
	report := domain.FileReport{Name: blob.Name}

	extractor := r.Get(blob.Extension())
	if extractor == nil {
		marker := UnsupportedMarker(blob.Name)
		report.Status = domain.ExtractUnsupported
		report.Chars = len(marker)
		log.Warn("%s: %v", blob.Name, domain.ErrUnsupportedFormat)
		return marker, report
	}

	text, err := extractor.Extract(ctx, blob)
	if err != nil {
		if !errors.Is(err, domain.ErrExtractionFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
		}
		report.Status = domain.ExtractFailed
		report.Err = err.Error()
		log.Warn("%s: %v", blob.Name, err)
		return "", report
	}

	report.Chars = len(text)
	if strings.TrimSpace(text) == "" {
		report.Status = domain.ExtractEmpty
	} else {
		report.Status = domain.ExtractOK
	}
	log.Debug("%s: %s extractor produced %d characters", blob.Name, extractor.Name(), len(text))
	return text, report
}
