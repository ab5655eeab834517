// Package chunker provides a separator-based text chunker with overlap.
package chunker

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// DefaultSeparator splits text into lines before merging.
const DefaultSeparator = "\n"

// Processor splits text on a separator and greedily merges the pieces into
// chunks of at most chunkSize characters. When a chunk is emitted, pieces
// are dropped from its front until at most overlap characters remain; those
// pieces start the next chunk. A single piece longer than chunkSize is
// emitted on its own.
//
// Lengths are counted in characters (runes), not bytes.
type Processor struct {
	chunkSize int
	overlap   int
	separator string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparator sets the string text is split on.
func WithSeparator(sep string) Option {
	return func(p *Processor) {
		if sep != "" {
			p.separator = sep
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		separator: DefaultSeparator,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Overlap must leave room for new content.
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Chunk splits text into chunks. The output is deterministic for a given
// text and configuration, including chunk IDs.
func (p *Processor) Chunk(ctx context.Context, text string) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	pieces := make([]string, 0)
	for _, s := range strings.Split(text, p.separator) {
		if s != "" {
			pieces = append(pieces, s)
		}
	}

	texts := p.merge(pieces)

	chunks := make([]domain.Chunk, 0, len(texts))
	for _, t := range texts {
		pos := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:       "chunk-" + strconv.Itoa(pos),
			Content:  t,
			Position: pos,
		})
	}
	return chunks, nil
}

// merge combines pieces into chunk texts.
func (p *Processor) merge(pieces []string) []string {
	sepLen := utf8.RuneCountInString(p.separator)

	var (
		out    []string
		window []string
		total  int
	)

	// joinCost is the separator cost of adding one more piece to the window.
	joinCost := func() int {
		if len(window) > 0 {
			return sepLen
		}
		return 0
	}

	emit := func() {
		if t := strings.TrimSpace(strings.Join(window, p.separator)); t != "" {
			out = append(out, t)
		}
	}

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)

		if total+n+joinCost() > p.chunkSize && len(window) > 0 {
			emit()
			// Keep a tail of at most overlap characters that still leaves
			// room for the incoming piece.
			for total > p.overlap || (total > 0 && total+n+joinCost() > p.chunkSize) {
				drop := utf8.RuneCountInString(window[0])
				if len(window) > 1 {
					drop += sepLen
				}
				total -= drop
				window = window[1:]
			}
		}

		window = append(window, piece)
		total += n
		if len(window) > 1 {
			total += sepLen
		}
	}

	if len(window) > 0 {
		emit()
	}
	return out
}
