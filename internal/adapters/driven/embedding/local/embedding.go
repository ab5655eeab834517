// Package local provides an offline embedding service based on feature
// hashing. Tokens and adjacent token pairs are hashed into a fixed number
// of signed buckets, weighted by log term frequency and L2-normalised.
//
// The vectors capture lexical overlap only, but they are deterministic,
// need no model download and make knowledge building work without any
// AI service configured.
package local

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// ModelPrefix names hashing models; the suffix is the dimension count.
const ModelPrefix = "hash-"

// DefaultModel is the model used when none is configured.
const DefaultModel = "hash-384"

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at",
		"by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that",
		"these", "those", "from", "so", "such", "into", "about", "than", "too", "very", "can", "will",
		"just", "what", "which", "who", "do", "does", "did",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// EmbeddingService hashes text into fixed-size vectors.
type EmbeddingService struct {
	model      string
	dimensions int
}

// NewEmbeddingService creates a hashing embedder for a model such as "hash-384".
func NewEmbeddingService(model string) (*EmbeddingService, error) {
	if model == "" {
		model = DefaultModel
	}
	dims, err := ParseDimensions(model)
	if err != nil {
		return nil, err
	}
	return &EmbeddingService{model: model, dimensions: dims}, nil
}

// ParseDimensions extracts the dimension count from a hashing model name.
func ParseDimensions(model string) (int, error) {
	if !strings.HasPrefix(model, ModelPrefix) {
		return 0, fmt.Errorf("local: unknown model %q, expected %s<dimensions>", model, ModelPrefix)
	}
	dims, err := strconv.Atoi(strings.TrimPrefix(model, ModelPrefix))
	if err != nil || dims < 16 || dims > 8192 {
		return 0, fmt.Errorf("local: invalid dimensions in model %q", model)
	}
	return dims, nil
}

// Embed hashes a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.vector(text), nil
}

// EmbedBatch hashes each text.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = s.vector(t)
	}
	return out, nil
}

func (s *EmbeddingService) vector(text string) []float32 {
	acc := make([]float64, s.dimensions)
	tf := make(map[string]int)

	tokens := tokenize(text)
	for i, tok := range tokens {
		tf[tok]++
		if i > 0 {
			tf[tokens[i-1]+" "+tok]++
		}
	}

	for feature, count := range tf {
		bucket, sign := s.hash(feature)
		weight := 1 + math.Log(float64(count))
		if strings.Contains(feature, " ") {
			weight *= 0.5
		}
		acc[bucket] += sign * weight
	}

	var sum float64
	for _, v := range acc {
		sum += v * v
	}
	norm := math.Sqrt(sum)

	vec := make([]float32, s.dimensions)
	if norm == 0 {
		return vec
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

// hash maps a feature to a bucket and a sign.
func (s *EmbeddingService) hash(feature string) (int, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	sign := 1.0
	if sum>>63 == 1 {
		sign = -1.0
	}
	return int(sum % uint64(s.dimensions)), sign
}

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns the model identifier.
func (s *EmbeddingService) ModelName() string { return s.model }

// Ping always succeeds.
func (s *EmbeddingService) Ping(_ context.Context) error { return nil }

// Close releases resources.
func (s *EmbeddingService) Close() error { return nil }
