// Package vectorize turns text into vectors. The remote embedding provider
// is optional and unreliable; this service absorbs both conditions behind a
// deterministic hash fallback so callers always get a usable vector.
package vectorize

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/adhika16/smart-matching-platform-sub000/internal/domain"
	"github.com/adhika16/smart-matching-platform-sub000/internal/domain/vector"
	"github.com/adhika16/smart-matching-platform-sub000/internal/metrics"
)

// FallbackModelVersion tags records whose vector came from the hash fallback
// rather than the remote provider.
const FallbackModelVersion = "hash-fallback-v1"

// emptyCorpusSeed is the reserved seed for blank input, so every empty
// corpus maps to the same well-defined vector.
const emptyCorpusSeed = "__empty_corpus__"

// Config holds the vectorizer settings resolved from application config.
type Config struct {
	// Enabled gates the remote provider; when false every call uses the
	// deterministic fallback.
	Enabled bool
	// ModelVersion names the remote model, recorded alongside vectors.
	ModelVersion string
	// Dimension is the target vector dimension when the caller does not
	// override it. Zero means domain.DefaultDimension.
	Dimension int
}

// Result is a produced vector plus its provenance.
type Result struct {
	Vector       []float32
	ModelVersion string
	Fallback     bool
}

// Service produces fixed-dimension, L2-normalized vectors from text.
type Service struct {
	embedder domain.Embedder
	cfg      Config
	logger   *zap.Logger
}

// New creates a vectorizer. The embedder may be nil when the remote provider
// is not configured.
func New(e domain.Embedder, cfg Config, logger *zap.Logger) *Service {
	if cfg.Dimension <= 0 {
		cfg.Dimension = domain.DefaultDimension
	}
	if cfg.ModelVersion == "" {
		cfg.ModelVersion = FallbackModelVersion
	}
	return &Service{embedder: e, cfg: cfg, logger: logger}
}

// Dimension returns the default target dimension.
func (s *Service) Dimension() int { return s.cfg.Dimension }

// Embed vectorizes text, never failing. An optional dimension override
// replaces the configured target dimension.
func (s *Service) Embed(ctx context.Context, text string, dims ...int) []float32 {
	return s.EmbedText(ctx, text, dims...).Vector
}

// EmbedText vectorizes text and reports where the vector came from. Remote
// vectors are fitted to the target dimension and normalized; any provider
// problem degrades to the deterministic fallback instead of an error.
func (s *Service) EmbedText(ctx context.Context, text string, dims ...int) Result {
	dim := s.cfg.Dimension
	if len(dims) > 0 && dims[0] > 0 {
		dim = dims[0]
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		metrics.EmbeddingFallbacksTotal.WithLabelValues("empty").Inc()
		return fallbackResult(emptyCorpusSeed, dim)
	}

	if !s.cfg.Enabled || s.embedder == nil {
		metrics.EmbeddingFallbacksTotal.WithLabelValues("disabled").Inc()
		return fallbackResult(trimmed, dim)
	}

	res, err := s.embedder.Embed(ctx, trimmed)
	if err != nil || len(res.Embedding) == 0 {
		s.logger.Warn("embedding provider failed, using hash fallback",
			zap.Int("text_len", len(trimmed)),
			zap.Error(err))
		metrics.EmbeddingFallbacksTotal.WithLabelValues("error").Inc()
		return fallbackResult(trimmed, dim)
	}

	vec := vector.Fit(res.Embedding, dim)
	vector.Normalize(vec)
	return Result{Vector: vec, ModelVersion: s.cfg.ModelVersion}
}

func fallbackResult(seed string, dim int) Result {
	return Result{
		Vector:       Fallback(seed, dim),
		ModelVersion: FallbackModelVersion,
		Fallback:     true,
	}
}

// Fallback derives a deterministic unit vector from a text seed. Each
// component hashes "seed|i" and maps the first four digest bytes onto
// [0, 1); the whole vector is then L2-normalized.
func Fallback(seed string, dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		sum := sha256.Sum256([]byte(seed + "|" + strconv.Itoa(i)))
		n := binary.BigEndian.Uint32(sum[:4])
		vec[i] = float32(float64(n) / float64(1<<32))
	}
	vector.Normalize(vec)
	return vec
}
