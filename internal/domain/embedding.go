package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultDimension is the hard fallback vector dimension when neither the
// caller nor the index configuration specifies one.
const DefaultDimension = 1024

// KeyPrefix namespaces every engine key in the shared store.
const KeyPrefix = "match:"

// Embedder is the remote text vectorization contract. Implementations may
// fail; the vectorize service converts failures into the deterministic
// fallback at its boundary.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries a vector and token usage back from a provider.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// EmbeddingRecord is the durable per-entity embedding, unique by
// (Kind, EntityID, ModelVersion). Invariant: len(Vector) == Dimension.
type EmbeddingRecord struct {
	Kind         Kind
	EntityID     string
	ModelVersion string
	Vector       []float32
	Dimension    int
	GeneratedAt  time.Time
}

const compositeIDSep = "::"

// CompositeID builds the external vector index id for an entity.
func CompositeID(kind Kind, id string) string {
	return string(kind) + compositeIDSep + id
}

// ParseCompositeID splits an external index id back into (kind, id).
// Malformed ids are reported as errors so callers can discard them.
func ParseCompositeID(s string) (Kind, string, error) {
	kindStr, id, ok := strings.Cut(s, compositeIDSep)
	if !ok || id == "" {
		return "", "", fmt.Errorf("malformed composite id %q", s)
	}
	kind, err := ParseKind(kindStr)
	if err != nil {
		return "", "", fmt.Errorf("composite id %q: %w", s, err)
	}
	return kind, id, nil
}
