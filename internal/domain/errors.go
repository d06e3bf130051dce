package domain

import "errors"

var (
	// ErrNotFound signals a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrNotEligible signals an entity excluded from search by its eligibility rules.
	ErrNotEligible = errors.New("not eligible for search")
	// ErrUnknownKind signals an unrecognized entity kind.
	ErrUnknownKind = errors.New("unknown entity kind")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingDisabled signals that the remote embedding backend is turned off.
	ErrEmbeddingDisabled = errors.New("embedding backend disabled")
)
