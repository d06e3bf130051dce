// Package health assembles an operational snapshot of the matching engine's
// dependencies for the health endpoint and the ops CLI.
package health

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/adhika16/smart-matching-platform-sub000/internal/domain"
	"github.com/adhika16/smart-matching-platform-sub000/internal/repository/embedding"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type cacheStats interface {
	Stats(ctx context.Context, kind domain.Kind) (embedding.Stats, error)
}

type indexFlags interface {
	Enabled() bool
	Simulated() bool
}

type queueDepth interface {
	Depth() int
}

// CacheInfo summarizes cached vectors for one entity kind.
type CacheInfo struct {
	Count    int       `json:"count"`
	Freshest time.Time `json:"freshest,omitempty"`
}

// Snapshot is the full health report.
type Snapshot struct {
	Status           string               `json:"status"`
	EmbeddingEnabled bool                 `json:"embedding_enabled"`
	IndexEnabled     bool                 `json:"index_enabled"`
	IndexSimulated   bool                 `json:"index_simulated"`
	StoreOK          bool                 `json:"store_ok"`
	QueueDepth       int                  `json:"queue_depth"`
	Cache            map[string]CacheInfo `json:"cache"`
	Recommendations  []string             `json:"recommendations,omitempty"`
}

// Service produces health snapshots.
type Service struct {
	store            pinger
	cache            cacheStats
	index            indexFlags
	queue            queueDepth
	embedder         domain.HealthChecker // nil when the provider is disabled
	embeddingEnabled bool
	logger           *zap.Logger
}

// New creates the health service. embedder may be nil.
func New(store pinger, cache cacheStats, index indexFlags, queue queueDepth,
	embedder domain.HealthChecker, embeddingEnabled bool, logger *zap.Logger) *Service {
	return &Service{
		store:            store,
		cache:            cache,
		index:            index,
		queue:            queue,
		embedder:         embedder,
		embeddingEnabled: embeddingEnabled,
		logger:           logger,
	}
}

// Check gathers the snapshot. It never returns an error: whatever cannot be
// determined shows up as a degraded status plus a recommendation.
func (s *Service) Check(ctx context.Context) Snapshot {
	snap := Snapshot{
		Status:           "ok",
		EmbeddingEnabled: s.embeddingEnabled,
		IndexEnabled:     s.index.Enabled(),
		IndexSimulated:   s.index.Simulated(),
		QueueDepth:       s.queue.Depth(),
		Cache:            make(map[string]CacheInfo, 2),
	}

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("store ping failed", zap.Error(err))
		snap.Status = "degraded"
		snap.Recommendations = append(snap.Recommendations,
			"store unreachable; search and sync will fail until it recovers")
	} else {
		snap.StoreOK = true
	}

	if s.embeddingEnabled && s.embedder != nil {
		if err := s.embedder.HealthCheck(ctx); err != nil {
			s.logger.Warn("embedding provider health check failed", zap.Error(err))
			snap.Status = "degraded"
			snap.Recommendations = append(snap.Recommendations,
				"embedding provider unreachable; new vectors fall back to deterministic hashing")
		}
	} else if !s.embeddingEnabled {
		snap.Recommendations = append(snap.Recommendations,
			"embedding provider disabled; all vectors use the deterministic fallback")
	}

	if !snap.IndexEnabled {
		snap.Recommendations = append(snap.Recommendations,
			"vector index disabled; semantic search scans the local cache")
	} else if snap.IndexSimulated {
		snap.Recommendations = append(snap.Recommendations,
			"vector index in simulate mode; semantic search scans the local cache")
	}

	if snap.StoreOK {
		for _, kind := range []domain.Kind{domain.KindJob, domain.KindProfile} {
			st, err := s.cache.Stats(ctx, kind)
			if err != nil {
				s.logger.Warn("cache stats failed",
					zap.String("kind", string(kind)), zap.Error(err))
				continue
			}
			snap.Cache[string(kind)] = CacheInfo{Count: st.Count, Freshest: st.Freshest}
			if st.Count == 0 {
				snap.Recommendations = append(snap.Recommendations,
					fmt.Sprintf("no cached %s vectors; run a rebuild for kind %q", kind, kind))
			}
		}
	}

	return snap
}
