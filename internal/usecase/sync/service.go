// Package sync keeps the vector cache and the external index aligned with
// entity state. One entry point per entity change, one bulk rebuild for
// recovery, both idempotent.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/adhika16/smart-matching-platform-sub000/internal/domain"
	"github.com/adhika16/smart-matching-platform-sub000/internal/metrics"
	"github.com/adhika16/smart-matching-platform-sub000/internal/queue"
	"github.com/adhika16/smart-matching-platform-sub000/internal/transport/pinecone"
	"github.com/adhika16/smart-matching-platform-sub000/internal/usecase/vectorize"
)

// Outcome classifies a single sync run.
type Outcome string

const (
	OutcomeSynced  Outcome = "synced"
	OutcomeEvicted Outcome = "evicted"
	OutcomeMissing Outcome = "missing"
)

type jobSource interface {
	Get(ctx context.Context, id string) (domain.Job, error)
	PageIDs(ctx context.Context, offset, limit int) ([]string, int, error)
}

type profileSource interface {
	Get(ctx context.Context, id string) (domain.CreativeProfile, error)
	PageIDs(ctx context.Context, offset, limit int) ([]string, int, error)
}

type vectorCache interface {
	Upsert(ctx context.Context, rec domain.EmbeddingRecord) error
	Delete(ctx context.Context, kind domain.Kind, id string) error
}

type vectorizer interface {
	EmbedText(ctx context.Context, text string, dims ...int) vectorize.Result
	Dimension() int
}

type indexClient interface {
	Upsert(ctx context.Context, records []pinecone.Record, namespace string) bool
	Delete(ctx context.Context, ids []string, namespace string) bool
}

type dispatcher interface {
	Enqueue(name string, task queue.Task)
}

// RebuildReport summarizes one bulk rebuild.
type RebuildReport struct {
	Kind    domain.Kind `json:"kind"`
	Total   int         `json:"total"`
	Queued  bool        `json:"queued"`
	Synced  int         `json:"synced"`
	Evicted int         `json:"evicted"`
	Missing int         `json:"missing"`
	Failed  int         `json:"failed"`
}

// Service is the embedding sync workflow.
type Service struct {
	jobs       jobSource
	profiles   profileSource
	cache      vectorCache
	vectorizer vectorizer
	index      indexClient
	queue      dispatcher
	chunkSize  int
	logger     *zap.Logger
}

// New creates the sync service. chunkSize bounds rebuild pagination.
func New(jobs jobSource, profiles profileSource, cache vectorCache, v vectorizer,
	index indexClient, q dispatcher, chunkSize int, logger *zap.Logger) *Service {
	if chunkSize < 1 {
		chunkSize = 100
	}
	return &Service{
		jobs:       jobs,
		profiles:   profiles,
		cache:      cache,
		vectorizer: v,
		index:      index,
		queue:      q,
		chunkSize:  chunkSize,
		logger:     logger,
	}
}

// SyncOne brings the cache and index entry for one entity up to date.
// Missing entities and eviction of ineligible ones are normal outcomes, not
// errors; only cache persistence failures surface as errors. force re-embeds
// even when the entity is not currently searchable.
func (s *Service) SyncOne(ctx context.Context, kind domain.Kind, id string, force bool) (Outcome, error) {
	entity, err := s.load(ctx, kind, id)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Debug("sync target not found",
			zap.String("kind", string(kind)), zap.String("id", id))
		metrics.SyncRunsTotal.WithLabelValues(string(kind), "missing").Inc()
		return OutcomeMissing, nil
	}
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues(string(kind), "error").Inc()
		return "", err
	}

	if !entity.ShouldBeSearchable() && !force {
		if err := s.evict(ctx, kind, id); err != nil {
			metrics.SyncRunsTotal.WithLabelValues(string(kind), "error").Inc()
			return "", err
		}
		metrics.SyncRunsTotal.WithLabelValues(string(kind), "evicted").Inc()
		return OutcomeEvicted, nil
	}

	res := s.vectorizer.EmbedText(ctx, domain.Corpus(entity))
	rec := domain.EmbeddingRecord{
		Kind:         kind,
		EntityID:     id,
		ModelVersion: res.ModelVersion,
		Vector:       res.Vector,
		Dimension:    len(res.Vector),
		GeneratedAt:  time.Now().UTC(),
	}
	if err := s.cache.Upsert(ctx, rec); err != nil {
		metrics.SyncRunsTotal.WithLabelValues(string(kind), "error").Inc()
		return "", fmt.Errorf("sync %s/%s: %w", kind, id, err)
	}

	// Index write is best-effort; a miss leaves the cache authoritative and
	// the next sync or search self-heal retries it.
	metadata := entity.FilterMetadata()
	metadata["entity_kind"] = string(kind)
	ok := s.index.Upsert(ctx, []pinecone.Record{{
		ID:       domain.CompositeID(kind, id),
		Values:   rec.Vector,
		Metadata: metadata,
	}}, "")
	if !ok {
		s.logger.Warn("vector index upsert failed",
			zap.String("kind", string(kind)), zap.String("id", id))
	}

	metrics.SyncRunsTotal.WithLabelValues(string(kind), "synced").Inc()
	return OutcomeSynced, nil
}

// Evict removes an entity's vector from both the cache and the index.
func (s *Service) Evict(ctx context.Context, kind domain.Kind, id string) error {
	if err := s.evict(ctx, kind, id); err != nil {
		metrics.SyncRunsTotal.WithLabelValues(string(kind), "error").Inc()
		return err
	}
	metrics.SyncRunsTotal.WithLabelValues(string(kind), "evicted").Inc()
	return nil
}

func (s *Service) evict(ctx context.Context, kind domain.Kind, id string) error {
	if err := s.cache.Delete(ctx, kind, id); err != nil {
		return fmt.Errorf("evict %s/%s: %w", kind, id, err)
	}
	if !s.index.Delete(ctx, []string{domain.CompositeID(kind, id)}, "") {
		s.logger.Warn("vector index delete failed",
			zap.String("kind", string(kind)), zap.String("id", id))
	}
	return nil
}

// RebuildAll re-syncs every stored entity of one kind in chunks. With
// background=true the chunks are handed to the dispatcher and the report
// only carries the total; otherwise the rebuild runs inline and the report
// carries per-outcome counts.
func (s *Service) RebuildAll(ctx context.Context, kind domain.Kind, background bool) (RebuildReport, error) {
	report := RebuildReport{Kind: kind, Queued: background}

	for offset := 0; ; offset += s.chunkSize {
		ids, total, err := s.pageIDs(ctx, kind, offset)
		if err != nil {
			return report, fmt.Errorf("rebuild %s: %w", kind, err)
		}
		report.Total = total
		if len(ids) == 0 {
			break
		}

		if background {
			chunk := ids
			s.queue.Enqueue(fmt.Sprintf("rebuild-%s-%d", kind, offset), func(taskCtx context.Context) {
				s.syncChunk(taskCtx, kind, chunk, nil)
			})
		} else {
			s.syncChunk(ctx, kind, ids, &report)
		}

		if offset+len(ids) >= total {
			break
		}
	}

	s.logger.Info("rebuild scheduled",
		zap.String("kind", string(kind)),
		zap.Int("total", report.Total),
		zap.Bool("background", background))
	return report, nil
}

// NotifyUpserted schedules an async sync after an entity write.
func (s *Service) NotifyUpserted(kind domain.Kind, id string) {
	s.queue.Enqueue("sync-"+string(kind)+"-"+id, func(ctx context.Context) {
		if _, err := s.SyncOne(ctx, kind, id, false); err != nil {
			s.logger.Error("async sync failed",
				zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
		}
	})
}

// NotifyDeleted schedules an async eviction after an entity delete.
func (s *Service) NotifyDeleted(kind domain.Kind, id string) {
	s.queue.Enqueue("evict-"+string(kind)+"-"+id, func(ctx context.Context) {
		if err := s.Evict(ctx, kind, id); err != nil {
			s.logger.Error("async evict failed",
				zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
		}
	})
}

func (s *Service) syncChunk(ctx context.Context, kind domain.Kind, ids []string, report *RebuildReport) {
	for _, id := range ids {
		outcome, err := s.SyncOne(ctx, kind, id, false)
		if report == nil {
			if err != nil {
				s.logger.Error("rebuild sync failed",
					zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
			}
			continue
		}
		switch {
		case err != nil:
			report.Failed++
		case outcome == OutcomeSynced:
			report.Synced++
		case outcome == OutcomeEvicted:
			report.Evicted++
		case outcome == OutcomeMissing:
			report.Missing++
		}
	}
}

func (s *Service) load(ctx context.Context, kind domain.Kind, id string) (domain.Searchable, error) {
	switch kind {
	case domain.KindJob:
		j, err := s.jobs.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return j, nil
	case domain.KindProfile:
		p, err := s.profiles.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, domain.ErrUnknownKind
	}
}

func (s *Service) pageIDs(ctx context.Context, kind domain.Kind, offset int) ([]string, int, error) {
	switch kind {
	case domain.KindJob:
		return s.jobs.PageIDs(ctx, offset, s.chunkSize)
	case domain.KindProfile:
		return s.profiles.PageIDs(ctx, offset, s.chunkSize)
	default:
		return nil, 0, domain.ErrUnknownKind
	}
}
