// Package embedding is the vector cache: durable per-entity storage of the
// most recent embedding plus metadata, keyed by (kind, id, model version).
package embedding

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adhika16/smart-matching-platform-sub000/internal/domain"
	"github.com/adhika16/smart-matching-platform-sub000/internal/domain/vector"
)

var (
	recordPrefix = domain.KeyPrefix + "emb:rec:"
	latestPrefix = domain.KeyPrefix + "emb:latest:"
	freshPrefix  = domain.KeyPrefix + "emb:fresh:"
)

// store is the consumer interface for the vector cache (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repository persists embedding records. Storage failures propagate: the
// cache is the system of record for vectors, unlike the best-effort index.
type Repository struct {
	store store
}

// New creates a vector cache repository.
func New(s store) *Repository {
	return &Repository{store: s}
}

// Stats summarizes the cache state for one entity kind.
type Stats struct {
	Count    int
	Freshest time.Time
}

// Upsert writes a record, overwriting any previous vector for the same
// (kind, id, model version), and advances the latest-record pointer.
func (r *Repository) Upsert(ctx context.Context, rec domain.EmbeddingRecord) error {
	if len(rec.Vector) != rec.Dimension {
		return fmt.Errorf("embedding record %s/%s: vector length %d != dimension %d",
			rec.Kind, rec.EntityID, len(rec.Vector), rec.Dimension)
	}

	key := recordKey(rec.Kind, rec.EntityID, rec.ModelVersion)
	fields := map[string]string{
		"vector":        string(vector.ToBytes(rec.Vector)),
		"dimension":     strconv.Itoa(rec.Dimension),
		"model_version": rec.ModelVersion,
		"generated_at":  rec.GeneratedAt.UTC().Format(time.RFC3339Nano),
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("store embedding record: %w", err)
	}

	pointer := map[string]string{"key": key, "model_version": rec.ModelVersion}
	if err := r.store.HSet(ctx, latestKey(rec.Kind, rec.EntityID), pointer); err != nil {
		return fmt.Errorf("store latest pointer: %w", err)
	}

	// Freshness marker is advisory (health snapshot); best-effort write.
	_ = r.store.Set(ctx, freshPrefix+string(rec.Kind),
		[]byte(rec.GeneratedAt.UTC().Format(time.RFC3339Nano)))

	return nil
}

// Get returns the most recently generated record for (kind, id).
func (r *Repository) Get(ctx context.Context, kind domain.Kind, id string) (domain.EmbeddingRecord, error) {
	pointer, err := r.store.HGetAll(ctx, latestKey(kind, id))
	if err != nil {
		return domain.EmbeddingRecord{}, fmt.Errorf("read latest pointer: %w", err)
	}
	key := pointer["key"]
	if key == "" {
		return domain.EmbeddingRecord{}, domain.ErrNotFound
	}

	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domain.EmbeddingRecord{}, fmt.Errorf("read embedding record: %w", err)
	}
	rec, err := parseRecord(kind, id, fields)
	if err != nil {
		return domain.EmbeddingRecord{}, err
	}
	return rec, nil
}

// GetMulti returns the latest records for the given ids in two round-trips.
// Missing ids are simply absent from the result map.
func (r *Repository) GetMulti(ctx context.Context, kind domain.Kind, ids []string) (map[string]domain.EmbeddingRecord, error) {
	if len(ids) == 0 {
		return map[string]domain.EmbeddingRecord{}, nil
	}

	pointerKeys := make([]string, len(ids))
	for i, id := range ids {
		pointerKeys[i] = latestKey(kind, id)
	}
	pointers, err := r.store.HGetAllMulti(ctx, pointerKeys)
	if err != nil {
		return nil, fmt.Errorf("read latest pointers: %w", err)
	}

	var recordKeys []string
	var recordIDs []string
	for i, p := range pointers {
		if key := p["key"]; key != "" {
			recordKeys = append(recordKeys, key)
			recordIDs = append(recordIDs, ids[i])
		}
	}
	if len(recordKeys) == 0 {
		return map[string]domain.EmbeddingRecord{}, nil
	}

	rows, err := r.store.HGetAllMulti(ctx, recordKeys)
	if err != nil {
		return nil, fmt.Errorf("read embedding records: %w", err)
	}

	out := make(map[string]domain.EmbeddingRecord, len(rows))
	for i, fields := range rows {
		rec, err := parseRecord(kind, recordIDs[i], fields)
		if err != nil {
			// A corrupt row is skipped, not fatal; the next sync rewrites it.
			continue
		}
		out[recordIDs[i]] = rec
	}
	return out, nil
}

// Delete removes every model version of the (kind, id) record plus the
// latest-record pointer.
func (r *Repository) Delete(ctx context.Context, kind domain.Kind, id string) error {
	keys, err := r.store.Scan(ctx, recordKey(kind, id, "*"))
	if err != nil {
		return fmt.Errorf("scan embedding records: %w", err)
	}
	for _, key := range keys {
		if err := r.store.Del(ctx, key); err != nil {
			return fmt.Errorf("delete embedding record: %w", err)
		}
	}
	if err := r.store.Del(ctx, latestKey(kind, id)); err != nil {
		return fmt.Errorf("delete latest pointer: %w", err)
	}
	return nil
}

// Stats reports cached-vector count and freshness for one kind.
func (r *Repository) Stats(ctx context.Context, kind domain.Kind) (Stats, error) {
	keys, err := r.store.Scan(ctx, latestPrefix+string(kind)+":*")
	if err != nil {
		return Stats{}, fmt.Errorf("scan cache: %w", err)
	}

	st := Stats{Count: len(keys)}
	if data, err := r.store.Get(ctx, freshPrefix+string(kind)); err == nil {
		if t, perr := time.Parse(time.RFC3339Nano, string(data)); perr == nil {
			st.Freshest = t
		}
	}
	return st, nil
}

func recordKey(kind domain.Kind, id, model string) string {
	return recordPrefix + string(kind) + ":" + id + ":" + model
}

func latestKey(kind domain.Kind, id string) string {
	return latestPrefix + string(kind) + ":" + id
}

func parseRecord(kind domain.Kind, id string, fields map[string]string) (domain.EmbeddingRecord, error) {
	raw, ok := fields["vector"]
	if !ok {
		return domain.EmbeddingRecord{}, domain.ErrNotFound
	}
	vec, err := vector.FromBytes([]byte(raw))
	if err != nil {
		return domain.EmbeddingRecord{}, fmt.Errorf("record %s/%s: %w", kind, id, err)
	}

	dim, _ := strconv.Atoi(fields["dimension"])
	if dim == 0 {
		dim = len(vec)
	}
	generatedAt, _ := time.Parse(time.RFC3339Nano, fields["generated_at"])

	return domain.EmbeddingRecord{
		Kind:         kind,
		EntityID:     id,
		ModelVersion: fields["model_version"],
		Vector:       vec,
		Dimension:    dim,
		GeneratedAt:  generatedAt,
	}, nil
}
