package sync

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/adhika16/smart-matching-platform-sub000/internal/domain"
	"github.com/adhika16/smart-matching-platform-sub000/internal/queue"
	"github.com/adhika16/smart-matching-platform-sub000/internal/transport/pinecone"
	"github.com/adhika16/smart-matching-platform-sub000/internal/usecase/vectorize"
)

type fakeJobs struct {
	jobs map[string]domain.Job
}

func (f *fakeJobs) Get(_ context.Context, id string) (domain.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	return j, nil
}

func (f *fakeJobs) PageIDs(_ context.Context, offset, limit int) ([]string, int, error) {
	var ids []string
	for id := range f.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	total := len(ids)
	if offset >= total {
		return nil, total, nil
	}
	ids = ids[offset:]
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, total, nil
}

type fakeProfiles struct {
	profiles map[string]domain.CreativeProfile
}

func (f *fakeProfiles) Get(_ context.Context, id string) (domain.CreativeProfile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return domain.CreativeProfile{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) PageIDs(_ context.Context, _, _ int) ([]string, int, error) {
	return nil, 0, nil
}

type fakeCache struct {
	records map[string]domain.EmbeddingRecord
	deleted []string
	fail    bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{records: make(map[string]domain.EmbeddingRecord)}
}

var errCacheDown = errors.New("cache down")

func (f *fakeCache) Upsert(_ context.Context, rec domain.EmbeddingRecord) error {
	if f.fail {
		return errCacheDown
	}
	f.records[domain.CompositeID(rec.Kind, rec.EntityID)] = rec
	return nil
}

func (f *fakeCache) Delete(_ context.Context, kind domain.Kind, id string) error {
	key := domain.CompositeID(kind, id)
	delete(f.records, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeIndex struct {
	upserted []pinecone.Record
	deleted  []string
	upsertOK bool
	deleteOK bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{upsertOK: true, deleteOK: true}
}

func (f *fakeIndex) Upsert(_ context.Context, records []pinecone.Record, _ string) bool {
	f.upserted = append(f.upserted, records...)
	return f.upsertOK
}

func (f *fakeIndex) Delete(_ context.Context, ids []string, _ string) bool {
	f.deleted = append(f.deleted, ids...)
	return f.deleteOK
}

// inlineQueue runs enqueued tasks synchronously, keeping tests deterministic.
type inlineQueue struct{ names []string }

func (q *inlineQueue) Enqueue(name string, task queue.Task) {
	q.names = append(q.names, name)
	task(context.Background())
}

func publishedJob(id string) domain.Job {
	return domain.Job{
		ID:        id,
		Title:     "Motion Designer",
		Category:  "design",
		Skills:    []string{"after-effects"},
		Status:    domain.JobStatusPublished,
		UpdatedAt: time.Now(),
	}
}

func newService(jobs *fakeJobs, cache *fakeCache, index *fakeIndex, q dispatcher) *Service {
	v := vectorize.New(nil, vectorize.Config{Dimension: 8}, zap.NewNop())
	profiles := &fakeProfiles{profiles: map[string]domain.CreativeProfile{}}
	return New(jobs, profiles, cache, v, index, q, 2, zap.NewNop())
}

func TestSyncOne_PublishedJobIsSynced(t *testing.T) {
	cache, index := newFakeCache(), newFakeIndex()
	s := newService(&fakeJobs{jobs: map[string]domain.Job{"j1": publishedJob("j1")}}, cache, index, &inlineQueue{})

	outcome, err := s.SyncOne(context.Background(), domain.KindJob, "j1", false)
	if err != nil {
		t.Fatalf("SyncOne: %v", err)
	}
	if outcome != OutcomeSynced {
		t.Errorf("outcome = %s, want synced", outcome)
	}

	rec, ok := cache.records["job::j1"]
	if !ok {
		t.Fatal("no cached record")
	}
	if rec.Dimension != 8 || len(rec.Vector) != 8 {
		t.Errorf("record = %+v", rec)
	}
	if rec.ModelVersion != vectorize.FallbackModelVersion {
		t.Errorf("model = %q", rec.ModelVersion)
	}

	if len(index.upserted) != 1 || index.upserted[0].ID != "job::j1" {
		t.Fatalf("index upserts = %+v", index.upserted)
	}
	if index.upserted[0].Metadata["entity_kind"] != "job" {
		t.Errorf("metadata = %+v", index.upserted[0].Metadata)
	}
	if index.upserted[0].Metadata["status"] != domain.JobStatusPublished {
		t.Errorf("metadata = %+v", index.upserted[0].Metadata)
	}
}

func TestSyncOne_DraftJobIsEvicted(t *testing.T) {
	cache, index := newFakeCache(), newFakeIndex()
	draft := publishedJob("j1")
	draft.Status = domain.JobStatusDraft
	s := newService(&fakeJobs{jobs: map[string]domain.Job{"j1": draft}}, cache, index, &inlineQueue{})

	outcome, err := s.SyncOne(context.Background(), domain.KindJob, "j1", false)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != OutcomeEvicted {
		t.Errorf("outcome = %s, want evicted", outcome)
	}
	if len(cache.deleted) != 1 || cache.deleted[0] != "job::j1" {
		t.Errorf("cache deletes = %v", cache.deleted)
	}
	if len(index.deleted) != 1 || index.deleted[0] != "job::j1" {
		t.Errorf("index deletes = %v", index.deleted)
	}
}

func TestSyncOne_ForceSyncsIneligible(t *testing.T) {
	cache, index := newFakeCache(), newFakeIndex()
	draft := publishedJob("j1")
	draft.Status = domain.JobStatusDraft
	s := newService(&fakeJobs{jobs: map[string]domain.Job{"j1": draft}}, cache, index, &inlineQueue{})

	outcome, err := s.SyncOne(context.Background(), domain.KindJob, "j1", true)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != OutcomeSynced {
		t.Errorf("outcome = %s, want synced under force", outcome)
	}
}

func TestSyncOne_MissingEntityIsNoOp(t *testing.T) {
	cache, index := newFakeCache(), newFakeIndex()
	s := newService(&fakeJobs{jobs: map[string]domain.Job{}}, cache, index, &inlineQueue{})

	outcome, err := s.SyncOne(context.Background(), domain.KindJob, "ghost", false)
	if err != nil {
		t.Fatalf("missing entity must not error: %v", err)
	}
	if outcome != OutcomeMissing {
		t.Errorf("outcome = %s, want missing", outcome)
	}
	if len(cache.records) != 0 || len(index.upserted) != 0 {
		t.Error("missing entity must not touch cache or index")
	}
}

func TestSyncOne_CacheFailurePropagates(t *testing.T) {
	cache, index := newFakeCache(), newFakeIndex()
	cache.fail = true
	s := newService(&fakeJobs{jobs: map[string]domain.Job{"j1": publishedJob("j1")}}, cache, index, &inlineQueue{})

	if _, err := s.SyncOne(context.Background(), domain.KindJob, "j1", false); !errors.Is(err, errCacheDown) {
		t.Errorf("err = %v, want wrapped cache error", err)
	}
	if len(index.upserted) != 0 {
		t.Error("index must not be written when persistence fails")
	}
}

func TestSyncOne_IndexFailureIsNotFatal(t *testing.T) {
	cache, index := newFakeCache(), newFakeIndex()
	index.upsertOK = false
	s := newService(&fakeJobs{jobs: map[string]domain.Job{"j1": publishedJob("j1")}}, cache, index, &inlineQueue{})

	outcome, err := s.SyncOne(context.Background(), domain.KindJob, "j1", false)
	if err != nil || outcome != OutcomeSynced {
		t.Errorf("outcome = %s, err = %v; index miss must stay best-effort", outcome, err)
	}
}

func TestSyncOne_Idempotent(t *testing.T) {
	cache, index := newFakeCache(), newFakeIndex()
	s := newService(&fakeJobs{jobs: map[string]domain.Job{"j1": publishedJob("j1")}}, cache, index, &inlineQueue{})

	first, err := s.SyncOne(context.Background(), domain.KindJob, "j1", false)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.SyncOne(context.Background(), domain.KindJob, "j1", false)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("outcomes diverged: %s then %s", first, second)
	}
	if len(cache.records) != 1 {
		t.Errorf("cache records = %d, want 1", len(cache.records))
	}
}

func TestRebuildAll_InlineCountsOutcomes(t *testing.T) {
	cache, index := newFakeCache(), newFakeIndex()
	draft := publishedJob("j3")
	draft.Status = domain.JobStatusArchived
	jobs := &fakeJobs{jobs: map[string]domain.Job{
		"j1": publishedJob("j1"),
		"j2": publishedJob("j2"),
		"j3": draft,
	}}
	s := newService(jobs, cache, index, &inlineQueue{})

	report, err := s.RebuildAll(context.Background(), domain.KindJob, false)
	if err != nil {
		t.Fatal(err)
	}
	if report.Total != 3 || report.Synced != 2 || report.Evicted != 1 || report.Failed != 0 {
		t.Errorf("report = %+v", report)
	}
	if report.Queued {
		t.Error("inline rebuild must not be marked queued")
	}
}

func TestRebuildAll_BackgroundDispatchesChunks(t *testing.T) {
	cache, index := newFakeCache(), newFakeIndex()
	jobs := &fakeJobs{jobs: map[string]domain.Job{
		"j1": publishedJob("j1"),
		"j2": publishedJob("j2"),
		"j3": publishedJob("j3"),
	}}
	q := &inlineQueue{}
	s := newService(jobs, cache, index, q)

	report, err := s.RebuildAll(context.Background(), domain.KindJob, true)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Queued || report.Total != 3 {
		t.Errorf("report = %+v", report)
	}
	// Chunk size 2 over 3 ids means two dispatched chunks.
	if len(q.names) != 2 {
		t.Errorf("dispatched tasks = %v", q.names)
	}
	if len(cache.records) != 3 {
		t.Errorf("cached records = %d, want 3", len(cache.records))
	}
}

func TestNotifyHooks(t *testing.T) {
	cache, index := newFakeCache(), newFakeIndex()
	s := newService(&fakeJobs{jobs: map[string]domain.Job{"j1": publishedJob("j1")}}, cache, index, &inlineQueue{})

	s.NotifyUpserted(domain.KindJob, "j1")
	if _, ok := cache.records["job::j1"]; !ok {
		t.Error("NotifyUpserted should have synced the entity")
	}

	s.NotifyDeleted(domain.KindJob, "j1")
	if _, ok := cache.records["job::j1"]; ok {
		t.Error("NotifyDeleted should have evicted the entity")
	}
	if len(index.deleted) != 1 {
		t.Errorf("index deletes = %v", index.deleted)
	}
}
