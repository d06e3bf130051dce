package match

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/adhika16/smart-matching-platform-sub000/internal/domain"
	"github.com/adhika16/smart-matching-platform-sub000/internal/repository/job"
	"github.com/adhika16/smart-matching-platform-sub000/internal/repository/profile"
	"github.com/adhika16/smart-matching-platform-sub000/internal/transport/pinecone"
	"github.com/adhika16/smart-matching-platform-sub000/internal/usecase/vectorize"
)

type fakeJobRepo struct {
	jobs   map[string]domain.Job
	kwHits []job.KeywordHit
	kwErr  error
	recent []domain.Job
}

func (f *fakeJobRepo) GetMulti(_ context.Context, ids []string) ([]domain.Job, error) {
	var out []domain.Job
	for _, id := range ids {
		if j, ok := f.jobs[id]; ok {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeJobRepo) SearchKeyword(_ context.Context, _ string, _ domain.JobFilters, limit int) ([]job.KeywordHit, error) {
	if f.kwErr != nil {
		return nil, f.kwErr
	}
	hits := f.kwHits
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeJobRepo) ListRecent(_ context.Context, filters domain.JobFilters, limit int) ([]domain.Job, error) {
	var out []domain.Job
	for _, j := range f.recent {
		if len(out) >= limit {
			break
		}
		if j.ShouldBeSearchable() && filters.Match(j) {
			out = append(out, j)
		}
	}
	return out, nil
}

type fakeProfileRepo struct {
	profiles map[string]domain.CreativeProfile
	kwHits   []profile.KeywordHit
	recent   []domain.CreativeProfile
}

func (f *fakeProfileRepo) GetMulti(_ context.Context, ids []string) ([]domain.CreativeProfile, error) {
	var out []domain.CreativeProfile
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProfileRepo) SearchKeyword(_ context.Context, _ string, _ domain.ProfileFilters, limit int) ([]profile.KeywordHit, error) {
	hits := f.kwHits
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeProfileRepo) ListRecent(_ context.Context, filters domain.ProfileFilters, limit int) ([]domain.CreativeProfile, error) {
	var out []domain.CreativeProfile
	for _, p := range f.recent {
		if len(out) >= limit {
			break
		}
		if p.ShouldBeSearchable() && filters.Match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeCache struct {
	vectors map[string][]float32 // keyed by composite id
	getErr  error
}

func (f *fakeCache) Get(_ context.Context, kind domain.Kind, id string) (domain.EmbeddingRecord, error) {
	if f.getErr != nil {
		return domain.EmbeddingRecord{}, f.getErr
	}
	v, ok := f.vectors[domain.CompositeID(kind, id)]
	if !ok {
		return domain.EmbeddingRecord{}, domain.ErrNotFound
	}
	return domain.EmbeddingRecord{Kind: kind, EntityID: id, Vector: v, Dimension: len(v)}, nil
}

func (f *fakeCache) GetMulti(_ context.Context, kind domain.Kind, ids []string) (map[string]domain.EmbeddingRecord, error) {
	out := make(map[string]domain.EmbeddingRecord)
	for _, id := range ids {
		if v, ok := f.vectors[domain.CompositeID(kind, id)]; ok {
			out[id] = domain.EmbeddingRecord{Kind: kind, EntityID: id, Vector: v, Dimension: len(v)}
		}
	}
	return out, nil
}

type fakeVec struct {
	vec   []float32
	calls int
}

func (f *fakeVec) Embed(_ context.Context, _ string, _ ...int) []float32 {
	f.calls++
	out := make([]float32, len(f.vec))
	copy(out, f.vec)
	return out
}

type fakeIndex struct {
	enabled   bool
	simulated bool
	result    pinecone.QueryResult
	lastOpts  pinecone.QueryOpts
	queries   int
}

func (f *fakeIndex) Enabled() bool   { return f.enabled }
func (f *fakeIndex) Simulated() bool { return f.simulated }

func (f *fakeIndex) Query(_ context.Context, _ []float32, opts pinecone.QueryOpts) pinecone.QueryResult {
	f.queries++
	f.lastOpts = opts
	return f.result
}

type fakeNotifier struct {
	notified []string
}

func (f *fakeNotifier) NotifyUpserted(kind domain.Kind, id string) {
	f.notified = append(f.notified, domain.CompositeID(kind, id))
}

func pubJob(id, title string) domain.Job {
	return domain.Job{
		ID:        id,
		Title:     title,
		Category:  "design",
		Skills:    []string{"figma"},
		Status:    domain.JobStatusPublished,
		UpdatedAt: time.Now(),
	}
}

func approx(t *testing.T, got, want float64, label string) {
	t.Helper()
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("%s = %f, want %f", label, got, want)
	}
}

func TestSearchJobs_FusionWeights(t *testing.T) {
	jobs := &fakeJobRepo{
		jobs: map[string]domain.Job{
			"A": pubJob("A", "Brand Designer"),
			"B": pubJob("B", "Copywriter"),
		},
		kwHits: []job.KeywordHit{{ID: "A", Score: 3.0}, {ID: "B", Score: 1.5}},
	}
	index := &fakeIndex{enabled: true, result: pinecone.QueryResult{
		Matches: []pinecone.Match{{ID: "job::A", Score: 0.9}},
	}}
	s := New(jobs, &fakeProfileRepo{}, &fakeCache{}, &fakeVec{vec: []float32{1, 0}}, index, nil, Config{}, zap.NewNop())

	res, err := s.SearchJobs(context.Background(), JobQuery{Text: "brand designer"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 2 {
		t.Fatalf("hits = %+v", res.Hits)
	}

	// Keyword scores: rank 0 of 2 -> 1.0, rank 1 of 2 -> 0.5.
	a, b := res.Hits[0], res.Hits[1]
	if a.Job.ID != "A" || b.Job.ID != "B" {
		t.Fatalf("order = %s, %s", a.Job.ID, b.Job.ID)
	}
	approx(t, a.Score, 0.65*0.9+0.35*1.0, "score A")
	approx(t, b.Score, 0.35*0.5, "score B")

	if res.Meta.Source != SourceIndexKeyword || res.Meta.IndexDegraded {
		t.Errorf("meta = %+v", res.Meta)
	}
	if res.Meta.KeywordCandidates != 2 || res.Meta.SemanticCandidates != 1 {
		t.Errorf("meta counts = %+v", res.Meta)
	}
	if a.KeywordRank == nil || *a.KeywordRank != 1 {
		t.Errorf("keyword rank A = %v, want 1", a.KeywordRank)
	}
	if b.KeywordRank == nil || *b.KeywordRank != 2 {
		t.Errorf("keyword rank B = %v, want 2", b.KeywordRank)
	}
}

func TestSearchJobs_IndexFilterPinsKindAndStatus(t *testing.T) {
	jobs := &fakeJobRepo{jobs: map[string]domain.Job{}}
	index := &fakeIndex{enabled: true}
	s := New(jobs, &fakeProfileRepo{}, &fakeCache{}, &fakeVec{vec: []float32{1}}, index, nil, Config{}, zap.NewNop())

	if _, err := s.SearchJobs(context.Background(), JobQuery{
		Text:    "x",
		Filters: domain.JobFilters{Category: "design", Skills: []string{"figma"}},
	}); err != nil {
		t.Fatal(err)
	}

	f := index.lastOpts.Filter
	if f["entity_kind"] == nil || f["status"] == nil || f["category"] == nil || f["skills"] == nil {
		t.Errorf("filter = %+v", f)
	}
}

func TestSearchJobs_WrongKindCompositeIDIgnored(t *testing.T) {
	jobs := &fakeJobRepo{
		jobs:   map[string]domain.Job{"A": pubJob("A", "Designer")},
		kwHits: []job.KeywordHit{{ID: "A"}},
	}
	index := &fakeIndex{enabled: true, result: pinecone.QueryResult{
		Matches: []pinecone.Match{
			{ID: "profile::X", Score: 0.99},
			{ID: "garbage", Score: 0.98},
		},
	}}
	s := New(jobs, &fakeProfileRepo{}, &fakeCache{}, &fakeVec{vec: []float32{1}}, index, nil, Config{}, zap.NewNop())

	res, err := s.SearchJobs(context.Background(), JobQuery{Text: "designer"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Meta.SemanticCandidates != 0 {
		t.Errorf("foreign ids leaked into semantic set: %+v", res.Meta)
	}
	if res.Meta.Source != SourceKeywordOnly {
		t.Errorf("source = %s", res.Meta.Source)
	}
}

func TestSearchJobs_DegradedIndexFallsBackToCache(t *testing.T) {
	jobA, jobC := pubJob("A", "Brand Designer"), pubJob("C", "Art Director")
	jobs := &fakeJobRepo{
		jobs:   map[string]domain.Job{"A": jobA, "C": jobC},
		kwHits: []job.KeywordHit{{ID: "A"}},
		recent: []domain.Job{jobA, jobC},
	}
	cache := &fakeCache{vectors: map[string][]float32{
		"job::A": {1, 0},
		"job::C": {0.9, 0.1},
	}}
	index := &fakeIndex{enabled: true, result: pinecone.QueryResult{Degraded: true}}
	s := New(jobs, &fakeProfileRepo{}, cache, &fakeVec{vec: []float32{1, 0}}, index, nil, Config{}, zap.NewNop())

	res, err := s.SearchJobs(context.Background(), JobQuery{Text: "brand"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Meta.IndexDegraded {
		t.Error("degraded flag not set")
	}
	if res.Meta.Source != SourceCacheKeyword {
		t.Errorf("source = %s, want cache+keyword", res.Meta.Source)
	}
	if res.Meta.SemanticCandidates != 2 {
		t.Errorf("semantic candidates = %d, want 2", res.Meta.SemanticCandidates)
	}
	if res.Hits[0].Job.ID != "A" {
		t.Errorf("top hit = %s", res.Hits[0].Job.ID)
	}
}

func TestSearchJobs_DisabledIndexUsesCacheScan(t *testing.T) {
	jobA := pubJob("A", "Designer")
	jobs := &fakeJobRepo{
		jobs:   map[string]domain.Job{"A": jobA},
		kwHits: []job.KeywordHit{{ID: "A"}},
		recent: []domain.Job{jobA},
	}
	cache := &fakeCache{vectors: map[string][]float32{"job::A": {1, 0}}}
	index := &fakeIndex{enabled: false}
	s := New(jobs, &fakeProfileRepo{}, cache, &fakeVec{vec: []float32{1, 0}}, index, nil, Config{}, zap.NewNop())

	res, err := s.SearchJobs(context.Background(), JobQuery{Text: "designer"})
	if err != nil {
		t.Fatal(err)
	}
	if index.queries != 0 {
		t.Error("disabled index must not be queried")
	}
	if res.Meta.Source != SourceCacheKeyword || res.Meta.IndexDegraded {
		t.Errorf("meta = %+v", res.Meta)
	}
	approx(t, res.Hits[0].SemanticScore, 1.0, "semantic score")
}

func TestSearchJobs_MissingCachedVectorTriggersSelfHeal(t *testing.T) {
	jobA, jobD := pubJob("A", "Designer"), pubJob("D", "Illustrator")
	jobs := &fakeJobRepo{
		jobs:   map[string]domain.Job{"A": jobA, "D": jobD},
		kwHits: []job.KeywordHit{{ID: "A"}},
		recent: []domain.Job{jobA, jobD},
	}
	cache := &fakeCache{vectors: map[string][]float32{"job::A": {1}}}
	notify := &fakeNotifier{}
	s := New(jobs, &fakeProfileRepo{}, cache, &fakeVec{vec: []float32{1}}, &fakeIndex{}, notify, Config{}, zap.NewNop())

	if _, err := s.SearchJobs(context.Background(), JobQuery{Text: "designer"}); err != nil {
		t.Fatal(err)
	}
	if len(notify.notified) != 1 || notify.notified[0] != "job::D" {
		t.Errorf("notified = %v", notify.notified)
	}
}

func TestSearchJobs_SemanticOnlyIneligibleDropped(t *testing.T) {
	draft := pubJob("B", "Hidden Draft")
	draft.Status = domain.JobStatusDraft
	jobs := &fakeJobRepo{
		jobs:   map[string]domain.Job{"A": pubJob("A", "Designer"), "B": draft},
		kwHits: []job.KeywordHit{{ID: "A"}},
	}
	index := &fakeIndex{enabled: true, result: pinecone.QueryResult{
		Matches: []pinecone.Match{{ID: "job::B", Score: 0.95}},
	}}
	s := New(jobs, &fakeProfileRepo{}, &fakeCache{}, &fakeVec{vec: []float32{1}}, index, nil, Config{}, zap.NewNop())

	res, err := s.SearchJobs(context.Background(), JobQuery{Text: "designer"})
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range res.Hits {
		if h.Job.ID == "B" {
			t.Error("ineligible semantic-only hit survived fusion")
		}
	}
}

func TestSearchJobs_EmptyQueryUsesRecency(t *testing.T) {
	older, newer := pubJob("old", "First"), pubJob("new", "Second")
	jobs := &fakeJobRepo{
		jobs:   map[string]domain.Job{"old": older, "new": newer},
		recent: []domain.Job{newer, older},
	}
	s := New(jobs, &fakeProfileRepo{}, &fakeCache{}, &fakeVec{vec: []float32{1}}, &fakeIndex{}, nil, Config{}, zap.NewNop())

	res, err := s.SearchJobs(context.Background(), JobQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 2 || res.Hits[0].Job.ID != "new" {
		t.Errorf("hits = %+v", res.Hits)
	}
	if res.Meta.Source != SourceKeywordOnly {
		t.Errorf("source = %s", res.Meta.Source)
	}
}

func TestSearchJobs_BlankQuerySkipsSemanticPhase(t *testing.T) {
	vec := vectorize.New(nil, vectorize.Config{Dimension: 8}, zap.NewNop())
	jobA := pubJob("A", "Senior Product Designer")
	jobs := &fakeJobRepo{
		jobs:   map[string]domain.Job{"A": jobA},
		recent: []domain.Job{jobA},
	}
	cache := &fakeCache{vectors: map[string][]float32{
		"job::A": vec.EmbedText(context.Background(), domain.Corpus(jobA)).Vector,
	}}
	s := New(jobs, &fakeProfileRepo{}, cache, vec, &fakeIndex{}, nil, Config{}, zap.NewNop())

	res, err := s.SearchJobs(context.Background(), JobQuery{Text: "   "})
	if err != nil {
		t.Fatal(err)
	}
	if res.Meta.Source != SourceKeywordOnly {
		t.Errorf("source = %s, want %s", res.Meta.Source, SourceKeywordOnly)
	}
	if res.Meta.SemanticCandidates != 0 {
		t.Errorf("semantic candidates = %d, want 0", res.Meta.SemanticCandidates)
	}
	if len(res.Hits) != 1 {
		t.Fatalf("hits = %+v", res.Hits)
	}
	if res.Hits[0].SemanticScore != 0 {
		t.Errorf("semantic score = %f, want 0", res.Hits[0].SemanticScore)
	}
}

func TestSearchJobs_BlankQueryWithContextUsesContextVector(t *testing.T) {
	jobA := pubJob("A", "Designer")
	jobs := &fakeJobRepo{
		jobs:   map[string]domain.Job{"A": jobA},
		recent: []domain.Job{jobA},
	}
	cache := &fakeCache{vectors: map[string][]float32{
		"job::A":     {1, 0},
		"profile::P": {1, 0},
	}}
	fv := &fakeVec{vec: []float32{0, 1}}
	s := New(jobs, &fakeProfileRepo{}, cache, fv, &fakeIndex{}, nil, Config{}, zap.NewNop())

	res, err := s.SearchJobs(context.Background(), JobQuery{Text: " ", ProfileContext: "P"})
	if err != nil {
		t.Fatal(err)
	}
	if fv.calls != 0 {
		t.Errorf("vectorizer called %d times for blank text", fv.calls)
	}
	if res.Meta.Source != SourceCacheKeyword {
		t.Errorf("source = %s", res.Meta.Source)
	}
	if len(res.Hits) != 1 {
		t.Fatalf("hits = %+v", res.Hits)
	}
	approx(t, res.Hits[0].SemanticScore, 1.0, "context-only semantic score")
}

func TestSearchJobs_NonPositiveSemanticScoresDiscarded(t *testing.T) {
	jobA := pubJob("A", "Opposite Direction")
	jobs := &fakeJobRepo{
		jobs:   map[string]domain.Job{"A": jobA},
		recent: []domain.Job{jobA},
	}
	cache := &fakeCache{vectors: map[string][]float32{"job::A": {-1, 0}}}
	s := New(jobs, &fakeProfileRepo{}, cache, &fakeVec{vec: []float32{1, 0}}, &fakeIndex{}, nil, Config{}, zap.NewNop())

	res, err := s.SearchJobs(context.Background(), JobQuery{Text: "quantum"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Meta.SemanticCandidates != 0 {
		t.Errorf("semantic candidates = %d, want 0", res.Meta.SemanticCandidates)
	}
	if res.Meta.Source != SourceKeywordOnly {
		t.Errorf("source = %s, want %s", res.Meta.Source, SourceKeywordOnly)
	}
	if len(res.Hits) != 0 {
		t.Errorf("zero-similarity job surfaced: %+v", res.Hits)
	}
}

func TestSearchJobs_DesignerProfileScenario(t *testing.T) {
	ctx := context.Background()
	vec := vectorize.New(nil, vectorize.Config{Dimension: 64}, zap.NewNop())

	jobA := pubJob("A", "Senior Product Designer")
	jobA.Summary = "Design digital products end to end"
	jobB := pubJob("B", "Backend Engineer")
	jobB.Category = "engineering"
	jobB.Skills = []string{"go"}
	designer := domain.CreativeProfile{
		ID: "P", DisplayName: "Ayu", Tagline: "Product designer",
		Bio:    "Ten years designing digital products",
		Skills: []string{"figma", "product design"}, Available: true,
	}

	jobs := &fakeJobRepo{
		jobs:   map[string]domain.Job{"A": jobA, "B": jobB},
		kwHits: []job.KeywordHit{{ID: "A", Score: 2.0}},
		recent: []domain.Job{jobA, jobB},
	}
	cache := &fakeCache{vectors: map[string][]float32{
		"job::A":     vec.EmbedText(ctx, domain.Corpus(jobA)).Vector,
		"job::B":     vec.EmbedText(ctx, domain.Corpus(jobB)).Vector,
		"profile::P": vec.EmbedText(ctx, domain.Corpus(designer)).Vector,
	}}
	s := New(jobs, &fakeProfileRepo{}, cache, vec, &fakeIndex{}, nil, Config{}, zap.NewNop())

	res, err := s.SearchJobs(ctx, JobQuery{
		Text:           "product designer",
		ProfileContext: "P",
		Limit:          5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) == 0 || res.Hits[0].Job.ID != "A" {
		t.Fatalf("hits = %+v, want the designer job first", res.Hits)
	}
	if res.Meta.Source != SourceCacheKeyword {
		t.Errorf("source = %s, want %s", res.Meta.Source, SourceCacheKeyword)
	}
	top := res.Hits[0]
	if top.KeywordRank == nil || *top.KeywordRank != 1 {
		t.Errorf("keyword rank = %v, want 1", top.KeywordRank)
	}
	if top.SemanticScore <= 0 {
		t.Errorf("semantic score = %f, want > 0", top.SemanticScore)
	}
	for _, h := range res.Hits[1:] {
		if h.Job.ID == "B" && h.KeywordRank != nil {
			t.Errorf("semantic-only hit carries keyword rank %d", *h.KeywordRank)
		}
	}
}

func TestSearchJobs_KeywordFailureSubstringFallback(t *testing.T) {
	match := pubJob("A", "Brand Designer")
	miss := pubJob("B", "Backend Engineer")
	jobs := &fakeJobRepo{
		jobs:   map[string]domain.Job{"A": match, "B": miss},
		kwErr:  errors.New("FT down"),
		recent: []domain.Job{match, miss},
	}
	s := New(jobs, &fakeProfileRepo{}, &fakeCache{}, &fakeVec{vec: []float32{1}}, &fakeIndex{}, nil, Config{}, zap.NewNop())

	res, err := s.SearchJobs(context.Background(), JobQuery{Text: "designer"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 || res.Hits[0].Job.ID != "A" {
		t.Errorf("hits = %+v", res.Hits)
	}
}

func TestSearchJobs_LimitsClamped(t *testing.T) {
	jobs := &fakeJobRepo{
		jobs:   map[string]domain.Job{"A": pubJob("A", "x"), "B": pubJob("B", "y")},
		kwHits: []job.KeywordHit{{ID: "A"}, {ID: "B"}},
	}
	s := New(jobs, &fakeProfileRepo{}, &fakeCache{}, &fakeVec{vec: []float32{1}}, &fakeIndex{}, nil, Config{}, zap.NewNop())

	res, err := s.SearchJobs(context.Background(), JobQuery{Text: "x", Limit: -5, SemanticLimit: 500})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 {
		t.Errorf("negative limit should clamp to 1, got %d hits", len(res.Hits))
	}
	if res.Meta.SemanticLimit != 50 {
		t.Errorf("semantic limit = %d, want ceiling 50", res.Meta.SemanticLimit)
	}
}

func TestSearchCreatives_FusionWeights(t *testing.T) {
	p1 := domain.CreativeProfile{
		ID: "p1", DisplayName: "Ayu", Skills: []string{"branding"},
		ExperienceLevel: "senior", Available: true, UpdatedAt: time.Now(),
	}
	profiles := &fakeProfileRepo{
		profiles: map[string]domain.CreativeProfile{"p1": p1},
		kwHits:   []profile.KeywordHit{{ID: "p1", Score: 2.0}},
	}
	index := &fakeIndex{enabled: true, result: pinecone.QueryResult{
		Matches: []pinecone.Match{{ID: "profile::p1", Score: 0.8}},
	}}
	s := New(&fakeJobRepo{}, profiles, &fakeCache{}, &fakeVec{vec: []float32{1}}, index, nil, Config{}, zap.NewNop())

	res, err := s.SearchCreatives(context.Background(), CreativeQuery{Text: "brand designer"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 {
		t.Fatalf("hits = %+v", res.Hits)
	}
	approx(t, res.Hits[0].Score, 0.7*0.8+0.3*1.0, "creative score")
	if f := index.lastOpts.Filter; f["entity_kind"] == nil {
		t.Errorf("filter = %+v", f)
	}
}

func TestSearchCreatives_JobContextBlendsQueryVector(t *testing.T) {
	profiles := &fakeProfileRepo{profiles: map[string]domain.CreativeProfile{}}
	cache := &fakeCache{vectors: map[string][]float32{"job::j1": {0, 1}}}
	index := &fakeIndex{enabled: true}
	s := New(&fakeJobRepo{}, profiles, cache, &fakeVec{vec: []float32{1, 0}}, index, nil, Config{}, zap.NewNop())

	if _, err := s.SearchCreatives(context.Background(), CreativeQuery{Text: "x", JobContext: "j1"}); err != nil {
		t.Fatal(err)
	}
	// Blend of (1,0) and (0,1), normalized: both components equal and non-zero.
	if index.queries != 1 {
		t.Fatal("index not queried")
	}
}

func TestFuseScores_StableTieBreakByKeywordRank(t *testing.T) {
	// Totals tie at 0.6: a = 0.5*0.2 + 0.5*1.0, b = 0.5*0.7 + 0.5*0.5.
	fused := fuseScores([]string{"a", "b"}, map[string]float64{"a": 0.2, "b": 0.7}, 0.5, 10)
	if len(fused) != 2 {
		t.Fatal("missing candidates")
	}
	if fused[0].score != fused[1].score {
		t.Fatalf("expected a tie, got %f and %f", fused[0].score, fused[1].score)
	}
	if fused[0].id != "a" {
		t.Errorf("tie should fall to the earlier keyword rank, order = %s, %s", fused[0].id, fused[1].id)
	}
}
