// Package match is the hybrid search engine: BM25 keyword retrieval fused
// with vector similarity, degrading phase by phase so a request always gets
// an answer.
package match

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/adhika16/smart-matching-platform-sub000/internal/domain"
	"github.com/adhika16/smart-matching-platform-sub000/internal/domain/vector"
	"github.com/adhika16/smart-matching-platform-sub000/internal/metrics"
	"github.com/adhika16/smart-matching-platform-sub000/internal/repository/job"
	"github.com/adhika16/smart-matching-platform-sub000/internal/repository/profile"
	"github.com/adhika16/smart-matching-platform-sub000/internal/transport/pinecone"
)

// Fusion sources reported in result meta.
const (
	SourceIndexKeyword = "index+keyword"
	SourceCacheKeyword = "cache+keyword"
	SourceKeywordOnly  = "keyword-only"
)

// cacheScanFactor bounds the candidate pool of the cache-scan semantic
// fallback relative to the semantic limit.
const cacheScanFactor = 3

type jobRepo interface {
	GetMulti(ctx context.Context, ids []string) ([]domain.Job, error)
	SearchKeyword(ctx context.Context, query string, f domain.JobFilters, limit int) ([]job.KeywordHit, error)
	ListRecent(ctx context.Context, f domain.JobFilters, limit int) ([]domain.Job, error)
}

type profileRepo interface {
	GetMulti(ctx context.Context, ids []string) ([]domain.CreativeProfile, error)
	SearchKeyword(ctx context.Context, query string, f domain.ProfileFilters, limit int) ([]profile.KeywordHit, error)
	ListRecent(ctx context.Context, f domain.ProfileFilters, limit int) ([]domain.CreativeProfile, error)
}

type vectorCache interface {
	Get(ctx context.Context, kind domain.Kind, id string) (domain.EmbeddingRecord, error)
	GetMulti(ctx context.Context, kind domain.Kind, ids []string) (map[string]domain.EmbeddingRecord, error)
}

type vectorizer interface {
	Embed(ctx context.Context, text string, dims ...int) []float32
}

type indexClient interface {
	Enabled() bool
	Simulated() bool
	Query(ctx context.Context, vec []float32, opts pinecone.QueryOpts) pinecone.QueryResult
}

// notifier schedules self-heal syncs for entities found without a cached
// vector during the semantic fallback.
type notifier interface {
	NotifyUpserted(kind domain.Kind, id string)
}

// Config holds fusion weights and limit ceilings.
type Config struct {
	JobSemanticWeight     float64
	ProfileSemanticWeight float64
	MaxResults            int
	MaxSemanticJobs       int
	MaxSemanticProfiles   int
}

func (c *Config) applyDefaults() {
	if c.JobSemanticWeight <= 0 || c.JobSemanticWeight >= 1 {
		c.JobSemanticWeight = 0.65
	}
	if c.ProfileSemanticWeight <= 0 || c.ProfileSemanticWeight >= 1 {
		c.ProfileSemanticWeight = 0.7
	}
	if c.MaxResults < 1 {
		c.MaxResults = 25
	}
	if c.MaxSemanticJobs < 1 {
		c.MaxSemanticJobs = 50
	}
	if c.MaxSemanticProfiles < 1 {
		c.MaxSemanticProfiles = 25
	}
}

// JobQuery is a hybrid job search request. ProfileContext optionally names a
// creative profile whose cached vector personalizes the query vector.
type JobQuery struct {
	Text           string
	Filters        domain.JobFilters
	Limit          int
	SemanticLimit  int
	ProfileContext string
}

// CreativeQuery is a hybrid creative search request. JobContext optionally
// names a job whose cached vector personalizes the query vector.
type CreativeQuery struct {
	Text          string
	Filters       domain.ProfileFilters
	Limit         int
	SemanticLimit int
	JobContext    string
}

// Meta describes how a search result was produced.
type Meta struct {
	Source             string `json:"source"`
	IndexDegraded      bool   `json:"index_degraded"`
	KeywordCandidates  int    `json:"keyword_candidates"`
	SemanticCandidates int    `json:"semantic_candidates"`
	SemanticLimit      int    `json:"semantic_limit"`
}

// JobHit is one fused job result. KeywordRank is the 1-based position in the
// keyword phase, nil for semantic-only hits.
type JobHit struct {
	Job           domain.Job `json:"job"`
	Score         float64    `json:"score"`
	SemanticScore float64    `json:"semantic_score"`
	KeywordScore  float64    `json:"keyword_score"`
	KeywordRank   *int       `json:"keyword_rank,omitempty"`
}

// JobSearchResult is the response of SearchJobs.
type JobSearchResult struct {
	Hits []JobHit `json:"hits"`
	Meta Meta     `json:"meta"`
}

// CreativeHit is one fused profile result. KeywordRank mirrors JobHit.
type CreativeHit struct {
	Profile       domain.CreativeProfile `json:"profile"`
	Score         float64                `json:"score"`
	SemanticScore float64                `json:"semantic_score"`
	KeywordScore  float64                `json:"keyword_score"`
	KeywordRank   *int                   `json:"keyword_rank,omitempty"`
}

// CreativeSearchResult is the response of SearchCreatives.
type CreativeSearchResult struct {
	Hits []CreativeHit `json:"hits"`
	Meta Meta          `json:"meta"`
}

// Service runs hybrid searches over jobs and creative profiles.
type Service struct {
	jobs     jobRepo
	profiles profileRepo
	cache    vectorCache
	vec      vectorizer
	index    indexClient
	notify   notifier
	cfg      Config
	logger   *zap.Logger
}

// New creates the search engine. notify may be nil when self-heal dispatch
// is not wired (tests, CLI).
func New(jobs jobRepo, profiles profileRepo, cache vectorCache, v vectorizer,
	index indexClient, notify notifier, cfg Config, logger *zap.Logger) *Service {
	cfg.applyDefaults()
	return &Service{
		jobs:     jobs,
		profiles: profiles,
		cache:    cache,
		vec:      v,
		index:    index,
		notify:   notify,
		cfg:      cfg,
		logger:   logger,
	}
}

// SearchJobs runs the hybrid pipeline for job postings.
func (s *Service) SearchJobs(ctx context.Context, q JobQuery) (JobSearchResult, error) {
	limit := clamp(q.Limit, 1, s.cfg.MaxResults, s.cfg.MaxResults)
	semLimit := clamp(q.SemanticLimit, 1, s.cfg.MaxSemanticJobs, min(2*limit, s.cfg.MaxSemanticJobs))
	text := strings.TrimSpace(q.Text)

	// Phase 1: keyword retrieval.
	kwIDs, jobByID, err := s.jobKeywordPhase(ctx, text, q.Filters, limit)
	if err != nil {
		return JobSearchResult{}, err
	}

	// Phase 2: query vector, personalized by the context profile when cached.
	queryVec := s.queryVector(ctx, text, domain.KindProfile, q.ProfileContext)

	// Phase 3: semantic candidates.
	sem, source, degraded := s.semanticPhase(ctx, queryVec, semLimit, domain.KindJob,
		jobIndexFilter(q.Filters),
		func(scanCtx context.Context, n int) (map[string][]float32, error) {
			recent, err := s.jobs.ListRecent(scanCtx, q.Filters, n)
			if err != nil {
				return nil, err
			}
			ids := make([]string, len(recent))
			for i, j := range recent {
				ids[i] = j.ID
				jobByID[j.ID] = j
			}
			return s.cachedVectors(scanCtx, domain.KindJob, ids)
		})

	// Drop semantic-only candidates that are missing, ineligible, or filtered.
	semOnly := missingFrom(sem, kwIDs)
	if len(semOnly) > 0 {
		fetched, err := s.jobs.GetMulti(ctx, semOnly)
		if err != nil {
			return JobSearchResult{}, err
		}
		for _, j := range fetched {
			jobByID[j.ID] = j
		}
		for _, id := range semOnly {
			j, ok := jobByID[id]
			if !ok || !j.ShouldBeSearchable() || !q.Filters.Match(j) {
				delete(sem, id)
			}
		}
	}

	fused := fuseScores(kwIDs, sem, s.cfg.JobSemanticWeight, limit)
	meta := Meta{
		Source:             resolveSource(source, len(sem)),
		IndexDegraded:      degraded,
		KeywordCandidates:  len(kwIDs),
		SemanticCandidates: len(sem),
		SemanticLimit:      semLimit,
	}
	metrics.SearchRequestsTotal.WithLabelValues("jobs", meta.Source).Inc()

	// Hydrate whatever the earlier phases did not load.
	if err := s.hydrateJobs(ctx, fused, jobByID); err != nil {
		return JobSearchResult{}, err
	}

	hits := make([]JobHit, 0, len(fused))
	for _, c := range fused {
		j, ok := jobByID[c.id]
		if !ok {
			continue
		}
		hits = append(hits, JobHit{
			Job:           j,
			Score:         c.score,
			SemanticScore: c.sem,
			KeywordScore:  c.kw,
			KeywordRank:   keywordRank(c),
		})
	}
	return JobSearchResult{Hits: hits, Meta: meta}, nil
}

// SearchCreatives runs the hybrid pipeline for creative profiles.
func (s *Service) SearchCreatives(ctx context.Context, q CreativeQuery) (CreativeSearchResult, error) {
	limit := clamp(q.Limit, 1, s.cfg.MaxResults, s.cfg.MaxResults)
	semLimit := clamp(q.SemanticLimit, 1, s.cfg.MaxSemanticProfiles, min(2*limit, s.cfg.MaxSemanticProfiles))
	text := strings.TrimSpace(q.Text)

	kwIDs, profByID, err := s.profileKeywordPhase(ctx, text, q.Filters, limit)
	if err != nil {
		return CreativeSearchResult{}, err
	}

	queryVec := s.queryVector(ctx, text, domain.KindJob, q.JobContext)

	sem, source, degraded := s.semanticPhase(ctx, queryVec, semLimit, domain.KindProfile,
		profileIndexFilter(q.Filters),
		func(scanCtx context.Context, n int) (map[string][]float32, error) {
			recent, err := s.profiles.ListRecent(scanCtx, q.Filters, n)
			if err != nil {
				return nil, err
			}
			ids := make([]string, len(recent))
			for i, p := range recent {
				ids[i] = p.ID
				profByID[p.ID] = p
			}
			return s.cachedVectors(scanCtx, domain.KindProfile, ids)
		})

	semOnly := missingFrom(sem, kwIDs)
	if len(semOnly) > 0 {
		fetched, err := s.profiles.GetMulti(ctx, semOnly)
		if err != nil {
			return CreativeSearchResult{}, err
		}
		for _, p := range fetched {
			profByID[p.ID] = p
		}
		for _, id := range semOnly {
			p, ok := profByID[id]
			if !ok || !p.ShouldBeSearchable() || !q.Filters.Match(p) {
				delete(sem, id)
			}
		}
	}

	fused := fuseScores(kwIDs, sem, s.cfg.ProfileSemanticWeight, limit)
	meta := Meta{
		Source:             resolveSource(source, len(sem)),
		IndexDegraded:      degraded,
		KeywordCandidates:  len(kwIDs),
		SemanticCandidates: len(sem),
		SemanticLimit:      semLimit,
	}
	metrics.SearchRequestsTotal.WithLabelValues("creatives", meta.Source).Inc()

	if err := s.hydrateProfiles(ctx, fused, profByID); err != nil {
		return CreativeSearchResult{}, err
	}

	hits := make([]CreativeHit, 0, len(fused))
	for _, c := range fused {
		p, ok := profByID[c.id]
		if !ok {
			continue
		}
		hits = append(hits, CreativeHit{
			Profile:       p,
			Score:         c.score,
			SemanticScore: c.sem,
			KeywordScore:  c.kw,
			KeywordRank:   keywordRank(c),
		})
	}
	return CreativeSearchResult{Hits: hits, Meta: meta}, nil
}

// jobKeywordPhase returns ranked keyword candidate ids. An empty query lists
// recent eligible jobs; a failing FT search degrades to a substring scan.
func (s *Service) jobKeywordPhase(ctx context.Context, text string, f domain.JobFilters, limit int) ([]string, map[string]domain.Job, error) {
	byID := make(map[string]domain.Job)

	if text == "" {
		recent, err := s.jobs.ListRecent(ctx, f, limit)
		if err != nil {
			return nil, nil, err
		}
		ids := make([]string, len(recent))
		for i, j := range recent {
			ids[i] = j.ID
			byID[j.ID] = j
		}
		return ids, byID, nil
	}

	hits, err := s.jobs.SearchKeyword(ctx, text, f, limit)
	if err == nil {
		ids := make([]string, len(hits))
		for i, h := range hits {
			ids[i] = h.ID
		}
		return ids, byID, nil
	}

	s.logger.Warn("keyword search degraded to substring scan", zap.Error(err))
	recent, err := s.jobs.ListRecent(ctx, f, cacheScanFactor*limit)
	if err != nil {
		return nil, nil, err
	}
	var ids []string
	for _, j := range recent {
		if len(ids) >= limit {
			break
		}
		if containsAnyToken(domain.Corpus(j), text) {
			ids = append(ids, j.ID)
			byID[j.ID] = j
		}
	}
	return ids, byID, nil
}

func (s *Service) profileKeywordPhase(ctx context.Context, text string, f domain.ProfileFilters, limit int) ([]string, map[string]domain.CreativeProfile, error) {
	byID := make(map[string]domain.CreativeProfile)

	if text == "" {
		recent, err := s.profiles.ListRecent(ctx, f, limit)
		if err != nil {
			return nil, nil, err
		}
		ids := make([]string, len(recent))
		for i, p := range recent {
			ids[i] = p.ID
			byID[p.ID] = p
		}
		return ids, byID, nil
	}

	hits, err := s.profiles.SearchKeyword(ctx, text, f, limit)
	if err == nil {
		ids := make([]string, len(hits))
		for i, h := range hits {
			ids[i] = h.ID
		}
		return ids, byID, nil
	}

	s.logger.Warn("keyword search degraded to substring scan", zap.Error(err))
	recent, err := s.profiles.ListRecent(ctx, f, cacheScanFactor*limit)
	if err != nil {
		return nil, nil, err
	}
	var ids []string
	for _, p := range recent {
		if len(ids) >= limit {
			break
		}
		if containsAnyToken(domain.Corpus(p), text) {
			ids = append(ids, p.ID)
			byID[p.ID] = p
		}
	}
	return ids, byID, nil
}

// queryVector embeds non-empty query text and blends in the context entity's
// cached vector when one exists. Blank text never reaches the vectorizer:
// with a context vector the context alone drives the semantic phase, and with
// neither source the result is nil and the semantic phase is skipped.
func (s *Service) queryVector(ctx context.Context, text string, contextKind domain.Kind, contextID string) []float32 {
	var vec []float32
	if text != "" {
		vec = s.vec.Embed(ctx, text)
	}
	if contextID == "" {
		return vec
	}
	rec, err := s.cache.Get(ctx, contextKind, contextID)
	if err != nil {
		s.logger.Debug("context vector unavailable",
			zap.String("kind", string(contextKind)), zap.String("id", contextID))
		return vec
	}
	if len(vec) == 0 {
		return rec.Vector
	}
	blended := vector.Average(vec, rec.Vector)
	vector.Normalize(blended)
	return blended
}

// semanticPhase returns semantic scores keyed by entity id. The external
// index is preferred; disabled, simulated, and degraded index states all
// fall back to scoring cached vectors of recent candidates.
func (s *Service) semanticPhase(ctx context.Context, queryVec []float32, semLimit int,
	kind domain.Kind, filter pinecone.Filter,
	scanVectors func(ctx context.Context, n int) (map[string][]float32, error)) (map[string]float64, string, bool) {

	if len(queryVec) == 0 {
		return map[string]float64{}, SourceKeywordOnly, false
	}

	degraded := false
	if s.index.Enabled() && !s.index.Simulated() {
		res := s.index.Query(ctx, queryVec, pinecone.QueryOpts{
			TopK:   semLimit,
			Filter: filter,
		})
		if !res.Degraded {
			sem := make(map[string]float64, len(res.Matches))
			for _, m := range res.Matches {
				matchKind, id, err := domain.ParseCompositeID(m.ID)
				if err != nil || matchKind != kind {
					continue
				}
				score := vector.Round6(vector.Clamp01(m.Score))
				if score > sem[id] {
					sem[id] = score
				}
			}
			return sem, SourceIndexKeyword, false
		}
		degraded = true
	}

	vectors, err := scanVectors(ctx, cacheScanFactor*semLimit)
	if err != nil {
		s.logger.Warn("semantic cache scan failed", zap.Error(err))
		return map[string]float64{}, SourceKeywordOnly, degraded
	}

	sem := make(map[string]float64, len(vectors))
	for id, v := range vectors {
		score := vector.Round6(vector.Clamp01(vector.Cosine(queryVec, v)))
		if score > 0 {
			sem[id] = score
		}
	}
	trimToTop(sem, semLimit)
	return sem, SourceCacheKeyword, degraded
}

// cachedVectors loads cached vectors for the ids and schedules a self-heal
// sync for any candidate without one.
func (s *Service) cachedVectors(ctx context.Context, kind domain.Kind, ids []string) (map[string][]float32, error) {
	recs, err := s.cache.GetMulti(ctx, kind, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]float32, len(recs))
	for _, id := range ids {
		rec, ok := recs[id]
		if !ok {
			if s.notify != nil {
				s.notify.NotifyUpserted(kind, id)
			}
			continue
		}
		out[id] = rec.Vector
	}
	return out, nil
}

func (s *Service) hydrateJobs(ctx context.Context, fused []candidate, byID map[string]domain.Job) error {
	var missing []string
	for _, c := range fused {
		if _, ok := byID[c.id]; !ok {
			missing = append(missing, c.id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	fetched, err := s.jobs.GetMulti(ctx, missing)
	if err != nil {
		return err
	}
	for _, j := range fetched {
		byID[j.ID] = j
	}
	return nil
}

func (s *Service) hydrateProfiles(ctx context.Context, fused []candidate, byID map[string]domain.CreativeProfile) error {
	var missing []string
	for _, c := range fused {
		if _, ok := byID[c.id]; !ok {
			missing = append(missing, c.id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	fetched, err := s.profiles.GetMulti(ctx, missing)
	if err != nil {
		return err
	}
	for _, p := range fetched {
		byID[p.ID] = p
	}
	return nil
}

type candidate struct {
	id     string
	score  float64
	sem    float64
	kw     float64
	kwRank int
}

// fuseScores merges ranked keyword ids with semantic scores into one ranked
// list. Semantic-only entries must already be eligibility-filtered.
// keyword_score for rank i of n is 1 - i/n, so the top keyword hit scores
// 1.0 and ordering information survives the blend.
func fuseScores(kwIDs []string, sem map[string]float64, semWeight float64, limit int) []candidate {
	kwWeight := 1 - semWeight
	n := len(kwIDs)

	byID := make(map[string]*candidate, n+len(sem))
	ordered := make([]*candidate, 0, n+len(sem))

	for i, id := range kwIDs {
		c := &candidate{
			id:     id,
			kw:     1 - float64(i)/float64(max(n, 1)),
			kwRank: i,
		}
		byID[id] = c
		ordered = append(ordered, c)
	}
	for id, score := range sem {
		c, ok := byID[id]
		if !ok {
			c = &candidate{id: id, kwRank: math.MaxInt}
			byID[id] = c
			ordered = append(ordered, c)
		}
		if score > c.sem {
			c.sem = score
		}
	}

	for _, c := range ordered {
		c.sem = vector.Round6(vector.Clamp01(c.sem))
		c.kw = vector.Round6(vector.Clamp01(c.kw))
		c.score = vector.Round6(semWeight*c.sem + kwWeight*c.kw)
	}

	sort.SliceStable(ordered, func(a, b int) bool {
		if ordered[a].score != ordered[b].score {
			return ordered[a].score > ordered[b].score
		}
		return ordered[a].kwRank < ordered[b].kwRank
	})

	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	out := make([]candidate, len(ordered))
	for i, c := range ordered {
		out[i] = *c
	}
	return out
}

// jobIndexFilter translates structured job filters into the index filter
// language, always pinning the entity kind and published status.
func jobIndexFilter(f domain.JobFilters) pinecone.Filter {
	filter := pinecone.Filter{
		"entity_kind": pinecone.Eq(string(domain.KindJob)),
		"status":      pinecone.Eq(domain.JobStatusPublished),
	}
	if f.Category != "" {
		filter["category"] = pinecone.Eq(f.Category)
	}
	if len(f.Skills) > 0 {
		filter["skills"] = pinecone.In(f.Skills)
	}
	return filter
}

func profileIndexFilter(f domain.ProfileFilters) pinecone.Filter {
	filter := pinecone.Filter{
		"entity_kind": pinecone.Eq(string(domain.KindProfile)),
	}
	if len(f.Skills) > 0 {
		filter["skills"] = pinecone.In(f.Skills)
	}
	if f.Location != "" {
		filter["location"] = pinecone.Eq(f.Location)
	}
	if f.ExperienceLevel != "" {
		filter["experience_level"] = pinecone.Eq(f.ExperienceLevel)
	}
	return filter
}

// keywordRank reports the 1-based keyword rank of a fused candidate, nil for
// semantic-only hits.
func keywordRank(c candidate) *int {
	if c.kwRank == math.MaxInt {
		return nil
	}
	r := c.kwRank + 1
	return &r
}

// resolveSource downgrades the phase source to keyword-only when the
// semantic phase contributed nothing.
func resolveSource(source string, semCount int) string {
	if semCount == 0 {
		return SourceKeywordOnly
	}
	return source
}

// missingFrom returns the keys of sem that are not present in ids.
func missingFrom(sem map[string]float64, ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	var out []string
	for id := range sem {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// trimToTop keeps only the highest-scoring limit entries of sem.
func trimToTop(sem map[string]float64, limit int) {
	if len(sem) <= limit {
		return
	}
	type kv struct {
		id    string
		score float64
	}
	all := make([]kv, 0, len(sem))
	for id, score := range sem {
		all = append(all, kv{id, score})
	}
	sort.Slice(all, func(a, b int) bool {
		if all[a].score != all[b].score {
			return all[a].score > all[b].score
		}
		return all[a].id < all[b].id
	})
	for _, e := range all[limit:] {
		delete(sem, e.id)
	}
}

// containsAnyToken reports whether any whitespace-separated query token
// appears in the corpus, case-insensitive.
func containsAnyToken(corpus, query string) bool {
	lc := strings.ToLower(corpus)
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		if strings.Contains(lc, tok) {
			return true
		}
	}
	return false
}

// clamp bounds v to [lo, hi], substituting def when v is unset.
func clamp(v, lo, hi, def int) int {
	if v == 0 {
		v = def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
