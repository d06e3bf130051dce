// Package job persists job postings and serves the keyword side of hybrid
// job search via the store's FT index.
package job

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adhika16/smart-matching-platform-sub000/internal/db"
	"github.com/adhika16/smart-matching-platform-sub000/internal/domain"
)

const (
	keyPrefix = domain.KeyPrefix + "job:"
	indexName = "idx:" + domain.KeyPrefix + "jobs"

	skillsSeparator = ","
)

// store is the consumer interface for the job repository (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
}

// KeywordHit is a single ranked keyword match.
type KeywordHit struct {
	ID    string
	Score float64
}

// Repository stores jobs as hashes with a parallel FT index for keyword
// search and recency listing.
type Repository struct {
	store  store
	logger *zap.Logger
}

// New creates a job repository.
func New(s store, logger *zap.Logger) *Repository {
	return &Repository{store: s, logger: logger}
}

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repository) EnsureIndex(ctx context.Context) error {
	def, err := db.NewIndex(indexName).
		Prefix(keyPrefix).
		Text("__content").
		Tag("status").
		Tag("category").
		TagSep("skills", skillsSeparator).
		Tag("location").
		Tag("remote").
		SortableNumeric("updated_at").
		Build()
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && err != db.ErrIndexExists {
		return fmt.Errorf("create job index: %w", err)
	}
	return nil
}

// Put stores a job, refreshing the derived keyword corpus field.
func (r *Repository) Put(ctx context.Context, j domain.Job) error {
	if j.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if err := r.store.HSet(ctx, keyPrefix+j.ID, hashFields(j)); err != nil {
		return fmt.Errorf("store job: %w", err)
	}
	return nil
}

// Get loads a job by id.
func (r *Repository) Get(ctx context.Context, id string) (domain.Job, error) {
	fields, err := r.store.HGetAll(ctx, keyPrefix+id)
	if err != nil {
		return domain.Job{}, fmt.Errorf("load job: %w", err)
	}
	if len(fields) == 0 {
		return domain.Job{}, domain.ErrNotFound
	}
	return parseJob(id, fields), nil
}

// GetMulti loads jobs by ids in one round-trip, skipping missing ones.
func (r *Repository) GetMulti(ctx context.Context, ids []string) ([]domain.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + id
	}
	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	out := make([]domain.Job, 0, len(rows))
	for i, fields := range rows {
		if len(fields) == 0 {
			continue
		}
		out = append(out, parseJob(ids[i], fields))
	}
	return out, nil
}

// Delete removes a job hash (the FT index drops the entry automatically).
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, keyPrefix+id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

// SearchKeyword runs a BM25-ranked keyword lookup scoped to published jobs
// with the structured filters applied.
func (r *Repository) SearchKeyword(ctx context.Context, query string, f domain.JobFilters, limit int) ([]KeywordHit, error) {
	res, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    indexName,
		Query:        query,
		Filter:       filterClause(f, true),
		TextField:    "__content",
		TopK:         limit,
		ReturnFields: []string{"status"},
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	hits := make([]KeywordHit, 0, len(res.Entries))
	for _, e := range res.Entries {
		hits = append(hits, KeywordHit{ID: strings.TrimPrefix(e.Key, keyPrefix), Score: e.Score})
	}
	return hits, nil
}

// ListRecent returns published jobs ordered by most recent update, filters
// applied. When the FT index is unavailable it degrades to a key scan with
// in-process filtering so the search path never fails outright.
func (r *Repository) ListRecent(ctx context.Context, f domain.JobFilters, limit int) ([]domain.Job, error) {
	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName: indexName,
		Filter:    filterClause(f, true),
		SortBy:    "updated_at",
		SortDesc:  true,
		Offset:    0,
		Limit:     limit,
	})
	if err == nil {
		ids := make([]string, 0, len(res.Entries))
		for _, e := range res.Entries {
			ids = append(ids, strings.TrimPrefix(e.Key, keyPrefix))
		}
		return r.GetMulti(ctx, ids)
	}

	r.logger.Warn("job FT listing unavailable, falling back to scan", zap.Error(err))
	return r.scanRecent(ctx, f, limit)
}

// PageIDs pages through every stored job id (any status) for bulk rebuild.
func (r *Repository) PageIDs(ctx context.Context, offset, limit int) ([]string, int, error) {
	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    indexName,
		Filter:       "*",
		SortBy:       "updated_at",
		SortDesc:     false,
		Offset:       offset,
		Limit:        limit,
		ReturnFields: []string{"status"},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("page jobs: %w", err)
	}
	ids := make([]string, 0, len(res.Entries))
	for _, e := range res.Entries {
		ids = append(ids, strings.TrimPrefix(e.Key, keyPrefix))
	}
	return ids, res.Total, nil
}

func (r *Repository) scanRecent(ctx context.Context, f domain.JobFilters, limit int) ([]domain.Job, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan jobs: %w", err)
	}
	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}

	jobs := make([]domain.Job, 0, len(rows))
	for i, fields := range rows {
		if len(fields) == 0 {
			continue
		}
		j := parseJob(strings.TrimPrefix(keys[i], keyPrefix), fields)
		if j.ShouldBeSearchable() && f.Match(j) {
			jobs = append(jobs, j)
		}
	}
	sort.SliceStable(jobs, func(a, b int) bool {
		return jobs[a].UpdatedAt.After(jobs[b].UpdatedAt)
	})
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// filterClause translates structured job filters into an FT pre-filter.
// eligibleOnly ANDs the published-status clause used by search paths.
func filterClause(f domain.JobFilters, eligibleOnly bool) string {
	var clauses []string
	if eligibleOnly {
		clauses = append(clauses, db.TagClause("status", domain.JobStatusPublished))
	}
	if f.Category != "" {
		clauses = append(clauses, db.TagClause("category", f.Category))
	}
	if len(f.Skills) > 0 {
		clauses = append(clauses, db.TagAnyClause("skills", f.Skills))
	}
	if f.Location != "" {
		clauses = append(clauses, db.TagClause("location", f.Location))
	}
	if f.Remote != nil {
		clauses = append(clauses, db.TagClause("remote", strconv.FormatBool(*f.Remote)))
	}
	return db.AndClauses(clauses...)
}

func hashFields(j domain.Job) map[string]string {
	return map[string]string{
		"title":        j.Title,
		"summary":      j.Summary,
		"description":  j.Description,
		"category":     j.Category,
		"skills":       strings.Join(j.Skills, skillsSeparator),
		"location":     j.Location,
		"remote":       strconv.FormatBool(j.Remote),
		"status":       j.Status,
		"published_at": strconv.FormatInt(j.PublishedAt.Unix(), 10),
		"updated_at":   strconv.FormatInt(j.UpdatedAt.Unix(), 10),
		"__content":    domain.Corpus(j),
	}
}

func parseJob(id string, fields map[string]string) domain.Job {
	remote, _ := strconv.ParseBool(fields["remote"])
	publishedAt, _ := strconv.ParseInt(fields["published_at"], 10, 64)
	updatedAt, _ := strconv.ParseInt(fields["updated_at"], 10, 64)

	var skills []string
	if raw := fields["skills"]; raw != "" {
		skills = strings.Split(raw, skillsSeparator)
	}

	return domain.Job{
		ID:          id,
		Title:       fields["title"],
		Summary:     fields["summary"],
		Description: fields["description"],
		Category:    fields["category"],
		Skills:      skills,
		Location:    fields["location"],
		Remote:      remote,
		Status:      fields["status"],
		PublishedAt: time.Unix(publishedAt, 0).UTC(),
		UpdatedAt:   time.Unix(updatedAt, 0).UTC(),
	}
}
