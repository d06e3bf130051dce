// Package profile persists creative profiles and serves the keyword side of
// hybrid creative search via the store's FT index.
package profile

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
	keyPrefix = domain.KeyPrefix + "profile:"
	indexName = "idx:" + domain.KeyPrefix + "profiles"

	skillsSeparator = ","
)

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

// Repository stores creative profiles as hashes with a parallel FT index.
type Repository struct {
	store  store
	logger *zap.Logger
}

// New creates a profile repository.
func New(s store, logger *zap.Logger) *Repository {
	return &Repository{store: s, logger: logger}
}

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repository) EnsureIndex(ctx context.Context) error {
	def, err := db.NewIndex(indexName).
		Prefix(keyPrefix).
		Text("__content").
		Tag("available").
		TagSep("skills", skillsSeparator).
		Tag("location").
		Tag("experience_level").
		SortableNumeric("updated_at").
		Build()
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && err != db.ErrIndexExists {
		return fmt.Errorf("create profile index: %w", err)
	}
	return nil
}

// Put stores a profile, refreshing the derived keyword corpus field.
func (r *Repository) Put(ctx context.Context, p domain.CreativeProfile) error {
	if p.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	if err := r.store.HSet(ctx, keyPrefix+p.ID, hashFields(p)); err != nil {
		return fmt.Errorf("store profile: %w", err)
	}
	return nil
}

// Get loads a profile by id.
func (r *Repository) Get(ctx context.Context, id string) (domain.CreativeProfile, error) {
	fields, err := r.store.HGetAll(ctx, keyPrefix+id)
	if err != nil {
		return domain.CreativeProfile{}, fmt.Errorf("load profile: %w", err)
	}
	if len(fields) == 0 {
		return domain.CreativeProfile{}, domain.ErrNotFound
	}
	return parseProfile(id, fields), nil
}

// GetMulti loads profiles by ids in one round-trip, skipping missing ones.
func (r *Repository) GetMulti(ctx context.Context, ids []string) ([]domain.CreativeProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + id
	}
	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	out := make([]domain.CreativeProfile, 0, len(rows))
	for i, fields := range rows {
		if len(fields) == 0 {
			continue
		}
		out = append(out, parseProfile(ids[i], fields))
	}
	return out, nil
}

// Delete removes a profile hash.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, keyPrefix+id); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

// SearchKeyword runs a BM25-ranked keyword lookup scoped to available
// profiles with the structured filters applied.
func (r *Repository) SearchKeyword(ctx context.Context, query string, f domain.ProfileFilters, limit int) ([]KeywordHit, error) {
	res, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    indexName,
		Query:        query,
		Filter:       filterClause(f, true),
		TextField:    "__content",
		TopK:         limit,
		ReturnFields: []string{"available"},
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

// ListRecent returns available profiles ordered by most recent update,
// degrading to a key scan when the FT index is unavailable.
func (r *Repository) ListRecent(ctx context.Context, f domain.ProfileFilters, limit int) ([]domain.CreativeProfile, error) {
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

	r.logger.Warn("profile FT listing unavailable, falling back to scan", zap.Error(err))
	return r.scanRecent(ctx, f, limit)
}

// PageIDs pages through every stored profile id (any availability) for bulk
// rebuild.
func (r *Repository) PageIDs(ctx context.Context, offset, limit int) ([]string, int, error) {
	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    indexName,
		Filter:       "*",
		SortBy:       "updated_at",
		SortDesc:     false,
		Offset:       offset,
		Limit:        limit,
		ReturnFields: []string{"available"},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("page profiles: %w", err)
	}
	ids := make([]string, 0, len(res.Entries))
	for _, e := range res.Entries {
		ids = append(ids, strings.TrimPrefix(e.Key, keyPrefix))
	}
	return ids, res.Total, nil
}

func (r *Repository) scanRecent(ctx context.Context, f domain.ProfileFilters, limit int) ([]domain.CreativeProfile, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan profiles: %w", err)
	}
	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	profiles := make([]domain.CreativeProfile, 0, len(rows))
	for i, fields := range rows {
		if len(fields) == 0 {
			continue
		}
		p := parseProfile(strings.TrimPrefix(keys[i], keyPrefix), fields)
		if p.ShouldBeSearchable() && f.Match(p) {
			profiles = append(profiles, p)
		}
	}
	sort.SliceStable(profiles, func(a, b int) bool {
		return profiles[a].UpdatedAt.After(profiles[b].UpdatedAt)
	})
	if len(profiles) > limit {
		profiles = profiles[:limit]
	}
	return profiles, nil
}

func filterClause(f domain.ProfileFilters, eligibleOnly bool) string {
	var clauses []string
	if eligibleOnly {
		clauses = append(clauses, db.TagClause("available", "true"))
	}
	if len(f.Skills) > 0 {
		clauses = append(clauses, db.TagAnyClause("skills", f.Skills))
	}
	if f.Location != "" {
		clauses = append(clauses, db.TagClause("location", f.Location))
	}
	if f.ExperienceLevel != "" {
		clauses = append(clauses, db.TagClause("experience_level", f.ExperienceLevel))
	}
	return db.AndClauses(clauses...)
}

func hashFields(p domain.CreativeProfile) map[string]string {
	return map[string]string{
		"user_id":          p.UserID,
		"display_name":     p.DisplayName,
		"tagline":          p.Tagline,
		"bio":              p.Bio,
		"skills":           strings.Join(p.Skills, skillsSeparator),
		"location":         p.Location,
		"experience_level": p.ExperienceLevel,
		"available":        strconv.FormatBool(p.Available),
		"updated_at":       strconv.FormatInt(p.UpdatedAt.Unix(), 10),
		"__content":        domain.Corpus(p),
	}
}

func parseProfile(id string, fields map[string]string) domain.CreativeProfile {
	available, _ := strconv.ParseBool(fields["available"])
	updatedAt, _ := strconv.ParseInt(fields["updated_at"], 10, 64)

	var skills []string
	if raw := fields["skills"]; raw != "" {
		skills = strings.Split(raw, skillsSeparator)
	}

	return domain.CreativeProfile{
		ID:              id,
		UserID:          fields["user_id"],
		DisplayName:     fields["display_name"],
		Tagline:         fields["tagline"],
		Bio:             fields["bio"],
		Skills:          skills,
		Location:        fields["location"],
		ExperienceLevel: fields["experience_level"],
		Available:       available,
		UpdatedAt:       time.Unix(updatedAt, 0).UTC(),
	}
}
