// Package client is a typed Go client for the matching engine HTTP API,
// for the ops CLI and for surrounding services that prefer not to hand-roll
// requests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a running matching engine.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a client for the engine at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the engine.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("engine returned status %d: %s", e.StatusCode, e.Message)
}

// JobFilters mirrors the engine's structured job filter set.
type JobFilters struct {
	Category string   `json:"category,omitempty"`
	Skills   []string `json:"skills,omitempty"`
	Location string   `json:"location,omitempty"`
	Remote   *bool    `json:"remote,omitempty"`
}

// ProfileFilters mirrors the engine's structured profile filter set.
type ProfileFilters struct {
	Skills          []string `json:"skills,omitempty"`
	Location        string   `json:"location,omitempty"`
	ExperienceLevel string   `json:"experience_level,omitempty"`
}

// SearchJobsRequest is the payload of POST /v1/search/jobs.
type SearchJobsRequest struct {
	Query          string     `json:"query"`
	Filters        JobFilters `json:"filters"`
	Limit          int        `json:"limit,omitempty"`
	SemanticLimit  int        `json:"semantic_limit,omitempty"`
	ProfileContext string     `json:"profile_context,omitempty"`
}

// SearchCreativesRequest is the payload of POST /v1/search/creatives.
type SearchCreativesRequest struct {
	Query         string         `json:"query"`
	Filters       ProfileFilters `json:"filters"`
	Limit         int            `json:"limit,omitempty"`
	SemanticLimit int            `json:"semantic_limit,omitempty"`
	JobContext    string         `json:"job_context,omitempty"`
}

// SearchMeta describes how the engine produced a result.
type SearchMeta struct {
	Source             string `json:"source"`
	IndexDegraded      bool   `json:"index_degraded"`
	KeywordCandidates  int    `json:"keyword_candidates"`
	SemanticCandidates int    `json:"semantic_candidates"`
	SemanticLimit      int    `json:"semantic_limit"`
}

// JobHit is one fused job result. The entity payload is kept raw so the
// client does not chase the engine's entity schema.
type JobHit struct {
	Job           json.RawMessage `json:"job"`
	Score         float64         `json:"score"`
	SemanticScore float64         `json:"semantic_score"`
	KeywordScore  float64         `json:"keyword_score"`
	KeywordRank   *int            `json:"keyword_rank,omitempty"`
}

// SearchJobsResponse is the response of POST /v1/search/jobs.
type SearchJobsResponse struct {
	Hits []JobHit   `json:"hits"`
	Meta SearchMeta `json:"meta"`
}

// CreativeHit is one fused profile result.
type CreativeHit struct {
	Profile       json.RawMessage `json:"profile"`
	Score         float64         `json:"score"`
	SemanticScore float64         `json:"semantic_score"`
	KeywordScore  float64         `json:"keyword_score"`
	KeywordRank   *int            `json:"keyword_rank,omitempty"`
}

// SearchCreativesResponse is the response of POST /v1/search/creatives.
type SearchCreativesResponse struct {
	Hits []CreativeHit `json:"hits"`
	Meta SearchMeta    `json:"meta"`
}

// SyncResult reports the outcome of a single-entity sync.
type SyncResult struct {
	Outcome string `json:"outcome"`
}

// RebuildReport summarizes a bulk rebuild.
type RebuildReport struct {
	Kind    string `json:"kind"`
	Total   int    `json:"total"`
	Queued  bool   `json:"queued"`
	Synced  int    `json:"synced"`
	Evicted int    `json:"evicted"`
	Missing int    `json:"missing"`
	Failed  int    `json:"failed"`
}

// ApplicationScore is one ranked application.
type ApplicationScore struct {
	ApplicationID   string  `json:"application_id"`
	ApplicantID     string  `json:"applicant_id"`
	Total           float64 `json:"total"`
	ProfileMatch    float64 `json:"profile_match"`
	SkillsMatch     float64 `json:"skills_match"`
	ExperienceMatch float64 `json:"experience_match"`
}

// RankResponse is the response of POST /v1/rank.
type RankResponse struct {
	JobID  string             `json:"job_id"`
	Scores []ApplicationScore `json:"scores"`
}

// HealthSnapshot is the engine health report.
type HealthSnapshot struct {
	Status           string               `json:"status"`
	EmbeddingEnabled bool                 `json:"embedding_enabled"`
	IndexEnabled     bool                 `json:"index_enabled"`
	IndexSimulated   bool                 `json:"index_simulated"`
	StoreOK          bool                 `json:"store_ok"`
	QueueDepth       int                  `json:"queue_depth"`
	Cache            map[string]CacheInfo `json:"cache"`
	Recommendations  []string             `json:"recommendations,omitempty"`
}

// CacheInfo summarizes cached vectors for one entity kind.
type CacheInfo struct {
	Count    int       `json:"count"`
	Freshest time.Time `json:"freshest,omitempty"`
}

// SearchJobs runs a hybrid job search.
func (c *Client) SearchJobs(ctx context.Context, req SearchJobsRequest) (SearchJobsResponse, error) {
	var out SearchJobsResponse
	err := c.do(ctx, http.MethodPost, "/v1/search/jobs", req, &out)
	return out, err
}

// SearchCreatives runs a hybrid creative profile search.
func (c *Client) SearchCreatives(ctx context.Context, req SearchCreativesRequest) (SearchCreativesResponse, error) {
	var out SearchCreativesResponse
	err := c.do(ctx, http.MethodPost, "/v1/search/creatives", req, &out)
	return out, err
}

// Sync refreshes one entity's embedding. kind is "job" or "profile".
func (c *Client) Sync(ctx context.Context, kind, id string, force bool) (SyncResult, error) {
	var out SyncResult
	err := c.do(ctx, http.MethodPost, "/v1/sync", map[string]any{
		"kind": kind, "id": id, "force": force,
	}, &out)
	return out, err
}

// Rebuild re-syncs every entity of one kind.
func (c *Client) Rebuild(ctx context.Context, kind string, background bool) (RebuildReport, error) {
	var out RebuildReport
	err := c.do(ctx, http.MethodPost, "/v1/rebuild", map[string]any{
		"kind": kind, "background": background,
	}, &out)
	return out, err
}

// Rank scores applications against a job. job and applications are raw JSON
// documents in the engine's entity schema.
func (c *Client) Rank(ctx context.Context, job json.RawMessage, applications []json.RawMessage) (RankResponse, error) {
	var out RankResponse
	err := c.do(ctx, http.MethodPost, "/v1/rank", map[string]any{
		"job": job, "applications": applications,
	}, &out)
	return out, err
}

// Health fetches the engine health snapshot. A degraded engine answers 503
// with a valid body, so that status is not treated as an error.
func (c *Client) Health(ctx context.Context) (HealthSnapshot, error) {
	var out HealthSnapshot
	err := c.do(ctx, http.MethodGet, "/v1/health", nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable && out.Status != "" {
		return out, nil
	}
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call engine: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if out != nil && len(raw) > 0 {
		// Decode even error statuses; the health endpoint returns a body on 503.
		_ = json.Unmarshal(raw, out)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}
	return nil
}
