// Package pinecone is the external vector index client. All operations are
// best-effort side channels: a slow or failing index degrades search quality
// but never breaks the request path, so nothing here returns an error.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/adhika16/smart-matching-platform-sub000/internal/metrics"
)

// Record is a single vector destined for the index.
type Record struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Filter is an AND-combined map of field predicates ($eq / $in).
type Filter map[string]any

// Eq builds an equality predicate.
func Eq(v any) map[string]any { return map[string]any{"$eq": v} }

// In builds an inclusion predicate.
func In(vals []string) map[string]any {
	anyVals := make([]any, len(vals))
	for i, v := range vals {
		anyVals[i] = v
	}
	return map[string]any{"$in": anyVals}
}

// QueryOpts shapes a top-K similarity query.
type QueryOpts struct {
	TopK            int
	Filter          Filter
	Namespace       string
	IncludeMetadata bool
}

// Match is a single query hit.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QueryResult carries query hits plus a degraded flag distinguishing a real
// index failure from the disabled/simulated empty result.
type QueryResult struct {
	Matches  []Match
	Degraded bool
}

// Config holds vector index connection settings.
type Config struct {
	Enabled   bool
	Simulate  bool
	BaseURL   string
	APIKey    string
	Namespace string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Client talks to a Pinecone-style REST index.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates an index client. A disabled or simulated client performs
// no network I/O.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Enabled reports whether the index integration is turned on.
func (c *Client) Enabled() bool { return c.cfg.Enabled }

// Simulated reports whether the client is in no-network simulate mode.
func (c *Client) Simulated() bool { return c.cfg.Simulate }

// Upsert writes records into the index. Returns false only on a real failure;
// disabled and simulated modes no-op successfully.
func (c *Client) Upsert(ctx context.Context, records []Record, namespace string) bool {
	if !c.cfg.Enabled || c.cfg.Simulate {
		metrics.VectorIndexRequestsTotal.WithLabelValues("upsert", "skipped").Inc()
		return true
	}
	if len(records) == 0 {
		return true
	}

	body := map[string]any{
		"vectors":   records,
		"namespace": c.namespace(namespace),
	}
	if err := c.post(ctx, "/vectors/upsert", body, nil); err != nil {
		metrics.VectorIndexRequestsTotal.WithLabelValues("upsert", "error").Inc()
		c.logger.Error("vector index upsert failed",
			zap.Int("records", len(records)), zap.Error(err))
		return false
	}
	metrics.VectorIndexRequestsTotal.WithLabelValues("upsert", "ok").Inc()
	return true
}

// Query runs a filtered top-K similarity lookup. Disabled/simulated modes and
// real failures both return an empty match set; only real failures set
// Degraded.
func (c *Client) Query(ctx context.Context, vector []float32, opts QueryOpts) QueryResult {
	if !c.cfg.Enabled || c.cfg.Simulate {
		metrics.VectorIndexRequestsTotal.WithLabelValues("query", "skipped").Inc()
		return QueryResult{}
	}

	body := map[string]any{
		"vector":          vector,
		"topK":            opts.TopK,
		"namespace":       c.namespace(opts.Namespace),
		"includeMetadata": opts.IncludeMetadata,
	}
	if len(opts.Filter) > 0 {
		body["filter"] = opts.Filter
	}

	var resp struct {
		Matches []Match `json:"matches"`
	}
	if err := c.post(ctx, "/query", body, &resp); err != nil {
		metrics.VectorIndexRequestsTotal.WithLabelValues("query", "error").Inc()
		c.logger.Error("vector index query failed", zap.Error(err))
		return QueryResult{Degraded: true}
	}
	metrics.VectorIndexRequestsTotal.WithLabelValues("query", "ok").Inc()
	return QueryResult{Matches: resp.Matches}
}

// Delete removes ids from the index with the same non-fatal failure policy
// as Upsert.
func (c *Client) Delete(ctx context.Context, ids []string, namespace string) bool {
	if !c.cfg.Enabled || c.cfg.Simulate {
		metrics.VectorIndexRequestsTotal.WithLabelValues("delete", "skipped").Inc()
		return true
	}
	if len(ids) == 0 {
		return true
	}

	body := map[string]any{
		"ids":       ids,
		"namespace": c.namespace(namespace),
	}
	if err := c.post(ctx, "/vectors/delete", body, nil); err != nil {
		metrics.VectorIndexRequestsTotal.WithLabelValues("delete", "error").Inc()
		c.logger.Error("vector index delete failed",
			zap.Strings("ids", ids), zap.Error(err))
		return false
	}
	metrics.VectorIndexRequestsTotal.WithLabelValues("delete", "ok").Inc()
	return true
}

func (c *Client) namespace(override string) string {
	if override != "" {
		return override
	}
	return c.cfg.Namespace
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("index returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
