package health

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/adhika16/smart-matching-platform-sub000/internal/domain"
	"github.com/adhika16/smart-matching-platform-sub000/internal/repository/embedding"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(_ context.Context) error { return f.err }

type fakeStats struct {
	stats map[domain.Kind]embedding.Stats
	err   error
}

func (f fakeStats) Stats(_ context.Context, kind domain.Kind) (embedding.Stats, error) {
	if f.err != nil {
		return embedding.Stats{}, f.err
	}
	return f.stats[kind], nil
}

type fakeFlags struct{ enabled, simulated bool }

func (f fakeFlags) Enabled() bool   { return f.enabled }
func (f fakeFlags) Simulated() bool { return f.simulated }

type fakeDepth struct{ n int }

func (f fakeDepth) Depth() int { return f.n }

type fakeChecker struct{ err error }

func (f fakeChecker) HealthCheck(_ context.Context) error { return f.err }

func hasRecommendation(snap Snapshot, substr string) bool {
	for _, r := range snap.Recommendations {
		if strings.Contains(r, substr) {
			return true
		}
	}
	return false
}

func TestCheck_AllHealthy(t *testing.T) {
	now := time.Now()
	s := New(fakePinger{}, fakeStats{stats: map[domain.Kind]embedding.Stats{
		domain.KindJob:     {Count: 10, Freshest: now},
		domain.KindProfile: {Count: 4, Freshest: now},
	}}, fakeFlags{enabled: true}, fakeDepth{n: 2}, fakeChecker{}, true, zap.NewNop())

	snap := s.Check(context.Background())
	if snap.Status != "ok" || !snap.StoreOK {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.QueueDepth != 2 {
		t.Errorf("queue depth = %d", snap.QueueDepth)
	}
	if snap.Cache["job"].Count != 10 || snap.Cache["profile"].Count != 4 {
		t.Errorf("cache = %+v", snap.Cache)
	}
	if len(snap.Recommendations) != 0 {
		t.Errorf("unexpected recommendations: %v", snap.Recommendations)
	}
}

func TestCheck_StoreDownIsDegraded(t *testing.T) {
	s := New(fakePinger{err: errors.New("conn refused")}, fakeStats{},
		fakeFlags{enabled: true}, fakeDepth{}, fakeChecker{}, true, zap.NewNop())

	snap := s.Check(context.Background())
	if snap.Status != "degraded" || snap.StoreOK {
		t.Errorf("snapshot = %+v", snap)
	}
	if !hasRecommendation(snap, "store unreachable") {
		t.Errorf("recommendations = %v", snap.Recommendations)
	}
	if len(snap.Cache) != 0 {
		t.Error("cache stats should be skipped when the store is down")
	}
}

func TestCheck_ProviderFailureIsDegraded(t *testing.T) {
	s := New(fakePinger{}, fakeStats{stats: map[domain.Kind]embedding.Stats{
		domain.KindJob:     {Count: 1},
		domain.KindProfile: {Count: 1},
	}}, fakeFlags{enabled: true}, fakeDepth{}, fakeChecker{err: errors.New("401")}, true, zap.NewNop())

	snap := s.Check(context.Background())
	if snap.Status != "degraded" {
		t.Errorf("status = %s", snap.Status)
	}
	if !hasRecommendation(snap, "deterministic hashing") {
		t.Errorf("recommendations = %v", snap.Recommendations)
	}
}

func TestCheck_DisabledBackendsAdvisoryOnly(t *testing.T) {
	s := New(fakePinger{}, fakeStats{stats: map[domain.Kind]embedding.Stats{}},
		fakeFlags{}, fakeDepth{}, nil, false, zap.NewNop())

	snap := s.Check(context.Background())
	// Disabled backends are a configuration choice, not a failure.
	if snap.Status != "ok" {
		t.Errorf("status = %s", snap.Status)
	}
	if !hasRecommendation(snap, "embedding provider disabled") {
		t.Errorf("recommendations = %v", snap.Recommendations)
	}
	if !hasRecommendation(snap, "vector index disabled") {
		t.Errorf("recommendations = %v", snap.Recommendations)
	}
	if !hasRecommendation(snap, "rebuild") {
		t.Errorf("recommendations = %v", snap.Recommendations)
	}
}

func TestCheck_SimulateModeAdvisory(t *testing.T) {
	s := New(fakePinger{}, fakeStats{stats: map[domain.Kind]embedding.Stats{
		domain.KindJob:     {Count: 1},
		domain.KindProfile: {Count: 1},
	}}, fakeFlags{enabled: true, simulated: true}, fakeDepth{}, fakeChecker{}, true, zap.NewNop())

	snap := s.Check(context.Background())
	if snap.Status != "ok" || !snap.IndexSimulated {
		t.Errorf("snapshot = %+v", snap)
	}
	if !hasRecommendation(snap, "simulate mode") {
		t.Errorf("recommendations = %v", snap.Recommendations)
	}
}
