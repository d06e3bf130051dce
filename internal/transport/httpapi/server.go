// Package httpapi is the engine's HTTP surface: a thin chi router translating
// JSON payloads into usecase calls. No business rules live here.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/adhika16/smart-matching-platform-sub000/internal/domain"
	logpkg "github.com/adhika16/smart-matching-platform-sub000/internal/logger"
	"github.com/adhika16/smart-matching-platform-sub000/internal/metrics"
	"github.com/adhika16/smart-matching-platform-sub000/internal/usecase/health"
	"github.com/adhika16/smart-matching-platform-sub000/internal/usecase/match"
	"github.com/adhika16/smart-matching-platform-sub000/internal/usecase/rank"
	syncuc "github.com/adhika16/smart-matching-platform-sub000/internal/usecase/sync"
)

const maxBodyBytes = 1 << 20

type matcher interface {
	SearchJobs(ctx context.Context, q match.JobQuery) (match.JobSearchResult, error)
	SearchCreatives(ctx context.Context, q match.CreativeQuery) (match.CreativeSearchResult, error)
}

type syncer interface {
	SyncOne(ctx context.Context, kind domain.Kind, id string, force bool) (syncuc.Outcome, error)
	RebuildAll(ctx context.Context, kind domain.Kind, background bool) (syncuc.RebuildReport, error)
	NotifyUpserted(kind domain.Kind, id string)
	NotifyDeleted(kind domain.Kind, id string)
}

type ranker interface {
	RankApplications(ctx context.Context, j domain.Job, apps []domain.Application) []rank.ApplicationScore
}

type healthChecker interface {
	Check(ctx context.Context) health.Snapshot
}

type jobStore interface {
	Put(ctx context.Context, j domain.Job) error
	Delete(ctx context.Context, id string) error
}

type profileStore interface {
	Put(ctx context.Context, p domain.CreativeProfile) error
	Delete(ctx context.Context, id string) error
}

// Deps bundles everything the router needs.
type Deps struct {
	Matcher  matcher
	Syncer   syncer
	Ranker   ranker
	Health   healthChecker
	Jobs     jobStore
	Profiles profileStore
	Logger   *zap.Logger
}

// Server serves the matching engine API.
type Server struct {
	deps   Deps
	logger *zap.Logger
}

// NewServer creates the API server.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{deps: deps, logger: logger}
}

// Handler builds the routed HTTP handler with the standard middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(s.requestLogger)
	r.Use(metrics.Middleware())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/search/jobs", s.handleSearchJobs)
		r.Post("/search/creatives", s.handleSearchCreatives)
		r.Post("/sync", s.handleSync)
		r.Post("/rebuild", s.handleRebuild)
		r.Post("/rank", s.handleRank)
		r.Get("/health", s.handleHealth)

		r.Put("/jobs/{id}", s.handlePutJob)
		r.Delete("/jobs/{id}", s.handleDeleteJob)
		r.Put("/profiles/{id}", s.handlePutProfile)
		r.Delete("/profiles/{id}", s.handleDeleteProfile)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

type searchJobsRequest struct {
	Query          string            `json:"query"`
	Filters        domain.JobFilters `json:"filters"`
	Limit          int               `json:"limit"`
	SemanticLimit  int               `json:"semantic_limit"`
	ProfileContext string            `json:"profile_context"`
}

func (s *Server) handleSearchJobs(w http.ResponseWriter, r *http.Request) {
	var req searchJobsRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.deps.Matcher.SearchJobs(r.Context(), match.JobQuery{
		Text:           req.Query,
		Filters:        req.Filters,
		Limit:          req.Limit,
		SemanticLimit:  req.SemanticLimit,
		ProfileContext: req.ProfileContext,
	})
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "search failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

type searchCreativesRequest struct {
	Query         string                `json:"query"`
	Filters       domain.ProfileFilters `json:"filters"`
	Limit         int                   `json:"limit"`
	SemanticLimit int                   `json:"semantic_limit"`
	JobContext    string                `json:"job_context"`
}

func (s *Server) handleSearchCreatives(w http.ResponseWriter, r *http.Request) {
	var req searchCreativesRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.deps.Matcher.SearchCreatives(r.Context(), match.CreativeQuery{
		Text:          req.Query,
		Filters:       req.Filters,
		Limit:         req.Limit,
		SemanticLimit: req.SemanticLimit,
		JobContext:    req.JobContext,
	})
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "search failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

type syncRequest struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Force bool   `json:"force"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if !s.decode(w, r, &req) {
		return
	}
	kind, err := domain.ParseKind(req.Kind)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "unknown entity kind", err)
		return
	}
	if req.ID == "" {
		s.writeError(w, r, http.StatusBadRequest, "id is required", nil)
		return
	}

	outcome, err := s.deps.Syncer.SyncOne(r.Context(), kind, req.ID, req.Force)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "sync failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"outcome": string(outcome)})
}

type rebuildRequest struct {
	Kind       string `json:"kind"`
	Background bool   `json:"background"`
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	var req rebuildRequest
	if !s.decode(w, r, &req) {
		return
	}
	kind, err := domain.ParseKind(req.Kind)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "unknown entity kind", err)
		return
	}

	report, err := s.deps.Syncer.RebuildAll(r.Context(), kind, req.Background)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "rebuild failed", err)
		return
	}
	status := http.StatusOK
	if req.Background {
		status = http.StatusAccepted
	}
	s.writeJSON(w, status, report)
}

type rankRequest struct {
	Job          domain.Job           `json:"job"`
	Applications []domain.Application `json:"applications"`
}

type rankResponse struct {
	JobID  string                  `json:"job_id"`
	Scores []rank.ApplicationScore `json:"scores"`
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Job.ID == "" {
		s.writeError(w, r, http.StatusBadRequest, "job.id is required", nil)
		return
	}

	scores := s.deps.Ranker.RankApplications(r.Context(), req.Job, req.Applications)
	s.writeJSON(w, http.StatusOK, rankResponse{JobID: req.Job.ID, Scores: scores})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Health.Check(r.Context())
	status := http.StatusOK
	if snap.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, snap)
}

func (s *Server) handlePutJob(w http.ResponseWriter, r *http.Request) {
	var j domain.Job
	if !s.decode(w, r, &j) {
		return
	}
	j.ID = chi.URLParam(r, "id")
	if j.UpdatedAt.IsZero() {
		j.UpdatedAt = time.Now().UTC()
	}

	if err := s.deps.Jobs.Put(r.Context(), j); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "store job", err)
		return
	}
	s.deps.Syncer.NotifyUpserted(domain.KindJob, j.ID)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"id": j.ID})
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Jobs.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "delete job", err)
		return
	}
	s.deps.Syncer.NotifyDeleted(domain.KindJob, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var p domain.CreativeProfile
	if !s.decode(w, r, &p) {
		return
	}
	p.ID = chi.URLParam(r, "id")
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	if err := s.deps.Profiles.Put(r.Context(), p); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "store profile", err)
		return
	}
	s.deps.Syncer.NotifyUpserted(domain.KindProfile, p.ID)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"id": p.ID})
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Profiles.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "delete profile", err)
		return
	}
	s.deps.Syncer.NotifyDeleted(domain.KindProfile, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large", err)
			return false
		}
		s.writeError(w, r, http.StatusBadRequest, "malformed JSON body", err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encode response failed", zap.Error(err))
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	log := logpkg.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(msg, zap.Error(err))
	} else {
		log.Debug(msg, zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: msg, RequestID: middleware.GetReqID(r.Context())})
}

// recoverer converts panics into JSON 500s instead of chi's plain-text page.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic in handler",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path))
				s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestLogger stamps a request-scoped logger into the context and emits one
// wide event per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLogger := s.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))
		r = r.WithContext(logpkg.ContextWithLogger(r.Context(), reqLogger))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		reqLogger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)))
	})
}
