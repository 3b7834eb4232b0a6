package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"researchradar/internal/ingest"
	"researchradar/internal/metrics"
	"researchradar/internal/model"
	"researchradar/internal/retention"
	"researchradar/internal/taxonomy"
)

// Ingestor triggers pipeline runs; satisfied by ingest.Pipeline.
type Ingestor interface {
	IngestPapers(ctx context.Context, days int, tag string) (ingest.PapersResult, error)
	IngestPosts(ctx context.Context, days int, tag string, only model.PostSource) (ingest.PostsResult, error)
	IngestCompanyPosts(ctx context.Context, days int, company string) (ingest.PostsResult, error)
	BackfillTags(ctx context.Context, force bool) (int, error)
}

// Maintainer runs retention passes; satisfied by retention.Manager.
type Maintainer interface {
	Cleanup(ctx context.Context) (retention.Result, error)
	Reclaim(ctx context.Context) error
	PurgeUntagged(ctx context.Context, tax taxonomy.Taxonomy) (int64, error)
}

// Windows carries the default day windows for triggered runs.
type Windows struct {
	PaperDays int
	PostDays  int
}

// Server wires HTTP handlers to the pipeline and the retention manager.
type Server struct {
	router   chi.Router
	ingestor Ingestor
	maint    Maintainer
	tax      taxonomy.Taxonomy
	windows  Windows
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(ingestor Ingestor, maint Maintainer, tax taxonomy.Taxonomy, windows Windows, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if windows.PaperDays <= 0 {
		windows.PaperDays = 7
	}
	if windows.PostDays <= 0 {
		windows.PostDays = 3
	}
	s := &Server{
		ingestor: ingestor,
		maint:    maint,
		tax:      tax,
		windows:  windows,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	// Ingest runs block until the upstream fetches finish.
	r.Use(timeoutMiddleware(15 * time.Minute))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/refresh", func(r chi.Router) {
			r.Post("/papers", s.refreshPapers)
			r.Post("/posts", s.refreshPosts)
			r.Post("/company", s.refreshCompany)
		})
		r.Post("/cleanup", s.cleanup)
		r.Post("/reclaim", s.reclaim)
		r.Post("/purge-untagged", s.purgeUntagged)
		r.Post("/backfill-tags", s.backfillTags)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
