package api

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"researchradar/internal/ingest"
	"researchradar/internal/metrics"
	"researchradar/internal/model"
)

// refreshPapers handles POST /api/refresh/papers?days=&tag=. It runs the
// paper pipeline synchronously and returns the run summary, or 409 when a
// paper run is already active.
func (s *Server) refreshPapers(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r, s.windows.PaperDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tag := r.URL.Query().Get("tag")

	res, err := s.ingestor.IngestPapers(r.Context(), days, tag)
	if err != nil {
		s.writeRunError(w, "papers", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// refreshPosts handles POST /api/refresh/posts?days=&tag=&source=.
func (s *Server) refreshPosts(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r, s.windows.PostDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tag := r.URL.Query().Get("tag")
	only := model.PostSource(r.URL.Query().Get("source"))

	res, err := s.ingestor.IngestPosts(r.Context(), days, tag, only)
	if err != nil {
		s.writeRunError(w, "posts", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// refreshCompany handles POST /api/refresh/company?days=&company=.
func (s *Server) refreshCompany(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r, s.windows.PostDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	company := r.URL.Query().Get("company")

	res, err := s.ingestor.IngestCompanyPosts(r.Context(), days, company)
	if err != nil {
		s.writeRunError(w, "company", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// cleanup handles POST /api/cleanup and returns per-class deletion counts.
func (s *Server) cleanup(w http.ResponseWriter, r *http.Request) {
	res, err := s.maint.Cleanup(r.Context())
	if err != nil {
		s.logger.Error("cleanup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.ObserveDeleted("papers", res.PapersDeleted)
	metrics.ObserveDeleted("code_posts", res.CodeDeleted)
	metrics.ObserveDeleted("community_posts", res.CommunityDeleted)
	writeJSON(w, http.StatusOK, res)
}

// reclaim handles POST /api/reclaim.
func (s *Server) reclaim(w http.ResponseWriter, r *http.Request) {
	if err := s.maint.Reclaim(r.Context()); err != nil {
		s.logger.Error("reclaim failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reclaimed"})
}

// purgeUntagged handles POST /api/purge-untagged.
func (s *Server) purgeUntagged(w http.ResponseWriter, r *http.Request) {
	n, err := s.maint.PurgeUntagged(r.Context(), s.tax)
	if err != nil {
		s.logger.Error("purge failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.ObserveDeleted("papers", n)
	writeJSON(w, http.StatusOK, map[string]int64{"purged": n})
}

// backfillTags handles POST /api/backfill-tags?force=.
func (s *Server) backfillTags(w http.ResponseWriter, r *http.Request) {
	force, err := parseBool(r, "force", false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := s.ingestor.BackfillTags(r.Context(), force)
	if err != nil {
		s.logger.Error("backfill failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (s *Server) writeRunError(w http.ResponseWriter, pipeline string, err error) {
	var inProgress ingest.ErrRunInProgress
	if errors.As(err, &inProgress) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.logger.Error("ingest run failed", zap.String("pipeline", pipeline), zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

func parseDays(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return def, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return 0, errors.New("days must be a positive integer")
	}
	return days, nil
}

func parseBool(r *http.Request, key string, def bool) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.New(key + " must be a boolean")
	}
	return v, nil
}
