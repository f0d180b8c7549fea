package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/allredmatt/server-based-job-site/internal/observability"
	"github.com/allredmatt/server-based-job-site/internal/scraper"
	"github.com/allredmatt/server-based-job-site/internal/store"
)

// JobStatsRequest is the body of POST /api/jobstats. Titles is a pointer so an
// absent field can be told apart from an empty list.
type JobStatsRequest struct {
	Titles *[]string `json:"titles"`
}

func (s *Server) handleJobStats(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	var req JobStatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Unreadable bodies get a bare 500.
		slog.Warn("jobstats: invalid request body", "request_id", reqID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if req.Titles == nil {
		slog.Warn("jobstats: request without titles", "request_id", reqID)
		respondError(w, http.StatusInternalServerError, "titles is required")
		return
	}
	titles := *req.Titles

	start := time.Now()
	result, err := s.gatherer.Gather(r.Context(), titles)
	if err != nil {
		slog.Error("jobstats: scrape failed", "request_id", reqID, "keywords", len(titles), "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.recordRun(r.Context(), titles, result, time.Since(start))
	respondJSON(w, http.StatusOK, result)
}

// recordRun stores a successful scrape when history is enabled. Failures are
// logged and never reach the caller.
func (s *Server) recordRun(ctx context.Context, titles []string, result scraper.Result, took time.Duration) {
	if s.history == nil {
		return
	}
	id, err := s.history.SaveRun(ctx, store.Run{
		Keywords:   titles,
		Total:      result.Total,
		Values:     result.Values,
		DurationMS: took.Milliseconds(),
	})
	if err != nil {
		observability.IncError(observability.ErrorStore, "history")
		slog.Error("jobstats: failed to record run", "error", err)
		return
	}
	observability.IncHistoryWrite()
	slog.Debug("jobstats: recorded run", "id", id)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, http.StatusNotFound, "history is disabled")
		return
	}

	limit, offset := parsePagination(r, 20)

	runs, total, err := s.history.ListRuns(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch history: "+err.Error())
		return
	}
	// Return empty list if nil to be JSON friendly
	if runs == nil {
		runs = []store.Run{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":  runs,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, observability.Snapshot())
}

func parsePagination(r *http.Request, defaultLimit int) (int, int) {
	q := r.URL.Query()
	limit := defaultLimit
	offset := 0

	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	if v := q.Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
