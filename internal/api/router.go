package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haven-home/haven-core/internal/audit"
)

// buildRouter creates the HTTP router.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get(s.wsCfg.Path, s.hub.HandleWebSocket)
	if s.journal != nil {
		r.Get("/audit", s.handleAudit)
	}

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"sessions": s.hub.SessionCount(),
	})
}

// handleAudit returns a page of the command journal.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		Method: q.Get("method"),
		Result: q.Get("result"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid limit"})
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid offset"})
			return
		}
		filter.Offset = n
	}

	page, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("command journal query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "journal query failed"})
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // response already committed; nothing to do on encode failure
	json.NewEncoder(w).Encode(body)
}
