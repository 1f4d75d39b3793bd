package httpapi

import (
	"net/http"
	"strings"
	"time"
)

func (s *Server) handleLatestReport(w http.ResponseWriter, _ *http.Request) {
	if s.reports == nil {
		respondError(w, http.StatusNotImplemented, "report_disabled", "Daily reporting is disabled.")
		return
	}
	summary, ok := s.reports.Latest()
	if !ok {
		respondError(w, http.StatusNotFound, "report_not_ready", "No report has been generated yet.")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// handleRunReport aggregates a day on demand. The day query parameter is
// YYYY-MM-DD UTC and defaults to today.
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		respondError(w, http.StatusNotImplemented, "report_disabled", "Daily reporting is disabled.")
		return
	}

	day := time.Now().UTC()
	if raw := strings.TrimSpace(r.URL.Query().Get("day")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_day", "day must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	summary, err := s.reports.RunReport(r.Context(), day)
	if err != nil {
		respondError(w, http.StatusBadGateway, "report_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
