package httpapi

import (
	"net/http"
	"strings"
)

type messageRequest struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.Sender = strings.TrimSpace(req.Sender)
	req.Text = strings.TrimSpace(req.Text)
	if req.Sender == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "sender is required")
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	res := s.engine.Handle(r.Context(), req.Sender, req.Text)
	respondJSON(w, http.StatusAccepted, res)
}

func (s *Server) handleListPending(w http.ResponseWriter, _ *http.Request) {
	pending := s.engine.Pending().Snapshot()
	respondJSON(w, http.StatusOK, map[string]any{
		"pending": pending,
		"count":   len(pending),
	})
}
