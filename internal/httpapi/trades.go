package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mzito/mazao/internal/ledger"
)

const proofPageSize = 200

type tradeProofResponse struct {
	Code   string         `json:"code"`
	Count  int            `json:"count"`
	Events []ledger.Entry `json:"events"`
}

// handleTradeProof reconstructs the audit trail of one delivery code from
// the event log, oldest event first. Every entry that carried the code in
// its payload is part of the proof.
func (s *Server) handleTradeProof(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	var matched []ledger.Entry
	var before time.Time
	for {
		page, err := s.trades.Query(r.Context(), "", before, proofPageSize)
		if err != nil {
			respondError(w, http.StatusBadGateway, "proof_failed", err.Error())
			return
		}
		for _, entry := range page.Entries {
			if c, ok := entry.Payload["code"].(string); ok && c == code {
				matched = append(matched, entry)
			}
		}
		if !page.HasMore {
			break
		}
		before = page.OldestTimestamp()
	}

	if len(matched) == 0 {
		respondError(w, http.StatusNotFound, "trade_not_found", "no events recorded for code "+code)
		return
	}

	// Query pages newest-first; a proof reads oldest-first.
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}

	respondJSON(w, http.StatusOK, tradeProofResponse{
		Code:   code,
		Count:  len(matched),
		Events: matched,
	})
}
