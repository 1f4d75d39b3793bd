package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mzito/mazao/internal/config"
	"github.com/mzito/mazao/internal/ledger"
	"github.com/mzito/mazao/internal/observability"
	"github.com/mzito/mazao/internal/planner"
	"github.com/mzito/mazao/internal/report"
	"github.com/mzito/mazao/internal/workflow"
)

type Server struct {
	cfg      config.Config
	engine   *workflow.Engine
	plan     *planner.Planner
	reports  *report.Aggregator
	trades   ledger.Client
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, engine *workflow.Engine, plan *planner.Planner, reports *report.Aggregator, trades ledger.Client, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		engine:  engine,
		plan:    plan,
		reports: reports,
		trades:  trades,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser clients may watch the queue
				// stream unless the operator opted out.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Post("/v1/messages", s.handleMessage)
	r.Get("/pending", s.handleListPending)

	r.Get("/queue", s.handleListQueue)
	r.Get("/queue/{id}", s.handleGetTask)
	r.Post("/queue/run", s.handleRunQueue)
	r.Get("/queue/events", s.handleQueueEvents)
	r.Post("/approve", s.handleApprove)

	r.Get("/trades/{code}/proof", s.handleTradeProof)

	r.Get("/report/latest", s.handleLatestReport)
	r.Post("/report/run", s.handleRunReport)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"approval_required":  s.cfg.ApprovalRequired,
		"report_enabled":     s.cfg.ReportEnabled,
		"parties_configured": s.cfg.PartiesConfigured(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
