package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mzito/mazao/internal/planner"
)

type approveRequest struct {
	Approved *bool `json:"approved"`
}

type approveResponse struct {
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	Approved bool   `json:"approved"`
}

type runQueueResponse struct {
	Ran    bool          `json:"ran"`
	TaskID string        `json:"task_id,omitempty"`
	Status string        `json:"status,omitempty"`
	Task   *planner.Task `json:"task,omitempty"`
}

func (s *Server) handleListQueue(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	tasks := s.plan.List(r.Context(), 0)
	if status != "" {
		filtered := tasks[:0]
		for _, t := range tasks {
			if string(t.Status) == status {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"tasks": tasks,
		"count": len(tasks),
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(chi.URLParam(r, "id"))
	if taskID == "" {
		respondError(w, http.StatusBadRequest, "invalid_task_id", "missing task id")
		return
	}
	task, err := s.plan.Get(taskID)
	if err != nil {
		if errors.Is(err, planner.ErrTaskNotFound) {
			respondError(w, http.StatusNotFound, "task_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "task_lookup_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(r.URL.Query().Get("id"))
	if taskID == "" {
		respondError(w, http.StatusBadRequest, "invalid_task_id", "missing id query parameter")
		return
	}

	var req approveRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	approved := true
	if req.Approved != nil {
		approved = *req.Approved
	}

	task, err := s.plan.Approve(taskID, approved)
	if err != nil {
		switch {
		case errors.Is(err, planner.ErrTaskNotFound):
			respondError(w, http.StatusNotFound, "task_not_found", err.Error())
		case errors.Is(err, planner.ErrInvalidTaskState):
			respondError(w, http.StatusConflict, "invalid_task_state", err.Error())
		default:
			respondError(w, http.StatusBadRequest, "approve_failed", err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, approveResponse{
		TaskID:   task.ID,
		Status:   string(task.Status),
		Approved: approved,
	})
}

// handleRunQueue forces one tick. Operators use it to drain the queue
// without waiting for the scheduler.
func (s *Server) handleRunQueue(w http.ResponseWriter, r *http.Request) {
	task, ran := s.plan.Tick(r.Context())
	res := runQueueResponse{Ran: ran}
	if ran {
		res.TaskID = task.ID
		res.Status = string(task.Status)
		res.Task = &task
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleQueueEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := s.plan.Subscribe()
	defer cancel()

	// Drain the client side so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				log.Printf("httpapi: queue events write failed: %v", err)
				return
			}
		}
	}
}
