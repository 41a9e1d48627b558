package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/worktrack/timesheet-backend/internal/timesheet/service"
	"github.com/worktrack/timesheet-backend/pkg/httputil"
	"github.com/worktrack/timesheet-backend/pkg/logger"
)

// TaskHandler exposes the deadline resolution actions.
type TaskHandler struct {
	service *service.ResolutionService
	logger  *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(svc *service.ResolutionService, log *logger.Logger) *TaskHandler {
	return &TaskHandler{
		service: svc,
		logger:  log,
	}
}

// PostponeTask extends a task's due date
// POST /tasks/{id}/postpone
func (h *TaskHandler) PostponeTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	var req service.PostponeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	if req.PostponedBy == "" {
		req.PostponedBy = httputil.GetUserID(r.Context())
	}

	rec, err := h.service.Postpone(r.Context(), taskID, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, rec)
}

// AcknowledgeTask records an acknowledgment without changing the due date
// POST /tasks/{id}/acknowledge
func (h *TaskHandler) AcknowledgeTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	var req struct {
		AcknowledgedBy string `json:"acknowledgedBy"`
		ProjectCode    string `json:"projectCode"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if req.AcknowledgedBy == "" {
		req.AcknowledgedBy = httputil.GetUserID(r.Context())
	}

	rec, err := h.service.Acknowledge(r.Context(), taskID, req.AcknowledgedBy, req.ProjectCode)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, rec)
}

// GetPostponements returns a task's resolution ledger
// GET /tasks/{id}/postponements
func (h *TaskHandler) GetPostponements(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	history, err := h.service.History(r.Context(), taskID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, history)
}
