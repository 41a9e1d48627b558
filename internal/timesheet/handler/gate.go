package handler

import (
	"net/http"
	"time"

	"github.com/worktrack/timesheet-backend/internal/timesheet/service"
	"github.com/worktrack/timesheet-backend/pkg/errors"
	"github.com/worktrack/timesheet-backend/pkg/httputil"
	"github.com/worktrack/timesheet-backend/pkg/logger"
)

// GateHandler exposes the pending-resolution gate and the task catalog.
type GateHandler struct {
	service *service.GateService
	logger  *logger.Logger
}

// NewGateHandler creates a new gate handler
func NewGateHandler(svc *service.GateService, log *logger.Logger) *GateHandler {
	return &GateHandler{
		service: svc,
		logger:  log,
	}
}

// PendingDeadlineResponse is the gate evaluation result.
type PendingDeadlineResponse struct {
	PendingTasks    []service.PendingTask    `json:"pendingTasks"`
	SkippedProjects []service.SkippedProject `json:"skippedProjects,omitempty"`
	Date            string                   `json:"date"`
	CanSubmit       bool                     `json:"canSubmit"`
}

// GetPendingDeadlineTasks evaluates the gate for an employee and date
// GET /pending-deadline-tasks?employeeId=...&date=YYYY-MM-DD
func (h *GateHandler) GetPendingDeadlineTasks(w http.ResponseWriter, r *http.Request) {
	employeeID := r.URL.Query().Get("employeeId")
	if employeeID == "" {
		employeeID = httputil.GetUserID(r.Context())
	}
	if employeeID == "" {
		httputil.Error(w, errors.BadRequest("employeeId is required"))
		return
	}

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		dateStr = time.Now().Format(service.DateKeyLayout)
	}
	date, err := service.ParseDateKey(dateStr)
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid date format, expected YYYY-MM-DD"))
		return
	}

	pending, skipped, err := h.service.ComputePending(r.Context(), employeeID, date)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, PendingDeadlineResponse{
		PendingTasks:    pending,
		SkippedProjects: skipped,
		Date:            dateStr,
		CanSubmit:       len(pending) == 0,
	})
}

// GetAvailableTasks lists the tasks an employee can log work against
// GET /available-tasks?employeeId=...
func (h *GateHandler) GetAvailableTasks(w http.ResponseWriter, r *http.Request) {
	employeeID := r.URL.Query().Get("employeeId")
	if employeeID == "" {
		employeeID = httputil.GetUserID(r.Context())
	}
	if employeeID == "" {
		httputil.Error(w, errors.BadRequest("employeeId is required"))
		return
	}

	tasks, err := h.service.ListAvailableTasks(r.Context(), employeeID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, tasks)
}

// GetSubtasks lists a task's subtasks for draft description composition
// GET /subtasks?taskId=...&employeeId=...
func (h *GateHandler) GetSubtasks(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("taskId")
	if taskID == "" {
		httputil.Error(w, errors.BadRequest("taskId is required"))
		return
	}

	employeeID := r.URL.Query().Get("employeeId")
	if employeeID == "" {
		employeeID = httputil.GetUserID(r.Context())
	}
	if employeeID == "" {
		httputil.Error(w, errors.BadRequest("employeeId is required"))
		return
	}

	subtasks, err := h.service.ListSubtasks(r.Context(), employeeID, taskID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, subtasks)
}
