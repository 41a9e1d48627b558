package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/worktrack/timesheet-backend/internal/timesheet/service"
	"github.com/worktrack/timesheet-backend/pkg/errors"
	"github.com/worktrack/timesheet-backend/pkg/httputil"
	"github.com/worktrack/timesheet-backend/pkg/logger"
)

// TimeEntryHandler handles time entry endpoints
type TimeEntryHandler struct {
	service    *service.TimeEntryService
	submission *service.SubmissionService
	logger     *logger.Logger
}

// NewTimeEntryHandler creates a new time entry handler
func NewTimeEntryHandler(svc *service.TimeEntryService, submission *service.SubmissionService, log *logger.Logger) *TimeEntryHandler {
	return &TimeEntryHandler{
		service:    svc,
		submission: submission,
		logger:     log,
	}
}

// CreateRequest is the body for a single entry create.
type CreateRequest struct {
	EmployeeID string `json:"employeeId"`
	WorkDate   string `json:"workDate" validate:"required"`
	service.Draft
}

// Create persists one pending entry
// POST /time-entries
func (h *TimeEntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	if req.EmployeeID == "" {
		req.EmployeeID = httputil.GetUserID(r.Context())
	}
	if req.EmployeeID == "" {
		httputil.Error(w, errors.BadRequest("employeeId is required"))
		return
	}

	entry, err := h.service.Create(r.Context(), req.EmployeeID, req.WorkDate, &req.Draft)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, entry)
}

// SubmitRequest is the body for a day's batch submission.
type SubmitRequest struct {
	EmployeeID string          `json:"employeeId"`
	Date       string          `json:"date" validate:"required"`
	Entries    []service.Draft `json:"entries" validate:"required,dive"`
}

// Submit runs the gated submission pipeline for a day's drafts
// POST /time-entries/submit
func (h *TimeEntryHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	if req.EmployeeID == "" {
		req.EmployeeID = httputil.GetUserID(r.Context())
	}
	if req.EmployeeID == "" {
		httputil.Error(w, errors.BadRequest("employeeId is required"))
		return
	}

	result, err := h.submission.Submit(r.Context(), req.EmployeeID, req.Date, req.Entries)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	// A blocked submission is not an error, but the batch was not accepted.
	if result.Blocked {
		httputil.JSON(w, http.StatusConflict, result)
		return
	}

	httputil.Created(w, result)
}

// List returns all entries
// GET /time-entries
func (h *TimeEntryHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}

// ListPending returns entries awaiting the first approval stage
// GET /time-entries/pending
func (h *TimeEntryHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListPending(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}

// ListByEmployee returns one employee's entries
// GET /time-entries/employee/{id}?date=YYYY-MM-DD
func (h *TimeEntryHandler) ListByEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")
	date := r.URL.Query().Get("date")

	entries, err := h.service.ListByEmployee(r.Context(), employeeID, date)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}

// GetByID returns one entry
// GET /time-entries/{id}
func (h *TimeEntryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entry, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// Update replaces the editable fields of a pending entry
// PUT /time-entries/{id}
func (h *TimeEntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req service.Draft
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	entry, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// Delete removes a pending entry
// DELETE /time-entries/{id}
func (h *TimeEntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
