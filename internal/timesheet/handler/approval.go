package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/worktrack/timesheet-backend/internal/timesheet/service"
	"github.com/worktrack/timesheet-backend/pkg/errors"
	"github.com/worktrack/timesheet-backend/pkg/httputil"
	"github.com/worktrack/timesheet-backend/pkg/logger"
)

// ApprovalHandler drives the two-stage review endpoints.
type ApprovalHandler struct {
	service *service.ApprovalService
	logger  *logger.Logger
}

// NewApprovalHandler creates a new approval handler
func NewApprovalHandler(svc *service.ApprovalService, log *logger.Logger) *ApprovalHandler {
	return &ApprovalHandler{
		service: svc,
		logger:  log,
	}
}

func approverID(r *http.Request, bodyValue string) string {
	if bodyValue != "" {
		return bodyValue
	}
	return httputil.GetUserID(r.Context())
}

// ManagerApprove records the first approval stage
// PATCH /time-entries/{id}/manager-approve
func (h *ApprovalHandler) ManagerApprove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		ApprovedBy string `json:"approvedBy"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	actor := approverID(r, req.ApprovedBy)
	if actor == "" {
		httputil.Error(w, errors.BadRequest("approvedBy is required"))
		return
	}

	entry, err := h.service.ManagerApprove(r.Context(), id, actor)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// Approve records the final approval stage
// PATCH /time-entries/{id}/approve
func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		ApprovedBy string `json:"approvedBy"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	actor := approverID(r, req.ApprovedBy)
	if actor == "" {
		httputil.Error(w, errors.BadRequest("approvedBy is required"))
		return
	}

	entry, err := h.service.AdminApprove(r.Context(), id, actor)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// Reject rejects an entry with a reason
// PATCH /time-entries/{id}/reject
func (h *ApprovalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		RejectedBy string `json:"rejectedBy"`
		Reason     string `json:"reason"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	actor := approverID(r, req.RejectedBy)
	if actor == "" {
		httputil.Error(w, errors.BadRequest("rejectedBy is required"))
		return
	}

	entry, err := h.service.Reject(r.Context(), id, actor, req.Reason)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}
