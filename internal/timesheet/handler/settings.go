package handler

import (
	"net/http"

	"github.com/worktrack/timesheet-backend/internal/timesheet/service"
	"github.com/worktrack/timesheet-backend/pkg/httputil"
	"github.com/worktrack/timesheet-backend/pkg/logger"
)

// SettingsHandler exposes the submission blocking policy.
type SettingsHandler struct {
	service *service.PolicyService
	logger  *logger.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(svc *service.PolicyService, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: svc,
		logger:  log,
	}
}

// GetBlockingPolicy returns the current policy
// GET /settings/timesheet-blocking
func (h *SettingsHandler) GetBlockingPolicy(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, h.service.GetPolicy(r.Context()))
}

// UpdateBlockingPolicy durably updates the policy
// PATCH /settings/timesheet-blocking
func (h *SettingsHandler) UpdateBlockingPolicy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BlockUnassignedProjectTasks bool `json:"blockUnassignedProjectTasks"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	policy, err := h.service.SetPolicy(r.Context(), req.BlockUnassignedProjectTasks, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, policy)
}
