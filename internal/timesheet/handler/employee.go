package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/worktrack/timesheet-backend/internal/timesheet/repository"
	"github.com/worktrack/timesheet-backend/pkg/httputil"
	"github.com/worktrack/timesheet-backend/pkg/logger"
)

// EmployeeHandler exposes the employee directory.
type EmployeeHandler struct {
	repo   *repository.EmployeeRepository
	logger *logger.Logger
}

// NewEmployeeHandler creates a new employee handler
func NewEmployeeHandler(repo *repository.EmployeeRepository, log *logger.Logger) *EmployeeHandler {
	return &EmployeeHandler{
		repo:   repo,
		logger: log,
	}
}

// List returns all employees
// GET /employees
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.repo.List(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, employees)
}

// GetByID returns one employee
// GET /employees/{id}
func (h *EmployeeHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	employee, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, employee)
}
