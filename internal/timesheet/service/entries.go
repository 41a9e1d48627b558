package service

import (
	"context"

	"github.com/lib/pq"
	"github.com/worktrack/timesheet-backend/internal/timesheet/repository"
	"github.com/worktrack/timesheet-backend/pkg/errors"
	"github.com/worktrack/timesheet-backend/pkg/logger"
)

// TimeEntryStore persists time entries and their approval transitions.
type TimeEntryStore interface {
	Create(ctx context.Context, entry *repository.TimeEntry) error
	GetByID(ctx context.Context, id string) (*repository.TimeEntry, error)
	List(ctx context.Context) ([]*repository.TimeEntry, error)
	ListPending(ctx context.Context) ([]*repository.TimeEntry, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*repository.TimeEntry, error)
	ListByEmployeeAndDate(ctx context.Context, employeeID, workDate string) ([]*repository.TimeEntry, error)
	ExistsForEmployeeDateTask(ctx context.Context, employeeID, workDate, taskDescription string) (bool, error)
	Update(ctx context.Context, entry *repository.TimeEntry) error
	Delete(ctx context.Context, id string) error
	MarkManagerApproved(ctx context.Context, id, approverID string) (*repository.TimeEntry, error)
	MarkAdminApproved(ctx context.Context, id, approverID string) (*repository.TimeEntry, error)
	MarkRejected(ctx context.Context, id, approverID, reason string) (*repository.TimeEntry, error)
}

// TimeEntryService handles individual time entry CRUD. Entries enter and
// leave through here outside the batch submission pipeline; edits and
// deletes are allowed only while an entry is still pending.
type TimeEntryService struct {
	entries     TimeEntryStore
	employees   EmployeeStore
	broadcaster Broadcaster
	logger      *logger.Logger
}

// NewTimeEntryService creates a new time entry service
func NewTimeEntryService(entries TimeEntryStore, employees EmployeeStore, broadcaster Broadcaster, log *logger.Logger) *TimeEntryService {
	return &TimeEntryService{
		entries:     entries,
		employees:   employees,
		broadcaster: broadcaster,
		logger:      log,
	}
}

// Create persists a single pending entry for one work day.
func (s *TimeEntryService) Create(ctx context.Context, employeeID, date string, draft *Draft) (*repository.TimeEntry, error) {
	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	if _, err := ParseDateKey(date); err != nil {
		return nil, errors.Validation(map[string]string{"workDate": "must be a yyyy-mm-dd date"})
	}

	minutes, err := minutesBetween(draft.StartTime, draft.EndTime)
	if err != nil {
		return nil, errors.Validation(map[string]string{"startTime": err.Error()})
	}

	exists, err := s.entries.ExistsForEmployeeDateTask(ctx, employeeID, date, draft.TaskDescription)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Conflict("an entry for this task already exists on this date")
	}

	entry := &repository.TimeEntry{
		EmployeeID:          employee.ID,
		EmployeeCode:        employee.Code,
		EmployeeName:        employee.Name,
		WorkDate:            date,
		ProjectName:         draft.ProjectName,
		TaskDescription:     draft.TaskDescription,
		ProblemsAndIssues:   draft.ProblemsAndIssues,
		Quantify:            draft.Quantify,
		Achievements:        draft.Achievements,
		ScopeOfImprovements: draft.ScopeOfImprovements,
		ToolsUsed:           pq.StringArray(draft.ToolsUsed),
		StartTime:           draft.StartTime,
		EndTime:             draft.EndTime,
		TotalHours:          formatMinutes(minutes),
		PercentageComplete:  draft.PercentageComplete,
		Status:              repository.StatusPending,
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.broadcaster.TimeEntryCreated(ctx, entry)
	return entry, nil
}

// GetByID returns one entry.
func (s *TimeEntryService) GetByID(ctx context.Context, id string) (*repository.TimeEntry, error) {
	return s.entries.GetByID(ctx, id)
}

// List returns all entries, newest work date first.
func (s *TimeEntryService) List(ctx context.Context) ([]*repository.TimeEntry, error) {
	return s.entries.List(ctx)
}

// ListPending returns entries awaiting the first approval stage.
func (s *TimeEntryService) ListPending(ctx context.Context) ([]*repository.TimeEntry, error) {
	return s.entries.ListPending(ctx)
}

// ListByEmployee returns one employee's entries, optionally narrowed to a
// single work day.
func (s *TimeEntryService) ListByEmployee(ctx context.Context, employeeID, date string) ([]*repository.TimeEntry, error) {
	if date != "" {
		if _, err := ParseDateKey(date); err != nil {
			return nil, errors.Validation(map[string]string{"date": "must be a yyyy-mm-dd date"})
		}
		return s.entries.ListByEmployeeAndDate(ctx, employeeID, date)
	}
	return s.entries.ListByEmployee(ctx, employeeID)
}

// Update replaces the employee-editable fields of a pending entry.
func (s *TimeEntryService) Update(ctx context.Context, id string, draft *Draft) (*repository.TimeEntry, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	minutes, err := minutesBetween(draft.StartTime, draft.EndTime)
	if err != nil {
		return nil, errors.Validation(map[string]string{"startTime": err.Error()})
	}

	entry.ProjectName = draft.ProjectName
	entry.TaskDescription = draft.TaskDescription
	entry.ProblemsAndIssues = draft.ProblemsAndIssues
	entry.Quantify = draft.Quantify
	entry.Achievements = draft.Achievements
	entry.ScopeOfImprovements = draft.ScopeOfImprovements
	entry.ToolsUsed = pq.StringArray(draft.ToolsUsed)
	entry.StartTime = draft.StartTime
	entry.EndTime = draft.EndTime
	entry.TotalHours = formatMinutes(minutes)
	entry.PercentageComplete = draft.PercentageComplete

	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, err
	}

	s.broadcaster.TimeEntryUpdated(ctx, entry)
	return entry, nil
}

// Delete removes a pending entry.
func (s *TimeEntryService) Delete(ctx context.Context, id string) error {
	if _, err := s.entries.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.entries.Delete(ctx, id); err != nil {
		return err
	}

	s.broadcaster.TimeEntryDeleted(ctx, id)
	return nil
}
