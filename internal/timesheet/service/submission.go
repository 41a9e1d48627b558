package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/worktrack/timesheet-backend/internal/notify"
	"github.com/worktrack/timesheet-backend/internal/timesheet/repository"
	"github.com/worktrack/timesheet-backend/pkg/errors"
	"github.com/worktrack/timesheet-backend/pkg/logger"
	"github.com/worktrack/timesheet-backend/pkg/messaging"
)

// PendingComputer evaluates the pending-resolution gate.
type PendingComputer interface {
	ComputePending(ctx context.Context, employeeID string, targetDate time.Time) ([]PendingTask, []SkippedProject, error)
}

// Draft is one unsubmitted task line of a day's timesheet.
type Draft struct {
	ProjectName         string   `json:"projectName" validate:"required"`
	TaskDescription     string   `json:"taskDescription" validate:"required"`
	ProblemsAndIssues   *string  `json:"problemsAndIssues,omitempty"`
	Quantify            string   `json:"quantify"`
	Achievements        *string  `json:"achievements,omitempty"`
	ScopeOfImprovements *string  `json:"scopeOfImprovements,omitempty"`
	ToolsUsed           []string `json:"toolsUsed,omitempty"`
	StartTime           string   `json:"startTime" validate:"required"`
	EndTime             string   `json:"endTime" validate:"required"`
	PercentageComplete  int      `json:"percentageComplete" validate:"min=0,max=100"`
}

// SubmitFailure reports one draft that could not be persisted.
type SubmitFailure struct {
	TaskDescription string `json:"taskDescription"`
	Cause           string `json:"cause"`
}

// SubmitResult is the outcome of a batch submission. The batch is not
// atomic: some drafts may persist while others fail, and each failure is
// reported alongside the successes.
type SubmitResult struct {
	Submitted       []*repository.TimeEntry `json:"submitted"`
	Failed          []SubmitFailure         `json:"failed,omitempty"`
	Blocked         bool                    `json:"blocked"`
	PendingTasks    []PendingTask           `json:"pendingTasks,omitempty"`
	SkippedProjects []SkippedProject        `json:"skippedProjects,omitempty"`
}

// SubmissionService runs the gated submission pipeline for a day's drafts.
type SubmissionService struct {
	entries     TimeEntryStore
	employees   EmployeeStore
	gate        PendingComputer
	notifier    notify.Notifier
	broadcaster Broadcaster
	logger      *logger.Logger
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(
	entries TimeEntryStore,
	employees EmployeeStore,
	gate PendingComputer,
	notifier notify.Notifier,
	broadcaster Broadcaster,
	log *logger.Logger,
) *SubmissionService {
	return &SubmissionService{
		entries:     entries,
		employees:   employees,
		gate:        gate,
		notifier:    notifier,
		broadcaster: broadcaster,
		logger:      log,
	}
}

// Submit persists a day's drafts as pending time entries. The batch must
// cover at least the employee's shift length, and the pending-resolution
// gate is re-evaluated from scratch at submit time: any pending task
// blocks the whole batch before a single row is written. Past the gate,
// drafts persist independently and per-draft failures are reported in the
// result. Exactly one aggregate notification and one aggregate broadcast
// go out per successful batch, regardless of entry count.
func (s *SubmissionService) Submit(ctx context.Context, employeeID, date string, drafts []Draft) (*SubmitResult, error) {
	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	workDate, err := ParseDateKey(date)
	if err != nil {
		return nil, errors.Validation(map[string]string{"date": "must be a yyyy-mm-dd date"})
	}

	if len(drafts) == 0 {
		return nil, errors.Validation(map[string]string{"entries": "at least one entry is required"})
	}

	totalMinutes := 0
	durations := make([]int, len(drafts))
	for i, draft := range drafts {
		minutes, err := minutesBetween(draft.StartTime, draft.EndTime)
		if err != nil {
			return nil, errors.Validation(map[string]string{
				"entries": fmt.Sprintf("entry %d: %v", i+1, err),
			})
		}
		durations[i] = minutes
		totalMinutes += minutes
	}

	if totalMinutes < employee.ShiftMinutes {
		return nil, errors.Validation(map[string]string{
			"entries": fmt.Sprintf("logged time %s does not cover the %s shift",
				formatMinutes(totalMinutes), formatMinutes(employee.ShiftMinutes)),
		})
	}

	pending, skipped, err := s.gate.ComputePending(ctx, employeeID, workDate)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		s.logger.Info().
			Str("employee_id", employeeID).
			Str("date", date).
			Int("pending", len(pending)).
			Msg("submission blocked by pending deadline tasks")
		return &SubmitResult{
			Submitted:       []*repository.TimeEntry{},
			Blocked:         true,
			PendingTasks:    pending,
			SkippedProjects: skipped,
		}, nil
	}

	result := &SubmitResult{
		Submitted:       []*repository.TimeEntry{},
		SkippedProjects: skipped,
	}

	for i, draft := range drafts {
		exists, err := s.entries.ExistsForEmployeeDateTask(ctx, employeeID, date, draft.TaskDescription)
		if err != nil {
			result.Failed = append(result.Failed, SubmitFailure{
				TaskDescription: draft.TaskDescription,
				Cause:           err.Error(),
			})
			continue
		}
		if exists {
			result.Failed = append(result.Failed, SubmitFailure{
				TaskDescription: draft.TaskDescription,
				Cause:           "an entry for this task already exists on this date",
			})
			continue
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
			TotalHours:          formatMinutes(durations[i]),
			PercentageComplete:  draft.PercentageComplete,
			Status:              repository.StatusPending,
		}

		if err := s.entries.Create(ctx, entry); err != nil {
			s.logger.Warn().Err(err).
				Str("employee_id", employeeID).
				Str("task", draft.TaskDescription).
				Msg("failed to persist draft")
			result.Failed = append(result.Failed, SubmitFailure{
				TaskDescription: draft.TaskDescription,
				Cause:           err.Error(),
			})
			continue
		}

		result.Submitted = append(result.Submitted, entry)
		s.broadcaster.TimeEntryCreated(ctx, entry)
	}

	if len(result.Submitted) > 0 {
		submittedAt := time.Now().UTC()
		aggregate := messaging.TimesheetSubmittedEvent{
			EmployeeID:   employee.ID,
			EmployeeCode: employee.Code,
			EmployeeName: employee.Name,
			Date:         date,
			TaskCount:    len(result.Submitted),
			TotalHours:   formatMinutes(totalMinutes),
			SubmittedAt:  submittedAt,
		}
		s.broadcaster.TimesheetSubmitted(ctx, aggregate)

		if err := s.notifier.Notify(ctx, notify.EventTimesheetSubmitted, aggregate); err != nil {
			s.logger.Warn().Err(err).
				Str("employee_id", employeeID).
				Str("date", date).
				Msg("failed to send submission notification")
		}
	}

	s.logger.Info().
		Str("employee_id", employeeID).
		Str("date", date).
		Int("submitted", len(result.Submitted)).
		Int("failed", len(result.Failed)).
		Msg("timesheet submitted")

	return result, nil
}

// minutesBetween computes the duration of a HH:MM..HH:MM range within one
// day. The end must come after the start.
func minutesBetween(startTime, endTime string) (int, error) {
	start, err := time.Parse("15:04", startTime)
	if err != nil {
		return 0, fmt.Errorf("invalid start time %q", startTime)
	}
	end, err := time.Parse("15:04", endTime)
	if err != nil {
		return 0, fmt.Errorf("invalid end time %q", endTime)
	}

	minutes := int(end.Sub(start).Minutes())
	if minutes <= 0 {
		return 0, fmt.Errorf("end time %q must be after start time %q", endTime, startTime)
	}
	return minutes, nil
}

// formatMinutes renders a duration as "7h 30m".
func formatMinutes(minutes int) string {
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}
