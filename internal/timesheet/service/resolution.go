package service

import (
	"context"
	"strings"
	"time"

	"github.com/worktrack/timesheet-backend/internal/notify"
	"github.com/worktrack/timesheet-backend/internal/pms"
	"github.com/worktrack/timesheet-backend/internal/timesheet/repository"
	"github.com/worktrack/timesheet-backend/pkg/errors"
	"github.com/worktrack/timesheet-backend/pkg/logger"
	"github.com/worktrack/timesheet-backend/pkg/messaging"
)

// PMSWriter is the write side of the project-management system.
type PMSWriter interface {
	UpdateTaskDueDate(ctx context.Context, taskID, newDate string) (*pms.Task, error)
}

// ResolutionLedger persists the append-only postponement and
// acknowledgment records.
type ResolutionLedger interface {
	CreatePostponement(ctx context.Context, rec *repository.PostponementRecord) error
	ListByTask(ctx context.Context, taskID string) ([]*repository.PostponementRecord, error)
	CreateAcknowledgment(ctx context.Context, rec *repository.AcknowledgmentRecord) error
	ListAcknowledgmentsByTask(ctx context.Context, taskID string) ([]*repository.AcknowledgmentRecord, error)
}

// Broadcaster fans domain events out to the broker. Implementations must
// not return errors; broadcasting is fire and forget.
type Broadcaster interface {
	TimeEntryCreated(ctx context.Context, entry *repository.TimeEntry)
	TimeEntryUpdated(ctx context.Context, entry *repository.TimeEntry)
	TimeEntryDeleted(ctx context.Context, entryID string)
	TimesheetSubmitted(ctx context.Context, event messaging.TimesheetSubmittedEvent)
	TaskPostponed(ctx context.Context, event messaging.TaskPostponedEvent)
	TaskAcknowledged(ctx context.Context, event messaging.TaskAcknowledgedEvent)
	PolicyUpdated(ctx context.Context, event messaging.PolicyUpdatedEvent)
}

// PostponeRequest carries a due date extension.
type PostponeRequest struct {
	PreviousDueDate *string `json:"previousDueDate,omitempty"`
	NewDueDate      string  `json:"newDueDate" validate:"required"`
	Reason          string  `json:"reason" validate:"required"`
	PostponedBy     string  `json:"postponedBy,omitempty"`
}

// TaskResolutionHistory is a task's full resolution ledger.
type TaskResolutionHistory struct {
	Postponements   []*repository.PostponementRecord   `json:"postponements"`
	Acknowledgments []*repository.AcknowledgmentRecord `json:"acknowledgments"`
	PostponeCount   int                                `json:"postponeCount"`
}

// ResolutionService records how pending-deadline tasks were resolved:
// postponed with a new due date, or acknowledged as-is.
type ResolutionService struct {
	ledger      ResolutionLedger
	employees   EmployeeStore
	pmsClient   PMSWriter
	notifier    notify.Notifier
	broadcaster Broadcaster
	logger      *logger.Logger
}

// NewResolutionService creates a new resolution service
func NewResolutionService(
	ledger ResolutionLedger,
	employees EmployeeStore,
	pmsClient PMSWriter,
	notifier notify.Notifier,
	broadcaster Broadcaster,
	log *logger.Logger,
) *ResolutionService {
	return &ResolutionService{
		ledger:      ledger,
		employees:   employees,
		pmsClient:   pmsClient,
		notifier:    notifier,
		broadcaster: broadcaster,
		logger:      log,
	}
}

// Postpone extends a task's due date. The new date is written to the PMS,
// which owns the effective due date, and an immutable ledger row records
// the extension with its running count. Notification and broadcast
// failures are logged, never returned: once the ledger row exists the
// postponement happened.
func (s *ResolutionService) Postpone(ctx context.Context, taskID string, req *PostponeRequest) (*repository.PostponementRecord, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, errors.Validation(map[string]string{"reason": "reason is required"})
	}

	newDue, err := ParseDateKey(req.NewDueDate)
	if err != nil {
		return nil, errors.Validation(map[string]string{"newDueDate": "must be a yyyy-mm-dd date"})
	}
	if DateKey(newDue) < DateKey(time.Now()) {
		return nil, errors.Validation(map[string]string{"newDueDate": "must not be in the past"})
	}

	if _, err := s.pmsClient.UpdateTaskDueDate(ctx, taskID, req.NewDueDate); err != nil {
		return nil, errors.Upstream(err, "failed to update task due date in PMS")
	}

	rec := &repository.PostponementRecord{
		TaskID:          taskID,
		PreviousDueDate: req.PreviousDueDate,
		NewDueDate:      req.NewDueDate,
		Reason:          reason,
	}
	if req.PostponedBy != "" {
		rec.PostponedBy = &req.PostponedBy
	}

	if err := s.ledger.CreatePostponement(ctx, rec); err != nil {
		// The PMS already carries the new date at this point. The ledger is
		// the audit trail, so the caller must know the record is missing.
		s.logger.Error().Err(err).
			Str("task_id", taskID).
			Str("new_due_date", req.NewDueDate).
			Msg("postponement applied in PMS but ledger insert failed")
		return nil, err
	}

	s.notifyPostponement(ctx, rec)

	event := messaging.TaskPostponedEvent{
		TaskID:        rec.TaskID,
		NewDueDate:    rec.NewDueDate,
		Reason:        rec.Reason,
		PostponeCount: rec.PostponeCount,
	}
	if rec.PreviousDueDate != nil {
		event.PreviousDueDate = *rec.PreviousDueDate
	}
	if rec.PostponedBy != nil {
		event.PostponedBy = *rec.PostponedBy
	}
	s.broadcaster.TaskPostponed(ctx, event)

	s.logger.Info().
		Str("task_id", taskID).
		Str("new_due_date", rec.NewDueDate).
		Int("postpone_count", rec.PostponeCount).
		Msg("task postponed")

	return rec, nil
}

// Acknowledge records that an overdue or due task was reviewed and left
// as-is. The due date does not change and the row is append-only, so the
// task reappears in the pending set on its next due date match.
func (s *ResolutionService) Acknowledge(ctx context.Context, taskID, actorID, projectCode string) (*repository.AcknowledgmentRecord, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, errors.Validation(map[string]string{"acknowledgedBy": "acknowledging employee is required"})
	}

	rec := &repository.AcknowledgmentRecord{
		TaskID:         taskID,
		AcknowledgedBy: actorID,
	}
	if projectCode != "" {
		rec.ProjectCode = &projectCode
	}

	if err := s.ledger.CreateAcknowledgment(ctx, rec); err != nil {
		return nil, err
	}

	event := messaging.TaskAcknowledgedEvent{
		TaskID:         rec.TaskID,
		AcknowledgedBy: rec.AcknowledgedBy,
	}
	if rec.ProjectCode != nil {
		event.ProjectCode = *rec.ProjectCode
	}
	s.broadcaster.TaskAcknowledged(ctx, event)

	s.logger.Info().
		Str("task_id", taskID).
		Str("acknowledged_by", actorID).
		Msg("task acknowledged")

	return rec, nil
}

// History returns a task's resolution ledger, newest entries first.
func (s *ResolutionService) History(ctx context.Context, taskID string) (*TaskResolutionHistory, error) {
	postponements, err := s.ledger.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	acknowledgments, err := s.ledger.ListAcknowledgmentsByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return &TaskResolutionHistory{
		Postponements:   postponements,
		Acknowledgments: acknowledgments,
		PostponeCount:   len(postponements),
	}, nil
}

type postponementNotification struct {
	Recipients      []string `json:"recipients"`
	TaskID          string   `json:"task_id"`
	PreviousDueDate string   `json:"previous_due_date,omitempty"`
	NewDueDate      string   `json:"new_due_date"`
	Reason          string   `json:"reason"`
	PostponedBy     string   `json:"postponed_by,omitempty"`
	PostponeCount   int      `json:"postpone_count"`
}

// notifyPostponement mails admins and HR, plus the acting employee.
func (s *ResolutionService) notifyPostponement(ctx context.Context, rec *repository.PostponementRecord) {
	recipients, err := s.employees.ListPostponementRecipients(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("task_id", rec.TaskID).Msg("failed to resolve postponement recipients")
		recipients = nil
	}

	if rec.PostponedBy != nil {
		if actor, err := s.employees.GetByID(ctx, *rec.PostponedBy); err == nil {
			recipients = append(recipients, actor)
		}
	}

	emails := repository.RecipientEmails(recipients)
	if len(emails) == 0 {
		return
	}

	payload := postponementNotification{
		Recipients:    emails,
		TaskID:        rec.TaskID,
		NewDueDate:    rec.NewDueDate,
		Reason:        rec.Reason,
		PostponeCount: rec.PostponeCount,
	}
	if rec.PreviousDueDate != nil {
		payload.PreviousDueDate = *rec.PreviousDueDate
	}
	if rec.PostponedBy != nil {
		payload.PostponedBy = *rec.PostponedBy
	}

	if err := s.notifier.Notify(ctx, notify.EventTaskPostponed, payload); err != nil {
		s.logger.Warn().Err(err).Str("task_id", rec.TaskID).Msg("failed to send postponement notification")
	}
}
