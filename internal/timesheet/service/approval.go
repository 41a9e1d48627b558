package service

import (
	"context"
	"strings"

	"github.com/worktrack/timesheet-backend/internal/notify"
	"github.com/worktrack/timesheet-backend/internal/timesheet/repository"
	"github.com/worktrack/timesheet-backend/pkg/errors"
	"github.com/worktrack/timesheet-backend/pkg/logger"
)

// ApprovalService drives the two-stage review chain: pending entries are
// first manager approved, then admin approved. Rejection is allowed from
// either non-terminal state; approved and rejected entries never change.
type ApprovalService struct {
	entries     TimeEntryStore
	employees   EmployeeStore
	notifier    notify.Notifier
	broadcaster Broadcaster
	logger      *logger.Logger
}

// NewApprovalService creates a new approval service
func NewApprovalService(entries TimeEntryStore, employees EmployeeStore, notifier notify.Notifier, broadcaster Broadcaster, log *logger.Logger) *ApprovalService {
	return &ApprovalService{
		entries:     entries,
		employees:   employees,
		notifier:    notifier,
		broadcaster: broadcaster,
		logger:      log,
	}
}

// ManagerApprove records the first approval stage on a pending entry and
// notifies the entry's owner that review has started.
func (s *ApprovalService) ManagerApprove(ctx context.Context, id, approverID string) (*repository.TimeEntry, error) {
	if _, err := s.entries.GetByID(ctx, id); err != nil {
		return nil, err
	}

	entry, err := s.entries.MarkManagerApproved(ctx, id, approverID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.TimeEntryUpdated(ctx, entry)
	s.notifyOwner(ctx, notify.EventEntryManagerApproved, entry, "")
	s.logger.Info().
		Str("entry_id", id).
		Str("approver_id", approverID).
		Msg("entry manager approved")

	return entry, nil
}

// AdminApprove records the final approval stage and notifies the entry's
// owner. The manager stage may be skipped; a pending entry can go straight
// to approved.
func (s *ApprovalService) AdminApprove(ctx context.Context, id, approverID string) (*repository.TimeEntry, error) {
	if _, err := s.entries.GetByID(ctx, id); err != nil {
		return nil, err
	}

	entry, err := s.entries.MarkAdminApproved(ctx, id, approverID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.TimeEntryUpdated(ctx, entry)
	s.notifyOwner(ctx, notify.EventEntryApproved, entry, "")
	s.logger.Info().
		Str("entry_id", id).
		Str("approver_id", approverID).
		Msg("entry approved")

	return entry, nil
}

// Reject records a rejection with its reason and notifies the entry's
// owner. A reason is required so the employee knows what to fix.
func (s *ApprovalService) Reject(ctx context.Context, id, approverID, reason string) (*repository.TimeEntry, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errors.Validation(map[string]string{"reason": "rejection reason is required"})
	}

	if _, err := s.entries.GetByID(ctx, id); err != nil {
		return nil, err
	}

	entry, err := s.entries.MarkRejected(ctx, id, approverID, reason)
	if err != nil {
		return nil, err
	}

	s.broadcaster.TimeEntryUpdated(ctx, entry)
	s.notifyOwner(ctx, notify.EventEntryRejected, entry, reason)
	s.logger.Info().
		Str("entry_id", id).
		Str("approver_id", approverID).
		Msg("entry rejected")

	return entry, nil
}

type reviewNotification struct {
	Recipients      []string `json:"recipients"`
	EntryID         string   `json:"entry_id"`
	EmployeeName    string   `json:"employee_name"`
	WorkDate        string   `json:"work_date"`
	TaskDescription string   `json:"task_description"`
	Status          string   `json:"status"`
	Reason          string   `json:"reason,omitempty"`
}

// notifyOwner mails the employee whose entry was reviewed. Missing owner
// records or delivery failures are logged, never propagated.
func (s *ApprovalService) notifyOwner(ctx context.Context, event string, entry *repository.TimeEntry, reason string) {
	owner, err := s.employees.GetByID(ctx, entry.EmployeeID)
	if err != nil {
		s.logger.Warn().Err(err).Str("entry_id", entry.ID).Msg("failed to resolve entry owner for notification")
		return
	}

	emails := repository.RecipientEmails([]*repository.Employee{owner})
	if len(emails) == 0 {
		return
	}

	payload := reviewNotification{
		Recipients:      emails,
		EntryID:         entry.ID,
		EmployeeName:    entry.EmployeeName,
		WorkDate:        entry.WorkDate,
		TaskDescription: entry.TaskDescription,
		Status:          entry.Status,
		Reason:          reason,
	}

	if err := s.notifier.Notify(ctx, event, payload); err != nil {
		s.logger.Warn().Err(err).Str("entry_id", entry.ID).Str("event", event).Msg("failed to send review notification")
	}
}
