package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worktrack/timesheet-backend/internal/notify"
	"github.com/worktrack/timesheet-backend/internal/pms"
	"github.com/worktrack/timesheet-backend/internal/timesheet/repository"
	"github.com/worktrack/timesheet-backend/internal/timesheet/service"
	"github.com/worktrack/timesheet-backend/pkg/errors"
)

func submissionFixture(gate service.PendingComputer) (*service.SubmissionService, *fakeEntryStore, *fakeNotifier, *fakeBroadcaster) {
	entries := newFakeEntryStore()
	employees := &fakeEmployeeStore{
		employees: map[string]*repository.Employee{
			"emp-1": {ID: "emp-1", Code: "E100", Name: "Ravi Kumar", Department: "Engineering", Role: "employee", ShiftMinutes: 480, Email: strPtr("ravi@worktrack.local")},
		},
	}
	notifier := &fakeNotifier{}
	broadcaster := &fakeBroadcaster{}
	svc := service.NewSubmissionService(entries, employees, gate, notifier, broadcaster, testLogger())
	return svc, entries, notifier, broadcaster
}

func fullDayDrafts() []service.Draft {
	return []service.Draft{
		{ProjectName: "Apollo", TaskDescription: "Ship importer", StartTime: "09:00", EndTime: "13:00", Quantify: "1 module", PercentageComplete: 80},
		{ProjectName: "Apollo", TaskDescription: "Review specs", StartTime: "14:00", EndTime: "18:00", Quantify: "2 docs", PercentageComplete: 100},
	}
}

func TestSubmissionService_Submit_HappyPath(t *testing.T) {
	svc, entries, notifier, broadcaster := submissionFixture(&fakeGate{})

	result, err := svc.Submit(context.Background(), "emp-1", "2026-03-10", fullDayDrafts())
	require.NoError(t, err)

	assert.False(t, result.Blocked)
	assert.Len(t, result.Submitted, 2)
	assert.Empty(t, result.Failed)

	for _, entry := range result.Submitted {
		assert.Equal(t, repository.StatusPending, entry.Status)
		assert.Equal(t, "emp-1", entry.EmployeeID)
		assert.Equal(t, "E100", entry.EmployeeCode)
		assert.Equal(t, "2026-03-10", entry.WorkDate)
		assert.Equal(t, "4h 00m", entry.TotalHours)
	}

	stored, err := entries.ListByEmployeeAndDate(context.Background(), "emp-1", "2026-03-10")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	// One broadcast per entry, one aggregate event and one notification
	// for the whole batch.
	assert.Len(t, broadcaster.created, 2)
	require.Len(t, broadcaster.submitted, 1)
	assert.Equal(t, 2, broadcaster.submitted[0].TaskCount)
	assert.Equal(t, "8h 00m", broadcaster.submitted[0].TotalHours)
	assert.Equal(t, []string{notify.EventTimesheetSubmitted}, notifier.events)
}

func TestSubmissionService_Submit_BlockedPersistsNothing(t *testing.T) {
	gate := &fakeGate{
		pending: []service.PendingTask{
			{Task: pms.Task{ID: "t-1", TaskName: "Ship importer"}, ProjectCode: "PRJ-A", ProjectName: "Apollo", IsAssignedToEmployee: true},
		},
	}
	svc, entries, notifier, broadcaster := submissionFixture(gate)

	result, err := svc.Submit(context.Background(), "emp-1", "2026-03-10", fullDayDrafts())
	require.NoError(t, err)

	assert.True(t, result.Blocked)
	assert.Empty(t, result.Submitted)
	require.Len(t, result.PendingTasks, 1)
	assert.Equal(t, "t-1", result.PendingTasks[0].ID)

	assert.Empty(t, entries.entries)
	assert.Empty(t, notifier.events)
	assert.Empty(t, broadcaster.created)
	assert.Empty(t, broadcaster.submitted)
}

func TestSubmissionService_Submit_ShiftNotCovered(t *testing.T) {
	svc, entries, _, _ := submissionFixture(&fakeGate{})

	short := []service.Draft{
		{ProjectName: "Apollo", TaskDescription: "Ship importer", StartTime: "09:00", EndTime: "12:00"},
	}

	_, err := svc.Submit(context.Background(), "emp-1", "2026-03-10", short)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Empty(t, entries.entries)
}

func TestSubmissionService_Submit_EmptyBatch(t *testing.T) {
	svc, _, _, _ := submissionFixture(&fakeGate{})

	_, err := svc.Submit(context.Background(), "emp-1", "2026-03-10", nil)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestSubmissionService_Submit_PerDraftFailuresReported(t *testing.T) {
	svc, entries, notifier, broadcaster := submissionFixture(&fakeGate{})
	entries.createErr = map[string]error{"Review specs": errBoom}

	result, err := svc.Submit(context.Background(), "emp-1", "2026-03-10", fullDayDrafts())
	require.NoError(t, err)

	// The batch is not atomic: the first draft persists even though the
	// second failed, and the failure is reported per item.
	assert.Len(t, result.Submitted, 1)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "Review specs", result.Failed[0].TaskDescription)
	assert.Contains(t, result.Failed[0].Cause, "boom")

	// A partially successful batch still gets exactly one aggregate
	// notification and broadcast.
	assert.Len(t, broadcaster.submitted, 1)
	assert.Equal(t, []string{notify.EventTimesheetSubmitted}, notifier.events)
}

func TestSubmissionService_Submit_DuplicateDraftRejected(t *testing.T) {
	svc, _, _, _ := submissionFixture(&fakeGate{})

	first, err := svc.Submit(context.Background(), "emp-1", "2026-03-10", fullDayDrafts())
	require.NoError(t, err)
	assert.Len(t, first.Submitted, 2)

	second, err := svc.Submit(context.Background(), "emp-1", "2026-03-10", fullDayDrafts())
	require.NoError(t, err)

	assert.Empty(t, second.Submitted)
	require.Len(t, second.Failed, 2)
	for _, failure := range second.Failed {
		assert.Contains(t, failure.Cause, "already exists")
	}
}

func TestSubmissionService_Submit_GateErrorAborts(t *testing.T) {
	svc, entries, _, _ := submissionFixture(&fakeGate{err: errors.Upstream(errBoom, "failed to fetch projects from PMS")})

	_, err := svc.Submit(context.Background(), "emp-1", "2026-03-10", fullDayDrafts())
	require.Error(t, err)
	assert.Empty(t, entries.entries)
}

func TestSubmissionService_Submit_InvalidTimeRange(t *testing.T) {
	svc, _, _, _ := submissionFixture(&fakeGate{})

	drafts := []service.Draft{
		{ProjectName: "Apollo", TaskDescription: "Ship importer", StartTime: "18:00", EndTime: "09:00"},
	}

	_, err := svc.Submit(context.Background(), "emp-1", "2026-03-10", drafts)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestSubmissionService_Submit_NotificationFailureDoesNotFailBatch(t *testing.T) {
	svc, _, notifier, broadcaster := submissionFixture(&fakeGate{})
	notifier.err = errBoom

	result, err := svc.Submit(context.Background(), "emp-1", "2026-03-10", fullDayDrafts())
	require.NoError(t, err)

	assert.Len(t, result.Submitted, 2)
	assert.Len(t, broadcaster.submitted, 1)
}
