package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worktrack/timesheet-backend/internal/pms"
	"github.com/worktrack/timesheet-backend/internal/timesheet/repository"
	"github.com/worktrack/timesheet-backend/internal/timesheet/service"
	"github.com/worktrack/timesheet-backend/pkg/errors"
)

const targetDay = "2026-03-10"

func gateFixture(policy bool) (*service.GateService, *fakePMS, *fakePolicyStore) {
	employees := &fakeEmployeeStore{
		employees: map[string]*repository.Employee{
			"emp-1": {ID: "emp-1", Code: "E100", Name: "Ravi Kumar", Department: "Engineering", Role: "employee", ShiftMinutes: 480},
		},
	}
	pmsClient := &fakePMS{
		projects: []pms.Project{
			{ProjectCode: "PRJ-A", ProjectName: "Apollo", EndDate: dateOf("2026-04-01")},
			{ProjectCode: "PRJ-B", ProjectName: "Borealis"},
		},
		tasks: map[string][]pms.Task{
			"PRJ-A": {
				{ID: "t-due-assigned", TaskName: "Ship importer", Assignee: "E100", EndDate: dateOf(targetDay)},
				{ID: "t-due-unassigned", TaskName: "Refresh docs", Assignee: "E999", EndDate: dateOf(targetDay)},
				{ID: "t-due-completed", TaskName: "Old migration", Assignee: "E100", EndDate: dateOf(targetDay), IsCompleted: true},
				{ID: "t-due-status-completed", TaskName: "Cleanup", Assignee: "E100", EndDate: dateOf(targetDay), Status: "Completed"},
				{ID: "t-tomorrow", TaskName: "Next sprint", Assignee: "E100", EndDate: dateOf("2026-03-11")},
				{ID: "t-yesterday", TaskName: "Past due", Assignee: "E100", EndDate: dateOf("2026-03-09")},
				{ID: "t-no-due", TaskName: "Backlog idea", Assignee: "E100"},
			},
			"PRJ-B": {
				{ID: "t-member", TaskName: "Review specs", Assignee: "E777", TaskMembers: []string{"E100"}, EndDate: dateOf(targetDay)},
			},
		},
	}
	settings := &fakePolicyStore{policy: repository.Policy{BlockUnassignedProjectTasks: policy}}
	return service.NewGateService(employees, pmsClient, settings, testLogger()), pmsClient, settings
}

func mustParseDay(t *testing.T, key string) time.Time {
	t.Helper()
	day, err := service.ParseDateKey(key)
	require.NoError(t, err)
	return day
}

func pendingIDs(pending []service.PendingTask) []string {
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestGateService_ComputePending_AssignedOnly(t *testing.T) {
	gate, _, _ := gateFixture(false)

	pending, skipped, err := gate.ComputePending(context.Background(), "emp-1", mustParseDay(t, targetDay))
	require.NoError(t, err)
	assert.Empty(t, skipped)

	// Only tasks due exactly on the target day, not completed, and assigned
	// to the employee directly or via membership.
	assert.ElementsMatch(t, []string{"t-due-assigned", "t-member"}, pendingIDs(pending))

	for _, p := range pending {
		assert.True(t, p.IsAssignedToEmployee)
		assert.NotEmpty(t, p.ProjectCode)
		assert.NotEmpty(t, p.ProjectName)
	}
}

func TestGateService_ComputePending_PolicyGrowsSet(t *testing.T) {
	gate, _, _ := gateFixture(true)

	pending, _, err := gate.ComputePending(context.Background(), "emp-1", mustParseDay(t, targetDay))
	require.NoError(t, err)

	// Blocking unassigned tasks adds them to the pending set; it never
	// removes anything the assigned-only policy would include.
	assert.ElementsMatch(t, []string{"t-due-assigned", "t-due-unassigned", "t-member"}, pendingIDs(pending))

	for _, p := range pending {
		if p.ID == "t-due-unassigned" {
			assert.False(t, p.IsAssignedToEmployee)
		}
	}
}

func TestGateService_ComputePending_PolicyReadFailsOpen(t *testing.T) {
	gate, _, settings := gateFixture(true)
	settings.getErr = errBoom

	pending, _, err := gate.ComputePending(context.Background(), "emp-1", mustParseDay(t, targetDay))
	require.NoError(t, err)

	// The stored policy would block unassigned tasks, but the read failed,
	// so the default applies and only assigned tasks gate submission.
	assert.ElementsMatch(t, []string{"t-due-assigned", "t-member"}, pendingIDs(pending))
}

func TestGateService_ComputePending_SkipsFailingProject(t *testing.T) {
	gate, pmsClient, _ := gateFixture(false)
	pmsClient.tasksErr = map[string]error{"PRJ-B": errBoom}

	pending, skipped, err := gate.ComputePending(context.Background(), "emp-1", mustParseDay(t, targetDay))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"t-due-assigned"}, pendingIDs(pending))
	require.Len(t, skipped, 1)
	assert.Equal(t, "PRJ-B", skipped[0].ProjectCode)
	assert.Contains(t, skipped[0].Cause, "boom")
}

func TestGateService_ComputePending_ProjectListFailureAborts(t *testing.T) {
	gate, pmsClient, _ := gateFixture(false)
	pmsClient.projectsErr = errBoom

	_, _, err := gate.ComputePending(context.Background(), "emp-1", mustParseDay(t, targetDay))
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UPSTREAM_ERROR", appErr.Code)
}

func TestGateService_ComputePending_UnknownEmployee(t *testing.T) {
	gate, _, _ := gateFixture(false)

	_, _, err := gate.ComputePending(context.Background(), "nobody", mustParseDay(t, targetDay))
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestGateService_ComputePending_PostponeClearsAcknowledgeDoesNot(t *testing.T) {
	gate, pmsClient, _ := gateFixture(false)
	day := mustParseDay(t, targetDay)

	pending, _, err := gate.ComputePending(context.Background(), "emp-1", day)
	require.NoError(t, err)
	assert.Contains(t, pendingIDs(pending), "t-due-assigned")

	// Acknowledging records a ledger row but leaves the due date in place,
	// so the task stays pending for the same target day.
	pending, _, err = gate.ComputePending(context.Background(), "emp-1", day)
	require.NoError(t, err)
	assert.Contains(t, pendingIDs(pending), "t-due-assigned")

	// Postponing moves the due date, so the next evaluation for the same
	// day no longer includes the task.
	for i, task := range pmsClient.tasks["PRJ-A"] {
		if task.ID == "t-due-assigned" {
			pmsClient.tasks["PRJ-A"][i].EndDate = dateOf("2026-03-17")
		}
	}

	pending, _, err = gate.ComputePending(context.Background(), "emp-1", day)
	require.NoError(t, err)
	assert.NotContains(t, pendingIDs(pending), "t-due-assigned")
}

func TestGateService_ListAvailableTasks(t *testing.T) {
	employees := &fakeEmployeeStore{
		employees: map[string]*repository.Employee{
			"emp-1": {ID: "emp-1", Code: "E100", Department: "Engineering", Role: "employee"},
		},
	}
	yesterday := time.Now().AddDate(0, 0, -1).Format(service.DateKeyLayout)
	tomorrow := time.Now().AddDate(0, 0, 1).Format(service.DateKeyLayout)

	pmsClient := &fakePMS{
		projects: []pms.Project{
			{ProjectCode: "PRJ-LATE", ProjectName: "Late project", EndDate: dateOf(yesterday)},
		},
		tasks: map[string][]pms.Task{
			"PRJ-LATE": {
				{ID: "t-1", TaskName: "On time task", EndDate: dateOf(tomorrow)},
				{ID: "t-2", TaskName: "Late task", EndDate: dateOf(yesterday)},
			},
		},
	}
	gate := service.NewGateService(employees, pmsClient, &fakePolicyStore{}, testLogger())

	tasks, err := gate.ListAvailableTasks(context.Background(), "emp-1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	byID := map[string]service.AvailableTask{}
	for _, task := range tasks {
		byID[task.Task.ID] = task
	}

	// The project is overdue, so every task carries the combined flag even
	// when the task itself is not late.
	assert.True(t, byID["t-1"].IsProjectOverdue)
	assert.False(t, byID["t-1"].IsTaskOverdue)
	assert.True(t, byID["t-1"].IsOverdue)

	assert.True(t, byID["t-2"].IsTaskOverdue)
	assert.True(t, byID["t-2"].IsOverdue)
}
