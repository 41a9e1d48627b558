package service_test

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/worktrack/timesheet-backend/internal/pms"
	"github.com/worktrack/timesheet-backend/internal/timesheet/repository"
	"github.com/worktrack/timesheet-backend/internal/timesheet/service"
	"github.com/worktrack/timesheet-backend/pkg/errors"
	"github.com/worktrack/timesheet-backend/pkg/logger"
	"github.com/worktrack/timesheet-backend/pkg/messaging"
)

func testLogger() *logger.Logger {
	return logger.New("timesheet-service-test", "test")
}

func dateOf(key string) *pms.Date {
	t, err := time.ParseInLocation("2006-01-02", key, time.Local)
	if err != nil {
		panic(err)
	}
	return &pms.Date{Time: t}
}

func strPtr(s string) *string { return &s }

// fakeEmployeeStore serves employees from memory.
type fakeEmployeeStore struct {
	employees     map[string]*repository.Employee
	recipients    []*repository.Employee
	recipientsErr error
}

func (f *fakeEmployeeStore) GetByID(_ context.Context, id string) (*repository.Employee, error) {
	if emp, ok := f.employees[id]; ok {
		return emp, nil
	}
	return nil, errors.NotFound("employee")
}

func (f *fakeEmployeeStore) ListPostponementRecipients(_ context.Context) ([]*repository.Employee, error) {
	if f.recipientsErr != nil {
		return nil, f.recipientsErr
	}
	return f.recipients, nil
}

// fakePMS serves projects and tasks from memory and records due date writes.
type fakePMS struct {
	projects    []pms.Project
	projectsErr error
	tasks       map[string][]pms.Task
	tasksErr    map[string]error
	subtasks    map[string][]pms.Subtask
	subtasksErr error
	dueUpdates  map[string]string
	updateErr   error
}

func (f *fakePMS) ListProjects(_ context.Context, _, _, _ string) ([]pms.Project, error) {
	if f.projectsErr != nil {
		return nil, f.projectsErr
	}
	return f.projects, nil
}

func (f *fakePMS) ListTasks(_ context.Context, projectCode, _ string) ([]pms.Task, error) {
	if err, ok := f.tasksErr[projectCode]; ok {
		return nil, err
	}
	return f.tasks[projectCode], nil
}

func (f *fakePMS) ListSubtasks(_ context.Context, taskID, _ string) ([]pms.Subtask, error) {
	if f.subtasksErr != nil {
		return nil, f.subtasksErr
	}
	return f.subtasks[taskID], nil
}

func (f *fakePMS) UpdateTaskDueDate(_ context.Context, taskID, newDate string) (*pms.Task, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.dueUpdates == nil {
		f.dueUpdates = make(map[string]string)
	}
	f.dueUpdates[taskID] = newDate
	return &pms.Task{ID: taskID, EndDate: dateOf(newDate)}, nil
}

// fakePolicyStore holds the policy in memory.
type fakePolicyStore struct {
	policy repository.Policy
	getErr error
	setErr error
}

func (f *fakePolicyStore) GetPolicy(_ context.Context) (repository.Policy, error) {
	if f.getErr != nil {
		return repository.Policy{BlockUnassignedProjectTasks: repository.DefaultBlockUnassignedProjectTasks}, f.getErr
	}
	return f.policy, nil
}

func (f *fakePolicyStore) SetPolicy(_ context.Context, block bool) (repository.Policy, error) {
	if f.setErr != nil {
		return repository.Policy{}, f.setErr
	}
	f.policy = repository.Policy{BlockUnassignedProjectTasks: block}
	return f.policy, nil
}

// fakeNotifier records delivered notifications.
type fakeNotifier struct {
	events   []string
	payloads []interface{}
	err      error
}

func (f *fakeNotifier) Notify(_ context.Context, event string, payload interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	f.payloads = append(f.payloads, payload)
	return nil
}

// fakeBroadcaster records published domain events.
type fakeBroadcaster struct {
	created      []*repository.TimeEntry
	updated      []*repository.TimeEntry
	deleted      []string
	submitted    []messaging.TimesheetSubmittedEvent
	postponed    []messaging.TaskPostponedEvent
	acknowledged []messaging.TaskAcknowledgedEvent
	policy       []messaging.PolicyUpdatedEvent
}

func (f *fakeBroadcaster) TimeEntryCreated(_ context.Context, entry *repository.TimeEntry) {
	f.created = append(f.created, entry)
}

func (f *fakeBroadcaster) TimeEntryUpdated(_ context.Context, entry *repository.TimeEntry) {
	f.updated = append(f.updated, entry)
}

func (f *fakeBroadcaster) TimeEntryDeleted(_ context.Context, entryID string) {
	f.deleted = append(f.deleted, entryID)
}

func (f *fakeBroadcaster) TimesheetSubmitted(_ context.Context, event messaging.TimesheetSubmittedEvent) {
	f.submitted = append(f.submitted, event)
}

func (f *fakeBroadcaster) TaskPostponed(_ context.Context, event messaging.TaskPostponedEvent) {
	f.postponed = append(f.postponed, event)
}

func (f *fakeBroadcaster) TaskAcknowledged(_ context.Context, event messaging.TaskAcknowledgedEvent) {
	f.acknowledged = append(f.acknowledged, event)
}

func (f *fakeBroadcaster) PolicyUpdated(_ context.Context, event messaging.PolicyUpdatedEvent) {
	f.policy = append(f.policy, event)
}

// fakeLedger is an in-memory resolution ledger.
type fakeLedger struct {
	postponements []*repository.PostponementRecord
	acks          []*repository.AcknowledgmentRecord
	postponeErr   error
	ackErr        error
}

func (f *fakeLedger) CreatePostponement(_ context.Context, rec *repository.PostponementRecord) error {
	if f.postponeErr != nil {
		return f.postponeErr
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	count := 0
	for _, p := range f.postponements {
		if p.TaskID == rec.TaskID {
			count++
		}
	}
	rec.PostponeCount = count + 1
	rec.PostponedAt = time.Now().UTC()
	f.postponements = append(f.postponements, rec)
	return nil
}

func (f *fakeLedger) ListByTask(_ context.Context, taskID string) ([]*repository.PostponementRecord, error) {
	var out []*repository.PostponementRecord
	for i := len(f.postponements) - 1; i >= 0; i-- {
		if f.postponements[i].TaskID == taskID {
			out = append(out, f.postponements[i])
		}
	}
	return out, nil
}

func (f *fakeLedger) CreateAcknowledgment(_ context.Context, rec *repository.AcknowledgmentRecord) error {
	if f.ackErr != nil {
		return f.ackErr
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.AcknowledgedAt = time.Now().UTC()
	f.acks = append(f.acks, rec)
	return nil
}

func (f *fakeLedger) ListAcknowledgmentsByTask(_ context.Context, taskID string) ([]*repository.AcknowledgmentRecord, error) {
	var out []*repository.AcknowledgmentRecord
	for i := len(f.acks) - 1; i >= 0; i-- {
		if f.acks[i].TaskID == taskID {
			out = append(out, f.acks[i])
		}
	}
	return out, nil
}

// fakeEntryStore is an in-memory time entry store enforcing the same state
// guards as the SQL repository.
type fakeEntryStore struct {
	entries   map[string]*repository.TimeEntry
	createErr map[string]error // keyed by task description
}

func newFakeEntryStore() *fakeEntryStore {
	return &fakeEntryStore{entries: make(map[string]*repository.TimeEntry)}
}

func (f *fakeEntryStore) Create(_ context.Context, entry *repository.TimeEntry) error {
	if err, ok := f.createErr[entry.TaskDescription]; ok {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Status == "" {
		entry.Status = repository.StatusPending
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	f.entries[entry.ID] = entry
	return nil
}

func (f *fakeEntryStore) GetByID(_ context.Context, id string) (*repository.TimeEntry, error) {
	if entry, ok := f.entries[id]; ok {
		copied := *entry
		return &copied, nil
	}
	return nil, errors.NotFound("time entry")
}

func (f *fakeEntryStore) List(_ context.Context) ([]*repository.TimeEntry, error) {
	var out []*repository.TimeEntry
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEntryStore) ListPending(_ context.Context) ([]*repository.TimeEntry, error) {
	var out []*repository.TimeEntry
	for _, e := range f.entries {
		if e.Status == repository.StatusPending {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEntryStore) ListByEmployee(_ context.Context, employeeID string) ([]*repository.TimeEntry, error) {
	var out []*repository.TimeEntry
	for _, e := range f.entries {
		if e.EmployeeID == employeeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEntryStore) ListByEmployeeAndDate(_ context.Context, employeeID, workDate string) ([]*repository.TimeEntry, error) {
	var out []*repository.TimeEntry
	for _, e := range f.entries {
		if e.EmployeeID == employeeID && e.WorkDate == workDate {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEntryStore) ExistsForEmployeeDateTask(_ context.Context, employeeID, workDate, taskDescription string) (bool, error) {
	for _, e := range f.entries {
		if e.EmployeeID == employeeID && e.WorkDate == workDate && e.TaskDescription == taskDescription {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEntryStore) Update(_ context.Context, entry *repository.TimeEntry) error {
	existing, ok := f.entries[entry.ID]
	if !ok || existing.Status != repository.StatusPending {
		return errors.InvalidState("only pending entries can be modified")
	}
	entry.UpdatedAt = time.Now().UTC()
	copied := *entry
	f.entries[entry.ID] = &copied
	return nil
}

func (f *fakeEntryStore) Delete(_ context.Context, id string) error {
	existing, ok := f.entries[id]
	if !ok || existing.Status != repository.StatusPending {
		return errors.InvalidState("only pending entries can be modified")
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeEntryStore) MarkManagerApproved(_ context.Context, id, approverID string) (*repository.TimeEntry, error) {
	entry, ok := f.entries[id]
	if !ok || entry.Status != repository.StatusPending {
		return nil, errors.InvalidState("entry is not pending manager approval")
	}
	now := time.Now().UTC()
	entry.Status = repository.StatusManagerApproved
	entry.ManagerApprovedBy = &approverID
	entry.ManagerApprovedAt = &now
	copied := *entry
	return &copied, nil
}

func (f *fakeEntryStore) MarkAdminApproved(_ context.Context, id, approverID string) (*repository.TimeEntry, error) {
	entry, ok := f.entries[id]
	if !ok || entry.IsTerminal() {
		return nil, errors.InvalidState("entry is already in a terminal state")
	}
	now := time.Now().UTC()
	entry.Status = repository.StatusApproved
	entry.AdminApprovedBy = &approverID
	entry.AdminApprovedAt = &now
	copied := *entry
	return &copied, nil
}

func (f *fakeEntryStore) MarkRejected(_ context.Context, id, approverID, reason string) (*repository.TimeEntry, error) {
	entry, ok := f.entries[id]
	if !ok || entry.IsTerminal() {
		return nil, errors.InvalidState("entry is already in a terminal state")
	}
	now := time.Now().UTC()
	entry.Status = repository.StatusRejected
	entry.RejectedBy = &approverID
	entry.RejectedAt = &now
	entry.RejectionReason = &reason
	copied := *entry
	return &copied, nil
}

// fakeGate returns a canned pending set.
type fakeGate struct {
	pending []service.PendingTask
	skipped []service.SkippedProject
	err     error
}

func (f *fakeGate) ComputePending(_ context.Context, _ string, _ time.Time) ([]service.PendingTask, []service.SkippedProject, error) {
	return f.pending, f.skipped, f.err
}

var errBoom = fmt.Errorf("boom")
