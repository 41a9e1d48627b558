package service

import (
	"context"
	"strings"
	"time"

	"github.com/worktrack/timesheet-backend/internal/pms"
	"github.com/worktrack/timesheet-backend/internal/timesheet/repository"
	"github.com/worktrack/timesheet-backend/pkg/errors"
	"github.com/worktrack/timesheet-backend/pkg/logger"
)

// PMSReader is the read side of the project-management system.
type PMSReader interface {
	ListProjects(ctx context.Context, role, employeeCode, department string) ([]pms.Project, error)
	ListTasks(ctx context.Context, projectCode, department string) ([]pms.Task, error)
	ListSubtasks(ctx context.Context, taskID, department string) ([]pms.Subtask, error)
}

// EmployeeStore resolves employee identities for gate and pipeline checks.
type EmployeeStore interface {
	GetByID(ctx context.Context, id string) (*repository.Employee, error)
	ListPostponementRecipients(ctx context.Context) ([]*repository.Employee, error)
}

// PolicyStore reads and writes the submission blocking policy.
type PolicyStore interface {
	GetPolicy(ctx context.Context) (repository.Policy, error)
	SetPolicy(ctx context.Context, block bool) (repository.Policy, error)
}

// PendingTask is a PMS task that must be resolved before the employee may
// submit the day's timesheet, enriched with project context for display
// and for the downstream resolution actions.
type PendingTask struct {
	pms.Task
	ProjectCode          string    `json:"projectCode"`
	ProjectName          string    `json:"projectName"`
	ProjectDeadline      *pms.Date `json:"projectDeadline,omitempty"`
	IsAssignedToEmployee bool      `json:"isAssignedToEmployee"`
}

// SkippedProject reports a project whose tasks could not be evaluated.
// Skips are surfaced as diagnostics instead of aborting the whole scan.
type SkippedProject struct {
	ProjectCode string `json:"projectCode"`
	Cause       string `json:"cause"`
}

// AvailableTask is a PMS task surfaced for draft logging, with overdue
// flags computed against today.
type AvailableTask struct {
	pms.Task
	ProjectCode        string    `json:"projectCode"`
	ProjectName        string    `json:"projectName"`
	ProjectDescription string    `json:"projectDescription,omitempty"`
	ProjectDeadline    *pms.Date `json:"projectDeadline,omitempty"`
	TaskDeadline       *pms.Date `json:"taskDeadline,omitempty"`
	IsProjectOverdue   bool      `json:"isProjectOverdue"`
	IsTaskOverdue      bool      `json:"isTaskOverdue"`
	IsOverdue          bool      `json:"isOverdue"`
}

// GateService computes the pending-resolution set that gates timesheet
// submission.
type GateService struct {
	employees EmployeeStore
	pmsClient PMSReader
	settings  PolicyStore
	logger    *logger.Logger
}

// NewGateService creates a new gate service
func NewGateService(employees EmployeeStore, pmsClient PMSReader, settings PolicyStore, log *logger.Logger) *GateService {
	return &GateService{
		employees: employees,
		pmsClient: pmsClient,
		settings:  settings,
		logger:    log,
	}
}

// ComputePending returns every task the employee must resolve before
// submitting the timesheet for targetDate. A task is pending iff its due
// date falls on the target calendar day, it is not completed, and it is
// either assigned to the employee or unassigned tasks are blocked by
// policy. Failing task listings degrade to per-project skip diagnostics.
func (s *GateService) ComputePending(ctx context.Context, employeeID string, targetDate time.Time) ([]PendingTask, []SkippedProject, error) {
	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, nil, err
	}

	// Policy is read fresh on every evaluation. Read failures fall open to
	// the default so a settings outage never blocks submission.
	policy, err := s.settings.GetPolicy(ctx)
	if err != nil {
		s.logger.Warn().Err(err).
			Bool("default", repository.DefaultBlockUnassignedProjectTasks).
			Msg("policy read failed, using default")
	}

	projects, err := s.pmsClient.ListProjects(ctx, employee.Role, employee.Code, employee.Department)
	if err != nil {
		return nil, nil, errors.Upstream(err, "failed to fetch projects from PMS")
	}

	pending := []PendingTask{}
	var skipped []SkippedProject

	for _, project := range projects {
		tasks, err := s.pmsClient.ListTasks(ctx, project.ProjectCode, employee.Department)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("project_code", project.ProjectCode).
				Str("employee_id", employeeID).
				Msg("skipping project in pending scan")
			skipped = append(skipped, SkippedProject{
				ProjectCode: project.ProjectCode,
				Cause:       err.Error(),
			})
			continue
		}

		for _, task := range tasks {
			isAssigned := taskAssignedTo(task, employee.Code)

			var due *time.Time
			if task.EndDate != nil && !task.EndDate.IsZero() {
				due = &task.EndDate.Time
			}

			if !DueDateMatches(due, targetDate) {
				continue
			}
			if taskCompleted(task) {
				continue
			}
			if !isAssigned && !policy.BlockUnassignedProjectTasks {
				continue
			}

			pending = append(pending, PendingTask{
				Task:                 task,
				ProjectCode:          project.ProjectCode,
				ProjectName:          project.ProjectName,
				ProjectDeadline:      project.EndDate,
				IsAssignedToEmployee: isAssigned,
			})
		}
	}

	s.logger.Debug().
		Str("employee_id", employeeID).
		Str("target_date", DateKey(targetDate)).
		Int("pending", len(pending)).
		Int("skipped_projects", len(skipped)).
		Bool("block_unassigned", policy.BlockUnassignedProjectTasks).
		Msg("pending-resolution scan complete")

	return pending, skipped, nil
}

// ListAvailableTasks returns the tasks an employee can log work against,
// grouped with project metadata and overdue flags computed against today.
func (s *GateService) ListAvailableTasks(ctx context.Context, employeeID string) ([]AvailableTask, error) {
	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	projects, err := s.pmsClient.ListProjects(ctx, employee.Role, employee.Code, employee.Department)
	if err != nil {
		return nil, errors.Upstream(err, "failed to fetch projects from PMS")
	}

	today := time.Now()
	available := []AvailableTask{}

	for _, project := range projects {
		tasks, err := s.pmsClient.ListTasks(ctx, project.ProjectCode, employee.Department)
		if err != nil {
			return nil, errors.Upstream(err, "failed to fetch tasks from PMS")
		}

		var projectDue *time.Time
		if project.EndDate != nil && !project.EndDate.IsZero() {
			projectDue = &project.EndDate.Time
		}
		projectOverdue := IsOverdue(projectDue, today)

		for _, task := range tasks {
			var taskDue *time.Time
			if task.EndDate != nil && !task.EndDate.IsZero() {
				taskDue = &task.EndDate.Time
			}
			taskOverdue := IsOverdue(taskDue, today)

			available = append(available, AvailableTask{
				Task:               task,
				ProjectCode:        project.ProjectCode,
				ProjectName:        project.ProjectName,
				ProjectDescription: project.Description,
				ProjectDeadline:    project.EndDate,
				TaskDeadline:       task.EndDate,
				IsProjectOverdue:   projectOverdue,
				IsTaskOverdue:      taskOverdue,
				IsOverdue:          taskOverdue || projectOverdue,
			})
		}
	}

	return available, nil
}

// ListSubtasks returns a task's subtasks, scoped to the employee's
// department. Drafts compose their description from the selected subtask.
func (s *GateService) ListSubtasks(ctx context.Context, employeeID, taskID string) ([]pms.Subtask, error) {
	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	subtasks, err := s.pmsClient.ListSubtasks(ctx, taskID, employee.Department)
	if err != nil {
		return nil, errors.Upstream(err, "failed to fetch subtasks from PMS")
	}
	return subtasks, nil
}

// taskAssignedTo reports whether the employee code is the task's assignee
// or appears in its member list.
func taskAssignedTo(task pms.Task, employeeCode string) bool {
	if task.Assignee == employeeCode {
		return true
	}
	for _, member := range task.TaskMembers {
		if member == employeeCode {
			return true
		}
	}
	return false
}

// taskCompleted reports whether the task's completion flag is set or its
// status equals "completed", case-insensitively.
func taskCompleted(task pms.Task) bool {
	return task.IsCompleted || strings.EqualFold(task.Status, "completed")
}
