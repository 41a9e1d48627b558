package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/worktrack/timesheet-backend/pkg/database"
	"github.com/worktrack/timesheet-backend/pkg/errors"
)

// Time entry statuses. Transitions are monotone: pending ->
// manager_approved -> approved, or pending -> rejected. Terminal states
// never change.
const (
	StatusPending         = "pending"
	StatusManagerApproved = "manager_approved"
	StatusApproved        = "approved"
	StatusRejected        = "rejected"
)

// TimeEntry represents one submitted task for one work day.
type TimeEntry struct {
	ID                  string         `db:"id" json:"id"`
	EmployeeID          string         `db:"employee_id" json:"employee_id"`
	EmployeeCode        string         `db:"employee_code" json:"employee_code"`
	EmployeeName        string         `db:"employee_name" json:"employee_name"`
	WorkDate            string         `db:"work_date" json:"work_date"` // yyyy-mm-dd
	ProjectName         string         `db:"project_name" json:"project_name"`
	TaskDescription     string         `db:"task_description" json:"task_description"`
	ProblemsAndIssues   *string        `db:"problems_and_issues" json:"problems_and_issues,omitempty"`
	Quantify            string         `db:"quantify" json:"quantify"`
	Achievements        *string        `db:"achievements" json:"achievements,omitempty"`
	ScopeOfImprovements *string        `db:"scope_of_improvements" json:"scope_of_improvements,omitempty"`
	ToolsUsed           pq.StringArray `db:"tools_used" json:"tools_used"`
	StartTime           string         `db:"start_time" json:"start_time"`
	EndTime             string         `db:"end_time" json:"end_time"`
	TotalHours          string         `db:"total_hours" json:"total_hours"`
	PercentageComplete  int            `db:"percentage_complete" json:"percentage_complete"`
	Status              string         `db:"status" json:"status"`
	ManagerApprovedBy   *string        `db:"manager_approved_by" json:"manager_approved_by,omitempty"`
	ManagerApprovedAt   *time.Time     `db:"manager_approved_at" json:"manager_approved_at,omitempty"`
	AdminApprovedBy     *string        `db:"admin_approved_by" json:"admin_approved_by,omitempty"`
	AdminApprovedAt     *time.Time     `db:"admin_approved_at" json:"admin_approved_at,omitempty"`
	RejectedBy          *string        `db:"rejected_by" json:"rejected_by,omitempty"`
	RejectedAt          *time.Time     `db:"rejected_at" json:"rejected_at,omitempty"`
	RejectionReason     *string        `db:"rejection_reason" json:"rejection_reason,omitempty"`
	SubmittedAt         time.Time      `db:"submitted_at" json:"submitted_at"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether the entry has reached a state that no
// transition may leave.
func (e *TimeEntry) IsTerminal() bool {
	return e.Status == StatusApproved || e.Status == StatusRejected
}

// TimeEntryRepository handles time entry persistence
type TimeEntryRepository struct {
	db *database.DB
}

// NewTimeEntryRepository creates a new time entry repository
func NewTimeEntryRepository(db *database.DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

const timeEntryColumns = `
	id, employee_id, employee_code, employee_name, work_date, project_name,
	task_description, problems_and_issues, quantify, achievements,
	scope_of_improvements, tools_used, start_time, end_time, total_hours,
	percentage_complete, status, manager_approved_by, manager_approved_at,
	admin_approved_by, admin_approved_at, rejected_by, rejected_at,
	rejection_reason, submitted_at, created_at, updated_at
`

// Create inserts a new time entry with status pending.
func (r *TimeEntryRepository) Create(ctx context.Context, entry *TimeEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Status == "" {
		entry.Status = StatusPending
	}
	if entry.SubmittedAt.IsZero() {
		entry.SubmittedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO time_entries (
			id, employee_id, employee_code, employee_name, work_date,
			project_name, task_description, problems_and_issues, quantify,
			achievements, scope_of_improvements, tools_used, start_time,
			end_time, total_hours, percentage_complete, status, submitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		entry.ID, entry.EmployeeID, entry.EmployeeCode, entry.EmployeeName,
		entry.WorkDate, entry.ProjectName, entry.TaskDescription,
		entry.ProblemsAndIssues, entry.Quantify, entry.Achievements,
		entry.ScopeOfImprovements, entry.ToolsUsed, entry.StartTime,
		entry.EndTime, entry.TotalHours, entry.PercentageComplete,
		entry.Status, entry.SubmittedAt,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a time entry by ID
func (r *TimeEntryRepository) GetByID(ctx context.Context, id string) (*TimeEntry, error) {
	var entry TimeEntry
	query := `SELECT ` + timeEntryColumns + ` FROM time_entries WHERE id = $1`

	err := r.db.GetContext(ctx, &entry, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("time entry")
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns all time entries, newest work date first.
func (r *TimeEntryRepository) List(ctx context.Context) ([]*TimeEntry, error) {
	var entries []*TimeEntry
	query := `SELECT ` + timeEntryColumns + ` FROM time_entries ORDER BY work_date DESC, submitted_at DESC`

	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListPending returns entries awaiting the first approval stage.
func (r *TimeEntryRepository) ListPending(ctx context.Context) ([]*TimeEntry, error) {
	var entries []*TimeEntry
	query := `SELECT ` + timeEntryColumns + ` FROM time_entries WHERE status = $1 ORDER BY work_date DESC, submitted_at DESC`

	if err := r.db.SelectContext(ctx, &entries, query, StatusPending); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListByEmployee returns all entries of one employee, newest first.
func (r *TimeEntryRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*TimeEntry, error) {
	var entries []*TimeEntry
	query := `SELECT ` + timeEntryColumns + ` FROM time_entries WHERE employee_id = $1 ORDER BY work_date DESC, submitted_at DESC`

	if err := r.db.SelectContext(ctx, &entries, query, employeeID); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListByEmployeeAndDate returns one employee's entries for one work day.
func (r *TimeEntryRepository) ListByEmployeeAndDate(ctx context.Context, employeeID, workDate string) ([]*TimeEntry, error) {
	var entries []*TimeEntry
	query := `SELECT ` + timeEntryColumns + ` FROM time_entries WHERE employee_id = $1 AND work_date = $2 ORDER BY submitted_at`

	if err := r.db.SelectContext(ctx, &entries, query, employeeID, workDate); err != nil {
		return nil, err
	}
	return entries, nil
}

// ExistsForEmployeeDateTask reports whether an entry already exists for the
// (employee, work date, task description) tuple. The submission pipeline
// uses this to reject duplicates from racing submit calls; the table also
// carries a unique constraint on the tuple as the storage-side backstop.
func (r *TimeEntryRepository) ExistsForEmployeeDateTask(ctx context.Context, employeeID, workDate, taskDescription string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM time_entries
			WHERE employee_id = $1 AND work_date = $2 AND task_description = $3
		)
	`
	if err := r.db.GetContext(ctx, &exists, query, employeeID, workDate, taskDescription); err != nil {
		return false, err
	}
	return exists, nil
}

// Update replaces the employee-editable fields of a pending entry. The
// status guard is enforced in SQL so a concurrent approval cannot be
// overwritten.
func (r *TimeEntryRepository) Update(ctx context.Context, entry *TimeEntry) error {
	query := `
		UPDATE time_entries SET
			project_name = $2, task_description = $3, problems_and_issues = $4,
			quantify = $5, achievements = $6, scope_of_improvements = $7,
			tools_used = $8, start_time = $9, end_time = $10, total_hours = $11,
			percentage_complete = $12, updated_at = NOW()
		WHERE id = $1 AND status = $13
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		entry.ID, entry.ProjectName, entry.TaskDescription,
		entry.ProblemsAndIssues, entry.Quantify, entry.Achievements,
		entry.ScopeOfImprovements, entry.ToolsUsed, entry.StartTime,
		entry.EndTime, entry.TotalHours, entry.PercentageComplete,
		StatusPending,
	).Scan(&entry.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.InvalidState("only pending entries can be modified")
	}
	return err
}

// Delete removes a pending entry.
func (r *TimeEntryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM time_entries WHERE id = $1 AND status = $2`, id, StatusPending)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.InvalidState("only pending entries can be modified")
	}
	return nil
}

// MarkManagerApproved records the first approval stage. Allowed only from
// pending.
func (r *TimeEntryRepository) MarkManagerApproved(ctx context.Context, id, approverID string) (*TimeEntry, error) {
	var entry TimeEntry
	query := `
		UPDATE time_entries SET
			status = $3, manager_approved_by = $2, manager_approved_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING ` + timeEntryColumns

	err := r.db.GetContext(ctx, &entry, query, id, approverID, StatusManagerApproved, StatusPending)
	if err == sql.ErrNoRows {
		return nil, errors.InvalidState("entry is not pending manager approval")
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarkAdminApproved records the final approval stage. Allowed from any
// non-terminal state; the transition chain stays monotone because terminal
// rows never match.
func (r *TimeEntryRepository) MarkAdminApproved(ctx context.Context, id, approverID string) (*TimeEntry, error) {
	var entry TimeEntry
	query := `
		UPDATE time_entries SET
			status = $3, admin_approved_by = $2, admin_approved_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ($4, $5)
		RETURNING ` + timeEntryColumns

	err := r.db.GetContext(ctx, &entry, query, id, approverID, StatusApproved, StatusPending, StatusManagerApproved)
	if err == sql.ErrNoRows {
		return nil, errors.InvalidState("entry is already in a terminal state")
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarkRejected records a rejection with its reason. Allowed from any
// non-terminal state.
func (r *TimeEntryRepository) MarkRejected(ctx context.Context, id, approverID, reason string) (*TimeEntry, error) {
	var entry TimeEntry
	query := `
		UPDATE time_entries SET
			status = $3, rejected_by = $2, rejected_at = NOW(), rejection_reason = $6, updated_at = NOW()
		WHERE id = $1 AND status IN ($4, $5)
		RETURNING ` + timeEntryColumns

	err := r.db.GetContext(ctx, &entry, query, id, approverID, StatusRejected, StatusPending, StatusManagerApproved, reason)
	if err == sql.ErrNoRows {
		return nil, errors.InvalidState("entry is already in a terminal state")
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
