package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/worktrack/timesheet-backend/pkg/database"
	"github.com/worktrack/timesheet-backend/pkg/errors"
)

// Employee is the local directory record the gate resolves identities
// against. Authentication happens upstream; this row carries the code,
// department and shift length the submission pipeline needs.
type Employee struct {
	ID           string    `db:"id" json:"id"`
	Code         string    `db:"employee_code" json:"employee_code"`
	Name         string    `db:"name" json:"name"`
	Email        *string   `db:"email" json:"email,omitempty"`
	Department   string    `db:"department" json:"department"`
	Role         string    `db:"role" json:"role"`
	ShiftMinutes int       `db:"shift_minutes" json:"shift_minutes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// EmployeeRepository handles employee persistence
type EmployeeRepository struct {
	db *database.DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeColumns = `
	id, employee_code, name, email, department, role, shift_minutes,
	created_at, updated_at
`

// GetByID gets an employee by ID
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*Employee, error) {
	var emp Employee
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`

	err := r.db.GetContext(ctx, &emp, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("employee")
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// GetByCode gets an employee by employee code
func (r *EmployeeRepository) GetByCode(ctx context.Context, code string) (*Employee, error) {
	var emp Employee
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE employee_code = $1`

	err := r.db.GetContext(ctx, &emp, query, code)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("employee")
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// List returns all employees ordered by name
func (r *EmployeeRepository) List(ctx context.Context) ([]*Employee, error) {
	var emps []*Employee
	query := `SELECT ` + employeeColumns + ` FROM employees ORDER BY name`

	if err := r.db.SelectContext(ctx, &emps, query); err != nil {
		return nil, err
	}
	return emps, nil
}

// ListPostponementRecipients returns the employees notified when a task
// deadline is extended: admins, HR, and the HR & Admin department.
func (r *EmployeeRepository) ListPostponementRecipients(ctx context.Context) ([]*Employee, error) {
	var emps []*Employee
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE role IN ('admin', 'hr') OR department = 'HR & Admin'
		ORDER BY name
	`

	if err := r.db.SelectContext(ctx, &emps, query); err != nil {
		return nil, err
	}
	return emps, nil
}

// RecipientEmails extracts the distinct non-empty email addresses of the
// given employees.
func RecipientEmails(emps []*Employee) []string {
	seen := make(map[string]struct{}, len(emps))
	emails := make([]string, 0, len(emps))
	for _, e := range emps {
		if e.Email == nil {
			continue
		}
		addr := strings.TrimSpace(*e.Email)
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		emails = append(emails, addr)
	}
	return emails
}
