package pms

import (
	"bytes"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date as the PMS serves it. The PMS emits both plain
// yyyy-mm-dd dates and full RFC3339 timestamps depending on the record's age.
type Date struct {
	time.Time
}

// UnmarshalJSON accepts null, "", yyyy-mm-dd and RFC3339 values.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "null" || s == "" {
		d.Time = time.Time{}
		return nil
	}

	if t, err := time.ParseInLocation(dateLayout, s, time.Local); err == nil {
		d.Time = t
		return nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid PMS date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// MarshalJSON emits the calendar-day form.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Time.Format(dateLayout) + `"`), nil
}

// Project is a PMS project record. Read-only in this service.
type Project struct {
	ProjectCode string `json:"project_code"`
	ProjectName string `json:"project_name"`
	Description string `json:"description,omitempty"`
	EndDate     *Date  `json:"end_date,omitempty"`
}

// Task is a PMS task record. The only field this service ever writes is the
// due date, and only through a postponement.
type Task struct {
	ID          string   `json:"id"`
	ProjectCode string   `json:"project_code,omitempty"`
	TaskName    string   `json:"task_name"`
	Assignee    string   `json:"assignee,omitempty"`
	TaskMembers []string `json:"task_members,omitempty"`
	EndDate     *Date    `json:"end_date,omitempty"`
	IsCompleted bool     `json:"is_completed,omitempty"`
	Status      string   `json:"status,omitempty"`
	Department  string   `json:"department,omitempty"`
}

// Subtask is a PMS subtask record, surfaced for task description composition.
type Subtask struct {
	ID       string `json:"id"`
	TaskID   string `json:"task_id"`
	Name     string `json:"name"`
	EndDate  *Date  `json:"end_date,omitempty"`
	Status   string `json:"status,omitempty"`
	Assignee string `json:"assignee,omitempty"`
}
