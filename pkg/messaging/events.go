package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Time entry events, mirrored to connected clients by the push gateway
	EventTimeEntryCreated = "timesheet.time_entry.created"
	EventTimeEntryUpdated = "timesheet.time_entry.updated"
	EventTimeEntryDeleted = "timesheet.time_entry.deleted"

	// Submission events
	EventTimesheetSubmitted = "timesheet.submitted"

	// Deadline resolution events
	EventTaskPostponed    = "timesheet.task.postponed"
	EventTaskAcknowledged = "timesheet.task.acknowledged"

	// Policy events
	EventPolicyUpdated = "timesheet.policy.updated"
)

// Exchange names
const (
	ExchangeTimesheetEvents = "timesheet.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.New().String()
}

// TimesheetSubmittedEvent is the aggregate payload published once per
// submitted day, never per task.
type TimesheetSubmittedEvent struct {
	EmployeeID   string    `json:"employee_id"`
	EmployeeCode string    `json:"employee_code"`
	EmployeeName string    `json:"employee_name"`
	Date         string    `json:"date"`
	TaskCount    int       `json:"task_count"`
	TotalHours   string    `json:"total_hours"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// TaskPostponedEvent is published when a task's due date is extended.
type TaskPostponedEvent struct {
	TaskID          string `json:"task_id"`
	PreviousDueDate string `json:"previous_due_date,omitempty"`
	NewDueDate      string `json:"new_due_date"`
	Reason          string `json:"reason"`
	PostponedBy     string `json:"postponed_by,omitempty"`
	PostponeCount   int    `json:"postpone_count"`
}

// TaskAcknowledgedEvent is published when an overdue task is acknowledged
// without a due date change.
type TaskAcknowledgedEvent struct {
	TaskID         string `json:"task_id"`
	AcknowledgedBy string `json:"acknowledged_by"`
	ProjectCode    string `json:"project_code,omitempty"`
}

// PolicyUpdatedEvent is published when the submission blocking policy changes.
type PolicyUpdatedEvent struct {
	BlockUnassignedProjectTasks bool   `json:"block_unassigned_project_tasks"`
	UpdatedBy                   string `json:"updated_by,omitempty"`
}
