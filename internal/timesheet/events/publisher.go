package events

import (
	"context"

	"github.com/worktrack/timesheet-backend/internal/timesheet/repository"
	"github.com/worktrack/timesheet-backend/pkg/logger"
	"github.com/worktrack/timesheet-backend/pkg/messaging"
)

// Publisher fans timesheet domain events out on the message broker. The
// push gateway mirrors time entry and submission events to connected
// clients, so every mutation publishes. Broker failures are logged and
// swallowed: a broadcast must never fail the state change it describes.
type Publisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(pub *messaging.Publisher, log *logger.Logger) *Publisher {
	return &Publisher{
		publisher: pub,
		logger:    log,
	}
}

func (p *Publisher) publish(ctx context.Context, eventType string, data interface{}) {
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}

// TimeEntryCreated broadcasts a newly persisted entry.
func (p *Publisher) TimeEntryCreated(ctx context.Context, entry *repository.TimeEntry) {
	p.publish(ctx, messaging.EventTimeEntryCreated, entry)
}

// TimeEntryUpdated broadcasts an entry after any mutation, including
// approval stage transitions.
func (p *Publisher) TimeEntryUpdated(ctx context.Context, entry *repository.TimeEntry) {
	p.publish(ctx, messaging.EventTimeEntryUpdated, entry)
}

// TimeEntryDeleted broadcasts the removal of a pending entry.
func (p *Publisher) TimeEntryDeleted(ctx context.Context, entryID string) {
	p.publish(ctx, messaging.EventTimeEntryDeleted, map[string]string{"id": entryID})
}

// TimesheetSubmitted broadcasts the single aggregate submission event for
// a day's batch.
func (p *Publisher) TimesheetSubmitted(ctx context.Context, event messaging.TimesheetSubmittedEvent) {
	p.publish(ctx, messaging.EventTimesheetSubmitted, event)
}

// TaskPostponed broadcasts a due date extension.
func (p *Publisher) TaskPostponed(ctx context.Context, event messaging.TaskPostponedEvent) {
	p.publish(ctx, messaging.EventTaskPostponed, event)
}

// TaskAcknowledged broadcasts an acknowledgment.
func (p *Publisher) TaskAcknowledged(ctx context.Context, event messaging.TaskAcknowledgedEvent) {
	p.publish(ctx, messaging.EventTaskAcknowledged, event)
}

// PolicyUpdated broadcasts a change to the submission blocking policy.
func (p *Publisher) PolicyUpdated(ctx context.Context, event messaging.PolicyUpdatedEvent) {
	p.publish(ctx, messaging.EventPolicyUpdated, event)
}
