package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/worktrack/timesheet-backend/pkg/config"
	"github.com/worktrack/timesheet-backend/pkg/logger"
)

// Notification event names understood by the mailer service.
const (
	EventTimesheetSubmitted   = "timesheet_submitted"
	EventEntryManagerApproved = "time_entry_manager_approved"
	EventEntryApproved        = "time_entry_approved"
	EventEntryRejected        = "time_entry_rejected"
	EventTaskPostponed        = "task_postponed"
)

// Notifier delivers email/notification events. Delivery failures must never
// fail the state transition that triggered them; callers log and move on.
type Notifier interface {
	Notify(ctx context.Context, event string, payload interface{}) error
}

// HTTPNotifier posts notification events to the mailer service.
type HTTPNotifier struct {
	baseURL     string
	senderEmail string
	httpClient  *http.Client
	logger      *logger.Logger
}

// NewHTTPNotifier creates a notifier backed by the mailer HTTP endpoint.
func NewHTTPNotifier(cfg *config.NotifierConfig, log *logger.Logger) *HTTPNotifier {
	return &HTTPNotifier{
		baseURL:     cfg.BaseURL,
		senderEmail: cfg.SenderEmail,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      log,
	}
}

type notifyRequest struct {
	Event   string      `json:"event"`
	Sender  string      `json:"sender"`
	Payload interface{} `json:"payload"`
}

// Notify delivers one notification event.
func (n *HTTPNotifier) Notify(ctx context.Context, event string, payload interface{}) error {
	body, err := json.Marshal(notifyRequest{
		Event:   event,
		Sender:  n.senderEmail,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/api/v1/notifications", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call notifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("notification delivery failed with status %d: %v", resp.StatusCode, errResp)
	}

	n.logger.Debug().Str("event", event).Msg("notification delivered")
	return nil
}
