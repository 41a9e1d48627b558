package pms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/worktrack/timesheet-backend/pkg/config"
	"github.com/worktrack/timesheet-backend/pkg/logger"
)

// Client provides HTTP access to the external project-management system.
// Projects, tasks and assignees are owned by the PMS; this service reads
// them on every gate evaluation and writes only task due dates.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new PMS client
func NewClient(cfg *config.PMSConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log,
	}
}

// ListProjects returns the projects visible to an employee, scoped by role,
// employee code and department the same way the PMS scopes its own UI.
func (c *Client) ListProjects(ctx context.Context, role, employeeCode, department string) ([]Project, error) {
	q := url.Values{}
	q.Set("role", role)
	q.Set("employee_code", employeeCode)
	q.Set("department", department)

	var projects []Project
	if err := c.get(ctx, "/api/v1/projects?"+q.Encode(), &projects); err != nil {
		return nil, fmt.Errorf("failed to list PMS projects: %w", err)
	}
	return projects, nil
}

// ListTasks returns all tasks of a project for a department.
func (c *Client) ListTasks(ctx context.Context, projectCode, department string) ([]Task, error) {
	q := url.Values{}
	q.Set("project_code", projectCode)
	q.Set("department", department)

	var tasks []Task
	if err := c.get(ctx, "/api/v1/tasks?"+q.Encode(), &tasks); err != nil {
		return nil, fmt.Errorf("failed to list PMS tasks for project %s: %w", projectCode, err)
	}
	return tasks, nil
}

// ListSubtasks returns the subtasks of a task for a department.
func (c *Client) ListSubtasks(ctx context.Context, taskID, department string) ([]Subtask, error) {
	q := url.Values{}
	q.Set("task_id", taskID)
	q.Set("department", department)

	var subtasks []Subtask
	if err := c.get(ctx, "/api/v1/subtasks?"+q.Encode(), &subtasks); err != nil {
		return nil, fmt.Errorf("failed to list PMS subtasks for task %s: %w", taskID, err)
	}
	return subtasks, nil
}

// UpdateTaskDueDate sets a task's due date in the PMS. Called only by the
// resolution recorder when a postponement is applied.
func (c *Client) UpdateTaskDueDate(ctx context.Context, taskID string, newDate string) (*Task, error) {
	payload, err := json.Marshal(map[string]string{"end_date": newDate})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/api/v1/tasks/"+taskID, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	c.logger.Info().
		Str("task_id", taskID).
		Str("new_due_date", newDate).
		Msg("updating task due date in PMS")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("task_id", taskID).Msg("failed to call PMS")
		return nil, fmt.Errorf("failed to call PMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		c.logger.Error().
			Int("status", resp.StatusCode).
			Interface("error", errResp).
			Str("task_id", taskID).
			Msg("PMS task update failed")
		return nil, fmt.Errorf("PMS task update failed with status %d: %v", resp.StatusCode, errResp)
	}

	var task Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, fmt.Errorf("failed to decode PMS response: %w", err)
	}
	return &task, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call PMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("PMS request failed with status %d: %v", resp.StatusCode, errResp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode PMS response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
