package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/taskpilot/taskpilot/internal/core"
	"github.com/taskpilot/taskpilot/pkg/models"
)

// TodoistClient is the full task-service surface used across the
// scheduler. core.TaskService is the router-facing subset.
type TodoistClient interface {
	core.TaskService
	SetSchedule(ctx context.Context, id string, start time.Time, durationMinutes int) error
	SetLabels(ctx context.Context, id string, labels []string) error
	ListSections(ctx context.Context, projectID string) ([]Section, error)
	MoveToSection(ctx context.Context, id, sectionID string) error
}

// Section is a named grouping within a Todoist project.
type Section struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

// todoistClient talks to the Todoist REST API.
type todoistClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewTodoistClient creates a TodoistClient against the given base URL,
// e.g. "https://api.todoist.com/rest/v2".
func NewTodoistClient(baseURL, token string) TodoistClient {
	return &todoistClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// GetTask fetches the current snapshot of a task. A 404 maps to
// core.ErrTaskNotFound.
func (c *todoistClient) GetTask(ctx context.Context, id string) (models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+id, nil, &task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// SetSchedule sets the task's due moment and duration. The due datetime
// is sent in UTC.
func (c *todoistClient) SetSchedule(ctx context.Context, id string, start time.Time, durationMinutes int) error {
	body := map[string]any{
		"due_datetime": start.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if durationMinutes > 0 {
		body["duration"] = durationMinutes
		body["duration_unit"] = "minute"
	}
	return c.do(ctx, http.MethodPost, "/tasks/"+id, body, nil)
}

// ClearSchedule removes the task's due date entirely.
func (c *todoistClient) ClearSchedule(ctx context.Context, id string) error {
	body := map[string]any{"due_string": "no date"}
	return c.do(ctx, http.MethodPost, "/tasks/"+id, body, nil)
}

// SetLabels replaces the task's label list.
func (c *todoistClient) SetLabels(ctx context.Context, id string, labels []string) error {
	body := map[string]any{"labels": labels}
	return c.do(ctx, http.MethodPost, "/tasks/"+id, body, nil)
}

// ListSections lists the sections of a project.
func (c *todoistClient) ListSections(ctx context.Context, projectID string) ([]Section, error) {
	var sections []Section
	if err := c.do(ctx, http.MethodGet, "/sections?project_id="+projectID, nil, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// MoveToSection moves a task into a section via the sync API, which is
// the only endpoint that supports moves.
func (c *todoistClient) MoveToSection(ctx context.Context, id, sectionID string) error {
	syncURL := strings.TrimSuffix(c.baseURL, "/rest/v2") + "/sync/v9/sync"

	command := map[string]any{
		"type": "item_move",
		"uuid": fmt.Sprintf("move-%s-%s", id, sectionID),
		"args": map[string]string{"id": id, "section_id": sectionID},
	}
	payload, err := json.Marshal(map[string]any{"commands": []any{command}})
	if err != nil {
		return fmt.Errorf("marshaling move command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, syncURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building move request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("moving task %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("move request returned status %d", resp.StatusCode)
	}
	return nil
}

// do runs one REST call, encoding body as JSON when present and decoding
// the response into out when out is non-nil.
func (c *todoistClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return core.ErrTaskNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s returned status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
