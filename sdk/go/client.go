// Package tasklinesdk is a minimal Taskline HTTP API client.
package tasklinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	// Identity is the participant name sent as X-Participant.
	Identity    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults. baseURL includes the API base
// path, e.g. http://127.0.0.1:8080/v1.
func New(baseURL, identity string) *Client {
	return &Client{
		BaseURL:  baseURL,
		Identity: identity,
		Timeout:  10 * time.Second,
	}
}

// Task mirrors the API task model.
type Task struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Status      string   `json:"status"`
	EstimateMin int      `json:"estimate_min"`
	StartedAt   *int64   `json:"started_at,omitempty"`
	CompletedAt *int64   `json:"completed_at,omitempty"`
	ActualSec   *int64   `json:"actual_sec,omitempty"`
	Assignees   []string `json:"assignees"`
}

type Participant struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// TaskPatch carries optional task updates; nil slots are omitted.
type TaskPatch struct {
	Title          *string `json:"title,omitempty"`
	EstimateMin    *int    `json:"estimate_min,omitempty"`
	Status         *string `json:"status,omitempty"`
	AddAssignee    *string `json:"add_assignee,omitempty"`
	RemoveAssignee *string `json:"remove_assignee,omitempty"`
}

type ParticipantPatch struct {
	Name *string `json:"name,omitempty"`
	Role *string `json:"role,omitempty"`
}

// Entry is one audit journal record.
type Entry struct {
	ID         string         `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	Actor      string         `json:"actor"`
	Payload    map[string]any `json:"payload"`
}

type Health struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	TasksCount int    `json:"tasks_count"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var resp Health
	err := c.do(ctx, http.MethodGet, "health", nil, &resp)
	return resp, err
}

func (c *Client) Tasks(ctx context.Context) ([]Task, error) {
	var resp []Task
	err := c.do(ctx, http.MethodGet, "tasks", nil, &resp)
	return resp, err
}

func (c *Client) Task(ctx context.Context, id int64) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("tasks/%d", id), nil, &resp)
	return resp, err
}

func (c *Client) CreateTask(ctx context.Context, title, status string, estimateMin int) (Task, error) {
	body := map[string]any{"title": title}
	if status != "" {
		body["status"] = status
	}
	if estimateMin > 0 {
		body["estimate_min"] = estimateMin
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", body, &resp)
	return resp, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, patch TaskPatch) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("tasks/%d", id), patch, &resp)
	return resp, err
}

func (c *Client) Participants(ctx context.Context) ([]Participant, error) {
	var resp []Participant
	err := c.do(ctx, http.MethodGet, "participants", nil, &resp)
	return resp, err
}

func (c *Client) CreateParticipant(ctx context.Context, name, role string) (Participant, error) {
	var resp Participant
	err := c.do(ctx, http.MethodPost, "participants", map[string]any{"name": name, "role": role}, &resp)
	return resp, err
}

func (c *Client) UpdateParticipant(ctx context.Context, id int64, patch ParticipantPatch) (Participant, error) {
	var resp Participant
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("participants/%d", id), patch, &resp)
	return resp, err
}

func (c *Client) DeleteParticipant(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("participants/%d", id), nil, nil)
}

// Events returns recent journal entries, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Entry, error) {
	endpoint := "events"
	if limit > 0 {
		endpoint = fmt.Sprintf("events?limit=%d", limit)
	}
	var resp []Entry
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.Identity != "":
		req.Header.Set("X-Participant", c.Identity)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
