// Package client talks to the mentalbank HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/balkashynov/mentalbank/internal/api"
	"github.com/balkashynov/mentalbank/internal/apperrors"
	"github.com/balkashynov/mentalbank/internal/models"
	"github.com/balkashynov/mentalbank/internal/sessions"
)

// Client is a typed client for the session, task and category routes.
type Client struct {
	BaseURL string
	OwnerID string
	HTTP    *http.Client
}

// New creates a client for the API at baseURL acting as ownerID.
func New(baseURL, ownerID string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		OwnerID: ownerID,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// APIError is a non-2xx API response.
type APIError struct {
	Status          int
	Code            apperrors.Code
	Message         string
	ActiveSessionID string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// ConflictSessionID returns the id of the session that blocked a start, or "".
func (e *APIError) ConflictSessionID() string {
	if e.Status != http.StatusConflict {
		return ""
	}
	return e.ActiveSessionID
}

type errorEnvelope struct {
	Error           string `json:"error"`
	Code            string `json:"code"`
	ActiveSessionID string `json:"activeSessionId"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(api.OwnerHeader, c.OwnerID)

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope errorEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error == "" {
			return &APIError{Status: resp.StatusCode, Message: resp.Status}
		}
		return &APIError{
			Status:          resp.StatusCode,
			Code:            apperrors.Code(envelope.Code),
			Message:         envelope.Error,
			ActiveSessionID: envelope.ActiveSessionID,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Health checks the server liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

// CreateSession starts a session for a task.
func (c *Client) CreateSession(ctx context.Context, req api.StartRequest) (*models.Session, error) {
	var session models.Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions", nil, req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession fetches a session with live figures when it is active.
func (c *Client) GetSession(ctx context.Context, id string) (*sessions.View, error) {
	var view sessions.View
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(id), nil, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// EndSession stops an active session.
func (c *Client) EndSession(ctx context.Context, id, notes string) (*models.Session, error) {
	req := api.PatchRequest{Action: api.ActionEnd}
	if notes != "" {
		req.Notes = &notes
	}
	return c.UpdateSession(ctx, id, req)
}

// PauseSession ends a session with the pause marker.
func (c *Client) PauseSession(ctx context.Context, id string) (*models.Session, error) {
	return c.UpdateSession(ctx, id, api.PatchRequest{Action: api.ActionPause})
}

// ResumeSession starts a new session for a paused session's task.
func (c *Client) ResumeSession(ctx context.Context, id string) (*models.Session, error) {
	return c.UpdateSession(ctx, id, api.PatchRequest{Action: api.ActionResume})
}

// UpdateSession sends a PATCH for the session.
func (c *Client) UpdateSession(ctx context.Context, id string, req api.PatchRequest) (*models.Session, error) {
	var session models.Session
	if err := c.do(ctx, http.MethodPatch, "/api/sessions/"+url.PathEscape(id), nil, req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a stopped session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+url.PathEscape(id), nil, nil, nil)
}

// SessionQuery filters ListSessions.
type SessionQuery struct {
	TaskID     string
	CategoryID string
	ActiveOnly bool
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Offset     int
}

func (q SessionQuery) values() url.Values {
	v := url.Values{}
	if q.TaskID != "" {
		v.Set("taskId", q.TaskID)
	}
	if q.CategoryID != "" {
		v.Set("categoryId", q.CategoryID)
	}
	if q.ActiveOnly {
		v.Set("activeOnly", "true")
	}
	if q.StartDate != nil {
		v.Set("startDate", q.StartDate.Format(time.RFC3339))
	}
	if q.EndDate != nil {
		v.Set("endDate", q.EndDate.Format(time.RFC3339))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

// ListSessions returns a page of sessions and the summary over all matches.
func (c *Client) ListSessions(ctx context.Context, q SessionQuery) (*sessions.ListResult, error) {
	var result sessions.ListResult
	if err := c.do(ctx, http.MethodGet, "/api/sessions", q.values(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateTask adds a task to the todo column.
func (c *Client) CreateTask(ctx context.Context, req api.CreateTaskRequest) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", nil, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks lists tasks, optionally in one status.
func (c *Client) ListTasks(ctx context.Context, status string) ([]models.Task, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	var tasks []models.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", query, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask fetches one task.
func (c *Client) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// SetTaskStatus moves a task to another column.
func (c *Client) SetTaskStatus(ctx context.Context, id, status string) (*models.Task, error) {
	var task models.Task
	err := c.do(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(id), nil, api.UpdateTaskRequest{Status: status}, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateCategory adds a category.
func (c *Client) CreateCategory(ctx context.Context, req api.CreateCategoryRequest) (*models.Category, error) {
	var category models.Category
	if err := c.do(ctx, http.MethodPost, "/api/categories", nil, req, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// ListCategories lists the caller's categories.
func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetCategory fetches one category.
func (c *Client) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	if err := c.do(ctx, http.MethodGet, "/api/categories/"+url.PathEscape(id), nil, nil, &category); err != nil {
		return nil, err
	}
	return &category, nil
}
