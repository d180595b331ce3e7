// Package client is a typed HTTP client for the todo API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dreamware/todo/internal/todo"
)

// ErrNotFound is returned when the server answers 404
var ErrNotFound = errors.New("todo not found")

// StatusError is returned for any other non-2xx response
type StatusError struct {
	Method  string
	URL     string
	Code    int
	Message string // Value of the "error" field, if the body had one
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %s %s: %d", e.Method, e.URL, e.Code)
	}
	return fmt.Sprintf("http %s %s: %d: %s", e.Method, e.URL, e.Code, e.Message)
}

// Client talks to one todo server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at baseURL (e.g. "http://localhost:3000").
// A nil httpClient uses one with a 5 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// do sends body (if non-nil) as JSON and decodes a 2xx response into out
// (if non-nil)
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(reqBody)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, "/todos/") {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &StatusError{Method: method, URL: url, Code: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Create posts a new todo
func (c *Client) Create(ctx context.Context, title string) (todo.Todo, error) {
	var t todo.Todo
	err := c.do(ctx, http.MethodPost, "/todos", todo.CreateTodo{Title: title}, &t)
	return t, err
}

// Get fetches one todo
func (c *Client) Get(ctx context.Context, id uuid.UUID) (todo.Todo, error) {
	var t todo.Todo
	err := c.do(ctx, http.MethodGet, "/todos/"+id.String(), nil, &t)
	return t, err
}

// List fetches all todos ordered by title
func (c *Client) List(ctx context.Context) ([]todo.Todo, error) {
	var todos []todo.Todo
	err := c.do(ctx, http.MethodGet, "/todos", nil, &todos)
	return todos, err
}

// Update patches a todo; nil fields are left untouched
func (c *Client) Update(ctx context.Context, id uuid.UUID, patch todo.UpdateTodo) (todo.Todo, error) {
	var t todo.Todo
	err := c.do(ctx, http.MethodPatch, "/todos/"+id.String(), patch, &t)
	return t, err
}

// Delete removes a todo
func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/todos/"+id.String(), nil, nil)
}

// Health checks the liveness endpoint
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}
