package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/todo/internal/health"
	"github.com/dreamware/todo/internal/storage"
	"github.com/dreamware/todo/internal/todo"
)

// brokenStore fails every operation with a backend error
type brokenStore struct{}

func (brokenStore) fail(op string) error {
	return &storage.BackendError{Op: op, Err: errors.New("connection reset by peer")}
}

func (b brokenStore) Create(context.Context, todo.CreateTodo) (todo.Todo, error) {
	return todo.Todo{}, b.fail("create")
}
func (b brokenStore) Get(context.Context, uuid.UUID) (todo.Todo, error) {
	return todo.Todo{}, b.fail("get")
}
func (b brokenStore) List(context.Context) ([]todo.Todo, error) { return nil, b.fail("list") }
func (b brokenStore) Update(context.Context, uuid.UUID, todo.UpdateTodo) (todo.Todo, error) {
	return todo.Todo{}, b.fail("update")
}
func (b brokenStore) Delete(context.Context, uuid.UUID) error { return b.fail("delete") }
func (b brokenStore) Ping(context.Context) error              { return b.fail("ping") }
func (b brokenStore) Close() error                            { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(store storage.Store, expose bool) http.Handler {
	return NewServer(store, Options{Logger: quietLogger(), ExposeBackendErrors: expose}).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeTodo(t *testing.T, rec *httptest.ResponseRecorder) todo.Todo {
	t.Helper()
	var out todo.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out.Error
}

func TestHealth(t *testing.T) {
	h := newTestServer(brokenStore{}, true)

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestCreateTodo(t *testing.T) {
	h := newTestServer(storage.NewMemoryStore(), true)

	rec := do(t, h, http.MethodPost, "/todos", `{"title": "Web layer test"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	created := decodeTodo(t, rec)
	assert.Equal(t, "Web layer test", created.Title)
	assert.False(t, created.Completed)
	assert.NotEqual(t, uuid.Nil, created.ID)
}

func TestCreateTodoRejectsBadInput(t *testing.T) {
	h := newTestServer(storage.NewMemoryStore(), true)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"title":`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
		{"unknown field", `{"title":"x","priority":1}`, http.StatusBadRequest},
		{"wrong type", `{"title":42}`, http.StatusBadRequest},
		{"trailing data", `{"title":"x"}{"title":"y"}`, http.StatusBadRequest},
		{"missing title", `{}`, http.StatusUnprocessableEntity},
		{"blank title", `{"title":"   "}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/todos", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, decodeError(t, rec))
		})
	}
}

func TestGetTodo(t *testing.T) {
	h := newTestServer(storage.NewMemoryStore(), true)

	created := decodeTodo(t, do(t, h, http.MethodPost, "/todos", `{"title":"Get me"}`))

	rec := do(t, h, http.MethodGet, "/todos/"+created.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decodeTodo(t, rec))
}

func TestGetNonexistentTodoReturns404(t *testing.T) {
	h := newTestServer(storage.NewMemoryStore(), true)

	rec := do(t, h, http.MethodGet, "/todos/00000000-0000-0000-0000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "todo not found", decodeError(t, rec))
}

func TestInvalidIDReturns400(t *testing.T) {
	h := newTestServer(storage.NewMemoryStore(), true)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := do(t, h, method, "/todos/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, method)
		assert.Equal(t, "invalid todo id", decodeError(t, rec))
	}

	rec := do(t, h, http.MethodPatch, "/todos/not-a-uuid", `{"completed":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTodosOrderedByTitle(t *testing.T) {
	h := newTestServer(storage.NewMemoryStore(), true)

	rec := do(t, h, http.MethodGet, "/todos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	do(t, h, http.MethodPost, "/todos", `{"title":"Zebra"}`)
	do(t, h, http.MethodPost, "/todos", `{"title":"Apple"}`)

	rec = do(t, h, http.MethodGet, "/todos", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var todos []todo.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &todos))
	require.Len(t, todos, 2)
	assert.Equal(t, "Apple", todos[0].Title)
	assert.Equal(t, "Zebra", todos[1].Title)
}

func TestUpdateTodo(t *testing.T) {
	h := newTestServer(storage.NewMemoryStore(), true)
	created := decodeTodo(t, do(t, h, http.MethodPost, "/todos", `{"title":"Task"}`))
	path := "/todos/" + created.ID.String()

	rec := do(t, h, http.MethodPatch, path, `{"completed":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeTodo(t, rec)
	assert.True(t, updated.Completed)
	assert.Equal(t, "Task", updated.Title)

	rec = do(t, h, http.MethodPatch, path, `{"title":"Renamed","completed":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated = decodeTodo(t, rec)
	assert.Equal(t, "Renamed", updated.Title)
	assert.True(t, updated.Completed, "null leaves the field untouched")

	rec = do(t, h, http.MethodPatch, path, `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, updated, decodeTodo(t, rec))

	rec = do(t, h, http.MethodPatch, path, `{"title":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPatch, "/todos/"+uuid.NewString(), `{"completed":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteTodo(t *testing.T) {
	h := newTestServer(storage.NewMemoryStore(), true)
	created := decodeTodo(t, do(t, h, http.MethodPost, "/todos", `{"title":"Delete me"}`))
	path := "/todos/" + created.ID.String()

	rec := do(t, h, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, path, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, path, "").Code)
}

func TestBackendErrorsReturn500(t *testing.T) {
	id := uuid.NewString()
	requests := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/todos", `{"title":"x"}`},
		{http.MethodGet, "/todos", ""},
		{http.MethodGet, "/todos/" + id, ""},
		{http.MethodPatch, "/todos/" + id, `{"completed":true}`},
		{http.MethodDelete, "/todos/" + id, ""},
	}

	t.Run("diagnostic exposed", func(t *testing.T) {
		h := newTestServer(brokenStore{}, true)
		for _, req := range requests {
			rec := do(t, h, req.method, req.path, req.body)
			assert.Equal(t, http.StatusInternalServerError, rec.Code, req.method+" "+req.path)
			assert.Contains(t, decodeError(t, rec), "connection reset by peer")
		}
	})

	t.Run("diagnostic redacted", func(t *testing.T) {
		h := newTestServer(brokenStore{}, false)
		for _, req := range requests {
			rec := do(t, h, req.method, req.path, req.body)
			assert.Equal(t, http.StatusInternalServerError, rec.Code, req.method+" "+req.path)
			assert.Equal(t, "internal storage error", decodeError(t, rec))
		}
	})
}

func TestUnknownRoutes(t *testing.T) {
	h := newTestServer(storage.NewMemoryStore(), true)

	rec := do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPut, "/todos", `{"title":"x"}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	h := newTestServer(storage.NewMemoryStore(), true)

	rec := do(t, h, http.MethodOptions, "/todos", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	methods := rec.Header().Get("Access-Control-Allow-Methods")
	assert.Contains(t, methods, http.MethodPost)
	assert.Contains(t, methods, http.MethodGet)

	rec = do(t, h, http.MethodOptions, "/todos/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	methods = rec.Header().Get("Access-Control-Allow-Methods")
	assert.Contains(t, methods, http.MethodPatch)
	assert.Contains(t, methods, http.MethodDelete)

	rec = do(t, h, http.MethodGet, "/todos", "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestReady(t *testing.T) {
	t.Run("healthy store without monitor", func(t *testing.T) {
		h := newTestServer(storage.NewMemoryStore(), true)
		rec := do(t, h, http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	})

	t.Run("broken store without monitor", func(t *testing.T) {
		h := newTestServer(brokenStore{}, true)
		rec := do(t, h, http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "connection reset by peer")
	})

	t.Run("monitor report", func(t *testing.T) {
		store := storage.NewMemoryStore()
		monitor := health.NewMonitor(store, time.Hour, quietLogger())

		h := NewServer(store, Options{Logger: quietLogger(), Monitor: monitor}).Handler()

		// Nothing checked yet
		rec := do(t, h, http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"unknown"`)

		monitor.Check(context.Background())
		rec = do(t, h, http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestStats(t *testing.T) {
	t.Run("counting store", func(t *testing.T) {
		store := storage.NewCountingStore("memory", storage.NewMemoryStore())
		h := newTestServer(store, true)

		created := decodeTodo(t, do(t, h, http.MethodPost, "/todos", `{"title":"counted"}`))
		do(t, h, http.MethodGet, "/todos/"+created.ID.String(), "")
		do(t, h, http.MethodGet, "/todos", "")

		rec := do(t, h, http.MethodGet, "/stats", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp statsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "memory", resp.Backend)
		assert.Equal(t, storage.OperationStats{Creates: 1, Gets: 1, Lists: 1}, resp.Operations)
	})

	t.Run("plain store", func(t *testing.T) {
		h := newTestServer(storage.NewMemoryStore(), true)
		rec := do(t, h, http.MethodGet, "/stats", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
