package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dreamware/todo/internal/todo"
)

// ErrNotFound is returned when no todo exists for the requested id
var ErrNotFound = errors.New("todo not found")

// BackendError reports a failure of the underlying storage medium
// (connectivity, constraint violation, I/O). Err carries the diagnostic.
type BackendError struct {
	Op  string // Contract operation that failed
	Err error  // Underlying cause, already wrapped with context
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// backendError wraps a driver level failure with a message and boxes it into
// a *BackendError for the given operation
func backendError(op string, err error, msg string) error {
	return &BackendError{Op: op, Err: errors.Wrap(err, msg)}
}

// IsNotFound reports whether err is (or wraps) ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsBackend reports whether err is (or wraps) a *BackendError
func IsBackend(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// Store defines the todo storage contract.
// All implementations must be safe for concurrent access and must report
// failures only as ErrNotFound or *BackendError.
type Store interface {
	// Create persists a new todo with a fresh id and Completed=false
	Create(ctx context.Context, in todo.CreateTodo) (todo.Todo, error)

	// Get retrieves a todo by id
	// Returns ErrNotFound if the id doesn't exist
	Get(ctx context.Context, id uuid.UUID) (todo.Todo, error)

	// List returns every stored todo ordered by title ascending
	// Returns an empty slice when the store is empty
	List(ctx context.Context) ([]todo.Todo, error)

	// Update merges the present fields of in into the stored todo
	// Returns ErrNotFound if the id doesn't exist
	Update(ctx context.Context, id uuid.UUID, in todo.UpdateTodo) (todo.Todo, error)

	// Delete permanently removes a todo
	// Returns ErrNotFound if the id doesn't exist, including on a repeated delete
	Delete(ctx context.Context, id uuid.UUID) error

	// Ping reports whether the storage medium is reachable
	Ping(ctx context.Context) error

	// Close releases resources held by the store
	Close() error
}
