// Package todo defines the single resource managed by the service and the
// input shapes used to create and patch it.
package todo

import (
	"strings"

	"github.com/google/uuid"
)

// Todo is a stored todo item.
// ID is assigned by the storage layer on create and never changes.
type Todo struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
}

// CreateTodo is the payload accepted when creating a todo.
type CreateTodo struct {
	Title string `json:"title"`
}

// UpdateTodo is a partial patch. A nil field (absent or JSON null) leaves the
// stored value untouched.
type UpdateTodo struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// IsEmpty reports whether the patch carries no fields.
func (u UpdateTodo) IsEmpty() bool {
	return u.Title == nil && u.Completed == nil
}

// Apply merges the present fields of u into t.
func (u UpdateTodo) Apply(t *Todo) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Completed != nil {
		t.Completed = *u.Completed
	}
}

// ValidationError describes an input payload the service refuses to store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Validate checks a create payload.
func (c CreateTodo) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return nil
}

// Validate checks a patch. Absent fields are always valid.
func (u UpdateTodo) Validate() error {
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return nil
}
