package storage

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dreamware/todo/internal/todo"
)

// OperationStats tracks how many times each contract operation was called.
// Failed calls are counted too.
type OperationStats struct {
	Creates uint64 `json:"creates"` // Number of create operations
	Gets    uint64 `json:"gets"`    // Number of get operations
	Lists   uint64 `json:"lists"`   // Number of list operations
	Updates uint64 `json:"updates"` // Number of update operations
	Deletes uint64 `json:"deletes"` // Number of delete operations
}

// CountingStore decorates a Store with per-operation counters
type CountingStore struct {
	Store

	// Name identifies the wrapped backend in reports
	Name string

	creates atomic.Uint64
	gets    atomic.Uint64
	lists   atomic.Uint64
	updates atomic.Uint64
	deletes atomic.Uint64
}

// NewCountingStore wraps s, reporting its stats under name
func NewCountingStore(name string, s Store) *CountingStore {
	return &CountingStore{Store: s, Name: name}
}

// Create increments the create counter and delegates
func (c *CountingStore) Create(ctx context.Context, in todo.CreateTodo) (todo.Todo, error) {
	c.creates.Add(1)
	return c.Store.Create(ctx, in)
}

// Get increments the get counter and delegates
func (c *CountingStore) Get(ctx context.Context, id uuid.UUID) (todo.Todo, error) {
	c.gets.Add(1)
	return c.Store.Get(ctx, id)
}

// List increments the list counter and delegates
func (c *CountingStore) List(ctx context.Context) ([]todo.Todo, error) {
	c.lists.Add(1)
	return c.Store.List(ctx)
}

// Update increments the update counter and delegates
func (c *CountingStore) Update(ctx context.Context, id uuid.UUID, in todo.UpdateTodo) (todo.Todo, error) {
	c.updates.Add(1)
	return c.Store.Update(ctx, id, in)
}

// Delete increments the delete counter and delegates
func (c *CountingStore) Delete(ctx context.Context, id uuid.UUID) error {
	c.deletes.Add(1)
	return c.Store.Delete(ctx, id)
}

// Stats returns a snapshot of the counters
func (c *CountingStore) Stats() OperationStats {
	return OperationStats{
		Creates: c.creates.Load(),
		Gets:    c.gets.Load(),
		Lists:   c.lists.Load(),
		Updates: c.updates.Load(),
		Deletes: c.deletes.Load(),
	}
}
