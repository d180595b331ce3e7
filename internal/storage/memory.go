package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/dreamware/todo/internal/todo"
)

// MemoryStore implements Store with a process-local map.
// Uses sync.RWMutex: Get and List share the lock, mutations take it
// exclusively. Nothing survives a restart.
type MemoryStore struct {
	mu    sync.RWMutex            // Protects todos
	todos map[uuid.UUID]todo.Todo // Stored by value so callers never alias entries
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		todos: make(map[uuid.UUID]todo.Todo),
	}
}

// Create stores a new todo under a random 128-bit id
func (m *MemoryStore) Create(_ context.Context, in todo.CreateTodo) (todo.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := todo.Todo{
		ID:        uuid.New(),
		Title:     in.Title,
		Completed: false,
	}
	m.todos[t.ID] = t

	return t, nil
}

// Get retrieves a copy of the todo with the given id
func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (todo.Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, exists := m.todos[id]
	if !exists {
		return todo.Todo{}, ErrNotFound
	}
	return t, nil
}

// List returns a sorted snapshot; later mutations don't affect it
func (m *MemoryStore) List(_ context.Context) ([]todo.Todo, error) {
	m.mu.RLock()
	result := make([]todo.Todo, 0, len(m.todos))
	for _, t := range m.todos {
		result = append(result, t)
	}
	m.mu.RUnlock()

	slices.SortFunc(result, func(a, b todo.Todo) int {
		return strings.Compare(a.Title, b.Title)
	})
	return result, nil
}

// Update applies the patch while holding the write lock across the
// lookup and the store, so a single call is never interleaved
func (m *MemoryStore) Update(_ context.Context, id uuid.UUID, in todo.UpdateTodo) (todo.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, exists := m.todos[id]
	if !exists {
		return todo.Todo{}, ErrNotFound
	}

	in.Apply(&t)
	m.todos[id] = t

	return t, nil
}

// Delete removes the todo; a missing id reports ErrNotFound
func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.todos[id]; !exists {
		return ErrNotFound
	}
	delete(m.todos, id)
	return nil
}

// Len returns the number of stored todos
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.todos)
}

// Ping always succeeds for the in-memory store
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}
