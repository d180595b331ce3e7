package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/mattn/go-sqlite3"    // registers the "sqlite3" driver
	"github.com/pkg/errors"

	"github.com/dreamware/todo/internal/todo"
)

// Dialect captures the per-database differences of the relational backend.
// Statements themselves are shared: both drivers accept $n placeholders and
// RETURNING clauses.
type Dialect struct {
	Name    string // Short backend name reported by /stats
	Driver  string // database/sql driver name
	Schema  string // Idempotent DDL applied on Migrate
	OrderBy string // Byte-wise title ordering for List
}

var (
	// Postgres stores ids in a native uuid column
	Postgres = Dialect{
		Name:    "postgres",
		Driver:  "pgx",
		OrderBy: `title COLLATE "C" ASC`,
		Schema:  `CREATE TABLE IF NOT EXISTS todos (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE
		)`,
	}

	// SQLite stores ids in their canonical text form
	SQLite = Dialect{
		Name:    "sqlite",
		Driver:  "sqlite3",
		OrderBy: "title ASC",
		Schema:  `CREATE TABLE IF NOT EXISTS todos (
			id TEXT NOT NULL PRIMARY KEY,
			title TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE
		)`,
	}
)

const (
	todoColumns = "id, title, completed"

	insertTodoSQL = "INSERT INTO todos (id, title, completed) VALUES ($1, $2, FALSE) RETURNING " + todoColumns
	selectTodoSQL = "SELECT " + todoColumns + " FROM todos WHERE id = $1"
	listTodosSQL  = "SELECT " + todoColumns + " FROM todos ORDER BY "
	deleteTodoSQL = "DELETE FROM todos WHERE id = $1"
)

// SQLStore implements Store on top of a database/sql connection pool.
// The pool is the only shared state and is safe for concurrent use.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// ParseDatabaseURL picks a dialect and driver data source for a connection
// string. Postgres URLs are passed through untouched; sqlite:// and sqlite3://
// prefixes are stripped, and bare ":memory:" or "file:" sources are SQLite.
func ParseDatabaseURL(raw string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return Postgres, raw, nil
	case strings.HasPrefix(raw, "sqlite3://"):
		return SQLite, strings.TrimPrefix(raw, "sqlite3://"), nil
	case strings.HasPrefix(raw, "sqlite://"):
		return SQLite, strings.TrimPrefix(raw, "sqlite://"), nil
	case raw == ":memory:", strings.HasPrefix(raw, "file:"):
		return SQLite, raw, nil
	}
	return Dialect{}, "", fmt.Errorf("unsupported database url %q", raw)
}

// Open connects to the database named by rawURL, verifies connectivity and
// applies the schema. The returned store owns the pool.
func Open(ctx context.Context, rawURL string) (*SQLStore, error) {
	dialect, source, err := ParseDatabaseURL(rawURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.Driver, source)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", dialect.Name)
	}
	if dialect.Driver == SQLite.Driver {
		// One connection keeps a :memory: database shared by every caller
		db.SetMaxOpenConns(1)
	}

	s := NewSQLStore(db, dialect)
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an already opened pool. Call Migrate before use if the
// schema may be missing.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Dialect returns the dialect the store was built with
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

// Migrate creates the todos table if it does not exist
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Schema); err != nil {
		return backendError("migrate", err, "create todos table")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (todo.Todo, error) {
	var t todo.Todo
	err := row.Scan(&t.ID, &t.Title, &t.Completed)
	return t, err
}

// Create inserts a new row and returns it as stored
func (s *SQLStore) Create(ctx context.Context, in todo.CreateTodo) (todo.Todo, error) {
	t, err := scanTodo(s.db.QueryRowContext(ctx, insertTodoSQL, uuid.New(), in.Title))
	if err != nil {
		return todo.Todo{}, backendError("create", err, "insert todo")
	}
	return t, nil
}

// Get selects a row by id
func (s *SQLStore) Get(ctx context.Context, id uuid.UUID) (todo.Todo, error) {
	t, err := scanTodo(s.db.QueryRowContext(ctx, selectTodoSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return todo.Todo{}, ErrNotFound
	}
	if err != nil {
		return todo.Todo{}, backendError("get", err, "select todo")
	}
	return t, nil
}

// List selects every row ordered by title
func (s *SQLStore) List(ctx context.Context) ([]todo.Todo, error) {
	rows, err := s.db.QueryContext(ctx, listTodosSQL+s.dialect.OrderBy)
	if err != nil {
		return nil, backendError("list", err, "select todos")
	}
	defer rows.Close()

	result := make([]todo.Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, backendError("list", err, "scan todo")
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, backendError("list", err, "iterate todos")
	}
	return result, nil
}

// buildUpdate assembles the UPDATE statement for the fields present in the
// patch. Only fixed column names reach the query text; values are bound
// positionally. ok is false when the patch is empty.
func buildUpdate(id uuid.UUID, in todo.UpdateTodo) (query string, args []any, ok bool) {
	var sets []string

	if in.Title != nil {
		args = append(args, *in.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if in.Completed != nil {
		args = append(args, *in.Completed)
		sets = append(sets, fmt.Sprintf("completed = $%d", len(args)))
	}
	if len(sets) == 0 {
		return "", nil, false
	}

	args = append(args, id)
	query = fmt.Sprintf("UPDATE todos SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), todoColumns)
	return query, args, true
}

// Update applies the patch in a single UPDATE ... RETURNING statement.
// An empty patch is answered by Get without touching the row.
func (s *SQLStore) Update(ctx context.Context, id uuid.UUID, in todo.UpdateTodo) (todo.Todo, error) {
	query, args, ok := buildUpdate(id, in)
	if !ok {
		return s.Get(ctx, id)
	}

	t, err := scanTodo(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return todo.Todo{}, ErrNotFound
	}
	if err != nil {
		return todo.Todo{}, backendError("update", err, "update todo")
	}
	return t, nil
}

// Delete removes a row; zero affected rows means the id was unknown
func (s *SQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, deleteTodoSQL, id)
	if err != nil {
		return backendError("delete", err, "delete todo")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return backendError("delete", err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks that the database is reachable
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return backendError("ping", err, s.dialect.Name)
	}
	return nil
}

// Close closes the connection pool
func (s *SQLStore) Close() error {
	return s.db.Close()
}
