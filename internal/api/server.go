// Package api binds the todo storage contract to HTTP.
//
// Routes:
//
//	POST   /todos        - Create a todo          201, 400, 422, 500
//	GET    /todos        - List todos by title     200, 500
//	GET    /todos/{id}   - Fetch one todo          200, 400, 404, 500
//	PATCH  /todos/{id}   - Partially update a todo 200, 400, 404, 422, 500
//	DELETE /todos/{id}   - Delete a todo           204, 400, 404, 500
//	GET    /health       - Liveness, always 200 with no body
//	GET    /ready        - Backend reachability    200, 503
//	GET    /stats        - Per-operation counters  200
//
// Every error response carries {"error": "<message>"}.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dreamware/todo/internal/health"
	"github.com/dreamware/todo/internal/storage"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// statsSource is implemented by stores that count their operations
type statsSource interface {
	Stats() storage.OperationStats
}

// Options configures optional collaborators of a Server
type Options struct {
	Logger  *slog.Logger
	Monitor *health.Monitor // Backs /ready; nil pings the store per request

	// ExposeBackendErrors includes storage diagnostics in 500 bodies.
	// When false clients only see a generic message; the log keeps the detail.
	ExposeBackendErrors bool
}

// Server translates HTTP requests into Store calls
type Server struct {
	store   storage.Store
	logger  *slog.Logger
	monitor *health.Monitor
	router  *mux.Router
	expose  bool
}

// NewServer builds the router for store. The store is used as given; wrap it
// in a storage.CountingStore to populate /stats.
func NewServer(store storage.Store, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:   store,
		logger:  logger,
		monitor: opts.Monitor,
		router:  mux.NewRouter(),
		expose:  opts.ExposeBackendErrors,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	r.HandleFunc("/todos", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/todos", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/todos", handlePreflight).Methods(http.MethodOptions)

	r.HandleFunc("/todos/{id}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/todos/{id}", s.handleUpdate).Methods(http.MethodPatch)
	r.HandleFunc("/todos/{id}", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/todos/{id}", handlePreflight).Methods(http.MethodOptions)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Use(mux.CORSMethodMiddleware(r))
}

// Handler returns the complete handler chain: request logging, CORS
// headers, then routing
func (s *Server) Handler() http.Handler {
	return s.logRequests(withCORS(s.router))
}
