package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dreamware/todo/internal/health"
	"github.com/dreamware/todo/internal/storage"
	"github.com/dreamware/todo/internal/todo"
)

// errorResponse is the body of every non-2xx reply
type errorResponse struct {
	Error string `json:"error"`
}

// statsResponse is the body of GET /stats
type statsResponse struct {
	Backend    string                 `json:"backend"`
	Operations storage.OperationStats `json:"operations"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps a contract error to a response.
// ErrNotFound is 404; anything else is a backend failure and 500.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if storage.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "todo not found")
		return
	}

	s.logger.Error("storage failure", "method", r.Method, "path", r.URL.Path, "err", err)
	msg := "internal storage error"
	if s.expose {
		msg = err.Error()
	}
	writeError(w, http.StatusInternalServerError, msg)
}

// decodeBody reads a single JSON object into v, rejecting unknown fields,
// trailing data and bodies over maxBodyBytes
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body must not be empty")
		}
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// pathID parses the {id} route variable
func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["id"])
}

// handleHealth always reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleReady reports whether the storage backend is reachable
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	var report health.Report
	if s.monitor != nil {
		report = s.monitor.Report()
	} else if err := s.store.Ping(r.Context()); err != nil {
		report = health.Report{Status: health.StatusUnhealthy, LastError: err.Error(), ConsecutiveFails: 1}
	} else {
		report = health.Report{Status: health.StatusHealthy}
	}

	status := http.StatusOK
	if report.Status != health.StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// handleStats reports operation counters when the store keeps them
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	src, ok := s.store.(statsSource)
	if !ok {
		writeError(w, http.StatusNotFound, "stats not available")
		return
	}

	resp := statsResponse{Operations: src.Stats()}
	if named, ok := s.store.(*storage.CountingStore); ok {
		resp.Backend = named.Name
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in todo.CreateTodo
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.store.Create(r.Context(), in)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	todos, err := s.store.List(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid todo id")
		return
	}

	t, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid todo id")
		return
	}

	var in todo.UpdateTodo
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	updated, err := s.store.Update(r.Context(), id, in)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid todo id")
		return
	}

	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
