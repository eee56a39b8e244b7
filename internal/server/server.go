// Package server exposes the memory engine over HTTP and provides the
// client the CLI uses to reach a running instance.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/engine"
	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

// Server is the brain HTTP API server.
type Server struct {
	engine  *engine.Engine
	router  chi.Router
	version string
	started time.Time
	log     *slog.Logger
}

// New creates a Server around a running engine.
func New(eng *engine.Engine, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:  eng,
		version: version,
		started: time.Now(),
		log:     logger,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/entries", s.handleStoreEntry)
		r.Get("/entries/{entryID}", s.handleGetEntry)
		r.Get("/entries/{entryID}/sync", s.handleSyncStatus)

		r.Get("/search", s.handleSearch)
		r.Get("/context", s.handleGetContext)

		r.Post("/sessions/{sessionID}/admit", s.handleAdmit)
		r.Get("/sessions/{sessionID}/working-memory", s.handleWorkingMemory)
		r.Delete("/sessions/{sessionID}", s.handleDropSession)

		r.Post("/migrate", s.handleMigrate)
		r.Post("/cleanup", s.handleCleanup)
		r.Post("/sync/retry", s.handleRetrySync)
		r.Get("/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.engine.DB.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.engine.DB.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses: unknown
// entries are 404, rejected input 400, everything else 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, memory.ErrEntryNotFound):
		status = http.StatusNotFound
	case goerr.HasTag(err, memory.TagValidation), goerr.HasTag(err, memory.TagSearchQuery):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
