package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Tar-ive/brain-system-sub000/internal/engine"
	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

// StoreEntryRequest is the POST /api/entries payload. The client sends
// the same shape.
type StoreEntryRequest struct {
	Content        string          `json:"content"`
	Tags           []string        `json:"tags,omitempty"`
	Dimensions     []string        `json:"dimensions,omitempty"`
	Importance     *float64        `json:"importance,omitempty"`
	ProjectContext string          `json:"project_context,omitempty"`
	ThinkingMode   string          `json:"thinking_mode,omitempty"`
	SourceSystem   string          `json:"source_system,omitempty"`
	Metadata       memory.Metadata `json:"metadata,omitempty"`
	Timestamp      time.Time       `json:"timestamp,omitempty"`
	SessionID      string          `json:"session_id,omitempty"`
}

func (s *Server) handleStoreEntry(w http.ResponseWriter, r *http.Request) {
	var req StoreEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	out, err := s.engine.Store(engine.StoreRequest{
		Content:        req.Content,
		Tags:           req.Tags,
		Dimensions:     req.Dimensions,
		Importance:     req.Importance,
		ProjectContext: req.ProjectContext,
		ThinkingMode:   req.ThinkingMode,
		SourceSystem:   req.SourceSystem,
		Metadata:       req.Metadata,
		Timestamp:      req.Timestamp,
		SessionID:      req.SessionID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if out.Deduplicated {
		status = http.StatusOK
	}
	writeJSON(w, status, out)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id := memory.EntryID(chi.URLParam(r, "entryID"))

	entry, err := s.engine.DB.GetEntry(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if entry == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "entry not found"})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	id := memory.EntryID(chi.URLParam(r, "entryID"))

	statuses, err := s.engine.SyncStatus(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entry_id": id,
		"sinks":    statuses,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")

	opts := engine.SearchOpts{
		Dimension:      q.Get("dimension"),
		Tag:            q.Get("tag"),
		ProjectContext: q.Get("project"),
		SourceSystem:   q.Get("source"),
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be an integer"})
			return
		}
		opts.Limit = n
	}
	if m := q.Get("min_importance"); m != "" {
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "min_importance must be a number"})
			return
		}
		opts.MinImportance = f
	}
	if t := q.Get("threshold"); t != "" {
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "threshold must be a number"})
			return
		}
		opts.Threshold = &f
	}
	if since := q.Get("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since must be RFC3339"})
			return
		}
		opts.Since = ts
	}

	results, err := s.engine.Search(query, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleAdmit(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		EntryID string `json:"entry_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	evicted, err := s.engine.Admit(sessionID, memory.EntryID(req.EntryID))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"admitted":   req.EntryID,
		"evicted":    evicted,
	})
}

func (s *Server) handleWorkingMemory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	entries := s.engine.WorkingMemory(sessionID)

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"count":      len(entries),
		"entries":    entries,
	})
}

func (s *Server) handleDropSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	s.engine.DropSession(sessionID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "dropped"})
}

func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source string `json:"source"`
		Path   string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	res, err := s.engine.Migrate(req.Source, req.Path)
	if err != nil {
		writeError(w, err)
		return
	}

	s.log.Info("migration finished", "source", res.Source,
		"created", res.Created, "skipped", res.Skipped, "errors", len(res.Errors))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := s.engine.Cleanup()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleRetrySync(w http.ResponseWriter, r *http.Request) {
	// Body is optional; {"limit": n} caps the batch.
	var req struct {
		Limit int `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	retried, err := s.engine.RetrySync(req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"retried": retried})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
