package server

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
	"github.com/Tar-ive/brain-system-sub000/internal/store"
)

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	ctx := s.buildContext(r.URL.Query().Get("session_id"))

	writeJSON(w, http.StatusOK, map[string]string{
		"context": ctx,
	})
}

// buildContext renders the markdown block an agent injects at session
// start: the session's working memory first, then recent entries ranked
// by importance, capped so the context never becomes a wall of text.
func (s *Server) buildContext(sessionID string) string {
	var b strings.Builder

	b.WriteString("<context>\n## Brain Memory\n")

	if sessionID != "" {
		if wm := s.engine.WorkingMemory(sessionID); len(wm) > 0 {
			b.WriteString("\n### Working Memory\n")
			for _, e := range wm {
				b.WriteString(fmt.Sprintf("- [%.2f] %s\n", e.Importance, snippet(e.Content)))
			}
		}
	}

	const maxContextItems = 15

	recent, err := s.engine.DB.ListRecent(50)
	if err == nil {
		var kept []memory.Entry
		for _, e := range recent {
			if e.Importance < 0.3 {
				continue
			}
			kept = append(kept, e)
		}
		// ListRecent is newest-first; a stable sort keeps recency as
		// the tie-break within equal importance.
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].Importance > kept[j].Importance
		})
		if len(kept) > maxContextItems {
			kept = kept[:maxContextItems]
		}
		if len(kept) > 0 {
			b.WriteString("\n### Recent Memories\n")
			for _, e := range kept {
				dim := memory.DimGeneral
				if len(e.Dimensions) > 0 {
					dim = e.Dimensions[0]
				}
				b.WriteString(fmt.Sprintf("- [%s] %s\n", dim, snippet(e.Content)))
			}
		}
	}

	if counts, err := s.engine.DB.CountSyncByStatus(); err == nil && counts[store.SyncFailed] > 0 {
		b.WriteString(fmt.Sprintf("\n### Sync\n%d entries failed sink replication\n", counts[store.SyncFailed]))
	}

	b.WriteString("</context>")
	return b.String()
}

// snippet returns the first content line, truncated for list display.
func snippet(content string) string {
	line := content
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if len(line) > 120 {
		line = line[:117] + "..."
	}
	return line
}
