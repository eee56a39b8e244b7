// Package workmem holds the per-session working memory: a small fixed
// set of entries a session is actively attending to. It lives entirely
// in process memory and is rebuilt by re-admission after a restart.
package workmem

import (
	"sort"
	"sync"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

// Capacity is the fixed number of slots per session.
const Capacity = 7

// Manager tracks working memory for all active sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string][]memory.Entry
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string][]memory.Entry)}
}

// Admit places an entry into a session's working memory. Re-admitting
// an entry already present refreshes it in place. When the set exceeds
// Capacity the lowest-importance entries are evicted; ties evict the
// older entry first. Returns the IDs of evicted entries.
func (m *Manager) Admit(sessionID string, e memory.Entry) []memory.EntryID {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.sessions[sessionID]
	replaced := false
	for i := range items {
		if items[i].ID == e.ID {
			items[i] = e
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, e)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Importance != items[j].Importance {
			return items[i].Importance > items[j].Importance
		}
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.After(items[j].Timestamp)
		}
		return items[i].ID < items[j].ID
	})

	var evicted []memory.EntryID
	if len(items) > Capacity {
		for _, out := range items[Capacity:] {
			evicted = append(evicted, out.ID)
		}
		items = items[:Capacity:Capacity]
	}
	m.sessions[sessionID] = items
	return evicted
}

// Get returns a copy of the session's working memory, highest
// importance first. Unknown sessions return an empty set.
func (m *Manager) Get(sessionID string) []memory.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := m.sessions[sessionID]
	out := make([]memory.Entry, len(items))
	copy(out, items)
	return out
}

// Len returns the number of occupied slots for a session.
func (m *Manager) Len(sessionID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions[sessionID])
}

// Drop clears a session's working memory.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// Sessions returns the IDs of all sessions holding at least one entry.
func (m *Manager) Sessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
