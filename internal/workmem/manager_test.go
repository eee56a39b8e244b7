package workmem

import (
	"fmt"
	"testing"
	"time"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

func entryWithImportance(id string, importance float64) memory.Entry {
	return memory.Entry{
		ID:         memory.EntryID(id),
		Content:    "entry " + id,
		Importance: importance,
		Timestamp:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAdmitAndGet(t *testing.T) {
	m := NewManager()

	evicted := m.Admit("sess-1", entryWithImportance("a", 0.5))
	if len(evicted) != 0 {
		t.Errorf("unexpected eviction: %v", evicted)
	}

	got := m.Get("sess-1")
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("Get = %v, want [a]", got)
	}
}

func TestCapacityNeverExceeded(t *testing.T) {
	m := NewManager()

	for i := 0; i < 20; i++ {
		m.Admit("sess-1", entryWithImportance(fmt.Sprintf("e%02d", i), 0.5))
		if n := m.Len("sess-1"); n > Capacity {
			t.Fatalf("slots = %d, exceeds capacity %d", n, Capacity)
		}
	}
	if n := m.Len("sess-1"); n != Capacity {
		t.Errorf("slots = %d, want %d", n, Capacity)
	}
}

func TestEvictsLowestImportance(t *testing.T) {
	m := NewManager()

	// Fill all seven slots with importances 0.1 through 0.7.
	for i := 1; i <= 7; i++ {
		m.Admit("sess-1", entryWithImportance(fmt.Sprintf("e%d", i), float64(i)/10))
	}

	// An eighth entry at 0.8 evicts the 0.1 entry.
	evicted := m.Admit("sess-1", entryWithImportance("e8", 0.8))
	if len(evicted) != 1 {
		t.Fatalf("evicted %d entries, want 1", len(evicted))
	}
	if evicted[0] != "e1" {
		t.Errorf("evicted %q, want e1", evicted[0])
	}

	got := m.Get("sess-1")
	if got[0].ID != "e8" {
		t.Errorf("top slot = %q, want e8", got[0].ID)
	}
	for _, e := range got {
		if e.ID == "e1" {
			t.Error("e1 still present after eviction")
		}
	}
}

func TestLowImportanceAdmitEvictsItself(t *testing.T) {
	m := NewManager()

	for i := 1; i <= 7; i++ {
		m.Admit("sess-1", entryWithImportance(fmt.Sprintf("e%d", i), 0.5))
	}

	evicted := m.Admit("sess-1", entryWithImportance("weak", 0.1))
	if len(evicted) != 1 || evicted[0] != "weak" {
		t.Errorf("evicted = %v, want [weak]", evicted)
	}
	if n := m.Len("sess-1"); n != Capacity {
		t.Errorf("slots = %d, want %d", n, Capacity)
	}
}

func TestReAdmitRefreshes(t *testing.T) {
	m := NewManager()

	m.Admit("sess-1", entryWithImportance("a", 0.3))
	updated := entryWithImportance("a", 0.9)
	evicted := m.Admit("sess-1", updated)
	if len(evicted) != 0 {
		t.Errorf("unexpected eviction: %v", evicted)
	}

	got := m.Get("sess-1")
	if len(got) != 1 {
		t.Fatalf("slots = %d, want 1", len(got))
	}
	if got[0].Importance != 0.9 {
		t.Errorf("importance = %v, want 0.9", got[0].Importance)
	}
}

func TestSessionIsolation(t *testing.T) {
	m := NewManager()

	m.Admit("sess-1", entryWithImportance("a", 0.5))
	m.Admit("sess-2", entryWithImportance("b", 0.5))

	if got := m.Get("sess-1"); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("sess-1 = %v, want [a]", got)
	}
	if got := m.Get("sess-2"); len(got) != 1 || got[0].ID != "b" {
		t.Errorf("sess-2 = %v, want [b]", got)
	}

	sessions := m.Sessions()
	if len(sessions) != 2 {
		t.Errorf("sessions = %v, want 2", sessions)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	m := NewManager()

	m.Admit("sess-1", entryWithImportance("a", 0.7))
	m.Admit("sess-1", entryWithImportance("b", 0.5))

	got := m.Get("sess-1")
	got[0] = entryWithImportance("mutated", 0.1)

	again := m.Get("sess-1")
	if again[0].ID != "a" {
		t.Errorf("internal state mutated through Get result: %v", again)
	}
}

func TestOrderedByImportance(t *testing.T) {
	m := NewManager()

	m.Admit("sess-1", entryWithImportance("low", 0.2))
	m.Admit("sess-1", entryWithImportance("high", 0.9))
	m.Admit("sess-1", entryWithImportance("mid", 0.5))

	got := m.Get("sess-1")
	want := []string{"high", "mid", "low"}
	for i, id := range want {
		if string(got[i].ID) != id {
			t.Errorf("slot %d = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestDrop(t *testing.T) {
	m := NewManager()

	m.Admit("sess-1", entryWithImportance("a", 0.5))
	m.Drop("sess-1")

	if got := m.Get("sess-1"); len(got) != 0 {
		t.Errorf("Get after Drop = %v, want empty", got)
	}
	if n := m.Len("sess-1"); n != 0 {
		t.Errorf("Len after Drop = %d, want 0", n)
	}
}
