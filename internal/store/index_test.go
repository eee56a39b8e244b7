package store

import (
	"testing"
	"time"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

func TestCandidatesByTerms(t *testing.T) {
	db := testDB(t)

	base := time.Now().UTC()
	alpha := sampleEntry("alpha synchronization protocol", base)
	beta := sampleEntry("beta protocol design", base)
	db.PutEntry(alpha, time.Hour)
	db.PutEntry(beta, time.Hour)

	ids, err := db.CandidatesByTerms([]string{"protocol"})
	if err != nil {
		t.Fatalf("CandidatesByTerms: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("protocol matched %d entries, want 2", len(ids))
	}

	ids, _ = db.CandidatesByTerms([]string{"alpha"})
	if len(ids) != 1 || ids[0] != alpha.ID {
		t.Errorf("alpha matched %v, want [%s]", ids, alpha.ID)
	}

	ids, _ = db.CandidatesByTerms([]string{"nonexistent"})
	if len(ids) != 0 {
		t.Errorf("expected no matches, got %v", ids)
	}

	ids, err = db.CandidatesByTerms(nil)
	if err != nil {
		t.Fatalf("CandidatesByTerms(nil): %v", err)
	}
	if ids != nil {
		t.Errorf("expected nil for empty terms, got %v", ids)
	}
}

func TestTagsAreIndexed(t *testing.T) {
	db := testDB(t)

	e := sampleEntry("remember to check the logs", time.Now().UTC())
	e.Tags = []string{"oncall"}
	db.PutEntry(e, time.Hour)

	ids, err := db.CandidatesByTerms([]string{"oncall"})
	if err != nil {
		t.Fatalf("CandidatesByTerms: %v", err)
	}
	if len(ids) != 1 || ids[0] != e.ID {
		t.Errorf("tag term matched %v, want [%s]", ids, e.ID)
	}
}

func TestTermCount(t *testing.T) {
	db := testDB(t)

	n, err := db.TermCount()
	if err != nil {
		t.Fatalf("TermCount: %v", err)
	}
	if n != 0 {
		t.Errorf("empty store term count = %d, want 0", n)
	}

	db.PutEntry(sampleEntry("kernel scheduler latency", time.Now().UTC()), time.Hour)
	n, _ = db.TermCount()
	if n == 0 {
		t.Error("expected terms after insert")
	}
}
