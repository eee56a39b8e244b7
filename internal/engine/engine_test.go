package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
	"github.com/Tar-ive/brain-system-sub000/internal/relevance"
	"github.com/Tar-ive/brain-system-sub000/internal/sink"
	"github.com/Tar-ive/brain-system-sub000/internal/store"
)

func testEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	eng, err := New(db, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(eng.Close)
	return eng
}

func floatPtr(v float64) *float64 { return &v }

func TestNewValidation(t *testing.T) {
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	if _, err := New(db, Options{Threshold: 1.5}); err == nil {
		t.Error("expected error for threshold > 1")
	}
	if _, err := New(db, Options{DedupWindow: -time.Hour}); err == nil {
		t.Error("expected error for negative dedup window")
	}
	badWeights := Options{Weights: relevance.Weights{Temporal: 0.5, Project: 0.5, Connection: 0.5, Similarity: 0.5}}
	if _, err := New(db, badWeights); err == nil {
		t.Error("expected error for weights not summing to 1")
	}
}

func TestStoreAndSearchRoundTrip(t *testing.T) {
	eng := testEngine(t, DefaultOptions())

	out, err := eng.Store(StoreRequest{Content: "Reviewed the deployment pipeline configuration"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if out.Deduplicated {
		t.Fatal("first store should not dedup")
	}

	results, err := eng.Search("Reviewed the deployment pipeline configuration", SearchOpts{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("verbatim search of a fresh entry must pass the confidence gate")
	}
	if results[0].Entry.ID != out.ID {
		t.Errorf("top result = %q, want %q", results[0].Entry.ID, out.ID)
	}
	if results[0].Score < eng.Threshold() {
		t.Errorf("score %v below threshold %v", results[0].Score, eng.Threshold())
	}
}

func TestStoreDedup(t *testing.T) {
	eng := testEngine(t, DefaultOptions())

	first, err := eng.Store(StoreRequest{Content: "Pay the electricity bill on Monday"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	second, err := eng.Store(StoreRequest{Content: "Pay the electricity bill on Monday"})
	if err != nil {
		t.Fatalf("second Store: %v", err)
	}
	if !second.Deduplicated {
		t.Error("second store inside the window should dedup")
	}
	if second.ID != first.ID {
		t.Errorf("dedup ID = %q, want %q", second.ID, first.ID)
	}

	count, _ := eng.DB.CountEntries()
	if count != 1 {
		t.Errorf("entries = %d, want 1", count)
	}
}

func TestStoreValidation(t *testing.T) {
	eng := testEngine(t, DefaultOptions())

	_, err := eng.Store(StoreRequest{Content: "   "})
	if err == nil {
		t.Fatal("expected error for blank content")
	}
	if !goerr.HasTag(err, memory.TagValidation) {
		t.Errorf("error %v missing validation tag", err)
	}

	_, err = eng.Store(StoreRequest{Content: "fine", Importance: floatPtr(1.5)})
	if err == nil {
		t.Fatal("expected error for importance > 1")
	}
	if !errors.Is(err, memory.ErrImportanceRange) {
		t.Errorf("error %v, want ErrImportanceRange", err)
	}
}

func TestStoreDerivesFields(t *testing.T) {
	eng := testEngine(t, DefaultOptions())

	out, err := eng.Store(StoreRequest{
		Content: "Meeting with the client about [[project-atlas]] scope",
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	entry, err := eng.DB.GetEntry(out.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if len(entry.Dimensions) != 1 || entry.Dimensions[0] != memory.DimWork {
		t.Errorf("dimensions = %v, want [work]", entry.Dimensions)
	}
	if len(entry.Connections) != 1 || entry.Connections[0] != "project-atlas" {
		t.Errorf("connections = %v, want [project-atlas]", entry.Connections)
	}
	if entry.Importance <= 0 || entry.Importance > 1 {
		t.Errorf("derived importance = %v out of range", entry.Importance)
	}
	if entry.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", entry.Confidence)
	}
	if entry.Timestamp.IsZero() {
		t.Error("timestamp not stamped")
	}

	// Explicit fields win over derivation
	out2, err := eng.Store(StoreRequest{
		Content:    "Plain text without any markers",
		Dimensions: []string{memory.DimResearch},
		Importance: floatPtr(0.9),
	})
	if err != nil {
		t.Fatalf("Store explicit: %v", err)
	}
	entry2, _ := eng.DB.GetEntry(out2.ID)
	if len(entry2.Dimensions) != 1 || entry2.Dimensions[0] != memory.DimResearch {
		t.Errorf("dimensions = %v, want [research]", entry2.Dimensions)
	}
	if entry2.Importance != 0.9 {
		t.Errorf("importance = %v, want 0.9", entry2.Importance)
	}
}

func TestSearchQueryValidation(t *testing.T) {
	eng := testEngine(t, DefaultOptions())

	for _, q := range []string{"", "   ", "!!! ???"} {
		_, err := eng.Search(q, SearchOpts{})
		if err == nil {
			t.Errorf("Search(%q): expected error", q)
			continue
		}
		if !goerr.HasTag(err, memory.TagSearchQuery) {
			t.Errorf("Search(%q): error %v missing search-query tag", q, err)
		}
	}

	if _, err := eng.Search("fine", SearchOpts{MinImportance: 2}); err == nil {
		t.Error("expected error for min importance out of range")
	}
	if _, err := eng.Search("fine", SearchOpts{Threshold: floatPtr(1.5)}); err == nil {
		t.Error("expected error for threshold override out of range")
	}
}

func TestSearchThresholdMonotonic(t *testing.T) {
	eng := testEngine(t, DefaultOptions())

	// Strong candidate: full token overlap with the query.
	strong, err := eng.Store(StoreRequest{Content: "alpha protocol reference"})
	if err != nil {
		t.Fatalf("Store strong: %v", err)
	}
	// Weak candidate: half the query tokens.
	weak, err := eng.Store(StoreRequest{Content: "alpha review session"})
	if err != nil {
		t.Fatalf("Store weak: %v", err)
	}
	// Unrelated content never becomes a candidate.
	if _, err := eng.Store(StoreRequest{Content: "unrelated cooking recipe"}); err != nil {
		t.Fatalf("Store noise: %v", err)
	}

	search := func(threshold float64) map[memory.EntryID]bool {
		results, err := eng.Search("alpha protocol", SearchOpts{Threshold: floatPtr(threshold)})
		if err != nil {
			t.Fatalf("Search at %v: %v", threshold, err)
		}
		got := make(map[memory.EntryID]bool)
		for _, r := range results {
			got[r.Entry.ID] = true
		}
		return got
	}

	loose := search(0.55)
	standard := search(0.75)
	strict := search(0.95)

	if !loose[strong.ID] || !loose[weak.ID] {
		t.Errorf("loose gate = %v, want both candidates", loose)
	}
	if !standard[strong.ID] || standard[weak.ID] {
		t.Errorf("standard gate = %v, want only the strong candidate", standard)
	}
	if len(strict) != 0 {
		t.Errorf("strict gate = %v, want empty", strict)
	}

	// Raising the threshold can only shrink the result set.
	for id := range standard {
		if !loose[id] {
			t.Errorf("entry %s passed 0.75 but not 0.55", id)
		}
	}
	for id := range strict {
		if !standard[id] {
			t.Errorf("entry %s passed 0.95 but not 0.75", id)
		}
	}
}

func TestSearchTagAlignedQuery(t *testing.T) {
	eng := testEngine(t, DefaultOptions())

	out, err := eng.Store(StoreRequest{
		Content:        "Boss said we need to prioritize the THRC economic analysis",
		Tags:           []string{"boss-communication"},
		ProjectContext: "econ-data",
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	// A query naming a tagged role passes the default gate.
	results, err := eng.Search("boss THRC", SearchOpts{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Entry.ID != out.ID {
		t.Fatalf("Search = %d results, want the stored entry", len(results))
	}

	strict, err := eng.Search("boss THRC", SearchOpts{Threshold: floatPtr(0.95)})
	if err != nil {
		t.Fatalf("Search strict: %v", err)
	}
	if len(strict) != 0 {
		t.Fatalf("strict gate returned %d results, want 0", len(strict))
	}
}

func TestSearchFilters(t *testing.T) {
	eng := testEngine(t, DefaultOptions())

	work, err := eng.Store(StoreRequest{
		Content:        "sprint retrospective notes for the platform team",
		Dimensions:     []string{memory.DimWork},
		Tags:           []string{"retro"},
		ProjectContext: "platform",
	})
	if err != nil {
		t.Fatalf("Store work: %v", err)
	}
	personal, err := eng.Store(StoreRequest{
		Content:    "sprint retrospective notes from my running club",
		Dimensions: []string{memory.DimPersonal},
		Importance: floatPtr(0.2),
	})
	if err != nil {
		t.Fatalf("Store personal: %v", err)
	}

	results, err := eng.Search("sprint retrospective notes", SearchOpts{Dimension: memory.DimWork})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Entry.ID != work.ID {
		t.Errorf("dimension filter returned %d results", len(results))
	}

	results, _ = eng.Search("sprint retrospective notes", SearchOpts{Tag: "retro"})
	if len(results) != 1 || results[0].Entry.ID != work.ID {
		t.Errorf("tag filter returned %d results", len(results))
	}

	results, _ = eng.Search("sprint retrospective notes", SearchOpts{ProjectContext: "platform"})
	if len(results) != 1 || results[0].Entry.ID != work.ID {
		t.Errorf("project filter returned %d results", len(results))
	}

	results, _ = eng.Search("sprint retrospective notes", SearchOpts{MinImportance: 0.4})
	for _, r := range results {
		if r.Entry.ID == personal.ID {
			t.Error("min importance filter leaked a low-importance entry")
		}
	}
}

func TestSearchLimitCap(t *testing.T) {
	eng := testEngine(t, DefaultOptions())

	for i := 0; i < 25; i++ {
		_, err := eng.Store(StoreRequest{Content: fmt.Sprintf("garden notes entry %d", i)})
		if err != nil {
			t.Fatalf("Store %d: %v", i, err)
		}
	}

	results, err := eng.Search("garden notes entry", SearchOpts{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 20 {
		t.Errorf("default limit returned %d, want 20", len(results))
	}

	results, _ = eng.Search("garden notes entry", SearchOpts{Limit: 5})
	if len(results) != 5 {
		t.Errorf("limit 5 returned %d", len(results))
	}

	results, _ = eng.Search("garden notes entry", SearchOpts{Limit: 50})
	if len(results) != 20 {
		t.Errorf("limit 50 returned %d, want cap of 20", len(results))
	}
}

func TestAdmitAndWorkingMemory(t *testing.T) {
	eng := testEngine(t, DefaultOptions())

	out, err := eng.Store(StoreRequest{Content: "Remember the api token rotation"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	evicted, err := eng.Admit("sess-1", out.ID)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if len(evicted) != 0 {
		t.Errorf("unexpected eviction: %v", evicted)
	}

	wm := eng.WorkingMemory("sess-1")
	if len(wm) != 1 || wm[0].ID != out.ID {
		t.Errorf("working memory = %v", wm)
	}

	if _, err := eng.Admit("sess-1", "no-such-entry"); !errors.Is(err, memory.ErrEntryNotFound) {
		t.Errorf("Admit unknown = %v, want ErrEntryNotFound", err)
	}
	if _, err := eng.Admit("", out.ID); err == nil {
		t.Error("expected error for empty session id")
	}
}

func TestWorkingMemoryEviction(t *testing.T) {
	eng := testEngine(t, DefaultOptions())

	ids := make([]memory.EntryID, 0, 8)
	for i := 1; i <= 8; i++ {
		out, err := eng.Store(StoreRequest{
			Content:    fmt.Sprintf("working set entry number %d", i),
			Importance: floatPtr(float64(i) / 10),
		})
		if err != nil {
			t.Fatalf("Store %d: %v", i, err)
		}
		ids = append(ids, out.ID)
	}

	for i, id := range ids[:7] {
		if evicted, err := eng.Admit("sess-1", id); err != nil {
			t.Fatalf("Admit %d: %v", i, err)
		} else if len(evicted) != 0 {
			t.Fatalf("premature eviction at %d: %v", i, evicted)
		}
	}

	// The eighth admission evicts the lowest-importance entry.
	evicted, err := eng.Admit("sess-1", ids[7])
	if err != nil {
		t.Fatalf("Admit eighth: %v", err)
	}
	if len(evicted) != 1 || evicted[0] != ids[0] {
		t.Errorf("evicted = %v, want [%s]", evicted, ids[0])
	}

	wm := eng.WorkingMemory("sess-1")
	if len(wm) != 7 {
		t.Errorf("working memory size = %d, want 7", len(wm))
	}
	for _, e := range wm {
		if e.ID == ids[0] {
			t.Error("lowest-importance entry still resident")
		}
	}
}

func TestStoreWithSessionAdmits(t *testing.T) {
	eng := testEngine(t, DefaultOptions())

	out, err := eng.Store(StoreRequest{Content: "Session scoped note", SessionID: "sess-9"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	wm := eng.WorkingMemory("sess-9")
	if len(wm) != 1 || wm[0].ID != out.ID {
		t.Errorf("working memory = %v, want the stored entry", wm)
	}

	// A deduped store still admits the canonical entry.
	if _, err := eng.Store(StoreRequest{Content: "Session scoped note", SessionID: "sess-9"}); err != nil {
		t.Fatalf("dedup Store: %v", err)
	}
	if got := eng.WorkingMemory("sess-9"); len(got) != 1 {
		t.Errorf("working memory after dedup = %d entries, want 1", len(got))
	}
}

func TestReplicationDoesNotBlockStore(t *testing.T) {
	slow := &sink.MockSink{SinkName: "slow", Delay: 300 * time.Millisecond}
	opts := DefaultOptions()
	opts.Sinks = []sink.Sink{slow}
	eng := testEngine(t, opts)

	start := time.Now()
	out, err := eng.Store(StoreRequest{Content: "Note bound for a slow sink"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("Store took %v, must not wait on sink IO", elapsed)
	}

	eng.Close() // drains the replicator

	statuses, err := eng.DB.SyncStatuses(out.ID)
	if err != nil {
		t.Fatalf("SyncStatuses: %v", err)
	}
	if len(statuses) != 1 || statuses[0].Status != store.SyncCompleted {
		t.Errorf("statuses = %+v, want one completed", statuses)
	}
}

func TestSinkFailureDoesNotFailStore(t *testing.T) {
	failing := &sink.MockSink{SinkName: "broken", Err: errors.New("endpoint down")}
	opts := DefaultOptions()
	opts.Sinks = []sink.Sink{failing}
	eng := testEngine(t, opts)

	out, err := eng.Store(StoreRequest{Content: "Note that outlives its sink"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	eng.Close()

	entry, _ := eng.DB.GetEntry(out.ID)
	if entry == nil {
		t.Fatal("entry must be stored despite sink failure")
	}
	statuses, _ := eng.DB.SyncStatuses(out.ID)
	if len(statuses) != 1 || statuses[0].Status != store.SyncFailed {
		t.Errorf("statuses = %+v, want one failed", statuses)
	}
}

func TestRetrySync(t *testing.T) {
	flaky := &sink.MockSink{SinkName: "flaky", Err: errors.New("first try fails")}
	opts := DefaultOptions()
	opts.Sinks = []sink.Sink{flaky}
	eng := testEngine(t, opts)

	out, err := eng.Store(StoreRequest{Content: "Eventually replicated note"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	waitForSync(t, eng, out.ID, store.SyncFailed)

	flaky.Err = nil
	retried, err := eng.RetrySync(10)
	if err != nil {
		t.Fatalf("RetrySync: %v", err)
	}
	if retried != 1 {
		t.Errorf("retried = %d, want 1", retried)
	}
	waitForSync(t, eng, out.ID, store.SyncCompleted)

	if notes := flaky.Notes(); len(notes) != 1 {
		t.Errorf("sink received %d notes after retry, want 1", len(notes))
	}
}

func waitForSync(t *testing.T, eng *Engine, id memory.EntryID, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		statuses, err := eng.DB.SyncStatuses(id)
		if err != nil {
			t.Fatalf("SyncStatuses: %v", err)
		}
		if len(statuses) == 1 && statuses[0].Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("entry %s never reached sync status %q", id, want)
}

func TestMigrateIdempotent(t *testing.T) {
	eng := testEngine(t, DefaultOptions())

	recent := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	path := filepath.Join(t.TempDir(), "export.jsonl")
	lines := fmt.Sprintf(
		`{"content":"Imported standup summary","tags":["standup"],"created_at":%q}`+"\n"+
			`{"content":"Imported incident review","importance":0.8,"created_at":%q}`+"\n",
		recent, recent)
	if err := os.WriteFile(path, []byte(lines), 0644); err != nil {
		t.Fatalf("write jsonl: %v", err)
	}

	res, err := eng.Migrate("jsonl", path)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if res.Created != 2 || res.Skipped != 0 || len(res.Errors) != 0 {
		t.Fatalf("first run = %+v, want 2 created", res)
	}

	res, err = eng.Migrate("jsonl", path)
	if err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if res.Created != 0 {
		t.Errorf("second run created = %d, want 0", res.Created)
	}
	if res.Skipped != 2 {
		t.Errorf("second run skipped = %d, want 2", res.Skipped)
	}

	// Imported entries are searchable like native ones.
	results, err := eng.Search("imported standup summary", SearchOpts{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("search found %d results, want 1", len(results))
	}
	if results[0].Entry.SourceSystem != "jsonl" {
		t.Errorf("source system = %q, want jsonl", results[0].Entry.SourceSystem)
	}
}

func TestCleanup(t *testing.T) {
	opts := DefaultOptions()
	opts.Retention = RetentionPolicy{MaxAge: 30 * 24 * time.Hour, ImportanceFloor: 0.3}
	eng := testEngine(t, opts)

	_, err := eng.Store(StoreRequest{
		Content:    "Ancient trivial note",
		Importance: floatPtr(0.1),
		Timestamp:  time.Now().Add(-100 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Store old: %v", err)
	}
	if _, err := eng.Store(StoreRequest{Content: "Fresh note"}); err != nil {
		t.Fatalf("Store fresh: %v", err)
	}

	removed, err := eng.Cleanup()
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	count, _ := eng.DB.CountEntries()
	if count != 1 {
		t.Errorf("entries = %d, want 1", count)
	}
}

func TestCleanupDisabled(t *testing.T) {
	eng := testEngine(t, DefaultOptions())

	if _, err := eng.Store(StoreRequest{
		Content:    "Old note kept forever",
		Importance: floatPtr(0.1),
		Timestamp:  time.Now().Add(-365 * 24 * time.Hour),
	}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	removed, err := eng.Cleanup()
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d with retention disabled, want 0", removed)
	}
}

func TestStats(t *testing.T) {
	eng := testEngine(t, DefaultOptions())

	eng.Store(StoreRequest{Content: "First counted note", SessionID: "sess-1"})
	eng.Store(StoreRequest{Content: "Second counted note"})

	stats, err := eng.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 2 {
		t.Errorf("entries = %d, want 2", stats.Entries)
	}
	if stats.Terms == 0 {
		t.Error("terms = 0, want indexed terms")
	}
	if stats.Sessions != 1 {
		t.Errorf("sessions = %d, want 1", stats.Sessions)
	}
	if stats.Threshold != DefaultThreshold {
		t.Errorf("threshold = %v", stats.Threshold)
	}
	if stats.SchemaVersion != 3 {
		t.Errorf("schema version = %d, want 3", stats.SchemaVersion)
	}
}
