package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Tar-ive/brain-system-sub000/internal/engine"
	"github.com/Tar-ive/brain-system-sub000/internal/store"
)

func testTools(t *testing.T) *Server {
	t.Helper()

	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	opts := engine.DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	eng, err := engine.New(db, opts)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(func() { eng.Close() })

	return New(eng, "test")
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("tool returned no content")
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func TestStoreAndSearchTools(t *testing.T) {
	s := testTools(t)
	ctx := context.Background()

	res, _, err := s.storeMemory(ctx, nil, &storeMemoryParams{
		Content: "Sketched the replication retry strategy",
		Tags:    []string{"replication"},
	})
	if err != nil {
		t.Fatalf("store_memory: %v", err)
	}
	text := resultText(t, res)
	if !strings.HasPrefix(text, "Stored entry ") {
		t.Fatalf("store text = %q, want stored confirmation", text)
	}
	id := strings.TrimPrefix(text, "Stored entry ")

	res, _, err = s.storeMemory(ctx, nil, &storeMemoryParams{
		Content: "Sketched the replication retry strategy",
	})
	if err != nil {
		t.Fatalf("store_memory duplicate: %v", err)
	}
	dupText := resultText(t, res)
	if !strings.Contains(dupText, "Duplicate content") || !strings.Contains(dupText, id) {
		t.Fatalf("duplicate text = %q, want duplicate notice for %s", dupText, id)
	}

	res, _, err = s.searchMemory(ctx, nil, &searchMemoryParams{
		Query: "replication retry strategy",
	})
	if err != nil {
		t.Fatalf("search_memory: %v", err)
	}
	searchText := resultText(t, res)
	if !strings.Contains(searchText, "Found 1 memories") {
		t.Fatalf("search text = %q, want one result", searchText)
	}
	if !strings.Contains(searchText, id) {
		t.Fatalf("search text = %q, want entry %s listed", searchText, id)
	}
}

func TestStoreToolRejectsBlank(t *testing.T) {
	s := testTools(t)

	if _, _, err := s.storeMemory(context.Background(), nil, &storeMemoryParams{Content: "   "}); err == nil {
		t.Fatal("store_memory accepted blank content")
	}
}

func TestSearchToolNoMatches(t *testing.T) {
	s := testTools(t)
	ctx := context.Background()

	if _, _, err := s.storeMemory(ctx, nil, &storeMemoryParams{Content: "Alpha milestone notes"}); err != nil {
		t.Fatalf("store_memory: %v", err)
	}

	res, _, err := s.searchMemory(ctx, nil, &searchMemoryParams{Query: "unrelated cooking recipe"})
	if err != nil {
		t.Fatalf("search_memory: %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, "No memories") {
		t.Fatalf("search text = %q, want empty-result notice", text)
	}
}

func TestSearchToolRejectsEmptyQuery(t *testing.T) {
	s := testTools(t)

	if _, _, err := s.searchMemory(context.Background(), nil, &searchMemoryParams{Query: "  "}); err == nil {
		t.Fatal("search_memory accepted empty query")
	}
}

func TestAdmitAndWorkingMemoryTools(t *testing.T) {
	s := testTools(t)
	ctx := context.Background()

	res, _, err := s.storeMemory(ctx, nil, &storeMemoryParams{Content: "Decision record for the cache rollout"})
	if err != nil {
		t.Fatalf("store_memory: %v", err)
	}
	id := strings.TrimPrefix(resultText(t, res), "Stored entry ")

	res, _, err = s.admitToSession(ctx, nil, &admitParams{SessionID: "sess-1", EntryID: id})
	if err != nil {
		t.Fatalf("admit_to_session: %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, "Admitted "+id) {
		t.Fatalf("admit text = %q, want admission of %s", text, id)
	}

	res, _, err = s.getWorkingMemory(ctx, nil, &workingMemoryParams{SessionID: "sess-1"})
	if err != nil {
		t.Fatalf("get_working_memory: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "(1 of 7)") {
		t.Fatalf("working memory text = %q, want one entry of seven", text)
	}
	if !strings.Contains(text, "cache rollout") {
		t.Fatalf("working memory text = %q, want entry content", text)
	}

	if _, _, err := s.admitToSession(ctx, nil, &admitParams{SessionID: "sess-1", EntryID: "ghost"}); err == nil {
		t.Fatal("admit_to_session accepted unknown entry")
	}
}

func TestWorkingMemoryToolEmptySession(t *testing.T) {
	s := testTools(t)

	res, _, err := s.getWorkingMemory(context.Background(), nil, &workingMemoryParams{SessionID: "sess-empty"})
	if err != nil {
		t.Fatalf("get_working_memory: %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, "is empty") {
		t.Fatalf("working memory text = %q, want empty notice", text)
	}
}

func TestStatsTool(t *testing.T) {
	s := testTools(t)
	ctx := context.Background()

	if _, _, err := s.storeMemory(ctx, nil, &storeMemoryParams{Content: "Stats probe entry"}); err != nil {
		t.Fatalf("store_memory: %v", err)
	}

	res, _, err := s.memoryStats(ctx, nil, &statsParams{})
	if err != nil {
		t.Fatalf("memory_stats: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Entries: 1") {
		t.Fatalf("stats text = %q, want entry count", text)
	}
	if !strings.Contains(text, "Confidence threshold: 0.75") {
		t.Fatalf("stats text = %q, want threshold", text)
	}
}
