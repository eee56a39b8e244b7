// Package mcpserver exposes the memory engine to MCP clients over
// stdio, so coding agents can store and recall memories as tools.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Tar-ive/brain-system-sub000/internal/engine"
	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

// Server bridges MCP tool calls onto the engine.
type Server struct {
	engine *engine.Engine
	impl   *mcp.Server
}

// New registers the brain tools on a fresh MCP server.
func New(eng *engine.Engine, version string) *Server {
	s := &Server{engine: eng}

	impl := mcp.NewServer(&mcp.Implementation{
		Name:    "brain",
		Version: version,
	}, nil)

	mcp.AddTool(impl, &mcp.Tool{
		Name:        "store_memory",
		Description: "Store one memory entry. Identical content stored again within the dedup window returns the existing entry instead of creating a new one.",
	}, s.storeMemory)

	mcp.AddTool(impl, &mcp.Tool{
		Name:        "search_memory",
		Description: "Search stored memories. Only results scoring above the confidence threshold are returned; an empty result means nothing was relevant enough.",
	}, s.searchMemory)

	mcp.AddTool(impl, &mcp.Tool{
		Name:        "admit_to_session",
		Description: "Admit a stored entry into a session's working memory. Working memory holds at most 7 entries; the least important one is evicted when full.",
	}, s.admitToSession)

	mcp.AddTool(impl, &mcp.Tool{
		Name:        "get_working_memory",
		Description: "List a session's current working memory, highest importance first.",
	}, s.getWorkingMemory)

	mcp.AddTool(impl, &mcp.Tool{
		Name:        "memory_stats",
		Description: "Report entry, index term, session, and sink replication counts.",
	}, s.memoryStats)

	s.impl = impl
	return s
}

// Run serves MCP over stdio until the context ends.
func (s *Server) Run(ctx context.Context) error {
	return s.impl.Run(ctx, &mcp.StdioTransport{})
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func firstLine(content string) string {
	line := content
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if len(line) > 100 {
		line = line[:97] + "..."
	}
	return line
}

type storeMemoryParams struct {
	Content        string   `json:"content" jsonschema:"The memory content to store"`
	Tags           []string `json:"tags,omitempty" jsonschema:"Optional tags"`
	Dimensions     []string `json:"dimensions,omitempty" jsonschema:"Dimensions such as work or personal; inferred from content when omitted"`
	Importance     *float64 `json:"importance,omitempty" jsonschema:"Importance in [0,1]; derived from content when omitted"`
	ProjectContext string   `json:"project_context,omitempty" jsonschema:"Project this memory belongs to"`
	SessionID      string   `json:"session_id,omitempty" jsonschema:"Session whose working memory should receive the entry"`
}

func (s *Server) storeMemory(ctx context.Context, req *mcp.CallToolRequest, params *storeMemoryParams) (*mcp.CallToolResult, any, error) {
	out, err := s.engine.Store(engine.StoreRequest{
		Content:        params.Content,
		Tags:           params.Tags,
		Dimensions:     params.Dimensions,
		Importance:     params.Importance,
		ProjectContext: params.ProjectContext,
		SourceSystem:   "mcp",
		SessionID:      params.SessionID,
	})
	if err != nil {
		return nil, nil, err
	}

	text := fmt.Sprintf("Stored entry %s", out.ID)
	if out.Deduplicated {
		text = fmt.Sprintf("Duplicate content; kept existing entry %s", out.ID)
	}
	if len(out.Evicted) > 0 {
		text += fmt.Sprintf(" (%d evicted from working memory)", len(out.Evicted))
	}
	return textResult(text), nil, nil
}

type searchMemoryParams struct {
	Query          string   `json:"query" jsonschema:"Search query"`
	Limit          int      `json:"limit,omitempty" jsonschema:"Maximum results; default and cap are 20"`
	Dimension      string   `json:"dimension,omitempty" jsonschema:"Filter by dimension"`
	Tag            string   `json:"tag,omitempty" jsonschema:"Filter by tag"`
	ProjectContext string   `json:"project_context,omitempty" jsonschema:"Project context used for filtering and scoring"`
	Threshold      *float64 `json:"threshold,omitempty" jsonschema:"Confidence gate override in (0,1]"`
}

func (s *Server) searchMemory(ctx context.Context, req *mcp.CallToolRequest, params *searchMemoryParams) (*mcp.CallToolResult, any, error) {
	results, err := s.engine.Search(params.Query, engine.SearchOpts{
		Limit:          params.Limit,
		Dimension:      params.Dimension,
		Tag:            params.Tag,
		ProjectContext: params.ProjectContext,
		Threshold:      params.Threshold,
	})
	if err != nil {
		return nil, nil, err
	}

	if len(results) == 0 {
		return textResult("No memories scored above the confidence threshold."), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d memories:\n", len(results))
	for _, r := range results {
		fmt.Fprintf(&b, "- [%.2f] %s (%s)\n", r.Score, firstLine(r.Entry.Content), r.Entry.ID)
	}
	return textResult(b.String()), nil, nil
}

type admitParams struct {
	SessionID string `json:"session_id" jsonschema:"Session identifier"`
	EntryID   string `json:"entry_id" jsonschema:"ID of the stored entry to admit"`
}

func (s *Server) admitToSession(ctx context.Context, req *mcp.CallToolRequest, params *admitParams) (*mcp.CallToolResult, any, error) {
	evicted, err := s.engine.Admit(params.SessionID, memory.EntryID(params.EntryID))
	if err != nil {
		return nil, nil, err
	}

	text := fmt.Sprintf("Admitted %s into session %s", params.EntryID, params.SessionID)
	if len(evicted) > 0 {
		ids := make([]string, len(evicted))
		for i, id := range evicted {
			ids[i] = string(id)
		}
		text += fmt.Sprintf("; evicted %s", strings.Join(ids, ", "))
	}
	return textResult(text), nil, nil
}

type workingMemoryParams struct {
	SessionID string `json:"session_id" jsonschema:"Session identifier"`
}

func (s *Server) getWorkingMemory(ctx context.Context, req *mcp.CallToolRequest, params *workingMemoryParams) (*mcp.CallToolResult, any, error) {
	entries := s.engine.WorkingMemory(params.SessionID)
	if len(entries) == 0 {
		return textResult(fmt.Sprintf("Working memory for session %s is empty.", params.SessionID)), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Working memory for session %s (%d of 7):\n", params.SessionID, len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "- [%.2f] %s (%s)\n", e.Importance, firstLine(e.Content), e.ID)
	}
	return textResult(b.String()), nil, nil
}

type statsParams struct{}

func (s *Server) memoryStats(ctx context.Context, req *mcp.CallToolRequest, params *statsParams) (*mcp.CallToolResult, any, error) {
	stats, err := s.engine.Stats()
	if err != nil {
		return nil, nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Entries: %d\nIndexed terms: %d\nActive sessions: %d\nConfidence threshold: %.2f\n",
		stats.Entries, stats.Terms, stats.Sessions, stats.Threshold)
	if len(stats.Sinks) > 0 {
		fmt.Fprintf(&b, "Sinks: %s\n", strings.Join(stats.Sinks, ", "))
	}
	for _, status := range []string{"pending", "completed", "failed"} {
		if n := stats.Sync[status]; n > 0 {
			fmt.Fprintf(&b, "Sync %s: %d\n", status, n)
		}
	}
	return textResult(b.String()), nil, nil
}
