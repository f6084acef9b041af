// Package mcpserver exposes search, record, and step_inject as MCP tools
// over the official Go SDK (github.com/modelcontextprotocol/go-sdk), for an
// agent runtime that speaks MCP instead of the NATS duplex channel
// (internal/transport). Every memory this path writes carries
// models.MemorySourceMCPAuto, spec.md section 3.1; search surfaces memories
// of any source.
package mcpserver

import (
	"context"
	"database/sql"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dotcommander/memengine/internal/embedprovider"
	"github.com/dotcommander/memengine/internal/inject"
	"github.com/dotcommander/memengine/internal/models"
	"github.com/dotcommander/memengine/internal/retrieval"
	"github.com/dotcommander/memengine/internal/store"
)

// Server wraps an MCP server registered with memengine's three tools.
type Server struct {
	db        *sql.DB
	provider  embedprovider.Provider
	projectID string
	bridge    *inject.Bridge

	mcp *mcp.Server
}

// New builds a Server and registers its tools. bridge may be nil when
// memory_step_inject should always report no injection (e.g. a server
// started without an active agent session).
func New(db *sql.DB, provider embedprovider.Provider, projectID string, bridge *inject.Bridge) *Server {
	impl := &mcp.Implementation{Name: "memengine", Version: "0.1.0"}
	s := &Server{
		db:        db,
		provider:  provider,
		projectID: projectID,
		bridge:    bridge,
		mcp:       mcp.NewServer(impl, nil),
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Search the agent memory engine for memories relevant to a query and agent phase.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "record",
		Description: "Record a new memory entry discovered during this session.",
	}, s.handleRecord)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "step_inject",
		Description: "Ask the Agent Injection Bridge whether it has a proactive note for the current step.",
	}, s.handleStepInject)

	return s
}

// Serve runs the server over stdio until ctx is canceled, the conventional
// transport for an MCP tool process launched by an agent runtime.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// SearchArgs is the "search" tool's input schema.
type SearchArgs struct {
	Query string `json:"query" jsonschema:"the natural-language or identifier query to search for"`
	Phase string `json:"phase,omitempty" jsonschema:"the agent phase, one of define/implement/validate/refine/explore/reflect"`
}

// SearchResult is the "search" tool's output.
type SearchResult struct {
	Context  string   `json:"context"`
	MemoryIDs []string `json:"memory_ids"`
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, SearchResult, error) {
	result, err := retrieval.Retrieve(ctx, s.db, s.provider, args.Query, s.projectID, retrieval.Options{
		Phase: retrieval.Phase(args.Phase),
	})
	if err != nil {
		return nil, SearchResult{}, err
	}

	ids := make([]string, 0, len(result.Memories))
	for _, m := range result.Memories {
		ids = append(ids, m.ID)
	}
	out := SearchResult{Context: result.Context, MemoryIDs: ids}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: out.Context}}}, out, nil
}

// RecordArgs is the "record" tool's input schema.
type RecordArgs struct {
	Kind         string   `json:"kind" jsonschema:"one of the 16 memory kinds, e.g. gotcha, pattern, decision"`
	Content      string   `json:"content" jsonschema:"the durable memory text"`
	Confidence   float64  `json:"confidence,omitempty"`
	RelatedFiles []string `json:"related_files,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// RecordResult is the "record" tool's output.
type RecordResult struct {
	MemoryID string `json:"memory_id"`
}

func (s *Server) handleRecord(_ context.Context, _ *mcp.CallToolRequest, args RecordArgs) (*mcp.CallToolResult, RecordResult, error) {
	confidence := args.Confidence
	if confidence <= 0 {
		confidence = 0.6
	}
	m := &models.Memory{
		ProjectID:    s.projectID,
		Kind:         models.MemoryKind(args.Kind),
		Content:      args.Content,
		Confidence:   confidence,
		RelatedFiles: args.RelatedFiles,
		Tags:         args.Tags,
		Scope:        models.MemoryScopeSession,
		Source:       models.MemorySourceMCPAuto,
	}
	id, err := store.UpsertMemory(s.db, m)
	if err != nil {
		return nil, RecordResult{}, err
	}
	out := RecordResult{MemoryID: id}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: id}}}, out, nil
}

// StepInjectArgs is the "step_inject" tool's input schema.
type StepInjectArgs struct {
	Step           int      `json:"step"`
	RecentlyOpened []string `json:"recently_opened_files,omitempty"`
}

// StepInjectResult is the "step_inject" tool's output; Content is empty when
// the bridge has nothing to inject.
type StepInjectResult struct {
	Content string `json:"content"`
	Kind    string `json:"kind"`
}

func (s *Server) handleStepInject(ctx context.Context, _ *mcp.CallToolRequest, args StepInjectArgs) (*mcp.CallToolResult, StepInjectResult, error) {
	if s.bridge == nil {
		return &mcp.CallToolResult{}, StepInjectResult{}, nil
	}

	window := make([]inject.ToolCallRecord, 0, len(args.RecentlyOpened))
	for _, f := range args.RecentlyOpened {
		window = append(window, inject.ToolCallRecord{Name: "Read", Args: map[string]string{"file_path": f}, Step: args.Step})
	}

	injection, err := s.bridge.Evaluate(ctx, args.Step, window)
	if err != nil {
		return nil, StepInjectResult{}, err
	}
	if injection == nil {
		return &mcp.CallToolResult{}, StepInjectResult{}, nil
	}
	out := StepInjectResult{Content: injection.Content, Kind: injection.Kind}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: out.Content}}}, out, nil
}
