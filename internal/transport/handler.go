package transport

import (
	"context"
	"database/sql"

	"github.com/dotcommander/memengine/internal/embedprovider"
	"github.com/dotcommander/memengine/internal/inject"
	"github.com/dotcommander/memengine/internal/models"
	"github.com/dotcommander/memengine/internal/observer"
	"github.com/dotcommander/memengine/internal/retrieval"
	"github.com/dotcommander/memengine/internal/store"
)

// EngineHandler is the memengine-side Handler: fire-and-forget envelopes
// feed the session's Scratchpad, and request envelopes are answered by the
// Retrieval Pipeline, the Store, and the Injection Bridge — the three
// consumers spec.md section 6.1 names for memory_search, memory_record, and
// memory_step_inject respectively.
type EngineHandler struct {
	DB        *sql.DB
	Provider  embedprovider.Provider
	ProjectID string

	Scratchpad *observer.Scratchpad
	Bridge     *inject.Bridge
}

// NewEngineHandler wires one session's handler. The caller owns the
// Scratchpad and Bridge lifetimes (created per session, finalized at
// session end via Scratchpad.Finalize / Scratchpad.PersistSessionSignals).
func NewEngineHandler(db *sql.DB, provider embedprovider.Provider, projectID string, sp *observer.Scratchpad, bridge *inject.Bridge) *EngineHandler {
	return &EngineHandler{DB: db, Provider: provider, ProjectID: projectID, Scratchpad: sp, Bridge: bridge}
}

func (h *EngineHandler) HandleFireAndForget(_ context.Context, env Envelope) {
	if h.Scratchpad == nil {
		return
	}
	switch env.Kind {
	case KindToolCall:
		h.Scratchpad.Observe(observer.ToolCall{Name: env.ToolName, Args: env.Args, Step: env.Step})
	case KindToolResult:
		h.Scratchpad.Observe(observer.ToolResult{Name: env.ToolName, Result: env.Result, Step: env.Step})
	case KindReasoning:
		h.Scratchpad.Observe(observer.Reasoning{Text: env.Text, Step: env.Step})
	case KindStepComplete:
		h.Scratchpad.Observe(observer.StepComplete{Step: env.Step})
	}
}

func (h *EngineHandler) HandleRequest(ctx context.Context, env Envelope) Response {
	switch env.Kind {
	case KindMemorySearch:
		return h.handleMemorySearch(ctx, env)
	case KindMemoryRecord:
		return h.handleMemoryRecord(env)
	case KindMemoryStepInject:
		return h.handleMemoryStepInject(ctx, env)
	default:
		return Response{Kind: KindMemoryError, RequestID: env.RequestID, ErrorMessage: "unrecognized request kind"}
	}
}

func (h *EngineHandler) handleMemorySearch(ctx context.Context, env Envelope) Response {
	query := env.Filters["query"]
	phase := retrieval.Phase(env.Filters["phase"])

	result, err := retrieval.Retrieve(ctx, h.DB, h.Provider, query, h.ProjectID, retrieval.Options{
		Phase:           phase,
		RecentFiles:     env.RecentContext,
		RecentToolCalls: nil,
	})
	if err != nil {
		return Response{Kind: KindMemoryError, RequestID: env.RequestID, ErrorMessage: err.Error()}
	}

	items := make([]SearchResultItem, 0, len(result.Memories))
	for _, m := range result.Memories {
		items = append(items, SearchResultItem{MemoryID: m.ID, Content: m.Content, Kind: string(m.Kind), Score: m.Confidence})
	}
	return Response{Kind: KindMemorySearchResult, RequestID: env.RequestID, Results: items}
}

func (h *EngineHandler) handleMemoryRecord(env Envelope) Response {
	m := entryToMemory(env.Entry, h.ProjectID)
	id, err := store.UpsertMemory(h.DB, m)
	if err != nil {
		return Response{Kind: KindMemoryError, RequestID: env.RequestID, ErrorMessage: err.Error()}
	}
	return Response{Kind: KindMemoryStored, RequestID: env.RequestID, StoredID: id}
}

func (h *EngineHandler) handleMemoryStepInject(ctx context.Context, env Envelope) Response {
	if h.Bridge == nil {
		return Response{Kind: KindMemorySearchResult, RequestID: env.RequestID}
	}
	window := make([]inject.ToolCallRecord, 0, len(env.RecentContext))
	for _, f := range env.RecentContext {
		window = append(window, inject.ToolCallRecord{Name: "Read", Args: map[string]string{"file_path": f}, Step: env.Step})
	}

	injection, err := h.Bridge.Evaluate(ctx, env.Step, window)
	if err != nil {
		return Response{Kind: KindMemoryError, RequestID: env.RequestID, ErrorMessage: err.Error()}
	}
	if injection == nil {
		return Response{Kind: KindMemorySearchResult, RequestID: env.RequestID}
	}
	return Response{
		Kind:      KindMemorySearchResult,
		RequestID: env.RequestID,
		Results:   []SearchResultItem{{Content: injection.Content, Kind: injection.Kind}},
	}
}

func entryToMemory(entry map[string]any, projectID string) *models.Memory {
	m := &models.Memory{ProjectID: projectID}
	if v, ok := entry["content"].(string); ok {
		m.Content = v
	}
	if v, ok := entry["kind"].(string); ok {
		m.Kind = models.MemoryKind(v)
	}
	if v, ok := entry["confidence"].(float64); ok {
		m.Confidence = v
	}
	if v, ok := entry["scope"].(string); ok {
		m.Scope = models.MemoryScope(v)
	} else {
		m.Scope = models.MemoryScopeSession
	}
	m.Source = models.MemorySourceAgentExplicit
	if tags, ok := entry["tags"].([]any); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				m.Tags = append(m.Tags, s)
			}
		}
	}
	if files, ok := entry["related_files"].([]any); ok {
		for _, f := range files {
			if s, ok := f.(string); ok {
				m.RelatedFiles = append(m.RelatedFiles, s)
			}
		}
	}
	return m
}
