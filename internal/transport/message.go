// Package transport implements the duplex message channel described in
// spec.md section 6.1 behind one Channel interface, with two
// implementations: an in-process ring-buffer-backed default and a
// NATS-backed one for an out-of-process agent runtime.
package transport

// RequestKind tags one inbound message's shape, mirroring spec.md section
// 6.1's request union.
type RequestKind string

const (
	KindToolCall         RequestKind = "tool_call"
	KindToolResult       RequestKind = "tool_result"
	KindReasoning        RequestKind = "reasoning"
	KindStepComplete     RequestKind = "step_complete"
	KindMemorySearch     RequestKind = "memory_search"
	KindMemoryRecord     RequestKind = "memory_record"
	KindMemoryStepInject RequestKind = "memory_step_inject"
)

// fireAndForget is the set of request kinds that never carry a request id
// and never expect a reply.
var fireAndForget = map[RequestKind]bool{
	KindToolCall:     true,
	KindToolResult:   true,
	KindReasoning:    true,
	KindStepComplete: true,
}

// IsFireAndForget reports whether kind expects no reply.
func IsFireAndForget(kind RequestKind) bool {
	return fireAndForget[kind]
}

// Envelope is one inbound message, carrying only the fields its Kind uses.
// Per spec.md section 6.1, the serialization boundary transmits only plain
// data; sets are carried as string slices rather than map keys.
type Envelope struct {
	Kind      RequestKind
	RequestID string

	ToolName string
	Args     map[string]string
	Result   string
	Text     string
	Step     int

	Filters       map[string]string
	Entry         map[string]any
	RecentContext []string
}

// ResponseKind tags a reply's shape.
type ResponseKind string

const (
	KindMemorySearchResult ResponseKind = "memory_search_result"
	KindMemoryStored       ResponseKind = "memory_stored"
	KindMemoryError        ResponseKind = "memory_error"
)

// SearchResultItem is one hit in a memory_search_result reply.
type SearchResultItem struct {
	MemoryID string
	Content  string
	Kind     string
	Score    float64
}

// Response is the reply to a memory_search/memory_record/memory_step_inject
// request; RequestID echoes the request's.
type Response struct {
	Kind      ResponseKind
	RequestID string

	Results      []SearchResultItem
	StoredID     string
	ErrorMessage string
}
