package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// ID Strategy:
// - Memories use prefixed random string ids ("mem_<unixnano>_<hex>"): content
//   is not itself an identifying key, so creation must be idempotent-safe
//   without collapsing distinct memories.
// - GraphNode/GraphEdge/ClosureEntry ids are deterministic SHA-256 digests of
//   their identifying tuple (see models.NodeID/EdgeID), so re-extraction
//   upserts instead of duplicating.
//
// This mixed strategy follows "content has no natural key" (random id) vs.
// "content has a deterministic key" (hash of the identifying tuple).

// MemoryScope represents the visibility scope of a memory entry.
type MemoryScope string

const (
	MemoryScopeGlobal   MemoryScope = "global"
	MemoryScopeModule   MemoryScope = "module"
	MemoryScopeWorkUnit MemoryScope = "work_unit"
	MemoryScopeSession  MemoryScope = "session"
)

// MemorySource records what produced a memory; it determines a trust
// multiplier during retrieval ranking.
type MemorySource string

const (
	MemorySourceAgentExplicit  MemorySource = "agent_explicit"
	MemorySourceObserverInferred MemorySource = "observer_inferred"
	MemorySourceQAAuto         MemorySource = "qa_auto"
	MemorySourceMCPAuto        MemorySource = "mcp_auto"
	MemorySourceCommitAuto     MemorySource = "commit_auto"
	MemorySourceUserTaught     MemorySource = "user_taught"
)

// SourceTrustMultiplier returns the ranking trust multiplier for a source.
// User-taught and agent-explicit memories are trusted most; inferred signals
// least, since they have not been confirmed by a human or direct agent
// action.
func SourceTrustMultiplier(s MemorySource) float64 {
	switch s {
	case MemorySourceUserTaught:
		return 1.2
	case MemorySourceAgentExplicit:
		return 1.1
	case MemorySourceCommitAuto:
		return 1.0
	case MemorySourceQAAuto:
		return 0.95
	case MemorySourceMCPAuto:
		return 0.9
	case MemorySourceObserverInferred:
		return 0.85
	default:
		return 0.8
	}
}

// ChunkKind identifies what a memory's code-derived chunk represents.
type ChunkKind string

const (
	ChunkKindFunction ChunkKind = "function"
	ChunkKindClass    ChunkKind = "class"
	ChunkKindModule   ChunkKind = "module"
	ChunkKindProse    ChunkKind = "prose"
)

// Memory is an immutable-by-convention record of one unit of learned
// knowledge. See spec.md section 3.1 for the full attribute contract and
// invariants I1-I5.
type Memory struct {
	ID             string       `json:"id"`
	ProjectID      string       `json:"project_id"`
	Kind           MemoryKind   `json:"kind"`
	Content        string       `json:"content"`
	Confidence     float64      `json:"confidence"`
	Tags           []string     `json:"tags"`
	RelatedFiles   []string     `json:"related_files,omitempty"`
	RelatedModules []string     `json:"related_modules,omitempty"`
	Scope          MemoryScope  `json:"scope"`
	Source         MemorySource `json:"source"`

	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	AccessCount    int       `json:"access_count"`

	SessionID          string   `json:"session_id,omitempty"`
	CommitHash         string   `json:"commit_hash,omitempty"`
	ReinforcedSessions []string `json:"reinforced_sessions,omitempty"`

	TargetNodeID    string   `json:"target_node_id,omitempty"`
	ImpactedNodeIDs []string `json:"impacted_node_ids,omitempty"`

	NeedsReview bool       `json:"needs_review"`
	UserVerified bool      `json:"user_verified"`
	Pinned      bool       `json:"pinned"`
	Deprecated  bool       `json:"deprecated"`
	StaleAt     *time.Time `json:"stale_at,omitempty"`
	DeprecatedAt *time.Time `json:"deprecated_at,omitempty"`

	ChunkKind       ChunkKind `json:"chunk_kind,omitempty"`
	ChunkStartLine  int       `json:"chunk_start_line,omitempty"`
	ChunkEndLine    int       `json:"chunk_end_line,omitempty"`
	ContextPrefix   string    `json:"context_prefix,omitempty"`

	Embedding        []float32 `json:"-"`
	EmbeddingModelID string    `json:"embedding_model_id,omitempty"`
	EmbeddingDims    int       `json:"embedding_dims,omitempty"`
}

// PrimaryFile returns the first related file, or "" if none.
func (m *Memory) PrimaryFile() string {
	if len(m.RelatedFiles) == 0 {
		return ""
	}
	return m.RelatedFiles[0]
}

// Visible reports whether the memory should ever be surfaced to retrieval.
// A deprecated memory is invisible to retrieval but retained for audit
// until hard-expired.
func (m *Memory) Visible() bool {
	return !m.Deprecated
}

// NodeKind identifies the kind of code entity a GraphNode represents.
type NodeKind string

const (
	NodeKindFile      NodeKind = "file"
	NodeKindFunction  NodeKind = "function"
	NodeKindClass     NodeKind = "class"
	NodeKindInterface NodeKind = "interface"
	NodeKindTypeAlias NodeKind = "type_alias"
	NodeKindVariable  NodeKind = "variable"
	NodeKindEnum      NodeKind = "enum"
	NodeKindModule    NodeKind = "module"
)

// NodeLayer is the extraction layer that produced a node: 1=structural
// (syntax), 2=semantic, 3=knowledge. Only layer 1 is populated by this
// engine; layers 2/3 are populated by out-of-scope async jobs per spec.md
// section 4.3.
type NodeLayer int

const (
	NodeLayerStructural NodeLayer = 1
	NodeLayerSemantic   NodeLayer = 2
	NodeLayerKnowledge  NodeLayer = 3
)

// NodeSource identifies what extracted a node.
type NodeSource string

const (
	NodeSourceAST   NodeSource = "ast"
	NodeSourceSCIP  NodeSource = "scip"
	NodeSourceLLM   NodeSource = "llm"
	NodeSourceAgent NodeSource = "agent"
)

// NodeConfidence is a coarse confidence band for a node's extraction.
type NodeConfidence string

const (
	NodeConfidenceConfirmed   NodeConfidence = "confirmed"
	NodeConfidenceInferred    NodeConfidence = "inferred"
	NodeConfidenceSpeculative NodeConfidence = "speculative"
)

// NodeID computes the deterministic id for a node's identifying tuple, so
// re-extracting the same entity upserts instead of duplicating.
func NodeID(projectID, filePath, label string, kind NodeKind) string {
	return hashID("node", projectID, filePath, label, string(kind))
}

// EdgeID computes the deterministic id for an edge's identifying tuple.
func EdgeID(projectID, fromID, toID string, typ EdgeType) string {
	return hashID("edge", projectID, fromID, toID, string(typ))
}

func hashID(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// GraphNode represents a code entity. Id is a deterministic hash of
// (project_id, file_path, label, kind).
type GraphNode struct {
	ID         string         `json:"id"`
	ProjectID  string         `json:"project_id"`
	Kind       NodeKind       `json:"kind"`
	Label      string         `json:"label"`
	FilePath   string         `json:"file_path,omitempty"`
	Language   string         `json:"language,omitempty"`
	LineStart  int            `json:"line_start,omitempty"`
	LineEnd    int            `json:"line_end,omitempty"`
	Layer      NodeLayer      `json:"layer"`
	Source     NodeSource     `json:"source"`
	Confidence NodeConfidence `json:"confidence"`
	StaleAt    *time.Time     `json:"stale_at,omitempty"`
}

// EdgeType identifies the relationship a GraphEdge represents.
type EdgeType string

const (
	EdgeImports       EdgeType = "imports"
	EdgeImportsSymbol EdgeType = "imports_symbol"
	EdgeCalls         EdgeType = "calls"
	EdgeExtends       EdgeType = "extends"
	EdgeImplements    EdgeType = "implements"
	EdgeExports       EdgeType = "exports"
	EdgeDefinedIn     EdgeType = "defined_in"
)

// GraphEdge represents a relationship between two GraphNodes. Id is a
// deterministic hash of (project_id, from_id, to_id, type).
type GraphEdge struct {
	ID         string     `json:"id"`
	ProjectID  string     `json:"project_id"`
	FromID     string     `json:"from_id"`
	ToID       string     `json:"to_id"`
	Type       EdgeType   `json:"type"`
	Weight     float64    `json:"weight"`
	Confidence float64    `json:"confidence"`
	StaleAt    *time.Time `json:"stale_at,omitempty"`
}

// ClosureEntry is a pre-computed transitive-closure row: one (ancestor,
// descendant) reachability fact with its shortest depth and path.
type ClosureEntry struct {
	ProjectID    string   `json:"project_id"`
	AncestorID   string   `json:"ancestor_id"`
	DescendantID string   `json:"descendant_id"`
	Depth        int      `json:"depth"`
	Path         []string `json:"path"`
	EdgeTypes    []string `json:"edge_types"`
	TotalWeight  float64  `json:"total_weight"`
}

// MaxClosureDepth is the hard bound on BFS depth during closure computation.
// The max_closure_depth setting is clamped to this value, but closure
// computation always walks to this constant; the graph_closure depth CHECK
// enforces it as the absolute ceiling.
const MaxClosureDepth = 5

// GraphIndexState tracks the last indexing run for a project.
type GraphIndexState struct {
	ProjectID     string     `json:"project_id"`
	LastIndexAt   *time.Time `json:"last_index_at,omitempty"`
	CommitHash    string     `json:"commit_hash,omitempty"`
	NodeCount     int        `json:"node_count"`
	EdgeCount     int        `json:"edge_count"`
	SchemaVersion int        `json:"schema_version"`
}
