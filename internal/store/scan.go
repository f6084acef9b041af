package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/dotcommander/memengine/internal/models"
)

// memorySelectColumns is shared by every query that scans a full memories
// row into a models.Memory, so the column list and scanMemory stay in lock
// step.
const memorySelectColumns = `
	SELECT id, project_id, kind, content, confidence, tags, related_files, related_modules,
		scope, source, session_id, commit_hash, reinforced_sessions,
		target_node_id, impacted_node_ids,
		needs_review, user_verified, pinned, deprecated, stale_at, deprecated_at,
		chunk_kind, chunk_start_line, chunk_end_line, context_prefix,
		embedding, embedding_model_id, embedding_dims,
		created_at, last_accessed_at, access_count`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (*models.Memory, error) {
	var m models.Memory
	var tags, relFiles, relModules, reinforced, impacted string
	var staleAt, deprecatedAt sql.NullTime
	var embedding []byte

	err := row.Scan(
		&m.ID, &m.ProjectID, &m.Kind, &m.Content, &m.Confidence, &tags, &relFiles, &relModules,
		&m.Scope, &m.Source, &m.SessionID, &m.CommitHash, &reinforced,
		&m.TargetNodeID, &impacted,
		&m.NeedsReview, &m.UserVerified, &m.Pinned, &m.Deprecated, &staleAt, &deprecatedAt,
		&m.ChunkKind, &m.ChunkStartLine, &m.ChunkEndLine, &m.ContextPrefix,
		&embedding, &m.EmbeddingModelID, &m.EmbeddingDims,
		&m.CreatedAt, &m.LastAccessedAt, &m.AccessCount,
	)
	if err != nil {
		return nil, err
	}

	_ = json.Unmarshal([]byte(tags), &m.Tags)
	_ = json.Unmarshal([]byte(relFiles), &m.RelatedFiles)
	_ = json.Unmarshal([]byte(relModules), &m.RelatedModules)
	_ = json.Unmarshal([]byte(reinforced), &m.ReinforcedSessions)
	_ = json.Unmarshal([]byte(impacted), &m.ImpactedNodeIDs)
	if staleAt.Valid {
		t := staleAt.Time
		m.StaleAt = &t
	}
	if deprecatedAt.Valid {
		t := deprecatedAt.Time
		m.DeprecatedAt = &t
	}
	if len(embedding) > 0 {
		m.Embedding = decodeVector(embedding)
	}

	return &m, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
