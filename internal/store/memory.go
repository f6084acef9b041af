package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dotcommander/memengine/internal/models"
)

// SearchHit pairs a memory id with a ranking score. For full-text results the
// score is a negative BM25 value (lower is better); for vector results it is
// a cosine distance in [0, 2] (lower is better). Both orderings are ascending.
type SearchHit struct {
	MemoryID string
	Score    float64
}

// UpsertMemory inserts a new memory, or — if a row with the same id already
// exists — replaces every column except access_count and last_accessed_at,
// which only ever move forward.
func UpsertMemory(db *sql.DB, m *models.Memory) (string, error) {
	if m.ID == "" {
		m.ID = generatePrefixedID("mem")
	}

	tags, err := json.Marshal(nonNilStrings(m.Tags))
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	relFiles, err := json.Marshal(nonNilStrings(m.RelatedFiles))
	if err != nil {
		return "", fmt.Errorf("marshal related_files: %w", err)
	}
	relModules, err := json.Marshal(nonNilStrings(m.RelatedModules))
	if err != nil {
		return "", fmt.Errorf("marshal related_modules: %w", err)
	}
	reinforced, err := json.Marshal(nonNilStrings(m.ReinforcedSessions))
	if err != nil {
		return "", fmt.Errorf("marshal reinforced_sessions: %w", err)
	}
	impacted, err := json.Marshal(nonNilStrings(m.ImpactedNodeIDs))
	if err != nil {
		return "", fmt.Errorf("marshal impacted_node_ids: %w", err)
	}

	var embedding []byte
	if len(m.Embedding) > 0 {
		embedding = encodeVector(m.Embedding)
	}

	err = RetryWithBackoff(context.Background(), func() error {
		_, execErr := db.Exec(`
			INSERT INTO memories (
				id, project_id, kind, content, confidence, tags, related_files, related_modules,
				scope, source, session_id, commit_hash, reinforced_sessions,
				target_node_id, impacted_node_ids,
				needs_review, user_verified, pinned, deprecated, stale_at, deprecated_at,
				chunk_kind, chunk_start_line, chunk_end_line, context_prefix,
				embedding, embedding_model_id, embedding_dims,
				created_at, last_accessed_at, access_count
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP), COALESCE(?, CURRENT_TIMESTAMP), ?)
			ON CONFLICT(id) DO UPDATE SET
				project_id = excluded.project_id,
				kind = excluded.kind,
				content = excluded.content,
				confidence = excluded.confidence,
				tags = excluded.tags,
				related_files = excluded.related_files,
				related_modules = excluded.related_modules,
				scope = excluded.scope,
				source = excluded.source,
				session_id = excluded.session_id,
				commit_hash = excluded.commit_hash,
				reinforced_sessions = excluded.reinforced_sessions,
				target_node_id = excluded.target_node_id,
				impacted_node_ids = excluded.impacted_node_ids,
				needs_review = excluded.needs_review,
				user_verified = excluded.user_verified,
				pinned = excluded.pinned,
				deprecated = excluded.deprecated,
				stale_at = excluded.stale_at,
				deprecated_at = excluded.deprecated_at,
				chunk_kind = excluded.chunk_kind,
				chunk_start_line = excluded.chunk_start_line,
				chunk_end_line = excluded.chunk_end_line,
				context_prefix = excluded.context_prefix,
				embedding = excluded.embedding,
				embedding_model_id = excluded.embedding_model_id,
				embedding_dims = excluded.embedding_dims,
				access_count = MAX(memories.access_count, excluded.access_count),
				last_accessed_at = MAX(memories.last_accessed_at, excluded.last_accessed_at)
		`,
			m.ID, m.ProjectID, string(m.Kind), m.Content, m.Confidence, string(tags), string(relFiles), string(relModules),
			string(m.Scope), string(m.Source), m.SessionID, m.CommitHash, string(reinforced),
			m.TargetNodeID, string(impacted),
			m.NeedsReview, m.UserVerified, m.Pinned, m.Deprecated, nullTime(m.StaleAt), nullTime(m.DeprecatedAt),
			string(m.ChunkKind), m.ChunkStartLine, m.ChunkEndLine, m.ContextPrefix,
			embedding, m.EmbeddingModelID, m.EmbeddingDims,
			nullTime(timeOrNil(m.CreatedAt)), nullTime(timeOrNil(m.LastAccessedAt)), m.AccessCount,
		)
		return execErr
	})
	if err != nil {
		return "", &models.StorageTransientError{Op: "upsert_memory", Err: err}
	}
	return m.ID, nil
}

// GetMemory loads a memory by id. Returns (nil, nil) if absent.
func GetMemory(db *sql.DB, id string) (*models.Memory, error) {
	row := db.QueryRow(memorySelectColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &models.StorageTransientError{Op: "get_memory", Err: err}
	}
	return m, nil
}

// SearchFullText runs a BM25 query against memory_fts, scoped to project_id.
// Fails soft: any FTS parse error (malformed MATCH syntax) returns an empty
// result rather than propagating, per spec.md section 4.1.
func SearchFullText(db *sql.DB, query, projectID string, limit int) ([]SearchHit, error) {
	q := sanitizeFTSQuery(query)
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT m.id, bm25(memory_fts) AS score
		FROM memory_fts
		JOIN memories m ON m.rowid = memory_fts.rowid
		WHERE memory_fts MATCH ? AND m.project_id = ? AND m.deprecated = 0
		ORDER BY score ASC
		LIMIT ?
	`, q, projectID, limit)
	if err != nil {
		// Malformed FTS5 query syntax: fail soft per spec.
		return nil, nil
	}
	defer func() { _ = rows.Close() }()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if scanErr := rows.Scan(&h.MemoryID, &h.Score); scanErr != nil {
			return nil, &models.StorageTransientError{Op: "search_full_text", Err: scanErr}
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, nil
	}
	return hits, nil
}

// SearchVector loads candidate embeddings scoped to project_id and model_id
// and ranks them by ascending cosine distance using an in-memory chromem-go
// index built fresh for this call. Model mismatch is a soft failure: an
// empty result, never an error, since a model rotation should degrade to
// full-text rather than break retrieval.
func SearchVector(db *sql.DB, queryVec []float32, projectID string, limit int, modelID string) ([]SearchHit, error) {
	if len(queryVec) == 0 || modelID == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 30
	}

	rows, err := db.Query(`
		SELECT id, embedding FROM memories
		WHERE project_id = ? AND embedding_model_id = ? AND deprecated = 0 AND embedding IS NOT NULL
	`, projectID, modelID)
	if err != nil {
		return nil, &models.StorageTransientError{Op: "search_vector", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var candidates []vectorCandidate
	for rows.Next() {
		var id string
		var blob []byte
		if scanErr := rows.Scan(&id, &blob); scanErr != nil {
			return nil, &models.StorageTransientError{Op: "search_vector", Err: scanErr}
		}
		vec := decodeVector(blob)
		if vec == nil || len(vec) != len(queryVec) {
			continue
		}
		candidates = append(candidates, vectorCandidate{id: id, vec: vec})
	}
	if err := rows.Err(); err != nil {
		return nil, &models.StorageTransientError{Op: "search_vector", Err: err}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	hits, err := rankByCosineSimilarity(context.Background(), queryVec, candidates, limit)
	if err != nil {
		return nil, &models.StorageTransientError{Op: "search_vector", Err: err}
	}
	return hits, nil
}

// SearchByRelatedFile returns memories whose related_files column names any
// of the given paths, scored with the flat 0.8 base score the Graph
// candidate path's file-scoped sub-path assigns (spec.md section 4.5.2,
// item 1). Ascending score ordering is kept so this slots into the same RRF
// input shape as SearchFullText/SearchVector, even though every hit here
// ties at 0.8 before RRF ever looks at the value.
func SearchByRelatedFile(db *sql.DB, projectID string, files []string, limit int) ([]SearchHit, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT id, related_files FROM memories
		WHERE project_id = ? AND deprecated = 0
	`, projectID)
	if err != nil {
		return nil, &models.StorageTransientError{Op: "search_by_related_file", Err: err}
	}
	defer func() { _ = rows.Close() }()

	fileSet := make(map[string]bool, len(files))
	for _, f := range files {
		fileSet[f] = true
	}

	var hits []SearchHit
	for rows.Next() {
		var id, relFiles string
		if scanErr := rows.Scan(&id, &relFiles); scanErr != nil {
			return nil, &models.StorageTransientError{Op: "search_by_related_file", Err: scanErr}
		}
		var rf []string
		_ = json.Unmarshal([]byte(relFiles), &rf)
		for _, f := range rf {
			if fileSet[f] {
				hits = append(hits, SearchHit{MemoryID: id, Score: 0.8})
				break
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &models.StorageTransientError{Op: "search_by_related_file", Err: err}
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// SearchByKindAndFiles hydrates full memories of the given kinds, scoped to
// project_id, whose related_files names any of files, with confidence at or
// above minConfidence. Used by the Agent Injection Bridge's "fresh gotcha on
// a just-read file" trigger (spec.md section 4.6), which needs the full
// record (content, confidence, tags) rather than a bare SearchHit. Ordered by
// descending confidence so the strongest warning wins when the caller caps
// to a handful of results.
func SearchByKindAndFiles(db *sql.DB, projectID string, kinds []models.MemoryKind, files []string, minConfidence float64, limit int) ([]*models.Memory, error) {
	if len(kinds) == 0 || len(files) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 4
	}

	placeholders := make([]string, len(kinds))
	args := make([]any, 0, len(kinds)+2)
	args = append(args, projectID)
	for i, k := range kinds {
		placeholders[i] = "?"
		args = append(args, string(k))
	}
	args = append(args, minConfidence)

	query := memorySelectColumns + ` FROM memories
		WHERE project_id = ? AND kind IN (` + strings.Join(placeholders, ",") + `)
		AND deprecated = 0 AND confidence >= ?
		ORDER BY confidence DESC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, &models.StorageTransientError{Op: "search_by_kind_and_files", Err: err}
	}
	defer func() { _ = rows.Close() }()

	fileSet := make(map[string]bool, len(files))
	for _, f := range files {
		fileSet[f] = true
	}

	var out []*models.Memory
	for rows.Next() {
		m, scanErr := scanMemory(rows)
		if scanErr != nil {
			return nil, &models.StorageTransientError{Op: "search_by_kind_and_files", Err: scanErr}
		}
		for _, f := range m.RelatedFiles {
			if fileSet[f] {
				out = append(out, m)
				break
			}
		}
		if len(out) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &models.StorageTransientError{Op: "search_by_kind_and_files", Err: err}
	}
	return out, nil
}

// SearchByExactTagOrContent returns the first non-deprecated memory in
// project_id whose tags contain pattern verbatim or whose content contains
// pattern as a substring. Used by the Agent Injection Bridge's "search
// short-circuit" trigger (spec.md section 4.6): when an agent is about to
// Grep/Glob for something already answered by a recorded memory, this short
// circuits the search instead of waiting for the full retrieval pipeline.
// Returns (nil, nil) if nothing matches.
func SearchByExactTagOrContent(db *sql.DB, projectID, pattern string) (*models.Memory, error) {
	if pattern == "" {
		return nil, nil
	}

	row := db.QueryRow(memorySelectColumns+`
		FROM memories
		WHERE project_id = ? AND deprecated = 0
		AND (content LIKE '%' || ? || '%' OR tags LIKE '%' || ? || '%')
		ORDER BY confidence DESC
		LIMIT 1
	`, projectID, pattern, pattern)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &models.StorageTransientError{Op: "search_by_exact_tag_or_content", Err: err}
	}
	return m, nil
}

// TouchMemory bumps access_count and last_accessed_at for a retrieved memory.
// Called by the retrieval pipeline after a memory is surfaced to an agent.
func TouchMemory(db *sql.DB, id string) error {
	err := RetryWithBackoff(context.Background(), func() error {
		_, execErr := db.Exec(`
			UPDATE memories SET access_count = access_count + 1, last_accessed_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, id)
		return execErr
	})
	if err != nil {
		return &models.StorageTransientError{Op: "touch_memory", Err: err}
	}
	return nil
}
