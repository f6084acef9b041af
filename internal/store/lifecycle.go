package store

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/dotcommander/memengine/internal/models"
)

// HardExpiryGraceDays is the grace period a deprecated, non-user_verified
// memory is retained for audit before it is hard-deleted, spec.md section
// 3.1's lifecycle clause.
const HardExpiryGraceDays = 30

// ApplyDecay walks every non-pinned, non-deprecated memory in projectID and
// flips deprecated=true on any whose confidence has decayed below
// threshold, using each memory's kind-specific half-life
// (models.DecayHalfLifeDays). A kind with HalfLifeInfinite never decays by
// age. Returns the number of memories newly deprecated by this pass.
func ApplyDecay(db *sql.DB, projectID string, threshold float64, now time.Time) (int, error) {
	rows, err := db.Query(`
		SELECT id, kind, confidence, created_at FROM memories
		WHERE project_id = ? AND deprecated = 0 AND pinned = 0
	`, projectID)
	if err != nil {
		return 0, &models.StorageTransientError{Op: "apply_decay_scan", Err: err}
	}

	type row struct {
		id         string
		kind       models.MemoryKind
		confidence float64
		createdAt  time.Time
	}
	var candidates []row
	for rows.Next() {
		var r row
		if scanErr := rows.Scan(&r.id, &r.kind, &r.confidence, &r.createdAt); scanErr != nil {
			_ = rows.Close()
			return 0, &models.StorageTransientError{Op: "apply_decay_scan", Err: scanErr}
		}
		candidates = append(candidates, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, &models.StorageTransientError{Op: "apply_decay_scan", Err: err}
	}
	_ = rows.Close()

	var deprecatedCount int
	for _, c := range candidates {
		halfLife := models.DecayHalfLifeDays(c.kind)
		if halfLife == models.HalfLifeInfinite {
			continue
		}
		ageDays := now.Sub(c.createdAt).Hours() / 24
		decayed := c.confidence * math.Pow(0.5, ageDays/float64(halfLife))
		if decayed >= threshold {
			continue
		}
		err := RetryWithBackoff(context.Background(), func() error {
			_, execErr := db.Exec(`
				UPDATE memories SET deprecated = 1, deprecated_at = ?
				WHERE id = ? AND deprecated = 0
			`, now, c.id)
			return execErr
		})
		if err != nil {
			return deprecatedCount, &models.StorageTransientError{Op: "apply_decay_update", Err: err}
		}
		deprecatedCount++
	}
	return deprecatedCount, nil
}

// HardDeleteExpiredMemories permanently removes memories that have been
// deprecated for longer than HardExpiryGraceDays and are not user_verified,
// per spec.md section 3.1: "Hard-deleted only after a 30-day grace past
// deprecation, unless user_verified." Returns the number of rows removed.
func HardDeleteExpiredMemories(db *sql.DB, projectID string, now time.Time) (int, error) {
	cutoff := now.AddDate(0, 0, -HardExpiryGraceDays)
	var affected int64
	err := RetryWithBackoff(context.Background(), func() error {
		res, execErr := db.Exec(`
			DELETE FROM memories
			WHERE project_id = ? AND deprecated = 1 AND user_verified = 0
			AND deprecated_at IS NOT NULL AND deprecated_at <= ?
		`, projectID, cutoff)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, &models.StorageTransientError{Op: "hard_delete_expired_memories", Err: err}
	}
	return int(affected), nil
}

// ReembedCandidate is one memory needing its embedding regenerated under a
// new model id.
type ReembedCandidate struct {
	ID            string
	Content       string
	ContextPrefix string
	ChunkKind     models.ChunkKind
}

// ListMemoriesNeedingReembed returns up to limit non-deprecated memories in
// projectID whose embedding_model_id differs from currentModelID (including
// memories with no embedding at all), ordered by last_accessed_at ascending
// so the coldest memories are re-embedded first — spec.md section 9's third
// Open Question: "a re-embed job that processes memories in batches,
// updating embedding_model_id."
func ListMemoriesNeedingReembed(db *sql.DB, projectID, currentModelID string, limit int) ([]ReembedCandidate, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := db.Query(`
		SELECT id, content, context_prefix, chunk_kind FROM memories
		WHERE project_id = ? AND deprecated = 0
		AND (embedding_model_id IS NULL OR embedding_model_id != ? OR embedding_model_id = '')
		ORDER BY last_accessed_at ASC
		LIMIT ?
	`, projectID, currentModelID, limit)
	if err != nil {
		return nil, &models.StorageTransientError{Op: "list_memories_needing_reembed", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []ReembedCandidate
	for rows.Next() {
		var c ReembedCandidate
		if scanErr := rows.Scan(&c.ID, &c.Content, &c.ContextPrefix, &c.ChunkKind); scanErr != nil {
			return nil, &models.StorageTransientError{Op: "list_memories_needing_reembed", Err: scanErr}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.StorageTransientError{Op: "list_memories_needing_reembed", Err: err}
	}
	return out, nil
}

// UpdateMemoryEmbedding overwrites just the embedding/model/dims columns of
// an existing memory row, leaving access_count/last_accessed_at untouched —
// re-embedding is a background maintenance write, not a retrieval hit.
func UpdateMemoryEmbedding(db *sql.DB, id string, vec []float32, modelID string, dims int) error {
	err := RetryWithBackoff(context.Background(), func() error {
		_, execErr := db.Exec(`
			UPDATE memories SET embedding = ?, embedding_model_id = ?, embedding_dims = ?
			WHERE id = ?
		`, encodeVector(vec), modelID, dims, id)
		return execErr
	})
	if err != nil {
		return &models.StorageTransientError{Op: "update_memory_embedding", Err: err}
	}
	return nil
}
