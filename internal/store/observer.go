package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/dotcommander/memengine/internal/models"
)

// CoAccessEdge is one row of the cross-session file co-access graph used by
// finalization to synthesize prefetch_pattern candidates (spec.md 4.4.4) and
// by retrieval to emit a file's likely neighbors.
type CoAccessEdge struct {
	FileA        string
	FileB        string
	Weight       float64
	RawCount     int
	SessionCount int
	LastObserved time.Time
}

// RecordCoAccess increments the persistent co-access weight between two
// files observed together in a session, deduplicating the pair order so
// (A, B) and (B, A) accumulate in one row.
func RecordCoAccess(db *sql.DB, projectID, fileA, fileB string, sessionID string) error {
	if fileA == fileB {
		return nil
	}
	if fileA > fileB {
		fileA, fileB = fileB, fileA
	}
	err := RetryWithBackoff(context.Background(), func() error {
		_, execErr := db.Exec(`
			INSERT INTO observer_co_access (project_id, file_a, file_b, weight, raw_count, session_count, last_observed)
			VALUES (?, ?, ?, 1.0, 1, 1, CURRENT_TIMESTAMP)
			ON CONFLICT(project_id, file_a, file_b) DO UPDATE SET
				weight = observer_co_access.weight + 1.0,
				raw_count = observer_co_access.raw_count + 1,
				last_observed = CURRENT_TIMESTAMP
		`, projectID, fileA, fileB)
		return execErr
	})
	if err != nil {
		return &models.StorageTransientError{Op: "record_co_access", Err: err}
	}
	return nil
}

// TopCoAccess returns a file's strongest co-access neighbors, used by the
// retrieval Graph candidate path's co-access sub-path (spec.md section 4.5).
func TopCoAccess(db *sql.DB, projectID, file string, limit int) ([]CoAccessEdge, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(`
		SELECT file_a, file_b, weight, raw_count, session_count, last_observed
		FROM observer_co_access
		WHERE project_id = ? AND (file_a = ? OR file_b = ?)
		ORDER BY weight DESC LIMIT ?
	`, projectID, file, file, limit)
	if err != nil {
		return nil, &models.StorageTransientError{Op: "top_co_access", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []CoAccessEdge
	for rows.Next() {
		var e CoAccessEdge
		if scanErr := rows.Scan(&e.FileA, &e.FileB, &e.Weight, &e.RawCount, &e.SessionCount, &e.LastObserved); scanErr != nil {
			return nil, &models.StorageTransientError{Op: "top_co_access", Err: scanErr}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecordErrorFingerprint increments the occurrence count for a normalized
// error fingerprint (spec.md section 4.4.2), used by the error_retry
// finalize producer.
func RecordErrorFingerprint(db *sql.DB, projectID, fingerprint, tool, sessionID string) (int, error) {
	var count int
	err := Transact(db, func(tx *sql.Tx) error {
		var existing string
		row := tx.QueryRow(`SELECT sessions FROM observer_error_patterns WHERE project_id = ? AND fingerprint = ?`, projectID, fingerprint)
		scanErr := row.Scan(&existing)
		sessions := []string{}
		if scanErr == nil {
			_ = json.Unmarshal([]byte(existing), &sessions)
		} else if scanErr != sql.ErrNoRows {
			return scanErr
		}
		if !containsStr(sessions, sessionID) {
			sessions = append(sessions, sessionID)
		}
		sessJSON, _ := json.Marshal(sessions)

		_, execErr := tx.Exec(`
			INSERT INTO observer_error_patterns (project_id, fingerprint, tool, occurrence_count, last_seen, sessions)
			VALUES (?, ?, ?, 1, CURRENT_TIMESTAMP, ?)
			ON CONFLICT(project_id, fingerprint) DO UPDATE SET
				occurrence_count = observer_error_patterns.occurrence_count + 1,
				last_seen = CURRENT_TIMESTAMP,
				tool = excluded.tool,
				sessions = excluded.sessions
		`, projectID, fingerprint, tool, string(sessJSON))
		if execErr != nil {
			return execErr
		}
		return tx.QueryRow(`SELECT occurrence_count FROM observer_error_patterns WHERE project_id = ? AND fingerprint = ?`, projectID, fingerprint).Scan(&count)
	})
	if err != nil {
		return 0, &models.StorageTransientError{Op: "record_error_fingerprint", Err: err}
	}
	return count, nil
}

// RecordSignalSession increments the distinct-session counter for a signal
// kind, feeding the frequency filter's min_sessions gate (stage 2 of the
// Promotion Pipeline, spec.md section 4.4.4).
func RecordSignalSession(db *sql.DB, projectID string, kind models.SignalKind) error {
	err := RetryWithBackoff(context.Background(), func() error {
		_, execErr := db.Exec(`
			INSERT INTO observer_signal_frequency (project_id, signal_kind, session_count)
			VALUES (?, ?, 1)
			ON CONFLICT(project_id, signal_kind) DO UPDATE SET session_count = observer_signal_frequency.session_count + 1
		`, projectID, string(kind))
		return execErr
	})
	if err != nil {
		return &models.StorageTransientError{Op: "record_signal_session", Err: err}
	}
	return nil
}

// SignalSessionCounts loads the full prior-session-count map for a project,
// used as the frequency filter's input in stage 2 of the Promotion Pipeline.
func SignalSessionCounts(db *sql.DB, projectID string) (map[models.SignalKind]int, error) {
	rows, err := db.Query(`SELECT signal_kind, session_count FROM observer_signal_frequency WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, &models.StorageTransientError{Op: "signal_session_counts", Err: err}
	}
	defer func() { _ = rows.Close() }()

	out := make(map[models.SignalKind]int)
	for rows.Next() {
		var kind string
		var count int
		if scanErr := rows.Scan(&kind, &count); scanErr != nil {
			return nil, &models.StorageTransientError{Op: "signal_session_counts", Err: scanErr}
		}
		out[models.SignalKind(kind)] = count
	}
	return out, rows.Err()
}

// SaveScratchpadCheckpoint persists a point-in-time snapshot of an in-flight
// scratchpad. Checkpointing only happens at subtask boundaries, never on the
// live ingest path.
func SaveScratchpadCheckpoint(db *sql.DB, sessionID, projectID string, step int, snapshotJSON string) error {
	err := RetryWithBackoff(context.Background(), func() error {
		_, execErr := db.Exec(`
			INSERT INTO observer_scratchpad_checkpoints (session_id, project_id, step, snapshot, checkpointed_at)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(session_id) DO UPDATE SET
				step = excluded.step, snapshot = excluded.snapshot, checkpointed_at = CURRENT_TIMESTAMP
		`, sessionID, projectID, step, snapshotJSON)
		return execErr
	})
	if err != nil {
		return &models.StorageTransientError{Op: "save_scratchpad_checkpoint", Err: err}
	}
	return nil
}

// LoadScratchpadCheckpoint returns the most recent snapshot for a session,
// or ("", false, nil) if none exists.
func LoadScratchpadCheckpoint(db *sql.DB, sessionID string) (string, bool, error) {
	var snapshot string
	err := db.QueryRow(`SELECT snapshot FROM observer_scratchpad_checkpoints WHERE session_id = ?`, sessionID).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, &models.StorageTransientError{Op: "load_scratchpad_checkpoint", Err: err}
	}
	return snapshot, true, nil
}

// EmbeddingCacheGet returns a cached embedding for cacheKey if present and
// fresher than ttlDays.
func EmbeddingCacheGet(db *sql.DB, cacheKey string, ttlDays int) ([]float32, string, bool, error) {
	var blob []byte
	var modelID string
	var createdAt time.Time
	err := db.QueryRow(`SELECT vector, model_id, created_at FROM embedding_cache WHERE cache_key = ?`, cacheKey).Scan(&blob, &modelID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, &models.StorageTransientError{Op: "embedding_cache_get", Err: err}
	}
	if ttlDays > 0 && time.Since(createdAt) > time.Duration(ttlDays)*24*time.Hour {
		return nil, "", false, nil
	}
	return decodeVector(blob), modelID, true, nil
}

// EmbeddingCachePut writes a write-through cache entry keyed by
// sha256(text ∥ model_id ∥ dims), per spec.md section 4.2.
func EmbeddingCachePut(db *sql.DB, cacheKey, modelID string, dims int, vec []float32) error {
	err := RetryWithBackoff(context.Background(), func() error {
		_, execErr := db.Exec(`
			INSERT INTO embedding_cache (cache_key, model_id, dims, vector, created_at)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(cache_key) DO UPDATE SET
				model_id = excluded.model_id, dims = excluded.dims, vector = excluded.vector, created_at = CURRENT_TIMESTAMP
		`, cacheKey, modelID, dims, encodeVector(vec))
		return execErr
	})
	if err != nil {
		return &models.StorageTransientError{Op: "embedding_cache_put", Err: err}
	}
	return nil
}

// PruneEmbeddingCache deletes entries older than ttlDays, called
// periodically by the embedding provider's cache maintenance.
func PruneEmbeddingCache(db *sql.DB, ttlDays int) (int64, error) {
	var result sql.Result
	err := RetryWithBackoff(context.Background(), func() error {
		var execErr error
		result, execErr = db.Exec(`DELETE FROM embedding_cache WHERE created_at < datetime('now', printf('-%d days', ?))`, ttlDays)
		return execErr
	})
	if err != nil {
		return 0, &models.StorageTransientError{Op: "prune_embedding_cache", Err: err}
	}
	n, _ := result.RowsAffected()
	return n, nil
}
