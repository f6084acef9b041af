package store

import (
	"context"
	"database/sql"

	"github.com/dotcommander/memengine/internal/models"
)

// SaveIndexState records the outcome of an indexing run, read back by the
// `status` command and by the indexer to decide whether a full vs.
// incremental pass is warranted.
func SaveIndexState(db *sql.DB, s *models.GraphIndexState) error {
	err := RetryWithBackoff(context.Background(), func() error {
		_, execErr := db.Exec(`
			INSERT INTO graph_index_state (project_id, last_index_at, commit_hash, node_count, edge_count, schema_version)
			VALUES (?, CURRENT_TIMESTAMP, ?, ?, ?, ?)
			ON CONFLICT(project_id) DO UPDATE SET
				last_index_at = CURRENT_TIMESTAMP,
				commit_hash = excluded.commit_hash,
				node_count = excluded.node_count,
				edge_count = excluded.edge_count,
				schema_version = excluded.schema_version
		`, s.ProjectID, s.CommitHash, s.NodeCount, s.EdgeCount, s.SchemaVersion)
		return execErr
	})
	if err != nil {
		return &models.StorageTransientError{Op: "save_index_state", Err: err}
	}
	return nil
}

// GetIndexState loads the last recorded indexing outcome for a project, or
// nil if the project has never been indexed.
func GetIndexState(db *sql.DB, projectID string) (*models.GraphIndexState, error) {
	var s models.GraphIndexState
	err := db.QueryRow(`
		SELECT project_id, last_index_at, commit_hash, node_count, edge_count, schema_version
		FROM graph_index_state WHERE project_id = ?
	`, projectID).Scan(&s.ProjectID, &s.LastIndexAt, &s.CommitHash, &s.NodeCount, &s.EdgeCount, &s.SchemaVersion)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &models.StorageTransientError{Op: "get_index_state", Err: err}
	}
	return &s, nil
}
