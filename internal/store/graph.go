package store

import (
	"context"
	"database/sql"

	"github.com/dotcommander/memengine/internal/models"
)

// UpsertNode inserts or refreshes a graph node. Its id is the deterministic
// hash of (project_id, file_path, label, kind), so re-extraction upserts the
// same row instead of creating a duplicate.
func UpsertNode(db *sql.DB, n *models.GraphNode) (string, error) {
	if n.ID == "" {
		n.ID = models.NodeID(n.ProjectID, n.FilePath, n.Label, n.Kind)
	}
	err := RetryWithBackoff(context.Background(), func() error {
		_, execErr := db.Exec(`
			INSERT INTO graph_nodes (id, project_id, kind, label, file_path, language, line_start, line_end, layer, source, confidence, stale_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, CURRENT_TIMESTAMP)
			ON CONFLICT(id) DO UPDATE SET
				label = excluded.label,
				language = excluded.language,
				line_start = excluded.line_start,
				line_end = excluded.line_end,
				layer = excluded.layer,
				source = excluded.source,
				confidence = excluded.confidence,
				stale_at = NULL,
				updated_at = CURRENT_TIMESTAMP
		`, n.ID, n.ProjectID, string(n.Kind), n.Label, n.FilePath, n.Language, n.LineStart, n.LineEnd, int(n.Layer), string(n.Source), string(n.Confidence))
		return execErr
	})
	if err != nil {
		return "", &models.StorageTransientError{Op: "upsert_node", Err: err}
	}
	return n.ID, nil
}

// UpsertEdge inserts or refreshes a graph edge. Its id is the deterministic
// hash of (project_id, from_id, to_id, type).
func UpsertEdge(db *sql.DB, e *models.GraphEdge) (string, error) {
	if e.ID == "" {
		e.ID = models.EdgeID(e.ProjectID, e.FromID, e.ToID, e.Type)
	}
	err := RetryWithBackoff(context.Background(), func() error {
		_, execErr := db.Exec(`
			INSERT INTO graph_edges (id, project_id, from_id, to_id, type, weight, confidence, stale_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, NULL, CURRENT_TIMESTAMP)
			ON CONFLICT(id) DO UPDATE SET
				weight = excluded.weight,
				confidence = excluded.confidence,
				stale_at = NULL,
				updated_at = CURRENT_TIMESTAMP
		`, e.ID, e.ProjectID, e.FromID, e.ToID, string(e.Type), e.Weight, e.Confidence)
		return execErr
	})
	if err != nil {
		return "", &models.StorageTransientError{Op: "upsert_edge", Err: err}
	}
	return e.ID, nil
}

const graphNodeSelectColumns = `
	SELECT id, project_id, kind, label, file_path, language, line_start, line_end, layer, source, confidence, stale_at
	FROM graph_nodes`

func scanNode(row rowScanner) (*models.GraphNode, error) {
	var n models.GraphNode
	var staleAt sql.NullTime
	err := row.Scan(&n.ID, &n.ProjectID, &n.Kind, &n.Label, &n.FilePath, &n.Language, &n.LineStart, &n.LineEnd, &n.Layer, &n.Source, &n.Confidence, &staleAt)
	if err != nil {
		return nil, err
	}
	if staleAt.Valid {
		t := staleAt.Time
		n.StaleAt = &t
	}
	return &n, nil
}

// GetNodesByFile returns all non-stale nodes belonging to file_path.
func GetNodesByFile(db *sql.DB, projectID, filePath string) ([]*models.GraphNode, error) {
	rows, err := db.Query(graphNodeSelectColumns+` WHERE project_id = ? AND file_path = ? AND stale_at IS NULL`, projectID, filePath)
	if err != nil {
		return nil, &models.StorageTransientError{Op: "get_nodes_by_file", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []*models.GraphNode
	for rows.Next() {
		n, scanErr := scanNode(rows)
		if scanErr != nil {
			return nil, &models.StorageTransientError{Op: "get_nodes_by_file", Err: scanErr}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// GetNode loads a single non-stale node by id. Returns (nil, nil) if absent
// or stale, used by the retrieval pipeline's closure-neighbor graph path to
// resolve a closure row's descendant id back to a file path.
func GetNode(db *sql.DB, nodeID string) (*models.GraphNode, error) {
	row := db.QueryRow(graphNodeSelectColumns+` WHERE id = ? AND stale_at IS NULL`, nodeID)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &models.StorageTransientError{Op: "get_node", Err: err}
	}
	return n, nil
}

const graphEdgeSelectColumns = `
	SELECT id, project_id, from_id, to_id, type, weight, confidence, stale_at
	FROM graph_edges`

func scanEdge(row rowScanner) (*models.GraphEdge, error) {
	var e models.GraphEdge
	var staleAt sql.NullTime
	err := row.Scan(&e.ID, &e.ProjectID, &e.FromID, &e.ToID, &e.Type, &e.Weight, &e.Confidence, &staleAt)
	if err != nil {
		return nil, err
	}
	if staleAt.Valid {
		t := staleAt.Time
		e.StaleAt = &t
	}
	return &e, nil
}

// GetEdgesFrom returns all non-stale edges originating at nodeID.
func GetEdgesFrom(db *sql.DB, nodeID string) ([]*models.GraphEdge, error) {
	rows, err := db.Query(graphEdgeSelectColumns+` WHERE from_id = ? AND stale_at IS NULL`, nodeID)
	if err != nil {
		return nil, &models.StorageTransientError{Op: "get_edges_from", Err: err}
	}
	defer func() { _ = rows.Close() }()
	return collectEdges(rows)
}

// GetEdgesTo returns all non-stale edges terminating at nodeID.
func GetEdgesTo(db *sql.DB, nodeID string) ([]*models.GraphEdge, error) {
	rows, err := db.Query(graphEdgeSelectColumns+` WHERE to_id = ? AND stale_at IS NULL`, nodeID)
	if err != nil {
		return nil, &models.StorageTransientError{Op: "get_edges_to", Err: err}
	}
	defer func() { _ = rows.Close() }()
	return collectEdges(rows)
}

func collectEdges(rows *sql.Rows) ([]*models.GraphEdge, error) {
	var out []*models.GraphEdge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, &models.StorageTransientError{Op: "scan_edge", Err: err}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkFileNodesStale marks every node in file_path as stale, step 2 of the
// staleness protocol in spec.md section 4.3.
func MarkFileNodesStale(db *sql.DB, projectID, filePath string) error {
	return execStale(db, `UPDATE graph_nodes SET stale_at = CURRENT_TIMESTAMP WHERE project_id = ? AND file_path = ? AND stale_at IS NULL`, "mark_file_nodes_stale", projectID, filePath)
}

// MarkFileEdgesStale marks every edge whose from_id belongs to a node in
// file_path as stale, step 1 of the staleness protocol.
func MarkFileEdgesStale(db *sql.DB, projectID, filePath string) error {
	return execStale(db, `
		UPDATE graph_edges SET stale_at = CURRENT_TIMESTAMP
		WHERE project_id = ? AND stale_at IS NULL AND from_id IN (
			SELECT id FROM graph_nodes WHERE project_id = ? AND file_path = ?
		)
	`, "mark_file_edges_stale", projectID, projectID, filePath)
}

// ClearFileEdgesStale un-stales edges re-emerged during re-extraction; in
// practice UpsertEdge already clears stale_at on conflict, so this is used
// when re-extraction finds an edge that pre-existed verbatim with no row
// change (no-op UPDATE would not clear it otherwise).
func ClearFileEdgesStale(db *sql.DB, projectID, filePath string) error {
	return execStale(db, `
		UPDATE graph_edges SET stale_at = NULL
		WHERE project_id = ? AND from_id IN (
			SELECT id FROM graph_nodes WHERE project_id = ? AND file_path = ?
		)
	`, "clear_file_edges_stale", projectID, projectID, filePath)
}

// DeleteStaleEdgesForFile hard-deletes edges and nodes in file_path that have
// been stale longer than graceDays, step 4 of the staleness protocol.
func DeleteStaleEdgesForFile(db *sql.DB, projectID, filePath string, graceDays int) error {
	err := RetryWithBackoff(context.Background(), func() error {
		_, execErr := db.Exec(`
			DELETE FROM graph_edges
			WHERE project_id = ? AND stale_at IS NOT NULL
			  AND stale_at < datetime('now', printf('-%d days', ?))
			  AND from_id IN (SELECT id FROM graph_nodes WHERE project_id = ? AND file_path = ?)
		`, projectID, graceDays, projectID, filePath)
		if execErr != nil {
			return execErr
		}
		_, execErr = db.Exec(`
			DELETE FROM graph_nodes
			WHERE project_id = ? AND file_path = ? AND stale_at IS NOT NULL
			  AND stale_at < datetime('now', printf('-%d days', ?))
		`, projectID, filePath, graceDays)
		return execErr
	})
	if err != nil {
		return &models.StorageTransientError{Op: "delete_stale_edges_for_file", Err: err}
	}
	return nil
}

func execStale(db *sql.DB, query, op string, args ...any) error {
	err := RetryWithBackoff(context.Background(), func() error {
		_, execErr := db.Exec(query, args...)
		return execErr
	})
	if err != nil {
		return &models.StorageTransientError{Op: op, Err: err}
	}
	return nil
}
