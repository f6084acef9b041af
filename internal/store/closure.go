package store

import (
	"database/sql"
	"encoding/json"
	"sort"
	"strings"

	"github.com/dotcommander/memengine/internal/models"
)

type adjEdge struct {
	to     string
	typ    string
	weight float64
}

// buildAdjacency loads every non-stale edge in project into forward and
// reverse adjacency maps keyed by node id.
func buildAdjacency(db *sql.DB, projectID string) (fwd, rev map[string][]adjEdge, err error) {
	rows, err := db.Query(`SELECT from_id, to_id, type, weight FROM graph_edges WHERE project_id = ? AND stale_at IS NULL`, projectID)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	fwd = make(map[string][]adjEdge)
	rev = make(map[string][]adjEdge)
	for rows.Next() {
		var from, to, typ string
		var weight float64
		if scanErr := rows.Scan(&from, &to, &typ, &weight); scanErr != nil {
			return nil, nil, scanErr
		}
		fwd[from] = append(fwd[from], adjEdge{to: to, typ: typ, weight: weight})
		rev[to] = append(rev[to], adjEdge{to: from, typ: typ, weight: weight})
	}
	return fwd, rev, rows.Err()
}

// bfsFrom walks adj breadth-first from start up to models.MaxClosureDepth,
// recording the shortest-depth path to each reachable node (invariants
// I9-I11: depth bound, shortest-path tie-break by lexicographically smallest
// path, cycle-safe via the path-membership check).
func bfsFrom(adj map[string][]adjEdge, start string) map[string]*models.ClosureEntry {
	type item struct {
		node      string
		depth     int
		path      []string
		edgeTypes []string
		weight    float64
	}

	best := make(map[string]*models.ClosureEntry)
	queue := []item{{node: start, depth: 0, path: []string{start}}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= models.MaxClosureDepth {
			continue
		}
		for _, e := range adj[cur.node] {
			if containsStr(cur.path, e.to) {
				continue // node already on this path; skip to avoid revisiting it
			}
			depth := cur.depth + 1
			path := append(append([]string{}, cur.path...), e.to)
			edgeTypes := append(append([]string{}, cur.edgeTypes...), e.typ)
			weight := cur.weight + e.weight

			if existing, ok := best[e.to]; ok {
				if depth > existing.Depth {
					continue
				}
				if depth == existing.Depth && strings.Join(path, "/") >= strings.Join(existing.Path, "/") {
					continue
				}
			}
			best[e.to] = &models.ClosureEntry{
				AncestorID:   start,
				DescendantID: e.to,
				Depth:        depth,
				Path:         path,
				EdgeTypes:    edgeTypes,
				TotalWeight:  weight,
			}
			queue = append(queue, item{node: e.to, depth: depth, path: path, edgeTypes: edgeTypes, weight: weight})
		}
	}
	return best
}

func containsStr(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// RebuildClosure recomputes the entire transitive closure table for a
// project from scratch: one forward BFS per node, batched in inserts of
// 500 rows to amortize I/O, per spec.md section 4.3.1.
func RebuildClosure(db *sql.DB, projectID string) error {
	fwd, _, err := buildAdjacency(db, projectID)
	if err != nil {
		return &models.StorageTransientError{Op: "rebuild_closure", Err: err}
	}

	rows, err := db.Query(`SELECT id FROM graph_nodes WHERE project_id = ? AND stale_at IS NULL`, projectID)
	if err != nil {
		return &models.StorageTransientError{Op: "rebuild_closure", Err: err}
	}
	var nodeIDs []string
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			_ = rows.Close()
			return &models.StorageTransientError{Op: "rebuild_closure", Err: scanErr}
		}
		nodeIDs = append(nodeIDs, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return &models.StorageTransientError{Op: "rebuild_closure", Err: err}
	}

	var entries []*models.ClosureEntry
	for _, id := range nodeIDs {
		for _, entry := range bfsFrom(fwd, id) {
			entries = append(entries, entry)
		}
	}

	err = Transact(db, func(tx *sql.Tx) error {
		if _, execErr := tx.Exec(`DELETE FROM graph_closure WHERE project_id = ?`, projectID); execErr != nil {
			return execErr
		}
		return insertClosureEntries(tx, projectID, entries)
	})
	if err != nil {
		return &models.StorageTransientError{Op: "rebuild_closure", Err: err}
	}
	return nil
}

// UpdateClosureForNode incrementally recomputes closure rows touching
// nodeID: delete existing rows where it is ancestor or descendant, then
// re-BFS forward for its descendants and backward (over the reversed
// adjacency map) for ancestors whose paths terminate at it, per spec.md
// section 4.3.1's two-sided incremental update.
func UpdateClosureForNode(db *sql.DB, projectID, nodeID string) error {
	fwd, rev, err := buildAdjacency(db, projectID)
	if err != nil {
		return &models.StorageTransientError{Op: "update_closure_for_node", Err: err}
	}

	var entries []*models.ClosureEntry
	for _, entry := range bfsFrom(fwd, nodeID) {
		entries = append(entries, entry)
	}
	for _, entry := range bfsFrom(rev, nodeID) {
		// bfsFrom(rev, nodeID) computes descendants of nodeID in the reversed
		// graph, i.e. ancestors of nodeID in the real graph. Flip direction.
		entries = append(entries, &models.ClosureEntry{
			AncestorID:   entry.DescendantID,
			DescendantID: nodeID,
			Depth:        entry.Depth,
			Path:         reverseStrs(entry.Path),
			EdgeTypes:    reverseStrs(entry.EdgeTypes),
			TotalWeight:  entry.TotalWeight,
		})
	}

	err = Transact(db, func(tx *sql.Tx) error {
		if _, execErr := tx.Exec(`DELETE FROM graph_closure WHERE ancestor_id = ? OR descendant_id = ?`, nodeID, nodeID); execErr != nil {
			return execErr
		}
		return insertClosureEntries(tx, projectID, entries)
	})
	if err != nil {
		return &models.StorageTransientError{Op: "update_closure_for_node", Err: err}
	}
	return nil
}

func reverseStrs(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

// insertClosureEntries batches inserts in chunks of 500 rows.
func insertClosureEntries(tx *sql.Tx, projectID string, entries []*models.ClosureEntry) error {
	const chunkSize = 500
	for i := 0; i < len(entries); i += chunkSize {
		end := i + chunkSize
		if end > len(entries) {
			end = len(entries)
		}
		for _, e := range entries[i:end] {
			path, _ := json.Marshal(e.Path)
			edgeTypes, _ := json.Marshal(e.EdgeTypes)
			if _, err := tx.Exec(`
				INSERT INTO graph_closure (project_id, ancestor_id, descendant_id, depth, path, edge_types, total_weight)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(ancestor_id, descendant_id) DO UPDATE SET
					depth = excluded.depth, path = excluded.path, edge_types = excluded.edge_types, total_weight = excluded.total_weight
			`, projectID, e.AncestorID, e.DescendantID, e.Depth, string(path), string(edgeTypes), e.TotalWeight); err != nil {
				return err
			}
		}
	}
	return nil
}

func scanClosureRows(rows *sql.Rows) ([]*models.ClosureEntry, error) {
	var out []*models.ClosureEntry
	for rows.Next() {
		var e models.ClosureEntry
		var path, edgeTypes string
		if err := rows.Scan(&e.ProjectID, &e.AncestorID, &e.DescendantID, &e.Depth, &path, &edgeTypes, &e.TotalWeight); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(path), &e.Path)
		_ = json.Unmarshal([]byte(edgeTypes), &e.EdgeTypes)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// GetDescendants returns closure rows rooted at nodeID, ordered by depth
// ascending then total_weight descending.
func GetDescendants(db *sql.DB, nodeID string, maxDepth int) ([]*models.ClosureEntry, error) {
	if maxDepth <= 0 || maxDepth > models.MaxClosureDepth {
		maxDepth = models.MaxClosureDepth
	}
	rows, err := db.Query(`
		SELECT project_id, ancestor_id, descendant_id, depth, path, edge_types, total_weight
		FROM graph_closure WHERE ancestor_id = ? AND depth <= ?
		ORDER BY depth ASC, total_weight DESC
	`, nodeID, maxDepth)
	if err != nil {
		return nil, &models.StorageTransientError{Op: "get_descendants", Err: err}
	}
	defer func() { _ = rows.Close() }()
	out, err := scanClosureRows(rows)
	if err != nil {
		return nil, &models.StorageTransientError{Op: "get_descendants", Err: err}
	}
	return out, nil
}

// GetAncestors returns closure rows terminating at nodeID, ordered by depth
// ascending then total_weight descending.
func GetAncestors(db *sql.DB, nodeID string, maxDepth int) ([]*models.ClosureEntry, error) {
	if maxDepth <= 0 || maxDepth > models.MaxClosureDepth {
		maxDepth = models.MaxClosureDepth
	}
	rows, err := db.Query(`
		SELECT project_id, ancestor_id, descendant_id, depth, path, edge_types, total_weight
		FROM graph_closure WHERE descendant_id = ? AND depth <= ?
		ORDER BY depth ASC, total_weight DESC
	`, nodeID, maxDepth)
	if err != nil {
		return nil, &models.StorageTransientError{Op: "get_ancestors", Err: err}
	}
	defer func() { _ = rows.Close() }()
	out, err := scanClosureRows(rows)
	if err != nil {
		return nil, &models.StorageTransientError{Op: "get_ancestors", Err: err}
	}
	return out, nil
}

// ImpactResult is the five-list response of an impact analysis query, per
// spec.md section 4.3.2.
type ImpactResult struct {
	TargetNodeID        string
	DirectDependents    []ImpactNode
	TransitiveDependents []ImpactNode
	AffectedTests       []string
	AffectedMemoryIDs   []string
}

// ImpactNode is one entry in a direct- or transitive-dependent list.
type ImpactNode struct {
	NodeID   string
	Label    string
	FilePath string
	EdgeType string
}

var testPathMarkers = []string{".test.", ".spec.", "__tests__", "/test/"}

// Impact answers "what breaks if I change this": direct and transitive
// dependents of a target node, affected test files, and affected memories,
// per spec.md section 4.3.2.
func Impact(db *sql.DB, targetLabelOrPath, projectID string, maxDepth int) (*ImpactResult, error) {
	if maxDepth <= 0 || maxDepth > models.MaxClosureDepth {
		maxDepth = models.MaxClosureDepth
	}

	var targetID, targetFile string
	row := db.QueryRow(`SELECT id, file_path FROM graph_nodes WHERE project_id = ? AND label = ? AND stale_at IS NULL LIMIT 1`, projectID, targetLabelOrPath)
	err := row.Scan(&targetID, &targetFile)
	if err == sql.ErrNoRows {
		row = db.QueryRow(`SELECT id, file_path FROM graph_nodes WHERE project_id = ? AND label LIKE ? AND stale_at IS NULL LIMIT 1`, projectID, "%:"+targetLabelOrPath)
		err = row.Scan(&targetID, &targetFile)
	}
	if err == sql.ErrNoRows {
		return &ImpactResult{}, nil
	}
	if err != nil {
		return nil, &models.StorageTransientError{Op: "impact", Err: err}
	}

	direct, err := impactDirect(db, targetID)
	if err != nil {
		return nil, err
	}
	directSet := make(map[string]bool, len(direct))
	for _, d := range direct {
		directSet[d.NodeID] = true
	}

	transitive, err := impactTransitive(db, targetID, maxDepth, directSet)
	if err != nil {
		return nil, err
	}

	files := map[string]bool{targetFile: true}
	for _, d := range direct {
		files[d.FilePath] = true
	}
	for _, t := range transitive {
		files[t.FilePath] = true
	}

	var tests []string
	for f := range files {
		if isTestPath(f) {
			tests = append(tests, f)
		}
	}
	sort.Strings(tests)

	fileList := make([]string, 0, len(files))
	for f := range files {
		if f != "" {
			fileList = append(fileList, f)
		}
	}
	memIDs, err := impactMemories(db, projectID, fileList)
	if err != nil {
		return nil, err
	}

	return &ImpactResult{
		TargetNodeID:         targetID,
		DirectDependents:     direct,
		TransitiveDependents: transitive,
		AffectedTests:        tests,
		AffectedMemoryIDs:    memIDs,
	}, nil
}

func isTestPath(path string) bool {
	for _, marker := range testPathMarkers {
		if strings.Contains(path, marker) {
			return true
		}
	}
	return false
}

func impactDirect(db *sql.DB, targetID string) ([]ImpactNode, error) {
	rows, err := db.Query(`
		SELECT n.id, n.label, n.file_path, e.type
		FROM graph_edges e JOIN graph_nodes n ON n.id = e.from_id
		WHERE e.to_id = ? AND e.stale_at IS NULL AND n.stale_at IS NULL
	`, targetID)
	if err != nil {
		return nil, &models.StorageTransientError{Op: "impact_direct", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []ImpactNode
	for rows.Next() {
		var n ImpactNode
		if scanErr := rows.Scan(&n.NodeID, &n.Label, &n.FilePath, &n.EdgeType); scanErr != nil {
			return nil, &models.StorageTransientError{Op: "impact_direct", Err: scanErr}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func impactTransitive(db *sql.DB, targetID string, maxDepth int, exclude map[string]bool) ([]ImpactNode, error) {
	rows, err := db.Query(`
		SELECT n.id, n.label, n.file_path, c.depth
		FROM graph_closure c JOIN graph_nodes n ON n.id = c.ancestor_id
		WHERE c.descendant_id = ? AND c.depth <= ? AND n.stale_at IS NULL
		ORDER BY c.depth ASC
	`, targetID, maxDepth)
	if err != nil {
		return nil, &models.StorageTransientError{Op: "impact_transitive", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []ImpactNode
	for rows.Next() {
		var n ImpactNode
		var depth int
		if scanErr := rows.Scan(&n.NodeID, &n.Label, &n.FilePath, &depth); scanErr != nil {
			return nil, &models.StorageTransientError{Op: "impact_transitive", Err: scanErr}
		}
		if exclude[n.NodeID] {
			continue
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func impactMemories(db *sql.DB, projectID string, files []string) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	rows, err := db.Query(`SELECT id, related_files FROM memories WHERE project_id = ? AND deprecated = 0`, projectID)
	if err != nil {
		return nil, &models.StorageTransientError{Op: "impact_memories", Err: err}
	}
	defer func() { _ = rows.Close() }()

	fileSet := make(map[string]bool, len(files))
	for _, f := range files {
		fileSet[f] = true
	}

	var ids []string
	for rows.Next() {
		var id, relFiles string
		if scanErr := rows.Scan(&id, &relFiles); scanErr != nil {
			return nil, &models.StorageTransientError{Op: "impact_memories", Err: scanErr}
		}
		var rf []string
		_ = json.Unmarshal([]byte(relFiles), &rf)
		for _, f := range rf {
			if fileSet[f] {
				ids = append(ids, id)
				break
			}
		}
		if len(ids) >= 10 {
			break
		}
	}
	return ids, rows.Err()
}
