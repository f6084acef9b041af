package graph

import (
	"database/sql"
	"fmt"

	"github.com/dotcommander/memengine/internal/store"
)

// DefaultStaleGraceDays is how long a stale node or edge survives before
// hard-deletion, step 4 of the staleness protocol in spec.md section 4.3.
// It gives a reindex that races a half-finished edit a window to self-heal
// before the graph permanently forgets the entity.
const DefaultStaleGraceDays = 7

// IndexResult summarizes one file's (re)indexing pass.
type IndexResult struct {
	FilePath   string
	NodesSeen  int
	EdgesSeen  int
	Skipped    bool // true if no extractor recognizes the file's extension
}

// IndexFile runs the full staleness protocol for one file against its
// freshly read source:
//  1. mark the file's existing edges stale
//  2. mark the file's existing nodes stale
//  3. re-extract and upsert nodes/edges (upsert clears stale_at on match)
//  4. hard-delete anything still stale past the grace period
//  5. recompute the closure entries touching this file's nodes
func IndexFile(db *sql.DB, projectID, filePath string, source []byte) (IndexResult, error) {
	extractor := ExtractorFor(filePath)
	if extractor == nil {
		return IndexResult{FilePath: filePath, Skipped: true}, nil
	}

	if err := store.MarkFileEdgesStale(db, projectID, filePath); err != nil {
		return IndexResult{}, fmt.Errorf("graph: mark edges stale: %w", err)
	}
	if err := store.MarkFileNodesStale(db, projectID, filePath); err != nil {
		return IndexResult{}, fmt.Errorf("graph: mark nodes stale: %w", err)
	}

	extracted, err := extractor.Extract(projectID, filePath, source)
	if err != nil {
		return IndexResult{}, fmt.Errorf("graph: extract %s: %w", filePath, err)
	}

	touched := make(map[string]bool, len(extracted.Nodes))
	for _, n := range extracted.Nodes {
		if _, err := store.UpsertNode(db, n); err != nil {
			return IndexResult{}, fmt.Errorf("graph: upsert node %s: %w", n.Label, err)
		}
		touched[n.ID] = true
	}
	for _, e := range extracted.Edges {
		if _, err := store.UpsertEdge(db, e); err != nil {
			return IndexResult{}, fmt.Errorf("graph: upsert edge %s->%s: %w", e.FromID, e.ToID, err)
		}
	}

	if err := store.DeleteStaleEdgesForFile(db, projectID, filePath, DefaultStaleGraceDays); err != nil {
		return IndexResult{}, fmt.Errorf("graph: delete stale: %w", err)
	}

	for nodeID := range touched {
		if err := store.UpdateClosureForNode(db, projectID, nodeID); err != nil {
			return IndexResult{}, fmt.Errorf("graph: update closure for %s: %w", nodeID, err)
		}
	}

	return IndexResult{FilePath: filePath, NodesSeen: len(extracted.Nodes), EdgesSeen: len(extracted.Edges)}, nil
}

// IndexFiles runs IndexFile over a batch, continuing past per-file errors so
// one malformed file doesn't abort an entire project reindex; failures are
// returned keyed by file path.
func IndexFiles(db *sql.DB, projectID string, files map[string][]byte) ([]IndexResult, map[string]error) {
	results := make([]IndexResult, 0, len(files))
	failures := make(map[string]error)
	for path, source := range files {
		res, err := IndexFile(db, projectID, path, source)
		if err != nil {
			failures[path] = err
			continue
		}
		results = append(results, res)
	}
	return results, failures
}

// RebuildProjectClosure recomputes the full closure table for a project from
// scratch, used after a bulk reindex where per-node incremental updates
// would duplicate work.
func RebuildProjectClosure(db *sql.DB, projectID string) error {
	return store.RebuildClosure(db, projectID)
}
