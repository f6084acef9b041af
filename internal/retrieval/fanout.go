package retrieval

import (
	"context"
	"database/sql"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/dotcommander/memengine/internal/embedprovider"
	"github.com/dotcommander/memengine/internal/store"
)

// denseDims is the truncated MRL dimension the Dense path embeds the query
// at for speed, per spec.md section 4.5.2.
const denseDims = 256

// graphCandidateLimit, fileScopedBase, coAccessMinWeight, coAccessPerFile,
// closureNeighborDepth, closureNeighborPerNode mirror spec.md section
// 4.5.2's Graph path sub-path constants exactly.
const (
	graphCandidateLimit    = 15
	fileScopedBaseScore    = 0.8
	coAccessMinWeight      = 0.3
	coAccessWeightScale    = 0.7
	coAccessPerFileLimit   = 5
	closureNeighborDepth   = 1
	closureNeighborScore   = 0.6
	closureNeighborPerNode = 3
)

// GraphHit is one memory surfaced by the Graph candidate path, carrying the
// reason it was included (spec.md section 4.5.2).
type GraphHit struct {
	MemoryID string
	Score    float64
	Reason   string
}

// GenerateFTS runs the full-text candidate path.
func GenerateFTS(db *sql.DB, query, projectID string) (RankedList, error) {
	hits, err := store.SearchFullText(db, query, projectID, 20)
	if err != nil {
		return RankedList{Path: "fts"}, err
	}
	return RankedList{Path: "fts", IDs: idsOf(hits)}, nil
}

// GenerateDense embeds the query at truncated MRL dimension and runs the
// vector candidate path.
func GenerateDense(ctx context.Context, db *sql.DB, provider embedprovider.Provider, query, projectID string) (RankedList, error) {
	vec, err := provider.Embed(ctx, query)
	if err != nil {
		return RankedList{Path: "dense"}, nil // ProviderUnavailable soft-degrades to empty.
	}
	if len(vec) > denseDims {
		vec = vec[:denseDims]
	}
	hits, err := store.SearchVector(db, vec, projectID, 30, provider.ModelID())
	if err != nil {
		return RankedList{Path: "dense"}, err
	}
	return RankedList{Path: "dense", IDs: idsOf(hits)}, nil
}

// GenerateGraph returns up to graphCandidateLimit memory ids from the three
// graph sub-paths (file-scoped, co-access, closure-neighbor), deduplicated
// by memory id keeping the highest score, per spec.md section 4.5.2.
func GenerateGraph(db *sql.DB, projectID string, recentFiles []string) (RankedList, error) {
	best := make(map[string]GraphHit)
	merge := func(hits []GraphHit) {
		for _, h := range hits {
			if existing, ok := best[h.MemoryID]; !ok || h.Score > existing.Score {
				best[h.MemoryID] = h
			}
		}
	}

	if len(recentFiles) == 0 {
		return RankedList{Path: "graph"}, nil
	}

	fileScoped, err := graphFileScoped(db, projectID, recentFiles)
	if err != nil {
		return RankedList{Path: "graph"}, err
	}
	merge(fileScoped)

	coAccess, err := graphCoAccess(db, projectID, recentFiles)
	if err != nil {
		return RankedList{Path: "graph"}, err
	}
	merge(coAccess)

	closureNeighbor, err := graphClosureNeighbor(db, projectID, recentFiles)
	if err != nil {
		return RankedList{Path: "graph"}, err
	}
	merge(closureNeighbor)

	out := make([]GraphHit, 0, len(best))
	for _, h := range best {
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > graphCandidateLimit {
		out = out[:graphCandidateLimit]
	}

	ids := make([]string, len(out))
	for i, h := range out {
		ids[i] = h.MemoryID
	}
	return RankedList{Path: "graph", IDs: ids}, nil
}

func graphFileScoped(db *sql.DB, projectID string, files []string) ([]GraphHit, error) {
	hits, err := store.SearchByRelatedFile(db, projectID, files, graphCandidateLimit)
	if err != nil {
		return nil, err
	}
	out := make([]GraphHit, len(hits))
	for i, h := range hits {
		out[i] = GraphHit{MemoryID: h.MemoryID, Score: fileScopedBaseScore, Reason: "file_scoped"}
	}
	return out, nil
}

func graphCoAccess(db *sql.DB, projectID string, files []string) ([]GraphHit, error) {
	var out []GraphHit
	for _, f := range files {
		edges, err := store.TopCoAccess(db, projectID, f, 10)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if e.Weight <= coAccessMinWeight {
				continue
			}
			neighbor := e.FileA
			if neighbor == f {
				neighbor = e.FileB
			}
			hits, err := store.SearchByRelatedFile(db, projectID, []string{neighbor}, coAccessPerFileLimit)
			if err != nil {
				return nil, err
			}
			for _, h := range hits {
				out = append(out, GraphHit{MemoryID: h.MemoryID, Score: e.Weight * coAccessWeightScale, Reason: "co_access"})
			}
		}
	}
	return out, nil
}

func graphClosureNeighbor(db *sql.DB, projectID string, files []string) ([]GraphHit, error) {
	var out []GraphHit
	for _, f := range files {
		nodes, err := store.GetNodesByFile(db, projectID, f)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			descendants, err := store.GetDescendants(db, n.ID, closureNeighborDepth)
			if err != nil {
				return nil, err
			}
			for _, d := range descendants {
				if d.Depth != closureNeighborDepth {
					continue
				}
				neighborNode, err := store.GetNode(db, d.DescendantID)
				if err != nil || neighborNode == nil || neighborNode.FilePath == "" {
					continue
				}
				hits, err := store.SearchByRelatedFile(db, projectID, []string{neighborNode.FilePath}, closureNeighborPerNode)
				if err != nil {
					return nil, err
				}
				for _, h := range hits {
					out = append(out, GraphHit{MemoryID: h.MemoryID, Score: closureNeighborScore, Reason: "closure_neighbor"})
				}
			}
		}
	}
	return out, nil
}

func idsOf(hits []store.SearchHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.MemoryID
	}
	return out
}

// GenerateCandidates runs the three candidate paths concurrently, bounded by
// an errgroup, per spec.md section 4.5.2 and section 5's concurrency model.
func GenerateCandidates(ctx context.Context, db *sql.DB, provider embedprovider.Provider, query, projectID string, recentFiles []string) ([]RankedList, error) {
	lists := make([]RankedList, 3)
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		l, err := GenerateFTS(db, query, projectID)
		lists[0] = l
		return err
	})
	eg.Go(func() error {
		l, err := GenerateDense(egCtx, db, provider, query, projectID)
		lists[1] = l
		return err
	})
	eg.Go(func() error {
		l, err := GenerateGraph(db, projectID, recentFiles)
		lists[2] = l
		return err
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return lists, nil
}
