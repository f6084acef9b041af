// Package retrieval implements the Retrieval Pipeline (C5): query
// classification, parallel FTS/dense/graph candidate generation, weighted
// reciprocal rank fusion, a graph neighborhood boost, cross-encoder rerank,
// and phase-aware context packing, per spec.md section 4.5.
package retrieval

import (
	"context"
	"database/sql"

	"github.com/dotcommander/memengine/internal/embedprovider"
	"github.com/dotcommander/memengine/internal/models"
	"github.com/dotcommander/memengine/internal/store"
)

// Options bundles the knobs a caller may override; zero values fall back to
// spec.md section 6.4 defaults.
type Options struct {
	RecentFiles     []string
	RecentToolCalls []string
	Phase           Phase
	MaxResults      int
	RRFK            int
	BoostTopK       int
	BoostRange      int
	BoostWeight     float64
	Reranker        Reranker
}

// Result is the Retrieval Pipeline's output: the ordered, fully-hydrated
// memories and their packed context string.
type Result struct {
	Memories []*models.Memory
	Context  string
	QueryType QueryType
}

const defaultMaxResults = 8

// Retrieve runs the full four-stage pipeline for one query. A canceled ctx
// returns an empty Result and no side effects, per spec.md section 5.
func Retrieve(ctx context.Context, db *sql.DB, provider embedprovider.Provider, query, projectID string, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return &Result{}, nil
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}

	qtype := DetectQueryType(query, opts.RecentToolCalls)
	weights := WeightsFor(qtype)

	lists, err := GenerateCandidates(ctx, db, provider, query, projectID, opts.RecentFiles)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return &Result{}, nil
	}

	weighted := []RankedList{
		{Path: "fts", Weight: weights.FTS, IDs: lists[0].IDs},
		{Path: "dense", Weight: weights.Dense, IDs: lists[1].IDs},
		{Path: "graph", Weight: weights.Graph, IDs: lists[2].IDs},
	}
	fused := WeightedRRF(weighted, opts.RRFK)
	if len(fused) == 0 {
		return &Result{QueryType: qtype}, nil
	}

	memsByID, err := hydrateAll(db, fused)
	if err != nil {
		return nil, err
	}

	boosted := ApplyGraphNeighborhoodBoost(db, projectID, fused, memsByID, opts.BoostTopK, opts.BoostRange, opts.BoostWeight)

	top := boosted
	if len(top) > 20 {
		top = top[:20]
	}
	candidates := make([]RerankCandidate, 0, len(top))
	for _, f := range top {
		if m, ok := memsByID[f.MemoryID]; ok {
			candidates = append(candidates, RerankCandidate{ID: m.ID, Content: CandidateText(m)})
		}
	}

	reranker := opts.Reranker
	if reranker == nil {
		reranker = PassthroughReranker{}
	}
	scored, err := reranker.Rerank(ctx, query, candidates, opts.MaxResults)
	if err != nil || len(scored) == 0 {
		scored, _ = PassthroughReranker{}.Rerank(ctx, query, candidates, opts.MaxResults)
	}

	ordered := make([]*models.Memory, 0, len(scored))
	for _, s := range scored {
		if m, ok := memsByID[s.ID]; ok {
			ordered = append(ordered, m)
		}
	}

	for _, m := range ordered {
		_ = store.TouchMemory(db, m.ID)
	}

	ctxStr := PackContext(ordered, opts.Phase, 0)
	return &Result{Memories: ordered, Context: ctxStr, QueryType: qtype}, nil
}

func hydrateAll(db *sql.DB, fused []Fused) (map[string]*models.Memory, error) {
	out := make(map[string]*models.Memory, len(fused))
	for _, f := range fused {
		m, err := store.GetMemory(db, f.MemoryID)
		if err != nil {
			return nil, err
		}
		if m == nil || !m.Visible() {
			continue
		}
		out[f.MemoryID] = m
	}
	return out, nil
}
