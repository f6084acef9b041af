package store

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

// searchCollectionName is the name of the ephemeral in-memory chromem-go
// collection assembled for each SearchVector call.
const searchCollectionName = "candidates"

// noEmbeddingFunc backs every chromem-go collection this package opens.
// Every document handed to chromem here already carries a precomputed
// embedding (decoded straight out of the memories table), so the function
// is never actually invoked; it exists only because chromem requires one.
func noEmbeddingFunc(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("vector index candidates must carry a precomputed embedding")
}

// vectorCandidate is one decoded embedding row eligible for a nearest-
// neighbor query.
type vectorCandidate struct {
	id  string
	vec []float32
}

// rankByCosineSimilarity loads candidates into a fresh chromem-go
// in-memory collection and returns the top-n hits ordered by ascending
// cosine distance. chromem reports cosine similarity in [-1, 1]; distance
// is reported as 1-similarity so callers can keep sorting ascending the
// same way SearchFullText's rank score already does.
func rankByCosineSimilarity(ctx context.Context, query []float32, candidates []vectorCandidate, limit int) ([]SearchHit, error) {
	n := limit
	if n > len(candidates) {
		n = len(candidates)
	}
	if n <= 0 {
		return nil, nil
	}

	db := chromem.NewDB()
	col, err := db.CreateCollection(searchCollectionName, nil, noEmbeddingFunc)
	if err != nil {
		return nil, err
	}

	docs := make([]chromem.Document, len(candidates))
	for i, c := range candidates {
		docs[i] = chromem.Document{ID: c.id, Embedding: c.vec, Content: c.id}
	}
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return nil, err
	}

	results, err := col.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{MemoryID: r.ID, Score: 1 - float64(r.Similarity)}
	}
	return hits, nil
}
