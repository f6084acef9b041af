package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankByCosineSimilarity_OrdersAscendingByDistance(t *testing.T) {
	candidates := []vectorCandidate{
		{id: "far", vec: []float32{0, 1, 0}},
		{id: "near", vec: []float32{1, 0, 0}},
	}

	hits, err := rankByCosineSimilarity(context.Background(), []float32{1, 0, 0}, candidates, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].MemoryID)
	assert.Less(t, hits[0].Score, hits[1].Score)
}

func TestRankByCosineSimilarity_CapsAtRequestedLimit(t *testing.T) {
	candidates := []vectorCandidate{
		{id: "a", vec: []float32{1, 0}},
		{id: "b", vec: []float32{0.9, 0.1}},
		{id: "c", vec: []float32{0, 1}},
	}

	hits, err := rankByCosineSimilarity(context.Background(), []float32{1, 0}, candidates, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].MemoryID)
}

func TestRankByCosineSimilarity_EmptyCandidatesOrLimit(t *testing.T) {
	hits, err := rankByCosineSimilarity(context.Background(), []float32{1, 0}, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = rankByCosineSimilarity(context.Background(), []float32{1, 0}, []vectorCandidate{{id: "a", vec: []float32{1, 0}}}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
