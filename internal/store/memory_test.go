package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/memengine/internal/models"
)

func TestUpsertMemory_InsertAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	m := &models.Memory{
		ProjectID: "p1",
		Kind:      models.MemoryKindGotcha,
		Content:   "retries must use exponential backoff",
		Confidence: 0.8,
		Tags:      []string{"retry", "backoff"},
		Scope:     models.MemoryScopeGlobal,
		Source:    models.MemorySourceAgentExplicit,
	}

	id, err := UpsertMemory(db, m)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := GetMemory(db, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "retries must use exponential backoff", got.Content)
	assert.Equal(t, []string{"retry", "backoff"}, got.Tags)
	assert.Equal(t, models.MemoryKindGotcha, got.Kind)
}

func TestUpsertMemory_AccessCountMonotonic(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	m := &models.Memory{ProjectID: "p1", Kind: models.MemoryKindPattern, Content: "v1"}
	id, err := UpsertMemory(db, m)
	require.NoError(t, err)

	require.NoError(t, TouchMemory(db, id))
	require.NoError(t, TouchMemory(db, id))

	after, err := GetMemory(db, id)
	require.NoError(t, err)
	assert.Equal(t, 2, after.AccessCount)

	// A replace-upsert with a lower access_count must not regress the stored value.
	m.ID = id
	m.Content = "v2"
	m.AccessCount = 0
	_, err = UpsertMemory(db, m)
	require.NoError(t, err)

	final, err := GetMemory(db, id)
	require.NoError(t, err)
	assert.Equal(t, "v2", final.Content)
	assert.Equal(t, 2, final.AccessCount)
}

func TestGetMemory_Absent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	got, err := GetMemory(db, "mem_does_not_exist")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSearchFullText(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := UpsertMemory(db, &models.Memory{ProjectID: "p1", Kind: models.MemoryKindGotcha, Content: "sqlite busy retries need backoff"})
	require.NoError(t, err)
	_, err = UpsertMemory(db, &models.Memory{ProjectID: "p1", Kind: models.MemoryKindPattern, Content: "unrelated content about rendering"})
	require.NoError(t, err)

	hits, err := SearchFullText(db, "backoff", "p1", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].MemoryID, "mem_")
}

func TestSearchFullText_MalformedQueryFailsSoft(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	hits, err := SearchFullText(db, `"unterminated`, "p1", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchVector_OrdersByAscendingDistance(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	near := &models.Memory{ProjectID: "p1", Kind: models.MemoryKindPattern, Content: "near", Embedding: []float32{1, 0, 0}, EmbeddingModelID: "m1", EmbeddingDims: 3}
	far := &models.Memory{ProjectID: "p1", Kind: models.MemoryKindPattern, Content: "far", Embedding: []float32{0, 1, 0}, EmbeddingModelID: "m1", EmbeddingDims: 3}
	_, err := UpsertMemory(db, near)
	require.NoError(t, err)
	_, err = UpsertMemory(db, far)
	require.NoError(t, err)

	hits, err := SearchVector(db, []float32{1, 0, 0}, "p1", 10, "m1")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, near.ID, hits[0].MemoryID)
	assert.Less(t, hits[0].Score, hits[1].Score)
}

func TestSearchVector_ModelMismatchFailsSoft(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := UpsertMemory(db, &models.Memory{ProjectID: "p1", Kind: models.MemoryKindPattern, Content: "x", Embedding: []float32{1, 0}, EmbeddingModelID: "m1", EmbeddingDims: 2})
	require.NoError(t, err)

	hits, err := SearchVector(db, []float32{1, 0}, "p1", 10, "m2")
	require.NoError(t, err)
	assert.Empty(t, hits)
}
