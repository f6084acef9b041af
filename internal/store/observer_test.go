package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/memengine/internal/models"
)

func TestRecordCoAccess_OrderIndependent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, RecordCoAccess(db, "p1", "a.go", "b.go", "sess1"))
	require.NoError(t, RecordCoAccess(db, "p1", "b.go", "a.go", "sess1"))

	edges, err := TopCoAccess(db, "p1", "a.go", 10)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, 2.0, edges[0].Weight)
}

func TestRecordErrorFingerprint_IncrementsCount(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	count, err := RecordErrorFingerprint(db, "p1", "abc123", "Bash", "sess1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = RecordErrorFingerprint(db, "p1", "abc123", "Bash", "sess2")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSignalSessionCounts(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, RecordSignalSession(db, "p1", models.SignalCoAccess))
	require.NoError(t, RecordSignalSession(db, "p1", models.SignalCoAccess))
	require.NoError(t, RecordSignalSession(db, "p1", models.SignalErrorRetry))

	counts, err := SignalSessionCounts(db, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.SignalCoAccess])
	assert.Equal(t, 1, counts[models.SignalErrorRetry])
}

func TestScratchpadCheckpoint_RoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, found, err := LoadScratchpadCheckpoint(db, "sess1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SaveScratchpadCheckpoint(db, "sess1", "p1", 3, `{"step":3}`))
	snapshot, found, err := LoadScratchpadCheckpoint(db, "sess1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `{"step":3}`, snapshot)
}

func TestEmbeddingCache_RoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	key := "deadbeef"
	_, _, found, err := EmbeddingCacheGet(db, key, 7)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, EmbeddingCachePut(db, key, "local-small", 3, []float32{0.1, 0.2, 0.3}))

	vec, modelID, found, err := EmbeddingCacheGet(db, key, 7)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "local-small", modelID)
	require.Len(t, vec, 3)
}
