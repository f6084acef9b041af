package graph

import (
	"database/sql"
	"testing"

	"github.com/dotcommander/memengine/internal/store"
	"github.com/stretchr/testify/require"
)

func setupIndexerTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.InitDBWithPath(t.TempDir() + "/graph_test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestIndexFileInsertsNodesAndEdges(t *testing.T) {
	db := setupIndexerTestDB(t)

	res, err := IndexFile(db, "proj1", "widget.go", []byte(goFixture))
	require.NoError(t, err)
	require.False(t, res.Skipped)
	require.Greater(t, res.NodesSeen, 0)

	nodes, err := store.GetNodesByFile(db, "proj1", "widget.go")
	require.NoError(t, err)
	require.NotEmpty(t, nodes)
}

func TestIndexFileReextractionClearsStaleness(t *testing.T) {
	db := setupIndexerTestDB(t)

	_, err := IndexFile(db, "proj1", "widget.go", []byte(goFixture))
	require.NoError(t, err)

	// Re-index the identical content: every node/edge should upsert back to
	// non-stale instead of being hard-deleted.
	_, err = IndexFile(db, "proj1", "widget.go", []byte(goFixture))
	require.NoError(t, err)

	nodes, err := store.GetNodesByFile(db, "proj1", "widget.go")
	require.NoError(t, err)
	for _, n := range nodes {
		require.Nil(t, n.StaleAt)
	}
}

func TestIndexFileSkipsUnknownExtension(t *testing.T) {
	db := setupIndexerTestDB(t)

	res, err := IndexFile(db, "proj1", "README.md", []byte("# hi"))
	require.NoError(t, err)
	require.True(t, res.Skipped)
}

func TestIndexFileRemovesStaleSymbolsAfterEdit(t *testing.T) {
	db := setupIndexerTestDB(t)

	_, err := IndexFile(db, "proj1", "widget.go", []byte(goFixture))
	require.NoError(t, err)

	trimmed := `package widget

func describe() string {
	return "widget"
}
`
	_, err = IndexFile(db, "proj1", "widget.go", []byte(trimmed))
	require.NoError(t, err)

	nodes, err := store.GetNodesByFile(db, "proj1", "widget.go")
	require.NoError(t, err)
	for _, n := range nodes {
		require.NotEqual(t, "widget.go:Widget", n.Label)
	}
}
