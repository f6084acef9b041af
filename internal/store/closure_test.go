package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/memengine/internal/models"
)

// TestRebuildClosure_SimpleChain mirrors the S1 scenario: A -> B -> C via
// imports edges; descendants of A at depth<=5 are exactly {B@1, C@2}, and at
// depth<=1 exactly {B@1}.
func TestRebuildClosure_SimpleChain(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	a, err := UpsertNode(db, &models.GraphNode{ProjectID: "p1", Kind: models.NodeKindFile, Label: "a.go", FilePath: "a.go", Layer: 1, Source: models.NodeSourceAST, Confidence: models.NodeConfidenceConfirmed})
	require.NoError(t, err)
	b, err := UpsertNode(db, &models.GraphNode{ProjectID: "p1", Kind: models.NodeKindFile, Label: "b.go", FilePath: "b.go", Layer: 1, Source: models.NodeSourceAST, Confidence: models.NodeConfidenceConfirmed})
	require.NoError(t, err)
	c, err := UpsertNode(db, &models.GraphNode{ProjectID: "p1", Kind: models.NodeKindFile, Label: "c.go", FilePath: "c.go", Layer: 1, Source: models.NodeSourceAST, Confidence: models.NodeConfidenceConfirmed})
	require.NoError(t, err)

	_, err = UpsertEdge(db, &models.GraphEdge{ProjectID: "p1", FromID: a, ToID: b, Type: models.EdgeImports, Weight: 1, Confidence: 1})
	require.NoError(t, err)
	_, err = UpsertEdge(db, &models.GraphEdge{ProjectID: "p1", FromID: b, ToID: c, Type: models.EdgeImports, Weight: 1, Confidence: 1})
	require.NoError(t, err)

	require.NoError(t, RebuildClosure(db, "p1"))

	descendants, err := GetDescendants(db, a, 5)
	require.NoError(t, err)
	require.Len(t, descendants, 2)

	byID := make(map[string]*models.ClosureEntry, 2)
	for _, d := range descendants {
		byID[d.DescendantID] = d
	}
	require.Contains(t, byID, b)
	require.Contains(t, byID, c)
	assert.Equal(t, 1, byID[b].Depth)
	assert.Equal(t, 2, byID[c].Depth)

	shallow, err := GetDescendants(db, a, 1)
	require.NoError(t, err)
	require.Len(t, shallow, 1)
	assert.Equal(t, b, shallow[0].DescendantID)
}

func TestRebuildClosure_CycleSafe(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	a, err := UpsertNode(db, &models.GraphNode{ProjectID: "p1", Kind: models.NodeKindFile, Label: "a.go", FilePath: "a.go", Layer: 1, Source: models.NodeSourceAST, Confidence: models.NodeConfidenceConfirmed})
	require.NoError(t, err)
	b, err := UpsertNode(db, &models.GraphNode{ProjectID: "p1", Kind: models.NodeKindFile, Label: "b.go", FilePath: "b.go", Layer: 1, Source: models.NodeSourceAST, Confidence: models.NodeConfidenceConfirmed})
	require.NoError(t, err)

	_, err = UpsertEdge(db, &models.GraphEdge{ProjectID: "p1", FromID: a, ToID: b, Type: models.EdgeImports, Weight: 1, Confidence: 1})
	require.NoError(t, err)
	_, err = UpsertEdge(db, &models.GraphEdge{ProjectID: "p1", FromID: b, ToID: a, Type: models.EdgeImports, Weight: 1, Confidence: 1})
	require.NoError(t, err)

	require.NoError(t, RebuildClosure(db, "p1"))

	descendants, err := GetDescendants(db, a, 5)
	require.NoError(t, err)
	// a -> b (depth 1) only; a -> b -> a would revisit a, which is excluded.
	require.Len(t, descendants, 1)
	assert.Equal(t, b, descendants[0].DescendantID)
}

func TestImpact_UnknownTargetReturnsEmptyResult(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	result, err := Impact(db, "nothing:here", "p1", 5)
	require.NoError(t, err)
	assert.Empty(t, result.TargetNodeID)
}

func TestImpact_DirectAndTransitiveDependents(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	target, err := UpsertNode(db, &models.GraphNode{ProjectID: "p1", Kind: models.NodeKindFunction, Label: "lib.go:Helper", FilePath: "lib.go", Layer: 1, Source: models.NodeSourceAST, Confidence: models.NodeConfidenceConfirmed})
	require.NoError(t, err)
	caller, err := UpsertNode(db, &models.GraphNode{ProjectID: "p1", Kind: models.NodeKindFunction, Label: "main.go:main", FilePath: "main.go", Layer: 1, Source: models.NodeSourceAST, Confidence: models.NodeConfidenceConfirmed})
	require.NoError(t, err)
	transitiveCaller, err := UpsertNode(db, &models.GraphNode{ProjectID: "p1", Kind: models.NodeKindFunction, Label: "cli.go:Run", FilePath: "pkg/test/cli.go", Layer: 1, Source: models.NodeSourceAST, Confidence: models.NodeConfidenceConfirmed})
	require.NoError(t, err)

	_, err = UpsertEdge(db, &models.GraphEdge{ProjectID: "p1", FromID: caller, ToID: target, Type: models.EdgeCalls, Weight: 1, Confidence: 1})
	require.NoError(t, err)
	_, err = UpsertEdge(db, &models.GraphEdge{ProjectID: "p1", FromID: transitiveCaller, ToID: caller, Type: models.EdgeCalls, Weight: 1, Confidence: 1})
	require.NoError(t, err)

	require.NoError(t, RebuildClosure(db, "p1"))

	result, err := Impact(db, "lib.go:Helper", "p1", 5)
	require.NoError(t, err)
	require.Equal(t, target, result.TargetNodeID)
	require.Len(t, result.DirectDependents, 1)
	assert.Equal(t, caller, result.DirectDependents[0].NodeID)
	require.Len(t, result.TransitiveDependents, 1)
	assert.Equal(t, transitiveCaller, result.TransitiveDependents[0].NodeID)
	assert.Contains(t, result.AffectedTests, "pkg/test/cli.go")
}
