package inject

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/memengine/internal/models"
	"github.com/dotcommander/memengine/internal/observer"
	"github.com/dotcommander/memengine/internal/store"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	tempDir := t.TempDir()
	db, err := store.InitDBWithPath(tempDir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEvaluate_BelowWarmup_NoInjection(t *testing.T) {
	db := setupTestDB(t)
	b := NewBridge(db, "p1", nil)

	inj, err := b.Evaluate(context.Background(), WarmupSteps-1, nil)
	require.NoError(t, err)
	require.Nil(t, inj)
}

func TestEvaluate_GotchaInjection(t *testing.T) {
	db := setupTestDB(t)

	_, err := store.UpsertMemory(db, &models.Memory{
		ProjectID:    "p1",
		Kind:         models.MemoryKindGotcha,
		Content:      "this handler leaks file descriptors under load",
		Confidence:   0.9,
		RelatedFiles: []string{"internal/server/handler.go"},
		Scope:        models.MemoryScopeModule,
		Source:       models.MemorySourceAgentExplicit,
	})
	require.NoError(t, err)

	b := NewBridge(db, "p1", nil)
	window := []ToolCallRecord{
		{Name: "Read", Args: map[string]string{"file_path": "internal/server/handler.go"}, Step: 5},
	}

	inj, err := b.Evaluate(context.Background(), 5, window)
	require.NoError(t, err)
	require.NotNil(t, inj)
	require.Equal(t, KindGotchaInjection, inj.Kind)
	require.Contains(t, inj.Content, "leaks file descriptors")

	// Second call for the same file must not re-inject the same memory.
	inj2, err := b.Evaluate(context.Background(), 6, window)
	require.NoError(t, err)
	require.Nil(t, inj2)
}

func TestEvaluate_ScratchpadReflectionTrigger(t *testing.T) {
	db := setupTestDB(t)
	sp := observer.NewScratchpad("s1", "p1")
	sp.Observe(observer.Reasoning{Text: "Wait, that assumption about the cache TTL was wrong", Step: 3})

	b := NewBridge(db, "p1", sp)
	inj, err := b.Evaluate(context.Background(), WarmupSteps, nil)
	require.NoError(t, err)
	require.NotNil(t, inj)
	require.Equal(t, KindScratchpadReflection, inj.Kind)
}

func TestEvaluate_SearchShortCircuit(t *testing.T) {
	db := setupTestDB(t)
	_, err := store.UpsertMemory(db, &models.Memory{
		ProjectID:  "p1",
		Kind:       models.MemoryKindModuleInsight,
		Content:    "auth middleware lives in internal/auth, not internal/server",
		Confidence: 0.8,
		Tags:       []string{"authMiddleware"},
		Scope:      models.MemoryScopeModule,
		Source:     models.MemorySourceAgentExplicit,
	})
	require.NoError(t, err)

	b := NewBridge(db, "p1", nil)
	window := []ToolCallRecord{
		{Name: "Grep", Args: map[string]string{"pattern": "authMiddleware"}, Step: 5},
	}

	inj, err := b.Evaluate(context.Background(), WarmupSteps, window)
	require.NoError(t, err)
	require.NotNil(t, inj)
	require.Equal(t, KindSearchShortCircuit, inj.Kind)
}

func TestEvaluate_TriggerOrder_GotchaWinsOverSearch(t *testing.T) {
	db := setupTestDB(t)
	_, err := store.UpsertMemory(db, &models.Memory{
		ProjectID:    "p1",
		Kind:         models.MemoryKindGotcha,
		Content:      "retry loop here needs jitter",
		Confidence:   0.9,
		RelatedFiles: []string{"a.go"},
		Scope:        models.MemoryScopeModule,
		Source:       models.MemorySourceAgentExplicit,
	})
	require.NoError(t, err)
	_, err = store.UpsertMemory(db, &models.Memory{
		ProjectID:  "p1",
		Kind:       models.MemoryKindModuleInsight,
		Content:    "search target content",
		Confidence: 0.8,
		Tags:       []string{"needle"},
		Scope:      models.MemoryScopeModule,
		Source:     models.MemorySourceAgentExplicit,
	})
	require.NoError(t, err)

	b := NewBridge(db, "p1", nil)
	window := []ToolCallRecord{
		{Name: "Read", Args: map[string]string{"file_path": "a.go"}, Step: 5},
		{Name: "Grep", Args: map[string]string{"pattern": "needle"}, Step: 5},
	}

	inj, err := b.Evaluate(context.Background(), WarmupSteps, window)
	require.NoError(t, err)
	require.NotNil(t, inj)
	require.Equal(t, KindGotchaInjection, inj.Kind)
}
