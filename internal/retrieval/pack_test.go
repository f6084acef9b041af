package retrieval

import (
	"strings"
	"testing"

	"github.com/dotcommander/memengine/internal/models"
)

func TestPackContext_FirstMemoryAlwaysFits(t *testing.T) {
	m := &models.Memory{ID: "m1", Kind: models.MemoryKindGotcha, Content: "short content", Confidence: 0.9}
	out := PackContext([]*models.Memory{m}, PhaseImplement, 0)
	if !strings.Contains(out, "short content") {
		t.Fatalf("expected first memory in output, got %q", out)
	}
}

func TestPackContext_KindSliceIsOrderingHintNotHardCap(t *testing.T) {
	m := &models.Memory{
		ID:         "m1",
		Kind:       models.MemoryKindGotcha,
		Content:    strings.Repeat("x", 2000),
		Confidence: 0.9,
	}
	// gotcha's PhaseImplement allocation fraction is 0.30. Pick an overall
	// budget just above this memory's actual cost, so its nominal kind
	// slice (0.30 of that budget) is well under the memory's cost even
	// though the memory comfortably fits the true overall budget.
	blockCost := estimateTokens(formatMemory(m))
	override := blockCost + 50

	out := PackContext([]*models.Memory{m}, PhaseImplement, override)
	if !strings.Contains(out, strings.Repeat("x", 100)) {
		t.Fatalf("expected memory to appear when it fits the overall %d-token budget even though it exceeds its kind's nominal slice, got %q", override, out)
	}
}

func TestPackContext_NeverExceedsTripleBudget(t *testing.T) {
	var memories []*models.Memory
	for i := 0; i < 50; i++ {
		memories = append(memories, &models.Memory{
			ID:         "m" + string(rune('a'+i)),
			Kind:       models.MemoryKindGotcha,
			Content:    strings.Repeat("x", 400),
			Confidence: 0.9,
		})
	}
	budget := DefaultPhaseBudgets[PhaseImplement]
	out := PackContext(memories, PhaseImplement, 0)
	if estimateTokens(out) > 3*budget {
		t.Fatalf("packed context exceeds 3x budget: %d tokens > %d", estimateTokens(out), 3*budget)
	}
}

func TestPackContext_NearDuplicateSuppressed(t *testing.T) {
	m1 := &models.Memory{ID: "m1", Kind: models.MemoryKindGotcha, Content: "the database connection pool leaks under load", Confidence: 0.9}
	m2 := &models.Memory{ID: "m2", Kind: models.MemoryKindGotcha, Content: "the database connection pool leaks under load!", Confidence: 0.9}
	out := PackContext([]*models.Memory{m1, m2}, PhaseImplement, 0)
	count := strings.Count(out, "connection pool leaks")
	if count != 1 {
		t.Fatalf("expected near-duplicate suppression to keep one occurrence, got %d", count)
	}
}
