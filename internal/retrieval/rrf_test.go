package retrieval

import "testing"

// TestWeightedRRF_S5 reproduces spec.md section 8 scenario S5: m2 should
// rank first because it appears in both the FTS and Dense paths at a high
// combined rank.
func TestWeightedRRF_S5(t *testing.T) {
	paths := []RankedList{
		{Path: "fts", Weight: 0.5, IDs: []string{"m1", "m2", "m3"}},
		{Path: "dense", Weight: 0.3, IDs: []string{"m2", "m3", "m4"}},
		{Path: "graph", Weight: 0.2, IDs: []string{"m4"}},
	}
	fused := WeightedRRF(paths, 60)
	if len(fused) == 0 || fused[0].MemoryID != "m2" {
		t.Fatalf("expected m2 to rank first, got %+v", fused)
	}
}

func TestWeightedRRF_OrderInvariant(t *testing.T) {
	a := []RankedList{
		{Path: "fts", Weight: 0.5, IDs: []string{"m1", "m2"}},
		{Path: "dense", Weight: 0.5, IDs: []string{"m2", "m3"}},
	}
	b := []RankedList{a[1], a[0]}

	fa := WeightedRRF(a, 60)
	fb := WeightedRRF(b, 60)

	scoreA := map[string]float64{}
	for _, f := range fa {
		scoreA[f.MemoryID] = f.Score
	}
	for _, f := range fb {
		if scoreA[f.MemoryID] != f.Score {
			t.Errorf("order dependence detected for %s: %f vs %f", f.MemoryID, scoreA[f.MemoryID], f.Score)
		}
	}
}

func TestWeightedRRF_MonotonicOnAddingPath(t *testing.T) {
	before := []RankedList{
		{Path: "fts", Weight: 0.5, IDs: []string{"m1", "m2"}},
	}
	after := append(before, RankedList{Path: "dense", Weight: 0.5, IDs: []string{"m1"}})

	fb := WeightedRRF(before, 60)
	fa := WeightedRRF(after, 60)

	scoreBefore := map[string]float64{}
	for _, f := range fb {
		scoreBefore[f.MemoryID] = f.Score
	}
	for _, f := range fa {
		if f.Score < scoreBefore[f.MemoryID]-1e-9 {
			t.Errorf("adding a path decreased score for %s: %f -> %f", f.MemoryID, scoreBefore[f.MemoryID], f.Score)
		}
	}
}
