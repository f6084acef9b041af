package retrieval

import "sort"

// RankedList is one candidate-generation path's ordered output: memory ids
// best-first, regardless of the underlying score's sign or units.
type RankedList struct {
	Path   string
	Weight float64
	IDs    []string
}

// Fused is one memory's fused score after weighted Reciprocal Rank Fusion,
// spec.md section 4.5.3.
type Fused struct {
	MemoryID string
	Score    float64
	Sources  map[string]bool
}

// WeightedRRF combines ranked lists by summing, for each id at 0-based rank
// r in a path weighted w, the contribution w / (k + r + 1). Order-invariant
// in the paths argument and monotonic: adding a path never decreases any
// existing memory's score (testable properties 5 in spec.md section 8).
func WeightedRRF(paths []RankedList, k int) []Fused {
	if k <= 0 {
		k = 60
	}
	scores := make(map[string]float64)
	sources := make(map[string]map[string]bool)
	order := make([]string, 0)

	for _, p := range paths {
		for r, id := range p.IDs {
			if _, seen := scores[id]; !seen {
				order = append(order, id)
				sources[id] = make(map[string]bool)
			}
			scores[id] += p.Weight / float64(k+r+1)
			sources[id][p.Path] = true
		}
	}

	out := make([]Fused, 0, len(order))
	for _, id := range order {
		out = append(out, Fused{MemoryID: id, Score: scores[id], Sources: sources[id]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
