package retrieval

import (
	"database/sql"
	"sort"

	"github.com/dotcommander/memengine/internal/models"
	"github.com/dotcommander/memengine/internal/store"
)

// boostTopK and boostWeight are the defaults from spec.md section 4.5.4 /
// section 6.4; callers may override via Options.
const (
	defaultBoostTopK  = 10
	defaultBoostRange = 50
	defaultBoostWeight = 0.3
)

// ApplyGraphNeighborhoodBoost implements spec.md section 4.5.4: after RRF,
// gather the related-file set of the top topK candidates, find their
// depth-1 closure descendants' file paths, then add a bonus to every
// candidate ranked [topK+1, rangeEnd] proportional to how many of its
// related_files fall in that neighbor set. Re-sorts and returns the full
// list. Only file-labeled nodes contribute (spec.md's Open Questions notes
// function-labeled nodes are deliberately excluded).
func ApplyGraphNeighborhoodBoost(db *sql.DB, projectID string, fused []Fused, memsByID map[string]*models.Memory, topK, rangeEnd int, boostWeight float64) []Fused {
	if topK <= 0 {
		topK = defaultBoostTopK
	}
	if rangeEnd <= 0 {
		rangeEnd = defaultBoostRange
	}
	if boostWeight <= 0 {
		boostWeight = defaultBoostWeight
	}
	if len(fused) <= topK {
		return fused
	}

	top := fused[:topK]
	topFiles := make(map[string]bool)
	for _, f := range top {
		if m, ok := memsByID[f.MemoryID]; ok {
			for _, rf := range m.RelatedFiles {
				topFiles[rf] = true
			}
		}
	}
	if len(topFiles) == 0 {
		return fused
	}

	neighborFiles := make(map[string]bool)
	for file := range topFiles {
		nodes, err := store.GetNodesByFile(db, projectID, file)
		if err != nil {
			continue
		}
		for _, n := range nodes {
			if n.Kind != models.NodeKindFile {
				continue
			}
			descendants, err := store.GetDescendants(db, n.ID, 1)
			if err != nil {
				continue
			}
			for _, d := range descendants {
				if d.Depth != 1 {
					continue
				}
				neighbor, err := store.GetNode(db, d.DescendantID)
				if err != nil || neighbor == nil || neighbor.FilePath == "" {
					continue
				}
				neighborFiles[neighbor.FilePath] = true
			}
		}
	}

	denom := float64(len(topFiles))
	if denom < 1 {
		denom = 1
	}

	end := rangeEnd
	if end > len(fused) {
		end = len(fused)
	}
	out := make([]Fused, len(fused))
	copy(out, fused)
	for i := topK; i < end; i++ {
		m, ok := memsByID[out[i].MemoryID]
		if !ok {
			continue
		}
		neighborCount := 0
		for _, rf := range m.RelatedFiles {
			if neighborFiles[rf] {
				neighborCount++
			}
		}
		if neighborCount == 0 {
			continue
		}
		out[i].Score += boostWeight * (float64(neighborCount) / denom)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
