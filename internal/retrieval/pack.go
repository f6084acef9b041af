package retrieval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/dotcommander/memengine/internal/models"
)

// Phase is the universal agent phase a retrieval is packed for, per
// spec.md's Glossary and section 4.5.6.
type Phase string

const (
	PhaseDefine    Phase = "define"
	PhaseImplement Phase = "implement"
	PhaseValidate  Phase = "validate"
	PhaseRefine    Phase = "refine"
	PhaseExplore   Phase = "explore"
	PhaseReflect   Phase = "reflect"
)

// DefaultPhaseBudgets are the token budgets per phase, spec.md section 4.5.6.
var DefaultPhaseBudgets = map[Phase]int{
	PhaseDefine:    2500,
	PhaseImplement: 3000,
	PhaseValidate:  2500,
	PhaseRefine:    2000,
	PhaseExplore:   2000,
	PhaseReflect:   1500,
}

// phaseKindAllocations is each phase's fractional token allocation per
// memory kind; entries sum to <= 1.0. Kinds absent from a phase's map are
// packed last, after every allocated kind is satisfied.
var phaseKindAllocations = map[Phase]map[models.MemoryKind]float64{
	PhaseDefine: {
		models.MemoryKindRequirement: 0.35,
		models.MemoryKindDecision:    0.25,
		models.MemoryKindPreference:  0.15,
		models.MemoryKindPattern:     0.15,
	},
	PhaseImplement: {
		models.MemoryKindGotcha:        0.30,
		models.MemoryKindPattern:       0.25,
		models.MemoryKindErrorPattern:  0.20,
		models.MemoryKindModuleInsight: 0.15,
	},
	PhaseValidate: {
		models.MemoryKindE2EObservation: 0.35,
		models.MemoryKindErrorPattern:   0.30,
		models.MemoryKindDeadEnd:        0.15,
	},
	PhaseRefine: {
		models.MemoryKindPattern:        0.30,
		models.MemoryKindTaskCalibration: 0.25,
		models.MemoryKindWorkflowRecipe:  0.20,
	},
	PhaseExplore: {
		models.MemoryKindModuleInsight:    0.30,
		models.MemoryKindCausalDependency: 0.25,
		models.MemoryKindPrefetchPattern:  0.20,
	},
	PhaseReflect: {
		models.MemoryKindWorkUnitOutcome: 0.35,
		models.MemoryKindDecision:        0.25,
		models.MemoryKindTaskCalibration: 0.20,
	},
}

// nearDuplicateThreshold is the Jaro-Winkler similarity above which two
// memories' content counts as a near-duplicate for packing purposes; only
// the first (higher-ranked) one wins.
const nearDuplicateThreshold = 0.93

// estimateTokens is the ceil(chars/4) heuristic from spec.md section 4.5.6.
func estimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return (len(s) + 3) / 4
}

// formatMemory renders one memory's block: a header line, a short
// file-context tag, a confidence-warning tag if confidence < 0.7, and an
// optional citation label of <= 40 chars.
func formatMemory(m *models.Memory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", m.Kind, truncate(m.Content, 500))
	if f := m.PrimaryFile(); f != "" {
		fmt.Fprintf(&b, "  file: %s\n", f)
	}
	if m.Confidence < 0.7 {
		b.WriteString("  (low confidence, verify before relying on this)\n")
	}
	if citation := citationLabel(m); citation != "" {
		fmt.Fprintf(&b, "  ref: %s\n", citation)
	}
	return b.String()
}

func citationLabel(m *models.Memory) string {
	label := m.PrimaryFile()
	if label == "" {
		label = string(m.ID)
	}
	return truncate(label, 40)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// PackContext packs ordered reranked memories into a single textual context
// string bounded by phase's token budget, per spec.md section 4.5.6:
// per-kind allocation, near-duplicate suppression, truncation at memory
// boundaries only. A kind's fractional allocation only decides the order
// kinds are considered in (higher-fraction kinds get first claim on the
// budget); admission is always decided against the true remaining overall
// budget, so a single oversized memory in a low-fraction kind is never
// dropped just because it alone exceeds that kind's nominal slice while
// still fitting comfortably in the phase budget.
func PackContext(memories []*models.Memory, phase Phase, budgetOverride int) string {
	budget := budgetOverride
	if budget <= 0 {
		budget = DefaultPhaseBudgets[phase]
	}
	if budget <= 0 {
		budget = 2000
	}
	allocations := phaseKindAllocations[phase]

	deduped := suppressNearDuplicates(memories)
	allocated, unallocated := splitByAllocation(deduped, allocations)

	var b strings.Builder
	b.WriteString("## Relevant memory context\n\n")
	used := estimateTokens(b.String())

	pack := func(list []*models.Memory) {
		for _, m := range list {
			block := formatMemory(m)
			cost := estimateTokens(block)
			if used+cost > budget {
				continue
			}
			b.WriteString(block)
			used += cost
		}
	}

	kinds := make([]models.MemoryKind, 0, len(allocations))
	for kind := range allocations {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return allocations[kinds[i]] > allocations[kinds[j]] })

	for _, kind := range kinds {
		pack(allocated[kind])
	}
	pack(unallocated)

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func splitByAllocation(memories []*models.Memory, allocations map[models.MemoryKind]float64) (map[models.MemoryKind][]*models.Memory, []*models.Memory) {
	allocated := make(map[models.MemoryKind][]*models.Memory)
	var unallocated []*models.Memory
	for _, m := range memories {
		if _, ok := allocations[m.Kind]; ok {
			allocated[m.Kind] = append(allocated[m.Kind], m)
		} else {
			unallocated = append(unallocated, m)
		}
	}
	return allocated, unallocated
}

// suppressNearDuplicates keeps only the first occurrence of any pair of
// memories whose content Jaro-Winkler similarity exceeds
// nearDuplicateThreshold, preserving input order.
func suppressNearDuplicates(memories []*models.Memory) []*models.Memory {
	var kept []*models.Memory
	for _, m := range memories {
		dup := false
		for _, k := range kept {
			if matchr.JaroWinkler(m.Content, k.Content, false) > nearDuplicateThreshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, m)
		}
	}
	return kept
}
