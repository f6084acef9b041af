package models

// MemoryKind is one of the 16 closed memory kinds.
type MemoryKind string

// The 16 memory kinds. Each has a default decay half-life in days; Infinity
// (HalfLifeInfinite, -1, treated specially) means the kind never decays by
// age alone.
const (
	MemoryKindGotcha             MemoryKind = "gotcha"
	MemoryKindDecision           MemoryKind = "decision"
	MemoryKindPreference         MemoryKind = "preference"
	MemoryKindPattern            MemoryKind = "pattern"
	MemoryKindRequirement        MemoryKind = "requirement"
	MemoryKindErrorPattern       MemoryKind = "error_pattern"
	MemoryKindModuleInsight      MemoryKind = "module_insight"
	MemoryKindPrefetchPattern    MemoryKind = "prefetch_pattern"
	MemoryKindWorkState          MemoryKind = "work_state"
	MemoryKindCausalDependency   MemoryKind = "causal_dependency"
	MemoryKindTaskCalibration    MemoryKind = "task_calibration"
	MemoryKindE2EObservation     MemoryKind = "e2e_observation"
	MemoryKindDeadEnd            MemoryKind = "dead_end"
	MemoryKindWorkUnitOutcome    MemoryKind = "work_unit_outcome"
	MemoryKindWorkflowRecipe     MemoryKind = "workflow_recipe"
	MemoryKindContextCost        MemoryKind = "context_cost"
)

// HalfLifeInfinite marks a kind that never decays by age (pinned by
// definition of its kind, e.g. decisions).
const HalfLifeInfinite = -1

// MemoryKindInfo describes the static properties of a memory kind.
type MemoryKindInfo struct {
	Kind            MemoryKind
	DecayHalfLifeDays int // HalfLifeInfinite for kinds that never decay by age
}

// memoryKindTable is the authoritative table of default decay half-lives for
// well-known kinds.
var memoryKindTable = []MemoryKindInfo{
	{MemoryKindGotcha, 60},
	{MemoryKindDecision, HalfLifeInfinite},
	{MemoryKindPreference, HalfLifeInfinite},
	{MemoryKindPattern, 90},
	{MemoryKindRequirement, HalfLifeInfinite},
	{MemoryKindErrorPattern, 45},
	{MemoryKindModuleInsight, 90},
	{MemoryKindPrefetchPattern, 30},
	{MemoryKindWorkState, 7},
	{MemoryKindCausalDependency, 120},
	{MemoryKindTaskCalibration, 30},
	{MemoryKindE2EObservation, 45},
	{MemoryKindDeadEnd, 60},
	{MemoryKindWorkUnitOutcome, 30},
	{MemoryKindWorkflowRecipe, 120},
	{MemoryKindContextCost, 14},
}

var memoryKindIndex = func() map[MemoryKind]MemoryKindInfo {
	m := make(map[MemoryKind]MemoryKindInfo, len(memoryKindTable))
	for _, info := range memoryKindTable {
		m[info.Kind] = info
	}
	return m
}()

// DecayHalfLifeDays returns the default decay half-life for kind, or 30 days
// for an unrecognized kind.
func DecayHalfLifeDays(kind MemoryKind) int {
	if info, ok := memoryKindIndex[kind]; ok {
		return info.DecayHalfLifeDays
	}
	return 30
}

// ValidMemoryKind reports whether kind is one of the 16 closed enumerants.
func ValidMemoryKind(kind string) bool {
	_, ok := memoryKindIndex[MemoryKind(kind)]
	return ok
}

// AllMemoryKinds returns all 16 memory kinds in table order.
func AllMemoryKinds() []MemoryKind {
	out := make([]MemoryKind, len(memoryKindTable))
	for i, info := range memoryKindTable {
		out[i] = info.Kind
	}
	return out
}
