package models

// SignalKind is one of the 17 on-stream behavioral signals the Observer
// recognizes.
type SignalKind string

const (
	SignalCoAccess        SignalKind = "co_access"
	SignalSelfCorrection  SignalKind = "self_correction"
	SignalErrorRetry      SignalKind = "error_retry"
	SignalParallelConflict SignalKind = "parallel_conflict"
	SignalReadAbandon     SignalKind = "read_abandon"
	SignalBacktrack       SignalKind = "backtrack"
	SignalRepeatedGrep    SignalKind = "repeated_grep"
	SignalConfigTouch     SignalKind = "config_touch"
	SignalLongToolChain   SignalKind = "long_tool_chain"
	SignalExternalFetch   SignalKind = "external_fetch"
	SignalTestFailLoop    SignalKind = "test_fail_loop"
	SignalFileThrash      SignalKind = "file_thrash"
	SignalLargeDiff       SignalKind = "large_diff"
	SignalSlowStep        SignalKind = "slow_step"
	SignalRepeatedRead    SignalKind = "repeated_read"
	SignalNoopEdit        SignalKind = "noop_edit"
	SignalSessionAbandon  SignalKind = "session_abandon"
)

// SignalKindInfo describes the static prior score and frequency gate for a
// signal kind, per spec.md section 4.4.2.
type SignalKindInfo struct {
	Kind        SignalKind
	PriorScore  float64
	MinSessions int
}

// signalKindTable is the authoritative table of all 17 signal kinds. The top
// five by score are co_access, self_correction, error_retry,
// parallel_conflict, read_abandon, matching spec.md exactly.
var signalKindTable = []SignalKindInfo{
	{SignalCoAccess, 0.91, 2},
	{SignalSelfCorrection, 0.88, 1},
	{SignalErrorRetry, 0.85, 2},
	{SignalParallelConflict, 0.82, 2},
	{SignalReadAbandon, 0.79, 3},
	{SignalBacktrack, 0.68, 2},
	{SignalRepeatedGrep, 0.76, 2},
	{SignalConfigTouch, 0.60, 3},
	{SignalLongToolChain, 0.55, 3},
	{SignalExternalFetch, 0.50, 3},
	{SignalTestFailLoop, 0.72, 2},
	{SignalFileThrash, 0.58, 3},
	{SignalLargeDiff, 0.45, 4},
	{SignalSlowStep, 0.40, 4},
	{SignalRepeatedRead, 0.52, 3},
	{SignalNoopEdit, 0.35, 4},
	{SignalSessionAbandon, 0.62, 2},
}

var signalKindIndex = func() map[SignalKind]SignalKindInfo {
	m := make(map[SignalKind]SignalKindInfo, len(signalKindTable))
	for _, info := range signalKindTable {
		m[info.Kind] = info
	}
	return m
}()

// SignalScore returns the prior score for kind, or 0 if unrecognized.
// Candidates whose signal scores below 0.4 are discarded by the promotion
// pipeline's scoring stage per spec.md section 4.4.2.
func SignalScore(kind SignalKind) float64 {
	return signalKindIndex[kind].PriorScore
}

// SignalMinSessions returns the min_sessions threshold for kind.
func SignalMinSessions(kind SignalKind) int {
	if info, ok := signalKindIndex[kind]; ok {
		return info.MinSessions
	}
	return 1
}

// AllSignalKinds returns all 17 signal kinds in table order.
func AllSignalKinds() []SignalKind {
	out := make([]SignalKind, len(signalKindTable))
	for i, info := range signalKindTable {
		out[i] = info.Kind
	}
	return out
}
