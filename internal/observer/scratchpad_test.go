package observer

import (
	"testing"

	"github.com/dotcommander/memengine/internal/models"
	"github.com/stretchr/testify/require"
)

func TestTrustGateBoundary(t *testing.T) {
	step := 10
	c := Candidate{OriginatingStep: 10, Confidence: 0.8}

	same := applyTrustGate(c, &step)
	require.False(t, same.NeedsReview)
	require.Equal(t, 0.8, same.Confidence)

	earlier := 9
	after := applyTrustGate(c, &earlier)
	require.True(t, after.NeedsReview)
	require.InDelta(t, 0.56, after.Confidence, 0.0001)
	require.Equal(t, true, after.TrustFlags["contaminated"])

	require.False(t, c.NeedsReview, "input must not be mutated")
}

func TestErrorFingerprintStability(t *testing.T) {
	a := computeErrorFingerprint("Error: Cannot find module './auth' in /home/alice/project/src/main.ts:42")
	b := computeErrorFingerprint("Error: Cannot find module './auth' in /home/bob/other/src/main.ts:99")
	require.Equal(t, a, b)
	require.Len(t, a, 16)

	c := computeErrorFingerprint("TypeError: undefined is not a function")
	require.NotEqual(t, a, c)
}

func TestCoAccessWindow(t *testing.T) {
	sp := NewScratchpad("sess1", "proj1")
	sp.Observe(ToolCall{Name: "Read", Args: map[string]string{"file_path": "/a"}, Step: 1})
	sp.Observe(ToolCall{Name: "Read", Args: map[string]string{"file_path": "/b"}, Step: 3})

	require.True(t, sp.coAccess[[2]string{"/b", "/a"}])

	sp.Observe(ToolCall{Name: "Read", Args: map[string]string{"file_path": "/c"}, Step: 10})
	require.False(t, sp.coAccess[[2]string{"/c", "/a"}])
	require.False(t, sp.coAccess[[2]string{"/a", "/c"}])
}

func TestFailedSessionOnlyDeadEndSurvives(t *testing.T) {
	sp := NewScratchpad("sess1", "proj1")
	sp.acuteCandidates = []Candidate{
		{SignalKind: models.SignalSelfCorrection, ProposedType: models.MemoryKindGotcha, Confidence: 0.8, Priority: 0.9},
		{SignalKind: models.SignalBacktrack, ProposedType: models.MemoryKindDeadEnd, Confidence: 0.7, Priority: 0.68},
		{SignalKind: models.SignalErrorRetry, ProposedType: models.MemoryKindErrorPattern, Confidence: 0.6, Priority: 0.85},
	}

	result := sp.Finalize(SessionBuild, OutcomeFailure, nil)
	require.LessOrEqual(t, len(result), 1)
	for _, c := range result {
		require.Equal(t, models.MemoryKindDeadEnd, c.ProposedType)
	}
}

func TestChangelogSessionShortCircuits(t *testing.T) {
	sp := NewScratchpad("sess1", "proj1")
	sp.acuteCandidates = []Candidate{
		{SignalKind: models.SignalSelfCorrection, ProposedType: models.MemoryKindGotcha, Confidence: 0.9, Priority: 0.9},
	}
	result := sp.Finalize(SessionChangelog, OutcomeSuccess, nil)
	require.Empty(t, result)
}

func TestFinalizeProducersCoAccessAndErrorRetry(t *testing.T) {
	sp := NewScratchpad("sess1", "proj1")
	sp.Observe(ToolCall{Name: "Read", Args: map[string]string{"file_path": "/a"}, Step: 1})
	sp.Observe(ToolCall{Name: "Read", Args: map[string]string{"file_path": "/b"}, Step: 2})
	sp.Observe(ToolResult{Name: "Bash", Result: "Error: something broke", Step: 3})
	sp.Observe(ToolResult{Name: "Bash", Result: "Error: something broke", Step: 4})

	result := sp.Finalize(SessionBuild, OutcomeSuccess, nil)

	var hasCoAccess, hasErrorRetry bool
	for _, c := range result {
		switch c.ProposedType {
		case models.MemoryKindPrefetchPattern:
			hasCoAccess = true
		case models.MemoryKindErrorPattern:
			hasErrorRetry = true
		}
	}
	require.True(t, hasCoAccess)
	require.True(t, hasErrorRetry)
}

func TestRecentToolsRingBuffer(t *testing.T) {
	sp := NewScratchpad("sess1", "proj1")
	for i, name := range []string{"Read", "Edit", "Bash", "Grep", "Write", "Read", "Edit", "Bash", "Grep", "Write"} {
		sp.Observe(ToolCall{Name: name, Step: i})
	}
	recent := sp.RecentTools(3)
	require.Equal(t, []string{"Bash", "Grep", "Write"}, recent)
}
