package observer

import (
	"sort"

	"github.com/dotcommander/memengine/internal/models"
)

// SessionOutcome is the terminal state a session finalizes with.
type SessionOutcome string

const (
	OutcomeSuccess   SessionOutcome = "success"
	OutcomePartial   SessionOutcome = "partial"
	OutcomeFailure   SessionOutcome = "failure"
	OutcomeAbandoned SessionOutcome = "abandoned"
)

// SessionType gates the final promotion cap, spec.md section 4.4.4.
type SessionType string

const (
	SessionBuild        SessionType = "build"
	SessionPRReview      SessionType = "pr_review"
	SessionInsights     SessionType = "insights"
	SessionRoadmap      SessionType = "roadmap"
	SessionTerminal     SessionType = "terminal"
	SessionSpecCreation SessionType = "spec_creation"
	SessionChangelog    SessionType = "changelog"
)

var sessionTypeCaps = map[SessionType]int{
	SessionBuild:        20,
	SessionPRReview:      8,
	SessionInsights:     5,
	SessionRoadmap:      3,
	SessionTerminal:     3,
	SessionSpecCreation: 3,
	SessionChangelog:    0,
}

// sessionCap returns the max-promoted cap for a session type, defaulting to
// the most conservative cap (terminal's 3) for an unrecognized type.
func sessionCap(t SessionType) int {
	if cap, ok := sessionTypeCaps[t]; ok {
		return cap
	}
	return 3
}

// finalizeProducers synthesizes the candidates derived from accumulated
// session-wide counters (as opposed to the acute, single-shot candidates
// pushed during the stream), per spec.md section 4.4.4's "Finalize
// producers" clause.
func (s *Scratchpad) finalizeProducers() []Candidate {
	var out []Candidate

	seen := make(map[[2]string]bool)
	for pair := range s.coAccess {
		a, b := pair[0], pair[1]
		key := pair
		if a > b {
			key = [2]string{b, a}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Candidate{
			SignalKind:   models.SignalCoAccess,
			ProposedType: models.MemoryKindPrefetchPattern,
			Confidence:   0.65,
			Priority:     0.91,
			RelatedFiles: []string{key[0], key[1]},
		})
	}

	for fp, count := range s.errorFPs {
		if count < 2 {
			continue
		}
		conf := 0.6 + minF(0.3, float64(count)*0.05)
		out = append(out, Candidate{
			SignalKind:   models.SignalErrorRetry,
			ProposedType: models.MemoryKindErrorPattern,
			Confidence:   conf,
			Priority:     0.85,
			Content:      fp,
		})
	}

	for pattern, count := range s.grepCounts {
		if count < 3 {
			continue
		}
		conf := 0.55 + minF(0.3, float64(count)*0.04)
		out = append(out, Candidate{
			SignalKind:   models.SignalRepeatedGrep,
			ProposedType: models.MemoryKindModuleInsight,
			Confidence:   conf,
			Priority:     0.76,
			Content:      pattern,
		})
	}

	return out
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Finalize runs the 5-stage Promotion Pipeline (spec.md section 4.4.4)
// against the acute candidates accumulated on-stream plus the finalize
// producers derived from session counters, returning the final ordered,
// capped list of candidates to persist. priorSessionCounts may be nil, in
// which case stage 2 (frequency filter) passes every candidate through.
func (s *Scratchpad) Finalize(sessionType SessionType, outcome SessionOutcome, priorSessionCounts map[models.SignalKind]int) []Candidate {
	if sessionType == SessionChangelog {
		return nil
	}

	candidates := make([]Candidate, 0, len(s.acuteCandidates)+8)
	candidates = append(candidates, s.acuteCandidates...)
	candidates = append(candidates, s.finalizeProducers()...)

	// Stage 1 — Validation filter.
	candidates = stageValidation(candidates, outcome)

	// Stage 2 — Frequency filter.
	candidates = stageFrequency(candidates, priorSessionCounts)

	// Stage 3 — Novelty filter.
	candidates = stageNovelty(candidates)

	// Stage 4 — Trust Gate.
	for i, c := range candidates {
		candidates[i] = applyTrustGate(c, s.externalToolCallStep)
	}

	// Stage 5 — Scoring, sort, cap.
	return stageScoringAndCap(candidates, sessionCap(sessionType))
}

func stageValidation(candidates []Candidate, outcome SessionOutcome) []Candidate {
	if outcome == OutcomeSuccess || outcome == OutcomePartial {
		return candidates
	}
	out := candidates[:0:0]
	for _, c := range candidates {
		if c.ProposedType == models.MemoryKindDeadEnd {
			out = append(out, c)
		}
	}
	return out
}

func stageFrequency(candidates []Candidate, priorSessionCounts map[models.SignalKind]int) []Candidate {
	if priorSessionCounts == nil {
		return candidates
	}
	out := candidates[:0:0]
	for _, c := range candidates {
		if priorSessionCounts[c.SignalKind] >= models.SignalMinSessions(c.SignalKind) {
			out = append(out, c)
		}
	}
	return out
}

func stageNovelty(candidates []Candidate) []Candidate {
	out := candidates[:0:0]
	for _, c := range candidates {
		if c.Confidence >= 0.2 {
			out = append(out, c)
		}
	}
	return out
}

func stageScoringAndCap(candidates []Candidate, cap int) []Candidate {
	scored := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		signalScore := models.SignalScore(c.SignalKind)
		if signalScore < 0.4 {
			continue
		}
		c.Priority = 0.6*c.Priority + 0.4*signalScore
		c.Confidence = minF(1.0, c.Confidence*signalScore+0.1)
		scored = append(scored, c)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Priority > scored[j].Priority
	})
	if cap >= 0 && len(scored) > cap {
		scored = scored[:cap]
	}
	return scored
}
