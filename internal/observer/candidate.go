package observer

import "github.com/dotcommander/memengine/internal/models"

// Candidate is a single proposed memory, either pushed acutely during the
// session (self_correction, backtrack) or synthesized at finalization
// (co_access, error_retry, repeated_grep).
type Candidate struct {
	SignalKind      models.SignalKind
	ProposedType    models.MemoryKind
	Confidence      float64
	Priority        float64
	OriginatingStep int
	RelatedFiles    []string
	Content         string
	MatchedFragment string
	NeedsReview     bool
	TrustFlags      map[string]any
}

// applyTrustGate is a pure function (spec.md section 4.4.3): candidates
// originating strictly after the session's first external-tool-call step
// are flagged needs_review and have their confidence reduced by 0.7. The
// input is never mutated; same-step candidates are returned unchanged.
func applyTrustGate(c Candidate, externalToolCallStep *int) Candidate {
	if externalToolCallStep == nil || c.OriginatingStep <= *externalToolCallStep {
		return c
	}
	out := c
	out.NeedsReview = true
	out.Confidence = c.Confidence * 0.7
	flags := make(map[string]any, len(c.TrustFlags)+2)
	for k, v := range c.TrustFlags {
		flags[k] = v
	}
	flags["contaminated"] = true
	flags["source"] = "web_fetch"
	out.TrustFlags = flags
	return out
}
