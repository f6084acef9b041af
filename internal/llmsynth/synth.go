// Package llmsynth implements stage 6 of the Finalization & Promotion
// Pipeline (spec.md section 4.4.4): turning a finalized batch of memory
// candidates into short, polished memory notes. It is caller-owned,
// not part of the Observer's synchronous critical path — a command invokes
// it once per session after Finalize returns, before batch-embedding
// (stage 7) and writing to the store (stage 8).
package llmsynth

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dotcommander/memengine/internal/llm"
	"github.com/dotcommander/memengine/internal/observer"
)

// Synthesizer turns one session's surviving candidates into synthesized
// content, one string per candidate, in the same order.
type Synthesizer interface {
	Synthesize(ctx context.Context, candidates []observer.Candidate) ([]string, error)
}

// New picks a synthesizer the same way embedprovider.New picks an embedding
// provider: prefer the direct Anthropic API when an API key is configured,
// fall back to the CLI runner the teacher used (`claude -p` / `opencode
// run`), and fall back further to a passthrough that returns each
// candidate's raw content unchanged rather than fail stage 6 outright —
// synthesis is an enrichment, not a requirement for a candidate to be
// promoted.
func New(agentName string) Synthesizer {
	if strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")) != "" {
		return &AnthropicSynthesizer{Model: "claude-3-5-haiku-latest"}
	}
	if runner, err := llm.NewRunner(agentName); err == nil {
		return &CLISynthesizer{runner: runner}
	}
	return PassthroughSynthesizer{}
}

// PassthroughSynthesizer returns each candidate's Content unchanged. Used
// when no LLM is configured or reachable.
type PassthroughSynthesizer struct{}

func (PassthroughSynthesizer) Synthesize(_ context.Context, candidates []observer.Candidate) ([]string, error) {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Content
	}
	return out, nil
}

// CLISynthesizer generalizes the teacher's Runner: instead of an
// extraction prompt it builds a memory-writing prompt per candidate and
// parses the CLI's text response as the synthesized content.
type CLISynthesizer struct {
	runner *llm.Runner
}

func (s *CLISynthesizer) Synthesize(ctx context.Context, candidates []observer.Candidate) ([]string, error) {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		text, err := s.runner.Extract(ctx, synthesisPrompt(c))
		if err != nil {
			// One candidate's LLM call failing must not drop the whole
			// batch: degrade that candidate to its raw content.
			out[i] = c.Content
			continue
		}
		out[i] = text
	}
	return out, nil
}

// synthesisPrompt builds the stage-6 prompt: compress a candidate's
// observed signal (matched fragment, related files, proposed kind) into a
// single durable memory sentence or two, in the register spec.md section
// 3.1 expects of stored content.
func synthesisPrompt(c observer.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write one or two sentences of durable technical memory, kind=%s.\n", c.ProposedType)
	fmt.Fprintf(&b, "Observed signal: %s\n", c.MatchedFragment)
	if len(c.RelatedFiles) > 0 {
		fmt.Fprintf(&b, "Related files: %s\n", strings.Join(c.RelatedFiles, ", "))
	}
	b.WriteString("Raw note: ")
	b.WriteString(c.Content)
	b.WriteString("\nRespond with only the memory text, no preamble.")
	return b.String()
}
