package llmsynth

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dotcommander/memengine/internal/observer"
)

// maxSynthesisTokens bounds one candidate's synthesized memory to a short
// durable note, not a long-form writeup.
const maxSynthesisTokens = 200

// AnthropicSynthesizer calls the Anthropic Messages API directly, for a
// caller that has ANTHROPIC_API_KEY configured and would rather not shell
// out to a CLI tool per candidate.
type AnthropicSynthesizer struct {
	Model string
}

func (s *AnthropicSynthesizer) Synthesize(ctx context.Context, candidates []observer.Candidate) ([]string, error) {
	client := anthropic.NewClient(option.WithEnvironmentVariables())

	out := make([]string, len(candidates))
	for i, c := range candidates {
		msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(s.Model),
			MaxTokens: maxSynthesisTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(synthesisPrompt(c))),
			},
		})
		if err != nil {
			// A failed candidate degrades to its raw content rather than
			// drop the whole batch, matching CLISynthesizer's behavior.
			out[i] = c.Content
			continue
		}
		out[i] = extractText(msg)
	}
	return out, nil
}

func extractText(msg *anthropic.Message) string {
	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text
		}
	}
	return ""
}
