package llmsynth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/memengine/internal/models"
	"github.com/dotcommander/memengine/internal/observer"
)

func TestPassthroughSynthesizer_ReturnsContentUnchanged(t *testing.T) {
	candidates := []observer.Candidate{
		{ProposedType: models.MemoryKindGotcha, Content: "retries need jitter"},
		{ProposedType: models.MemoryKindErrorPattern, Content: "nil pointer on empty config"},
	}

	out, err := PassthroughSynthesizer{}.Synthesize(context.Background(), candidates)
	require.NoError(t, err)
	require.Equal(t, []string{"retries need jitter", "nil pointer on empty config"}, out)
}

func TestSynthesisPrompt_IncludesRelatedFilesAndKind(t *testing.T) {
	c := observer.Candidate{
		ProposedType:    models.MemoryKindGotcha,
		MatchedFragment: "Wait, the pool was leaking",
		RelatedFiles:    []string{"internal/pool/pool.go"},
		Content:         "connection pool leaks under load",
	}

	prompt := synthesisPrompt(c)
	require.Contains(t, prompt, string(models.MemoryKindGotcha))
	require.Contains(t, prompt, "internal/pool/pool.go")
	require.Contains(t, prompt, "connection pool leaks under load")
}

func TestNew_NoAPIKeyNoCLI_FallsBackToPassthrough(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("MEMENGINE_DISABLE_EXTERNAL_LLM", "1")

	s := New("claude")
	_, ok := s.(PassthroughSynthesizer)
	require.True(t, ok)
}
