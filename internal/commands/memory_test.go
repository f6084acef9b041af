package commands

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestNewMemoryCmd_HasExpectedSubcommands(t *testing.T) {
	cmd := NewMemoryCmd()
	require.Equal(t, "memory", cmd.Use)

	for _, name := range []string{"record", "get", "touch", "gc", "reembed"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		require.NotNil(t, sub)
		require.Equal(t, name, sub.Name())
	}
}

func TestMemoryRecordCmd_FlagSetup(t *testing.T) {
	cmd := newMemoryRecordCmd()
	requireFlagExists(t, cmd, "kind")
	requireFlagExists(t, cmd, "content")
	requireFlagExists(t, cmd, "confidence")
	requireFlagExists(t, cmd, "scope")
	requireFlagExists(t, cmd, "tags")
	requireFlagExists(t, cmd, "related-files")
	require.Equal(t, "true", cmd.Flag("kind").Annotations[cobra.BashCompOneRequiredFlag][0])
	require.Equal(t, "true", cmd.Flag("content").Annotations[cobra.BashCompOneRequiredFlag][0])
}

func TestMemoryGetCmd_RequiresExactlyOneArg(t *testing.T) {
	cmd := newMemoryGetCmd()
	require.NoError(t, cmd.Args(cmd, []string{"mem_123"}))
	require.Error(t, cmd.Args(cmd, nil))
	require.Error(t, cmd.Args(cmd, []string{"a", "b"}))
}

func TestMemoryTouchCmd_RequiresExactlyOneArg(t *testing.T) {
	cmd := newMemoryTouchCmd()
	require.NoError(t, cmd.Args(cmd, []string{"mem_123"}))
	require.Error(t, cmd.Args(cmd, nil))
}

func TestMemoryGCCmd_DefaultDecayThreshold(t *testing.T) {
	cmd := newMemoryGCCmd()
	requireFlagExists(t, cmd, "decay-threshold")
	v, err := cmd.Flags().GetFloat64("decay-threshold")
	require.NoError(t, err)
	require.Equal(t, 0.15, v)
}

func TestMemoryReembedCmd_DefaultBatching(t *testing.T) {
	cmd := newMemoryReembedCmd()
	requireFlagExists(t, cmd, "batch-size")
	requireFlagExists(t, cmd, "max-batches")

	batchSize, err := cmd.Flags().GetInt("batch-size")
	require.NoError(t, err)
	require.Equal(t, 200, batchSize)

	maxBatches, err := cmd.Flags().GetInt("max-batches")
	require.NoError(t, err)
	require.Equal(t, 0, maxBatches)
}
