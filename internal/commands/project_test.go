package commands

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func newProjectTestCmd(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("project", "", "")
	cmd.Flags().String("agent", "", "")
	return cmd
}

func TestResolveProjectID_FlagWins(t *testing.T) {
	cmd := newProjectTestCmd(t)
	t.Setenv("MEMENGINE_PROJECT", "env-project")
	require.NoError(t, cmd.Flags().Set("project", "flag-project"))

	require.Equal(t, "flag-project", resolveProjectID(cmd))
}

func TestResolveProjectID_FallsBackToEnv(t *testing.T) {
	cmd := newProjectTestCmd(t)
	t.Setenv("MEMENGINE_PROJECT", "env-project")

	require.Equal(t, "env-project", resolveProjectID(cmd))
}

func TestResolveProjectID_FallsBackToWorkingDirectory(t *testing.T) {
	cmd := newProjectTestCmd(t)
	t.Setenv("MEMENGINE_PROJECT", "")

	got := resolveProjectID(cmd)
	require.NotEmpty(t, got)
	require.NotEqual(t, "default", got)
}

func TestResolveAgentName_PrecedenceAndLowercasing(t *testing.T) {
	cmd := newProjectTestCmd(t)
	t.Setenv("MEMENGINE_AGENT", "Env-Agent")
	require.NoError(t, cmd.Flags().Set("agent", "Flag-Agent"))

	require.Equal(t, "flag-agent", resolveAgentName(cmd))
}

func TestResolveAgentName_DefaultsToClaude(t *testing.T) {
	cmd := newProjectTestCmd(t)
	t.Setenv("MEMENGINE_AGENT", "")

	require.Equal(t, "claude", resolveAgentName(cmd))
}

func requireFlagExists(t *testing.T, cmd *cobra.Command, name string) {
	t.Helper()
	f := cmd.Flags().Lookup(name)
	require.NotNil(t, f)
}
