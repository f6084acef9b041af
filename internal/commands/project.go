package commands

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// resolveProjectID resolves the project a command operates against.
// Precedence:
// 1) --project flag
// 2) env var MEMENGINE_PROJECT
// 3) the current working directory's absolute path
func resolveProjectID(cmd *cobra.Command) string {
	if v, err := cmd.Flags().GetString("project"); err == nil && v != "" {
		return v
	}
	if v := os.Getenv("MEMENGINE_PROJECT"); v != "" {
		return v
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "default"
}

// resolveAgentName resolves the agent name used to pick an LLM synthesizer.
// Precedence: --agent flag, then env var MEMENGINE_AGENT, then "claude".
func resolveAgentName(cmd *cobra.Command) string {
	if v, err := cmd.Flags().GetString("agent"); err == nil && v != "" {
		return strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("MEMENGINE_AGENT"); v != "" {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return "claude"
}
