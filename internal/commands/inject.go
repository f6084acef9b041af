package commands

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dotcommander/memengine/internal/inject"
	"github.com/dotcommander/memengine/internal/observer"
	"github.com/dotcommander/memengine/internal/output"
)

// NewInjectCmd evaluates the Agent Injection Bridge for one step, given a
// JSON-encoded recent tool-call window via --window; stdin is not read.
func NewInjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inject [step]",
		Short: "Evaluate the Agent Injection Bridge for a step and print any proactive note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			step, err := strconv.Atoi(args[0])
			if err != nil {
				return cmdErr(err)
			}
			projectID := resolveProjectID(cmd)
			windowRaw, _ := cmd.Flags().GetString("window")

			var window []inject.ToolCallRecord
			if windowRaw != "" {
				if err := json.Unmarshal([]byte(windowRaw), &window); err != nil {
					return cmdErr(err)
				}
			}

			var result *inject.Injection
			if err := withDB(func(db *DB) error {
				bridge := inject.NewBridge(db, projectID, observer.NewScratchpad("", projectID))
				inj, err := bridge.Evaluate(context.Background(), step, window)
				if err != nil {
					return err
				}
				result = inj
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Content string `json:"content"`
				Kind    string `json:"kind"`
			}
			if result == nil {
				return output.PrintSuccess(resp{})
			}
			return output.PrintSuccess(resp{Content: result.Content, Kind: result.Kind})
		},
	}

	cmd.Flags().String("window", "", "JSON-encoded []inject.ToolCallRecord recent tool-call window")

	return cmd
}
