package commands

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotcommander/memengine/internal/app"
	"github.com/dotcommander/memengine/internal/output"
)

// Execute runs the CLI application.
func Execute(version string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	root := &cobra.Command{
		Use:           "memengine",
		Short:         "Agent memory engine (memory, graph, retrieve, observe, inject, status)",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if showVersion {
				type resp struct {
					Version string `json:"version"`
				}
				return output.PrintSuccess(resp{Version: version})
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.EnsureConfigDir(); err != nil {
				return err
			}

			if dbPath, err := cmd.Flags().GetString("db-path"); err == nil && dbPath != "" {
				app.SetDBPathOverride(dbPath)
			}

			return nil
		},
	}

	root.PersistentFlags().String("db-path", "", "Override database path")
	root.PersistentFlags().String("project", "", "Project ID (default: $MEMENGINE_PROJECT or the working directory)")
	root.PersistentFlags().String("agent", "", "Agent name driving LLM synthesis (default: $MEMENGINE_AGENT)")
	root.Flags().BoolP("version", "v", false, "version for memengine")

	root.AddCommand(NewMemoryCmd())
	root.AddCommand(NewGraphCmd())
	root.AddCommand(NewRetrieveCmd())
	root.AddCommand(NewObserveCmd())
	root.AddCommand(NewInjectCmd())
	root.AddCommand(NewStatusCmd())
	root.AddCommand(NewMCPServeCmd())
	root.AddCommand(NewDBCmd())

	err := root.Execute()
	if err != nil {
		var pe printedError
		if !errors.As(err, &pe) {
			slog.Default().Error("command failed", "error", err.Error())
		}
	}
	return err
}
