package commands

import (
	"github.com/spf13/cobra"

	"github.com/dotcommander/memengine/internal/app"
	"github.com/dotcommander/memengine/internal/output"
	"github.com/dotcommander/memengine/internal/store"
)

// NewDBCmd wraps database path resolution and schema migration utilities.
func NewDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database utilities",
	}

	cmd.AddCommand(newDBPathCmd())
	cmd.AddCommand(newDBMigrateCmd())
	return cmd
}

func newDBPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the resolved database path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, source, err := app.ResolveDBPathDetailed()
			if err != nil {
				return cmdErr(err)
			}

			type resp struct {
				Path   string `json:"path"`
				Source string `json:"source"`
			}
			return output.PrintSuccess(resp{Path: path, Source: source})
		},
	}
	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			var current, latest int64
			if err := withDB(func(db *DB) error {
				if err := store.RunMigrations(db); err != nil {
					return err
				}
				c, l, err := store.SchemaVersion(db)
				if err != nil {
					return err
				}
				current, latest = c, l
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				SchemaVersion int64 `json:"schema_version"`
				Latest        int64 `json:"latest"`
			}
			return output.PrintSuccess(resp{SchemaVersion: current, Latest: latest})
		},
	}
	return cmd
}
