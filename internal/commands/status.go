package commands

import (
	"github.com/spf13/cobra"

	"github.com/dotcommander/memengine/internal/app"
	"github.com/dotcommander/memengine/internal/output"
	"github.com/dotcommander/memengine/internal/store"
)

// NewStatusCmd reports the resolved database path, schema version, and the
// current project's signal session counts (the input to the promotion
// pipeline's frequency filter).
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show memengine installation and project status",
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := resolveProjectID(cmd)

			dbPath, source, err := app.ResolveDBPathDetailed()
			if err != nil {
				return cmdErr(err)
			}

			var current, latest int64
			signalCounts := map[string]int{}
			if err := withDB(func(db *DB) error {
				c, l, err := store.SchemaVersion(db)
				if err != nil {
					return err
				}
				current, latest = c, l

				counts, err := store.SignalSessionCounts(db, projectID)
				if err != nil {
					return err
				}
				for k, v := range counts {
					signalCounts[string(k)] = v
				}
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				ProjectID       string         `json:"project_id"`
				DBPath          string         `json:"db_path"`
				DBPathSource    string         `json:"db_path_source"`
				SchemaVersion   int64          `json:"schema_version"`
				LatestSchema    int64          `json:"latest_schema"`
				SignalSessions  map[string]int `json:"signal_session_counts"`
			}
			return output.PrintSuccess(resp{
				ProjectID:      projectID,
				DBPath:         dbPath,
				DBPathSource:   source,
				SchemaVersion:  current,
				LatestSchema:   latest,
				SignalSessions: signalCounts,
			})
		},
	}
	return cmd
}
