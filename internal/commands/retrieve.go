package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dotcommander/memengine/internal/embedprovider"
	"github.com/dotcommander/memengine/internal/output"
	"github.com/dotcommander/memengine/internal/retrieval"
)

// NewRetrieveCmd wraps the full C5 retrieval pipeline: query
// classification, parallel candidate generation, fusion, graph boost,
// rerank, and phase-aware context packing.
func NewRetrieveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retrieve [query]",
		Short: "Retrieve and pack memories relevant to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phase, _ := cmd.Flags().GetString("phase")
			recentFiles, _ := cmd.Flags().GetStringSlice("recent-files")
			maxResults, _ := cmd.Flags().GetInt("max-results")

			projectID := resolveProjectID(cmd)

			var result *retrieval.Result
			if err := withDB(func(db *DB) error {
				provider := embedprovider.New(db)
				r, err := retrieval.Retrieve(context.Background(), db, provider, args[0], projectID, retrieval.Options{
					Phase:       retrieval.Phase(phase),
					RecentFiles: recentFiles,
					MaxResults:  maxResults,
				})
				if err != nil {
					return err
				}
				result = r
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Context   string   `json:"context"`
				MemoryIDs []string `json:"memory_ids"`
				QueryType string   `json:"query_type"`
			}
			ids := make([]string, 0, len(result.Memories))
			for _, m := range result.Memories {
				ids = append(ids, m.ID)
			}
			return output.PrintSuccess(resp{Context: result.Context, MemoryIDs: ids, QueryType: string(result.QueryType)})
		},
	}

	cmd.Flags().String("phase", string(retrieval.PhaseImplement), "Agent phase: define, implement, validate, refine, explore, reflect")
	cmd.Flags().StringSlice("recent-files", nil, "Comma-separated recently touched files, used for graph candidate generation")
	cmd.Flags().Int("max-results", 0, "Override the default result count (0 uses the pipeline default)")

	return cmd
}
