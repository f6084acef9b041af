package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dotcommander/memengine/internal/graph"
	"github.com/dotcommander/memengine/internal/models"
	"github.com/dotcommander/memengine/internal/output"
	"github.com/dotcommander/memengine/internal/store"
)

// NewGraphCmd wraps the knowledge graph's indexing and impact-analysis
// operations.
func NewGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Index source files into the knowledge graph and query impact",
	}

	cmd.AddCommand(newGraphIndexCmd())
	cmd.AddCommand(newGraphImpactCmd())
	cmd.AddCommand(newGraphDescendantsCmd())
	cmd.AddCommand(newGraphAncestorsCmd())

	return cmd
}

func newGraphIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [files...]",
		Short: "Extract symbols and edges from one or more source files and rebuild the project's transitive closure",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := resolveProjectID(cmd)

			files := make(map[string][]byte, len(args))
			for _, path := range args {
				src, err := os.ReadFile(path)
				if err != nil {
					return cmdErr(err)
				}
				files[path] = src
			}

			type fileResult struct {
				File    string `json:"file"`
				Error   string `json:"error,omitempty"`
				Nodes   int    `json:"nodes"`
				Edges   int    `json:"edges"`
				Skipped bool   `json:"skipped,omitempty"`
			}
			var results []fileResult

			if err := withDB(func(db *DB) error {
				indexed, errs := graph.IndexFiles(db, projectID, files)
				for _, r := range indexed {
					results = append(results, fileResult{File: r.FilePath, Nodes: r.NodesSeen, Edges: r.EdgesSeen, Skipped: r.Skipped})
				}
				for path, err := range errs {
					results = append(results, fileResult{File: path, Error: err.Error()})
				}
				return graph.RebuildProjectClosure(db, projectID)
			}); err != nil {
				return err
			}

			type resp struct {
				Files []fileResult `json:"files"`
			}
			return output.PrintSuccess(resp{Files: results})
		},
	}
	return cmd
}

func newGraphImpactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "impact [target]",
		Short: "Show direct and transitive dependents of a node, its affected tests, and affected memories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxDepth, _ := cmd.Flags().GetInt("max-depth")
			projectID := resolveProjectID(cmd)

			var result *store.ImpactResult
			if err := withDB(func(db *DB) error {
				r, err := store.Impact(db, args[0], projectID, maxDepth)
				if err != nil {
					return err
				}
				result = r
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(result)
		},
	}
	cmd.Flags().Int("max-depth", 5, "Maximum BFS depth (hard ceiling 5)")
	return cmd
}

func newGraphDescendantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "descendants [node-id]",
		Short: "List nodes reachable from a node via the transitive closure table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxDepth, _ := cmd.Flags().GetInt("max-depth")

			type resp struct {
				Descendants []*models.ClosureEntry `json:"descendants"`
			}
			var out resp
			if err := withDB(func(db *DB) error {
				es, err := store.GetDescendants(db, args[0], maxDepth)
				if err != nil {
					return err
				}
				out.Descendants = es
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(out)
		},
	}
	cmd.Flags().Int("max-depth", 5, "Maximum BFS depth (hard ceiling 5)")
	return cmd
}

func newGraphAncestorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ancestors [node-id]",
		Short: "List nodes that reach a node via the transitive closure table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxDepth, _ := cmd.Flags().GetInt("max-depth")

			type resp struct {
				Ancestors []*models.ClosureEntry `json:"ancestors"`
			}
			var out resp
			if err := withDB(func(db *DB) error {
				es, err := store.GetAncestors(db, args[0], maxDepth)
				if err != nil {
					return err
				}
				out.Ancestors = es
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(out)
		},
	}
	cmd.Flags().Int("max-depth", 5, "Maximum BFS depth (hard ceiling 5)")
	return cmd
}
