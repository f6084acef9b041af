package commands

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/memengine/internal/embedprovider"
	"github.com/dotcommander/memengine/internal/models"
	"github.com/dotcommander/memengine/internal/output"
	"github.com/dotcommander/memengine/internal/store"
)

// NewMemoryCmd creates the memory command with subcommands for recording,
// reading, and removing individual memory entries directly (bypassing the
// retrieval pipeline's ranking and packing).
func NewMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Record and inspect individual memory entries",
	}

	cmd.AddCommand(newMemoryRecordCmd())
	cmd.AddCommand(newMemoryGetCmd())
	cmd.AddCommand(newMemoryTouchCmd())
	cmd.AddCommand(newMemoryGCCmd())
	cmd.AddCommand(newMemoryReembedCmd())

	return cmd
}

// newMemoryGCCmd runs the decay/prune job: confidence-decay deprecation by
// kind-specific half-life, then hard-deletion of anything past the 30-day
// grace period past deprecation (unless user_verified), per spec.md section
// 3.1's lifecycle clause.
func newMemoryGCCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Decay confidence by kind half-life, deprecate stale memories, and hard-delete past the 30-day grace period",
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, _ := cmd.Flags().GetFloat64("decay-threshold")
			projectID := resolveProjectID(cmd)
			now := time.Now().UTC()

			var deprecated, hardDeleted int
			if err := withDB(func(db *DB) error {
				var err error
				deprecated, err = store.ApplyDecay(db, projectID, threshold, now)
				if err != nil {
					return err
				}
				hardDeleted, err = store.HardDeleteExpiredMemories(db, projectID, now)
				return err
			}); err != nil {
				return err
			}

			type resp struct {
				Deprecated  int `json:"deprecated"`
				HardDeleted int `json:"hard_deleted"`
			}
			return output.PrintSuccess(resp{Deprecated: deprecated, HardDeleted: hardDeleted})
		},
	}
	cmd.Flags().Float64("decay-threshold", 0.15, "Confidence floor below which a decayed memory is deprecated")
	return cmd
}

// newMemoryReembedCmd processes memories whose embedding_model_id doesn't
// match the currently active provider, in batches, oldest-accessed first —
// spec.md section 9's third Open Question and section 4.2's dimension
// policy ("all memories are flagged for background re-embedding" on
// provider switch).
func newMemoryReembedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reembed",
		Short: "Re-embed memories whose embedding_model_id doesn't match the active embedding provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			batchSize, _ := cmd.Flags().GetInt("batch-size")
			maxBatches, _ := cmd.Flags().GetInt("max-batches")
			projectID := resolveProjectID(cmd)

			var totalReembedded int
			if err := withDB(func(db *DB) error {
				provider := embedprovider.New(db)
				for batch := 0; maxBatches <= 0 || batch < maxBatches; batch++ {
					candidates, err := store.ListMemoriesNeedingReembed(db, projectID, provider.ModelID(), batchSize)
					if err != nil {
						return err
					}
					if len(candidates) == 0 {
						break
					}
					for _, c := range candidates {
						text := embedprovider.Contextualize(embedprovider.Contextualizable{
							ChunkKind:  c.ChunkKind,
							SymbolName: c.ContextPrefix,
							Content:    c.Content,
						})
						vec, embedErr := provider.Embed(context.Background(), text)
						if embedErr != nil {
							continue
						}
						if updErr := store.UpdateMemoryEmbedding(db, c.ID, vec, provider.ModelID(), provider.Dimensions()); updErr != nil {
							return updErr
						}
						totalReembedded++
					}
					if len(candidates) < batchSize {
						break
					}
				}
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Reembedded int `json:"reembedded"`
			}
			return output.PrintSuccess(resp{Reembedded: totalReembedded})
		},
	}
	cmd.Flags().Int("batch-size", 200, "Memories re-embedded per batch")
	cmd.Flags().Int("max-batches", 0, "Stop after this many batches (0 = unbounded)")
	return cmd
}

func newMemoryRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a new memory entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			content, _ := cmd.Flags().GetString("content")
			confidence, _ := cmd.Flags().GetFloat64("confidence")
			scope, _ := cmd.Flags().GetString("scope")
			tags, _ := cmd.Flags().GetStringSlice("tags")
			files, _ := cmd.Flags().GetStringSlice("related-files")

			projectID := resolveProjectID(cmd)

			m := &models.Memory{
				ProjectID:    projectID,
				Kind:         models.MemoryKind(kind),
				Content:      content,
				Confidence:   confidence,
				Tags:         tags,
				RelatedFiles: files,
				Scope:        models.MemoryScope(scope),
				Source:       models.MemorySourceAgentExplicit,
			}

			var id string
			if err := withDB(func(db *DB) error {
				storedID, err := store.UpsertMemory(db, m)
				if err != nil {
					return err
				}
				id = storedID
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				MemoryID string `json:"memory_id"`
			}
			return output.PrintSuccess(resp{MemoryID: id})
		},
	}

	cmd.Flags().String("kind", "", "Memory kind, e.g. gotcha, pattern, decision, requirement")
	cmd.Flags().String("content", "", "Durable memory text")
	cmd.Flags().Float64("confidence", 0.6, "Confidence in [0,1]")
	cmd.Flags().String("scope", string(models.MemoryScopeSession), "Scope: global, module, work_unit, session")
	cmd.Flags().StringSlice("tags", nil, "Comma-separated tags")
	cmd.Flags().StringSlice("related-files", nil, "Comma-separated related file paths")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("content")

	return cmd
}

func newMemoryGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Fetch a single memory by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var m *models.Memory
			if err := withDB(func(db *DB) error {
				found, err := store.GetMemory(db, strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				m = found
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(m)
		},
	}
	return cmd
}

func newMemoryTouchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "touch [id]",
		Short: "Record an access to a memory, bumping its last-accessed time and access count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if err := withDB(func(db *DB) error {
				return store.TouchMemory(db, id)
			}); err != nil {
				return err
			}
			type resp struct {
				MemoryID string `json:"memory_id"`
			}
			return output.PrintSuccess(resp{MemoryID: id})
		},
	}
	return cmd
}
