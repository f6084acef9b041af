package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotcommander/memengine/internal/embedprovider"
	"github.com/dotcommander/memengine/internal/llmsynth"
	"github.com/dotcommander/memengine/internal/models"
	"github.com/dotcommander/memengine/internal/observer"
	"github.com/dotcommander/memengine/internal/output"
	"github.com/dotcommander/memengine/internal/store"
)

// rawEvent is the JSONL shape an agent runtime streams on stdin: one of
// tool_call, tool_result, reasoning, or step_complete.
type rawEvent struct {
	Type   string            `json:"type"`
	Name   string            `json:"name,omitempty"`
	Args   map[string]string `json:"args,omitempty"`
	Result string            `json:"result,omitempty"`
	Text   string            `json:"text,omitempty"`
	Step   int               `json:"step"`
}

func (e rawEvent) toMessage() (observer.Message, error) {
	switch e.Type {
	case "tool_call":
		return observer.ToolCall{Name: e.Name, Args: e.Args, Step: e.Step}, nil
	case "tool_result":
		return observer.ToolResult{Name: e.Name, Result: e.Result, Step: e.Step}, nil
	case "reasoning":
		return observer.Reasoning{Text: e.Text, Step: e.Step}, nil
	case "step_complete":
		return observer.StepComplete{Step: e.Step}, nil
	default:
		return nil, fmt.Errorf("observe: unknown event type %q", e.Type)
	}
}

// NewObserveCmd streams a session's tool-call events through the Observer /
// Scratchpad and, at end of stream, runs the Promotion Pipeline and writes
// surviving candidates as memories.
func NewObserveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "observe [session-id]",
		Short: "Feed one session's JSONL tool-call events (on stdin) through the Observer and promote surviving signals to memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := args[0]
			projectID := resolveProjectID(cmd)
			sessionType, _ := cmd.Flags().GetString("session-type")
			outcome, _ := cmd.Flags().GetString("outcome")
			synth, _ := cmd.Flags().GetBool("synthesize")

			sp := observer.NewScratchpad(sessionID, projectID)

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				line := scanner.Bytes()
				if len(line) == 0 {
					continue
				}
				var ev rawEvent
				if err := json.Unmarshal(line, &ev); err != nil {
					return cmdErr(fmt.Errorf("observe: parse event: %w", err))
				}
				msg, err := ev.toMessage()
				if err != nil {
					return cmdErr(err)
				}
				sp.Observe(msg)
			}
			if err := scanner.Err(); err != nil && err != io.EOF {
				return cmdErr(err)
			}

			var promoted []string
			if err := withDB(func(db *DB) error {
				if err := sp.PersistSessionSignals(db); err != nil {
					return err
				}

				priorCounts, err := store.SignalSessionCounts(db, projectID)
				if err != nil {
					return err
				}

				candidates := sp.Finalize(observer.SessionType(sessionType), observer.SessionOutcome(outcome), priorCounts)
				if len(candidates) == 0 {
					return nil
				}

				contents := make([]string, len(candidates))
				for i, c := range candidates {
					contents[i] = c.Content
				}
				if synth {
					synthesizer := llmsynth.New(resolveAgentName(cmd))
					out, err := synthesizer.Synthesize(context.Background(), candidates)
					if err == nil && len(out) == len(candidates) {
						contents = out
					}
				}

				provider := embedprovider.New(db)
				for i, c := range candidates {
					m := &models.Memory{
						ProjectID:    projectID,
						Kind:         c.ProposedType,
						Content:      contents[i],
						Confidence:   c.Confidence,
						RelatedFiles: c.RelatedFiles,
						Scope:        models.MemoryScopeSession,
						Source:       models.MemorySourceObserverInferred,
						SessionID:    sessionID,
						NeedsReview:  c.NeedsReview,
					}
					if vec, err := provider.Embed(context.Background(), embedprovider.ContextualizeMemory(m)); err == nil {
						m.Embedding = vec
						m.EmbeddingModelID = provider.ModelID()
						m.EmbeddingDims = provider.Dimensions()
					}
					id, err := store.UpsertMemory(db, m)
					if err != nil {
						return err
					}
					promoted = append(promoted, id)
				}
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				SessionID     string   `json:"session_id"`
				PromotedCount int      `json:"promoted_count"`
				MemoryIDs     []string `json:"memory_ids"`
			}
			return output.PrintSuccess(resp{SessionID: sessionID, PromotedCount: len(promoted), MemoryIDs: promoted})
		},
	}

	cmd.Flags().String("session-type", string(observer.SessionBuild), "Session type, gates the final promotion cap")
	cmd.Flags().String("outcome", string(observer.OutcomeSuccess), "Session outcome: success, partial, failure, abandoned")
	cmd.Flags().Bool("synthesize", true, "Run LLM synthesis over surviving candidates before writing memories")

	return cmd
}
