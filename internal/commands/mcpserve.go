package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dotcommander/memengine/internal/app"
	"github.com/dotcommander/memengine/internal/embedprovider"
	"github.com/dotcommander/memengine/internal/inject"
	"github.com/dotcommander/memengine/internal/mcpserver"
	"github.com/dotcommander/memengine/internal/observer"
	"github.com/dotcommander/memengine/internal/store"
)

// NewMCPServeCmd starts the MCP server over stdio, exposing search, record,
// and step_inject as tools for an agent runtime that speaks MCP instead of
// the NATS/in-process duplex channel.
func NewMCPServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcpserve",
		Short: "Serve the memory engine's tools over MCP (stdio transport)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, _ := cmd.Flags().GetString("session-id")
			projectID := resolveProjectID(cmd)

			dbPath, err := app.GetDBPath()
			if err != nil {
				return cmdErr(err)
			}
			db, err := store.InitDBWithPath(dbPath)
			if err != nil {
				return cmdErr(err)
			}
			defer func() { _ = db.Close() }()

			provider := embedprovider.New(db)

			var bridge *inject.Bridge
			if sessionID != "" {
				bridge = inject.NewBridge(db, projectID, observer.NewScratchpad(sessionID, projectID))
			}

			srv := mcpserver.New(db, provider, projectID, bridge)
			if err := srv.Serve(context.Background()); err != nil {
				return cmdErr(err)
			}
			return nil
		},
	}

	cmd.Flags().String("session-id", "", "Session ID for step_inject's Agent Injection Bridge (optional)")

	return cmd
}
