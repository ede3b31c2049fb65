package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xvierd/branchbar/internal/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol (MCP) server for integration with AI assistants.
The server exposes the monitored repository's branch state over stdio.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := setupSignalHandler()

		coord := app.coordinator
		coord.Restore(ctx)
		coord.Start(ctx)

		// Create and start the MCP server
		server := mcp.NewServer(coord, Version, app.logs.For("mcp"))
		defer func() { _ = server.Stop() }()
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}

		return nil
	},
}
