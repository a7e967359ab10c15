package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	tpmcp "github.com/taskpilot/taskpilot/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the taskpilot MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the taskpilot MCP server on stdio",
	Long: `Start the taskpilot MCP server on stdio transport.

The server exposes the scheduler's state as MCP tools that AI assistants
can call: get_agent_status, get_free_slots, get_recent_events.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Guard == nil {
			return fmt.Errorf("scheduler not initialized")
		}

		srv := tpmcp.NewServer(Guard, Slots, EventLog, Settings.Location(), appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
