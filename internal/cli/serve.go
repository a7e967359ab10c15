package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taskpilot/taskpilot/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	Long: `Run the webhook server that receives to-do task events and calendar
slot-end notifications and schedules eligible tasks.

Endpoints:
  POST /webhook/todoist       task events from the to-do service
  POST /webhook/calendar      slot-end notifications
  GET  /webhook/agent-status  scheduler concurrency state
  GET  /webhook/logs          recent trigger and action events
  GET  /health                liveness check`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Router == nil || Guard == nil {
			return fmt.Errorf("scheduler not initialized (check settings.yaml)")
		}

		addr := fmt.Sprintf("%s:%d", Settings.Server.Host, Settings.Server.Port)
		srv := server.New(Router, Guard, EventLog, Notifier, addr)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("taskpilot listening on %s\n", addr)
		if err := srv.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("running webhook server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
