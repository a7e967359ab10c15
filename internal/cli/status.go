package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the scheduler's concurrency state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Guard == nil {
			return fmt.Errorf("scheduler not initialized")
		}

		status := Guard.Status()
		switch {
		case status.Working:
			fmt.Printf("working on task %s since %s\n",
				status.TaskID, status.WorkingSince.Format(time.RFC3339))
		case status.CoolingDown:
			fmt.Printf("cooling down since %s\n",
				status.CooldownSince.Format(time.RFC3339))
		default:
			fmt.Println("idle")
		}
		fmt.Printf("work timeout: %.0fs, cooldown: %.0fs\n",
			status.WorkTimeout, status.CooldownPeriod)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
