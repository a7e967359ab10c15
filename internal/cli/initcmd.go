package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/taskpilot/taskpilot/internal/core"
	"github.com/taskpilot/taskpilot/pkg/models"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter settings.yaml",
	Long: `Write a starter settings.yaml into the base directory with defaults and
one example entry per section. Existing files are left untouched unless
--force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(BasePath, "settings.yaml")
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		settings := core.DefaultSettings()
		settings.ProjectMappings = map[string]string{
			"2345678901": "work",
		}
		settings.Scheduling = map[string]models.SchedulingPolicy{
			"work": {Enabled: true, MinPriority: models.PriorityNormal},
		}
		settings.ActivityHours = map[string]models.ActivityHours{
			"work": {
				"monday":    {Start: "09:00", End: "17:00"},
				"tuesday":   {Start: "09:00", End: "17:00"},
				"wednesday": {Start: "09:00", End: "17:00"},
				"thursday":  {Start: "09:00", End: "17:00"},
				"friday":    {Start: "09:00", End: "17:00"},
			},
		}
		settings.Calendars = map[string]models.CalendarAccount{
			"primary": {Calendars: []string{"primary"}},
		}

		data, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("marshaling starter settings: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}

		fmt.Printf("wrote %s\n", path)
		fmt.Println("next: fill in todoist.token and planner.api_key, then run taskpilot authorize")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing settings.yaml")
	rootCmd.AddCommand(initCmd)
}
