package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskpilot/taskpilot/internal/availability"
)

var (
	slotsCategory string
	slotsFrom     string
	slotsTo       string
	slotsOverride bool
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Compute free time slots for a scheduling category",
	Long: `Compute the free time slots for a category over a date range and print
them grouped by day, exactly as the planner sees them.

Bounds accept RFC 3339 timestamps or bare dates (YYYY-MM-DD); a bare
start date means the start of that day, a bare end date its end.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Slots == nil {
			return fmt.Errorf("no calendars configured in settings.yaml")
		}

		loc := Settings.Location()
		now := time.Now().In(loc)
		window := availability.Interval{Start: now, End: now.AddDate(0, 0, Settings.Planner.DaysAhead)}

		if slotsFrom != "" {
			start, err := availability.ParseBound(slotsFrom, loc, false)
			if err != nil {
				return err
			}
			window.Start = start
		}
		if slotsTo != "" {
			end, err := availability.ParseBound(slotsTo, loc, true)
			if err != nil {
				return err
			}
			window.End = end
		}

		fmt.Println(Slots.Text(cmd.Context(), slotsCategory, window, slotsOverride))
		return nil
	},
}

func init() {
	slotsCmd.Flags().StringVarP(&slotsCategory, "category", "c", "", "scheduling category whose activity hours apply")
	slotsCmd.Flags().StringVar(&slotsFrom, "from", "", "range start (RFC 3339 or YYYY-MM-DD)")
	slotsCmd.Flags().StringVar(&slotsTo, "to", "", "range end (RFC 3339 or YYYY-MM-DD)")
	slotsCmd.Flags().BoolVar(&slotsOverride, "override-hours", false, "skip activity-hours filtering")
	_ = slotsCmd.MarkFlagRequired("category")
	rootCmd.AddCommand(slotsCmd)
}
