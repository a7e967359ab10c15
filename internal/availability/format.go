package availability

import (
	"fmt"
	"strings"
	"time"
)

// FormatSlots renders free intervals as the day-grouped text handed to
// the planner. Intervals must already be day-split; notes from filtering
// and degraded fetches are appended at the end.
func FormatSlots(intervals []Interval, notes []string, loc *time.Location) string {
	var b strings.Builder

	if len(intervals) == 0 {
		b.WriteString("No available time slots found in the requested range.")
	} else {
		lastDay := ""
		for _, iv := range intervals {
			start := iv.Start.In(loc)
			day := start.Format("2006-01-02")
			if day != lastDay {
				if lastDay != "" {
					b.WriteString("\n")
				}
				fmt.Fprintf(&b, "**%s, %s:**\n", start.Weekday(), day)
				lastDay = day
			}
			fmt.Fprintf(&b, "  • %s - %s (%d minutes)\n",
				start.Format("15:04"), iv.End.In(loc).Format("15:04"), iv.Minutes())
		}
		fmt.Fprintf(&b, "\nTotal available slots: %d", len(intervals))
	}

	for _, note := range notes {
		fmt.Fprintf(&b, "\nNote: %s", note)
	}
	return b.String()
}
