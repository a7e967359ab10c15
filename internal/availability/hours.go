package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/taskpilot/taskpilot/pkg/models"
)

// SplitByDay cuts each interval at local-midnight boundaries so that
// every returned interval lies within a single calendar day of loc.
func SplitByDay(intervals []Interval, loc *time.Location) []Interval {
	var out []Interval
	for _, iv := range intervals {
		if iv.IsZero() {
			continue
		}
		start := iv.Start.In(loc)
		end := iv.End.In(loc)
		for start.Before(end) {
			nextMidnight := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
			segEnd := end
			if nextMidnight.Before(end) {
				segEnd = nextMidnight
			}
			out = append(out, Interval{Start: start, End: segEnd})
			start = segEnd
		}
	}
	return out
}

// FilterByHours intersects free intervals with the per-weekday activity
// windows. Intervals must already be day-split. Override skips filtering
// entirely; a category with no enabled day at all also passes everything
// through. Both cases add an explanatory note. A weekday absent from
// hours (or mapped to nil) contributes nothing.
func FilterByHours(intervals []Interval, hours models.ActivityHours, loc *time.Location, override bool) ([]Interval, []string) {
	if override {
		return intervals, []string{"activity hours overridden for this task"}
	}
	if !anyDayEnabled(hours) {
		return intervals, []string{"no activity hours configured, all times allowed"}
	}

	var out []Interval
	for _, iv := range intervals {
		day := strings.ToLower(iv.Start.In(loc).Weekday().String())
		window, ok := hours[day]
		if !ok || window == nil {
			continue
		}

		startMin, err1 := models.ParseClock(window.Start)
		endMin, err2 := models.ParseClock(window.End)
		if err1 != nil || err2 != nil || endMin <= startMin {
			continue
		}

		midnight := time.Date(iv.Start.In(loc).Year(), iv.Start.In(loc).Month(), iv.Start.In(loc).Day(), 0, 0, 0, 0, loc)
		allowed := Interval{
			Start: midnight.Add(time.Duration(startMin) * time.Minute),
			End:   midnight.Add(time.Duration(endMin) * time.Minute),
		}

		clipped := intersect(iv, allowed)
		if !clipped.IsZero() {
			out = append(out, clipped)
		}
	}
	return out, nil
}

func anyDayEnabled(hours models.ActivityHours) bool {
	for _, w := range hours {
		if w != nil {
			return true
		}
	}
	return false
}

func intersect(a, b Interval) Interval {
	out := a
	if b.Start.After(out.Start) {
		out.Start = b.Start
	}
	if b.End.Before(out.End) {
		out.End = b.End
	}
	return out
}

// ParseBound interprets a query boundary. Date-only values expand to the
// start or end of that local day; RFC 3339 values pass through.
func ParseBound(s string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time bound %q: %w", s, err)
	}
	if endOfDay {
		return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, loc), nil
	}
	return t, nil
}
