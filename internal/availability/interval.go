// Package availability computes free time windows from calendar busy
// intervals: parallel fetch across sources, interval set algebra, and
// per-category activity-hours filtering.
package availability

import (
	"sort"
	"time"
)

// Interval is a half-open time span [Start, End). Intervals with
// End before or equal to Start are empty and ignored by the set algebra.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsZero reports whether the interval carries no span.
func (iv Interval) IsZero() bool {
	return !iv.End.After(iv.Start)
}

// Minutes returns the interval length in whole minutes.
func (iv Interval) Minutes() int {
	if iv.IsZero() {
		return 0
	}
	return int(iv.End.Sub(iv.Start) / time.Minute)
}

// Merge sorts the intervals by start and coalesces overlapping and
// adjacent ones. Intervals that touch (one starts exactly where the
// previous ends) merge into a single span. Empty intervals are dropped.
// The input is not modified.
func Merge(intervals []Interval) []Interval {
	var in []Interval
	for _, iv := range intervals {
		if !iv.IsZero() {
			in = append(in, iv)
		}
	}
	if len(in) == 0 {
		return nil
	}

	sort.Slice(in, func(i, j int) bool { return in[i].Start.Before(in[j].Start) })

	merged := []Interval{in[0]}
	for _, iv := range in[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Subtract removes the busy intervals from the query window and returns
// the remaining free intervals in order. busy must be merged and sorted;
// callers normally pass the result of Merge.
func Subtract(window Interval, busy []Interval) []Interval {
	if window.IsZero() {
		return nil
	}

	var free []Interval
	cursor := window.Start
	for _, b := range busy {
		if !b.End.After(cursor) {
			continue
		}
		if !b.Start.Before(window.End) {
			break
		}
		if b.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: minTime(b.Start, window.End)})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
		if !cursor.Before(window.End) {
			return free
		}
	}
	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}

// ClipPast removes any portion of the intervals that lies before now.
func ClipPast(intervals []Interval, now time.Time) []Interval {
	var out []Interval
	for _, iv := range intervals {
		if !iv.End.After(now) {
			continue
		}
		if iv.Start.Before(now) {
			iv.Start = now
		}
		out = append(out, iv)
	}
	return out
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
