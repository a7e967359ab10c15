package core

import (
	"strings"
	"unicode"
)

// LabelFlag is the canonical form of a behavior-controlling label.
type LabelFlag string

const (
	// FlagManualScheduled excludes a task from automatic scheduling.
	FlagManualScheduled LabelFlag = "manualscheduled"

	// FlagAIScheduled marks a task whose schedule was chosen by the planner.
	FlagAIScheduled LabelFlag = "aischeduled"

	// FlagOverrideActivityHours disables activity-hours filtering for a task.
	FlagOverrideActivityHours LabelFlag = "overrideactivityhours"
)

// NormalizeLabel reduces a label to its canonical flag form: lowercased
// with spaces, underscores, and punctuation removed. "Manual Scheduled",
// "manual_scheduled", and "manual-scheduled" all normalize identically.
func NormalizeLabel(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range strings.ToLower(label) {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// HasFlag reports whether any label in the list normalizes to the flag.
func HasFlag(labels []string, flag LabelFlag) bool {
	for _, l := range labels {
		if NormalizeLabel(l) == string(flag) {
			return true
		}
	}
	return false
}
