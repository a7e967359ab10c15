package core

import (
	"fmt"

	"github.com/taskpilot/taskpilot/pkg/models"
)

// ShouldAutoSchedule applies the shared scheduling gate for one task in
// one category. It returns true when automatic scheduling may proceed,
// and otherwise a human-readable reason for the refusal.
func ShouldAutoSchedule(task models.Task, category string, policy models.SchedulingPolicy) (bool, string) {
	if HasFlag(task.Labels, FlagManualScheduled) {
		return false, "task is labeled for manual scheduling"
	}
	if category == "" {
		return false, "project is not mapped to a scheduling category"
	}
	if !policy.Enabled {
		return false, fmt.Sprintf("automatic scheduling is disabled for category %q", category)
	}
	if p := task.EffectivePriority(); p < policy.MinPriority {
		return false, fmt.Sprintf("priority %s is below the %s threshold for category %q",
			models.PriorityName(p), models.PriorityName(policy.MinPriority), category)
	}
	return true, ""
}
