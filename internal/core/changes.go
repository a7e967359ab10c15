package core

import (
	"fmt"
	"strings"

	"github.com/taskpilot/taskpilot/pkg/models"
)

// AnalyzeChanges diffs two task snapshots field by field. It is a pure
// function: every differing field is recorded with old and new values,
// and changes that matter for scheduling decisions additionally carry a
// significance tag. Label changes are tagged only when the label sets
// differ; a pure reordering records the field without a tag.
func AnalyzeChanges(oldTask, newTask models.Task) models.ChangeSet {
	var cs models.ChangeSet

	if oldTask.Content != newTask.Content {
		addChange(&cs, models.FieldChange{
			Field:       "content",
			Description: fmt.Sprintf("Title changed from %q to %q", oldTask.Content, newTask.Content),
			Old:         oldTask.Content,
			New:         newTask.Content,
		}, models.ChangeTitle)
	}

	if oldTask.Description != newTask.Description {
		addChange(&cs, models.FieldChange{
			Field:       "description",
			Description: "Description changed",
			Old:         oldTask.Description,
			New:         newTask.Description,
		}, models.ChangeDescription)
	}

	if oldTask.Priority != newTask.Priority {
		addChange(&cs, models.FieldChange{
			Field: "priority",
			Description: fmt.Sprintf("Priority changed from %s to %s",
				models.PriorityName(oldTask.EffectivePriority()),
				models.PriorityName(newTask.EffectivePriority())),
			Old: models.PriorityName(oldTask.EffectivePriority()),
			New: models.PriorityName(newTask.EffectivePriority()),
		}, models.ChangePriority)
	}

	diffDue(&cs, oldTask.Due, newTask.Due)
	diffDuration(&cs, oldTask.Duration, newTask.Duration)
	diffLabels(&cs, oldTask.Labels, newTask.Labels)

	if oldTask.Completed != newTask.Completed {
		if newTask.Completed {
			addChange(&cs, models.FieldChange{
				Field:       "checked",
				Description: "Task completed",
				Old:         "open",
				New:         "completed",
			}, models.ChangeTaskCompleted)
		} else {
			addChange(&cs, models.FieldChange{
				Field:       "checked",
				Description: "Task reopened",
				Old:         "completed",
				New:         "open",
			}, models.ChangeTaskReopened)
		}
	}

	cs.HasChanges = len(cs.Fields) > 0
	cs.Summary = summarize(cs.Fields)
	return cs
}

func addChange(cs *models.ChangeSet, fc models.FieldChange, tag models.ChangeTag) {
	cs.Fields = append(cs.Fields, fc)
	if tag != "" {
		cs.Tags = append(cs.Tags, tag)
	}
}

func diffDue(cs *models.ChangeSet, oldDue, newDue *models.Due) {
	switch {
	case oldDue == nil && newDue == nil:
		return
	case oldDue == nil:
		addChange(cs, models.FieldChange{
			Field:       "due",
			Description: fmt.Sprintf("Due date added: %s", newDue.DisplayString()),
			New:         newDue.DisplayString(),
		}, models.ChangeDueDateAdded)
	case newDue == nil:
		addChange(cs, models.FieldChange{
			Field:       "due",
			Description: fmt.Sprintf("Due date removed (was %s)", oldDue.DisplayString()),
			Old:         oldDue.DisplayString(),
		}, models.ChangeDueDateRemoved)
	case oldDue.Date != newDue.Date || oldDue.Datetime != newDue.Datetime:
		addChange(cs, models.FieldChange{
			Field:       "due",
			Description: fmt.Sprintf("Due date changed from %s to %s", oldDue.DisplayString(), newDue.DisplayString()),
			Old:         oldDue.DisplayString(),
			New:         newDue.DisplayString(),
		}, models.ChangeDueDateChanged)
	}
}

func diffDuration(cs *models.ChangeSet, oldDur, newDur *models.Duration) {
	describe := func(d *models.Duration) string {
		return fmt.Sprintf("%d %s", d.Amount, d.Unit)
	}
	switch {
	case oldDur == nil && newDur == nil:
		return
	case oldDur == nil:
		addChange(cs, models.FieldChange{
			Field:       "duration",
			Description: fmt.Sprintf("Duration added: %s", describe(newDur)),
			New:         describe(newDur),
		}, models.ChangeDurationAdded)
	case newDur == nil:
		addChange(cs, models.FieldChange{
			Field:       "duration",
			Description: fmt.Sprintf("Duration removed (was %s)", describe(oldDur)),
			Old:         describe(oldDur),
		}, models.ChangeDurationRemoved)
	case oldDur.Amount != newDur.Amount || oldDur.Unit != newDur.Unit:
		addChange(cs, models.FieldChange{
			Field:       "duration",
			Description: fmt.Sprintf("Duration changed from %s to %s", describe(oldDur), describe(newDur)),
			Old:         describe(oldDur),
			New:         describe(newDur),
		}, models.ChangeDurationChanged)
	}
}

func diffLabels(cs *models.ChangeSet, oldLabels, newLabels []string) {
	if equalStrings(oldLabels, newLabels) {
		return
	}

	oldSet := toSet(oldLabels)
	newSet := toSet(newLabels)

	var added, removed []string
	for _, l := range newLabels {
		if !oldSet[l] {
			added = append(added, l)
		}
	}
	for _, l := range oldLabels {
		if !newSet[l] {
			removed = append(removed, l)
		}
	}

	var parts []string
	if len(added) > 0 {
		parts = append(parts, fmt.Sprintf("added %s", strings.Join(added, ", ")))
	}
	if len(removed) > 0 {
		parts = append(parts, fmt.Sprintf("removed %s", strings.Join(removed, ", ")))
	}

	fc := models.FieldChange{
		Field: "labels",
		Old:   strings.Join(oldLabels, ", "),
		New:   strings.Join(newLabels, ", "),
	}

	// Same sets in a different order: record the field, no significance.
	if len(parts) == 0 {
		fc.Description = "Labels reordered"
		addChange(cs, fc, "")
		return
	}

	fc.Description = "Labels " + strings.Join(parts, "; ")
	addChange(cs, fc, models.ChangeLabels)
}

func summarize(fields []models.FieldChange) string {
	if len(fields) == 0 {
		return ""
	}
	lines := make([]string, len(fields))
	for i, fc := range fields {
		lines[i] = fc.Description
	}
	return strings.Join(lines, "; ")
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}
