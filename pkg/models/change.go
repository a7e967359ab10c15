package models

// ChangeTag marks a significant change detected between two task snapshots.
type ChangeTag string

const (
	ChangePriority        ChangeTag = "priority_changed"
	ChangeDueDateAdded    ChangeTag = "due_date_added"
	ChangeDueDateRemoved  ChangeTag = "due_date_removed"
	ChangeDueDateChanged  ChangeTag = "due_date_changed"
	ChangeDurationAdded   ChangeTag = "duration_added"
	ChangeDurationRemoved ChangeTag = "duration_removed"
	ChangeDurationChanged ChangeTag = "duration_changed"
	ChangeTitle           ChangeTag = "title_changed"
	ChangeLabels          ChangeTag = "labels_changed"
	ChangeDescription     ChangeTag = "description_changed"
	ChangeTaskCompleted   ChangeTag = "task_completed"
	ChangeTaskReopened    ChangeTag = "task_reopened"
)

// FieldChange records a single differing field between two snapshots.
type FieldChange struct {
	Field       string `json:"field"`
	Description string `json:"description"`
	Old         string `json:"old,omitempty"`
	New         string `json:"new,omitempty"`
}

// ChangeSet is the result of diffing two task snapshots.
type ChangeSet struct {
	HasChanges bool          `json:"has_changes"`
	Fields     []FieldChange `json:"fields,omitempty"`
	Summary    string        `json:"summary,omitempty"`
	Tags       []ChangeTag   `json:"tags,omitempty"`
}

// HasTag reports whether the change set carries the given significance tag.
func (c ChangeSet) HasTag(tag ChangeTag) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
