package models

import (
	"strings"
	"time"
)

// Priority levels follow the Todoist API convention: 1 is lowest, 4 is
// urgent. A zero value means the task has no explicit priority and is
// treated as priority 1 everywhere.
const (
	PriorityLow    = 1
	PriorityNormal = 2
	PriorityHigh   = 3
	PriorityUrgent = 4
)

// PriorityName returns the human-readable name for an API priority value.
func PriorityName(p int) string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityNormal:
		return "Normal"
	case PriorityHigh:
		return "High"
	case PriorityUrgent:
		return "Urgent"
	default:
		return "Unknown"
	}
}

// Due describes when a task is scheduled to happen. Datetime is set for
// tasks scheduled at a specific moment; date-only tasks carry just Date.
type Due struct {
	Date        string `json:"date,omitempty"`
	Datetime    string `json:"datetime,omitempty"`
	String      string `json:"string,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	IsRecurring bool   `json:"is_recurring,omitempty"`
}

// Moment parses the due moment in the given location. Datetime wins over
// Date; a bare date resolves to midnight local time. The second return is
// false when the due carries no parseable moment.
func (d *Due) Moment(loc *time.Location) (time.Time, bool) {
	if d == nil {
		return time.Time{}, false
	}
	if d.Datetime != "" {
		if t, err := time.Parse(time.RFC3339, d.Datetime); err == nil {
			return t.In(loc), true
		}
		// Some payloads carry a naive local datetime.
		if t, err := time.ParseInLocation("2006-01-02T15:04:05", d.Datetime, loc); err == nil {
			return t, true
		}
	}
	if d.Date != "" {
		if t, err := time.Parse(time.RFC3339, d.Date); err == nil {
			return t.In(loc), true
		}
		if t, err := time.ParseInLocation("2006-01-02", d.Date, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DisplayString returns the best human-readable rendering of the due.
func (d *Due) DisplayString() string {
	if d == nil {
		return ""
	}
	if d.String != "" {
		return d.String
	}
	if d.Datetime != "" {
		return d.Datetime
	}
	return d.Date
}

// Duration is the planned length of a task.
type Duration struct {
	Amount int    `json:"amount"`
	Unit   string `json:"unit"`
}

// Minutes converts the duration to minutes. Unknown units and malformed
// amounts count as zero so overdue math degrades to the bare due moment.
func (d *Duration) Minutes() int {
	if d == nil || d.Amount <= 0 {
		return 0
	}
	switch strings.ToLower(d.Unit) {
	case "minute", "minutes", "":
		return d.Amount
	case "hour", "hours":
		return d.Amount * 60
	case "day", "days":
		return d.Amount * 24 * 60
	default:
		return 0
	}
}

// Task is a snapshot of a to-do item as delivered by the task service.
// The core only reads and diffs snapshots; it never constructs them.
type Task struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	Description string    `json:"description,omitempty"`
	ProjectID   string    `json:"project_id,omitempty"`
	SectionID   string    `json:"section_id,omitempty"`
	Priority    int       `json:"priority,omitempty"`
	Completed   bool      `json:"checked,omitempty"`
	Labels      []string  `json:"labels,omitempty"`
	Due         *Due      `json:"due,omitempty"`
	Duration    *Duration `json:"duration,omitempty"`
}

// EffectivePriority normalizes an absent priority to Low (1).
func (t Task) EffectivePriority() int {
	if t.Priority < PriorityLow {
		return PriorityLow
	}
	return t.Priority
}

// Title returns the task content, falling back to a placeholder so log
// lines and outcome messages are never empty.
func (t Task) Title() string {
	if t.Content == "" {
		return "Unknown Task"
	}
	return t.Content
}
