package models

import (
	"fmt"
	"strings"
	"time"
)

// DayWindow is a single contiguous working window within one weekday,
// expressed as local wall-clock "HH:MM" strings.
type DayWindow struct {
	Start string `yaml:"start" mapstructure:"start" json:"start"`
	End   string `yaml:"end" mapstructure:"end" json:"end"`
}

// ParseClock parses a "HH:MM" wall-clock string into minutes since
// midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return h*60 + m, nil
}

// ActivityHours maps lowercase weekday names ("monday".."sunday") to the
// window allowed on that day. A day that is absent or mapped to nil allows
// no scheduling at all.
type ActivityHours map[string]*DayWindow

// SchedulingPolicy gates automatic scheduling for one task category.
type SchedulingPolicy struct {
	Enabled     bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	MinPriority int  `yaml:"min_priority" mapstructure:"min_priority" json:"min_priority"`
}

// CalendarAccount names the calendars consulted for one authorized account.
type CalendarAccount struct {
	Calendars []string `yaml:"calendars" mapstructure:"calendars" json:"calendars"`
}

// ServerConfig is the webhook listener address.
type ServerConfig struct {
	Host string `yaml:"host" mapstructure:"host" json:"host"`
	Port int    `yaml:"port" mapstructure:"port" json:"port"`
}

// TodoistConfig holds the task-service connection settings.
type TodoistConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url" json:"base_url"`
	Token   string `yaml:"token" mapstructure:"token" json:"-"`
}

// PlannerConfig holds the chat-model connection used for slot selection
// and auto-categorization.
type PlannerConfig struct {
	Model     string `yaml:"model" mapstructure:"model" json:"model"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url" json:"base_url"`
	APIKey    string `yaml:"api_key" mapstructure:"api_key" json:"-"`
	DaysAhead int    `yaml:"days_ahead" mapstructure:"days_ahead" json:"days_ahead"`
}

// GuardConfig tunes the concurrency guard timers, in seconds.
type GuardConfig struct {
	WorkTimeoutSeconds int `yaml:"work_timeout_seconds" mapstructure:"work_timeout_seconds" json:"work_timeout_seconds"`
	CooldownSeconds    int `yaml:"cooldown_seconds" mapstructure:"cooldown_seconds" json:"cooldown_seconds"`
}

// Settings is the full runtime configuration loaded from settings.yaml.
type Settings struct {
	Timezone        string                      `yaml:"timezone" mapstructure:"timezone"`
	Server          ServerConfig                `yaml:"server" mapstructure:"server"`
	Todoist         TodoistConfig               `yaml:"todoist" mapstructure:"todoist"`
	Planner         PlannerConfig               `yaml:"planner" mapstructure:"planner"`
	ProjectMappings map[string]string           `yaml:"project_mappings" mapstructure:"project_mappings"`
	Scheduling      map[string]SchedulingPolicy `yaml:"scheduling" mapstructure:"scheduling"`
	ActivityHours   map[string]ActivityHours    `yaml:"activity_hours" mapstructure:"activity_hours"`
	Calendars       map[string]CalendarAccount  `yaml:"calendars" mapstructure:"calendars"`
	Autocategorize  map[string]bool             `yaml:"autocategorize" mapstructure:"autocategorize"`
	Guard           GuardConfig                 `yaml:"guard" mapstructure:"guard"`
	EventLogPath    string                      `yaml:"event_log_path" mapstructure:"event_log_path"`
	SlackWebhookURL string                      `yaml:"slack_webhook_url" mapstructure:"slack_webhook_url"`
}

// Location resolves the configured timezone, falling back to UTC when the
// name is empty or unknown.
func (s Settings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CategoryFor maps a project ID to its configured category. The empty
// string means the project is unmapped and tasks in it are never scheduled
// automatically.
func (s Settings) CategoryFor(projectID string) string {
	return s.ProjectMappings[projectID]
}

// PolicyFor returns the scheduling policy for a category. Categories with
// no entry get a disabled policy.
func (s Settings) PolicyFor(category string) SchedulingPolicy {
	if p, ok := s.Scheduling[strings.ToLower(category)]; ok {
		return p
	}
	if p, ok := s.Scheduling[category]; ok {
		return p
	}
	return SchedulingPolicy{}
}

// HoursFor returns the activity hours for a category, nil when none are
// configured.
func (s Settings) HoursFor(category string) ActivityHours {
	if h, ok := s.ActivityHours[strings.ToLower(category)]; ok {
		return h
	}
	return s.ActivityHours[category]
}
