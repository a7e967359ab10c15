// Package core contains the business logic for taskpilot: the concurrency
// guard, task change analysis, the scheduling policy gate, label-flag
// handling, and the event router.
package core

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/taskpilot/taskpilot/pkg/models"
)

// SettingsLoader defines the interface for loading and validating the
// runtime configuration.
type SettingsLoader interface {
	Load() (*models.Settings, error)
	Validate(settings *models.Settings) error
}

// viperSettingsLoader implements SettingsLoader using Viper for reading
// the settings.yaml file.
type viperSettingsLoader struct {
	// basePath is the directory where settings.yaml resides.
	basePath string
}

// NewSettingsLoader creates a SettingsLoader that reads settings.yaml
// relative to basePath.
func NewSettingsLoader(basePath string) SettingsLoader {
	return &viperSettingsLoader{basePath: basePath}
}

// DefaultSettings returns a Settings populated with sensible defaults.
func DefaultSettings() *models.Settings {
	return &models.Settings{
		Timezone: "UTC",
		Server: models.ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Todoist: models.TodoistConfig{
			BaseURL: "https://api.todoist.com/rest/v2",
		},
		Planner: models.PlannerConfig{
			Model:     "gpt-4o-mini",
			BaseURL:   "https://api.openai.com/v1",
			DaysAhead: 7,
		},
		Guard: models.GuardConfig{
			WorkTimeoutSeconds: 300,
			CooldownSeconds:    3,
		},
		EventLogPath: "taskpilot-events.jsonl",
	}
}

// Load reads settings.yaml from the base path using Viper. If the file
// does not exist, defaults are returned.
func (sl *viperSettingsLoader) Load() (*models.Settings, error) {
	cfg := DefaultSettings()

	v := viper.New()
	v.SetConfigName("settings")
	v.SetConfigType("yaml")
	v.AddConfigPath(sl.basePath)

	// Set Viper defaults so missing keys fall back gracefully.
	v.SetDefault("timezone", cfg.Timezone)
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("todoist.base_url", cfg.Todoist.BaseURL)
	v.SetDefault("planner.model", cfg.Planner.Model)
	v.SetDefault("planner.base_url", cfg.Planner.BaseURL)
	v.SetDefault("planner.days_ahead", cfg.Planner.DaysAhead)
	v.SetDefault("guard.work_timeout_seconds", cfg.Guard.WorkTimeoutSeconds)
	v.SetDefault("guard.cooldown_seconds", cfg.Guard.CooldownSeconds)
	v.SetDefault("event_log_path", cfg.EventLogPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading settings.yaml: %w", err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding settings.yaml: %w", err)
	}

	return cfg, nil
}

// validWeekdays is the set of recognized activity-hours day keys.
var validWeekdays = map[string]bool{
	"monday":    true,
	"tuesday":   true,
	"wednesday": true,
	"thursday":  true,
	"friday":    true,
	"saturday":  true,
	"sunday":    true,
}

// Validate checks the settings for invalid values and returns a clear
// error message identifying every problem found.
func (sl *viperSettingsLoader) Validate(settings *models.Settings) error {
	if settings == nil {
		return fmt.Errorf("settings is nil")
	}

	var errs []string

	if settings.Timezone != "" {
		if loc := settings.Location(); loc.String() == "UTC" && !strings.EqualFold(settings.Timezone, "UTC") {
			errs = append(errs, fmt.Sprintf("timezone %q is not a recognized IANA zone", settings.Timezone))
		}
	}

	if settings.Server.Port < 1 || settings.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", settings.Server.Port))
	}

	for category, policy := range settings.Scheduling {
		if policy.MinPriority < models.PriorityLow || policy.MinPriority > models.PriorityUrgent {
			errs = append(errs, fmt.Sprintf(
				"scheduling.%s.min_priority %d is invalid, must be between 1 and 4",
				category, policy.MinPriority,
			))
		}
	}

	for category, hours := range settings.ActivityHours {
		for day, window := range hours {
			if !validWeekdays[strings.ToLower(day)] {
				errs = append(errs, fmt.Sprintf(
					"activity_hours.%s key %q is not a weekday name", category, day,
				))
			}
			if window == nil {
				continue
			}
			if _, err := models.ParseClock(window.Start); err != nil {
				errs = append(errs, fmt.Sprintf(
					"activity_hours.%s.%s.start %q: %v", category, day, window.Start, err,
				))
			}
			if _, err := models.ParseClock(window.End); err != nil {
				errs = append(errs, fmt.Sprintf(
					"activity_hours.%s.%s.end %q: %v", category, day, window.End, err,
				))
			}
		}
	}

	if settings.Guard.WorkTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Sprintf(
			"guard.work_timeout_seconds must be positive, got %d", settings.Guard.WorkTimeoutSeconds,
		))
	}
	if settings.Guard.CooldownSeconds < 0 {
		errs = append(errs, fmt.Sprintf(
			"guard.cooldown_seconds must be non-negative, got %d", settings.Guard.CooldownSeconds,
		))
	}

	if len(errs) > 0 {
		return fmt.Errorf("settings validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
