// Package internal provides the App struct that wires all components of
// the taskpilot scheduler together and initializes the CLI layer.
package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/taskpilot/taskpilot/internal/availability"
	"github.com/taskpilot/taskpilot/internal/cli"
	"github.com/taskpilot/taskpilot/internal/core"
	"github.com/taskpilot/taskpilot/internal/integration"
	"github.com/taskpilot/taskpilot/internal/observability"
	"github.com/taskpilot/taskpilot/pkg/models"
)

// App holds all service dependencies for the taskpilot scheduler.
type App struct {
	BasePath string
	Settings *models.Settings

	// Core services
	Guard  *core.Guard
	Router *core.Router

	// Availability
	Engine *availability.Engine
	Slots  *availability.Service

	// Integration services
	Tasks       integration.TodoistClient
	Chat        integration.ChatClient
	Planner     core.Planner
	Categorizer core.Categorizer

	// Observability
	EventLog observability.EventLog
	Notifier observability.Notifier
}

// NewApp creates and wires all components of the scheduler. basePath is
// the directory holding settings.yaml, credentials, and the event log.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	loader := core.NewSettingsLoader(basePath)
	settings, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if err := loader.Validate(settings); err != nil {
		return nil, err
	}
	app.Settings = settings
	loc := settings.Location()

	// --- Observability ---
	logPath := settings.EventLogPath
	if !filepath.IsAbs(logPath) {
		logPath = filepath.Join(basePath, logPath)
	}
	app.EventLog, err = observability.NewJSONLEventLog(logPath)
	if err != nil {
		// Non-fatal: run without the event log.
		app.EventLog = nil
	}
	if settings.SlackWebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(settings.SlackWebhookURL)
	}

	// --- Concurrency guard ---
	app.Guard = core.NewGuard(
		time.Duration(settings.Guard.WorkTimeoutSeconds)*time.Second,
		time.Duration(settings.Guard.CooldownSeconds)*time.Second,
	)

	// --- Calendar availability ---
	if len(settings.Calendars) > 0 {
		accounts := make([]string, 0, len(settings.Calendars))
		var sources []availability.Source
		for account, cfg := range settings.Calendars {
			accounts = append(accounts, account)
			for _, calID := range cfg.Calendars {
				sources = append(sources, availability.Source{Account: account, CalendarID: calID})
			}
		}

		lister, listerErr := integration.NewGoogleBusyLister(context.Background(), basePath, accounts)
		if listerErr != nil {
			// Non-fatal: calendars stay unavailable until authorized.
			fmt.Fprintf(os.Stderr, "warning: calendars unavailable: %v\n", listerErr)
		} else {
			app.Engine = availability.NewEngine(lister, sources, 0, 0)
			app.Slots = availability.NewService(app.Engine, settings, loc)
		}
	}

	// --- Integration services ---
	app.Tasks = integration.NewTodoistClient(settings.Todoist.BaseURL, settings.Todoist.Token)
	app.Chat = integration.NewChatClient(settings.Planner.BaseURL, settings.Planner.APIKey, settings.Planner.Model)
	if app.Slots != nil {
		app.Planner = integration.NewSchedulingAgent(app.Chat, app.Tasks, app.Slots, settings.Planner.DaysAhead, loc)
	}
	if len(settings.Autocategorize) > 0 {
		app.Categorizer = integration.NewSectionCategorizer(app.Chat, app.Tasks)
	}

	// --- Event router ---
	app.Router = core.NewRouter(app.Guard, app.Tasks, app.Planner, app.Categorizer, settingsPolicySource{settings}, loc)

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Settings = settings
	cli.Guard = app.Guard
	cli.Router = app.Router
	cli.Slots = app.Slots
	cli.EventLog = app.EventLog
	cli.Notifier = app.Notifier

	return app, nil
}

// Close releases resources held by the App, such as the event log file
// handle. It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the base directory for settings and data.
// It checks the TASKPILOT_HOME env var, then walks up from the current
// directory looking for settings.yaml, falling back to cwd.
func ResolveBasePath() string {
	if home := os.Getenv("TASKPILOT_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "settings.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}

// settingsPolicySource adapts models.Settings to core.PolicySource.
type settingsPolicySource struct {
	settings *models.Settings
}

func (s settingsPolicySource) CategoryFor(projectID string) string {
	return s.settings.CategoryFor(projectID)
}

func (s settingsPolicySource) PolicyFor(category string) models.SchedulingPolicy {
	return s.settings.PolicyFor(category)
}

func (s settingsPolicySource) AutocategorizeEnabled(projectID string) bool {
	return s.settings.Autocategorize[projectID]
}
