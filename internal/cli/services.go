package cli

import (
	"github.com/taskpilot/taskpilot/internal/availability"
	"github.com/taskpilot/taskpilot/internal/core"
	"github.com/taskpilot/taskpilot/internal/observability"
	"github.com/taskpilot/taskpilot/internal/server"
	"github.com/taskpilot/taskpilot/pkg/models"
)

// Service dependencies wired by internal.NewApp before Execute runs.
// Slots, EventLog, and Notifier may stay nil when the corresponding
// integration is not configured.
var (
	BasePath string
	Settings *models.Settings
	Guard    *core.Guard
	Router   server.EventRouter
	Slots    *availability.Service
	EventLog observability.EventLog
	Notifier observability.Notifier
)
