package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/taskpilot/taskpilot/internal/availability"
	"github.com/taskpilot/taskpilot/internal/core"
	"github.com/taskpilot/taskpilot/pkg/models"
)

// AIScheduledLabel and ManualScheduledLabel are the exact label strings
// the planner writes back to the task service.
const (
	AIScheduledLabel     = "AI Scheduled"
	ManualScheduledLabel = "Manual Scheduled"
	defaultSlotMinutes   = 30
	plannerSystemPrompt  = "You are a scheduling assistant. Pick the best time slot for the task from the available slots. Respond with JSON only: {\"action\": \"schedule\" or \"skip\", \"start\": \"RFC 3339 datetime\", \"duration_minutes\": number, \"reason\": \"short explanation\"}."
)

// FreeSlotSource renders planner-ready availability text for a category.
type FreeSlotSource interface {
	Text(ctx context.Context, category string, window availability.Interval, override bool) string
}

// schedulingAgent implements core.Planner: it gathers availability,
// asks the chat model for a slot, and applies the choice through the
// task service.
type schedulingAgent struct {
	chat      ChatClient
	tasks     TodoistClient
	slots     FreeSlotSource
	daysAhead int
	loc       *time.Location

	// now is replaceable in tests.
	now func() time.Time
}

// NewSchedulingAgent wires a core.Planner. daysAhead bounds how far into
// the future slots are considered.
func NewSchedulingAgent(chat ChatClient, tasks TodoistClient, slots FreeSlotSource, daysAhead int, loc *time.Location) core.Planner {
	if daysAhead <= 0 {
		daysAhead = 7
	}
	if loc == nil {
		loc = time.UTC
	}
	return &schedulingAgent{
		chat:      chat,
		tasks:     tasks,
		slots:     slots,
		daysAhead: daysAhead,
		loc:       loc,
		now:       time.Now,
	}
}

// plannerChoice is the JSON shape the model is instructed to return.
type plannerChoice struct {
	Action          string `json:"action"`
	Start           string `json:"start"`
	DurationMinutes int    `json:"duration_minutes"`
	Reason          string `json:"reason"`
}

// Schedule picks and applies a slot for the task. On success the task
// carries the chosen due datetime, the AI-Scheduled label is added, and
// the Manual-Scheduled label is dropped if present. Label maintenance
// failures do not fail the scheduling.
func (a *schedulingAgent) Schedule(ctx context.Context, req core.PlanRequest) (string, error) {
	now := a.now().In(a.loc)
	window := availability.Interval{
		Start: now,
		End:   now.AddDate(0, 0, a.daysAhead),
	}

	slotsText := a.slots.Text(ctx, req.Category, window, req.OverrideHours)

	choice, err := a.choose(ctx, req.Task, slotsText)
	if err != nil {
		return "", err
	}
	if choice.Action != "schedule" {
		return "", fmt.Errorf("planner declined to schedule: %s", choice.Reason)
	}

	start, err := time.Parse(time.RFC3339, choice.Start)
	if err != nil {
		return "", fmt.Errorf("planner returned unparseable start %q: %w", choice.Start, err)
	}

	minutes := choice.DurationMinutes
	if minutes <= 0 {
		if m := req.Task.Duration.Minutes(); m > 0 {
			minutes = m
		} else {
			minutes = defaultSlotMinutes
		}
	}

	if err := a.tasks.SetSchedule(ctx, req.Task.ID, start, minutes); err != nil {
		return "", fmt.Errorf("applying schedule: %w", err)
	}

	a.updateLabels(ctx, req.Task)

	return fmt.Sprintf("scheduled %s for %d minutes (%s)",
		start.In(a.loc).Format("Mon 2006-01-02 15:04"), minutes, choice.Reason), nil
}

// choose asks the model for a slot and decodes its JSON reply. Replies
// wrapped in markdown fences are unwrapped first.
func (a *schedulingAgent) choose(ctx context.Context, task models.Task, slotsText string) (plannerChoice, error) {
	user := fmt.Sprintf(
		"Task: %s\nDescription: %s\nPriority: %s\nCurrent due: %s\nPlanned duration: %d minutes\n\nAvailable slots:\n%s",
		task.Title(),
		task.Description,
		models.PriorityName(task.EffectivePriority()),
		task.Due.DisplayString(),
		task.Duration.Minutes(),
		slotsText,
	)

	reply, err := a.chat.Complete(ctx, plannerSystemPrompt, user)
	if err != nil {
		return plannerChoice{}, fmt.Errorf("asking planner model: %w", err)
	}

	var choice plannerChoice
	if err := json.Unmarshal([]byte(stripFences(reply)), &choice); err != nil {
		return plannerChoice{}, fmt.Errorf("decoding planner reply %q: %w", reply, err)
	}
	return choice, nil
}

// updateLabels adds the AI-Scheduled label and drops Manual-Scheduled.
func (a *schedulingAgent) updateLabels(ctx context.Context, task models.Task) {
	labels := make([]string, 0, len(task.Labels)+1)
	hasAI := false
	for _, l := range task.Labels {
		switch core.LabelFlag(core.NormalizeLabel(l)) {
		case core.FlagManualScheduled:
			continue
		case core.FlagAIScheduled:
			hasAI = true
		}
		labels = append(labels, l)
	}
	if !hasAI {
		labels = append(labels, AIScheduledLabel)
	}

	// Best effort only.
	_ = a.tasks.SetLabels(ctx, task.ID, labels)
}

// stripFences removes a surrounding markdown code fence from a model
// reply, if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
