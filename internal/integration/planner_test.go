package integration

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/taskpilot/taskpilot/internal/availability"
	"github.com/taskpilot/taskpilot/internal/core"
	"github.com/taskpilot/taskpilot/pkg/models"
)

type fakeChat struct {
	reply string
	err   error
	user  string
}

func (f *fakeChat) Complete(_ context.Context, _, user string) (string, error) {
	f.user = user
	return f.reply, f.err
}

type fakeSlotSource struct {
	text     string
	category string
	override bool
}

func (f *fakeSlotSource) Text(_ context.Context, category string, _ availability.Interval, override bool) string {
	f.category = category
	f.override = override
	return f.text
}

// fakeTodoist records schedule and label writes.
type fakeTodoist struct {
	scheduledID    string
	scheduledStart time.Time
	scheduledMins  int
	scheduleErr    error
	labels         []string
	labelsErr      error
}

func (f *fakeTodoist) GetTask(_ context.Context, id string) (models.Task, error) {
	return models.Task{}, core.ErrTaskNotFound
}

func (f *fakeTodoist) ClearSchedule(_ context.Context, _ string) error { return nil }

func (f *fakeTodoist) SetSchedule(_ context.Context, id string, start time.Time, mins int) error {
	f.scheduledID = id
	f.scheduledStart = start
	f.scheduledMins = mins
	return f.scheduleErr
}

func (f *fakeTodoist) SetLabels(_ context.Context, _ string, labels []string) error {
	f.labels = labels
	return f.labelsErr
}

func (f *fakeTodoist) ListSections(_ context.Context, _ string) ([]Section, error) {
	return nil, nil
}

func (f *fakeTodoist) MoveToSection(_ context.Context, _, _ string) error { return nil }

func plannerTask() models.Task {
	return models.Task{
		ID:       "abc123",
		Content:  "Write report",
		Priority: 3,
		Labels:   []string{"Manual Scheduled", "errand"},
		Duration: &models.Duration{Amount: 1, Unit: "hour"},
	}
}

func TestSchedulingAgent_AppliesChoice(t *testing.T) {
	chat := &fakeChat{reply: `{"action": "schedule", "start": "2025-06-02T09:00:00Z", "duration_minutes": 45, "reason": "morning focus block"}`}
	tasks := &fakeTodoist{}
	slots := &fakeSlotSource{text: "**Monday, 2025-06-02:**\n  • 09:00 - 17:00 (480 minutes)"}

	agent := NewSchedulingAgent(chat, tasks, slots, 7, time.UTC)
	detail, err := agent.Schedule(context.Background(), core.PlanRequest{
		Task:     plannerTask(),
		Category: "work",
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if tasks.scheduledID != "abc123" {
		t.Errorf("unexpected scheduled task %q", tasks.scheduledID)
	}
	if !tasks.scheduledStart.Equal(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected start %v", tasks.scheduledStart)
	}
	if tasks.scheduledMins != 45 {
		t.Errorf("unexpected duration %d", tasks.scheduledMins)
	}
	if !strings.Contains(detail, "45 minutes") || !strings.Contains(detail, "morning focus block") {
		t.Errorf("unexpected detail %q", detail)
	}
	if slots.category != "work" {
		t.Errorf("slot source got category %q", slots.category)
	}
}

func TestSchedulingAgent_SwapsLabels(t *testing.T) {
	chat := &fakeChat{reply: `{"action": "schedule", "start": "2025-06-02T09:00:00Z", "duration_minutes": 30, "reason": "ok"}`}
	tasks := &fakeTodoist{}

	agent := NewSchedulingAgent(chat, tasks, &fakeSlotSource{}, 7, time.UTC)
	if _, err := agent.Schedule(context.Background(), core.PlanRequest{Task: plannerTask()}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	for _, l := range tasks.labels {
		if l == ManualScheduledLabel {
			t.Errorf("manual label should be dropped, got %v", tasks.labels)
		}
	}
	found := false
	for _, l := range tasks.labels {
		if l == AIScheduledLabel {
			found = true
		}
	}
	if !found {
		t.Errorf("AI label should be added, got %v", tasks.labels)
	}
}

func TestSchedulingAgent_LabelFailureDoesNotFailScheduling(t *testing.T) {
	chat := &fakeChat{reply: `{"action": "schedule", "start": "2025-06-02T09:00:00Z", "duration_minutes": 30, "reason": "ok"}`}
	tasks := &fakeTodoist{labelsErr: errors.New("labels endpoint down")}

	agent := NewSchedulingAgent(chat, tasks, &fakeSlotSource{}, 7, time.UTC)
	if _, err := agent.Schedule(context.Background(), core.PlanRequest{Task: plannerTask()}); err != nil {
		t.Errorf("label failure should not fail scheduling: %v", err)
	}
}

func TestSchedulingAgent_UnwrapsFencedReply(t *testing.T) {
	chat := &fakeChat{reply: "```json\n{\"action\": \"schedule\", \"start\": \"2025-06-02T09:00:00Z\", \"duration_minutes\": 30, \"reason\": \"ok\"}\n```"}
	tasks := &fakeTodoist{}

	agent := NewSchedulingAgent(chat, tasks, &fakeSlotSource{}, 7, time.UTC)
	if _, err := agent.Schedule(context.Background(), core.PlanRequest{Task: plannerTask()}); err != nil {
		t.Fatalf("fenced reply should decode: %v", err)
	}
}

func TestSchedulingAgent_SkipActionIsAnError(t *testing.T) {
	chat := &fakeChat{reply: `{"action": "skip", "reason": "no slot fits"}`}
	tasks := &fakeTodoist{}

	agent := NewSchedulingAgent(chat, tasks, &fakeSlotSource{}, 7, time.UTC)
	_, err := agent.Schedule(context.Background(), core.PlanRequest{Task: plannerTask()})
	if err == nil || !strings.Contains(err.Error(), "no slot fits") {
		t.Errorf("expected a decline error carrying the reason, got %v", err)
	}
	if tasks.scheduledID != "" {
		t.Error("declined plan must not touch the task")
	}
}

func TestSchedulingAgent_MissingDurationFallsBackToTask(t *testing.T) {
	chat := &fakeChat{reply: `{"action": "schedule", "start": "2025-06-02T09:00:00Z", "reason": "ok"}`}
	tasks := &fakeTodoist{}

	agent := NewSchedulingAgent(chat, tasks, &fakeSlotSource{}, 7, time.UTC)
	if _, err := agent.Schedule(context.Background(), core.PlanRequest{Task: plannerTask()}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if tasks.scheduledMins != 60 {
		t.Errorf("expected the task's own 60 minute duration, got %d", tasks.scheduledMins)
	}
}

func TestSchedulingAgent_NoDurationAnywhereUsesDefault(t *testing.T) {
	chat := &fakeChat{reply: `{"action": "schedule", "start": "2025-06-02T09:00:00Z", "reason": "ok"}`}
	tasks := &fakeTodoist{}

	task := plannerTask()
	task.Duration = nil

	agent := NewSchedulingAgent(chat, tasks, &fakeSlotSource{}, 7, time.UTC)
	if _, err := agent.Schedule(context.Background(), core.PlanRequest{Task: task}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if tasks.scheduledMins != defaultSlotMinutes {
		t.Errorf("expected default slot length, got %d", tasks.scheduledMins)
	}
}

func TestSchedulingAgent_ChatErrorSurfaces(t *testing.T) {
	chat := &fakeChat{err: errors.New("model unavailable")}
	agent := NewSchedulingAgent(chat, &fakeTodoist{}, &fakeSlotSource{}, 7, time.UTC)
	if _, err := agent.Schedule(context.Background(), core.PlanRequest{Task: plannerTask()}); err == nil {
		t.Error("expected chat failure to surface")
	}
}

func TestSchedulingAgent_OverrideHoursPassedThrough(t *testing.T) {
	chat := &fakeChat{reply: `{"action": "schedule", "start": "2025-06-02T09:00:00Z", "duration_minutes": 30, "reason": "ok"}`}
	slots := &fakeSlotSource{}

	agent := NewSchedulingAgent(chat, &fakeTodoist{}, slots, 7, time.UTC)
	_, err := agent.Schedule(context.Background(), core.PlanRequest{
		Task:          plannerTask(),
		OverrideHours: true,
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if !slots.override {
		t.Error("override flag should reach the slot source")
	}
}
