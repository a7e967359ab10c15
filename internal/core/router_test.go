package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/taskpilot/taskpilot/pkg/models"
)

// --- Mocks ---

type mockTaskService struct {
	tasks      map[string]models.Task
	clearedIDs []string
	getErr     error
	clearErr   error
}

func (m *mockTaskService) GetTask(_ context.Context, id string) (models.Task, error) {
	if m.getErr != nil {
		return models.Task{}, m.getErr
	}
	task, ok := m.tasks[id]
	if !ok {
		return models.Task{}, ErrTaskNotFound
	}
	return task, nil
}

func (m *mockTaskService) ClearSchedule(_ context.Context, id string) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.clearedIDs = append(m.clearedIDs, id)
	return nil
}

type mockPlanner struct {
	requests []PlanRequest
	slot     string
	err      error
}

func (m *mockPlanner) Schedule(_ context.Context, req PlanRequest) (string, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	return m.slot, nil
}

type mockCategorizer struct {
	applied bool
	section string
	err     error
	calls   int
}

func (m *mockCategorizer) Categorize(_ context.Context, _ models.Task) (bool, string, error) {
	m.calls++
	return m.applied, m.section, m.err
}

type mockPolicySource struct {
	categories     map[string]string
	policies       map[string]models.SchedulingPolicy
	autocategorize map[string]bool
}

func (m *mockPolicySource) CategoryFor(projectID string) string { return m.categories[projectID] }

func (m *mockPolicySource) PolicyFor(category string) models.SchedulingPolicy {
	return m.policies[category]
}

func (m *mockPolicySource) AutocategorizeEnabled(projectID string) bool {
	return m.autocategorize[projectID]
}

// --- Fixture ---

var routerNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func newTestRouter(tasks *mockTaskService, planner *mockPlanner, categorizer Categorizer) *Router {
	policies := &mockPolicySource{
		categories: map[string]string{"p-work": "work"},
		policies: map[string]models.SchedulingPolicy{
			"work": {Enabled: true, MinPriority: 2},
		},
		autocategorize: map[string]bool{"p-auto": true},
	}
	guard := NewGuard(300*time.Second, 3*time.Second)
	guard.now = func() time.Time { return routerNow }

	r := NewRouter(guard, tasks, planner, categorizer, policies, time.UTC)
	r.now = func() time.Time { return routerNow }
	return r
}

func workTask(id string) models.Task {
	return models.Task{ID: id, Content: "Write report", ProjectID: "p-work", Priority: 3}
}

// --- Tests ---

func TestRoute_AddedSchedules(t *testing.T) {
	planner := &mockPlanner{slot: "booked Monday 09:00"}
	r := newTestRouter(&mockTaskService{}, planner, nil)

	out := r.Route(context.Background(), models.Event{Name: models.EventItemAdded, Task: workTask("1")})
	if out.Status != StatusScheduled {
		t.Fatalf("expected scheduled, got %s (%s)", out.Status, out.Reason)
	}
	if len(planner.requests) != 1 {
		t.Fatalf("expected one planner call, got %d", len(planner.requests))
	}
	if planner.requests[0].Category != "work" {
		t.Errorf("expected category work, got %q", planner.requests[0].Category)
	}
	if out.ID == "" {
		t.Error("outcome should carry an identifier")
	}
}

func TestRoute_AddedManualLabelSkips(t *testing.T) {
	planner := &mockPlanner{}
	r := newTestRouter(&mockTaskService{}, planner, nil)

	task := workTask("1")
	task.Labels = []string{"Manual Scheduled"}
	out := r.Route(context.Background(), models.Event{Name: models.EventItemAdded, Task: task})
	if out.Status != StatusSkipped {
		t.Fatalf("expected skipped, got %s", out.Status)
	}
	if len(planner.requests) != 0 {
		t.Error("planner must not run for manual-scheduled tasks")
	}
}

func TestRoute_AddedUnmappedProjectSkips(t *testing.T) {
	planner := &mockPlanner{}
	r := newTestRouter(&mockTaskService{}, planner, nil)

	task := workTask("1")
	task.ProjectID = "p-unknown"
	out := r.Route(context.Background(), models.Event{Name: models.EventItemAdded, Task: task})
	if out.Status != StatusSkipped {
		t.Fatalf("expected skipped, got %s", out.Status)
	}
}

func TestRoute_AddedBelowThresholdSkips(t *testing.T) {
	planner := &mockPlanner{}
	r := newTestRouter(&mockTaskService{}, planner, nil)

	task := workTask("1")
	task.Priority = 1
	out := r.Route(context.Background(), models.Event{Name: models.EventItemAdded, Task: task})
	if out.Status != StatusSkipped {
		t.Fatalf("expected skipped, got %s", out.Status)
	}
	if !strings.Contains(out.Reason, "Low") || !strings.Contains(out.Reason, "Normal") {
		t.Errorf("reason should cite priority names, got %q", out.Reason)
	}
}

func TestRoute_AddedAutocategorizeShortCircuits(t *testing.T) {
	planner := &mockPlanner{}
	categorizer := &mockCategorizer{applied: true, section: "Deep Work"}
	r := newTestRouter(&mockTaskService{}, planner, categorizer)

	task := workTask("1")
	task.ProjectID = "p-auto"
	out := r.Route(context.Background(), models.Event{Name: models.EventItemAdded, Task: task})
	if out.Status != StatusSkipped {
		t.Fatalf("expected skipped after categorization, got %s", out.Status)
	}
	if categorizer.calls != 1 {
		t.Errorf("expected one categorizer call, got %d", categorizer.calls)
	}
	if len(planner.requests) != 0 {
		t.Error("planner must not run when the task was moved")
	}
}

func TestRoute_UpdatedWithoutOldSnapshotSkips(t *testing.T) {
	planner := &mockPlanner{}
	r := newTestRouter(&mockTaskService{}, planner, nil)

	out := r.Route(context.Background(), models.Event{Name: models.EventItemUpdated, Task: workTask("1")})
	if out.Status != StatusSkipped {
		t.Fatalf("expected skipped, got %s", out.Status)
	}
	if !strings.Contains(out.Reason, "not available") {
		t.Errorf("reason should explain the missing snapshot, got %q", out.Reason)
	}
}

func TestRoute_UpdatedNoChangesSkips(t *testing.T) {
	planner := &mockPlanner{}
	r := newTestRouter(&mockTaskService{}, planner, nil)

	task := workTask("1")
	out := r.Route(context.Background(), models.Event{Name: models.EventItemUpdated, Task: task, OldTask: &task})
	if out.Status != StatusSkipped {
		t.Fatalf("expected skipped, got %s", out.Status)
	}
}

func TestRoute_UpdatedDescriptionOnlyNotOverdueSkips(t *testing.T) {
	planner := &mockPlanner{}
	r := newTestRouter(&mockTaskService{}, planner, nil)

	oldTask := workTask("1")
	oldTask.Due = &models.Due{Datetime: "2025-06-02T11:30:00Z"}
	oldTask.Duration = &models.Duration{Amount: 60, Unit: "minute"}

	newTask := oldTask
	newTask.Description = "more detail"

	out := r.Route(context.Background(), models.Event{Name: models.EventItemUpdated, Task: newTask, OldTask: &oldTask})
	if out.Status != StatusSkipped {
		t.Fatalf("expected skipped for a non-overdue cosmetic change, got %s", out.Status)
	}
	if len(planner.requests) != 0 {
		t.Error("planner must not run")
	}
}

func TestRoute_UpdatedOverdueReschedules(t *testing.T) {
	planner := &mockPlanner{slot: "rebooked"}
	r := newTestRouter(&mockTaskService{}, planner, nil)

	oldTask := workTask("1")
	oldTask.Due = &models.Due{Datetime: "2025-06-02T10:00:00Z"}
	oldTask.Duration = &models.Duration{Amount: 60, Unit: "minute"}

	newTask := oldTask
	newTask.Description = "still pending"

	out := r.Route(context.Background(), models.Event{Name: models.EventItemUpdated, Task: newTask, OldTask: &oldTask})
	if out.Status != StatusScheduled {
		t.Fatalf("expected scheduled for an overdue task, got %s (%s)", out.Status, out.Reason)
	}
}

func TestRoute_UpdatedPriorityChangeBypassesOverdueCheck(t *testing.T) {
	planner := &mockPlanner{slot: "rebooked"}
	r := newTestRouter(&mockTaskService{}, planner, nil)

	oldTask := workTask("1")
	oldTask.Due = &models.Due{Datetime: "2025-06-03T10:00:00Z"}

	newTask := oldTask
	newTask.Priority = 4

	out := r.Route(context.Background(), models.Event{Name: models.EventItemUpdated, Task: newTask, OldTask: &oldTask})
	if out.Status != StatusScheduled {
		t.Fatalf("priority change must reschedule even with a future due, got %s (%s)", out.Status, out.Reason)
	}
}

func TestRoute_UpdatedMissingDurationCountsAsZero(t *testing.T) {
	planner := &mockPlanner{slot: "rebooked"}
	r := newTestRouter(&mockTaskService{}, planner, nil)

	oldTask := workTask("1")
	oldTask.Due = &models.Due{Datetime: "2025-06-02T11:00:00Z"}

	newTask := oldTask
	newTask.Description = "edited"

	out := r.Route(context.Background(), models.Event{Name: models.EventItemUpdated, Task: newTask, OldTask: &oldTask})
	if out.Status != StatusScheduled {
		t.Fatalf("due moment alone is past, expected scheduled, got %s (%s)", out.Status, out.Reason)
	}
}

func TestRoute_UpdatedCompletionClears(t *testing.T) {
	tasks := &mockTaskService{}
	r := newTestRouter(tasks, &mockPlanner{}, nil)

	oldTask := workTask("1")
	newTask := oldTask
	newTask.Completed = true

	out := r.Route(context.Background(), models.Event{Name: models.EventItemUpdated, Task: newTask, OldTask: &oldTask})
	if out.Status != StatusCleared {
		t.Fatalf("expected cleared, got %s", out.Status)
	}
	if len(tasks.clearedIDs) != 1 || tasks.clearedIDs[0] != "1" {
		t.Errorf("expected schedule cleared for task 1, got %v", tasks.clearedIDs)
	}
}

func TestRoute_CompletedClears(t *testing.T) {
	tasks := &mockTaskService{}
	r := newTestRouter(tasks, &mockPlanner{}, nil)

	out := r.Route(context.Background(), models.Event{Name: models.EventItemCompleted, Task: workTask("1")})
	if out.Status != StatusCleared {
		t.Fatalf("expected cleared, got %s", out.Status)
	}
	if len(tasks.clearedIDs) != 1 {
		t.Errorf("expected one clear call, got %d", len(tasks.clearedIDs))
	}
}

func TestRoute_CompletedGoneTaskStillClears(t *testing.T) {
	tasks := &mockTaskService{clearErr: ErrTaskNotFound}
	r := newTestRouter(tasks, &mockPlanner{}, nil)

	out := r.Route(context.Background(), models.Event{Name: models.EventItemCompleted, Task: workTask("1")})
	if out.Status != StatusCleared {
		t.Fatalf("completion must always be processed, got %s (%s)", out.Status, out.Reason)
	}
	if !strings.Contains(out.Detail, "already gone") {
		t.Errorf("detail should say the task was gone, got %q", out.Detail)
	}
}

func TestRoute_SlotEndedRefetchesAndReschedules(t *testing.T) {
	tasks := &mockTaskService{tasks: map[string]models.Task{"1": workTask("1")}}
	planner := &mockPlanner{slot: "rebooked"}
	r := newTestRouter(tasks, planner, nil)

	out := r.Route(context.Background(), models.Event{Name: models.EventSlotEnded, Task: models.Task{ID: "1"}})
	if out.Status != StatusScheduled {
		t.Fatalf("expected scheduled, got %s (%s)", out.Status, out.Reason)
	}
}

func TestRoute_SlotEndedMissingTaskSkips(t *testing.T) {
	tasks := &mockTaskService{tasks: map[string]models.Task{}}
	r := newTestRouter(tasks, &mockPlanner{}, nil)

	out := r.Route(context.Background(), models.Event{Name: models.EventSlotEnded, Task: models.Task{ID: "gone"}})
	if out.Status != StatusSkipped {
		t.Fatalf("expected skipped, got %s", out.Status)
	}
}

func TestRoute_SlotEndedCompletedTaskSkips(t *testing.T) {
	done := workTask("1")
	done.Completed = true
	tasks := &mockTaskService{tasks: map[string]models.Task{"1": done}}
	planner := &mockPlanner{}
	r := newTestRouter(tasks, planner, nil)

	out := r.Route(context.Background(), models.Event{Name: models.EventSlotEnded, Task: models.Task{ID: "1"}})
	if out.Status != StatusSkipped {
		t.Fatalf("expected skipped, got %s", out.Status)
	}
	if len(planner.requests) != 0 {
		t.Error("planner must not run for a completed task")
	}
}

func TestRoute_UnknownEventSkips(t *testing.T) {
	r := newTestRouter(&mockTaskService{}, &mockPlanner{}, nil)

	out := r.Route(context.Background(), models.Event{Name: "item:mystery", Task: workTask("1")})
	if out.Status != StatusSkipped {
		t.Fatalf("expected skipped, got %s", out.Status)
	}
	if !strings.Contains(out.Reason, "unknown") {
		t.Errorf("reason should mention the unknown event type, got %q", out.Reason)
	}
}

func TestRoute_DeletedSkips(t *testing.T) {
	r := newTestRouter(&mockTaskService{}, &mockPlanner{}, nil)

	out := r.Route(context.Background(), models.Event{Name: models.EventItemDeleted, Task: workTask("1")})
	if out.Status != StatusSkipped {
		t.Fatalf("expected skipped, got %s", out.Status)
	}
}

func TestRoute_GuardBusyBlocks(t *testing.T) {
	planner := &mockPlanner{slot: "booked"}
	r := newTestRouter(&mockTaskService{}, planner, nil)

	r.guard.Acquire("other-task")
	out := r.Route(context.Background(), models.Event{Name: models.EventItemAdded, Task: workTask("1")})
	if out.Status != StatusBlocked {
		t.Fatalf("expected blocked while the guard is held, got %s", out.Status)
	}
	if len(planner.requests) != 0 {
		t.Error("planner must not run while blocked")
	}
}

func TestRoute_GuardReleasedIntoCooldownAfterScheduling(t *testing.T) {
	planner := &mockPlanner{slot: "booked"}
	r := newTestRouter(&mockTaskService{}, planner, nil)

	out := r.Route(context.Background(), models.Event{Name: models.EventItemAdded, Task: workTask("1")})
	if out.Status != StatusScheduled {
		t.Fatalf("expected scheduled, got %s", out.Status)
	}

	status := r.guard.Status()
	if status.Working {
		t.Error("guard should be released after routing")
	}
	if !status.CoolingDown {
		t.Error("guard should be cooling down after the release")
	}
}

func TestRoute_PlannerFailureReportsFailed(t *testing.T) {
	planner := &mockPlanner{err: errors.New("model unavailable")}
	r := newTestRouter(&mockTaskService{}, planner, nil)

	out := r.Route(context.Background(), models.Event{Name: models.EventItemAdded, Task: workTask("1")})
	if out.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
	if r.guard.busy() {
		t.Error("guard must be released even when planning fails")
	}
}
