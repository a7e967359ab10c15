package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskpilot/taskpilot/pkg/models"
)

// ErrTaskNotFound is returned by TaskService implementations when the
// referenced task no longer exists.
var ErrTaskNotFound = errors.New("task not found")

// TaskService is the slice of the task-list API the router needs.
type TaskService interface {
	GetTask(ctx context.Context, id string) (models.Task, error)
	ClearSchedule(ctx context.Context, id string) error
}

// PlanRequest carries everything the planner needs to choose a slot for
// one task. OverrideHours disables activity-hours filtering for this run.
type PlanRequest struct {
	Task          models.Task
	Category      string
	OverrideHours bool
}

// Planner schedules a single task and returns a description of the chosen
// slot.
type Planner interface {
	Schedule(ctx context.Context, req PlanRequest) (string, error)
}

// Categorizer files a freshly added task into a project section. Applied
// reports whether the task was moved; a moved task is not scheduled in the
// same pass because moving it triggers a fresh update event.
type Categorizer interface {
	Categorize(ctx context.Context, task models.Task) (applied bool, section string, err error)
}

// PolicySource resolves the scheduling configuration for a task.
type PolicySource interface {
	CategoryFor(projectID string) string
	PolicyFor(category string) models.SchedulingPolicy
	AutocategorizeEnabled(projectID string) bool
}

// Outcome statuses.
const (
	StatusScheduled = "scheduled"
	StatusCleared   = "cleared"
	StatusSkipped   = "skipped"
	StatusBlocked   = "blocked"
	StatusFailed    = "failed"
)

// Outcome is the structured result of routing one event.
type Outcome struct {
	ID          string           `json:"id"`
	Status      string           `json:"status"`
	Event       models.EventType `json:"event"`
	TaskID      string           `json:"task_id,omitempty"`
	TaskContent string           `json:"task_content,omitempty"`
	Detail      string           `json:"detail,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	ProcessedAt time.Time        `json:"processed_at"`
}

// Router decides, per inbound event, whether the planner runs and with
// which inputs.
type Router struct {
	guard       *Guard
	tasks       TaskService
	planner     Planner
	categorizer Categorizer
	policies    PolicySource
	loc         *time.Location

	// now is replaceable in tests.
	now func() time.Time
}

// NewRouter wires a Router. The categorizer may be nil when
// auto-categorization is not configured; loc is the timezone overdue
// checks are evaluated in, nil meaning UTC.
func NewRouter(guard *Guard, tasks TaskService, planner Planner, categorizer Categorizer, policies PolicySource, loc *time.Location) *Router {
	if loc == nil {
		loc = time.UTC
	}
	return &Router{
		guard:       guard,
		tasks:       tasks,
		planner:     planner,
		categorizer: categorizer,
		policies:    policies,
		loc:         loc,
		now:         time.Now,
	}
}

// Route applies the per-event decision tree and returns a structured
// outcome. It never panics on unknown event types.
func (r *Router) Route(ctx context.Context, ev models.Event) Outcome {
	switch ev.Name {
	case models.EventItemAdded:
		return r.handleAdded(ctx, ev)
	case models.EventItemUpdated:
		return r.handleUpdated(ctx, ev)
	case models.EventItemCompleted:
		return r.handleCompleted(ctx, ev)
	case models.EventItemDeleted:
		return r.outcome(ev, StatusSkipped, ev.Task, "", "deleted tasks need no scheduling")
	case models.EventSlotEnded:
		return r.handleSlotEnded(ctx, ev)
	default:
		return r.outcome(ev, StatusSkipped, ev.Task, "", fmt.Sprintf("unknown event type %q", ev.Name))
	}
}

func (r *Router) handleAdded(ctx context.Context, ev models.Event) Outcome {
	task := ev.Task

	if r.categorizer != nil && r.policies.AutocategorizeEnabled(task.ProjectID) {
		applied, section, err := r.categorizer.Categorize(ctx, task)
		if err != nil {
			return r.outcome(ev, StatusFailed, task, "", fmt.Sprintf("auto-categorization failed: %v", err))
		}
		if applied {
			// The move triggers a fresh update event; scheduling happens then.
			return r.outcome(ev, StatusSkipped, task,
				fmt.Sprintf("filed into section %q", section),
				"task was auto-categorized")
		}
	}

	return r.schedule(ctx, ev, task)
}

func (r *Router) handleUpdated(ctx context.Context, ev models.Event) Outcome {
	task := ev.Task

	if HasFlag(task.Labels, FlagManualScheduled) {
		return r.outcome(ev, StatusSkipped, task, "", "task is labeled for manual scheduling")
	}

	if ev.OldTask == nil {
		return r.outcome(ev, StatusSkipped, task, "", "change analysis not available without a prior snapshot")
	}

	changes := AnalyzeChanges(*ev.OldTask, task)
	if !changes.HasChanges {
		return r.outcome(ev, StatusSkipped, task, "", "no fields changed")
	}

	if changes.HasTag(models.ChangeTaskCompleted) {
		return r.clear(ctx, ev, task, "task was completed in the update")
	}

	// A priority change always warrants a fresh slot. Anything else only
	// reschedules a task whose planned window has already passed.
	if !changes.HasTag(models.ChangePriority) && !r.overdue(task) {
		return r.outcome(ev, StatusSkipped, task, changes.Summary, "task is not overdue and priority is unchanged")
	}

	return r.scheduleWithDetail(ctx, ev, task, changes.Summary)
}

func (r *Router) handleCompleted(ctx context.Context, ev models.Event) Outcome {
	return r.clear(ctx, ev, ev.Task, "task completed")
}

func (r *Router) handleSlotEnded(ctx context.Context, ev models.Event) Outcome {
	task, err := r.tasks.GetTask(ctx, ev.Task.ID)
	if errors.Is(err, ErrTaskNotFound) {
		return r.outcome(ev, StatusSkipped, ev.Task, "", "task no longer exists")
	}
	if err != nil {
		return r.outcome(ev, StatusFailed, ev.Task, "", fmt.Sprintf("fetching task: %v", err))
	}
	if task.Completed {
		return r.outcome(ev, StatusSkipped, task, "", "task is already completed")
	}

	return r.scheduleWithDetail(ctx, ev, task, "scheduled slot ended with the task still open")
}

// schedule runs the shared gate and, when allowed, the guard-scoped
// planner invocation.
func (r *Router) schedule(ctx context.Context, ev models.Event, task models.Task) Outcome {
	return r.scheduleWithDetail(ctx, ev, task, "")
}

func (r *Router) scheduleWithDetail(ctx context.Context, ev models.Event, task models.Task, detail string) Outcome {
	category := r.policies.CategoryFor(task.ProjectID)
	policy := r.policies.PolicyFor(category)

	ok, reason := ShouldAutoSchedule(task, category, policy)
	if !ok {
		return r.outcome(ev, StatusSkipped, task, detail, reason)
	}

	if r.planner == nil {
		return r.outcome(ev, StatusFailed, task, detail, "no planner configured (authorize a calendar account first)")
	}

	acquired, obstacle := r.guard.Acquire(task.ID)
	if !acquired {
		return r.outcome(ev, StatusBlocked, task, detail, "scheduler is in "+obstacle)
	}
	defer r.guard.Release(task.ID)

	slot, err := r.planner.Schedule(ctx, PlanRequest{
		Task:          task,
		Category:      category,
		OverrideHours: HasFlag(task.Labels, FlagOverrideActivityHours),
	})
	if err != nil {
		return r.outcome(ev, StatusFailed, task, detail, fmt.Sprintf("planning failed: %v", err))
	}

	out := r.outcome(ev, StatusScheduled, task, slot, "")
	out.Detail = joinDetail(detail, slot)
	return out
}

// clear removes the task's schedule. Completions are always reported as
// processed: a task that is already gone upstream still yields a cleared
// outcome, since there is nothing left to unschedule.
func (r *Router) clear(ctx context.Context, ev models.Event, task models.Task, reason string) Outcome {
	if err := r.tasks.ClearSchedule(ctx, task.ID); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return r.outcome(ev, StatusCleared, task, joinDetail(reason, "task already gone, nothing to clear"), "")
		}
		return r.outcome(ev, StatusFailed, task, "", fmt.Sprintf("clearing schedule: %v", err))
	}
	return r.outcome(ev, StatusCleared, task, reason, "")
}

func (r *Router) outcome(ev models.Event, status string, task models.Task, detail, reason string) Outcome {
	return Outcome{
		ID:          uuid.NewString(),
		Status:      status,
		Event:       ev.Name,
		TaskID:      task.ID,
		TaskContent: task.Title(),
		Detail:      detail,
		Reason:      reason,
		ProcessedAt: r.now(),
	}
}

// overdue reports whether the task's planned window has fully passed:
// due moment plus duration (zero when missing or invalid) is strictly
// before now. A task without a parseable due moment is never overdue.
func (r *Router) overdue(task models.Task) bool {
	due, ok := task.Due.Moment(r.loc)
	if !ok {
		return false
	}
	end := due.Add(time.Duration(task.Duration.Minutes()) * time.Minute)
	return end.Before(r.now())
}

func joinDetail(detail, slot string) string {
	if detail == "" {
		return slot
	}
	if slot == "" {
		return detail
	}
	return detail + "; " + slot
}
