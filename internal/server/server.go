// Package server exposes the webhook transport: task-list deliveries,
// calendar slot-end notifications, and the status endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/taskpilot/taskpilot/internal/core"
	"github.com/taskpilot/taskpilot/internal/observability"
	"github.com/taskpilot/taskpilot/pkg/models"
)

const (
	// RetryAfterBusy is the hint returned while a task is being scheduled.
	RetryAfterBusy = 30

	// RetryAfterCooldown is the hint returned during the post-release
	// cooldown.
	RetryAfterCooldown = 5
)

// taskURLPattern extracts the task ID from a task URL such as
// "https://app.todoist.com/app/task/6X7rM8997g3RQmvh".
var taskURLPattern = regexp.MustCompile(`/task/([a-zA-Z0-9]+)`)

// EventRouter routes one normalized event to an outcome.
type EventRouter interface {
	Route(ctx context.Context, ev models.Event) core.Outcome
}

// Server is the webhook HTTP listener.
type Server struct {
	router   EventRouter
	guard    *core.Guard
	eventLog observability.EventLog
	notifier observability.Notifier
	addr     string
}

// New creates a Server. notifier may be nil when no failure channel is
// configured.
func New(router EventRouter, guard *core.Guard, eventLog observability.EventLog, notifier observability.Notifier, addr string) *Server {
	return &Server{
		router:   router,
		guard:    guard,
		eventLog: eventLog,
		notifier: notifier,
		addr:     addr,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook/todoist", s.handleTodoistWebhook)
	mux.HandleFunc("POST /webhook/calendar", s.handleCalendarWebhook)
	mux.HandleFunc("GET /webhook/agent-status", s.handleAgentStatus)
	mux.HandleFunc("GET /webhook/logs", s.handleLogs)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return mux
}

// ListenAndServe runs the server until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// todoistDelivery is the wire shape of a task-list webhook. The prior
// snapshot arrives wrapped in event_data_extra under "old_item".
type todoistDelivery struct {
	EventName string       `json:"event_name"`
	EventData *models.Task `json:"event_data"`
	Extra     struct {
		OldItem *models.Task `json:"old_item"`
	} `json:"event_data_extra"`
}

func (s *Server) handleTodoistWebhook(w http.ResponseWriter, r *http.Request) {
	var delivery todoistDelivery
	if err := json.NewDecoder(r.Body).Decode(&delivery); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if delivery.EventName == "" || delivery.EventData == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "event_name and event_data are required"})
		return
	}

	if blocked := s.guardShortCircuit(w); blocked {
		return
	}

	ev := models.Event{
		Name:    models.EventType(delivery.EventName),
		Task:    *delivery.EventData,
		OldTask: delivery.Extra.OldItem,
	}

	s.logTrigger("webhook", fmt.Sprintf("todoist %s for task %s", ev.Name, ev.Task.ID), ev.Task.ID)
	outcome := s.router.Route(r.Context(), ev)
	s.finish(w, outcome)
}

// calendarNotice is one entry of a calendar slot-end notification. The
// sender wraps payloads inconsistently, so both the flat shape and a
// {"body": {...}} envelope are accepted, as is a single notice or an
// array of them.
type calendarNotice struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	TaskURL     string `json:"task_url"`
}

func (s *Server) handleCalendarWebhook(w http.ResponseWriter, r *http.Request) {
	notices, err := decodeCalendarNotices(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if blocked := s.guardShortCircuit(w); blocked {
		return
	}

	var outcomes []core.Outcome
	for _, n := range notices {
		name := n.Title
		if name == "" {
			name = n.Summary
		}

		// A checkmark in the event name means the task was already
		// completed when the slot was booked.
		if strings.Contains(name, "✓") {
			continue
		}

		taskID := extractTaskID(n.TaskURL)
		if taskID == "" {
			taskID = extractTaskID(n.Description)
		}
		if taskID == "" {
			continue
		}

		ev := models.Event{
			Name: models.EventSlotEnded,
			Task: models.Task{ID: taskID, Content: name},
		}
		s.logTrigger("calendar", fmt.Sprintf("slot ended for task %s", taskID), taskID)
		outcomes = append(outcomes, s.router.Route(r.Context(), ev))
	}

	for _, outcome := range outcomes {
		s.logOutcome(outcome)
	}
	writeJSON(w, http.StatusOK, map[string]any{"processed": len(outcomes), "outcomes": outcomes})
}

func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.guard.Status())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := s.eventLog.Tail(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(events), "events": events})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "taskpilot",
		"status":  "running",
	})
}

// guardShortCircuit answers 202 with a retry hint when the scheduler is
// busy or cooling down, and reports whether it wrote a response.
func (s *Server) guardShortCircuit(w http.ResponseWriter) bool {
	status := s.guard.Status()
	switch {
	case status.Working:
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status":              "blocked",
			"reason":              "busy",
			"retry_after_seconds": RetryAfterBusy,
		})
		return true
	case status.CoolingDown:
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status":              "blocked",
			"reason":              "cooldown",
			"retry_after_seconds": RetryAfterCooldown,
		})
		return true
	}
	return false
}

// finish logs the outcome, notifies on failure, and writes the response.
func (s *Server) finish(w http.ResponseWriter, outcome core.Outcome) {
	s.logOutcome(outcome)
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) logTrigger(kind, message, taskID string) {
	if s.eventLog == nil {
		return
	}
	_ = s.eventLog.Write(observability.Trigger(kind, message, map[string]any{"task_id": taskID}))
}

func (s *Server) logOutcome(outcome core.Outcome) {
	if s.eventLog != nil {
		failed := outcome.Status == core.StatusFailed
		_ = s.eventLog.Write(observability.Action(outcome.Status, outcomeMessage(outcome), failed, map[string]any{
			"outcome_id": outcome.ID,
			"event":      string(outcome.Event),
			"task_id":    outcome.TaskID,
		}))
	}

	if s.notifier != nil && outcome.Status == core.StatusFailed {
		_ = s.notifier.Notify(observability.Failure{
			TaskID:     outcome.TaskID,
			TaskTitle:  outcome.TaskContent,
			Reason:     outcome.Reason,
			OccurredAt: outcome.ProcessedAt,
		})
	}
}

func outcomeMessage(outcome core.Outcome) string {
	msg := fmt.Sprintf("%s: %s (%s)", outcome.Status, outcome.TaskContent, outcome.Event)
	if outcome.Reason != "" {
		msg += ": " + outcome.Reason
	}
	return msg
}

// decodeCalendarNotices tolerates the sender's payload variants: a
// single notice or an array, each either flat or inside a "body" field.
func decodeCalendarNotices(r *http.Request) ([]calendarNotice, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON body")
	}

	var entries []json.RawMessage
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("invalid JSON array")
		}
	} else {
		entries = []json.RawMessage{raw}
	}

	notices := make([]calendarNotice, 0, len(entries))
	for _, entry := range entries {
		var envelope struct {
			Body *calendarNotice `json:"body"`
		}
		if err := json.Unmarshal(entry, &envelope); err == nil && envelope.Body != nil {
			notices = append(notices, *envelope.Body)
			continue
		}

		var notice calendarNotice
		if err := json.Unmarshal(entry, &notice); err != nil {
			return nil, fmt.Errorf("invalid calendar event entry")
		}
		notices = append(notices, notice)
	}
	return notices, nil
}

func extractTaskID(s string) string {
	m := taskURLPattern.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
