// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the scheduler's state as MCP tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/taskpilot/taskpilot/internal/availability"
	"github.com/taskpilot/taskpilot/internal/core"
	"github.com/taskpilot/taskpilot/internal/observability"
)

// Server wraps scheduler services and exposes them as MCP tools.
type Server struct {
	server   *gomcp.Server
	guard    *core.Guard
	slots    *availability.Service
	eventLog observability.EventLog
	loc      *time.Location
}

// NewServer creates a new MCP server with the given service dependencies.
// slots and eventLog may be nil when calendars or logging are not
// configured.
func NewServer(guard *core.Guard, slots *availability.Service, eventLog observability.EventLog, loc *time.Location, version string) *Server {
	if version == "" {
		version = "dev"
	}
	if loc == nil {
		loc = time.UTC
	}

	s := &Server{
		guard:    guard,
		slots:    slots,
		eventLog: eventLog,
		loc:      loc,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "taskpilot", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client
// disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type getAgentStatusInput struct{}

type agentStatusOutput struct {
	Working       bool   `json:"working"`
	TaskID        string `json:"task_id,omitempty"`
	WorkingSince  string `json:"working_since,omitempty"`
	CoolingDown   bool   `json:"cooling_down"`
	CooldownSince string `json:"cooldown_since,omitempty"`
}

type getFreeSlotsInput struct {
	Category string `json:"category" jsonschema:"required,the scheduling category whose activity hours apply (e.g. work, personal)"`
	From     string `json:"from,omitempty" jsonschema:"range start as RFC 3339 or YYYY-MM-DD. Defaults to now."`
	To       string `json:"to,omitempty" jsonschema:"range end as RFC 3339 or YYYY-MM-DD. Defaults to 7 days from now."`
}

type freeSlotsOutput struct {
	Text string `json:"text"`
}

type getRecentEventsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of events to return. Defaults to 20."`
}

type eventOutput struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type getRecentEventsOutput struct {
	Events []eventOutput `json:"events"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_agent_status",
		Description: "Get the scheduler's concurrency state: whether a task is being scheduled and whether the post-release cooldown is active.",
	}, s.handleGetAgentStatus)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_free_slots",
		Description: "Compute the free time slots for a scheduling category over a date range, rendered as day-grouped text.",
	}, s.handleGetFreeSlots)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_recent_events",
		Description: "Read the most recent trigger and action events from the scheduler's event log.",
	}, s.handleGetRecentEvents)
}

// --- Tool handlers ---

func (s *Server) handleGetAgentStatus(_ context.Context, _ *gomcp.CallToolRequest, _ getAgentStatusInput) (*gomcp.CallToolResult, agentStatusOutput, error) {
	status := s.guard.Status()

	out := agentStatusOutput{
		Working:     status.Working,
		TaskID:      status.TaskID,
		CoolingDown: status.CoolingDown,
	}
	if !status.WorkingSince.IsZero() {
		out.WorkingSince = status.WorkingSince.Format(time.RFC3339)
	}
	if !status.CooldownSince.IsZero() {
		out.CooldownSince = status.CooldownSince.Format(time.RFC3339)
	}

	return nil, out, nil
}

func (s *Server) handleGetFreeSlots(ctx context.Context, _ *gomcp.CallToolRequest, input getFreeSlotsInput) (*gomcp.CallToolResult, freeSlotsOutput, error) {
	if s.slots == nil {
		return errorResult("no calendars configured"), freeSlotsOutput{}, nil
	}
	if input.Category == "" {
		return errorResult("category is required"), freeSlotsOutput{}, nil
	}

	now := time.Now().In(s.loc)
	window := availability.Interval{Start: now, End: now.AddDate(0, 0, 7)}

	if input.From != "" {
		start, err := availability.ParseBound(input.From, s.loc, false)
		if err != nil {
			return errorResult(fmt.Sprintf("parsing from: %s", err)), freeSlotsOutput{}, nil
		}
		window.Start = start
	}
	if input.To != "" {
		end, err := availability.ParseBound(input.To, s.loc, true)
		if err != nil {
			return errorResult(fmt.Sprintf("parsing to: %s", err)), freeSlotsOutput{}, nil
		}
		window.End = end
	}

	text := s.slots.Text(ctx, input.Category, window, false)
	return nil, freeSlotsOutput{Text: text}, nil
}

func (s *Server) handleGetRecentEvents(_ context.Context, _ *gomcp.CallToolRequest, input getRecentEventsInput) (*gomcp.CallToolResult, getRecentEventsOutput, error) {
	if s.eventLog == nil {
		return errorResult("event log not available"), getRecentEventsOutput{}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	events, err := s.eventLog.Tail(limit)
	if err != nil {
		return errorResult(fmt.Sprintf("reading event log: %s", err)), getRecentEventsOutput{}, nil
	}

	out := getRecentEventsOutput{
		Events: make([]eventOutput, len(events)),
		Count:  len(events),
	}
	for i, ev := range events {
		out.Events[i] = eventOutput{
			Time:    ev.Time.Format(time.RFC3339),
			Level:   ev.Level,
			Type:    ev.Type,
			Message: ev.Message,
		}
	}

	return nil, out, nil
}

// --- Helpers ---

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
