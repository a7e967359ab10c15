package availability

import (
	"context"
	"time"

	"github.com/taskpilot/taskpilot/pkg/models"
)

// HoursSource resolves the configured activity hours for a category.
type HoursSource interface {
	HoursFor(category string) models.ActivityHours
}

// Service answers complete availability queries: fetch, subtract, filter
// by the category's activity hours, and render.
type Service struct {
	engine *Engine
	hours  HoursSource
	loc    *time.Location
}

// NewService wires a Service. loc is the timezone days are split and
// rendered in.
func NewService(engine *Engine, hours HoursSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{engine: engine, hours: hours, loc: loc}
}

// Free returns the filtered free intervals for a category in the window,
// day-split, along with filtering and degradation notes.
func (s *Service) Free(ctx context.Context, category string, window Interval, override bool) ([]Interval, []string) {
	free, notes := s.engine.FreeIntervals(ctx, window)
	split := SplitByDay(free, s.loc)
	filtered, filterNotes := FilterByHours(split, s.hours.HoursFor(category), s.loc, override)
	return filtered, append(notes, filterNotes...)
}

// Text renders the filtered free intervals as planner-ready text.
func (s *Service) Text(ctx context.Context, category string, window Interval, override bool) string {
	free, notes := s.Free(ctx, category, window, override)
	return FormatSlots(free, notes, s.loc)
}
