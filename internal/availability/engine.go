package availability

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultSourceTimeout bounds one calendar listing call.
	DefaultSourceTimeout = 30 * time.Second

	// DefaultOverallTimeout bounds the whole fan-out. When it expires the
	// engine degrades to an empty busy set rather than failing the query.
	DefaultOverallTimeout = 60 * time.Second
)

// Source names one calendar to consult: an authorized account and a
// calendar ID within it.
type Source struct {
	Account    string
	CalendarID string
}

// BusyLister fetches busy intervals from one calendar source within the
// query window.
type BusyLister interface {
	ListBusy(ctx context.Context, src Source, window Interval) ([]Interval, error)
}

// Engine answers free-time queries by fanning out across all configured
// sources, merging the busy intervals, and subtracting them from the
// query window.
type Engine struct {
	lister         BusyLister
	sources        []Source
	sourceTimeout  time.Duration
	overallTimeout time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// NewEngine creates an Engine over the given sources. Non-positive
// timeouts fall back to the defaults.
func NewEngine(lister BusyLister, sources []Source, sourceTimeout, overallTimeout time.Duration) *Engine {
	if sourceTimeout <= 0 {
		sourceTimeout = DefaultSourceTimeout
	}
	if overallTimeout <= 0 {
		overallTimeout = DefaultOverallTimeout
	}
	return &Engine{
		lister:         lister,
		sources:        sources,
		sourceTimeout:  sourceTimeout,
		overallTimeout: overallTimeout,
		now:            time.Now,
	}
}

// sourceResult carries one source's listing back to the collector.
type sourceResult struct {
	src       Source
	intervals []Interval
	err       error
}

// BusyIntervals fetches and merges busy intervals from every source in
// parallel. A source that fails or times out contributes nothing; the
// degradation is reported per source in the returned notes. A wholly
// failed fetch therefore yields an empty busy set, never an error.
func (e *Engine) BusyIntervals(ctx context.Context, window Interval) ([]Interval, []string) {
	ctx, cancel := context.WithTimeout(ctx, e.overallTimeout)
	defer cancel()

	results := make(chan sourceResult, len(e.sources))
	var wg sync.WaitGroup
	for _, src := range e.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			srcCtx, srcCancel := context.WithTimeout(ctx, e.sourceTimeout)
			defer srcCancel()
			ivs, err := e.lister.ListBusy(srcCtx, src, window)
			results <- sourceResult{src: src, intervals: ivs, err: err}
		}(src)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var busy []Interval
	var notes []string
	for res := range results {
		if res.err != nil {
			notes = append(notes, fmt.Sprintf("calendar %s/%s unavailable: %v",
				res.src.Account, res.src.CalendarID, res.err))
			continue
		}
		busy = append(busy, res.intervals...)
	}

	return Merge(busy), notes
}

// FreeIntervals returns the free windows between now-clipped busy time
// within the query window, plus any degradation notes.
func (e *Engine) FreeIntervals(ctx context.Context, window Interval) ([]Interval, []string) {
	busy, notes := e.BusyIntervals(ctx, window)
	free := Subtract(window, busy)
	return ClipPast(free, e.now()), notes
}
