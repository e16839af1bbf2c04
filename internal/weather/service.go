package weather

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/singleflight"
)

// recentLimit caps the number of rows returned by GetRecent.
const recentLimit = 50

// defaultFetchTimeout bounds a single upstream request.
const defaultFetchTimeout = 10 * time.Second

// Service orchestrates the refresh decision: on every read it quantizes the
// coordinates, analyzes coverage, schedules an asynchronous fetch when data
// is stale or incomplete, and serves whatever the store holds right now.
type Service struct {
	store    Store
	provider Provider

	// now is the clock used for freshness decisions; tests replace it.
	now func() time.Time

	// dispatch runs the refresh task; defaults to a goroutine. Tests replace
	// it with a synchronous call.
	dispatch func(func())

	// flight collapses concurrent refresh triggers for one cell into a
	// single upstream call.
	flight singleflight.Group

	fetchTimeout time.Duration
}

// NewService creates a new Service over a store and an upstream provider.
func NewService(store Store, provider Provider) *Service {
	return &Service{
		store:        store,
		provider:     provider,
		now:          time.Now,
		dispatch:     func(task func()) { go task() },
		fetchTimeout: defaultFetchTimeout,
	}
}

// Refresh evaluates coverage for the given coordinates and schedules an
// asynchronous fetch when the cell is stale or the window has gaps. It
// returns whether a refresh was scheduled. The read path never blocks on the
// fetch itself.
func (s *Service) Refresh(ctx context.Context, lat, lon float64, window *DateRange) (bool, error) {
	cell, err := Quantize(lat, lon)
	if err != nil {
		return false, err
	}
	return s.refreshCell(ctx, cell, window), nil
}

// GetLast returns the most recent observation for the quantized cell,
// triggering a refresh first. The boolean reports whether a refresh is in
// progress.
func (s *Service) GetLast(ctx context.Context, lat, lon float64) (Observation, bool, error) {
	cell, err := Quantize(lat, lon)
	if err != nil {
		return Observation{}, false, err
	}
	refreshing := s.refreshCell(ctx, cell, nil)

	obs, err := s.store.Latest(ctx, cell)
	if err != nil {
		return Observation{}, refreshing, err
	}
	return obs, refreshing, nil
}

// GetRecent returns up to the 50 most recent observations for the quantized
// cell, newest first, triggering a refresh first.
func (s *Service) GetRecent(ctx context.Context, lat, lon float64) ([]Observation, bool, error) {
	cell, err := Quantize(lat, lon)
	if err != nil {
		return nil, false, err
	}
	refreshing := s.refreshCell(ctx, cell, nil)

	items, err := s.store.Recent(ctx, cell, recentLimit)
	if err != nil {
		return nil, refreshing, err
	}
	return items, refreshing, nil
}

// GetRange returns observations for the quantized cell inside the closed
// date window, oldest first, triggering a refresh for the window first.
func (s *Service) GetRange(ctx context.Context, lat, lon float64, from, to time.Time) ([]Observation, bool, error) {
	window, err := NewDateRange(from, to)
	if err != nil {
		return nil, false, err
	}
	cell, err := Quantize(lat, lon)
	if err != nil {
		return nil, false, err
	}
	refreshing := s.refreshCell(ctx, cell, &window)

	items, err := s.store.Range(ctx, cell, window.Start(), window.End())
	if err != nil {
		return nil, refreshing, err
	}
	return items, refreshing, nil
}

// refreshCell runs the coverage analysis and dispatches the fetch task when
// needed. Analysis failures are logged and treated as "no refresh": the read
// still answers from the store.
func (s *Service) refreshCell(ctx context.Context, cell Cell, window *DateRange) bool {
	report, err := Analyze(ctx, s.store, cell, window, s.now())
	if err != nil {
		log.Printf("weather: coverage analysis failed for %s: %v", cell.Key(), err)
		return false
	}
	if !report.NeedsCurrent && !report.NeedsHistorical {
		return false
	}

	s.dispatch(func() { s.runRefresh(cell, report) })
	return true
}

// runRefresh executes fetch + ingest for one cell. It uses a detached
// context so an aborted client request cannot cancel an already scheduled
// refresh, and a per-cell singleflight key so concurrent triggers share one
// upstream call. Failures terminate the task only; the next read re-evaluates
// freshness and re-triggers naturally.
func (s *Service) runRefresh(cell Cell, report CoverageReport) {
	ch := s.flight.DoChan(cell.Key(), func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
		defer cancel()

		var window *DateRange
		if report.NeedsHistorical {
			w := report.Window
			window = &w
		}

		resp, err := s.provider.Fetch(ctx, cell, window, report.NeedsCurrent)
		if err != nil {
			return 0, err
		}
		return Ingest(ctx, s.store, cell, resp, report.Known)
	})

	res := <-ch
	if res.Err != nil {
		log.Printf("weather: refresh failed for %s: %v", cell.Key(), res.Err)
		return
	}
	if res.Shared {
		return
	}
	log.Printf("weather: refresh for %s stored %d new observations", cell.Key(), res.Val.(int))
}
