package weather

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var errNoData = errors.New("no observations for cell")

// fakeStore is an in-memory Store double enforcing the same uniqueness
// contract as the real table.
type fakeStore struct {
	mu        sync.Mutex
	obs       []Observation
	insertErr error
}

func (f *fakeStore) Insert(_ context.Context, o Observation) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.obs {
		if e.Cell == o.Cell && e.ObservedAt.Equal(o.ObservedAt) {
			return false, nil
		}
	}
	f.obs = append(f.obs, o)
	return true, nil
}

func (f *fakeStore) Latest(_ context.Context, cell Cell) (Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *Observation
	for i := range f.obs {
		if f.obs[i].Cell != cell {
			continue
		}
		if latest == nil || f.obs[i].ObservedAt.After(latest.ObservedAt) {
			latest = &f.obs[i]
		}
	}
	if latest == nil {
		return Observation{}, errNoData
	}
	return *latest, nil
}

func (f *fakeStore) Recent(_ context.Context, cell Cell, limit int) ([]Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []Observation
	for _, e := range f.obs {
		if e.Cell == cell {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ObservedAt.After(result[j].ObservedAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeStore) Range(_ context.Context, cell Cell, from, to time.Time) ([]Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []Observation
	for _, e := range f.obs {
		if e.Cell != cell || e.ObservedAt.Before(from) || e.ObservedAt.After(to) {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ObservedAt.Before(result[j].ObservedAt) })
	return result, nil
}

func (f *fakeStore) Timestamps(_ context.Context, cell Cell, from, to time.Time) ([]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []time.Time
	for _, e := range f.obs {
		if e.Cell != cell || e.ObservedAt.Before(from) || e.ObservedAt.After(to) {
			continue
		}
		result = append(result, e.ObservedAt)
	}
	return result, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.obs)
}

type fetchCall struct {
	cell        Cell
	window      *DateRange
	wantCurrent bool
}

// fakeProvider records calls and replays a canned response. When block is
// set, Fetch waits until the channel is closed before returning.
type fakeProvider struct {
	mu    sync.Mutex
	calls []fetchCall
	resp  *ProviderResponse
	err   error
	block chan struct{}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Fetch(ctx context.Context, cell Cell, window *DateRange, wantCurrent bool) (*ProviderResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{cell: cell, window: window, wantCurrent: wantCurrent})
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func f64(v float64) *float64 {
	return &v
}

// seedHourly inserts on-the-hour observations for the first `hours` hours of
// day into the store.
func seedHourly(fs *fakeStore, cell Cell, day time.Time, hours int) {
	for h := 0; h < hours; h++ {
		fs.obs = append(fs.obs, Observation{
			Cell:       cell,
			ObservedAt: time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, time.UTC),
			Source:     SourceOpenMeteo,
		})
	}
}

// hourlySamples builds a full-day series of provider samples for day.
func hourlySamples(day time.Time, hours int) []Sample {
	samples := make([]Sample, 0, hours)
	for h := 0; h < hours; h++ {
		samples = append(samples, Sample{
			Time:         time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, time.UTC),
			TemperatureC: f64(10.0 + float64(h)),
			WindSpeedKmh: f64(18.0),
			PressureHpa:  f64(1013.0),
			HumidityPct:  f64(60.0),
		})
	}
	return samples
}
