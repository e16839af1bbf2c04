package weather

import (
	"context"
	"fmt"
	"time"
)

// Sample is a single provider reading in provider-native units (wind speed
// in km/h). Measurement fields are nil when the provider omitted them.
type Sample struct {
	Time time.Time

	TemperatureC *float64
	WindSpeedKmh *float64
	PressureHpa  *float64
	HumidityPct  *float64
}

// ProviderResponse is the typed result of one upstream request: an optional
// current reading, an optional hourly series, and the raw payload kept for
// auditing.
type ProviderResponse struct {
	Current *Sample
	Hourly  []Sample
	Raw     []byte
}

// FetchError wraps any upstream failure: transport errors, non-2xx statuses,
// or a payload that does not match the expected shape.
type FetchError struct {
	Provider string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %s failed: %v", e.Provider, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Provider abstracts the upstream weather API. A single call may request the
// current reading, an hourly series bounded by window, or both.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, cell Cell, window *DateRange, wantCurrent bool) (*ProviderResponse, error)
}

// Store is the contract the persistent observation store must satisfy.
// Insert reports whether a row was actually written; a (cell, observedAt)
// collision is a silent no-op, never an error.
type Store interface {
	Insert(ctx context.Context, obs Observation) (bool, error)
	Latest(ctx context.Context, cell Cell) (Observation, error)
	Recent(ctx context.Context, cell Cell, limit int) ([]Observation, error)
	Range(ctx context.Context, cell Cell, from, to time.Time) ([]Observation, error)
	Timestamps(ctx context.Context, cell Cell, from, to time.Time) ([]time.Time, error)
}
