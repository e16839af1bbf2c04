package weather

import (
	"context"
	"fmt"
	"time"
)

// Ingest converts a provider response into observations for cell and writes
// the ones whose timestamps are not already stored. The current sample is
// written first (carrying the raw payload); hourly entries follow. Timestamps
// present in known are skipped, including a current sample written moments
// earlier in the same call. Returns the number of newly written observations.
func Ingest(ctx context.Context, st Store, cell Cell, resp *ProviderResponse, known map[time.Time]struct{}) (int, error) {
	if known == nil {
		known = make(map[time.Time]struct{})
	}

	written := 0

	if resp.Current != nil {
		key := tsKey(resp.Current.Time)
		if _, exists := known[key]; !exists {
			obs := observationFrom(cell, *resp.Current)
			obs.Raw = resp.Raw
			ok, err := st.Insert(ctx, obs)
			if err != nil {
				return written, fmt.Errorf("ingest: writing current sample: %w", err)
			}
			known[key] = struct{}{}
			if ok {
				written++
			}
		}
	}

	for _, sample := range resp.Hourly {
		key := tsKey(sample.Time)
		if _, exists := known[key]; exists {
			continue
		}
		ok, err := st.Insert(ctx, observationFrom(cell, sample))
		if err != nil {
			return written, fmt.Errorf("ingest: writing hourly sample %s: %w", key.Format("2006-01-02T15:04"), err)
		}
		known[key] = struct{}{}
		if ok {
			written++
		}
	}

	return written, nil
}

func observationFrom(cell Cell, s Sample) Observation {
	return Observation{
		Cell:         cell,
		ObservedAt:   tsKey(s.Time),
		TemperatureC: s.TemperatureC,
		WindSpeedMS:  kmhToMs(s.WindSpeedKmh),
		PressureHpa:  s.PressureHpa,
		HumidityPct:  s.HumidityPct,
		Source:       SourceOpenMeteo,
	}
}

// kmhToMs converts the provider's km/h wind speed to m/s, propagating nil.
func kmhToMs(v *float64) *float64 {
	if v == nil {
		return nil
	}
	ms := *v / 3.6
	return &ms
}
