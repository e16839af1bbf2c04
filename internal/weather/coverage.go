package weather

import (
	"context"
	"fmt"
	"time"
)

// currencyWindow is how recent the newest observation must be for a cell's
// current reading to be considered fresh.
const currencyWindow = 15 * time.Minute

// CoverageReport is the result of inspecting stored data for one cell.
type CoverageReport struct {
	// NeedsCurrent is true when no observation falls inside the trailing
	// 15-minute interval ending at the analysis time.
	NeedsCurrent bool

	// NeedsHistorical is true when the window holds fewer on-the-hour
	// observations than a fully populated window would.
	NeedsHistorical bool

	// Window is the effective historical window that was analyzed (the
	// requested one, or today when none was requested).
	Window DateRange

	// Known holds every stored timestamp seen during analysis so the writer
	// can skip re-inserting them.
	Known map[time.Time]struct{}
}

// Analyze answers two independent freshness questions for a cell against
// stored observations only: is the current reading recent enough, and does
// the requested window have gaps in its hourly series. When window is nil the
// analysis defaults to today. The caller supplies now so tests can inject a
// fixed clock.
func Analyze(ctx context.Context, st Store, cell Cell, window *DateRange, now time.Time) (CoverageReport, error) {
	now = now.UTC()

	report := CoverageReport{
		Known: make(map[time.Time]struct{}),
	}

	if window != nil {
		report.Window = *window
	} else {
		today, err := NewDateRange(now, now)
		if err != nil {
			return CoverageReport{}, err
		}
		report.Window = today
	}

	// Currency: any observation in the trailing interval keeps the cell fresh.
	recent, err := st.Timestamps(ctx, cell, now.Add(-currencyWindow), now)
	if err != nil {
		return CoverageReport{}, fmt.Errorf("coverage: loading recent timestamps: %w", err)
	}
	report.NeedsCurrent = len(recent) == 0
	for _, ts := range recent {
		report.Known[tsKey(ts)] = struct{}{}
	}

	// Historical completeness: count distinct on-the-hour samples inside the
	// window and compare against the expected total.
	stored, err := st.Timestamps(ctx, cell, report.Window.Start(), report.Window.End())
	if err != nil {
		return CoverageReport{}, fmt.Errorf("coverage: loading window timestamps: %w", err)
	}

	hourly := 0
	for _, ts := range stored {
		key := tsKey(ts)
		if _, seen := report.Known[key]; !seen {
			report.Known[key] = struct{}{}
		}
		if ts.Minute() == 0 {
			hourly++
		}
	}
	report.NeedsHistorical = hourly < report.Window.ExpectedHourly()

	return report, nil
}

// tsKey normalizes a timestamp for set membership: UTC, second precision, no
// monotonic clock reading.
func tsKey(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
