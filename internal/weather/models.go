package weather

import (
	"errors"
	"fmt"
	"time"
)

// GridStep is the quantization step for coordinates, in degrees. It matches
// the upstream provider's native resolution so that distinct user coordinates
// inside one provider cell resolve to the same cached series.
const GridStep = 0.0625

// SourceOpenMeteo tags observations ingested from Open-Meteo.
const SourceOpenMeteo = "open-meteo"

var (
	// ErrInvalidCoordinate is returned for latitudes outside [-90, 90] or
	// longitudes outside [-180, 180].
	ErrInvalidCoordinate = errors.New("coordinate out of range")

	// ErrInvalidWindow is returned for a date window whose end precedes its start.
	ErrInvalidWindow = errors.New("invalid date window")
)

// Cell is a quantized (latitude, longitude) pair acting as the cache and
// storage key for a location. Cell values always lie on the canonical grid,
// never on raw user-supplied coordinates.
type Cell struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Key returns a canonical string key for indexing this cell.
func (c Cell) Key() string {
	return fmt.Sprintf("%.4f:%.4f", c.Lat, c.Lon)
}

// Observation is one stored weather sample for a cell. Observations are
// immutable once written; a refresh only adds missing timestamps.
type Observation struct {
	ID         int64     `json:"id,omitempty"`
	Cell       Cell      `json:"cell"`
	ObservedAt time.Time `json:"observedAt"` // always UTC

	TemperatureC *float64 `json:"temperatureC"`
	WindSpeedMS  *float64 `json:"windSpeedMs"`
	PressureHpa  *float64 `json:"pressureHpa"`
	HumidityPct  *float64 `json:"humidityPct"`

	Source string `json:"source"`
	Raw    []byte `json:"-"` // opaque provider payload, audit only
}

// DateRange is a closed calendar-date window. From and To are truncated to
// UTC midnight; the window covers the whole of both boundary days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange builds a validated window from two dates.
func NewDateRange(from, to time.Time) (DateRange, error) {
	if from.IsZero() || to.IsZero() {
		return DateRange{}, fmt.Errorf("%w: both bounds are required", ErrInvalidWindow)
	}
	r := DateRange{From: dateOf(from), To: dateOf(to)}
	if r.To.Before(r.From) {
		return DateRange{}, fmt.Errorf("%w: %s is after %s",
			ErrInvalidWindow, r.From.Format("2006-01-02"), r.To.Format("2006-01-02"))
	}
	return r, nil
}

// Start returns the first instant of the window.
func (r DateRange) Start() time.Time {
	return r.From
}

// End returns the last instant of the window (end of the To day).
func (r DateRange) End() time.Time {
	return r.To.AddDate(0, 0, 1).Add(-time.Second)
}

// Days returns the number of whole calendar days spanned, inclusive.
func (r DateRange) Days() int {
	return int(r.To.Sub(r.From).Hours()/24) + 1
}

// ExpectedHourly is the number of on-the-hour samples a fully populated
// window holds. The count is 24 per inclusive day even when the window
// starts or ends mid-day; boundary days therefore over-count slightly, which
// matches the source system's behavior.
func (r DateRange) ExpectedHourly() int {
	return 24 * r.Days()
}

// TrackedLocation is a location refreshed on a schedule rather than on demand.
type TrackedLocation struct {
	Name string
	Lat  float64
	Lon  float64
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
