package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"github.com/weatherdash/weatherdash/internal/weather"
)

// metrics is the comma-list of Open-Meteo fields requested for both the
// current reading and the hourly series.
const metrics = "relative_humidity_2m,surface_pressure,temperature_2m,windspeed_10m"

// hourLayout is Open-Meteo's timestamp format (minute precision, implicit UTC
// because every request pins timezone=UTC).
const hourLayout = "2006-01-02T15:04"

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: HTTPClientConfig{Client: client},
		circuit: cb,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// Fetch issues a single bounded request for a cell. The timezone is always
// pinned to UTC so timestamp comparisons are unambiguous regardless of
// location. Output stays in provider-native units; conversion is the
// writer's job.
func (p *OpenMeteoProvider) Fetch(ctx context.Context, cell weather.Cell, window *weather.DateRange, wantCurrent bool) (*weather.ProviderResponse, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(cell.Lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(cell.Lon, 'f', -1, 64))
	values.Set("timezone", "UTC")
	if wantCurrent {
		values.Set("current", metrics)
	}
	if window != nil {
		values.Set("hourly", metrics)
		values.Set("start_date", window.From.Format("2006-01-02"))
		values.Set("end_date", window.To.Format("2006-01-02"))
	}

	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, &weather.FetchError{Provider: p.name, Err: err}
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, req)
	if err != nil {
		return nil, &weather.FetchError{Provider: p.name, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &weather.FetchError{Provider: p.name, Err: err}
	}

	parsed, err := parseOpenMeteo(body)
	if err != nil {
		return nil, &weather.FetchError{Provider: p.name, Err: err}
	}
	return parsed, nil
}

// openMeteoPayload mirrors the provider's JSON shape: an optional current
// block and optional hourly parallel arrays indexed by position.
type openMeteoPayload struct {
	Current *struct {
		Time               string   `json:"time"`
		Temperature2m      *float64 `json:"temperature_2m"`
		WindSpeed10m       *float64 `json:"windspeed_10m"`
		SurfacePressure    *float64 `json:"surface_pressure"`
		RelativeHumidity2m *float64 `json:"relative_humidity_2m"`
	} `json:"current"`
	Hourly *struct {
		Time               []string   `json:"time"`
		Temperature2m      []*float64 `json:"temperature_2m"`
		WindSpeed10m       []*float64 `json:"windspeed_10m"`
		SurfacePressure    []*float64 `json:"surface_pressure"`
		RelativeHumidity2m []*float64 `json:"relative_humidity_2m"`
	} `json:"hourly"`
}

// parseOpenMeteo decodes the payload into the typed response model, failing
// fast on shape mismatches instead of propagating nulls into business logic.
func parseOpenMeteo(body []byte) (*weather.ProviderResponse, error) {
	var payload openMeteoPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}

	out := &weather.ProviderResponse{Raw: body}

	if payload.Current != nil {
		ts, err := parseMeteoTime(payload.Current.Time)
		if err != nil {
			return nil, fmt.Errorf("current sample: %w", err)
		}
		out.Current = &weather.Sample{
			Time:         ts,
			TemperatureC: payload.Current.Temperature2m,
			WindSpeedKmh: payload.Current.WindSpeed10m,
			PressureHpa:  payload.Current.SurfacePressure,
			HumidityPct:  payload.Current.RelativeHumidity2m,
		}
	}

	if payload.Hourly != nil {
		h := payload.Hourly
		n := len(h.Time)
		for name, l := range map[string]int{
			"temperature_2m":       len(h.Temperature2m),
			"windspeed_10m":        len(h.WindSpeed10m),
			"surface_pressure":     len(h.SurfacePressure),
			"relative_humidity_2m": len(h.RelativeHumidity2m),
		} {
			if l != n {
				return nil, fmt.Errorf("hourly series: %s has %d entries, time has %d", name, l, n)
			}
		}

		out.Hourly = make([]weather.Sample, 0, n)
		for i := 0; i < n; i++ {
			ts, err := parseMeteoTime(h.Time[i])
			if err != nil {
				return nil, fmt.Errorf("hourly entry %d: %w", i, err)
			}
			out.Hourly = append(out.Hourly, weather.Sample{
				Time:         ts,
				TemperatureC: h.Temperature2m[i],
				WindSpeedKmh: h.WindSpeed10m[i],
				PressureHpa:  h.SurfacePressure[i],
				HumidityPct:  h.RelativeHumidity2m[i],
			})
		}
	}

	return out, nil
}

func parseMeteoTime(s string) (time.Time, error) {
	if ts, err := time.ParseInLocation(hourLayout, s, time.UTC); err == nil {
		return ts, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
	}
	return ts.UTC(), nil
}
