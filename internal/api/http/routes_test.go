package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/weatherdash/weatherdash/internal/store"
	"github.com/weatherdash/weatherdash/internal/weather"
)

// stubProvider satisfies weather.Provider without touching the network.
type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) Fetch(context.Context, weather.Cell, *weather.DateRange, bool) (*weather.ProviderResponse, error) {
	return &weather.ProviderResponse{}, nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	obsStore, err := store.Open(filepath.Join(t.TempDir(), "weather.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { obsStore.Close() })

	app := fiber.New()
	RegisterRoutes(app, weather.NewService(obsStore, stubProvider{}))
	return app
}

func TestCoordinateValidation(t *testing.T) {
	app := newTestApp(t)

	cases := []struct {
		name   string
		target string
		status int
	}{
		{"missing lat", "/api/v1/weather/recent?lon=52.31", http.StatusBadRequest},
		{"non-numeric lat", "/api/v1/weather/recent?lat=north&lon=52.31", http.StatusBadRequest},
		{"lat out of range", "/api/v1/weather/recent?lat=91&lon=52.31", http.StatusBadRequest},
		{"lon out of range", "/api/v1/weather/recent?lat=54.93&lon=181", http.StatusBadRequest},
		{"valid coordinates", "/api/v1/weather/recent?lat=54.93&lon=52.31", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.StatusCode != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, resp.StatusCode)
			}
		})
	}
}

func TestRangeWindowValidation(t *testing.T) {
	app := newTestApp(t)

	cases := []struct {
		name   string
		target string
		status int
	}{
		{"missing bounds", "/api/v1/weather/range?lat=54.93&lon=52.31", http.StatusBadRequest},
		{"bad date format", "/api/v1/weather/range?lat=54.93&lon=52.31&from=01.01.2024&to=2024-01-02", http.StatusBadRequest},
		{"reversed bounds", "/api/v1/weather/range?lat=54.93&lon=52.31&from=2024-01-02&to=2024-01-01", http.StatusBadRequest},
		{"valid window", "/api/v1/weather/range?lat=54.93&lon=52.31&from=2024-01-01&to=2024-01-02", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.StatusCode != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, resp.StatusCode)
			}
		})
	}
}

func TestFetchSchedulesRefresh(t *testing.T) {
	app := newTestApp(t)

	cases := []struct {
		name   string
		target string
		status int
	}{
		{"current only", "/api/v1/weather/fetch?lat=54.93&lon=52.31", http.StatusAccepted},
		{"with window", "/api/v1/weather/fetch?lat=54.93&lon=52.31&from=2024-01-01&to=2024-01-02", http.StatusAccepted},
		{"single bound", "/api/v1/weather/fetch?lat=54.93&lon=52.31&from=2024-01-01", http.StatusBadRequest},
		{"reversed bounds", "/api/v1/weather/fetch?lat=54.93&lon=52.31&from=2024-01-02&to=2024-01-01", http.StatusBadRequest},
		{"missing coordinates", "/api/v1/weather/fetch?from=2024-01-01&to=2024-01-02", http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.target, nil)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.StatusCode != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, resp.StatusCode)
			}
		})
	}
}

func TestLastReturnsNotFoundOnEmptyStore(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/last?lat=54.93&lon=52.31", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}
