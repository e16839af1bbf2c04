package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"

	"github.com/weatherdash/weatherdash/internal/weather"
)

type AppConfig struct {
	Port   string
	DBPath string

	// HTTPTimeout bounds outbound provider calls.
	HTTPTimeout time.Duration

	// FetchInterval controls how often tracked locations are refreshed.
	FetchInterval time.Duration

	GeocoderAPIKey string

	// Locations refreshed by the scheduler.
	Locations []weather.TrackedLocation
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.DBPath = getenvDefault("DB_PATH", "weather.db")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	// Scheduler interval: default 15 minutes, matching the currency window.
	intervalStr := getenvDefault("FETCH_INTERVAL", "15m")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_INTERVAL: %w", err)
	}
	cfg.FetchInterval = interval

	locs, err := loadTrackedLocations(cfg.GeocoderAPIKey)
	if err != nil {
		return nil, err
	}
	cfg.Locations = locs

	return cfg, nil
}

// loadTrackedLocations parses TRACK_COORDS ("lat,lon;lat,lon") and resolves
// TRACK_CITIES/TRACK_COUNTRIES pairs through the geocoder.
func loadTrackedLocations(geocoderKey string) ([]weather.TrackedLocation, error) {
	var locs []weather.TrackedLocation

	if coords := os.Getenv("TRACK_COORDS"); coords != "" {
		for _, pair := range strings.Split(coords, ";") {
			parts := strings.Split(pair, ",")
			if len(parts) != 2 {
				return nil, fmt.Errorf("invalid TRACK_COORDS entry %q; expected \"lat,lon\"", pair)
			}
			lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid latitude in TRACK_COORDS entry %q", pair)
			}
			lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid longitude in TRACK_COORDS entry %q", pair)
			}
			locs = append(locs, weather.TrackedLocation{Name: pair, Lat: lat, Lon: lon})
		}
	}

	city := os.Getenv("TRACK_CITIES")
	country := os.Getenv("TRACK_COUNTRIES")
	if city == "" {
		return locs, nil
	}

	cities := strings.Split(city, ",")
	countries := strings.Split(country, ",")
	if len(cities) != len(countries) {
		return nil, fmt.Errorf("number of cities and countries must be the same")
	}
	if geocoderKey == "" {
		return nil, fmt.Errorf("GEOCODER_API_KEY is required to resolve TRACK_CITIES")
	}
	geocoder.ApiKey = geocoderKey

	for i := range cities {
		addr := geocoder.Address{
			City:    strings.TrimSpace(cities[i]),
			Country: strings.TrimSpace(countries[i]),
		}
		loc, err := geocoder.Geocoding(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to geocode %s, %s: %w", addr.City, addr.Country, err)
		}
		locs = append(locs, weather.TrackedLocation{
			Name: addr.City + ":" + addr.Country,
			Lat:  loc.Latitude,
			Lon:  loc.Longitude,
		})
	}

	return locs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
