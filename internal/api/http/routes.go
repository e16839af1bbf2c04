package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/weatherdash/weatherdash/internal/store"
	"github.com/weatherdash/weatherdash/internal/weather"
)

var validate = validator.New()

// dateLayout is the wire format for range bounds.
const dateLayout = "2006-01-02"

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/last", func(c *fiber.Ctx) error {
		coords, err := parseCoordsQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		obs, refreshing, err := service.GetLast(c.UserContext(), coords.Lat, coords.Lon)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"message":    "no weather data for requested location",
					"refreshing": refreshing,
				})
			}
			if errors.Is(err, weather.ErrInvalidCoordinate) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}

		return c.JSON(fiber.Map{
			"observation": obs,
			"refreshing":  refreshing,
		})
	})

	v1.Get("/weather/recent", func(c *fiber.Ctx) error {
		coords, err := parseCoordsQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		items, refreshing, err := service.GetRecent(c.UserContext(), coords.Lat, coords.Lon)
		if err != nil {
			if errors.Is(err, weather.ErrInvalidCoordinate) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}
		if items == nil {
			items = []weather.Observation{}
		}

		return c.JSON(fiber.Map{
			"observations": items,
			"refreshing":   refreshing,
		})
	})

	v1.Get("/weather/range", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		items, refreshing, err := service.GetRange(c.UserContext(), req.Lat, req.Lon, req.From, req.To)
		if err != nil {
			if errors.Is(err, weather.ErrInvalidWindow) || errors.Is(err, weather.ErrInvalidCoordinate) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}
		if items == nil {
			items = []weather.Observation{}
		}

		return c.JSON(fiber.Map{
			"from":         req.From.Format(dateLayout),
			"to":           req.To.Format(dateLayout),
			"observations": items,
			"refreshing":   refreshing,
		})
	})

	// Manual refresh trigger: schedules a fetch without waiting for it.
	v1.Post("/weather/fetch", func(c *fiber.Ctx) error {
		coords, err := parseCoordsQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var window *weather.DateRange
		fromStr := c.Query("from")
		toStr := c.Query("to")
		if fromStr != "" || toStr != "" {
			if fromStr == "" || toStr == "" {
				return fiber.NewError(fiber.StatusBadRequest, "from and to must be provided together")
			}
			from, err := time.ParseInLocation(dateLayout, fromStr, time.UTC)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "from must be a date in YYYY-MM-DD format")
			}
			to, err := time.ParseInLocation(dateLayout, toStr, time.UTC)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "to must be a date in YYYY-MM-DD format")
			}
			w, err := weather.NewDateRange(from, to)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			window = &w
		}

		scheduled, err := service.Refresh(c.UserContext(), coords.Lat, coords.Lon, window)
		if err != nil {
			if errors.Is(err, weather.ErrInvalidCoordinate) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to schedule refresh")
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"scheduled": scheduled,
		})
	})
}

// coordsQuery holds the location query parameters.
type coordsQuery struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

func parseCoordsQuery(c *fiber.Ctx) (coordsQuery, error) {
	var q coordsQuery

	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if latStr == "" || lonStr == "" {
		return q, errors.New("lat and lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return q, errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return q, errors.New("lon must be a number")
	}

	q.Lat = lat
	q.Lon = lon
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// rangeQuery holds query parameters for the range endpoint.
type rangeQuery struct {
	coordsQuery
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (r *rangeQuery) bind(c *fiber.Ctx) error {
	coords, err := parseCoordsQuery(c)
	if err != nil {
		return err
	}
	r.coordsQuery = coords

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := time.ParseInLocation(dateLayout, fromStr, time.UTC)
	if err != nil {
		return errors.New("from must be a date in YYYY-MM-DD format")
	}
	to, err := time.ParseInLocation(dateLayout, toStr, time.UTC)
	if err != nil {
		return errors.New("to must be a date in YYYY-MM-DD format")
	}

	r.From = from
	r.To = to
	return validate.Struct(r)
}
