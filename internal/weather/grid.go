package weather

import (
	"fmt"
	"math"
)

// Quantize maps arbitrary coordinates onto the canonical grid by rounding
// each component independently to the nearest multiple of GridStep. Upstream
// validation is expected to have enforced the coordinate ranges already, but
// the quantizer checks them again before snapping.
func Quantize(lat, lon float64) (Cell, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return Cell{}, fmt.Errorf("%w: coordinates must be numbers", ErrInvalidCoordinate)
	}
	if lat < -90 || lat > 90 {
		return Cell{}, fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, lat)
	}
	if lon < -180 || lon > 180 {
		return Cell{}, fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, lon)
	}
	return Cell{Lat: snap(lat), Lon: snap(lon)}, nil
}

func snap(v float64) float64 {
	return math.Round(v/GridStep) * GridStep
}
