package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points, rounded to
// two decimals.
func DistanceKm(lat1, lng1, lat2, lng2 float64) decimal.Decimal {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return decimal.NewFromFloat(earthRadiusKm * c).Round(2)
}
