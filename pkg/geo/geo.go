// Package geo holds the great-circle math and the known-store gazetteer used
// to place requests that were created without an explicit coordinate.
package geo

import (
	"math"

	"github.com/pasabuy/pasabuy-backend/pkg/types"
)

// EarthRadiusKM is the mean Earth radius used by the haversine formula.
const EarthRadiusKM = 6371.0

// DistanceKM returns the haversine distance between a and b in kilometres.
func DistanceKM(a, b types.GeographyPoint) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusKM * math.Asin(math.Sqrt(h))
}

// RoundDisplay rounds a distance to one decimal place for display.
func RoundDisplay(km float64) float64 {
	return math.Round(km*10) / 10
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
