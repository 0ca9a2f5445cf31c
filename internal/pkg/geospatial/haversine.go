package geospatial

import (
	"math"

	"github.com/samirrijal/fleetroute/internal/core/domain"
)

const earthRadiusKm = 6371.0

// HaversineKm calculates the great-circle distance in kilometres between two points.
func HaversineKm(a, b domain.Coordinate) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// PathDistanceKm sums the haversine length of every consecutive pair of vertices.
// Paths with fewer than two vertices have zero length.
func PathDistanceKm(vertices []domain.Coordinate) float64 {
	var total float64
	for i := 1; i < len(vertices); i++ {
		total += HaversineKm(vertices[i-1], vertices[i])
	}
	return total
}

// DegreeDistance is the planar distance between two points measured in degrees.
// It is only a cheap proxy for "is this a long route".
func DegreeDistance(a, b domain.Coordinate) float64 {
	return math.Hypot(b.Lat-a.Lat, b.Lng-a.Lng)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
