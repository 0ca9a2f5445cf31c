package geospatial

import (
	"github.com/paulmach/orb"

	"github.com/samirrijal/fleetroute/internal/core/domain"
)

// Bound converts the configured bounds to an orb.Bound (x = longitude, y = latitude).
func Bound(b domain.GeoBounds) orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLng, b.MinLat},
		Max: orb.Point{b.MaxLng, b.MaxLat},
	}
}

// Point converts a coordinate to an orb.Point.
func Point(c domain.Coordinate) orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// IsInside reports whether c lies within b. Edges are inclusive.
func IsInside(c domain.Coordinate, b domain.GeoBounds) bool {
	return Bound(b).Contains(Point(c))
}

// AllInside reports whether every vertex lies within b. An empty path is vacuously inside.
func AllInside(path []domain.Coordinate, b domain.GeoBounds) bool {
	bound := Bound(b)
	for _, c := range path {
		if !bound.Contains(Point(c)) {
			return false
		}
	}
	return true
}
