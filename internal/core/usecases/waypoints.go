package usecases

import (
	"sort"

	"github.com/samirrijal/fleetroute/internal/core/domain"
	"github.com/samirrijal/fleetroute/internal/pkg/geospatial"
)

// WaypointSynthesizer steers long routes along the national corridor by inserting
// catalog waypoints between origin and destination.
type WaypointSynthesizer struct {
	catalog   []domain.Waypoint
	threshold float64
	axis      domain.Axis
}

// NewWaypointSynthesizer copies the catalog; it is never mutated afterwards.
// A threshold <= 0 synthesizes for every request with a non-empty catalog.
func NewWaypointSynthesizer(catalog []domain.Waypoint, thresholdDeg float64, axis domain.Axis) *WaypointSynthesizer {
	c := make([]domain.Waypoint, len(catalog))
	copy(c, catalog)
	if axis != domain.AxisLongitude {
		axis = domain.AxisLatitude
	}
	return &WaypointSynthesizer{catalog: c, threshold: thresholdDeg, axis: axis}
}

// Synthesize returns [origin, ...waypoints, destination]. Short routes, an empty catalog or no
// waypoint strictly between the endpoints all yield [origin, destination].
func (s *WaypointSynthesizer) Synthesize(origin, destination domain.Coordinate) []domain.Coordinate {
	direct := []domain.Coordinate{origin, destination}
	if len(s.catalog) == 0 || geospatial.DegreeDistance(origin, destination) < s.threshold {
		return direct
	}

	from, to := s.axis.Of(origin), s.axis.Of(destination)
	lo, hi := from, to
	if lo > hi {
		lo, hi = hi, lo
	}

	var between []domain.Coordinate
	for _, w := range s.catalog {
		v := s.axis.Of(w.Coordinate())
		if v > lo && v < hi {
			between = append(between, w.Coordinate())
		}
	}
	if len(between) == 0 {
		return direct
	}

	ascending := from < to
	sort.SliceStable(between, func(i, j int) bool {
		if ascending {
			return s.axis.Of(between[i]) < s.axis.Of(between[j])
		}
		return s.axis.Of(between[i]) > s.axis.Of(between[j])
	})

	out := make([]domain.Coordinate, 0, len(between)+2)
	out = append(out, origin)
	out = append(out, between...)
	return append(out, destination)
}
