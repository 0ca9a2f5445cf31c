package domain

import (
	"fmt"
	"time"
)

// PathSource tags which resolution tier produced a path.
type PathSource int

const (
	SourcePrimary PathSource = iota
	SourceSecondary
	SourceFallback
)

func (s PathSource) String() string {
	switch s {
	case SourcePrimary:
		return "primary"
	case SourceSecondary:
		return "secondary"
	case SourceFallback:
		return "fallback"
	default:
		return fmt.Sprintf("PathSource(%d)", int(s))
	}
}

// MarshalText encodes the source as its name so JSON payloads stay readable.
func (s PathSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (s *PathSource) UnmarshalText(b []byte) error {
	switch string(b) {
	case "primary":
		*s = SourcePrimary
	case "secondary":
		*s = SourceSecondary
	case "fallback":
		*s = SourceFallback
	default:
		return fmt.Errorf("unknown path source %q", string(b))
	}
	return nil
}

// RouteRequest is a single origin → destination resolution.
type RouteRequest struct {
	Origin      Coordinate `json:"origin"`
	Destination Coordinate `json:"destination"`
}

// ResolvedPath is an ordered polyline with at least two vertices.
// Primary and secondary paths are fully inside the configured bounds; a fallback path is
// exactly [origin, destination].
type ResolvedPath struct {
	Vertices []Coordinate `json:"vertices"`
	Source   PathSource   `json:"source"`
}

// Clone returns a deep copy so cached paths never share backing arrays with callers.
func (p ResolvedPath) Clone() ResolvedPath {
	v := make([]Coordinate, len(p.Vertices))
	copy(v, p.Vertices)
	return ResolvedPath{Vertices: v, Source: p.Source}
}

// Equal reports whether two paths have the same source and vertices.
func (p ResolvedPath) Equal(o ResolvedPath) bool {
	if p.Source != o.Source || len(p.Vertices) != len(o.Vertices) {
		return false
	}
	for i := range p.Vertices {
		if p.Vertices[i] != o.Vertices[i] {
			return false
		}
	}
	return true
}

// RouteEstimate is derived from a resolved distance and never persisted by the engine.
type RouteEstimate struct {
	DistanceKm    float64 `json:"distance_km"`
	DurationHours float64 `json:"duration_hours"`
	FeeEstimate   float64 `json:"fee_estimate"`
}

// RouteResolution bundles a path with its estimate.
type RouteResolution struct {
	Path ResolvedPath `json:"path"`
	RouteEstimate
}

// CacheEntry is the last successfully resolved path for a route.
type CacheEntry struct {
	RouteID    int64        `json:"route_id"`
	Path       ResolvedPath `json:"path"`
	ResolvedAt time.Time    `json:"resolved_at"`
}

// RouteEntry identifies a route to refresh in bulk.
type RouteEntry struct {
	RouteID     int64      `json:"route_id"`
	Origin      Coordinate `json:"origin"`
	Destination Coordinate `json:"destination"`
}

// RefreshEvent is emitted once per route as a bulk refresh progresses.
type RefreshEvent struct {
	JobID      string       `json:"job_id"`
	RouteID    int64        `json:"route_id"`
	Index      int          `json:"index"`
	Total      int          `json:"total"`
	Path       ResolvedPath `json:"path"`
	DistanceKm float64      `json:"distance_km"`
	ResolvedAt time.Time    `json:"resolved_at"`
}
