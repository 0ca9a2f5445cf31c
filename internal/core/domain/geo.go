package domain

import "fmt"

// Coordinate is a geographic point (WGS 84).
type Coordinate struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// GeoBounds is the rectangular national boundary every routed path must stay inside.
type GeoBounds struct {
	MinLat float64 `json:"min_lat" mapstructure:"min_lat"`
	MaxLat float64 `json:"max_lat" mapstructure:"max_lat"`
	MinLng float64 `json:"min_lng" mapstructure:"min_lng"`
	MaxLng float64 `json:"max_lng" mapstructure:"max_lng"`
}

// Validate reports inverted or degenerate bounds.
func (b GeoBounds) Validate() error {
	if b.MinLat >= b.MaxLat {
		return &ConfigError{Field: "bounds", Reason: fmt.Sprintf("min_lat %.4f must be below max_lat %.4f", b.MinLat, b.MaxLat)}
	}
	if b.MinLng >= b.MaxLng {
		return &ConfigError{Field: "bounds", Reason: fmt.Sprintf("min_lng %.4f must be below max_lng %.4f", b.MinLng, b.MaxLng)}
	}
	return nil
}

// Waypoint is a hand-curated anchor point on the country's primary transit corridor.
type Waypoint struct {
	Name string  `json:"name" mapstructure:"name"`
	Lat  float64 `json:"lat" mapstructure:"lat"`
	Lng  float64 `json:"lng" mapstructure:"lng"`
}

// Coordinate returns the waypoint's position.
func (w Waypoint) Coordinate() Coordinate {
	return Coordinate{Lat: w.Lat, Lng: w.Lng}
}

// Axis selects which coordinate component orders synthesized waypoints.
type Axis string

const (
	AxisLatitude  Axis = "lat"
	AxisLongitude Axis = "lng"
)

// Of returns the component of c along the axis. Unknown axes fall back to latitude.
func (a Axis) Of(c Coordinate) float64 {
	if a == AxisLongitude {
		return c.Lng
	}
	return c.Lat
}
