package domain

import (
	"time"
)

// Route is a dispatch route between two depots, owned by the route CRUD subsystem.
// The engine only reads it and writes back the latest estimate.
type Route struct {
	ID            int64      `json:"id"`
	Code          string     `json:"code"`
	Name          string     `json:"name"`
	Origin        Coordinate `json:"origin"`
	Destination   Coordinate `json:"destination"`
	RatePerKm     float64    `json:"rate_per_km,omitempty"` // 0 means the configured default rate
	DistanceKm    *float64   `json:"distance_km,omitempty"`
	DurationHours *float64   `json:"duration_hours,omitempty"`
	FeeEstimate   *float64   `json:"fee_estimate,omitempty"`
	PathSource    string     `json:"path_source,omitempty"`
	Active        bool       `json:"active"`
	EstimatedAt   *time.Time `json:"estimated_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Entry returns the refresh input for the route.
func (r Route) Entry() RouteEntry {
	return RouteEntry{RouteID: r.ID, Origin: r.Origin, Destination: r.Destination}
}
