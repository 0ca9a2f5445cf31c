package usecases

import (
	"github.com/shopspring/decimal"

	"github.com/samirrijal/fleetroute/internal/core/domain"
)

// Estimate derives duration and fee from a distance. The fee is the decimal product of the
// shortest decimal forms of distance and rate, rounded half away from zero to whole currency
// units, so 1.005 km at 100 per km is 101 where float math would give 100.
// A non-positive speed yields zero duration.
func Estimate(distanceKm, avgSpeedKmh, ratePerKm float64) domain.RouteEstimate {
	if distanceKm < 0 {
		distanceKm = 0
	}
	if ratePerKm < 0 {
		ratePerKm = 0
	}

	var hours float64
	if avgSpeedKmh > 0 {
		hours = distanceKm / avgSpeedKmh
	}

	fee := decimal.NewFromFloat(distanceKm).
		Mul(decimal.NewFromFloat(ratePerKm)).
		Round(0)

	return domain.RouteEstimate{
		DistanceKm:    distanceKm,
		DurationHours: hours,
		FeeEstimate:   fee.InexactFloat64(),
	}
}
