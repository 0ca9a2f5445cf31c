package ports

import (
	"context"

	"github.com/samirrijal/fleetroute/internal/core/domain"
)

// RouteRepository persists dispatch routes.
type RouteRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Route, error)
	ListActive(ctx context.Context) ([]domain.Route, error)
	// UpdateEstimate stores the latest distance/duration/fee for a route.
	UpdateEstimate(ctx context.Context, id int64, source domain.PathSource, est domain.RouteEstimate) error
}
