package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/fleetroute/internal/core/domain"
	"github.com/samirrijal/fleetroute/internal/core/usecases"
)

// RefreshOutcome is the per-route result returned by RefreshRoute.
type RefreshOutcome struct {
	RouteID    int64
	Source     string
	DistanceKm float64
}

// RefreshActivities holds the activity implementations for the route refresh workflow.
type RefreshActivities struct {
	Routes *usecases.RouteService
}

// ListActiveRouteIDs returns the IDs of every active route.
func (a *RefreshActivities) ListActiveRouteIDs(ctx context.Context) ([]int64, error) {
	routes, err := a.Routes.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active routes: %w", err)
	}
	ids := make([]int64, 0, len(routes))
	for _, r := range routes {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// RefreshRoute re-resolves one route and persists its estimate.
func (a *RefreshActivities) RefreshRoute(ctx context.Context, routeID int64) (RefreshOutcome, error) {
	ev, err := a.Routes.RefreshStoredRoute(ctx, routeID)
	if errors.Is(err, domain.ErrRouteNotFound) {
		return RefreshOutcome{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("route %d not found", routeID), "RouteNotFound", err)
	}
	if err != nil {
		return RefreshOutcome{}, fmt.Errorf("refresh route %d: %w", routeID, err)
	}

	slog.Info("route refreshed", "route_id", routeID, "source", ev.Path.Source.String(), "distance_km", ev.DistanceKm)
	return RefreshOutcome{RouteID: routeID, Source: ev.Path.Source.String(), DistanceKm: ev.DistanceKm}, nil
}
