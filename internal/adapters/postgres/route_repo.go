package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/fleetroute/internal/core/domain"
)

// RouteRepo implements ports.RouteRepository.
type RouteRepo struct {
	db *DB
}

func NewRouteRepo(db *DB) *RouteRepo { return &RouteRepo{db: db} }

const routeColumns = `
	id, code, name, origin_lat, origin_lng, dest_lat, dest_lng, rate_per_km,
	distance_km, duration_hours, fee_estimate, path_source, active, estimated_at, created_at`

func scanRoute(row pgx.Row) (*domain.Route, error) {
	var (
		rt     domain.Route
		source *string
	)
	err := row.Scan(&rt.ID, &rt.Code, &rt.Name,
		&rt.Origin.Lat, &rt.Origin.Lng, &rt.Destination.Lat, &rt.Destination.Lng, &rt.RatePerKm,
		&rt.DistanceKm, &rt.DurationHours, &rt.FeeEstimate, &source, &rt.Active, &rt.EstimatedAt, &rt.CreatedAt)
	if err != nil {
		return nil, err
	}
	if source != nil {
		rt.PathSource = *source
	}
	return &rt, nil
}

func (r *RouteRepo) GetByID(ctx context.Context, id int64) (*domain.Route, error) {
	rt, err := scanRoute(r.db.Pool.QueryRow(ctx, `SELECT`+routeColumns+` FROM dispatch_routes WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRouteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get route %d: %w", id, err)
	}
	return rt, nil
}

func (r *RouteRepo) ListActive(ctx context.Context) ([]domain.Route, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT`+routeColumns+` FROM dispatch_routes WHERE active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []domain.Route
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, *rt)
	}
	return routes, rows.Err()
}

// UpdateEstimate writes back the engine's latest estimate. The route record itself is owned by
// the dispatch admin, so only the estimate columns are touched.
func (r *RouteRepo) UpdateEstimate(ctx context.Context, id int64, source domain.PathSource, est domain.RouteEstimate) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE dispatch_routes
		SET distance_km = $2, duration_hours = $3, fee_estimate = $4, path_source = $5, estimated_at = now()
		WHERE id = $1
	`, id, est.DistanceKm, est.DurationHours, est.FeeEstimate, source.String())
	if err != nil {
		return fmt.Errorf("update estimate %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRouteNotFound
	}
	return nil
}
