package http

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/fleetroute/internal/core/domain"
	"github.com/samirrijal/fleetroute/internal/pkg/geospatial"
)

// pathRequest is the body of POST /v1/paths/resolve.
type pathRequest struct {
	Origin      *domain.Coordinate `json:"origin" validate:"required"`
	Destination *domain.Coordinate `json:"destination" validate:"required"`
}

// estimateRequest is the body of POST /v1/paths/estimate. A zero rate uses the configured one.
type estimateRequest struct {
	Origin      *domain.Coordinate `json:"origin" validate:"required"`
	Destination *domain.Coordinate `json:"destination" validate:"required"`
	RatePerKm   float64            `json:"rate_per_km" validate:"gte=0"`
}

// refreshRequest is the optional body of POST /v1/routes/refresh.
type refreshRequest struct {
	RouteIDs []int64 `json:"route_ids" validate:"max=500,dive,gt=0"`
}

func (r pathRequest) route() domain.RouteRequest {
	return domain.RouteRequest{Origin: *r.Origin, Destination: *r.Destination}
}

func (r estimateRequest) route() domain.RouteRequest {
	return domain.RouteRequest{Origin: *r.Origin, Destination: *r.Destination}
}

// outsideBounds lists the endpoints of req that lie outside bounds. Zero bounds accept everything.
func outsideBounds(bounds domain.GeoBounds, req domain.RouteRequest) []FieldError {
	if bounds == (domain.GeoBounds{}) {
		return nil
	}
	var out []FieldError
	if !geospatial.IsInside(req.Origin, bounds) {
		out = append(out, FieldError{Field: "origin", Message: "outside the service area"})
	}
	if !geospatial.IsInside(req.Destination, bounds) {
		out = append(out, FieldError{Field: "destination", Message: "outside the service area"})
	}
	return out
}

type pathResponse struct {
	RouteID    int64               `json:"route_id,omitempty"`
	Source     domain.PathSource   `json:"source"`
	Vertices   []domain.Coordinate `json:"vertices"`
	DistanceKm float64             `json:"distance_km"`
}

type estimateResponse struct {
	RouteID int64 `json:"route_id,omitempty"`
	domain.RouteResolution
	Currency string `json:"currency"`
}

func newPathResponse(routeID int64, p domain.ResolvedPath) pathResponse {
	return pathResponse{
		RouteID:    routeID,
		Source:     p.Source,
		Vertices:   p.Vertices,
		DistanceKm: geospatial.PathDistanceKm(p.Vertices),
	}
}

// resolveFailed maps a resolution error to a response. The chain only fails when the
// request context ends first.
func resolveFailed(c *fiber.Ctx, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errTimeout(c, "route resolution did not finish before the request deadline")
	}
	return errInternal(c, err.Error())
}

func routeLookupFailed(c *fiber.Ctx, err error) error {
	if errors.Is(err, domain.ErrRouteNotFound) {
		return errNotFound(c, "route not found")
	}
	return errInternal(c, err.Error())
}

func routeIDParam(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ResolvePathHandler resolves an ad-hoc origin/destination pair.
// POST /v1/paths/resolve {"origin":{"lat":21.03,"lng":105.85},"destination":{...}}
func ResolvePathHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req pathRequest
		if err := parseBody(c, deps.validator(), &req); err != nil {
			return errValidation(c, err)
		}
		rr := req.route()
		if fields := outsideBounds(deps.Bounds, rr); len(fields) > 0 {
			return errOutOfBounds(c, fields)
		}

		path, err := deps.Routes.ResolveRoute(c.UserContext(), rr.Origin, rr.Destination)
		if err != nil {
			return resolveFailed(c, err)
		}

		LoggerFromCtx(c.UserContext()).Debug("path resolved", "source", path.Source.String(), "vertices", len(path.Vertices))
		return c.JSON(newPathResponse(0, path))
	}
}

// EstimatePathHandler resolves a pair and returns distance, duration and fee.
func EstimatePathHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req estimateRequest
		if err := parseBody(c, deps.validator(), &req); err != nil {
			return errValidation(c, err)
		}
		rr := req.route()
		if fields := outsideBounds(deps.Bounds, rr); len(fields) > 0 {
			return errOutOfBounds(c, fields)
		}

		res, err := deps.Routes.ResolveAndEstimate(c.UserContext(), rr.Origin, rr.Destination, req.RatePerKm)
		if err != nil {
			return resolveFailed(c, err)
		}
		return c.JSON(estimateResponse{RouteResolution: res, Currency: deps.Currency})
	}
}

// ListRoutesHandler lists active dispatch routes.
func ListRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		routes, err := deps.Routes.ListActive(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		if routes == nil {
			routes = []domain.Route{}
		}
		return paginate(c, routes, 100, 500)
	}
}

// GetRouteHandler returns a stored route by ID.
func GetRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := routeIDParam(c)
		if !ok {
			return errBadRequest(c, "route id must be a positive integer")
		}
		route, err := deps.Routes.GetByID(c.UserContext(), id)
		if err != nil {
			return routeLookupFailed(c, err)
		}
		return c.JSON(route)
	}
}

// RoutePathHandler returns the cached path of a stored route, resolving it on a miss.
func RoutePathHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := routeIDParam(c)
		if !ok {
			return errBadRequest(c, "route id must be a positive integer")
		}
		route, err := deps.Routes.GetByID(c.UserContext(), id)
		if err != nil {
			return routeLookupFailed(c, err)
		}

		path, err := deps.Routes.GetCachedOrResolve(c.UserContext(), route.ID, route.Origin, route.Destination)
		if err != nil {
			return resolveFailed(c, err)
		}
		return c.JSON(newPathResponse(route.ID, path))
	}
}

// EstimateRouteHandler estimates a stored route and writes the result back.
func EstimateRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := routeIDParam(c)
		if !ok {
			return errBadRequest(c, "route id must be a positive integer")
		}

		res, err := deps.Routes.EstimateStoredRoute(c.UserContext(), id)
		switch {
		case errors.Is(err, domain.ErrRouteNotFound):
			return errNotFound(c, "route not found")
		case err != nil:
			return resolveFailed(c, err)
		}

		LoggerFromCtx(c.UserContext()).Info("route estimated",
			"route_id", id, "source", res.Path.Source.String(), "distance_km", res.DistanceKm)
		return c.JSON(estimateResponse{RouteID: id, RouteResolution: res, Currency: deps.Currency})
	}
}

// RouteDistanceHandler returns only the distance of a stored route.
// Deprecated: use POST /v1/routes/:id/estimate.
func RouteDistanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := routeIDParam(c)
		if !ok {
			return errBadRequest(c, "route id must be a positive integer")
		}
		route, err := deps.Routes.GetByID(c.UserContext(), id)
		if err != nil {
			return routeLookupFailed(c, err)
		}
		path, err := deps.Routes.GetCachedOrResolve(c.UserContext(), route.ID, route.Origin, route.Destination)
		if err != nil {
			return resolveFailed(c, err)
		}
		return c.JSON(fiber.Map{
			"route_id":    route.ID,
			"distance_km": geospatial.PathDistanceKm(path.Vertices),
			"source":      path.Source,
		})
	}
}

// StartRefreshHandler starts a background refresh and returns its job ID.
// With no route_ids every active route is refreshed.
func StartRefreshHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req refreshRequest
		if len(c.Body()) > 0 {
			if err := parseBody(c, deps.validator(), &req); err != nil {
				return errValidation(c, err)
			}
		}

		// The job outlives the request.
		jobCtx := context.Background()

		var (
			jobID string
			total int
		)
		if len(req.RouteIDs) == 0 {
			job, err := deps.Routes.RefreshActiveRoutes(jobCtx)
			if err != nil {
				return errInternal(c, err.Error())
			}
			jobID, total = job.ID, job.Total
		} else {
			entries := make([]domain.RouteEntry, 0, len(req.RouteIDs))
			for _, rid := range req.RouteIDs {
				route, err := deps.Routes.GetByID(c.UserContext(), rid)
				if err != nil {
					if errors.Is(err, domain.ErrRouteNotFound) {
						return errNotFound(c, "route "+strconv.FormatInt(rid, 10)+" not found")
					}
					return errInternal(c, err.Error())
				}
				entries = append(entries, route.Entry())
			}
			jobID, _ = deps.Routes.RefreshCacheInBackground(jobCtx, entries)
			total = len(entries)
		}

		LoggerFromCtx(c.UserContext()).Info("route refresh accepted", "job_id", jobID, "total", total)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"job_id": jobID,
			"total":  total,
		})
	}
}

// CancelRefreshHandler stops a running refresh job.
func CancelRefreshHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		jobID := c.Params("job")
		if !deps.Routes.CancelRefresh(jobID) {
			return errNotFound(c, "refresh job not found or already finished")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
