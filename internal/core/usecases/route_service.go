package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/samirrijal/fleetroute/internal/core/domain"
	"github.com/samirrijal/fleetroute/internal/core/ports"
	"github.com/samirrijal/fleetroute/internal/pkg/geospatial"
	"github.com/samirrijal/fleetroute/internal/pkg/telemetry"
)

// PathResolver resolves a path between two points. ProviderChain is the production implementation.
type PathResolver interface {
	Resolve(ctx context.Context, origin, destination domain.Coordinate) (domain.ResolvedPath, error)
}

// EstimateConfig holds fleet-wide estimation defaults.
type EstimateConfig struct {
	AvgSpeedKmh float64
	RatePerKm   float64
}

// RouteService is the consumer-facing API of the routing engine.
type RouteService struct {
	routes   ports.RouteRepository
	resolver PathResolver
	cache    *RoutePathCache
	events   ports.EventPublisher
	cfg      EstimateConfig

	inflight singleflight.Group

	mu   sync.Mutex
	jobs map[string]context.CancelFunc
}

// NewRouteService creates a new RouteService. routes and events may be nil.
func NewRouteService(routes ports.RouteRepository, resolver PathResolver, cache *RoutePathCache, events ports.EventPublisher, cfg EstimateConfig) *RouteService {
	if cache == nil {
		cache = NewRoutePathCache(nil)
	}
	return &RouteService{
		routes:   routes,
		resolver: resolver,
		cache:    cache,
		events:   events,
		cfg:      cfg,
		jobs:     make(map[string]context.CancelFunc),
	}
}

// ResolveRoute runs the provider chain for a single pair.
func (s *RouteService) ResolveRoute(ctx context.Context, origin, destination domain.Coordinate) (domain.ResolvedPath, error) {
	return s.resolver.Resolve(ctx, origin, destination)
}

// ResolveAndEstimate resolves a path and derives distance, duration and fee.
// A ratePerKm <= 0 uses the configured rate.
func (s *RouteService) ResolveAndEstimate(ctx context.Context, origin, destination domain.Coordinate, ratePerKm float64) (domain.RouteResolution, error) {
	path, err := s.resolver.Resolve(ctx, origin, destination)
	if err != nil {
		return domain.RouteResolution{}, err
	}
	return s.estimate(path, ratePerKm), nil
}

func (s *RouteService) estimate(path domain.ResolvedPath, ratePerKm float64) domain.RouteResolution {
	if ratePerKm <= 0 {
		ratePerKm = s.cfg.RatePerKm
	}
	return domain.RouteResolution{
		Path:          path,
		RouteEstimate: Estimate(geospatial.PathDistanceKm(path.Vertices), s.cfg.AvgSpeedKmh, ratePerKm),
	}
}

// GetCachedOrResolve returns the cached path for routeID, resolving and caching it on a miss.
// Concurrent misses for the same route share one resolution, keyed by routeID alone since the
// cache holds one path per route. The shared resolution is detached from any single caller:
// a caller that gives up gets its own ctx error while the others still receive the path.
func (s *RouteService) GetCachedOrResolve(ctx context.Context, routeID int64, origin, destination domain.Coordinate) (domain.ResolvedPath, error) {
	if p, ok := s.cache.Get(ctx, routeID); ok {
		return p, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(strconv.FormatInt(routeID, 10), func() (interface{}, error) {
		// A flight that finished between our miss and DoChan has already filled the cache.
		if p, ok := s.cache.Get(flightCtx, routeID); ok {
			return p, nil
		}
		path, err := s.resolver.Resolve(flightCtx, origin, destination)
		if err != nil {
			return nil, err
		}
		s.cache.Put(flightCtx, routeID, path)
		return path, nil
	})

	select {
	case <-ctx.Done():
		return domain.ResolvedPath{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.ResolvedPath{}, res.Err
		}
		return res.Val.(domain.ResolvedPath).Clone(), nil
	}
}

// RefreshCacheInBackground starts a bulk refresh and returns immediately with the job ID and a
// channel of per-route events. Every event is also published to the event bus. The job runs
// until all entries are done, ctx is cancelled or CancelRefresh is called.
func (s *RouteService) RefreshCacheInBackground(ctx context.Context, entries []domain.RouteEntry) (string, <-chan domain.RefreshEvent) {
	jobID := uuid.NewString()
	jobCtx, cancel := context.WithCancel(ctx)
	jobCtx, span := telemetry.Tracer().Start(jobCtx, telemetry.SpanRefreshJob)
	span.SetAttributes(attribute.String("refresh.job_id", jobID), attribute.Int("refresh.total", len(entries)))

	s.mu.Lock()
	s.jobs[jobID] = cancel
	s.mu.Unlock()

	slog.Info("route refresh started", "job_id", jobID, "total", len(entries))

	events := s.cache.RefreshAllInBackground(jobCtx, jobID, entries, s.resolver.Resolve)
	out := make(chan domain.RefreshEvent, len(entries))

	go func() {
		defer close(out)
		defer s.finishJob(jobID)

		done := 0
		for ev := range events {
			s.publish(jobCtx, ev)
			out <- ev
			done++
		}
		span.SetAttributes(attribute.Int("refresh.done", done))
		span.End()
	}()

	return jobID, out
}

func (s *RouteService) publish(ctx context.Context, ev domain.RefreshEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishRouteRefreshed(context.WithoutCancel(ctx), &ev); err != nil {
		slog.Warn("publish route refreshed", "route_id", ev.RouteID, "job_id", ev.JobID, "error", err)
	}
}

func (s *RouteService) finishJob(jobID string) {
	s.mu.Lock()
	cancel, ok := s.jobs[jobID]
	delete(s.jobs, jobID)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// CancelRefresh stops a running job. It reports false if the job is unknown or already finished.
func (s *RouteService) CancelRefresh(jobID string) bool {
	s.mu.Lock()
	cancel, ok := s.jobs[jobID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// RunningRefreshes returns the number of jobs still in progress.
func (s *RouteService) RunningRefreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// RefreshJob is a started bulk refresh.
type RefreshJob struct {
	ID     string
	Total  int
	Events <-chan domain.RefreshEvent
}

// RefreshActiveRoutes starts a background refresh of every active route in the repository.
func (s *RouteService) RefreshActiveRoutes(ctx context.Context) (RefreshJob, error) {
	if s.routes == nil {
		return RefreshJob{}, fmt.Errorf("route repository not configured")
	}
	routes, err := s.routes.ListActive(ctx)
	if err != nil {
		return RefreshJob{}, fmt.Errorf("list active routes: %w", err)
	}

	entries := make([]domain.RouteEntry, 0, len(routes))
	for _, r := range routes {
		entries = append(entries, r.Entry())
	}
	jobID, events := s.RefreshCacheInBackground(ctx, entries)
	return RefreshJob{ID: jobID, Total: len(entries), Events: events}, nil
}

// EstimateStoredRoute estimates a stored route using its cached path (resolving on a miss)
// and the route's own rate, then writes the estimate back.
func (s *RouteService) EstimateStoredRoute(ctx context.Context, routeID int64) (domain.RouteResolution, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanEstimateStored)
	defer span.End()
	span.SetAttributes(attribute.Int64("route.id", routeID))

	route, err := s.GetByID(ctx, routeID)
	if err != nil {
		return domain.RouteResolution{}, err
	}

	path, err := s.GetCachedOrResolve(ctx, route.ID, route.Origin, route.Destination)
	if err != nil {
		return domain.RouteResolution{}, err
	}

	res := s.estimate(path, route.RatePerKm)
	if err := s.routes.UpdateEstimate(ctx, route.ID, path.Source, res.RouteEstimate); err != nil {
		return domain.RouteResolution{}, fmt.Errorf("update estimate: %w", err)
	}
	return res, nil
}

// RefreshStoredRoute re-resolves one stored route bypassing the cache, caches the result,
// persists the new estimate and publishes a refresh event. A route that no longer exists is
// dropped from the cache.
func (s *RouteService) RefreshStoredRoute(ctx context.Context, routeID int64) (domain.RefreshEvent, error) {
	route, err := s.GetByID(ctx, routeID)
	if err != nil {
		if errors.Is(err, domain.ErrRouteNotFound) {
			s.cache.Evict(ctx, routeID)
		}
		return domain.RefreshEvent{}, err
	}

	path, err := s.resolver.Resolve(ctx, route.Origin, route.Destination)
	if err != nil {
		return domain.RefreshEvent{}, err
	}
	entry := s.cache.put(ctx, route.ID, path)

	res := s.estimate(path, route.RatePerKm)
	if err := s.routes.UpdateEstimate(ctx, route.ID, path.Source, res.RouteEstimate); err != nil {
		return domain.RefreshEvent{}, fmt.Errorf("update estimate: %w", err)
	}

	ev := domain.RefreshEvent{
		RouteID:    route.ID,
		Index:      0,
		Total:      1,
		Path:       entry.Path.Clone(),
		DistanceKm: res.DistanceKm,
		ResolvedAt: entry.ResolvedAt,
	}
	s.publish(ctx, ev)
	return ev, nil
}

// ApplyRemoteRefresh stores a path resolved by another replica.
func (s *RouteService) ApplyRemoteRefresh(_ context.Context, ev *domain.RefreshEvent) error {
	if ev == nil || len(ev.Path.Vertices) < 2 {
		return fmt.Errorf("%w: refresh event without path", domain.ErrMalformedResponse)
	}
	s.cache.Apply(domain.CacheEntry{RouteID: ev.RouteID, Path: ev.Path, ResolvedAt: ev.ResolvedAt})
	return nil
}

// CachedPath returns the cached path for a route without resolving.
func (s *RouteService) CachedPath(ctx context.Context, routeID int64) (domain.ResolvedPath, bool) {
	return s.cache.Get(ctx, routeID)
}

// GetByID returns a stored route.
func (s *RouteService) GetByID(ctx context.Context, id int64) (*domain.Route, error) {
	if s.routes == nil {
		return nil, domain.ErrRouteNotFound
	}
	return s.routes.GetByID(ctx, id)
}

// ListActive returns all active stored routes.
func (s *RouteService) ListActive(ctx context.Context) ([]domain.Route, error) {
	if s.routes == nil {
		return nil, nil
	}
	return s.routes.ListActive(ctx)
}
