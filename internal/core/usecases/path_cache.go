package usecases

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/samirrijal/fleetroute/internal/core/domain"
	"github.com/samirrijal/fleetroute/internal/core/ports"
	"github.com/samirrijal/fleetroute/internal/pkg/geospatial"
	"github.com/samirrijal/fleetroute/internal/pkg/metrics"
)

// ResolveFunc resolves one origin/destination pair.
type ResolveFunc func(ctx context.Context, origin, destination domain.Coordinate) (domain.ResolvedPath, error)

// RoutePathCache keeps the last resolved path per route. Entries never expire and a failed
// resolution never evicts one. When a shared store is configured every write goes through to
// it so other replicas can back-fill on a local miss.
type RoutePathCache struct {
	mu      sync.RWMutex
	entries map[int64]domain.CacheEntry

	shared ports.CacheService
	now    func() time.Time
}

// NewRoutePathCache creates an empty cache. shared may be nil.
func NewRoutePathCache(shared ports.CacheService) *RoutePathCache {
	return &RoutePathCache{
		entries: make(map[int64]domain.CacheEntry),
		shared:  shared,
		now:     time.Now,
	}
}

func sharedKey(routeID int64) string {
	return "route:path:" + strconv.FormatInt(routeID, 10)
}

// Get returns a copy of the cached path for routeID.
func (c *RoutePathCache) Get(ctx context.Context, routeID int64) (domain.ResolvedPath, bool) {
	c.mu.RLock()
	e, ok := c.entries[routeID]
	c.mu.RUnlock()
	if ok {
		metrics.CacheHits.WithLabelValues("path_memory").Inc()
		return e.Path.Clone(), true
	}
	metrics.CacheMisses.WithLabelValues("path_memory").Inc()

	if c.shared == nil {
		return domain.ResolvedPath{}, false
	}
	data, err := c.shared.Get(ctx, sharedKey(routeID))
	if err != nil {
		metrics.CacheMisses.WithLabelValues("path_shared").Inc()
		return domain.ResolvedPath{}, false
	}
	var remote domain.CacheEntry
	if err := json.Unmarshal(data, &remote); err != nil || len(remote.Path.Vertices) < 2 {
		metrics.CacheMisses.WithLabelValues("path_shared").Inc()
		return domain.ResolvedPath{}, false
	}
	metrics.CacheHits.WithLabelValues("path_shared").Inc()

	remote.RouteID = routeID
	c.Apply(remote)
	return remote.Path.Clone(), true
}

// Put stores path for routeID, replacing any previous entry.
func (c *RoutePathCache) Put(ctx context.Context, routeID int64, path domain.ResolvedPath) {
	c.put(ctx, routeID, path)
}

func (c *RoutePathCache) put(ctx context.Context, routeID int64, path domain.ResolvedPath) domain.CacheEntry {
	e := domain.CacheEntry{RouteID: routeID, Path: path.Clone(), ResolvedAt: c.now()}

	c.mu.Lock()
	c.entries[routeID] = e
	n := len(c.entries)
	c.mu.Unlock()
	metrics.PathCacheEntries.Set(float64(n))

	if c.shared != nil {
		if data, err := json.Marshal(e); err == nil {
			if err := c.shared.Set(ctx, sharedKey(routeID), data, 0); err != nil {
				slog.Warn("shared path cache write failed", "route_id", routeID, "error", err)
			}
		}
	}
	return e
}

// Apply stores an entry resolved elsewhere (another replica or the shared store) unless the
// local entry is newer. It does not write through.
func (c *RoutePathCache) Apply(e domain.CacheEntry) bool {
	e.Path = e.Path.Clone()

	c.mu.Lock()
	cur, ok := c.entries[e.RouteID]
	if ok && cur.ResolvedAt.After(e.ResolvedAt) {
		c.mu.Unlock()
		return false
	}
	c.entries[e.RouteID] = e
	n := len(c.entries)
	c.mu.Unlock()

	metrics.PathCacheEntries.Set(float64(n))
	return true
}

// Evict drops routeID locally and from the shared store. It is only used for routes that
// no longer exist, never for failed resolutions.
func (c *RoutePathCache) Evict(ctx context.Context, routeID int64) {
	c.mu.Lock()
	delete(c.entries, routeID)
	n := len(c.entries)
	c.mu.Unlock()
	metrics.PathCacheEntries.Set(float64(n))

	if c.shared != nil {
		if err := c.shared.Delete(ctx, sharedKey(routeID)); err != nil {
			slog.Warn("shared path cache delete failed", "route_id", routeID, "error", err)
		}
	}
}

// Len returns the number of cached routes.
func (c *RoutePathCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RefreshAllInBackground resolves entries one at a time, in order, on its own goroutine.
// Each result is cached and emitted on the returned channel, which is buffered for every
// entry and closed when the job ends. Cancelling ctx stops further items; results already
// cached stay.
func (c *RoutePathCache) RefreshAllInBackground(ctx context.Context, jobID string, entries []domain.RouteEntry, resolve ResolveFunc) <-chan domain.RefreshEvent {
	items := make([]domain.RouteEntry, len(entries))
	copy(items, entries)
	out := make(chan domain.RefreshEvent, len(items))

	go func() {
		defer close(out)
		metrics.RefreshJobsRunning.Inc()
		defer metrics.RefreshJobsRunning.Dec()

		for i, item := range items {
			if ctx.Err() != nil {
				slog.Info("route refresh cancelled", "job_id", jobID, "done", i, "total", len(items))
				return
			}

			path, err := resolve(ctx, item.Origin, item.Destination)
			if err != nil {
				slog.Info("route refresh cancelled", "job_id", jobID, "done", i, "total", len(items), "error", err)
				return
			}

			e := c.put(ctx, item.RouteID, path)
			metrics.RefreshItems.WithLabelValues(path.Source.String()).Inc()

			out <- domain.RefreshEvent{
				JobID:      jobID,
				RouteID:    item.RouteID,
				Index:      i,
				Total:      len(items),
				Path:       e.Path.Clone(),
				DistanceKm: geospatial.PathDistanceKm(e.Path.Vertices),
				ResolvedAt: e.ResolvedAt,
			}
		}
		slog.Info("route refresh finished", "job_id", jobID, "total", len(items))
	}()

	return out
}
