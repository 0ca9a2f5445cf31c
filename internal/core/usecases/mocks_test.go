package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/fleetroute/internal/core/domain"
	"github.com/samirrijal/fleetroute/internal/core/ports"
)

var (
	vietnam = domain.GeoBounds{MinLat: 8.18, MaxLat: 23.39, MinLng: 102.14, MaxLng: 109.46}

	hanoi   = domain.Coordinate{Lat: 21.0285, Lng: 105.8542}
	vinh    = domain.Coordinate{Lat: 18.6796, Lng: 105.6813}
	hue     = domain.Coordinate{Lat: 16.4637, Lng: 107.5909}
	daNang  = domain.Coordinate{Lat: 16.0544, Lng: 108.2022}
	saigon  = domain.Coordinate{Lat: 10.7769, Lng: 106.7009}
	bangkok = domain.Coordinate{Lat: 13.7563, Lng: 100.5018}
	haiPhon = domain.Coordinate{Lat: 20.8449, Lng: 106.6881}
)

// --- Mock PathProvider ---

type mockPathProvider struct {
	mu      sync.Mutex
	calls   int
	coords  [][]domain.Coordinate
	routeFn func(ctx context.Context, coords []domain.Coordinate) ([]domain.Coordinate, error)
}

func (m *mockPathProvider) Route(ctx context.Context, coords []domain.Coordinate) ([]domain.Coordinate, error) {
	m.mu.Lock()
	m.calls++
	m.coords = append(m.coords, coords)
	m.mu.Unlock()
	if m.routeFn != nil {
		return m.routeFn(ctx, coords)
	}
	return coords, nil
}

func (m *mockPathProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Mock DirectionsProvider ---

type mockDirections struct {
	mu           sync.Mutex
	calls        int
	pairs        [][2]domain.Coordinate
	directionsFn func(ctx context.Context, origin, destination domain.Coordinate) (*ports.Directions, error)
}

func (m *mockDirections) Directions(ctx context.Context, origin, destination domain.Coordinate) (*ports.Directions, error) {
	m.mu.Lock()
	m.calls++
	m.pairs = append(m.pairs, [2]domain.Coordinate{origin, destination})
	m.mu.Unlock()
	if m.directionsFn != nil {
		return m.directionsFn(ctx, origin, destination)
	}
	return &ports.Directions{Geometry: []domain.Coordinate{origin, destination}}, nil
}

func (m *mockDirections) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Mock RouteRepository ---

type mockRouteRepo struct {
	getByIDFn        func(ctx context.Context, id int64) (*domain.Route, error)
	listActiveFn     func(ctx context.Context) ([]domain.Route, error)
	updateEstimateFn func(ctx context.Context, id int64, source domain.PathSource, est domain.RouteEstimate) error
}

func (m *mockRouteRepo) GetByID(ctx context.Context, id int64) (*domain.Route, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrRouteNotFound
}

func (m *mockRouteRepo) ListActive(ctx context.Context) ([]domain.Route, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return nil, nil
}

func (m *mockRouteRepo) UpdateEstimate(ctx context.Context, id int64, source domain.PathSource, est domain.RouteEstimate) error {
	if m.updateEstimateFn != nil {
		return m.updateEstimateFn(ctx, id, source, est)
	}
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.RefreshEvent
}

func (m *mockPublisher) PublishRouteRefreshed(ctx context.Context, ev *domain.RefreshEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *ev)
	return nil
}

func (m *mockPublisher) published() []domain.RefreshEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.RefreshEvent, len(m.events))
	copy(out, m.events)
	return out
}

// --- Mock CacheService ---

var errCacheMiss = errors.New("cache miss")

type mockSharedCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]int
}

func newMockSharedCache() *mockSharedCache {
	return &mockSharedCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

func (m *mockSharedCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return b, nil
}

func (m *mockSharedCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttlSeconds
	return nil
}

func (m *mockSharedCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// resolverFunc adapts a function to usecases.PathResolver.
type resolverFunc func(ctx context.Context, origin, destination domain.Coordinate) (domain.ResolvedPath, error)

func (f resolverFunc) Resolve(ctx context.Context, origin, destination domain.Coordinate) (domain.ResolvedPath, error) {
	return f(ctx, origin, destination)
}

func straight(origin, destination domain.Coordinate, src domain.PathSource) domain.ResolvedPath {
	return domain.ResolvedPath{Vertices: []domain.Coordinate{origin, destination}, Source: src}
}
