package ports

import (
	"context"

	"github.com/samirrijal/fleetroute/internal/core/domain"
)

// PathProvider is the external routing service. It receives the full ordered coordinate list
// (origin, synthesized waypoints, destination) and returns the route geometry.
type PathProvider interface {
	Route(ctx context.Context, coords []domain.Coordinate) ([]domain.Coordinate, error)
}

// Directions is the internal directions service's answer.
type Directions struct {
	DistanceMeters float64
	Geometry       []domain.Coordinate
}

// DirectionsProvider is the internal directions service. It only ever sees the raw pair.
type DirectionsProvider interface {
	Directions(ctx context.Context, origin, destination domain.Coordinate) (*Directions, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishRouteRefreshed(ctx context.Context, ev *domain.RefreshEvent) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeRouteRefreshed(ctx context.Context, handler func(ctx context.Context, ev *domain.RefreshEvent) error) error
}

// CacheService provides a shared key/value store. A ttlSeconds of 0 stores without expiry.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
