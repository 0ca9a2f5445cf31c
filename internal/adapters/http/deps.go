package http

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/fleetroute/internal/adapters/postgres"
	"github.com/samirrijal/fleetroute/internal/adapters/valkey"
	"github.com/samirrijal/fleetroute/internal/core/domain"
	"github.com/samirrijal/fleetroute/internal/core/usecases"
)

// defaultResolveTimeout is used when Dependencies.ResolveTimeout is unset.
const defaultResolveTimeout = 20 * time.Second

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Routes   *usecases.RouteService
	Validate *validator.Validate
	Currency string
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache

	// ResolveTimeout bounds requests that may run the provider chain. It must exceed the
	// primary plus secondary tier timeouts so the fallback tier is always reached.
	ResolveTimeout time.Duration
	// Bounds rejects ad-hoc pairs with an endpoint outside the service area. The zero value
	// disables the check.
	Bounds domain.GeoBounds
}

func (d *Dependencies) resolveTimeout() time.Duration {
	if d.ResolveTimeout <= 0 {
		return defaultResolveTimeout
	}
	return d.ResolveTimeout
}

func (d *Dependencies) validator() *validator.Validate {
	if d.Validate == nil {
		d.Validate = NewValidator()
	}
	return d.Validate
}
