package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/fleetroute/internal/pkg/metrics"
)

// deprecatedRoutes lists endpoints kept for older dispatch clients.
var deprecatedRoutes = []DeprecatedRoute{
	{
		Method:      fiber.MethodGet,
		Path:        "/v1/routes/:id/distance",
		SunsetDate:  time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC),
		Alternative: "/v1/routes/:id/estimate",
	},
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(DeprecationMiddleware(deprecatedRoutes))
	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	resolveTimeout := deps.resolveTimeout()

	v1 := app.Group("/v1")
	v1.Post("/paths/resolve", timeout.NewWithContext(ResolvePathHandler(deps), resolveTimeout))
	v1.Post("/paths/estimate", timeout.NewWithContext(EstimatePathHandler(deps), resolveTimeout))

	v1.Get("/routes", timeout.NewWithContext(ListRoutesHandler(deps), 15*time.Second))
	v1.Post("/routes/refresh", StartRefreshHandler(deps))
	v1.Delete("/routes/refresh/:job", CancelRefreshHandler(deps))
	v1.Get("/routes/:id", timeout.NewWithContext(GetRouteHandler(deps), 15*time.Second))
	v1.Get("/routes/:id/path", timeout.NewWithContext(RoutePathHandler(deps), resolveTimeout))
	v1.Post("/routes/:id/estimate", timeout.NewWithContext(EstimateRouteHandler(deps), resolveTimeout))
	v1.Get("/routes/:id/distance", timeout.NewWithContext(RouteDistanceHandler(deps), resolveTimeout))

	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), resolveTimeout))

	SetupDocs(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
