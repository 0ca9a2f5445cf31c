package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/fleetroute/internal/adapters/directions"
	"github.com/samirrijal/fleetroute/internal/adapters/http"
	natsadapter "github.com/samirrijal/fleetroute/internal/adapters/nats"
	"github.com/samirrijal/fleetroute/internal/adapters/osrm"
	"github.com/samirrijal/fleetroute/internal/adapters/postgres"
	"github.com/samirrijal/fleetroute/internal/adapters/valkey"
	"github.com/samirrijal/fleetroute/internal/core/domain"
	"github.com/samirrijal/fleetroute/internal/core/ports"
	"github.com/samirrijal/fleetroute/internal/core/usecases"
	"github.com/samirrijal/fleetroute/internal/pkg/config"
	"github.com/samirrijal/fleetroute/internal/pkg/logging"
	"github.com/samirrijal/fleetroute/internal/pkg/metrics"
	"github.com/samirrijal/fleetroute/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("fleetroute-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	// Shared path store
	cache, err := valkey.New(cfg.Valkey.Addr)
	var shared ports.CacheService
	if err != nil {
		slog.Warn("valkey unavailable, path cache is local only", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		shared = cache
	}

	// NATS
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, refresh events not published", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	// Route resolution engine
	r := cfg.Routing
	var primary ports.PathProvider
	if r.Primary.BaseURL != "" {
		primary = osrm.New(osrm.Config{
			BaseURL:         r.Primary.BaseURL,
			Profile:         r.Primary.Profile,
			RateLimitPerSec: r.Primary.RateLimitPerSec,
		})
	}
	var secondary ports.DirectionsProvider
	if r.Secondary.BaseURL != "" {
		secondary = directions.New(r.Secondary.BaseURL)
	}

	synth := usecases.NewWaypointSynthesizer(r.Waypoints, r.SynthesisThresholdDeg, r.Axis())
	chain := usecases.NewProviderChain(primary, secondary, synth, usecases.ChainConfig{
		Bounds:           r.Bounds,
		PrimaryTimeout:   r.Primary.Timeout(),
		SecondaryTimeout: r.Secondary.Timeout(),
	})
	routeSvc := usecases.NewRouteService(postgres.NewRouteRepo(db), chain, usecases.NewRoutePathCache(shared), events,
		usecases.EstimateConfig{AvgSpeedKmh: r.AvgSpeedKmh, RatePerKm: r.RatePerKm})

	slog.Info("route engine configured",
		"primary", r.Primary.BaseURL != "",
		"secondary", r.Secondary.BaseURL != "",
		"waypoints", len(r.Waypoints),
		"axis", string(r.Axis()),
		"resolve_timeout", r.ResolveTimeout(),
	)

	// Refreshes made by other replicas or the refresher worker
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats subscriber unavailable, replicas will not share refreshes", "error", err)
	} else {
		defer sub.Close()
		subscribeRemoteRefreshes(ctx, sub, routeSvc)
	}

	deps := &http.Dependencies{
		Routes:         routeSvc,
		Validate:       http.NewValidator(),
		Currency:       r.Currency,
		DB:             db,
		Cache:          cache,
		ResolveTimeout: r.ResolveTimeout(),
		Bounds:         r.Bounds,
	}
	if pub != nil {
		deps.NATS = pub.Conn()
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    256 * 1024,
		AppName:      "FleetRoute API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:3000, http://localhost:5173",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, If-None-Match",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String(),
		"refresh_jobs", routeSvc.RunningRefreshes())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// reportPoolStats publishes connection pool gauges until ctx ends.
func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}

// subscribeRemoteRefreshes applies paths resolved by other replicas to the local cache.
func subscribeRemoteRefreshes(ctx context.Context, sub ports.EventSubscriber, routes *usecases.RouteService) {
	err := sub.SubscribeRouteRefreshed(ctx, func(ctx context.Context, ev *domain.RefreshEvent) error {
		return routes.ApplyRemoteRefresh(ctx, ev)
	})
	if err != nil {
		slog.Warn("subscribe route refreshed", "error", err)
	}
}
