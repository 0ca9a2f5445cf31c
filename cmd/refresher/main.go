package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"strconv"
	"strings"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/fleetroute/internal/adapters/directions"
	natsadapter "github.com/samirrijal/fleetroute/internal/adapters/nats"
	"github.com/samirrijal/fleetroute/internal/adapters/osrm"
	"github.com/samirrijal/fleetroute/internal/adapters/postgres"
	"github.com/samirrijal/fleetroute/internal/adapters/valkey"
	"github.com/samirrijal/fleetroute/internal/core/ports"
	"github.com/samirrijal/fleetroute/internal/core/usecases"
	"github.com/samirrijal/fleetroute/internal/pkg/config"
	"github.com/samirrijal/fleetroute/internal/pkg/logging"
	"github.com/samirrijal/fleetroute/internal/pkg/telemetry"
	"github.com/samirrijal/fleetroute/internal/workflows"
)

func main() {
	trigger := flag.Bool("trigger", false, "start a refresh workflow and exit instead of running the worker")
	routeIDs := flag.String("routes", "", "comma-separated route IDs for -trigger (default: all active)")
	flag.Parse()

	cfg, err := config.Load("fleetroute-refresher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	if *trigger {
		ids, err := parseIDs(*routeIDs)
		if err != nil {
			log.Fatalf("routes: %v", err)
		}
		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			TaskQueue: cfg.Temporal.TaskQueue,
		}, workflows.RouteRefreshWorkflowName, workflows.RefreshInput{RouteIDs: ids})
		if err != nil {
			log.Fatalf("start workflow: %v", err)
		}
		slog.Info("route refresh workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())
		return
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var shared ports.CacheService
	if cache, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, path cache is local only", "error", err)
	} else {
		defer cache.Close()
		shared = cache
	}

	var events ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, refresh events not published", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	r := cfg.Routing
	var primary ports.PathProvider
	if r.Primary.BaseURL != "" {
		primary = osrm.New(osrm.Config{BaseURL: r.Primary.BaseURL, Profile: r.Primary.Profile, RateLimitPerSec: r.Primary.RateLimitPerSec})
	}
	var secondary ports.DirectionsProvider
	if r.Secondary.BaseURL != "" {
		secondary = directions.New(r.Secondary.BaseURL)
	}

	chain := usecases.NewProviderChain(primary, secondary,
		usecases.NewWaypointSynthesizer(r.Waypoints, r.SynthesisThresholdDeg, r.Axis()),
		usecases.ChainConfig{Bounds: r.Bounds, PrimaryTimeout: r.Primary.Timeout(), SecondaryTimeout: r.Secondary.Timeout()},
	)
	svc := usecases.NewRouteService(postgres.NewRouteRepo(db), chain, usecases.NewRoutePathCache(shared), events,
		usecases.EstimateConfig{AvgSpeedKmh: r.AvgSpeedKmh, RatePerKm: r.RatePerKm})

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{
		// Refreshes run one at a time against the primary provider.
		MaxConcurrentActivityExecutionSize: 1,
	})
	w.RegisterWorkflow(workflows.RouteRefreshWorkflow)
	w.RegisterActivity(&workflows.RefreshActivities{Routes: svc})

	slog.Info("refresher worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func parseIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
