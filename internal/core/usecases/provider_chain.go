package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/fleetroute/internal/core/domain"
	"github.com/samirrijal/fleetroute/internal/core/ports"
	"github.com/samirrijal/fleetroute/internal/pkg/geospatial"
	"github.com/samirrijal/fleetroute/internal/pkg/metrics"
	"github.com/samirrijal/fleetroute/internal/pkg/telemetry"
)

var errTierDisabled = errors.New("tier not configured")

// ChainConfig holds the chain's boundary and per-tier timeouts.
type ChainConfig struct {
	Bounds           domain.GeoBounds
	PrimaryTimeout   time.Duration
	SecondaryTimeout time.Duration
}

// tier is one resolution strategy. attempt either returns a boundary-compliant path or an error.
type tier interface {
	source() domain.PathSource
	span() string
	attempt(ctx context.Context, origin, destination domain.Coordinate) (domain.ResolvedPath, error)
}

// ProviderChain resolves a path by trying primary, secondary and fallback tiers in order.
// Provider failures never reach the caller; the fallback straight line always succeeds.
type ProviderChain struct {
	bounds domain.GeoBounds
	tiers  []tier
}

// NewProviderChain wires the tiers. A nil provider disables its tier.
func NewProviderChain(primary ports.PathProvider, secondary ports.DirectionsProvider, synth *WaypointSynthesizer, cfg ChainConfig) *ProviderChain {
	return &ProviderChain{bounds: cfg.Bounds, tiers: []tier{
		&primaryTier{provider: primary, synth: synth, bounds: cfg.Bounds, timeout: cfg.PrimaryTimeout},
		&secondaryTier{provider: secondary, bounds: cfg.Bounds, timeout: cfg.SecondaryTimeout},
		fallbackTier{},
	}}
}

// Resolve runs the tiers in order and returns the first success. The only error is the
// caller's own cancellation, in which case no path is produced. Endpoints outside the bounds
// go straight to the fallback tier: no provider path could pass the vertex check.
func (c *ProviderChain) Resolve(ctx context.Context, origin, destination domain.Coordinate) (domain.ResolvedPath, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanResolve)
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled")
		return domain.ResolvedPath{}, err
	}
	if !EndpointsInside(origin, destination, c.bounds) {
		slog.Warn("route endpoints outside bounds, skipping providers",
			"origin", origin.String(),
			"destination", destination.String(),
		)
		metrics.TierAttempts.WithLabelValues(domain.SourcePrimary.String(), "out_of_bounds").Inc()
		metrics.Resolutions.WithLabelValues(domain.SourceFallback.String()).Inc()
		span.SetAttributes(
			attribute.String("route.source", domain.SourceFallback.String()),
			attribute.Bool("route.endpoints_inside", false),
		)
		return straightLine(origin, destination), nil
	}

	for _, t := range c.tiers {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "cancelled")
			return domain.ResolvedPath{}, err
		}

		tctx, tspan := telemetry.Tracer().Start(ctx, t.span())
		start := time.Now()
		path, err := t.attempt(tctx, origin, destination)
		metrics.TierDuration.WithLabelValues(t.source().String()).Observe(time.Since(start).Seconds())

		if err == nil {
			metrics.TierAttempts.WithLabelValues(t.source().String(), "ok").Inc()
			metrics.Resolutions.WithLabelValues(path.Source.String()).Inc()
			tspan.SetAttributes(attribute.Int("route.vertices", len(path.Vertices)))
			tspan.End()
			span.SetAttributes(attribute.String("route.source", path.Source.String()))
			return path, nil
		}

		if ctx.Err() != nil {
			tspan.SetStatus(codes.Error, "cancelled")
			tspan.End()
			span.SetStatus(codes.Error, "cancelled")
			return domain.ResolvedPath{}, ctx.Err()
		}

		reason := failureReason(err)
		metrics.TierAttempts.WithLabelValues(t.source().String(), reason).Inc()
		if reason != "skipped" {
			tspan.RecordError(err)
			tspan.SetStatus(codes.Error, reason)
			slog.Warn("route tier failed, falling through",
				"tier", t.source().String(),
				"reason", reason,
				"origin", origin.String(),
				"destination", destination.String(),
				"error", err,
			)
		}
		tspan.End()
	}

	// fallbackTier never fails, so this is only reached with an empty tier list.
	return straightLine(origin, destination), nil
}

// EndpointsInside reports whether both endpoints of a pair lie inside bounds.
func EndpointsInside(origin, destination domain.Coordinate, bounds domain.GeoBounds) bool {
	return geospatial.IsInside(origin, bounds) && geospatial.IsInside(destination, bounds)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, errTierDisabled):
		return "skipped"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrBoundaryViolation):
		return "out_of_bounds"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed"
	default:
		return "unavailable"
	}
}

// --- tiers ---

type primaryTier struct {
	provider ports.PathProvider
	synth    *WaypointSynthesizer
	bounds   domain.GeoBounds
	timeout  time.Duration
}

func (primaryTier) source() domain.PathSource { return domain.SourcePrimary }
func (primaryTier) span() string              { return telemetry.SpanTierPrimary }

func (t *primaryTier) attempt(ctx context.Context, origin, destination domain.Coordinate) (domain.ResolvedPath, error) {
	if t.provider == nil {
		return domain.ResolvedPath{}, errTierDisabled
	}

	coords := []domain.Coordinate{origin, destination}
	if t.synth != nil {
		coords = t.synth.Synthesize(origin, destination)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	vertices, err := t.provider.Route(ctx, coords)
	if err != nil {
		return domain.ResolvedPath{}, fmt.Errorf("primary provider: %w", err)
	}
	return compliantPath(vertices, origin, destination, t.bounds, domain.SourcePrimary)
}

type secondaryTier struct {
	provider ports.DirectionsProvider
	bounds   domain.GeoBounds
	timeout  time.Duration
}

func (secondaryTier) source() domain.PathSource { return domain.SourceSecondary }
func (secondaryTier) span() string              { return telemetry.SpanTierSecondary }

func (t *secondaryTier) attempt(ctx context.Context, origin, destination domain.Coordinate) (domain.ResolvedPath, error) {
	if t.provider == nil {
		return domain.ResolvedPath{}, errTierDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	dir, err := t.provider.Directions(ctx, origin, destination)
	if err != nil {
		return domain.ResolvedPath{}, fmt.Errorf("secondary provider: %w", err)
	}
	if dir == nil {
		return domain.ResolvedPath{}, fmt.Errorf("%w: empty directions", domain.ErrMalformedResponse)
	}
	return compliantPath(dir.Geometry, origin, destination, t.bounds, domain.SourceSecondary)
}

type fallbackTier struct{}

func (fallbackTier) source() domain.PathSource { return domain.SourceFallback }
func (fallbackTier) span() string              { return telemetry.SpanTierFallback }

func (fallbackTier) attempt(_ context.Context, origin, destination domain.Coordinate) (domain.ResolvedPath, error) {
	return straightLine(origin, destination), nil
}

func straightLine(origin, destination domain.Coordinate) domain.ResolvedPath {
	return domain.ResolvedPath{
		Vertices: []domain.Coordinate{origin, destination},
		Source:   domain.SourceFallback,
	}
}

// compliantPath pins the provider geometry to the requested endpoints (providers snap them
// to the nearest road) and rejects it if any vertex leaves the bounds.
func compliantPath(vertices []domain.Coordinate, origin, destination domain.Coordinate, bounds domain.GeoBounds, src domain.PathSource) (domain.ResolvedPath, error) {
	if len(vertices) == 0 {
		return domain.ResolvedPath{}, fmt.Errorf("%w: no geometry", domain.ErrMalformedResponse)
	}

	out := make([]domain.Coordinate, 0, len(vertices)+2)
	if vertices[0] != origin {
		out = append(out, origin)
	}
	out = append(out, vertices...)
	if out[len(out)-1] != destination || len(out) < 2 {
		out = append(out, destination)
	}

	if !geospatial.AllInside(out, bounds) {
		return domain.ResolvedPath{}, fmt.Errorf("%w: %d vertices checked", domain.ErrBoundaryViolation, len(out))
	}
	return domain.ResolvedPath{Vertices: out, Source: src}, nil
}
