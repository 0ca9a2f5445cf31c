package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/fleetroute/internal/core/domain"
	"github.com/samirrijal/fleetroute/internal/core/ports"
)

var _ ports.EventPublisher = (*Publisher)(nil)

// Subjects and streams for route events.
const (
	StreamRouteEvents     = "ROUTE_EVENTS"
	SubjectRouteEvents    = "dispatch.route.>"
	SubjectRouteRefreshed = "dispatch.route.refreshed"
)

// RouteRefreshedSubject is the subject a refresh of routeID is published on.
func RouteRefreshedSubject(routeID int64) string {
	return SubjectRouteRefreshed + "." + strconv.FormatInt(routeID, 10)
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure stream exists. Refresh events are informational, so old ones age out.
	cfg := &nats.StreamConfig{
		Name:      StreamRouteEvents,
		Subjects:  []string{SubjectRouteEvents},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishRouteRefreshed publishes one refreshed path.
func (p *Publisher) PublishRouteRefreshed(ctx context.Context, ev *domain.RefreshEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(RouteRefreshedSubject(ev.RouteID), data, nats.Context(ctx))
	return err
}

// Conn exposes the underlying connection for readiness checks.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
