package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/fleetroute/internal/core/domain"
	"github.com/samirrijal/fleetroute/internal/core/ports"
)

var _ ports.EventSubscriber = (*Subscriber)(nil)

// Subscriber implements ports.EventSubscriber with core (non-durable) subscriptions.
// Every replica receives every event.
type Subscriber struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Subscriber{conn: conn}, nil
}

func (s *Subscriber) SubscribeRouteRefreshed(ctx context.Context, handler func(ctx context.Context, ev *domain.RefreshEvent) error) error {
	sub, err := s.conn.Subscribe(SubjectRouteRefreshed+".>", func(msg *nats.Msg) {
		var ev domain.RefreshEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			slog.Warn("discarding route refreshed event", "subject", msg.Subject, "error", err)
			return
		}
		if err := handler(ctx, &ev); err != nil {
			slog.Warn("route refreshed handler", "subject", msg.Subject, "route_id", ev.RouteID, "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
