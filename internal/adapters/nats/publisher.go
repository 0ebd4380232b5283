package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/wayfound/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
// Discovery lifecycle events let the presentation layer update live
// views without polling.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	streams := []nats.StreamConfig{
		{
			Name:      "POI_DISCOVERIES",
			Subjects:  []string{"poi.discovered.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "POI_REVIEWS",
			Subjects:  []string{"poi.review.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist; try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishDiscovered announces a newly created discovery on
// poi.discovered.<route_id>.
func (p *Publisher) PublishDiscovered(ctx context.Context, d *domain.Discovery) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("poi.discovered."+d.RouteID, data)
	return err
}

// PublishReviewed announces a review transition on
// poi.review.<route_id>.
func (p *Publisher) PublishReviewed(ctx context.Context, d *domain.Discovery) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("poi.review."+d.RouteID, data)
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. the
// WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
