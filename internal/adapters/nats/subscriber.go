package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/parcelview/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStream(js); err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// decodeEvent parses a properties.updated payload.
func decodeEvent(data []byte) (*domain.PropertyEvent, error) {
	var event domain.PropertyEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("%w: property event: %v", domain.ErrDecode, err)
	}
	return &event, nil
}

// SubscribePropertiesUpdated delivers every new update event to handler.
// The consumer is ephemeral so each API instance sees every event.
func (s *Subscriber) SubscribePropertiesUpdated(ctx context.Context, handler func(ctx context.Context, event *domain.PropertyEvent) error) error {
	sub, err := s.js.Subscribe(SubjectPropertiesUpdated, func(msg *nats.Msg) {
		event, err := decodeEvent(msg.Data)
		if err != nil {
			// redelivery cannot fix a malformed payload
			_ = msg.Term()
			return
		}
		if err := handler(ctx, event); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
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
