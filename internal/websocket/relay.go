// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package websocket

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/geogate/internal/logging"
)

// Relay rebroadcasts messages from a watermill topic to the hub. With NATS
// the topic may be a wildcard subject such as "analytics.>".
type Relay struct {
	hub         *Hub
	subscriber  message.Subscriber
	topic       string
	messageType string
}

// NewRelay creates a relay of topic onto hub as messageType frames.
func NewRelay(hub *Hub, subscriber message.Subscriber, topic, messageType string) *Relay {
	return &Relay{hub: hub, subscriber: subscriber, topic: topic, messageType: messageType}
}

// NewNATSSubscriber creates a core NATS subscriber for relays. Every
// instance receives every message; there is no queue group.
func NewNATSSubscriber(url string) (message.Subscriber, error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     5 * time.Second,
		NatsOptions: []natsgo.Option{
			natsgo.RetryOnFailedConnect(true),
			natsgo.MaxReconnects(-1),
			natsgo.ReconnectWait(2 * time.Second),
		},
		Unmarshaler: &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}
	return sub, nil
}

// Serve relays until ctx is done. It implements suture.Service.
func (r *Relay) Serve(ctx context.Context) error {
	messages, err := r.subscriber.Subscribe(ctx, r.topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.topic, err)
	}
	logging.Info().Str("topic", r.topic).Msg("Live feed relay started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("subscription to %s closed", r.topic)
			}
			if err := r.hub.BroadcastRaw(r.messageType, msg.Payload); err != nil {
				logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable relay message")
			}
			msg.Ack()
		}
	}
}

// String names the service for the supervisor.
func (r *Relay) String() string { return "livefeed-relay" }
