// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/geogate/internal/breaker"
	"github.com/tomtom215/geogate/internal/logging"
)

// ErrSinkClosed is returned by sinks after Close.
var ErrSinkClosed = errors.New("analytics: sink closed")

// NATSConfig configures NATSSink.
type NATSConfig struct {
	URL           string
	SubjectPrefix string // default "analytics"
	JetStream     bool
	MaxReconnects int
	ReconnectWait time.Duration
	Breaker       breaker.Config
}

// PublishedEvent is the message body published for every event.
type PublishedEvent struct {
	EventID    string                 `json:"event_id"`
	Name       string                 `json:"name"`
	Timestamp  time.Time              `json:"timestamp"`
	SessionID  string                 `json:"session_id,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// NATSSink publishes events to "<prefix>.<event name>" through watermill.
type NATSSink struct {
	publisher message.Publisher
	cb        *gobreaker.CircuitBreaker[struct{}]
	prefix    string

	mu     sync.RWMutex
	closed bool
}

// NewNATSSink connects to cfg.URL. With JetStream enabled the stream for each
// subject is provisioned on first publish.
func NewNATSSink(cfg NATSConfig) (*NATSSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats url is required")
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	logger := watermill.NewSlogLogger(logging.NewSlogLogger())

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      !cfg.JetStream,
			AutoProvision: cfg.JetStream,
			TrackMsgId:    cfg.JetStream,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	return newNATSSink(pub, cfg), nil
}

// newNATSSink wraps any watermill publisher.
func newNATSSink(pub message.Publisher, cfg NATSConfig) *NATSSink {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "analytics"
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = breaker.DefaultConfig("nats-sink")
	}
	return &NATSSink{
		publisher: pub,
		cb:        breaker.New[struct{}](cfg.Breaker),
		prefix:    cfg.SubjectPrefix,
	}
}

// Name returns "nats".
func (n *NATSSink) Name() string { return "nats" }

// Subject returns the subject an event is published on.
func (n *NATSSink) Subject(name string) string {
	return n.prefix + "." + name
}

// Record publishes the event.
func (n *NATSSink) Record(ctx context.Context, name string, props map[string]interface{}) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return ErrSinkClosed
	}

	event := PublishedEvent{
		EventID:    uuid.NewString(),
		Name:       name,
		Timestamp:  time.Now().UTC(),
		SessionID:  logging.SessionIDFromContext(ctx),
		Properties: props,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.SetContext(ctx)
	msg.Metadata.Set(natsgo.MsgIdHdr, event.EventID)
	msg.Metadata.Set("event", name)
	if event.SessionID != "" {
		msg.Metadata.Set("session_id", event.SessionID)
	}

	_, err = breaker.Execute(n.cb, func() (struct{}, error) {
		return struct{}{}, n.publisher.Publish(n.Subject(name), msg)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", n.Subject(name), err)
	}
	return nil
}

// Close closes the publisher.
func (n *NATSSink) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	return n.publisher.Close()
}
