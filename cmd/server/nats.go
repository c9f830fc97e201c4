// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package main

import (
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/geogate/internal/analytics"
	"github.com/tomtom215/geogate/internal/config"
	"github.com/tomtom215/geogate/internal/logging"
	"github.com/tomtom215/geogate/internal/supervisor"
	"github.com/tomtom215/geogate/internal/supervisor/services"
	ws "github.com/tomtom215/geogate/internal/websocket"
)

// natsComponents holds the NATS clients. A nil value means NATS is disabled.
type natsComponents struct {
	sink       *analytics.NATSSink
	subscriber message.Subscriber
	// relaying is set when the live feed is fed from NATS.
	relaying bool
}

// initNATS starts the embedded broker (if configured), the event publisher and
// the live-feed relay. Returns nil when NATS_ENABLED=false.
func initNATS(cfg *config.Config, tree *supervisor.SupervisorTree, hub *ws.Hub) (*natsComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS disabled (NATS_ENABLED=false)")
		return nil, nil
	}

	if cfg.NATS.EmbeddedServer {
		tree.AddMessagingService(services.NewNATSServerService(services.NATSServerConfig{
			Host:      cfg.NATS.Host,
			Port:      cfg.NATS.Port,
			JetStream: cfg.NATS.JetStream,
			StoreDir:  cfg.NATS.StoreDir,
		}))
		logging.Info().Str("url", cfg.NATSURL()).Msg("Embedded NATS server added to supervisor tree")
	}

	// Clients retry until the embedded server is listening.
	sink, err := analytics.NewNATSSink(cfg.NATSSinkConfig())
	if err != nil {
		return nil, err
	}
	c := &natsComponents{sink: sink}

	if hub != nil && cfg.NATS.Relay {
		sub, err := ws.NewNATSSubscriber(cfg.NATSURL())
		if err != nil {
			_ = sink.Close()
			return nil, err
		}
		prefix := cfg.NATS.SubjectPrefix
		if prefix == "" {
			prefix = "analytics"
		}
		topic := prefix + ".>"
		tree.AddMessagingService(ws.NewRelay(hub, sub, topic, analytics.MessageTypeAnalyticsEvent))
		c.subscriber = sub
		c.relaying = true
		logging.Info().Str("topic", topic).Msg("Live feed relay added to supervisor tree")
	}

	logging.Info().Str("url", cfg.NATSURL()).Bool("jetstream", cfg.NATS.JetStream).Msg("NATS event publishing enabled")
	return c, nil
}

// Close closes the NATS clients.
func (c *natsComponents) Close() {
	if c == nil {
		return
	}
	if err := c.sink.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing NATS publisher")
	}
	if c.subscriber != nil {
		if err := c.subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing NATS subscriber")
		}
	}
}
