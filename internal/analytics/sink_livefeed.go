// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package analytics

import (
	"context"
	"time"

	"github.com/tomtom215/geogate/internal/logging"
)

// MessageTypeAnalyticsEvent is the live-feed message type for events.
const MessageTypeAnalyticsEvent = "analytics_event"

// Broadcaster pushes a typed message to every connected live-feed client.
// *websocket.Hub satisfies it.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// LiveFeedSink forwards events to the websocket live feed.
type LiveFeedSink struct {
	hub Broadcaster
}

// NewLiveFeedSink creates a live-feed sink.
func NewLiveFeedSink(hub Broadcaster) *LiveFeedSink {
	return &LiveFeedSink{hub: hub}
}

// Name returns "livefeed".
func (l *LiveFeedSink) Name() string { return "livefeed" }

// Record broadcasts the event.
func (l *LiveFeedSink) Record(ctx context.Context, name string, props map[string]interface{}) error {
	l.hub.BroadcastJSON(MessageTypeAnalyticsEvent, PublishedEvent{
		Name:       name,
		Timestamp:  time.Now().UTC(),
		SessionID:  logging.SessionIDFromContext(ctx),
		Properties: props,
	})
	return nil
}
