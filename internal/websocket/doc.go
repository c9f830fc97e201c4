// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

/*
Package websocket serves the live feed: analytics events and access
decisions pushed to connected dashboards as they happen.

It uses gorilla/websocket with a hub-and-spoke layout. The Hub owns the
client set and a buffered broadcast channel; each Client runs a read pump
(ping handling, deadline refresh) and a write pump (JSON messages, keepalive
pings). A slow client whose send buffer fills up is disconnected rather than
allowed to stall the others.

The hub runs as a suture service (Serve/String). When events travel over
NATS, a Relay subscribes to the analytics subjects and rebroadcasts them, so
every instance's dashboards see every instance's events.

Messages are JSON objects:

	{"type": "analytics_event", "data": {...}}

Clients may send {"type": "ping"} and receive {"type": "pong"}.
*/
package websocket
