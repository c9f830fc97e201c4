// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

/*
Package analytics records per-visit analytics sessions.

A Recorder accumulates one Session: page views, events in invocation order,
client environment facts parsed from the User-Agent, and location facts
copied from the resolver when the session is initialized. Sessions are
persisted to a bounded Store (MemoryStore or BadgerStore) that keeps the most
recent DefaultCapacity sessions, overwriting a session in place when it is
saved again.

Every page view and event is also forwarded to the configured Sinks (tag
manager data layer, pixel, call tracking, NATS, ClickHouse, the websocket
live feed). Sinks are best effort: a failing or panicking sink is logged and
counted, and never affects the other sinks, persistence or the caller.

Nothing in this package returns persistence or sink errors to the code that
tracks an event. Analytics must not break the request that produced it.

Manager is the server-side registry of live recorders. It issues session and
user identifiers, initializes recorders in the background once the client's
location is known, and finalizes sessions that go idle.

Summarize computes the aggregate view over persisted sessions.
*/
package analytics
