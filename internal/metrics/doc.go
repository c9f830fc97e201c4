// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

// Package metrics defines the Prometheus collectors exported on /metrics.
//
// Collectors are registered with promauto at package init and updated through
// the Record* helpers so call sites never touch label ordering directly.
//
// Families:
//   - api_*: HTTP request counts, latency, in-flight requests, rate limit hits
//   - geolocation_*: upstream lookups, cache hits and misses, latency
//   - circuit_breaker_*: state, requests and transitions per breaker
//   - access_decisions_total: gate outcomes by reason
//   - analytics_*: tracked events, sink failures, store writes, live sessions
//   - websocket_*: live feed connections and messages
package metrics
