// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

/*
Package services adapts long-running components to suture.Service.

HTTPServerService turns ListenAndServe/Shutdown into a context-driven Serve
with a bounded drain. NATSServerService runs the embedded NATS broker and
exposes its client URL once ready.

Components that already have a Serve(ctx) error method (the live-feed hub,
the session sweeper, the ClickHouse flusher, the relay) are added to the
tree directly.
*/
package services
