// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

/*
Package supervisor runs geogate's background work as a suture v4 tree.

Services are grouped into three child supervisors so that failures stay
local: the data layer (session sweeper, ClickHouse flusher), the messaging
layer (embedded NATS server, live-feed hub and relay) and the API layer
(HTTP server). Each service implements suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

A service that returns is restarted with backoff; cancelling the root
context stops every service, each bounded by ShutdownTimeout. Supervisor
events are logged through sutureslog on the slog adapter of the zerolog
logger.

Usage:

	tree, _ := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(hub)
	tree.AddDataService(manager)
	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))
	err := tree.Serve(ctx)
*/
package supervisor
