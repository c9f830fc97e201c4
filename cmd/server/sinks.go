// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package main

import (
	"context"

	"github.com/tomtom215/geogate/internal/analytics"
	"github.com/tomtom215/geogate/internal/config"
	"github.com/tomtom215/geogate/internal/logging"
	"github.com/tomtom215/geogate/internal/supervisor"
	ws "github.com/tomtom215/geogate/internal/websocket"
)

// buildSinks creates every enabled event sink. The returned func waits for
// in-flight deliveries and closes the sinks; call it after the supervisor
// tree has stopped.
func buildSinks(ctx context.Context, cfg *config.Config, hub *ws.Hub, nats *natsComponents, tree *supervisor.SupervisorTree) (*analytics.Fanout, func(), error) {
	var sinks []analytics.Sink
	var clickhouse *analytics.ClickHouseSink

	if cfg.Sinks.DataLayer.Enabled {
		sinks = append(sinks, analytics.NewDataLayerSink(cfg.Sinks.DataLayer.Limit))
	}
	if cfg.Sinks.Pixel.Enabled {
		sinks = append(sinks, analytics.NewPixelSink(nil, cfg.Sinks.Pixel.URL, cfg.Sinks.Pixel.PixelID, cfg.Sinks.Pixel.Token))
	}
	if cfg.Sinks.CallTracking.Enabled {
		sinks = append(sinks, analytics.NewCallTrackingSink(nil, cfg.Sinks.CallTracking.URL, cfg.Sinks.CallTracking.Token))
	}
	if nats != nil {
		sinks = append(sinks, nats.sink)
	}
	if hub != nil && (nats == nil || !nats.relaying) {
		sinks = append(sinks, analytics.NewLiveFeedSink(hub))
	}
	if cfg.ClickHouse.Enabled {
		var err error
		clickhouse, err = analytics.NewClickHouseSink(ctx, cfg.ClickHouseSinkConfig())
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, clickhouse)
		tree.AddDataService(clickhouse)
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	logging.Info().Strs("sinks", names).Msg("Event sinks configured")

	fanout := analytics.NewAsyncFanout(cfg.Analytics.SinkTimeout, sinks...)
	closeFn := func() {
		fanout.Wait()
		if clickhouse != nil {
			if err := clickhouse.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing ClickHouse connection")
			}
		}
	}
	return fanout, closeFn, nil
}
