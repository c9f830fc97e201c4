// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

// Package main is the entry point for the geogate server.
//
// Geogate decides whether a visitor is inside a practice's service area and
// records per-visit session analytics for visitors who are.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, config file, environment (Koanf v2)
//  2. Logging: zerolog, bridged to slog for the supervisor
//  3. Location resolver: ordered IP geolocation providers behind circuit breakers
//  4. Session store: memory or BadgerDB
//  5. Event sinks: data layer, pixel, call tracking, live feed, NATS, ClickHouse
//  6. Session manager and service-area gate
//  7. HTTP server: chi router
//
// Long-running work (HTTP server, websocket hub, session sweeper, embedded
// NATS, live-feed relay, ClickHouse flusher) runs under a suture supervisor
// tree and stops on SIGINT or SIGTERM.
//
// # Example Usage
//
//	export SERVICE_AREA_GUARD_ENABLED=true
//	export ADMIN_JWT_SECRET=$(openssl rand -base64 48)
//	export ANALYTICS_STORE=badger
//	./geogate
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/geogate/internal/analytics"
	"github.com/tomtom215/geogate/internal/api"
	"github.com/tomtom215/geogate/internal/auth"
	"github.com/tomtom215/geogate/internal/config"
	"github.com/tomtom215/geogate/internal/geo"
	"github.com/tomtom215/geogate/internal/logging"
	"github.com/tomtom215/geogate/internal/seo"
	"github.com/tomtom215/geogate/internal/servicearea"
	"github.com/tomtom215/geogate/internal/supervisor"
	"github.com/tomtom215/geogate/internal/supervisor/services"
	ws "github.com/tomtom215/geogate/internal/websocket"
)

//nolint:gocyclo // sequential setup
func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.LogConfig())
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Strs("geoip_providers", cfg.GeoIP.Providers).
		Str("analytics_store", cfg.Analytics.Store).
		Bool("nats", cfg.NATS.Enabled).
		Bool("clickhouse", cfg.ClickHouse.Enabled).
		Msg("Starting geogate")

	if path := config.ConfigFile(); path != "" {
		watchLogLevel(path)
	}

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*). Set explicit origins in production.")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (RATE_LIMIT_DISABLED=true)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	resolver := geo.NewResolver(cfg.ResolverConfig(), cfg.GeoProviders(nil)...)
	defer resolver.Close()

	store, err := openStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open session store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()

	var hub *ws.Hub
	if cfg.Sinks.LiveFeed.Enabled {
		hub = ws.NewHub()
		tree.AddMessagingService(hub)
	}

	messaging, err := initNATS(cfg, tree, hub)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS")
	}
	defer messaging.Close()

	sinks, closeSinks, err := buildSinks(ctx, cfg, hub, messaging, tree)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event sinks")
	}
	defer closeSinks()

	manager := analytics.NewManager(store, sinks, resolver, cfg.ManagerConfig())
	tree.AddDataService(manager)

	gate := servicearea.NewGate(resolver, cfg.Region(), cfg.Policy(), manager)

	var jwtManager *auth.JWTManager
	if cfg.AdminEnabled() {
		jwtManager, err = auth.NewJWTManager(cfg.Security.AdminJWTSecret, 24*time.Hour)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		logging.Info().Msg("Admin endpoints enabled")
	} else {
		logging.Info().Msg("Admin endpoints disabled (ADMIN_JWT_SECRET not set)")
	}

	handler := api.NewHandler(api.Deps{
		Resolver: resolver,
		Gate:     gate,
		Sessions: manager,
		SEO:      seo.NewGenerator(cfg.SEO.Organization),
		Hub:      hub,
		JWT:      jwtManager,
	}, api.HandlerConfig{
		Production:      cfg.IsProduction(),
		LiveFeedOrigins: cfg.Sinks.LiveFeed.AllowedOrigins,
		SecureCookies:   cfg.IsProduction(),
	})

	mwConfig := api.DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Security.RateLimitReqs
	mwConfig.RateLimitWindow = cfg.Security.RateLimitWindow
	mwConfig.RateLimitDisabled = cfg.Security.RateLimitDisabled

	server := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.SetupChi(handler, api.RouterConfig{
			Middleware: mwConfig,
			Guard:      cfg.GuardConfig(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("Geogate stopped gracefully")
}

func openStore(cfg *config.Config) (analytics.Store, error) {
	switch cfg.Analytics.Store {
	case "badger":
		s, err := analytics.OpenBadgerStore(cfg.Analytics.BadgerDir, cfg.Analytics.Capacity)
		if err != nil {
			return nil, err
		}
		logging.Info().Str("dir", cfg.Analytics.BadgerDir).Msg("Session store: badger")
		return s, nil
	default:
		if !cfg.IsDevelopment() {
			logging.Warn().Msg("Session store is 'memory'; stored sessions are lost on restart. Consider ANALYTICS_STORE=badger.")
		}
		return analytics.NewMemoryStore(cfg.Analytics.Capacity), nil
	}
}

// watchLogLevel applies logging.level changes in the config file without a
// restart. Other settings need a restart.
func watchLogLevel(path string) {
	err := config.WatchConfigFile(path, func() {
		reloaded, err := config.LoadWithKoanf()
		if err != nil {
			logging.Warn().Err(err).Msg("Ignoring invalid config file change")
			return
		}
		logging.SetLevelString(reloaded.Logging.Level)
		logging.Info().Str("level", reloaded.Logging.Level).Msg("Log level reloaded")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
	}
}
