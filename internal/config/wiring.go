// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package config

import (
	"net/http"

	"github.com/tomtom215/geogate/internal/analytics"
	"github.com/tomtom215/geogate/internal/breaker"
	"github.com/tomtom215/geogate/internal/geo"
	"github.com/tomtom215/geogate/internal/logging"
	"github.com/tomtom215/geogate/internal/servicearea"
)

// Geolocation provider names accepted in GEOIP_PROVIDERS.
const (
	ProviderIPAPICo = "ipapi.co"
	ProviderIPAPI   = "ip-api.com"
)

// LogConfig converts the logging section.
func (c *Config) LogConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	if c.Logging.Format != "" {
		cfg.Format = c.Logging.Format
	}
	cfg.Caller = c.Logging.Caller
	return cfg
}

// ResolverConfig converts the geoip section.
func (c *Config) ResolverConfig() geo.Config {
	return geo.Config{
		Timeout:     c.GeoIP.Timeout,
		CacheTTL:    c.GeoIP.CacheTTL,
		FallbackTTL: c.GeoIP.FallbackTTL,
	}
}

// GeoProviders builds the configured providers in order, each behind its own
// circuit breaker. A nil client gets the providers' default client.
func (c *Config) GeoProviders(client *http.Client) []geo.Provider {
	if client == nil {
		client = &http.Client{Timeout: c.GeoIP.HTTPTimeout}
	}
	providers := make([]geo.Provider, 0, len(c.GeoIP.Providers))
	for _, name := range c.GeoIP.Providers {
		var p geo.Provider
		switch name {
		case ProviderIPAPICo:
			p = geo.NewIPAPICoProvider(client, c.GeoIP.RequestsPerMinute)
		case ProviderIPAPI:
			p = geo.NewIPAPIProvider(client, c.GeoIP.RequestsPerMinute)
		default:
			continue
		}
		cb := breaker.DefaultConfig("geo-" + name)
		if c.GeoIP.BreakerThreshold > 0 {
			cb.FailureThreshold = c.GeoIP.BreakerThreshold
		}
		if c.GeoIP.BreakerTimeout > 0 {
			cb.Timeout = c.GeoIP.BreakerTimeout
		}
		providers = append(providers, geo.WithCircuitBreaker(p, cb))
	}
	return providers
}

// Region converts the service_area section.
func (c *Config) Region() servicearea.Region {
	cities := make([]string, len(c.ServiceArea.Cities))
	copy(cities, c.ServiceArea.Cities)
	b := c.ServiceArea.Bounds
	return servicearea.Region{
		Country: c.ServiceArea.Country,
		State:   c.ServiceArea.State,
		Bounds: servicearea.Bounds{
			North: b.North,
			South: b.South,
			East:  b.East,
			West:  b.West,
		},
		Cities: cities,
	}
}

// Policy returns the undetermined-location policy. Invalid values were
// rejected by Validate; they fall back to allow here.
func (c *Config) Policy() servicearea.UndeterminedPolicy {
	p, err := servicearea.ParsePolicy(c.ServiceArea.UndeterminedPolicy)
	if err != nil {
		return servicearea.PolicyAllow
	}
	return p
}

// GuardConfig converts the guard settings. The guard is off in development
// or when SERVICE_AREA_GUARD_ENABLED=false.
func (c *Config) GuardConfig() servicearea.GuardConfig {
	g := servicearea.DefaultGuardConfig()
	if c.ServiceArea.OutOfAreaPath != "" {
		g.OutOfAreaPath = c.ServiceArea.OutOfAreaPath
	}
	if c.ServiceArea.ExemptPrefixes != nil {
		g.ExemptPrefixes = c.ServiceArea.ExemptPrefixes
	}
	if c.ServiceArea.PreviewHostSuffixes != nil {
		g.PreviewHostSuffixes = c.ServiceArea.PreviewHostSuffixes
	}
	g.AllowBypassParam = c.ServiceArea.AllowBypassParam
	g.Development = c.IsDevelopment() || !c.ServiceArea.GuardEnabled
	return g
}

// ManagerConfig converts the analytics section.
func (c *Config) ManagerConfig() analytics.ManagerConfig {
	m := analytics.DefaultManagerConfig()
	m.IdleTimeout = c.Analytics.IdleTimeout
	m.SweepInterval = c.Analytics.SweepInterval
	if c.Analytics.TargetCountry != "" {
		m.Recorder.TargetCountry = c.Analytics.TargetCountry
	}
	if c.Analytics.FlushEvents != nil {
		m.Recorder.FlushEvents = c.Analytics.FlushEvents
	}
	m.Recorder.StoreName = c.Analytics.Store
	return m
}

// NATSSinkConfig converts the nats section for analytics.NewNATSSink.
func (c *Config) NATSSinkConfig() analytics.NATSConfig {
	return analytics.NATSConfig{
		URL:           c.NATSURL(),
		SubjectPrefix: c.NATS.SubjectPrefix,
		JetStream:     c.NATS.JetStream,
	}
}

// ClickHouseSinkConfig converts the clickhouse section.
func (c *Config) ClickHouseSinkConfig() analytics.ClickHouseConfig {
	return analytics.ClickHouseConfig{
		Addr:          c.ClickHouse.Addr,
		Database:      c.ClickHouse.Database,
		Username:      c.ClickHouse.Username,
		Password:      c.ClickHouse.Password,
		Table:         c.ClickHouse.Table,
		BatchSize:     c.ClickHouse.BatchSize,
		FlushInterval: c.ClickHouse.FlushInterval,
	}
}
