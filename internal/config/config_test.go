// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package config

import (
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/geogate/internal/servicearea"
)

func validConfig() *Config {
	return defaultConfig()
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	if cfg.Server.Port != 3857 {
		t.Errorf("Server.Port = %d, want 3857", cfg.Server.Port)
	}
	if cfg.ServiceArea.UndeterminedPolicy != "allow" {
		t.Errorf("UndeterminedPolicy = %q, want allow", cfg.ServiceArea.UndeterminedPolicy)
	}
	if cfg.Analytics.Store != "memory" {
		t.Errorf("Analytics.Store = %q, want memory", cfg.Analytics.Store)
	}
	if cfg.Analytics.Capacity != 100 {
		t.Errorf("Analytics.Capacity = %d, want 100", cfg.Analytics.Capacity)
	}
	if cfg.NATS.Enabled {
		t.Error("NATS should be disabled by default")
	}
	if cfg.AdminEnabled() {
		t.Error("admin endpoints should be disabled without a secret")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"short jwt secret", func(c *Config) { c.Security.AdminJWTSecret = "short" }, "ADMIN_JWT_SECRET"},
		{"placeholder secret in production", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.CORSOrigins = []string{"https://example.org"}
			c.Security.AdminJWTSecret = "CHANGEME-CHANGEME-CHANGEME-CHANGEME"
		}, "placeholder"},
		{"wildcard cors in production with admin", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.AdminJWTSecret = strings.Repeat("k", 40)
		}, "CORS_ORIGINS"},
		{"rate limit window too long", func(c *Config) { c.Security.RateLimitWindow = 2 * time.Hour }, "RATE_LIMIT_WINDOW"},
		{"unknown geo provider", func(c *Config) { c.GeoIP.Providers = []string{"maxmind"} }, "GEOIP_PROVIDERS"},
		{"no geo providers", func(c *Config) { c.GeoIP.Providers = nil }, "GEOIP_PROVIDERS"},
		{"inverted bounds", func(c *Config) { c.ServiceArea.Bounds.South = 40 }, "bounds"},
		{"blank city", func(c *Config) { c.ServiceArea.Cities = []string{"Irvine", " "} }, "city 1 is blank"},
		{"bad policy", func(c *Config) { c.ServiceArea.UndeterminedPolicy = "maybe" }, "UNDETERMINED_POLICY"},
		{"bypass in production", func(c *Config) {
			c.Server.Environment = "production"
			c.ServiceArea.AllowBypassParam = true
		}, "BYPASS"},
		{"unknown store", func(c *Config) { c.Analytics.Store = "redis" }, "ANALYTICS_STORE"},
		{"badger without dir", func(c *Config) {
			c.Analytics.Store = "badger"
			c.Analytics.BadgerDir = ""
		}, "ANALYTICS_BADGER_DIR"},
		{"zero capacity", func(c *Config) { c.Analytics.Capacity = 0 }, "ANALYTICS_CAPACITY"},
		{"pixel without url", func(c *Config) {
			c.Sinks.Pixel.Enabled = true
			c.Sinks.Pixel.PixelID = "123"
		}, "PIXEL_URL"},
		{"pixel without id", func(c *Config) {
			c.Sinks.Pixel.Enabled = true
			c.Sinks.Pixel.URL = "https://pixel.example.com/events"
		}, "PIXEL_ID"},
		{"remote nats with bad url", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.EmbeddedServer = false
			c.NATS.URL = "http://nats:4222"
		}, "NATS_URL"},
		{"clickhouse without addr", func(c *Config) { c.ClickHouse.Enabled = true }, "CLICKHOUSE_ADDR"},
		{"clickhouse addr without port", func(c *Config) {
			c.ClickHouse.Enabled = true
			c.ClickHouse.Addr = []string{"clickhouse"}
		}, "host:port"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_AcceptsEnabledIntegrations(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Environment = "production"
	cfg.Security.CORSOrigins = []string{"https://eyecarecenteroc.com"}
	cfg.Security.AdminJWTSecret = strings.Repeat("s", 48)
	cfg.Sinks.Pixel = PixelConfig{Enabled: true, URL: "https://pixel.example.com/v1/events", PixelID: "42"}
	cfg.Sinks.CallTracking = CallTrackingConfig{Enabled: true, URL: "https://calls.example.com/track"}
	cfg.NATS.Enabled = true
	cfg.NATS.JetStream = true
	cfg.ClickHouse.Enabled = true
	cfg.ClickHouse.Addr = []string{"clickhouse:9000"}
	cfg.Analytics.Store = "badger"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"HTTP_PORT":                        "server.port",
		"LOG_LEVEL":                        "logging.level",
		"SERVICE_AREA_UNDETERMINED_POLICY": "service_area.undetermined_policy",
		"SERVICE_AREA_NORTH":               "service_area.bounds.north",
		"ANALYTICS_STORE":                  "analytics.store",
		"NATS_EMBEDDED":                    "nats.embedded_server",
		"CLICKHOUSE_ADDR":                  "clickhouse.addr",
		"PATH":                             "",
		"HOME":                             "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConversions(t *testing.T) {
	cfg := validConfig()
	cfg.ServiceArea.UndeterminedPolicy = "deny"
	cfg.ServiceArea.Cities = []string{"Irvine"}
	cfg.Analytics.IdleTimeout = 5 * time.Minute
	cfg.Analytics.Store = "badger"

	if cfg.Policy() != servicearea.PolicyDeny {
		t.Errorf("Policy() = %q, want deny", cfg.Policy())
	}

	region := cfg.Region()
	if len(region.Cities) != 1 || region.Cities[0] != "Irvine" {
		t.Errorf("Region().Cities = %v", region.Cities)
	}
	region.Cities[0] = "changed"
	if cfg.ServiceArea.Cities[0] != "Irvine" {
		t.Error("Region() should copy the city list")
	}
	if !region.Bounds.Contains(33.7455, -117.8677) {
		t.Error("default bounds should contain Santa Ana")
	}

	m := cfg.ManagerConfig()
	if m.IdleTimeout != 5*time.Minute {
		t.Errorf("IdleTimeout = %v", m.IdleTimeout)
	}
	if m.Recorder.StoreName != "badger" {
		t.Errorf("StoreName = %q", m.Recorder.StoreName)
	}

	if got := len(cfg.GeoProviders(nil)); got != 2 {
		t.Errorf("GeoProviders() returned %d providers, want 2", got)
	}
}

func TestGuardConfig(t *testing.T) {
	cfg := validConfig()
	if !cfg.GuardConfig().Development {
		t.Error("guard should be disabled in development")
	}

	cfg.Server.Environment = "production"
	if cfg.GuardConfig().Development {
		t.Error("guard should be enabled in production")
	}

	cfg.ServiceArea.GuardEnabled = false
	if !cfg.GuardConfig().Development {
		t.Error("guard should be disabled when SERVICE_AREA_GUARD_ENABLED=false")
	}
}

func TestNATSURL(t *testing.T) {
	cfg := validConfig()
	cfg.NATS.Port = 4333
	if got := cfg.NATSURL(); got != "nats://127.0.0.1:4333" {
		t.Errorf("embedded NATSURL() = %q", got)
	}

	cfg.NATS.EmbeddedServer = false
	cfg.NATS.URL = "nats://broker:4222"
	if got := cfg.NATSURL(); got != "nats://broker:4222" {
		t.Errorf("remote NATSURL() = %q", got)
	}
}
