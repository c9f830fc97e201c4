// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/tomtom215/geogate/internal/servicearea"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateSecurity,
		c.validateGeoIP,
		c.validateServiceArea,
		c.validateAnalytics,
		c.validateSinks,
		c.validateNATS,
		c.validateClickHouse,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT is production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment reports whether ENVIRONMENT is development or unset.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour

	minJWTSecretLength = 32
)

func (c *Config) validateSecurity() error {
	if err := c.validateAdminJWTSecret(); err != nil {
		return err
	}
	if err := c.validateCORS(); err != nil {
		return err
	}
	return c.validateRateLimits()
}

func (c *Config) validateAdminJWTSecret() error {
	secret := c.Security.AdminJWTSecret
	if secret == "" {
		return nil
	}
	if len(secret) < minJWTSecretLength {
		return fmt.Errorf("ADMIN_JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.IsProduction() && containsPlaceholder(secret) {
		return fmt.Errorf("ADMIN_JWT_SECRET contains a placeholder value; set a real secret")
	}
	return nil
}

// validateCORS rejects wildcard CORS in production when the admin endpoints
// are enabled.
func (c *Config) validateCORS() error {
	if c.AdminEnabled() && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with ADMIN_JWT_SECRET set; " +
			"set specific origins: CORS_ORIGINS=https://yourdomain.com")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS reports a wildcard CORS setting worth logging at startup.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.hasWildcardCORS() && !c.IsDevelopment()
}

// AdminEnabled reports whether the admin endpoints are mounted.
func (c *Config) AdminEnabled() bool {
	return c.Security.AdminJWTSecret != ""
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

var validGeoIPProviders = map[string]bool{
	ProviderIPAPICo: true,
	ProviderIPAPI:   true,
}

func (c *Config) validateGeoIP() error {
	if len(c.GeoIP.Providers) == 0 {
		return fmt.Errorf("GEOIP_PROVIDERS must name at least one provider")
	}
	for _, p := range c.GeoIP.Providers {
		if !validGeoIPProviders[p] {
			return fmt.Errorf("GEOIP_PROVIDERS: unknown provider %q (want %s or %s)", p, ProviderIPAPICo, ProviderIPAPI)
		}
	}
	if c.GeoIP.Timeout <= 0 {
		return fmt.Errorf("GEOIP_TIMEOUT must be positive")
	}
	if c.GeoIP.CacheTTL < 0 || c.GeoIP.FallbackTTL < 0 {
		return fmt.Errorf("GEOIP_CACHE_TTL and GEOIP_FALLBACK_TTL must not be negative")
	}
	return nil
}

func (c *Config) validateServiceArea() error {
	if c.ServiceArea.Country == "" {
		return fmt.Errorf("SERVICE_AREA_COUNTRY is required")
	}
	if err := c.Region().Validate(); err != nil {
		return err
	}
	if _, err := servicearea.ParsePolicy(c.ServiceArea.UndeterminedPolicy); err != nil {
		return fmt.Errorf("SERVICE_AREA_UNDETERMINED_POLICY: %w", err)
	}
	if c.ServiceArea.AllowBypassParam && c.IsProduction() {
		return fmt.Errorf("SERVICE_AREA_ALLOW_BYPASS_PARAM is not allowed when ENVIRONMENT=production")
	}
	if p := c.ServiceArea.OutOfAreaPath; p != "" && !strings.HasPrefix(p, "/") {
		return fmt.Errorf("SERVICE_AREA_OUT_OF_AREA_PATH must start with /")
	}
	return nil
}

var validStores = map[string]bool{
	"memory": true,
	"badger": true,
}

func (c *Config) validateAnalytics() error {
	a := c.Analytics
	if !validStores[a.Store] {
		return fmt.Errorf("ANALYTICS_STORE must be one of: memory, badger")
	}
	if a.Store == "badger" && a.BadgerDir == "" {
		return fmt.Errorf("ANALYTICS_BADGER_DIR is required when ANALYTICS_STORE=badger")
	}
	if a.Capacity < 1 {
		return fmt.Errorf("ANALYTICS_CAPACITY must be at least 1")
	}
	if a.IdleTimeout <= 0 || a.SweepInterval <= 0 {
		return fmt.Errorf("ANALYTICS_IDLE_TIMEOUT and ANALYTICS_SWEEP_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) validateSinks() error {
	s := c.Sinks
	if s.Pixel.Enabled {
		if err := validateEndpointURL(s.Pixel.URL, "PIXEL_URL"); err != nil {
			return err
		}
		if s.Pixel.PixelID == "" {
			return fmt.Errorf("PIXEL_ID is required when PIXEL_ENABLED=true")
		}
	}
	if s.CallTracking.Enabled {
		if err := validateEndpointURL(s.CallTracking.URL, "CALLTRACKING_URL"); err != nil {
			return err
		}
	}
	if s.DataLayer.Enabled && s.DataLayer.Limit < 0 {
		return fmt.Errorf("DATALAYER_LIMIT must not be negative")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.EmbeddedServer {
		if c.NATS.Port < -1 || c.NATS.Port > 65535 {
			return fmt.Errorf("NATS_PORT must be between -1 and 65535")
		}
		if c.NATS.JetStream && c.NATS.StoreDir == "" {
			return fmt.Errorf("NATS_STORE_DIR is required for an embedded server with JetStream")
		}
		return nil
	}
	return validateNATSURL(c.NATS.URL)
}

// NATSURL is the URL clients connect to: the embedded server's address when
// one is run, otherwise NATS_URL.
func (c *Config) NATSURL() string {
	if c.NATS.EmbeddedServer && c.NATS.Port > 0 {
		return fmt.Sprintf("nats://%s", net.JoinHostPort(c.NATS.Host, fmt.Sprint(c.NATS.Port)))
	}
	return c.NATS.URL
}

func (c *Config) validateClickHouse() error {
	if !c.ClickHouse.Enabled {
		return nil
	}
	if len(c.ClickHouse.Addr) == 0 {
		return fmt.Errorf("CLICKHOUSE_ADDR is required when CLICKHOUSE_ENABLED=true")
	}
	for _, addr := range c.ClickHouse.Addr {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("CLICKHOUSE_ADDR %q must be host:port: %w", addr, err)
		}
	}
	if c.ClickHouse.BatchSize < 1 {
		return fmt.Errorf("CLICKHOUSE_BATCH_SIZE must be at least 1")
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns indicate a secret that was never set.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
