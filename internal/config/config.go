// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package config

import (
	"time"

	"github.com/tomtom215/geogate/internal/seo"
)

// Config holds all application configuration.
//
// Loading order (koanf v2), later layers win:
//  1. Defaults from defaultConfig
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/geogate/config.yaml)
//  3. Environment variables listed in envMappings
//
// Example:
//
//	cfg, err := config.LoadWithKoanf()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load config")
//	}
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Security    SecurityConfig    `koanf:"security"`
	GeoIP       GeoIPConfig       `koanf:"geoip"`
	ServiceArea ServiceAreaConfig `koanf:"service_area"`
	Analytics   AnalyticsConfig   `koanf:"analytics"`
	Sinks       SinksConfig       `koanf:"sinks"`
	NATS        NATSConfig        `koanf:"nats"`
	ClickHouse  ClickHouseConfig  `koanf:"clickhouse"`
	SEO         SEOConfig         `koanf:"seo"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// Environment is "development", "staging" or "production". The geo guard
	// is disabled in development and test locations are refused in production.
	Environment string `koanf:"environment"`
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SecurityConfig holds admin authentication, rate limiting and CORS.
type SecurityConfig struct {
	// AdminJWTSecret signs HS256 tokens for the admin endpoints. Empty
	// disables the admin endpoints.
	AdminJWTSecret    string        `koanf:"admin_jwt_secret"`
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// GeoIPConfig configures the location resolver.
type GeoIPConfig struct {
	// Providers are tried in order: "ipapi.co", "ip-api.com".
	Providers         []string      `koanf:"providers"`
	RequestsPerMinute int           `koanf:"requests_per_minute"`
	HTTPTimeout       time.Duration `koanf:"http_timeout"`
	Timeout           time.Duration `koanf:"timeout"`
	CacheTTL          time.Duration `koanf:"cache_ttl"`
	FallbackTTL       time.Duration `koanf:"fallback_ttl"`
	// BreakerThreshold is the consecutive failures that open a provider's
	// circuit breaker.
	BreakerThreshold uint32        `koanf:"breaker_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
}

// BoundsConfig is the service-area rectangle.
type BoundsConfig struct {
	North float64 `koanf:"north"`
	South float64 `koanf:"south"`
	East  float64 `koanf:"east"`
	West  float64 `koanf:"west"`
}

// ServiceAreaConfig configures the gate and the HTTP guard.
type ServiceAreaConfig struct {
	Country            string       `koanf:"country"`
	State              string       `koanf:"state"`
	Bounds             BoundsConfig `koanf:"bounds"`
	Cities             []string     `koanf:"cities"`
	UndeterminedPolicy string       `koanf:"undetermined_policy"`

	GuardEnabled        bool     `koanf:"guard_enabled"`
	OutOfAreaPath       string   `koanf:"out_of_area_path"`
	ExemptPrefixes      []string `koanf:"exempt_prefixes"`
	PreviewHostSuffixes []string `koanf:"preview_host_suffixes"`
	AllowBypassParam    bool     `koanf:"allow_bypass_param"`
}

// AnalyticsConfig configures session storage and the session manager.
type AnalyticsConfig struct {
	// Store is "memory" or "badger".
	Store         string        `koanf:"store"`
	BadgerDir     string        `koanf:"badger_dir"`
	Capacity      int           `koanf:"capacity"`
	IdleTimeout   time.Duration `koanf:"idle_timeout"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
	TargetCountry string        `koanf:"target_country"`
	FlushEvents   []string      `koanf:"flush_events"`
	// SinkTimeout bounds delivery of one event to all sinks.
	SinkTimeout time.Duration `koanf:"sink_timeout"`
}

// SinksConfig enables the third-party analytics sinks.
type SinksConfig struct {
	DataLayer    DataLayerConfig    `koanf:"datalayer"`
	Pixel        PixelConfig        `koanf:"pixel"`
	CallTracking CallTrackingConfig `koanf:"calltracking"`
	LiveFeed     LiveFeedConfig     `koanf:"livefeed"`
}

// DataLayerConfig configures the in-process tag-manager queue.
type DataLayerConfig struct {
	Enabled bool `koanf:"enabled"`
	Limit   int  `koanf:"limit"`
}

// PixelConfig configures the ad-pixel sink.
type PixelConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	PixelID string `koanf:"pixel_id"`
	Token   string `koanf:"token"`
}

// CallTrackingConfig configures the call-tracking sink.
type CallTrackingConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Token   string `koanf:"token"`
}

// LiveFeedConfig configures the websocket live feed.
type LiveFeedConfig struct {
	Enabled        bool     `koanf:"enabled"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// NATSConfig configures event publishing over NATS.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	// EmbeddedServer runs a NATS server in-process on Host:Port.
	EmbeddedServer bool   `koanf:"embedded_server"`
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	JetStream      bool   `koanf:"jetstream"`
	StoreDir       string `koanf:"store_dir"`
	SubjectPrefix  string `koanf:"subject_prefix"`
	// Relay feeds the live feed from NATS instead of in-process.
	Relay bool `koanf:"relay"`
}

// ClickHouseConfig configures the ClickHouse event sink.
type ClickHouseConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Addr          []string      `koanf:"addr"`
	Database      string        `koanf:"database"`
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	Table         string        `koanf:"table"`
	BatchSize     int           `koanf:"batch_size"`
	FlushInterval time.Duration `koanf:"flush_interval"`
}

// SEOConfig holds the business facts rendered into structured data.
type SEOConfig struct {
	Organization seo.Organization `koanf:"organization"`
}
