// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/geogate/internal/analytics"
	"github.com/tomtom215/geogate/internal/seo"
	"github.com/tomtom215/geogate/internal/servicearea"
)

// DefaultConfigPaths are searched in order; the first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/geogate/config.yaml",
	"/etc/geogate/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	region := servicearea.DefaultRegion()
	guard := servicearea.DefaultGuardConfig()
	manager := analytics.DefaultManagerConfig()

	return &Config{
		Server: ServerConfig{
			Port:            3857,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Security: SecurityConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		GeoIP: GeoIPConfig{
			Providers:         []string{ProviderIPAPICo, ProviderIPAPI},
			RequestsPerMinute: 45,
			HTTPTimeout:       10 * time.Second,
			Timeout:           3 * time.Second,
			CacheTTL:          6 * time.Hour,
			FallbackTTL:       time.Minute,
			BreakerThreshold:  5,
			BreakerTimeout:    time.Minute,
		},
		ServiceArea: ServiceAreaConfig{
			Country: region.Country,
			State:   region.State,
			Bounds: BoundsConfig{
				North: region.Bounds.North,
				South: region.Bounds.South,
				East:  region.Bounds.East,
				West:  region.Bounds.West,
			},
			Cities:              region.Cities,
			UndeterminedPolicy:  string(servicearea.PolicyAllow),
			GuardEnabled:        true,
			OutOfAreaPath:       guard.OutOfAreaPath,
			ExemptPrefixes:      guard.ExemptPrefixes,
			PreviewHostSuffixes: guard.PreviewHostSuffixes,
		},
		Analytics: AnalyticsConfig{
			Store:         "memory",
			BadgerDir:     "/data/sessions",
			Capacity:      analytics.DefaultCapacity,
			IdleTimeout:   manager.IdleTimeout,
			SweepInterval: manager.SweepInterval,
			TargetCountry: manager.Recorder.TargetCountry,
			FlushEvents:   manager.Recorder.FlushEvents,
			SinkTimeout:   5 * time.Second,
		},
		Sinks: SinksConfig{
			DataLayer: DataLayerConfig{Enabled: true, Limit: 1000},
			LiveFeed:  LiveFeedConfig{Enabled: true},
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			Host:           "127.0.0.1",
			Port:           4222,
			StoreDir:       "/data/nats/jetstream",
			SubjectPrefix:  "analytics",
			Relay:          true,
		},
		ClickHouse: ClickHouseConfig{
			Database:      "default",
			Username:      "default",
			Table:         "analytics_events",
			BatchSize:     500,
			FlushInterval: 5 * time.Second,
		},
		SEO: SEOConfig{
			Organization: seo.DefaultOrganization(),
		},
	}
}

// LoadWithKoanf loads defaults, then the config file, then the environment,
// and validates the result.
func LoadWithKoanf() (*Config, error) {
	return load(findConfigFile())
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// HTTP_PORT -> server.port, GEOIP_PROVIDERS -> geoip.providers, ...
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ConfigFile returns the config file LoadWithKoanf reads, or "" when none exists.
func ConfigFile() string {
	return findConfigFile()
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"geoip.providers",
	"service_area.cities",
	"service_area.exempt_prefixes",
	"service_area.preview_host_suffixes",
	"analytics.flush_events",
	"sinks.livefeed.allowed_origins",
	"clickhouse.addr",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variables (lower-cased) to config paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	"http_port":        "server.port",
	"http_host":        "server.host",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"admin_jwt_secret":    "security.admin_jwt_secret",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	"geoip_providers":           "geoip.providers",
	"geoip_requests_per_minute": "geoip.requests_per_minute",
	"geoip_http_timeout":        "geoip.http_timeout",
	"geoip_timeout":             "geoip.timeout",
	"geoip_cache_ttl":           "geoip.cache_ttl",
	"geoip_fallback_ttl":        "geoip.fallback_ttl",
	"geoip_breaker_threshold":   "geoip.breaker_threshold",
	"geoip_breaker_timeout":     "geoip.breaker_timeout",

	"service_area_country":               "service_area.country",
	"service_area_state":                 "service_area.state",
	"service_area_north":                 "service_area.bounds.north",
	"service_area_south":                 "service_area.bounds.south",
	"service_area_east":                  "service_area.bounds.east",
	"service_area_west":                  "service_area.bounds.west",
	"service_area_cities":                "service_area.cities",
	"service_area_undetermined_policy":   "service_area.undetermined_policy",
	"service_area_guard_enabled":         "service_area.guard_enabled",
	"service_area_out_of_area_path":      "service_area.out_of_area_path",
	"service_area_exempt_prefixes":       "service_area.exempt_prefixes",
	"service_area_preview_host_suffixes": "service_area.preview_host_suffixes",
	"service_area_allow_bypass_param":    "service_area.allow_bypass_param",

	"analytics_store":          "analytics.store",
	"analytics_badger_dir":     "analytics.badger_dir",
	"analytics_capacity":       "analytics.capacity",
	"analytics_idle_timeout":   "analytics.idle_timeout",
	"analytics_sweep_interval": "analytics.sweep_interval",
	"analytics_target_country": "analytics.target_country",
	"analytics_flush_events":   "analytics.flush_events",
	"analytics_sink_timeout":   "analytics.sink_timeout",

	"datalayer_enabled":        "sinks.datalayer.enabled",
	"datalayer_limit":          "sinks.datalayer.limit",
	"pixel_enabled":            "sinks.pixel.enabled",
	"pixel_url":                "sinks.pixel.url",
	"pixel_id":                 "sinks.pixel.pixel_id",
	"pixel_token":              "sinks.pixel.token",
	"calltracking_enabled":     "sinks.calltracking.enabled",
	"calltracking_url":         "sinks.calltracking.url",
	"calltracking_token":       "sinks.calltracking.token",
	"livefeed_enabled":         "sinks.livefeed.enabled",
	"livefeed_allowed_origins": "sinks.livefeed.allowed_origins",

	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded_server",
	"nats_host":           "nats.host",
	"nats_port":           "nats.port",
	"nats_jetstream":      "nats.jetstream",
	"nats_store_dir":      "nats.store_dir",
	"nats_subject_prefix": "nats.subject_prefix",
	"nats_relay":          "nats.relay",

	"clickhouse_enabled":        "clickhouse.enabled",
	"clickhouse_addr":           "clickhouse.addr",
	"clickhouse_database":       "clickhouse.database",
	"clickhouse_username":       "clickhouse.username",
	"clickhouse_password":       "clickhouse.password",
	"clickhouse_table":          "clickhouse.table",
	"clickhouse_batch_size":     "clickhouse.batch_size",
	"clickhouse_flush_interval": "clickhouse.flush_interval",

	"seo_site_url":  "seo.organization.url",
	"seo_telephone": "seo.organization.telephone",
	"seo_email":     "seo.organization.email",
}

// envTransformFunc maps an environment variable name to its config path, or
// "" to skip it.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile calls callback whenever the file at path changes. The
// caller must synchronize access to any config it reloads.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
