// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

/*
Package config loads geogate's configuration with koanf v2.

Layers are applied in order, later ones winning:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: $CONFIG_PATH, ./config.yaml or /etc/geogate/config.yaml
 3. Environment variables from an explicit mapping table

Unmapped environment variables are ignored. List-valued settings accept
comma-separated strings from the environment.

# Environment Variables

Server:
  - HTTP_PORT (default: 3857), HTTP_HOST (default: 0.0.0.0), HTTP_TIMEOUT
  - ENVIRONMENT: development, staging or production

Logging:
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json or console (default: json)

Security:
  - ADMIN_JWT_SECRET: HS256 secret for the admin endpoints (min 32 chars)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - CORS_ORIGINS: comma-separated origins (default: *)

Geolocation:
  - GEOIP_PROVIDERS: ordered list of ipapi.co, ip-api.com
  - GEOIP_TIMEOUT, GEOIP_CACHE_TTL, GEOIP_FALLBACK_TTL

Service area:
  - SERVICE_AREA_NORTH/SOUTH/EAST/WEST, SERVICE_AREA_CITIES
  - SERVICE_AREA_UNDETERMINED_POLICY: allow or deny (default: allow)
  - SERVICE_AREA_GUARD_ENABLED, SERVICE_AREA_ALLOW_BYPASS_PARAM

Analytics:
  - ANALYTICS_STORE: memory or badger, ANALYTICS_BADGER_DIR, ANALYTICS_CAPACITY
  - ANALYTICS_IDLE_TIMEOUT, ANALYTICS_TARGET_COUNTRY, ANALYTICS_FLUSH_EVENTS
  - PIXEL_*, CALLTRACKING_*, DATALAYER_*, LIVEFEED_*
  - NATS_ENABLED, NATS_EMBEDDED, NATS_URL, NATS_JETSTREAM, NATS_RELAY
  - CLICKHOUSE_ENABLED, CLICKHOUSE_ADDR, CLICKHOUSE_TABLE, CLICKHOUSE_BATCH_SIZE

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    return err
	}
	logging.Init(cfg.LogConfig())
	resolver := geo.NewResolver(cfg.ResolverConfig(), cfg.GeoProviders(nil)...)
*/
package config
