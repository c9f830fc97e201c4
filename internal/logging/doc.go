// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

// Package logging provides the zerolog-based structured logger shared by every
// Geogate component.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("provider", "ipapi.co").Msg("Location resolved")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Session save failed")
//
// # Configuration
//
// Environment Variables (mapped through internal/config):
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - true, false (default: false)
//
// # Components
//
// Long-lived components take a child logger once at construction:
//
//	logger := logging.WithComponent("geo-resolver")
//	logger.Debug().Str("ip", ip).Msg("Cache miss")
//
// Libraries that require *slog.Logger (sutureslog, watermill) receive
// NewSlogLogger(), which forwards records into the same zerolog sink.
package logging
