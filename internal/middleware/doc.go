// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

/*
Package middleware holds geogate's own HTTP middleware, written in chi's
func(http.Handler) http.Handler form:

  - RequestID: request and correlation ids for logging.Ctx
  - PrometheusMetrics: request counts and durations by chi route pattern
  - AccessLog: one zerolog line per request

CORS, rate limiting, compression, panic recovery and real-IP extraction come
from go-chi/cors, go-chi/httprate and chi's middleware package and are
assembled in internal/api.
*/
package middleware
