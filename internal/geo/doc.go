// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

// Package geo resolves the approximate geographic location of a caller from
// network information.
//
// A Resolver tries its Providers in order (ipapi.co, then ip-api.com by
// default), each behind its own circuit breaker and client-side rate limiter.
// Answers are memoized: the resolver's own location for its whole lifetime,
// per-client-IP answers in a TTL cache. Concurrent callers asking for the same
// key share a single in-flight lookup.
//
// The resolver never returns an error. When every provider fails, times out
// or returns garbage, callers receive models.FallbackLocation(): every string
// "Unknown", coordinates 0, timezone from the local runtime, Fallback=true.
//
//	resolver := geo.NewResolver(geo.DefaultConfig(),
//	    geo.NewIPAPICoProvider(nil, 30),
//	    geo.NewIPAPIProvider(nil, 45),
//	)
//	loc := resolver.GetLocation(ctx)
package geo
