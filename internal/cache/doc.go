// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

// Package cache provides a small, typed, thread-safe TTL cache.
//
// The geolocation resolver keeps per-client-IP answers here so that repeated
// requests from the same visitor do not spend the upstream provider's quota.
//
//	c := cache.New[models.Location](6 * time.Hour)
//	defer c.Close()
//
//	c.Set("203.0.113.7", loc)
//	if loc, ok := c.Get("203.0.113.7"); ok {
//	    // use loc
//	}
//
// A TTL of zero means entries never expire. Expired entries are dropped lazily
// on Get and periodically by a background sweeper that Close stops.
package cache
