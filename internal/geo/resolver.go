// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package geo

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/geogate/internal/cache"
	"github.com/tomtom215/geogate/internal/logging"
	"github.com/tomtom215/geogate/internal/metrics"
	"github.com/tomtom215/geogate/internal/models"
)

// selfKey is the singleflight key for the resolver's own location.
const selfKey = "\x00self"

// Config tunes a Resolver.
type Config struct {
	// Timeout bounds a single resolution across all providers.
	// Default: 3s
	Timeout time.Duration

	// CacheTTL is how long per-IP answers are kept. 0 keeps them forever.
	// Default: 6h
	CacheTTL time.Duration

	// FallbackTTL is how long a per-IP fallback answer is kept, so that an
	// upstream outage is retried without hammering it on every request.
	// Default: 1m
	FallbackTTL time.Duration
}

// DefaultConfig returns the resolver defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:     3 * time.Second,
		CacheTTL:    6 * time.Hour,
		FallbackTTL: time.Minute,
	}
}

// ReferenceLocation is the fixed location SetTestLocation falls back to for
// omitted fields: the practice's office in Santa Ana, California.
func ReferenceLocation() models.Location {
	return models.Location{
		Country:   "United States",
		Region:    "California",
		City:      "Santa Ana",
		Latitude:  33.7455,
		Longitude: -117.8677,
		Timezone:  "America/Los_Angeles",
		IPAddress: "test",
	}
}

// Resolver produces best-effort, memoized locations.
//
// It is safe for concurrent use. Construct one per process and pass it to
// the components that need it.
type Resolver struct {
	providers []Provider
	cfg       Config
	logger    zerolog.Logger

	group singleflight.Group

	mu         sync.RWMutex
	self       *models.Location
	generation uint64

	ipCache *cache.Cache[models.Location]
}

// NewResolver creates a resolver that tries providers in order.
func NewResolver(cfg Config, providers ...Provider) *Resolver {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.FallbackTTL <= 0 {
		cfg.FallbackTTL = def.FallbackTTL
	}

	return &Resolver{
		providers: providers,
		cfg:       cfg,
		logger:    logging.WithComponent("geo-resolver"),
		ipCache:   cache.New[models.Location](cfg.CacheTTL),
	}
}

// GetLocation returns the location of the host running the resolver.
//
// The first call performs the lookup; concurrent callers wait for that same
// lookup; later calls return the cached answer. A failed lookup caches the
// fallback location. Only ClearCache forces a new lookup.
func (r *Resolver) GetLocation(ctx context.Context) models.Location {
	if loc, ok := r.cachedSelf(); ok {
		metrics.RecordGeolocationCache(true)
		return loc
	}
	metrics.RecordGeolocationCache(false)

	return r.do(ctx, selfKey, func(gen uint64) models.Location {
		if loc, ok := r.cachedSelf(); ok {
			return loc
		}

		loc := r.resolve("")

		r.mu.Lock()
		if r.generation == gen {
			r.self = &loc
		}
		r.mu.Unlock()
		return loc
	})
}

// Lookup returns the location of a client IP address.
//
// An empty ip is the same as GetLocation. Private and loopback addresses
// resolve to LocalLocation without a network call. Invalid addresses resolve
// to the fallback location.
func (r *Resolver) Lookup(ctx context.Context, ip string) models.Location {
	ip = NormalizeIP(ip)
	switch {
	case ip == "":
		return r.GetLocation(ctx)
	case IsPrivateIP(ip):
		return LocalLocation(ip)
	case !IsValidPublicIP(ip):
		loc := models.FallbackLocation()
		loc.IPAddress = ip
		return loc
	}

	if loc, ok := r.ipCache.Get(ip); ok {
		metrics.RecordGeolocationCache(true)
		return loc
	}
	metrics.RecordGeolocationCache(false)

	return r.do(ctx, ip, func(gen uint64) models.Location {
		loc := r.resolve(ip)

		r.mu.RLock()
		current := r.generation == gen
		r.mu.RUnlock()

		if current {
			if loc.Fallback {
				r.ipCache.SetWithTTL(ip, loc, r.cfg.FallbackTTL)
			} else {
				r.ipCache.Set(ip, loc)
			}
		}
		return loc
	})
}

// ClearCache discards every memoized answer. Lookups already in flight
// finish but their results are not cached.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	r.self = nil
	r.generation++
	r.mu.Unlock()

	r.group.Forget(selfKey)
	r.ipCache.Clear()
	r.logger.Debug().Msg("Location cache cleared")
}

// SetTestLocation overrides the resolver's own location. Zero-valued fields
// take their value from ReferenceLocation. For local development and tests.
func (r *Resolver) SetTestLocation(partial models.Location) models.Location {
	ref := ReferenceLocation()
	loc := partial
	loc.Fallback = false
	if loc.Country == "" {
		loc.Country = ref.Country
	}
	if loc.Region == "" {
		loc.Region = ref.Region
	}
	if loc.City == "" {
		loc.City = ref.City
	}
	if loc.Latitude == 0 {
		loc.Latitude = ref.Latitude
	}
	if loc.Longitude == 0 {
		loc.Longitude = ref.Longitude
	}
	if loc.Timezone == "" {
		loc.Timezone = ref.Timezone
	}
	if loc.IPAddress == "" {
		loc.IPAddress = ref.IPAddress
	}

	r.mu.Lock()
	r.self = &loc
	r.generation++
	r.mu.Unlock()
	r.group.Forget(selfKey)

	r.logger.Info().
		Str("country", loc.Country).
		Str("region", loc.Region).
		Str("city", loc.City).
		Msg("Test location set")
	return loc
}

// Cached returns the memoized own location, if any.
func (r *Resolver) Cached() (models.Location, bool) {
	return r.cachedSelf()
}

// Close releases the per-IP cache sweeper.
func (r *Resolver) Close() {
	r.ipCache.Close()
}

func (r *Resolver) cachedSelf() (models.Location, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.self == nil {
		return models.Location{}, false
	}
	return *r.self, true
}

// do runs fn at most once per key at a time. A caller whose own context ends
// while waiting receives the fallback location; the shared lookup carries on
// for the others.
func (r *Resolver) do(ctx context.Context, key string, fn func(gen uint64) models.Location) models.Location {
	r.mu.RLock()
	gen := r.generation
	r.mu.RUnlock()

	ch := r.group.DoChan(key, func() (interface{}, error) {
		return fn(gen), nil
	})

	select {
	case res := <-ch:
		return res.Val.(models.Location)
	case <-ctx.Done():
		r.logger.Debug().Err(ctx.Err()).Str("key", key).Msg("Caller gave up waiting for location")
		loc := models.FallbackLocation()
		if key != selfKey {
			loc.IPAddress = key
		}
		return loc
	}
}

// resolve tries each provider in order under the configured timeout. It
// never fails; exhausting the providers yields the fallback location.
func (r *Resolver) resolve(ip string) models.Location {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()

	for _, p := range r.providers {
		start := time.Now()
		loc, err := safeLookup(ctx, p, ip)
		metrics.RecordGeolocationLookup(p.Name(), time.Since(start), err)

		if err != nil {
			r.logger.Debug().Err(err).Str("provider", p.Name()).Str("ip", ip).Msg("Geolocation provider failed")
			if ctx.Err() != nil {
				break
			}
			continue
		}

		r.logger.Debug().
			Str("provider", p.Name()).
			Str("country", loc.Country).
			Str("region", loc.Region).
			Str("city", loc.City).
			Msg("Location resolved")
		return *loc
	}

	metrics.RecordGeolocationFallback()
	r.logger.Warn().Str("ip", ip).Int("providers", len(r.providers)).Msg("All geolocation providers failed, using fallback location")

	loc := models.FallbackLocation()
	if ip != "" {
		loc.IPAddress = ip
	}
	return loc
}

// safeLookup converts a provider panic or a nil answer into an error.
func safeLookup(ctx context.Context, p Provider, ip string) (loc *models.Location, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			loc, err = nil, &panicError{provider: p.Name(), value: rec}
		}
	}()

	loc, err = p.Lookup(ctx, ip)
	if err == nil && loc == nil {
		err = ErrLookupFailed
	}
	return loc, err
}

type panicError struct {
	provider string
	value    interface{}
}

func (e *panicError) Error() string {
	return "geo: provider " + e.provider + " panicked"
}
