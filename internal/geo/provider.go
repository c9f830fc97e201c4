// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/geogate/internal/breaker"
	"github.com/tomtom215/geogate/internal/models"
)

var (
	// ErrRateLimited is returned when the client-side limiter refuses a lookup.
	ErrRateLimited = errors.New("geo: provider rate limit exceeded")

	// ErrInvalidIP is returned for addresses that cannot be looked up.
	ErrInvalidIP = errors.New("geo: invalid IP address")

	// ErrLookupFailed wraps upstream failures (status, body, decoding).
	ErrLookupFailed = errors.New("geo: lookup failed")
)

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 64 << 10

// Provider looks up the location of an IP address.
//
// An empty ip asks the provider for the location of the calling host itself.
type Provider interface {
	Lookup(ctx context.Context, ip string) (*models.Location, error)
	Name() string
}

func newHTTPClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("query %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", ErrLookupFailed, req.URL.Host, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrLookupFailed, req.URL.Host, err)
	}
	return nil
}

// ========================================
// ipapi.co
// ========================================

// IPAPICoProvider queries https://ipapi.co over HTTPS. No API key is needed
// for the free tier.
type IPAPICoProvider struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

type ipapiCoResponse struct {
	IP          string  `json:"ip"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	CountryName string  `json:"country_name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone"`
	Error       bool    `json:"error"`
	Reason      string  `json:"reason"`
}

// NewIPAPICoProvider creates an ipapi.co provider. A nil client gets a 10s
// timeout client; perMinute <= 0 disables client-side limiting.
func NewIPAPICoProvider(client *http.Client, perMinute int) *IPAPICoProvider {
	return &IPAPICoProvider{
		client:  newHTTPClient(client),
		limiter: newLimiter(perMinute),
		baseURL: "https://ipapi.co",
	}
}

// Name returns the provider name.
func (p *IPAPICoProvider) Name() string {
	return "ipapi.co"
}

// Lookup queries ipapi.co for ip, or for the caller when ip is empty.
func (p *IPAPICoProvider) Lookup(ctx context.Context, ip string) (*models.Location, error) {
	url := p.baseURL + "/json/"
	if ip != "" {
		if !IsValidPublicIP(ip) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidIP, ip)
		}
		url = fmt.Sprintf("%s/%s/json/", p.baseURL, ip)
	}

	if !p.limiter.Allow() {
		return nil, ErrRateLimited
	}

	var result ipapiCoResponse
	if err := getJSON(ctx, p.client, url, &result); err != nil {
		return nil, err
	}
	if result.Error {
		return nil, fmt.Errorf("%w: ipapi.co: %s", ErrLookupFailed, result.Reason)
	}

	loc := models.Location{
		Country:   result.CountryName,
		Region:    result.Region,
		City:      result.City,
		Latitude:  result.Latitude,
		Longitude: result.Longitude,
		Timezone:  result.Timezone,
		IPAddress: result.IP,
	}
	if loc.IPAddress == "" {
		loc.IPAddress = ip
	}
	if loc.Timezone == "" {
		loc.Timezone = models.LocalTimezone()
	}
	loc = loc.WithDefaults()
	return &loc, nil
}

// ========================================
// ip-api.com
// ========================================

// IPAPIProvider queries ip-api.com (free tier: 45 requests/minute, HTTP only).
type IPAPIProvider struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

type ipAPIResponse struct {
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	Country    string  `json:"country"`
	RegionName string  `json:"regionName"`
	City       string  `json:"city"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Timezone   string  `json:"timezone"`
	Query      string  `json:"query"`
}

// NewIPAPIProvider creates an ip-api.com provider.
func NewIPAPIProvider(client *http.Client, perMinute int) *IPAPIProvider {
	return &IPAPIProvider{
		client:  newHTTPClient(client),
		limiter: newLimiter(perMinute),
		baseURL: "http://ip-api.com/json",
	}
}

// Name returns the provider name.
func (p *IPAPIProvider) Name() string {
	return "ip-api.com"
}

// Lookup queries ip-api.com for ip, or for the caller when ip is empty.
func (p *IPAPIProvider) Lookup(ctx context.Context, ip string) (*models.Location, error) {
	if ip != "" && !IsValidPublicIP(ip) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}
	if !p.limiter.Allow() {
		return nil, ErrRateLimited
	}

	url := fmt.Sprintf("%s/%s?fields=status,message,country,regionName,city,lat,lon,timezone,query", p.baseURL, ip)

	var result ipAPIResponse
	if err := getJSON(ctx, p.client, url, &result); err != nil {
		return nil, err
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("%w: ip-api.com: %s", ErrLookupFailed, result.Message)
	}

	loc := models.Location{
		Country:   result.Country,
		Region:    result.RegionName,
		City:      result.City,
		Latitude:  result.Lat,
		Longitude: result.Lon,
		Timezone:  result.Timezone,
		IPAddress: result.Query,
	}
	if loc.Timezone == "" {
		loc.Timezone = models.LocalTimezone()
	}
	loc = loc.WithDefaults()
	return &loc, nil
}

// ========================================
// Static
// ========================================

// StaticProvider always answers with the same location (or error). It backs
// the "static" provider setting for offline deployments and is the test fake.
type StaticProvider struct {
	Location models.Location
	Err      error
	// Delay is waited (respecting ctx) before answering.
	Delay time.Duration

	calls atomic.Int64
}

// Name returns the provider name.
func (p *StaticProvider) Name() string {
	return "static"
}

// Calls returns how many lookups reached the provider.
func (p *StaticProvider) Calls() int64 {
	return p.calls.Load()
}

// Lookup returns the configured answer.
func (p *StaticProvider) Lookup(ctx context.Context, ip string) (*models.Location, error) {
	p.calls.Add(1)

	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if p.Err != nil {
		return nil, p.Err
	}
	loc := p.Location
	if ip != "" {
		loc.IPAddress = ip
	}
	return &loc, nil
}

// ========================================
// Circuit breaker
// ========================================

// breakerProvider guards a Provider with a circuit breaker so that a dead
// upstream is skipped quickly instead of costing a full timeout per lookup.
type breakerProvider struct {
	inner Provider
	cb    *gobreaker.CircuitBreaker[*models.Location]
}

// WithCircuitBreaker wraps p in a breaker named "geo-<provider name>".
func WithCircuitBreaker(p Provider, cfg breaker.Config) Provider {
	if cfg.Name == "" {
		cfg.Name = "geo-" + p.Name()
	}
	return &breakerProvider{inner: p, cb: breaker.New[*models.Location](cfg)}
}

func (b *breakerProvider) Name() string {
	return b.inner.Name()
}

func (b *breakerProvider) Lookup(ctx context.Context, ip string) (*models.Location, error) {
	return breaker.Execute(b.cb, func() (*models.Location, error) {
		loc, err := b.inner.Lookup(ctx, ip)
		if errors.Is(err, ErrInvalidIP) || errors.Is(err, ErrRateLimited) {
			// Local refusals say nothing about upstream health.
			return nil, breaker.Exclude(err)
		}
		return loc, err
	})
}
