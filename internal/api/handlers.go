// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/geogate/internal/analytics"
	"github.com/tomtom215/geogate/internal/auth"
	"github.com/tomtom215/geogate/internal/geo"
	"github.com/tomtom215/geogate/internal/seo"
	"github.com/tomtom215/geogate/internal/servicearea"
	"github.com/tomtom215/geogate/internal/websocket"
)

// Version is reported by the health endpoint. Set at build time.
var Version = "dev"

// HandlerConfig carries the settings handlers need beyond their dependencies.
type HandlerConfig struct {
	// Production refuses test-location overrides.
	Production bool

	// LiveFeedOrigins are the origins allowed to open the websocket feed.
	// Empty allows same-origin only.
	LiveFeedOrigins []string

	// SecureCookies marks the device cookie Secure.
	SecureCookies bool
}

// Handler holds the services the HTTP endpoints call into.
type Handler struct {
	resolver *geo.Resolver
	gate     *servicearea.Gate
	sessions *analytics.Manager
	seo      *seo.Generator
	hub      *websocket.Hub
	jwt      *auth.JWTManager
	cfg      HandlerConfig

	startTime time.Time
}

// Deps groups the services a Handler uses. Hub and JWT are optional.
type Deps struct {
	Resolver *geo.Resolver
	Gate     *servicearea.Gate
	Sessions *analytics.Manager
	SEO      *seo.Generator
	Hub      *websocket.Hub
	JWT      *auth.JWTManager
}

// NewHandler creates a Handler.
func NewHandler(deps Deps, cfg HandlerConfig) *Handler {
	gen := deps.SEO
	if gen == nil {
		gen = seo.NewGenerator(seo.DefaultOrganization())
	}
	return &Handler{
		resolver:  deps.Resolver,
		gate:      deps.Gate,
		sessions:  deps.Sessions,
		seo:       gen,
		hub:       deps.Hub,
		jwt:       deps.JWT,
		cfg:       cfg,
		startTime: time.Now(),
	}
}

// clientIP returns the caller's address. chi's RealIP middleware has already
// replaced RemoteAddr with X-Forwarded-For / X-Real-IP when present.
func clientIP(r *http.Request) string {
	return geo.NormalizeIP(r.RemoteAddr)
}

// selfScope reports whether the caller asked about the server's own location.
func selfScope(r *http.Request) bool {
	return r.URL.Query().Get("scope") == "self"
}
