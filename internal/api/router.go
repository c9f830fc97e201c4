// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/geogate/internal/middleware"
	"github.com/tomtom215/geogate/internal/servicearea"
	"github.com/tomtom215/geogate/internal/websocket"
)

// RouterConfig configures SetupChi.
type RouterConfig struct {
	Middleware *ChiMiddlewareConfig
	Guard      servicearea.GuardConfig
}

// SetupChi builds the chi router with every geogate route.
//
// Global middleware order: request id, real ip, panic recovery, access log,
// prometheus, security headers, CORS. Compression applies to JSON routes only
// since the live feed connection must stay hijackable.
func SetupChi(h *Handler, cfg RouterConfig) chi.Router {
	mw := NewChiMiddleware(cfg.Middleware)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
	r.Use(APISecurityHeaders())
	r.Use(mw.CORS())
	r.Use(SessionContext)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Resource not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil)
	})

	r.With(mw.RateLimitCustom(RateLimitHealth)).Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	if h.hub != nil {
		r.Get("/api/v1/live", websocket.Handler(h.hub, h.cfg.LiveFeedOrigins))
	}

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Compress(5, "application/json"))

		r.With(mw.RateLimit()).Get(servicearea.DefaultOutOfAreaPath, h.OutOfServiceArea)

		r.Route("/api/v1", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.RateLimit())
				r.Get("/location", h.Location)
				r.Get("/access", h.Access)
				r.Get("/seo/schemas", h.PageSchemas)
				r.Post("/seo/educational", h.EducationalSchemas)
			})

			if h.gate != nil {
				r.Route("/gated", func(r chi.Router) {
					r.Use(mw.RateLimit())
					r.Use(h.gate.Guard(cfg.Guard))
					r.Get("/content", h.GatedContent)
				})
			}

			if h.sessions != nil {
				r.With(mw.RateLimit()).Get("/analytics/summary", h.AnalyticsSummary)

				r.Route("/sessions", func(r chi.Router) {
					r.With(mw.RateLimitCustom(RateLimitSessionStart)).Post("/", h.StartSession)

					r.Route("/{id}", func(r chi.Router) {
						r.Use(mw.RateLimitCustom(RateLimitTracking))
						r.Get("/", h.GetSession)
						r.Post("/pageviews", h.TrackPageView)
						r.Post("/events", h.TrackEvent)
						r.Post("/clicks", h.TrackClick)
						r.Post("/visibility", h.Visibility)
						r.Post("/end", h.EndSession)
					})
				})
			}

			if h.jwt != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Use(mw.RateLimitCustom(RateLimitAdmin))
					r.Use(h.jwt.RequireAdmin)
					if h.resolver != nil {
						r.Put("/test-location", h.SetTestLocation)
						r.Delete("/location-cache", h.ClearLocationCache)
					}
					if h.sessions != nil {
						r.Delete("/analytics", h.ClearAnalytics)
					}
				})
			}
		})
	})

	return r
}
