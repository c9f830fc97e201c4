// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package api

import (
	"net/http"

	"github.com/tomtom215/geogate/internal/servicearea"
)

// Location resolves the caller's location. With ?scope=self the server's
// own (memoized, possibly overridden) location is returned instead.
func (h *Handler) Location(w http.ResponseWriter, r *http.Request) {
	if h.resolver == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "Geolocation is not configured", nil)
		return
	}
	if selfScope(r) {
		respondData(w, http.StatusOK, h.resolver.GetLocation(r.Context()))
		return
	}
	respondData(w, http.StatusOK, h.resolver.Lookup(r.Context(), clientIP(r)))
}

// Access evaluates the caller against the service area.
func (h *Handler) Access(w http.ResponseWriter, r *http.Request) {
	if h.gate == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "Service area is not configured", nil)
		return
	}
	respondData(w, http.StatusOK, h.decide(r))
}

func (h *Handler) decide(r *http.Request) servicearea.Decision {
	if selfScope(r) {
		return h.gate.CheckAccess(r.Context())
	}
	return h.gate.CheckAccessFor(r.Context(), clientIP(r))
}

// OutOfServiceArea tells a redirected caller where they were located and
// which page was blocked.
func (h *Handler) OutOfServiceArea(w http.ResponseWriter, r *http.Request) {
	if h.gate == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "Service area is not configured", nil)
		return
	}
	region := h.gate.Region()
	respondData(w, http.StatusOK, map[string]interface{}{
		"detected":     servicearea.TransparencyFor(h.decide(r), r),
		"service_area": region.State + ", " + region.Country,
	})
}

// GatedContent is the demo route behind the service-area guard.
func (h *Handler) GatedContent(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{
		"message": "Welcome. You are inside the service area.",
	})
}
