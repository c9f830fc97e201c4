// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package api

import (
	"net/http"

	"github.com/tomtom215/geogate/internal/auth"
	"github.com/tomtom215/geogate/internal/logging"
	"github.com/tomtom215/geogate/internal/models"
)

// SetTestLocation overrides the server's own location. Refused in production.
func (h *Handler) SetTestLocation(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Production {
		respondError(w, http.StatusForbidden, ErrCodeForbidden, "Test locations are disabled in production", nil)
		return
	}
	var req TestLocationRequest
	if !decodeAndValidate(w, r, &req, true) {
		return
	}

	loc := h.resolver.SetTestLocation(models.Location{
		Country:   req.Country,
		Region:    req.Region,
		City:      req.City,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Timezone:  req.Timezone,
	})
	h.audit(r, "set_test_location")
	respondData(w, http.StatusOK, loc)
}

// ClearLocationCache drops memoized locations.
func (h *Handler) ClearLocationCache(w http.ResponseWriter, r *http.Request) {
	h.resolver.ClearCache()
	h.audit(r, "clear_location_cache")
	w.WriteHeader(http.StatusNoContent)
}

// ClearAnalytics drops every stored session. Live sessions are unaffected.
func (h *Handler) ClearAnalytics(w http.ResponseWriter, r *http.Request) {
	store := h.sessions.Store()
	if store == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := store.Clear(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to clear analytics", err)
		return
	}
	h.audit(r, "clear_analytics")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) audit(r *http.Request, action string) {
	user := ""
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		user = claims.Username
	}
	logging.Ctx(r.Context()).Info().
		Str("action", action).
		Str("admin", sanitizeLogValue(user)).
		Msg("Admin action")
}
