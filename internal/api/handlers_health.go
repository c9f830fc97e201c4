// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/geogate/internal/models"
)

// Health reports liveness and the state of each component.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{
		"geolocation": "ok",
		"sessions":    "ok",
	}

	if h.resolver != nil {
		if loc, ok := h.resolver.Cached(); ok && loc.Fallback {
			components["geolocation"] = "degraded"
		}
	} else {
		components["geolocation"] = "disabled"
	}

	active := 0
	if h.sessions != nil {
		active = h.sessions.Active()
		if h.sessions.Store() == nil {
			components["sessions"] = "memory-only"
		}
	} else {
		components["sessions"] = "disabled"
	}

	if h.hub != nil {
		components["live_feed"] = "ok"
	}

	status := "healthy"
	for _, v := range components {
		if v == "degraded" {
			status = "degraded"
		}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: models.HealthStatus{
			Status:        status,
			Version:       Version,
			Uptime:        time.Since(h.startTime).Seconds(),
			Components:    components,
			ActiveSession: active,
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}
