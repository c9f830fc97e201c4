// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/geogate/internal/models"
)

const maxTopN = 100

// AnalyticsSummary aggregates the stored sessions.
func (h *Handler) AnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	topN := 0
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTopN {
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "top must be between 1 and 100", nil)
			return
		}
		topN = n
	}

	summary, err := h.sessions.Summary(r.Context(), topN)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to summarize sessions", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   summary,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}
