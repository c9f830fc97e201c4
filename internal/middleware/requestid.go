// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package middleware

import (
	"net/http"
	"regexp"

	"github.com/tomtom215/geogate/internal/logging"
)

// Request tracing headers.
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"
)

// Upstream ids are kept only if they are short and log-safe.
var safeID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// RequestID assigns every request a request id and a correlation id. An
// incoming X-Request-ID or X-Correlation-ID is reused when it is safe to log.
// Both ids are echoed in the response and stored for logging.Ctx.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if !safeID.MatchString(requestID) {
			requestID = logging.GenerateRequestID()
		}
		correlationID := r.Header.Get(HeaderCorrelationID)
		if !safeID.MatchString(correlationID) {
			correlationID = logging.GenerateCorrelationID()
		}

		w.Header().Set(HeaderRequestID, requestID)
		w.Header().Set(HeaderCorrelationID, correlationID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		ctx = logging.ContextWithCorrelationID(ctx, correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
