// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/geogate/internal/analytics"
	"github.com/tomtom215/geogate/internal/logging"
)

// DeviceCookie identifies a browser across sessions so that it keeps its user id.
const DeviceCookie = "geogate_device"

// SessionHeader carries the caller's session id on non-session routes.
const SessionHeader = "X-Session-ID"

const deviceCookieMaxAge = 365 * 24 * time.Hour

// SessionContext attaches the X-Session-ID header to the request context so
// events emitted while serving the request (access checks) land in that
// session.
func SessionContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(SessionHeader); id != "" && len(id) <= 64 {
			r = r.WithContext(logging.ContextWithSessionID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// StartSession creates a session. The device cookie is issued when missing.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if !decodeAndValidate(w, r, &req, true) {
		return
	}

	deviceKey := ""
	if c, err := r.Cookie(DeviceCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			deviceKey = c.Value
		}
	}
	if deviceKey == "" {
		deviceKey = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     DeviceCookie,
			Value:    deviceKey,
			Path:     "/",
			MaxAge:   int(deviceCookieMaxAge.Seconds()),
			HttpOnly: true,
			Secure:   h.cfg.SecureCookies || r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
	}

	rec, err := h.sessions.Start(r.Context(), analytics.StartParams{
		DeviceKey: deviceKey,
		ClientIP:  clientIP(r),
		Env:       analytics.NewHeaderEnvironment(r, req.ScreenResolution, req.Referrer),
		Page:      req.Page,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to start session", err)
		return
	}

	w.Header().Set("Location", "/api/v1/sessions/"+rec.ID())
	respondData(w, http.StatusCreated, rec.Session())
}

// GetSession returns a snapshot of a live session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.recorder(w, r)
	if !ok {
		return
	}
	respondData(w, http.StatusOK, rec.Session())
}

// TrackPageView records a page view.
func (h *Handler) TrackPageView(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.recorder(w, r)
	if !ok {
		return
	}
	var req PageViewRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}
	rec.TrackPageView(h.sessionCtx(r, rec), req.Page)
	w.WriteHeader(http.StatusAccepted)
}

// TrackEvent records a named event.
func (h *Handler) TrackEvent(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.recorder(w, r)
	if !ok {
		return
	}
	var req EventRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}
	rec.TrackEvent(h.sessionCtx(r, rec), req.Name, req.Properties)
	w.WriteHeader(http.StatusAccepted)
}

// TrackClick classifies a click. Clicks that are not tracked are still accepted.
func (h *Handler) TrackClick(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.recorder(w, r)
	if !ok {
		return
	}
	var req ClickRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}
	rec.TrackClick(h.sessionCtx(r, rec), analytics.Click{Tag: req.Tag, Text: req.Text, Href: req.Href})
	w.WriteHeader(http.StatusAccepted)
}

// Visibility persists the session when the page is hidden.
func (h *Handler) Visibility(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.recorder(w, r)
	if !ok {
		return
	}
	var req VisibilityRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}
	if req.State == "hidden" {
		rec.Hide(h.sessionCtx(r, rec))
	}
	w.WriteHeader(http.StatusAccepted)
}

// EndSession finalizes the session and returns its last snapshot.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.sessions.End(r.Context(), id)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	respondData(w, http.StatusOK, s)
}

func (h *Handler) recorder(w http.ResponseWriter, r *http.Request) (*analytics.Recorder, bool) {
	rec, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondSessionError(w, err)
		return nil, false
	}
	return rec, true
}

// sessionCtx detaches tracking from the request so that a client hanging
// up does not abort persistence.
func (h *Handler) sessionCtx(r *http.Request, rec *analytics.Recorder) context.Context {
	ctx := context.WithoutCancel(r.Context())
	return logging.ContextWithSessionID(ctx, rec.ID())
}

func respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analytics.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found", nil)
	case errors.Is(err, analytics.ErrSessionEnded):
		respondError(w, http.StatusConflict, ErrCodeConflict, "Session has ended", nil)
	default:
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Session error", err)
	}
}
