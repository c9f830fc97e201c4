// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package servicearea

import (
	"net"
	"net/http"
	"strings"

	"github.com/tomtom215/geogate/internal/logging"
	"github.com/tomtom215/geogate/internal/metrics"
)

// DefaultOutOfAreaPath is where denied requests are redirected.
const DefaultOutOfAreaPath = "/out-of-service-area"

// BlockedURLCookie remembers the path a denied caller asked for.
const BlockedURLCookie = "geo_blocked_url"

// bypassCookie persists a bypass-parameter override for the browser session.
const bypassCookie = "geo_bypass"

// GuardConfig controls the HTTP guard.
type GuardConfig struct {
	// OutOfAreaPath is the redirect target for denied callers. It is always exempt.
	OutOfAreaPath string

	// ExemptPrefixes are path prefixes never checked (health, metrics, assets).
	ExemptPrefixes []string

	// Development disables the guard entirely.
	Development bool

	// PreviewHostSuffixes are host suffixes (preview deployments) that bypass
	// the check. localhost and 127.0.0.1 always bypass.
	PreviewHostSuffixes []string

	// BypassParam is the query parameter that, set to "true", bypasses the
	// check for the rest of the browser session. Honored only when
	// AllowBypassParam is set.
	BypassParam      string
	AllowBypassParam bool
}

// DefaultGuardConfig returns production guard settings.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		OutOfAreaPath:       DefaultOutOfAreaPath,
		ExemptPrefixes:      []string{"/health", "/metrics", "/static/", "/assets/", "/favicon.ico", "/robots.txt"},
		PreviewHostSuffixes: []string{"vercel.app", "vercel.dev"},
		BypassParam:         "bypass-geo",
	}
}

// Guard returns middleware that redirects callers outside the service area
// to cfg.OutOfAreaPath with 303 See Other. The client address is taken from
// r.RemoteAddr, so mount it after a real-IP middleware when behind a proxy.
//
// Any failure inside the check lets the request through.
func (g *Gate) Guard(cfg GuardConfig) func(http.Handler) http.Handler {
	if cfg.OutOfAreaPath == "" {
		cfg.OutOfAreaPath = DefaultOutOfAreaPath
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if reason := cfg.bypassReason(r); reason != "" {
				if reason == "bypass_param" {
					setBypassCookie(w, r, cfg)
				}
				logging.Ctx(r.Context()).Debug().
					Str("reason", reason).
					Str("host", r.Host).
					Str("path", r.URL.Path).
					Msg("Geo check bypassed")
				next.ServeHTTP(w, r)
				return
			}

			allowed := g.allowRequest(r)
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			http.SetCookie(w, &http.Cookie{
				Name:     BlockedURLCookie,
				Value:    r.URL.Path,
				Path:     "/",
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
			http.Redirect(w, r, cfg.OutOfAreaPath, http.StatusSeeOther)
		})
	}
}

// allowRequest runs the check and fails open on panic.
func (g *Gate) allowRequest(r *http.Request) (allowed bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Ctx(r.Context()).Error().
				Interface("panic", rec).
				Str("path", r.URL.Path).
				Msg("Geo check failed, allowing request")
			metrics.RecordAccessDecision(string(OutcomeUndetermined), "check_failed")
			allowed = true
		}
	}()

	d := g.CheckAccessFor(r.Context(), r.RemoteAddr)
	if !d.Allowed {
		logging.Ctx(r.Context()).Info().
			Str("reason", string(d.Reason)).
			Str("country", d.Location.Country).
			Str("region", d.Location.Region).
			Str("city", d.Location.City).
			Str("path", r.URL.Path).
			Msg("Access denied")
	}
	return d.Allowed
}

// bypassReason returns why r skips the check, or "".
func (cfg GuardConfig) bypassReason(r *http.Request) string {
	path := r.URL.Path
	if path == cfg.OutOfAreaPath {
		return "exempt_path"
	}
	for _, prefix := range cfg.ExemptPrefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return "exempt_path"
		}
	}

	if cfg.Development {
		return "development"
	}

	host := hostname(r.Host)
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return "localhost"
	}
	for _, suffix := range cfg.PreviewHostSuffixes {
		if suffix != "" && strings.HasSuffix(host, suffix) {
			return "preview_host"
		}
	}

	if cfg.AllowBypassParam {
		if cfg.BypassParam != "" && r.URL.Query().Get(cfg.BypassParam) == "true" {
			return "bypass_param"
		}
		if c, err := r.Cookie(bypassCookie); err == nil && c.Value == "true" {
			return "bypass_cookie"
		}
	}
	return ""
}

func setBypassCookie(w http.ResponseWriter, r *http.Request, cfg GuardConfig) {
	if !cfg.AllowBypassParam {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     bypassCookie,
		Value:    "true",
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func hostname(hostport string) string {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		host = hostport
	}
	return strings.ToLower(strings.Trim(host, "[]"))
}

// Transparency is what the out-of-service-area page shows the caller.
type Transparency struct {
	City       string       `json:"city"`
	Region     string       `json:"region"`
	Country    string       `json:"country"`
	Allowed    bool         `json:"allowed"`
	Reason     DenialReason `json:"reason,omitempty"`
	BlockedURL string       `json:"blocked_url,omitempty"`
}

// TransparencyFor builds the out-of-service-area view of a decision. The
// blocked URL is read from the cookie set by Guard.
func TransparencyFor(d Decision, r *http.Request) Transparency {
	t := Transparency{
		City:    d.Location.City,
		Region:  d.Location.Region,
		Country: d.Location.Country,
		Allowed: d.Allowed,
		Reason:  d.Reason,
	}
	if c, err := r.Cookie(BlockedURLCookie); err == nil && strings.HasPrefix(c.Value, "/") {
		t.BlockedURL = c.Value
	}
	return t
}
