// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/geogate/internal/analytics"
	"github.com/tomtom215/geogate/internal/auth"
	"github.com/tomtom215/geogate/internal/geo"
	"github.com/tomtom215/geogate/internal/models"
	"github.com/tomtom215/geogate/internal/servicearea"
)

const testSecret = "test-secret-that-is-at-least-32-characters-long"

func irvine() models.Location {
	return models.Location{
		Country:   "United States",
		Region:    "California",
		City:      "Irvine",
		Latitude:  33.6846,
		Longitude: -117.8265,
		Timezone:  "America/Los_Angeles",
	}
}

func london() models.Location {
	return models.Location{
		Country:   "United Kingdom",
		Region:    "England",
		City:      "London",
		Latitude:  51.5074,
		Longitude: -0.1278,
		Timezone:  "Europe/London",
	}
}

type testEnv struct {
	router   http.Handler
	resolver *geo.Resolver
	sessions *analytics.Manager
	store    *analytics.MemoryStore
	jwt      *auth.JWTManager
}

type envOption func(*HandlerConfig, *RouterConfig)

func production() envOption {
	return func(h *HandlerConfig, _ *RouterConfig) { h.Production = true }
}

func rateLimit(n int) envOption {
	return func(_ *HandlerConfig, r *RouterConfig) {
		r.Middleware.RateLimitRequests = n
		r.Middleware.RateLimitWindow = time.Minute
		r.Middleware.RateLimitDisabled = false
	}
}

func newTestEnv(t *testing.T, loc models.Location, opts ...envOption) *testEnv {
	t.Helper()

	resolver := geo.NewResolver(geo.DefaultConfig(), &geo.StaticProvider{Location: loc})
	store := analytics.NewMemoryStore(analytics.DefaultCapacity)
	sessions := analytics.NewManager(store, nil, resolver, analytics.DefaultManagerConfig())
	gate := servicearea.NewGate(resolver, servicearea.DefaultRegion(), servicearea.PolicyAllow, sessions)

	jwtManager, err := auth.NewJWTManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	hcfg := HandlerConfig{}
	rcfg := RouterConfig{
		Middleware: DefaultChiMiddlewareConfig(),
		Guard:      servicearea.DefaultGuardConfig(),
	}
	rcfg.Middleware.RateLimitDisabled = true
	for _, opt := range opts {
		opt(&hcfg, &rcfg)
	}

	h := NewHandler(Deps{
		Resolver: resolver,
		Gate:     gate,
		Sessions: sessions,
		JWT:      jwtManager,
	}, hcfg)

	t.Cleanup(func() {
		sessions.Shutdown(context.Background())
		resolver.Close()
	})

	return &testEnv{
		router:   SetupChi(h, rcfg),
		resolver: resolver,
		sessions: sessions,
		store:    store,
		jwt:      jwtManager,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "8.8.8.8")
	for _, m := range mutate {
		m(req)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) adminToken(t *testing.T, role string) func(*http.Request) {
	t.Helper()
	token, err := e.jwt.GenerateToken("ops", role)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// decode unwraps the envelope into data and returns the envelope.
func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) models.APIResponse {
	t.Helper()
	var raw struct {
		Status   string           `json:"status"`
		Data     json.RawMessage  `json:"data"`
		Metadata models.Metadata  `json:"metadata"`
		Error    *models.APIError `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	if data != nil && len(raw.Data) > 0 && string(raw.Data) != "null" {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("decode data %s: %v", raw.Data, err)
		}
	}
	return models.APIResponse{Status: raw.Status, Metadata: raw.Metadata, Error: raw.Error}
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	resp := decode(t, w, nil)
	if resp.Status != "error" || resp.Error == nil || resp.Error.Code != code {
		t.Errorf("error = %+v, want code %s", resp.Error, code)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, irvine())

	w := env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var health models.HealthStatus
	resp := decode(t, w, &health)
	if resp.Status != "success" {
		t.Errorf("envelope status = %q", resp.Status)
	}
	if health.Status != "healthy" || health.Components["sessions"] != "ok" {
		t.Errorf("health = %+v", health)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestLocation(t *testing.T) {
	env := newTestEnv(t, irvine())

	t.Run("client ip", func(t *testing.T) {
		var loc models.Location
		decode(t, env.do(t, http.MethodGet, "/api/v1/location", nil), &loc)
		if loc.City != "Irvine" || loc.IPAddress != "8.8.8.8" {
			t.Errorf("location = %+v", loc)
		}
	})

	t.Run("private client ip is local", func(t *testing.T) {
		var loc models.Location
		decode(t, env.do(t, http.MethodGet, "/api/v1/location", nil, func(r *http.Request) {
			r.Header.Set("X-Forwarded-For", "10.0.0.7")
		}), &loc)
		if !geo.IsLocal(loc) {
			t.Errorf("location = %+v, want local", loc)
		}
	})

	t.Run("self", func(t *testing.T) {
		var loc models.Location
		decode(t, env.do(t, http.MethodGet, "/api/v1/location?scope=self", nil), &loc)
		if loc.City != "Irvine" {
			t.Errorf("location = %+v", loc)
		}
	})
}

func TestAccess(t *testing.T) {
	tests := []struct {
		name    string
		loc     models.Location
		allowed bool
		reason  servicearea.DenialReason
	}{
		{"inside", irvine(), true, ""},
		{"abroad", london(), false, servicearea.ReasonOutsideUSA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.loc)

			var d servicearea.Decision
			decode(t, env.do(t, http.MethodGet, "/api/v1/access", nil), &d)
			if d.Allowed != tt.allowed || d.Reason != tt.reason {
				t.Errorf("decision = %+v", d)
			}
		})
	}
}

func TestGatedContent(t *testing.T) {
	t.Run("granted", func(t *testing.T) {
		env := newTestEnv(t, irvine())
		w := env.do(t, http.MethodGet, "/api/v1/gated/content", nil)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d", w.Code)
		}
	})

	t.Run("denied redirects with transparency", func(t *testing.T) {
		env := newTestEnv(t, london())
		w := env.do(t, http.MethodGet, "/api/v1/gated/content", nil)
		if w.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, want 303", w.Code)
		}
		if loc := w.Header().Get("Location"); loc != servicearea.DefaultOutOfAreaPath {
			t.Errorf("Location = %q", loc)
		}

		var blocked *http.Cookie
		for _, c := range w.Result().Cookies() {
			if c.Name == servicearea.BlockedURLCookie {
				blocked = c
			}
		}
		if blocked == nil {
			t.Fatal("blocked url cookie not set")
		}

		var page struct {
			Detected    servicearea.Transparency `json:"detected"`
			ServiceArea string                   `json:"service_area"`
		}
		decode(t, env.do(t, http.MethodGet, servicearea.DefaultOutOfAreaPath, nil, func(r *http.Request) {
			r.AddCookie(blocked)
		}), &page)
		if page.Detected.City != "London" || page.Detected.BlockedURL != "/api/v1/gated/content" {
			t.Errorf("transparency = %+v", page.Detected)
		}
		if page.ServiceArea != "California, United States" {
			t.Errorf("service_area = %q", page.ServiceArea)
		}
	})
}

func startSession(t *testing.T, env *testEnv, body interface{}, mutate ...func(*http.Request)) (analytics.Session, *httptest.ResponseRecorder) {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/v1/sessions", body, mutate...)
	if w.Code != http.StatusCreated {
		t.Fatalf("start status = %d (body %s)", w.Code, w.Body.String())
	}
	var s analytics.Session
	decode(t, w, &s)
	return s, w
}

// waitForInit polls until the background Init and the first page view,
// retried until Init, have both landed.
func waitForInit(t *testing.T, env *testEnv, id string) analytics.Session {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var s analytics.Session
		w := env.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("get status = %d", w.Code)
		}
		decode(t, w, &s)
		if s.Country != "" && s.Page != "" {
			return s
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("session never initialized")
	return analytics.Session{}
}

func TestSessions_Lifecycle(t *testing.T) {
	env := newTestEnv(t, irvine())

	started, w := startSession(t, env, StartSessionRequest{Page: "/", ScreenResolution: "1920x1080"}, func(r *http.Request) {
		r.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})
	if started.SessionID == "" || !strings.HasPrefix(started.UserID, "user-") {
		t.Fatalf("session = %+v", started)
	}
	if w.Header().Get("Location") != "/api/v1/sessions/"+started.SessionID {
		t.Errorf("Location = %q", w.Header().Get("Location"))
	}

	base := "/api/v1/sessions/" + started.SessionID
	s := waitForInit(t, env, started.SessionID)
	if s.City != "Irvine" || !s.IsUSA || s.Browser != "Chrome" || s.ScreenResolution != "1920x1080" {
		t.Errorf("initialized session = %+v", s)
	}

	if w := env.do(t, http.MethodPost, base+"/pageviews", PageViewRequest{Page: "/services"}); w.Code != http.StatusAccepted {
		t.Fatalf("pageview status = %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, base+"/events", EventRequest{Name: "form_start"}); w.Code != http.StatusAccepted {
		t.Fatalf("event status = %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, base+"/clicks", ClickRequest{Tag: "a", Text: "Call", Href: "tel:+15555550100"}); w.Code != http.StatusAccepted {
		t.Fatalf("click status = %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, base+"/visibility", VisibilityRequest{State: "hidden"}); w.Code != http.StatusAccepted {
		t.Fatalf("visibility status = %d", w.Code)
	}

	w = env.do(t, http.MethodPost, base+"/end", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("end status = %d", w.Code)
	}
	var ended analytics.Session
	decode(t, w, &ended)
	if ended.Page != "/services" || ended.PageViews != 2 {
		t.Errorf("page = %q views = %d", ended.Page, ended.PageViews)
	}
	var names []string
	for _, e := range ended.Events {
		names = append(names, e.Name)
	}
	if strings.Join(names, ",") != "form_start,phone_click" {
		t.Errorf("events = %v", names)
	}
	if ended.DurationMs == nil {
		t.Error("duration not stamped")
	}

	expectError(t, env.do(t, http.MethodGet, base, nil), http.StatusNotFound, ErrCodeNotFound)
	expectError(t, env.do(t, http.MethodPost, base+"/events", EventRequest{Name: "late"}), http.StatusNotFound, ErrCodeNotFound)

	stored, err := env.store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(stored) != 1 || stored[0].SessionID != started.SessionID {
		t.Errorf("stored = %+v", stored)
	}
}

func TestSessions_DeviceCookieKeepsUserID(t *testing.T) {
	env := newTestEnv(t, irvine())

	first, w := startSession(t, env, nil)
	var device *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == DeviceCookie {
			device = c
		}
	}
	if device == nil || !device.HttpOnly {
		t.Fatalf("device cookie = %+v", device)
	}

	second, w := startSession(t, env, nil, func(r *http.Request) { r.AddCookie(device) })
	if second.UserID != first.UserID {
		t.Errorf("user id = %q, want %q", second.UserID, first.UserID)
	}
	if second.SessionID == first.SessionID {
		t.Error("session ids must differ")
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("device cookie re-issued")
	}
}

func TestSessions_BadRequests(t *testing.T) {
	env := newTestEnv(t, irvine())
	s, _ := startSession(t, env, nil)
	base := "/api/v1/sessions/" + s.SessionID

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"invalid event name", base + "/events", EventRequest{Name: "Not Valid!"}, http.StatusBadRequest, ErrCodeValidation},
		{"missing body", base + "/events", nil, http.StatusBadRequest, ErrCodeBadRequest},
		{"unknown field", base + "/pageviews", `{"page":"/","extra":1}`, http.StatusBadRequest, ErrCodeBadRequest},
		{"relative page", base + "/pageviews", PageViewRequest{Page: "services"}, http.StatusBadRequest, ErrCodeValidation},
		{"bad visibility", base + "/visibility", VisibilityRequest{State: "prerender"}, http.StatusBadRequest, ErrCodeValidation},
		{"click without tag", base + "/clicks", ClickRequest{Text: "x"}, http.StatusBadRequest, ErrCodeValidation},
		{"unknown session", "/api/v1/sessions/nope/events", EventRequest{Name: "x"}, http.StatusNotFound, ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, env.do(t, http.MethodPost, tt.path, tt.body), tt.status, tt.code)
		})
	}
}

func TestAnalyticsSummary(t *testing.T) {
	env := newTestEnv(t, irvine())

	s, _ := startSession(t, env, StartSessionRequest{Page: "/"})
	waitForInit(t, env, s.SessionID)
	if w := env.do(t, http.MethodPost, "/api/v1/sessions/"+s.SessionID+"/end", nil); w.Code != http.StatusOK {
		t.Fatalf("end status = %d", w.Code)
	}

	var summary analytics.Summary
	decode(t, env.do(t, http.MethodGet, "/api/v1/analytics/summary?top=5", nil), &summary)
	if summary.TotalSessions != 1 || summary.USASessions != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.TopCities) != 1 || summary.TopCities[0].City != "Irvine, California" {
		t.Errorf("top cities = %+v", summary.TopCities)
	}

	expectError(t, env.do(t, http.MethodGet, "/api/v1/analytics/summary?top=0", nil), http.StatusBadRequest, ErrCodeValidation)
	expectError(t, env.do(t, http.MethodGet, "/api/v1/analytics/summary?top=abc", nil), http.StatusBadRequest, ErrCodeValidation)
}

func TestPageSchemas(t *testing.T) {
	env := newTestEnv(t, irvine())

	w := env.do(t, http.MethodGet, "/api/v1/seo/schemas?page=services&lang=es&url=https://example.com/servicios&title=Servicios", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	var resp SchemaResponse
	decode(t, w, &resp)
	if len(resp.Schemas) == 0 {
		t.Fatal("no schemas")
	}
	if !strings.Contains(resp.JSONLD, "https://schema.org") {
		t.Errorf("json_ld = %s", resp.JSONLD)
	}

	expectError(t, env.do(t, http.MethodGet, "/api/v1/seo/schemas?page=bogus", nil), http.StatusBadRequest, ErrCodeValidation)
	expectError(t, env.do(t, http.MethodGet, "/api/v1/seo/schemas?page=home&lang=fr", nil), http.StatusBadRequest, ErrCodeValidation)
	expectError(t, env.do(t, http.MethodGet, "/api/v1/seo/schemas?page=home&url=/relative", nil), http.StatusBadRequest, ErrCodeValidation)
}

func TestEducationalSchemas(t *testing.T) {
	env := newTestEnv(t, irvine())

	w := env.do(t, http.MethodPost, "/api/v1/seo/educational", map[string]interface{}{
		"type":  "faq",
		"title": "Dry eye questions",
		"url":   "https://example.com/learn/dry-eye",
		"faqs":  []map[string]string{{"question": "What is dry eye?", "answer": "A tear film condition."}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	var resp SchemaResponse
	decode(t, w, &resp)
	if len(resp.Schemas) == 0 {
		t.Error("no schemas")
	}

	expectError(t, env.do(t, http.MethodPost, "/api/v1/seo/educational", map[string]interface{}{
		"type": "poem", "title": "x", "url": "https://example.com",
	}), http.StatusBadRequest, ErrCodeValidation)
}

func TestAdmin(t *testing.T) {
	t.Run("requires token", func(t *testing.T) {
		env := newTestEnv(t, irvine())
		expectError(t, env.do(t, http.MethodDelete, "/api/v1/admin/location-cache", nil), http.StatusUnauthorized, ErrCodeUnauthorized)
	})

	t.Run("requires admin role", func(t *testing.T) {
		env := newTestEnv(t, irvine())
		w := env.do(t, http.MethodDelete, "/api/v1/admin/location-cache", nil, env.adminToken(t, "viewer"))
		expectError(t, w, http.StatusForbidden, ErrCodeForbidden)
	})

	t.Run("test location overrides self", func(t *testing.T) {
		env := newTestEnv(t, london())
		w := env.do(t, http.MethodPut, "/api/v1/admin/test-location", TestLocationRequest{City: "Anaheim"}, env.adminToken(t, auth.RoleAdmin))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
		}

		var d servicearea.Decision
		decode(t, env.do(t, http.MethodGet, "/api/v1/access?scope=self", nil), &d)
		if !d.Allowed || d.Location.City != "Anaheim" {
			t.Errorf("decision = %+v", d)
		}
	})

	t.Run("test location refused in production", func(t *testing.T) {
		env := newTestEnv(t, irvine(), production())
		w := env.do(t, http.MethodPut, "/api/v1/admin/test-location", TestLocationRequest{}, env.adminToken(t, auth.RoleAdmin))
		expectError(t, w, http.StatusForbidden, ErrCodeForbidden)
	})

	t.Run("clear analytics", func(t *testing.T) {
		env := newTestEnv(t, irvine())
		if err := env.store.Save(context.Background(), analytics.Session{SessionID: "s1"}); err != nil {
			t.Fatal(err)
		}
		w := env.do(t, http.MethodDelete, "/api/v1/admin/analytics", nil, env.adminToken(t, auth.RoleAdmin))
		if w.Code != http.StatusNoContent {
			t.Fatalf("status = %d", w.Code)
		}
		if sessions, _ := env.store.List(context.Background()); len(sessions) != 0 {
			t.Errorf("store still holds %d sessions", len(sessions))
		}
	})
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, irvine(), rateLimit(2))

	for i := 0; i < 2; i++ {
		if w := env.do(t, http.MethodGet, "/api/v1/location", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
	expectError(t, env.do(t, http.MethodGet, "/api/v1/location", nil), http.StatusTooManyRequests, ErrCodeTooManyRequests)
}

func TestNotFoundEnvelope(t *testing.T) {
	env := newTestEnv(t, irvine())
	expectError(t, env.do(t, http.MethodGet, "/api/v1/nothing", nil), http.StatusNotFound, ErrCodeNotFound)
	expectError(t, env.do(t, http.MethodDelete, "/health", nil), http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed)
}

func TestSanitizeLogValue(t *testing.T) {
	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue() = %q", got)
	}
}
