// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package analytics

import (
	"net/http"

	"golang.org/x/text/language"
)

// Environment supplies the client facts a session records.
type Environment interface {
	UserAgent() string
	Language() string
	ScreenResolution() string
	Referrer() string
}

// ScreenResolutionHeader lets clients report their screen size.
const ScreenResolutionHeader = "X-Screen-Resolution"

// HeaderEnvironment reads client facts from an HTTP request.
type HeaderEnvironment struct {
	userAgent string
	language  string
	screen    string
	referrer  string
}

// NewHeaderEnvironment captures the facts of r. screen and referrer, when
// non-empty, take precedence over the request headers; browsers report
// document.referrer and the screen size in the request body.
func NewHeaderEnvironment(r *http.Request, screen, referrer string) *HeaderEnvironment {
	if screen == "" {
		screen = r.Header.Get(ScreenResolutionHeader)
	}
	if referrer == "" {
		referrer = r.Referer()
	}
	return &HeaderEnvironment{
		userAgent: r.UserAgent(),
		language:  primaryLanguage(r.Header.Get("Accept-Language")),
		screen:    screen,
		referrer:  referrer,
	}
}

func (e *HeaderEnvironment) UserAgent() string        { return e.userAgent }
func (e *HeaderEnvironment) Language() string         { return e.language }
func (e *HeaderEnvironment) ScreenResolution() string { return e.screen }
func (e *HeaderEnvironment) Referrer() string         { return e.referrer }

// primaryLanguage returns the highest-weighted tag of an Accept-Language
// header, or "" when there is none.
//
//	"es;q=0.5,en-US" -> "en-US"
func primaryLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return ""
	}
	for _, tag := range tags {
		if tag != language.Und {
			return tag.String()
		}
	}
	return ""
}

// StaticEnvironment is a fixed Environment.
type StaticEnvironment struct {
	UA     string
	Lang   string
	Screen string
	Ref    string
}

func (e StaticEnvironment) UserAgent() string        { return e.UA }
func (e StaticEnvironment) Language() string         { return e.Lang }
func (e StaticEnvironment) ScreenResolution() string { return e.Screen }
func (e StaticEnvironment) Referrer() string         { return e.Ref }
