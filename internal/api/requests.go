// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package api

import (
	"github.com/tomtom215/geogate/internal/seo"
)

// StartSessionRequest starts a session. Every field is optional.
type StartSessionRequest struct {
	Page             string `json:"page" validate:"omitempty,pagepath,max=2048"`
	Referrer         string `json:"referrer" validate:"omitempty,max=2048"`
	ScreenResolution string `json:"screen_resolution" validate:"omitempty,max=32"`
}

// PageViewRequest tracks a page view.
type PageViewRequest struct {
	Page string `json:"page" validate:"required,pagepath,max=2048"`
}

// EventRequest tracks a named event.
type EventRequest struct {
	Name       string                 `json:"name" validate:"required,eventname"`
	Properties map[string]interface{} `json:"properties" validate:"omitempty,max=50"`
}

// ClickRequest reports a click caught by the delegated listener.
type ClickRequest struct {
	Tag  string `json:"tag" validate:"required,max=32"`
	Text string `json:"text" validate:"max=512"`
	Href string `json:"href" validate:"max=2048"`
}

// VisibilityRequest reports a visibilitychange.
type VisibilityRequest struct {
	State string `json:"state" validate:"required,oneof=hidden visible"`
}

// TestLocationRequest overrides the server location. Empty fields take the
// reference location's values.
type TestLocationRequest struct {
	Country   string  `json:"country" validate:"max=100"`
	Region    string  `json:"region" validate:"max=100"`
	City      string  `json:"city" validate:"max=100"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Timezone  string  `json:"timezone" validate:"max=64"`
}

// EducationalPageRequest describes an educational page to build JSON-LD for.
type EducationalPageRequest struct {
	Type        string               `json:"type" validate:"required,oneof=faq guide blog"`
	Title       string               `json:"title" validate:"required,max=300"`
	Description string               `json:"description" validate:"max=1000"`
	URL         string               `json:"url" validate:"required,url"`
	Content     string               `json:"content" validate:"max=100000"`
	FAQs        []seo.FAQ            `json:"faqs" validate:"omitempty,max=100,dive"`
	Condition   string               `json:"condition" validate:"max=200"`
	Keywords    []string             `json:"keywords" validate:"omitempty,max=50"`
	Related     []seo.RelatedContent `json:"related" validate:"omitempty,max=50"`
	Snippet     *seo.Snippet         `json:"snippet"`
}

func (req EducationalPageRequest) page() seo.EducationalPage {
	return seo.EducationalPage{
		Type:        seo.EducationalType(req.Type),
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		Content:     req.Content,
		FAQs:        req.FAQs,
		Condition:   req.Condition,
		Keywords:    req.Keywords,
		Related:     req.Related,
		Snippet:     req.Snippet,
	}
}
