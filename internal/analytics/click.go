// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package analytics

import (
	"strings"
)

// Click event names.
const (
	EventPhoneClick  = "phone_click"
	EventEmailClick  = "email_click"
	EventButtonClick = "button_click"
)

// Click is an element activation reported by the page.
type Click struct {
	// Tag is the element name, e.g. "button" or "a".
	Tag  string `json:"tag" validate:"required,max=32"`
	Text string `json:"text" validate:"max=512"`
	Href string `json:"href" validate:"max=2048"`
}

// Event classifies the click. Buttons become button_click, tel: links
// phone_click and mailto: links email_click; anything else is not tracked.
func (c Click) Event() (string, map[string]interface{}, bool) {
	tag := strings.ToLower(strings.TrimSpace(c.Tag))
	href := strings.TrimSpace(c.Href)
	lowerHref := strings.ToLower(href)

	var name string
	switch {
	case tag == "a" && strings.HasPrefix(lowerHref, "tel:"):
		name = EventPhoneClick
	case tag == "a" && strings.HasPrefix(lowerHref, "mailto:"):
		name = EventEmailClick
	case tag == "button":
		name = EventButtonClick
	default:
		return "", nil, false
	}

	props := map[string]interface{}{"text": strings.TrimSpace(c.Text)}
	if href != "" {
		props["href"] = href
	}
	return name, props, true
}
