// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package analytics

import (
	"strings"

	"github.com/dmitrymomot/foundation/pkg/useragent"
)

const unknown = "Unknown"

// Client is what a User-Agent string says about the visitor.
type Client struct {
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version"`
	OS             string `json:"os"`
	Device         string `json:"device"`
	IsMobile       bool   `json:"is_mobile"`
}

// ParseUserAgent classifies a User-Agent string into the labels stored on a
// session. Anything unrecognized is "Unknown"; bots and unparseable strings
// count as Desktop.
func ParseUserAgent(raw string) Client {
	c := Client{Browser: unknown, BrowserVersion: unknown, OS: unknown, Device: "Desktop"}

	ua, err := useragent.Parse(raw)
	if err != nil {
		return c
	}

	c.Browser = browserLabel(ua.BrowserName())
	if c.Browser != unknown {
		c.BrowserVersion = majorMinor(ua.BrowserVer())
	}
	c.OS = osLabel(ua.OS())

	switch ua.DeviceType() {
	case useragent.DeviceTypeTablet:
		c.Device = "Tablet"
	case useragent.DeviceTypeMobile:
		c.Device = "Mobile"
	}
	c.IsMobile = c.Device != "Desktop"
	return c
}

// browserLabel keeps the four tracked browser families. Edge is checked
// before Chrome since its name may carry both.
func browserLabel(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "edge"):
		return "Edge"
	case strings.Contains(n, "firefox"):
		return "Firefox"
	case strings.Contains(n, "chrome"):
		return "Chrome"
	case strings.Contains(n, "safari"):
		return "Safari"
	default:
		return unknown
	}
}

// osLabel checks mobile platforms first: Android is a Linux and iOS names
// can mention Mac.
func osLabel(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "windows"):
		return "Windows"
	case strings.Contains(n, "android"):
		return "Android"
	case strings.Contains(n, "ios"), strings.Contains(n, "iphone"), strings.Contains(n, "ipad"):
		return "iOS"
	case strings.Contains(n, "mac"):
		return "macOS"
	case strings.Contains(n, "linux"):
		return "Linux"
	default:
		return unknown
	}
}

// majorMinor trims "124.0.6367.91" to "124.0".
func majorMinor(v string) string {
	if v == "" {
		return unknown
	}
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 2 {
		return parts[0]
	}
	return parts[0] + "." + parts[1]
}
