// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package models

import (
	"fmt"
	"time"
)

// Unknown is the placeholder for any location string the lookup could not supply.
const Unknown = "Unknown"

// Location is the best-effort geographic position of a caller.
//
// String fields hold Unknown when the lookup did not supply them; numeric
// fields hold 0. Fallback is true only for the degraded location produced when
// every lookup failed, which lets callers tell "lookup failed" apart from a
// genuine answer that happens to contain Unknown fields.
type Location struct {
	Country   string  `json:"country"`
	Region    string  `json:"region"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	IPAddress string  `json:"ip_address"`
	Fallback  bool    `json:"fallback,omitempty"`
}

// FallbackLocation returns the degraded location: every string Unknown,
// coordinates 0, timezone taken from the local runtime.
func FallbackLocation() Location {
	return Location{
		Country:   Unknown,
		Region:    Unknown,
		City:      Unknown,
		Timezone:  LocalTimezone(),
		IPAddress: Unknown,
		Fallback:  true,
	}
}

// LocalTimezone returns the IANA name of the runtime's local zone.
func LocalTimezone() string {
	name := time.Local.String()
	if name == "" || name == "Local" {
		return "UTC"
	}
	return name
}

// WithDefaults fills empty string fields with Unknown.
func (l Location) WithDefaults() Location {
	if l.Country == "" {
		l.Country = Unknown
	}
	if l.Region == "" {
		l.Region = Unknown
	}
	if l.City == "" {
		l.City = Unknown
	}
	if l.Timezone == "" {
		l.Timezone = Unknown
	}
	if l.IPAddress == "" {
		l.IPAddress = Unknown
	}
	return l
}

// Coordinates formats the position as "lat,lon".
func (l Location) Coordinates() string {
	return fmt.Sprintf("%g,%g", l.Latitude, l.Longitude)
}
