// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package servicearea

import (
	"errors"
	"fmt"
	"strings"
)

// Bounds is a latitude/longitude rectangle. It does not handle boxes that
// cross the antimeridian.
type Bounds struct {
	North float64 `json:"north" koanf:"north"`
	South float64 `json:"south" koanf:"south"`
	East  float64 `json:"east" koanf:"east"`
	West  float64 `json:"west" koanf:"west"`
}

// Contains reports whether south <= lat <= north and west <= lon <= east.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.South && lat <= b.North && lon >= b.West && lon <= b.East
}

// Validate checks that the rectangle is well formed.
func (b Bounds) Validate() error {
	if b.North < -90 || b.North > 90 || b.South < -90 || b.South > 90 {
		return fmt.Errorf("latitude out of range: north=%g south=%g", b.North, b.South)
	}
	if b.East < -180 || b.East > 180 || b.West < -180 || b.West > 180 {
		return fmt.Errorf("longitude out of range: east=%g west=%g", b.East, b.West)
	}
	if b.South >= b.North {
		return fmt.Errorf("south (%g) must be below north (%g)", b.South, b.North)
	}
	if b.West >= b.East {
		return fmt.Errorf("west (%g) must be below east (%g)", b.West, b.East)
	}
	return nil
}

// Region is the target service area.
type Region struct {
	Country string   `json:"country"`
	State   string   `json:"state"`
	Bounds  Bounds   `json:"bounds"`
	Cities  []string `json:"cities"`
}

// Southern California: Bakersfield to the Mexican border, Pacific coast to
// the Arizona line.
var socalBounds = Bounds{
	North: 35.8,
	South: 32.5,
	East:  -114.1,
	West:  -121.0,
}

var socalCities = []string{
	"Los Angeles", "San Diego", "San Jose", "San Francisco", "Fresno",
	"Long Beach", "Anaheim", "Santa Ana", "Riverside", "Irvine",
	"San Bernardino", "Fontana", "Oxnard", "Moreno Valley", "Glendale",
	"Huntington Beach", "Ontario", "Rancho Cucamonga", "Oceanside",
	"Garden Grove", "Palmdale", "Corona", "Torrance", "Pomona",
	"Escondido", "Sunnyvale", "Pasadena", "Fullerton", "Orange",
	"Thousand Oaks", "Simi Valley", "Victorville", "Ventura", "Santa Barbara",
	"Newport Beach", "Costa Mesa", "Tustin", "Laguna Beach", "Mission Viejo",
}

// DefaultRegion returns the Southern California service area.
func DefaultRegion() Region {
	cities := make([]string, len(socalCities))
	copy(cities, socalCities)
	return Region{
		Country: "United States",
		State:   "California",
		Bounds:  socalBounds,
		Cities:  cities,
	}
}

// DefaultCities returns a copy of the default city allowlist.
func DefaultCities() []string {
	return DefaultRegion().Cities
}

// MatchCity reports whether city contains any allowlisted name, ignoring
// case. "North Tustin" matches "Tustin".
func (r Region) MatchCity(city string) bool {
	city = strings.ToLower(strings.TrimSpace(city))
	if city == "" {
		return false
	}
	for _, c := range r.Cities {
		if c == "" {
			continue
		}
		if strings.Contains(city, strings.ToLower(c)) {
			return true
		}
	}
	return false
}

// Validate checks the region definition.
func (r Region) Validate() error {
	if r.Country == "" {
		return errors.New("service area country is required")
	}
	if r.State == "" {
		return errors.New("service area state is required")
	}
	if err := r.Bounds.Validate(); err != nil {
		return fmt.Errorf("service area bounds: %w", err)
	}
	for i, c := range r.Cities {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("service area city %d is blank", i)
		}
	}
	return nil
}
