// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package servicearea

import (
	"fmt"

	"github.com/tomtom215/geogate/internal/geo"
	"github.com/tomtom215/geogate/internal/models"
)

// Outcome classifies a decision.
type Outcome string

const (
	OutcomeGranted      Outcome = "granted"
	OutcomeDenied       Outcome = "denied"
	OutcomeUndetermined Outcome = "undetermined"
)

// DenialReason explains a denial. The empty value means "allowed".
type DenialReason string

const (
	ReasonOutsideUSA         DenialReason = "outside_usa"
	ReasonOutsideRegion      DenialReason = "outside_region"
	ReasonOutsideServiceArea DenialReason = "outside_service_area"
	// ReasonUndetermined is only produced under PolicyDeny.
	ReasonUndetermined DenialReason = "location_undetermined"
)

// UndeterminedPolicy decides what happens when the location is unknown.
type UndeterminedPolicy string

const (
	PolicyAllow UndeterminedPolicy = "allow"
	PolicyDeny  UndeterminedPolicy = "deny"
)

// ParsePolicy converts a config string. Empty means PolicyAllow.
func ParsePolicy(s string) (UndeterminedPolicy, error) {
	switch UndeterminedPolicy(s) {
	case "", PolicyAllow:
		return PolicyAllow, nil
	case PolicyDeny:
		return PolicyDeny, nil
	default:
		return "", fmt.Errorf("unknown undetermined policy %q (want allow or deny)", s)
	}
}

// Decision is the result of one access check.
//
// Reason is non-empty if and only if Allowed is false.
type Decision struct {
	Allowed     bool            `json:"allowed"`
	Location    models.Location `json:"location"`
	Reason      DenialReason    `json:"reason,omitempty"`
	Outcome     Outcome         `json:"outcome"`
	CityMatched bool            `json:"city_matched"`
}

// Undetermined reports whether loc carries no usable position: the resolver
// fell back, the caller is on a private network, or no country was supplied.
func Undetermined(loc models.Location) bool {
	return loc.Fallback || geo.IsLocal(loc) || loc.Country == "" || loc.Country == models.Unknown
}

// Evaluate applies the hierarchical service-area check to loc.
func Evaluate(loc models.Location, region Region, policy UndeterminedPolicy) Decision {
	d := Decision{Location: loc}

	if Undetermined(loc) {
		d.Outcome = OutcomeUndetermined
		if policy == PolicyDeny {
			d.Reason = ReasonUndetermined
		} else {
			d.Allowed = true
		}
		return d
	}

	switch {
	case loc.Country != region.Country:
		d.Reason = ReasonOutsideUSA
	case loc.Region != region.State:
		d.Reason = ReasonOutsideRegion
	case !region.Bounds.Contains(loc.Latitude, loc.Longitude):
		d.Reason = ReasonOutsideServiceArea
	default:
		d.Allowed = true
		d.Outcome = OutcomeGranted
		d.CityMatched = region.MatchCity(loc.City)
		return d
	}

	d.Outcome = OutcomeDenied
	return d
}
