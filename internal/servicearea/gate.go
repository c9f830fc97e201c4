// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package servicearea

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/geogate/internal/logging"
	"github.com/tomtom215/geogate/internal/metrics"
	"github.com/tomtom215/geogate/internal/models"
)

// Analytics event names emitted by the gate.
const (
	EventAccessCheck        = "geo_access_check"
	EventAccessDenied       = "geo_access_denied"
	EventAccessGranted      = "geo_access_granted"
	EventAccessUndetermined = "geo_access_undetermined"
)

// LocationSource resolves locations. *geo.Resolver satisfies it.
type LocationSource interface {
	GetLocation(ctx context.Context) models.Location
	Lookup(ctx context.Context, ip string) models.Location
}

// EventRecorder receives the gate's analytics events.
type EventRecorder interface {
	TrackEvent(ctx context.Context, name string, props map[string]interface{})
}

// RecorderFunc adapts a function to EventRecorder.
type RecorderFunc func(ctx context.Context, name string, props map[string]interface{})

// TrackEvent calls f.
func (f RecorderFunc) TrackEvent(ctx context.Context, name string, props map[string]interface{}) {
	f(ctx, name, props)
}

// Gate checks callers against a Region.
type Gate struct {
	source   LocationSource
	region   Region
	policy   UndeterminedPolicy
	recorder EventRecorder
	logger   zerolog.Logger
}

// NewGate creates a gate. recorder may be nil.
func NewGate(source LocationSource, region Region, policy UndeterminedPolicy, recorder EventRecorder) *Gate {
	if policy == "" {
		policy = PolicyAllow
	}
	return &Gate{
		source:   source,
		region:   region,
		policy:   policy,
		recorder: recorder,
		logger:   logging.WithComponent("servicearea"),
	}
}

// Region returns the configured service area.
func (g *Gate) Region() Region {
	return g.region
}

// Policy returns the undetermined-location policy.
func (g *Gate) Policy() UndeterminedPolicy {
	return g.policy
}

// IsInServiceArea reports whether the resolver's own location is allowed.
func (g *Gate) IsInServiceArea(ctx context.Context) bool {
	return g.CheckAccess(ctx).Allowed
}

// CheckAccess evaluates the resolver's own location.
func (g *Gate) CheckAccess(ctx context.Context) Decision {
	return g.decide(ctx, g.source.GetLocation(ctx))
}

// CheckAccessFor evaluates the location of a client address.
func (g *Gate) CheckAccessFor(ctx context.Context, ip string) Decision {
	return g.decide(ctx, g.source.Lookup(ctx, ip))
}

func (g *Gate) decide(ctx context.Context, loc models.Location) Decision {
	d := Evaluate(loc, g.region, g.policy)

	metrics.RecordAccessDecision(string(d.Outcome), string(d.Reason))
	g.emit(ctx, d)

	logging.Ctx(ctx).Debug().
		Str("outcome", string(d.Outcome)).
		Str("reason", string(d.Reason)).
		Str("country", loc.Country).
		Str("region", loc.Region).
		Str("city", loc.City).
		Bool("city_matched", d.CityMatched).
		Msg("Service area decision")

	return d
}

// emit reports every stage of the decision. Failures are logged and dropped.
func (g *Gate) emit(ctx context.Context, d Decision) {
	if g.recorder == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error().Interface("panic", r).Msg("Event recorder panicked")
		}
	}()

	loc := d.Location
	g.recorder.TrackEvent(ctx, EventAccessCheck, map[string]interface{}{
		"country":   loc.Country,
		"region":    loc.Region,
		"city":      loc.City,
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
	})

	switch d.Outcome {
	case OutcomeUndetermined:
		g.recorder.TrackEvent(ctx, EventAccessUndetermined, map[string]interface{}{
			"policy":     string(g.policy),
			"country":    loc.Country,
			"ip_address": loc.IPAddress,
		})
		if !d.Allowed {
			g.recorder.TrackEvent(ctx, EventAccessDenied, map[string]interface{}{
				"reason":  denialStage(d.Reason),
				"country": loc.Country,
			})
		}

	case OutcomeDenied:
		props := map[string]interface{}{"reason": denialStage(d.Reason)}
		switch d.Reason {
		case ReasonOutsideUSA:
			props["country"] = loc.Country
		case ReasonOutsideRegion:
			props["state"] = loc.Region
		default:
			props["city"] = loc.City
			props["coordinates"] = loc.Coordinates()
		}
		g.recorder.TrackEvent(ctx, EventAccessDenied, props)

	case OutcomeGranted:
		props := map[string]interface{}{
			"city":        loc.City,
			"coordinates": loc.Coordinates(),
		}
		if !d.CityMatched {
			props["note"] = "within_bounds_unknown_city"
		}
		g.recorder.TrackEvent(ctx, EventAccessGranted, props)
	}
}

// denialStage maps a reason to the stage label used in telemetry.
func denialStage(reason DenialReason) string {
	switch reason {
	case ReasonOutsideUSA:
		return "non_usa"
	case ReasonOutsideRegion:
		return "non_california"
	case ReasonOutsideServiceArea:
		return "outside_socal_bounds"
	default:
		return string(reason)
	}
}
