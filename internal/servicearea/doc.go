// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

/*
Package servicearea decides whether a resolved location lies inside the
practice's service area.

The decision is hierarchical:

 1. country must equal Region.Country, else outside_usa
 2. region must equal Region.State, else outside_region
 3. (lat, lon) must lie inside Region.Bounds, else outside_service_area
 4. otherwise the caller is allowed

The city allowlist is advisory. A match sets Decision.CityMatched and is
reported in telemetry; a miss never denies.

A location the resolver could not determine (the fallback location, or a
private network address) produces OutcomeUndetermined. The
UndeterminedPolicy decides whether such callers are let through (PolicyAllow,
the default) or denied with ReasonUndetermined.

Evaluate is pure and performs no I/O. Gate wraps it with location
resolution, decision metrics and analytics events; Guard adapts Gate to
net/http middleware.

Usage:

	gate := servicearea.NewGate(resolver, servicearea.DefaultRegion(), servicearea.PolicyAllow, manager)
	r.With(gate.Guard(servicearea.DefaultGuardConfig())).Get("/book", handler)
*/
package servicearea
