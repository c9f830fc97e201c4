// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

/*
Package api serves geogate over HTTP with the chi router.

Every JSON endpoint answers with the models.APIResponse envelope:

	{"status": "success", "data": {...}, "metadata": {"timestamp": "..."}}
	{"status": "error", "data": null, "metadata": {...}, "error": {"code": "NOT_FOUND", "message": "..."}}

# Endpoints

	GET    /health                                 liveness and component status
	GET    /metrics                                Prometheus
	GET    /out-of-service-area                    why the caller was redirected
	GET    /api/v1/location[?scope=self]           caller (or server) location
	GET    /api/v1/access[?scope=self]             service-area decision
	POST   /api/v1/sessions                        start a session
	GET    /api/v1/sessions/{id}                   session snapshot
	POST   /api/v1/sessions/{id}/pageviews         track a page view
	POST   /api/v1/sessions/{id}/events            track a named event
	POST   /api/v1/sessions/{id}/clicks            classify and track a click
	POST   /api/v1/sessions/{id}/visibility        page hidden or visible
	POST   /api/v1/sessions/{id}/end               finalize the session
	GET    /api/v1/analytics/summary[?top=N]       aggregate of stored sessions
	GET    /api/v1/seo/schemas?page=...            JSON-LD for a site page
	POST   /api/v1/seo/educational                 JSON-LD for an educational page
	GET    /api/v1/live                            websocket live feed
	GET    /api/v1/gated/content                   service-area gated content
	PUT    /api/v1/admin/test-location             override the server location
	DELETE /api/v1/admin/location-cache            drop memoized locations
	DELETE /api/v1/admin/analytics                 clear stored sessions

Admin routes require an HS256 bearer token with the admin role and are only
mounted when a JWT manager is configured.

Requests carrying X-Session-ID have that id attached to their context, so the
gate's access events land in the caller's session.
*/
package api
