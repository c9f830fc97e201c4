// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package models

import "time"

// APIResponse is the envelope every JSON endpoint returns.
//
// Status is "success" or "error". Error is populated only for errors.
//
//	{
//	  "status": "success",
//	  "data": {"allowed": true, "outcome": "granted", ...},
//	  "metadata": {"timestamp": "2026-10-18T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError is a machine-readable error code plus a human message.
//
// Codes in use: VALIDATION_ERROR, NOT_FOUND, UNAUTHORIZED, FORBIDDEN,
// CONFLICT, INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is returned by the health endpoint.
type HealthStatus struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	Uptime        float64           `json:"uptime_seconds"`
	Components    map[string]string `json:"components,omitempty"`
	ActiveSession int               `json:"active_sessions"`
}
