// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

// Package validation validates API request bodies with go-playground/validator
// v10 and converts failures to VALIDATION_ERROR responses.
//
// A single validator is shared by the process; it caches struct metadata and
// is safe for concurrent use. Error field names are the json tag names, so
// messages match what the client sent:
//
//	type pageViewRequest struct {
//	    Page string `json:"page" validate:"required,pagepath,max=2048"`
//	}
package validation
