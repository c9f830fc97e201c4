// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

var (
	sinkSchemes = []string{"http", "https"}
	natsSchemes = []string{"nats", "tls", "ws", "wss"}
)

// parseURLWithScheme parses rawURL and requires a host and one of schemes.
func parseURLWithScheme(rawURL, field string, schemes []string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	if !slices.Contains(schemes, u.Scheme) {
		return nil, fmt.Errorf("%s: scheme must be one of %s, got %q", field, strings.Join(schemes, "/"), u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%s: host is required", field)
	}
	return u, nil
}

// validateEndpointURL checks a sink endpoint. Query strings are rejected
// because sinks append their own parameters.
func validateEndpointURL(rawURL, field string) error {
	u, err := parseURLWithScheme(rawURL, field, sinkSchemes)
	if err != nil {
		return err
	}
	if u.RawQuery != "" {
		return fmt.Errorf("%s: remove query string ?%s", field, u.RawQuery)
	}
	return nil
}

func validateNATSURL(rawURL string) error {
	_, err := parseURLWithScheme(rawURL, "NATS_URL", natsSchemes)
	return err
}
