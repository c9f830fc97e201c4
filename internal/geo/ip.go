// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package geo

import (
	"net/netip"
	"strings"

	"github.com/tomtom215/geogate/internal/models"
)

// LocalCountry marks locations produced for private or loopback addresses.
const LocalCountry = "Local"

var privatePrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("100.64.0.0/10"), // carrier-grade NAT
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// IsPrivateIP reports whether ip is in a private, loopback, link-local or
// CGNAT range. Invalid input returns false.
func IsPrivateIP(ip string) bool {
	addr, err := netip.ParseAddr(NormalizeIP(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range privatePrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// IsValidPublicIP reports whether ip parses and is publicly routable.
func IsValidPublicIP(ip string) bool {
	addr, err := netip.ParseAddr(NormalizeIP(ip))
	if err != nil || addr.IsUnspecified() || addr.IsMulticast() {
		return false
	}
	return !IsPrivateIP(ip)
}

// NormalizeIP strips whitespace, brackets and a trailing port.
//
//	"[::1]:8080"         -> "::1"
//	"203.0.113.7:443"    -> "203.0.113.7"
//	" 2001:db8::1 "      -> "2001:db8::1"
func NormalizeIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if strings.HasPrefix(ip, "[") {
		if idx := strings.LastIndex(ip, "]:"); idx != -1 {
			return ip[1:idx]
		}
		return strings.Trim(ip, "[]")
	}
	if strings.Count(ip, ":") == 1 {
		return ip[:strings.LastIndex(ip, ":")]
	}
	return ip
}

// LocalLocation is the answer for private/LAN addresses, which cannot be
// geolocated.
func LocalLocation(ip string) models.Location {
	return models.Location{
		Country:   LocalCountry,
		Region:    models.Unknown,
		City:      "Local Network",
		Timezone:  models.LocalTimezone(),
		IPAddress: ip,
	}
}

// IsLocal reports whether loc came from LocalLocation.
func IsLocal(loc models.Location) bool {
	return loc.Country == LocalCountry
}
