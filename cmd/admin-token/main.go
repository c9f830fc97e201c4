// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

// Command admin-token mints a bearer token for the geogate admin endpoints.
//
//	ADMIN_JWT_SECRET=... admin-token -user ops -ttl 1h
//
// The secret is read from ADMIN_JWT_SECRET, never from the command line.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tomtom215/geogate/internal/auth"
	"github.com/tomtom215/geogate/internal/logging"
)

func main() {
	user := flag.String("user", "admin", "username recorded in the token")
	role := flag.String("role", auth.RoleAdmin, "role claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	token, err := mint(os.Getenv("ADMIN_JWT_SECRET"), *user, *role, *ttl)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to mint admin token")
	}
	fmt.Println(token)
}

func mint(secret, user, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("ADMIN_JWT_SECRET is not set")
	}
	m, err := auth.NewJWTManager(secret, ttl)
	if err != nil {
		return "", err
	}
	return m.GenerateToken(user, role)
}
