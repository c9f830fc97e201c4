// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

// Package auth protects the admin endpoints with HS256 JWTs
// (golang-jwt/jwt/v5). Tokens are issued offline with the same secret, for
// example by the admin-token command, and presented as
// "Authorization: Bearer <token>". Only the admin role is accepted.
package auth
