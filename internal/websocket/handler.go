// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package websocket

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/geogate/internal/logging"
)

// Handler upgrades live-feed connections. Browser connections must carry an
// Origin in allowedOrigins ("*" allows any origin).
func Handler(hub *Hub, allowedOrigins []string) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r.Header.Get("Origin"), allowedOrigins)
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the error response.
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Live feed upgrade failed")
			return
		}

		client := NewClient(hub, conn)
		select {
		case hub.Register <- client:
			client.Start()
		case <-r.Context().Done():
			_ = conn.Close()
		}
	}
}

func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		logging.Warn().Msg("Live feed connection rejected: missing Origin header")
		return false
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	logging.Warn().Str("origin", sanitize(origin)).Msg("Live feed connection rejected from unauthorized origin")
	return false
}

// sanitize strips control characters before logging client input.
func sanitize(s string) string {
	if len(s) > 200 {
		s = s[:200]
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
