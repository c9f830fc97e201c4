// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/tomtom215/geogate/internal/logging"
)

// NATSServerConfig configures the embedded broker.
type NATSServerConfig struct {
	Host string
	// Port -1 picks a random free port.
	Port      int
	JetStream bool
	// StoreDir holds JetStream data. Required with JetStream.
	StoreDir     string
	ReadyTimeout time.Duration
}

// NATSServerService runs an in-process NATS server for single-instance
// deployments, so the analytics sink and the live-feed relay need no
// external broker.
type NATSServerService struct {
	cfg NATSServerConfig

	mu        sync.RWMutex
	clientURL string
	ready     chan struct{}
	readyOnce sync.Once
}

// NewNATSServerService creates the service. The server starts in Serve.
func NewNATSServerService(cfg NATSServerConfig) *NATSServerService {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 4222
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 30 * time.Second
	}
	return &NATSServerService{cfg: cfg, ready: make(chan struct{})}
}

// Serve starts the server and shuts it down when ctx is done.
func (s *NATSServerService) Serve(ctx context.Context) error {
	ns, err := server.NewServer(&server.Options{
		ServerName: "geogate",
		Host:       s.cfg.Host,
		Port:       s.cfg.Port,
		JetStream:  s.cfg.JetStream,
		StoreDir:   s.cfg.StoreDir,
		NoSigs:     true,
		MaxPayload: 1024 * 1024,
	})
	if err != nil {
		return fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(s.cfg.ReadyTimeout) {
		ns.Shutdown()
		return fmt.Errorf("NATS server not ready within %s", s.cfg.ReadyTimeout)
	}

	s.mu.Lock()
	s.clientURL = ns.ClientURL()
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })

	logging.Info().
		Str("url", ns.ClientURL()).
		Bool("jetstream", s.cfg.JetStream).
		Msg("Embedded NATS server started")

	<-ctx.Done()
	ns.Shutdown()
	ns.WaitForShutdown()
	logging.Info().Msg("Embedded NATS server stopped")
	return ctx.Err()
}

// Ready is closed once the server first accepts connections.
func (s *NATSServerService) Ready() <-chan struct{} {
	return s.ready
}

// ClientURL returns the connection URL, empty before the server is ready.
func (s *NATSServerService) ClientURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientURL
}

// String names the service for the supervisor.
func (s *NATSServerService) String() string { return "nats-server" }
