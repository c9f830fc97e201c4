// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/thejerf/suture/v4"
)

func TestNATSServerService_Interface(t *testing.T) {
	var _ suture.Service = (*NATSServerService)(nil)
}

func TestNATSServerService_ServesClients(t *testing.T) {
	svc := NewNATSServerService(NATSServerConfig{Port: -1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	select {
	case <-svc.Ready():
	case err := <-done:
		t.Fatalf("Serve() returned early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("server not ready")
	}

	nc, err := natsgo.Connect(svc.ClientURL())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	sub, err := nc.SubscribeSync("analytics.>")
	if err != nil {
		t.Fatalf("SubscribeSync() error = %v", err)
	}
	if err := nc.Publish("analytics.page_view", []byte(`{}`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if _, err := sub.NextMsg(2 * time.Second); err != nil {
		t.Errorf("NextMsg() error = %v", err)
	}
	nc.Close()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	if svc.String() != "nats-server" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestNATSServerService_Defaults(t *testing.T) {
	svc := NewNATSServerService(NATSServerConfig{})
	if svc.cfg.Host != "127.0.0.1" || svc.cfg.Port != 4222 || svc.cfg.ReadyTimeout != 30*time.Second {
		t.Errorf("cfg = %+v", svc.cfg)
	}
	if svc.ClientURL() != "" {
		t.Error("ClientURL must be empty before Serve")
	}
}
