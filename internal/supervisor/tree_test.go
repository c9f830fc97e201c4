// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestTree(t *testing.T, cfg TreeConfig) *SupervisorTree {
	t.Helper()
	tree, err := NewSupervisorTree(quietLogger(), cfg)
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}
	return tree
}

// waitForStarts polls until svc has been started at least n times.
func waitForStarts(t *testing.T, svc interface{ StartCount() int32 }, n int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for svc.StartCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("service started %d times, want >= %d", svc.StartCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewSupervisorTree_Config(t *testing.T) {
	tests := []struct {
		name string
		in   TreeConfig
		want TreeConfig
	}{
		{"zero takes defaults", TreeConfig{}, DefaultTreeConfig()},
		{
			"explicit values kept",
			TreeConfig{FailureThreshold: 2, FailureDecay: 5, FailureBackoff: time.Second, ShutdownTimeout: 3 * time.Second},
			TreeConfig{FailureThreshold: 2, FailureDecay: 5, FailureBackoff: time.Second, ShutdownTimeout: 3 * time.Second},
		},
		{
			"partial config filled",
			TreeConfig{ShutdownTimeout: time.Second},
			TreeConfig{FailureThreshold: 5, FailureDecay: 30, FailureBackoff: 15 * time.Second, ShutdownTimeout: time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := newTestTree(t, tt.in)
			if tree.config != tt.want {
				t.Errorf("config = %+v, want %+v", tree.config, tt.want)
			}
			if tree.Root() == nil {
				t.Error("Root() = nil")
			}
		})
	}
}

func TestSupervisorTree_StartsEveryLayer(t *testing.T) {
	tree := newTestTree(t, TreeConfig{ShutdownTimeout: time.Second})

	sweeper := NewMockService("session-sweeper")
	hub := NewMockService("websocket-hub")
	server := NewMockService("http-server")
	tree.AddDataService(sweeper)
	tree.AddMessagingService(hub)
	tree.AddAPIService(server)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	for _, svc := range []*MockService{sweeper, hub, server} {
		waitForStarts(t, svc, 1)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop")
	}
}

func TestSupervisorTree_RestartsFailingService(t *testing.T) {
	tree := newTestTree(t, TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	relay := NewMockService("livefeed-relay")
	relay.SetFailCount(2)
	server := NewMockService("http-server")
	tree.AddMessagingService(relay)
	tree.AddAPIService(server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tree.Serve(ctx) }()

	waitForStarts(t, relay, 3)
	waitForStarts(t, server, 1)
	if server.StartCount() != 1 {
		t.Errorf("http-server restarted: %d starts", server.StartCount())
	}
}

func TestSupervisorTree_RecoversPanics(t *testing.T) {
	tree := newTestTree(t, TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	flusher := NewPanicService("clickhouse-flusher")
	tree.AddDataService(flusher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tree.Serve(ctx) }()

	waitForStarts(t, flusher, 2)
}

func TestSupervisorTree_ServeBackgroundHonorsDeadline(t *testing.T) {
	tree := newTestTree(t, TreeConfig{ShutdownTimeout: time.Second})
	tree.AddDataService(NewMockService("session-sweeper"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	select {
	case err := <-tree.ServeBackground(ctx):
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop at the deadline")
	}
}
