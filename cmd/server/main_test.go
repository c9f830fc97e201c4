// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/tomtom215/geogate/internal/analytics"
	"github.com/tomtom215/geogate/internal/config"
	"github.com/tomtom215/geogate/internal/supervisor"
	ws "github.com/tomtom215/geogate/internal/websocket"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	return cfg
}

func testTree(t *testing.T) *supervisor.SupervisorTree {
	t.Helper()
	tree, err := supervisor.NewSupervisorTree(slog.New(slog.DiscardHandler), supervisor.DefaultTreeConfig())
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}
	return tree
}

func sinkNames(f *analytics.Fanout) []string {
	var names []string
	for _, s := range f.Sinks() {
		names = append(names, s.Name())
	}
	return names
}

func TestOpenStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Analytics.Store = "memory"
		store, err := openStore(cfg)
		if err != nil {
			t.Fatalf("openStore() error = %v", err)
		}
		defer store.Close()
		if _, ok := store.(*analytics.MemoryStore); !ok {
			t.Errorf("store = %T, want *MemoryStore", store)
		}
	})

	t.Run("badger", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Analytics.Store = "badger"
		cfg.Analytics.BadgerDir = t.TempDir()
		store, err := openStore(cfg)
		if err != nil {
			t.Fatalf("openStore() error = %v", err)
		}
		defer store.Close()
		if _, ok := store.(*analytics.BadgerStore); !ok {
			t.Errorf("store = %T, want *BadgerStore", store)
		}
	})
}

func TestBuildSinks(t *testing.T) {
	t.Run("defaults feed the hub directly", func(t *testing.T) {
		cfg := testConfig(t)
		fanout, closeFn, err := buildSinks(context.Background(), cfg, ws.NewHub(), nil, testTree(t))
		if err != nil {
			t.Fatalf("buildSinks() error = %v", err)
		}
		defer closeFn()

		got := sinkNames(fanout)
		if len(got) != 2 || got[0] != "datalayer" || got[1] != "livefeed" {
			t.Errorf("sinks = %v, want [datalayer livefeed]", got)
		}
	})

	t.Run("relay replaces the in-process live feed", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Sinks.DataLayer.Enabled = false
		fanout, closeFn, err := buildSinks(context.Background(), cfg, ws.NewHub(), &natsComponents{relaying: true}, testTree(t))
		if err != nil {
			t.Fatalf("buildSinks() error = %v", err)
		}
		defer closeFn()
		for _, name := range sinkNames(fanout) {
			if name == "livefeed" {
				t.Error("livefeed sink configured while relaying")
			}
		}
	})

	t.Run("no hub no live feed", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Sinks.DataLayer.Enabled = false
		fanout, closeFn, err := buildSinks(context.Background(), cfg, nil, nil, testTree(t))
		if err != nil {
			t.Fatalf("buildSinks() error = %v", err)
		}
		defer closeFn()
		if got := sinkNames(fanout); len(got) != 0 {
			t.Errorf("sinks = %v, want none", got)
		}
	})
}

func TestInitNATS_Disabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.NATS.Enabled = false
	c, err := initNATS(cfg, testTree(t), nil)
	if err != nil || c != nil {
		t.Errorf("initNATS() = %v, %v; want nil, nil", c, err)
	}
	c.Close()
}
