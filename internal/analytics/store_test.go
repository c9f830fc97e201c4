// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package analytics

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func openTestBadger(t *testing.T) *badger.DB {
	t.Helper()

	opts := badger.DefaultOptions(filepath.Join(t.TempDir(), "badger"))
	opts.Logger = nil // Disable logging for tests
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("Failed to open BadgerDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// storeFactories runs the same behaviour against every Store.
func storeFactories() map[string]func(t *testing.T, capacity int) Store {
	return map[string]func(t *testing.T, capacity int) Store{
		"memory": func(_ *testing.T, capacity int) Store {
			return NewMemoryStore(capacity)
		},
		"badger": func(t *testing.T, capacity int) Store {
			s, err := NewBadgerStore(openTestBadger(t), capacity)
			if err != nil {
				t.Fatalf("NewBadgerStore() error = %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func testSession(id string, views int) Session {
	return Session{
		SessionID: id,
		UserID:    "user-1",
		StartedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Page:      "/",
		PageViews: views,
		Events:    []Event{},
		Country:   "United States",
	}
}

func TestStore_AppendAndOverwrite(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t, 10)

			_ = s.Save(ctx, testSession("a", 1))
			_ = s.Save(ctx, testSession("b", 1))
			if err := s.Save(ctx, testSession("a", 5)); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			list, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(list) != 2 {
				t.Fatalf("len = %d, want 2", len(list))
			}
			if list[0].SessionID != "a" || list[0].PageViews != 5 {
				t.Errorf("overwrite did not happen in place: %+v", list[0])
			}
			if list[1].SessionID != "b" {
				t.Errorf("order broken: %q", list[1].SessionID)
			}
		})
	}
}

func TestStore_EvictsOldestBeyondCapacity(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t, DefaultCapacity)

			for i := 0; i < DefaultCapacity+15; i++ {
				if err := s.Save(ctx, testSession(fmt.Sprintf("s-%03d", i), 1)); err != nil {
					t.Fatalf("Save(%d) error = %v", i, err)
				}
				list, _ := s.List(ctx)
				if len(list) > DefaultCapacity {
					t.Fatalf("after %d saves len = %d exceeds cap", i+1, len(list))
				}
			}

			list, _ := s.List(ctx)
			if len(list) != DefaultCapacity {
				t.Fatalf("len = %d, want %d", len(list), DefaultCapacity)
			}
			if list[0].SessionID != "s-015" {
				t.Errorf("oldest kept = %q, want s-015", list[0].SessionID)
			}
			if list[len(list)-1].SessionID != "s-114" {
				t.Errorf("newest = %q, want s-114", list[len(list)-1].SessionID)
			}
		})
	}
}

func TestStore_ClearKeepsUserIDs(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t, 10)

			_ = s.Save(ctx, testSession("a", 1))
			if err := s.SetUserID(ctx, "device-1", "user-123"); err != nil {
				t.Fatalf("SetUserID() error = %v", err)
			}
			if err := s.Clear(ctx); err != nil {
				t.Fatalf("Clear() error = %v", err)
			}

			list, _ := s.List(ctx)
			if len(list) != 0 {
				t.Errorf("len after Clear = %d", len(list))
			}

			id, ok, err := s.UserID(ctx, "device-1")
			if err != nil || !ok || id != "user-123" {
				t.Errorf("UserID() = %q, %v, %v", id, ok, err)
			}
			if _, ok, _ := s.UserID(ctx, "device-2"); ok {
				t.Error("unknown device should not have a user id")
			}

			// Saving after Clear starts a fresh order.
			_ = s.Save(ctx, testSession("b", 1))
			list, _ = s.List(ctx)
			if len(list) != 1 || list[0].SessionID != "b" {
				t.Errorf("unexpected list after Clear: %+v", list)
			}
		})
	}
}

func TestMemoryStore_SaveCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	sess := testSession("a", 1)
	sess.Events = []Event{{Name: "x", Properties: map[string]interface{}{"k": "v"}}}
	_ = s.Save(ctx, sess)

	sess.Events[0].Properties["k"] = "mutated"

	list, _ := s.List(ctx)
	if list[0].Events[0].Properties["k"] != "v" {
		t.Error("store must keep its own copy")
	}
}

func TestBadgerStore_SurvivesReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")
	ctx := context.Background()

	s, err := OpenBadgerStore(dir, 5)
	if err != nil {
		t.Fatalf("OpenBadgerStore() error = %v", err)
	}
	d := int64(1500)
	sess := testSession("persisted", 3)
	sess.DurationMs = &d
	_ = s.Save(ctx, sess)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = OpenBadgerStore(dir, 5)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].PageViews != 3 || list[0].DurationMs == nil || *list[0].DurationMs != 1500 {
		t.Errorf("unexpected sessions after reopen: %+v", list)
	}

	// New sessions continue after the persisted sequence.
	_ = s.Save(ctx, testSession("later", 1))
	list, _ = s.List(ctx)
	if len(list) != 2 || list[1].SessionID != "later" {
		t.Errorf("order after reopen broken: %+v", list)
	}
}
