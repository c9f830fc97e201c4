// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package analytics

import (
	"context"
	"sync"
)

// DefaultCapacity is how many sessions a store keeps.
const DefaultCapacity = 100

// Store persists sessions.
//
// Save overwrites an existing session with the same SessionID in place and
// appends new sessions. When the number of sessions exceeds the capacity the
// oldest session is evicted first, so List never returns more than the
// capacity.
type Store interface {
	Save(ctx context.Context, s Session) error
	// List returns sessions oldest first.
	List(ctx context.Context) ([]Session, error)
	// Clear drops all sessions. User ids are kept.
	Clear(ctx context.Context) error

	// UserID returns the user id issued to a device key.
	UserID(ctx context.Context, key string) (string, bool, error)
	SetUserID(ctx context.Context, key, userID string) error

	Close() error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions []Session
	users    map[string]string
	capacity int
}

// NewMemoryStore creates a store. capacity <= 0 means DefaultCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		users:    make(map[string]string),
		capacity: capacity,
	}
}

// Save stores a copy of s.
func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s = s.Clone()
	for i := range m.sessions {
		if m.sessions[i].SessionID == s.SessionID {
			m.sessions[i] = s
			return nil
		}
	}

	m.sessions = append(m.sessions, s)
	if over := len(m.sessions) - m.capacity; over > 0 {
		// Copy down so the evicted sessions do not pin the backing array.
		m.sessions = append(m.sessions[:0:0], m.sessions[over:]...)
	}
	return nil
}

// List returns copies of the stored sessions.
func (m *MemoryStore) List(_ context.Context) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Session, len(m.sessions))
	for i, s := range m.sessions {
		out[i] = s.Clone()
	}
	return out, nil
}

// Clear drops all sessions.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.sessions = nil
	m.mu.Unlock()
	return nil
}

// UserID returns the user id for key.
func (m *MemoryStore) UserID(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.users[key]
	return id, ok, nil
}

// SetUserID records the user id for key.
func (m *MemoryStore) SetUserID(_ context.Context, key, userID string) error {
	m.mu.Lock()
	m.users[key] = userID
	m.mu.Unlock()
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
