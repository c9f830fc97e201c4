// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package analytics

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/geogate/internal/logging"
	"github.com/tomtom215/geogate/internal/metrics"
	"github.com/tomtom215/geogate/internal/models"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("analytics: session not found")

	// ErrSessionEnded is returned when a session has already been finalized.
	ErrSessionEnded = errors.New("analytics: session ended")
)

// LocationSource resolves client locations. *geo.Resolver satisfies it.
type LocationSource interface {
	Lookup(ctx context.Context, ip string) models.Location
}

// ManagerConfig tunes a Manager.
type ManagerConfig struct {
	// IdleTimeout ends sessions with no activity for this long.
	// Default: 30m
	IdleTimeout time.Duration

	// SweepInterval is how often idle sessions are looked for.
	// Default: 1m
	SweepInterval time.Duration

	Recorder RecorderConfig
}

// DefaultManagerConfig returns the manager defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		IdleTimeout:   30 * time.Minute,
		SweepInterval: time.Minute,
		Recorder:      DefaultRecorderConfig(),
	}
}

// StartParams describes a new session.
type StartParams struct {
	// DeviceKey identifies the browser. Sessions from the same device get
	// the same user id.
	DeviceKey string
	ClientIP  string
	Env       Environment
	// Page, when set, is tracked as the first page view.
	Page string
}

// Manager owns the live recorders.
type Manager struct {
	store   Store
	sinks   *Fanout
	locator LocationSource
	cfg     ManagerConfig
	logger  zerolog.Logger
	now     func() time.Time

	mu        sync.RWMutex
	recorders map[string]*Recorder

	// inits tracks background initializations so Shutdown can wait for them.
	inits sync.WaitGroup
}

// NewManager creates a manager. store and sinks may be nil.
func NewManager(store Store, sinks *Fanout, locator LocationSource, cfg ManagerConfig) *Manager {
	def := DefaultManagerConfig()
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	return &Manager{
		store:     store,
		sinks:     sinks,
		locator:   locator,
		cfg:       cfg,
		logger:    logging.WithComponent("analytics-manager"),
		now:       time.Now,
		recorders: make(map[string]*Recorder),
	}
}

// Store returns the session store.
func (m *Manager) Store() Store {
	return m.store
}

// Start creates a session and returns its recorder. The client location is
// resolved in the background; the recorder queues tracking until then.
func (m *Manager) Start(ctx context.Context, p StartParams) (*Recorder, error) {
	userID, err := m.UserIDFor(ctx, p.DeviceKey)
	if err != nil {
		return nil, err
	}

	sessionID, err := NewSessionID(m.now())
	if err != nil {
		return nil, err
	}

	rec := newRecorder(sessionID, userID, m.store, m.sinks, m.cfg.Recorder, m.now)

	m.mu.Lock()
	m.recorders[sessionID] = rec
	active := len(m.recorders)
	m.mu.Unlock()
	metrics.SetActiveSessions(active)

	env := p.Env
	if env == nil {
		env = StaticEnvironment{}
	}

	bg := logging.ContextWithSessionID(context.WithoutCancel(ctx), sessionID)
	m.inits.Add(1)
	go func() {
		defer m.inits.Done()
		loc := models.FallbackLocation()
		if m.locator != nil {
			loc = m.locator.Lookup(bg, p.ClientIP)
		}
		rec.Init(bg, env, loc)
	}()

	if p.Page != "" {
		rec.TrackPageView(bg, p.Page)
	}

	m.logger.Debug().Str("session_id", sessionID).Str("user_id", userID).Msg("Session started")
	return rec, nil
}

// UserIDFor returns the stable user id for a device key, issuing and
// storing a new one when needed. An empty key always gets a fresh id.
func (m *Manager) UserIDFor(ctx context.Context, deviceKey string) (string, error) {
	if deviceKey != "" && m.store != nil {
		id, ok, err := m.store.UserID(ctx, deviceKey)
		if err != nil {
			m.logger.Warn().Err(err).Msg("Failed to read user id, issuing a new one")
		} else if ok {
			return id, nil
		}
	}

	id, err := NewUserID(m.now())
	if err != nil {
		return "", err
	}
	if deviceKey != "" && m.store != nil {
		if err := m.store.SetUserID(ctx, deviceKey, id); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to persist user id")
		}
	}
	return id, nil
}

// Get returns a live recorder.
func (m *Manager) Get(id string) (*Recorder, error) {
	m.mu.RLock()
	rec, ok := m.recorders[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if rec.Ended() {
		return nil, ErrSessionEnded
	}
	return rec, nil
}

// Active returns the number of live sessions.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.recorders)
}

// End finalizes a session and forgets it.
func (m *Manager) End(ctx context.Context, id string) (Session, error) {
	rec, err := m.Get(id)
	if err != nil {
		return Session{}, err
	}
	rec.End(ctx)
	m.remove(id)
	return rec.Session(), nil
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.recorders, id)
	active := len(m.recorders)
	m.mu.Unlock()
	metrics.SetActiveSessions(active)
}

// TrackEvent records an event for the session named in ctx
// (logging.ContextWithSessionID). Without a live session the event still
// reaches the sinks. It satisfies servicearea.EventRecorder.
func (m *Manager) TrackEvent(ctx context.Context, name string, props map[string]interface{}) {
	if id := logging.SessionIDFromContext(ctx); id != "" {
		if rec, err := m.Get(id); err == nil {
			rec.TrackEvent(ctx, name, props)
			return
		}
	}
	metrics.RecordAnalyticsEvent(name)
	m.sinks.Record(ctx, name, props)
}

// Sweep ends sessions idle for longer than IdleTimeout and returns how many
// were ended.
func (m *Manager) Sweep(ctx context.Context) int {
	cutoff := m.now().Add(-m.cfg.IdleTimeout)

	m.mu.RLock()
	var idle []*Recorder
	for _, rec := range m.recorders {
		if rec.LastActivity().Before(cutoff) {
			idle = append(idle, rec)
		}
	}
	m.mu.RUnlock()

	for _, rec := range idle {
		rec.End(ctx)
		m.remove(rec.ID())
	}
	if len(idle) > 0 {
		m.logger.Info().Int("sessions", len(idle)).Msg("Ended idle sessions")
	}
	return len(idle)
}

// Shutdown ends every live session.
func (m *Manager) Shutdown(ctx context.Context) {
	m.inits.Wait()

	m.mu.Lock()
	recs := make([]*Recorder, 0, len(m.recorders))
	for _, rec := range m.recorders {
		recs = append(recs, rec)
	}
	m.recorders = make(map[string]*Recorder)
	m.mu.Unlock()

	for _, rec := range recs {
		rec.End(ctx)
	}
	metrics.SetActiveSessions(0)
	m.sinks.Wait()
}

// Serve sweeps idle sessions until ctx is done, then ends all sessions. It
// implements suture.Service.
func (m *Manager) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Shutdown(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// String names the service for the supervisor.
func (m *Manager) String() string { return "session-sweeper" }

// Summary summarizes the persisted sessions.
func (m *Manager) Summary(ctx context.Context, topN int) (Summary, error) {
	target := m.cfg.Recorder.TargetCountry
	if target == "" {
		target = DefaultRecorderConfig().TargetCountry
	}
	if m.store == nil {
		return Summarize(nil, target, topN), nil
	}
	sessions, err := m.store.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list sessions: %w", err)
	}
	return Summarize(sessions, target, topN), nil
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomBase36(n int) (string, error) {
	b := make([]byte, n)
	limit := big.NewInt(int64(len(base36)))
	for i := range b {
		v, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("random id: %w", err)
		}
		b[i] = base36[v.Int64()]
	}
	return string(b), nil
}

// NewSessionID returns "<unix ms>-<9 base36 chars>".
func NewSessionID(now time.Time) (string, error) {
	suffix, err := randomBase36(9)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix), nil
}

// NewUserID returns "user-<unix ms>-<9 base36 chars>".
func NewUserID(now time.Time) (string, error) {
	suffix, err := randomBase36(9)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("user-%d-%s", now.UnixMilli(), suffix), nil
}
