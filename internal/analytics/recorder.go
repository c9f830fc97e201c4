// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/geogate/internal/logging"
	"github.com/tomtom215/geogate/internal/metrics"
	"github.com/tomtom215/geogate/internal/models"
)

// EventPageView is the sink event name for page views.
const EventPageView = "page_view"

var errPanic = errors.New("analytics: store panicked")

// DefaultFlushEvents are persisted as soon as they are tracked.
var DefaultFlushEvents = []string{"appointment_request", "phone_click", "form_submit"}

// RecorderConfig tunes a Recorder.
type RecorderConfig struct {
	// TargetCountry decides Session.IsUSA. Page views are persisted only for
	// sessions in this country.
	TargetCountry string

	// FlushEvents are persisted immediately.
	FlushEvents []string

	// RetryInterval and MaxRetries bound how long a page view tracked before
	// Init keeps waiting for it.
	RetryInterval time.Duration
	MaxRetries    int

	// StoreName labels store metrics.
	StoreName string
}

// DefaultRecorderConfig returns the recorder defaults.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		TargetCountry: "United States",
		FlushEvents:   DefaultFlushEvents,
		RetryInterval: 100 * time.Millisecond,
		MaxRetries:    50,
		StoreName:     "memory",
	}
}

type pendingEvent struct {
	name  string
	at    time.Time
	props map[string]interface{}
}

// Recorder accumulates one Session. It is safe for concurrent use; calls
// are recorded in the order they acquire the recorder.
type Recorder struct {
	cfg    RecorderConfig
	store  Store
	sinks  *Fanout
	flush  map[string]struct{}
	logger zerolog.Logger
	now    func() time.Time

	mu          sync.Mutex
	session     Session
	start       time.Time
	initialized bool
	ended       bool
	pending     []pendingEvent
	timers      map[*time.Timer]struct{}
}

// NewRecorder creates the recorder for one session. store and sinks may be nil.
func NewRecorder(sessionID, userID string, store Store, sinks *Fanout, cfg RecorderConfig) *Recorder {
	return newRecorder(sessionID, userID, store, sinks, cfg, time.Now)
}

func newRecorder(sessionID, userID string, store Store, sinks *Fanout, cfg RecorderConfig, now func() time.Time) *Recorder {
	def := DefaultRecorderConfig()
	if cfg.TargetCountry == "" {
		cfg.TargetCountry = def.TargetCountry
	}
	if cfg.FlushEvents == nil {
		cfg.FlushEvents = def.FlushEvents
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.StoreName == "" {
		cfg.StoreName = def.StoreName
	}

	flush := make(map[string]struct{}, len(cfg.FlushEvents))
	for _, name := range cfg.FlushEvents {
		flush[name] = struct{}{}
	}

	start := now()
	return &Recorder{
		cfg:    cfg,
		store:  store,
		sinks:  sinks,
		flush:  flush,
		now:    now,
		logger: logging.WithComponent("analytics").With().Str("session_id", sessionID).Logger(),
		start:  start,
		session: Session{
			SessionID:    sessionID,
			UserID:       userID,
			StartedAt:    start,
			PageViews:    1,
			Events:       []Event{},
			LastActivity: start,
		},
		timers: make(map[*time.Timer]struct{}),
	}
}

// ID returns the session id.
func (r *Recorder) ID() string {
	return r.session.SessionID
}

// Init records the environment and location facts. Events tracked before
// Init are replayed in order. Only the first call has any effect.
func (r *Recorder) Init(ctx context.Context, env Environment, loc models.Location) {
	r.mu.Lock()
	if r.initialized || r.ended {
		r.mu.Unlock()
		return
	}

	client := ParseUserAgent(env.UserAgent())
	s := &r.session
	s.UserAgent = env.UserAgent()
	s.Language = env.Language()
	s.ScreenResolution = env.ScreenResolution()
	s.Referrer = env.Referrer()
	if s.Referrer == "" {
		s.Referrer = "Direct"
	}
	s.Browser = client.Browser
	s.BrowserVersion = client.BrowserVersion
	s.OS = client.OS
	s.Device = client.Device
	s.IsMobile = client.IsMobile

	loc = loc.WithDefaults()
	s.Country = loc.Country
	s.Region = loc.Region
	s.City = loc.City
	s.Timezone = loc.Timezone
	s.Latitude = loc.Latitude
	s.Longitude = loc.Longitude
	s.IsUSA = loc.Country == r.cfg.TargetCountry

	// Queued events land in Events before initialized is published, so a
	// TrackEvent racing with Init cannot overtake them.
	pending := r.pending
	r.pending = nil
	flush := false
	for _, p := range pending {
		if r.appendLocked(p.name, p.props, p.at) {
			flush = true
		}
	}
	r.initialized = true
	r.mu.Unlock()

	r.logger.Debug().
		Str("browser", client.Browser).
		Str("device", client.Device).
		Str("country", loc.Country).
		Str("city", loc.City).
		Msg("Session initialized")

	for _, p := range pending {
		r.forward(ctx, p.name, p.props)
	}
	if flush {
		r.save(ctx)
	}
}

// Initialized reports whether Init has run.
func (r *Recorder) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

// Ended reports whether End has run.
func (r *Recorder) Ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

// LastActivity returns when the session was last touched.
func (r *Recorder) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.LastActivity
}

// TrackPageView records a view of page. The first view after Init only sets
// the page; later views also increment PageViews. Before Init the view is
// retried every RetryInterval, up to MaxRetries times.
func (r *Recorder) TrackPageView(ctx context.Context, page string) {
	r.trackPageView(ctx, page, 0)
}

func (r *Recorder) trackPageView(ctx context.Context, page string, attempt int) {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return
	}
	if !r.initialized {
		if attempt >= r.cfg.MaxRetries {
			r.mu.Unlock()
			r.logger.Warn().Str("page", page).Int("attempts", attempt).Msg("Session never initialized, dropping page view")
			return
		}
		r.scheduleLocked(func() {
			r.trackPageView(context.WithoutCancel(ctx), page, attempt+1)
		})
		r.mu.Unlock()
		return
	}

	s := &r.session
	if s.Page != "" {
		s.PageViews++
	}
	s.Page = page
	s.LastActivity = r.now()
	persist := s.IsUSA
	r.mu.Unlock()

	metrics.RecordAnalyticsEvent(EventPageView)
	r.sinks.Record(r.ctx(ctx), EventPageView, map[string]interface{}{"page": page})

	if persist {
		r.save(ctx)
	}
}

// scheduleLocked runs fn after RetryInterval unless End runs first.
func (r *Recorder) scheduleLocked(fn func()) {
	var t *time.Timer
	t = time.AfterFunc(r.cfg.RetryInterval, func() {
		r.mu.Lock()
		_, live := r.timers[t]
		delete(r.timers, t)
		r.mu.Unlock()
		if live {
			fn()
		}
	})
	r.timers[t] = struct{}{}
}

// TrackEvent appends an event. Events tracked before Init are queued and
// appended, in order, when Init runs.
func (r *Recorder) TrackEvent(ctx context.Context, name string, props map[string]interface{}) {
	if name == "" {
		return
	}

	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		r.logger.Debug().Str("event", name).Msg("Event after session end ignored")
		return
	}
	if !r.initialized {
		r.pending = append(r.pending, pendingEvent{name: name, at: r.now(), props: copyProps(props)})
		r.mu.Unlock()
		return
	}
	flush := r.appendLocked(name, props, r.now())
	r.mu.Unlock()

	r.forward(ctx, name, props)
	if flush {
		r.save(ctx)
	}
}

// appendLocked adds an event to the session and reports whether its name
// forces an immediate save. r.mu must be held.
func (r *Recorder) appendLocked(name string, props map[string]interface{}, at time.Time) bool {
	r.session.Events = append(r.session.Events, Event{
		Name:       name,
		Timestamp:  at,
		Properties: copyProps(props),
	})
	r.session.LastActivity = r.now()
	_, flush := r.flush[name]
	return flush
}

func (r *Recorder) forward(ctx context.Context, name string, props map[string]interface{}) {
	metrics.RecordAnalyticsEvent(name)
	r.sinks.Record(r.ctx(ctx), name, props)
}

// TrackClick records a click reported by the delegated click listener.
// Clicks on anything but buttons and tel:/mailto: links are ignored.
func (r *Recorder) TrackClick(ctx context.Context, c Click) {
	name, props, ok := c.Event()
	if !ok {
		return
	}
	r.TrackEvent(ctx, name, props)
}

// Hide records that the page became hidden: the duration is stamped (once)
// and the session is persisted. Tracking may continue afterwards.
func (r *Recorder) Hide(ctx context.Context) {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return
	}
	r.stampLocked()
	r.mu.Unlock()

	r.save(ctx)
}

// End finalizes the session: the duration is stamped (once), pending
// retries are cancelled and the session is persisted. Later calls to any
// tracking method are ignored.
func (r *Recorder) End(ctx context.Context) {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return
	}
	r.stampLocked()
	r.ended = true
	for t := range r.timers {
		t.Stop()
	}
	r.timers = make(map[*time.Timer]struct{})
	dropped := len(r.pending)
	r.pending = nil
	r.mu.Unlock()

	if dropped > 0 {
		r.logger.Debug().Int("events", dropped).Msg("Session ended before initialization, dropping queued events")
	}
	r.save(ctx)
}

func (r *Recorder) stampLocked() {
	if r.session.DurationMs != nil {
		return
	}
	d := r.now().Sub(r.start).Milliseconds()
	r.session.DurationMs = &d
}

// Session returns a deep copy of the current session.
func (r *Recorder) Session() Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Clone()
}

// save persists a snapshot. Errors are logged and counted.
func (r *Recorder) save(ctx context.Context) {
	if r.store == nil {
		return
	}
	snapshot := r.Session()

	defer func() {
		if rec := recover(); rec != nil {
			metrics.RecordStoreWrite(r.cfg.StoreName, errPanic)
			r.logger.Error().Interface("panic", rec).Msg("Session store panicked")
		}
	}()

	err := r.store.Save(context.WithoutCancel(ctx), snapshot)
	metrics.RecordStoreWrite(r.cfg.StoreName, err)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to persist session")
	}
}

// ctx attaches the session id for sinks that report it.
func (r *Recorder) ctx(ctx context.Context) context.Context {
	if logging.SessionIDFromContext(ctx) == r.session.SessionID {
		return ctx
	}
	return logging.ContextWithSessionID(ctx, r.session.SessionID)
}
