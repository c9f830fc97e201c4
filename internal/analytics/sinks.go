// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package analytics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/geogate/internal/logging"
	"github.com/tomtom215/geogate/internal/metrics"
)

// Sink receives every tracked page view and event.
type Sink interface {
	Record(ctx context.Context, name string, props map[string]interface{}) error
	Name() string
}

// Fanout delivers to every sink, isolating each from the others' failures.
type Fanout struct {
	sinks   []Sink
	async   bool
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewFanout creates a synchronous fanout.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// NewAsyncFanout creates a fanout that delivers each record on its own
// goroutine, detached from the caller's cancellation and bounded by timeout.
func NewAsyncFanout(timeout time.Duration, sinks ...Sink) *Fanout {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Fanout{sinks: sinks, async: true, timeout: timeout}
}

// Sinks returns the configured sinks.
func (f *Fanout) Sinks() []Sink {
	if f == nil {
		return nil
	}
	return f.sinks
}

// Record delivers name and props to every sink. It never fails.
func (f *Fanout) Record(ctx context.Context, name string, props map[string]interface{}) {
	if f == nil {
		return
	}
	if !f.async {
		for _, s := range f.sinks {
			// Each sink gets its own copy.
			deliver(ctx, s, name, copyProps(props))
		}
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		logging.Ctx(ctx).Debug().Str("event", name).Msg("Analytics fanout closed, event dropped")
		return
	}
	for _, s := range f.sinks {
		p := copyProps(props)
		f.wg.Add(1)
		go func(s Sink) {
			defer f.wg.Done()
			dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
			defer cancel()
			deliver(dctx, s, name, p)
		}(s)
	}
}

// Wait stops accepting records and blocks until asynchronous deliveries
// finish. Records arriving after Wait starts are dropped.
func (f *Fanout) Wait() {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.wg.Wait()
}

func deliver(ctx context.Context, s Sink, name string, props map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordSinkFailure(s.Name())
			logging.Ctx(ctx).Error().
				Interface("panic", r).
				Str("sink", s.Name()).
				Str("event", name).
				Msg("Analytics sink panicked")
		}
	}()

	if err := s.Record(ctx, name, props); err != nil {
		metrics.RecordSinkFailure(s.Name())
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("sink", s.Name()).
			Str("event", name).
			Msg("Analytics sink failed")
	}
}

// ========================================
// Data layer
// ========================================

// DataLayerSink keeps tag-manager style entries ({"event": name, ...props})
// in a bounded in-memory array, newest last.
type DataLayerSink struct {
	mu      sync.Mutex
	entries []map[string]interface{}
	limit   int
}

// NewDataLayerSink creates a data layer holding at most limit entries
// (1000 when limit <= 0).
func NewDataLayerSink(limit int) *DataLayerSink {
	if limit <= 0 {
		limit = 1000
	}
	return &DataLayerSink{limit: limit}
}

// Name returns "datalayer".
func (d *DataLayerSink) Name() string { return "datalayer" }

// Record pushes an entry.
func (d *DataLayerSink) Record(_ context.Context, name string, props map[string]interface{}) error {
	entry := make(map[string]interface{}, len(props)+1)
	for k, v := range props {
		entry[k] = v
	}
	entry["event"] = name

	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, entry)
	if over := len(d.entries) - d.limit; over > 0 {
		d.entries = append(d.entries[:0:0], d.entries[over:]...)
	}
	return nil
}

// Entries returns a copy of the data layer.
func (d *DataLayerSink) Entries() []map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]map[string]interface{}, len(d.entries))
	for i, e := range d.entries {
		out[i] = copyProps(e)
	}
	return out
}

// ========================================
// HTTP sinks
// ========================================

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post %s: status %d", req.URL.Host, resp.StatusCode)
	}
	return nil
}

func sinkClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: 5 * time.Second}
}

// PixelEventName maps an analytics event to the pixel's standard event.
func PixelEventName(name string) string {
	switch name {
	case "form_start", "appointment_start":
		return "InitiateCheckout"
	case "form_complete":
		return "Lead"
	case "appointment_request":
		return "Schedule"
	case "phone_call", "phone_click", "email_click":
		return "Contact"
	case "button_click":
		return "ViewContent"
	default:
		return "CustomEvent"
	}
}

// PixelSink posts conversion events to a pixel endpoint.
type PixelSink struct {
	client  *http.Client
	url     string
	pixelID string
	token   string
}

// NewPixelSink creates a pixel sink posting to url.
func NewPixelSink(client *http.Client, url, pixelID, token string) *PixelSink {
	return &PixelSink{client: sinkClient(client), url: url, pixelID: pixelID, token: token}
}

// Name returns "pixel".
func (p *PixelSink) Name() string { return "pixel" }

type pixelPayload struct {
	PixelID    string                 `json:"pixel_id,omitempty"`
	EventName  string                 `json:"event_name"`
	EventTime  int64                  `json:"event_time"`
	Source     string                 `json:"source_event"`
	CustomData map[string]interface{} `json:"custom_data,omitempty"`
}

// Record posts the mapped event.
func (p *PixelSink) Record(ctx context.Context, name string, props map[string]interface{}) error {
	headers := map[string]string{}
	if p.token != "" {
		headers["Authorization"] = "Bearer " + p.token
	}
	return postJSON(ctx, p.client, p.url, headers, pixelPayload{
		PixelID:    p.pixelID,
		EventName:  PixelEventName(name),
		EventTime:  time.Now().Unix(),
		Source:     name,
		CustomData: props,
	})
}

// CallTrackingSink posts {event, properties} to a call-tracking endpoint.
type CallTrackingSink struct {
	client *http.Client
	url    string
	token  string
}

// NewCallTrackingSink creates a call-tracking sink posting to url.
func NewCallTrackingSink(client *http.Client, url, token string) *CallTrackingSink {
	return &CallTrackingSink{client: sinkClient(client), url: url, token: token}
}

// Name returns "calltracking".
func (c *CallTrackingSink) Name() string { return "calltracking" }

// Record posts the event.
func (c *CallTrackingSink) Record(ctx context.Context, name string, props map[string]interface{}) error {
	headers := map[string]string{}
	if c.token != "" {
		headers["Authorization"] = "Token token=" + c.token
	}
	return postJSON(ctx, c.client, c.url, headers, map[string]interface{}{
		"event":      name,
		"properties": props,
	})
}
