// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package analytics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/geogate/internal/breaker"
	"github.com/tomtom215/geogate/internal/logging"
	"github.com/tomtom215/geogate/internal/metrics"
)

func TestFanout_IsolatesFailures(t *testing.T) {
	good := &captureSink{name: "good"}
	bad := &captureSink{name: "bad", err: errors.New("unreachable")}

	before := testutil.ToFloat64(metrics.AnalyticsSinkFailures.WithLabelValues("bad"))
	beforePanic := testutil.ToFloat64(metrics.AnalyticsSinkFailures.WithLabelValues("panic"))

	f := NewFanout(bad, panicSink{}, good)
	f.Record(context.Background(), "form_start", map[string]interface{}{"form": "contact"})

	if got := good.names(); len(got) != 1 || got[0] != "form_start" {
		t.Errorf("good sink events = %v", got)
	}
	if d := testutil.ToFloat64(metrics.AnalyticsSinkFailures.WithLabelValues("bad")) - before; d != 1 {
		t.Errorf("bad sink failures delta = %v", d)
	}
	if d := testutil.ToFloat64(metrics.AnalyticsSinkFailures.WithLabelValues("panic")) - beforePanic; d != 1 {
		t.Errorf("panic sink failures delta = %v", d)
	}
}

func TestFanout_EachSinkGetsOwnCopy(t *testing.T) {
	mutator := &mutatingSink{}
	observer := &captureSink{}

	props := map[string]interface{}{"page": "/"}
	NewFanout(mutator, observer).Record(context.Background(), "page_view", props)

	if props["page"] != "/" {
		t.Error("caller props were modified")
	}
	if observer.props[0]["page"] != "/" {
		t.Errorf("observer saw %v", observer.props[0])
	}
}

type mutatingSink struct{}

func (mutatingSink) Name() string { return "mutating" }
func (mutatingSink) Record(_ context.Context, _ string, props map[string]interface{}) error {
	props["page"] = "/changed"
	return nil
}

type blockingSink struct {
	release chan struct{}
	got     atomic.Int32
	ctxErr  atomic.Value
}

func (b *blockingSink) Name() string { return "blocking" }
func (b *blockingSink) Record(ctx context.Context, _ string, _ map[string]interface{}) error {
	select {
	case <-b.release:
	case <-ctx.Done():
		b.ctxErr.Store(ctx.Err())
	}
	b.got.Add(1)
	return nil
}

func TestAsyncFanout_DetachedFromCaller(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	f := NewAsyncFanout(time.Second, sink)

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	f.Record(ctx, "button_click", nil)
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("async Record blocked the caller")
	}
	cancel()

	time.Sleep(20 * time.Millisecond)
	if sink.got.Load() != 0 {
		t.Fatal("delivery was cancelled with the caller")
	}

	close(sink.release)
	f.Wait()
	if sink.got.Load() != 1 {
		t.Errorf("deliveries = %d, want 1", sink.got.Load())
	}
}

func TestAsyncFanout_Timeout(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	f := NewAsyncFanout(20*time.Millisecond, sink)

	f.Record(context.Background(), "button_click", nil)
	f.Wait()

	if err, _ := sink.ctxErr.Load().(error); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("ctx err = %v, want deadline exceeded", err)
	}
}

func TestAsyncFanout_DropsRecordsOnceWaitStarts(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	f := NewAsyncFanout(time.Second, sink)
	f.Record(context.Background(), "page_view", nil)

	waited := make(chan struct{})
	go func() {
		f.Wait()
		close(waited)
	}()

	deadline := time.Now().Add(time.Second)
	for {
		f.mu.Lock()
		closed := f.closed
		f.mu.Unlock()
		if closed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Wait never closed the fanout")
		}
		time.Sleep(time.Millisecond)
	}

	// Gate events can still arrive from in-flight requests during shutdown.
	f.Record(context.Background(), "geo_access_check", nil)
	close(sink.release)

	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}
	if got := sink.got.Load(); got != 1 {
		t.Errorf("deliveries = %d, want 1", got)
	}
}

func TestFanout_NilSafe(t *testing.T) {
	var f *Fanout
	f.Record(context.Background(), "x", nil)
	f.Wait()
	if f.Sinks() != nil {
		t.Error("nil fanout has no sinks")
	}
}

func TestDataLayerSink(t *testing.T) {
	d := NewDataLayerSink(2)

	for _, name := range []string{"a", "b", "c"} {
		if err := d.Record(context.Background(), name, map[string]interface{}{"n": name}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	entries := d.Entries()
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0]["event"] != "b" || entries[1]["event"] != "c" || entries[1]["n"] != "c" {
		t.Errorf("entries = %v", entries)
	}

	entries[0]["event"] = "mutated"
	if d.Entries()[0]["event"] != "b" {
		t.Error("Entries must return a copy")
	}
}

func TestPixelEventName(t *testing.T) {
	tests := map[string]string{
		"form_start":          "InitiateCheckout",
		"appointment_start":   "InitiateCheckout",
		"form_complete":       "Lead",
		"appointment_request": "Schedule",
		"phone_call":          "Contact",
		"phone_click":         "Contact",
		"email_click":         "Contact",
		"button_click":        "ViewContent",
		"page_view":           "CustomEvent",
		"geo_access_denied":   "CustomEvent",
	}
	for in, want := range tests {
		if got := PixelEventName(in); got != want {
			t.Errorf("PixelEventName(%q) = %q, want %q", in, got, want)
		}
	}
}

type capturedRequest struct {
	auth string
	body map[string]interface{}
}

func captureServer(t *testing.T, status int) (*httptest.Server, <-chan capturedRequest) {
	t.Helper()
	ch := make(chan capturedRequest, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(data, &body)
		ch <- capturedRequest{auth: r.Header.Get("Authorization"), body: body}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, ch
}

func TestPixelSink(t *testing.T) {
	server, reqs := captureServer(t, http.StatusOK)
	p := NewPixelSink(server.Client(), server.URL, "px-1", "secret")

	err := p.Record(context.Background(), "form_complete", map[string]interface{}{"form": "contact"})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	req := <-reqs
	if req.auth != "Bearer secret" {
		t.Errorf("Authorization = %q", req.auth)
	}
	if req.body["event_name"] != "Lead" || req.body["source_event"] != "form_complete" || req.body["pixel_id"] != "px-1" {
		t.Errorf("body = %v", req.body)
	}
	if data, _ := req.body["custom_data"].(map[string]interface{}); data["form"] != "contact" {
		t.Errorf("custom_data = %v", req.body["custom_data"])
	}
}

func TestCallTrackingSink(t *testing.T) {
	server, reqs := captureServer(t, http.StatusAccepted)
	c := NewCallTrackingSink(server.Client(), server.URL, "tok")

	if err := c.Record(context.Background(), "phone_click", map[string]interface{}{"phone": "tel:+19496582372"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	req := <-reqs
	if req.auth != "Token token=tok" {
		t.Errorf("Authorization = %q", req.auth)
	}
	if req.body["event"] != "phone_click" {
		t.Errorf("body = %v", req.body)
	}
}

func TestHTTPSink_ErrorStatus(t *testing.T) {
	server, _ := captureServer(t, http.StatusInternalServerError)
	c := NewCallTrackingSink(server.Client(), server.URL, "")

	if err := c.Record(context.Background(), "phone_click", nil); err == nil {
		t.Error("expected error for 500 response")
	}
}

// fakeWriter records inserted batches.
type fakeWriter struct {
	mu      sync.Mutex
	batches [][]PublishedEvent
	err     error
	closed  bool
}

func (f *fakeWriter) InsertEvents(_ context.Context, events []PublishedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, append([]PublishedEvent(nil), events...))
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWriter) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *fakeWriter) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func TestClickHouseSink_FlushesFullBatch(t *testing.T) {
	w := &fakeWriter{}
	c := newClickHouseSink(w, ClickHouseConfig{BatchSize: 3})

	ctx := logging.ContextWithSessionID(context.Background(), "sess-1")
	for i := 0; i < 2; i++ {
		if err := c.Record(ctx, "page_view", nil); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if w.batchCount() != 0 || c.Buffered() != 2 {
		t.Fatalf("flushed early: batches=%d buffered=%d", w.batchCount(), c.Buffered())
	}

	if err := c.Record(ctx, "form_start", map[string]interface{}{"form": "contact"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if w.batchCount() != 1 || c.Buffered() != 0 {
		t.Fatalf("batch not flushed: batches=%d buffered=%d", w.batchCount(), c.Buffered())
	}

	batch := w.batches[0]
	if len(batch) != 3 || batch[2].Name != "form_start" || batch[0].SessionID != "sess-1" || batch[0].EventID == "" {
		t.Errorf("batch = %+v", batch)
	}
}

func TestClickHouseSink_RequeuesOnFailure(t *testing.T) {
	w := &fakeWriter{err: errors.New("connection refused")}
	c := newClickHouseSink(w, ClickHouseConfig{BatchSize: 10})

	_ = c.Record(context.Background(), "a", nil)
	_ = c.Record(context.Background(), "b", nil)

	if err := c.Flush(context.Background()); err == nil {
		t.Fatal("expected flush error")
	}
	if c.Buffered() != 2 {
		t.Fatalf("Buffered() = %d, want 2", c.Buffered())
	}

	w.setErr(nil)
	_ = c.Record(context.Background(), "c", nil)
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	batch := w.batches[0]
	if len(batch) != 3 || batch[0].Name != "a" || batch[2].Name != "c" {
		t.Errorf("requeued order wrong: %+v", batch)
	}
}

func TestClickHouseSink_BufferBounded(t *testing.T) {
	w := &fakeWriter{err: errors.New("down")}
	c := newClickHouseSink(w, ClickHouseConfig{BatchSize: 2, MaxBuffered: 3})

	for i := 0; i < 6; i++ {
		_ = c.Record(context.Background(), "e", nil)
	}
	if c.Buffered() > 3 {
		t.Errorf("Buffered() = %d, want <= 3", c.Buffered())
	}
}

func TestClickHouseSink_ServeFlushesOnStop(t *testing.T) {
	w := &fakeWriter{}
	c := newClickHouseSink(w, ClickHouseConfig{BatchSize: 100, FlushInterval: time.Hour})
	_ = c.Record(context.Background(), "page_view", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx) }()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if w.batchCount() != 1 {
		t.Errorf("final flush missing, batches = %d", w.batchCount())
	}
	if err := c.Close(); err != nil || !w.closed {
		t.Errorf("Close() = %v closed=%v", err, w.closed)
	}
	if c.String() != "clickhouse-flusher" {
		t.Errorf("String() = %q", c.String())
	}
}

func TestNATSSink_Publishes(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	defer pubsub.Close()

	sink := newNATSSink(pubsub, NATSConfig{SubjectPrefix: "geogate"})
	if sink.Subject("page_view") != "geogate.page_view" {
		t.Fatalf("Subject() = %q", sink.Subject("page_view"))
	}

	msgs, err := pubsub.Subscribe(context.Background(), "geogate.phone_click")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	ctx := logging.ContextWithSessionID(context.Background(), "sess-9")
	if err := sink.Record(ctx, "phone_click", map[string]interface{}{"phone": "tel:+1"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	select {
	case msg := <-msgs:
		msg.Ack()
		var ev PublishedEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if ev.Name != "phone_click" || ev.SessionID != "sess-9" || ev.EventID != msg.UUID {
			t.Errorf("event = %+v", ev)
		}
		if msg.Metadata.Get("event") != "phone_click" || msg.Metadata.Get("session_id") != "sess-9" {
			t.Errorf("metadata = %v", msg.Metadata)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

type failingPublisher struct {
	calls atomic.Int32
}

func (f *failingPublisher) Publish(string, ...*message.Message) error {
	f.calls.Add(1)
	return errors.New("no responders")
}

func (f *failingPublisher) Close() error { return nil }

func TestNATSSink_BreakerOpens(t *testing.T) {
	pub := &failingPublisher{}
	cfg := breaker.DefaultConfig("nats-test")
	cfg.FailureThreshold = 2
	sink := newNATSSink(pub, NATSConfig{Breaker: cfg})

	for i := 0; i < 4; i++ {
		if err := sink.Record(context.Background(), "e", nil); err == nil {
			t.Fatal("expected publish error")
		}
	}
	if pub.calls.Load() != 2 {
		t.Errorf("publisher calls = %d, want 2 before the breaker opened", pub.calls.Load())
	}
}

func TestNATSSink_Closed(t *testing.T) {
	sink := newNATSSink(&failingPublisher{}, NATSConfig{})
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sink.Record(context.Background(), "e", nil); !errors.Is(err, ErrSinkClosed) {
		t.Errorf("Record() after Close error = %v", err)
	}
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	types    []string
	payloads []interface{}
}

func (f *fakeBroadcaster) BroadcastJSON(messageType string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, messageType)
	f.payloads = append(f.payloads, data)
}

func TestLiveFeedSink(t *testing.T) {
	hub := &fakeBroadcaster{}
	sink := NewLiveFeedSink(hub)

	ctx := logging.ContextWithSessionID(context.Background(), "sess-2")
	if err := sink.Record(ctx, "geo_access_granted", map[string]interface{}{"city": "Irvine"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if len(hub.types) != 1 || hub.types[0] != MessageTypeAnalyticsEvent {
		t.Fatalf("types = %v", hub.types)
	}
	ev, ok := hub.payloads[0].(PublishedEvent)
	if !ok || ev.Name != "geo_access_granted" || ev.SessionID != "sess-2" || ev.Properties["city"] != "Irvine" {
		t.Errorf("payload = %+v", hub.payloads[0])
	}
}
