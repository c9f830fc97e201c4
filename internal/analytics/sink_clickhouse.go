// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package analytics

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/geogate/internal/logging"
	"github.com/tomtom215/geogate/internal/metrics"
)

// ClickHouseConfig configures ClickHouseSink.
type ClickHouseConfig struct {
	Addr          []string
	Database      string
	Username      string
	Password      string
	Table         string // default "analytics_events"
	BatchSize     int    // default 500
	FlushInterval time.Duration
	DialTimeout   time.Duration
	// MaxBuffered bounds memory while ClickHouse is unreachable. Oldest
	// events are dropped beyond it. Default 10 * BatchSize.
	MaxBuffered int
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// eventWriter inserts a batch of events.
type eventWriter interface {
	InsertEvents(ctx context.Context, events []PublishedEvent) error
	Close() error
}

// ClickHouseSink buffers events and inserts them in batches. Batches are
// sent when BatchSize events are buffered and every FlushInterval by Serve.
type ClickHouseSink struct {
	writer      eventWriter
	batchSize   int
	maxBuffered int
	interval    time.Duration

	mu     sync.Mutex
	buffer []PublishedEvent

	flushMu sync.Mutex
}

// NewClickHouseSink connects to ClickHouse and creates the events table if
// it does not exist.
func NewClickHouseSink(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseSink, error) {
	if len(cfg.Addr) == 0 {
		return nil, errors.New("clickhouse addr is required")
	}
	if cfg.Table == "" {
		cfg.Table = "analytics_events"
	}
	if !tableName.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid clickhouse table name %q", cfg.Table)
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addr,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: "geogate", Version: "1.0.0"}},
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	w := &clickhouseWriter{conn: conn, table: cfg.Table}
	if err := w.ensureTable(pingCtx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logging.Info().Strs("addr", cfg.Addr).Str("table", cfg.Table).Msg("Connected to ClickHouse")
	return newClickHouseSink(w, cfg), nil
}

func newClickHouseSink(w eventWriter, cfg ClickHouseConfig) *ClickHouseSink {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.MaxBuffered < cfg.BatchSize {
		cfg.MaxBuffered = 10 * cfg.BatchSize
	}
	return &ClickHouseSink{
		writer:      w,
		batchSize:   cfg.BatchSize,
		maxBuffered: cfg.MaxBuffered,
		interval:    cfg.FlushInterval,
	}
}

// Name returns "clickhouse".
func (c *ClickHouseSink) Name() string { return "clickhouse" }

// Record buffers the event, flushing when the batch is full.
func (c *ClickHouseSink) Record(ctx context.Context, name string, props map[string]interface{}) error {
	event := PublishedEvent{
		EventID:    uuid.NewString(),
		Name:       name,
		Timestamp:  time.Now().UTC(),
		SessionID:  logging.SessionIDFromContext(ctx),
		Properties: props,
	}

	c.mu.Lock()
	c.buffer = append(c.buffer, event)
	if over := len(c.buffer) - c.maxBuffered; over > 0 {
		c.buffer = append(c.buffer[:0:0], c.buffer[over:]...)
		logging.Warn().Int("dropped", over).Msg("ClickHouse buffer full, dropping oldest events")
	}
	full := len(c.buffer) >= c.batchSize
	c.mu.Unlock()

	if full {
		return c.Flush(ctx)
	}
	return nil
}

// Buffered returns the number of events waiting to be sent.
func (c *ClickHouseSink) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// Flush sends everything buffered. On failure the events are put back at
// the front of the buffer.
func (c *ClickHouseSink) Flush(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	batch := c.buffer
	c.buffer = nil
	c.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	err := c.writer.InsertEvents(ctx, batch)
	metrics.RecordBatchFlush(c.Name(), err)
	if err != nil {
		c.mu.Lock()
		c.buffer = append(batch, c.buffer...)
		if over := len(c.buffer) - c.maxBuffered; over > 0 {
			c.buffer = append(c.buffer[:0:0], c.buffer[over:]...)
		}
		c.mu.Unlock()
		return fmt.Errorf("insert %d events: %w", len(batch), err)
	}

	logging.Debug().Int("events", len(batch)).Msg("Flushed events to ClickHouse")
	return nil
}

// Serve flushes every FlushInterval until ctx is done, then flushes once
// more. It implements suture.Service.
func (c *ClickHouseSink) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			if err := c.Flush(flushCtx); err != nil {
				logging.Warn().Err(err).Msg("Final ClickHouse flush failed")
			}
			cancel()
			return ctx.Err()
		case <-ticker.C:
			if err := c.Flush(ctx); err != nil {
				logging.Warn().Err(err).Msg("ClickHouse flush failed")
			}
		}
	}
}

// String names the service for the supervisor.
func (c *ClickHouseSink) String() string { return "clickhouse-flusher" }

// Close closes the connection. Call after Serve has returned.
func (c *ClickHouseSink) Close() error {
	return c.writer.Close()
}

// clickhouseWriter inserts through the native protocol.
type clickhouseWriter struct {
	conn  clickhouse.Conn
	table string
}

func (w *clickhouseWriter) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			event_id   String,
			event_name LowCardinality(String),
			session_id String,
			timestamp  DateTime64(3, 'UTC'),
			properties String
		) ENGINE = MergeTree
		ORDER BY (event_name, timestamp)
	`, w.table)
	if err := w.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", w.table, err)
	}
	return nil
}

func (w *clickhouseWriter) InsertEvents(ctx context.Context, events []PublishedEvent) error {
	batch, err := w.conn.PrepareBatch(ctx, fmt.Sprintf(
		"INSERT INTO %s (event_id, event_name, session_id, timestamp, properties)", w.table))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		props, err := json.Marshal(e.Properties)
		if err != nil {
			props = []byte("{}")
		}
		if err := batch.Append(e.EventID, e.Name, e.SessionID, e.Timestamp, string(props)); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append %s: %w", e.EventID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func (w *clickhouseWriter) Close() error {
	return w.conn.Close()
}
