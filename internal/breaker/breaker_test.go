// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/geogate/internal/metrics"
)

func TestNew_OpensAfterThreshold(t *testing.T) {
	cfg := DefaultConfig("test-open")
	cfg.FailureThreshold = 3
	cfg.Timeout = time.Hour
	cb := New[int](cfg)

	boom := errors.New("upstream down")
	for i := 0; i < 3; i++ {
		if _, err := Execute(cb, func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Fatalf("Execute() error = %v, expected %v", err, boom)
		}
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("State() = %v, expected open", cb.State())
	}

	_, err := Execute(cb, func() (int, error) { return 1, nil })
	if !IsRejected(err) {
		t.Errorf("Execute() on open breaker error = %v, expected rejection", err)
	}

	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test-open")); got != 2 {
		t.Errorf("circuit_breaker_state = %v, expected 2", got)
	}
}

func TestNew_ContextCanceledIsNotFailure(t *testing.T) {
	cfg := DefaultConfig("test-cancel")
	cfg.FailureThreshold = 1
	cb := New[int](cfg)

	_, _ = Execute(cb, func() (int, error) { return 0, context.Canceled })

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, expected closed after cancellation", cb.State())
	}
}

func TestStateHelpers(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		str   string
		val   float64
	}{
		{gobreaker.StateClosed, "closed", 0},
		{gobreaker.StateHalfOpen, "half-open", 1},
		{gobreaker.StateOpen, "open", 2},
	}
	for _, tt := range tests {
		if got := StateString(tt.state); got != tt.str {
			t.Errorf("StateString(%v) = %q, expected %q", tt.state, got, tt.str)
		}
		if got := StateValue(tt.state); got != tt.val {
			t.Errorf("StateValue(%v) = %v, expected %v", tt.state, got, tt.val)
		}
	}
}

func TestExclude_NotCountedAsFailure(t *testing.T) {
	cfg := DefaultConfig("test-exclude")
	cfg.FailureThreshold = 1
	cb := New[int](cfg)

	local := errors.New("rate limited locally")
	_, err := Execute(cb, func() (int, error) { return 0, Exclude(local) })

	if !errors.Is(err, local) {
		t.Errorf("Execute() error = %v, expected to wrap %v", err, local)
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, expected closed after excluded error", cb.State())
	}
	if Exclude(nil) != nil {
		t.Error("Exclude(nil) != nil")
	}
}
