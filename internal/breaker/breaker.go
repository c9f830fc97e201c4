// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

// Package breaker builds sony/gobreaker circuit breakers wired to the
// service's logging and Prometheus metrics.
package breaker

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/geogate/internal/logging"
	"github.com/tomtom215/geogate/internal/metrics"
)

// Config configures a breaker.
type Config struct {
	// Name labels the breaker in logs and metrics.
	Name string

	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state after which counts reset.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
}

// DefaultConfig returns the defaults used for outbound HTTP dependencies.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// New creates a circuit breaker whose transitions are logged and exported.
//
// Context cancellation is not counted as a failure: a caller giving up says
// nothing about the health of the dependency.
func New[T any](cfg Config) *gobreaker.CircuitBreaker[T] {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= cfg.FailureThreshold
			if trip {
				logging.Warn().
					Str("breaker", cfg.Name).
					Uint32("consecutive_failures", counts.ConsecutiveFailures).
					Msg("Opening circuit")
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", StateString(from)).
				Str("to", StateString(to)).
				Msg("Circuit breaker state transition")
			metrics.RecordCircuitBreakerTransition(name, StateString(from), StateString(to), StateValue(to))
		},
		IsSuccessful: func(err error) bool {
			var ex *excludedError
			return err == nil || errors.Is(err, context.Canceled) || errors.As(err, &ex)
		},
	})
}

// Execute runs fn through cb and records the outcome.
func Execute[T any](cb *gobreaker.CircuitBreaker[T], fn func() (T, error)) (T, error) {
	result, err := cb.Execute(fn)
	switch {
	case err == nil:
		metrics.RecordCircuitBreakerRequest(cb.Name(), "success")
	case IsRejected(err):
		metrics.RecordCircuitBreakerRequest(cb.Name(), "rejected")
	default:
		metrics.RecordCircuitBreakerRequest(cb.Name(), "failure")
	}
	return result, err
}

// excludedError carries an error through a breaker without counting it as
// a dependency failure.
type excludedError struct{ err error }

func (e *excludedError) Error() string { return e.err.Error() }
func (e *excludedError) Unwrap() error { return e.err }

// Exclude marks err so that New's breakers do not count it as a failure.
// errors.Is and errors.As still see the original error.
func Exclude(err error) error {
	if err == nil {
		return nil
	}
	return &excludedError{err: err}
}

// IsRejected reports whether err means the breaker refused the call.
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// StateValue converts a state to the numeric gauge value.
func StateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// StateString converts a state to its log label.
func StateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
