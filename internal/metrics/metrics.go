// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Geolocation Metrics
	GeolocationLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geolocation_lookups_total",
			Help: "Upstream geolocation lookups by provider and result",
		},
		[]string{"provider", "result"}, // result: "success", "failure"
	)

	GeolocationCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geolocation_cache_hits_total",
			Help: "Total number of geolocation answers served from memory",
		},
	)

	GeolocationCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geolocation_cache_misses_total",
			Help: "Total number of geolocation cache misses (lookup required)",
		},
	)

	GeolocationFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geolocation_fallbacks_total",
			Help: "Lookups that degraded to the Unknown fallback location",
		},
	)

	GeolocationAPICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geolocation_api_call_duration_seconds",
			Help:    "Duration of upstream geolocation API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Service Area Metrics
	AccessDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_decisions_total",
			Help: "Service area access decisions by outcome and reason",
		},
		[]string{"outcome", "reason"},
	)

	// Analytics Metrics
	AnalyticsEventsTracked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_events_tracked_total",
			Help: "Analytics events appended to sessions",
		},
		[]string{"event"},
	)

	AnalyticsSinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_sink_failures_total",
			Help: "Telemetry sink deliveries that failed or panicked",
		},
		[]string{"sink"},
	)

	AnalyticsStoreWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_store_writes_total",
			Help: "Session persistence attempts by store and result",
		},
		[]string{"store", "result"},
	)

	AnalyticsActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analytics_active_sessions",
			Help: "Sessions currently held in memory by the session manager",
		},
	)

	AnalyticsBatchFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_batch_flushes_total",
			Help: "Batched sink flushes by sink and result",
		},
		[]string{"sink", "result"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active live feed connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of live feed messages broadcast",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Live feed messages dropped because the broadcast buffer was full",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit counts a request rejected by the rate limiter.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordGeolocationLookup records one upstream provider call.
func RecordGeolocationLookup(provider string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	GeolocationLookups.WithLabelValues(provider, result).Inc()
	GeolocationAPICallDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordGeolocationCache records a cache hit or miss.
func RecordGeolocationCache(hit bool) {
	if hit {
		GeolocationCacheHits.Inc()
	} else {
		GeolocationCacheMisses.Inc()
	}
}

// RecordGeolocationFallback counts a lookup that degraded to the fallback location.
func RecordGeolocationFallback() {
	GeolocationFallbacks.Inc()
}

// RecordCircuitBreakerRequest records a call outcome for the named breaker.
func RecordCircuitBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// RecordCircuitBreakerTransition records a state change and updates the state gauge.
func RecordCircuitBreakerTransition(name, from, to string, toValue float64) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(toValue)
}

// RecordAccessDecision records a gate outcome. reason is "" for grants.
func RecordAccessDecision(outcome, reason string) {
	if reason == "" {
		reason = "none"
	}
	AccessDecisions.WithLabelValues(outcome, reason).Inc()
}

// RecordAnalyticsEvent counts an event appended to a session.
func RecordAnalyticsEvent(name string) {
	AnalyticsEventsTracked.WithLabelValues(name).Inc()
}

// RecordSinkFailure counts a failed or panicking sink delivery.
func RecordSinkFailure(sink string) {
	AnalyticsSinkFailures.WithLabelValues(sink).Inc()
}

// RecordStoreWrite records a session save attempt.
func RecordStoreWrite(store string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	AnalyticsStoreWrites.WithLabelValues(store, result).Inc()
}

// SetActiveSessions sets the number of sessions held by the manager.
func SetActiveSessions(n int) {
	AnalyticsActiveSessions.Set(float64(n))
}

// RecordBatchFlush records a batched sink flush.
func RecordBatchFlush(sink string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	AnalyticsBatchFlushes.WithLabelValues(sink, result).Inc()
}
