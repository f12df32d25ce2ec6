// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Device Metrics
	DevicesConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_devices_connected",
			Help: "Number of devices currently registered",
		},
	)

	DeviceRegistrations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_device_registrations_total",
			Help: "Total number of device registrations",
		},
	)

	SessionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_sessions_active",
			Help: "Open websocket sessions",
		},
		[]string{"kind"}, // "device", "dashboard"
	)

	FramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_frames_received_total",
			Help: "Total number of decoded inbound frames",
		},
		[]string{"type"},
	)

	FramesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_frames_sent_total",
			Help: "Total number of outbound frames queued for delivery",
		},
		[]string{"type"},
	)

	FrameErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_frame_errors_total",
			Help: "Total number of inbound frames that were rejected or failed",
		},
		[]string{"kind"}, // "malformed", "unknown_type", "handler", "identity", "rate_limited"
	)

	CommandsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_commands_total",
			Help: "Total number of commands submitted by the control layer",
		},
		[]string{"command", "result"}, // result: "delivered", "offline", "busy"
	)

	// Persistence Metrics
	PersistenceWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_persistence_writes_total",
			Help: "Total number of persistence writes by outcome",
		},
		[]string{"record", "result"}, // result: "ok", "failed", "dropped"
	)

	PersistenceWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_persistence_write_duration_seconds",
			Help:    "Duration of store writes including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"record"},
	)

	PersistenceQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_persistence_queue_depth",
			Help: "Records waiting in the persistence queues",
		},
	)

	WALPendingEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_wal_pending_entries",
			Help: "Records written to the WAL but not yet confirmed",
		},
	)

	WALOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_wal_operations_total",
			Help: "Total number of WAL operations",
		},
		[]string{"operation", "result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Fan-out Metrics
	FanoutEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_fanout_events_total",
			Help: "Total number of events published to the fan-out broker",
		},
		[]string{"event"},
	)

	FanoutDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_fanout_dropped_total",
			Help: "Events dropped because a subscriber buffer was full",
		},
	)

	FanoutSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_fanout_subscribers",
			Help: "Current number of fan-out subscriptions",
		},
	)

	BridgePublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_bridge_publish_total",
			Help: "Events forwarded to the external message bus",
		},
		[]string{"result"},
	)

	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "route"},
	)
)

// RecordPersistenceWrite records the outcome of one store write.
func RecordPersistenceWrite(record string, duration time.Duration, err error) {
	PersistenceWriteDuration.WithLabelValues(record).Observe(duration.Seconds())
	if err != nil {
		PersistenceWrites.WithLabelValues(record, "failed").Inc()
		return
	}
	PersistenceWrites.WithLabelValues(record, "ok").Inc()
}

// RecordPersistenceDrop records a record that never reached the store.
func RecordPersistenceDrop(record string) {
	PersistenceWrites.WithLabelValues(record, "dropped").Inc()
}

// RecordCommand records a dispatcher call.
func RecordCommand(command string, delivered bool) {
	result := "offline"
	if delivered {
		result = "delivered"
	}
	CommandsDispatched.WithLabelValues(command, result).Inc()
}

// RecordCommandBusy records a command refused because the device's outbound
// buffer was full.
func RecordCommandBusy(command string) {
	CommandsDispatched.WithLabelValues(command, "busy").Inc()
}

// RecordWALOperation records a WAL operation outcome.
func RecordWALOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	WALOperations.WithLabelValues(operation, result).Inc()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetCircuitBreakerState publishes the numeric state of a named breaker.
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
