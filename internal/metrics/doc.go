// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

/*
Package metrics provides Prometheus instrumentation for the gateway.

Metrics are registered on the default registry through promauto and exposed at
/metrics in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

Device Metrics:
  - gateway_devices_connected: devices currently in the registry (gauge)
  - gateway_device_registrations_total: successful registrations (counter)
  - gateway_sessions_active: open websocket sessions (gauge) labels: kind
  - gateway_frames_received_total: inbound frames (counter) labels: type
  - gateway_frames_sent_total: outbound frames (counter) labels: type
  - gateway_frame_errors_total: rejected or failed frames (counter) labels: kind
  - gateway_commands_total: dispatcher calls (counter) labels: command, result

Persistence Metrics:
  - gateway_persistence_writes_total (counter) labels: record, result
  - gateway_persistence_write_duration_seconds (histogram) labels: record
  - gateway_persistence_queue_depth (gauge)
  - gateway_wal_pending_entries (gauge)
  - gateway_wal_operations_total (counter) labels: operation, result
  - gateway_circuit_breaker_state (gauge) labels: name; 0=closed 1=half-open 2=open

Fan-out Metrics:
  - gateway_fanout_events_total (counter) labels: event
  - gateway_fanout_dropped_total (counter)
  - gateway_fanout_subscribers (gauge)
  - gateway_bridge_publish_total (counter) labels: result

HTTP Metrics:
  - gateway_http_requests_total (counter) labels: method, route, status
  - gateway_http_request_duration_seconds (histogram) labels: method, route
*/
package metrics
