// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

/*
Package api is the HTTP surface of the gateway: the WebSocket upgrade
endpoints, the control endpoint that delivers commands to devices, and the
read-only query endpoints over the registry and persisted telemetry.

Routes:

	GET  /ws/device                                   device connections
	GET  /ws/dashboard                                dashboard, all devices
	GET  /ws/dashboard/{deviceID}                     dashboard, one device
	GET  /api/v1/health/live                          liveness
	GET  /api/v1/health/ready                         readiness (pings DuckDB)
	GET  /api/v1/devices                              registry snapshot
	GET  /api/v1/devices/{deviceID}                   online flag, entry, last status
	GET  /api/v1/devices/{deviceID}/readings?limit=N  newest readings first
	GET  /api/v1/devices/{deviceID}/network           last network config
	POST /api/v1/devices/{deviceID}/commands/{command}
	GET  /metrics                                     Prometheus

Every JSON endpoint answers with the standard envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "DEVICE_OFFLINE", "message": "...", "request_id": "..."}}

A command for a device that is not connected answers 503 DEVICE_OFFLINE. An
unknown command type or a payload that is not a JSON object answers 400.

Middleware (global, in order): request id with logging context, RealIP,
Recoverer, CORS (go-chi/cors). API routes add httprate limiting, security
headers and Prometheus request metrics.
*/
package api
