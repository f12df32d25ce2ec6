// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

/*
Package websocket terminates device and dashboard WebSocket connections.

Device connections:

Each device connection is a Session with two goroutines:
  - readPump: reads JSON text frames and runs them through HandleFrame
  - writePump: drains the outbound queue and sends keepalive pings

A Session moves Connecting → Open → Closed. On open it sends the
connection_established welcome frame. Every inbound frame is decoded and
dispatched by type:

	status(connected)  register in the Registry, persist, fan out
	status(other)      update status, persist, fan out
	sensor_data        touch, persist reading, fan out raw frame
	session_ack        reply session_confirmed
	network_info       update network, upsert config, fan out
	wifi_reset_ack     reply wifi_reset_confirmed
	pong               touch

HandleFrame is a failure boundary: malformed JSON and handler failures
(including panics) produce one error frame and the session stays open.
Unknown types are logged and dropped. Persistence failures never reach the
device.

A session binds to at most one device id, on its first connected status.
On close it releases the Registry entry only if it still owns it, and
publishes an offline event.

Dashboard connections:

An Observer subscribes to the fan-out broker for one device (or all devices)
and writes each event to the browser as JSON. Inbound dashboard frames are
ignored.

Usage:

	gw := websocket.NewGateway(cfg.Gateway, reg, sink, broker)
	r.Get("/ws/device", gw.ServeDevice)
	r.Get("/ws/dashboard/{deviceID}", func(w http.ResponseWriter, r *http.Request) {
	    gw.ServeDashboard(w, r, chi.URLParam(r, "deviceID"))
	})
*/
package websocket
