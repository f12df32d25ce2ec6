// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

/*
Package models defines the persisted telemetry records of the gateway.

Three record types are stored, one per DuckDB table:

  - StatusEvent: a device status transition (connected, session_started, ...)
    with the peer IP the gateway observed
  - SensorReading: one IMU sample set plus session counters, flattened from
    the nested sensor_data frame
  - NetworkConfig: the device's last reported Wi-Fi configuration, one row
    per device

The New* constructors in convert.go map decoded protocol frames onto these
records and stamp them with the gateway's receive time. The same JSON
encoding is used for WAL entries and REST API responses.
*/
package models
