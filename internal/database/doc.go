// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

/*
Package database stores device telemetry in an embedded DuckDB database.

Three tables back the gateway:

  - status_events: append-only log of every status frame a device sends
  - sensor_readings: append-only log of flattened sensor_data frames
  - network_configs: one row per device, upserted on each network_info frame

Rows are written by the persistence sink and read back by the HTTP query
surface. The gateway never mutates status events or sensor readings after
insertion.

Usage:

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	readings, err := db.RecentReadings(ctx, "esp32-01", 20)

All methods accept a context; when the caller passes one without a deadline a
30 second timeout is applied.
*/
package database
