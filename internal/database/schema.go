// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package database

import (
	"context"
	"fmt"
	"time"
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates sequences and tables if they do not already exist
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// tableCreationQueries returns the table creation SQL statements.
// Timestamps are stored as UTC in TIMESTAMP columns so no ICU extension is needed.
func tableCreationQueries() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS status_events_id_seq START 1`,
		`CREATE SEQUENCE IF NOT EXISTS sensor_readings_id_seq START 1`,

		`CREATE TABLE IF NOT EXISTS status_events (
			id BIGINT PRIMARY KEY DEFAULT nextval('status_events_id_seq'),
			device_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'unknown',
			message TEXT NOT NULL DEFAULT '',
			mode TEXT NOT NULL DEFAULT 'normal',
			ip_address TEXT,
			timestamp TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS sensor_readings (
			id BIGINT PRIMARY KEY DEFAULT nextval('sensor_readings_id_seq'),
			device_id TEXT NOT NULL,
			shoulder_pitch DOUBLE NOT NULL DEFAULT 0,
			shoulder_roll DOUBLE NOT NULL DEFAULT 0,
			shoulder_yaw DOUBLE NOT NULL DEFAULT 0,
			elbow_pitch DOUBLE NOT NULL DEFAULT 0,
			elbow_roll DOUBLE NOT NULL DEFAULT 0,
			elbow_yaw DOUBLE NOT NULL DEFAULT 0,
			wrist_pitch DOUBLE NOT NULL DEFAULT 0,
			wrist_roll DOUBLE NOT NULL DEFAULT 0,
			wrist_yaw DOUBLE NOT NULL DEFAULT 0,
			hand_pitch DOUBLE NOT NULL DEFAULT 0,
			hand_roll DOUBLE NOT NULL DEFAULT 0,
			hand_yaw DOUBLE NOT NULL DEFAULT 0,
			force_value DOUBLE NOT NULL DEFAULT 0,
			exercise_type TEXT NOT NULL DEFAULT '',
			difficulty TEXT NOT NULL DEFAULT '',
			session_duration INTEGER NOT NULL DEFAULT 0,
			mode TEXT NOT NULL DEFAULT 'normal',
			timestamp TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS network_configs (
			device_id TEXT PRIMARY KEY,
			device_name TEXT NOT NULL DEFAULT 'Basky Device',
			device_ip TEXT NOT NULL DEFAULT '',
			ws_host TEXT NOT NULL DEFAULT '',
			ws_port INTEGER NOT NULL DEFAULT 8080,
			ssid TEXT NOT NULL DEFAULT '',
			signal_strength INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_connected TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}
}

// createIndexes creates the indexes used by the query surface
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_status_events_device_ts ON status_events(device_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_sensor_readings_device_ts ON sensor_readings(device_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_sensor_readings_exercise_ts ON sensor_readings(exercise_type, timestamp)`,
	}

	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}
