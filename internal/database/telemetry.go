// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/baskygate/internal/models"
)

// InsertStatusEvent appends a status event. The generated id is written back to ev.
func (db *DB) InsertStatusEvent(ctx context.Context, ev *models.StatusEvent) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	query := `INSERT INTO status_events (device_id, status, message, mode, ip_address, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`

	err := db.conn.QueryRowContext(ctx, query,
		ev.DeviceID, ev.Status, ev.Message, ev.Mode, nullString(ev.IPAddress), ev.Timestamp.UTC(),
	).Scan(&ev.ID)
	if err != nil {
		return fmt.Errorf("failed to insert status event for %s: %w", ev.DeviceID, err)
	}
	return nil
}

// InsertSensorReading appends a sensor reading. The generated id is written back to r.
func (db *DB) InsertSensorReading(ctx context.Context, r *models.SensorReading) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	query := `INSERT INTO sensor_readings (
		device_id,
		shoulder_pitch, shoulder_roll, shoulder_yaw,
		elbow_pitch, elbow_roll, elbow_yaw,
		wrist_pitch, wrist_roll, wrist_yaw,
		hand_pitch, hand_roll, hand_yaw,
		force_value, exercise_type, difficulty, session_duration, mode, timestamp
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id`

	err := db.conn.QueryRowContext(ctx, query,
		r.DeviceID,
		r.ShoulderPitch, r.ShoulderRoll, r.ShoulderYaw,
		r.ElbowPitch, r.ElbowRoll, r.ElbowYaw,
		r.WristPitch, r.WristRoll, r.WristYaw,
		r.HandPitch, r.HandRoll, r.HandYaw,
		r.ForceValue, r.ExerciseType, r.Difficulty, r.SessionDuration, r.Mode, r.Timestamp.UTC(),
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("failed to insert sensor reading for %s: %w", r.DeviceID, err)
	}
	return nil
}

// UpsertNetworkConfig inserts or replaces the network configuration row for a
// device. device_name and created_at are only written by the first insert.
func (db *DB) UpsertNetworkConfig(ctx context.Context, nc *models.NetworkConfig) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if nc.LastConnected.IsZero() {
		nc.LastConnected = time.Now()
	}
	if nc.CreatedAt.IsZero() {
		nc.CreatedAt = nc.LastConnected
	}

	query := `INSERT INTO network_configs (
		device_id, device_name, device_ip, ws_host, ws_port, ssid,
		signal_strength, is_active, last_connected, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (device_id) DO UPDATE SET
		device_ip = EXCLUDED.device_ip,
		ws_host = EXCLUDED.ws_host,
		ws_port = EXCLUDED.ws_port,
		ssid = EXCLUDED.ssid,
		signal_strength = EXCLUDED.signal_strength,
		is_active = EXCLUDED.is_active,
		last_connected = EXCLUDED.last_connected`

	_, err := db.conn.ExecContext(ctx, query,
		nc.DeviceID, nc.DeviceName, nc.DeviceIP, nc.WSHost, nc.WSPort, nc.SSID,
		nc.SignalStrength, nc.IsActive, nc.LastConnected.UTC(), nc.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert network config for %s: %w", nc.DeviceID, err)
	}
	return nil
}

// RecentReadings returns up to limit readings for a device, newest first.
func (db *DB) RecentReadings(ctx context.Context, deviceID string, limit int) ([]models.SensorReading, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		return []models.SensorReading{}, nil
	}

	query := `SELECT id, device_id,
		shoulder_pitch, shoulder_roll, shoulder_yaw,
		elbow_pitch, elbow_roll, elbow_yaw,
		wrist_pitch, wrist_roll, wrist_yaw,
		hand_pitch, hand_roll, hand_yaw,
		force_value, exercise_type, difficulty, session_duration, mode, timestamp
	FROM sensor_readings
	WHERE device_id = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensor readings: %w", err)
	}
	defer closeQuietly(rows)

	readings := make([]models.SensorReading, 0, limit)
	for rows.Next() {
		var r models.SensorReading
		if err := rows.Scan(
			&r.ID, &r.DeviceID,
			&r.ShoulderPitch, &r.ShoulderRoll, &r.ShoulderYaw,
			&r.ElbowPitch, &r.ElbowRoll, &r.ElbowYaw,
			&r.WristPitch, &r.WristRoll, &r.WristYaw,
			&r.HandPitch, &r.HandRoll, &r.HandYaw,
			&r.ForceValue, &r.ExerciseType, &r.Difficulty, &r.SessionDuration, &r.Mode, &r.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sensor reading: %w", err)
		}
		r.Timestamp = r.Timestamp.UTC()
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sensor readings: %w", err)
	}
	return readings, nil
}

// LatestStatus returns the most recent status event for a device.
func (db *DB) LatestStatus(ctx context.Context, deviceID string) (*models.StatusEvent, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, device_id, status, message, mode, ip_address, timestamp
	FROM status_events
	WHERE device_id = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1`

	var ev models.StatusEvent
	var ip sql.NullString
	err := db.conn.QueryRowContext(ctx, query, deviceID).Scan(
		&ev.ID, &ev.DeviceID, &ev.Status, &ev.Message, &ev.Mode, &ip, &ev.Timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest status: %w", err)
	}
	ev.IPAddress = ip.String
	ev.Timestamp = ev.Timestamp.UTC()
	return &ev, nil
}

// NetworkConfig returns the stored network configuration for a device.
func (db *DB) NetworkConfig(ctx context.Context, deviceID string) (*models.NetworkConfig, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT device_id, device_name, device_ip, ws_host, ws_port, ssid,
		signal_strength, is_active, last_connected, created_at
	FROM network_configs
	WHERE device_id = ?`

	var nc models.NetworkConfig
	err := db.conn.QueryRowContext(ctx, query, deviceID).Scan(
		&nc.DeviceID, &nc.DeviceName, &nc.DeviceIP, &nc.WSHost, &nc.WSPort, &nc.SSID,
		&nc.SignalStrength, &nc.IsActive, &nc.LastConnected, &nc.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query network config: %w", err)
	}
	nc.LastConnected = nc.LastConnected.UTC()
	nc.CreatedAt = nc.CreatedAt.UTC()
	return &nc, nil
}

// CountReadings returns the number of persisted readings for a device.
func (db *DB) CountReadings(ctx context.Context, deviceID string) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int64
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sensor_readings WHERE device_id = ?`, deviceID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sensor readings: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
