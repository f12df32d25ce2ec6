// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package models

import (
	"time"
)

// Defaults for persisted device records.
const (
	DefaultDeviceName = "Basky Device"
	DefaultWSPort     = 8080
	DefaultMode       = "normal"
)

// StatusEvent is one persisted status frame.
type StatusEvent struct {
	ID        int64     `json:"id,omitempty"`
	DeviceID  string    `json:"device_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Mode      string    `json:"mode"`
	IPAddress string    `json:"ip_address,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SensorReading is one persisted telemetry sample. Angles are degrees.
type SensorReading struct {
	ID       int64  `json:"id,omitempty"`
	DeviceID string `json:"device_id"`

	ShoulderPitch float64 `json:"shoulder_pitch"`
	ShoulderRoll  float64 `json:"shoulder_roll"`
	ShoulderYaw   float64 `json:"shoulder_yaw"`
	ElbowPitch    float64 `json:"elbow_pitch"`
	ElbowRoll     float64 `json:"elbow_roll"`
	ElbowYaw      float64 `json:"elbow_yaw"`
	WristPitch    float64 `json:"wrist_pitch"`
	WristRoll     float64 `json:"wrist_roll"`
	WristYaw      float64 `json:"wrist_yaw"`
	HandPitch     float64 `json:"hand_pitch"`
	HandRoll      float64 `json:"hand_roll"`
	HandYaw       float64 `json:"hand_yaw"`
	ForceValue    float64 `json:"force_value"`

	ExerciseType    string    `json:"exercise_type"`
	Difficulty      string    `json:"difficulty"`
	SessionDuration int       `json:"session_duration"` // seconds
	Mode            string    `json:"mode"`
	Timestamp       time.Time `json:"timestamp"`
}

// NetworkConfig is the latest network configuration reported by a device.
// There is at most one row per device.
type NetworkConfig struct {
	DeviceID       string    `json:"device_id"`
	DeviceName     string    `json:"device_name"`
	DeviceIP       string    `json:"device_ip"`
	WSHost         string    `json:"ws_host"`
	WSPort         int       `json:"ws_port"`
	SSID           string    `json:"ssid"`
	SignalStrength int       `json:"signal_strength"`
	IsActive       bool      `json:"is_active"`
	LastConnected  time.Time `json:"last_connected"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}
