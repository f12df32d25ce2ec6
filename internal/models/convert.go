// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package models

import (
	"math"
	"time"

	"github.com/tomtom215/baskygate/internal/protocol"
)

// NewStatusEvent builds the persisted form of a status frame.
func NewStatusEvent(deviceID, ipAddress string, s protocol.Status, ts time.Time) StatusEvent {
	status := s.Status
	if status == "" {
		status = protocol.StatusUnknown
	}
	return StatusEvent{
		DeviceID:  deviceID,
		Status:    status,
		Message:   s.Message,
		Mode:      modeOrDefault(s.Mode),
		IPAddress: ipAddress,
		Timestamp: ts,
	}
}

// NewSensorReading flattens a sensor_data frame into a row.
func NewSensorReading(deviceID string, d protocol.SensorData, ts time.Time) SensorReading {
	return SensorReading{
		DeviceID:        deviceID,
		ShoulderPitch:   d.Shoulder.Pitch,
		ShoulderRoll:    d.Shoulder.Roll,
		ShoulderYaw:     d.Shoulder.Yaw,
		ElbowPitch:      d.Elbow.Pitch,
		ElbowRoll:       d.Elbow.Roll,
		ElbowYaw:        d.Elbow.Yaw,
		WristPitch:      d.Wrist.Pitch,
		WristRoll:       d.Wrist.Roll,
		WristYaw:        d.Wrist.Yaw,
		HandPitch:       d.Hand.Pitch,
		HandRoll:        d.Hand.Roll,
		HandYaw:         d.Hand.Yaw,
		ForceValue:      d.Force.Force,
		ExerciseType:    d.Exercise,
		Difficulty:      d.Difficulty,
		SessionDuration: durationSeconds(d.SessionDuration),
		Mode:            modeOrDefault(d.Mode),
		Timestamp:       ts,
	}
}

// NewNetworkConfig builds the upsert row for a network_info frame.
func NewNetworkConfig(deviceID string, n protocol.NetworkInfo, ts time.Time) NetworkConfig {
	port := DefaultWSPort
	if n.WSPort != nil {
		port = *n.WSPort
	}
	return NetworkConfig{
		DeviceID:       deviceID,
		DeviceName:     DefaultDeviceName,
		DeviceIP:       n.IP,
		WSHost:         n.WSHost,
		WSPort:         port,
		SSID:           n.SSID,
		SignalStrength: n.RSSI,
		IsActive:       n.Connected,
		LastConnected:  ts,
		CreatedAt:      ts,
	}
}

// durationSeconds truncates to whole seconds within the INTEGER column range.
func durationSeconds(d float64) int {
	switch {
	case math.IsNaN(d) || d <= 0:
		return 0
	case d >= math.MaxInt32:
		return math.MaxInt32
	default:
		return int(d)
	}
}

func modeOrDefault(mode string) string {
	if mode == "" {
		return DefaultMode
	}
	return mode
}
