// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package protocol

import (
	"unicode"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// MessageType is the discriminator of an inbound frame.
type MessageType string

// Inbound message types.
const (
	TypeStatus       MessageType = "status"
	TypeSensorData   MessageType = "sensor_data"
	TypeSessionAck   MessageType = "session_ack"
	TypeNetworkInfo  MessageType = "network_info"
	TypeWiFiResetAck MessageType = "wifi_reset_ack"
	TypePong         MessageType = "pong"
)

// Well-known status and mode values.
const (
	StatusConnected = "connected"
	StatusUnknown   = "unknown"
	ModeNormal      = "normal"
	ModeDemo        = "demo"
)

// Inbound is implemented by every decoded device frame.
type Inbound interface {
	MessageType() MessageType
}

// Status reports a device state change. The first "connected" status binds
// the connection to DeviceID.
type Status struct {
	Status   string `json:"status"`
	DeviceID string `json:"device_id"`
	Message  string `json:"message"`
	Mode     string `json:"mode"`
}

// MessageType implements Inbound.
func (Status) MessageType() MessageType { return TypeStatus }

// IsConnected reports whether this is a registration status.
func (s Status) IsConnected() bool { return s.Status == StatusConnected }

// MaxDeviceIDLength bounds a device id in characters.
const MaxDeviceIDLength = 128

// ValidDeviceID reports whether id can be registered and addressed: non-empty
// UTF-8 of at most MaxDeviceIDLength characters, with no control characters.
func ValidDeviceID(id string) bool {
	if id == "" || !utf8.ValidString(id) || utf8.RuneCountInString(id) > MaxDeviceIDLength {
		return false
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// Joint is the orientation of one tracked joint in degrees.
type Joint struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
	Yaw   float64 `json:"yaw"`
}

// Force is the grip force reading.
type Force struct {
	Force float64 `json:"force"`
}

// SensorData is one telemetry sample.
type SensorData struct {
	Shoulder        Joint   `json:"shoulder"`
	Elbow           Joint   `json:"elbow"`
	Wrist           Joint   `json:"wrist"`
	Hand            Joint   `json:"hand"`
	Force           Force   `json:"force"`
	Exercise        string  `json:"exercise"`
	Difficulty      string  `json:"difficulty"`
	SessionDuration float64 `json:"session_duration"`
	Mode            string  `json:"mode"`

	// DeviceTimestamp is whatever clock value the firmware attached, kept verbatim.
	DeviceTimestamp json.RawMessage `json:"timestamp,omitempty"`
}

// MessageType implements Inbound.
func (SensorData) MessageType() MessageType { return TypeSensorData }

// SessionAck confirms that the device started a therapy session.
type SessionAck struct{}

// MessageType implements Inbound.
func (SessionAck) MessageType() MessageType { return TypeSessionAck }

// NetworkInfo reports the device's current network configuration.
type NetworkInfo struct {
	SSID      string `json:"ssid"`
	IP        string `json:"ip"`
	RSSI      int    `json:"rssi"`
	WSHost    string `json:"ws_host"`
	WSPort    *int   `json:"ws_port,omitempty"` // nil when the device omits it
	Connected bool   `json:"connected"`
}

// MessageType implements Inbound.
func (NetworkInfo) MessageType() MessageType { return TypeNetworkInfo }

// WiFiResetAck confirms the device accepted a reset_wifi command.
type WiFiResetAck struct{}

// MessageType implements Inbound.
func (WiFiResetAck) MessageType() MessageType { return TypeWiFiResetAck }

// Pong answers a ping.
type Pong struct{}

// MessageType implements Inbound.
func (Pong) MessageType() MessageType { return TypePong }

// Decode parses one inbound frame.
func Decode(raw []byte) (Inbound, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &DecodeError{Kind: ErrMalformedPayload, Err: err}
	}

	switch MessageType(envelope.Type) {
	case TypeStatus:
		return decodeInto[Status](raw, envelope.Type)
	case TypeSensorData:
		return decodeInto[SensorData](raw, envelope.Type)
	case TypeSessionAck:
		return SessionAck{}, nil
	case TypeNetworkInfo:
		return decodeInto[NetworkInfo](raw, envelope.Type)
	case TypeWiFiResetAck:
		return WiFiResetAck{}, nil
	case TypePong:
		return Pong{}, nil
	default:
		return nil, &DecodeError{Kind: ErrUnknownType, Type: envelope.Type}
	}
}

func decodeInto[T Inbound](raw []byte, typ string) (Inbound, error) {
	var msg T
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, &DecodeError{Kind: ErrMalformedPayload, Type: typ, Err: err}
	}
	return msg, nil
}

// EncodeInbound serializes a decoded frame back to its wire form, including
// the "type" field. Dashboards receive sensor samples in this shape.
func EncodeInbound(msg Inbound) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return withFields(body, `"type":`+quote(string(msg.MessageType()))), nil
}
