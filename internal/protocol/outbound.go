// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package protocol

import (
	"bytes"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// CommandType is the discriminator of an outbound frame.
type CommandType string

// Outbound frame types.
const (
	CmdConnectionEstablished CommandType = "connection_established"
	CmdSessionConfirmed      CommandType = "session_confirmed"
	CmdWiFiResetConfirmed    CommandType = "wifi_reset_confirmed"
	CmdError                 CommandType = "error"
	CmdStartSession          CommandType = "start_session"
	CmdStopSession           CommandType = "stop_session"
	CmdCalibrate             CommandType = "calibrate"
	CmdAICorrection          CommandType = "ai_correction"
	CmdMotorControl          CommandType = "motor_control"
	CmdGetNetworkInfo        CommandType = "get_network_info"
	CmdResetWiFi             CommandType = "reset_wifi"
	CmdPing                  CommandType = "ping"
)

// TimestampFormat is the ISO-8601 layout stamped on every outbound frame.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Command is implemented by every outbound frame.
type Command interface {
	CommandType() CommandType
}

// ConnectionEstablished is the welcome frame sent when a connection opens.
type ConnectionEstablished struct {
	Message       string `json:"message"`
	ServerVersion string `json:"server_version"`
}

// CommandType implements Command.
func (ConnectionEstablished) CommandType() CommandType { return CmdConnectionEstablished }

// SessionConfirmed answers a session_ack.
type SessionConfirmed struct {
	Message string `json:"message"`
}

// CommandType implements Command.
func (SessionConfirmed) CommandType() CommandType { return CmdSessionConfirmed }

// WiFiResetConfirmed answers a wifi_reset_ack.
type WiFiResetConfirmed struct {
	Message string `json:"message"`
}

// CommandType implements Command.
func (WiFiResetConfirmed) CommandType() CommandType { return CmdWiFiResetConfirmed }

// ErrorFrame reports a per-frame failure back to the device.
type ErrorFrame struct {
	Message string `json:"message"`
}

// CommandType implements Command.
func (ErrorFrame) CommandType() CommandType { return CmdError }

// StartSession asks the device to begin a therapy session.
type StartSession struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	Difficulty string `json:"difficulty"`
	Exercise   string `json:"exercise"`
}

// CommandType implements Command.
func (StartSession) CommandType() CommandType { return CmdStartSession }

// StopSession ends the running therapy session.
type StopSession struct{}

// CommandType implements Command.
func (StopSession) CommandType() CommandType { return CmdStopSession }

// Calibrate asks the device to re-zero its sensors.
type Calibrate struct{}

// CommandType implements Command.
func (Calibrate) CommandType() CommandType { return CmdCalibrate }

// AICorrection carries posture feedback computed by an external model. The
// joint fields are passed to the device as given; empty ones are sent as {}.
type AICorrection struct {
	CorrectionNeeded bool            `json:"correction_needed"`
	Shoulder         json.RawMessage `json:"shoulder"`
	Elbow            json.RawMessage `json:"elbow"`
	Wrist            json.RawMessage `json:"wrist"`
	Feedback         string          `json:"feedback"`
}

// CommandType implements Command.
func (AICorrection) CommandType() CommandType { return CmdAICorrection }

// MotorControl drives the assist motors. Joint targets are opaque to the
// gateway; empty ones are sent as {}.
type MotorControl struct {
	Shoulder json.RawMessage `json:"shoulder"`
	Elbow    json.RawMessage `json:"elbow"`
	Wrist    json.RawMessage `json:"wrist"`
}

// CommandType implements Command.
func (MotorControl) CommandType() CommandType { return CmdMotorControl }

// GetNetworkInfo asks the device to report a network_info frame.
type GetNetworkInfo struct{}

// CommandType implements Command.
func (GetNetworkInfo) CommandType() CommandType { return CmdGetNetworkInfo }

// ResetWiFi asks the device to forget its WiFi credentials and restart.
type ResetWiFi struct{}

// CommandType implements Command.
func (ResetWiFi) CommandType() CommandType { return CmdResetWiFi }

// Ping asks the device for a pong.
type Ping struct{}

// CommandType implements Command.
func (Ping) CommandType() CommandType { return CmdPing }

// Encode serializes cmd with its type and a timestamp derived from now.
// It never fails: missing or malformed joint values are sent as {}.
func Encode(cmd Command, now time.Time) []byte {
	switch c := cmd.(type) {
	case AICorrection:
		c.Shoulder, c.Elbow, c.Wrist = joint(c.Shoulder), joint(c.Elbow), joint(c.Wrist)
		cmd = c
	case MotorControl:
		c.Shoulder, c.Elbow, c.Wrist = joint(c.Shoulder), joint(c.Elbow), joint(c.Wrist)
		cmd = c
	}

	header := `"type":` + quote(string(cmd.CommandType())) +
		`,"timestamp":` + quote(FormatTimestamp(now))

	body, err := json.Marshal(cmd)
	if err != nil {
		// Unreachable for the command types above; keep the frame well-formed anyway.
		body = []byte(`{}`)
	}
	return withFields(body, header)
}

// FormatTimestamp renders t in the outbound timestamp layout (UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// withFields prepends the given JSON members to the object in body.
func withFields(body []byte, fields string) []byte {
	body = bytes.TrimSpace(body)
	inner := body[1 : len(body)-1]

	out := make([]byte, 0, len(body)+len(fields)+2)
	out = append(out, '{')
	out = append(out, fields...)
	if len(bytes.TrimSpace(inner)) > 0 {
		out = append(out, ',')
		out = append(out, inner...)
	}
	out = append(out, '}')
	return out
}

func quote(s string) string {
	return strconv.Quote(s)
}

var emptyObject = json.RawMessage(`{}`)

// joint normalizes a pass-through joint value.
func joint(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || !json.Valid(raw) {
		return emptyObject
	}
	return raw
}
