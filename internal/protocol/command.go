// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package protocol

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Defaults applied to start_session requests that omit a field.
const (
	DefaultRole       = "Parent"
	DefaultDifficulty = "medium"
	DefaultExercise   = "Stretching"
)

// deviceCommands lists the command types the control layer may send.
var deviceCommands = []CommandType{
	CmdStartSession,
	CmdStopSession,
	CmdCalibrate,
	CmdAICorrection,
	CmdMotorControl,
	CmdGetNetworkInfo,
	CmdResetWiFi,
	CmdPing,
}

// DeviceCommandTypes returns the command types accepted by NewCommand.
func DeviceCommandTypes() []CommandType {
	out := make([]CommandType, len(deviceCommands))
	copy(out, deviceCommands)
	return out
}

// IsDeviceCommand reports whether t can be sent to a device by the control layer.
func IsDeviceCommand(t CommandType) bool {
	for _, c := range deviceCommands {
		if c == t {
			return true
		}
	}
	return false
}

// startSessionRequest is the control-layer shape of a start_session payload.
type startSessionRequest struct {
	ChildName  string `json:"child_name"`
	UserRole   string `json:"user_role"`
	Difficulty string `json:"difficulty"`
	Exercise   string `json:"exercise"`
}

// aiCorrectionRequest is the control-layer shape of an ai_correction payload.
type aiCorrectionRequest struct {
	Needed   bool            `json:"needed"`
	Shoulder json.RawMessage `json:"shoulder"`
	Elbow    json.RawMessage `json:"elbow"`
	Wrist    json.RawMessage `json:"wrist"`
	Feedback string          `json:"feedback"`
}

// NewCommand builds a device command from a control-layer request. payload may
// be empty; otherwise it must be a JSON object. Missing start_session fields
// take DefaultRole, DefaultDifficulty and DefaultExercise.
func NewCommand(commandType string, payload []byte) (Command, error) {
	t := CommandType(commandType)
	if !IsDeviceCommand(t) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, commandType)
	}

	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		payload = []byte("{}")
	}
	if payload[0] != '{' {
		return nil, fmt.Errorf("%w: expected JSON object", ErrInvalidCommandPayload)
	}

	switch t {
	case CmdStartSession:
		var req startSessionRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCommandPayload, err)
		}
		return StartSession{
			Name:       req.ChildName,
			Role:       orDefault(req.UserRole, DefaultRole),
			Difficulty: orDefault(req.Difficulty, DefaultDifficulty),
			Exercise:   orDefault(req.Exercise, DefaultExercise),
		}, nil
	case CmdAICorrection:
		var req aiCorrectionRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCommandPayload, err)
		}
		return AICorrection{
			CorrectionNeeded: req.Needed,
			Shoulder:         joint(req.Shoulder),
			Elbow:            joint(req.Elbow),
			Wrist:            joint(req.Wrist),
			Feedback:         req.Feedback,
		}, nil
	case CmdMotorControl:
		var cmd MotorControl
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCommandPayload, err)
		}
		cmd.Shoulder, cmd.Elbow, cmd.Wrist = joint(cmd.Shoulder), joint(cmd.Elbow), joint(cmd.Wrist)
		return cmd, nil
	case CmdStopSession:
		return StopSession{}, nil
	case CmdCalibrate:
		return Calibrate{}, nil
	case CmdGetNetworkInfo:
		return GetNetworkInfo{}, nil
	case CmdResetWiFi:
		return ResetWiFi{}, nil
	default:
		return Ping{}, nil
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
