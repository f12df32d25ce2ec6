// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package websocket

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/tomtom215/baskygate/internal/fanout"
	"github.com/tomtom215/baskygate/internal/metrics"
	"github.com/tomtom215/baskygate/internal/models"
	"github.com/tomtom215/baskygate/internal/protocol"
	"github.com/tomtom215/baskygate/internal/registry"
)

var (
	// ErrMissingDeviceID rejects a connected status without a device id.
	ErrMissingDeviceID = errors.New("device_id is required to register")

	// ErrInvalidDeviceID rejects a device id the control API could not address.
	ErrInvalidDeviceID = errors.New("device_id must be 1-128 printable characters")

	// ErrDeviceIDMismatch rejects a connected status naming a different device
	// than the one the session is already bound to.
	ErrDeviceIDMismatch = errors.New("connection is already registered to another device")
)

// Reply texts.
const (
	msgInvalidJSON        = "Invalid JSON format"
	msgInternalError      = "Internal error processing message"
	msgSessionConfirmed   = "Session started successfully"
	msgWiFiResetConfirmed = "Device will restart shortly"
)

// HandleFrame processes one inbound frame. No failure escapes it: malformed
// frames and handler errors answer with a single error frame, unknown types
// are logged and dropped. Frames reaching a closed session are dropped.
func (s *Session) HandleFrame(raw []byte) {
	if s.State() == StateClosed {
		s.logger.Debug().Str("device_id", s.DeviceID()).Msg("Frame after close dropped")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.FrameErrors.WithLabelValues("handler").Inc()
			s.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Str("device_id", s.DeviceID()).
				Msg("Frame handler panicked")
			s.sendError(msgInternalError)
		}
	}()

	if s.limiter != nil && !s.limiter.Allow() {
		metrics.FrameErrors.WithLabelValues("rate_limited").Inc()
		s.logger.Debug().Str("device_id", s.DeviceID()).Msg("Inbound frame rate limited")
		return
	}

	msg, err := protocol.Decode(raw)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownType) {
			metrics.FrameErrors.WithLabelValues("unknown_type").Inc()
			s.logger.Warn().Err(err).Str("device_id", s.DeviceID()).Msg("Unknown message type")
			return
		}
		metrics.FrameErrors.WithLabelValues("malformed").Inc()
		s.logger.Warn().Err(err).Str("device_id", s.DeviceID()).Msg("Malformed frame")
		s.sendError(msgInvalidJSON)
		return
	}

	metrics.FramesReceived.WithLabelValues(string(msg.MessageType())).Inc()

	if err := s.dispatch(msg, raw); err != nil {
		kind := "handler"
		if errors.Is(err, ErrMissingDeviceID) || errors.Is(err, ErrDeviceIDMismatch) {
			kind = "identity"
		}
		metrics.FrameErrors.WithLabelValues(kind).Inc()
		s.logger.Warn().
			Err(err).
			Str("type", string(msg.MessageType())).
			Str("device_id", s.DeviceID()).
			Msg("Frame handler failed")
		s.sendError(err.Error())
	}
}

func (s *Session) dispatch(msg protocol.Inbound, raw []byte) error {
	switch m := msg.(type) {
	case protocol.Status:
		return s.handleStatus(m)
	case protocol.SensorData:
		return s.handleSensorData(m, raw)
	case protocol.SessionAck:
		s.sendCommand(protocol.SessionConfirmed{Message: msgSessionConfirmed})
		return nil
	case protocol.NetworkInfo:
		return s.handleNetworkInfo(m, raw)
	case protocol.WiFiResetAck:
		s.sendCommand(protocol.WiFiResetConfirmed{Message: msgWiFiResetConfirmed})
		return nil
	case protocol.Pong:
		s.gw.registry.Touch(s.DeviceID())
		return nil
	default:
		return fmt.Errorf("no handler for %q", msg.MessageType())
	}
}

func (s *Session) handleStatus(m protocol.Status) error {
	deviceID := s.DeviceID()

	if m.IsConnected() {
		if m.DeviceID == "" {
			return ErrMissingDeviceID
		}
		if !protocol.ValidDeviceID(m.DeviceID) {
			return ErrInvalidDeviceID
		}
		if deviceID != "" && deviceID != m.DeviceID {
			return fmt.Errorf("%w: bound to %q", ErrDeviceIDMismatch, deviceID)
		}

		mode := m.Mode
		if mode == "" {
			mode = protocol.ModeNormal
		}
		if err := s.gw.registry.Register(m.DeviceID, s, mode); err != nil {
			return fmt.Errorf("register device: %w", err)
		}
		s.bind(m.DeviceID)
		deviceID = m.DeviceID

		// Close may have run between the state check and bind, seeing no device.
		if s.State() == StateClosed {
			s.gw.registry.Release(deviceID, s)
			s.logger.Debug().Str("device_id", deviceID).Msg("Registration raced with close, released")
			return nil
		}

		s.logger.Info().Str("device_id", deviceID).Str("mode", mode).Msg("Device registered")
	} else if deviceID != "" {
		s.gw.registry.SetStatus(deviceID, m.Status)
	}

	// Unbound sessions persist under whatever id the frame names, possibly none.
	recordID := deviceID
	if recordID == "" {
		recordID = m.DeviceID
	}

	now := s.gw.now()
	ev := models.NewStatusEvent(recordID, s.remoteIP(), m, now)
	if s.gw.sink != nil {
		if err := s.gw.sink.RecordStatus(s.ctx, ev); err != nil {
			s.logger.Warn().Err(err).Str("device_id", recordID).Msg("Status event not persisted")
		}
	}

	if deviceID != "" {
		s.publish(fanout.Event{
			DeviceID:  deviceID,
			Type:      fanout.EventStatus,
			Status:    ev.Status,
			Mode:      ev.Mode,
			Message:   ev.Message,
			Timestamp: now,
		})
	}
	return nil
}

func (s *Session) handleSensorData(m protocol.SensorData, raw []byte) error {
	deviceID := s.DeviceID()
	if deviceID != "" {
		s.gw.registry.Touch(deviceID)
	}

	now := s.gw.now()
	reading := models.NewSensorReading(deviceID, m, now)
	if s.gw.sink != nil {
		if err := s.gw.sink.RecordReading(s.ctx, reading); err != nil {
			s.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Sensor reading not persisted")
		}
	}

	if deviceID != "" {
		s.publish(fanout.Event{
			DeviceID:  deviceID,
			Type:      fanout.EventSensorData,
			Mode:      reading.Mode,
			Payload:   raw,
			Timestamp: now,
		})
	}
	return nil
}

func (s *Session) handleNetworkInfo(m protocol.NetworkInfo, raw []byte) error {
	deviceID := s.DeviceID()
	if deviceID == "" {
		// network_configs is keyed by device id.
		s.logger.Info().Str("ssid", m.SSID).Str("ip", m.IP).Msg("Network info before registration not persisted")
		return nil
	}

	nc := models.NewNetworkConfig(deviceID, m, s.gw.now())
	s.gw.registry.UpdateNetwork(deviceID, registry.Network{
		SSID:   nc.SSID,
		IP:     nc.DeviceIP,
		RSSI:   nc.SignalStrength,
		WSHost: nc.WSHost,
		WSPort: nc.WSPort,
	})

	if s.gw.sink != nil {
		if err := s.gw.sink.RecordNetworkConfig(s.ctx, nc); err != nil {
			s.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Network config not persisted")
		}
	}

	s.publish(fanout.Event{
		DeviceID:  deviceID,
		Type:      fanout.EventNetworkInfo,
		Payload:   raw,
		Timestamp: nc.LastConnected,
	})
	return nil
}
