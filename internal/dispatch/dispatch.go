// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

// Package dispatch is the control layer's only path to a device: it looks the
// device up in the registry and queues an encoded command on its connection.
//
// Every method is safe for concurrent use from any number of callers. A
// device that is not registered, or whose connection closes mid-send, is
// reported as offline with a false result and no side effects. A device that
// is still connected but whose outbound buffer is full is reported with
// ErrDeviceBusy so callers can retry.
package dispatch

import (
	"errors"
	"time"

	"github.com/tomtom215/baskygate/internal/logging"
	"github.com/tomtom215/baskygate/internal/metrics"
	"github.com/tomtom215/baskygate/internal/protocol"
	"github.com/tomtom215/baskygate/internal/registry"
)

// ErrDeviceBusy reports a registered device whose outbound buffer is full.
var ErrDeviceBusy = errors.New("device outbound buffer full")

// Dispatcher delivers commands to registered devices.
type Dispatcher struct {
	registry *registry.Registry
	now      func() time.Time
}

// New creates a Dispatcher over reg.
func New(reg *registry.Registry) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		now:      time.Now,
	}
}

// Send encodes cmd and queues it for deviceID. It reports false when the
// command was not queued.
func (d *Dispatcher) Send(deviceID string, cmd protocol.Command) bool {
	delivered, _ := d.deliver(deviceID, cmd)
	return delivered
}

// deliver queues cmd and tells a full buffer (ErrDeviceBusy) apart from an
// offline device (false, nil).
func (d *Dispatcher) deliver(deviceID string, cmd protocol.Command) (bool, error) {
	commandType := string(cmd.CommandType())

	h, ok := d.registry.Lookup(deviceID)
	if !ok {
		metrics.RecordCommand(commandType, false)
		logging.Debug().Str("device_id", deviceID).Str("command", commandType).Msg("Command for offline device")
		return false, nil
	}

	if h.Send(protocol.Encode(cmd, d.now())) {
		metrics.RecordCommand(commandType, true)
		metrics.FramesSent.WithLabelValues(commandType).Inc()
		logging.Info().Str("device_id", deviceID).Str("command", commandType).Msg("Command queued")
		return true, nil
	}

	// Still owned by the same connection: the send failed on backpressure.
	if cur, ok := d.registry.Lookup(deviceID); ok && cur.ConnID() == h.ConnID() {
		metrics.RecordCommandBusy(commandType)
		logging.Warn().Str("device_id", deviceID).Str("command", commandType).Msg("Device outbound buffer full, command refused")
		return false, ErrDeviceBusy
	}

	metrics.RecordCommand(commandType, false)
	logging.Warn().Str("device_id", deviceID).Str("command", commandType).Msg("Device went offline mid-command")
	return false, nil
}

// SendCommand builds a command from a control-layer request and delivers it.
// An unknown command type or invalid payload is an error, as is a full
// outbound buffer (ErrDeviceBusy); an offline device is a false result with a
// nil error.
func (d *Dispatcher) SendCommand(deviceID, commandType string, payload []byte) (bool, error) {
	cmd, err := protocol.NewCommand(commandType, payload)
	if err != nil {
		return false, err
	}
	return d.deliver(deviceID, cmd)
}

// ConnectedDevices returns a point-in-time snapshot of the registry.
func (d *Dispatcher) ConnectedDevices() map[string]registry.Entry {
	return d.registry.Snapshot()
}

// Device returns the live entry for deviceID.
func (d *Dispatcher) Device(deviceID string) (registry.Entry, bool) {
	return d.registry.Get(deviceID)
}
