// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package fanout

import (
	"time"

	"github.com/goccy/go-json"
)

// Event types carried by the broker.
const (
	EventSensorData  = "sensor_data"
	EventStatus      = "status"
	EventNetworkInfo = "network_info"
	EventOffline     = "offline"
)

// Event is one broadcast item. Payload holds the original inbound frame for
// sensor_data and network_info events.
type Event struct {
	DeviceID  string          `json:"device_id"`
	Type      string          `json:"event"`
	Status    string          `json:"status,omitempty"`
	Mode      string          `json:"mode,omitempty"`
	Message   string          `json:"message,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Marshal encodes the event as JSON.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
