// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package api

// DeviceRequest identifies one device from the URL.
type DeviceRequest struct {
	DeviceID string `validate:"required,deviceid"`
}

// ReadingsRequest is GET /devices/{deviceID}/readings. Limit above the
// configured maximum is clamped, not rejected.
type ReadingsRequest struct {
	DeviceID string `validate:"required,deviceid"`
	Limit    int    `validate:"min=1"`
}

// CommandRequest is POST /devices/{deviceID}/commands/{command}. The JSON body
// is passed through to the command builder.
type CommandRequest struct {
	DeviceID string `validate:"required,deviceid"`
	Command  string `validate:"required,devicecommand"`
}
