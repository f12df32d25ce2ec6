// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

/*
Package protocol implements the JSON wire protocol spoken between therapy-assist
devices and the gateway.

Every frame is a JSON object with a "type" discriminator. Inbound frames
(device to gateway) decode into one of the typed variants below; outbound
frames (gateway to device) are built from typed commands and always carry a
server-generated ISO-8601 "timestamp".

# Inbound

	status          {"status","device_id","message","mode"}
	sensor_data     {"shoulder","elbow","wrist","hand":{pitch,roll,yaw}, "force":{force}, ...}
	session_ack     {}
	network_info    {"ssid","ip","rssi","ws_host","ws_port","connected"}
	wifi_reset_ack  {}
	pong            {}

Absent fields decode to their zero value. Firmware revisions send partial
frames and the gateway accepts them as-is.

# Outbound

	connection_established, session_confirmed, wifi_reset_confirmed, error,
	start_session, stop_session, calibrate, ai_correction, motor_control,
	get_network_info, reset_wifi, ping

# Errors

Decode returns a *DecodeError that matches ErrMalformedPayload for invalid
JSON and ErrUnknownType for an unrecognized "type". Encode never fails.
*/
package protocol
