// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

/*
Package fanout broadcasts device events to dashboard observers.

The Broker is an in-process topic router. Device sessions publish events
(sensor_data, status, network_info, offline) and each dashboard connection
subscribes to one device, or to all devices with an empty id. Publishing
never blocks: a subscriber whose buffer is full misses the event and the
drop is counted.

The Bridge optionally mirrors every broker event onto a Watermill publisher,
normally NATS core subjects of the form

	<prefix>.<device_id>.<event>

so observers in other processes can follow the same stream. NewNATSPublisher
builds that publisher; StartEmbeddedServer runs a self-contained nats-server
for single-host deployments.
*/
package fanout
