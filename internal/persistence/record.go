// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package persistence

import (
	"context"
	"fmt"

	"github.com/tomtom215/baskygate/internal/models"
	"github.com/tomtom215/baskygate/internal/wal"
)

// Record kinds, used as WAL kinds and metric labels.
const (
	KindStatusEvent   = "status_event"
	KindSensorReading = "sensor_reading"
	KindNetworkConfig = "network_config"
)

// Store is the durable backend. *database.DB satisfies it.
type Store interface {
	InsertStatusEvent(ctx context.Context, ev *models.StatusEvent) error
	InsertSensorReading(ctx context.Context, r *models.SensorReading) error
	UpsertNetworkConfig(ctx context.Context, nc *models.NetworkConfig) error
}

// Spool is the optional write-ahead log. *wal.BadgerWAL satisfies it.
type Spool interface {
	Write(ctx context.Context, kind string, payload any) (string, error)
	Confirm(ctx context.Context, id string) error
	Pending(ctx context.Context) ([]*wal.Entry, error)
}

// record is one queued write. Exactly one of the payload pointers is set.
type record struct {
	kind     string
	deviceID string
	walID    string

	status  *models.StatusEvent
	reading *models.SensorReading
	network *models.NetworkConfig
}

func (r *record) payload() any {
	switch r.kind {
	case KindStatusEvent:
		return r.status
	case KindSensorReading:
		return r.reading
	case KindNetworkConfig:
		return r.network
	}
	return nil
}

func (r *record) apply(ctx context.Context, store Store) error {
	switch r.kind {
	case KindStatusEvent:
		return store.InsertStatusEvent(ctx, r.status)
	case KindSensorReading:
		return store.InsertSensorReading(ctx, r.reading)
	case KindNetworkConfig:
		return store.UpsertNetworkConfig(ctx, r.network)
	}
	return fmt.Errorf("unknown record kind %q", r.kind)
}

// recordFromEntry rebuilds a queued record from a spooled WAL entry.
func recordFromEntry(e *wal.Entry) (*record, error) {
	r := &record{kind: e.Kind, walID: e.ID}
	var err error
	switch e.Kind {
	case KindStatusEvent:
		r.status = &models.StatusEvent{}
		err = e.UnmarshalPayload(r.status)
		r.deviceID = r.status.DeviceID
	case KindSensorReading:
		r.reading = &models.SensorReading{}
		err = e.UnmarshalPayload(r.reading)
		r.deviceID = r.reading.DeviceID
	case KindNetworkConfig:
		r.network = &models.NetworkConfig{}
		err = e.UnmarshalPayload(r.network)
		r.deviceID = r.network.DeviceID
	default:
		return nil, fmt.Errorf("unknown WAL entry kind %q", e.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode WAL entry %s: %w", e.ID, err)
	}
	return r, nil
}
