// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordPersistenceWrite(t *testing.T) {
	tests := []struct {
		name   string
		record string
		err    error
		result string
	}{
		{"successful sensor write", "sensor_reading", nil, "ok"},
		{"failed status write", "status_event", errors.New("database is locked"), "failed"},
		{"successful upsert", "network_config", nil, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := PersistenceWrites.WithLabelValues(tt.record, tt.result)
			before := testutil.ToFloat64(counter)

			RecordPersistenceWrite(tt.record, 3*time.Millisecond, tt.err)

			if got := testutil.ToFloat64(counter); got != before+1 {
				t.Errorf("%s/%s counter = %v, want %v", tt.record, tt.result, got, before+1)
			}
		})
	}
}

func TestRecordPersistenceDrop(t *testing.T) {
	counter := PersistenceWrites.WithLabelValues("sensor_reading", "dropped")
	before := testutil.ToFloat64(counter)

	RecordPersistenceDrop("sensor_reading")

	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("dropped counter = %v, want %v", got, before+1)
	}
}

func TestRecordCommand(t *testing.T) {
	delivered := CommandsDispatched.WithLabelValues("ping", "delivered")
	offline := CommandsDispatched.WithLabelValues("ping", "offline")
	beforeDelivered, beforeOffline := testutil.ToFloat64(delivered), testutil.ToFloat64(offline)

	RecordCommand("ping", true)
	RecordCommand("ping", false)
	RecordCommand("ping", false)

	if got := testutil.ToFloat64(delivered); got != beforeDelivered+1 {
		t.Errorf("delivered = %v, want %v", got, beforeDelivered+1)
	}
	if got := testutil.ToFloat64(offline); got != beforeOffline+2 {
		t.Errorf("offline = %v, want %v", got, beforeOffline+2)
	}

	busy := CommandsDispatched.WithLabelValues("ping", "busy")
	beforeBusy := testutil.ToFloat64(busy)
	RecordCommandBusy("ping")
	if got := testutil.ToFloat64(busy); got != beforeBusy+1 {
		t.Errorf("busy = %v, want %v", got, beforeBusy+1)
	}
}

func TestRecordHTTPRequestObservesHistogram(t *testing.T) {
	RecordHTTPRequest("GET", "/api/v1/devices", "200", 20*time.Millisecond)

	metric := &dto.Metric{}
	observer := HTTPRequestDuration.WithLabelValues("GET", "/api/v1/devices")
	if err := observer.(interface{ Write(*dto.Metric) error }).Write(metric); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if metric.GetHistogram().GetSampleCount() == 0 {
		t.Error("expected at least one histogram sample")
	}
}

func TestSetCircuitBreakerState(t *testing.T) {
	SetCircuitBreakerState("duckdb", 2)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("duckdb")); got != 2 {
		t.Errorf("breaker state = %v, want 2", got)
	}
}

func TestRecordWALOperation(t *testing.T) {
	errCounter := WALOperations.WithLabelValues("write", "error")
	before := testutil.ToFloat64(errCounter)

	RecordWALOperation("write", errors.New("disk full"))

	if got := testutil.ToFloat64(errCounter); got != before+1 {
		t.Errorf("wal error counter = %v, want %v", got, before+1)
	}
}
