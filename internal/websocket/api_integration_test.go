// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/baskygate/internal/api"
	"github.com/tomtom215/baskygate/internal/config"
	"github.com/tomtom215/baskygate/internal/database"
	"github.com/tomtom215/baskygate/internal/dispatch"
	"github.com/tomtom215/baskygate/internal/models"
)

// emptyStore has no persisted telemetry.
type emptyStore struct{}

func (emptyStore) Ping(context.Context) error { return nil }

func (emptyStore) RecentReadings(context.Context, string, int) ([]models.SensorReading, error) {
	return nil, nil
}

func (emptyStore) LatestStatus(context.Context, string) (*models.StatusEvent, error) {
	return nil, database.ErrNotFound
}

func (emptyStore) NetworkConfig(context.Context, string) (*models.NetworkConfig, error) {
	return nil, database.ErrNotFound
}

func TestRegisteredDeviceIsAddressableThroughAPI(t *testing.T) {
	tests := []string{
		"basky arm",
		"ذراع-1",
		"clinic/arm-3",
	}

	for _, deviceID := range tests {
		t.Run(deviceID, func(t *testing.T) {
			env := newTestEnv(t, testGatewayConfig())
			h := api.NewHandler(emptyStore{}, dispatch.New(env.reg), nil,
				config.APIConfig{RateLimitDisabled: true, ReadingsDefaultLimit: 10, ReadingsMaxLimit: 100}, "test")
			server := httptest.NewServer(api.NewRouter(h, env.gw).SetupChi())
			t.Cleanup(func() {
				env.gw.Shutdown()
				server.Close()
			})

			conn := dialWebSocket(t, server, "/ws/device")
			readFrame(t, conn)
			writeFrame(t, conn, `{"type":"status","status":"connected","device_id":"`+deviceID+`"}`)
			waitFor(t, 5*time.Second, "device registration", func() bool {
				_, ok := env.reg.Lookup(deviceID)
				return ok
			})

			base := server.URL + "/api/v1/devices/" + url.PathEscape(deviceID)

			resp, err := http.Get(base)
			if err != nil {
				t.Fatalf("GET device: %v", err)
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("GET device = %d, want 200", resp.StatusCode)
			}

			resp, err = http.Post(base+"/commands/ping", "application/json", strings.NewReader(`{}`))
			if err != nil {
				t.Fatalf("POST command: %v", err)
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusAccepted {
				t.Fatalf("POST command = %d, want 202", resp.StatusCode)
			}

			if frame := readFrame(t, conn); frame["type"] != "ping" {
				t.Errorf("device received %v, want ping", frame)
			}
		})
	}
}
