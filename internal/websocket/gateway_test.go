// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/baskygate/internal/fanout"
)

// setupGatewayServer serves device sockets on /ws/device and dashboard
// sockets on /ws/dashboard/<device>.
func setupGatewayServer(t *testing.T, env *testEnv) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/device", env.gw.ServeDevice)
	mux.HandleFunc("/ws/dashboard/", func(w http.ResponseWriter, r *http.Request) {
		env.gw.ServeDashboard(w, r, strings.TrimPrefix(r.URL.Path, "/ws/dashboard/"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		env.gw.Shutdown()
		server.Close()
	})
	return server
}

func dialWebSocket(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("frame is not JSON: %v: %s", err, raw)
	}
	return m
}

func writeFrame(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("%s: timeout after %v", msg, timeout)
}

func TestGatewayDeviceLifecycle(t *testing.T) {
	env := newTestEnv(t, testGatewayConfig())
	server := setupGatewayServer(t, env)
	conn := dialWebSocket(t, server, "/ws/device")

	welcome := readFrame(t, conn)
	if welcome["type"] != "connection_established" {
		t.Fatalf("first frame = %v, want connection_established", welcome)
	}

	writeFrame(t, conn, `{"type":"status","status":"connected","device_id":"d1","mode":"normal"}`)
	waitFor(t, 5*time.Second, "device registration", func() bool {
		_, ok := env.reg.Lookup("d1")
		return ok
	})
	entry, _ := env.reg.Get("d1")
	if entry.Status != "connected" {
		t.Errorf("status = %q, want connected", entry.Status)
	}

	writeFrame(t, conn, `{"type":"sensor_data","shoulder":{"pitch":1.0,"roll":0,"yaw":0},"elbow":{"pitch":0,"roll":0,"yaw":0},"wrist":{"pitch":0,"roll":0,"yaw":0},"hand":{"pitch":0,"roll":0,"yaw":0},"force":{"force":0},"exercise":"Stretching","difficulty":"medium","session_duration":10,"mode":"normal"}`)
	waitFor(t, 5*time.Second, "sensor reading", func() bool {
		_, readings, _ := env.rec.snapshot()
		return len(readings) == 1
	})
	_, readings, _ := env.rec.snapshot()
	if readings[0].ShoulderPitch != 1.0 || readings[0].DeviceID != "d1" {
		t.Errorf("reading = %+v", readings[0])
	}
	waitFor(t, 5*time.Second, "last_seen advance", func() bool {
		current, ok := env.reg.Get("d1")
		return ok && current.LastSeen.After(entry.LastSeen)
	})

	if err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
		t.Fatalf("write close: %v", err)
	}
	_ = conn.Close()

	waitFor(t, 5*time.Second, "device unregistration", func() bool {
		_, ok := env.reg.Lookup("d1")
		return !ok
	})
	waitFor(t, 5*time.Second, "session untracked", func() bool {
		return env.gw.ActiveSessions() == 0
	})
}

func TestGatewayMalformedFrame(t *testing.T) {
	env := newTestEnv(t, testGatewayConfig())
	server := setupGatewayServer(t, env)
	conn := dialWebSocket(t, server, "/ws/device")
	readFrame(t, conn)

	writeFrame(t, conn, `{"type":`)
	frame := readFrame(t, conn)
	if frame["type"] != "error" || frame["message"] != "Invalid JSON format" {
		t.Errorf("frame = %v", frame)
	}
	if env.reg.Len() != 0 {
		t.Error("registry should be unchanged")
	}

	// The connection stays usable.
	writeFrame(t, conn, `{"type":"session_ack"}`)
	if frame := readFrame(t, conn); frame["type"] != "session_confirmed" {
		t.Errorf("frame = %v, want session_confirmed", frame)
	}
}

func TestGatewayDashboardReceivesEvents(t *testing.T) {
	env := newTestEnv(t, testGatewayConfig())
	server := setupGatewayServer(t, env)

	dashboard := dialWebSocket(t, server, "/ws/dashboard/d1")
	waitFor(t, 5*time.Second, "dashboard subscription", func() bool {
		return env.broker.Subscribers("d1") == 1
	})

	device := dialWebSocket(t, server, "/ws/device")
	readFrame(t, device)
	writeFrame(t, device, `{"type":"status","status":"connected","device_id":"d1"}`)
	writeFrame(t, device, `{"type":"sensor_data","shoulder":{"pitch":12.5}}`)

	status := readFrame(t, dashboard)
	if status["event"] != fanout.EventStatus || status["device_id"] != "d1" {
		t.Errorf("first dashboard event = %v", status)
	}
	sample := readFrame(t, dashboard)
	if sample["event"] != fanout.EventSensorData {
		t.Fatalf("second dashboard event = %v", sample)
	}
	payload, ok := sample["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload = %T, want object", sample["payload"])
	}
	shoulder, _ := payload["shoulder"].(map[string]any)
	if shoulder["pitch"] != 12.5 {
		t.Errorf("payload shoulder = %v", shoulder)
	}

	_ = device.Close()
	offline := readFrame(t, dashboard)
	if offline["event"] != fanout.EventOffline {
		t.Errorf("third dashboard event = %v, want offline", offline)
	}
}

func TestGatewayShutdownClosesSessions(t *testing.T) {
	env := newTestEnv(t, testGatewayConfig())
	server := setupGatewayServer(t, env)
	conn := dialWebSocket(t, server, "/ws/device")
	readFrame(t, conn)

	writeFrame(t, conn, `{"type":"status","status":"connected","device_id":"d1"}`)
	waitFor(t, 5*time.Second, "device registration", func() bool {
		return env.reg.Len() == 1
	})

	env.gw.Shutdown()

	waitFor(t, 5*time.Second, "unregistration after shutdown", func() bool {
		return env.reg.Len() == 0
	})
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed")
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"device without origin", nil, "", true},
		{"same host", nil, "http://gateway.local:8080", true},
		{"other host without list", nil, "http://evil.example", false},
		{"listed origin", []string{"https://dash.example"}, "https://dash.example", true},
		{"unlisted origin", []string{"https://dash.example"}, "https://other.example", false},
		{"wildcard", []string{"*"}, "https://anything.example", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testGatewayConfig()
			cfg.AllowedOrigins = tt.allowed
			g := NewGateway(cfg, nil, nil, nil)

			r := httptest.NewRequest(http.MethodGet, "http://gateway.local:8080/ws/device", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := g.checkOrigin(r); got != tt.want {
				t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestServeDashboardWithoutBroker(t *testing.T) {
	g := NewGateway(testGatewayConfig(), nil, nil, nil)
	rec := httptest.NewRecorder()
	g.ServeDashboard(rec, httptest.NewRequest(http.MethodGet, "/ws/dashboard/d1", nil), "d1")

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
