// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package websocket

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/baskygate/internal/config"
	"github.com/tomtom215/baskygate/internal/fanout"
	"github.com/tomtom215/baskygate/internal/logging"
	"github.com/tomtom215/baskygate/internal/models"
	"github.com/tomtom215/baskygate/internal/registry"
)

// Recorder is the persistence side of a session. *persistence.Sink satisfies it.
type Recorder interface {
	RecordStatus(ctx context.Context, ev models.StatusEvent) error
	RecordReading(ctx context.Context, r models.SensorReading) error
	RecordNetworkConfig(ctx context.Context, nc models.NetworkConfig) error
}

// connIDCounter hands out connection ids, unique for the process lifetime.
var connIDCounter atomic.Uint64

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) {
		g.now = now
	}
}

// Gateway holds what every session shares and serves the upgrade endpoints.
type Gateway struct {
	cfg      config.GatewayConfig
	registry *registry.Registry
	sink     Recorder
	broker   *fanout.Broker
	upgrader websocket.Upgrader
	now      func() time.Time

	// Live sessions and observers, so Shutdown can close them.
	mu        sync.Mutex
	sessions  map[*Session]struct{}
	observers map[*Observer]struct{}
}

// NewGateway wires the shared components together.
func NewGateway(cfg config.GatewayConfig, reg *registry.Registry, sink Recorder, broker *fanout.Broker, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		cfg:       cfg,
		registry:  reg,
		sink:      sink,
		broker:    broker,
		now:       time.Now,
		sessions:  make(map[*Session]struct{}),
		observers: make(map[*Observer]struct{}),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     g.checkOrigin,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ServeDevice upgrades a device connection and runs its session until the
// peer disconnects.
func (g *Gateway) ServeDevice(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		logging.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Device websocket upgrade failed")
		return
	}

	s := newSession(g, conn, r.RemoteAddr)
	g.track(s)
	defer g.untrack(s)

	s.Run(r.Context())
}

// ServeDashboard upgrades a dashboard connection that follows deviceID
// (fanout.AllDevices for every device).
func (g *Gateway) ServeDashboard(w http.ResponseWriter, r *http.Request, deviceID string) {
	if g.broker == nil {
		http.Error(w, "dashboard fan-out disabled", http.StatusServiceUnavailable)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Dashboard websocket upgrade failed")
		return
	}

	o := newObserver(g, conn, deviceID)
	g.mu.Lock()
	g.observers[o] = struct{}{}
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		delete(g.observers, o)
		g.mu.Unlock()
	}()

	o.Run()
}

// Shutdown closes every live session and observer.
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	sessions := make([]*Session, 0, len(g.sessions))
	for s := range g.sessions {
		sessions = append(sessions, s)
	}
	observers := make([]*Observer, 0, len(g.observers))
	for o := range g.observers {
		observers = append(observers, o)
	}
	g.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	for _, o := range observers {
		o.Close()
	}
	if len(sessions)+len(observers) > 0 {
		logging.Info().Int("sessions", len(sessions)).Int("observers", len(observers)).Msg("Closed websocket connections")
	}
}

// ActiveSessions returns the number of open device sessions.
func (g *Gateway) ActiveSessions() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

func (g *Gateway) track(s *Session) {
	g.mu.Lock()
	g.sessions[s] = struct{}{}
	g.mu.Unlock()
}

func (g *Gateway) untrack(s *Session) {
	g.mu.Lock()
	delete(g.sessions, s)
	g.mu.Unlock()
}

// checkOrigin admits requests without an Origin header (embedded devices),
// origins listed in AllowedOrigins, and same-host origins when no list is set.
func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(g.cfg.AllowedOrigins) == 0 {
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}

	for _, allowed := range g.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
