// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package websocket

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/baskygate/internal/fanout"
	"github.com/tomtom215/baskygate/internal/logging"
	"github.com/tomtom215/baskygate/internal/metrics"
	"github.com/tomtom215/baskygate/internal/protocol"
)

// State is the lifecycle stage of a Session.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// Session is one device connection. It implements registry.Handle.
type Session struct {
	id         uint64
	gw         *Gateway
	conn       *websocket.Conn
	remoteAddr string
	logger     zerolog.Logger

	// ctx bounds persistence enqueues. Set once by Run before the pumps start.
	ctx context.Context

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	state     atomic.Int32

	limiter *rate.Limiter

	mu       sync.Mutex
	deviceID string
}

func newSession(g *Gateway, conn *websocket.Conn, remoteAddr string) *Session {
	id := connIDCounter.Add(1)

	buffer := g.cfg.SendBuffer
	if buffer < 1 {
		buffer = 1
	}

	s := &Session{
		id:         id,
		gw:         g,
		conn:       conn,
		remoteAddr: remoteAddr,
		logger:     logging.WithSession(id, remoteAddr),
		ctx:        context.Background(),
		send:       make(chan []byte, buffer),
		done:       make(chan struct{}),
	}
	if g.cfg.InboundRateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(g.cfg.InboundRateLimit), max(g.cfg.InboundBurst, 1))
	}
	return s
}

// ConnID identifies the connection.
func (s *Session) ConnID() uint64 {
	return s.id
}

// State returns the current lifecycle stage.
func (s *Session) State() State {
	return State(s.state.Load())
}

// DeviceID returns the bound device id, or "" before registration.
func (s *Session) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

func (s *Session) bind(deviceID string) {
	s.mu.Lock()
	s.deviceID = deviceID
	s.mu.Unlock()
}

// Send queues an encoded frame without blocking. It reports false once the
// session is closed or while its outbound buffer is full.
func (s *Session) Send(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- frame:
		return true
	case <-s.done:
		return false
	default:
		s.logger.Warn().Str("device_id", s.DeviceID()).Msg("Outbound buffer full, frame dropped")
		return false
	}
}

// sendCommand encodes cmd with the current time and queues it.
func (s *Session) sendCommand(cmd protocol.Command) bool {
	if !s.Send(protocol.Encode(cmd, s.gw.now())) {
		return false
	}
	metrics.FramesSent.WithLabelValues(string(cmd.CommandType())).Inc()
	return true
}

func (s *Session) sendError(message string) {
	s.sendCommand(protocol.ErrorFrame{Message: message})
}

// Run opens the session and blocks until the connection is gone. ctx
// cancellation closes the connection.
func (s *Session) Run(ctx context.Context) {
	s.ctx = ctx
	if !s.open() {
		return
	}

	stop := context.AfterFunc(ctx, s.Close)
	defer stop()

	go s.writePump()
	s.readPump()
	s.Close()
}

// open moves Connecting → Open and queues the welcome frame.
func (s *Session) open() bool {
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
		return false
	}
	metrics.SessionsActive.WithLabelValues("device").Inc()

	s.sendCommand(protocol.ConnectionEstablished{
		Message:       s.gw.cfg.WelcomeMessage,
		ServerVersion: s.gw.cfg.ServerVersion,
	})
	s.logger.Info().Msg("Device connection opened")
	return true
}

// Close moves the session to Closed, releases its registry entry if it still
// owns it, and announces the device offline. It is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		prev := State(s.state.Swap(int32(StateClosed)))
		close(s.done)

		if s.conn != nil {
			deadline := time.Now().Add(s.gw.cfg.WriteWait)
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			_ = s.conn.Close()
		}
		if prev == StateOpen {
			metrics.SessionsActive.WithLabelValues("device").Dec()
		}

		deviceID := s.DeviceID()
		if deviceID != "" && s.gw.registry.Release(deviceID, s) {
			s.publish(fanout.Event{
				DeviceID:  deviceID,
				Type:      fanout.EventOffline,
				Status:    fanout.EventOffline,
				Timestamp: s.gw.now(),
			})
			s.logger.Info().Str("device_id", deviceID).Msg("Device unregistered")
		}

		s.logger.Info().Str("device_id", deviceID).Msg("Device connection closed")
	})
}

// readPump feeds inbound frames to HandleFrame until the peer goes away.
func (s *Session) readPump() {
	s.conn.SetReadLimit(s.gw.cfg.MaxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(s.gw.cfg.PongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}
	s.conn.SetPongHandler(func(string) error {
		s.gw.registry.Touch(s.DeviceID())
		return s.conn.SetReadDeadline(time.Now().Add(s.gw.cfg.PongWait))
	})

	for {
		msgType, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Str("device_id", s.DeviceID()).Msg("Unexpected websocket close")
			}
			return
		}

		// Any frame proves the peer is alive.
		if err := s.conn.SetReadDeadline(time.Now().Add(s.gw.cfg.PongWait)); err != nil {
			return
		}

		if msgType != websocket.TextMessage {
			s.logger.Debug().Int("message_type", msgType).Msg("Ignoring non-text frame")
			continue
		}
		s.HandleFrame(raw)
	}
}

// writePump is the connection's only writer. It drains the outbound queue and
// pings the peer every PingPeriod.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.gw.cfg.PingPeriod())
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(s.gw.cfg.WriteWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.logger.Debug().Err(err).Msg("Write failed")
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(s.gw.cfg.WriteWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			return
		}
	}
}

// remoteIP is the peer host without its port.
func (s *Session) remoteIP() string {
	host, _, err := net.SplitHostPort(s.remoteAddr)
	if err != nil {
		return s.remoteAddr
	}
	return host
}

func (s *Session) publish(ev fanout.Event) {
	if s.gw.broker == nil {
		return
	}
	s.gw.broker.Publish(ev)
}
