// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/baskygate/internal/fanout"
	"github.com/tomtom215/baskygate/internal/logging"
	"github.com/tomtom215/baskygate/internal/metrics"
)

// dashboardReadLimit bounds inbound dashboard frames, which are discarded.
const dashboardReadLimit = 512

// Observer streams fan-out events for one device (or all devices) to a
// dashboard connection.
type Observer struct {
	id     uint64
	gw     *Gateway
	conn   *websocket.Conn
	sub    *fanout.Subscription
	logger zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

func newObserver(g *Gateway, conn *websocket.Conn, deviceID string) *Observer {
	id := connIDCounter.Add(1)
	return &Observer{
		id:   id,
		gw:   g,
		conn: conn,
		sub:  g.broker.Subscribe(deviceID),
		logger: logging.With().
			Str("component", "dashboard").
			Uint64("conn_id", id).
			Str("device_id", deviceID).
			Logger(),
		done: make(chan struct{}),
	}
}

// Run blocks until the dashboard disconnects.
func (o *Observer) Run() {
	metrics.SessionsActive.WithLabelValues("dashboard").Inc()
	defer metrics.SessionsActive.WithLabelValues("dashboard").Dec()

	o.logger.Info().Msg("Dashboard connected")

	go o.writePump()
	o.readPump()
	o.Close()

	o.logger.Info().Msg("Dashboard disconnected")
}

// Close unsubscribes and closes the connection. It is idempotent.
func (o *Observer) Close() {
	o.closeOnce.Do(func() {
		close(o.done)
		o.sub.Unsubscribe()
		deadline := time.Now().Add(o.gw.cfg.WriteWait)
		_ = o.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = o.conn.Close()
	})
}

// readPump discards dashboard input and detects disconnects.
func (o *Observer) readPump() {
	o.conn.SetReadLimit(dashboardReadLimit)
	if err := o.conn.SetReadDeadline(time.Now().Add(o.gw.cfg.PongWait)); err != nil {
		return
	}
	o.conn.SetPongHandler(func(string) error {
		return o.conn.SetReadDeadline(time.Now().Add(o.gw.cfg.PongWait))
	})

	for {
		if _, _, err := o.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				o.logger.Debug().Err(err).Msg("Unexpected dashboard close")
			}
			return
		}
	}
}

func (o *Observer) writePump() {
	ticker := time.NewTicker(o.gw.cfg.PingPeriod())
	defer func() {
		ticker.Stop()
		o.Close()
	}()

	for {
		select {
		case ev, ok := <-o.sub.C:
			if !ok {
				return
			}
			data, err := ev.Marshal()
			if err != nil {
				o.logger.Error().Err(err).Str("event", ev.Type).Msg("Failed to marshal event")
				continue
			}
			if err := o.conn.SetWriteDeadline(time.Now().Add(o.gw.cfg.WriteWait)); err != nil {
				return
			}
			if err := o.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			if err := o.conn.SetWriteDeadline(time.Now().Add(o.gw.cfg.WriteWait)); err != nil {
				return
			}
			if err := o.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-o.done:
			return
		}
	}
}
