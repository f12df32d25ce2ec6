// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNATSServerStopped is returned when the embedded server exits while the
// tree is still running.
var ErrNATSServerStopped = errors.New("embedded NATS server stopped unexpectedly")

// NATSServer matches the lifecycle of *fanout.EmbeddedServer.
type NATSServer interface {
	Shutdown(ctx context.Context) error
	IsRunning() bool
}

// NATSServerService supervises an embedded NATS server that was started
// before the tree so clients could connect during wiring.
type NATSServerService struct {
	server          NATSServer
	shutdownTimeout time.Duration
	pollInterval    time.Duration
	name            string
}

// NewNATSServerService wraps server. A non-positive shutdownTimeout
// defaults to 10 seconds.
func NewNATSServerService(server NATSServer, shutdownTimeout time.Duration) *NATSServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &NATSServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		pollInterval:    time.Second,
		name:            "nats-server",
	}
}

// Serve implements suture.Service. It returns ErrNATSServerStopped if the
// server goes down underneath it; the restarted service keeps failing until
// the process is restarted, which keeps the outage visible in the logs.
func (n *NATSServerService) Serve(ctx context.Context) error {
	if !n.server.IsRunning() {
		return ErrNATSServerStopped
	}

	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), n.shutdownTimeout)
			defer cancel()
			if err := n.server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("nats server shutdown failed: %w", err)
			}
			return ctx.Err()
		case <-ticker.C:
			if !n.server.IsRunning() {
				return ErrNATSServerStopped
			}
		}
	}
}

// String implements fmt.Stringer for suture logs.
func (n *NATSServerService) String() string {
	return n.name
}
