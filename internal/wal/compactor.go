// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

package wal

import (
	"context"
	"time"

	"github.com/tomtom215/baskygate/internal/logging"
)

// Compactor periodically runs Badger value log GC. It implements
// suture.Service.
type Compactor struct {
	wal      *BadgerWAL
	interval time.Duration
}

// NewCompactor creates a compactor for w.
func NewCompactor(w *BadgerWAL, interval time.Duration) *Compactor {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Compactor{wal: w, interval: interval}
}

// Serve runs GC on every tick until ctx is cancelled.
func (c *Compactor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", c.interval).Msg("WAL compactor started")
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("WAL compactor stopped")
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := c.wal.RunGC(); err != nil {
				logging.Error().Err(err).Msg("WAL compaction GC error")
				continue
			}
			logging.Debug().
				Dur("duration", time.Since(start)).
				Int64("pending", c.wal.Len()).
				Msg("WAL compaction completed")
		}
	}
}

// String returns the service name for supervisor logging.
func (c *Compactor) String() string {
	return "wal-compactor"
}
