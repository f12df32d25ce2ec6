// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

/*
Package wal provides a durable write-ahead spool backed by BadgerDB.

The persistence sink writes each record to the WAL before queueing it for
DuckDB, and confirms the entry once the row is stored. Entries still pending
at startup are replayed by the sink, so a crash between accept and insert does
not lose telemetry.

Keys are ordered by a Badger sequence, so Pending returns entries in write
order. Replaying in that order preserves per-device ordering.

Lifecycle:

	w, err := wal.Open(cfg.WAL)
	id, err := w.Write(ctx, "sensor_reading", reading)
	...
	err = w.Confirm(ctx, id)

A GC service reclaims value log space periodically:

	tree.AddDataService(wal.NewCompactor(w, cfg.WAL.GCInterval))
*/
package wal
