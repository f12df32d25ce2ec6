// Baskygate - Therapy Device Telemetry Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baskygate

/*
Package persistence implements the asynchronous write path between device
sessions and the DuckDB store.

Sessions hand records to the Sink and return immediately. The Sink routes each
record to one of N shard queues by hashing the device id (xxhash), so every
device always lands on the same single-writer shard and its records are
stored in arrival order. Different devices proceed independently.

Each shard writes through a shared circuit breaker (sony/gobreaker) with a
bounded exponential retry (cenkalti/backoff). Failures are logged and counted,
never returned to the session.

Backpressure: when a shard queue is full, Record* waits up to EnqueueTimeout
and then drops the record with ErrQueueFull. Memory stays bounded.

With a WAL attached, each record is spooled before it is queued and confirmed
after it is stored. Recover replays whatever was left pending by a crash or a
dropped enqueue.

The Sink implements suture.Service; Serve runs the shard workers until the
context is cancelled, then drains queued records and rejects new ones with
ErrSinkClosed.
*/
package persistence
